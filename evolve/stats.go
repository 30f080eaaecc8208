package evolve

import (
	"math"
	"time"
)

// GenStats summarises one generation. Avg, Std, Min and Max cover finite
// fitness values only; Invalid counts the rest.
type GenStats struct {
	Gen     int
	Evals   int
	Avg     float64
	Std     float64
	Min     float64
	Max     float64
	Invalid int

	// Best is the hall-of-fame leader after this generation.
	Best     float64
	BestRule string
	Elapsed  time.Duration
}

func computeStats(gen, evals int, pop Population) GenStats {
	s := GenStats{Gen: gen, Evals: evals, Min: math.NaN(), Max: math.NaN(), Avg: math.NaN(), Std: math.NaN()}

	var sum, sumSq float64
	n := 0
	for _, ind := range pop {
		f := ind.Fitness
		if !ind.Valid || math.IsNaN(f) || math.IsInf(f, 0) {
			s.Invalid++
			continue
		}
		if n == 0 || f < s.Min {
			s.Min = f
		}
		if n == 0 || f > s.Max {
			s.Max = f
		}
		sum += f
		sumSq += f * f
		n++
	}
	if n == 0 {
		return s
	}
	s.Avg = sum / float64(n)
	s.Std = math.Sqrt(math.Max(sumSq/float64(n)-s.Avg*s.Avg, 0))
	return s
}
