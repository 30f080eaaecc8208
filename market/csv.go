package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// CSVOptions filters rows to [From, To) when either bound is set.
type CSVOptions struct {
	From time.Time
	To   time.Time
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006.01.02 15:04:05",
	"2006.01.02 15:04",
	"2006-01-02",
}

var indicatorColumns = []string{"ema50", "ema200", "rsi14", "atr14"}

// LoadCSV reads bars from a comma separated file with a header row naming
// its columns (case-insensitive):
//
//	time,open,high,low,close[,volume][,ema50,ema200,rsi14,atr14]
//
// open, high, low and close are required; time and volume are optional. An
// empty price cell becomes NaN. enriched is true when all four indicator
// columns are present, in which case they are loaded as-is.
func LoadCSV(path string, opts CSVOptions) (bars []Bar, enriched bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	return ReadCSV(f, opts)
}

// ReadCSV is LoadCSV over an io.Reader.
func ReadCSV(r io.Reader, opts CSVOptions) ([]Bar, bool, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, false, fmt.Errorf("csv: empty input")
	}
	if err != nil {
		return nil, false, err
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range []string{"open", "high", "low", "close"} {
		if _, ok := cols[req]; !ok {
			return nil, false, fmt.Errorf("csv: missing %q column", req)
		}
	}
	enriched := true
	for _, c := range indicatorColumns {
		if _, ok := cols[c]; !ok {
			enriched = false
		}
	}

	var bars []Bar
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		line++
		if isBlank(row) {
			continue
		}

		b, err := parseBarRow(row, cols, enriched)
		if err != nil {
			return nil, false, fmt.Errorf("csv line %d: %w", line, err)
		}
		if !inRange(b.Time, opts.From, opts.To) {
			continue
		}
		bars = append(bars, b)
	}
	return bars, enriched, nil
}

func parseBarRow(row []string, cols map[string]int, enriched bool) (Bar, error) {
	var (
		b   Bar
		err error
	)

	if i, ok := cols["time"]; ok && i < len(row) {
		if b.Time, err = parseTime(row[i]); err != nil {
			return b, err
		}
	}

	fields := []struct {
		name string
		dst  *float64
	}{
		{"open", &b.Open},
		{"high", &b.High},
		{"low", &b.Low},
		{"close", &b.Close},
		{"volume", &b.Volume},
		{"ema50", &b.EMA50},
		{"ema200", &b.EMA200},
		{"rsi14", &b.RSI14},
		{"atr14", &b.ATR14},
	}
	for _, fd := range fields {
		*fd.dst = math.NaN()
		i, ok := cols[fd.name]
		if !ok || i >= len(row) {
			continue
		}
		if *fd.dst, err = parseFloat(row[i]); err != nil {
			return b, fmt.Errorf("bad %s %q: %w", fd.name, row[i], err)
		}
	}
	if math.IsNaN(b.Volume) {
		b.Volume = 0
	}
	if !enriched {
		b.EMA50, b.EMA200, b.RSI14, b.ATR14 = math.NaN(), math.NaN(), math.NaN(), math.NaN()
	}
	return b, nil
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}
