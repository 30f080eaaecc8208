package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/rustyeddy/gptrader/gp"
)

// Artifact file names inside an output directory.
const (
	TreeFile = "best_tree.txt"
	MQLFile  = "gp_rule.mqh"
)

// Signal evaluates t on one set of inputs and maps the result the way the
// generated MQL5 function does: above the dead zone is 1, below its
// negative is -1, anything else (NaN included) is 0.
func Signal(t *gp.Node, in gp.Inputs, deadZone float64) (int, error) {
	prog, err := gp.Compile(t)
	if err != nil {
		return 0, err
	}
	v := prog.Eval(in)
	dz := math.Abs(deadZone)
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return 0, nil
	case v > dz:
		return 1, nil
	case v < -dz:
		return -1, nil
	}
	return 0, nil
}

// WriteTree writes t in tree notation to path.
func WriteTree(path string, t *gp.Node) error {
	if t == nil {
		return fmt.Errorf("%w: nil tree", ErrNotExportable)
	}
	if err := os.WriteFile(path, []byte(t.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteMQL renders t and writes it to path.
func WriteMQL(path string, t *gp.Node, o Options) error {
	src, err := MQL(t, o)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Paths are the artifact locations written by WriteAll.
type Paths struct {
	Tree string
	MQL  string
}

// WriteAll writes both artifacts into dir, creating it when needed.
func WriteAll(dir string, t *gp.Node, o Options) (Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create %s: %w", dir, err)
	}
	p := Paths{
		Tree: filepath.Join(dir, TreeFile),
		MQL:  filepath.Join(dir, MQLFile),
	}
	// render first so a bad tree leaves no partial output
	if _, err := MQL(t, o); err != nil {
		return Paths{}, err
	}
	if err := WriteTree(p.Tree, t); err != nil {
		return Paths{}, err
	}
	if err := WriteMQL(p.MQL, t, o); err != nil {
		return Paths{}, err
	}
	return p, nil
}
