package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Jozo132/modeller-sub001/pkg/kernel/csg"
	"github.com/Jozo132/modeller-sub001/pkg/kernel/sdfx"
	"github.com/Jozo132/modeller-sub001/pkg/sketch"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.SolveOptions() != sketch.DefaultSolveOptions() {
		t.Errorf("SolveOptions() = %+v, want %+v", cfg.SolveOptions(), sketch.DefaultSolveOptions())
	}
	k, err := cfg.NewKernel()
	if err != nil || k.Name() != csg.Name {
		t.Errorf("NewKernel() = %v, %v, want csg", k, err)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
solver:
  max_iter: 50
kernel:
  name: sdfx
  mesh_cells: 32
output:
  units: in
eval:
  timeout: 250ms
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Solver.MaxIter != 50 {
		t.Errorf("max_iter = %d, want 50", cfg.Solver.MaxIter)
	}
	if cfg.Solver.Tolerance != sketch.DefaultTolerance {
		t.Errorf("tolerance = %g, want default %g", cfg.Solver.Tolerance, sketch.DefaultTolerance)
	}
	if cfg.Eval.Timeout != 250*time.Millisecond {
		t.Errorf("timeout = %s, want 250ms", cfg.Eval.Timeout)
	}
	if got := cfg.UnitScale(); got != 1/25.4 {
		t.Errorf("UnitScale() = %g, want %g", got, 1/25.4)
	}
	k, err := cfg.NewKernel()
	if err != nil || k.Name() != sdfx.Name {
		t.Errorf("NewKernel() = %v, %v, want sdfx", k, err)
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil): %v", err)
	}
	if cfg != Default() {
		t.Errorf("empty document should give the defaults, got %+v", cfg)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown key", "solver:\n  iterations: 3\n", "iterations"},
		{"bad kernel", "kernel:\n  name: manifold\n", "kernel.name"},
		{"bad units", "output:\n  units: furlong\n", "output.units"},
		{"negative tolerance", "solver:\n  tolerance: -1\n", "solver.tolerance"},
		{"relaxation too large", "solver:\n  relaxation: 1.5\n", "solver.relaxation"},
		{"coarse mesh", "kernel:\n  mesh_cells: 2\n", "kernel.mesh_cells"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modeller.yaml")
	if err := os.WriteFile(path, []byte("output:\n  units: cm\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UnitScale() != 0.1 {
		t.Errorf("UnitScale() = %g, want 0.1", cfg.UnitScale())
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: err = %v, want ErrNotExist", err)
	}
}
