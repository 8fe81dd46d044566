// Package config loads the CLI configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Jozo132/modeller-sub001/pkg/kernel"
	"github.com/Jozo132/modeller-sub001/pkg/kernel/csg"
	"github.com/Jozo132/modeller-sub001/pkg/kernel/sdfx"
	"github.com/Jozo132/modeller-sub001/pkg/sketch"
	"gopkg.in/yaml.v3"
)

// Config is the root of the YAML document.
type Config struct {
	Solver SolverConfig `yaml:"solver"`
	Kernel KernelConfig `yaml:"kernel"`
	Output OutputConfig `yaml:"output"`
	Eval   EvalConfig   `yaml:"eval"`
}

// SolverConfig tunes the sketch constraint solver.
type SolverConfig struct {
	MaxIter    int     `yaml:"max_iter"`
	Tolerance  float64 `yaml:"tolerance"`
	Relaxation float64 `yaml:"relaxation"`
}

// KernelConfig selects the boolean kernel.
type KernelConfig struct {
	Name      string `yaml:"name"`       // csg or sdfx
	MeshCells int    `yaml:"mesh_cells"` // sdfx marching cubes resolution
}

// OutputConfig controls exported files.
type OutputConfig struct {
	Units string `yaml:"units"` // mm, cm, m or in
}

// EvalConfig bounds script evaluation.
type EvalConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// unitScale maps output units to the factor applied to millimetres.
var unitScale = map[string]float64{
	"mm": 1,
	"cm": 0.1,
	"m":  0.001,
	"in": 1 / 25.4,
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Solver: SolverConfig{
			MaxIter:    sketch.DefaultMaxIter,
			Tolerance:  sketch.DefaultTolerance,
			Relaxation: sketch.DefaultRelaxation,
		},
		Kernel: KernelConfig{Name: csg.Name, MeshCells: sdfx.DefaultMeshCells},
		Output: OutputConfig{Units: "mm"},
		Eval:   EvalConfig{Timeout: 5 * time.Second},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default value; unknown keys are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and names.
func (c Config) Validate() error {
	var errs []error
	if c.Solver.MaxIter <= 0 {
		errs = append(errs, fmt.Errorf("solver.max_iter must be positive, got %d", c.Solver.MaxIter))
	}
	if c.Solver.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("solver.tolerance must be positive, got %g", c.Solver.Tolerance))
	}
	if c.Solver.Relaxation <= 0 || c.Solver.Relaxation > 1 {
		errs = append(errs, fmt.Errorf("solver.relaxation must be in (0, 1], got %g", c.Solver.Relaxation))
	}
	if c.Kernel.Name != csg.Name && c.Kernel.Name != sdfx.Name {
		errs = append(errs, fmt.Errorf("kernel.name must be %s or %s, got %q", csg.Name, sdfx.Name, c.Kernel.Name))
	}
	if c.Kernel.MeshCells < 8 {
		errs = append(errs, fmt.Errorf("kernel.mesh_cells must be at least 8, got %d", c.Kernel.MeshCells))
	}
	if _, ok := unitScale[c.Output.Units]; !ok {
		errs = append(errs, fmt.Errorf("output.units must be mm, cm, m or in, got %q", c.Output.Units))
	}
	if c.Eval.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("eval.timeout must be positive, got %s", c.Eval.Timeout))
	}
	return errors.Join(errs...)
}

// SolveOptions returns the solver section as solver options.
func (c Config) SolveOptions() sketch.SolveOptions {
	return sketch.SolveOptions{
		MaxIter:    c.Solver.MaxIter,
		Tolerance:  c.Solver.Tolerance,
		Relaxation: c.Solver.Relaxation,
	}
}

// NewKernel builds the configured boolean kernel.
func (c Config) NewKernel() (kernel.Kernel, error) {
	switch c.Kernel.Name {
	case csg.Name:
		return csg.New(), nil
	case sdfx.Name:
		return sdfx.New(sdfx.WithMeshCells(c.Kernel.MeshCells)), nil
	}
	return nil, fmt.Errorf("%w: %q", kernel.ErrUnknownKernel, c.Kernel.Name)
}

// UnitScale returns the factor converting millimetres to the output unit.
func (c Config) UnitScale() float64 {
	if s, ok := unitScale[c.Output.Units]; ok {
		return s
	}
	return 1
}
