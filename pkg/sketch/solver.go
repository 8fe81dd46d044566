package sketch

import (
	"math"
	"time"
)

// SolveOptions tunes the iterative solver. Zero fields take the defaults.
type SolveOptions struct {
	MaxIter    int     `yaml:"max_iter" json:"maxIter"`
	Tolerance  float64 `yaml:"tolerance" json:"tolerance"`
	Relaxation float64 `yaml:"relaxation" json:"relaxation"`
}

// skipResidual is the magnitude below which a component is not projected.
const skipResidual = 1e-12

const (
	DefaultMaxIter    = 500
	DefaultTolerance  = 1e-4
	DefaultRelaxation = 0.9
)

// DefaultSolveOptions returns the solver defaults.
func DefaultSolveOptions() SolveOptions {
	return SolveOptions{MaxIter: DefaultMaxIter, Tolerance: DefaultTolerance, Relaxation: DefaultRelaxation}
}

func (o SolveOptions) withDefaults() SolveOptions {
	if o.MaxIter <= 0 {
		o.MaxIter = DefaultMaxIter
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.Relaxation <= 0 || o.Relaxation > 1 {
		o.Relaxation = DefaultRelaxation
	}
	return o
}

// SolveResult reports the outcome of Solve.
type SolveResult struct {
	Converged  bool    `json:"converged"`
	Iterations int     `json:"iterations"`
	Error      float64 `json:"error"` // sum of squared residuals at exit
	// Unresolved lists constraints whose value could not be resolved.
	// They contribute no residual, so they never block convergence.
	Unresolved []ID `json:"unresolved,omitempty"`
}

// Solve moves points and radii until every constraint residual is below
// the tolerance or the iteration budget runs out. Each iteration projects
// constraints one at a time in insertion order, moving each free variable
// along its gradient in proportion to its weight; fixed points have weight
// zero. Conflicting constraints never panic: the solver stops with
// Converged false.
func (s *Scene) Solve(opts SolveOptions) SolveResult {
	opts = opts.withDefaults()
	start := time.Now()
	s.RefreshDimensions()

	res := SolveResult{}
	for _, c := range s.constraints {
		if _, ok := s.resolveConstraintValue(c); !ok {
			res.Unresolved = append(res.Unresolved, c.ID)
			s.log().Warn().Int64("constraint", int64(c.ID)).Str("kind", c.Kind.String()).
				Str("value", c.Value.String()).Msg("unresolved constraint value; skipping")
		}
	}

	tol2 := opts.Tolerance * opts.Tolerance
	for iter := 1; iter <= opts.MaxIter; iter++ {
		res.Iterations = iter
		total := 0.0
		for _, c := range s.constraints {
			for _, t := range s.terms(c) {
				total += t.r * t.r
				if math.Abs(t.r) < skipResidual {
					continue
				}
				s.project(t, opts.Relaxation)
			}
		}
		res.Error = total
		if total < tol2 {
			res.Converged = true
			break
		}
	}

	s.RefreshDimensions()
	s.last = res
	s.log().Debug().Bool("converged", res.Converged).Int("iterations", res.Iterations).
		Float64("error", res.Error).Dur("elapsed", time.Since(start)).Msg("sketch solved")
	return res
}

// project applies one Gauss-Seidel correction for a residual component.
func (s *Scene) project(t term, omega float64) {
	var denom float64
	for _, g := range t.grads {
		denom += s.weight(g) * g.g * g.g
	}
	if denom < 1e-18 {
		return
	}
	k := -omega * t.r / denom
	for _, g := range t.grads {
		w := s.weight(g)
		if w == 0 {
			continue
		}
		delta := k * w * g.g
		switch g.axis {
		case axisX:
			if p, ok := s.Point(g.ref); ok {
				p.X += delta
			}
		case axisY:
			if p, ok := s.Point(g.ref); ok {
				p.Y += delta
			}
		case axisRadius:
			if r, ok := s.radiusOf(g.ref); ok {
				s.setRadius(g.ref, r+delta)
			}
		}
	}
}

func (s *Scene) weight(g grad) float64 {
	if g.axis == axisRadius {
		return 1
	}
	if p, ok := s.Point(g.ref); ok && !p.Fixed {
		return 1
	}
	return 0
}

// IsConverged reports whether the most recent Solve converged.
func (s *Scene) IsConverged() bool { return s.last.Converged }

// LastSolve returns the result of the most recent Solve.
func (s *Scene) LastSolve() SolveResult { return s.last }

// TotalError returns the sum of squared residuals over all constraints.
func (s *Scene) TotalError() float64 {
	var total float64
	for _, c := range s.constraints {
		for _, t := range s.terms(c) {
			total += t.r * t.r
		}
	}
	return total
}
