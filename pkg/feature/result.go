package feature

import (
	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"github.com/Jozo132/modeller-sub001/pkg/sketch"
)

// ResultType classifies a feature's output.
type ResultType int

const (
	ResultNone   ResultType = iota // suppressed or errored
	ResultSketch                   // profiles on a plane
	ResultSolid                    // closed mesh
)

func (t ResultType) String() string {
	switch t {
	case ResultSketch:
		return "sketch"
	case ResultSolid:
		return "solid"
	default:
		return "none"
	}
}

// Result is the cached output of one feature execution. Exactly one of
// Suppressed, a non-empty Error, or a typed payload is meaningful.
type Result struct {
	Type       ResultType
	Suppressed bool
	Error      string

	// Sketch payload.
	Profiles  []sketch.Profile
	Plane     geom.Plane
	Converged bool

	// Solid payload.
	Mesh   *geom.Mesh
	Volume float64
	Bounds geom.Box
}

// OK reports whether the result carries a usable payload.
func (r *Result) OK() bool {
	return r != nil && !r.Suppressed && r.Error == ""
}

// IsSolid reports whether the result is a usable solid.
func (r *Result) IsSolid() bool {
	return r.OK() && r.Type == ResultSolid
}

// Loops returns the closed profiles lifted into world space, without the
// closing duplicate.
func (r *Result) Loops() [][]geom.Vec3 {
	if r == nil || r.Type != ResultSketch {
		return nil
	}
	var out [][]geom.Vec3
	for _, p := range r.Profiles {
		if !p.Closed {
			continue
		}
		out = append(out, lift(r.Plane, p.Ring()))
	}
	return out
}

func solidResult(m *geom.Mesh) *Result {
	return &Result{Type: ResultSolid, Mesh: m, Volume: m.Volume(), Bounds: m.Bounds()}
}

func lift(p geom.Plane, pts []geom.Vec2) []geom.Vec3 {
	out := make([]geom.Vec3, len(pts))
	for i, q := range pts {
		out[i] = p.ToWorld(q.X, q.Y)
	}
	return out
}
