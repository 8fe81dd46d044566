package feature

import (
	"errors"
	"fmt"
	"math"

	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"github.com/Jozo132/modeller-sub001/pkg/kernel"
	"github.com/Jozo132/modeller-sub001/pkg/sketch"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	errSketchMissing    = errors.New("sketch not found or errored")
	errNoClosedProfiles = errors.New("no closed profiles")
)

// execute dispatches on the feature kind.
func (t *Tree) execute(f *Feature, index int) (*Result, error) {
	switch d := f.Data.(type) {
	case *SketchData:
		return t.executeSketch(d)
	case *ExtrudeData:
		return t.executeExtrude(d, index)
	case *RevolveData:
		return t.executeRevolve(d, index)
	default:
		return nil, fmt.Errorf("unsupported feature data %T", f.Data)
	}
}

func (t *Tree) executeSketch(d *SketchData) (*Result, error) {
	if d.Sketch == nil {
		return nil, errors.New("sketch feature has no sketch")
	}
	converged := true
	if d.Sketch.HasConstraints() {
		converged = d.Sketch.Scene.Solve(t.solve).Converged
	}
	return &Result{
		Type:      ResultSketch,
		Profiles:  d.Sketch.Profiles(),
		Plane:     d.Plane,
		Converged: converged,
	}, nil
}

// closedProfiles resolves the referenced sketch result and returns its
// closed profiles, each wound counter-clockwise.
func (t *Tree) closedProfiles(sketchID ID) (*Result, [][]geom.Vec2, error) {
	sr := t.results[sketchID]
	if !sr.OK() || sr.Type != ResultSketch {
		return nil, nil, errSketchMissing
	}
	closed := lo.Filter(sr.Profiles, func(p sketch.Profile, _ int) bool { return p.Closed && len(p.Ring()) >= 3 })
	if len(closed) == 0 {
		return nil, nil, errNoClosedProfiles
	}
	loops := lo.Map(closed, func(p sketch.Profile, _ int) []geom.Vec2 {
		ring := p.Ring()
		if geom.SignedArea(ring) < 0 {
			return geom.Reverse2(ring)
		}
		return append([]geom.Vec2(nil), ring...)
	})
	return sr, loops, nil
}

func (t *Tree) executeExtrude(d *ExtrudeData, index int) (*Result, error) {
	sr, loops, err := t.closedProfiles(d.SketchFeatureID)
	if err != nil {
		return nil, err
	}
	v := r3.Scale(d.Distance*d.direction(), sr.Plane.Normal)
	var offset geom.Vec3
	if d.Symmetric {
		offset = r3.Scale(-0.5, v)
	}
	m := &geom.Mesh{}
	for _, loop := range loops {
		m.Append(extrudeLoop(sr.Plane, loop, offset, v))
	}
	m.Orient()
	return t.combine(m, d.Operation, index), nil
}

// extrudeLoop builds a prism from a counter-clockwise loop: a bottom face
// facing against the plane normal, a top face, and one quad per edge.
func extrudeLoop(p geom.Plane, loop []geom.Vec2, offset, v geom.Vec3) *geom.Mesh {
	n := len(loop)
	bottom := make([]geom.Vec3, n)
	top := make([]geom.Vec3, n)
	for i, q := range loop {
		bottom[i] = r3.Add(p.ToWorld(q.X, q.Y), offset)
		top[i] = r3.Add(bottom[i], v)
	}
	m := &geom.Mesh{Vertices: append(append([]geom.Vec3(nil), bottom...), top...)}
	m.Faces = append(m.Faces,
		geom.Face{Vertices: geom.Reverse3(bottom), Normal: r3.Scale(-1, p.Normal)},
		geom.Face{Vertices: append([]geom.Vec3(nil), top...), Normal: p.Normal},
	)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		m.Faces = append(m.Faces, geom.Face{
			Vertices: []geom.Vec3{bottom[i], bottom[j], top[j], top[i]},
			Normal:   geom.Normal(bottom[i], bottom[j], top[j]),
		})
		m.Edges = append(m.Edges,
			geom.Edge{A: bottom[i], B: bottom[j]},
			geom.Edge{A: top[i], B: top[j]},
			geom.Edge{A: bottom[i], B: top[i]},
		)
	}
	return m
}

func (t *Tree) executeRevolve(d *RevolveData, index int) (*Result, error) {
	sr, loops, err := t.closedProfiles(d.SketchFeatureID)
	if err != nil {
		return nil, err
	}
	m := &geom.Mesh{}
	for _, loop := range loops {
		m.Append(revolveLoop(sr.Plane, loop, d.angle(), d.segments(), d.Axis, !d.fullTurn()))
	}
	m.Orient()
	return t.combine(m, d.Operation, index), nil
}

// revolveLoop sweeps a loop through angle in segments steps. Each loop
// point (rho, h) maps to origin + rho*cos(a)*radial + h*axis +
// rho*sin(a)*normal, where axis and radial are the plane's in-plane axes
// chosen by ax.
func revolveLoop(p geom.Plane, loop []geom.Vec2, angle float64, segments int, ax Axis, caps bool) *geom.Mesh {
	radial, axis := p.XAxis, p.YAxis
	coords := func(q geom.Vec2) (rho, h float64) { return q.X, q.Y }
	if ax == AxisX {
		radial, axis = p.YAxis, p.XAxis
		coords = func(q geom.Vec2) (rho, h float64) { return q.Y, q.X }
	}
	n := len(loop)
	rings := make([][]geom.Vec3, segments+1)
	m := &geom.Mesh{}
	for i := 0; i <= segments; i++ {
		theta := float64(i) * angle / float64(segments)
		c, s := math.Cos(theta), math.Sin(theta)
		ring := make([]geom.Vec3, n)
		for j, q := range loop {
			rho, h := coords(q)
			w := r3.Add(p.Origin, r3.Scale(rho*c, radial))
			w = r3.Add(w, r3.Scale(h, axis))
			ring[j] = r3.Add(w, r3.Scale(rho*s, p.Normal))
		}
		rings[i] = ring
		m.Vertices = append(m.Vertices, ring...)
	}
	for i := 0; i < segments; i++ {
		a, b := rings[i], rings[i+1]
		for j := 0; j < n; j++ {
			k := (j + 1) % n
			if f, ok := face(a[j], a[k], b[k], b[j]); ok {
				m.Faces = append(m.Faces, f)
			}
			m.Edges = append(m.Edges, geom.Edge{A: a[j], B: b[j]})
		}
	}
	if caps {
		// The start ring faces against the sweep; the end ring with it.
		if f, ok := face(geom.Reverse3(rings[0])...); ok {
			m.Faces = append(m.Faces, f)
		}
		if f, ok := face(rings[segments]...); ok {
			m.Faces = append(m.Faces, f)
		}
	}
	return m
}

// face builds a face after dropping consecutive duplicate vertices, which
// appear where a loop touches the revolve axis.
func face(vs ...geom.Vec3) (geom.Face, bool) {
	out := make([]geom.Vec3, 0, len(vs))
	for _, v := range vs {
		if len(out) > 0 && r3.Norm(r3.Sub(v, out[len(out)-1])) < geom.Epsilon {
			continue
		}
		out = append(out, v)
	}
	if len(out) > 1 && r3.Norm(r3.Sub(out[0], out[len(out)-1])) < geom.Epsilon {
		out = out[:len(out)-1]
	}
	if len(out) < 3 {
		return geom.Face{}, false
	}
	return geom.NewFace(out...), true
}

// combine applies op against the nearest upstream solid. A failed boolean
// falls back to the new mesh.
func (t *Tree) combine(m *geom.Mesh, op Operation, index int) *Result {
	if op == OpNew {
		return solidResult(m)
	}
	prev := t.previousSolid(index)
	if prev == nil {
		return solidResult(m)
	}
	kop, ok := kernelOp(op)
	if !ok {
		t.log().Warn().Str("operation", op.String()).Msg("unknown boolean operation, keeping new solid")
		return solidResult(m)
	}
	out, err := t.kernel.Boolean(prev.Mesh, m, kop)
	if err != nil {
		t.log().Warn().Err(err).Str("kernel", t.kernel.Name()).Str("operation", op.String()).
			Msg("boolean operation failed, keeping new solid")
		return solidResult(m)
	}
	return solidResult(out)
}

func kernelOp(op Operation) (kernel.Op, bool) {
	switch op {
	case OpAdd:
		return kernel.OpUnion, true
	case OpSubtract:
		return kernel.OpSubtract, true
	case OpIntersect:
		return kernel.OpIntersect, true
	default:
		return 0, false
	}
}
