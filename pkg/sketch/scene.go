package sketch

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/Jozo132/modeller-sub001/pkg/formula"
	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"github.com/Jozo132/modeller-sub001/pkg/logging"
	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultMergeTolerance is the distance within which AddOptions.Merge
// reuses an existing point.
const DefaultMergeTolerance = 1e-4

// minRadius keeps circles and arcs from collapsing to zero.
const minRadius = 1e-9

// Scene is a 2D sketch: shared points, shapes referencing them, and the
// constraints between them. A Scene is not safe for concurrent use.
type Scene struct {
	nextID ID

	points      []*Point
	segments    []*Segment
	circles     []*Circle
	arcs        []*Arc
	texts       []*Text
	dimensions  []*Dimension
	constraints []*Constraint

	index map[ID]any

	vars   *formula.Table
	logger *zerolog.Logger
	last   SolveResult
}

// SceneOption configures a Scene.
type SceneOption func(*Scene)

// WithVariables resolves constraint expressions through t instead of the
// process-wide table.
func WithVariables(t *formula.Table) SceneOption {
	return func(s *Scene) { s.vars = t }
}

// WithLogger sets the scene's logger.
func WithLogger(l *zerolog.Logger) SceneOption {
	return func(s *Scene) { s.logger = l }
}

// NewScene returns an empty scene.
func NewScene(opts ...SceneOption) *Scene {
	s := &Scene{nextID: 1, index: make(map[ID]any)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Variables returns the table constraint expressions resolve against.
func (s *Scene) Variables() *formula.Table {
	if s.vars == nil {
		return formula.Global()
	}
	return s.vars
}

// SetVariables replaces the scene's variable table. nil selects the global
// table.
func (s *Scene) SetVariables(t *formula.Table) { s.vars = t }

func (s *Scene) log() *zerolog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.Logger()
}

func (s *Scene) resolve(v Value) (float64, bool) {
	if !v.IsExpr() {
		return v.Num, true
	}
	f, err := s.Variables().Resolve(v.Expr)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (s *Scene) alloc() ID {
	id := s.nextID
	s.nextID++
	return id
}

// AddOptions configures shape factories.
type AddOptions struct {
	// Merge reuses existing points within MergeTolerance of the requested
	// coordinates instead of creating new ones.
	Merge            bool
	MergeTolerance   float64
	Layer            string
	Color            string
	Construction     bool
	ConstructionDash string
	ConstructionType ConstructionType
}

func (o AddOptions) style() Style {
	return Style{Layer: o.Layer, Color: o.Color, Visible: true}
}

func (o AddOptions) tolerance() float64 {
	if o.MergeTolerance > 0 {
		return o.MergeTolerance
	}
	return DefaultMergeTolerance
}

// AddPoint creates a free point.
func (s *Scene) AddPoint(x, y float64) *Point {
	p := &Point{ID: s.alloc(), X: x, Y: y}
	s.points = append(s.points, p)
	s.index[p.ID] = p
	return p
}

func (s *Scene) pointFor(x, y float64, o AddOptions) *Point {
	if o.Merge {
		if p, ok := s.FindClosestPoint(x, y, o.tolerance()); ok {
			return p
		}
	}
	return s.AddPoint(x, y)
}

// AddSegment creates a segment from (x1,y1) to (x2,y2). With Merge set the
// ends snap to existing points; a segment never gets the same point at both
// ends.
func (s *Scene) AddSegment(x1, y1, x2, y2 float64, o AddOptions) *Segment {
	p1 := s.pointFor(x1, y1, o)
	p2 := s.pointFor(x2, y2, o)
	if p1 == p2 {
		p2 = s.AddPoint(x2, y2)
	}
	return s.addSegment(p1.ID, p2.ID, o)
}

// ConnectPoints creates a segment between two existing points.
func (s *Scene) ConnectPoints(p1, p2 ID, o AddOptions) (*Segment, error) {
	if p1 == p2 {
		return nil, ErrSamePoint
	}
	for _, id := range []ID{p1, p2} {
		if _, ok := s.Point(id); !ok {
			return nil, fmt.Errorf("point %d: %w", id, ErrUnknownPrimitive)
		}
	}
	return s.addSegment(p1, p2, o), nil
}

func (s *Scene) addSegment(p1, p2 ID, o AddOptions) *Segment {
	g := &Segment{
		ID:               s.alloc(),
		P1:               p1,
		P2:               p2,
		Construction:     o.Construction,
		ConstructionDash: o.ConstructionDash,
		ConstructionType: o.ConstructionType,
		Style:            o.style(),
	}
	s.segments = append(s.segments, g)
	s.index[g.ID] = g
	return g
}

func clampRadius(r float64) float64 {
	return math.Max(math.Abs(r), minRadius)
}

// AddCircle creates a circle. The radius is stored as its absolute value.
func (s *Scene) AddCircle(cx, cy, r float64, o AddOptions) *Circle {
	ctr := s.pointFor(cx, cy, o)
	c := &Circle{
		ID:               s.alloc(),
		Center:           ctr.ID,
		Radius:           clampRadius(r),
		Construction:     o.Construction,
		ConstructionDash: o.ConstructionDash,
		Style:            o.style(),
	}
	s.circles = append(s.circles, c)
	s.index[c.ID] = c
	return c
}

// AddArc creates a counter-clockwise arc; angles are in radians.
func (s *Scene) AddArc(cx, cy, r, start, end float64, o AddOptions) *Arc {
	ctr := s.pointFor(cx, cy, o)
	a := &Arc{
		ID:           s.alloc(),
		Center:       ctr.ID,
		Radius:       clampRadius(r),
		StartAngle:   start,
		EndAngle:     end,
		Construction: o.Construction,
		Style:        o.style(),
	}
	s.arcs = append(s.arcs, a)
	s.index[a.ID] = a
	return a
}

// AddText creates a text annotation.
func (s *Scene) AddText(x, y float64, content string, height float64, o AddOptions) *Text {
	t := &Text{ID: s.alloc(), X: x, Y: y, Content: content, Height: height, Style: o.style()}
	s.texts = append(s.texts, t)
	s.index[t.ID] = t
	return t
}

// AddDimension creates a dimension between the anchor points. When opts
// marks it as a constraint a KindDimension constraint is registered too and
// the initial value is the current measurement.
func (s *Scene) AddDimension(x1, y1, x2, y2 float64, t DimType, opts DimensionOptions) (*Dimension, error) {
	for _, src := range []ID{opts.SourceA, opts.SourceB} {
		if src == 0 {
			continue
		}
		if _, ok := s.index[src]; !ok {
			return nil, fmt.Errorf("dimension source %d: %w", src, ErrUnknownPrimitive)
		}
	}
	st := opts.Style
	st.Visible = true
	d := &Dimension{
		ID:           s.alloc(),
		X1:           x1,
		Y1:           y1,
		X2:           x2,
		Y2:           y2,
		Offset:       opts.Offset,
		DimType:      t,
		SourceA:      opts.SourceA,
		SourceB:      opts.SourceB,
		DisplayMode:  opts.DisplayMode,
		Formula:      opts.Formula,
		VariableName: opts.VariableName,
		Style:        st,
	}
	s.dimensions = append(s.dimensions, d)
	s.index[d.ID] = d
	if v, ok := s.Measure(d); ok {
		d.Value = v
	}
	if opts.IsConstraint {
		if err := s.SetDimensionConstraint(d.ID, true); err != nil {
			s.removeFromSlices(d.ID)
			return nil, err
		}
	}
	s.RefreshDimensions()
	return d, nil
}

// SetDimensionConstraint toggles whether a dimension drives geometry.
func (s *Scene) SetDimensionConstraint(id ID, on bool) error {
	d, ok := s.Dimension(id)
	if !ok {
		return fmt.Errorf("dimension %d: %w", id, ErrUnknownPrimitive)
	}
	if d.IsConstraint == on {
		return nil
	}
	if !on {
		d.IsConstraint = false
		s.removeConstraintsWhere(func(c *Constraint) bool {
			return c.Kind == KindDimension && c.Shapes[0] == id
		})
		return nil
	}
	c := &Constraint{Kind: KindDimension, Shapes: []ID{id}}
	if _, ok := s.dimensionConstraint(c); !ok && d.Formula == nil {
		return fmt.Errorf("sketch: dimension %d has no sources to constrain", id)
	}
	d.IsConstraint = true
	if _, err := s.AddConstraint(*c); err != nil {
		d.IsConstraint = false
		return err
	}
	return nil
}

// AddConstraint validates and registers c, assigning it a fresh ID. A
// fixed constraint without an anchor captures the point's position.
func (s *Scene) AddConstraint(c Constraint) (*Constraint, error) {
	cp := c.clone()
	cp.ID = 0
	if err := s.validateConstraint(cp); err != nil {
		return nil, err
	}
	if cp.Kind == KindFixed && cp.Anchor == nil {
		p, _ := s.Point(cp.Points[0])
		cp.Anchor = &Anchor{X: p.X, Y: p.Y}
	}
	cp.ID = s.alloc()
	s.constraints = append(s.constraints, cp)
	s.index[cp.ID] = cp
	return cp, nil
}

// Lookups.

func (s *Scene) Point(id ID) (*Point, bool) {
	p, ok := s.index[id].(*Point)
	return p, ok
}

func (s *Scene) Segment(id ID) (*Segment, bool) {
	g, ok := s.index[id].(*Segment)
	return g, ok
}

func (s *Scene) Circle(id ID) (*Circle, bool) {
	c, ok := s.index[id].(*Circle)
	return c, ok
}

func (s *Scene) Arc(id ID) (*Arc, bool) {
	a, ok := s.index[id].(*Arc)
	return a, ok
}

func (s *Scene) Dimension(id ID) (*Dimension, bool) {
	d, ok := s.index[id].(*Dimension)
	return d, ok
}

func (s *Scene) Constraint(id ID) (*Constraint, bool) {
	c, ok := s.index[id].(*Constraint)
	return c, ok
}

// Shape returns the non-point primitive with the given ID.
func (s *Scene) Shape(id ID) (Shape, bool) {
	sh, ok := s.index[id].(Shape)
	return sh, ok
}

func (s *Scene) Points() []*Point           { return s.points }
func (s *Scene) Segments() []*Segment       { return s.segments }
func (s *Scene) Circles() []*Circle         { return s.circles }
func (s *Scene) Arcs() []*Arc               { return s.arcs }
func (s *Scene) Texts() []*Text             { return s.texts }
func (s *Scene) Dimensions() []*Dimension   { return s.dimensions }
func (s *Scene) Constraints() []*Constraint { return s.constraints }

// Shapes returns every non-point primitive in ID order.
func (s *Scene) Shapes() []Shape {
	out := make([]Shape, 0, len(s.segments)+len(s.circles)+len(s.arcs)+len(s.texts)+len(s.dimensions))
	for _, g := range s.segments {
		out = append(out, g)
	}
	for _, c := range s.circles {
		out = append(out, c)
	}
	for _, a := range s.arcs {
		out = append(out, a)
	}
	for _, t := range s.texts {
		out = append(out, t)
	}
	for _, d := range s.dimensions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShapeID() < out[j].ShapeID() })
	return out
}

// Len returns the number of primitives, constraints included.
func (s *Scene) Len() int { return len(s.index) }

func (s *Scene) segmentPoints(g *Segment) (p1, p2 *Point, ok bool) {
	p1, ok1 := s.Point(g.P1)
	p2, ok2 := s.Point(g.P2)
	return p1, p2, ok1 && ok2
}

func (s *Scene) segmentEnds(g *Segment) (a, b geom.Vec2, ok bool) {
	p1, p2, ok := s.segmentPoints(g)
	if !ok {
		return geom.Vec2{}, geom.Vec2{}, false
	}
	return p1.Vec(), p2.Vec(), true
}

func (s *Scene) segmentEndsByID(id ID) (a, b geom.Vec2, ok bool) {
	g, ok := s.Segment(id)
	if !ok {
		return geom.Vec2{}, geom.Vec2{}, false
	}
	return s.segmentEnds(g)
}

// circleOf returns the center and radius of a circle or arc.
func (s *Scene) circleOf(id ID) (*Point, float64, bool) {
	var center ID
	var r float64
	switch sh := s.index[id].(type) {
	case *Circle:
		center, r = sh.Center, sh.Radius
	case *Arc:
		center, r = sh.Center, sh.Radius
	default:
		return nil, 0, false
	}
	p, ok := s.Point(center)
	return p, r, ok
}

func (s *Scene) radiusOf(id ID) (float64, bool) {
	switch sh := s.index[id].(type) {
	case *Circle:
		return sh.Radius, true
	case *Arc:
		return sh.Radius, true
	}
	return 0, false
}

func (s *Scene) setRadius(id ID, r float64) {
	switch sh := s.index[id].(type) {
	case *Circle:
		sh.Radius = clampRadius(r)
	case *Arc:
		sh.Radius = clampRadius(r)
	}
}

// Queries.

// ConstraintsOn returns the constraints naming id as an operand.
func (s *Scene) ConstraintsOn(id ID) []*Constraint {
	return lo.Filter(s.constraints, func(c *Constraint, _ int) bool {
		return lo.Contains(c.References(), id)
	})
}

// ShapesUsingPoint returns the shapes referencing point id, in ID order.
func (s *Scene) ShapesUsingPoint(id ID) []Shape {
	return lo.Filter(s.Shapes(), func(sh Shape, _ int) bool {
		return lo.Contains(sh.PointRefs(), id)
	})
}

// FindClosestPoint returns the point nearest (x, y) within tol. Ties go to
// the lowest ID.
func (s *Scene) FindClosestPoint(x, y, tol float64) (*Point, bool) {
	var best *Point
	bestD := math.Inf(1)
	for _, p := range s.points {
		d := math.Hypot(p.X-x, p.Y-y)
		if d <= tol && d < bestD {
			best, bestD = p, d
		}
	}
	return best, best != nil
}

// FindClosestShape returns the shape whose outline is nearest (x, y) within
// tol. Ties go to the lowest ID.
func (s *Scene) FindClosestShape(x, y, tol float64) (Shape, bool) {
	q := geom.Vec2{X: x, Y: y}
	var best Shape
	bestD := math.Inf(1)
	for _, sh := range s.Shapes() {
		d := sh.distanceTo(s, q)
		if d <= tol && d < bestD {
			best, bestD = sh, d
		}
	}
	return best, best != nil
}

// Removal.

// RemovePrimitive deletes a primitive. Removing an unknown ID is a no-op.
// A point still referenced by a shape is not removed. Removing a shape also
// removes points only it referenced. Constraints naming any removed
// primitive are removed with it, and dimensions sourced from it stop
// constraining.
func (s *Scene) RemovePrimitive(id ID) error {
	switch v := s.index[id].(type) {
	case nil:
		return nil
	case *Constraint:
		s.removeConstraintsWhere(func(c *Constraint) bool { return c.ID == id })
		if v.Kind == KindDimension {
			if d, ok := s.Dimension(v.Shapes[0]); ok {
				d.IsConstraint = false
			}
		}
		return nil
	case *Point:
		if len(s.ShapesUsingPoint(id)) > 0 {
			return fmt.Errorf("point %d: %w", id, ErrPointInUse)
		}
		s.dropAll([]ID{id})
		return nil
	case Shape:
		removed := []ID{id}
		refs := v.PointRefs()
		s.removeFromSlices(id)
		for _, p := range refs {
			if len(s.ShapesUsingPoint(p)) == 0 {
				removed = append(removed, p)
			}
		}
		s.dropAll(removed)
		return nil
	}
	return nil
}

// dropAll removes ids from the scene along with dependent constraints.
func (s *Scene) dropAll(ids []ID) {
	for _, id := range ids {
		s.removeFromSlices(id)
	}
	s.removeConstraintsWhere(func(c *Constraint) bool {
		return lo.Some(c.References(), ids)
	})
	for _, d := range s.dimensions {
		if lo.Contains(ids, d.SourceA) {
			d.SourceA = 0
		}
		if lo.Contains(ids, d.SourceB) {
			d.SourceB = 0
		}
		if d.IsConstraint && d.Formula == nil {
			if _, ok := s.dimensionConstraint(&Constraint{Kind: KindDimension, Shapes: []ID{d.ID}}); !ok {
				_ = s.SetDimensionConstraint(d.ID, false)
			}
		}
	}
}

func (s *Scene) removeConstraintsWhere(pred func(c *Constraint) bool) {
	s.constraints = lo.Reject(s.constraints, func(c *Constraint, _ int) bool {
		if pred(c) {
			delete(s.index, c.ID)
			return true
		}
		return false
	})
}

func (s *Scene) removeFromSlices(id ID) {
	switch s.index[id].(type) {
	case *Point:
		s.points = lo.Reject(s.points, func(p *Point, _ int) bool { return p.ID == id })
	case *Segment:
		s.segments = lo.Reject(s.segments, func(g *Segment, _ int) bool { return g.ID == id })
	case *Circle:
		s.circles = lo.Reject(s.circles, func(c *Circle, _ int) bool { return c.ID == id })
	case *Arc:
		s.arcs = lo.Reject(s.arcs, func(a *Arc, _ int) bool { return a.ID == id })
	case *Text:
		s.texts = lo.Reject(s.texts, func(t *Text, _ int) bool { return t.ID == id })
	case *Dimension:
		s.dimensions = lo.Reject(s.dimensions, func(d *Dimension, _ int) bool { return d.ID == id })
	case *Constraint:
		s.constraints = lo.Reject(s.constraints, func(c *Constraint, _ int) bool { return c.ID == id })
	}
	delete(s.index, id)
}

// GarbageCollectPoints removes points referenced by no shape, constraint
// or dimension and returns how many were removed.
func (s *Scene) GarbageCollectPoints() int {
	used := make(map[ID]bool)
	for _, sh := range s.Shapes() {
		for _, p := range sh.PointRefs() {
			used[p] = true
		}
	}
	for _, c := range s.constraints {
		for _, p := range c.Points {
			used[p] = true
		}
	}
	for _, d := range s.dimensions {
		used[d.SourceA] = true
		used[d.SourceB] = true
	}
	var n int
	for _, p := range append([]*Point(nil), s.points...) {
		if !used[p.ID] {
			s.removeFromSlices(p.ID)
			n++
		}
	}
	return n
}

// MergePoints rewires every reference to drop onto keep and removes drop.
// keep becomes fixed if either point was. Coincident constraints between
// the two become degenerate and are removed. The merge is refused with
// ErrSamePoint when a segment joins the two points.
func (s *Scene) MergePoints(keep, drop ID) error {
	if keep == drop {
		return nil
	}
	kp, ok := s.Point(keep)
	if !ok {
		return fmt.Errorf("point %d: %w", keep, ErrUnknownPrimitive)
	}
	dp, ok := s.Point(drop)
	if !ok {
		return fmt.Errorf("point %d: %w", drop, ErrUnknownPrimitive)
	}
	for _, g := range s.segments {
		if (g.P1 == keep && g.P2 == drop) || (g.P1 == drop && g.P2 == keep) {
			return fmt.Errorf("segment %d: %w", g.ID, ErrSamePoint)
		}
	}
	for _, sh := range s.Shapes() {
		sh.rewire(drop, keep)
	}
	for _, c := range s.constraints {
		for i, p := range c.Points {
			if p == drop {
				c.Points[i] = keep
			}
		}
	}
	kp.Fixed = kp.Fixed || dp.Fixed
	s.removeFromSlices(drop)
	s.removeConstraintsWhere(func(c *Constraint) bool {
		return c.Kind == KindCoincident && c.Points[0] == c.Points[1]
	})
	return nil
}

// DisconnectPoint gives every shape but the first its own copy of the
// point, returning the new points. A point used by at most one shape is
// left alone.
func (s *Scene) DisconnectPoint(id ID) ([]*Point, error) {
	p, ok := s.Point(id)
	if !ok {
		return nil, fmt.Errorf("point %d: %w", id, ErrUnknownPrimitive)
	}
	users := s.ShapesUsingPoint(id)
	if len(users) < 2 {
		return nil, nil
	}
	out := make([]*Point, 0, len(users)-1)
	for _, sh := range users[1:] {
		np := s.AddPoint(p.X, p.Y)
		np.Fixed = p.Fixed
		sh.rewire(id, np.ID)
		out = append(out, np)
	}
	return out, nil
}

// Snapshot captures the solver variables: point positions and radii.
type Snapshot struct {
	Points map[ID]geom.Vec2
	Radii  map[ID]float64
}

// Snapshot records the current geometry for a later Restore.
func (s *Scene) Snapshot() Snapshot {
	snap := Snapshot{Points: make(map[ID]geom.Vec2, len(s.points)), Radii: make(map[ID]float64)}
	for _, p := range s.points {
		snap.Points[p.ID] = p.Vec()
	}
	for _, c := range s.circles {
		snap.Radii[c.ID] = c.Radius
	}
	for _, a := range s.arcs {
		snap.Radii[a.ID] = a.Radius
	}
	return snap
}

// Restore moves points and radii back to a snapshot. Primitives created
// after the snapshot are left as they are.
func (s *Scene) Restore(snap Snapshot) {
	for id, v := range snap.Points {
		if p, ok := s.Point(id); ok {
			p.X, p.Y = v.X, v.Y
		}
	}
	for id, r := range snap.Radii {
		s.setRadius(id, r)
	}
}

// Bounds returns the 2D bounding box of all points and circle extents.
func (s *Scene) Bounds() (lower, upper geom.Vec2, ok bool) {
	lower = geom.Vec2{X: math.Inf(1), Y: math.Inf(1)}
	upper = geom.Vec2{X: math.Inf(-1), Y: math.Inf(-1)}
	grow := func(v geom.Vec2) {
		lower = geom.Vec2{X: math.Min(lower.X, v.X), Y: math.Min(lower.Y, v.Y)}
		upper = geom.Vec2{X: math.Max(upper.X, v.X), Y: math.Max(upper.Y, v.Y)}
		ok = true
	}
	for _, p := range s.points {
		grow(p.Vec())
	}
	for _, c := range s.circles {
		if ctr, found := s.Point(c.Center); found {
			r := geom.Vec2{X: c.Radius, Y: c.Radius}
			grow(r2.Sub(ctr.Vec(), r))
			grow(r2.Add(ctr.Vec(), r))
		}
	}
	return lower, upper, ok
}
