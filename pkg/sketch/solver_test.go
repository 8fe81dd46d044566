package sketch_test

import (
	"math"
	"testing"

	"github.com/Jozo132/modeller-sub001/pkg/formula"
	"github.com/Jozo132/modeller-sub001/pkg/sketch"
)

func mustConstrain(t *testing.T, s *sketch.Scene, c sketch.Constraint) *sketch.Constraint {
	t.Helper()
	out, err := s.AddConstraint(c)
	if err != nil {
		t.Fatalf("AddConstraint(%s): %v", c.Kind, err)
	}
	return out
}

func TestSolveCoincident(t *testing.T) {
	s := newScene()
	p0 := s.AddPoint(0, 0)
	p0.Fixed = true
	p1 := s.AddPoint(10, 5)
	mustConstrain(t, s, sketch.Coincident(p0.ID, p1.ID))

	res := s.Solve(sketch.DefaultSolveOptions())
	if !res.Converged {
		t.Fatalf("not converged: %+v", res)
	}
	if math.Abs(p1.X) > 1e-4 || math.Abs(p1.Y) > 1e-4 {
		t.Errorf("P1: got (%v,%v), want (0,0)", p1.X, p1.Y)
	}
	if p0.X != 0 || p0.Y != 0 {
		t.Errorf("fixed point moved to (%v,%v)", p0.X, p0.Y)
	}
	if !s.IsConverged() {
		t.Error("IsConverged should report the last solve")
	}
}

func TestSolveDistance(t *testing.T) {
	s := newScene()
	p0 := s.AddPoint(0, 0)
	p0.Fixed = true
	p1 := s.AddPoint(50, 0)
	mustConstrain(t, s, sketch.Distance(p0.ID, p1.ID, sketch.Literal(100)))

	s.Solve(sketch.SolveOptions{})
	if d := math.Hypot(p1.X, p1.Y); math.Abs(d-100) > 0.01 {
		t.Errorf("distance: got %v, want 100", d)
	}
}

func TestSolveConstraintKinds(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T, s *sketch.Scene) *sketch.Constraint
	}{
		{"horizontal", func(t *testing.T, s *sketch.Scene) *sketch.Constraint {
			g := s.AddSegment(0, 0, 10, 3, sketch.AddOptions{})
			return mustConstrain(t, s, sketch.Horizontal(g.ID))
		}},
		{"vertical", func(t *testing.T, s *sketch.Scene) *sketch.Constraint {
			g := s.AddSegment(0, 0, 2, 10, sketch.AddOptions{})
			return mustConstrain(t, s, sketch.Vertical(g.ID))
		}},
		{"length", func(t *testing.T, s *sketch.Scene) *sketch.Constraint {
			g := s.AddSegment(0, 0, 3, 4, sketch.AddOptions{})
			return mustConstrain(t, s, sketch.Length(g.ID, sketch.Literal(10)))
		}},
		{"parallel", func(t *testing.T, s *sketch.Scene) *sketch.Constraint {
			a := s.AddSegment(0, 0, 10, 0, sketch.AddOptions{})
			b := s.AddSegment(0, 5, 10, 8, sketch.AddOptions{})
			return mustConstrain(t, s, sketch.Parallel(a.ID, b.ID))
		}},
		{"perpendicular", func(t *testing.T, s *sketch.Scene) *sketch.Constraint {
			a := s.AddSegment(0, 0, 10, 0, sketch.AddOptions{})
			b := s.AddSegment(0, 0, 3, 10, sketch.AddOptions{})
			return mustConstrain(t, s, sketch.Perpendicular(a.ID, b.ID))
		}},
		{"angle", func(t *testing.T, s *sketch.Scene) *sketch.Constraint {
			a := s.AddSegment(0, 0, 10, 0, sketch.AddOptions{})
			b := s.AddSegment(0, 0, 10, 2, sketch.AddOptions{})
			return mustConstrain(t, s, sketch.Angle(a.ID, b.ID, sketch.Literal(math.Pi/4)))
		}},
		{"equal length", func(t *testing.T, s *sketch.Scene) *sketch.Constraint {
			a := s.AddSegment(0, 0, 10, 0, sketch.AddOptions{})
			b := s.AddSegment(0, 5, 4, 5, sketch.AddOptions{})
			return mustConstrain(t, s, sketch.EqualLength(a.ID, b.ID))
		}},
		{"radius", func(t *testing.T, s *sketch.Scene) *sketch.Constraint {
			c := s.AddCircle(0, 0, 3, sketch.AddOptions{})
			return mustConstrain(t, s, sketch.Radius(c.ID, sketch.Literal(12)))
		}},
		{"tangent", func(t *testing.T, s *sketch.Scene) *sketch.Constraint {
			g := s.AddSegment(-10, 8, 10, 8, sketch.AddOptions{})
			c := s.AddCircle(0, 0, 3, sketch.AddOptions{})
			return mustConstrain(t, s, sketch.Tangent(g.ID, c.ID))
		}},
		{"on line", func(t *testing.T, s *sketch.Scene) *sketch.Constraint {
			g := s.AddSegment(0, 0, 10, 0, sketch.AddOptions{})
			p := s.AddPoint(5, 4)
			return mustConstrain(t, s, sketch.OnLine(p.ID, g.ID))
		}},
		{"on circle", func(t *testing.T, s *sketch.Scene) *sketch.Constraint {
			c := s.AddCircle(0, 0, 5, sketch.AddOptions{})
			p := s.AddPoint(1, 1)
			return mustConstrain(t, s, sketch.OnCircle(p.ID, c.ID))
		}},
		{"midpoint", func(t *testing.T, s *sketch.Scene) *sketch.Constraint {
			g := s.AddSegment(0, 0, 10, 0, sketch.AddOptions{})
			p := s.AddPoint(2, 3)
			return mustConstrain(t, s, sketch.Midpoint(p.ID, g.ID))
		}},
		{"horizontal distance", func(t *testing.T, s *sketch.Scene) *sketch.Constraint {
			a := s.AddPoint(0, 0)
			b := s.AddPoint(3, 7)
			return mustConstrain(t, s, sketch.HorizontalDistance(a.ID, b.ID, sketch.Literal(20)))
		}},
		{"point line distance", func(t *testing.T, s *sketch.Scene) *sketch.Constraint {
			g := s.AddSegment(0, 0, 10, 0, sketch.AddOptions{})
			p := s.AddPoint(5, 1)
			return mustConstrain(t, s, sketch.PointLineDistance(p.ID, g.ID, sketch.Literal(6)))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScene()
			c := tt.build(t, s)
			if s.ConstraintError(c) < 1e-3 {
				t.Fatalf("constraint satisfied before solving")
			}
			res := s.Solve(sketch.DefaultSolveOptions())
			if !res.Converged {
				t.Errorf("not converged: %+v", res)
			}
			if e := s.ConstraintError(c); e > 1e-3 {
				t.Errorf("residual after solve: got %v", e)
			}
		})
	}
}

func TestRectangleSolve(t *testing.T) {
	s := newScene()
	bottom := s.AddSegment(0, 0, 10, 1, merge)
	right := s.AddSegment(10, 1, 11, 6, merge)
	top := s.AddSegment(11, 6, -1, 5, merge)
	left := s.AddSegment(-1, 5, 0, 0, merge)
	origin, _ := s.Point(bottom.P1)
	origin.Fixed = true

	mustConstrain(t, s, sketch.Horizontal(bottom.ID))
	mustConstrain(t, s, sketch.Horizontal(top.ID))
	mustConstrain(t, s, sketch.Vertical(left.ID))
	mustConstrain(t, s, sketch.Vertical(right.ID))
	mustConstrain(t, s, sketch.Length(bottom.ID, sketch.Literal(40)))
	mustConstrain(t, s, sketch.Length(left.ID, sketch.Literal(20)))

	res := s.Solve(sketch.SolveOptions{MaxIter: 2000})
	if !res.Converged {
		t.Fatalf("not converged: %+v", res)
	}
	profiles := sketch.ClosedProfiles(s)
	if len(profiles) != 1 {
		t.Fatalf("profiles: got %d, want 1", len(profiles))
	}
	if a := math.Abs(profiles[0].Area()); math.Abs(a-800) > 0.5 {
		t.Errorf("area: got %v, want 800", a)
	}
	if got := sketch.DegreesOfFreedom(s); got != 0 {
		t.Errorf("DOF: got %d, want 0", got)
	}
}

func TestSolveConflictingDoesNotPanic(t *testing.T) {
	s := newScene()
	p0 := s.AddPoint(0, 0)
	p0.Fixed = true
	p1 := s.AddPoint(5, 0)
	mustConstrain(t, s, sketch.Distance(p0.ID, p1.ID, sketch.Literal(10)))
	mustConstrain(t, s, sketch.Distance(p0.ID, p1.ID, sketch.Literal(20)))

	res := s.Solve(sketch.SolveOptions{MaxIter: 50})
	if res.Converged {
		t.Error("conflicting constraints reported converged")
	}
	if res.Iterations != 50 {
		t.Errorf("iterations: got %d, want 50", res.Iterations)
	}
	if s.IsConverged() {
		t.Error("IsConverged should be false")
	}
}

func TestConstraintErrorIsPure(t *testing.T) {
	s := newScene()
	g := s.AddSegment(0, 0, 10, 3, sketch.AddOptions{})
	c := mustConstrain(t, s, sketch.Horizontal(g.ID))
	before := s.Serialize()
	for i := 0; i < 3; i++ {
		if e := s.ConstraintError(c); math.Abs(e-3) > 1e-12 {
			t.Fatalf("error: got %v, want 3", e)
		}
	}
	after := s.Serialize()
	if before.Points[1] != after.Points[1] {
		t.Errorf("error evaluation moved geometry: %+v -> %+v", before.Points[1], after.Points[1])
	}
}

func TestVariableResolution(t *testing.T) {
	vars := formula.NewTable()
	if err := vars.Set("width", 25); err != nil {
		t.Fatal(err)
	}
	s := sketch.NewScene(sketch.WithVariables(vars))
	p0 := s.AddPoint(0, 0)
	p0.Fixed = true
	p1 := s.AddPoint(5, 0)
	c := mustConstrain(t, s, sketch.Distance(p0.ID, p1.ID, sketch.Expr("width")))

	s.Solve(sketch.SolveOptions{})
	if math.Abs(p1.X-25) > 1e-3 {
		t.Errorf("x: got %v, want 25", p1.X)
	}

	_ = vars.Set("width", 40)
	s.Solve(sketch.SolveOptions{})
	if math.Abs(p1.X-40) > 1e-3 {
		t.Errorf("after update x: got %v, want 40", p1.X)
	}

	c.Value = sketch.Expr("missing")
	if e := s.ConstraintError(c); e != 0 {
		t.Errorf("unresolved variable: got error %v, want 0", e)
	}
	before := p1.X
	s.Solve(sketch.SolveOptions{})
	if p1.X != before {
		t.Errorf("unresolved constraint moved the point from %v to %v", before, p1.X)
	}
}

func TestDrivenDimension(t *testing.T) {
	vars := formula.NewTable()
	_ = vars.Set("w", 30)
	s := sketch.NewScene(sketch.WithVariables(vars))
	g := s.AddSegment(0, 0, 10, 0, sketch.AddOptions{})
	p1, _ := s.Point(g.P1)
	p1.Fixed = true
	f := sketch.Expr("w")
	d, err := s.AddDimension(0, 0, 10, 0, sketch.DimLength, sketch.DimensionOptions{
		SourceA:      g.ID,
		IsConstraint: true,
		Formula:      &f,
		VariableName: "len_a",
	})
	if err != nil {
		t.Fatalf("AddDimension: %v", err)
	}
	if !d.Driven() {
		t.Error("dimension with formula should be driven")
	}

	s.Solve(sketch.SolveOptions{})
	p2, _ := s.Point(g.P2)
	if l := math.Hypot(p2.X-p1.X, p2.Y-p1.Y); math.Abs(l-30) > 1e-3 {
		t.Errorf("length: got %v, want 30", l)
	}
	if d.Value != 30 {
		t.Errorf("dimension value: got %v, want 30", d.Value)
	}
	if v, ok := vars.Get("len_a"); !ok || v != 30 {
		t.Errorf("published variable: got %v %v, want 30", v, ok)
	}
}

func TestAnnotationDimensionTracksGeometry(t *testing.T) {
	s := newScene()
	g := s.AddSegment(0, 0, 10, 0, sketch.AddOptions{})
	d, err := s.AddDimension(0, 0, 10, 0, sketch.DimLength, sketch.DimensionOptions{SourceA: g.ID})
	if err != nil {
		t.Fatalf("AddDimension: %v", err)
	}
	p2, _ := s.Point(g.P2)
	p2.X = 25
	s.RefreshDimensions()
	if d.Value != 25 {
		t.Errorf("value: got %v, want 25", d.Value)
	}
	if d.X2 != 25 {
		t.Errorf("anchor: got %v, want 25", d.X2)
	}
}

func TestExpressionValueDrivesSolve(t *testing.T) {
	vars := formula.NewTable()
	if err := vars.Set("w", 80); err != nil {
		t.Fatal(err)
	}
	s := sketch.NewScene(sketch.WithVariables(vars))
	g := s.AddSegment(0, 0, 10, 0, sketch.AddOptions{})
	p1, _ := s.Point(g.P1)
	p1.Fixed = true
	mustConstrain(t, s, sketch.Horizontal(g.ID))
	c := mustConstrain(t, s, sketch.Length(g.ID, sketch.Expr("w / 2")))

	res := s.Solve(sketch.SolveOptions{})
	if !res.Converged || len(res.Unresolved) != 0 {
		t.Fatalf("solve: %+v", res)
	}
	p2, _ := s.Point(g.P2)
	if l := math.Hypot(p2.X-p1.X, p2.Y-p1.Y); math.Abs(l-40) > 1e-3 {
		t.Errorf("length: got %v, want 40", l)
	}

	c.Value = sketch.Expr("w / missing")
	res = s.Solve(sketch.SolveOptions{})
	if len(res.Unresolved) != 1 || res.Unresolved[0] != c.ID {
		t.Errorf("unresolved: got %v, want [%v]", res.Unresolved, c.ID)
	}
}
