package sketch_test

import (
	"math"
	"testing"

	"github.com/Jozo132/modeller-sub001/pkg/sketch"
)

func TestComputeFullyConstrainedChain(t *testing.T) {
	s := newScene()
	base := s.AddSegment(0, 0, 10, 0, merge)
	up := s.AddSegment(10, 0, 10, 5, merge)
	loose := s.AddSegment(20, 20, 30, 30, merge)
	origin, _ := s.Point(base.P1)
	origin.Fixed = true

	mustConstrain(t, s, sketch.Horizontal(base.ID))
	mustConstrain(t, s, sketch.Length(base.ID, sketch.Literal(10)))
	mustConstrain(t, s, sketch.Vertical(up.ID))
	mustConstrain(t, s, sketch.Length(up.ID, sketch.Literal(5)))

	got := sketch.ComputeFullyConstrained(s)
	for _, id := range []sketch.ID{base.P1, base.P2, up.P2, base.ID, up.ID} {
		if !got[id] {
			t.Errorf("%d should be fully constrained", id)
		}
	}
	for _, id := range []sketch.ID{loose.ID, loose.P1, loose.P2} {
		if got[id] {
			t.Errorf("%d should not be fully constrained", id)
		}
	}
}

func TestComputeFullyConstrainedPropagation(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T, s *sketch.Scene) (target sketch.ID)
		want  bool
	}{
		{"coincident with fixed", func(t *testing.T, s *sketch.Scene) sketch.ID {
			a := s.AddPoint(0, 0)
			a.Fixed = true
			b := s.AddPoint(1, 1)
			mustConstrain(t, s, sketch.Coincident(a.ID, b.ID))
			return b.ID
		}, true},
		{"fixed constraint", func(t *testing.T, s *sketch.Scene) sketch.ID {
			a := s.AddPoint(0, 0)
			mustConstrain(t, s, sketch.Fixed(a.ID))
			return a.ID
		}, true},
		{"midpoint of locked ends", func(t *testing.T, s *sketch.Scene) sketch.ID {
			g := s.AddSegment(0, 0, 10, 0, sketch.AddOptions{})
			mustConstrain(t, s, sketch.Fixed(g.P1))
			mustConstrain(t, s, sketch.Fixed(g.P2))
			m := s.AddPoint(5, 1)
			mustConstrain(t, s, sketch.Midpoint(m.ID, g.ID))
			return m.ID
		}, true},
		{"horizontal only", func(t *testing.T, s *sketch.Scene) sketch.ID {
			g := s.AddSegment(0, 0, 10, 0, sketch.AddOptions{})
			mustConstrain(t, s, sketch.Fixed(g.P1))
			mustConstrain(t, s, sketch.Horizontal(g.ID))
			return g.P2
		}, false},
		{"circle with radius", func(t *testing.T, s *sketch.Scene) sketch.ID {
			c := s.AddCircle(0, 0, 5, sketch.AddOptions{})
			mustConstrain(t, s, sketch.Fixed(c.Center))
			mustConstrain(t, s, sketch.Radius(c.ID, sketch.Literal(5)))
			return c.ID
		}, false},
		{"center of circle with radius", func(t *testing.T, s *sketch.Scene) sketch.ID {
			c := s.AddCircle(0, 0, 5, sketch.AddOptions{})
			mustConstrain(t, s, sketch.Fixed(c.Center))
			mustConstrain(t, s, sketch.Radius(c.ID, sketch.Literal(5)))
			return c.Center
		}, true},
		{"arc with radius", func(t *testing.T, s *sketch.Scene) sketch.ID {
			a := s.AddArc(0, 0, 5, 0, math.Pi/2, sketch.AddOptions{})
			mustConstrain(t, s, sketch.Fixed(a.Center))
			mustConstrain(t, s, sketch.Radius(a.ID, sketch.Literal(5)))
			return a.ID
		}, false},
		{"circle without radius", func(t *testing.T, s *sketch.Scene) sketch.ID {
			c := s.AddCircle(0, 0, 5, sketch.AddOptions{})
			mustConstrain(t, s, sketch.Fixed(c.Center))
			return c.ID
		}, false},
		{"radius dimension", func(t *testing.T, s *sketch.Scene) sketch.ID {
			c := s.AddCircle(0, 0, 5, sketch.AddOptions{})
			mustConstrain(t, s, sketch.Fixed(c.Center))
			if _, err := s.AddDimension(0, 0, 5, 0, sketch.DimRadius, sketch.DimensionOptions{SourceA: c.ID, IsConstraint: true}); err != nil {
				t.Fatalf("AddDimension: %v", err)
			}
			return c.ID
		}, false},
		{"tangent does not propagate", func(t *testing.T, s *sketch.Scene) sketch.ID {
			g := s.AddSegment(-10, 5, 10, 5, sketch.AddOptions{})
			mustConstrain(t, s, sketch.Fixed(g.P1))
			mustConstrain(t, s, sketch.Fixed(g.P2))
			c := s.AddCircle(0, 0, 5, sketch.AddOptions{})
			mustConstrain(t, s, sketch.Tangent(g.ID, c.ID))
			return c.ID
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScene()
			id := tt.build(t, s)
			if got := sketch.ComputeFullyConstrained(s)[id]; got != tt.want {
				t.Errorf("fully constrained: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDegreesOfFreedom(t *testing.T) {
	s := newScene()
	g := s.AddSegment(0, 0, 10, 0, sketch.AddOptions{})
	if got := sketch.DegreesOfFreedom(s); got != 4 {
		t.Errorf("free segment: got %d, want 4", got)
	}

	p1, _ := s.Point(g.P1)
	p1.Fixed = true
	if got := sketch.DegreesOfFreedom(s); got != 2 {
		t.Errorf("one end fixed: got %d, want 2", got)
	}

	mustConstrain(t, s, sketch.Horizontal(g.ID))
	if got := sketch.DegreesOfFreedom(s); got != 1 {
		t.Errorf("horizontal: got %d, want 1", got)
	}
	mustConstrain(t, s, sketch.Length(g.ID, sketch.Literal(10)))
	if got := sketch.DegreesOfFreedom(s); got != 0 {
		t.Errorf("fully constrained: got %d, want 0", got)
	}

	s.AddCircle(50, 50, 5, sketch.AddOptions{})
	if got := sketch.DegreesOfFreedom(s); got != 3 {
		t.Errorf("with free circle: got %d, want 3", got)
	}
}
