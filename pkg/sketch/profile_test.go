package sketch_test

import (
	"math"
	"testing"

	"github.com/Jozo132/modeller-sub001/pkg/sketch"
)

func addSquare(s *sketch.Scene, half float64) {
	s.AddSegment(-half, -half, half, -half, merge)
	s.AddSegment(half, -half, half, half, merge)
	s.AddSegment(half, half, -half, half, merge)
	s.AddSegment(-half, half, -half, -half, merge)
}

func TestExtractSquare(t *testing.T) {
	s := newScene()
	addSquare(s, 50)
	ps := sketch.ExtractProfiles(s)
	if len(ps) != 1 {
		t.Fatalf("profiles: got %d, want 1", len(ps))
	}
	p := ps[0]
	if !p.Closed {
		t.Error("square should be closed")
	}
	if len(p.Points) != 5 {
		t.Errorf("points: got %d, want 5", len(p.Points))
	}
	if p.PointIDs[0] != p.PointIDs[len(p.PointIDs)-1] {
		t.Errorf("closed profile should repeat its first point id: %v", p.PointIDs)
	}
	if a := p.Area(); math.Abs(a-10000) > 1e-9 {
		t.Errorf("area: got %v, want 10000", a)
	}
	if len(p.Ring()) != 4 {
		t.Errorf("ring: got %d, want 4", len(p.Ring()))
	}
}

func TestExtractCircle(t *testing.T) {
	s := newScene()
	s.AddCircle(0, 0, 25, sketch.AddOptions{})
	s.AddCircle(0, 0, 40, sketch.AddOptions{Construction: true})
	ps := sketch.ExtractProfiles(s)
	if len(ps) != 1 {
		t.Fatalf("profiles: got %d, want 1", len(ps))
	}
	if got := len(ps[0].Points); got != sketch.CircleSegments+1 {
		t.Errorf("points: got %d, want %d", got, sketch.CircleSegments+1)
	}
	if ps[0].Area() <= 0 {
		t.Error("circle profile should be counter-clockwise")
	}
}

func TestExtractOpenChainExtendsBackwards(t *testing.T) {
	s := newScene()
	bc := s.AddSegment(10, 0, 20, 0, merge)
	ab := s.AddSegment(0, 0, 10, 0, merge)
	ps := sketch.ExtractProfiles(s)
	if len(ps) != 1 {
		t.Fatalf("profiles: got %d, want 1", len(ps))
	}
	p := ps[0]
	if p.Closed {
		t.Error("chain should be open")
	}
	want := []sketch.ID{ab.P1, bc.P1, bc.P2}
	if len(p.PointIDs) != len(want) {
		t.Fatalf("ids: got %v, want %v", p.PointIDs, want)
	}
	for i := range want {
		if p.PointIDs[i] != want[i] {
			t.Errorf("ids: got %v, want %v", p.PointIDs, want)
			break
		}
	}
	if p.Points[0].X != 0 || p.Points[2].X != 20 {
		t.Errorf("points: got %v", p.Points)
	}
}

func TestExtractSkipsConstruction(t *testing.T) {
	s := newScene()
	addSquare(s, 5)
	s.AddSegment(-5, -5, 5, 5, sketch.AddOptions{Merge: true, Construction: true})
	ps := sketch.ExtractProfiles(s)
	if len(ps) != 1 || !ps[0].Closed {
		t.Fatalf("got %d profiles, want one closed square", len(ps))
	}
}

func TestExtractSlot(t *testing.T) {
	s := newScene()
	s.AddArc(0, 0, 5, math.Pi/2, 3*math.Pi/2, sketch.AddOptions{})
	s.AddSegment(0, -5, 10, -5, merge)
	s.AddArc(10, 0, 5, -math.Pi/2, math.Pi/2, sketch.AddOptions{})
	s.AddSegment(10, 5, 0, 5, merge)

	ps := sketch.ClosedProfiles(s)
	if len(ps) != 1 {
		t.Fatalf("closed profiles: got %d, want 1", len(ps))
	}
	want := 100 + math.Pi*25
	if a := math.Abs(ps[0].Area()); math.Abs(a-want)/want > 0.02 {
		t.Errorf("area: got %v, want about %v", a, want)
	}
}

func TestExtractTwoDisjointLoops(t *testing.T) {
	s := newScene()
	addSquare(s, 50)
	s.AddSegment(100, 0, 110, 0, merge)
	s.AddSegment(110, 0, 110, 10, merge)
	s.AddSegment(110, 10, 100, 0, merge)
	if got := len(sketch.ClosedProfiles(s)); got != 2 {
		t.Errorf("closed profiles: got %d, want 2", got)
	}
}
