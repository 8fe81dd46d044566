package tessellate_test

import (
	"math"
	"testing"

	"github.com/Jozo132/modeller-sub001/pkg/feature"
	"github.com/Jozo132/modeller-sub001/pkg/formula"
	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"github.com/Jozo132/modeller-sub001/pkg/part"
	"github.com/Jozo132/modeller-sub001/pkg/sketch"
	"github.com/Jozo132/modeller-sub001/pkg/tessellate"
)

var merge = sketch.AddOptions{Merge: true}

// makeBlock creates a part holding an x by y by z block with a corner at
// the origin.
func makeBlock(t *testing.T, name string, x, y, z float64) *part.Part {
	t.Helper()
	p := part.New(name, part.Options{Variables: formula.NewTable()})
	sk := p.NewSketch("outline")
	sk.Scene.AddSegment(0, 0, x, 0, merge)
	sk.Scene.AddSegment(x, 0, x, y, merge)
	sk.Scene.AddSegment(x, y, 0, y, merge)
	sk.Scene.AddSegment(0, y, 0, 0, merge)
	s, err := p.AddSketch(sk, nil)
	if err != nil {
		t.Fatal(err)
	}
	if z != 0 {
		if _, err := p.Extrude(s.ID, z, feature.ExtrudeParams{}); err != nil {
			t.Fatal(err)
		}
	}
	return p
}

func TestSingleBlock(t *testing.T) {
	p := makeBlock(t, "shelf", 600, 300, 18)

	m, err := tessellate.Part(p)
	if err != nil {
		t.Fatalf("Part failed: %v", err)
	}
	if m == nil || m.IsEmpty() {
		t.Fatal("mesh should not be empty")
	}
	if m.PartName != "shelf" {
		t.Errorf("expected PartName %q, got %q", "shelf", m.PartName)
	}
	if m.TriangleCount() != 12 {
		t.Errorf("expected 12 triangles, got %d", m.TriangleCount())
	}
	if math.Abs(m.Volume()-600*300*18) > 1 {
		t.Errorf("expected volume %v, got %v", 600*300*18, m.Volume())
	}
}

func TestPartWithoutSolid(t *testing.T) {
	p := makeBlock(t, "flat", 10, 10, 0)
	m, err := tessellate.Part(p)
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Errorf("expected no mesh for a sketch-only part, got %d triangles", m.TriangleCount())
	}
	wires := tessellate.Sketches(p)
	if len(wires) != 1 || !wires[0].Closed {
		t.Fatalf("expected one closed wire, got %+v", wires)
	}
	// Closed profiles repeat their first point.
	if got := len(wires[0].Points); got != 5*3 {
		t.Errorf("expected 15 floats, got %d", got)
	}
}

func TestConsumedSketchHidden(t *testing.T) {
	p := makeBlock(t, "block", 10, 10, 10)
	if wires := tessellate.Sketches(p); len(wires) != 0 {
		t.Errorf("consumed sketch should not be drawn, got %d wires", len(wires))
	}
}

func TestAssemblyTranslation(t *testing.T) {
	a := part.NewAssembly("shelves")
	p := makeBlock(t, "board", 100, 50, 10)
	if _, err := a.AddComponent(p, "lower", geom.Identity); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AddComponent(p, "upper", geom.Transform{Translation: geom.Vec3{Z: 200}}); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AddComponent(makeBlock(t, "sketch only", 5, 5, 0), "", geom.Identity); err != nil {
		t.Fatal(err)
	}

	meshes, err := tessellate.Assembly(a)
	if err != nil {
		t.Fatalf("Assembly failed: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(meshes))
	}
	if meshes[0].PartName != "lower" || meshes[1].PartName != "upper" {
		t.Errorf("names: %q, %q", meshes[0].PartName, meshes[1].PartName)
	}
	lower, upper := meshes[0].Bounds(), meshes[1].Bounds()
	if lower.Min.Z != 0 || upper.Min.Z != 200 || upper.Max.Z != 210 {
		t.Errorf("z ranges: lower %v..%v, upper %v..%v", lower.Min.Z, lower.Max.Z, upper.Min.Z, upper.Max.Z)
	}
}

func TestNilInputs(t *testing.T) {
	if m, err := tessellate.Part(nil); m != nil || err != nil {
		t.Errorf("Part(nil) = %v, %v", m, err)
	}
	if ms, err := tessellate.Assembly(nil); ms != nil || err != nil {
		t.Errorf("Assembly(nil) = %v, %v", ms, err)
	}
	if ws := tessellate.Sketches(nil); ws != nil {
		t.Errorf("Sketches(nil) = %v", ws)
	}
}
