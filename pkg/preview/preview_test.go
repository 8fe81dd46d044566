package preview

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

// TestE2EBlock exercises the full pipeline: Lisp source -> engine -> parts
// -> tessellate -> meshes, the same path a viewer takes.
func TestE2EBlock(t *testing.T) {
	s := NewSession(nil, nil)
	result := s.Evaluate(`
(defpart "shelf")
(def s (sketch))
(rect 0 0 600 300)
(extrude s 18)
`)
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
	if len(result.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(result.Meshes))
	}
	m := result.Meshes[0]
	if m.PartName != "shelf" {
		t.Errorf("expected part name 'shelf', got %q", m.PartName)
	}
	if len(m.Vertices) == 0 || len(m.Normals) != len(m.Vertices) || len(m.Indices) != 36 {
		t.Errorf("unexpected geometry: %d vertices, %d normals, %d indices",
			len(m.Vertices), len(m.Normals), len(m.Indices))
	}
	if m.Color != colorPalette[0] {
		t.Errorf("expected first palette color, got %q", m.Color)
	}
	if len(result.Wires) != 0 {
		t.Errorf("consumed sketch should not be drawn, got %d wires", len(result.Wires))
	}
}

func TestE2EEmptySource(t *testing.T) {
	for _, src := range []string{"", "   \n\t", "; only a comment\n;; and another"} {
		result := NewSession(nil, nil).Evaluate(src)
		if len(result.Errors) > 0 {
			t.Errorf("unexpected errors for %q: %v", src, result.Errors)
		}
		if len(result.Meshes) != 0 {
			t.Errorf("expected 0 meshes for %q, got %d", src, len(result.Meshes))
		}
	}
}

func TestE2ESyntaxError(t *testing.T) {
	result := NewSession(nil, nil).Evaluate("(defpart \"test\"")
	if len(result.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes on error, got %d", len(result.Meshes))
	}
}

func TestE2EUndefinedPartReference(t *testing.T) {
	result := NewSession(nil, nil).Evaluate(`(assembly "a" (place (part "ghost")))`)
	if len(result.Errors) == 0 {
		t.Fatal("expected an error for an undefined part")
	}
	if !strings.Contains(result.Errors[0].Message, "ghost") {
		t.Errorf("error should name the part, got %q", result.Errors[0].Message)
	}
}

func TestE2ESketchOnlyDrawsWires(t *testing.T) {
	result := NewSession(nil, nil).Evaluate(`
(defpart "outline")
(sketch "profile")
(rect 0 0 10 10)
(circle 30 0 5)
`)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected no meshes, got %d", len(result.Meshes))
	}
	if len(result.Wires) != 2 {
		t.Fatalf("expected 2 wires, got %d", len(result.Wires))
	}
	for _, w := range result.Wires {
		if !w.Closed || w.Part != "outline" || w.Feature != "profile" {
			t.Errorf("unexpected wire %+v", w)
		}
	}
}

func TestE2EWarningsReported(t *testing.T) {
	result := NewSession(nil, nil).Evaluate(`
(def s (sketch))
(line 0 0 10 0)
(extrude s 5)
`)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0].Message, "no closed profiles") {
		t.Errorf("unexpected warnings %v", result.Warnings)
	}
}

func TestE2EAssemblyPlacement(t *testing.T) {
	result := NewSession(nil, nil).Evaluate(`
(defpart "leg")
(def s (sketch))
(rect 0 0 50 50)
(extrude s 750)
(assembly "table"
  (place (part "leg") :name "front left")
  (place (part "leg") :at (vec3 550 0 0) :name "front right"))
`)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(result.Meshes))
	}
	right := result.Meshes[1]
	if right.PartName != "front right" {
		t.Errorf("expected component name, got %q", right.PartName)
	}
	minX := right.Vertices[0]
	for i := 0; i < len(right.Vertices); i += 3 {
		if right.Vertices[i] < minX {
			minX = right.Vertices[i]
		}
	}
	if minX != 550 {
		t.Errorf("expected translated mesh starting at x=550, got %v", minX)
	}
}

func TestE2EColorPaletteWrapping(t *testing.T) {
	var src strings.Builder
	n := len(colorPalette) + 2
	for i := 0; i < n; i++ {
		src.WriteString("(defpart \"p")
		src.WriteByte(byte('a' + i))
		src.WriteString("\")\n(def s (sketch))\n(rect 0 0 1 1)\n(extrude s 1)\n")
	}
	result := NewSession(nil, nil).Evaluate(src.String())
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Meshes) != n {
		t.Fatalf("expected %d meshes, got %d", n, len(result.Meshes))
	}
	for i, m := range result.Meshes {
		if want := colorPalette[i%len(colorPalette)]; m.Color != want {
			t.Errorf("mesh %d color = %q, want %q", i, m.Color, want)
		}
	}
}

func TestE2ERapidEvaluation(t *testing.T) {
	s := NewSession(nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Superseded evaluations come back as errors; none may panic.
			s.Evaluate("(def s (sketch)) (rect 0 0 5 5) (extrude s 5)")
		}()
	}
	wg.Wait()

	result := s.Evaluate("(def s (sketch)) (rect 0 0 5 5) (extrude s 5)")
	if len(result.Errors) > 0 || len(result.Meshes) != 1 {
		t.Errorf("final evaluation: %d errors, %d meshes", len(result.Errors), len(result.Meshes))
	}
}

func TestResultJSONShape(t *testing.T) {
	data, err := json.Marshal(NewSession(nil, nil).Evaluate(""))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"meshes":[],"wires":[],"errors":[],"warnings":[]}`
	if string(data) != want {
		t.Errorf("empty result JSON = %s, want %s", data, want)
	}
}
