package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Jozo132/modeller-sub001/internal/config"
	"github.com/rs/zerolog"
)

const blockScript = `
(defpart "block" :material "aluminum")
(def s (sketch))
(rect 0 0 10 20)
(extrude s 5)
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScript(t *testing.T) {
	log := zerolog.Nop()
	m, err := loadModel(writeFile(t, "block.lisp", blockScript), config.Default(), &log)
	if err != nil {
		t.Fatalf("loadModel: %v", err)
	}
	if len(m.Parts) != 1 || math.Abs(m.Parts[0].Volume()-1000) > 1e-9 {
		t.Fatalf("unexpected model: %+v", m.Parts)
	}

	var out bytes.Buffer
	printSummary(&out, m)
	if !strings.Contains(out.String(), "block: 2 features, 10.000 x 20.000 x 5.000, volume 1000.000") {
		t.Errorf("summary = %q", out.String())
	}
}

func TestLoadScriptErrors(t *testing.T) {
	log := zerolog.Nop()
	if _, err := loadModel(writeFile(t, "bad.lisp", "(extrude"), config.Default(), &log); err == nil {
		t.Error("expected a parse error")
	}
	if _, err := loadModel(filepath.Join(t.TempDir(), "missing.lisp"), config.Default(), &log); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	log := zerolog.Nop()
	m, err := loadModel(writeFile(t, "block.lisp", blockScript), config.Default(), &log)
	if err != nil {
		t.Fatal(err)
	}
	var doc bytes.Buffer
	if err := writeJSON(&doc, m); err != nil {
		t.Fatal(err)
	}
	back, err := loadModel(writeFile(t, "block.json", doc.String()), config.Default(), &log)
	if err != nil {
		t.Fatalf("loading the serialized part: %v", err)
	}
	if len(back.Parts) != 1 || back.Parts[0].Volume() != m.Parts[0].Volume() {
		t.Errorf("restored parts = %+v", back.Parts)
	}
	if back.Parts[0].Mass() != m.Parts[0].Mass() {
		t.Errorf("restored mass = %v, want %v", back.Parts[0].Mass(), m.Parts[0].Mass())
	}
}

func TestAssemblyJSON(t *testing.T) {
	log := zerolog.Nop()
	m, err := loadModel(writeFile(t, "pair.lisp", blockScript+`
(assembly "pair"
  (place (part "block"))
  (place (part "block") :at (vec3 50 0 0) :name "copy"))
`), config.Default(), &log)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(m.Assembly)
	if err != nil {
		t.Fatal(err)
	}
	back, err := loadModel(writeFile(t, "pair.json", string(data)), config.Default(), &log)
	if err != nil {
		t.Fatalf("loading the serialized assembly: %v", err)
	}
	if back.Assembly == nil || len(back.Assembly.Components()) != 2 {
		t.Fatalf("restored assembly = %+v", back.Assembly)
	}
	if len(back.Parts) != 1 {
		t.Errorf("expected the shared part once, got %d parts", len(back.Parts))
	}
}

func TestExportSTL(t *testing.T) {
	log := zerolog.Nop()
	m, err := loadModel(writeFile(t, "block.lisp", blockScript), config.Default(), &log)
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "block.stl")
	n, err := exportSTL(m, "", out, 0.1)
	if err != nil {
		t.Fatalf("exportSTL: %v", err)
	}
	if n != 12 {
		t.Errorf("triangles = %d, want 12", n)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 84+50*n {
		t.Fatalf("file size = %d, want %d", len(data), 84+50*n)
	}
	if got := binary.LittleEndian.Uint32(data[80:84]); int(got) != n {
		t.Errorf("header triangle count = %d, want %d", got, n)
	}

	if _, err := exportSTL(m, "nonexistent", out, 1); err == nil {
		t.Error("expected an error for an unknown part")
	}
}

func TestPreviewCommand(t *testing.T) {
	cfg = config.Default()
	logger = zerolog.Nop()
	var out bytes.Buffer
	previewCmd.SetOut(&out)
	defer previewCmd.SetOut(nil)

	if err := runPreview(previewCmd, []string{writeFile(t, "block.lisp", blockScript)}); err != nil {
		t.Fatalf("runPreview: %v", err)
	}
	var payload struct {
		Meshes []struct {
			PartName string `json:"partName"`
			Indices  []uint32
		} `json:"meshes"`
		Errors []json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(out.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(payload.Errors) != 0 || len(payload.Meshes) != 1 || payload.Meshes[0].PartName != "block" {
		t.Errorf("unexpected payload %s", out.String())
	}

	out.Reset()
	if err := runPreview(previewCmd, []string{writeFile(t, "bad.lisp", "(extrude")}); err != nil {
		t.Fatalf("evaluation errors belong in the payload, got %v", err)
	}
	if !strings.Contains(out.String(), `"errors":[{`) {
		t.Errorf("expected reported errors, got %s", out.String())
	}
}
