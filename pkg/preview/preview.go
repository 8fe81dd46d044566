// Package preview turns script source into the JSON payload a viewer
// draws: coloured part meshes, sketch wires and evaluation diagnostics.
package preview

import (
	"github.com/Jozo132/modeller-sub001/pkg/engine"
	"github.com/Jozo132/modeller-sub001/pkg/kernel"
	"github.com/Jozo132/modeller-sub001/pkg/logging"
	"github.com/Jozo132/modeller-sub001/pkg/tessellate"
	"github.com/rs/zerolog"
)

// colorPalette is a default palette used to assign distinct colors to parts.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// wireColor is used for every sketch wire.
const wireColor = "#333333"

// Session evaluates source for a viewer. It is safe for concurrent use;
// a newer evaluation supersedes one still running.
type Session struct {
	engine *engine.Engine
	log    *zerolog.Logger
}

// MeshData is the JSON-serializable mesh format sent to the viewer.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// WireData is a sketch profile polyline.
type WireData struct {
	Part    string    `json:"part"`
	Feature string    `json:"feature"`
	Points  []float32 `json:"points"`
	Closed  bool      `json:"closed"`
	Color   string    `json:"color"`
}

// Diagnostic is a JSON-serializable eval error or warning.
type Diagnostic struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// Result is the full payload returned to the viewer.
type Result struct {
	Meshes   []MeshData   `json:"meshes"`
	Wires    []WireData   `json:"wires"`
	Errors   []Diagnostic `json:"errors"`
	Warnings []Diagnostic `json:"warnings"`
}

// NewSession creates a session around an engine. A nil logger selects the
// package logger.
func NewSession(eng *engine.Engine, log *zerolog.Logger) *Session {
	if eng == nil {
		eng = engine.NewEngine()
	}
	if log == nil {
		log = logging.Logger()
	}
	return &Session{engine: eng, log: log}
}

// Evaluate takes Lisp source and returns mesh data + diagnostics.
func (s *Session) Evaluate(source string) Result {
	result := Result{
		Meshes:   []MeshData{},
		Wires:    []WireData{},
		Errors:   []Diagnostic{},
		Warnings: []Diagnostic{},
	}

	// Step 1: Evaluate the source into parts.
	m, evalErrs, err := s.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		s.log.Error().Err(err).Msg("evaluate failed")
		result.Errors = append(result.Errors, Diagnostic{Message: err.Error()})
		return result
	}

	// Step 2: Convert eval errors to the viewer format.
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, Diagnostic{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}
	for _, w := range m.Warnings {
		result.Warnings = append(result.Warnings, Diagnostic{Message: w.String()})
	}

	// Step 3: Tessellate. An assembly is drawn component by component with
	// its placements; otherwise every part is drawn where it was modelled.
	var meshes []*kernel.Mesh
	if m.Assembly != nil {
		meshes, err = tessellate.Assembly(m.Assembly)
	} else {
		for _, p := range m.Parts {
			var mesh *kernel.Mesh
			if mesh, err = tessellate.Part(p); err != nil {
				break
			}
			if mesh != nil {
				meshes = append(meshes, mesh)
			}
		}
	}
	if err != nil {
		s.log.Error().Err(err).Msg("tessellate failed")
		result.Errors = append(result.Errors, Diagnostic{Message: "tessellation failed: " + err.Error()})
		return result
	}

	// Step 4: Convert kernel meshes to the viewer format.
	for i, mesh := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: mesh.Vertices,
			Normals:  mesh.Normals,
			Indices:  mesh.Indices,
			PartName: mesh.PartName,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}

	// Sketches not yet consumed by a solid are drawn as wires.
	for _, p := range m.Parts {
		for _, w := range tessellate.Sketches(p) {
			result.Wires = append(result.Wires, WireData{
				Part:    p.Name,
				Feature: w.Feature,
				Points:  w.Points,
				Closed:  w.Closed,
				Color:   wireColor,
			})
		}
	}

	s.log.Debug().Int("meshes", len(result.Meshes)).Int("wires", len(result.Wires)).Msg("preview ready")
	return result
}
