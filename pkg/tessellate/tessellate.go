// Package tessellate turns parts and assemblies into flat render meshes.
// One mesh is produced per part or assembly component; visible sketches
// are exported as wire polylines.
package tessellate

import (
	"fmt"

	"github.com/Jozo132/modeller-sub001/pkg/feature"
	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"github.com/Jozo132/modeller-sub001/pkg/kernel"
	"github.com/Jozo132/modeller-sub001/pkg/part"
)

// Part returns the render mesh of a part's final solid. A part without a
// solid yields nil and no error; an empty solid (a zero-distance extrude)
// yields an empty mesh.
func Part(p *part.Part) (*kernel.Mesh, error) {
	if p == nil {
		return nil, nil
	}
	return solidMesh(p.Mesh(), p.Name, geom.Identity)
}

// Assembly returns one render mesh per component, each moved by the
// component transform. Components whose part has no solid are skipped.
// The tessellator is read-only and never mutates the assembly.
func Assembly(a *part.Assembly) ([]*kernel.Mesh, error) {
	if a == nil {
		return nil, nil
	}
	var meshes []*kernel.Mesh
	for _, c := range a.Components() {
		m, err := solidMesh(c.Part.Mesh(), c.Name, c.Transform)
		if err != nil {
			return nil, fmt.Errorf("tessellate: component %s: %w", c.ID, err)
		}
		if m != nil {
			meshes = append(meshes, m)
		}
	}
	return meshes, nil
}

func solidMesh(m *geom.Mesh, name string, t geom.Transform) (*kernel.Mesh, error) {
	if m == nil {
		return nil, nil
	}
	if !t.IsIdentity() {
		m = m.Transformed(t)
	}
	out := kernel.FromGeom(m, name)
	if len(out.Vertices) != len(out.Normals) || len(out.Indices)%3 != 0 {
		return nil, fmt.Errorf("malformed mesh for %q", name)
	}
	return out, nil
}

// Wire is a sketch profile lifted into world space as a flat polyline.
type Wire struct {
	Feature string    `json:"feature"`
	Points  []float32 `json:"points"` // [x0,y0,z0, x1,y1,z1, ...]
	Closed  bool      `json:"closed"`
}

// Sketches returns the profiles of every visible, executed sketch feature.
// Sketches consumed by a solid feature are hidden and so skipped.
func Sketches(p *part.Part) []Wire {
	if p == nil {
		return nil
	}
	var wires []Wire
	tree := p.Tree()
	for _, f := range tree.Features() {
		if f.Type != feature.TypeSketch || !f.Visible {
			continue
		}
		r, ok := tree.Result(f.ID)
		if !ok || !r.OK() {
			continue
		}
		for _, prof := range r.Profiles {
			w := Wire{Feature: f.Name, Closed: prof.Closed}
			for _, q := range prof.Points {
				v := r.Plane.ToWorld(q.X, q.Y)
				w.Points = append(w.Points, float32(v.X), float32(v.Y), float32(v.Z))
			}
			wires = append(wires, w)
		}
	}
	return wires
}
