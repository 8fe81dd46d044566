package part

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrUnknownComponent is returned when a component ID is not in the
// assembly.
var ErrUnknownComponent = errors.New("part: unknown component")

// Component places a part in an assembly.
type Component struct {
	ID        uuid.UUID
	Name      string
	Part      *Part
	Transform geom.Transform
}

// Mesh returns the part's solid moved into assembly space, or nil.
func (c *Component) Mesh() *geom.Mesh {
	m := c.Part.Mesh()
	if m == nil || c.Transform.IsIdentity() {
		return m
	}
	return m.Transformed(c.Transform)
}

// Assembly is a flat list of placed parts. Mates between components are
// not modelled.
type Assembly struct {
	Name       string
	components []*Component
}

// NewAssembly returns an empty assembly.
func NewAssembly(name string) *Assembly {
	return &Assembly{Name: name}
}

// AddComponent places p with transform t. An empty name falls back to the
// part name.
func (a *Assembly) AddComponent(p *Part, name string, t geom.Transform) (*Component, error) {
	if p == nil {
		return nil, fmt.Errorf("part: nil part")
	}
	if name == "" {
		name = p.Name
	}
	c := &Component{ID: uuid.New(), Name: name, Part: p, Transform: t}
	a.components = append(a.components, c)
	return c, nil
}

// Component looks up a component by ID.
func (a *Assembly) Component(id uuid.UUID) (*Component, bool) {
	return lo.Find(a.components, func(c *Component) bool { return c.ID == id })
}

// Components returns the components in insertion order.
func (a *Assembly) Components() []*Component { return a.components }

// RemoveComponent deletes a component.
func (a *Assembly) RemoveComponent(id uuid.UUID) error {
	n := len(a.components)
	a.components = lo.Reject(a.components, func(c *Component, _ int) bool { return c.ID == id })
	if len(a.components) == n {
		return fmt.Errorf("%w: %s", ErrUnknownComponent, id)
	}
	return nil
}

// SetTransform moves a component.
func (a *Assembly) SetTransform(id uuid.UUID, t geom.Transform) error {
	c, ok := a.Component(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownComponent, id)
	}
	c.Transform = t
	return nil
}

// Mass sums the component masses.
func (a *Assembly) Mass() float64 {
	return lo.SumBy(a.components, func(c *Component) float64 { return c.Part.Mass() })
}

// Volume sums the component volumes.
func (a *Assembly) Volume() float64 {
	return lo.SumBy(a.components, func(c *Component) float64 { return c.Part.Volume() })
}

// CenterOfMass returns the mass-weighted centroid of the placed parts,
// weighting by volume when no part has a material.
func (a *Assembly) CenterOfMass() geom.Vec3 {
	weight := func(c *Component) float64 { return c.Part.Mass() }
	if a.Mass() == 0 {
		weight = func(c *Component) float64 { return c.Part.Volume() }
	}
	var sum geom.Vec3
	var total float64
	for _, c := range a.components {
		w := weight(c)
		sum = r3.Add(sum, r3.Scale(w, c.Transform.Apply(c.Part.CenterOfMass())))
		total += w
	}
	if total == 0 {
		return geom.Vec3{}
	}
	return r3.Scale(1/total, sum)
}

// Bounds returns the bounding box of all placed solids.
func (a *Assembly) Bounds() geom.Box {
	b := geom.EmptyBox()
	for _, c := range a.components {
		m := c.Mesh()
		if m.IsEmpty() {
			continue
		}
		cb := m.Bounds()
		b.Extend(cb.Min)
		b.Extend(cb.Max)
	}
	return b
}

// ComponentRecord is the serialized form of a Component.
type ComponentRecord struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Transform geom.Transform `json:"transform"`
	Part      Record         `json:"part"`
}

// AssemblyRecord is the serialized form of an Assembly.
type AssemblyRecord struct {
	Name       string            `json:"name"`
	Components []ComponentRecord `json:"components"`
}

// Serialize returns the assembly as a record.
func (a *Assembly) Serialize() AssemblyRecord {
	rec := AssemblyRecord{Name: a.Name, Components: make([]ComponentRecord, len(a.components))}
	for i, c := range a.components {
		rec.Components[i] = ComponentRecord{ID: c.ID, Name: c.Name, Transform: c.Transform, Part: c.Part.Serialize()}
	}
	return rec
}

// DeserializeAssembly rebuilds an assembly; every part gets opts.
func DeserializeAssembly(rec AssemblyRecord, opts Options) (*Assembly, error) {
	a := NewAssembly(rec.Name)
	for _, cr := range rec.Components {
		p, err := Deserialize(cr.Part, opts)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", cr.ID, err)
		}
		a.components = append(a.components, &Component{ID: cr.ID, Name: cr.Name, Part: p, Transform: cr.Transform})
	}
	return a, nil
}

// MarshalJSON implements json.Marshaler.
func (a *Assembly) MarshalJSON() ([]byte, error) { return json.Marshal(a.Serialize()) }

// UnmarshalJSON implements json.Unmarshaler.
func (a *Assembly) UnmarshalJSON(data []byte) error {
	var rec AssemblyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	out, err := DeserializeAssembly(rec, Options{})
	if err != nil {
		return err
	}
	*a = *out
	return nil
}
