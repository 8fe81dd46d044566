package feature

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"github.com/Jozo132/modeller-sub001/pkg/sketch"
)

// Record is the serialized form of a Feature. Common fields are always
// present; the remaining fields depend on Type.
type Record struct {
	ID           ID        `json:"id"`
	Name         string    `json:"name"`
	Type         Type      `json:"type"`
	Suppressed   bool      `json:"suppressed"`
	Visible      bool      `json:"visible"`
	Dependencies []ID      `json:"dependencies"`
	Children     []ID      `json:"children"`
	Created      time.Time `json:"created"`
	Modified     time.Time `json:"modified"`

	// sketch
	Sketch *sketch.SketchRecord `json:"sketch,omitempty"`
	Plane  *geom.Plane          `json:"plane,omitempty"`

	// extrude and revolve
	SketchFeatureID ID        `json:"sketchFeatureId,omitempty"`
	Operation       Operation `json:"operation,omitempty"`

	// extrude
	Distance  float64 `json:"distance,omitempty"`
	Direction float64 `json:"direction,omitempty"`
	Symmetric bool    `json:"symmetric,omitempty"`

	// revolve
	Angle    float64 `json:"angle,omitempty"`
	Segments int     `json:"segments,omitempty"`
	Axis     Axis    `json:"axis,omitempty"`
}

// TreeRecord is the serialized form of a Tree.
type TreeRecord struct {
	Features []Record `json:"features"`
}

// Serialize returns the feature as a record.
func (f *Feature) Serialize() Record {
	rec := Record{
		ID:           f.ID,
		Name:         f.Name,
		Type:         f.Type,
		Suppressed:   f.Suppressed,
		Visible:      f.Visible,
		Dependencies: append([]ID{}, f.Dependencies...),
		Children:     append([]ID{}, f.Children...),
		Created:      f.Created,
		Modified:     f.Modified,
	}
	switch d := f.Data.(type) {
	case *SketchData:
		plane := d.Plane
		rec.Plane = &plane
		if d.Sketch != nil {
			sk := d.Sketch.Serialize()
			rec.Sketch = &sk
		}
	case *ExtrudeData:
		rec.SketchFeatureID = d.SketchFeatureID
		rec.Operation = d.Operation
		rec.Distance = d.Distance
		rec.Direction = d.Direction
		rec.Symmetric = d.Symmetric
	case *RevolveData:
		rec.SketchFeatureID = d.SketchFeatureID
		rec.Operation = d.Operation
		rec.Angle = d.Angle
		rec.Segments = d.Segments
		rec.Axis = d.Axis
	}
	return rec
}

// Serialize returns the tree as a record, in tree order.
func (t *Tree) Serialize() TreeRecord {
	out := TreeRecord{Features: make([]Record, len(t.features))}
	for i, f := range t.features {
		out.Features[i] = f.Serialize()
	}
	return out
}

// Factory builds a Feature of the right kind from a record.
type Factory func(rec Record) (*Feature, error)

// DefaultFactory builds sketch, extrude and revolve features. Sketches
// get the variable table of opts.
func DefaultFactory(opts ...sketch.SceneOption) Factory {
	return func(rec Record) (*Feature, error) {
		f := &Feature{
			ID:           rec.ID,
			Name:         rec.Name,
			Type:         rec.Type,
			Suppressed:   rec.Suppressed,
			Visible:      rec.Visible,
			Dependencies: append([]ID(nil), rec.Dependencies...),
			Children:     append([]ID(nil), rec.Children...),
			Created:      rec.Created,
			Modified:     rec.Modified,
		}
		switch rec.Type {
		case TypeSketch:
			d := &SketchData{Plane: geom.PlaneXY}
			if rec.Plane != nil {
				d.Plane = *rec.Plane
			}
			if rec.Sketch != nil {
				sk, err := sketch.DeserializeSketch(*rec.Sketch, opts...)
				if err != nil {
					return nil, fmt.Errorf("feature %d: %w", rec.ID, err)
				}
				d.Sketch = sk
			} else {
				d.Sketch = sketch.New(rec.Name, opts...)
			}
			f.Data = d
		case TypeExtrude:
			f.Data = &ExtrudeData{
				SketchFeatureID: rec.SketchFeatureID,
				ExtrudeParams: ExtrudeParams{
					Distance:  rec.Distance,
					Direction: rec.Direction,
					Symmetric: rec.Symmetric,
					Operation: rec.Operation,
				},
			}
		case TypeRevolve:
			f.Data = &RevolveData{
				SketchFeatureID: rec.SketchFeatureID,
				RevolveParams: RevolveParams{
					Angle:     rec.Angle,
					Segments:  rec.Segments,
					Axis:      rec.Axis,
					Operation: rec.Operation,
				},
			}
		default:
			return nil, fmt.Errorf("feature %d: unknown type %s", rec.ID, rec.Type)
		}
		return f, nil
	}
}

// Deserialize rebuilds a tree from a record using factory, then executes
// it. References are checked in record order: every dependency must name
// an earlier feature.
func Deserialize(rec TreeRecord, factory Factory, opts ...Option) (*Tree, error) {
	if factory == nil {
		factory = DefaultFactory()
	}
	t := NewTree(opts...)
	for _, r := range rec.Features {
		if r.ID == 0 {
			return nil, fmt.Errorf("feature: record %q has no id", r.Name)
		}
		if _, dup := t.index[r.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, r.ID)
		}
		for _, dep := range r.Dependencies {
			if dep == r.ID {
				return nil, fmt.Errorf("%w: feature %d depends on itself", ErrCycle, r.ID)
			}
			if _, ok := t.index[dep]; !ok {
				return nil, &DependencyError{Feature: r.ID, Ref: dep}
			}
		}
		f, err := factory(r)
		if err != nil {
			return nil, err
		}
		t.index[f.ID] = len(t.features)
		t.features = append(t.features, f)
		reserveID(f.ID)
	}
	for _, e := range validateSources(t.features) {
		if e.Severity == SeverityError {
			return nil, fmt.Errorf("feature: %s", e.Error())
		}
	}
	t.ExecuteAll()
	return t, nil
}

// MarshalJSON implements json.Marshaler.
func (t *Tree) MarshalJSON() ([]byte, error) { return json.Marshal(t.Serialize()) }

// UnmarshalJSON implements json.Unmarshaler. The tree keeps its kernel
// and options.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var rec TreeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	var opts []Option
	if t.kernel != nil {
		opts = append(opts, WithKernel(t.kernel), WithSolveOptions(t.solve))
	}
	if t.logger != nil {
		opts = append(opts, WithLogger(t.logger))
	}
	out, err := Deserialize(rec, DefaultFactory(), opts...)
	if err != nil {
		return err
	}
	*t = *out
	return nil
}
