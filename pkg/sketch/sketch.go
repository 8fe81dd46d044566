package sketch

import (
	"encoding/json"
	"time"
)

// Sketch is a named scene with timestamps, the unit a sketch feature owns.
type Sketch struct {
	Name     string
	Scene    *Scene
	Created  time.Time
	Modified time.Time
}

func now() time.Time { return time.Now().UTC().Round(0) }

// New returns an empty sketch.
func New(name string, opts ...SceneOption) *Sketch {
	t := now()
	return &Sketch{Name: name, Scene: NewScene(opts...), Created: t, Modified: t}
}

// Touch bumps the modification time.
func (sk *Sketch) Touch() { sk.Modified = now() }

// Profiles extracts the sketch's profiles.
func (sk *Sketch) Profiles() []Profile { return ExtractProfiles(sk.Scene) }

// ClosedProfiles extracts only closed profiles.
func (sk *Sketch) ClosedProfiles() []Profile { return ClosedProfiles(sk.Scene) }

// HasConstraints reports whether solving could move anything.
func (sk *Sketch) HasConstraints() bool { return len(sk.Scene.constraints) > 0 }

// SketchRecord is the serialized form of a Sketch.
type SketchRecord struct {
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
	Scene    Record    `json:"scene"`
}

// Serialize returns the sketch as a record.
func (sk *Sketch) Serialize() SketchRecord {
	return SketchRecord{Name: sk.Name, Created: sk.Created, Modified: sk.Modified, Scene: sk.Scene.Serialize()}
}

// DeserializeSketch rebuilds a sketch from a record.
func DeserializeSketch(rec SketchRecord, opts ...SceneOption) (*Sketch, error) {
	s, err := Deserialize(rec.Scene, opts...)
	if err != nil {
		return nil, err
	}
	return &Sketch{Name: rec.Name, Scene: s, Created: rec.Created, Modified: rec.Modified}, nil
}

// MarshalJSON implements json.Marshaler.
func (sk *Sketch) MarshalJSON() ([]byte, error) { return json.Marshal(sk.Serialize()) }

// UnmarshalJSON implements json.Unmarshaler.
func (sk *Sketch) UnmarshalJSON(data []byte) error {
	var rec SketchRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	out, err := DeserializeSketch(rec)
	if err != nil {
		return err
	}
	*sk = *out
	return nil
}
