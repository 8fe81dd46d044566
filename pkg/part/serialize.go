package part

import (
	"encoding/json"

	"github.com/Jozo132/modeller-sub001/pkg/feature"
)

// Record is the serialized form of a Part.
type Record struct {
	Name         string             `json:"name"`
	Material     *Material          `json:"material,omitempty"`
	ActiveSketch feature.ID         `json:"activeSketchId,omitempty"`
	Features     feature.TreeRecord `json:"featureTree"`
}

// Serialize returns the part as a record.
func (p *Part) Serialize() Record {
	rec := Record{Name: p.Name, ActiveSketch: p.ActiveSketch, Features: p.tree.Serialize()}
	if p.Material != nil {
		m := *p.Material
		rec.Material = &m
	}
	return rec
}

// Deserialize rebuilds a part from a record and recalculates it.
func Deserialize(rec Record, opts Options) (*Part, error) {
	tree, err := feature.Deserialize(rec.Features, feature.DefaultFactory(opts.sceneOptions()...), opts.treeOptions()...)
	if err != nil {
		return nil, err
	}
	p := New(rec.Name, opts)
	p.tree = tree
	p.ActiveSketch = rec.ActiveSketch
	if rec.Material != nil {
		m := *rec.Material
		p.Material = &m
	}
	p.refresh()
	return p, nil
}

// MarshalJSON implements json.Marshaler.
func (p *Part) MarshalJSON() ([]byte, error) { return json.Marshal(p.Serialize()) }

// UnmarshalJSON implements json.Unmarshaler. The part keeps its options.
func (p *Part) UnmarshalJSON(data []byte) error {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	out, err := Deserialize(rec, p.opts)
	if err != nil {
		return err
	}
	*p = *out
	return nil
}
