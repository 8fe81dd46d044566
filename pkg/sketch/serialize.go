package sketch

import (
	"encoding/json"
	"fmt"
)

// Record is the serialized form of a Scene.
type Record struct {
	Points      []Point      `json:"points"`
	Segments    []Segment    `json:"segments"`
	Circles     []Circle     `json:"circles"`
	Arcs        []Arc        `json:"arcs"`
	Texts       []Text       `json:"texts"`
	Dimensions  []Dimension  `json:"dimensions"`
	Constraints []Constraint `json:"constraints"`
}

// Serialize returns a deep copy of the scene's primitives.
func (s *Scene) Serialize() Record {
	rec := Record{
		Points:      make([]Point, 0, len(s.points)),
		Segments:    make([]Segment, 0, len(s.segments)),
		Circles:     make([]Circle, 0, len(s.circles)),
		Arcs:        make([]Arc, 0, len(s.arcs)),
		Texts:       make([]Text, 0, len(s.texts)),
		Dimensions:  make([]Dimension, 0, len(s.dimensions)),
		Constraints: make([]Constraint, 0, len(s.constraints)),
	}
	for _, p := range s.points {
		rec.Points = append(rec.Points, *p)
	}
	for _, g := range s.segments {
		rec.Segments = append(rec.Segments, *g)
	}
	for _, c := range s.circles {
		rec.Circles = append(rec.Circles, *c)
	}
	for _, a := range s.arcs {
		rec.Arcs = append(rec.Arcs, *a)
	}
	for _, t := range s.texts {
		rec.Texts = append(rec.Texts, *t)
	}
	for _, d := range s.dimensions {
		cp := *d
		if d.Formula != nil {
			f := *d.Formula
			cp.Formula = &f
		}
		rec.Dimensions = append(rec.Dimensions, cp)
	}
	for _, c := range s.constraints {
		rec.Constraints = append(rec.Constraints, *c.clone())
	}
	return rec
}

// Deserialize rebuilds a scene from a record in one pass, preserving IDs.
// A reference to a missing primitive yields a *ReferenceError.
func Deserialize(rec Record, opts ...SceneOption) (*Scene, error) {
	s := NewScene(opts...)
	var maxID ID
	put := func(id ID, v any) error {
		if id <= 0 {
			return fmt.Errorf("sketch: invalid primitive id %d", id)
		}
		if _, dup := s.index[id]; dup {
			return fmt.Errorf("sketch: duplicate primitive id %d", id)
		}
		s.index[id] = v
		maxID = max(maxID, id)
		return nil
	}
	needPoint := func(kind string, owner, ref ID) error {
		if _, ok := s.Point(ref); !ok {
			return &ReferenceError{Kind: kind, ID: owner, Ref: ref}
		}
		return nil
	}

	for i := range rec.Points {
		p := rec.Points[i]
		if err := put(p.ID, &p); err != nil {
			return nil, err
		}
		s.points = append(s.points, &p)
	}
	for i := range rec.Segments {
		g := rec.Segments[i]
		if err := needPoint("segment", g.ID, g.P1); err != nil {
			return nil, err
		}
		if err := needPoint("segment", g.ID, g.P2); err != nil {
			return nil, err
		}
		if g.P1 == g.P2 {
			return nil, fmt.Errorf("segment %d: %w", g.ID, ErrSamePoint)
		}
		if err := put(g.ID, &g); err != nil {
			return nil, err
		}
		s.segments = append(s.segments, &g)
	}
	for i := range rec.Circles {
		c := rec.Circles[i]
		if err := needPoint("circle", c.ID, c.Center); err != nil {
			return nil, err
		}
		if err := put(c.ID, &c); err != nil {
			return nil, err
		}
		s.circles = append(s.circles, &c)
	}
	for i := range rec.Arcs {
		a := rec.Arcs[i]
		if err := needPoint("arc", a.ID, a.Center); err != nil {
			return nil, err
		}
		if err := put(a.ID, &a); err != nil {
			return nil, err
		}
		s.arcs = append(s.arcs, &a)
	}
	for i := range rec.Texts {
		t := rec.Texts[i]
		if err := put(t.ID, &t); err != nil {
			return nil, err
		}
		s.texts = append(s.texts, &t)
	}
	for i := range rec.Dimensions {
		d := rec.Dimensions[i]
		for _, src := range []ID{d.SourceA, d.SourceB} {
			if _, ok := s.index[src]; src != 0 && !ok {
				return nil, &ReferenceError{Kind: "dimension", ID: d.ID, Ref: src}
			}
		}
		if d.Formula != nil {
			f := *d.Formula
			d.Formula = &f
		}
		if err := put(d.ID, &d); err != nil {
			return nil, err
		}
		s.dimensions = append(s.dimensions, &d)
	}
	for i := range rec.Constraints {
		c := rec.Constraints[i].clone()
		if err := s.validateConstraint(c); err != nil {
			return nil, err
		}
		if err := put(c.ID, c); err != nil {
			return nil, err
		}
		s.constraints = append(s.constraints, c)
	}
	s.nextID = maxID + 1
	return s, nil
}

// MarshalJSON implements json.Marshaler.
func (s *Scene) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Serialize())
}

// UnmarshalJSON implements json.Unmarshaler. The receiver keeps its
// variable table and logger.
func (s *Scene) UnmarshalJSON(data []byte) error {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	ns, err := Deserialize(rec, WithVariables(s.vars), WithLogger(s.logger))
	if err != nil {
		return err
	}
	*s = *ns
	return nil
}
