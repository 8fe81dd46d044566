package sketch

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPrimitive is returned when an ID does not name a primitive
	// of the expected kind in the scene.
	ErrUnknownPrimitive = errors.New("sketch: unknown primitive")
	// ErrPointInUse is returned when removing a point still referenced by
	// a shape.
	ErrPointInUse = errors.New("sketch: point still referenced")
	// ErrSamePoint is returned when an operation would give a segment the
	// same point at both ends.
	ErrSamePoint = errors.New("sketch: segment endpoints would coincide")
	// ErrDanglingReference is returned when a serialized scene references
	// a primitive it does not contain.
	ErrDanglingReference = errors.New("sketch: dangling reference")
)

// ReferenceError names the record that holds a bad reference.
type ReferenceError struct {
	Kind string // "segment", "constraint", ...
	ID   ID     // the record holding the reference
	Ref  ID     // the missing target
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("sketch: %s %d references missing primitive %d", e.Kind, e.ID, e.Ref)
}

func (e *ReferenceError) Unwrap() error { return ErrDanglingReference }
