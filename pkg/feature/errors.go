package feature

import (
	"errors"
	"fmt"
)

var (
	// ErrFeatureNotFound is returned when an ID does not name a feature in
	// the tree.
	ErrFeatureNotFound = errors.New("feature: not found")
	// ErrMissingDependency is returned when a feature declares a dependency
	// the tree does not hold.
	ErrMissingDependency = errors.New("feature: missing dependency")
	// ErrHasDependents is returned when removing a feature other features
	// depend on.
	ErrHasDependents = errors.New("feature: feature has dependents")
	// ErrInvalidOrder is returned when an insert or reorder would place a
	// feature before one of its dependencies or after one of its dependents.
	ErrInvalidOrder = errors.New("feature: invalid order")
	// ErrCycle is returned when dependencies form a cycle.
	ErrCycle = errors.New("feature: dependency cycle")
	// ErrDuplicateID is returned when two features share an ID.
	ErrDuplicateID = errors.New("feature: duplicate id")
)

// errDependencies is the message recorded for features that could not run
// because an upstream result is unusable.
const errDependencies = "Dependencies not satisfied"

// DependencyError names the feature holding a reference that cannot be
// satisfied.
type DependencyError struct {
	Feature ID
	Ref     ID
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("feature: feature %d depends on missing feature %d", e.Feature, e.Ref)
}

func (e *DependencyError) Unwrap() error { return ErrMissingDependency }
