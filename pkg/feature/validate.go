package feature

import (
	"fmt"

	"github.com/samber/lo"
)

// ValidationSeverity indicates whether a finding makes the tree unusable
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // breaks recalculation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	FeatureID ID                 // which feature has the problem (zero if tree-level)
	Message   string             // human-readable description
	Severity  ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.FeatureID == 0 {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] feature %d: %s", e.Severity, e.FeatureID, e.Message)
}

// Validate runs the structural checks on the tree and returns every
// finding. An empty slice means the tree is valid. Validate never mutates
// the tree.
func (t *Tree) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateIDs(t.features)...)
	errs = append(errs, validateCycles(t.features)...)
	errs = append(errs, validateOrder(t.features)...)
	errs = append(errs, validateSources(t.features)...)
	errs = append(errs, validateChildren(t.features)...)
	return errs
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []ValidationError) bool {
	return lo.SomeBy(errs, func(e ValidationError) bool { return e.Severity == SeverityError })
}

// validateIDs flags zero and repeated feature IDs.
func validateIDs(features []*Feature) []ValidationError {
	var errs []ValidationError
	seen := make(map[ID]bool, len(features))
	for _, f := range features {
		if f.ID == 0 {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("feature %q has no id", f.Name),
				Severity: SeverityError,
			})
			continue
		}
		if seen[f.ID] {
			errs = append(errs, ValidationError{
				FeatureID: f.ID,
				Message:   "duplicate feature id",
				Severity:  SeverityError,
			})
		}
		seen[f.ID] = true
	}
	return errs
}

// validateCycles checks for dependency cycles using DFS with 3-color
// marking. Reaching a gray feature means the current path loops.
func validateCycles(features []*Feature) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	byID := make(map[ID]*Feature, len(features))
	for _, f := range features {
		byID[f.ID] = f
	}
	color := make(map[ID]int)
	var errs []ValidationError

	var visit func(id ID) bool
	visit = func(id ID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				FeatureID: id,
				Message:   fmt.Sprintf("cycle detected: feature %d is part of a cycle", id),
				Severity:  SeverityError,
			})
			return true
		}
		color[id] = gray
		f, ok := byID[id]
		if !ok {
			// Missing dependency; reported by validateOrder.
			color[id] = black
			return false
		}
		for _, dep := range f.Dependencies {
			if visit(dep) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for _, f := range features {
		if color[f.ID] == white && visit(f.ID) {
			break
		}
	}
	return errs
}

// validateOrder checks that every dependency exists and precedes its
// dependent.
func validateOrder(features []*Feature) []ValidationError {
	var errs []ValidationError
	pos := make(map[ID]int, len(features))
	for i, f := range features {
		if _, ok := pos[f.ID]; !ok {
			pos[f.ID] = i
		}
	}
	for i, f := range features {
		for _, dep := range f.Dependencies {
			j, ok := pos[dep]
			switch {
			case !ok:
				errs = append(errs, ValidationError{
					FeatureID: f.ID,
					Message:   fmt.Sprintf("dependency %d does not exist", dep),
					Severity:  SeverityError,
				})
			case j >= i:
				errs = append(errs, ValidationError{
					FeatureID: f.ID,
					Message:   fmt.Sprintf("dependency %d appears after the feature", dep),
					Severity:  SeverityError,
				})
			}
		}
	}
	return errs
}

// validateSources checks that extrude and revolve features reference a
// sketch feature they also declare as a dependency.
func validateSources(features []*Feature) []ValidationError {
	var errs []ValidationError
	byID := make(map[ID]*Feature, len(features))
	for _, f := range features {
		byID[f.ID] = f
	}
	for _, f := range features {
		var src ID
		switch d := f.Data.(type) {
		case *ExtrudeData:
			src = d.SketchFeatureID
		case *RevolveData:
			src = d.SketchFeatureID
		case *SketchData:
			if d.Sketch == nil {
				errs = append(errs, ValidationError{
					FeatureID: f.ID,
					Message:   "sketch feature has no sketch",
					Severity:  SeverityError,
				})
			}
			continue
		case nil:
			errs = append(errs, ValidationError{
				FeatureID: f.ID,
				Message:   "feature has no data",
				Severity:  SeverityError,
			})
			continue
		default:
			continue
		}
		s, ok := byID[src]
		if !ok {
			continue // reported by validateOrder when declared
		}
		if s.Type != TypeSketch {
			errs = append(errs, ValidationError{
				FeatureID: f.ID,
				Message:   fmt.Sprintf("source %d is a %s, not a sketch", src, s.Type),
				Severity:  SeverityError,
			})
		}
		if !f.DependsOn(src) {
			errs = append(errs, ValidationError{
				FeatureID: f.ID,
				Message:   fmt.Sprintf("source sketch %d is not a declared dependency", src),
				Severity:  SeverityWarning,
			})
		}
	}
	return errs
}

// validateChildren flags child links to features that are gone.
func validateChildren(features []*Feature) []ValidationError {
	var errs []ValidationError
	ids := make(map[ID]bool, len(features))
	for _, f := range features {
		ids[f.ID] = true
	}
	for _, f := range features {
		for _, c := range f.Children {
			if !ids[c] {
				errs = append(errs, ValidationError{
					FeatureID: f.ID,
					Message:   fmt.Sprintf("child reference %d does not exist", c),
					Severity:  SeverityWarning,
				})
			}
		}
	}
	return errs
}
