// Package feature implements the parametric feature history: sketch,
// extrude and revolve features held in a dependency-ordered Tree.
//
// A Tree caches one Result per feature. Any structural change or
// MarkModified reruns the tree from the affected index; features whose
// dependencies are missing, errored or suppressed record
// "Dependencies not satisfied" instead of executing. Extrude and revolve
// features combine with the nearest upstream solid through a pluggable
// boolean kernel (csg by default).
package feature
