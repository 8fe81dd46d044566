// Package sketch implements the 2D sketch graph: shared-point primitives
// owned by a Scene, the constraint family with its residuals, the iterative
// relaxation solver, the DOF analyzer and closed-profile extraction.
//
// Primitives and constraints refer to points by ID. The Scene is the only
// owner; references are resolved on access, and mutations that would leave a
// dangling reference are refused.
package sketch
