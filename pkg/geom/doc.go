// Package geom provides the vector, plane and mesh value types shared by the
// sketch, feature and kernel packages. Vectors are gonum spatial vectors so
// the r2/r3 helper functions apply directly.
package geom
