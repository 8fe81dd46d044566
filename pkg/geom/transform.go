package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is a rigid placement: rotation by Euler angles in degrees
// (applied X, then Y, then Z) followed by a translation.
type Transform struct {
	Translation Vec3 `json:"translation"`
	Rotation    Vec3 `json:"rotation"`
}

// Identity is the no-op transform.
var Identity = Transform{}

// IsIdentity reports whether t leaves points unchanged.
func (t Transform) IsIdentity() bool {
	return t == Identity
}

// ApplyDirection rotates v without translating it.
func (t Transform) ApplyDirection(v Vec3) Vec3 {
	v = rotateX(v, t.Rotation.X*math.Pi/180)
	v = rotateY(v, t.Rotation.Y*math.Pi/180)
	return rotateZ(v, t.Rotation.Z*math.Pi/180)
}

// Apply rotates then translates p.
func (t Transform) Apply(p Vec3) Vec3 {
	return r3.Add(t.ApplyDirection(p), t.Translation)
}

func rotateX(v Vec3, a float64) Vec3 {
	if a == 0 {
		return v
	}
	s, c := math.Sincos(a)
	return Vec3{X: v.X, Y: c*v.Y - s*v.Z, Z: s*v.Y + c*v.Z}
}

func rotateY(v Vec3, a float64) Vec3 {
	if a == 0 {
		return v
	}
	s, c := math.Sincos(a)
	return Vec3{X: c*v.X + s*v.Z, Y: v.Y, Z: -s*v.X + c*v.Z}
}

func rotateZ(v Vec3, a float64) Vec3 {
	if a == 0 {
		return v
	}
	s, c := math.Sincos(a)
	return Vec3{X: c*v.X - s*v.Y, Y: s*v.X + c*v.Y, Z: v.Z}
}
