package geom

import (
	"encoding/json"
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDegeneratePlane is returned when a plane cannot be built from the
// given normal.
var ErrDegeneratePlane = errors.New("geom: degenerate plane normal")

// Plane is an orthonormal sketch frame embedding 2D sketch coordinates into
// world space. XAxis, YAxis and Normal are unit length and mutually
// perpendicular with YAxis = Normal x XAxis.
type Plane struct {
	Origin Vec3
	Normal Vec3
	XAxis  Vec3
	YAxis  Vec3
}

// NewPlane builds an orthonormal plane from an origin, a normal and a hint
// for the X axis. The X hint is projected into the plane; when it is parallel
// to the normal an arbitrary perpendicular axis is chosen.
func NewPlane(origin, normal, xHint Vec3) (Plane, error) {
	n := Unit(normal, Vec3{})
	if n == (Vec3{}) {
		return Plane{}, ErrDegeneratePlane
	}
	x := r3.Sub(xHint, r3.Scale(r3.Dot(xHint, n), n))
	if r3.Norm(x) < 1e-9 {
		x = perpendicular(n)
	}
	x = Unit(x, perpendicular(n))
	y := Unit(r3.Cross(n, x), Vec3{})
	return Plane{Origin: origin, Normal: n, XAxis: x, YAxis: y}, nil
}

// perpendicular returns some unit vector perpendicular to n.
func perpendicular(n Vec3) Vec3 {
	// Cross with the world axis least aligned with n.
	axis := Vec3{X: 1}
	if math.Abs(n.X) > 0.9 {
		axis = Vec3{Y: 1}
	}
	return Unit(r3.Cross(axis, n), Vec3{Z: 1})
}

// Origin planes. YAxis follows from Normal x XAxis.
var (
	PlaneXY = Plane{Normal: Vec3{Z: 1}, XAxis: Vec3{X: 1}, YAxis: Vec3{Y: 1}}
	PlaneXZ = Plane{Normal: Vec3{Y: -1}, XAxis: Vec3{X: 1}, YAxis: Vec3{Z: 1}}
	PlaneYZ = Plane{Normal: Vec3{X: 1}, XAxis: Vec3{Y: 1}, YAxis: Vec3{Z: 1}}
)

// PlaneFromFace derives a sketch plane from a picked mesh face. The origin
// is the face centroid, the X axis follows the first non-degenerate edge and
// the frame is re-orthogonalized.
func PlaneFromFace(f Face) (Plane, error) {
	if len(f.Vertices) < 3 {
		return Plane{}, ErrDegeneratePlane
	}
	var c Vec3
	for _, v := range f.Vertices {
		c = r3.Add(c, v)
	}
	c = r3.Scale(1/float64(len(f.Vertices)), c)

	normal := f.Normal
	if r3.Norm(normal) < 1e-9 {
		normal = PolygonNormal(f.Vertices)
	}
	var x Vec3
	for i := range f.Vertices {
		e := r3.Sub(f.Vertices[(i+1)%len(f.Vertices)], f.Vertices[i])
		if r3.Norm(e) > 1e-9 {
			x = e
			break
		}
	}
	return NewPlane(c, normal, x)
}

// ToWorld lifts sketch coordinates (u, v) onto the plane.
func (p Plane) ToWorld(u, v float64) Vec3 {
	return r3.Add(p.Origin, r3.Add(r3.Scale(u, p.XAxis), r3.Scale(v, p.YAxis)))
}

// ToLocal projects a world point into sketch coordinates.
func (p Plane) ToLocal(w Vec3) Vec2 {
	d := r3.Sub(w, p.Origin)
	return Vec2{X: r3.Dot(d, p.XAxis), Y: r3.Dot(d, p.YAxis)}
}

// IsOrthonormal reports whether the frame axes are unit length and mutually
// perpendicular within tol.
func (p Plane) IsOrthonormal(tol float64) bool {
	unit := func(v Vec3) bool { return math.Abs(r3.Norm(v)-1) <= tol }
	return unit(p.Normal) && unit(p.XAxis) && unit(p.YAxis) &&
		math.Abs(r3.Dot(p.Normal, p.XAxis)) <= tol &&
		math.Abs(r3.Dot(p.Normal, p.YAxis)) <= tol &&
		math.Abs(r3.Dot(p.XAxis, p.YAxis)) <= tol
}

// vecRecord is the persisted form of a vector: {x, y, z}.
type vecRecord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func toRecord(v Vec3) vecRecord   { return vecRecord{X: v.X, Y: v.Y, Z: v.Z} }
func fromRecord(r vecRecord) Vec3 { return Vec3{X: r.X, Y: r.Y, Z: r.Z} }

type planeRecord struct {
	Origin vecRecord `json:"origin"`
	Normal vecRecord `json:"normal"`
	XAxis  vecRecord `json:"xAxis"`
	YAxis  vecRecord `json:"yAxis"`
}

// MarshalJSON writes the plane as {origin, normal, xAxis, yAxis}.
func (p Plane) MarshalJSON() ([]byte, error) {
	return json.Marshal(planeRecord{
		Origin: toRecord(p.Origin),
		Normal: toRecord(p.Normal),
		XAxis:  toRecord(p.XAxis),
		YAxis:  toRecord(p.YAxis),
	})
}

// UnmarshalJSON reads a plane record. The axes are re-orthogonalized so a
// hand-edited record still yields a valid frame.
func (p *Plane) UnmarshalJSON(data []byte) error {
	var rec planeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	pl, err := NewPlane(fromRecord(rec.Origin), fromRecord(rec.Normal), fromRecord(rec.XAxis))
	if err != nil {
		return err
	}
	*p = pl
	return nil
}
