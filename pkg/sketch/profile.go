package sketch

import (
	"math"
	"sort"

	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"gonum.org/v1/gonum/spatial/r2"
)

// CircleSegments is the number of chords a circle is sampled into.
const CircleSegments = 32

// arcEndTolerance is how close an arc end must be to a point to join it.
const arcEndTolerance = DefaultMergeTolerance

// Profile is an ordered chain of sketch vertices. A closed profile repeats
// its first point at the end.
type Profile struct {
	Points   []geom.Vec2 `json:"points"`
	Closed   bool        `json:"closed"`
	PointIDs []ID        `json:"pointIds,omitempty"`
}

// Ring returns the profile's vertices without the closing duplicate.
func (p Profile) Ring() []geom.Vec2 {
	if p.Closed && len(p.Points) > 1 {
		return p.Points[:len(p.Points)-1]
	}
	return p.Points
}

// Area returns the signed area of a closed profile, positive when
// counter-clockwise, and zero for open chains.
func (p Profile) Area() float64 {
	if !p.Closed {
		return 0
	}
	return geom.SignedArea(p.Ring())
}

// edge is a traversable outline piece between two sketch points.
type edge struct {
	id   ID
	a, b ID
	pts  []geom.Vec2 // from a to b inclusive
}

func (e edge) other(p ID) ID {
	if e.a == p {
		return e.b
	}
	return e.a
}

// from returns the sampled points oriented to start at p.
func (e edge) from(p ID) []geom.Vec2 {
	if e.a == p {
		return e.pts
	}
	return geom.Reverse2(e.pts)
}

// ExtractProfiles returns the closed loops and open chains formed by the
// scene's non-construction geometry. Each circle becomes its own closed
// profile. Segments and arcs sharing end points are chained, always
// continuing along the lowest-ID unused edge. Nested loops are returned as
// separate profiles; no hole detection is done.
func ExtractProfiles(s *Scene) []Profile {
	var out []Profile
	for _, c := range s.circles {
		if c.Construction {
			continue
		}
		ctr, ok := s.Point(c.Center)
		if !ok {
			continue
		}
		out = append(out, Profile{Points: sampleCircle(ctr.Vec(), c.Radius), Closed: true})
	}

	edges := s.profileEdges()
	adj := make(map[ID][]int)
	for i, e := range edges {
		adj[e.a] = append(adj[e.a], i)
		if e.b != e.a {
			adj[e.b] = append(adj[e.b], i)
		}
	}
	used := make([]bool, len(edges))
	nextEdge := func(p ID) (int, bool) {
		for _, i := range adj[p] {
			if !used[i] {
				return i, true
			}
		}
		return 0, false
	}

	for i, e := range edges {
		if used[i] {
			continue
		}
		used[i] = true
		ids := []ID{e.a, e.b}
		pts := append([]geom.Vec2(nil), e.pts...)
		start, cur := e.a, e.b
		closed := start == cur
		for !closed {
			j, ok := nextEdge(cur)
			if !ok {
				break
			}
			used[j] = true
			seg := edges[j].from(cur)
			pts = append(pts, seg[1:]...)
			cur = edges[j].other(cur)
			ids = append(ids, cur)
			closed = cur == start
		}
		if !closed {
			// Extend the open chain backwards from its start.
			for {
				j, ok := nextEdge(start)
				if !ok {
					break
				}
				used[j] = true
				seg := geom.Reverse2(edges[j].from(start))
				pts = append(append([]geom.Vec2(nil), seg[:len(seg)-1]...), pts...)
				start = edges[j].other(start)
				ids = append([]ID{start}, ids...)
			}
		}
		out = append(out, Profile{Points: pts, Closed: closed, PointIDs: ids})
	}
	return out
}

// ClosedProfiles returns only the closed profiles of the scene.
func ClosedProfiles(s *Scene) []Profile {
	var out []Profile
	for _, p := range ExtractProfiles(s) {
		if p.Closed {
			out = append(out, p)
		}
	}
	return out
}

func (s *Scene) profileEdges() []edge {
	var edges []edge
	for _, g := range s.segments {
		if g.Construction {
			continue
		}
		a, b, ok := s.segmentEnds(g)
		if !ok {
			continue
		}
		edges = append(edges, edge{id: g.ID, a: g.P1, b: g.P2, pts: []geom.Vec2{a, b}})
	}
	for _, arc := range s.arcs {
		if arc.Construction || arc.Sweep() < 1e-12 {
			continue
		}
		ctr, ok := s.Point(arc.Center)
		if !ok {
			continue
		}
		start, end := arc.Endpoints(ctr.Vec())
		pa, okA := s.FindClosestPoint(start.X, start.Y, arcEndTolerance)
		pb, okB := s.FindClosestPoint(end.X, end.Y, arcEndTolerance)
		if !okA || !okB {
			continue
		}
		pts := sampleArc(ctr.Vec(), arc.Radius, arc.StartAngle, arc.Sweep())
		pts[0] = pa.Vec()
		pts[len(pts)-1] = pb.Vec()
		edges = append(edges, edge{id: arc.ID, a: pa.ID, b: pb.ID, pts: pts})
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].id < edges[j].id })
	return edges
}

// sampleCircle returns CircleSegments counter-clockwise points plus the
// closing duplicate.
func sampleCircle(c geom.Vec2, r float64) []geom.Vec2 {
	pts := make([]geom.Vec2, 0, CircleSegments+1)
	for i := 0; i < CircleSegments; i++ {
		t := 2 * math.Pi * float64(i) / CircleSegments
		pts = append(pts, r2.Add(c, geom.Vec2{X: r * math.Cos(t), Y: r * math.Sin(t)}))
	}
	return append(pts, pts[0])
}

func sampleArc(c geom.Vec2, r, start, sweep float64) []geom.Vec2 {
	n := int(math.Ceil(sweep / (2 * math.Pi) * CircleSegments))
	n = max(n, 4)
	pts := make([]geom.Vec2, 0, n+1)
	for i := 0; i <= n; i++ {
		t := start + sweep*float64(i)/float64(n)
		pts = append(pts, r2.Add(c, geom.Vec2{X: r * math.Cos(t), Y: r * math.Sin(t)}))
	}
	return pts
}
