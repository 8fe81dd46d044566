package sketch

import (
	"gonum.org/v1/gonum/mat"
)

// axisLocks records which coordinates of each point are determined.
type axisLocks struct {
	x, y map[ID]bool
}

func (l axisLocks) full(id ID) bool { return l.x[id] && l.y[id] }

func (l axisLocks) lockX(id ID) bool {
	if l.x[id] {
		return false
	}
	l.x[id] = true
	return true
}

func (l axisLocks) lockY(id ID) bool {
	if l.y[id] {
		return false
	}
	l.y[id] = true
	return true
}

// share propagates a lock on one axis between two points that must agree
// on it.
func share(m map[ID]bool, a, b ID) bool {
	if m[a] == m[b] {
		return false
	}
	m[a], m[b] = true, true
	return true
}

// ComputeFullyConstrained returns the IDs of primitives whose position is
// fully determined. It propagates locks from fixed points through the
// constraint graph until nothing changes. Radius, tangent and on-circle
// constraints take no part in the analysis, so circles and arcs are never
// labelled; only their center points can be.
func ComputeFullyConstrained(s *Scene) map[ID]bool {
	locks := axisLocks{x: map[ID]bool{}, y: map[ID]bool{}}
	dirKnown := map[ID]bool{}
	lenKnown := map[ID]bool{}

	for _, p := range s.points {
		if p.Fixed {
			locks.lockX(p.ID)
			locks.lockY(p.ID)
		}
	}

	// Flatten constraining dimensions into plain constraints.
	cs := make([]*Constraint, 0, len(s.constraints))
	for _, c := range s.constraints {
		if c.Kind == KindDimension {
			if dc, ok := s.dimensionConstraint(c); ok {
				cs = append(cs, dc)
			}
			continue
		}
		cs = append(cs, c)
	}

	for _, c := range cs {
		switch c.Kind {
		case KindFixed:
			locks.lockX(c.Points[0])
			locks.lockY(c.Points[0])
		case KindLength:
			lenKnown[c.Shapes[0]] = true
		}
	}

	segByEnds := func(a, b ID) (ID, bool) {
		for _, g := range s.segments {
			if (g.P1 == a && g.P2 == b) || (g.P1 == b && g.P2 == a) {
				return g.ID, true
			}
		}
		return 0, false
	}

	for changed := true; changed; {
		changed = false
		mark := func(b bool) {
			if b {
				changed = true
			}
		}
		for _, c := range cs {
			switch c.Kind {
			case KindCoincident:
				a, b := c.Points[0], c.Points[1]
				mark(share(locks.x, a, b))
				mark(share(locks.y, a, b))

			case KindHorizontal, KindVertical:
				g, ok := s.Segment(c.Shapes[0])
				if !ok {
					continue
				}
				if c.Kind == KindHorizontal {
					mark(share(locks.y, g.P1, g.P2))
				} else {
					mark(share(locks.x, g.P1, g.P2))
				}
				if !dirKnown[g.ID] {
					dirKnown[g.ID] = true
					changed = true
				}

			case KindParallel, KindPerpendicular, KindAngle:
				mark(share(dirKnown, c.Shapes[0], c.Shapes[1]))

			case KindEqualLength:
				mark(share(lenKnown, c.Shapes[0], c.Shapes[1]))

			case KindHorizontalDistance:
				mark(share(locks.x, c.Points[0], c.Points[1]))

			case KindVerticalDistance:
				mark(share(locks.y, c.Points[0], c.Points[1]))

			case KindDistance:
				a, b := c.Points[0], c.Points[1]
				if seg, ok := segByEnds(a, b); ok && !lenKnown[seg] {
					lenKnown[seg] = true
					changed = true
				}
				mark(lockByDistance(locks, a, b))
				mark(lockByDistance(locks, b, a))

			case KindMidpoint:
				g, ok := s.Segment(c.Shapes[0])
				if !ok {
					continue
				}
				for _, m := range []map[ID]bool{locks.x, locks.y} {
					mark(midpointLock(m, c.Points[0], g.P1, g.P2))
				}

			case KindOnLine:
				g, ok := s.Segment(c.Shapes[0])
				if !ok || !locks.full(g.P1) || !locks.full(g.P2) {
					continue
				}
				p := c.Points[0]
				if locks.x[p] {
					mark(locks.lockY(p))
				}
				if locks.y[p] {
					mark(locks.lockX(p))
				}
			}
		}

		for _, g := range s.segments {
			if locks.full(g.P1) && locks.full(g.P2) {
				if !dirKnown[g.ID] || !lenKnown[g.ID] {
					dirKnown[g.ID], lenKnown[g.ID] = true, true
					changed = true
				}
				continue
			}
			if !lenKnown[g.ID] {
				continue
			}
			for _, ends := range [][2]ID{{g.P1, g.P2}, {g.P2, g.P1}} {
				anchor, other := ends[0], ends[1]
				if !locks.full(anchor) {
					continue
				}
				if dirKnown[g.ID] {
					mark(locks.lockX(other))
					mark(locks.lockY(other))
				} else {
					mark(lockByDistance(locks, anchor, other))
				}
			}
		}
	}

	out := make(map[ID]bool)
	for _, p := range s.points {
		if locks.full(p.ID) {
			out[p.ID] = true
		}
	}
	for _, g := range s.segments {
		if locks.full(g.P1) && locks.full(g.P2) {
			out[g.ID] = true
		}
	}
	return out
}

// lockByDistance locks the remaining axis of b when a is fully locked and
// b has one axis locked. The sign ambiguity is ignored.
func lockByDistance(l axisLocks, a, b ID) bool {
	if !l.full(a) {
		return false
	}
	switch {
	case l.x[b] && !l.y[b]:
		return l.lockY(b)
	case l.y[b] && !l.x[b]:
		return l.lockX(b)
	}
	return false
}

func midpointLock(m map[ID]bool, mid, a, b ID) bool {
	switch {
	case m[mid] && m[a] && !m[b]:
		m[b] = true
	case m[mid] && m[b] && !m[a]:
		m[a] = true
	case m[a] && m[b] && !m[mid]:
		m[mid] = true
	default:
		return false
	}
	return true
}

// DegreesOfFreedom returns the number of independent motions left in the
// sketch: the count of free variables (coordinates of non-fixed points used
// by shapes or constraints, plus circle and arc radii) minus the rank of
// the constraint Jacobian at the current configuration.
func DegreesOfFreedom(s *Scene) int {
	cols := map[grad]int{}
	col := func(ref ID, ax axis) {
		k := grad{ref: ref, axis: ax}
		if _, ok := cols[k]; !ok {
			cols[k] = len(cols)
		}
	}
	for _, sh := range s.Shapes() {
		for _, pid := range sh.PointRefs() {
			if p, ok := s.Point(pid); ok && !p.Fixed {
				col(pid, axisX)
				col(pid, axisY)
			}
		}
		switch sh.(type) {
		case *Circle, *Arc:
			col(sh.ShapeID(), axisRadius)
		}
	}
	for _, c := range s.constraints {
		for _, pid := range c.Points {
			if p, ok := s.Point(pid); ok && !p.Fixed {
				col(pid, axisX)
				col(pid, axisY)
			}
		}
	}
	if len(cols) == 0 {
		return 0
	}

	var rows [][]grad
	for _, c := range s.constraints {
		for _, t := range s.terms(c) {
			rows = append(rows, t.grads)
		}
	}
	if len(rows) == 0 {
		return len(cols)
	}

	j := mat.NewDense(len(rows), len(cols), nil)
	for i, gs := range rows {
		for _, g := range gs {
			k, ok := cols[grad{ref: g.ref, axis: g.axis}]
			if !ok || s.weight(g) == 0 {
				continue
			}
			j.Set(i, k, j.At(i, k)+g.g)
		}
	}

	var svd mat.SVD
	if !svd.Factorize(j, mat.SVDNone) {
		return len(cols)
	}
	vals := svd.Values(nil)
	if len(vals) == 0 {
		return len(cols)
	}
	tol := 1e-9 * float64(max(len(rows), len(cols))) * vals[0]
	rank := 0
	for _, v := range vals {
		if v > tol {
			rank++
		}
	}
	return len(cols) - rank
}
