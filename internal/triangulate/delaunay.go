/*
NAME
  delaunay.go

DESCRIPTION
  delaunay.go implements the in-circle predicate and the recursive
  edge-flip pass that restores the Delaunay property after an insertion.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package triangulate

import "math"

// delaunayCheck tests edge ei's two adjacent triangles against each other's
// opposite vertex; if either violates the empty-circumcircle property, it
// flips ei and recursively checks the (up to four) neighbouring edges of
// the two new triangles, skipping edges already visited in this recursion.
func (t *Triangulation) delaunayCheck(ei int, skip map[int]bool) {
	if skip[ei] {
		return
	}
	e := t.Edges[ei]
	if e.T0 == Empty || e.T1 == Empty {
		return // hull edge: nothing on the other side to violate.
	}
	tri0 := t.Triangles[e.T0]
	tri1 := t.Triangles[e.T1]
	if !pointInCircumcircle(t.Vertices, tri0, e.W1) && !pointInCircumcircle(t.Vertices, tri1, e.W0) {
		return
	}
	skip[ei] = true
	neighbours := t.flipEdge(ei)
	for _, n := range neighbours {
		t.delaunayCheck(n, skip)
	}
}

// flipEdge replaces edge ei's diagonal (v0,v1) of the quadrilateral formed
// by its two adjacent triangles with the other diagonal (w0,w1), reusing
// ei's slot for the new diagonal and overwriting both triangle slots in
// place (a flip never changes triangle or edge count). It returns the
// quadrilateral's four outer edges, which may need re-checking.
func (t *Triangulation) flipEdge(ei int) [4]int {
	e := t.Edges[ei]
	v0, v1 := e.V0, e.V1
	w0, w1 := e.W0, e.W1
	t0i, t1i := e.T0, e.T1
	tri0 := t.Triangles[t0i]
	tri1 := t.Triangles[t1i]

	oA := edgeConnecting(t, tri0, v1, w0)
	oB := edgeConnecting(t, tri0, w0, v0)
	oC := edgeConnecting(t, tri1, v0, w1)
	oD := edgeConnecting(t, tri1, w1, v1)

	a := Triangle{V: [3]int{v0, w0, w1}, E: [3]int{oB, ei, oC}}
	b := Triangle{V: [3]int{v1, w1, w0}, E: [3]int{oD, ei, oA}}
	t.Triangles[t0i] = a
	t.Triangles[t1i] = b

	t.Edges[ei] = Edge{V0: w0, V1: w1, T0: t0i, W0: v0, T1: t1i, W1: v1}

	t.replaceAdjacency(oA, t0i, t1i, w1)
	t.replaceAdjacency(oB, t0i, t0i, w1)
	t.replaceAdjacency(oC, t1i, t0i, w0)
	t.replaceAdjacency(oD, t1i, t1i, w0)

	return [4]int{oA, oB, oC, oD}
}

// pointInCircumcircle reports whether vertex p lies strictly inside the
// circumcircle of tri. Degenerate (collinear, zero-area) triangles fall
// back to the circle spanned by their longest side.
func pointInCircumcircle(verts []Vec2, tri Triangle, p int) bool {
	a, b, c := verts[tri.V[0]], verts[tri.V[1]], verts[tri.V[2]]
	d := verts[p]
	area2 := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	if math.Abs(area2) < epsilon {
		return degenerateCircumcircleContains(a, b, c, d)
	}
	det := inCircleDet(a, b, c, d)
	if area2 > 0 {
		return det > epsilon
	}
	return det < -epsilon
}

// inCircleDet evaluates the standard 3x3 in-circle determinant for CCW
// triangle (a,b,c) and point d: positive means d is inside the circle
// through a,b,c.
func inCircleDet(a, b, c, d Vec2) float64 {
	ax, ay := a.X-d.X, a.Y-d.Y
	bx, by := b.X-d.X, b.Y-d.Y
	cx, cy := c.X-d.X, c.Y-d.Y
	ap := ax*ax + ay*ay
	bp := bx*bx + by*by
	cp := cx*cx + cy*cy
	return ax*(by*cp-bp*cy) - ay*(bx*cp-bp*cx) + ap*(bx*cy-by*cx)
}

// degenerateCircumcircleContains handles the collinear-triangle case by
// treating the triangle's longest side as the diameter of its circumcircle.
func degenerateCircumcircleContains(a, b, c, d Vec2) bool {
	type seg struct{ p, q Vec2 }
	segs := [3]seg{{a, b}, {b, c}, {c, a}}
	best := segs[0]
	bestLen := sqDist(best.p, best.q)
	for _, s := range segs[1:] {
		if l := sqDist(s.p, s.q); l > bestLen {
			best, bestLen = s, l
		}
	}
	center := Vec2{(best.p.X + best.q.X) / 2, (best.p.Y + best.q.Y) / 2}
	r2 := bestLen / 4
	return sqDist(center, d) < r2-epsilon
}

func sqDist(a, b Vec2) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}
