/*
NAME
  insert.go

DESCRIPTION
  insert.go implements point location and the two insertion cases
  (interior-of-triangle and on-an-edge), each followed by a Delaunay check
  of the edges the insertion touched.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package triangulate

// insert locates vIdx (already present in t.Vertices) within the current
// mesh and subdivides the triangle or edge it falls on.
func (t *Triangulation) insert(vIdx int) {
	triIdx, onEdge := t.locate(vIdx)
	if onEdge != Empty {
		t.splitEdge(onEdge, vIdx)
		return
	}
	t.splitTriangle(triIdx, vIdx)
}

// locate scans every triangle for one containing p (in barycentric terms),
// returning its index. If p falls within epsilon of one of the triangle's
// edges, that edge's global index is also returned; otherwise onEdge is
// Empty.
func (t *Triangulation) locate(pIdx int) (triIdx, onEdge int) {
	p := t.Vertices[pIdx]
	for i, tri := range t.Triangles {
		u, v, w, ok := barycentric(t.Vertices, tri, p)
		if !ok {
			continue
		}
		switch {
		case u < -epsilon || v < -epsilon || w < -epsilon:
			continue
		case u <= epsilon:
			return i, tri.E[1] // edge opposite V[0] is the leading edge of V[1].
		case v <= epsilon:
			return i, tri.E[2]
		case w <= epsilon:
			return i, tri.E[0]
		default:
			return i, Empty
		}
	}
	panic("triangulate: point lies outside the super-triangle")
}

// barycentric returns the barycentric coordinates of p within tri. ok is
// false only for a degenerate (zero-area) triangle, which should not occur
// outside of pathological input.
func barycentric(verts []Vec2, tri Triangle, p Vec2) (u, v, w float64, ok bool) {
	a, b, c := verts[tri.V[0]], verts[tri.V[1]], verts[tri.V[2]]
	v0 := Vec2{b.X - a.X, b.Y - a.Y}
	v1 := Vec2{c.X - a.X, c.Y - a.Y}
	v2 := Vec2{p.X - a.X, p.Y - a.Y}
	d00 := v0.X*v0.X + v0.Y*v0.Y
	d01 := v0.X*v1.X + v0.Y*v1.Y
	d11 := v1.X*v1.X + v1.Y*v1.Y
	d20 := v2.X*v0.X + v2.Y*v0.Y
	d21 := v2.X*v1.X + v2.Y*v1.Y
	denom := d00*d11 - d01*d01
	if denom == 0 {
		return 0, 0, 0, false
	}
	vv := (d11*d20 - d01*d21) / denom
	ww := (d00*d21 - d01*d20) / denom
	uu := 1 - vv - ww
	return uu, vv, ww, true
}

// edgeConnecting returns the global index of tri's edge whose endpoints are
// {a,b} (in either order), or Empty if none matches.
func edgeConnecting(t *Triangulation, tri Triangle, a, b int) int {
	for _, ei := range tri.E {
		e := t.Edges[ei]
		if (e.V0 == a && e.V1 == b) || (e.V0 == b && e.V1 == a) {
			return ei
		}
	}
	return Empty
}

// oppositeVertex returns the vertex of tri not on its leading edge at
// position i, i.e. the apex of that edge within tri.
func oppositeVertex(tri Triangle, leadingPos int) int {
	return tri.V[(leadingPos+2)%3]
}

// replaceAdjacency updates whichever side of edge ei currently points at
// oldTri to point at newTri/newW instead. It is a no-op if ei doesn't
// reference oldTri (a hull edge's missing side, for instance).
func (t *Triangulation) replaceAdjacency(ei, oldTri, newTri, newW int) {
	e := &t.Edges[ei]
	switch {
	case e.T0 == oldTri:
		e.T0, e.W0 = newTri, newW
	case e.T1 == oldTri:
		e.T1, e.W1 = newTri, newW
	}
}

// splitTriangle subdivides triangle triIdx into three new triangles sharing
// the newly inserted vertex pIdx, overwriting triIdx's slot with the first
// and appending the other two. It then Delaunay-checks the three original
// (now outer) edges.
func (t *Triangulation) splitTriangle(triIdx, pIdx int) {
	tri := t.Triangles[triIdx]
	v0, v1, v2 := tri.V[0], tri.V[1], tri.V[2]
	e0, e1, e2 := tri.E[0], tri.E[1], tri.E[2] // v0->v1, v1->v2, v2->v0

	eA := t.addEdge(v1, pIdx, Empty, Empty, Empty, Empty) // v1-p
	eB := t.addEdge(v2, pIdx, Empty, Empty, Empty, Empty) // v2-p
	eC := t.addEdge(v0, pIdx, Empty, Empty, Empty, Empty) // v0-p

	aIdx := triIdx
	bIdx := len(t.Triangles)
	cIdx := len(t.Triangles) + 1

	a := Triangle{V: [3]int{v0, v1, pIdx}, E: [3]int{e0, eA, eC}}
	b := Triangle{V: [3]int{v1, v2, pIdx}, E: [3]int{e1, eB, eA}}
	c := Triangle{V: [3]int{v2, v0, pIdx}, E: [3]int{e2, eC, eB}}

	t.Triangles[aIdx] = a
	t.Triangles = append(t.Triangles, b, c)

	t.Edges[eA] = Edge{V0: v1, V1: pIdx, T0: aIdx, W0: v0, T1: bIdx, W1: v2}
	t.Edges[eB] = Edge{V0: v2, V1: pIdx, T0: bIdx, W0: v1, T1: cIdx, W1: v0}
	t.Edges[eC] = Edge{V0: v0, V1: pIdx, T0: cIdx, W0: v2, T1: aIdx, W1: v1}

	t.replaceAdjacency(e0, triIdx, aIdx, pIdx)
	t.replaceAdjacency(e1, triIdx, bIdx, pIdx)
	t.replaceAdjacency(e2, triIdx, cIdx, pIdx)

	skip := map[int]bool{eA: true, eB: true, eC: true}
	t.delaunayCheck(e0, skip)
	t.delaunayCheck(e1, skip)
	t.delaunayCheck(e2, skip)
}

// splitEdge subdivides the two triangles adjacent to edge ei into four new
// triangles sharing the newly inserted vertex pIdx (which lies on ei), then
// Delaunay-checks the eight resulting outer/new edges. If ei lies on the
// hull (only one adjacent triangle), it falls back to a plain three-way
// split of that single triangle.
func (t *Triangulation) splitEdge(ei, pIdx int) {
	e := t.Edges[ei]
	if e.T1 == Empty {
		t.splitTriangle(e.T0, pIdx)
		return
	}
	ev0, ev1 := e.V0, e.V1
	w0, w1 := e.W0, e.W1
	t0i, t1i := e.T0, e.T1
	tri0 := t.Triangles[t0i]
	tri1 := t.Triangles[t1i]

	oA := edgeConnecting(t, tri0, ev1, w0)
	oB := edgeConnecting(t, tri0, w0, ev0)
	oC := edgeConnecting(t, tri1, ev0, w1)
	oD := edgeConnecting(t, tri1, w1, ev1)

	along0 := t.addEdge(ev0, pIdx, Empty, Empty, Empty, Empty)
	along1 := t.addEdge(pIdx, ev1, Empty, Empty, Empty, Empty)
	trans0 := t.addEdge(w0, pIdx, Empty, Empty, Empty, Empty)
	trans1 := t.addEdge(w1, pIdx, Empty, Empty, Empty, Empty)

	aIdx := t0i
	cIdx := t1i
	bIdx := len(t.Triangles)
	dIdx := len(t.Triangles) + 1

	a := Triangle{V: [3]int{ev0, pIdx, w0}, E: [3]int{along0, trans0, oB}}
	b := Triangle{V: [3]int{pIdx, ev1, w0}, E: [3]int{along1, oA, trans0}}
	c := Triangle{V: [3]int{ev1, pIdx, w1}, E: [3]int{along1, trans1, oD}}
	d := Triangle{V: [3]int{pIdx, ev0, w1}, E: [3]int{along0, oC, trans1}}

	t.Triangles[aIdx] = a
	t.Triangles[cIdx] = c
	t.Triangles = append(t.Triangles, b, d)

	t.Edges[along0] = Edge{V0: ev0, V1: pIdx, T0: aIdx, W0: w0, T1: dIdx, W1: w1}
	t.Edges[along1] = Edge{V0: pIdx, V1: ev1, T0: bIdx, W0: w0, T1: cIdx, W1: w1}
	t.Edges[trans0] = Edge{V0: w0, V1: pIdx, T0: aIdx, W0: ev0, T1: bIdx, W1: ev1}
	t.Edges[trans1] = Edge{V0: w1, V1: pIdx, T0: cIdx, W0: ev1, T1: dIdx, W1: ev0}

	t.replaceAdjacency(oA, t0i, bIdx, pIdx)
	t.replaceAdjacency(oB, t0i, aIdx, pIdx)
	t.replaceAdjacency(oC, t1i, dIdx, pIdx)
	t.replaceAdjacency(oD, t1i, cIdx, pIdx)

	skip := map[int]bool{}
	for _, ci := range [8]int{oA, oB, oC, oD, along0, along1, trans0, trans1} {
		t.delaunayCheck(ci, skip)
	}
}
