/*
NAME
  triangulate_test.go

DESCRIPTION
  triangulate_test.go checks the structural invariants a Delaunay mesh must
  satisfy regardless of input: edge/triangle adjacency consistency, the
  empty-circumcircle property, and Euler's relation, plus one worked
  four-point example.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package triangulate

import "testing"

func square() []Vec2 {
	return []Vec2{
		{X: 0, Y: 0},
		{X: 10, Y: 0},
		{X: 10, Y: 10},
		{X: 0, Y: 10},
	}
}

func TestBuildSquareProducesTwoTriangles(t *testing.T) {
	pts := square()
	tr, err := Build(pts, Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got := tr.InputTriangles()
	if len(got) != 2 {
		t.Fatalf("InputTriangles: got %d triangles, want 2", len(got))
	}
	assertAdjacencyConsistent(t, tr)
	assertDelaunay(t, tr)
}

func TestBuildManyPointsStaysConsistent(t *testing.T) {
	pts := []Vec2{
		{1, 1}, {5, 2}, {9, 1}, {2, 6}, {6, 6}, {9, 8}, {1, 9}, {5, 9},
	}
	tr, err := Build(pts, Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	assertAdjacencyConsistent(t, tr)
	assertDelaunay(t, tr)
	assertEuler(t, tr)
}

// assertAdjacencyConsistent verifies that for every edge, each non-Empty
// (triangle, opposite-vertex) side actually has that triangle containing
// both of the edge's endpoints plus the recorded opposite vertex, and that
// every triangle's three leading edges connect its vertices in order.
func assertAdjacencyConsistent(t *testing.T, tr *Triangulation) {
	t.Helper()
	for ti, tri := range tr.Triangles {
		for i := 0; i < 3; i++ {
			e := tr.Edges[tri.E[i]]
			a, b := tri.V[i], tri.V[(i+1)%3]
			if !((e.V0 == a && e.V1 == b) || (e.V0 == b && e.V1 == a)) {
				t.Errorf("triangle %d leading edge %d: edge endpoints %v,%v don't match vertices %d,%d", ti, i, e.V0, e.V1, a, b)
			}
		}
	}
	for ei, e := range tr.Edges {
		if e.T0 != Empty {
			checkSide(t, tr, ei, e.T0, e.W0)
		}
		if e.T1 != Empty {
			checkSide(t, tr, ei, e.T1, e.W1)
		}
	}
}

func checkSide(t *testing.T, tr *Triangulation, ei, triIdx, w int) {
	t.Helper()
	e := tr.Edges[ei]
	tri := tr.Triangles[triIdx]
	hasV0, hasV1, hasW := false, false, false
	for _, v := range tri.V {
		if v == e.V0 {
			hasV0 = true
		}
		if v == e.V1 {
			hasV1 = true
		}
		if v == w {
			hasW = true
		}
	}
	if !hasV0 || !hasV1 || !hasW {
		t.Errorf("edge %d: triangle %d (verts %v) does not contain endpoints %d,%d and opposite %d", ei, triIdx, tri.V, e.V0, e.V1, w)
	}
}

// assertDelaunay verifies no triangle's circumcircle strictly contains any
// other triangle's opposite vertex across a shared edge.
func assertDelaunay(t *testing.T, tr *Triangulation) {
	t.Helper()
	for ei, e := range tr.Edges {
		if e.T0 == Empty || e.T1 == Empty {
			continue
		}
		tri0 := tr.Triangles[e.T0]
		tri1 := tr.Triangles[e.T1]
		if pointInCircumcircle(tr.Vertices, tri0, e.W1) {
			t.Errorf("edge %d: triangle %d's circumcircle contains opposite vertex %d from the other side", ei, e.T0, e.W1)
		}
		if pointInCircumcircle(tr.Vertices, tri1, e.W0) {
			t.Errorf("edge %d: triangle %d's circumcircle contains opposite vertex %d from the other side", ei, e.T1, e.W0)
		}
	}
}

// assertEuler checks V - E + F = 2 for the full mesh (including the outer
// face), which must hold for any valid planar triangulation.
func assertEuler(t *testing.T, tr *Triangulation) {
	t.Helper()
	v := len(tr.Vertices)
	e := len(tr.Edges)
	f := len(tr.Triangles) + 1 // +1 for the unbounded outer face.
	if v-e+f != 2 {
		t.Errorf("Euler relation violated: V=%d E=%d F=%d, V-E+F=%d, want 2", v, e, f, v-e+f)
	}
}
