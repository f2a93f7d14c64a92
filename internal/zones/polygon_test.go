package zones_test

import (
	"testing"

	"github.com/technosupport/zoneguard/internal/data"
	"github.com/technosupport/zoneguard/internal/zones"
)

func square() []data.Point {
	return []data.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
}

func TestContains_InteriorPoint(t *testing.T) {
	if !zones.Contains(square(), data.Point{X: 5, Y: 5}) {
		t.Fatal("expected (5,5) to be inside the square")
	}
}

func TestContains_ExteriorPoint(t *testing.T) {
	if zones.Contains(square(), data.Point{X: 20, Y: 20}) {
		t.Fatal("expected (20,20) to be outside the square")
	}
}

// Scenario 6: a point lying exactly on an edge is treated as outside.
func TestContains_BoundaryPointIsOutside(t *testing.T) {
	if zones.Contains(square(), data.Point{X: 10, Y: 5}) {
		t.Fatal("expected boundary point (10,5) to be outside")
	}
}

func TestContains_VertexIsOutside(t *testing.T) {
	if zones.Contains(square(), data.Point{X: 0, Y: 0}) {
		t.Fatal("expected vertex (0,0) to be outside")
	}
}

func TestContains_DegeneratePolygonIsAlwaysOutside(t *testing.T) {
	if zones.Contains([]data.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}, data.Point{X: 0, Y: 0}) {
		t.Fatal("expected a 2-vertex polygon to contain nothing")
	}
}
