// Package zones implements the per-track, per-zone presence state machine
// (§3, §4.B): point-in-polygon containment and enter/exit transitions with
// dwell measurement.
package zones

import "github.com/technosupport/zoneguard/internal/data"

// Contains reports whether p lies strictly inside the polygon using the
// standard even-odd (ray casting) rule. Boundary points — vertices and
// points lying on an edge — are treated as outside (§3 invariant, §8
// scenario 6): each edge is first checked with onSegment, and a boundary
// hit returns false before any crossing is counted; the crossing test
// itself is half-open in y.
func Contains(polygon []data.Point, p data.Point) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	n := len(polygon)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := polygon[i], polygon[j]

		// Reject exact matches to an edge endpoint or to a point lying
		// exactly on the segment — both count as "on the boundary".
		if onSegment(a, b, p) {
			return false
		}

		crosses := (a.Y > p.Y) != (b.Y > p.Y)
		if crosses {
			xAtP := a.X + (p.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if xAtP > p.X {
				inside = !inside
			} else if xAtP == p.X {
				// The ray passes exactly through the point on this edge:
				// boundary, treated as outside.
				return false
			}
		}
	}
	return inside
}

func onSegment(a, b, p data.Point) bool {
	// Degenerate: p equals a vertex.
	if (p.X == a.X && p.Y == a.Y) || (p.X == b.X && p.Y == b.Y) {
		return true
	}
	// Cross product zero => collinear; then check p is within the segment's
	// bounding box.
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	if cross != 0 {
		return false
	}
	minX, maxX := a.X, b.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := a.Y, b.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return p.X >= minX && p.X <= maxX && p.Y >= minY && p.Y <= maxY
}
