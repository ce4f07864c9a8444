package glprogaux

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/rclancey/earcut"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glprog"
	"github.com/soypat/glprog/glbuild"
)

var errDegeneratePolygon = errors.New("degenerate polygon")

// PolygonEdges returns one half plane per polygon side in window coordinates,
// oriented so the polygon interior is positive. Equations are normalized so
// they evaluate to the pixel distance from the side plus half a pixel, which
// antialiases the boundary. convex reports whether the polygon is convex; the
// edges of concave polygons must be combined with [glprog.DrawState.EdgeConcave].
func PolygonEdges(poly []ms2.Vec) (edges []glprog.Edge, convex bool, err error) {
	n := len(poly)
	if n < 3 {
		return nil, false, fmt.Errorf("%w: %d vertices", errDegeneratePolygon, n)
	} else if n > glbuild.MaxEdges {
		return nil, false, fmt.Errorf("polygon has %d sides, at most %d edges supported", n, glbuild.MaxEdges)
	}
	area := signedArea(poly)
	if area == 0 {
		return nil, false, fmt.Errorf("%w: zero area", errDegeneratePolygon)
	}
	orient := float32(1)
	if area < 0 {
		orient = -1
	}
	convex = true
	edges = make([]glprog.Edge, 0, n)
	for i := range poly {
		p0, p1, p2 := poly[i], poly[(i+1)%n], poly[(i+2)%n]
		d := sub(p1, p0)
		length := math32.Hypot(d.X, d.Y)
		if length == 0 {
			return nil, false, fmt.Errorf("%w: repeated vertex %d", errDegeneratePolygon, i)
		}
		// Inward normal of a counter clockwise side is the left perpendicular.
		nx, ny := -d.Y*orient/length, d.X*orient/length
		edges = append(edges, glprog.Edge{nx, ny, -(nx*p0.X + ny*p0.Y) + 0.5})
		if cross(d, sub(p2, p1))*orient < 0 {
			convex = false
		}
	}
	return edges, convex, nil
}

// ClipPolygon sets the draw state edges to antialias the draw against poly.
func ClipPolygon(ds *glprog.DrawState, poly []ms2.Vec) error {
	edges, convex, err := PolygonEdges(poly)
	if err != nil {
		return err
	}
	ds.Edges = edges
	ds.EdgeConcave = !convex
	return nil
}

// TriangulatePolygon splits a simple polygon into triangles with the ear clipping algorithm.
func TriangulatePolygon(poly []ms2.Vec) ([][3]ms2.Vec, error) {
	if len(poly) < 3 {
		return nil, fmt.Errorf("%w: %d vertices", errDegeneratePolygon, len(poly))
	}
	coords := make([]float64, 2*len(poly))
	for i, p := range poly {
		coords[2*i] = float64(p.X)
		coords[2*i+1] = float64(p.Y)
	}
	indices, err := earcut.Earcut(coords, nil, 2)
	if err != nil {
		return nil, fmt.Errorf("triangulating %d vertex polygon: %w", len(poly), err)
	} else if len(indices)%3 != 0 {
		return nil, fmt.Errorf("triangulation returned %d indices", len(indices))
	}
	tris := make([][3]ms2.Vec, len(indices)/3)
	for i := range tris {
		tris[i] = [3]ms2.Vec{poly[indices[3*i]], poly[indices[3*i+1]], poly[indices[3*i+2]]}
	}
	return tris, nil
}

// TriangleVertices flattens triangles into x,y pairs for a vertex buffer.
func TriangleVertices(dst []float32, tris [][3]ms2.Vec) []float32 {
	for _, t := range tris {
		for _, v := range t {
			dst = append(dst, v.X, v.Y)
		}
	}
	return dst
}

func signedArea(poly []ms2.Vec) (area float32) {
	for i := range poly {
		area += cross(poly[i], poly[(i+1)%len(poly)])
	}
	return area / 2
}

func cross(a, b ms2.Vec) float32 { return a.X*b.Y - a.Y*b.X }

func sub(a, b ms2.Vec) ms2.Vec { return ms2.Vec{X: a.X - b.X, Y: a.Y - b.Y} }
