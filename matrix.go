package glprog

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// Matrix is a row major 3x3 matrix transforming homogeneous 2D points.
type Matrix [9]float32

// IdentityMatrix returns the identity transform.
func IdentityMatrix() Matrix {
	return Matrix{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// MatrixFromMat3 converts a geometry matrix.
func MatrixFromMat3(m ms3.Mat3) Matrix {
	return Matrix(m.Array())
}

// IsIdentity reports whether m is exactly the identity.
func (m Matrix) IsIdentity() bool { return m == IdentityMatrix() }

// HasPerspective reports whether the bottom row differs from (0,0,1).
func (m Matrix) HasPerspective() bool { return m[6] != 0 || m[7] != 0 || m[8] != 1 }

// Mul returns the product m*b.
func (m Matrix) Mul(b Matrix) (r Matrix) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i*3+j] = m[i*3]*b[j] + m[i*3+1]*b[3+j] + m[i*3+2]*b[6+j]
		}
	}
	return r
}

// Translate returns m followed by a translation of (x,y).
func (m Matrix) Translate(x, y float32) Matrix {
	return Matrix{1, 0, x, 0, 1, y, 0, 0, 1}.Mul(m)
}

// Scale returns m followed by a scale of (sx,sy).
func (m Matrix) Scale(sx, sy float32) Matrix {
	return Matrix{sx, 0, 0, 0, sy, 0, 0, 0, 1}.Mul(m)
}

// Rotate returns m followed by a counter clockwise rotation by angle radians.
func (m Matrix) Rotate(angle float32) Matrix {
	s, c := math32.Sincos(angle)
	return Matrix{c, -s, 0, s, c, 0, 0, 0, 1}.Mul(m)
}

// ndcMatrix maps pixel coordinates of a width x height target with origin at
// the top left to normalized device coordinates.
func ndcMatrix(width, height int) Matrix {
	return Matrix{
		2 / float32(width), 0, -1,
		0, -2 / float32(height), 1,
		0, 0, 1,
	}
}
