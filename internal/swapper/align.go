// Package swapper implements the landmark-guided face swap: similarity
// alignment, feathered face masks, warping, colour correction and blending.
package swapper

import (
	"errors"
	"fmt"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/faceswap/internal/detector"
)

// ErrDegenerate is returned when a point set has no spread, so no
// similarity transform can be estimated from it.
var ErrDegenerate = errors.New("degenerate point set")

// Transform is a 3x3 homogeneous similarity transform. The last row is 0 0 1.
type Transform [3][3]float64

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Apply maps p through the transform.
func (t Transform) Apply(p detector.Point) detector.Point {
	return detector.Point{
		X: t[0][0]*p.X + t[0][1]*p.Y + t[0][2],
		Y: t[1][0]*p.X + t[1][1]*p.Y + t[1][2],
	}
}

// Scale returns the uniform scale factor of the transform.
func (t Transform) Scale() float64 {
	return math.Hypot(t[0][0], t[1][0])
}

// Rotation returns the rotation angle in radians.
func (t Transform) Rotation() float64 {
	return math.Atan2(t[1][0], t[0][0])
}

// Affine returns the top two rows as a 2x3 CV64F matrix. The caller closes it.
func (t Transform) Affine() gocv.Mat {
	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, t[r][c])
		}
	}
	return m
}

// EstimateTransform returns the similarity transform (uniform scale, rotation,
// translation) that best maps from onto to in the least-squares sense.
//
// Both sets are centred on their centroids and normalised by their standard
// deviation; the rotation comes from the SVD of the cross-covariance matrix
// (orthogonal Procrustes).
func EstimateTransform(from, to []detector.Point) (Transform, error) {
	if len(from) != len(to) {
		return Transform{}, fmt.Errorf("point count mismatch: %d vs %d", len(from), len(to))
	}
	if len(from) < 2 {
		return Transform{}, fmt.Errorf("need at least 2 points, got %d: %w", len(from), ErrDegenerate)
	}

	c1, p1, s1 := normalise(from)
	c2, p2, s2 := normalise(to)
	if s1 == 0 || s2 == 0 {
		return Transform{}, ErrDegenerate
	}

	var h mat.Dense
	h.Mul(p1.T(), p2)

	var svd mat.SVD
	if ok := svd.Factorize(&h, mat.SVDFull); !ok {
		return Transform{}, errors.New("svd factorization failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// R = (U * Vt)t = V * Ut
	var r mat.Dense
	r.Mul(&v, u.T())

	k := s2 / s1
	a := k * r.At(0, 0)
	b := k * r.At(0, 1)
	c := k * r.At(1, 0)
	d := k * r.At(1, 1)

	return Transform{
		{a, b, c2.X - (a*c1.X + b*c1.Y)},
		{c, d, c2.Y - (c*c1.X + d*c1.Y)},
		{0, 0, 1},
	}, nil
}

// normalise centres pts on their centroid and divides by the pooled standard
// deviation of both coordinates. It returns the centroid, the normalised Nx2
// matrix and the standard deviation.
func normalise(pts []detector.Point) (detector.Point, *mat.Dense, float64) {
	n := float64(len(pts))

	var c detector.Point
	for _, p := range pts {
		c.X += p.X
		c.Y += p.Y
	}
	c.X /= n
	c.Y /= n

	var ss float64
	for _, p := range pts {
		dx, dy := p.X-c.X, p.Y-c.Y
		ss += dx*dx + dy*dy
	}
	s := math.Sqrt(ss / (2 * n))

	m := mat.NewDense(len(pts), 2, nil)
	if s == 0 {
		return c, m, 0
	}
	for i, p := range pts {
		m.Set(i, 0, (p.X-c.X)/s)
		m.Set(i, 1, (p.Y-c.Y)/s)
	}
	return c, m, s
}
