// Package detector provides face landmark detection interfaces and the 68-point
// landmark scheme used by the face swap pipeline.
package detector

import "math"

// NumLandmarks is the number of keypoints produced per face (iBUG 68-point scheme).
const NumLandmarks = 68

// Landmark index ranges following the dlib 68-point convention.
// "Right" and "left" are from the subject's point of view.
const (
	JawStart       = 0
	JawEnd         = 16
	RightBrowStart = 17
	RightBrowEnd   = 21
	LeftBrowStart  = 22
	LeftBrowEnd    = 26
	NoseStart      = 27
	NoseEnd        = 34
	RightEyeStart  = 36
	RightEyeEnd    = 41
	LeftEyeStart   = 42
	LeftEyeEnd     = 47
	MouthStart     = 48
	MouthEnd       = 60
)

// Point is a 2D keypoint in pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Landmarks is the ordered set of 68 keypoints for one face.
type Landmarks [NumLandmarks]Point

// Group is a named, ordered subset of landmark indices.
type Group struct {
	Name    string
	Indices []int
}

func indexRange(from, to int) []int {
	indices := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		indices = append(indices, i)
	}
	return indices
}

// Anatomical point groups.
var (
	JawPoints       = indexRange(JawStart, JawEnd)
	RightBrowPoints = indexRange(RightBrowStart, RightBrowEnd)
	LeftBrowPoints  = indexRange(LeftBrowStart, LeftBrowEnd)
	NosePoints      = indexRange(NoseStart, NoseEnd)
	RightEyePoints  = indexRange(RightEyeStart, RightEyeEnd)
	LeftEyePoints   = indexRange(LeftEyeStart, LeftEyeEnd)
	MouthPoints     = indexRange(MouthStart, MouthEnd)
)

// Groups lists every anatomical group in index order.
var Groups = []Group{
	{Name: "jaw", Indices: JawPoints},
	{Name: "right_brow", Indices: RightBrowPoints},
	{Name: "left_brow", Indices: LeftBrowPoints},
	{Name: "nose", Indices: NosePoints},
	{Name: "right_eye", Indices: RightEyePoints},
	{Name: "left_eye", Indices: LeftEyePoints},
	{Name: "mouth", Indices: MouthPoints},
}

// AlignPoints are the indices used to estimate the pose transform between two faces.
var AlignPoints = concat(LeftBrowPoints, RightEyePoints, LeftEyePoints, RightBrowPoints, NosePoints, MouthPoints)

// OverlayPoints are the index sets whose convex hulls form the transplanted region.
var OverlayPoints = [][]int{
	concat(LeftEyePoints, RightEyePoints, LeftBrowPoints, RightBrowPoints),
	concat(NosePoints, MouthPoints),
}

func concat(groups ...[]int) []int {
	var out []int
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Select returns the points at the given indices, in order.
func (l *Landmarks) Select(indices []int) []Point {
	points := make([]Point, len(indices))
	for i, idx := range indices {
		points[i] = l[idx]
	}
	return points
}

// Mean returns the centroid of the points at the given indices.
func (l *Landmarks) Mean(indices []int) Point {
	if len(indices) == 0 {
		return Point{}
	}
	var sum Point
	for _, idx := range indices {
		sum.X += l[idx].X
		sum.Y += l[idx].Y
	}
	n := float64(len(indices))
	return Point{X: sum.X / n, Y: sum.Y / n}
}

// EyeDistance returns the distance between the left and right eye centroids,
// a proxy for the interpupillary distance.
func (l *Landmarks) EyeDistance() float64 {
	left := l.Mean(LeftEyePoints)
	right := l.Mean(RightEyePoints)
	return math.Hypot(left.X-right.X, left.Y-right.Y)
}

// Scaled returns a copy of the landmarks with every coordinate multiplied by factor.
func (l *Landmarks) Scaled(factor float64) Landmarks {
	var out Landmarks
	for i, p := range l {
		out[i] = Point{X: p.X * factor, Y: p.Y * factor}
	}
	return out
}

// FromPoints builds Landmarks from a slice of exactly NumLandmarks points.
// It reports false when the slice has the wrong length.
func FromPoints(points []Point) (Landmarks, bool) {
	var lm Landmarks
	if len(points) != NumLandmarks {
		return lm, false
	}
	copy(lm[:], points)
	return lm, true
}
