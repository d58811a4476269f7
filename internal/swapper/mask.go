package swapper

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/faceswap/internal/detector"
)

// FeatherAmount is the Gaussian kernel size used to feather face masks.
const FeatherAmount = 15

var hullColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// FaceMask returns a rows x cols CV64FC3 soft mask covering the convex hulls
// of the overlay point groups. Values lie in [0, 1]. The caller closes it.
func FaceMask(rows, cols int, lm detector.Landmarks) gocv.Mat {
	return FaceMaskWithFeather(rows, cols, lm, FeatherAmount)
}

// FaceMaskWithFeather is FaceMask with an explicit feather kernel size.
// Even sizes are bumped to the next odd value.
func FaceMaskWithFeather(rows, cols int, lm detector.Landmarks, feather int) gocv.Mat {
	canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8U)
	defer canvas.Close()

	for _, group := range detector.OverlayPoints {
		fillConvexHull(&canvas, lm.Select(group))
	}

	single := gocv.NewMat()
	defer single.Close()
	canvas.ConvertTo(&single, gocv.MatTypeCV64F)

	mask := gocv.NewMat()
	gocv.Merge([]gocv.Mat{single, single, single}, &mask)

	// Only the support of the first blur matters: it is binarized at > 0,
	// then feathered again into [0, 1].
	k := oddKernel(feather)
	gocv.GaussianBlur(mask, &mask, image.Pt(k, k), 0, 0, gocv.BorderDefault)
	gocv.Threshold(mask, &mask, 0, 1, gocv.ThresholdBinary)
	gocv.GaussianBlur(mask, &mask, image.Pt(k, k), 0, 0, gocv.BorderDefault)

	return mask
}

// fillConvexHull rasterizes the convex hull of pts onto a CV8U canvas.
func fillConvexHull(canvas *gocv.Mat, pts []detector.Point) {
	imagePts := make([]image.Point, len(pts))
	for i, p := range pts {
		imagePts[i] = image.Pt(int(p.X), int(p.Y))
	}

	pv := gocv.NewPointVectorFromPoints(imagePts)
	defer pv.Close()

	hull := gocv.NewMat()
	defer hull.Close()
	gocv.ConvexHull(pv, &hull, true, false)
	if hull.Empty() {
		return
	}

	hullPts := make([]image.Point, 0, hull.Rows())
	for i := 0; i < hull.Rows(); i++ {
		hullPts = append(hullPts, imagePts[hull.GetIntAt(i, 0)])
	}

	// A collinear group has a one- or two-vertex hull; it still covers the
	// pixels between its ends.
	if len(hullPts) < 3 {
		gocv.Line(canvas, hullPts[0], hullPts[len(hullPts)-1], hullColor, 1)
		return
	}

	ptsVec := gocv.NewPointsVectorFromPoints([][]image.Point{hullPts})
	defer ptsVec.Close()
	gocv.FillPoly(canvas, ptsVec, hullColor)
}

// oddKernel returns k if it is odd, k+1 otherwise, and never less than 1.
func oddKernel(k int) int {
	if k < 1 {
		return 1
	}
	if k%2 == 0 {
		return k + 1
	}
	return k
}
