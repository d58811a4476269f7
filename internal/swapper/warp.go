package swapper

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Warp resamples src into a rows x cols frame. t maps destination pixel
// coordinates into src coordinates (inverse mapping). Destination pixels that
// fall outside src keep their initial zero value. The caller closes the result.
func Warp(src gocv.Mat, t Transform, rows, cols int) gocv.Mat {
	dst := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, src.Type())

	m := t.Affine()
	defer m.Close()

	gocv.WarpAffineWithParams(src, &dst, m, image.Pt(cols, rows),
		gocv.InterpolationLinear+gocv.WarpInverseMap, gocv.BorderTransparent, color.RGBA{})
	return dst
}
