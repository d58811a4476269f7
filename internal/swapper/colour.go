package swapper

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/faceswap/internal/detector"
)

// ColourCorrectBlurFrac scales the eye distance into the colour-correction
// blur kernel size.
const ColourCorrectBlurFrac = 0.8

// ColourBlurSize returns the odd Gaussian kernel size used to colour-correct a
// face with the given landmarks.
func ColourBlurSize(lm detector.Landmarks) int {
	return oddKernel(int(ColourCorrectBlurFrac * lm.EyeDistance()))
}

// CorrectColours matches the low-frequency colour of warped to target.
// Each pixel becomes warped * blur(target) / blur(warped); blurred warped
// values at or below 1 are offset by 128 first. The result is CV64FC3 and
// owned by the caller.
func CorrectColours(target, warped gocv.Mat, lm detector.Landmarks) (gocv.Mat, error) {
	if target.Rows() != warped.Rows() || target.Cols() != warped.Cols() {
		return gocv.Mat{}, fmt.Errorf("size mismatch: %dx%d vs %dx%d",
			target.Cols(), target.Rows(), warped.Cols(), warped.Rows())
	}

	t := toFloat(target)
	defer t.Close()
	out := toFloat(warped)

	k := ColourBlurSize(lm)

	targetBlur := gocv.NewMat()
	defer targetBlur.Close()
	gocv.GaussianBlur(t, &targetBlur, image.Pt(k, k), 0, 0, gocv.BorderDefault)

	warpedBlur := gocv.NewMat()
	defer warpedBlur.Close()
	gocv.GaussianBlur(out, &warpedBlur, image.Pt(k, k), 0, 0, gocv.BorderDefault)

	px, err := out.DataPtrFloat64()
	if err != nil {
		out.Close()
		return gocv.Mat{}, fmt.Errorf("warped pixels: %w", err)
	}
	tb, err := targetBlur.DataPtrFloat64()
	if err != nil {
		out.Close()
		return gocv.Mat{}, fmt.Errorf("target blur pixels: %w", err)
	}
	wb, err := warpedBlur.DataPtrFloat64()
	if err != nil {
		out.Close()
		return gocv.Mat{}, fmt.Errorf("warped blur pixels: %w", err)
	}

	for i := range px {
		d := wb[i]
		if d <= 1 {
			d += 128
		}
		px[i] = px[i] * tb[i] / d
	}
	return out, nil
}

// toFloat returns a CV64FC3 copy of img.
func toFloat(img gocv.Mat) gocv.Mat {
	out := gocv.NewMat()
	if img.Type() == gocv.MatTypeCV64FC3 {
		img.CopyTo(&out)
		return out
	}
	img.ConvertTo(&out, gocv.MatTypeCV64FC3)
	return out
}
