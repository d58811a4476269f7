package swapper

import (
	"image"
	"image/color"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/ayusman/faceswap/internal/detector"
)

var (
	labelColor  = color.RGBA{R: 255, A: 255}
	markerColor = color.RGBA{R: 255, G: 255, A: 255}
)

// AnnotateLandmarks draws each landmark's index and a small circle at its
// position onto img.
func AnnotateLandmarks(img *gocv.Mat, lm detector.Landmarks) {
	for i, p := range lm {
		pos := image.Pt(int(p.X), int(p.Y))
		gocv.PutText(img, strconv.Itoa(i), pos, gocv.FontHersheyScriptSimplex, 0.4, labelColor, 1)
		gocv.Circle(img, pos, 3, markerColor, 1)
	}
}
