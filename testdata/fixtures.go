// Package testdata draws synthetic face images for tests. The images pair with
// the landmarks from detector.FaceLandmarksAt so a mock detector can stand in
// for the landmark helper.
package testdata

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/faceswap/internal/detector"
)

// Palette colours a synthetic face.
type Palette struct {
	Background color.RGBA
	Skin       color.RGBA
	Feature    color.RGBA
}

var (
	// WarmFace is a light face on a grey background.
	WarmFace = Palette{
		Background: color.RGBA{R: 90, G: 90, B: 90, A: 255},
		Skin:       color.RGBA{R: 224, G: 172, B: 140, A: 255},
		Feature:    color.RGBA{R: 60, G: 30, B: 30, A: 255},
	}

	// CoolFace is a darker face on a blue background.
	CoolFace = Palette{
		Background: color.RGBA{R: 40, G: 70, B: 120, A: 255},
		Skin:       color.RGBA{R: 150, G: 110, B: 90, A: 255},
		Feature:    color.RGBA{R: 20, G: 20, B: 40, A: 255},
	}
)

// FaceImage draws a rows x cols CV8UC3 image of a face with landmarks lm.
// The caller closes the result.
func FaceImage(rows, cols int, lm detector.Landmarks, p Palette) gocv.Mat {
	img := gocv.NewMatWithSizeFromScalar(scalar(p.Background), rows, cols, gocv.MatTypeCV8UC3)

	// Face outline: the jaw closed over the brows.
	outline := append(lm.Select(detector.JawPoints), lm.Select(reversed(detector.LeftBrowPoints))...)
	outline = append(outline, lm.Select(reversed(detector.RightBrowPoints))...)
	fill(&img, outline, p.Skin)

	for _, group := range [][]int{detector.RightEyePoints, detector.LeftEyePoints, detector.MouthPoints[:12]} {
		fill(&img, lm.Select(group), p.Feature)
	}
	for _, group := range [][]int{detector.RightBrowPoints, detector.LeftBrowPoints, detector.NosePoints[:4]} {
		pts := lm.Select(group)
		for i := 1; i < len(pts); i++ {
			gocv.Line(&img, toImagePoint(pts[i-1]), toImagePoint(pts[i]), p.Feature, 2)
		}
	}

	return img
}

// BlankImage returns a rows x cols CV8UC3 image filled with c.
func BlankImage(rows, cols int, c color.RGBA) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(scalar(c), rows, cols, gocv.MatTypeCV8UC3)
}

// WriteFaceImage draws a face and writes it to path.
func WriteFaceImage(path string, rows, cols int, lm detector.Landmarks, p Palette) error {
	img := FaceImage(rows, cols, lm, p)
	defer img.Close()
	return write(path, img)
}

// WriteBlankImage writes a uniformly coloured image to path.
func WriteBlankImage(path string, rows, cols int, c color.RGBA) error {
	img := BlankImage(rows, cols, c)
	defer img.Close()
	return write(path, img)
}

func write(path string, img gocv.Mat) error {
	if ok := gocv.IMWrite(path, img); !ok {
		return fmt.Errorf("write fixture %s", path)
	}
	return nil
}

func fill(img *gocv.Mat, pts []detector.Point, c color.RGBA) {
	poly := make([]image.Point, len(pts))
	for i, p := range pts {
		poly[i] = toImagePoint(p)
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{poly})
	defer pv.Close()
	gocv.FillPoly(img, pv, c)
}

func toImagePoint(p detector.Point) image.Point {
	return image.Pt(int(p.X), int(p.Y))
}

func reversed(indices []int) []int {
	out := make([]int, len(indices))
	for i, idx := range indices {
		out[len(indices)-1-i] = idx
	}
	return out
}

// scalar converts c to a BGR scalar.
func scalar(c color.RGBA) gocv.Scalar {
	return gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), float64(c.A))
}
