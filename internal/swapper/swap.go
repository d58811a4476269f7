package swapper

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/faceswap/internal/detector"
)

// Face is an image with its landmarks and feathered face mask.
// A Face shared between goroutines must not be modified.
type Face struct {
	Image     gocv.Mat
	Landmarks detector.Landmarks
	Mask      gocv.Mat
}

// NewFace builds the face mask for img. The Face takes ownership of img.
func NewFace(img gocv.Mat, lm detector.Landmarks, feather int) *Face {
	return &Face{
		Image:     img,
		Landmarks: lm,
		Mask:      FaceMaskWithFeather(img.Rows(), img.Cols(), lm, feather),
	}
}

// Close releases the image and mask.
func (f *Face) Close() error {
	f.Image.Close()
	f.Mask.Close()
	return nil
}

// Options tune a single swap.
type Options struct {
	Feather  int
	Annotate bool
}

// Swap places the source face onto target, whose face has landmarks lm.
// The returned CV8UC3 image is owned by the caller; source is only read.
func Swap(source *Face, target gocv.Mat, lm detector.Landmarks, opts Options) (gocv.Mat, error) {
	if opts.Feather <= 0 {
		opts.Feather = FeatherAmount
	}

	t, err := EstimateTransform(lm.Select(detector.AlignPoints), source.Landmarks.Select(detector.AlignPoints))
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("align: %w", err)
	}

	rows, cols := target.Rows(), target.Cols()

	targetMask := FaceMaskWithFeather(rows, cols, lm, opts.Feather)
	defer targetMask.Close()
	warpedMask := Warp(source.Mask, t, rows, cols)
	defer warpedMask.Close()
	combined := CombineMasks(targetMask, warpedMask)
	defer combined.Close()

	warped := Warp(source.Image, t, rows, cols)
	defer warped.Close()

	corrected, err := CorrectColours(target, warped, lm)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("colour correct: %w", err)
	}
	defer corrected.Close()

	out, err := Composite(target, corrected, combined)
	if err != nil {
		return gocv.Mat{}, err
	}

	if opts.Annotate {
		AnnotateLandmarks(&out, lm)
	}
	return out, nil
}
