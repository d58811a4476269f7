package app

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"

	"gocv.io/x/gocv"

	"github.com/ayusman/faceswap/internal/detector"
	"github.com/ayusman/faceswap/internal/imageio"
	"github.com/ayusman/faceswap/internal/store"
	"github.com/ayusman/faceswap/internal/swapper"
)

// PrepareSource reads the source image, locates its face and builds its mask.
// The returned face is shared read-only by every worker; the caller closes it.
func (a *App) PrepareSource(path string) (*swapper.Face, error) {
	img, lm, err := a.load(path)
	if err != nil {
		if errors.Is(err, detector.ErrNoFace) || errors.Is(err, detector.ErrTooManyFaces) {
			return nil, fmt.Errorf("%w: %w", ErrSourceFace, err)
		}
		return nil, fmt.Errorf("source: %w", err)
	}
	return swapper.NewFace(img, lm, a.config.Feather), nil
}

// load reads, scales and locates the single face of the image at path.
// On success the caller owns the returned Mat.
func (a *App) load(path string) (gocv.Mat, detector.Landmarks, error) {
	file, err := imageio.Read(path)
	if err != nil {
		return gocv.Mat{}, detector.Landmarks{}, err
	}

	img := file.Mat
	if a.config.ScaleFactor != 1 {
		img = imageio.Resize(file.Mat, a.config.ScaleFactor)
		file.Close()
	}

	faces, err := a.detect(img, cacheKey(file.Digest, a.config.ScaleFactor, a.config.DetectorID))
	if err != nil {
		img.Close()
		return gocv.Mat{}, detector.Landmarks{}, fmt.Errorf("detect landmarks: %w", err)
	}

	lm, err := a.config.Policy.Select(faces)
	if err != nil {
		img.Close()
		return gocv.Mat{}, detector.Landmarks{}, err
	}
	return img, lm, nil
}

// detect returns every face in img, consulting the landmark cache first.
// Only images with at least one face are cached; a miss is always retried.
func (a *App) detect(img gocv.Mat, key string) ([]detector.Landmarks, error) {
	if a.config.Store != nil {
		cached, err := a.config.Store.Landmarks().Get(key)
		if err == nil {
			if faces, ok := storeFacesToDetector(cached); ok && len(faces) > 0 {
				return faces, nil
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Landmark cache read failed: %v", err)
		}
	}

	faces, err := a.config.Detector.Detect(img)
	if err != nil {
		return nil, err
	}

	if a.config.Store != nil && len(faces) > 0 {
		if err := a.config.Store.Landmarks().Put(key, detectorFacesToStore(faces)); err != nil {
			log.Printf("Landmark cache write failed: %v", err)
		}
	}
	return faces, nil
}

// cacheKey identifies detection results for a file at a given scale, found
// by the detector configuration detectorID.
func cacheKey(digest string, scale float64, detectorID string) string {
	key := digest
	if scale != 1 {
		key = fmt.Sprintf("%s@%g", key, scale)
	}
	if detectorID != "" {
		sum := sha256.Sum256([]byte(detectorID))
		key += "#" + hex.EncodeToString(sum[:8])
	}
	return key
}

// storeFacesToDetector converts cached points to landmark sets. It reports
// false when an entry does not have the expected number of points.
func storeFacesToDetector(faces [][]store.Point) ([]detector.Landmarks, bool) {
	out := make([]detector.Landmarks, 0, len(faces))
	for _, face := range faces {
		if len(face) != detector.NumLandmarks {
			return nil, false
		}
		var lm detector.Landmarks
		for i, p := range face {
			lm[i] = detector.Point{X: p.X, Y: p.Y}
		}
		out = append(out, lm)
	}
	return out, true
}

// detectorFacesToStore converts landmark sets to cache points.
func detectorFacesToStore(faces []detector.Landmarks) [][]store.Point {
	out := make([][]store.Point, len(faces))
	for i, lm := range faces {
		pts := make([]store.Point, len(lm))
		for j, p := range lm {
			pts[j] = store.Point{X: p.X, Y: p.Y}
		}
		out[i] = pts
	}
	return out
}
