// Package imageio reads, writes and lists the image files a batch works on.
package imageio

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gocv.io/x/gocv"
)

var (
	// ErrDecode is returned when file contents are not a decodable image.
	ErrDecode = errors.New("cannot decode image")

	// ErrFormat is returned when an output extension names no known encoder.
	ErrFormat = errors.New("unsupported image format")
)

var encoders = map[string]bool{
	".bmp":  true,
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// Image is a decoded file together with the SHA-256 of its bytes.
type Image struct {
	Mat    gocv.Mat
	Digest string
}

// Close releases the pixel buffer.
func (i *Image) Close() error {
	return i.Mat.Close()
}

// Read loads and decodes the image at path.
func Read(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	mat, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	sum := sha256.Sum256(data)
	return &Image{Mat: mat, Digest: hex.EncodeToString(sum[:])}, nil
}

// Decode decodes encoded image bytes into a 3-channel BGR Mat.
func Decode(data []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.Mat{}, ErrDecode
	}
	return mat, nil
}

// Encode encodes img in the format named by ext (".png", ".jpg", ...).
func Encode(ext string, img gocv.Mat) ([]byte, error) {
	ext = strings.ToLower(ext)
	if !encoders[ext] {
		return nil, fmt.Errorf("%w: %q", ErrFormat, ext)
	}
	buf, err := gocv.IMEncode(gocv.FileExt(ext), img)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ext, err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write encodes img in the format implied by path's extension and writes it
// atomically: a failed encode or write never leaves a file at path.
func Write(path string, img gocv.Mat) error {
	data, err := Encode(filepath.Ext(path), img)
	if err != nil {
		return err
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// Resize scales img by factor. A factor of 1 returns a copy.
func Resize(img gocv.Mat, factor float64) gocv.Mat {
	out := gocv.NewMat()
	if factor == 1 {
		img.CopyTo(&out)
		return out
	}
	size := image.Pt(int(float64(img.Cols())*factor), int(float64(img.Rows())*factor))
	gocv.Resize(img, &out, size, 0, 0, gocv.InterpolationLinear)
	return out
}

// ListInputs returns the regular, non-hidden files of dir sorted by name.
func ListInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list inputs: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") || !entry.Type().IsRegular() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
