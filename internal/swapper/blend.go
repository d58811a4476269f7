package swapper

import (
	"fmt"

	"gocv.io/x/gocv"
)

// CombineMasks returns the element-wise maximum of two masks of equal shape.
func CombineMasks(a, b gocv.Mat) gocv.Mat {
	out := gocv.NewMat()
	gocv.Max(a, b, &out)
	return out
}

// Composite blends corrected over target: target*(1-mask) + corrected*mask,
// per pixel and channel. The blend runs in float64; the result is rounded and
// saturated to CV8UC3.
func Composite(target, corrected, mask gocv.Mat) (gocv.Mat, error) {
	if !sameSize(target, corrected) || !sameSize(target, mask) {
		return gocv.Mat{}, fmt.Errorf("composite: size mismatch")
	}

	blended := toFloat(target)
	defer blended.Close()
	c := toFloat(corrected)
	defer c.Close()
	m := toFloat(mask)
	defer m.Close()

	out, err := blended.DataPtrFloat64()
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("composite: %w", err)
	}
	cp, err := c.DataPtrFloat64()
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("composite: %w", err)
	}
	mp, err := m.DataPtrFloat64()
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("composite: %w", err)
	}

	for i := range out {
		out[i] = out[i]*(1-mp[i]) + cp[i]*mp[i]
	}

	result := gocv.NewMat()
	blended.ConvertTo(&result, gocv.MatTypeCV8UC3)
	return result, nil
}

func sameSize(a, b gocv.Mat) bool {
	return a.Rows() == b.Rows() && a.Cols() == b.Cols()
}
