// Package testdata builds synthetic camera frames for tests.
package testdata

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Frame size used by the tests, matching the default camera resolution.
const (
	FrameWidth  = 480
	FrameHeight = 360
)

// SolidFrame returns a BGR frame filled with a single color.
func SolidFrame(width, height int, b, g, r uint8) *gocv.Mat {
	mat := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(b), float64(g), float64(r), 0),
		height, width, gocv.MatTypeCV8UC3,
	)
	return &mat
}

// SplitFrame returns a BGR frame whose left half is blue and right half is red.
// Mirroring it horizontally swaps the two halves.
func SplitFrame(width, height int) *gocv.Mat {
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < width/2 {
				mat.SetUCharAt(y, x*3, 255)
			} else {
				mat.SetUCharAt(y, x*3+2, 255)
			}
		}
	}
	return &mat
}

// Sequence returns n solid frames whose blue channel encodes the frame index,
// so a consumer can tell which frame it received.
func Sequence(n int) ([]*gocv.Mat, error) {
	if n > 256 {
		return nil, fmt.Errorf("sequence of %d frames exceeds 256", n)
	}

	frames := make([]*gocv.Mat, 0, n)
	for i := 0; i < n; i++ {
		frames = append(frames, SolidFrame(FrameWidth, FrameHeight, uint8(i), 0, 0))
	}
	return frames, nil
}

// LoadFrame decodes an encoded image, such as a JPEG served by the stream
// endpoint, into a BGR frame.
func LoadFrame(data []byte) (*gocv.Mat, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("decode frame: empty image")
	}
	return &mat, nil
}

// CloseAll releases every frame.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
