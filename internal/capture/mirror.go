package capture

import (
	"errors"

	"gocv.io/x/gocv"
)

// flipHorizontal is the OpenCV flip code for mirroring around the vertical axis.
const flipHorizontal = 1

// Mirror returns a horizontally flipped copy of frame with the same size.
// The caller is responsible for closing the returned Mat.
func Mirror(frame *gocv.Mat) (*gocv.Mat, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("cannot mirror an empty frame")
	}

	mirrored := gocv.NewMat()
	gocv.Flip(*frame, &mirrored, flipHorizontal)

	if mirrored.Empty() {
		mirrored.Close()
		return nil, errors.New("mirrored frame is empty")
	}

	return &mirrored, nil
}
