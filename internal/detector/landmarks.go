// Package detector provides the landmark model and the estimator contracts
// that feed pose and hand keypoints into the gesture pipeline.
package detector

import "image"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Pose landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose             = 0
	LeftEyeInner     = 1
	LeftEye          = 2
	LeftEyeOuter     = 3
	RightEyeInner    = 4
	RightEye         = 5
	RightEyeOuter    = 6
	LeftEar          = 7
	RightEar         = 8
	MouthLeft        = 9
	MouthRight       = 10
	LeftShoulder     = 11
	RightShoulder    = 12
	LeftElbow        = 13
	RightElbow       = 14
	LeftWrist        = 15
	RightWrist       = 16
	LeftPinky        = 17
	RightPinky       = 18
	LeftIndex        = 19
	RightIndex       = 20
	LeftThumb        = 21
	RightThumb       = 22
	LeftHip          = 23
	RightHip         = 24
	LeftKnee         = 25
	RightKnee        = 26
	LeftAnkle        = 27
	RightAnkle       = 28
	LeftHeel         = 29
	RightHeel        = 30
	LeftFootIndex    = 31
	RightFootIndex   = 32
	NumPoseLandmarks = 33
)

// Landmark is a keypoint in normalized image coordinates.
// X and Y are in [0,1] relative to the image width and height, with the
// origin at the top-left corner and Y increasing downward.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility,omitempty"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Landmark `json:"points"`
	Handedness string                 `json:"handedness"` // "Left" or "Right"
	Score      float64                `json:"score"`
}

// PoseLandmarks represents the 33 body landmarks detected by MediaPipe.
type PoseLandmarks [NumPoseLandmarks]Landmark

// PoseResult is a single pose estimator output.
// Landmarks is nil when no body was found in Image.
type PoseResult struct {
	Image     image.Image
	Landmarks *PoseLandmarks
}

// HandResult is a single hand estimator output.
// Hands holds zero, one or two hands in detection order.
type HandResult struct {
	Image image.Image
	Hands []HandLandmarks
}

// HasLandmarks reports whether the result carries a detected pose.
func (r *PoseResult) HasLandmarks() bool {
	return r != nil && r.Landmarks != nil
}

// HasHands reports whether the result carries at least one hand.
func (r *HandResult) HasHands() bool {
	return r != nil && len(r.Hands) > 0
}
