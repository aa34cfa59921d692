// Package gesture classifies static body and hand gestures from landmark coordinates.
package gesture

import (
	"math"

	"github.com/ayusman/motionmasters/internal/detector"
)

// Label is the text shown on the status display.
type Label string

const (
	LabelWaiting        Label = "Waiting..."
	LabelLeftArmRaised  Label = "Left Arm Raised"
	LabelRightArmRaised Label = "Right Arm Raised"
	LabelTouchingHead   Label = "Touching Head"
	LabelThumbsUp       Label = "Thumbs Up"
	LabelThumbsDown     Label = "Thumbs Down"
	LabelCameraStarted  Label = "Camera started!"
)

// HeadTouchThreshold is the normalized wrist-to-nose distance below which a
// hand counts as touching the head.
const HeadTouchThreshold = 0.1

// curledFingers pairs each non-thumb fingertip with its PIP joint.
var curledFingers = [4][2]int{
	{detector.IndexTip, detector.IndexPIP},
	{detector.MiddleTip, detector.MiddlePIP},
	{detector.RingTip, detector.RingPIP},
	{detector.PinkyTip, detector.PinkyPIP},
}

// IsFingerUp reports whether the fingertip is above its PIP joint.
func IsFingerUp(hand *detector.HandLandmarks, tip, pip int) bool {
	return hand.Points[tip].Y < hand.Points[pip].Y
}

// IsArmRaised reports whether the wrist is higher on screen than the shoulder.
func IsArmRaised(wrist, shoulder detector.Landmark) bool {
	return wrist.Y < shoulder.Y
}

// IsLeftArmRaised reports whether the left wrist is above the left shoulder.
func IsLeftArmRaised(pose *detector.PoseLandmarks) bool {
	return IsArmRaised(pose[detector.LeftWrist], pose[detector.LeftShoulder])
}

// IsRightArmRaised reports whether the right wrist is above the right shoulder.
func IsRightArmRaised(pose *detector.PoseLandmarks) bool {
	return IsArmRaised(pose[detector.RightWrist], pose[detector.RightShoulder])
}

// IsTouchingHead reports whether either wrist is strictly within
// HeadTouchThreshold of the nose. Only X and Y are considered.
func IsTouchingHead(pose *detector.PoseLandmarks) bool {
	nose := pose[detector.Nose]
	return distance2D(pose[detector.LeftWrist], nose) < HeadTouchThreshold ||
		distance2D(pose[detector.RightWrist], nose) < HeadTouchThreshold
}

// IsThumbsUp reports a thumb pointing up over a closed fist.
func IsThumbsUp(hand *detector.HandLandmarks) bool {
	thumbUp := hand.Points[detector.ThumbTip].Y < hand.Points[detector.ThumbMCP].Y
	return thumbUp && fingersCurled(hand)
}

// IsThumbsDown reports a thumb pointing down over a closed fist.
func IsThumbsDown(hand *detector.HandLandmarks) bool {
	thumbDown := hand.Points[detector.ThumbTip].Y > hand.Points[detector.ThumbMCP].Y
	return thumbDown && fingersCurled(hand)
}

// ClassifyPose returns the pose label, or ok=false when no pose rule fires.
// Touching the head wins over a raised arm, and right wins over left.
func ClassifyPose(pose *detector.PoseLandmarks) (label Label, ok bool) {
	if pose == nil {
		return "", false
	}
	if IsLeftArmRaised(pose) {
		label, ok = LabelLeftArmRaised, true
	}
	if IsRightArmRaised(pose) {
		label, ok = LabelRightArmRaised, true
	}
	if IsTouchingHead(pose) {
		label, ok = LabelTouchingHead, true
	}
	return label, ok
}

// ClassifyHand returns the thumb label for one hand, or ok=false.
func ClassifyHand(hand *detector.HandLandmarks) (Label, bool) {
	if IsThumbsUp(hand) {
		return LabelThumbsUp, true
	}
	if IsThumbsDown(hand) {
		return LabelThumbsDown, true
	}
	return "", false
}

// Classify combines pose and hand rules into a single label.
// Hands are scanned in detection order and the first thumb match wins over
// any pose label. LabelWaiting is returned when nothing matches.
func Classify(pose *detector.PoseLandmarks, hands []detector.HandLandmarks) Label {
	detected := LabelWaiting

	if label, ok := ClassifyPose(pose); ok {
		detected = label
	}

	for i := range hands {
		if label, ok := ClassifyHand(&hands[i]); ok {
			detected = label
			break
		}
	}

	return detected
}

func fingersCurled(hand *detector.HandLandmarks) bool {
	for _, f := range curledFingers {
		if hand.Points[f[0]].Y <= hand.Points[f[1]].Y {
			return false
		}
	}
	return true
}

func distance2D(a, b detector.Landmark) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
