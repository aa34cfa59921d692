package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/motionmasters/internal/detector"
)

// Connection joins two landmark indices with a line.
type Connection [2]int

// Overlay colors.
var (
	ConnectorColor = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	PoseColor      = color.RGBA{R: 0, G: 255, B: 255, A: 0}
	HandColor      = color.RGBA{R: 255, G: 255, B: 0, A: 0}
)

// Stroke sizes in pixels.
const (
	ConnectorThickness = 2
	PointRadius        = 3
)

// PoseConnections is the MediaPipe body skeleton.
var PoseConnections = []Connection{
	{detector.Nose, detector.LeftEyeInner}, {detector.LeftEyeInner, detector.LeftEye},
	{detector.LeftEye, detector.LeftEyeOuter}, {detector.LeftEyeOuter, detector.LeftEar},
	{detector.Nose, detector.RightEyeInner}, {detector.RightEyeInner, detector.RightEye},
	{detector.RightEye, detector.RightEyeOuter}, {detector.RightEyeOuter, detector.RightEar},
	{detector.MouthLeft, detector.MouthRight},
	{detector.LeftShoulder, detector.RightShoulder},
	{detector.LeftShoulder, detector.LeftElbow}, {detector.LeftElbow, detector.LeftWrist},
	{detector.LeftWrist, detector.LeftPinky}, {detector.LeftWrist, detector.LeftIndex},
	{detector.LeftWrist, detector.LeftThumb}, {detector.LeftPinky, detector.LeftIndex},
	{detector.RightShoulder, detector.RightElbow}, {detector.RightElbow, detector.RightWrist},
	{detector.RightWrist, detector.RightPinky}, {detector.RightWrist, detector.RightIndex},
	{detector.RightWrist, detector.RightThumb}, {detector.RightPinky, detector.RightIndex},
	{detector.LeftShoulder, detector.LeftHip}, {detector.RightShoulder, detector.RightHip},
	{detector.LeftHip, detector.RightHip},
	{detector.LeftHip, detector.LeftKnee}, {detector.RightHip, detector.RightKnee},
	{detector.LeftKnee, detector.LeftAnkle}, {detector.RightKnee, detector.RightAnkle},
	{detector.LeftAnkle, detector.LeftHeel}, {detector.RightAnkle, detector.RightHeel},
	{detector.LeftHeel, detector.LeftFootIndex}, {detector.RightHeel, detector.RightFootIndex},
	{detector.LeftAnkle, detector.LeftFootIndex}, {detector.RightAnkle, detector.RightFootIndex},
}

// HandConnections is the MediaPipe hand skeleton.
var HandConnections = []Connection{
	{detector.Wrist, detector.ThumbCMC}, {detector.ThumbCMC, detector.ThumbMCP},
	{detector.ThumbMCP, detector.ThumbIP}, {detector.ThumbIP, detector.ThumbTip},
	{detector.Wrist, detector.IndexMCP}, {detector.IndexMCP, detector.IndexPIP},
	{detector.IndexPIP, detector.IndexDIP}, {detector.IndexDIP, detector.IndexTip},
	{detector.IndexMCP, detector.MiddleMCP}, {detector.MiddleMCP, detector.MiddlePIP},
	{detector.MiddlePIP, detector.MiddleDIP}, {detector.MiddleDIP, detector.MiddleTip},
	{detector.MiddleMCP, detector.RingMCP}, {detector.RingMCP, detector.RingPIP},
	{detector.RingPIP, detector.RingDIP}, {detector.RingDIP, detector.RingTip},
	{detector.RingMCP, detector.PinkyMCP}, {detector.Wrist, detector.PinkyMCP},
	{detector.PinkyMCP, detector.PinkyPIP}, {detector.PinkyPIP, detector.PinkyDIP},
	{detector.PinkyDIP, detector.PinkyTip},
}

// DrawConnectors draws a line for every connection whose endpoints exist in points.
func DrawConnectors(canvas *gocv.Mat, points []detector.Landmark, connections []Connection, c color.RGBA) {
	for _, conn := range connections {
		if conn[0] >= len(points) || conn[1] >= len(points) {
			continue
		}
		gocv.Line(canvas, toPixel(canvas, points[conn[0]]), toPixel(canvas, points[conn[1]]), c, ConnectorThickness)
	}
}

// DrawLandmarks draws a filled circle at every landmark.
func DrawLandmarks(canvas *gocv.Mat, points []detector.Landmark, c color.RGBA) {
	for _, p := range points {
		gocv.Circle(canvas, toPixel(canvas, p), PointRadius, c, -1)
	}
}

// toPixel maps normalized coordinates onto the canvas.
func toPixel(canvas *gocv.Mat, p detector.Landmark) image.Point {
	return image.Pt(int(p.X*float64(canvas.Cols())), int(p.Y*float64(canvas.Rows())))
}
