package detector

import (
	"context"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockPoseEstimator is a test implementation of the PoseEstimator interface.
// It allows tests to control the estimation results.
type MockPoseEstimator struct {
	mu        sync.Mutex
	landmarks *PoseLandmarks
	err       error
	opts      PoseOptions
	onResult  func(*PoseResult)
	frames    []image.Image
}

// NewMockPoseEstimator creates a new MockPoseEstimator instance.
func NewMockPoseEstimator() *MockPoseEstimator {
	return &MockPoseEstimator{opts: DefaultPoseOptions()}
}

// SetLandmarks sets the pose delivered with every result. Nil means no pose.
func (m *MockPoseEstimator) SetLandmarks(lm *PoseLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.landmarks = lm
}

// SetError sets the error that will be returned by Submit.
func (m *MockPoseEstimator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Configure records the options.
func (m *MockPoseEstimator) Configure(opts PoseOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opts = opts
	return nil
}

// Options returns the last configured options.
func (m *MockPoseEstimator) Options() PoseOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opts
}

// OnResult registers the result callback.
func (m *MockPoseEstimator) OnResult(fn func(*PoseResult)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onResult = fn
}

// Submit records the frame and delivers the configured result.
func (m *MockPoseEstimator) Submit(ctx context.Context, frame *gocv.Mat) error {
	m.mu.Lock()
	if m.err != nil {
		err := m.err
		m.mu.Unlock()
		return err
	}
	img := snapshot(frame)
	m.frames = append(m.frames, img)
	result := &PoseResult{Image: img, Landmarks: m.landmarks}
	fn := m.onResult
	m.mu.Unlock()

	if fn != nil {
		fn(result)
	}
	return nil
}

// Submissions returns the number of frames successfully submitted.
func (m *MockPoseEstimator) Submissions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// Frames returns copies of the submitted frames in order.
func (m *MockPoseEstimator) Frames() []image.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]image.Image(nil), m.frames...)
}

// Close is a no-op for the mock estimator.
func (m *MockPoseEstimator) Close() error {
	return nil
}

// MockHandEstimator is a test implementation of the HandEstimator interface.
type MockHandEstimator struct {
	mu       sync.Mutex
	hands    []HandLandmarks
	err      error
	opts     HandOptions
	onResult func(*HandResult)
	frames   []image.Image
}

// NewMockHandEstimator creates a new MockHandEstimator instance.
func NewMockHandEstimator() *MockHandEstimator {
	return &MockHandEstimator{opts: DefaultHandOptions()}
}

// SetHands sets the hands delivered with every result.
func (m *MockHandEstimator) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Submit.
func (m *MockHandEstimator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Configure records the options.
func (m *MockHandEstimator) Configure(opts HandOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opts = opts
	return nil
}

// Options returns the last configured options.
func (m *MockHandEstimator) Options() HandOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opts
}

// OnResult registers the result callback.
func (m *MockHandEstimator) OnResult(fn func(*HandResult)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onResult = fn
}

// Submit records the frame and delivers the configured result.
func (m *MockHandEstimator) Submit(ctx context.Context, frame *gocv.Mat) error {
	m.mu.Lock()
	if m.err != nil {
		err := m.err
		m.mu.Unlock()
		return err
	}
	img := snapshot(frame)
	m.frames = append(m.frames, img)
	hands := m.hands
	if len(hands) > m.opts.MaxHands {
		hands = hands[:m.opts.MaxHands]
	}
	result := &HandResult{Image: img, Hands: hands}
	fn := m.onResult
	m.mu.Unlock()

	if fn != nil {
		fn(result)
	}
	return nil
}

// Submissions returns the number of frames successfully submitted.
func (m *MockHandEstimator) Submissions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// Frames returns copies of the submitted frames in order.
func (m *MockHandEstimator) Frames() []image.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]image.Image(nil), m.frames...)
}

// Close is a no-op for the mock estimator.
func (m *MockHandEstimator) Close() error {
	return nil
}

func snapshot(frame *gocv.Mat) image.Image {
	if frame == nil || frame.Empty() {
		return nil
	}
	img, err := frame.ToImage()
	if err != nil {
		return nil
	}
	return img
}

// NeutralPoseLandmarks returns a standing pose with both arms down and
// hands well away from the face.
func NeutralPoseLandmarks() *PoseLandmarks {
	var lm PoseLandmarks

	lm[Nose] = Landmark{X: 0.50, Y: 0.20, Visibility: 0.99}
	lm[LeftEye] = Landmark{X: 0.52, Y: 0.18, Visibility: 0.99}
	lm[RightEye] = Landmark{X: 0.48, Y: 0.18, Visibility: 0.99}
	lm[LeftEar] = Landmark{X: 0.55, Y: 0.19, Visibility: 0.95}
	lm[RightEar] = Landmark{X: 0.45, Y: 0.19, Visibility: 0.95}
	lm[MouthLeft] = Landmark{X: 0.52, Y: 0.24, Visibility: 0.98}
	lm[MouthRight] = Landmark{X: 0.48, Y: 0.24, Visibility: 0.98}

	lm[LeftShoulder] = Landmark{X: 0.62, Y: 0.35, Visibility: 0.99}
	lm[RightShoulder] = Landmark{X: 0.38, Y: 0.35, Visibility: 0.99}
	lm[LeftElbow] = Landmark{X: 0.66, Y: 0.50, Visibility: 0.97}
	lm[RightElbow] = Landmark{X: 0.34, Y: 0.50, Visibility: 0.97}
	lm[LeftWrist] = Landmark{X: 0.67, Y: 0.65, Visibility: 0.95}
	lm[RightWrist] = Landmark{X: 0.33, Y: 0.65, Visibility: 0.95}

	lm[LeftHip] = Landmark{X: 0.58, Y: 0.70, Visibility: 0.90}
	lm[RightHip] = Landmark{X: 0.42, Y: 0.70, Visibility: 0.90}
	lm[LeftKnee] = Landmark{X: 0.58, Y: 0.85, Visibility: 0.80}
	lm[RightKnee] = Landmark{X: 0.42, Y: 0.85, Visibility: 0.80}
	lm[LeftAnkle] = Landmark{X: 0.58, Y: 0.98, Visibility: 0.60}
	lm[RightAnkle] = Landmark{X: 0.42, Y: 0.98, Visibility: 0.60}

	return &lm
}

// ArmRaisedPoseLandmarks returns a pose with the given wrist lifted above its shoulder.
func ArmRaisedPoseLandmarks(wrist int) *PoseLandmarks {
	lm := NeutralPoseLandmarks()
	switch wrist {
	case LeftWrist:
		lm[LeftElbow] = Landmark{X: 0.70, Y: 0.25, Visibility: 0.97}
		lm[LeftWrist] = Landmark{X: 0.72, Y: 0.10, Visibility: 0.95}
	case RightWrist:
		lm[RightElbow] = Landmark{X: 0.30, Y: 0.25, Visibility: 0.97}
		lm[RightWrist] = Landmark{X: 0.28, Y: 0.10, Visibility: 0.95}
	}
	return lm
}

// ThumbsUpLandmarks returns a preset HandLandmarks representing a thumbs up gesture.
// The thumb is extended upward while other fingers are curled.
func ThumbsUpLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Landmark{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended upward (pointing up, Y decreases going up)
	landmarks.Points[ThumbCMC] = Landmark{X: 0.55, Y: 0.75, Z: 0.0}
	landmarks.Points[ThumbMCP] = Landmark{X: 0.58, Y: 0.65, Z: 0.0}
	landmarks.Points[ThumbIP] = Landmark{X: 0.58, Y: 0.50, Z: 0.0}
	landmarks.Points[ThumbTip] = Landmark{X: 0.58, Y: 0.35, Z: 0.0}

	// Index finger curled (knuckles close together, tip near palm)
	landmarks.Points[IndexMCP] = Landmark{X: 0.55, Y: 0.70, Z: -0.02}
	landmarks.Points[IndexPIP] = Landmark{X: 0.55, Y: 0.68, Z: -0.05}
	landmarks.Points[IndexDIP] = Landmark{X: 0.52, Y: 0.70, Z: -0.04}
	landmarks.Points[IndexTip] = Landmark{X: 0.50, Y: 0.72, Z: -0.02}

	landmarks.Points[MiddleMCP] = Landmark{X: 0.50, Y: 0.68, Z: -0.02}
	landmarks.Points[MiddlePIP] = Landmark{X: 0.50, Y: 0.66, Z: -0.05}
	landmarks.Points[MiddleDIP] = Landmark{X: 0.47, Y: 0.68, Z: -0.04}
	landmarks.Points[MiddleTip] = Landmark{X: 0.45, Y: 0.70, Z: -0.02}

	landmarks.Points[RingMCP] = Landmark{X: 0.45, Y: 0.70, Z: -0.02}
	landmarks.Points[RingPIP] = Landmark{X: 0.45, Y: 0.68, Z: -0.05}
	landmarks.Points[RingDIP] = Landmark{X: 0.42, Y: 0.70, Z: -0.04}
	landmarks.Points[RingTip] = Landmark{X: 0.40, Y: 0.72, Z: -0.02}

	landmarks.Points[PinkyMCP] = Landmark{X: 0.40, Y: 0.72, Z: -0.02}
	landmarks.Points[PinkyPIP] = Landmark{X: 0.40, Y: 0.70, Z: -0.05}
	landmarks.Points[PinkyDIP] = Landmark{X: 0.37, Y: 0.72, Z: -0.04}
	landmarks.Points[PinkyTip] = Landmark{X: 0.35, Y: 0.74, Z: -0.02}

	return landmarks
}

// ThumbsDownLandmarks returns a preset HandLandmarks representing a thumbs down gesture.
// It is the thumbs up hand with the thumb pointing toward the bottom of the image.
func ThumbsDownLandmarks() HandLandmarks {
	landmarks := ThumbsUpLandmarks()

	landmarks.Points[ThumbCMC] = Landmark{X: 0.55, Y: 0.78, Z: 0.0}
	landmarks.Points[ThumbMCP] = Landmark{X: 0.58, Y: 0.82, Z: 0.0}
	landmarks.Points[ThumbIP] = Landmark{X: 0.58, Y: 0.90, Z: 0.0}
	landmarks.Points[ThumbTip] = Landmark{X: 0.58, Y: 0.97, Z: 0.0}

	return landmarks
}

// OpenPalmLandmarks returns a preset HandLandmarks representing an open palm gesture.
// All fingers are extended outward.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Landmark{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	landmarks.Points[ThumbCMC] = Landmark{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Landmark{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Landmark{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Landmark{X: 0.73, Y: 0.60, Z: 0.03}

	landmarks.Points[IndexMCP] = Landmark{X: 0.55, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Landmark{X: 0.57, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Landmark{X: 0.58, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Landmark{X: 0.58, Y: 0.35, Z: 0.0}

	landmarks.Points[MiddleMCP] = Landmark{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Landmark{X: 0.50, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Landmark{X: 0.50, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Landmark{X: 0.50, Y: 0.28, Z: 0.0}

	landmarks.Points[RingMCP] = Landmark{X: 0.45, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Landmark{X: 0.43, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Landmark{X: 0.42, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Landmark{X: 0.42, Y: 0.35, Z: 0.0}

	landmarks.Points[PinkyMCP] = Landmark{X: 0.40, Y: 0.70, Z: 0.0}
	landmarks.Points[PinkyPIP] = Landmark{X: 0.37, Y: 0.60, Z: 0.0}
	landmarks.Points[PinkyDIP] = Landmark{X: 0.35, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Landmark{X: 0.34, Y: 0.42, Z: 0.0}

	return landmarks
}
