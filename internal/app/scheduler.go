package app

import (
	"context"
	"fmt"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/motionmasters/internal/capture"
	"github.com/ayusman/motionmasters/internal/detector"
)

// DefaultHandEvery is the hand estimator cadence: every second frame.
const DefaultHandEvery = 2

// Scheduler feeds camera frames to the estimators.
//
// Scheduling rules:
// 1. Drop frames until the camera has reported a successful start
// 2. Submit every frame to the pose estimator and wait for it
// 3. Count the frame
// 4. On every handEvery-th frame, mirror it and submit the copy to the hand estimator
// 5. Hand-path failures are logged and skipped; they never stop the scheduler
type Scheduler struct {
	pose      detector.PoseEstimator
	hands     detector.HandEstimator
	handEvery int64
	logger    *zap.SugaredLogger

	started atomic.Bool
	paused  atomic.Bool
	frames  atomic.Int64
}

// NewScheduler creates a Scheduler. handEvery values below 1 use DefaultHandEvery.
func NewScheduler(pose detector.PoseEstimator, hands detector.HandEstimator, handEvery int, logger *zap.SugaredLogger) *Scheduler {
	if handEvery < 1 {
		handEvery = DefaultHandEvery
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Scheduler{
		pose:      pose,
		hands:     hands,
		handEvery: int64(handEvery),
		logger:    logger,
	}
}

// MarkStarted opens the gate once the camera has started.
func (s *Scheduler) MarkStarted() {
	s.started.Store(true)
}

// Started reports whether frames are being submitted.
func (s *Scheduler) Started() bool {
	return s.started.Load()
}

// SetPaused drops frames while paused without touching the frame counter.
func (s *Scheduler) SetPaused(paused bool) {
	s.paused.Store(paused)
}

// Paused reports whether the scheduler is paused.
func (s *Scheduler) Paused() bool {
	return s.paused.Load()
}

// FrameCount returns the number of frames processed by the pose estimator.
func (s *Scheduler) FrameCount() int64 {
	return s.frames.Load()
}

// HandleFrame processes a single camera frame. It matches capture.FrameHandler.
// A pose failure is returned to the caller and the frame is not counted.
func (s *Scheduler) HandleFrame(ctx context.Context, frame *gocv.Mat) error {
	if !s.started.Load() || s.paused.Load() {
		return nil
	}

	if err := s.pose.Submit(ctx, frame); err != nil {
		return fmt.Errorf("pose estimation: %w", err)
	}

	count := s.frames.Inc()
	if count%s.handEvery == 0 {
		if err := s.submitHands(ctx, frame); err != nil {
			s.logger.Warnf("Hands frame skipped: %v", err)
		}
	}

	return nil
}

// submitHands mirrors frame and runs the hand estimator on the copy.
func (s *Scheduler) submitHands(ctx context.Context, frame *gocv.Mat) (err error) {
	// The hand path must never take the scheduler down.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in hand path: %v", r)
		}
	}()

	mirrored, err := capture.Mirror(frame)
	if err != nil {
		return fmt.Errorf("mirror frame: %w", err)
	}
	defer mirrored.Close()

	return s.hands.Submit(ctx, mirrored)
}
