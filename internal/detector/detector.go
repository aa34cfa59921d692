package detector

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"
)

// PoseEstimator defines the contract for body pose estimation implementations.
type PoseEstimator interface {
	// Configure replaces the estimator options. It takes effect on the next Submit.
	Configure(opts PoseOptions) error

	// Submit sends a frame to the estimator and returns once the result
	// callback has run for that frame.
	Submit(ctx context.Context, frame *gocv.Mat) error

	// OnResult registers the callback that receives every result.
	OnResult(fn func(*PoseResult))

	// Close releases any resources held by the estimator.
	Close() error
}

// HandEstimator defines the contract for hand landmark estimation implementations.
type HandEstimator interface {
	// Configure replaces the estimator options. It takes effect on the next Submit.
	Configure(opts HandOptions) error

	// Submit sends a frame to the estimator and returns once the result
	// callback has run for that frame.
	Submit(ctx context.Context, frame *gocv.Mat) error

	// OnResult registers the callback that receives every result.
	OnResult(fn func(*HandResult))

	// Close releases any resources held by the estimator.
	Close() error
}

// PoseOptions holds configuration options for pose estimation.
type PoseOptions struct {
	// ModelComplexity selects the pose model variant (0, 1 or 2).
	ModelComplexity int `json:"modelComplexity" yaml:"model_complexity"`

	// MinDetectionConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinDetectionConfidence float64 `json:"minDetectionConfidence" yaml:"min_detection_confidence"`

	// MinTrackingConfidence is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConfidence float64 `json:"minTrackingConfidence" yaml:"min_tracking_confidence"`
}

// HandOptions holds configuration options for hand estimation.
type HandOptions struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int `json:"maxNumHands" yaml:"max_hands"`

	// MinDetectionConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinDetectionConfidence float64 `json:"minDetectionConfidence" yaml:"min_detection_confidence"`

	// MinTrackingConfidence is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConfidence float64 `json:"minTrackingConfidence" yaml:"min_tracking_confidence"`
}

// DefaultPoseOptions returns the pose options used by the demo.
func DefaultPoseOptions() PoseOptions {
	return PoseOptions{
		ModelComplexity:        1,
		MinDetectionConfidence: 0.6,
		MinTrackingConfidence:  0.6,
	}
}

// DefaultHandOptions returns the hand options used by the demo.
func DefaultHandOptions() HandOptions {
	return HandOptions{
		MaxHands:               2,
		MinDetectionConfidence: 0.6,
		MinTrackingConfidence:  0.6,
	}
}

// Validate checks that the options are within range.
func (o PoseOptions) Validate() error {
	if o.ModelComplexity < 0 || o.ModelComplexity > 2 {
		return fmt.Errorf("model complexity %d out of range [0,2]", o.ModelComplexity)
	}
	return validateConfidence(o.MinDetectionConfidence, o.MinTrackingConfidence)
}

// Validate checks that the options are within range.
func (o HandOptions) Validate() error {
	if o.MaxHands < 1 {
		return fmt.Errorf("max hands must be at least 1, got %d", o.MaxHands)
	}
	return validateConfidence(o.MinDetectionConfidence, o.MinTrackingConfidence)
}

func validateConfidence(detection, tracking float64) error {
	if detection < 0 || detection > 1 {
		return fmt.Errorf("min detection confidence %.2f out of range [0,1]", detection)
	}
	if tracking < 0 || tracking > 1 {
		return fmt.Errorf("min tracking confidence %.2f out of range [0,1]", tracking)
	}
	return nil
}
