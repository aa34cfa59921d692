package app

import (
	"go.uber.org/atomic"

	"github.com/ayusman/motionmasters/internal/detector"
)

// Results holds the latest pose and hand estimator outputs.
//
// Each slot has a single writer (its estimator callback) and any number of
// readers. Writers replace the whole result, so readers always see a
// complete snapshot. The two slots age independently.
type Results struct {
	pose  atomic.Pointer[detector.PoseResult]
	hands atomic.Pointer[detector.HandResult]
}

// NewResults returns an empty Results with both slots absent.
func NewResults() *Results {
	return &Results{}
}

// SetPose replaces the latest pose result.
func (r *Results) SetPose(result *detector.PoseResult) {
	r.pose.Store(result)
}

// SetHands replaces the latest hand result.
func (r *Results) SetHands(result *detector.HandResult) {
	r.hands.Store(result)
}

// Pose returns the latest pose result, or nil before the first one.
func (r *Results) Pose() *detector.PoseResult {
	return r.pose.Load()
}

// Hands returns the latest hand result, or nil before the first one.
func (r *Results) Hands() *detector.HandResult {
	return r.hands.Load()
}
