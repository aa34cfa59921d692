package app

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/motionmasters/internal/detector"
	"github.com/ayusman/motionmasters/testdata"
)

func newTestScheduler(t *testing.T) (*Scheduler, *detector.MockPoseEstimator, *detector.MockHandEstimator) {
	t.Helper()

	pose := detector.NewMockPoseEstimator()
	hands := detector.NewMockHandEstimator()
	return NewScheduler(pose, hands, DefaultHandEvery, nil), pose, hands
}

func feed(t *testing.T, s *Scheduler, n int) {
	t.Helper()

	frame := testdata.SolidFrame(8, 6, 10, 20, 30)
	defer frame.Close()

	for i := 0; i < n; i++ {
		if err := s.HandleFrame(context.Background(), frame); err != nil {
			t.Fatalf("HandleFrame() frame %d error = %v", i+1, err)
		}
	}
}

func TestScheduler_DropsFramesBeforeStart(t *testing.T) {
	s, pose, hands := newTestScheduler(t)

	feed(t, s, 3)

	if pose.Submissions() != 0 || hands.Submissions() != 0 {
		t.Errorf("submissions before start = %d pose, %d hands; want 0, 0", pose.Submissions(), hands.Submissions())
	}
	if s.FrameCount() != 0 {
		t.Errorf("FrameCount() = %d, want 0", s.FrameCount())
	}
}

func TestScheduler_HandCadence(t *testing.T) {
	tests := []struct {
		frames    int
		wantPose  int
		wantHands int
	}{
		{frames: 1, wantPose: 1, wantHands: 0},
		{frames: 2, wantPose: 2, wantHands: 1},
		{frames: 3, wantPose: 3, wantHands: 1},
		{frames: 4, wantPose: 4, wantHands: 2},
		{frames: 9, wantPose: 9, wantHands: 4},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			s, pose, hands := newTestScheduler(t)
			s.MarkStarted()

			feed(t, s, tt.frames)

			if pose.Submissions() != tt.wantPose {
				t.Errorf("pose submissions = %d, want %d", pose.Submissions(), tt.wantPose)
			}
			if hands.Submissions() != tt.wantHands {
				t.Errorf("hand submissions = %d, want %d", hands.Submissions(), tt.wantHands)
			}
			if s.FrameCount() != int64(tt.frames) {
				t.Errorf("FrameCount() = %d, want %d", s.FrameCount(), tt.frames)
			}
		})
	}
}

func TestScheduler_CustomCadence(t *testing.T) {
	pose := detector.NewMockPoseEstimator()
	hands := detector.NewMockHandEstimator()
	s := NewScheduler(pose, hands, 3, nil)
	s.MarkStarted()

	feed(t, s, 7)

	if hands.Submissions() != 2 {
		t.Errorf("hand submissions = %d, want 2", hands.Submissions())
	}
}

func TestScheduler_HandFailureDoesNotStopPose(t *testing.T) {
	s, pose, hands := newTestScheduler(t)
	hands.SetError(errors.New("hands crashed"))
	s.MarkStarted()

	feed(t, s, 4)

	if pose.Submissions() != 4 {
		t.Errorf("pose submissions = %d, want 4", pose.Submissions())
	}
	if s.FrameCount() != 4 {
		t.Errorf("FrameCount() = %d, want 4", s.FrameCount())
	}
}

func TestScheduler_PoseFailureIsReturned(t *testing.T) {
	s, pose, hands := newTestScheduler(t)
	s.MarkStarted()

	frame := testdata.SolidFrame(8, 6, 0, 0, 0)
	defer frame.Close()

	poseErr := errors.New("pose crashed")
	pose.SetError(poseErr)

	err := s.HandleFrame(context.Background(), frame)
	if !errors.Is(err, poseErr) {
		t.Fatalf("HandleFrame() error = %v, want %v", err, poseErr)
	}
	if s.FrameCount() != 0 {
		t.Errorf("failed frame should not be counted, FrameCount() = %d", s.FrameCount())
	}

	// The next two good frames are 1 and 2, so hands run once
	pose.SetError(nil)
	feed(t, s, 2)

	if hands.Submissions() != 1 {
		t.Errorf("hand submissions = %d, want 1", hands.Submissions())
	}
}

func TestScheduler_HandsReceiveMirroredFrame(t *testing.T) {
	s, pose, hands := newTestScheduler(t)
	s.MarkStarted()

	frame := testdata.SplitFrame(8, 4)
	defer frame.Close()

	for i := 0; i < 2; i++ {
		if err := s.HandleFrame(context.Background(), frame); err != nil {
			t.Fatalf("HandleFrame() error = %v", err)
		}
	}

	poseFrames := pose.Frames()
	handFrames := hands.Frames()
	if len(handFrames) != 1 {
		t.Fatalf("hand frames = %d, want 1", len(handFrames))
	}

	blue := color.RGBA{B: 255, A: 255}
	red := color.RGBA{R: 255, A: 255}

	assertPixel := func(name string, got color.Color, want color.RGBA) {
		t.Helper()
		r, g, b, _ := got.RGBA()
		wr, wg, wb, _ := want.RGBA()
		if r != wr || g != wg || b != wb {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}

	assertPixel("pose left pixel", poseFrames[1].At(0, 0), blue)
	assertPixel("pose right pixel", poseFrames[1].At(7, 0), red)
	assertPixel("hand left pixel", handFrames[0].At(0, 0), red)
	assertPixel("hand right pixel", handFrames[0].At(7, 0), blue)

	if handFrames[0].Bounds() != poseFrames[1].Bounds() {
		t.Errorf("mirrored size = %v, want %v", handFrames[0].Bounds(), poseFrames[1].Bounds())
	}

	// The source frame itself is untouched
	if frame.GetUCharAt(0, 0) != 255 {
		t.Error("source frame was modified by mirroring")
	}
}

func TestScheduler_EmptyFrameSkipsHands(t *testing.T) {
	s, pose, hands := newTestScheduler(t)
	s.MarkStarted()

	empty := gocv.NewMat()
	defer empty.Close()

	for i := 0; i < 2; i++ {
		if err := s.HandleFrame(context.Background(), &empty); err != nil {
			t.Fatalf("HandleFrame() error = %v", err)
		}
	}

	if pose.Submissions() != 2 {
		t.Errorf("pose submissions = %d, want 2", pose.Submissions())
	}
	if hands.Submissions() != 0 {
		t.Errorf("hand submissions = %d, want 0 after mirror failure", hands.Submissions())
	}
}

func TestScheduler_Pause(t *testing.T) {
	s, pose, _ := newTestScheduler(t)
	s.MarkStarted()

	s.SetPaused(true)
	feed(t, s, 3)
	if pose.Submissions() != 0 {
		t.Errorf("pose submissions while paused = %d, want 0", pose.Submissions())
	}

	s.SetPaused(false)
	feed(t, s, 1)
	if s.FrameCount() != 1 {
		t.Errorf("FrameCount() = %d, want 1", s.FrameCount())
	}
}
