package render

import (
	"context"
	"image"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/motionmasters/internal/detector"
	"github.com/ayusman/motionmasters/internal/gesture"
)

// DefaultFPS is the render rate, matching a typical display refresh.
const DefaultFPS = 60

// Source exposes the latest estimator results. Either result may be nil.
type Source interface {
	Pose() *detector.PoseResult
	Hands() *detector.HandResult
}

// Config holds the render loop settings.
type Config struct {
	Width    int
	Height   int
	FPS      int
	Surfaces Surfaces
	Status   StatusSink
	Clock    clock.Clock
	Logger   *zap.SugaredLogger
}

// Loop redraws the overlay and recomputes the label on every tick.
// It only reads already-available results and never waits on an estimator.
type Loop struct {
	source   Source
	surfaces Surfaces
	status   StatusSink
	clock    clock.Clock
	interval time.Duration
	logger   *zap.SugaredLogger

	canvas     gocv.Mat
	background gocv.Mat
	lastPose   *detector.PoseResult
	ticks      atomic.Int64
}

// NewLoop creates a render loop reading from source.
// Zero width, height or FPS fall back to 480x360 at DefaultFPS.
func NewLoop(source Source, config Config) *Loop {
	if config.Width <= 0 {
		config.Width = 480
	}
	if config.Height <= 0 {
		config.Height = 360
	}
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}
	if config.Status == nil {
		config.Status = Statuses(nil)
	}

	return &Loop{
		source:     source,
		surfaces:   config.Surfaces,
		status:     config.Status,
		clock:      config.Clock,
		interval:   time.Second / time.Duration(config.FPS),
		logger:     config.Logger,
		canvas:     gocv.NewMatWithSize(config.Height, config.Width, gocv.MatTypeCV8UC3),
		background: gocv.NewMat(),
	}
}

// Run ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.clock.Ticker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Tick()
		}
	}
}

// Tick renders one frame and publishes the resulting label.
//
// Render steps:
// 1. Clear the canvas
// 2. Draw the latest pose image as the background, if any
// 3. Draw the skeleton and run the pose classifiers, if a pose was found
// 4. Draw each hand and run the thumb classifiers, stopping at the first match
// 5. Present the canvas and publish the label
func (l *Loop) Tick() gesture.Label {
	l.ticks.Inc()
	l.canvas.SetTo(gocv.NewScalar(0, 0, 0, 0))

	detected := gesture.LabelWaiting

	if pose := l.source.Pose(); pose != nil && pose.Image != nil {
		l.drawBackground(pose)

		if pose.Landmarks != nil {
			DrawConnectors(&l.canvas, pose.Landmarks[:], PoseConnections, ConnectorColor)
			DrawLandmarks(&l.canvas, pose.Landmarks[:], PoseColor)

			if label, ok := gesture.ClassifyPose(pose.Landmarks); ok {
				detected = label
			}
		}
	}

	if hands := l.source.Hands(); hands.HasHands() {
		for i := range hands.Hands {
			hand := &hands.Hands[i]
			DrawConnectors(&l.canvas, hand.Points[:], HandConnections, ConnectorColor)
			DrawLandmarks(&l.canvas, hand.Points[:], HandColor)

			if label, ok := gesture.ClassifyHand(hand); ok {
				detected = label
				break
			}
		}
	}

	if err := l.surfaces.Present(&l.canvas); err != nil {
		l.logger.Warnf("Present frame: %v", err)
	}
	l.status.SetLabel(detected)

	return detected
}

// Ticks returns the number of rendered frames.
func (l *Loop) Ticks() int64 {
	return l.ticks.Load()
}

// Close releases the canvas buffers.
func (l *Loop) Close() error {
	l.background.Close()
	return l.canvas.Close()
}

// drawBackground scales the pose image onto the canvas. The converted image
// is cached until a new pose result arrives.
func (l *Loop) drawBackground(pose *detector.PoseResult) {
	if pose != l.lastPose {
		mat, err := gocv.ImageToMatRGB(pose.Image)
		if err != nil {
			l.logger.Debugf("Convert pose image: %v", err)
			return
		}
		l.background.Close()
		l.background = mat
		l.lastPose = pose
	}

	if l.background.Empty() {
		return
	}

	size := image.Pt(l.canvas.Cols(), l.canvas.Rows())
	gocv.Resize(l.background, &l.canvas, size, 0, 0, gocv.InterpolationLinear)
}
