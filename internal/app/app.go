// Package app wires the camera, the landmark estimators and the render loop
// into the Motion Masters demo.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/motionmasters/internal/capture"
	"github.com/ayusman/motionmasters/internal/detector"
	"github.com/ayusman/motionmasters/internal/gesture"
	"github.com/ayusman/motionmasters/internal/render"
	"github.com/ayusman/motionmasters/internal/store"
)

// ErrAlreadyRunning is returned when Run is called on a running App.
var ErrAlreadyRunning = errors.New("app is already running")

// Config holds configuration options for the application.
type Config struct {
	Camera    capture.Config
	Pose      detector.PoseOptions
	Hands     detector.HandOptions
	HandEvery int
	RenderFPS int

	Surfaces render.Surfaces
	Status   render.StatusSink

	// Store persists estimator options. Optional.
	Store  *store.Store
	Clock  clock.Clock
	Logger *zap.SugaredLogger
}

// App owns the capture pipeline and the render loop.
type App struct {
	config  Config
	logger  *zap.SugaredLogger
	results *Results
	status  render.StatusSink

	mu        sync.RWMutex
	camera    capture.Camera
	pose      detector.PoseEstimator
	hands     detector.HandEstimator
	scheduler *Scheduler
	loop      *render.Loop
	running   atomic.Bool
}

// New creates a new App with the given configuration.
// MediaPipe estimators are used when the helper script is installed,
// otherwise the app falls back to mock estimators that never detect anything.
func New(config Config) *App {
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}
	if config.Status == nil {
		config.Status = render.Statuses(nil)
	}
	if config.Pose == (detector.PoseOptions{}) {
		config.Pose = detector.DefaultPoseOptions()
	}
	if config.Hands == (detector.HandOptions{}) {
		config.Hands = detector.DefaultHandOptions()
	}

	a := &App{
		config:  config,
		logger:  config.Logger,
		results: NewResults(),
		status:  config.Status,
		camera:  capture.NewCamera(config.Camera),
	}

	a.loadStoredOptions()

	var (
		pose  detector.PoseEstimator
		hands detector.HandEstimator
	)

	// Try MediaPipe first, fall back to mock estimators
	if mp, err := detector.NewMediaPipePoseEstimator(a.config.Pose, a.logger); err == nil {
		pose = mp
		a.logger.Info("Using MediaPipe pose estimation")
	} else {
		a.logger.Warnf("MediaPipe pose not available (%v), using mock estimator", err)
		pose = detector.NewMockPoseEstimator()
	}

	if mp, err := detector.NewMediaPipeHandEstimator(a.config.Hands, a.logger); err == nil {
		hands = mp
		a.logger.Info("Using MediaPipe hand estimation")
	} else {
		a.logger.Warnf("MediaPipe hands not available (%v), using mock estimator", err)
		hands = detector.NewMockHandEstimator()
	}

	a.SetEstimators(pose, hands)

	a.loop = render.NewLoop(a.results, render.Config{
		Width:    a.config.Camera.Width,
		Height:   a.config.Camera.Height,
		FPS:      a.config.RenderFPS,
		Surfaces: a.config.Surfaces,
		Status:   a.status,
		Clock:    a.config.Clock,
		Logger:   a.logger.Named("render"),
	})

	return a
}

// loadStoredOptions replaces the configured estimator options with the ones
// saved through the settings API, if any.
func (a *App) loadStoredOptions() {
	if a.config.Store == nil {
		return
	}
	settings := a.config.Store.Settings()

	var pose detector.PoseOptions
	switch err := settings.GetJSON(store.KeyPoseOptions, &pose); {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		a.logger.Warnf("Failed to load pose options: %v", err)
	case pose.Validate() != nil:
		a.logger.Warnf("Ignoring stored pose options: %v", pose.Validate())
	default:
		a.config.Pose = pose
	}

	var hands detector.HandOptions
	switch err := settings.GetJSON(store.KeyHandOptions, &hands); {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		a.logger.Warnf("Failed to load hand options: %v", err)
	case hands.Validate() != nil:
		a.logger.Warnf("Ignoring stored hand options: %v", hands.Validate())
	default:
		a.config.Hands = hands
	}
}

// SetCamera replaces the camera. It must be called before Run.
func (a *App) SetCamera(cam capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = cam
}

// SetEstimators replaces both estimators and rebuilds the scheduler around
// them. It must be called before Run.
func (a *App) SetEstimators(pose detector.PoseEstimator, hands detector.HandEstimator) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pose.OnResult(a.results.SetPose)
	hands.OnResult(a.results.SetHands)

	var paused bool
	if a.scheduler != nil {
		paused = a.scheduler.Paused()
	}

	a.pose = pose
	a.hands = hands
	a.scheduler = NewScheduler(pose, hands, a.config.HandEvery, a.logger.Named("scheduler"))
	a.scheduler.SetPaused(paused)
}

// Run opens the camera and processes frames until ctx is cancelled.
//
// Startup steps:
// 1. Start the render loop so the surfaces show "Waiting..." immediately
// 2. Open the camera
// 3. Open the scheduler gate and publish "Camera started!"
// 4. Feed frames to the scheduler until the camera runs out or ctx ends
func (a *App) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	a.mu.RLock()
	cam := a.camera
	scheduler := a.scheduler
	loop := a.loop
	a.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loop.Run(ctx)
	})

	g.Go(func() error {
		if err := cam.Open(); err != nil {
			return fmt.Errorf("open camera: %w", err)
		}
		defer func() {
			if err := cam.Close(); err != nil {
				a.logger.Warnf("Error closing camera: %v", err)
			}
		}()

		scheduler.MarkStarted()
		a.status.SetLabel(gesture.LabelCameraStarted)
		a.logger.Info("Camera started")

		return capture.Run(ctx, cam, scheduler.HandleFrame, a.logger.Named("capture"))
	})

	return g.Wait()
}

// Running reports whether Run is in progress.
func (a *App) Running() bool {
	return a.running.Load()
}

// SetPaused stops or resumes frame submission.
func (a *App) SetPaused(paused bool) {
	a.Scheduler().SetPaused(paused)
	if paused {
		a.logger.Info("Detection paused")
	} else {
		a.logger.Info("Detection resumed")
	}
}

// Paused reports whether frame submission is paused.
func (a *App) Paused() bool {
	return a.Scheduler().Paused()
}

// PoseOptions returns the active pose estimator options.
func (a *App) PoseOptions() detector.PoseOptions {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config.Pose
}

// HandOptions returns the active hand estimator options.
func (a *App) HandOptions() detector.HandOptions {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config.Hands
}

// ConfigurePose saves opts and applies them to the live pose estimator.
func (a *App) ConfigurePose(opts detector.PoseOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.saveOptions(store.KeyPoseOptions, opts); err != nil {
		return fmt.Errorf("save pose options: %w", err)
	}
	if err := a.pose.Configure(opts); err != nil {
		a.restoreOptions(store.KeyPoseOptions, a.config.Pose)
		return fmt.Errorf("configure pose estimator: %w", err)
	}
	a.config.Pose = opts
	return nil
}

// ConfigureHands saves opts and applies them to the live hand estimator.
func (a *App) ConfigureHands(opts detector.HandOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.saveOptions(store.KeyHandOptions, opts); err != nil {
		return fmt.Errorf("save hand options: %w", err)
	}
	if err := a.hands.Configure(opts); err != nil {
		a.restoreOptions(store.KeyHandOptions, a.config.Hands)
		return fmt.Errorf("configure hand estimator: %w", err)
	}
	a.config.Hands = opts
	return nil
}

// saveOptions persists opts before they are applied, so a failed save leaves
// the estimators untouched.
func (a *App) saveOptions(key string, opts any) error {
	if a.config.Store == nil {
		return nil
	}
	return a.config.Store.Settings().SetJSON(key, opts)
}

// restoreOptions puts back the options still in effect after Configure failed.
func (a *App) restoreOptions(key string, opts any) {
	if err := a.saveOptions(key, opts); err != nil {
		a.logger.Warnf("Failed to restore saved %s: %v", key, err)
	}
}

// Results returns the latest-result cells.
func (a *App) Results() *Results {
	return a.results
}

// Scheduler returns the frame scheduler.
func (a *App) Scheduler() *Scheduler {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.scheduler
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Close releases the camera, the estimators and the render buffers.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var err error
	err = multierr.Append(err, a.camera.Close())
	err = multierr.Append(err, a.pose.Close())
	err = multierr.Append(err, a.hands.Close())
	err = multierr.Append(err, a.loop.Close())
	return err
}
