package detector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// ServiceIdleTimeout is how long an unused MediaPipe process is kept alive.
const ServiceIdleTimeout = 30 * time.Second

// ErrServiceNotFound is returned when the MediaPipe helper script cannot be located.
var ErrServiceNotFound = errors.New("mediapipe_service.py not found")

// ErrBadLandmarks is returned when a reply carries the wrong number of points.
var ErrBadLandmarks = errors.New("unexpected landmark count")

// service runs one Python MediaPipe process and exchanges frames with it.
// Frames go out as a 4-byte big-endian length followed by JPEG bytes;
// results come back as one JSON line per frame.
type service struct {
	task      string
	script    string
	python    string
	args      []string
	logger    *zap.SugaredLogger
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// serviceResponse is the JSON line written by the Python service.
type serviceResponse struct {
	Landmarks  [][]Landmark     `json:"landmarks"`
	Handedness []jsonHandedness `json:"handedness"`
	Error      string           `json:"error,omitempty"`
}

type jsonHandedness struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func newService(task string, logger *zap.SugaredLogger) (*service, error) {
	scriptPath := findMediaPipeScript()
	if scriptPath == "" {
		return nil, ErrServiceNotFound
	}

	// Use virtual environment Python if available
	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &service{
		task:   task,
		script: scriptPath,
		python: pythonPath,
		logger: logger.Named(task),
	}, nil
}

// setArgs replaces the task arguments and stops a running process so the
// next call starts with the new arguments.
func (s *service) setArgs(args []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.args = args
	return s.shutdown()
}

// process encodes the frame, sends it and decodes the reply.
func (s *service) process(ctx context.Context, frame *gocv.Mat) (*serviceResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := s.stdin.Write(length); err != nil {
		return nil, s.abort(fmt.Errorf("write length: %w", err))
	}
	if _, err := s.stdin.Write(data); err != nil {
		return nil, s.abort(fmt.Errorf("write data: %w", err))
	}

	line, err := s.stdout.ReadString('\n')
	if err != nil {
		return nil, s.abort(fmt.Errorf("read response: %w", err))
	}

	var response serviceResponse
	if err := json.Unmarshal([]byte(line), &response); err != nil {
		return nil, s.abort(fmt.Errorf("parse response: %w", err))
	}
	s.resetIdleTimer()

	if response.Error != "" {
		return nil, fmt.Errorf("%s service: %s", s.task, response.Error)
	}

	return &response, nil
}

// abort kills a process whose pipes are no longer in step with its frames.
// The next call starts a fresh one. Must be called with s.mu held.
func (s *service) abort(cause error) error {
	if s.started && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	if err := s.shutdown(); err != nil {
		s.logger.Warnf("MediaPipe %s service exited: %v", s.task, err)
	}
	return cause
}

func (s *service) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown()
}

func (s *service) ensureStarted() error {
	if s.started {
		return nil
	}

	args := append([]string{s.script, "--task", s.task}, s.args...)
	s.cmd = exec.Command(s.python, args...)

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	s.cmd.Stderr = os.Stderr

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe %s service: %w", s.task, err)
	}

	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	s.started = true
	s.logger.Infof("Started MediaPipe %s service (pid %d)", s.task, s.cmd.Process.Pid)

	return nil
}

func (s *service) shutdown() error {
	if !s.started {
		return nil
	}

	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}

	if s.stdin != nil {
		s.stdin.Close()
	}

	err := s.cmd.Wait()
	s.started = false
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil

	return err
}

func (s *service) resetIdleTimer() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(ServiceIdleTimeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.shutdown(); err != nil {
			s.logger.Warnf("Idle shutdown of %s service: %v", s.task, err)
		}
	})
}

// MediaPipePoseEstimator implements PoseEstimator using a Python MediaPipe subprocess.
type MediaPipePoseEstimator struct {
	svc      *service
	mu       sync.RWMutex
	onResult func(*PoseResult)
}

// NewMediaPipePoseEstimator creates a new pose estimator.
// The Python process is started lazily on first submission.
func NewMediaPipePoseEstimator(opts PoseOptions, logger *zap.SugaredLogger) (*MediaPipePoseEstimator, error) {
	svc, err := newService("pose", logger)
	if err != nil {
		return nil, err
	}

	e := &MediaPipePoseEstimator{svc: svc}
	if err := e.Configure(opts); err != nil {
		return nil, err
	}
	return e, nil
}

// Configure validates opts and restarts the service with them on next use.
func (e *MediaPipePoseEstimator) Configure(opts PoseOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	return e.svc.setArgs(poseArgs(opts))
}

// OnResult registers the result callback.
func (e *MediaPipePoseEstimator) OnResult(fn func(*PoseResult)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onResult = fn
}

// Submit runs pose estimation on frame and delivers the result to the callback.
func (e *MediaPipePoseEstimator) Submit(ctx context.Context, frame *gocv.Mat) error {
	response, err := e.svc.process(ctx, frame)
	if err != nil {
		return err
	}

	img, err := frame.ToImage()
	if err != nil {
		return fmt.Errorf("convert frame: %w", err)
	}

	result := &PoseResult{Image: img}
	if len(response.Landmarks) > 0 {
		landmarks, err := toPoseLandmarks(response.Landmarks[0])
		if err != nil {
			return err
		}
		result.Landmarks = landmarks
	}

	e.mu.RLock()
	fn := e.onResult
	e.mu.RUnlock()
	if fn != nil {
		fn(result)
	}

	return nil
}

// Close shuts down the Python process.
func (e *MediaPipePoseEstimator) Close() error {
	return e.svc.close()
}

// MediaPipeHandEstimator implements HandEstimator using a Python MediaPipe subprocess.
type MediaPipeHandEstimator struct {
	svc      *service
	mu       sync.RWMutex
	maxHands int
	onResult func(*HandResult)
}

// NewMediaPipeHandEstimator creates a new hand estimator.
// The Python process is started lazily on first submission.
func NewMediaPipeHandEstimator(opts HandOptions, logger *zap.SugaredLogger) (*MediaPipeHandEstimator, error) {
	svc, err := newService("hands", logger)
	if err != nil {
		return nil, err
	}

	e := &MediaPipeHandEstimator{svc: svc}
	if err := e.Configure(opts); err != nil {
		return nil, err
	}
	return e, nil
}

// Configure validates opts and restarts the service with them on next use.
func (e *MediaPipeHandEstimator) Configure(opts HandOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	e.maxHands = opts.MaxHands
	e.mu.Unlock()

	return e.svc.setArgs(handArgs(opts))
}

// OnResult registers the result callback.
func (e *MediaPipeHandEstimator) OnResult(fn func(*HandResult)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onResult = fn
}

// Submit runs hand estimation on frame and delivers the result to the callback.
func (e *MediaPipeHandEstimator) Submit(ctx context.Context, frame *gocv.Mat) error {
	response, err := e.svc.process(ctx, frame)
	if err != nil {
		return err
	}

	img, err := frame.ToImage()
	if err != nil {
		return fmt.Errorf("convert frame: %w", err)
	}

	e.mu.RLock()
	fn := e.onResult
	maxHands := e.maxHands
	e.mu.RUnlock()

	result := &HandResult{Image: img}
	for i, points := range response.Landmarks {
		if i >= maxHands {
			break
		}
		hand, err := toHandLandmarks(points)
		if err != nil {
			return err
		}
		if i < len(response.Handedness) {
			hand.Handedness = response.Handedness[i].Label
			hand.Score = response.Handedness[i].Score
		}
		result.Hands = append(result.Hands, hand)
	}

	if fn != nil {
		fn(result)
	}

	return nil
}

// Close shuts down the Python process.
func (e *MediaPipeHandEstimator) Close() error {
	return e.svc.close()
}

func poseArgs(opts PoseOptions) []string {
	return []string{
		"--model-complexity", strconv.Itoa(opts.ModelComplexity),
		"--min-detection-confidence", formatFloat(opts.MinDetectionConfidence),
		"--min-tracking-confidence", formatFloat(opts.MinTrackingConfidence),
	}
}

func handArgs(opts HandOptions) []string {
	return []string{
		"--max-hands", strconv.Itoa(opts.MaxHands),
		"--min-detection-confidence", formatFloat(opts.MinDetectionConfidence),
		"--min-tracking-confidence", formatFloat(opts.MinTrackingConfidence),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func toPoseLandmarks(points []Landmark) (*PoseLandmarks, error) {
	var lm PoseLandmarks
	if len(points) != len(lm) {
		return nil, fmt.Errorf("%w: pose has %d points, want %d", ErrBadLandmarks, len(points), len(lm))
	}
	copy(lm[:], points)
	return &lm, nil
}

func toHandLandmarks(points []Landmark) (HandLandmarks, error) {
	var hand HandLandmarks
	if len(points) != len(hand.Points) {
		return hand, fmt.Errorf("%w: hand has %d points, want %d", ErrBadLandmarks, len(points), len(hand.Points))
	}
	copy(hand.Points[:], points)
	return hand, nil
}

func findMediaPipeScript() string {
	// Get executable directory
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/mediapipe_service.py",
		"../scripts/mediapipe_service.py",
		filepath.Join(execDir, "scripts/mediapipe_service.py"),
		filepath.Join(os.Getenv("HOME"), ".motionmasters/scripts/mediapipe_service.py"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".motionmasters/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
