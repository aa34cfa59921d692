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
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Environment read by TestHelperProcess when it stands in for the Python service.
const (
	helperModeEnv  = "MM_HELPER_MODE"
	helperLogEnv   = "MM_HELPER_LOG"
	helperStateEnv = "MM_HELPER_STATE"
)

// TestHelperProcess is not a real test. It speaks the service protocol on
// stdin/stdout when launched by newStubService.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv(helperModeEnv)
	if mode == "" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) > 0 {
		args = args[1:]
	}

	task := ""
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "--task" {
			task = args[i+1]
		}
	}

	if f, err := os.OpenFile(os.Getenv(helperLogEnv), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
		fmt.Fprintln(f, strings.Join(args, " "))
		f.Close()
	}

	if mode == "crash-once" {
		state := os.Getenv(helperStateEnv)
		if _, err := os.Stat(state); err != nil {
			os.WriteFile(state, nil, 0o644)
			os.Exit(3)
		}
	}

	in := bufio.NewReader(os.Stdin)
	out := json.NewEncoder(os.Stdout)
	for {
		var length [4]byte
		if _, err := io.ReadFull(in, length[:]); err != nil {
			return
		}
		data := make([]byte, binary.BigEndian.Uint32(length[:]))
		if _, err := io.ReadFull(in, data); err != nil {
			return
		}
		out.Encode(helperReply(mode, task, data))
	}
}

func helperReply(mode, task string, data []byte) serviceResponse {
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		return serviceResponse{Error: "frame is not a JPEG"}
	}

	switch {
	case mode == "error":
		return serviceResponse{Error: "model failed"}
	case mode == "short":
		return serviceResponse{Landmarks: [][]Landmark{make([]Landmark, 2)}}
	case task == "hands":
		var reply serviceResponse
		for i, label := range []string{"Left", "Right", "Left"} {
			points := make([]Landmark, NumLandmarks)
			for j := range points {
				points[j] = Landmark{X: float64(i) / 10, Y: 0.5}
			}
			reply.Landmarks = append(reply.Landmarks, points)
			reply.Handedness = append(reply.Handedness, jsonHandedness{Label: label, Score: 0.9 - float64(i)/10})
		}
		return reply
	default:
		points := make([]Landmark, NumPoseLandmarks)
		for i := range points {
			points[i] = Landmark{X: 0.5, Y: 0.5}
		}
		// Echo the request size so the framing can be checked.
		points[Nose].Z = float64(len(data))
		return serviceResponse{Landmarks: [][]Landmark{points}}
	}
}

// newStubService returns a service whose process is this test binary running
// TestHelperProcess in the given mode, and the path of its start log.
func newStubService(t *testing.T, task, mode string) (*service, string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("stub service needs /bin/sh")
	}

	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable() error = %v", err)
	}

	dir := t.TempDir()
	wrapper := filepath.Join(dir, "service.sh")
	script := fmt.Sprintf("#!/bin/sh\nexec %q '-test.run=^TestHelperProcess$' -- \"$@\"\n", exe)
	if err := os.WriteFile(wrapper, []byte(script), 0o755); err != nil {
		t.Fatalf("write wrapper: %v", err)
	}

	logPath := filepath.Join(dir, "starts.log")
	t.Setenv(helperModeEnv, mode)
	t.Setenv(helperLogEnv, logPath)
	t.Setenv(helperStateEnv, filepath.Join(dir, "crashed"))

	svc := &service{
		task:   task,
		script: wrapper,
		python: "/bin/sh",
		logger: zap.NewNop().Sugar(),
	}
	t.Cleanup(func() { svc.close() })

	return svc, logPath
}

func readStarts(t *testing.T, logPath string) []string {
	t.Helper()

	data, err := os.ReadFile(logPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		t.Fatalf("read start log: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func newTestFrame(t *testing.T) *gocv.Mat {
	t.Helper()

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 24, 32, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	return &frame
}

func TestMediaPipePoseEstimator_RoundTrip(t *testing.T) {
	svc, logPath := newStubService(t, "pose", "landmarks")
	frame := newTestFrame(t)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		t.Fatalf("IMEncode() error = %v", err)
	}
	jpegSize := buf.Len()
	buf.Close()

	e := &MediaPipePoseEstimator{svc: svc}
	if err := e.Configure(DefaultPoseOptions()); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	var got *PoseResult
	e.OnResult(func(r *PoseResult) { got = r })

	t.Run("frame and reply are exchanged", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			got = nil
			if err := e.Submit(context.Background(), frame); err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if !got.HasLandmarks() {
				t.Fatal("expected landmarks in result")
			}
			if size := int(got.Landmarks[Nose].Z); size != jpegSize {
				t.Errorf("service received %d bytes, want %d", size, jpegSize)
			}
			if got.Image == nil {
				t.Error("expected source image in result")
			}
		}

		starts := readStarts(t, logPath)
		if len(starts) != 1 {
			t.Fatalf("expected one process for both frames, got %d starts", len(starts))
		}
		if !strings.HasPrefix(starts[0], "--task pose --model-complexity 1") {
			t.Errorf("start args = %q", starts[0])
		}
	})

	t.Run("Configure restarts with new options", func(t *testing.T) {
		opts := DefaultPoseOptions()
		opts.ModelComplexity = 2
		if err := e.Configure(opts); err != nil {
			t.Fatalf("Configure() error = %v", err)
		}
		if err := e.Submit(context.Background(), frame); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}

		starts := readStarts(t, logPath)
		if len(starts) != 2 {
			t.Fatalf("expected a restart after Configure, got %d starts", len(starts))
		}
		if !strings.Contains(starts[1], "--model-complexity 2") {
			t.Errorf("restart args = %q, want model complexity 2", starts[1])
		}
	})
}

func TestMediaPipePoseEstimator_RejectsShortReply(t *testing.T) {
	svc, _ := newStubService(t, "pose", "short")
	e := &MediaPipePoseEstimator{svc: svc}

	called := false
	e.OnResult(func(*PoseResult) { called = true })

	err := e.Submit(context.Background(), newTestFrame(t))
	if !errors.Is(err, ErrBadLandmarks) {
		t.Errorf("Submit() error = %v, want ErrBadLandmarks", err)
	}
	if called {
		t.Error("callback should not run for a malformed reply")
	}
}

func TestMediaPipeHandEstimator_CapsHands(t *testing.T) {
	svc, _ := newStubService(t, "hands", "landmarks")
	e := &MediaPipeHandEstimator{svc: svc}
	if err := e.Configure(HandOptions{MaxHands: 2, MinDetectionConfidence: 0.5, MinTrackingConfidence: 0.5}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	var got *HandResult
	e.OnResult(func(r *HandResult) { got = r })

	if err := e.Submit(context.Background(), newTestFrame(t)); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(got.Hands) != 2 {
		t.Fatalf("expected 2 hands, got %d", len(got.Hands))
	}
	if got.Hands[0].Handedness != "Left" || got.Hands[1].Handedness != "Right" {
		t.Errorf("handedness = %q, %q", got.Hands[0].Handedness, got.Hands[1].Handedness)
	}
	if got.Hands[1].Points[Wrist].X != 0.1 {
		t.Errorf("second hand wrist = %+v, want x 0.1", got.Hands[1].Points[Wrist])
	}
}

func TestService_ErrorReplyKeepsProcess(t *testing.T) {
	svc, logPath := newStubService(t, "pose", "error")
	frame := newTestFrame(t)

	for i := 0; i < 2; i++ {
		_, err := svc.process(context.Background(), frame)
		if err == nil || !strings.Contains(err.Error(), "model failed") {
			t.Errorf("process() error = %v, want model failure", err)
		}
	}

	if starts := readStarts(t, logPath); len(starts) != 1 {
		t.Errorf("error replies should not restart the process, got %d starts", len(starts))
	}
}

func TestService_RestartsAfterExit(t *testing.T) {
	svc, logPath := newStubService(t, "pose", "crash-once")
	frame := newTestFrame(t)

	if _, err := svc.process(context.Background(), frame); err == nil {
		t.Fatal("expected an error when the process exits without replying")
	}

	response, err := svc.process(context.Background(), frame)
	if err != nil {
		t.Fatalf("process() after exit error = %v", err)
	}
	if len(response.Landmarks) != 1 {
		t.Errorf("expected one pose in reply, got %d", len(response.Landmarks))
	}

	if starts := readStarts(t, logPath); len(starts) != 2 {
		t.Errorf("expected the process to be started again, got %d starts", len(starts))
	}
}

func TestService_Validation(t *testing.T) {
	svc, logPath := newStubService(t, "pose", "landmarks")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.process(ctx, newTestFrame(t)); !errors.Is(err, context.Canceled) {
		t.Errorf("process() with canceled context error = %v", err)
	}

	empty := gocv.NewMat()
	defer empty.Close()
	if _, err := svc.process(context.Background(), &empty); err == nil {
		t.Error("expected error for empty frame")
	}

	if starts := readStarts(t, logPath); len(starts) != 0 {
		t.Errorf("rejected frames should not start the process, got %d starts", len(starts))
	}
}
