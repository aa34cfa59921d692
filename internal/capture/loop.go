package capture

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// ReadRetryDelay is the pause after a failed read before trying again.
const ReadRetryDelay = 100 * time.Millisecond

// FrameHandler is called once per captured frame. The frame is closed after
// the handler returns, so handlers must clone anything they keep.
type FrameHandler func(ctx context.Context, frame *gocv.Mat) error

// Run reads frames from cam and hands each one to handler until ctx is
// cancelled or a finite source reports ErrEndOfStream. Read and handler
// errors are logged and the loop moves on to the next frame.
func Run(ctx context.Context, cam Camera, handler FrameHandler, logger *zap.SugaredLogger) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := cam.ReadFrame()
		if errors.Is(err, ErrEndOfStream) {
			return nil
		}
		if err != nil {
			logger.Debugf("Error reading frame: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(ReadRetryDelay):
			}
			continue
		}

		err = handler(ctx, frame)
		frame.Close()
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("Frame dropped: %v", err)
		}
	}
}
