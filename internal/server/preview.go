package server

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"gocv.io/x/gocv"
)

// ErrNotStarted is returned when no canvas has been rendered yet.
var ErrNotStarted = errors.New("no frame rendered yet")

// DefaultJPEGQuality is the encoder quality for browser frames.
const DefaultJPEGQuality = 80

// Preview keeps the latest rendered canvas as JPEG for the browser page.
// It implements render.Surface. Frames are only encoded while someone watches.
type Preview struct {
	quality int
	viewers atomic.Int32

	mu    sync.RWMutex
	frame []byte
	seq   uint64
}

// NewPreview creates a Preview. A quality outside 1..100 uses DefaultJPEGQuality.
func NewPreview(quality int) *Preview {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Preview{quality: quality}
}

// Present encodes canvas when there is at least one viewer.
func (p *Preview) Present(canvas *gocv.Mat) error {
	if p.viewers.Load() == 0 {
		return nil
	}
	if canvas == nil || canvas.Empty() {
		return nil
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *canvas, []int{int(gocv.IMWriteJpegQuality), p.quality})
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	p.mu.Lock()
	p.frame = data
	p.seq++
	p.mu.Unlock()

	return nil
}

// Frame returns the latest JPEG and its sequence number.
func (p *Preview) Frame() ([]byte, uint64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.frame == nil {
		return nil, 0, ErrNotStarted
	}
	return p.frame, p.seq, nil
}

// Watch registers a viewer until the returned release func is called.
func (p *Preview) Watch() (release func()) {
	p.viewers.Inc()
	var once sync.Once
	return func() {
		once.Do(func() { p.viewers.Dec() })
	}
}

// Viewers returns the number of active viewers.
func (p *Preview) Viewers() int {
	return int(p.viewers.Load())
}
