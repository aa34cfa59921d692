// Package render draws the camera image with pose and hand overlays and
// publishes the gesture label on every display tick.
package render

import (
	"sync"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"github.com/ayusman/motionmasters/internal/gesture"
)

// Surface shows a rendered canvas. Implementations must copy the canvas if
// they keep it past the call.
type Surface interface {
	Present(canvas *gocv.Mat) error
}

// StatusSink receives the status label.
type StatusSink interface {
	SetLabel(label gesture.Label)
}

// StatusFunc adapts a plain function to StatusSink.
type StatusFunc func(label gesture.Label)

// SetLabel calls f(label).
func (f StatusFunc) SetLabel(label gesture.Label) {
	f(label)
}

// Statuses fans a label out to several sinks.
type Statuses []StatusSink

// SetLabel forwards label to every sink.
func (s Statuses) SetLabel(label gesture.Label) {
	for _, sink := range s {
		sink.SetLabel(label)
	}
}

// Surfaces presents a canvas on several surfaces.
type Surfaces []Surface

// Present shows canvas on every surface and combines their errors.
func (s Surfaces) Present(canvas *gocv.Mat) error {
	var err error
	for _, surface := range s {
		err = multierr.Append(err, surface.Present(canvas))
	}
	return err
}

// WindowSurface shows the canvas in a desktop window and the label in its title.
type WindowSurface struct {
	window *gocv.Window
	mu     sync.Mutex
	label  gesture.Label
}

// NewWindowSurface opens a desktop window with the given name.
func NewWindowSurface(name string) *WindowSurface {
	return &WindowSurface{window: gocv.NewWindow(name)}
}

// Present draws canvas in the window and pumps its event loop.
func (w *WindowSurface) Present(canvas *gocv.Mat) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.window.IMShow(*canvas)
	w.window.WaitKey(1)
	return nil
}

// SetLabel shows label in the window title.
func (w *WindowSurface) SetLabel(label gesture.Label) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if label == w.label {
		return
	}
	w.label = label
	w.window.SetWindowTitle(string(label))
}

// Close closes the window.
func (w *WindowSurface) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.window.Close()
}
