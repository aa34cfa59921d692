// Package tray provides a system tray interface that shows the current
// gesture label and lets the user pause detection.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/motionmasters/internal/gesture"
)

// Tray represents the system tray application. It implements render.StatusSink.
type Tray struct {
	onPause  func(paused bool)
	onOpen   func()
	onQuit   func()
	paused   bool
	label    gesture.Label
	mu       sync.RWMutex
	titleFor func(gesture.Label) string

	// Menu items stored for later updates
	menuPause  *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a new Tray instance, running and showing gesture.LabelWaiting.
func New() *Tray {
	return &Tray{
		label:    gesture.LabelWaiting,
		titleFor: title,
	}
}

// OnPause sets the callback function to be called when detection is paused or resumed.
func (t *Tray) OnPause(fn func(paused bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPause = fn
}

// OnOpen sets the callback function to be called when the browser menu item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray event loop.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTooltip("Motion Masters")

	t.mu.Lock()
	label := t.label
	systray.SetTitle(t.titleFor(label))

	t.menuStatus = systray.AddMenuItem(string(label), "Current gesture")
	t.menuStatus.Disable()
	systray.AddSeparator()

	t.menuPause = systray.AddMenuItem(pauseTitle(t.paused), "Pause or resume detection")
	t.mu.Unlock()

	menuOpen := systray.AddMenuItem("Open in Browser...", "Show the camera view in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Motion Masters")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuPause.ClickedCh:
				t.handlePause()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handlePause flips the paused state.
func (t *Tray) handlePause() {
	t.mu.Lock()
	t.paused = !t.paused
	paused := t.paused

	if t.menuPause != nil {
		t.menuPause.SetTitle(pauseTitle(paused))
	}

	callback := t.onPause
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(paused)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLabel shows label as the tray title. Repeated labels are ignored.
func (t *Tray) SetLabel(label gesture.Label) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if label == t.label {
		return
	}
	t.label = label

	if t.menuStatus != nil {
		systray.SetTitle(t.titleFor(label))
		t.menuStatus.SetTitle(string(label))
	}
}

// Label returns the label currently shown.
func (t *Tray) Label() gesture.Label {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.label
}

// IsPaused returns the current paused state.
func (t *Tray) IsPaused() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.paused
}

func title(label gesture.Label) string {
	return "MM: " + string(label)
}

func pauseTitle(paused bool) string {
	if paused {
		return "○ Paused"
	}
	return "● Detecting"
}
