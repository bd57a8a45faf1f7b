package booth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/snapshot/internal/models"
	"github.com/lehigh-university-libraries/snapshot/internal/storage"
)

var (
	ErrCaptureInProgress = errors.New("capture already in progress")
	ErrNotReady          = errors.New("camera not ready")
	ErrVideoNotReady     = errors.New("video has no frame yet")
	ErrNoDevices         = errors.New("no camera devices")
)

// ErrorLabel is shown on the trigger while the camera cannot be used.
const ErrorLabel = "Camera unavailable"

type State int

const (
	StateInitializing State = iota
	StateReady
	StateCountingDown
	StateCapturing
	StateError
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateCountingDown:
		return "counting down"
	case StateCapturing:
		return "capturing"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Saver uploads an encoded photo.
type Saver interface {
	Save(ctx context.Context, dataURI string) (*models.SavePhotoResponse, error)
}

// Result is one finished capture.
type Result struct {
	Filename string
	Path     string
	DataURI  string
}

type EngineOption func(*Engine)

// WithFlash sets the feedback callback fired at the moment of capture.
func WithFlash(flash func()) EngineOption {
	return func(e *Engine) { e.flash = flash }
}

// WithProgress receives countdown progress in [0, 1].
func WithProgress(progress func(float64)) EngineOption {
	return func(e *Engine) { e.progress = progress }
}

// WithStateListener is told about every state transition, in order.
// It runs without the engine lock held, so it may query the engine.
func WithStateListener(listener func(State)) EngineOption {
	return func(e *Engine) { e.onState = listener }
}

func WithGallery(g *Gallery) EngineOption {
	return func(e *Engine) { e.gallery = g }
}

func WithTick(tick time.Duration) EngineOption {
	return func(e *Engine) { e.tick = tick }
}

// Engine runs capture sessions against one open device at a time.
// At most one session is in flight; triggers during a session are refused.
type Engine struct {
	mu        sync.Mutex
	devices   []Device
	index     int
	stream    Stream
	state     State
	label     string
	filter    Filter
	countdown time.Duration

	saver    Saver
	gallery  *Gallery
	flash    func()
	flashes  sync.WaitGroup
	progress func(float64)
	onState  func(State)
	tick     time.Duration

	// transitions not yet delivered to onState
	pending   []State
	notifying bool
}

func NewEngine(devices []Device, saver Saver, opts ...EngineOption) *Engine {
	e := &Engine{
		devices:   devices,
		saver:     saver,
		state:     StateInitializing,
		countdown: DefaultCountdown,
		tick:      DefaultTick,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// setState must be called with e.mu held. The listener hears about the
// transition from notify once the lock is released.
func (e *Engine) setState(s State, label string) {
	e.state = s
	e.label = label
	if e.onState != nil {
		e.pending = append(e.pending, s)
	}
}

// notify delivers queued transitions in order. Only one goroutine drains
// the queue at a time; the others leave their transitions to it.
func (e *Engine) notify() {
	e.mu.Lock()
	if e.notifying {
		e.mu.Unlock()
		return
	}
	e.notifying = true
	for len(e.pending) > 0 {
		batch := e.pending
		e.pending = nil
		e.mu.Unlock()
		for _, s := range batch {
			e.onState(s)
		}
		e.mu.Lock()
	}
	e.notifying = false
	e.mu.Unlock()
}

// Start opens the first device.
func (e *Engine) Start(ctx context.Context) error {
	defer e.notify()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openLocked(ctx)
}

func (e *Engine) openLocked(ctx context.Context) error {
	if len(e.devices) == 0 {
		e.setState(StateError, ErrorLabel)
		return ErrNoDevices
	}
	device := e.devices[e.index]
	stream, err := device.Open(ctx)
	if err != nil {
		slog.Error("Error accessing the camera", "device", device.Label(), "err", err)
		e.setState(StateError, ErrorLabel)
		return fmt.Errorf("failed to open %s: %w", device.Label(), err)
	}
	e.stream = stream
	slog.Info("Camera ready", "device", device.Label())
	e.setState(StateReady, "")
	return nil
}

// SwitchDevice stops the current stream and opens the next device round-robin.
// It is the only way out of the error state.
func (e *Engine) SwitchDevice(ctx context.Context) error {
	defer e.notify()
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateCountingDown || e.state == StateCapturing {
		return ErrCaptureInProgress
	}
	if len(e.devices) == 0 {
		e.setState(StateError, ErrorLabel)
		return ErrNoDevices
	}
	if e.stream != nil {
		e.stream.Stop()
		e.stream = nil
	}
	e.index = (e.index + 1) % len(e.devices)
	return e.openLocked(ctx)
}

// Device returns the currently selected device, if any.
func (e *Engine) Device() Device {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.devices) == 0 {
		return nil
	}
	return e.devices[e.index]
}

// State returns the current state and, in the error state, its label.
func (e *Engine) State() (State, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.label
}

func (e *Engine) SetFilter(f Filter) {
	e.mu.Lock()
	e.filter = f
	e.mu.Unlock()
}

// SetCountdown clamps d to the supported range. Zero captures immediately.
func (e *Engine) SetCountdown(d time.Duration) {
	e.mu.Lock()
	e.countdown = ClampCountdown(d)
	e.mu.Unlock()
}

func (e *Engine) Countdown() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.countdown
}

// Trigger runs one capture session: countdown, frame grab, filter, encode and upload.
// The engine returns to ready exactly once, after the upload resolves,
// unless the device fails while grabbing the frame. That leaves the engine
// in the error state until SwitchDevice opens a working camera.
func (e *Engine) Trigger(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	switch e.state {
	case StateCountingDown, StateCapturing:
		e.mu.Unlock()
		return nil, ErrCaptureInProgress
	case StateReady:
	default:
		e.mu.Unlock()
		return nil, ErrNotReady
	}
	stream := e.stream
	filter := e.filter
	countdown := e.countdown
	e.setState(StateCountingDown, "")
	e.mu.Unlock()
	e.notify()

	defer e.finish()

	cd := Countdown{Duration: countdown, Tick: e.tick, OnProgress: e.progress}
	if err := cd.Run(ctx); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.setState(StateCapturing, "")
	e.mu.Unlock()
	e.notify()

	frame, err := stream.Frame()
	if err != nil {
		slog.Error("Error grabbing frame", "err", err)
		e.mu.Lock()
		e.setState(StateError, ErrorLabel)
		e.mu.Unlock()
		e.notify()
		return nil, fmt.Errorf("failed to grab frame: %w", err)
	}
	if frame.Bounds().Empty() {
		slog.Debug("Skipping capture, video not ready")
		return nil, ErrVideoNotReady
	}

	if e.flash != nil {
		e.flashes.Add(1)
		go func() {
			defer e.flashes.Done()
			e.flash()
		}()
	}

	dataURI, err := Capture(frame, filter)
	if err != nil {
		return nil, err
	}

	resp, err := e.saver.Save(ctx, dataURI)
	if err != nil {
		slog.Error("Error saving photo", "err", err)
		return nil, fmt.Errorf("failed to save photo: %w", err)
	}

	result := &Result{
		Filename: path.Base(resp.Path),
		Path:     resp.Path,
		DataURI:  dataURI,
	}
	if e.gallery != nil {
		e.gallery.Insert(Photo{Filename: result.Filename, URL: resp.Path})
	}
	slog.Info("Photo captured", "filename", result.Filename, "filter", filter.Name)
	return result, nil
}

func (e *Engine) finish() {
	defer e.notify()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateCountingDown || e.state == StateCapturing {
		e.setState(StateReady, "")
	}
}

// Close stops the open stream and waits for pending flash callbacks.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.stream != nil {
		e.stream.Stop()
		e.stream = nil
	}
	e.mu.Unlock()
	e.flashes.Wait()
}

// Capture draws frame at its native resolution, composites filter over it
// and returns the result as a PNG data URI.
func Capture(frame image.Image, filter Filter) (string, error) {
	b := frame.Bounds()
	if b.Empty() {
		return "", ErrVideoNotReady
	}
	surface := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(surface, surface.Bounds(), frame, b.Min, draw.Src)
	filter.Apply(surface)

	var buf bytes.Buffer
	if err := png.Encode(&buf, surface); err != nil {
		return "", fmt.Errorf("failed to encode photo: %w", err)
	}
	return storage.EncodeDataURI("image/png", buf.Bytes()), nil
}
