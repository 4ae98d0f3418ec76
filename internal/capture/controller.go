package capture

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salesvoice/salesvoice/internal/logging"
)

// ErrAlreadyRecording is returned when Start is called outside Idle.
var ErrAlreadyRecording = errors.New("capture: recording already in progress")

// Controller drives the recording state machine:
//
//	Idle -> Recording -> Stopping -> Idle   (success)
//	Idle -> Recording -> Error    -> Idle   (device failure)
//
// Stop while Idle is a no-op. Exactly one AudioClip is emitted per
// successful Start/Stop pair; no partial clips are emitted on error.
type Controller struct {
	device Device
	opts   StreamOptions
	logger *logging.Logger

	mu        sync.Mutex
	state     State
	stream    Stream
	startedAt time.Time
	lastErr   error

	collected chan collectResult
}

type collectResult struct {
	data []byte
	err  error
}

// NewController creates a controller around the given input device.
func NewController(device Device, opts StreamOptions, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Controller{
		device: device,
		opts:   opts,
		logger: logger,
		state:  StateIdle,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the error from the most recent failed start attempt.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Start acquires the input stream and begins collecting audio.
// Returns a *DeviceError if the platform denies access or has no input
// device; the controller is back in Idle when that happens.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyRecording
	}
	// Reserve the controller before releasing the lock; device.Open can
	// block and a concurrent Start must not pass the Idle check meanwhile.
	c.state = StateStarting
	c.mu.Unlock()

	stream, err := c.device.Open(ctx, c.opts)
	if err != nil {
		devErr := &DeviceError{Reason: "open input stream", Err: err}

		c.mu.Lock()
		c.state = StateError
		c.lastErr = devErr
		// Error is transient; the machine settles back in Idle so the
		// user can retry.
		c.state = StateIdle
		c.mu.Unlock()

		c.logger.Warn(ctx, "audio device open failed", zap.Error(err))
		return devErr
	}

	c.mu.Lock()
	c.state = StateRecording
	c.stream = stream
	c.startedAt = time.Now()
	c.lastErr = nil
	c.collected = make(chan collectResult, 1)
	c.mu.Unlock()

	go func() {
		data, readErr := io.ReadAll(stream)
		c.collected <- collectResult{data: data, err: readErr}
	}()

	c.logger.Debug(ctx, "recording started",
		zap.Int("sample_rate", c.opts.SampleRate),
		zap.Int("channels", c.opts.Channels))
	return nil
}

// Stop finalizes the in-progress clip, releases the input stream and
// returns the finished AudioClip. Buffered audio is always flushed into the
// clip, even when the stream read ended with an error. Calling Stop while
// Idle is a no-op returning (nil, nil).
func (c *Controller) Stop(ctx context.Context) (*AudioClip, error) {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return nil, nil
	}
	if c.state != StateRecording {
		c.mu.Unlock()
		return nil, errors.New("capture: stop called mid-transition")
	}
	c.state = StateStopping
	stream := c.stream
	startedAt := c.startedAt
	collected := c.collected
	c.mu.Unlock()

	// Closing the stream unblocks the collector.
	if err := stream.Close(); err != nil {
		c.logger.Warn(ctx, "input stream close failed", zap.Error(err))
	}

	result := <-collected
	if result.err != nil {
		c.logger.Warn(ctx, "stream drain ended with error", zap.Error(result.err))
	}

	clip := &AudioClip{
		ID:         uuid.New().String(),
		Data:       result.data,
		MimeType:   MimeTypeWebmOpus,
		Duration:   time.Since(startedAt),
		CapturedAt: startedAt,
	}

	c.mu.Lock()
	c.state = StateIdle
	c.stream = nil
	c.collected = nil
	c.mu.Unlock()

	c.logger.Info(ctx, "recording stopped",
		zap.String("clip_id", clip.ID),
		zap.Int("bytes", len(clip.Data)),
		zap.Duration("duration", clip.Duration))
	return clip, nil
}
