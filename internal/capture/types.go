// Package capture owns the recording lifecycle: it acquires an audio input
// stream, collects the recorded bytes, and emits exactly one AudioClip per
// successful start/stop pair.
package capture

import (
	"context"
	"fmt"
	"io"
	"time"
)

// State is the recording lifecycle state.
type State int

const (
	// StateIdle means no recording is in progress.
	StateIdle State = iota
	// StateStarting means the input device is being acquired. The state
	// reserves the controller so a second Start cannot race the first one
	// past the Idle check.
	StateStarting
	// StateRecording means an input stream is open and collecting audio.
	StateRecording
	// StateStopping means the stream is being drained into a clip.
	StateStopping
	// StateError means the last start attempt failed. The controller
	// returns to Idle before Start hands control back to the caller, so
	// this state is only observable through transition hooks.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// StreamOptions describes the input stream the controller requests.
type StreamOptions struct {
	SampleRate       int
	Channels         int
	EchoCancellation bool
	NoiseSuppression bool
}

// DefaultStreamOptions matches the voice-note capture settings: mono 16kHz
// with echo cancellation and noise suppression.
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		SampleRate:       16000,
		Channels:         1,
		EchoCancellation: true,
		NoiseSuppression: true,
	}
}

// Stream is an open audio input stream. Close finalizes the stream and
// unblocks any pending reads.
type Stream interface {
	io.ReadCloser
}

// Device opens audio input streams. Implementations wrap the platform
// recorder; tests inject fakes.
type Device interface {
	Open(ctx context.Context, opts StreamOptions) (Stream, error)
}

// DeviceError reports that the input device was denied or unavailable.
// It is fatal to the current recording attempt but recoverable by retry.
type DeviceError struct {
	Reason string
	Err    error
}

func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("audio device unavailable: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("audio device unavailable: %s", e.Reason)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// MimeTypeWebmOpus is the clip container format produced by capture.
const MimeTypeWebmOpus = "audio/webm;codecs=opus"

// AudioClip is a finished recording. The controller owns the clip until it
// is handed to the transcription gateway; Release discards the payload when
// the session is done with it.
type AudioClip struct {
	ID         string
	Data       []byte
	MimeType   string
	Duration   time.Duration
	CapturedAt time.Time
}

// Release drops the audio payload. The clip ID stays valid for logging.
func (c *AudioClip) Release() {
	c.Data = nil
}
