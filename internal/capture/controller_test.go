package capture

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesvoice/salesvoice/internal/logging"
)

// fakeStream yields queued chunks, then blocks until closed.
type fakeStream struct {
	mu     sync.Mutex
	chunks [][]byte
	closed chan struct{}
	once   sync.Once
}

func newFakeStream(chunks ...[]byte) *fakeStream {
	return &fakeStream{chunks: chunks, closed: make(chan struct{})}
}

func (s *fakeStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	if len(s.chunks) > 0 {
		chunk := s.chunks[0]
		s.chunks = s.chunks[1:]
		s.mu.Unlock()
		return copy(p, chunk), nil
	}
	s.mu.Unlock()

	<-s.closed
	return 0, io.EOF
}

func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

type fakeDevice struct {
	stream  *fakeStream
	openErr error
	opened  int
}

func (d *fakeDevice) Open(_ context.Context, _ StreamOptions) (Stream, error) {
	d.opened++
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.stream, nil
}

func TestStartStopEmitsOneClip(t *testing.T) {
	device := &fakeDevice{stream: newFakeStream([]byte("abc"), []byte("def"))}
	ctrl := NewController(device, DefaultStreamOptions(), logging.NewNopLogger())

	require.NoError(t, ctrl.Start(context.Background()))
	assert.Equal(t, StateRecording, ctrl.State())

	clip, err := ctrl.Stop(context.Background())
	require.NoError(t, err)
	require.NotNil(t, clip)

	assert.Equal(t, StateIdle, ctrl.State())
	assert.Equal(t, []byte("abcdef"), clip.Data)
	assert.Equal(t, MimeTypeWebmOpus, clip.MimeType)
	assert.NotEmpty(t, clip.ID)
	assert.Equal(t, 1, device.opened)
}

func TestStopWhileIdleIsNoOp(t *testing.T) {
	ctrl := NewController(&fakeDevice{}, DefaultStreamOptions(), nil)

	clip, err := ctrl.Stop(context.Background())
	require.NoError(t, err)
	assert.Nil(t, clip)
	assert.Equal(t, StateIdle, ctrl.State())
}

func TestStartWhileRecordingRejected(t *testing.T) {
	device := &fakeDevice{stream: newFakeStream()}
	ctrl := NewController(device, DefaultStreamOptions(), nil)

	require.NoError(t, ctrl.Start(context.Background()))
	err := ctrl.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRecording)

	_, err = ctrl.Stop(context.Background())
	require.NoError(t, err)
}

// gatedDevice parks Open until released so tests can hold a Start inside
// the device-acquisition window.
type gatedDevice struct {
	stream  *fakeStream
	entered chan struct{}
	release chan struct{}
	once    sync.Once

	mu     sync.Mutex
	opened int
}

func (d *gatedDevice) Open(_ context.Context, _ StreamOptions) (Stream, error) {
	d.mu.Lock()
	d.opened++
	d.mu.Unlock()
	d.once.Do(func() { close(d.entered) })
	<-d.release
	return d.stream, nil
}

func (d *gatedDevice) openCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

func TestConcurrentStartOpensOneStream(t *testing.T) {
	device := &gatedDevice{
		stream:  newFakeStream(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	ctrl := NewController(device, DefaultStreamOptions(), nil)

	errs := make(chan error, 1)
	go func() { errs <- ctrl.Start(context.Background()) }()

	// The first Start is parked inside device.Open; the controller must
	// already be reserved so the second Start cannot slip past the guard.
	<-device.entered
	assert.Equal(t, StateStarting, ctrl.State())
	assert.ErrorIs(t, ctrl.Start(context.Background()), ErrAlreadyRecording)

	close(device.release)
	require.NoError(t, <-errs)
	assert.Equal(t, 1, device.openCount())

	clip, err := ctrl.Stop(context.Background())
	require.NoError(t, err)
	require.NotNil(t, clip)
}

func TestDeviceDenialYieldsDeviceError(t *testing.T) {
	device := &fakeDevice{openErr: errors.New("permission denied")}
	ctrl := NewController(device, DefaultStreamOptions(), nil)

	err := ctrl.Start(context.Background())
	require.Error(t, err)

	var devErr *DeviceError
	require.ErrorAs(t, err, &devErr)

	// Failure settles back in Idle so the user can retry; no clip emitted.
	assert.Equal(t, StateIdle, ctrl.State())
	assert.ErrorAs(t, ctrl.LastError(), &devErr)

	clip, stopErr := ctrl.Stop(context.Background())
	require.NoError(t, stopErr)
	assert.Nil(t, clip)
}

func TestRetryAfterDeviceErrorSucceeds(t *testing.T) {
	device := &fakeDevice{openErr: errors.New("busy")}
	ctrl := NewController(device, DefaultStreamOptions(), nil)

	require.Error(t, ctrl.Start(context.Background()))

	device.openErr = nil
	device.stream = newFakeStream([]byte("xyz"))
	require.NoError(t, ctrl.Start(context.Background()))

	clip, err := ctrl.Stop(context.Background())
	require.NoError(t, err)
	require.NotNil(t, clip)
	assert.Equal(t, []byte("xyz"), clip.Data)
}

func TestClipRelease(t *testing.T) {
	clip := &AudioClip{ID: "c1", Data: []byte("payload")}
	clip.Release()
	assert.Nil(t, clip.Data)
	assert.Equal(t, "c1", clip.ID)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "recording", StateRecording.String())
	assert.Equal(t, "stopping", StateStopping.String())
	assert.Equal(t, "error", StateError.String())
}
