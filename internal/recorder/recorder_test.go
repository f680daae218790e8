package recorder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	ch        chan []byte
	closeOnce sync.Once
	closed    bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{ch: make(chan []byte, 32)}
}

func (s *fakeStream) Chunks() <-chan []byte { return s.ch }

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() {
		s.closed = true
		close(s.ch)
	})
	return nil
}

type fakeDevice struct {
	supported map[string]bool
	openErr   error
	opens     int
	stream    *fakeStream
}

func (d *fakeDevice) Supports(mimeType string) bool { return d.supported[mimeType] }

func (d *fakeDevice) Open(_ context.Context, _ string) (Stream, error) {
	d.opens++
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.stream = newFakeStream()
	return d.stream, nil
}

func webmDevice() *fakeDevice {
	return &fakeDevice{supported: map[string]bool{"audio/webm": true}}
}

func authenticated() AccessGate { return GateFunc(func() bool { return true }) }
func anonymous() AccessGate     { return GateFunc(func() bool { return false }) }

func TestNegotiator(t *testing.T) {
	t.Run("first supported candidate wins", func(t *testing.T) {
		n := NewNegotiator(func(m string) bool { return m == "audio/webm;codecs=opus" || m == "audio/webm" })
		mime, err := n.Negotiate()
		require.NoError(t, err)
		assert.Equal(t, "audio/webm;codecs=opus", mime)
	})

	t.Run("no supported format", func(t *testing.T) {
		n := NewNegotiator(func(string) bool { return false })
		_, err := n.Negotiate()
		assert.ErrorIs(t, err, ErrNoSupportedFormat)
	})

	t.Run("probes only once", func(t *testing.T) {
		probes := 0
		n := NewNegotiator(func(m string) bool {
			probes++
			return m == "audio/mp4"
		})
		for i := 0; i < 3; i++ {
			mime, err := n.Negotiate()
			require.NoError(t, err)
			assert.Equal(t, "audio/mp4", mime)
		}
		assert.Equal(t, 1, probes)
	})
}

func TestStartRequiresAuthentication(t *testing.T) {
	dev := webmDevice()
	r := New(anonymous(), dev)

	err := r.Start(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, StateIdle, r.State())
	assert.Zero(t, dev.opens, "no capture may happen while anonymous")
}

func TestStartErrorsAreDistinguishable(t *testing.T) {
	t.Run("unsupported format", func(t *testing.T) {
		r := New(authenticated(), &fakeDevice{supported: map[string]bool{}})
		err := r.Start(context.Background())
		assert.ErrorIs(t, err, ErrNoSupportedFormat)
		assert.NotErrorIs(t, err, ErrPermissionDenied)
		assert.Equal(t, StateIdle, r.State())
	})

	t.Run("permission denied", func(t *testing.T) {
		dev := webmDevice()
		dev.openErr = context.DeadlineExceeded
		r := New(authenticated(), dev)
		err := r.Start(context.Background())
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.NotErrorIs(t, err, ErrNoSupportedFormat)
		assert.Equal(t, StateIdle, r.State())
	})
}

func TestStartWhileActiveIsIgnored(t *testing.T) {
	dev := webmDevice()
	r := New(authenticated(), dev)

	require.NoError(t, r.Start(context.Background()))
	require.Equal(t, StateActive, r.State())

	err := r.Start(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 1, dev.opens, "second start must not open a new session")

	_, _ = r.Stop()
}

func TestStopAssemblesClipAndDropsEmptyChunks(t *testing.T) {
	dev := webmDevice()
	r := New(authenticated(), dev)
	require.NoError(t, r.Start(context.Background()))

	dev.stream.ch <- []byte("ab")
	dev.stream.ch <- []byte{}
	dev.stream.ch <- []byte("cd")

	// 等收集协程把数据追上
	time.Sleep(20 * time.Millisecond)

	clip, err := r.Stop()
	require.NoError(t, err)
	assert.Equal(t, "audio/webm", clip.MIME)
	assert.Equal(t, []byte("abcd"), clip.Data)
	assert.Equal(t, StateIdle, r.State())
	assert.True(t, dev.stream.closed, "hardware handle must be released")
}

func TestStopWithoutDataYieldsNoUpload(t *testing.T) {
	dev := webmDevice()
	r := New(authenticated(), dev)
	require.NoError(t, r.Start(context.Background()))

	clip, err := r.Stop()
	assert.ErrorIs(t, err, ErrEmptyClip)
	assert.Nil(t, clip)
	assert.Equal(t, StateIdle, r.State())
	assert.True(t, dev.stream.closed)
}

func TestStopWhenIdle(t *testing.T) {
	r := New(authenticated(), webmDevice())
	_, err := r.Stop()
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestElapsedTicks(t *testing.T) {
	dev := webmDevice()
	r := New(authenticated(), dev)
	r.tickInterval = 5 * time.Millisecond

	require.NoError(t, r.Start(context.Background()))
	time.Sleep(40 * time.Millisecond)
	elapsed := r.Elapsed()
	assert.GreaterOrEqual(t, elapsed, 3)

	dev.stream.ch <- []byte("x")
	_, err := r.Stop()
	require.NoError(t, err)

	// 停止后计时器被取消，不再累加
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateIdle, r.State())
}

func TestRecorderIsReusableAfterStop(t *testing.T) {
	dev := webmDevice()
	r := New(authenticated(), dev)

	require.NoError(t, r.Start(context.Background()))
	dev.stream.ch <- []byte("one")
	time.Sleep(10 * time.Millisecond)
	clip, err := r.Stop()
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), clip.Data)

	require.NoError(t, r.Start(context.Background()))
	dev.stream.ch <- []byte("two")
	time.Sleep(10 * time.Millisecond)
	clip, err = r.Stop()
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), clip.Data, "previous session chunks must not leak")
}
