package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakePlayer struct {
	playing bool
	pauses  int
}

func (p *fakePlayer) Play()  { p.playing = true }
func (p *fakePlayer) Pause() { p.playing = false; p.pauses++ }

func TestToggleKeepsSinglePlayer(t *testing.T) {
	c := NewController()
	a, b := &fakePlayer{}, &fakePlayer{}
	c.Register(1, a)
	c.Register(2, b)

	assert.True(t, c.Toggle(1))
	assert.True(t, a.playing)

	// 切到 B 时 A 必须先被暂停
	assert.True(t, c.Toggle(2))
	assert.False(t, a.playing)
	assert.True(t, b.playing)
	assert.Equal(t, uint(2), c.Playing())
}

func TestToggleSameEntryPauses(t *testing.T) {
	c := NewController()
	a := &fakePlayer{}
	c.Register(1, a)

	assert.True(t, c.Toggle(1))
	assert.False(t, c.Toggle(1))
	assert.False(t, a.playing)
	assert.Zero(t, c.Playing())
}

func TestToggleUnknownEntry(t *testing.T) {
	c := NewController()
	assert.False(t, c.Toggle(7))
	assert.Zero(t, c.Playing())
}

func TestOnEndedClearsMarker(t *testing.T) {
	c := NewController()
	a := &fakePlayer{}
	c.Register(1, a)

	c.Toggle(1)
	c.OnEnded(1)
	assert.Zero(t, c.Playing())

	// 结束后的标记清理不影响别的条目
	b := &fakePlayer{}
	c.Register(2, b)
	c.Toggle(2)
	c.OnEnded(1)
	assert.Equal(t, uint(2), c.Playing())
}

func TestUnregisterClearsPlaying(t *testing.T) {
	c := NewController()
	a := &fakePlayer{}
	c.Register(1, a)
	c.Toggle(1)
	c.Unregister(1)
	assert.Zero(t, c.Playing())
	assert.False(t, c.Toggle(1))
}
