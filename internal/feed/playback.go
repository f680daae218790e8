package feed

import "sync"

// Player 单条日记对应的音频播放器
type Player interface {
	Play()
	Pause()
}

// Controller 保证同一时刻最多一条日记在播放。
// Toggle 先暂停其他所有已注册的播放器再切换目标条目。
type Controller struct {
	mu      sync.Mutex
	players map[uint]Player
	playing uint // 0 表示没有在播
}

func NewController() *Controller {
	return &Controller{players: make(map[uint]Player)}
}

func (c *Controller) Register(entryID uint, p Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.players[entryID] = p
}

func (c *Controller) Unregister(entryID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.players, entryID)
	if c.playing == entryID {
		c.playing = 0
	}
}

// Toggle 播放或暂停指定条目。返回切换后该条目是否处于播放中。
func (c *Controller) Toggle(entryID uint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.players[entryID]; !ok {
		return false
	}
	if c.playing == entryID {
		c.players[entryID].Pause()
		c.playing = 0
		return false
	}
	for id, p := range c.players {
		if id != entryID {
			p.Pause()
		}
	}
	c.players[entryID].Play()
	c.playing = entryID
	return true
}

// OnEnded 播放自然结束时清掉正在播放标记，避免标记悬空
func (c *Controller) OnEnded(entryID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing == entryID {
		c.playing = 0
	}
}

// Playing 返回正在播放的条目 id，没有则返回 0
func (c *Controller) Playing() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}
