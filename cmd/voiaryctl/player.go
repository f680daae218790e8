package main

import (
	"os"
	"os/exec"
	"sync"
)

// ffplayPlayer 用 ffplay 播放一个音频地址，Pause 直接停掉进程
type ffplayPlayer struct {
	url string

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

func newFFplayPlayer(url string) *ffplayPlayer {
	return &ffplayPlayer{url: url}
}

func (p *ffplayPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil {
		return
	}
	cmd := exec.Command("ffplay", "-nodisp", "-autoexit", "-loglevel", "error", p.url)
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return
	}
	p.cmd = cmd
	done := make(chan struct{})
	p.done = done
	go func() {
		cmd.Wait()
		close(done)
	}()
}

func (p *ffplayPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

// Wait 阻塞到播放结束
func (p *ffplayPlayer) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}
