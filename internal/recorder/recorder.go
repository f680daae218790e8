package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type State int

const (
	StateIdle State = iota
	StateRequestingPermission
	StateActive
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequestingPermission:
		return "requesting-permission"
	case StateActive:
		return "active"
	case StateFinalizing:
		return "finalizing"
	}
	return "unknown"
}

var (
	// ErrBusy 已有录音进行中，新的开始请求被忽略
	ErrBusy = errors.New("recording already in progress")
	// ErrNotActive 当前没有进行中的录音
	ErrNotActive = errors.New("no recording in progress")
	// ErrNotAuthenticated 未登录不允许录音
	ErrNotAuthenticated = errors.New("sign in required before recording")
	// ErrPermissionDenied 麦克风权限被拒绝，与格式不支持是两种不同的提示
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrEmptyClip 没有采到任何数据，不产生上传
	ErrEmptyClip = errors.New("no audio captured")
)

// AccessGate 判断当前是否有已登录用户
type AccessGate interface {
	Authenticated() bool
}

type GateFunc func() bool

func (f GateFunc) Authenticated() bool { return f() }

// Device 打开一路音频采集流
type Device interface {
	// Supports 报告采集端能否产出该 MIME 类型
	Supports(mimeType string) bool
	// Open 申请麦克风并开始采集，权限被拒时返回错误
	Open(ctx context.Context, mimeType string) (Stream, error)
}

// Stream 一路进行中的采集。Close 必须释放硬件句柄并最终关闭 Chunks 通道。
type Stream interface {
	Chunks() <-chan []byte
	Close() error
}

// Clip 一段完成的录音
type Clip struct {
	MIME     string
	Data     []byte
	Duration int // 秒
}

// Recorder 录音状态机：Idle → RequestingPermission → Active → Finalizing → Idle。
// 同一时刻最多一路录音；麦克风流在 Stop 时无条件释放，
// 之后上传成功与否都不影响状态机回到 Idle。
type Recorder struct {
	gate AccessGate
	dev  Device
	neg  *Negotiator

	tickInterval time.Duration

	mu          sync.Mutex
	state       State
	mime        string
	chunks      [][]byte
	elapsed     int
	stream      Stream
	cancelTick  chan struct{}
	collectDone chan struct{}
}

func New(gate AccessGate, dev Device) *Recorder {
	r := &Recorder{
		gate:         gate,
		dev:          dev,
		tickInterval: time.Second,
	}
	r.neg = NewNegotiator(dev.Supports)
	return r
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Elapsed 当前录音已进行的秒数
func (r *Recorder) Elapsed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsed
}

// Start 开始一次录音。未登录、格式不支持、权限被拒分别返回
// 可区分的错误；非 Idle 状态下的开始请求直接被忽略。
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return ErrBusy
	}
	if !r.gate.Authenticated() {
		r.mu.Unlock()
		return ErrNotAuthenticated
	}
	r.state = StateRequestingPermission
	r.mu.Unlock()

	mime, err := r.neg.Negotiate()
	if err != nil {
		r.toIdle()
		return err
	}

	stream, err := r.dev.Open(ctx, mime)
	if err != nil {
		r.toIdle()
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	r.mu.Lock()
	r.state = StateActive
	r.mime = mime
	r.chunks = nil
	r.elapsed = 0
	r.stream = stream
	r.cancelTick = make(chan struct{})
	r.collectDone = make(chan struct{})
	r.mu.Unlock()

	go r.tickLoop(r.cancelTick)
	go r.collect(stream, r.collectDone)
	return nil
}

// Stop 结束录音并组装 Clip。麦克风流无条件关闭；
// 一个字节都没采到时返回 ErrEmptyClip，调用方不应发起上传。
func (r *Recorder) Stop() (*Clip, error) {
	r.mu.Lock()
	if r.state != StateActive {
		r.mu.Unlock()
		return nil, ErrNotActive
	}
	r.state = StateFinalizing
	// 计时器必须真正取消，后台切换回来时不能出现多余的 tick
	close(r.cancelTick)
	stream := r.stream
	done := r.collectDone
	r.mu.Unlock()

	closeErr := stream.Close()
	if closeErr == nil {
		// Close 后 Chunks 通道会关闭，等收集协程把尾部数据追完
		<-done
	}

	r.mu.Lock()
	data := bytes.Join(r.chunks, nil)
	clip := &Clip{MIME: r.mime, Data: data, Duration: r.elapsed}
	r.chunks = nil
	r.stream = nil
	r.state = StateIdle
	r.mu.Unlock()

	if closeErr != nil {
		return nil, fmt.Errorf("release capture stream: %w", closeErr)
	}
	if len(data) == 0 {
		return nil, ErrEmptyClip
	}
	return clip, nil
}

func (r *Recorder) toIdle() {
	r.mu.Lock()
	r.state = StateIdle
	r.mu.Unlock()
}

func (r *Recorder) tickLoop(cancel <-chan struct{}) {
	t := time.NewTicker(r.tickInterval)
	defer t.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-t.C:
			r.mu.Lock()
			if r.state == StateActive {
				r.elapsed++
			}
			r.mu.Unlock()
		}
	}
}

func (r *Recorder) collect(stream Stream, done chan<- struct{}) {
	defer close(done)
	for chunk := range stream.Chunks() {
		// 空块直接丢弃，避免拼出一段哑音
		if len(chunk) == 0 {
			continue
		}
		buf := make([]byte, len(chunk))
		copy(buf, chunk)
		r.mu.Lock()
		r.chunks = append(r.chunks, buf)
		r.mu.Unlock()
	}
}
