package recorder

import (
	"errors"
	"sync"
)

// ErrNoSupportedFormat 设备不支持任何候选录音格式，本次会话无法录音
var ErrNoSupportedFormat = errors.New("no supported recording format")

// DefaultCandidates 录音格式优先级，mp4 优先照顾 iOS
var DefaultCandidates = []string{
	"audio/mp4",
	"audio/webm;codecs=opus",
	"audio/webm",
}

// Negotiator 按优先级探测一次可用的录音格式并缓存结果，
// 每个会话只探测一次，避免重复的能力查询
type Negotiator struct {
	supports   func(mimeType string) bool
	candidates []string

	once sync.Once
	mime string
	err  error
}

func NewNegotiator(supports func(string) bool, candidates ...string) *Negotiator {
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	return &Negotiator{supports: supports, candidates: candidates}
}

// Negotiate 返回第一个受支持的候选格式
func (n *Negotiator) Negotiate() (string, error) {
	n.once.Do(func() {
		for _, c := range n.candidates {
			if n.supports(c) {
				n.mime = c
				return
			}
		}
		n.err = ErrNoSupportedFormat
	})
	return n.mime, n.err
}
