package recorder

import (
	"context"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// FFmpegDevice 通过 ffmpeg 子进程采集麦克风，voiaryctl 使用。
// 只支持可流式写管道的容器（webm/ogg），audio/mp4 需要可寻址输出。
type FFmpegDevice struct {
	Binary      string
	InputFormat string
	Input       string
}

func NewFFmpegDevice() *FFmpegDevice {
	d := &FFmpegDevice{Binary: "ffmpeg"}
	switch runtime.GOOS {
	case "darwin":
		d.InputFormat = "avfoundation"
		d.Input = ":0"
	default:
		d.InputFormat = "alsa"
		d.Input = "default"
	}
	return d
}

func (d *FFmpegDevice) Supports(mimeType string) bool {
	base, _, _ := strings.Cut(mimeType, ";")
	switch strings.TrimSpace(base) {
	case "audio/webm", "audio/ogg":
		return true
	}
	return false
}

func (d *FFmpegDevice) Open(ctx context.Context, mimeType string) (Stream, error) {
	container := "webm"
	if strings.HasPrefix(mimeType, "audio/ogg") {
		container = "ogg"
	}

	cmd := exec.CommandContext(ctx, d.Binary,
		"-hide_banner", "-loglevel", "error",
		"-f", d.InputFormat, "-i", d.Input,
		"-c:a", "libopus",
		"-f", container, "-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	s := &ffmpegStream{
		cmd:      cmd,
		chunks:   make(chan []byte, 16),
		readDone: make(chan struct{}),
	}
	go s.read(stdout)
	return s, nil
}

type ffmpegStream struct {
	cmd      *exec.Cmd
	chunks   chan []byte
	readDone chan struct{}
}

func (s *ffmpegStream) Chunks() <-chan []byte { return s.chunks }

func (s *ffmpegStream) read(r io.Reader) {
	defer close(s.readDone)
	defer close(s.chunks)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.chunks <- chunk
		}
		if err != nil {
			return
		}
	}
}

// Close 给 ffmpeg 发中断让它把容器写完整。必须等读协程把管道读到
// EOF 才能 Wait：Wait 在进程退出后会关闭管道，先 Wait 会丢掉
// ffmpeg 收到中断时刷出的容器尾部数据。
func (s *ffmpegStream) Close() error {
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Signal(os.Interrupt)
	}
	<-s.readDone
	err := s.cmd.Wait()
	if _, ok := err.(*exec.ExitError); ok {
		// 被信号打断属于预期退出
		return nil
	}
	return err
}
