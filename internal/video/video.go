package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
)

// ErrEncodeFailure matches every EncodeError.
var ErrEncodeFailure = errors.New("encode failure")

// EncodeError means no output file was produced.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

func (e *EncodeError) Is(target error) bool { return target == ErrEncodeFailure }

// Params describe the raw frames fed to an encoder and the codec settings.
type Params struct {
	Width   int
	Height  int
	FPS     int
	Codec   string
	Quality int
}

// Sink accepts frames for one output file. Close finalizes the file; Abort
// discards everything written so far.
type Sink interface {
	WriteFrame(img *image.RGBA) error
	Close() error
	Abort(cause error)
}

type Encoder interface {
	Open(ctx context.Context, path string, p Params) (Sink, error)
}

// FFmpegEncoder streams raw RGBA frames into ffmpeg over a pipe and muxes
// H.264 into MP4. The output is written next to the target as a ".part"
// file and renamed once ffmpeg exits cleanly.
type FFmpegEncoder struct {
	Log *zap.Logger
}

func NewFFmpegEncoder(log *zap.Logger) *FFmpegEncoder {
	if log == nil {
		log = zap.NewNop()
	}
	return &FFmpegEncoder{Log: log}
}

func (e *FFmpegEncoder) Open(ctx context.Context, path string, p Params) (Sink, error) {
	if p.Width <= 0 || p.Height <= 0 || p.FPS <= 0 {
		return nil, &EncodeError{Path: path, Err: fmt.Errorf("invalid params %dx%d@%d", p.Width, p.Height, p.FPS)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &EncodeError{Path: path, Err: err}
	}

	part := path + ".part"
	pr, pw := io.Pipe()
	stderr := &tailBuffer{limit: 4096}

	stream := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"format":  "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", p.Width, p.Height),
		"r":       p.FPS,
	}).
		Output(part, OutputArgs(p)).
		OverWriteOutput().
		WithInput(pr).
		WithErrorOutput(stderr)

	s := &ffmpegSink{
		path:   path,
		part:   part,
		pw:     pw,
		done:   make(chan error, 1),
		stderr: stderr,
		log:    e.Log,
		params: p,
	}
	go func() {
		err := stream.Run()
		if err != nil {
			pr.CloseWithError(err)
		} else {
			pr.Close()
		}
		s.done <- err
	}()

	e.Log.Debug("ffmpeg started",
		zap.String("output", path),
		zap.String("codec", p.Codec),
		zap.Int("fps", p.FPS))
	return s, nil
}

// OutputArgs are the muxer and codec arguments for p, with the quality knob
// each encoder understands.
func OutputArgs(p Params) ffmpeg.KwArgs {
	codec := p.Codec
	if codec == "" || codec == "auto" {
		codec = "libx264"
	}
	args := ffmpeg.KwArgs{
		"f":        "mp4",
		"c:v":      codec,
		"pix_fmt":  "yuv420p",
		"movflags": "+faststart",
		"an":       "",
	}
	switch codec {
	case "h264_videotoolbox":
		args["b:v"] = fmt.Sprintf("%dk", p.Quality*100)
	case "h264_nvenc":
		args["cq"] = p.Quality
	default:
		args["crf"] = p.Quality
		args["preset"] = "medium"
	}
	return args
}

type ffmpegSink struct {
	path, part string
	pw         *io.PipeWriter
	done       chan error
	stderr     *tailBuffer
	log        *zap.Logger
	params     Params

	once sync.Once
	err  error
}

func (s *ffmpegSink) WriteFrame(img *image.RGBA) error {
	b := img.Bounds()
	if b.Dx() != s.params.Width || b.Dy() != s.params.Height {
		return fmt.Errorf("frame is %dx%d, want %dx%d", b.Dx(), b.Dy(), s.params.Width, s.params.Height)
	}
	if img.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		packed := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(packed, packed.Bounds(), img, b.Min, draw.Src)
		img = packed
	}
	_, err := s.pw.Write(img.Pix[:b.Dx()*b.Dy()*4])
	return err
}

func (s *ffmpegSink) Close() error {
	s.once.Do(func() {
		s.pw.Close()
		if err := <-s.done; err != nil {
			os.Remove(s.part)
			s.err = &EncodeError{Path: s.path, Err: fmt.Errorf("%w: %s", err, s.stderr.String())}
			return
		}
		if err := os.Rename(s.part, s.path); err != nil {
			os.Remove(s.part)
			s.err = &EncodeError{Path: s.path, Err: err}
		}
	})
	return s.err
}

func (s *ffmpegSink) Abort(cause error) {
	s.once.Do(func() {
		if cause == nil {
			cause = errors.New("aborted")
		}
		s.pw.CloseWithError(cause)
		<-s.done
		os.Remove(s.part)
		s.err = &EncodeError{Path: s.path, Err: cause}
		s.log.Debug("ffmpeg aborted", zap.String("output", s.path), zap.Error(cause))
	})
}

// tailBuffer keeps the last limit bytes of ffmpeg's log for error messages.
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.limit; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(t.buf.String())
}
