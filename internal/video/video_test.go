package video

import (
	"context"
	"errors"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestOutputArgs(t *testing.T) {
	tests := []struct {
		codec string
		key   string
		want  any
	}{
		{"libx264", "crf", 23},
		{"", "crf", 23},
		{"h264_nvenc", "cq", 23},
		{"h264_videotoolbox", "b:v", "2300k"},
	}
	for _, tt := range tests {
		t.Run(tt.codec, func(t *testing.T) {
			args := OutputArgs(Params{Codec: tt.codec, Quality: 23})
			assert.Equal(t, tt.want, args[tt.key])
			assert.Equal(t, "yuv420p", args["pix_fmt"])
			assert.Equal(t, "+faststart", args["movflags"])
			assert.Equal(t, "mp4", args["f"])
			assert.Contains(t, args, "an")
		})
	}
}

func TestEncodeErrorMatchesSentinel(t *testing.T) {
	cause := errors.New("boom")
	err := error(&EncodeError{Path: "out.mp4", Err: cause})
	assert.ErrorIs(t, err, ErrEncodeFailure)
	assert.ErrorIs(t, err, cause)
}

func TestOpenRejectsBadParams(t *testing.T) {
	_, err := NewFFmpegEncoder(nil).Open(context.Background(), filepath.Join(t.TempDir(), "x.mp4"), Params{})
	assert.ErrorIs(t, err, ErrEncodeFailure)
}

func TestTailBufferKeepsEnd(t *testing.T) {
	b := &tailBuffer{limit: 4}
	b.Write([]byte("abcdef"))
	b.Write([]byte("gh"))
	assert.Equal(t, "efgh", b.String())
}

func TestFFmpegRoundTrip(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	out := filepath.Join(t.TempDir(), "clip.mp4")
	p := Params{Width: 64, Height: 48, FPS: 10, Codec: "libx264", Quality: 30}

	sink, err := NewFFmpegEncoder(zaptest.NewLogger(t)).Open(context.Background(), out, p)
	require.NoError(t, err)
	frame := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for i := 0; i < 10; i++ {
		require.NoError(t, sink.WriteFrame(frame))
	}
	require.NoError(t, sink.Close())

	st, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, st.Size())
	assert.NoFileExists(t, out+".part")
}

func TestFFmpegAbortLeavesNothing(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	out := filepath.Join(t.TempDir(), "clip.mp4")
	sink, err := NewFFmpegEncoder(zaptest.NewLogger(t)).Open(context.Background(), out,
		Params{Width: 64, Height: 48, FPS: 10, Codec: "libx264", Quality: 30})
	require.NoError(t, err)
	require.NoError(t, sink.WriteFrame(image.NewRGBA(image.Rect(0, 0, 64, 48))))

	sink.Abort(context.Canceled)
	assert.NoFileExists(t, out)
	assert.NoFileExists(t, out+".part")
	assert.ErrorIs(t, sink.Close(), ErrEncodeFailure)
}
