package system

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"go.uber.org/zap"
)

func InitResourceLimits(log *zap.Logger) {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Warn("cannot read open file limit", zap.Error(err))
		return
	}

	want := uint64(4096)
	if rLimit.Cur >= want {
		return
	}
	rLimit.Cur = want
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Warn("cannot raise open file limit", zap.Error(err))
		return
	}
	log.Debug("open file limit raised", zap.Uint64("limit", rLimit.Cur))
}

var (
	encoderOnce sync.Once
	encoderName string
)

// BestH264Encoder picks a hardware H.264 encoder when ffmpeg reports one,
// libx264 otherwise. The probe runs once per process.
func BestH264Encoder(ctx context.Context) string {
	encoderOnce.Do(func() {
		encoderName = "libx264"
		out, err := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
		if err != nil {
			return
		}
		encoderName = pickEncoder(string(out))
	})
	return encoderName
}

func pickEncoder(listing string) string {
	// VideoToolbox on macOS, then NVENC.
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(listing, name) {
			return name
		}
	}
	return "libx264"
}
