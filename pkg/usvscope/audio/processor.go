package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mousetube/usvscope/pkg/utils"
)

// DefaultLoadRate is the rate recordings are transcoded to when no explicit
// rate is requested. Ultrasonic vocalizations reach 150 kHz.
const DefaultLoadRate = 300000

type ConvertWAVConfig struct {
	SampleRate int
	// Timeout applies when ctx carries no deadline.
	Timeout time.Duration
}

// ConvertToMonoWAV transcodes any container ffmpeg understands into a mono
// 16-bit WAV at cfg.SampleRate inside outputDir and returns its path.
func ConvertToMonoWAV(
	ctx context.Context,
	inputPath string,
	outputDir string,
	cfg ConvertWAVConfig,
) (string, error) {

	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultLoadRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	stem := utils.FileStem(inputPath)
	outputPath := filepath.Join(outputDir, stem+".mono.wav")

	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-y",
		"-v", "error",
		"-i", inputPath,
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", cfg.SampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, strings.TrimSpace(string(out)))
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}

// FFmpegAvailable reports whether both ffmpeg and ffprobe are on PATH.
func FFmpegAvailable() bool {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			return false
		}
	}
	return true
}
