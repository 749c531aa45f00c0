package sampler

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// FFmpegSource extracts frames by spawning ffmpeg, one process per attempt.
// ffmpeg scales the frame to the requested grid and writes raw 8-bit gray
// samples to stdout, so no intermediate file is needed.
type FFmpegSource struct {
	binary string
}

// NewFFmpegSource returns a source using the given ffmpeg binary, or plain
// "ffmpeg" from PATH when empty.
func NewFFmpegSource(binary string) *FFmpegSource {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegSource{binary: binary}
}

// ExtractGrid implements FrameSource. The context bounds the process
// lifetime; on timeout the process is killed and the attempt fails.
func (f *FFmpegSource) ExtractGrid(ctx context.Context, path string, width, height int, offsetSeconds float64) ([]byte, error) {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if offsetSeconds >= 0 {
		// Seek before the input for fast keyframe-based seeking.
		args = append(args, "-ss", strconv.FormatFloat(offsetSeconds, 'f', 3, 64))
	}
	args = append(args,
		"-i", path,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d", width, height),
		"-pix_fmt", "gray",
		"-f", "rawvideo",
		"-",
	)

	cmd := exec.CommandContext(ctx, f.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("ffmpeg on %s: %w: %s", filepath.Base(path), err, detail)
		}
		return nil, fmt.Errorf("ffmpeg on %s: %w", filepath.Base(path), err)
	}

	out := stdout.Bytes()
	want := width * height
	if len(out) < want {
		return nil, fmt.Errorf("ffmpeg on %s: short frame, got %d of %d bytes", filepath.Base(path), len(out), want)
	}
	// Some containers emit a second partial frame; keep exactly one grid.
	return out[:want], nil
}
