// Package sampler obtains the small grayscale pixel grid that feeds the
// hash codec. Extraction runs one external process per attempt; failures
// are recoverable and never escalate past this package.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"medialib/hash"
	"medialib/types"
)

// ErrNoFrame reports that no usable frame could be extracted. Callers treat
// it as "item not sampleable", not as a hard failure.
var ErrNoFrame = errors.New("no frame available")

// FirstFrame asks a FrameSource for the first decoded frame instead of a
// seek position.
const FirstFrame = -1.0

// DefaultTimeout bounds one extraction attempt.
const DefaultTimeout = 10 * time.Second

// FrameSource extracts a width x height grayscale byte grid from a media
// file. offsetSeconds selects the frame for video input; FirstFrame means
// the first decoded frame. Implementations return exactly width*height
// bytes on success.
type FrameSource interface {
	ExtractGrid(ctx context.Context, path string, width, height int, offsetSeconds float64) ([]byte, error)
}

// videoOffsets are the proportional sample positions tried, in order, when
// the duration is known.
var videoOffsets = [4]float64{0.10, 0.25, 0.50, 0.75}

// fallbackOffsets are the fixed positions tried when the duration is
// unknown.
var fallbackOffsets = [4]float64{1, 5, 15, 30}

// Sampler turns a media record into a pixel grid sized for the hash codec.
type Sampler struct {
	source        FrameSource
	imageFallback FrameSource
	timeout       time.Duration
	logger        zerolog.Logger
}

// New builds a Sampler around a frame source. imageFallback, when non-nil,
// is tried for still images after the primary source fails (for example
// in-process decoding when the extraction utility is unavailable). A
// timeout of zero means DefaultTimeout.
func New(source FrameSource, imageFallback FrameSource, timeout time.Duration, logger zerolog.Logger) *Sampler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Sampler{
		source:        source,
		imageFallback: imageFallback,
		timeout:       timeout,
		logger:        logger,
	}
}

// Sample returns the pixel grid representing the item's visual content, or
// ErrNoFrame when every extraction attempt failed.
func (s *Sampler) Sample(ctx context.Context, rec types.MediaRecord) (types.PixelGrid, error) {
	if rec.Kind == types.KindVideo {
		return s.sampleVideo(ctx, rec)
	}
	return s.sampleStill(ctx, rec.Path)
}

// sampleStill requests the first decoded frame. Animated images take this
// path too: their first frame stands in for the whole animation.
func (s *Sampler) sampleStill(ctx context.Context, path string) (types.PixelGrid, error) {
	grid, err := s.attempt(ctx, s.source, path, FirstFrame)
	if err == nil {
		return grid, nil
	}
	s.logger.Debug().Err(err).Str("path", path).Msg("still frame extraction failed")

	if s.imageFallback != nil {
		grid, ferr := s.attempt(ctx, s.imageFallback, path, FirstFrame)
		if ferr == nil {
			return grid, nil
		}
		s.logger.Debug().Err(ferr).Str("path", path).Msg("in-process image decode failed")
	}

	return types.PixelGrid{}, ErrNoFrame
}

// sampleVideo walks a short, deterministic list of timestamps and returns
// the grid from the first one that extracts cleanly. Frames are never
// averaged or merged; the chosen frame is a heuristic representative of the
// whole video, which bounds worst-case cost.
func (s *Sampler) sampleVideo(ctx context.Context, rec types.MediaRecord) (types.PixelGrid, error) {
	offsets := s.offsetsFor(rec.Duration)

	for _, offset := range offsets {
		grid, err := s.attempt(ctx, s.source, rec.Path, offset)
		if err == nil {
			return grid, nil
		}
		s.logger.Debug().
			Err(err).
			Str("path", rec.Path).
			Float64("offset", offset).
			Msg("frame extraction attempt failed")
	}

	return types.PixelGrid{}, ErrNoFrame
}

// offsetsFor derives the timestamp ladder for a video: proportional
// positions when the duration is known, fixed ones otherwise.
func (s *Sampler) offsetsFor(duration float64) []float64 {
	if duration <= 0 {
		return fallbackOffsets[:]
	}
	offsets := make([]float64, len(videoOffsets))
	for i, pct := range videoOffsets {
		offsets[i] = duration * pct
	}
	return offsets
}

// attempt runs one bounded extraction and validates the grid size. A timed
// out attempt is abandoned, not retried at the same timestamp.
func (s *Sampler) attempt(ctx context.Context, source FrameSource, path string, offset float64) (types.PixelGrid, error) {
	actx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	width, height := hash.SampleWidth, hash.SampleHeight
	pixels, err := source.ExtractGrid(actx, path, width, height, offset)
	if err != nil {
		return types.PixelGrid{}, err
	}
	if len(pixels) != width*height {
		return types.PixelGrid{}, fmt.Errorf("frame grid is %d bytes, want %d", len(pixels), width*height)
	}

	return types.PixelGrid{Width: width, Height: height, Pixels: pixels}, nil
}
