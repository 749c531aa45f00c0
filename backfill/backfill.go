// Package backfill computes and persists fingerprints for items that do
// not have one yet. Runs are idempotent: an item with a stored fingerprint
// is never selected again, and one bad item never stops the batch.
package backfill

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"medialib/hash"
	"medialib/types"
)

// Store is the slice of the record store the pipeline needs.
type Store interface {
	GetMediaByID(id int64) (*types.MediaRecord, error)
	ListMissingFingerprint(limit int) ([]types.MediaRecord, error)
	SetFingerprint(id int64, fingerprint string) error
	CountMedia() (int, error)
	CountFingerprinted() (int, error)
}

// Sampler produces the pixel grid for one item.
type Sampler interface {
	Sample(ctx context.Context, rec types.MediaRecord) (types.PixelGrid, error)
}

// ProgressFunc is invoked after each item, successful or not.
type ProgressFunc func(current, total int, id int64)

// Result summarizes one backfill run.
type Result struct {
	Processed int
	Failed    int
}

// CoverageStats reports how much of the library is fingerprinted.
type CoverageStats struct {
	Total         int
	Fingerprinted int
	Percent       float64
}

// Pipeline drives fingerprint backfill over the store.
type Pipeline struct {
	store   Store
	sampler Sampler
	logger  zerolog.Logger
}

// NewPipeline wires a backfill pipeline.
func NewPipeline(store Store, sampler Sampler, logger zerolog.Logger) *Pipeline {
	return &Pipeline{store: store, sampler: sampler, logger: logger}
}

// Run fingerprints up to batchLimit items that lack one (batchLimit <= 0
// means all of them). Items are processed sequentially; sampling already
// fans out to an external process per attempt, so a second layer of
// parallelism here would just thrash the disk. A failed item is logged,
// counted and skipped; the stored row keeps its empty fingerprint so a
// later run retries it.
func (p *Pipeline) Run(ctx context.Context, batchLimit int, onProgress ProgressFunc) (Result, error) {
	pending, err := p.store.ListMissingFingerprint(batchLimit)
	if err != nil {
		return Result{}, fmt.Errorf("select backfill batch: %w", err)
	}

	var res Result
	for i, rec := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if err := p.hashAndStore(ctx, rec); err != nil {
			res.Failed++
			p.logger.Warn().Err(err).Int64("id", rec.ID).Str("path", rec.Path).Msg("backfill item failed")
		} else {
			res.Processed++
		}

		if onProgress != nil {
			onProgress(i+1, len(pending), rec.ID)
		}
	}

	p.logger.Info().
		Int("processed", res.Processed).
		Int("failed", res.Failed).
		Msg("backfill run complete")
	return res, nil
}

// UpdateHash recomputes and overwrites the fingerprint of one item,
// whether or not it already has one.
func (p *Pipeline) UpdateHash(ctx context.Context, id int64) error {
	rec, err := p.store.GetMediaByID(id)
	if err != nil {
		return fmt.Errorf("load media %d: %w", id, err)
	}
	if rec == nil {
		return fmt.Errorf("media %d not found", id)
	}
	return p.hashAndStore(ctx, *rec)
}

func (p *Pipeline) hashAndStore(ctx context.Context, rec types.MediaRecord) error {
	grid, err := p.sampler.Sample(ctx, rec)
	if err != nil {
		return fmt.Errorf("sample %s: %w", rec.Path, err)
	}

	fingerprint, err := hash.Compute(grid, hash.AlgorithmDifference)
	if err != nil {
		return fmt.Errorf("hash %s: %w", rec.Path, err)
	}

	if err := p.store.SetFingerprint(rec.ID, fingerprint); err != nil {
		return fmt.Errorf("persist fingerprint for %s: %w", rec.Path, err)
	}

	p.logger.Debug().Int64("id", rec.ID).Str("fingerprint", fingerprint).Msg("fingerprint stored")
	return nil
}

// Stats reports fingerprint coverage. An empty library counts as fully
// covered, so callers polling for completion terminate.
func (p *Pipeline) Stats() (CoverageStats, error) {
	total, err := p.store.CountMedia()
	if err != nil {
		return CoverageStats{}, fmt.Errorf("count media: %w", err)
	}
	done, err := p.store.CountFingerprinted()
	if err != nil {
		return CoverageStats{}, fmt.Errorf("count fingerprinted media: %w", err)
	}

	stats := CoverageStats{Total: total, Fingerprinted: done, Percent: 100}
	if total > 0 {
		stats.Percent = float64(done) / float64(total) * 100
	}
	return stats, nil
}
