// Package scanner walks a library folder and indexes every media file it
// recognizes: kind, size, modification time, content hash and (for videos)
// duration. Fingerprinting is not done here; the backfill pipeline picks up
// newly indexed items afterwards.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"medialib/probe"
	"medialib/types"
)

// Options defines one scan run.
type Options struct {
	FolderPath string
	// Rehash clears stored fingerprints even for unchanged files, forcing
	// the next backfill to recompute them.
	Rehash bool
	// Workers caps concurrent file processing. <= 0 means DefaultWorkers.
	Workers int
}

// DefaultWorkers bounds the scan's concurrency when Options.Workers is
// unset. File hashing is I/O bound, so a small pool saturates the disk.
const DefaultWorkers = 8

// Store is the slice of the record store the scanner writes to.
type Store interface {
	GetMediaByPath(path string) (*types.MediaRecord, error)
	UpsertMedia(rec types.MediaRecord, clearFingerprint bool) (int64, error)
}

// Prober supplies media metadata at index time. A nil Prober skips duration
// probing and leaves video durations at zero (the sampler then falls back
// to fixed timestamps).
type Prober interface {
	Probe(path string) (probe.Metadata, error)
}

// Result reports the outcome of processing one file.
type Result struct {
	Path    string
	Kind    types.MediaKind
	Success bool
	Skipped bool
	Error   error
}

// Scanner indexes folders into the record store.
type Scanner struct {
	store  Store
	prober Prober
	logger zerolog.Logger
}

// New builds a Scanner. prober may be nil.
func New(store Store, prober Prober, logger zerolog.Logger) *Scanner {
	return &Scanner{store: store, prober: prober, logger: logger}
}

// ScanAndStoreFolder walks the folder and indexes every recognized media
// file, fanning work out to a bounded pool. Per-file failures are counted
// and logged, never fatal; only a walk error aborts the scan.
func (s *Scanner) ScanAndStoreFolder(options Options) error {
	var wg sync.WaitGroup
	resultsChan := make(chan Result, 100)
	workers := options.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	semaphore := make(chan struct{}, workers)

	stats := s.countFilesToScan(options)
	printStartupInfo(stats, options)

	tracker := NewProgressTracker(stats, resultsChan, s.logger)
	defer tracker.Stop()

	startTime := time.Now()
	err := s.walkAndProcessFiles(options, &wg, resultsChan, semaphore)

	wg.Wait()
	close(resultsChan)

	printCompletionStats(tracker, startTime)
	return err
}

// FileStats tallies what a scan is about to process.
type FileStats struct {
	totalFiles    int
	videoFiles    int
	imageFiles    int
	animatedFiles int
}

// countFilesToScan makes a first pass over the folder so progress can be
// reported against a known total.
func (s *Scanner) countFilesToScan(options Options) FileStats {
	stats := FileStats{}

	filepath.Walk(options.FolderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		kind, ok := KindForPath(path)
		if !ok {
			return nil
		}
		stats.totalFiles++
		switch kind {
		case types.KindVideo:
			stats.videoFiles++
		case types.KindAnimated:
			stats.animatedFiles++
		default:
			stats.imageFiles++
		}
		return nil
	})

	return stats
}

// walkAndProcessFiles traverses the folder and dispatches each recognized
// file to the worker pool.
func (s *Scanner) walkAndProcessFiles(options Options, wg *sync.WaitGroup, resultsChan chan Result, semaphore chan struct{}) error {
	return filepath.Walk(options.FolderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if info == nil || !info.IsDir() {
				s.logger.Warn().Err(err).Str("path", path).Msg("cannot access path")
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		kind, ok := KindForPath(path)
		if !ok {
			return nil
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(p string, k types.MediaKind, fi os.FileInfo) {
			defer wg.Done()
			defer func() { <-semaphore }()

			resultsChan <- s.processAndStoreFile(p, k, fi, options)
		}(path, kind, info)

		return nil
	})
}

// processAndStoreFile indexes a single file. Unchanged files are skipped
// unless a rehash was requested; a changed file has its fingerprint cleared
// so backfill recomputes it.
func (s *Scanner) processAndStoreFile(path string, kind types.MediaKind, info os.FileInfo, options Options) Result {
	result := Result{Path: path, Kind: kind}

	modifiedAt := info.ModTime().UTC().Format(time.RFC3339)

	existing, err := s.store.GetMediaByPath(path)
	if err != nil {
		result.Error = fmt.Errorf("lookup %s: %w", path, err)
		return result
	}

	changed := existing == nil || existing.ModifiedAt != modifiedAt || existing.Size != info.Size()
	if existing != nil && !changed && !options.Rehash {
		result.Success = true
		result.Skipped = true
		return result
	}

	contentHash, err := HashFile(path)
	if err != nil {
		result.Error = err
		return result
	}

	var duration float64
	if kind == types.KindVideo && s.prober != nil {
		meta, err := s.prober.Probe(path)
		if err != nil {
			// Unknown duration is recoverable; the sampler has a fallback.
			s.logger.Debug().Err(err).Str("path", path).Msg("duration probe failed")
		} else {
			duration = meta.DurationSeconds
		}
	}

	rec := types.MediaRecord{
		Path:        path,
		Kind:        kind,
		Size:        info.Size(),
		Duration:    duration,
		ContentHash: contentHash,
		ModifiedAt:  modifiedAt,
		AddedAt:     time.Now().UTC().Format(time.RFC3339),
	}

	clearFingerprint := options.Rehash || (existing != nil && changed)
	if _, err := s.store.UpsertMedia(rec, clearFingerprint); err != nil {
		result.Error = fmt.Errorf("store %s: %w", path, err)
		return result
	}

	result.Success = true
	return result
}
