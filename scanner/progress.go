package scanner

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"medialib/types"
)

// ProgressTracker aggregates per-file results and paints a progress line
// while the scan runs.
type ProgressTracker struct {
	processed int
	skipped   int
	errors    int
	videos    int
	images    int
	animated  int

	ticker     *time.Ticker
	done       chan bool
	mu         sync.Mutex
	totalFiles int
	logger     zerolog.Logger
}

// NewProgressTracker starts the display and result-draining goroutines.
func NewProgressTracker(stats FileStats, resultsChan chan Result, logger zerolog.Logger) *ProgressTracker {
	tracker := &ProgressTracker{
		ticker:     time.NewTicker(500 * time.Millisecond),
		done:       make(chan bool),
		totalFiles: stats.totalFiles,
		logger:     logger,
	}

	go tracker.displayProgress()
	go tracker.processResults(resultsChan)

	return tracker
}

// displayProgress repaints the status line periodically.
func (p *ProgressTracker) displayProgress() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.mu.Lock()
			if p.errors > 0 {
				fmt.Printf("\rProgress: %d/%d (Skipped: %d, Errors: %d)",
					p.processed, p.totalFiles, p.skipped, p.errors)
			} else {
				fmt.Printf("\rProgress: %d/%d (Skipped: %d)",
					p.processed, p.totalFiles, p.skipped)
			}
			p.mu.Unlock()
		}
	}
}

// processResults drains the results channel and updates the counters.
func (p *ProgressTracker) processResults(resultsChan chan Result) {
	for result := range resultsChan {
		p.mu.Lock()
		p.processed++

		switch result.Kind {
		case types.KindVideo:
			p.videos++
		case types.KindAnimated:
			p.animated++
		default:
			p.images++
		}

		if result.Skipped {
			p.skipped++
		}
		if !result.Success {
			p.errors++
			p.logger.Warn().Err(result.Error).Str("path", result.Path).Msg("indexing failed")
		} else {
			p.logger.Debug().Str("path", result.Path).Bool("skipped", result.Skipped).Msg("indexed")
		}

		p.mu.Unlock()
	}
}

// Stop ends the progress display.
func (p *ProgressTracker) Stop() {
	p.ticker.Stop()
	p.done <- true
}

// printStartupInfo announces what the scan will cover.
func printStartupInfo(stats FileStats, options Options) {
	fmt.Printf("Starting media indexing...\nTotal files to process: %d (%d videos, %d images, %d animated)\n",
		stats.totalFiles, stats.videoFiles, stats.imageFiles, stats.animatedFiles)
	if options.Rehash {
		fmt.Println("Rehash mode: stored fingerprints will be cleared")
	}
}

// printCompletionStats summarizes the run.
func printCompletionStats(tracker *ProgressTracker, startTime time.Time) {
	elapsed := time.Since(startTime)

	fmt.Println("\nIndexing complete.")
	fmt.Printf("Processed %d files in %v (%d skipped as unchanged).\n",
		tracker.processed, elapsed.Round(time.Second), tracker.skipped)

	if tracker.errors > 0 {
		fmt.Printf("Encountered %d errors during indexing.\n", tracker.errors)
	}
}
