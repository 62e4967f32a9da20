// Package app contains the core application logic for the quarry CLI:
// the index build pipeline and the interactive search session, separated
// from CLI flag concerns.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/cmorrow/quarry/internal/corpus"
	"github.com/cmorrow/quarry/internal/indexer"
	"github.com/cmorrow/quarry/internal/spinner"
	"github.com/cmorrow/quarry/internal/store"
)

// Config holds all configuration options for the quarry application.
type Config struct {
	CorpusDir      string // corpus root directory
	CorpusPattern  string // glob for corpus files, relative to the root
	IndexDir       string // output root for all persisted artifacts
	FlushThreshold int    // accumulator byte budget; 0 selects the default
	LargeCorpus    bool   // switch to the large-corpus flush threshold
	CacheCapacity  int    // posting-list cache capacity; 0 selects the default
	MaxResults     int    // URLs displayed per query
	Quiet          bool   // suppress progress output
	Debug          bool
}

// BuildStats summarizes a completed index build.
type BuildStats struct {
	FilesProcessed int
	DocsIndexed    int
	UniqueTokens   int
	DiskSizeBytes  int64
	Elapsed        time.Duration
}

// Build runs the full indexing pipeline: stream the corpus, accumulate and
// flush partial indices, merge them into the final shards, and persist the
// id map and important-word list.
//
// ctx cancellation is honored between corpus files; the merge runs to
// completion once started.
func Build(ctx context.Context, cfg Config) (BuildStats, error) {
	start := time.Now()

	reader := corpus.NewReader(cfg.CorpusDir, cfg.CorpusPattern)
	files, err := reader.Files()
	if err != nil {
		return BuildStats{}, err
	}
	if len(files) == 0 {
		return BuildStats{}, fmt.Errorf("no corpus files under %s", cfg.CorpusDir)
	}

	st := store.New(cfg.IndexDir)
	proc := indexer.NewProcessor()

	threshold := cfg.FlushThreshold
	if threshold <= 0 && cfg.LargeCorpus {
		threshold = indexer.LargeCorpusFlushThreshold
	}
	builder := indexer.NewBuilder(st, proc, threshold)

	bar := buildProgress(len(files), cfg.Quiet)
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return BuildStats{}, err
		}
		if err := reader.EachRecord(file, builder.Ingest); err != nil {
			return BuildStats{}, err
		}
		_ = bar.Add(1)
	}
	if err := builder.Flush(); err != nil {
		return BuildStats{}, err
	}
	_ = bar.Finish()

	slog.Debug("corpus ingested",
		"files", len(files),
		"documents", proc.DocCount(),
		"partials", len(builder.Partials()))

	// the important-word set is final here, before any shard is written,
	// so query-time boosts see exactly what the writer saw
	if err := st.WriteIDToURL(proc.URLs()); err != nil {
		return BuildStats{}, err
	}
	if err := st.WriteImportantWords(proc.ImportantWords()); err != nil {
		return BuildStats{}, err
	}

	var spin *spinner.Spinner
	if !cfg.Quiet {
		spin = spinner.New(os.Stderr, "merging partial indices...")
		spin.Start()
	}
	uniqueTokens, err := indexer.Merge(st, builder.Partials(), proc.DocCount())
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return BuildStats{}, err
	}

	size, err := st.TotalSize()
	if err != nil {
		return BuildStats{}, err
	}

	return BuildStats{
		FilesProcessed: len(files),
		DocsIndexed:    proc.DocCount(),
		UniqueTokens:   uniqueTokens,
		DiskSizeBytes:  size,
		Elapsed:        time.Since(start),
	}, nil
}

// buildProgress returns the per-file progress bar, or a silent one in quiet
// mode.
func buildProgress(total int, quiet bool) *progressbar.ProgressBar {
	if quiet {
		return progressbar.DefaultSilent(int64(total))
	}
	return progressbar.Default(int64(total), "indexing corpus")
}
