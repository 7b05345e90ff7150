// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract pulls each class's entity data out of the source
// ledger with bounded concurrency, spilling pages to disk so memory
// stays flat regardless of ledger size.
package extract

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/pdiddy/ledger-migrate/internal/fluree"
	"github.com/pdiddy/ledger-migrate/pkg/types"
)

const (
	defaultPageSize       = 2000
	defaultSpillThreshold = 12500
	defaultConcurrency    = 10
)

// ClassStats summarizes one class's extraction.
type ClassStats struct {
	Class   string `json:"class" yaml:"class"`
	Pages   int    `json:"pages" yaml:"pages"`
	Records int    `json:"records" yaml:"records"`
	Spills  int    `json:"spills" yaml:"spills"`
}

// Extractor paginates every class's data out of the source in
// parallel, one task per class, capped by a weighted semaphore.
type Extractor struct {
	Source   *fluree.Instance
	SpillDir string

	// PageSize is the offset/limit step (default 2000).
	PageSize int

	// SpillThreshold is the buffered record count that forces a
	// mid-pagination flush (default 12500).
	SpillThreshold int

	// Concurrency caps parallel class extractions (default 10).
	Concurrency int

	// Out receives status lines. Defaults to io.Discard.
	Out io.Writer

	mu         sync.Mutex
	seen       map[string]map[int64]struct{}
	processing []string
	counter    int
	stats      map[string]*ClassStats
}

// Processing returns a snapshot of the classes currently being
// extracted. Maintained purely for status display.
func (e *Extractor) Processing() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.processing))
	copy(out, e.processing)
	return out
}

// Stats returns per-class extraction summaries, keyed by raw class
// name. Valid after Run returns.
func (e *Extractor) Stats() map[string]ClassStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]ClassStats, len(e.stats))
	for k, v := range e.stats {
		out[k] = *v
	}
	return out
}

// Run extracts every class concurrently and blocks until all tasks
// finish; the transform stage must not start before Run returns. The
// spill directory is cleared first.
func (e *Extractor) Run(ctx context.Context, classes []string) error {
	if err := PrepareSpillDir(e.SpillDir); err != nil {
		return err
	}

	e.seen = make(map[string]map[int64]struct{}, len(classes))
	e.stats = make(map[string]*ClassStats, len(classes))
	for _, class := range classes {
		e.seen[class] = make(map[int64]struct{})
		e.stats[class] = &ClassStats{Class: class}
	}

	concurrency := e.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	sem := semaphore.NewWeighted(int64(concurrency))

	g, ctx := errgroup.WithContext(ctx)
	for _, class := range classes {
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			return e.extractClass(ctx, class)
		})
	}
	return g.Wait()
}

// extractClass paginates one class until it sees an empty page or a
// page whose entity IDs are all already in history. The subset check
// terminates extraction against sources that keep answering their
// last page instead of an empty one.
func (e *Extractor) extractClass(ctx context.Context, class string) error {
	e.setProcessing(class, true)
	defer e.setProcessing(class, false)

	pageSize := e.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	threshold := e.SpillThreshold
	if threshold <= 0 {
		threshold = defaultSpillThreshold
	}

	fmt.Fprintf(e.out(), "%12s %s data\n", "Extracting", class)

	var buffer []types.EntityRecord
	offset := 0
	for {
		page, err := e.Source.DataPage(ctx, class, offset, pageSize)
		if err != nil {
			return fmt.Errorf("extracting %s: %w", class, err)
		}
		e.addPages(class, 1)

		if len(page) == 0 || !e.mergeNewIDs(class, page) {
			break
		}

		buffer = append(buffer, page...)
		e.addRecords(class, len(page))
		offset += pageSize

		if len(buffer) > threshold {
			if err := e.flush(class, buffer); err != nil {
				return err
			}
			buffer = buffer[:0]
		}
	}

	// Final flush always happens, even for an empty buffer.
	return e.flush(class, buffer)
}

// mergeNewIDs reports whether page contains at least one entity ID not
// yet in the class's history, merging any new ones in. A page that is
// a subset of history signals a non-advancing tail.
func (e *Extractor) mergeNewIDs(class string, page []types.EntityRecord) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	history := e.seen[class]
	fresh := false
	for _, rec := range page {
		id, ok := recordID(rec)
		if !ok {
			continue
		}
		if _, dup := history[id]; !dup {
			history[id] = struct{}{}
			fresh = true
		}
	}
	return fresh
}

// flush writes the buffer to the next numbered spill file.
func (e *Extractor) flush(class string, buffer []types.EntityRecord) error {
	e.mu.Lock()
	counter := e.counter
	e.counter++
	if s, ok := e.stats[class]; ok {
		s.Spills++
	}
	e.mu.Unlock()

	return writeSpill(e.SpillDir, counter, class, buffer)
}

// recordID pulls the numeric _id out of a raw record. JSON decoding
// delivers numbers as float64.
func recordID(rec types.EntityRecord) (int64, bool) {
	switch v := rec["_id"].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

func (e *Extractor) setProcessing(class string, active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if active {
		e.processing = append(e.processing, class)
		return
	}
	for i, c := range e.processing {
		if c == class {
			e.processing = append(e.processing[:i], e.processing[i+1:]...)
			break
		}
	}
}

func (e *Extractor) addPages(class string, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.stats[class]; ok {
		s.Pages += n
	}
}

func (e *Extractor) addRecords(class string, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.stats[class]; ok {
		s.Records += n
	}
}

func (e *Extractor) out() io.Writer {
	if e.Out != nil {
		return e.Out
	}
	return io.Discard
}
