// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output accumulates transformed nodes into size-bounded
// JSON-LD documents and flushes them to stdout, numbered files, or a
// remote target ledger.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pdiddy/ledger-migrate/internal/fluree"
	"github.com/pdiddy/ledger-migrate/internal/prompt"
	"github.com/pdiddy/ledger-migrate/pkg/types"
)

// DefaultFlushThreshold is the serialized size that triggers a
// document flush.
const DefaultFlushThreshold = 2_500_000

// vocabFileName is always emitted first; data chunks follow from 1.
const vocabFileName = "0_vocab.jsonld"

// Mode selects the sink destination. Exactly one applies per run.
type Mode int

const (
	ModePrint Mode = iota
	ModeFile
	ModeRemote
)

// Config describes one sink. Exactly one of Print, Dir, or Target must
// be set.
type Config struct {
	// Print writes documents to Stdout.
	Print bool

	// Dir writes numbered .jsonld files into this directory.
	Dir string

	// Target transacts documents into a remote ledger.
	Target *fluree.Instance

	// Prompter remediates target connectivity interactively. Nil in
	// unattended runs.
	Prompter prompt.Prompter

	// LedgerID and Context stamp every data document.
	LedgerID string
	Context  map[string]string

	// FlushThreshold overrides DefaultFlushThreshold.
	FlushThreshold int

	// Out receives status and error lines; Stdout receives printed
	// documents.
	Out    io.Writer
	Stdout io.Writer
}

// Sink buffers nodes and flushes size-bounded documents.
type Sink struct {
	mode      Mode
	dir       string
	target    *fluree.Instance
	prompter  prompt.Prompter
	ledgerID  string
	context   map[string]string
	threshold int
	out       io.Writer
	stdout    io.Writer

	nodes      []types.Node
	size       int
	chunkIndex int
}

// New validates the configuration and prepares the destination. A
// pre-existing output directory is cleared so stale chunks from an
// earlier run cannot mix with this one.
func New(cfg Config) (*Sink, error) {
	modes := 0
	for _, set := range []bool{cfg.Print, cfg.Dir != "", cfg.Target != nil} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return nil, fmt.Errorf("exactly one of print, output directory, or target must be configured")
	}

	s := &Sink{
		dir:       cfg.Dir,
		target:    cfg.Target,
		prompter:  cfg.Prompter,
		ledgerID:  cfg.LedgerID,
		context:   cfg.Context,
		threshold: cfg.FlushThreshold,
		out:       cfg.Out,
		stdout:    cfg.Stdout,
	}
	if s.threshold <= 0 {
		s.threshold = DefaultFlushThreshold
	}
	if s.out == nil {
		s.out = io.Discard
	}
	if s.stdout == nil {
		s.stdout = os.Stdout
	}

	switch {
	case cfg.Print:
		s.mode = ModePrint
	case cfg.Dir != "":
		s.mode = ModeFile
		if err := os.RemoveAll(cfg.Dir); err != nil {
			return nil, fmt.Errorf("clearing output directory %s: %w", cfg.Dir, err)
		}
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory %s: %w", cfg.Dir, err)
		}
	default:
		s.mode = ModeRemote
	}
	return s, nil
}

// Mode reports the selected destination.
func (s *Sink) Mode() Mode { return s.mode }

// WriteVocab emits the vocabulary document before any data. In file
// mode it becomes 0_vocab.jsonld.
func (s *Sink) WriteVocab(ctx context.Context, doc map[string]any) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding vocabulary document: %w", err)
	}
	switch s.mode {
	case ModePrint:
		fmt.Fprintln(s.stdout, string(payload))
		return nil
	case ModeFile:
		path := filepath.Join(s.dir, vocabFileName)
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return nil
	default:
		return s.submit(ctx, payload, "vocabulary")
	}
}

// Append buffers one node, flushing when the accumulated serialized
// size crosses the threshold.
func (s *Sink) Append(ctx context.Context, node types.Node) error {
	encoded, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("encoding node: %w", err)
	}
	s.nodes = append(s.nodes, node)
	s.size += len(encoded)

	if s.size > s.threshold {
		return s.Flush(ctx)
	}
	return nil
}

// Flush emits the buffered nodes as one document and resets the
// buffer.
func (s *Sink) Flush(ctx context.Context) error {
	doc := map[string]any{
		"ledger":   s.ledgerID,
		"@context": s.context,
		"insert":   s.dataGraph(),
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding data document: %w", err)
	}

	count := len(s.nodes)
	s.nodes = s.nodes[:0]
	s.size = 0
	s.chunkIndex++

	switch s.mode {
	case ModePrint:
		fmt.Fprintln(s.stdout, string(payload))
		return nil
	case ModeFile:
		name := fmt.Sprintf("%d_data.jsonld", s.chunkIndex)
		path := filepath.Join(s.dir, name)
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Fprintf(s.out, "%12s %s (%d nodes, %s)\n", "Writing", name, count, formatBytes(len(payload)))
		return nil
	default:
		return s.submit(ctx, payload, fmt.Sprintf("chunk %d (%d nodes)", s.chunkIndex, count))
	}
}

// Close performs the final flush. It always emits one document, even
// with an empty node buffer, so ledger and context metadata reach the
// destination.
func (s *Sink) Close(ctx context.Context) error {
	return s.Flush(ctx)
}

// dataGraph returns the buffered nodes as a plain slice; an empty
// buffer still serializes as [].
func (s *Sink) dataGraph() []any {
	graph := make([]any, len(s.nodes))
	for i, n := range s.nodes {
		graph[i] = n
	}
	return graph
}

// submit drives the target's retry/remediation loop for one document.
// A submission that still fails after bounded retries and (when
// available) prompting is reported on the error stream without
// aborting the run.
func (s *Sink) submit(ctx context.Context, payload []byte, what string) error {
	sess := &fluree.Session{Instance: s.target, Prompter: s.prompter, Out: s.out}
	resp, err := sess.Do(ctx, func(ctx context.Context) (*http.Response, error) {
		return s.target.Submit(ctx, payload)
	})
	if err != nil {
		fmt.Fprintf(s.out, "error: submitting %s to %s failed: %v\n", what, s.target.URL, err)
		return nil
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	fmt.Fprintf(s.out, "%12s %s to %s\n", "Transacted", what, s.target.URL)
	return nil
}

// formatBytes renders a byte count with a binary-scaled unit.
func formatBytes(size int) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d bytes", size)
	}
	div, exp := unit, 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
