// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fluree speaks to one addressable source or target ledger
// endpoint: schema and data queries against a v2 ledger, create and
// transact submissions against a v3 ledger, and classification of
// responses into availability/authorization state.
package fluree

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/ledger-migrate/internal/httputil"
	"github.com/pdiddy/ledger-migrate/pkg/types"
)

const defaultTimeout = 60 * time.Second

// Instance represents one source or target endpoint.
type Instance struct {
	// URL is the ledger endpoint, e.g. "http://localhost:8090/fdb/network/db".
	URL string

	// APIKey is an optional bearer credential attached to every request.
	APIKey string

	// Available and Authorized hold the classification of the most
	// recent response. Both start optimistic.
	Available  bool
	Authorized bool

	// LedgerCreated controls create-vs-transact wire semantics for
	// targets. It flips to true after the first submission attempt
	// regardless of outcome, so a failed create makes later retries
	// use transact. Kept as-is from the source tool; see DESIGN.md.
	LedgerCreated bool

	// MaxAttempts bounds the transport-failure retry loop (default 5).
	MaxAttempts int

	Client    *http.Client
	UserAgent string

	// Warnings receives retry and failure lines. Defaults to io.Discard.
	Warnings io.Writer
}

// New returns an Instance for url. ledgerCreated should be false for
// targets that still need a create submission and is irrelevant for
// sources.
func New(url, apiKey string, cfg types.HTTPConfig) *Instance {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Instance{
		URL:        strings.TrimRight(url, "/"),
		APIKey:     apiKey,
		Available:  true,
		Authorized: true,
		Client:     &http.Client{Timeout: timeout},
		UserAgent:  cfg.UserAgent,
		Warnings:   io.Discard,
	}
}

// LedgerID derives the "network/db" identifier from the final two
// path segments of the instance URL.
func LedgerID(rawURL string) (string, error) {
	trimmed := strings.TrimRight(rawURL, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 || parts[len(parts)-1] == "" || parts[len(parts)-2] == "" {
		return "", fmt.Errorf("cannot derive network/db ledger id from %q", rawURL)
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1], nil
}

// post issues one JSON POST to {url}{path} with bounded transport retry.
func (i *Instance) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.URL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if i.UserAgent != "" {
		req.Header.Set("User-Agent", i.UserAgent)
	}
	if i.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+i.APIKey)
	}
	return httputil.DoWithRetry(ctx, i.Client, req, i.MaxAttempts, i.warnings())
}

// SchemaQuery posts the fixed predicate multi-query to the source.
// The caller classifies the response via Validate before decoding.
func (i *Instance) SchemaQuery(ctx context.Context) (*http.Response, error) {
	return i.post(ctx, "/multi-query", []byte(schemaQueryBody))
}

// DataPage fetches one page of a class's entities. An empty page
// signals possible end-of-stream; callers must also treat a page whose
// ID set is a subset of already-seen IDs as the end.
func (i *Instance) DataPage(ctx context.Context, class string, offset, limit int) ([]types.EntityRecord, error) {
	body, err := json.Marshal(dataPageQuery(class, offset, limit))
	if err != nil {
		return nil, fmt.Errorf("encoding page query: %w", err)
	}
	resp, err := i.post(ctx, "/query", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("query for %s at offset %d returned HTTP %d", class, offset, resp.StatusCode)
	}
	var page []types.EntityRecord
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding page for %s at offset %d: %w", class, offset, err)
	}
	return page, nil
}

// Submit sends a JSON-LD document to the target. The first submission
// while LedgerCreated is false uses the create endpoint; every later
// one uses transact. The flag flips after the attempt regardless of
// outcome.
func (i *Instance) Submit(ctx context.Context, payload []byte) (*http.Response, error) {
	path := "/transact"
	if !i.LedgerCreated {
		path = "/create"
	}
	i.LedgerCreated = true
	return i.post(ctx, path, payload)
}

func (i *Instance) warnings() io.Writer {
	if i.Warnings != nil {
		return i.Warnings
	}
	return io.Discard
}
