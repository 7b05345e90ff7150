// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "ledger-migrate/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SourceConfig identifies the v2 ledger the migration reads from.
type SourceConfig struct {
	HTTPConfig `yaml:",inline"`

	// URL is the ledger endpoint, e.g. "http://localhost:8090/fdb/network/db".
	URL string `json:"url" yaml:"url"`

	// Authorization is an optional bearer credential for hosted ledgers.
	Authorization string `json:"authorization,omitempty" yaml:"authorization,omitempty"`
}

// TargetConfig identifies the v3 ledger the migration transacts into.
// Leave URL empty for file or print output.
type TargetConfig struct {
	HTTPConfig `yaml:",inline"`

	// URL is the target ledger endpoint.
	URL string `json:"url" yaml:"url"`

	// Authorization is an optional bearer credential.
	Authorization string `json:"authorization,omitempty" yaml:"authorization,omitempty"`

	// CreateLedger makes the first submission use create semantics
	// instead of transact.
	CreateLedger bool `json:"create_ledger" yaml:"create_ledger"`
}

// ContextConfig controls the JSON-LD @context assembled for the
// vocabulary and data documents.
type ContextConfig struct {
	// Base overrides the @base IRI. Defaults derive from the source URL.
	Base string `json:"base,omitempty" yaml:"base,omitempty"`

	// Vocab overrides the @vocab IRI.
	Vocab string `json:"vocab,omitempty" yaml:"vocab,omitempty"`

	// Namespace prefixes generated class and property names
	// (e.g. "schema" emits "schema:Person"). Requires at least one
	// Extra entry defining the prefix.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`

	// Extra holds additional prefix=IRI context entries.
	Extra map[string]string `json:"context,omitempty" yaml:"context,omitempty"`

	// SHACL adds node shapes to the vocabulary document.
	SHACL bool `json:"shacl" yaml:"shacl"`

	// ClosedShapes marks emitted node shapes sh:closed, ignoring @type.
	ClosedShapes bool `json:"closed_shapes" yaml:"closed_shapes"`
}

// ExtractConfig holds settings for the extraction stage.
type ExtractConfig struct {
	// PageSize is the offset/limit page size for data queries (default 2000).
	PageSize int `json:"page_size" yaml:"page_size"`

	// SpillThreshold is the in-memory record count that forces a
	// spill-file flush mid-pagination (default 12500).
	SpillThreshold int `json:"spill_threshold" yaml:"spill_threshold"`

	// Concurrency caps the number of classes extracted in parallel (default 10).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// SpillDir is the temporary directory for spill files. Cleared at
	// run start, never reused across runs.
	SpillDir string `json:"spill_dir" yaml:"spill_dir"`
}

// OutputConfig selects the file or print emission destination. An
// empty Dir with Print false means the run transacts into the target.
type OutputConfig struct {
	// Dir is the directory numbered .jsonld files are written to.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Print writes documents to stdout instead of files or a target.
	Print bool `json:"print" yaml:"print"`

	// FlushThreshold is the serialized size in bytes that triggers a
	// document flush (default 2500000).
	FlushThreshold int `json:"flush_threshold" yaml:"flush_threshold"`
}

// JournalConfig holds settings for the run journal.
type JournalConfig struct {
	// Dir is the directory holding migrate.db and report.yaml
	// (default "journal"). Empty disables journaling.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// MigrateConfig aggregates the full configuration for one migration run.
type MigrateConfig struct {
	Source  SourceConfig  `json:"source" yaml:"source"`
	Target  TargetConfig  `json:"target" yaml:"target"`
	Context ContextConfig `json:"context" yaml:"context"`
	Extract ExtractConfig `json:"extract" yaml:"extract"`
	Output  OutputConfig  `json:"output" yaml:"output"`
	Journal JournalConfig `json:"journal" yaml:"journal"`

	// Unattended disables interactive prompts; connectivity failures
	// exhaust their bounded retries and then fail the run.
	Unattended bool `json:"unattended" yaml:"unattended"`
}
