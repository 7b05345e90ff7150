// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/ledger-migrate/internal/extract"
	"github.com/pdiddy/ledger-migrate/internal/schema"
)

// Report is the YAML document written next to the journal database
// after each run.
type Report struct {
	Run       Run                     `yaml:"run"`
	Classes   []extract.ClassStats    `yaml:"classes"`
	Conflicts []schema.ConflictReport `yaml:"conflicts,omitempty"`
}

// ExportYAML writes dir/report.yaml summarizing one run, overwriting
// any report from an earlier run.
func (s *Store) ExportYAML(ctx context.Context, runID string) error {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return err
	}

	classes, err := s.runClasses(ctx, runID)
	if err != nil {
		return err
	}
	conflicts, err := s.runConflicts(ctx, runID)
	if err != nil {
		return err
	}

	report := Report{Run: *run, Classes: classes, Conflicts: conflicts}
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, "report.yaml"), data, 0o644)
}

func (s *Store) runClasses(ctx context.Context, runID string) ([]extract.ClassStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT class, pages, records, spills FROM classes WHERE run_id = ? ORDER BY class`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying classes: %w", err)
	}
	defer rows.Close()

	var stats []extract.ClassStats
	for rows.Next() {
		var st extract.ClassStats
		if err := rows.Scan(&st.Class, &st.Pages, &st.Records, &st.Spills); err != nil {
			return nil, fmt.Errorf("scanning class row: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (s *Store) runConflicts(ctx context.Context, runID string) ([]schema.ConflictReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT predicate_id, class, property, winning, others
		 FROM conflicts WHERE run_id = ? ORDER BY class, property`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []schema.ConflictReport
	for rows.Next() {
		var c schema.ConflictReport
		var others string
		if err := rows.Scan(&c.PredicateID, &c.ClassIRI, &c.PropertyIRI, &c.Winning, &others); err != nil {
			return nil, fmt.Errorf("scanning conflict row: %w", err)
		}
		if others != "" {
			c.Others = strings.Split(others, ",")
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}
