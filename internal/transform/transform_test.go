// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package transform

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ledger-migrate/internal/schema"
	"github.com/pdiddy/ledger-migrate/pkg/types"
)

// collectSink gathers appended nodes in order.
type collectSink struct {
	nodes []types.Node
}

func (s *collectSink) Append(_ context.Context, node types.Node) error {
	s.nodes = append(s.nodes, node)
	return nil
}

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	r := schema.NewRegistry("", false)
	require.NoError(t, r.Canonicalize([]types.Predicate{
		{ID: 1, Name: "person/age", Type: "int"},
		{ID: 2, Name: "person/joined", Type: "instant"},
		{ID: 3, Name: "person/team", Type: "ref", RestrictCollection: "team", Multi: true},
		{ID: 4, Name: "person/first_name", Type: "string"},
		{ID: 5, Name: "team/name", Type: "string"},
	}))
	return r
}

func writeSpillFile(t *testing.T, dir, name string, records []types.EntityRecord) {
	t.Helper()
	data, err := json.Marshal(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestRunTransformsRecords(t *testing.T) {
	dir := t.TempDir()
	writeSpillFile(t, dir, "000000__person", []types.EntityRecord{
		{
			"_id":        float64(4242),
			"age":        float64(30),
			"joined":     float64(1693403567000),
			"team":       []any{map[string]any{"_id": float64(7)}},
			"first_name": "Ada",
			"_internal":  "dropped",
		},
	})

	tr := &Transformer{Registry: testRegistry(t), SpillDir: dir, Out: io.Discard}
	sink := &collectSink{}
	require.NoError(t, tr.Run(context.Background(), sink))

	require.Len(t, sink.nodes, 1)
	node := sink.nodes[0]
	assert.Equal(t, "4242", node["@id"])
	assert.Equal(t, "Person", node["@type"])
	assert.Equal(t, float64(30), node["age"])
	assert.Equal(t, "2023-08-30T13:52:47.000Z", node["joined"])
	assert.Equal(t, []any{map[string]any{"@id": "7"}}, node["team"])
	assert.Equal(t, "Ada", node["firstName"])
	assert.NotContains(t, node, "_internal")
	assert.NotContains(t, node, "first_name")
}

func TestRunProcessesFilesInFlushOrder(t *testing.T) {
	dir := t.TempDir()
	writeSpillFile(t, dir, "000001__team", []types.EntityRecord{
		{"_id": float64(2), "name": "second"},
	})
	writeSpillFile(t, dir, "000000__person", []types.EntityRecord{
		{"_id": float64(1), "age": float64(5)},
	})

	tr := &Transformer{Registry: testRegistry(t), SpillDir: dir}
	sink := &collectSink{}
	require.NoError(t, tr.Run(context.Background(), sink))

	require.Len(t, sink.nodes, 2)
	assert.Equal(t, "1", sink.nodes[0]["@id"])
	assert.Equal(t, "2", sink.nodes[1]["@id"])
}

func TestRunDeletesSpillFiles(t *testing.T) {
	dir := t.TempDir()
	writeSpillFile(t, dir, "000000__person", []types.EntityRecord{
		{"_id": float64(1)},
	})
	writeSpillFile(t, dir, "000001__person", nil)

	tr := &Transformer{Registry: testRegistry(t), SpillDir: dir}
	require.NoError(t, tr.Run(context.Background(), &collectSink{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunUnknownClassIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeSpillFile(t, dir, "000000__mystery", []types.EntityRecord{
		{"_id": float64(1)},
	})

	tr := &Transformer{Registry: testRegistry(t), SpillDir: dir}
	err := tr.Run(context.Background(), &collectSink{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mystery")
}

func TestRunEmptySpillContributesNoNodes(t *testing.T) {
	dir := t.TempDir()
	writeSpillFile(t, dir, "000000__person", nil)

	tr := &Transformer{Registry: testRegistry(t), SpillDir: dir}
	sink := &collectSink{}
	require.NoError(t, tr.Run(context.Background(), sink))
	assert.Empty(t, sink.nodes)
}

func TestRunSkipsRecordsWithoutID(t *testing.T) {
	dir := t.TempDir()
	writeSpillFile(t, dir, "000000__person", []types.EntityRecord{
		{"age": float64(1)},
		{"_id": float64(9), "age": float64(2)},
	})

	tr := &Transformer{Registry: testRegistry(t), SpillDir: dir}
	sink := &collectSink{}
	require.NoError(t, tr.Run(context.Background(), sink))
	require.Len(t, sink.nodes, 1)
	assert.Equal(t, "9", sink.nodes[0]["@id"])
}
