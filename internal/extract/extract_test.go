// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ledger-migrate/internal/fluree"
	"github.com/pdiddy/ledger-migrate/pkg/types"
)

// fakeSource serves offset/limit pages over class datasets. When
// repeatTail is set, exhausted offsets answer with the final page
// again instead of an empty array, imitating a non-advancing source.
type fakeSource struct {
	data       map[string][]types.EntityRecord
	repeatTail bool
}

func (f *fakeSource) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q struct {
			From string `json:"from"`
			Opts struct {
				Offset int `json:"offset"`
				Limit  int `json:"limit"`
			} `json:"opts"`
		}
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rows := f.data[q.From]
		start, end := q.Opts.Offset, q.Opts.Offset+q.Opts.Limit
		if start > len(rows) {
			start = len(rows)
		}
		if end > len(rows) {
			end = len(rows)
		}
		page := rows[start:end]
		if len(page) == 0 && f.repeatTail && len(rows) > 0 {
			// Keep answering the last partial page.
			tail := len(rows) - len(rows)%q.Opts.Limit
			if tail == len(rows) {
				tail = len(rows) - q.Opts.Limit
			}
			page = rows[tail:]
		}
		json.NewEncoder(w).Encode(page)
	}
}

func makeRecords(class string, n int) []types.EntityRecord {
	rows := make([]types.EntityRecord, n)
	for i := range rows {
		rows[i] = types.EntityRecord{
			"_id":           float64(i + 1),
			class + "/name": fmt.Sprintf("%s-%d", class, i+1),
		}
	}
	return rows
}

func newExtractor(t *testing.T, src *fakeSource) *Extractor {
	t.Helper()
	ts := httptest.NewServer(src.handler())
	t.Cleanup(ts.Close)
	return &Extractor{
		Source:   fluree.New(ts.URL, "", types.HTTPConfig{}),
		SpillDir: t.TempDir(),
		Out:      io.Discard,
	}
}

func spillRecordCounts(t *testing.T, dir string) map[string]int {
	t.Helper()
	names, err := ListSpillFiles(dir)
	require.NoError(t, err)
	counts := make(map[string]int, len(names))
	for _, name := range names {
		records, err := ReadSpill(dir, name)
		require.NoError(t, err)
		counts[name] = len(records)
	}
	return counts
}

func TestRunSingleClass(t *testing.T) {
	src := &fakeSource{data: map[string][]types.EntityRecord{
		"person": makeRecords("person", 7),
	}}
	e := newExtractor(t, src)
	e.PageSize = 3

	require.NoError(t, e.Run(context.Background(), []string{"person"}))

	counts := spillRecordCounts(t, e.SpillDir)
	require.Len(t, counts, 1)
	assert.Equal(t, 7, counts["000000__person"])

	stats := e.Stats()["person"]
	assert.Equal(t, 7, stats.Records)
	// Pages 0-2, 3-5, 6 and the empty page that ends pagination.
	assert.Equal(t, 4, stats.Pages)
	assert.Equal(t, 1, stats.Spills)
}

func TestRunTerminatesOnRepeatedTail(t *testing.T) {
	// A source that keeps returning its last page must still
	// terminate: the page's ID set becomes a subset of history.
	src := &fakeSource{
		data:       map[string][]types.EntityRecord{"person": makeRecords("person", 5)},
		repeatTail: true,
	}
	e := newExtractor(t, src)
	e.PageSize = 2

	require.NoError(t, e.Run(context.Background(), []string{"person"}))

	counts := spillRecordCounts(t, e.SpillDir)
	require.Len(t, counts, 1)
	assert.Equal(t, 5, counts["000000__person"])
}

func TestRunSpillThresholdScenario(t *testing.T) {
	// 13000 records, page size 5000, sub-page threshold: every page
	// append crosses the threshold, so three threshold flushes plus
	// the final (empty) flush at pagination end.
	src := &fakeSource{data: map[string][]types.EntityRecord{
		"event": makeRecords("event", 13000),
	}}
	e := newExtractor(t, src)
	e.PageSize = 5000
	e.SpillThreshold = 2500

	require.NoError(t, e.Run(context.Background(), []string{"event"}))

	counts := spillRecordCounts(t, e.SpillDir)
	require.Len(t, counts, 4)
	assert.Equal(t, 5000, counts["000000__event"])
	assert.Equal(t, 5000, counts["000001__event"])
	assert.Equal(t, 3000, counts["000002__event"])
	assert.Equal(t, 0, counts["000003__event"])

	stats := e.Stats()["event"]
	assert.Equal(t, 13000, stats.Records)
	assert.Equal(t, 4, stats.Spills)
}

func TestRunZeroEntityClassFlushesEmptySpill(t *testing.T) {
	src := &fakeSource{data: map[string][]types.EntityRecord{}}
	e := newExtractor(t, src)

	require.NoError(t, e.Run(context.Background(), []string{"ghost"}))

	counts := spillRecordCounts(t, e.SpillDir)
	require.Len(t, counts, 1)
	assert.Equal(t, 0, counts["000000__ghost"])
}

func TestRunMultipleClassesInterleave(t *testing.T) {
	src := &fakeSource{data: map[string][]types.EntityRecord{
		"person": makeRecords("person", 4),
		"team":   makeRecords("team", 2),
		"empty":  nil,
	}}
	e := newExtractor(t, src)
	e.PageSize = 10

	require.NoError(t, e.Run(context.Background(), []string{"person", "team", "empty"}))

	names, err := ListSpillFiles(e.SpillDir)
	require.NoError(t, err)
	require.Len(t, names, 3)

	total := 0
	for name, n := range spillRecordCounts(t, e.SpillDir) {
		class, err := SpillClass(name)
		require.NoError(t, err)
		assert.Contains(t, []string{"person", "team", "empty"}, class)
		total += n
	}
	assert.Equal(t, 6, total)
	assert.Empty(t, e.Processing(), "processing list drains when tasks finish")
}

func TestRunClearsStaleSpillDir(t *testing.T) {
	src := &fakeSource{data: map[string][]types.EntityRecord{}}
	e := newExtractor(t, src)

	// Leave a file from a previous run behind.
	require.NoError(t, writeSpill(e.SpillDir, 99, "stale", makeRecords("stale", 1)))

	require.NoError(t, e.Run(context.Background(), []string{"ghost"}))

	names, err := ListSpillFiles(e.SpillDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000000__ghost"}, names)
}

func TestSpillFileNameOrdering(t *testing.T) {
	assert.Equal(t, "000000__person", spillFileName(0, "person"))
	assert.Equal(t, "000010__person", spillFileName(10, "person"))
	assert.Less(t, spillFileName(2, "zebra"), spillFileName(10, "ant"),
		"zero-padding keeps flush order under lexicographic sort")
}

func TestSpillClass(t *testing.T) {
	class, err := SpillClass("000003__chat_message")
	require.NoError(t, err)
	assert.Equal(t, "chat_message", class)

	_, err = SpillClass("junk")
	assert.Error(t, err)
}
