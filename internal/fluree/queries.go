// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fluree

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pdiddy/ledger-migrate/pkg/types"
)

// schemaQueryBody asks the source for every predicate twice: once with
// full detail (current_predicates) and once as a bare id list pinned
// to block 1 (initial_predicates). Ids present at block 1 are built-in
// system predicates and are excluded from canonicalization.
const schemaQueryBody = `{
    "initial_predicates": {
        "select": "?pred",
        "where": [
            ["?pred", "_predicate/name", "?pN"]
        ],
        "block": 1,
        "opts": {
            "limit": 9999999
        }
    },
    "current_predicates": {
        "select": {"?pred": ["*"]},
        "where": [
            ["?pred", "_predicate/name", "?pN"]
        ],
        "opts": {
            "compact": true,
            "limit": 9999999
        }
    }
}`

// dataPageQuery builds the offset/limit select for one page of a
// class's entities.
func dataPageQuery(class string, offset, limit int) map[string]any {
	return map[string]any{
		"select": []string{"*"},
		"from":   class,
		"opts": map[string]any{
			"compact": true,
			"limit":   limit,
			"fuel":    9999999999,
			"offset":  offset,
		},
	}
}

// SchemaResult is the decoded predicate multi-query payload.
type SchemaResult struct {
	CurrentPredicates []types.Predicate `json:"current_predicates"`
	InitialPredicates []int64           `json:"initial_predicates"`
}

// ParseSchemaResult decodes a schema query response body. A payload
// missing either key means the source did not answer the multi-query
// (wrong endpoint or insufficient access) and is an error.
func ParseSchemaResult(r io.Reader) (*SchemaResult, error) {
	var raw struct {
		CurrentPredicates []types.Predicate `json:"current_predicates"`
		InitialPredicates []int64           `json:"initial_predicates"`
	}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding schema response: %w", err)
	}
	if raw.CurrentPredicates == nil || raw.InitialPredicates == nil {
		return nil, fmt.Errorf("schema response is missing predicate listings; check the ledger URL and credential")
	}
	return &SchemaResult{
		CurrentPredicates: raw.CurrentPredicates,
		InitialPredicates: raw.InitialPredicates,
	}, nil
}

// UserPredicates returns the predicates that are not built-in system
// predicates, i.e. whose ids are absent from the initial listing.
func (s *SchemaResult) UserPredicates() []types.Predicate {
	initial := make(map[int64]struct{}, len(s.InitialPredicates))
	for _, id := range s.InitialPredicates {
		initial[id] = struct{}{}
	}
	var user []types.Predicate
	for _, p := range s.CurrentPredicates {
		if _, ok := initial[p.ID]; !ok {
			user = append(user, p)
		}
	}
	return user
}
