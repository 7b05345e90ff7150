// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the configuration and data-model structs shared
// across the migration stages.
package types

// Predicate is one raw schema record from the source ledger. The name
// follows the "collection/property" convention; everything after the
// slash names a property of the collection before it.
type Predicate struct {
	// ID is the source-assigned numeric identifier.
	ID int64 `json:"_id"`

	// Name is the "collection/property" pair, e.g. "person/age".
	Name string `json:"name"`

	// Type is the source type tag: float, int, instant, boolean,
	// long, string, ref, or tag.
	Type string `json:"type,omitempty"`

	// Doc is an optional human-readable description.
	Doc string `json:"doc,omitempty"`

	// Multi reports whether the predicate holds multiple values.
	Multi bool `json:"multi,omitempty"`

	// RestrictCollection names the collection a ref predicate may
	// point at.
	RestrictCollection string `json:"restrictCollection,omitempty"`

	// Flags carried by the source but irrelevant to migration.
	Unique      bool `json:"unique,omitempty"`
	Index       bool `json:"index,omitempty"`
	FullText    bool `json:"fullText,omitempty"`
	Upsert      bool `json:"upsert,omitempty"`
	RestrictTag bool `json:"restrictTag,omitempty"`
}

// EntityRecord is one raw entity row as returned by the source query
// endpoint: a numeric _id plus arbitrary source-named key/value pairs.
type EntityRecord map[string]any

// Node is one transformed JSON-LD node: @id, @type, and canonical
// property IRIs mapped to coerced values.
type Node map[string]any
