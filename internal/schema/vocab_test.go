// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ledger-migrate/pkg/types"
)

const testSourceURL = "http://localhost:8090/fdb/example/demo"

func TestContextDefaults(t *testing.T) {
	ctx := Context(types.ContextConfig{}, testSourceURL, false)
	assert.Equal(t, testSourceURL+"/ids/", ctx["@base"])
	assert.Equal(t, testSourceURL+"/terms/", ctx["@vocab"])
	assert.Equal(t, rdfsIRI, ctx["rdfs"])
	assert.Equal(t, rdfIRI, ctx["rdf"])
	assert.Equal(t, ledgerIRI, ctx["f"])
	assert.NotContains(t, ctx, "sh")
	assert.NotContains(t, ctx, "xsd")
}

func TestContextVocabDocument(t *testing.T) {
	ctx := Context(types.ContextConfig{}, testSourceURL, true)
	assert.Equal(t, testSourceURL+"/terms/", ctx["@base"])
	assert.NotContains(t, ctx, "@vocab")
}

func TestContextOverridesAndSHACL(t *testing.T) {
	cfg := types.ContextConfig{
		Base:  "https://example.com/ids/",
		Vocab: "https://example.com/terms/",
		Extra: map[string]string{"schema": "http://schema.org/"},
		SHACL: true,
	}
	ctx := Context(cfg, testSourceURL, false)
	assert.Equal(t, "https://example.com/ids/", ctx["@base"])
	assert.Equal(t, "https://example.com/terms/", ctx["@vocab"])
	assert.Equal(t, "http://schema.org/", ctx["schema"])
	assert.Equal(t, shaclIRI, ctx["sh"])
	assert.Equal(t, xsdIRI, ctx["xsd"])
}

func buildTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry("", false)
	err := r.Canonicalize([]types.Predicate{
		{ID: 1, Name: "person/age", Type: "int", Doc: "Age in years"},
		{ID: 2, Name: "person/team", Type: "ref", RestrictCollection: "team", Multi: true},
		{ID: 3, Name: "team/name", Type: "string"},
	})
	require.NoError(t, err)
	return r
}

func TestVocabDocumentOrdering(t *testing.T) {
	r := buildTestRegistry(t)
	ctx := Context(types.ContextConfig{SHACL: true}, testSourceURL, true)
	doc := r.VocabDocument("example/demo", ctx, true, false)

	assert.Equal(t, "example/demo", doc["ledger"])
	assert.Equal(t, ctx, doc["@context"])

	graph, ok := doc["insert"].([]any)
	require.True(t, ok)
	// 2 classes + 3 properties + 2 shapes.
	require.Len(t, graph, 7)

	first := graph[0].(map[string]any)
	assert.Equal(t, "Person", first["@id"])
	assert.Equal(t, "rdfs:Class", first["@type"])

	// Classes come before properties, properties before shapes.
	var kinds []string
	for _, n := range graph {
		kinds = append(kinds, n.(map[string]any)["@type"].(string))
	}
	assert.Equal(t, []string{
		"rdfs:Class", "rdfs:Class",
		"rdf:Property", "rdf:Property", "rdf:Property",
		"sh:NodeShape", "sh:NodeShape",
	}, kinds)
}

func TestVocabDocumentWithoutShapes(t *testing.T) {
	r := buildTestRegistry(t)
	ctx := Context(types.ContextConfig{}, testSourceURL, true)
	doc := r.VocabDocument("example/demo", ctx, false, false)

	graph := doc["insert"].([]any)
	require.Len(t, graph, 5)
	for _, n := range graph {
		assert.NotEqual(t, "sh:NodeShape", n.(map[string]any)["@type"])
	}
}

func TestVocabDocumentCreateMode(t *testing.T) {
	r := buildTestRegistry(t)
	ctx := Context(types.ContextConfig{}, testSourceURL, true)
	doc := r.VocabDocument("example/demo", ctx, false, true)

	assert.Equal(t, map[string]string{"f": ledgerIRI}, doc["@context"])
	assert.Equal(t, ctx, doc["f:defaultContext"])
}

func TestVocabDocumentZeroEntityClassStillAppears(t *testing.T) {
	// A class with predicates but no data rows still belongs in the
	// vocabulary; data presence is irrelevant to canonicalization.
	r := NewRegistry("", false)
	require.NoError(t, r.Canonicalize([]types.Predicate{
		{ID: 1, Name: "empty_collection/field", Type: "string"},
	}))
	ctx := Context(types.ContextConfig{}, testSourceURL, true)
	doc := r.VocabDocument("example/demo", ctx, false, false)

	graph := doc["insert"].([]any)
	require.NotEmpty(t, graph)
	assert.Equal(t, "EmptyCollection", graph[0].(map[string]any)["@id"])
}

func TestShapeJSONLD(t *testing.T) {
	r := NewRegistry("", true)
	require.NoError(t, r.Canonicalize([]types.Predicate{
		{ID: 1, Name: "person/age", Type: "int"},
	}))

	node := r.shapes["person"].jsonLD()
	assert.Equal(t, map[string]any{"@id": "Person"}, node["sh:targetClass"])
	assert.Equal(t, true, node["sh:closed"])
	assert.Equal(t, []any{map[string]any{"@id": "@type"}}, node["sh:ignoredProperties"])

	props := node["sh:property"].([]any)
	require.Len(t, props, 1)
	con := props[0].(map[string]any)
	assert.Equal(t, map[string]any{"@id": "age"}, con["sh:path"])
	assert.Equal(t, 1, con["sh:maxCount"])
	assert.Equal(t, map[string]any{"@id": "xsd:integer"}, con["sh:datatype"])
}
