// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package schema

import (
	"github.com/pdiddy/ledger-migrate/pkg/types"
)

// Well-known namespace IRIs carried in every emitted @context.
const (
	rdfsIRI   = "http://www.w3.org/2000/01/rdf-schema#"
	rdfIRI    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	shaclIRI  = "http://www.w3.org/ns/shacl#"
	xsdIRI    = "http://www.w3.org/2001/XMLSchema#"
	ledgerIRI = "https://ns.flur.ee/ledger#"
)

// Context assembles the JSON-LD @context for documents derived from
// sourceURL. Explicit Base/Vocab overrides win; otherwise terms
// resolve under {url}/terms/ and entity ids under {url}/ids/. The
// vocabulary document only needs @base since classes and properties
// are themselves terms.
func Context(cfg types.ContextConfig, sourceURL string, isVocab bool) map[string]string {
	terms := cfg.Vocab
	if terms == "" {
		terms = sourceURL + "/terms/"
	}
	ids := cfg.Base
	if ids == "" {
		ids = sourceURL + "/ids/"
	}

	ctx := make(map[string]string)
	if isVocab {
		ctx["@base"] = terms
	} else {
		ctx["@base"] = ids
		ctx["@vocab"] = terms
	}

	for k, v := range cfg.Extra {
		ctx[k] = v
	}
	if cfg.SHACL {
		ctx["sh"] = shaclIRI
		ctx["xsd"] = xsdIRI
	}
	ctx["rdfs"] = rdfsIRI
	ctx["rdf"] = rdfIRI
	ctx["f"] = ledgerIRI
	return ctx
}

// VocabDocument renders the canonical graph as one JSON-LD document:
// classes, then properties, then (when includeShacl) node shapes,
// under an insert key. createMode wraps the assembled context as
// f:defaultContext so a freshly created ledger adopts it as its own.
func (r *Registry) VocabDocument(ledgerID string, ctx map[string]string, includeShacl, createMode bool) map[string]any {
	var graph []any
	for _, raw := range r.classOrder {
		graph = append(graph, r.classes[raw].jsonLD())
	}
	for _, raw := range r.propertyOrder {
		graph = append(graph, r.properties[raw].jsonLD())
	}
	if includeShacl {
		for _, raw := range r.shapeOrder {
			graph = append(graph, r.shapes[raw].jsonLD())
		}
	}

	doc := map[string]any{
		"ledger": ledgerID,
		"insert": graph,
	}
	if createMode {
		doc["@context"] = map[string]string{"f": ledgerIRI}
		doc["f:defaultContext"] = ctx
	} else {
		doc["@context"] = ctx
	}
	return doc
}

func (c *Class) jsonLD() map[string]any {
	node := map[string]any{
		"@id":        c.IRI,
		"@type":      "rdfs:Class",
		"rdfs:label": c.Label,
	}
	if c.Comment != "" {
		node["rdfs:comment"] = c.Comment
	}
	if len(c.SubClassOf) > 0 {
		node["rdfs:subClassOf"] = iriRefs(c.SubClassOf)
	}
	if len(c.Range) > 0 {
		node["rdfs:range"] = iriRefs(c.Range)
	}
	return node
}

func (p *Property) jsonLD() map[string]any {
	node := map[string]any{
		"@id":        p.IRI,
		"@type":      "rdf:Property",
		"rdfs:label": p.Label,
	}
	if p.Comment != "" {
		node["rdfs:comment"] = p.Comment
	}
	if len(p.Domain) > 0 {
		node["rdfs:domain"] = iriRefs(p.Domain)
	}
	return node
}

func (s *Shape) jsonLD() map[string]any {
	node := map[string]any{
		"@type":          "sh:NodeShape",
		"sh:targetClass": iriRef(s.TargetClass),
	}
	if s.Closed {
		node["sh:closed"] = true
		node["sh:ignoredProperties"] = iriRefs(s.Ignored)
	}
	props := make([]any, 0, len(s.Constraints))
	for _, con := range s.Constraints {
		props = append(props, con.jsonLD())
	}
	node["sh:property"] = props
	return node
}

func (c *Constraint) jsonLD() map[string]any {
	node := map[string]any{
		"sh:path": iriRef(c.PropertyIRI),
	}
	if c.MaxCount > 0 {
		node["sh:maxCount"] = c.MaxCount
	}
	if c.Datatype != "" {
		node["sh:datatype"] = iriRef(c.Datatype)
	}
	if c.ClassRef != "" {
		node["sh:class"] = iriRef(c.ClassRef)
	}
	return node
}

func iriRef(iri string) map[string]any {
	return map[string]any{"@id": iri}
}

func iriRefs(iris []string) []any {
	refs := make([]any, len(iris))
	for i, iri := range iris {
		refs[i] = iriRef(iri)
	}
	return refs
}
