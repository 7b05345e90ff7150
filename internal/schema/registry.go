// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schema canonicalizes a flat predicate list into a normalized
// class/property/SHACL-shape graph and renders it as a JSON-LD
// vocabulary document.
package schema

import (
	"fmt"
	"strings"

	"github.com/pdiddy/ledger-migrate/pkg/types"
)

// datatypes maps source type tags to XSD datatypes. Tags absent from
// the table ("tag", "ref", anything unrecognized) contribute no
// datatype; object references are expressed through sh:class instead.
var datatypes = map[string]string{
	"float":   "xsd:float",
	"int":     "xsd:integer",
	"instant": "xsd:dateTime",
	"boolean": "xsd:boolean",
	"long":    "xsd:long",
	"string":  "xsd:string",
}

// Class is the canonical form of one source collection.
type Class struct {
	RawName string
	IRI     string
	Label   string
	Comment string

	// SubClassOf lists superclass IRIs. The source schema carries no
	// hierarchy, so this is only populated by callers layering one on.
	SubClassOf []string

	// Range lists the IRIs of properties whose domain includes this
	// class, one entry per distinct referencing property.
	Range []string
}

// Property is the canonical form of one source property name. A single
// property may be shared by predicates of several collections; its
// datatype set accumulates across all of them and only ever grows.
type Property struct {
	RawName string
	IRI     string
	Label   string
	Comment string

	// Domain lists the IRIs of classes carrying this property.
	Domain []string

	// Datatypes is the set of normalized datatypes seen across every
	// predicate sharing this property name, in first-seen order. More
	// than one entry flags a datatype inconsistency.
	Datatypes []string
}

// HasDatatype reports whether dt is already in the property's set.
func (p *Property) HasDatatype(dt string) bool {
	for _, d := range p.Datatypes {
		if d == dt {
			return true
		}
	}
	return false
}

// Constraint is one sh:property entry of a node shape.
type Constraint struct {
	// PropertyIRI is the sh:path target.
	PropertyIRI string

	// MaxCount caps the cardinality; 0 means uncapped (multi-valued).
	MaxCount int

	// Datatype is the sh:datatype IRI, set only when the property's
	// accumulated datatype set has exactly one member.
	Datatype string

	// ClassRef is the sh:class IRI for object references.
	ClassRef string
}

// Shape is the SHACL node shape for one class.
type Shape struct {
	RawClass    string
	TargetClass string

	// Closed shapes reject properties outside the constraint list,
	// ignoring @type.
	Closed  bool
	Ignored []string

	Constraints []*Constraint

	byProperty map[string]*Constraint
}

// ConflictReport records one non-fatal datatype inconsistency: a
// property whose predicates disagree on type across classes.
type ConflictReport struct {
	PredicateID int64    `json:"predicate_id" yaml:"predicate_id"`
	ClassIRI    string   `json:"class" yaml:"class"`
	PropertyIRI string   `json:"property" yaml:"property"`
	Winning     string   `json:"winning" yaml:"winning"`
	Others      []string `json:"others" yaml:"others"`
}

func (c ConflictReport) String() string {
	return fmt.Sprintf("property %s on %s has conflicting datatypes: keeping none (saw %s, also %s)",
		c.PropertyIRI, c.ClassIRI, c.Winning, strings.Join(c.Others, ", "))
}

// Registry owns the canonical class, property, and shape maps for one
// migration run. It is created empty, populated by Canonicalize, and
// passed by reference to the transform stage.
type Registry struct {
	prefix       string
	closedShapes bool

	classes    map[string]*Class
	classOrder []string

	properties    map[string]*Property
	propertyOrder []string

	shapes     map[string]*Shape
	shapeOrder []string

	conflicts []ConflictReport
}

// NewRegistry returns an empty registry. prefix (e.g. "schema:") is
// prepended to every canonical name; closedShapes marks emitted node
// shapes sh:closed.
func NewRegistry(prefix string, closedShapes bool) *Registry {
	return &Registry{
		prefix:       prefix,
		closedShapes: closedShapes,
		classes:      make(map[string]*Class),
		properties:   make(map[string]*Property),
		shapes:       make(map[string]*Shape),
	}
}

// Class returns the canonical class for a raw collection name,
// creating it on first sight. Subsequent calls with the same raw name
// return the same *Class.
func (r *Registry) Class(raw string) *Class {
	if c, ok := r.classes[raw]; ok {
		return c
	}
	iri := ClassName(raw, r.prefix)
	c := &Class{
		RawName: raw,
		IRI:     iri,
		Label:   RemoveNamespace(iri),
	}
	r.classes[raw] = c
	r.classOrder = append(r.classOrder, raw)
	return c
}

// Property returns the canonical property for a raw property name,
// creating it on first sight and unioning typeTag's normalized
// datatype into its set.
func (r *Registry) Property(raw, typeTag string) *Property {
	p, ok := r.properties[raw]
	if !ok {
		iri := PropertyName(raw, r.prefix)
		p = &Property{
			RawName: raw,
			IRI:     iri,
			Label:   RemoveNamespace(iri),
		}
		r.properties[raw] = p
		r.propertyOrder = append(r.propertyOrder, raw)
	}
	if dt, ok := datatypes[typeTag]; ok && !p.HasDatatype(dt) {
		p.Datatypes = append(p.Datatypes, dt)
	}
	return p
}

// Shape returns the node shape for a raw collection name, creating it
// on first sight.
func (r *Registry) Shape(raw string, closed bool) *Shape {
	if s, ok := r.shapes[raw]; ok {
		return s
	}
	s := &Shape{
		RawClass:    raw,
		TargetClass: r.Class(raw).IRI,
		Closed:      closed,
		byProperty:  make(map[string]*Constraint),
	}
	if closed {
		s.Ignored = []string{"@type"}
	}
	r.shapes[raw] = s
	r.shapeOrder = append(r.shapeOrder, raw)
	return s
}

// SetProperty applies one predicate's metadata to the shape's
// constraint for that property. It returns a non-nil conflict report
// when the property's accumulated datatype set holds more than one
// member, in which case sh:datatype is omitted from the constraint.
func (r *Registry) SetProperty(shape *Shape, prop *Property, pred types.Predicate) *ConflictReport {
	con, ok := shape.byProperty[prop.RawName]
	if !ok {
		con = &Constraint{PropertyIRI: prop.IRI}
		shape.byProperty[prop.RawName] = con
		shape.Constraints = append(shape.Constraints, con)
	}

	if pred.Doc != "" {
		prop.Comment = pred.Doc
	}
	if !pred.Multi {
		con.MaxCount = 1
	}
	if pred.RestrictCollection != "" {
		con.ClassRef = r.Class(pred.RestrictCollection).IRI
	}

	var conflict *ConflictReport
	switch len(prop.Datatypes) {
	case 0:
		// tag, ref, or unknown type: no datatype to constrain.
	case 1:
		con.Datatype = prop.Datatypes[0]
	default:
		con.Datatype = ""
		winning, others := splitConflict(prop.Datatypes, datatypes[pred.Type])
		conflict = &ConflictReport{
			PredicateID: pred.ID,
			ClassIRI:    shape.TargetClass,
			PropertyIRI: prop.IRI,
			Winning:     winning,
			Others:      others,
		}
	}
	return conflict
}

// splitConflict separates this predicate's own datatype from the rest
// of the accumulated set. An empty own type falls back to the
// first-seen datatype.
func splitConflict(set []string, own string) (string, []string) {
	if own == "" {
		own = set[0]
	}
	others := make([]string, 0, len(set)-1)
	for _, dt := range set {
		if dt != own {
			others = append(others, dt)
		}
	}
	return own, others
}

// Canonicalize builds the full canonical graph from the filtered
// predicate list. It runs in two passes: the first registers every
// class and property so datatype sets are complete, the second derives
// ranges, domains, and shape constraints, since conflict detection
// needs the full first-pass picture. A predicate whose name lacks the
// "collection/property" form is a fatal error.
func (r *Registry) Canonicalize(preds []types.Predicate) error {
	type parsed struct {
		pred     types.Predicate
		rawClass string
		rawProp  string
	}
	items := make([]parsed, 0, len(preds))

	for _, pred := range preds {
		rawClass, rawProp, err := splitPredicateName(pred)
		if err != nil {
			return err
		}
		r.Class(rawClass)
		r.Property(rawProp, pred.Type)
		items = append(items, parsed{pred: pred, rawClass: rawClass, rawProp: rawProp})
	}

	for _, it := range items {
		cls := r.Class(it.rawClass)
		prop := r.Property(it.rawProp, it.pred.Type)
		shape := r.Shape(it.rawClass, r.closedShapes)

		if !contains(cls.Range, prop.IRI) {
			cls.Range = append(cls.Range, prop.IRI)
		}
		if !contains(prop.Domain, cls.IRI) {
			prop.Domain = append(prop.Domain, cls.IRI)
		}

		if conflict := r.SetProperty(shape, prop, it.pred); conflict != nil {
			r.recordConflict(*conflict)
		}
	}
	return nil
}

// recordConflict keeps at most one report per (class, property) pair.
func (r *Registry) recordConflict(c ConflictReport) {
	for _, existing := range r.conflicts {
		if existing.ClassIRI == c.ClassIRI && existing.PropertyIRI == c.PropertyIRI {
			return
		}
	}
	r.conflicts = append(r.conflicts, c)
}

// splitPredicateName splits "collection/property" and validates the
// predicate carries both an id and a well-formed name.
func splitPredicateName(pred types.Predicate) (string, string, error) {
	if pred.Name == "" {
		return "", "", fmt.Errorf("predicate %d has no name", pred.ID)
	}
	rawClass, rawProp, ok := strings.Cut(pred.Name, "/")
	if !ok || rawClass == "" || rawProp == "" {
		return "", "", fmt.Errorf("predicate %q does not follow the collection/property naming convention", pred.Name)
	}
	return rawClass, rawProp, nil
}

// LookupClass returns the canonical class for a raw collection name,
// or nil when the name was never canonicalized.
func (r *Registry) LookupClass(raw string) *Class {
	return r.classes[raw]
}

// LookupProperty returns the canonical property for a raw property
// name, or nil.
func (r *Registry) LookupProperty(raw string) *Property {
	return r.properties[raw]
}

// LookupConstraint returns the shape constraint a class places on a
// raw property name, or nil.
func (r *Registry) LookupConstraint(rawClass, rawProp string) *Constraint {
	shape, ok := r.shapes[rawClass]
	if !ok {
		return nil
	}
	return shape.byProperty[rawProp]
}

// RawClassNames returns the raw collection names in first-seen order.
// These are the names data extraction queries by.
func (r *Registry) RawClassNames() []string {
	out := make([]string, len(r.classOrder))
	copy(out, r.classOrder)
	return out
}

// Conflicts returns the datatype conflict reports collected during
// canonicalization.
func (r *Registry) Conflicts() []ConflictReport {
	return r.conflicts
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
