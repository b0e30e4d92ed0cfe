// Package reason applies inference templates to cached vocabularies. A
// template is an abstract query pattern over vocabulary roles; applying one
// translates the roles into an endpoint's concrete predicates, executes the
// query, and materializes the derived triples. Templates never run against
// an endpoint whose vocabulary has not been cached first.
package reason

import (
	"github.com/c360studio/semknow/endpoint"
)

// EvalKind selects the local evaluation rule used for endpoints without a
// live query service. The set is closed; templates pick from it rather
// than carrying code.
type EvalKind string

const (
	// EvalClosure derives the transitive closure of a single relation.
	EvalClosure EvalKind = "closure"
	// EvalDomainType derives instance types from property domains.
	EvalDomainType EvalKind = "domain-type"
	// EvalRangeType derives instance types from property ranges.
	EvalRangeType EvalKind = "range-type"
	// EvalInverse derives reversed statements from inverse declarations.
	EvalInverse EvalKind = "inverse"
)

// Template is one entry in the inference library. Everything an application
// needs is declared here; translation and evaluation are generic over the
// table.
type Template struct {
	// ID is the template identifier callers pass to Apply.
	ID string

	// Description is a one-line summary shown in listings.
	Description string

	// Confidence is attached to every triple the template derives.
	Confidence float64

	// Roles lists the vocabulary roles the template substitutes, in the
	// order the evaluation rule consumes them. Every role must be mapped
	// by the target endpoint.
	Roles []endpoint.Role

	// Construct is the query skeleton. {role} placeholders take the
	// endpoint's concrete predicates, {focus} takes the focus filter.
	Construct string

	// FocusVar is the query variable the focus IRI binds; it is always
	// the subject of the derived triples.
	FocusVar string

	// Eval is the local evaluation rule for endpoints with no query
	// service.
	Eval EvalKind
}

// library is the fixed template table.
var library = []Template{
	{
		ID:          "subclass-closure",
		Description: "transitive closure of the subclass hierarchy",
		Confidence:  1.0,
		Roles:       []endpoint.Role{endpoint.RoleSubclass},
		Construct: "CONSTRUCT { ?a {subclassRelation} ?c } WHERE { " +
			"?a {subclassRelation} ?b . ?b {subclassRelation}+ ?c .{focus} }",
		FocusVar: "a",
		Eval:     EvalClosure,
	},
	{
		ID:          "subproperty-closure",
		Description: "transitive closure of the subproperty hierarchy",
		Confidence:  1.0,
		Roles:       []endpoint.Role{endpoint.RoleSubproperty},
		Construct: "CONSTRUCT { ?a {subpropertyRelation} ?c } WHERE { " +
			"?a {subpropertyRelation} ?b . ?b {subpropertyRelation}+ ?c .{focus} }",
		FocusVar: "a",
		Eval:     EvalClosure,
	},
	{
		ID:          "domain-entailment",
		Description: "type instances from declared property domains",
		Confidence:  1.0,
		Roles:       []endpoint.Role{endpoint.RoleDomain, endpoint.RoleType},
		Construct: "CONSTRUCT { ?a {typeRelation} ?c } WHERE { " +
			"?a ?p ?y . ?p {domainRelation} ?c .{focus} }",
		FocusVar: "a",
		Eval:     EvalDomainType,
	},
	{
		ID:          "range-entailment",
		Description: "type instances from declared property ranges",
		Confidence:  1.0,
		Roles:       []endpoint.Role{endpoint.RoleRange, endpoint.RoleType},
		Construct: "CONSTRUCT { ?a {typeRelation} ?c } WHERE { " +
			"?x ?p ?a . ?p {rangeRelation} ?c .{focus} }",
		FocusVar: "a",
		Eval:     EvalRangeType,
	},
	{
		ID:          "inverse-property-entailment",
		Description: "reversed statements from inverse property declarations",
		Confidence:  1.0,
		Roles:       []endpoint.Role{endpoint.RoleInverse},
		Construct: "CONSTRUCT { ?a ?q ?x } WHERE { " +
			"?x ?p ?a . ?p {inverseRelation} ?q .{focus} }",
		FocusVar: "a",
		Eval:     EvalInverse,
	},
	{
		// Soft template: schema-style domain hints are advisory, so the
		// derived types carry reduced confidence.
		ID:          "schema-domain-hint",
		Description: "probable instance types from schema domain hints",
		Confidence:  0.6,
		Roles:       []endpoint.Role{endpoint.RoleSchemaHint, endpoint.RoleType},
		Construct: "CONSTRUCT { ?a {typeRelation} ?c } WHERE { " +
			"?a ?p ?y . ?p {schemaHintRelation} ?c .{focus} }",
		FocusVar: "a",
		Eval:     EvalDomainType,
	},
}

// Lookup returns the template with the given ID.
func Lookup(id string) (Template, bool) {
	for _, t := range library {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Templates returns the full library in declaration order.
func Templates() []Template {
	out := make([]Template, len(library))
	copy(out, library)
	return out
}
