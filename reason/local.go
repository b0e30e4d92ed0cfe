package reason

import (
	"sort"

	"github.com/c360studio/semknow/endpoint"
	"github.com/c360studio/semknow/normalize"
	"github.com/c360studio/semknow/rdf"
)

// evalLocal runs a template against a cached document instead of a live
// endpoint. Roles were validated during translation, so predicate lookups
// cannot miss here.
func evalLocal(doc *normalize.Document, t Template, m endpoint.Mapping, focus string, limit int) []rdf.Triple {
	var derived []rdf.Triple

	switch t.Eval {
	case EvalClosure:
		rel, _ := m.Predicate(t.Roles[0])
		derived = closure(doc.Expanded, rel)
	case EvalDomainType:
		decl, _ := m.Predicate(t.Roles[0])
		typ, _ := m.Predicate(t.Roles[1])
		derived = typeFromDeclaration(doc.Expanded, decl, typ, subjectSide)
	case EvalRangeType:
		decl, _ := m.Predicate(t.Roles[0])
		typ, _ := m.Predicate(t.Roles[1])
		derived = typeFromDeclaration(doc.Expanded, decl, typ, objectSide)
	case EvalInverse:
		inv, _ := m.Predicate(t.Roles[0])
		derived = inverseStatements(doc.Expanded, inv)
	}

	if focus != "" {
		derived = filterBySubject(derived, focus)
	}
	derived = dedupeSort(derived)
	if limit > 0 && len(derived) > limit {
		derived = derived[:limit]
	}
	return derived
}

// closure derives the pairs connected by a relation path of length two or
// more: asserted edges are never re-derived.
func closure(triples []rdf.Triple, rel string) []rdf.Triple {
	parents := make(map[string][]string)
	for _, t := range triples {
		if t.Predicate == rel && !t.IsLiteral {
			parents[t.Subject] = append(parents[t.Subject], t.Object)
		}
	}

	var derived []rdf.Triple
	for node := range parents {
		seen := map[string]bool{node: true}
		// Direct parents are depth 1; everything reachable beyond them is
		// derived.
		frontier := parents[node]
		for _, p := range frontier {
			seen[p] = true
		}
		for len(frontier) > 0 {
			var next []string
			for _, p := range frontier {
				for _, gp := range parents[p] {
					if seen[gp] {
						continue
					}
					seen[gp] = true
					next = append(next, gp)
					derived = append(derived, rdf.Triple{Subject: node, Predicate: rel, Object: gp})
				}
			}
			frontier = next
		}
	}
	return derived
}

type instanceSide int

const (
	subjectSide instanceSide = iota
	objectSide
)

// typeFromDeclaration derives type statements from per-property domain or
// range declarations: every use of a declared property types the instance
// on the given side.
func typeFromDeclaration(triples []rdf.Triple, declPred, typePred string, side instanceSide) []rdf.Triple {
	declared := make(map[string][]string)
	for _, t := range triples {
		if t.Predicate == declPred && !t.IsLiteral {
			declared[t.Subject] = append(declared[t.Subject], t.Object)
		}
	}

	var derived []rdf.Triple
	for _, t := range triples {
		classes, ok := declared[t.Predicate]
		if !ok {
			continue
		}
		instance := t.Subject
		if side == objectSide {
			if t.IsLiteral {
				continue
			}
			instance = t.Object
		}
		for _, class := range classes {
			derived = append(derived, rdf.Triple{Subject: instance, Predicate: typePred, Object: class})
		}
	}
	return derived
}

// inverseStatements reverses every statement whose predicate has a declared
// inverse.
func inverseStatements(triples []rdf.Triple, invPred string) []rdf.Triple {
	inverse := make(map[string]string)
	for _, t := range triples {
		if t.Predicate == invPred && !t.IsLiteral {
			inverse[t.Subject] = t.Object
			inverse[t.Object] = t.Subject
		}
	}

	var derived []rdf.Triple
	for _, t := range triples {
		q, ok := inverse[t.Predicate]
		if !ok || t.IsLiteral || t.Predicate == invPred {
			continue
		}
		derived = append(derived, rdf.Triple{Subject: t.Object, Predicate: q, Object: t.Subject})
	}
	return derived
}

func filterBySubject(triples []rdf.Triple, subject string) []rdf.Triple {
	var out []rdf.Triple
	for _, t := range triples {
		if t.Subject == subject {
			out = append(out, t)
		}
	}
	return out
}

// dedupeSort orders triples by subject, predicate, object and removes
// duplicates, making derivations deterministic.
func dedupeSort(triples []rdf.Triple) []rdf.Triple {
	sort.Slice(triples, func(i, j int) bool {
		if triples[i].Subject != triples[j].Subject {
			return triples[i].Subject < triples[j].Subject
		}
		if triples[i].Predicate != triples[j].Predicate {
			return triples[i].Predicate < triples[j].Predicate
		}
		return triples[i].Object < triples[j].Object
	})

	out := triples[:0]
	for _, t := range triples {
		if len(out) > 0 && t == out[len(out)-1] {
			continue
		}
		out = append(out, t)
	}
	return out
}
