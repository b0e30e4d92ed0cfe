package normalize

import (
	"sort"
	"strings"

	"github.com/c360studio/semknow/rdf"
)

// domainRule maps a namespace or local-name fragment to a knowledge domain
// with a confidence score. Classification is best-effort and informational
// only; nothing downstream gates on it.
type domainRule struct {
	fragment   string
	domain     string
	confidence float64
}

// domainRules is checked in order; later matches never lower an earlier
// confidence for the same domain.
var domainRules = []domainRule{
	{"wikidata.org", "general-knowledge", 0.9},
	{"dbpedia.org", "general-knowledge", 0.9},
	{"schema.org", "web-markup", 0.9},
	{"xmlns.com/foaf", "social", 0.9},
	{"purl.org/dc/", "metadata", 0.9},
	{"w3.org/ns/prov", "provenance", 0.9},
	{"w3.org/2004/02/skos", "taxonomy", 0.8},
	{"purl.obolibrary.org", "life-science", 0.8},
	{"purl.uniprot.org", "life-science", 0.9},
	{"geonames.org", "geography", 0.9},
	{"gene", "life-science", 0.4},
	{"protein", "life-science", 0.4},
	{"person", "social", 0.3},
	{"organization", "social", 0.3},
	{"place", "geography", 0.3},
	{"event", "events", 0.3},
}

// classifyDomains scans namespaces and indexed local names against the rule
// table and returns domain -> confidence.
func classifyDomains(doc *Document) map[string]float64 {
	scores := make(map[string]float64)

	consider := func(s string, weight float64) {
		s = strings.ToLower(s)
		for _, rule := range domainRules {
			if strings.Contains(s, rule.fragment) {
				c := rule.confidence * weight
				if c > scores[rule.domain] {
					scores[rule.domain] = c
				}
			}
		}
	}

	for _, ns := range doc.Namespaces {
		consider(ns, 1.0)
	}
	for _, info := range doc.Classes {
		consider(rdf.NamespaceOf(info.IRI), 1.0)
		consider(rdf.LocalName(info.IRI), 0.8)
	}
	for _, info := range doc.Properties {
		consider(rdf.NamespaceOf(info.IRI), 1.0)
	}

	if len(scores) == 0 {
		return nil
	}
	return scores
}

// applyDomainHints sets each indexed term's DomainHint to the highest-scored
// domain matching its namespace.
func applyDomainHints(doc *Document) {
	hint := func(iri string) string {
		ns := strings.ToLower(rdf.NamespaceOf(iri))
		best := ""
		bestScore := 0.0
		for _, rule := range domainRules {
			if strings.Contains(ns, rule.fragment) && rule.confidence > bestScore {
				best = rule.domain
				bestScore = rule.confidence
			}
		}
		return best
	}

	for local, info := range doc.Classes {
		info.DomainHint = hint(info.IRI)
		doc.Classes[local] = info
	}
	for local, info := range doc.Properties {
		info.DomainHint = hint(info.IRI)
		doc.Properties[local] = info
	}
}

// TopDomains returns the classified domains ordered by descending
// confidence, for display.
func TopDomains(doc *Document) []string {
	type scored struct {
		domain string
		score  float64
	}
	var all []scored
	for d, s := range doc.Domains {
		all = append(all, scored{d, s})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].domain < all[j].domain
	})
	out := make([]string, len(all))
	for i, s := range all {
		out[i] = s.domain
	}
	return out
}
