package endpoint

import (
	"context"
	"fmt"
	"strings"

	"github.com/c360studio/semknow/rdf"
	"github.com/c360studio/semknow/sparql"
)

// DefaultDiscoveryURL is the general-purpose knowledge endpoint queried
// during live discovery. Wikidata catalogs SPARQL endpoints of other
// knowledge bases under wdt:P5305.
const DefaultDiscoveryURL = "https://query.wikidata.org/sparql"

// SPARQLDiscoverer finds endpoints by querying a catalog endpoint for items
// labeled with the requested name that declare a SPARQL endpoint URL.
type SPARQLDiscoverer struct {
	executor     sparql.Executor
	discoveryURL string
}

// NewSPARQLDiscoverer creates a discoverer. An empty discoveryURL uses the
// default catalog.
func NewSPARQLDiscoverer(executor sparql.Executor, discoveryURL string) *SPARQLDiscoverer {
	if discoveryURL == "" {
		discoveryURL = DefaultDiscoveryURL
	}
	return &SPARQLDiscoverer{executor: executor, discoveryURL: discoveryURL}
}

// Discover looks the name up in the catalog. A miss returns ErrNotFound;
// transport failures propagate unchanged so callers can distinguish
// "unknown" from "catalog unreachable".
func (d *SPARQLDiscoverer) Discover(ctx context.Context, name string) (*Descriptor, error) {
	query := fmt.Sprintf(`SELECT ?endpoint WHERE {
  ?item <http://www.w3.org/2000/01/rdf-schema#label> %q@en ;
        <http://www.wikidata.org/prop/direct/P5305> ?endpoint .
} LIMIT 1`, sanitizeLabel(name))

	bindings, err := d.executor.Select(ctx, d.discoveryURL, query)
	if err != nil {
		return nil, fmt.Errorf("discovery query for %q: %w", name, err)
	}
	if len(bindings) == 0 {
		return nil, fmt.Errorf("%w: %s (no catalog entry)", ErrNotFound, name)
	}

	endpointURL := bindings[0]["endpoint"].Value
	if endpointURL == "" {
		return nil, fmt.Errorf("%w: %s (catalog entry has no endpoint URL)", ErrNotFound, name)
	}

	return &Descriptor{
		Name:     name,
		BaseURL:  endpointURL,
		Prefixes: rdf.WellKnownPrefixes(),
		Hints: []string{
			"discovered endpoint: vocabulary conventions unverified, ingest before reasoning",
		},
		// Discovered endpoints are assumed to speak RDFS until their
		// vocabulary says otherwise.
		Mapping: RDFSMapping(),
	}, nil
}

// sanitizeLabel strips characters that would escape the query literal.
func sanitizeLabel(name string) string {
	name = strings.ReplaceAll(name, `"`, "")
	name = strings.ReplaceAll(name, "\\", "")
	name = strings.ReplaceAll(name, "\n", " ")
	return name
}
