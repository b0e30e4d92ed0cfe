package endpoint

import (
	"fmt"
	"os"

	"github.com/c360studio/semknow/rdf"
	"gopkg.in/yaml.v3"
)

// overridesFile is the YAML shape of the user overrides file.
type overridesFile struct {
	Endpoints []overrideEntry `yaml:"endpoints"`
}

type overrideEntry struct {
	Name     string            `yaml:"name"`
	BaseURL  string            `yaml:"base_url"`
	Prefixes map[string]string `yaml:"prefixes"`
	Hints    []string          `yaml:"hints"`
	Mapping  map[string]string `yaml:"mapping"`
}

// LoadOverrides reads user-defined endpoint descriptors from a YAML file.
// Overrides behave like pre-supplied discovered entries: they sit below the
// builtin table in resolution precedence.
func LoadOverrides(path string) (map[string]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides file: %w", err)
	}

	var file overridesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse overrides file: %w", err)
	}

	out := make(map[string]Descriptor, len(file.Endpoints))
	for _, e := range file.Endpoints {
		if e.Name == "" || e.BaseURL == "" {
			return nil, fmt.Errorf("overrides entry missing name or base_url")
		}
		d := Descriptor{
			Name:     e.Name,
			BaseURL:  e.BaseURL,
			Prefixes: rdf.PrefixMap(e.Prefixes),
			Hints:    e.Hints,
			Source:   SourceOverride,
		}
		if len(e.Mapping) > 0 {
			d.Mapping = make(Mapping, len(e.Mapping))
			for role, predicate := range e.Mapping {
				d.Mapping[Role(role)] = predicate
			}
		} else {
			d.Mapping = RDFSMapping()
		}
		out[e.Name] = d
	}
	return out, nil
}
