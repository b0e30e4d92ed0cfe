package endpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOverridesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "endpoints.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOverrides(t *testing.T) {
	path := writeOverridesFile(t, `
endpoints:
  - name: corp
    base_url: https://kb.corp.example/sparql
    prefixes:
      corp: https://kb.corp.example/ns#
    hints:
      - internal knowledge base
  - name: mapped
    base_url: https://mapped.example/sparql
    mapping:
      subclassRelation: https://mapped.example/ns#narrower
`)

	overrides, err := LoadOverrides(path)
	require.NoError(t, err)
	require.Len(t, overrides, 2)

	corp := overrides["corp"]
	assert.Equal(t, "https://kb.corp.example/sparql", corp.BaseURL)
	assert.Equal(t, SourceOverride, corp.Source)
	// No mapping given: defaults to RDFS predicates.
	pred, ok := corp.Mapping.Predicate(RoleSubclass)
	assert.True(t, ok)
	assert.Equal(t, "http://www.w3.org/2000/01/rdf-schema#subClassOf", pred)

	mapped := overrides["mapped"]
	pred, ok = mapped.Mapping.Predicate(RoleSubclass)
	assert.True(t, ok)
	assert.Equal(t, "https://mapped.example/ns#narrower", pred)
	// An explicit mapping is taken as-is, unmapped roles stay unmapped.
	_, ok = mapped.Mapping.Predicate(RoleDomain)
	assert.False(t, ok)
}

func TestLoadOverrides_MissingFields(t *testing.T) {
	path := writeOverridesFile(t, `
endpoints:
  - name: nameless
`)
	_, err := LoadOverrides(path)
	assert.Error(t, err)
}

func TestLoadOverrides_MissingFile(t *testing.T) {
	_, err := LoadOverrides(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
