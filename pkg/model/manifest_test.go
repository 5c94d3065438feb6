package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/require"
)

func validManifest() *Manifest {
	return &Manifest{
		Name:      "weatherapi",
		Version:   "1.2.0",
		ProtoRoot: "proto",
		Dependencies: []Dependency{
			{
				Package:       "commonschema",
				AcceptedRange: ">=0.3.0, <0.4.0",
				Definitions:   []string{"Location", "PaginationParams"},
			},
		},
	}
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.manifest.json")
	content := `{
  "name": "weatherapi",
  "version": "1.2.0",
  "proto_root": "proto",
  "dependencies": [
    {
      "package": "commonschema",
      "accepted_range": ">=0.3.0, <0.4.0",
      "definitions": ["Location", "PaginationParams"]
    }
  ]
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.Equal(t, "weatherapi", m.Name)
	require.Len(t, m.Dependencies, 1)
	require.Equal(t, []string{"Location", "PaginationParams"}, m.Dependencies[0].Definitions)

	c, err := m.Dependencies[0].Constraint()
	require.NoError(t, err)
	require.False(t, c.Check(semver.MustParse("0.5.0")))
	require.True(t, c.Check(semver.MustParse("0.3.5")))
}

func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Manifest)
	}{
		{"empty name", func(m *Manifest) { m.Name = "" }},
		{"bad version", func(m *Manifest) { m.Version = "one.two" }},
		{"missing proto root", func(m *Manifest) { m.ProtoRoot = "" }},
		{"empty dependency package", func(m *Manifest) { m.Dependencies[0].Package = "" }},
		{"no definitions", func(m *Manifest) { m.Dependencies[0].Definitions = nil }},
		{"bad range", func(m *Manifest) { m.Dependencies[0].AcceptedRange = "not-a-range" }},
		{"duplicate dependency", func(m *Manifest) {
			m.Dependencies = append(m.Dependencies, m.Dependencies[0])
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := validManifest()
			tc.mutate(m)
			require.Error(t, m.Validate())
		})
	}

	require.NoError(t, validManifest().Validate())
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
