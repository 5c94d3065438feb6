package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/require"
)

const paginationV030 = `syntax = "proto3";
package commonschema.v1;
message Pagination {
  uint32 page = 1;
  uint32 per_page = 2;
}
`

const paginationV050 = `syntax = "proto3";
package commonschema.v1;
message Pagination {
  uint32 page = 1;
  uint32 per_page = 2;
}
message PaginationParams {
  uint32 page_size = 1;
  string page_token = 2;
}
`

const locationV050 = `syntax = "proto3";
package commonschema.v1;
message Location {
  double latitude = 1;
  double longitude = 2;
  string country_code = 3;
}
`

func writeRegistry(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"commonschema/0.3.0/pagination.proto": paginationV030,
		"commonschema/0.5.0/pagination.proto": paginationV050,
		"commonschema/0.5.0/location.proto":   locationV050,
		"commonschema/0.5.1/pagination.proto": paginationV050,
		"commonschema/0.5.1/location.proto":   locationV050,
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	return root
}

func TestVersionsSortedAscending(t *testing.T) {
	reg := NewFS(writeRegistry(t))

	versions, err := reg.Versions("commonschema")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	require.Equal(t, "0.3.0", versions[0].String())
	require.Equal(t, "0.5.0", versions[1].String())
	require.Equal(t, "0.5.1", versions[2].String())
}

func TestVersionsUnknownPackage(t *testing.T) {
	reg := NewFS(writeRegistry(t))

	_, err := reg.Versions("no-such-package")
	require.Error(t, err)
}

func TestVersionsSkipsNonSemverDirectories(t *testing.T) {
	root := writeRegistry(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "commonschema", "latest"), 0o755))

	reg := NewFS(root)
	versions, err := reg.Versions("commonschema")
	require.NoError(t, err)
	require.Len(t, versions, 3)
}

func TestDefinitionsAtVersion(t *testing.T) {
	reg := NewFS(writeRegistry(t))

	v030 := semver.MustParse("0.3.0")
	defs, err := reg.Definitions("commonschema", v030)
	require.NoError(t, err)
	require.Contains(t, defs, "Pagination")
	require.NotContains(t, defs, "Location")
	require.Equal(t, "pagination.proto", defs["Pagination"].File)

	v050 := semver.MustParse("0.5.0")
	defs, err = reg.Definitions("commonschema", v050)
	require.NoError(t, err)
	require.Contains(t, defs, "Pagination")
	require.Contains(t, defs, "PaginationParams")
	require.Contains(t, defs, "Location")
	require.Len(t, defs["Location"].Definition.Fields, 3)
}

func TestIntroductionVersion(t *testing.T) {
	reg := NewFS(writeRegistry(t))

	v, ok, err := IntroductionVersion(reg, "commonschema", "Pagination")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "0.3.0", v.String())

	v, ok, err = IntroductionVersion(reg, "commonschema", "Location")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "0.5.0", v.String())

	_, ok, err = IntroductionVersion(reg, "commonschema", "Nonexistent")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewestProviding(t *testing.T) {
	reg := NewFS(writeRegistry(t))

	v, entry, ok, err := NewestProviding(reg, "commonschema", "Location")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "0.5.1", v.String())
	require.Equal(t, "Location", entry.Definition.Name)

	_, _, ok, err = NewestProviding(reg, "commonschema", "Nonexistent")
	require.NoError(t, err)
	require.False(t, ok)
}
