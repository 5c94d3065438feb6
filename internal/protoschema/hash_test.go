package protoschema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, src string) *Definition {
	t.Helper()
	f, err := Parse(strings.NewReader(src), "test.proto")
	require.NoError(t, err)
	require.Len(t, f.Definitions, 1)
	return f.Definitions[0]
}

func TestHashIgnoresFormattingAndComments(t *testing.T) {
	a := parseOne(t, `syntax = "proto3";
package p;
message Location {
  double latitude = 1;
  double longitude = 2;
}
`)
	b := parseOne(t, `syntax = "proto3";
package other.pkg;

// A location on the globe.
message Location {
  // order flipped on purpose
  double longitude = 2;

  double latitude = 1;
}
`)

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(ha, HashPrefix))
	require.Equal(t, ha, hb)
}

func TestHashChangesWithFieldNumber(t *testing.T) {
	a := parseOne(t, `syntax = "proto3";
package p;
message M { string name = 1; }
`)
	b := parseOne(t, `syntax = "proto3";
package p;
message M { string name = 2; }
`)

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	require.NotEqual(t, ha, hb)
}

func TestHashChangesWithFieldType(t *testing.T) {
	a := parseOne(t, `syntax = "proto3";
package p;
message M { int32 value = 1; }
`)
	b := parseOne(t, `syntax = "proto3";
package p;
message M { int64 value = 1; }
`)

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	require.NotEqual(t, ha, hb)
}

func TestHashCoversNestedAndEnums(t *testing.T) {
	a := parseOne(t, `syntax = "proto3";
package p;
message M {
  enum E { E_UNSPECIFIED = 0; }
  E e = 1;
}
`)
	b := parseOne(t, `syntax = "proto3";
package p;
message M {
  enum E { E_UNSPECIFIED = 0; E_ONE = 1; }
  E e = 1;
}
`)

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	require.NotEqual(t, ha, hb)
}

func TestHashEnumDefinition(t *testing.T) {
	def := parseOne(t, `syntax = "proto3";
package p;
enum Feature {
  FEATURE_UNSPECIFIED = 0;
  FEATURE_TEMPERATURE = 1;
}
`)
	h, err := Hash(def)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(h, HashPrefix))
}
