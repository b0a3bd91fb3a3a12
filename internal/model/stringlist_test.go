package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringList(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want StringList
	}{
		{"array", `["Deed","COC"]`, StringList{"Deed", "COC"}},
		{"encoded array", `"[\"Deed\",\"COC\"]"`, StringList{"Deed", "COC"}},
		{"bare text", `Swimming Pool`, StringList{"Swimming Pool"}},
		{"quoted text", `"Swimming Pool"`, StringList{"Swimming Pool"}},
		{"null", `null`, StringList{}},
		{"empty", ``, StringList{}},
		{"blank items dropped", `["a"," ",""]`, StringList{"a"}},
		{"text starting with a bracket", `[draft] pool`, StringList{"[draft] pool"}},
		{"truncated array", `["a",`, StringList{`["a",`}},
		{"text starting with a quote", `"Best" view`, StringList{`"Best" view`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseStringList([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseStringListRejectsNonStringArray(t *testing.T) {
	_, err := ParseStringList([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestStringListMarshalNeverNull(t *testing.T) {
	var l StringList
	b, err := json.Marshal(l)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))

	v, err := l.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestStringListScan(t *testing.T) {
	var l StringList
	require.NoError(t, l.Scan([]byte(`["x","y"]`)))
	assert.Equal(t, StringList{"x", "y"}, l)

	require.NoError(t, l.Scan(nil))
	assert.Equal(t, StringList{}, l)

	require.NoError(t, l.Scan(`"[\"z\"]"`))
	assert.Equal(t, StringList{"z"}, l)

	require.NoError(t, l.Scan([]byte("[draft] pool")))
	assert.Equal(t, StringList{"[draft] pool"}, l)

	assert.Error(t, l.Scan(42))
}

func TestStringListFirstAndClone(t *testing.T) {
	assert.Equal(t, "fallback", StringList(nil).First("fallback"))
	assert.Equal(t, "a", StringList{"a", "b"}.First("fallback"))

	orig := StringList{"a"}
	c := orig.Clone()
	c[0] = "b"
	assert.Equal(t, "a", orig[0])
	assert.NotNil(t, StringList(nil).Clone())
}

func TestPublicStripsPrivateFields(t *testing.T) {
	owner, floor := "Nimal Perera", "7th floor of 12"
	l := Listing{ID: "x", PropertyTitle: "Sea view", OwnerName: &owner, ActualFloor: &floor}

	p := l.Public("/placeholder.webp")
	assert.Equal(t, "/placeholder.webp", p.CoverImage)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "owner_name")
	assert.NotContains(t, string(b), "Nimal")
	assert.NotContains(t, string(b), "actual_floor")
	assert.NotContains(t, string(b), "7th floor")

	l.ImageURLs = StringList{"https://cdn/a.jpg"}
	assert.Equal(t, "https://cdn/a.jpg", l.Public("/placeholder.webp").CoverImage)
}

func TestContains(t *testing.T) {
	assert.True(t, Contains(Cities, "Dehiwela"))
	assert.False(t, Contains(Cities, "Kandy"))
}
