package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFileLoader_Valid(t *testing.T) {
	path := writeTempFile(t, "domain.yaml", `name: MovieDomain
slot_names:
  title: ["no_elicitation"]
  genre:
inquire_slots:
  - plot
  - year
`)

	doc, err := NewFileLoader().Load(path)
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, path, doc.Path)
	assert.NotEmpty(t, doc.Raw)
	assert.Equal(t, "MovieDomain", doc.String("name"))
	assert.Equal(t, []string{"inquire_slots", "name", "slot_names"}, doc.Keys())
	assert.True(t, doc.Exists("slot_names"))
	assert.True(t, doc.Exists("inquire_slots"))
	assert.False(t, doc.Exists("missing"))
}

func TestFileLoader_FileNotFound(t *testing.T) {
	doc, err := NewFileLoader().Load("/nonexistent/path/to/domain.yaml")
	assert.Error(t, err)
	assert.Nil(t, doc)
	assert.Contains(t, err.Error(), "failed to load")
}

func TestFileLoader_InvalidYAML(t *testing.T) {
	path := writeTempFile(t, "invalid.yaml", `slot_names:
  title: "unterminated
`)

	doc, err := NewFileLoader().Load(path)
	assert.Error(t, err)
	assert.Nil(t, doc)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestParse_TopLevelMustBeMapping(t *testing.T) {
	_, err := Parse("list.yaml", []byte("- a\n- b\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestParse_EmptyDocument(t *testing.T) {
	doc, err := Parse("empty.yaml", nil)
	require.NoError(t, err)

	assert.Empty(t, doc.Keys())
	assert.False(t, doc.Exists("slot_names"))

	_, ok, err := doc.Mapping("slot_names")
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestDocument_NullValueExists(t *testing.T) {
	doc, err := Parse("null.yaml", []byte("inquire_slots:\nslot_names: ~\n"))
	require.NoError(t, err)

	assert.True(t, doc.Exists("inquire_slots"))
	assert.True(t, doc.IsNull("inquire_slots"))
	assert.True(t, doc.IsNull("slot_names"))
	assert.False(t, doc.IsNull("other"))

	list, ok, err := doc.Strings("inquire_slots")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestDocument_MappingKeepsOrder(t *testing.T) {
	doc, err := Parse("order.yaml", []byte(`slot_names:
  zeta: [x]
  alpha:
  mid: [y, z]
`))
	require.NoError(t, err)

	entries, ok, err := doc.Mapping("slot_names")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, entries, 3)

	assert.Equal(t, "zeta", entries[0].Key)
	assert.Equal(t, "alpha", entries[1].Key)
	assert.Equal(t, "mid", entries[2].Key)

	assert.False(t, entries[0].IsNull())
	assert.True(t, entries[1].IsNull())

	mods, err := entries[2].Strings()
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "z"}, mods)
}

func TestDocument_ScalarsDecodeAsStrings(t *testing.T) {
	doc, err := Parse("scalars.yaml", []byte("inquire_slots: [year, 1999, true]\n"))
	require.NoError(t, err)

	list, _, err := doc.Strings("inquire_slots")
	require.NoError(t, err)
	assert.Equal(t, []string{"year", "1999", "true"}, list)
}

func TestDocument_ResolvesAliases(t *testing.T) {
	doc, err := Parse("alias.yaml", []byte(`common: &common [no_elicitation]
slot_names:
  title: *common
inquire_slots: []
`))
	require.NoError(t, err)

	entries, _, err := doc.Mapping("slot_names")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	mods, err := entries[0].Strings()
	require.NoError(t, err)
	assert.Equal(t, []string{"no_elicitation"}, mods)
}

func TestDocument_TypeErrors(t *testing.T) {
	doc, err := Parse("types.yaml", []byte(`slot_names: [a, b]
inquire_slots: plot
nested:
  - [a]
  - ~
`))
	require.NoError(t, err)

	_, ok, err := doc.Mapping("slot_names")
	assert.True(t, ok)
	assert.EqualError(t, err, "must be a mapping, got list")

	_, ok, err = doc.Strings("inquire_slots")
	assert.True(t, ok)
	assert.EqualError(t, err, "must be a list, got !!str")

	_, _, err = doc.Strings("nested")
	assert.EqualError(t, err, "item[0] must be a string, got list")
}

func TestDocument_MergeKeys(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want []string
	}{
		{
			name: "single alias",
			yaml: "base: &b\n  x: []\nslot_names:\n  <<: *b\n  y:\n",
			want: []string{"x", "y"},
		},
		{
			name: "inline mapping",
			yaml: "slot_names:\n  <<: {x: [], z: []}\n  y:\n",
			want: []string{"x", "z", "y"},
		},
		{
			name: "list of aliases, earlier wins",
			yaml: "a: &a\n  x: [from_a]\nb: &b\n  x: [from_b]\n  w: []\nslot_names:\n  <<: [*a, *b]\n",
			want: []string{"x", "w"},
		},
		{
			name: "explicit key overrides merged key",
			yaml: "base: &b\n  x: [merged]\n  z: []\nslot_names:\n  <<: *b\n  y:\n  x: [explicit]\n",
			want: []string{"z", "y", "x"},
		},
		{
			name: "nested merge",
			yaml: "inner: &i\n  v: []\nouter: &o\n  <<: *i\n  u: []\nslot_names:\n  <<: *o\n",
			want: []string{"v", "u"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse("merge.yaml", []byte(tt.yaml))
			require.NoError(t, err)

			entries, ok, err := doc.Mapping("slot_names")
			require.NoError(t, err)
			require.True(t, ok)

			var keys []string
			for _, e := range entries {
				keys = append(keys, e.Key)
			}
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestDocument_MergeKeyValuesWin(t *testing.T) {
	doc, err := Parse("merge.yaml", []byte(`a: &a
  x: [from_a]
b: &b
  x: [from_b]
base: &base
  y: [merged]
slot_names:
  <<: [*a, *b, *base]
  y: [explicit]
`))
	require.NoError(t, err)

	entries, _, err := doc.Mapping("slot_names")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	got := map[string][]string{}
	for _, e := range entries {
		mods, err := e.Strings()
		require.NoError(t, err)
		got[e.Key] = mods
	}
	assert.Equal(t, map[string][]string{"x": {"from_a"}, "y": {"explicit"}}, got)
}

func TestDocument_TopLevelMergeKey(t *testing.T) {
	doc, err := Parse("merge.yaml", []byte(`defaults: &d
  inquire_slots: [plot]
<<: *d
slot_names: {}
`))
	require.NoError(t, err)

	list, ok, err := doc.Strings("inquire_slots")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"plot"}, list)
	assert.True(t, doc.Exists("inquire_slots"))
}

func TestDocument_QuotedMergeKeyIsPlainKey(t *testing.T) {
	doc, err := Parse("merge.yaml", []byte("slot_names:\n  \"<<\": []\n"))
	require.NoError(t, err)

	entries, _, err := doc.Mapping("slot_names")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "<<", entries[0].Key)
}

func TestDocument_Scalar(t *testing.T) {
	doc, err := Parse("scalar.yaml", []byte("name: MovieDomain\nempty:\nnested: {x: 1}\nnumber: 42\n"))
	require.NoError(t, err)

	v, ok, err := doc.Scalar("name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "MovieDomain", v)

	v, ok, err = doc.Scalar("empty")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", v)

	v, _, err = doc.Scalar("number")
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	_, ok, err = doc.Scalar("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = doc.Scalar("nested")
	assert.True(t, ok)
	assert.EqualError(t, err, "must be a scalar, got mapping")
}
