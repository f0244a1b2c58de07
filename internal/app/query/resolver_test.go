package query

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestResolveShapes(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		shape  Shape
		where  string
		args   []interface{}
	}{
		{
			name:   "no parameters",
			filter: Filter{},
			shape:  ShapeDomain,
			where:  "WHERE domain = ? ORDER BY name",
			args:   []interface{}{"neo"},
		},
		{
			name:   "name only",
			filter: Filter{Name: ptr("GAS")},
			shape:  ShapeName,
			where:  "WHERE domain = ? AND name = ? ORDER BY name",
			args:   []interface{}{"neo", "GAS"},
		},
		{
			name:   "name wins over value and tags",
			filter: Filter{Name: ptr("GAS"), Value: ptr("1"), Tags: []string{"a"}, Hex: true},
			shape:  ShapeName,
			where:  "WHERE domain = ? AND name = ? ORDER BY name",
			args:   []interface{}{"neo", "GAS"},
		},
		{
			name:   "value and tags",
			filter: Filter{Value: ptr("0x"), Tags: []string{"a", "b"}},
			shape:  ShapeValueTags,
			where:  `WHERE domain = ? AND value LIKE ? ESCAPE '\' AND tags IN (?) ORDER BY name`,
			args:   []interface{}{"neo", "0x%", []string{"a", "b"}},
		},
		{
			name:   "value only",
			filter: Filter{Value: ptr("12")},
			shape:  ShapeValue,
			where:  `WHERE domain = ? AND value LIKE ? ESCAPE '\' ORDER BY name`,
			args:   []interface{}{"neo", "12%"},
		},
		{
			name:   "hex value",
			filter: Filter{Value: ptr("ff"), Hex: true},
			shape:  ShapeValue,
			where:  `WHERE domain = ? AND hex_value LIKE ? ESCAPE '\' ORDER BY name`,
			args:   []interface{}{"neo", "ff%"},
		},
		{
			name:   "tags only",
			filter: Filter{Tags: []string{"a"}},
			shape:  ShapeTags,
			where:  "WHERE domain = ? AND tags IN (?) ORDER BY name",
			args:   []interface{}{"neo", []string{"a"}},
		},
		{
			name:   "hex alone does not filter",
			filter: Filter{Hex: true},
			shape:  ShapeDomain,
			where:  "WHERE domain = ? ORDER BY name",
			args:   []interface{}{"neo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := Resolve("neo", tt.filter)
			assert.Equal(t, tt.shape, stmt.Shape)
			assert.True(t, strings.HasPrefix(stmt.SQL, selectConstants), stmt.SQL)
			assert.True(t, strings.HasSuffix(stmt.SQL, tt.where), stmt.SQL)
			assert.Equal(t, tt.args, stmt.Args)
		})
	}
}

func TestResolveNeverUsesLeadingWildcard(t *testing.T) {
	stmt := Resolve("neo", Filter{Value: ptr("")})
	require.Equal(t, ShapeValue, stmt.Shape)
	assert.Equal(t, "%", stmt.Args[1], "empty value is present and matches everything by prefix")

	tests := map[string]string{
		"%BC":  `\%BC%`,
		"_BC":  `\_BC%`,
		"a%b_": `a\%b\_%`,
		`a\b`:  `a\\b%`,
		"ABC":  "ABC%",
	}
	for value, want := range tests {
		stmt := Resolve("neo", Filter{Value: ptr(value)})
		assert.Equal(t, want, stmt.Args[1], value)
	}
}

func TestResolveColumnAndSet(t *testing.T) {
	stmt := Resolve("neo", Filter{Value: ptr("f"), Tags: []string{"x"}, Hex: true})
	assert.Equal(t, "hex_value", stmt.Column)
	assert.True(t, stmt.HasSet())

	stmt = Resolve("neo", Filter{Name: ptr("x")})
	assert.Empty(t, stmt.Column)
	assert.False(t, stmt.HasSet())
}

func TestResolveCopiesTags(t *testing.T) {
	tags := []string{"a"}
	stmt := Resolve("neo", Filter{Tags: tags})
	tags[0] = "changed"
	assert.Equal(t, []string{"a"}, stmt.Args[1])
}

func TestFilterFromValuesPresence(t *testing.T) {
	values, err := url.ParseQuery("name=&value=&hex")
	require.NoError(t, err)

	f := FilterFromValues(values)
	require.NotNil(t, f.Name)
	assert.Equal(t, "", *f.Name)
	require.NotNil(t, f.Value)
	assert.True(t, f.Hex)
	assert.False(t, f.HasTags())
	assert.Equal(t, ShapeName, Resolve("neo", f).Shape)
}

func TestFilterFromValuesRepeatedTags(t *testing.T) {
	values, err := url.ParseQuery("tags=a&tags=b&value=1")
	require.NoError(t, err)

	f := FilterFromValues(values)
	assert.Equal(t, []string{"a", "b"}, f.Tags)
	assert.Nil(t, f.Name)
	assert.False(t, f.Hex)
	assert.Equal(t, ShapeValueTags, Resolve("neo", f).Shape)
}

func TestFilterFromValuesEmpty(t *testing.T) {
	f := FilterFromValues(url.Values{})
	assert.Equal(t, ShapeDomain, Resolve("neo", f).Shape)
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "value+tags", ShapeValueTags.String())
	assert.Equal(t, "unknown", Shape(99).String())
}
