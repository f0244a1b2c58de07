// Package query turns constant lookups into parameterized statements. It does
// no I/O: the storage gateway executes what Resolve returns.
package query

import (
	"net/url"
	"strings"
)

// Shape identifies which of the fixed lookup statements a filter resolved to.
type Shape int

const (
	// ShapeDomain lists every constant of the domain.
	ShapeDomain Shape = iota
	// ShapeName looks a constant up by exact name.
	ShapeName
	// ShapeValueTags matches a value prefix within a tag set.
	ShapeValueTags
	// ShapeValue matches a value prefix.
	ShapeValue
	// ShapeTags matches a tag set.
	ShapeTags
)

func (s Shape) String() string {
	switch s {
	case ShapeDomain:
		return "domain"
	case ShapeName:
		return "name"
	case ShapeValueTags:
		return "value+tags"
	case ShapeValue:
		return "value"
	case ShapeTags:
		return "tags"
	default:
		return "unknown"
	}
}

const (
	selectConstants = "SELECT domain, name, value, hex_value, tags, description, link FROM constants"
	orderConstants  = " ORDER BY name"
	// likePrefix compares a column against an escaped prefix pattern.
	likePrefix = " LIKE ? ESCAPE '\\'"
)

// LikeEscape is the escape character of every prefix pattern.
const LikeEscape = '\\'

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Filter holds the optional lookup parameters. Nil pointers mean the parameter
// was not supplied; an empty string is still a supplied parameter.
type Filter struct {
	Name  *string
	Value *string
	Tags  []string
	Hex   bool
}

// HasName reports whether a name was supplied.
func (f Filter) HasName() bool { return f.Name != nil }

// HasValue reports whether a value prefix was supplied.
func (f Filter) HasValue() bool { return f.Value != nil }

// HasTags reports whether at least one tag was supplied.
func (f Filter) HasTags() bool { return len(f.Tags) > 0 }

// FilterFromValues reads name, value, tags and hex from URL query values using
// presence semantics.
func FilterFromValues(values url.Values) Filter {
	var f Filter
	if v, ok := values["name"]; ok && len(v) > 0 {
		name := v[0]
		f.Name = &name
	}
	if v, ok := values["value"]; ok && len(v) > 0 {
		value := v[0]
		f.Value = &value
	}
	if v, ok := values["tags"]; ok && len(v) > 0 {
		f.Tags = append([]string(nil), v...)
	}
	_, f.Hex = values["hex"]
	return f
}

// Statement is a resolved lookup: the shape that was selected, the SQL with
// '?' placeholders and the ordered bind values. A tag set is bound as a single
// []string argument to be expanded by the executor.
type Statement struct {
	Shape Shape
	SQL   string
	Args  []interface{}
	// Column is the value column compared by prefix shapes, empty otherwise.
	Column string
}

type rule struct {
	shape Shape
	match func(Filter) bool
	build func(domain string, f Filter) (string, []interface{})
}

// rules are evaluated in order; the first match wins. The last rule matches
// whatever is left, so every filter resolves to exactly one shape.
var rules = []rule{
	{
		shape: ShapeDomain,
		match: func(f Filter) bool { return !f.HasName() && !f.HasValue() && !f.HasTags() },
		build: func(domain string, _ Filter) (string, []interface{}) {
			return selectConstants + " WHERE domain = ?" + orderConstants, []interface{}{domain}
		},
	},
	{
		shape: ShapeName,
		match: Filter.HasName,
		build: func(domain string, f Filter) (string, []interface{}) {
			return selectConstants + " WHERE domain = ? AND name = ?" + orderConstants, []interface{}{domain, *f.Name}
		},
	},
	{
		shape: ShapeValueTags,
		match: func(f Filter) bool { return f.HasValue() && f.HasTags() },
		build: func(domain string, f Filter) (string, []interface{}) {
			sql := selectConstants + " WHERE domain = ? AND " + valueColumn(f) + likePrefix + " AND tags IN (?)" + orderConstants
			return sql, []interface{}{domain, prefix(*f.Value), tagArgs(f.Tags)}
		},
	},
	{
		shape: ShapeValue,
		match: Filter.HasValue,
		build: func(domain string, f Filter) (string, []interface{}) {
			sql := selectConstants + " WHERE domain = ? AND " + valueColumn(f) + likePrefix + orderConstants
			return sql, []interface{}{domain, prefix(*f.Value)}
		},
	},
	{
		shape: ShapeTags,
		match: func(Filter) bool { return true },
		build: func(domain string, f Filter) (string, []interface{}) {
			return selectConstants + " WHERE domain = ? AND tags IN (?)" + orderConstants, []interface{}{domain, tagArgs(f.Tags)}
		},
	},
}

// Resolve selects the statement for the domain and filter.
func Resolve(domain string, f Filter) Statement {
	for _, r := range rules {
		if r.match(f) {
			sql, args := r.build(domain, f)
			stmt := Statement{Shape: r.shape, SQL: sql, Args: args}
			if r.shape == ShapeValue || r.shape == ShapeValueTags {
				stmt.Column = valueColumn(f)
			}
			return stmt
		}
	}
	panic("query: no rule matched")
}

// HasSet reports whether the statement binds a tag set that needs expansion.
func (s Statement) HasSet() bool {
	return s.Shape == ShapeValueTags || s.Shape == ShapeTags
}

func valueColumn(f Filter) string {
	if f.Hex {
		return "hex_value"
	}
	return "value"
}

// prefix escapes the wildcards of v so only the trailing '%' is one.
func prefix(v string) string {
	return likeEscaper.Replace(v) + "%"
}

func tagArgs(tags []string) []string {
	return append([]string(nil), tags...)
}
