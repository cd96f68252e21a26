package dsl

import "strings"

// Levels is the closed set of alert levels, lowest first.
var Levels = []string{"suggestion", "warning", "error"}

// KeyDoc documents a configuration key for hover and completion.
type KeyDoc struct {
	Name        string
	Description string
	Example     string
	Values      []string // closed enumeration, nil when free-form
	GlobalOnly  bool
}

// Markdown renders the doc as hover content.
func (d KeyDoc) Markdown() string {
	var b strings.Builder
	b.WriteString("**")
	b.WriteString(d.Name)
	b.WriteString("**\n\n")
	b.WriteString(d.Description)
	if len(d.Values) > 0 {
		b.WriteString("\n\nAllowed values: `")
		b.WriteString(strings.Join(d.Values, "`, `"))
		b.WriteString("`")
	}
	if d.Example != "" {
		b.WriteString("\n\n```\n")
		b.WriteString(strings.TrimRight(d.Example, "\n"))
		b.WriteString("\n```")
	}
	return b.String()
}

// Allows reports whether v is in the doc's enumeration. Free-form keys
// allow anything.
func (d KeyDoc) Allows(v string) bool {
	if d.Values == nil {
		return true
	}
	for _, allowed := range d.Values {
		if v == allowed {
			return true
		}
	}
	return false
}

// IsLevel reports whether s names an alert level.
func IsLevel(s string) bool {
	for _, l := range Levels {
		if s == l {
			return true
		}
	}
	return false
}
