package rule

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/leapstack-labs/vale-ls/pkg/selector"
	"github.com/leapstack-labs/vale-ls/pkg/sequence"
	"github.com/leapstack-labs/vale-ls/pkg/token"
)

// DefaultLevel applies when a rule has no "level".
const DefaultLevel = "suggestion"

// Swap is one substitution pair in file order.
type Swap struct {
	From string
	To   string
	Span token.Span
}

// Action is the fix hint attached to a rule.
type Action struct {
	Name   string   `yaml:"name"`
	Params []string `yaml:"params"`
}

// Definition is the typed content of a rule file. Keys this system does not
// interpret are kept in Raw.
type Definition struct {
	Name        string
	Extends     string
	Message     string
	Level       string
	Link        string
	Limit       int
	IgnoreCase  bool
	Nonword     bool
	ScopeSource []string
	Scope       selector.Expr
	Tokens      []string
	Exceptions  []string
	Swap        []Swap
	Action      Action
	Sequence    *sequence.Matcher
	Template    *sequence.Template
	Raw         map[string]any
}

// EffectiveLevel returns Level or the default.
func (d *Definition) EffectiveLevel() string {
	if d.Level == "" {
		return DefaultLevel
	}
	return d.Level
}

// Replacements returns the substitution alternatives for a matched text.
// Swap keys are regular expressions; an invalid expression is compared
// literally.
func (d *Definition) Replacements(match string) []string {
	for _, s := range d.Swap {
		if swapMatches(s.From, match, d.IgnoreCase) {
			var out []string
			for _, alt := range strings.Split(s.To, "|") {
				if alt = strings.TrimSpace(alt); alt != "" {
					out = append(out, alt)
				}
			}
			return out
		}
	}
	return nil
}

func swapMatches(pattern, text string, ignoreCase bool) bool {
	expr := "^(?:" + pattern + ")$"
	if ignoreCase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		if ignoreCase {
			return strings.EqualFold(pattern, text)
		}
		return pattern == text
	}
	return re.MatchString(text)
}

// NameFromPath returns the rule name for a rule file: its base name without
// extension.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
