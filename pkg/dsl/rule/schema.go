package rule

import (
	"sort"

	"github.com/leapstack-labs/vale-ls/pkg/dsl"
)

// Rule kinds accepted by "extends".
const (
	KindExistence      = "existence"
	KindSubstitution   = "substitution"
	KindOccurrence     = "occurrence"
	KindRepetition     = "repetition"
	KindConsistency    = "consistency"
	KindConditional    = "conditional"
	KindCapitalization = "capitalization"
	KindMetric         = "metric"
	KindSpelling       = "spelling"
	KindSequence       = "sequence"
	KindScript         = "script"
)

// Kinds lists every rule kind in documentation order.
var Kinds = []string{
	KindExistence, KindSubstitution, KindOccurrence, KindRepetition,
	KindConsistency, KindConditional, KindCapitalization, KindMetric,
	KindSpelling, KindSequence, KindScript,
}

var commonKeys = []string{"extends", "message", "level", "scope", "link", "limit", "action", "description"}

var kindKeys = map[string][]string{
	KindExistence:      {"append", "ignorecase", "nonword", "raw", "tokens", "exceptions", "vocab"},
	KindSubstitution:   {"append", "ignorecase", "nonword", "exceptions", "swap", "vocab", "capture"},
	KindOccurrence:     {"min", "max", "token"},
	KindRepetition:     {"alpha", "ignorecase", "tokens"},
	KindConsistency:    {"either", "nonword", "ignorecase"},
	KindConditional:    {"first", "second", "ignorecase", "exceptions"},
	KindCapitalization: {"exceptions", "match", "style", "threshold", "indicators", "prefix", "vocab"},
	KindMetric:         {"formula", "condition"},
	KindSpelling:       {"append", "custom", "dicpath", "dictionaries", "filters", "ignore"},
	KindSequence:       {"ignorecase", "tokens"},
	KindScript:         {"script"},
}

var kindDocs = map[string]dsl.KeyDoc{
	KindExistence: {
		Name:        KindExistence,
		Description: "Reports any occurrence of the listed tokens.",
		Example:     "extends: existence\nmessage: \"Consider removing '%s'\"\nignorecase: true\ntokens:\n  - appears to be\n  - arguably",
	},
	KindSubstitution: {
		Name:        KindSubstitution,
		Description: "Suggests a replacement for each key of `swap`.",
		Example:     "extends: substitution\nmessage: \"Use '%s' instead of '%s'.\"\nswap:\n  abundance: plenty\n  accelerate: speed up",
	},
	KindOccurrence: {
		Name:        KindOccurrence,
		Description: "Enforces a minimum or maximum count of `token` within the scope.",
		Example:     "extends: occurrence\nmessage: \"More than 3 commas!\"\nscope: sentence\nmax: 3\ntoken: ','",
	},
	KindRepetition: {
		Name:        KindRepetition,
		Description: "Reports consecutive repeats of the listed tokens.",
		Example:     "extends: repetition\nmessage: \"'%s' is repeated!\"\nalpha: true\ntokens:\n  - '[^\\s]+'",
	},
	KindConsistency: {
		Name:        KindConsistency,
		Description: "Ensures only one of each `either` pair is used in a file.",
		Example:     "extends: consistency\nmessage: \"Inconsistent spelling of '%s'.\"\neither:\n  advisor: adviser\n  centre: center",
	},
	KindConditional: {
		Name:        KindConditional,
		Description: "Requires that matches of `second` exist whenever `first` matches.",
		Example:     "extends: conditional\nmessage: \"'%s' has no definition.\"\nfirst: '\\b([A-Z]{3,5})\\b'\nsecond: '(?:\\b[A-Z][a-z]+ )+\\(([A-Z]{3,5})\\)'",
	},
	KindCapitalization: {
		Name:        KindCapitalization,
		Description: "Checks that text within the scope follows a capitalization style.",
		Example:     "extends: capitalization\nmessage: \"'%s' should be in title case\"\nscope: heading\nmatch: $title\nstyle: Chicago",
	},
	KindMetric: {
		Name:        KindMetric,
		Description: "Computes a readability formula and compares it with `condition`.",
		Example:     "extends: metric\nmessage: \"Try to keep the Flesch-Kincaid grade level (%s) below 8.\"\nformula: |\n  (0.39 * (words / sentences)) + (11.8 * (syllables / words)) - 15.59\ncondition: \"> 8\"",
	},
	KindSpelling: {
		Name:        KindSpelling,
		Description: "Spell-checks text against Hunspell-compatible dictionaries.",
		Example:     "extends: spelling\nmessage: \"Did you really mean '%s'?\"\nignore:\n  - vocab.txt",
	},
	KindSequence: {
		Name:        KindSequence,
		Description: "Matches a sequence of tokens by part-of-speech tag and text. Messages may reference positions with `%[n]s`.",
		Example:     "extends: sequence\nmessage: \"'%[4]s' requires 'to'\"\ntokens:\n  - tag: MD\n  - pattern: be\n  - tag: JJ\n  - tag: VB|VBN",
	},
	KindScript: {
		Name:        KindScript,
		Description: "Runs a Tengo script that returns match locations.",
		Example:     "extends: script\nmessage: \"Consider inserting a new section heading at this point.\"\nscript: paragraphs.tengo",
	},
}

var keyDocs = map[string]dsl.KeyDoc{
	"extends":      {Name: "extends", Description: "The kind of check this rule performs.", Values: Kinds},
	"message":      {Name: "message", Description: "The message shown for each alert. `%s` placeholders are filled from the match."},
	"level":        {Name: "level", Description: "The alert level.", Values: dsl.Levels},
	"scope":        {Name: "scope", Description: "The document sections the rule applies to. A list is an OR; `&` combines scopes and `~` negates one.", Example: "scope:\n  - heading.h1\n  - paragraph & ~blockquote"},
	"link":         {Name: "link", Description: "A URL with more information about the rule."},
	"limit":        {Name: "limit", Description: "Maximum number of alerts reported per file."},
	"action":       {Name: "action", Description: "A fix the editor can apply: `name` is one of replace, remove, edit, suggest; `params` are its arguments.", Example: "action:\n  name: replace"},
	"description":  {Name: "description", Description: "Free-form description of the rule."},
	"append":       {Name: "append", Description: "Append `tokens` to an inherited rule instead of replacing them."},
	"ignorecase":   {Name: "ignorecase", Description: "Match case-insensitively."},
	"nonword":      {Name: "nonword", Description: "Do not wrap tokens in word boundaries."},
	"raw":          {Name: "raw", Description: "Regular expression fragments concatenated into one pattern."},
	"tokens":       {Name: "tokens", Description: "Patterns to match. For sequence rules, a list of `tag` / `pattern` entries, one per position."},
	"exceptions":   {Name: "exceptions", Description: "Matches that are never reported."},
	"vocab":        {Name: "vocab", Description: "Whether the active vocabularies apply to this rule."},
	"capture":      {Name: "capture", Description: "Capture group used for the reported match."},
	"swap":         {Name: "swap", Description: "Map of pattern to replacement. Replacements separated by `|` are alternatives."},
	"min":          {Name: "min", Description: "Minimum number of occurrences."},
	"max":          {Name: "max", Description: "Maximum number of occurrences."},
	"token":        {Name: "token", Description: "The pattern counted by an occurrence rule."},
	"alpha":        {Name: "alpha", Description: "Only consider alphabetic tokens."},
	"either":       {Name: "either", Description: "Map of pairs of which only one form may appear."},
	"first":        {Name: "first", Description: "Pattern whose matches require a match of `second`."},
	"second":       {Name: "second", Description: "Pattern that satisfies matches of `first`."},
	"match":        {Name: "match", Description: "`$title`, `$sentence`, `$lower`, `$upper` or a regular expression."},
	"style":        {Name: "style", Description: "Title-case style: AP or Chicago.", Values: []string{"AP", "Chicago"}},
	"threshold":    {Name: "threshold", Description: "Fraction of words that must follow the style."},
	"indicators":   {Name: "indicators", Description: "Suffixes marking a sentence end, for `$sentence`."},
	"prefix":       {Name: "prefix", Description: "Pattern stripped before checking."},
	"formula":      {Name: "formula", Description: "Arithmetic over document metrics such as words, sentences and syllables."},
	"condition":    {Name: "condition", Description: "Comparison applied to the formula result, e.g. `> 8`."},
	"custom":       {Name: "custom", Description: "Use only custom dictionaries."},
	"dicpath":      {Name: "dicpath", Description: "Directory holding the dictionaries."},
	"dictionaries": {Name: "dictionaries", Description: "Dictionary names to load from dicpath."},
	"filters":      {Name: "filters", Description: "Patterns of words to skip."},
	"ignore":       {Name: "ignore", Description: "Word list files, relative to StylesPath, of words to accept."},
	"script":       {Name: "script", Description: "Inline Tengo source or a file name under the scripts directory."},
}

// KeyDoc returns documentation for key, specialised for kind when given.
func KeyDoc(kind, key string) (dsl.KeyDoc, bool) {
	doc, ok := keyDocs[key]
	if !ok {
		return dsl.KeyDoc{}, false
	}
	if key == "extends" {
		if kd, ok := kindDocs[kind]; ok {
			doc.Description += "\n\n`" + kind + "`: " + kd.Description
			doc.Example = kd.Example
		}
	}
	return doc, true
}

// KindDoc returns documentation for a rule kind.
func KindDoc(kind string) (dsl.KeyDoc, bool) {
	d, ok := kindDocs[kind]
	return d, ok
}

// KeysFor returns the keys valid for kind, common keys first. An unknown or
// empty kind yields only the common keys.
func KeysFor(kind string) []string {
	extra := append([]string(nil), kindKeys[kind]...)
	sort.Strings(extra)
	return append(append([]string(nil), commonKeys...), extra...)
}

// ValidKey reports whether key is allowed for kind.
func ValidKey(kind, key string) bool {
	for _, k := range commonKeys {
		if k == key {
			return true
		}
	}
	for _, k := range kindKeys[kind] {
		if k == key {
			return true
		}
	}
	return false
}

// IsKind reports whether s is a known rule kind.
func IsKind(s string) bool {
	_, ok := kindDocs[s]
	return ok
}
