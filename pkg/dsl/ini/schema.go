package ini

import "github.com/leapstack-labs/vale-ls/pkg/dsl"

// Well-known keys.
const (
	KeyStylesPath     = "StylesPath"
	KeyMinAlertLevel  = "MinAlertLevel"
	KeyIgnoredScopes  = "IgnoredScopes"
	KeyIgnoredClasses = "IgnoredClasses"
	KeySkippedScopes  = "SkippedScopes"
	KeyWordTemplate   = "WordTemplate"
	KeyBasedOnStyles  = "BasedOnStyles"
	KeyBlockIgnores   = "BlockIgnores"
	KeyTokenIgnores   = "TokenIgnores"
	KeyTransform      = "Transform"
	KeyVocab          = "Vocab"
	KeyPackages       = "Packages"
	KeyLang           = "Lang"
	KeyNLPEndpoint    = "NLPEndpoint"
)

// RuleToggles are the values a "Style.Rule = ..." entry accepts.
var RuleToggles = []string{"YES", "NO", "suggestion", "warning", "error"}

// InlineScopes are the tags offered for IgnoredScopes.
var InlineScopes = []string{"small", "abbr", "em", "kbd", "tt", "code", "b", "i", "strong", "sup", "sub"}

// BlockScopes are the tags offered for SkippedScopes.
var BlockScopes = []string{"script", "style", "pre", "figure", "code", "table"}

// specialSections hold non-glob content and are not validated.
var specialSections = map[string]bool{
	"formats":     true,
	"asciidoctor": true,
}

var keyDocs = map[string]dsl.KeyDoc{
	KeyStylesPath: {
		Name:        KeyStylesPath,
		Description: "Path to the directory holding styles, vocabularies and installed packages. Relative paths are resolved against the directory of the config file.",
		Example:     "StylesPath = styles",
		GlobalOnly:  true,
	},
	KeyMinAlertLevel: {
		Name:        KeyMinAlertLevel,
		Description: "The minimum alert level reported. Alerts below it are filtered out.",
		Example:     "MinAlertLevel = suggestion",
		Values:      dsl.Levels,
		GlobalOnly:  true,
	},
	KeyIgnoredScopes: {
		Name:        KeyIgnoredScopes,
		Description: "Inline-level HTML tags whose content is ignored.",
		Example:     "IgnoredScopes = code, tt",
		GlobalOnly:  true,
	},
	KeyIgnoredClasses: {
		Name:        KeyIgnoredClasses,
		Description: "HTML classes whose elements are ignored.",
		Example:     "IgnoredClasses = my-class, another-class",
		GlobalOnly:  true,
	},
	KeySkippedScopes: {
		Name:        KeySkippedScopes,
		Description: "Block-level HTML tags whose content is skipped entirely.",
		Example:     "SkippedScopes = script, style, pre, figure",
		GlobalOnly:  true,
	},
	KeyWordTemplate: {
		Name:        KeyWordTemplate,
		Description: "Template used to build word-boundary patterns for existence and substitution rules.",
		Example:     `WordTemplate = \b(?:%s)\b`,
		GlobalOnly:  true,
	},
	KeyBasedOnStyles: {
		Name:        KeyBasedOnStyles,
		Description: "Styles whose rules are enabled for files matching the section. `Vale` is always available.",
		Example:     "[*.md]\nBasedOnStyles = Vale, Microsoft",
	},
	KeyBlockIgnores: {
		Name:        KeyBlockIgnores,
		Description: "Regular expressions matching whole blocks to ignore.",
		Example:     `BlockIgnores = (?s) *({< file [^>]* >}.*?{</ ?file >})`,
	},
	KeyTokenIgnores: {
		Name:        KeyTokenIgnores,
		Description: "Regular expressions matching inline tokens to ignore.",
		Example:     `TokenIgnores = (\$+[^\n$]+\$+)`,
	},
	KeyTransform: {
		Name:        KeyTransform,
		Description: "Path to an XSLT stylesheet applied to XML content before linting.",
		Example:     "Transform = docbook-xsl-snapshot/html/docbook.xsl",
	},
	KeyVocab: {
		Name:        KeyVocab,
		Description: "Vocabularies whose accept and reject lists apply to matching files.",
		Example:     "Vocab = Base, Blog",
	},
	KeyPackages: {
		Name:        KeyPackages,
		Description: "Packages installed into StylesPath by the sync command. Entries are package names, `name@version`, or archive URLs.",
		Example:     "Packages = Microsoft, write-good",
		GlobalOnly:  true,
	},
	KeyLang: {
		Name:        KeyLang,
		Description: "Language code used for spelling and NLP.",
		Example:     "Lang = en_US",
	},
	KeyNLPEndpoint: {
		Name:        KeyNLPEndpoint,
		Description: "URL of an external NLP service.",
		Example:     "NLPEndpoint = http://localhost:8080",
		GlobalOnly:  true,
	},
}

// KeyDoc returns documentation for a key. "Style.Rule" keys get a generic
// toggle doc.
func KeyDoc(key string) (dsl.KeyDoc, bool) {
	if doc, ok := keyDocs[key]; ok {
		return doc, true
	}
	if IsRuleKey(key) {
		return dsl.KeyDoc{
			Name:        key,
			Description: "Enables (`YES`), disables (`NO`) or re-levels a single rule.",
			Example:     key + " = NO",
			Values:      RuleToggles,
		}, true
	}
	return dsl.KeyDoc{}, false
}

// Keys returns the documented key names in a stable order.
func Keys() []string {
	return []string{
		KeyStylesPath, KeyMinAlertLevel, KeyPackages, KeyVocab, KeyBasedOnStyles,
		KeyIgnoredScopes, KeyIgnoredClasses, KeySkippedScopes, KeyWordTemplate,
		KeyBlockIgnores, KeyTokenIgnores, KeyTransform, KeyLang, KeyNLPEndpoint,
	}
}

// IsListKey reports whether the key holds a comma-separated list.
func IsListKey(key string) bool {
	switch key {
	case KeyBasedOnStyles, KeyVocab, KeyPackages, KeyIgnoredScopes, KeySkippedScopes, KeyIgnoredClasses:
		return true
	}
	return false
}
