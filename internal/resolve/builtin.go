package resolve

import "github.com/leapstack-labs/vale-ls/pkg/dsl/rule"

// BuiltinStyle is always available without an installed package.
const BuiltinStyle = "Vale"

var builtinRules = []*rule.Definition{
	{
		Name:    "Spelling",
		Extends: rule.KindSpelling,
		Level:   "error",
		Message: "Did you really mean '%s'?",
	},
	{
		Name:    "Terms",
		Extends: rule.KindSubstitution,
		Level:   "error",
		Message: "Use '%s' instead of '%s'.",
	},
	{
		Name:    "Avoid",
		Extends: rule.KindExistence,
		Level:   "error",
		Message: "Avoid using '%s'.",
	},
	{
		Name:    "Repetition",
		Extends: rule.KindRepetition,
		Level:   "error",
		Message: "'%s' is repeated!",
	},
}

// BuiltinRules returns the rules of the built-in style.
func BuiltinRules() []*rule.Definition {
	out := make([]*rule.Definition, len(builtinRules))
	copy(out, builtinRules)
	return out
}
