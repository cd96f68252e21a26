package lsp

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/vale-ls/internal/resolve"
	"github.com/leapstack-labs/vale-ls/pkg/dsl/rule"
)

// codeActions builds quick fixes for linter diagnostics from the alert
// carried in their data.
func codeActions(r request, diags []Diagnostic) []CodeAction {
	actions := []CodeAction{}
	for _, d := range diags {
		if d.Data == nil || d.Source != SourceLinter {
			continue
		}
		actions = append(actions, alertActions(r, d)...)
	}
	return actions
}

func alertActions(r request, d Diagnostic) []CodeAction {
	alert := d.Data
	def := ruleDefinition(r, alert.Check)

	var out []CodeAction
	switch alert.Action {
	case "remove":
		rng := d.Range
		// Also drop the character after the match so no double space remains.
		rng.End.Character++
		out = append(out, fixAction(r, d, fmt.Sprintf("Remove ‘%s’", alert.Match), rng, ""))
	case "replace":
		alts := alert.Params
		if len(alts) == 0 {
			alts = swapReplacements(def, alert.Match)
		}
		for _, alt := range alts {
			out = append(out, replaceAction(r, d, alt))
		}
	case "edit":
		if fixed, ok := editMatch(alert.Match, alert.Params); ok && fixed != alert.Match {
			out = append(out, replaceAction(r, d, fixed))
		}
	case "":
		for _, alt := range swapReplacements(def, alert.Match) {
			out = append(out, replaceAction(r, d, alt))
		}
	}

	if isSpelling(alert.Check, def) && alert.Match != "" {
		out = append(out, CodeAction{
			Title:       fmt.Sprintf("Add ‘%s’ to the accepted vocabulary", alert.Match),
			Kind:        CodeActionKindQuickFix,
			Diagnostics: []Diagnostic{d},
			Command: &Command{
				Title:     "Add to vocabulary",
				Command:   CommandAddToAccept,
				Arguments: []any{termArgs{Term: alert.Match, URI: r.doc.URI}},
			},
		})
	}
	if len(out) > 0 && out[0].Edit != nil {
		out[0].IsPreferred = true
	}
	return out
}

// swapReplacements returns the swap alternatives of a substitution rule.
func swapReplacements(def *rule.Definition, match string) []string {
	if def == nil || def.Extends != rule.KindSubstitution {
		return nil
	}
	return def.Replacements(match)
}

func replaceAction(r request, d Diagnostic, text string) CodeAction {
	return fixAction(r, d, fmt.Sprintf("Replace with ‘%s’", text), d.Range, text)
}

func fixAction(r request, d Diagnostic, title string, rng Range, text string) CodeAction {
	return CodeAction{
		Title:       title,
		Kind:        CodeActionKindQuickFix,
		Diagnostics: []Diagnostic{d},
		Edit: &WorkspaceEdit{Changes: map[string][]TextEdit{
			r.doc.URI: {{Range: rng, NewText: text}},
		}},
	}
}

// ruleDefinition finds the rule behind an alert in the configuration in
// effect for the document.
func ruleDefinition(r request, check string) *rule.Definition {
	if r.snap == nil {
		return nil
	}
	eff, ok := r.snap.Resolve(r.snap.Scope(r.doc.Path)).Rule(check)
	if !ok {
		return nil
	}
	return eff.Definition
}

func isSpelling(check string, def *rule.Definition) bool {
	if def != nil {
		return def.Extends == rule.KindSpelling
	}
	return check == resolve.BuiltinStyle+".Spelling"
}

// editMatch applies an "edit" action to the matched text. Supported edits
// are regex, trim, trim_left and trim_right.
func editMatch(match string, params []string) (string, bool) {
	if len(params) == 0 {
		return "", false
	}
	switch params[0] {
	case "regex":
		if len(params) < 3 {
			return "", false
		}
		re, err := regexp.Compile(params[1])
		if err != nil {
			return "", false
		}
		return re.ReplaceAllString(match, params[2]), true
	case "trim":
		if len(params) < 2 {
			return strings.TrimSpace(match), true
		}
		return strings.Trim(match, params[1]), true
	case "trim_left":
		if len(params) < 2 {
			return strings.TrimLeft(match, " "), true
		}
		return strings.TrimLeft(match, params[1]), true
	case "trim_right":
		if len(params) < 2 {
			return strings.TrimRight(match, " "), true
		}
		return strings.TrimRight(match, params[1]), true
	}
	return "", false
}
