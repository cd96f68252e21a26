package resolve

import (
	"path/filepath"
	"sort"

	"github.com/leapstack-labs/vale-ls/pkg/dsl/ini"
)

// Sections returns the sections that apply to scope in the order they are
// applied: the global section first, then glob sections from least to most
// specific. Among globs with as many literal characters, the one expanding
// to more alternatives is broader; file order breaks remaining ties. Later
// sections win conflicts.
func Sections(cfg *ini.Config, scope string) []*ini.Section {
	scope = filepath.ToSlash(scope)
	out := []*ini.Section{cfg.Global}

	var matched []*ini.Section
	for _, s := range cfg.Sections {
		if !s.Special && s.Matches(scope) {
			matched = append(matched, s)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		si, sj := specificity(matched[i].Name), specificity(matched[j].Name)
		if si != sj {
			return si < sj
		}
		ai, aj := alternatives(matched[i].Name), alternatives(matched[j].Name)
		if ai != aj {
			return ai > aj
		}
		return matched[i].Index < matched[j].Index
	})
	return append(out, matched...)
}

// specificity counts the literal characters of a glob. A brace group
// counts as its shortest alternative.
func specificity(glob string) int {
	n := 0
	for i := 0; i < len(glob); i++ {
		switch glob[i] {
		case '{':
			end := closingBrace(glob, i)
			shortest := -1
			for _, alt := range splitAlternatives(glob[i+1 : end]) {
				if c := specificity(alt); shortest < 0 || c < shortest {
					shortest = c
				}
			}
			n += max(shortest, 0)
			i = end
		case '*', '?', '}', '[', ']', ',', '!':
		default:
			n++
		}
	}
	return n
}

// alternatives counts the patterns a glob's brace groups expand to.
func alternatives(glob string) int {
	n := 1
	for i := 0; i < len(glob); i++ {
		if glob[i] != '{' {
			continue
		}
		end := closingBrace(glob, i)
		sum := 0
		for _, alt := range splitAlternatives(glob[i+1 : end]) {
			sum += alternatives(alt)
		}
		n *= sum
		i = end
	}
	return n
}

// closingBrace returns the index of the brace closing the group opened at
// open, or the end of the glob when it is unbalanced.
func closingBrace(glob string, open int) int {
	depth := 0
	for i := open; i < len(glob); i++ {
		switch glob[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(glob)
}

// splitAlternatives splits a brace group body on its top-level commas.
func splitAlternatives(body string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, body[start:i])
				start = i + 1
			}
		}
	}
	return append(out, body[start:])
}
