package engine

import "fmt"

// Action is the fix hint attached to an alert.
type Action struct {
	Name   string   `json:"Name"`
	Params []string `json:"Params"`
}

// Alert is one diagnostic reported by the linter.
type Alert struct {
	Action      Action `json:"Action"`
	Check       string `json:"Check"`
	Match       string `json:"Match"`
	Description string `json:"Description"`
	Link        string `json:"Link"`
	Message     string `json:"Message"`
	Severity    string `json:"Severity"`
	// Line is 1-based.
	Line int `json:"Line"`
	// Span holds the 1-based first and last column of the match, inclusive.
	Span [2]int `json:"Span"`
}

// RunError is the structured error the linter prints for broken
// configuration.
type RunError struct {
	Code string `json:"Code"`
	Path string `json:"Path"`
	Text string `json:"Text"`
	Line int    `json:"Line"`
	Span int    `json:"Span"`
}

func (e *RunError) Error() string {
	if e.Path == "" {
		return e.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Span, e.Text)
}

// LsConfig is the subset of the linter's effective configuration used here.
type LsConfig struct {
	StylesPath    string   `json:"StylesPath"`
	Paths         []string `json:"Paths"`
	MinAlertLevel int      `json:"MinAlertLevel"`
}
