package output

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// FormatHeader returns a markdown heading.
func FormatHeader(level int, title string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + title
}

// FormatKeyValue returns a markdown list item "- **key:** value".
func FormatKeyValue(key, value string) string {
	return "- **" + key + ":** " + value
}

// KeyValue writes a labelled value in the current mode.
func (r *Renderer) KeyValue(key, value string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatKeyValue(key, value))
		return
	}
	r.Printf("  %s %s\n", r.styles.Muted.Render(key+":"), value)
}

// Table writes rows under header, as a box table on a terminal and a
// markdown table otherwise.
func (r *Renderer) Table(header []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	head := make(table.Row, len(header))
	for i, h := range header {
		head[i] = h
	}
	t.AppendHeader(head)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, c := range row {
			tr[i] = c
		}
		t.AppendRow(tr)
	}

	if r.EffectiveMode() == ModeMarkdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}
