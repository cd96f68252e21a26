package selector

// LeafInfo describes a known scope for completion and hover.
type LeafInfo struct {
	Name        string
	Description string
}

var known = []LeafInfo{
	{"text", "All prose in the document."},
	{"heading", "Any heading."},
	{"heading.h1", "Level 1 headings."},
	{"heading.h2", "Level 2 headings."},
	{"heading.h3", "Level 3 headings."},
	{"heading.h4", "Level 4 headings."},
	{"heading.h5", "Level 5 headings."},
	{"heading.h6", "Level 6 headings."},
	{"paragraph", "Paragraph blocks."},
	{"sentence", "Individual sentences."},
	{"list", "List items."},
	{"blockquote", "Quoted blocks."},
	{"table", "Any table content."},
	{"table.header", "Table header cells."},
	{"table.cell", "Table body cells."},
	{"table.caption", "Table captions."},
	{"alt", "Image alt text."},
	{"title", "Document titles."},
	{"summary", "Document body excluding headings, lists and tables."},
	{"raw", "The raw, unprocessed file contents."},
	{"code", "Code blocks and inline code."},
	{"comment", "Source code comments."},
	{"comment.line", "Single-line source code comments."},
	{"comment.block", "Block source code comments."},
	{"strong", "Bold text."},
	{"emphasis", "Italic text."},
	{"link", "Link text."},
}

var knownTypes = func() map[string]bool {
	m := make(map[string]bool)
	for _, l := range known {
		typ := l.Name
		for i := 0; i < len(typ); i++ {
			if typ[i] == '.' {
				typ = typ[:i]
				break
			}
		}
		m[typ] = true
	}
	return m
}()

// KnownLeaves returns the scopes offered by completion.
func KnownLeaves() []LeafInfo {
	out := make([]LeafInfo, len(known))
	copy(out, known)
	return out
}

func isKnownType(t string) bool {
	return knownTypes[t] || t == anyType
}
