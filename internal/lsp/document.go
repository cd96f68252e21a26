package lsp

import (
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/leapstack-labs/vale-ls/pkg/token"
)

// Document represents an open text document in the editor. A Document is
// never modified after it is stored; updates replace it.
type Document struct {
	URI     string // Document URI (file:///path/to/.vale.ini)
	Path    string // File system path derived from URI
	Content string // Full document content
	Version int    // Client version number
	Seq     int    // Server edit sequence, increases on every open and change
	Lines   []int  // Byte offsets of line starts for fast position lookups
}

// DocumentStore manages open documents in memory.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*Document
	seq       int
}

// NewDocumentStore creates a new document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]*Document),
	}
}

// Open adds or replaces a document in the store.
func (s *DocumentStore) Open(uri string, content string, version int) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.put(uri, content, version)
}

// Close removes a document from the store.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, uri)
}

// Get retrieves a document by URI.
func (s *DocumentStore) Get(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.documents[uri]
}

// Update replaces an open document's content. It returns nil when the
// document is not open.
func (s *DocumentStore) Update(uri string, content string, version int) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[uri]; !ok {
		return nil
	}
	return s.put(uri, content, version)
}

func (s *DocumentStore) put(uri, content string, version int) *Document {
	s.seq++
	doc := &Document{
		URI:     uri,
		Path:    URIToPath(uri),
		Content: content,
		Version: version,
		Seq:     s.seq,
		Lines:   computeLineOffsets(content),
	}
	s.documents[uri] = doc
	return doc
}

// List returns all open document URIs, sorted.
func (s *DocumentStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := make([]string, 0, len(s.documents))
	for uri := range s.documents {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// computeLineOffsets calculates byte offsets for each line start.
func computeLineOffsets(content string) []int {
	offsets := []int{0} // First line starts at offset 0

	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}

	return offsets
}

// lineEnd returns the byte offset of the end of line, before any line
// terminator.
func (d *Document) lineEnd(line int) int {
	end := len(d.Content)
	if line+1 < len(d.Lines) {
		end = d.Lines[line+1] - 1
	}
	if end > d.Lines[line] && d.Content[end-1] == '\r' {
		end--
	}
	if end < d.Lines[line] {
		end = d.Lines[line]
	}
	return end
}

// PositionToOffset converts a Position to a byte offset in the document.
// Characters are counted in UTF-16 code units and clamped to the line.
func (d *Document) PositionToOffset(pos Position) int {
	if d == nil || len(d.Lines) == 0 {
		return 0
	}

	line := int(pos.Line)
	if line >= len(d.Lines) {
		return len(d.Content)
	}

	offset := d.Lines[line]
	end := d.lineEnd(line)
	for units := 0; offset < end && units < int(pos.Character); {
		r, size := utf8.DecodeRuneInString(d.Content[offset:end])
		units += utf16Len(r)
		offset += size
	}
	return offset
}

// OffsetToPosition converts a byte offset to a Position.
func (d *Document) OffsetToPosition(offset int) Position {
	if d == nil || len(d.Lines) == 0 {
		return Position{}
	}

	if offset < 0 {
		offset = 0
	}
	if offset > len(d.Content) {
		offset = len(d.Content)
	}

	line := sort.Search(len(d.Lines), func(i int) bool { return d.Lines[i] > offset }) - 1

	units := 0
	for _, r := range d.Content[d.Lines[line]:offset] {
		units += utf16Len(r)
	}
	return Position{
		Line:      uint32(line),
		Character: uint32(units),
	}
}

// utf16Len counts invalid bytes as one unit, like editors do for U+FFFD.
func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

// TokenPosition converts a Position to the parser's 1-based line and byte
// column.
func (d *Document) TokenPosition(pos Position) (line, col int) {
	offset := d.PositionToOffset(pos)
	p := d.OffsetToPosition(offset)
	return int(p.Line) + 1, offset - d.Lines[p.Line] + 1
}

// posOffset converts a parser position to a byte offset. Positions past the
// end of their line are clamped.
func (d *Document) posOffset(p token.Position) int {
	if d == nil || len(d.Lines) == 0 || p.Line < 1 {
		return 0
	}
	if p.Line > len(d.Lines) {
		return len(d.Content)
	}
	line := p.Line - 1
	offset := d.Lines[line] + max(p.Column, 1) - 1
	return min(offset, d.lineEnd(line))
}

// SpanRange converts a parser span to an editor range. A span without a
// position maps to the start of the document.
func (d *Document) SpanRange(span token.Span) Range {
	if !span.Start.IsValid() {
		return Range{}
	}
	start := d.posOffset(span.Start)
	end := start
	if span.End.IsValid() {
		end = max(d.posOffset(span.End), start)
	}
	return Range{Start: d.OffsetToPosition(start), End: d.OffsetToPosition(end)}
}

// ColumnsRange converts a 1-based line and inclusive 1-based byte columns,
// as reported by the linter, to an editor range.
func (d *Document) ColumnsRange(line, first, last int) Range {
	start := d.posOffset(token.Position{Line: line, Column: first})
	end := d.posOffset(token.Position{Line: line, Column: last + 1})
	return Range{Start: d.OffsetToPosition(start), End: d.OffsetToPosition(max(start, end))}
}

// GetLine returns the content of a specific line.
func (d *Document) GetLine(line int) string {
	if d == nil || line < 0 || line >= len(d.Lines) {
		return ""
	}
	return d.Content[d.Lines[line]:d.lineEnd(line)]
}

// GetTextInRange returns the text within a range.
func (d *Document) GetTextInRange(r Range) string {
	start := d.PositionToOffset(r.Start)
	end := d.PositionToOffset(r.End)
	if start >= end || start >= len(d.Content) {
		return ""
	}
	return d.Content[start:end]
}

// URIToPath converts a file:// URI to a file system path.
func URIToPath(uri string) string {
	const prefix = "file://"
	if !strings.HasPrefix(uri, prefix) {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil || u.Path == "" {
		return uri[len(prefix):]
	}
	p := u.Path
	// file:///C:/x on Windows
	if len(p) > 2 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

// PathToURI converts a file system path to a file:// URI.
func PathToURI(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}
