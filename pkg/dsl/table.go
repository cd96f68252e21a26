package dsl

// Table is the result of parsing one configuration file.
type Table struct {
	File        string
	Symbols     []Symbol
	Diagnostics []Diagnostic
}

// NewTable creates an empty table for file.
func NewTable(file string) *Table {
	return &Table{File: file}
}

// Add appends a symbol, stamping the table's file on it.
func (t *Table) Add(sym Symbol) {
	sym.File = t.File
	t.Symbols = append(t.Symbols, sym)
}

// Report appends a diagnostic, stamping the table's file on it.
func (t *Table) Report(d Diagnostic) {
	d.File = t.File
	t.Diagnostics = append(t.Diagnostics, d)
}

// Merge appends diagnostics produced by a sub-parser.
func (t *Table) Merge(diags []Diagnostic) {
	for _, d := range diags {
		t.Report(d)
	}
}

// At returns the innermost symbol containing the 1-based line and column.
// References win over the keys they sit on.
func (t *Table) At(line, col int) (Symbol, bool) {
	var (
		best  Symbol
		found bool
	)
	for _, sym := range t.Symbols {
		if !sym.Span.ContainsPos(line, col) {
			continue
		}
		if !found || narrower(sym, best) {
			best = sym
			found = true
		}
	}
	return best, found
}

func narrower(a, b Symbol) bool {
	if a.Span.Len() != b.Span.Len() {
		return a.Span.Len() < b.Span.Len()
	}
	return a.Kind.IsReference() && !b.Kind.IsReference()
}

// ByKind returns all symbols of the given kind in file order.
func (t *Table) ByKind(kind SymbolKind) []Symbol {
	var out []Symbol
	for _, sym := range t.Symbols {
		if sym.Kind == kind {
			out = append(out, sym)
		}
	}
	return out
}

// Lookup returns the last symbol with the given kind and name.
func (t *Table) Lookup(kind SymbolKind, name string) (Symbol, bool) {
	for i := len(t.Symbols) - 1; i >= 0; i-- {
		if t.Symbols[i].Kind == kind && t.Symbols[i].Name == name {
			return t.Symbols[i], true
		}
	}
	return Symbol{}, false
}

// HasErrors reports whether any diagnostic has error severity.
func (t *Table) HasErrors() bool {
	for _, d := range t.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
