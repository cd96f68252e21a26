package lsp

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/vale-ls/internal/engine"
	"github.com/leapstack-labs/vale-ls/internal/provider"
	"github.com/leapstack-labs/vale-ls/internal/workspace"
	"github.com/leapstack-labs/vale-ls/pkg/dsl"
)

// Diagnostic sources.
const (
	SourceConfig = "vale-ls"
	SourceLinter = "vale"
)

// configDiagnostics converts configuration diagnostics that belong to the
// document's file.
func configDiagnostics(doc *Document, diags []dsl.Diagnostic) []Diagnostic {
	out := []Diagnostic{}
	for _, d := range diags {
		if d.File != "" && filepath.Clean(d.File) != filepath.Clean(doc.Path) {
			continue
		}
		out = append(out, Diagnostic{
			Range:    doc.SpanRange(d.Span),
			Severity: DiagnosticSeverity(d.Severity),
			Code:     string(d.Kind),
			Source:   SourceConfig,
			Message:  d.Text(),
		})
	}
	return out
}

// documentDiagnostics returns the configuration diagnostics for an INI or
// rule document. Rule files outside StylesPath are not checked.
func documentDiagnostics(doc *Document, parsed *provider.ParsedDocument, snap *workspace.Snapshot) []Diagnostic {
	switch parsed.Dialect {
	case provider.DialectINI:
		if snap.ConfigPath != "" && filepath.Clean(snap.ConfigPath) == filepath.Clean(doc.Path) {
			return configDiagnostics(doc, snap.ConfigDiagnostics())
		}
		return configDiagnostics(doc, parsed.Diagnostics())
	case provider.DialectRule:
		if !snap.InStylesPath(doc.Path) {
			return []Diagnostic{}
		}
		return configDiagnostics(doc, parsed.Diagnostics())
	}
	return []Diagnostic{}
}

// alertSeverity maps a linter severity to an editor severity.
func alertSeverity(s string) DiagnosticSeverity {
	switch strings.ToLower(s) {
	case "error":
		return DiagnosticSeverityError
	case "warning":
		return DiagnosticSeverityWarning
	case "suggestion":
		return DiagnosticSeverityInformation
	}
	return DiagnosticSeverityHint
}

// alertDiagnostics converts linter alerts. Each diagnostic carries its
// alert so code actions can be built from it.
func alertDiagnostics(doc *Document, alerts []engine.Alert) []Diagnostic {
	out := make([]Diagnostic, 0, len(alerts))
	for _, a := range alerts {
		d := Diagnostic{
			Range:    doc.ColumnsRange(a.Line, a.Span[0], a.Span[1]),
			Severity: alertSeverity(a.Severity),
			Code:     a.Check,
			Source:   SourceLinter,
			Message:  a.Message,
			Data: &AlertData{
				Check:  a.Check,
				Match:  a.Match,
				Action: a.Action.Name,
				Params: a.Action.Params,
			},
		}
		if a.Link != "" {
			d.CodeDescription = &CodeDescription{Href: a.Link}
		}
		out = append(out, d)
	}
	return out
}

// publishDocument publishes the configuration diagnostics of an INI or
// rule document.
func (s *Server) publishDocument(doc *Document, parsed *provider.ParsedDocument) {
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         doc.URI,
		Diagnostics: documentDiagnostics(doc, parsed, s.ws.Snapshot()),
	})
}

// lint runs the linter on a prose document in the background. A newer lint
// of the same document cancels the older one, and results for a document
// that has changed since are dropped.
func (s *Server) lint(doc *Document) {
	linter := s.currentLinter()
	if linter == nil || s.ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.lintMu.Lock()
	if prev, ok := s.lints[doc.URI]; ok {
		prev()
	}
	s.lints[doc.URI] = cancel
	s.lintMu.Unlock()

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		defer cancel()

		alerts, err := linter.Lint(ctx, doc.Path, doc.Content)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if errors.Is(err, engine.ErrNotInstalled) {
				s.notInstalled.Do(func() {
					s.showMessage(MessageTypeWarning, "Vale is not installed. Run the 'vale-ls.install' command to install it.")
				})
				return
			}
			s.logger.Warn("Lint failed", "uri", doc.URI, "error", err)
			return
		}

		if cur := s.documents.Get(doc.URI); cur == nil || cur.Seq != doc.Seq {
			return
		}
		s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
			URI:         doc.URI,
			Diagnostics: alertDiagnostics(doc, alerts),
		})
	}()
}

// cancelLint stops a running lint of uri.
func (s *Server) cancelLint(uri string) {
	s.lintMu.Lock()
	defer s.lintMu.Unlock()
	if cancel, ok := s.lints[uri]; ok {
		cancel()
		delete(s.lints, uri)
	}
}

// refreshOpenDocuments republishes diagnostics for every open document
// after the workspace changed.
func (s *Server) refreshOpenDocuments() {
	for _, uri := range s.documents.List() {
		doc := s.documents.Get(uri)
		if doc == nil {
			continue
		}
		parsed := s.provider.GetOrParse(doc.URI, doc.Path, doc.Content, doc.Seq)
		if parsed.Dialect == provider.DialectProse {
			s.lint(doc)
			continue
		}
		s.publishDocument(doc, parsed)
	}
}
