// Package provider caches parsed documents and schedules reparses.
//
// Edits to one document are debounced; a newer edit cancels the pending
// unit of the older one. Results are committed keyed by edit sequence
// number, so a slow parse of an old edit never replaces a newer result.
package provider

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/vale-ls/internal/observability"
)

// Config configures a Provider.
type Config struct {
	// Debounce is the quiet period before a scheduled reparse runs.
	Debounce time.Duration
	// OnParsed is called after a scheduled reparse is committed.
	OnParsed func(*ParsedDocument)
	Logger   *slog.Logger
}

type pending struct {
	seq    int
	timer  *time.Timer
	cancel context.CancelFunc
}

// Provider caches parsed documents keyed by URI.
type Provider struct {
	documents   map[string]*ParsedDocument
	pending     map[string]*pending
	documentsMu sync.RWMutex

	debounce time.Duration
	onParsed func(*ParsedDocument)
	logger   *slog.Logger

	wg     sync.WaitGroup
	closed bool
}

// New creates a Provider.
func New(cfg Config) *Provider {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Provider{
		documents: make(map[string]*ParsedDocument),
		pending:   make(map[string]*pending),
		debounce:  cfg.Debounce,
		onParsed:  cfg.OnParsed,
		logger:    logger,
	}
}

// GetOrParse returns the cached document when it is at least as new as seq,
// otherwise parses content synchronously and commits it.
func (p *Provider) GetOrParse(uri, path, content string, seq int) *ParsedDocument {
	p.documentsMu.RLock()
	doc, exists := p.documents[uri]
	if exists && doc.Seq >= seq {
		p.documentsMu.RUnlock()
		return doc
	}
	p.documentsMu.RUnlock()

	parsed := p.parse(uri, path, content, seq)

	p.documentsMu.Lock()
	defer p.documentsMu.Unlock()

	// Double-check after acquiring write lock
	doc, exists = p.documents[uri]
	if exists && doc.Seq >= seq {
		return doc
	}
	p.documents[uri] = parsed
	return parsed
}

// Schedule queues a reparse of content after the debounce period. A pending
// reparse of the same document is cancelled.
func (p *Provider) Schedule(uri, path, content string, seq int) {
	p.documentsMu.Lock()
	defer p.documentsMu.Unlock()
	if p.closed {
		return
	}

	if prev, ok := p.pending[uri]; ok {
		if prev.seq > seq {
			observability.ReparsesSuperseded.Inc()
			return
		}
		p.stop(prev)
		observability.ReparsesSuperseded.Inc()
	}

	ctx, cancel := context.WithCancel(context.Background())
	u := &pending{seq: seq, cancel: cancel}
	p.wg.Add(1)
	u.timer = time.AfterFunc(p.debounce, func() {
		defer p.wg.Done()
		p.run(ctx, uri, path, content, seq)
	})
	p.pending[uri] = u
}

// stop cancels a pending unit. The caller holds documentsMu.
func (p *Provider) stop(u *pending) {
	u.cancel()
	if u.timer.Stop() {
		p.wg.Done()
	}
}

func (p *Provider) run(ctx context.Context, uri, path, content string, seq int) {
	if ctx.Err() != nil {
		return
	}
	doc := p.parse(uri, path, content, seq)

	p.documentsMu.Lock()
	if u, ok := p.pending[uri]; ok && u.seq == seq {
		delete(p.pending, uri)
	}
	if ctx.Err() != nil {
		p.documentsMu.Unlock()
		p.logger.Debug("Dropped cancelled reparse", "uri", uri, "seq", seq)
		return
	}
	if cur, ok := p.documents[uri]; ok && cur.Seq >= seq {
		p.documentsMu.Unlock()
		observability.ReparsesSuperseded.Inc()
		p.logger.Debug("Dropped stale reparse", "uri", uri, "seq", seq, "committed", cur.Seq)
		return
	}
	p.documents[uri] = doc
	p.documentsMu.Unlock()

	if p.onParsed != nil {
		p.onParsed(doc)
	}
}

func (p *Provider) parse(uri, path, content string, seq int) *ParsedDocument {
	start := time.Now()
	doc := Parse(uri, path, content, seq)
	observability.ReparseDuration.WithLabelValues(doc.Dialect.String()).Observe(time.Since(start).Seconds())
	p.logger.Debug("Parsed document", "uri", uri, "seq", seq, "dialect", doc.Dialect.String(), "duration", time.Since(start))
	return doc
}

// Get returns a cached ParsedDocument without parsing.
// Returns nil if not cached.
func (p *Provider) Get(uri string) *ParsedDocument {
	p.documentsMu.RLock()
	defer p.documentsMu.RUnlock()
	return p.documents[uri]
}

// Documents returns every cached document.
func (p *Provider) Documents() []*ParsedDocument {
	p.documentsMu.RLock()
	defer p.documentsMu.RUnlock()
	out := make([]*ParsedDocument, 0, len(p.documents))
	for _, d := range p.documents {
		out = append(out, d)
	}
	return out
}

// Invalidate removes a document from the cache and cancels its pending
// reparse.
func (p *Provider) Invalidate(uri string) {
	p.documentsMu.Lock()
	defer p.documentsMu.Unlock()
	if u, ok := p.pending[uri]; ok {
		p.stop(u)
		delete(p.pending, uri)
	}
	delete(p.documents, uri)
}

// InvalidateAll clears the entire document cache.
func (p *Provider) InvalidateAll() {
	p.documentsMu.Lock()
	defer p.documentsMu.Unlock()
	for uri, u := range p.pending {
		p.stop(u)
		delete(p.pending, uri)
	}
	p.documents = make(map[string]*ParsedDocument)
}

// Wait blocks until every scheduled reparse has run or been cancelled.
func (p *Provider) Wait() {
	p.wg.Wait()
}

// Close cancels pending reparses and waits for running ones.
func (p *Provider) Close() {
	p.documentsMu.Lock()
	p.closed = true
	for uri, u := range p.pending {
		p.stop(u)
		delete(p.pending, uri)
	}
	p.documentsMu.Unlock()
	p.wg.Wait()
}
