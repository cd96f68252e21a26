package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leapstack-labs/vale-ls/internal/assets"
	"github.com/leapstack-labs/vale-ls/internal/assetsync"
	"github.com/leapstack-labs/vale-ls/internal/config"
	"github.com/leapstack-labs/vale-ls/internal/engine"
	"github.com/leapstack-labs/vale-ls/internal/observability"
	"github.com/leapstack-labs/vale-ls/internal/provider"
	"github.com/leapstack-labs/vale-ls/internal/state"
	"github.com/leapstack-labs/vale-ls/internal/watcher"
	"github.com/leapstack-labs/vale-ls/internal/workspace"
)

// ErrExitWithoutShutdown is returned by Run when the client sent exit
// without a prior shutdown request.
var ErrExitWithoutShutdown = errors.New("exit received before shutdown")

// Linter checks prose documents.
type Linter interface {
	Lint(ctx context.Context, path, text string) ([]engine.Alert, error)
}

// Options configures a Server. Every field is optional.
type Options struct {
	Logger *slog.Logger
	// Settings replaces the settings file lookup in the workspace root.
	// initializationOptions still apply on top.
	Settings *config.Settings
	// Linter replaces the linter subprocess.
	Linter Linter
	// Source replaces the remote package source.
	Source assetsync.Source
	// Version is reported in serverInfo.
	Version string
}

// Server implements the Language Server Protocol for Vale.
type Server struct {
	// Document management
	documents *DocumentStore

	// Parsed documents, reparsed on a debounce after each edit
	provider *provider.Provider

	// Project state
	ws          *workspace.Workspace
	published   atomic.Pointer[workspace.Workspace] // ws, for readers off the message loop
	settings    config.Settings
	projectRoot string
	initialized bool
	opts        Options

	// Services bound to the current StylesPath
	backendMu    sync.RWMutex
	bound        bool
	stylesPath   string
	linter       Linter
	synchronizer *assetsync.Synchronizer
	store        *state.SQLiteStore
	source       assetsync.Source
	watchCancel  context.CancelFunc
	watchDone    chan struct{}

	// Background work
	ctx          context.Context
	cancel       context.CancelFunc
	bg           sync.WaitGroup
	lintMu       sync.Mutex
	lints        map[string]context.CancelFunc
	notInstalled sync.Once

	// I/O
	reader  *bufio.Reader
	writer  io.Writer
	writeMu sync.Mutex

	// Logging
	logger *slog.Logger

	// Shutdown state
	shutdown   bool
	exited     bool
	shutdownMu sync.RWMutex
}

// NewServer creates a new LSP server instance.
func NewServer(reader io.Reader, writer io.Writer) *Server {
	return NewServerWithOptions(reader, writer, Options{})
}

// NewServerWithLogger creates a new LSP server instance with a custom logger.
func NewServerWithLogger(reader io.Reader, writer io.Writer, logger *slog.Logger) *Server {
	return NewServerWithOptions(reader, writer, Options{Logger: logger})
}

// NewServerWithOptions creates a new LSP server instance.
func NewServerWithOptions(reader io.Reader, writer io.Writer, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		documents: NewDocumentStore(),
		reader:    bufio.NewReader(reader),
		writer:    writer,
		logger:    logger,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		lints:     make(map[string]context.CancelFunc),
	}
}

// Run starts the server's main loop, processing JSON-RPC messages until the
// client sends exit or closes the stream.
func (s *Server) Run() error {
	s.logger.Info("vale-ls server starting...")
	defer s.close()

	for {
		s.shutdownMu.RLock()
		exited, shutdown := s.exited, s.shutdown
		s.shutdownMu.RUnlock()
		if exited {
			if !shutdown {
				return ErrExitWithoutShutdown
			}
			return nil
		}

		// Read message
		msg, err := s.readMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.Info("Client disconnected")
				return nil
			}
			s.logger.Error("Error reading message", "error", err)
			continue
		}

		// Handle message
		if err := s.dispatch(msg); err != nil {
			s.logger.Error("Error handling message", "method", msg.Method, "error", err)
		}
	}
}

// JSONRPCMessage represents a JSON-RPC 2.0 message.
type JSONRPCMessage struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *JSONRPCError    `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON-RPC error codes.
const (
	codeInvalidParams  = -32602
	codeMethodNotFound = -32601
	codeInternalError  = -32603
	codeNotInitialized = -32002
)

// readMessage reads a JSON-RPC message from the input stream.
func (s *Server) readMessage() (*JSONRPCMessage, error) {
	// Read headers
	var contentLength int
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break // End of headers
		}

		if name, value, ok := strings.Cut(line, ":"); ok && strings.EqualFold(name, "Content-Length") {
			contentLength, err = strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length: %w", err)
			}
		}
	}

	if contentLength == 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	// Read body
	body := make([]byte, contentLength)
	_, err := io.ReadFull(s.reader, body)
	if err != nil {
		return nil, fmt.Errorf("error reading body: %w", err)
	}

	// Parse message
	var msg JSONRPCMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("error parsing message: %w", err)
	}

	return &msg, nil
}

// sendResponse sends a JSON-RPC response.
func (s *Server) sendResponse(id *json.RawMessage, result any, err *JSONRPCError) {
	msg := JSONRPCMessage{
		JSONRPC: "2.0",
		ID:      id,
	}

	if err != nil {
		msg.Error = err
	} else {
		resultBytes, _ := json.Marshal(result)
		msg.Result = resultBytes
	}

	s.writeMessage(&msg)
}

// sendNotification sends a JSON-RPC notification (no ID).
func (s *Server) sendNotification(method string, params any) {
	msg := JSONRPCMessage{
		JSONRPC: "2.0",
		Method:  method,
	}

	if params != nil {
		paramsBytes, _ := json.Marshal(params)
		msg.Params = paramsBytes
	}

	s.writeMessage(&msg)
}

// writeMessage writes a JSON-RPC message to the output stream.
func (s *Server) writeMessage(msg *JSONRPCMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	body, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Error marshaling message", "error", err)
		return
	}

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	_, _ = s.writer.Write([]byte(header))
	_, _ = s.writer.Write(body)
}

func (s *Server) showMessage(typ MessageType, message string) {
	s.sendNotification("window/showMessage", &ShowMessageParams{Type: typ, Message: message})
}

func invalidParams(err error) *JSONRPCError {
	return &JSONRPCError{Code: codeInvalidParams, Message: err.Error()}
}

// dispatch handles one message. A panicking handler is logged and, for
// requests, answered with an internal error; the server keeps running.
func (s *Server) dispatch(msg *JSONRPCMessage) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Handler panicked", "method", msg.Method, "panic", r, "stack", string(debug.Stack()))
			if msg.ID != nil {
				s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInternalError, Message: fmt.Sprintf("internal error: %v", r)})
			}
			err = fmt.Errorf("panic in %s: %v", msg.Method, r)
		}
		observability.RequestDuration.WithLabelValues(msg.Method).Observe(time.Since(start).Seconds())
	}()
	return s.handleMessage(msg)
}

// handleMessage dispatches a message to the appropriate handler.
func (s *Server) handleMessage(msg *JSONRPCMessage) error {
	s.logger.Debug("Received", "method", msg.Method)

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return s.handleInitialized(msg)
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		return s.handleExit(msg)
	}

	if !s.initialized {
		if msg.ID != nil {
			s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeNotInitialized, Message: "server not initialized"})
		}
		return nil
	}

	switch msg.Method {
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/completion":
		return s.handleCompletion(msg)
	case "textDocument/hover":
		return s.handleHover(msg)
	case "textDocument/documentLink":
		return s.handleDocumentLink(msg)
	case "textDocument/codeAction":
		return s.handleCodeAction(msg)
	case "workspace/executeCommand":
		return s.handleExecuteCommand(msg)
	case "workspace/didChangeWatchedFiles":
		return s.handleDidChangeWatchedFiles(msg)
	default:
		if msg.ID != nil {
			// Unknown method with ID - respond with method not found
			s.sendResponse(msg.ID, nil, &JSONRPCError{
				Code:    codeMethodNotFound,
				Message: "Method not found: " + msg.Method,
			})
		}
		return nil
	}
}

// --- Lifecycle handlers ---

func (s *Server) handleInitialize(msg *JSONRPCMessage) error {
	var params InitializeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, invalidParams(err))
		return err
	}

	s.projectRoot = projectRoot(params)
	s.logger.Info("Project root", "path", s.projectRoot)

	s.settings = s.loadSettings(params.InitializationOptions)
	s.provider = provider.New(provider.Config{
		Debounce: s.settings.Debounce,
		OnParsed: s.onParsed,
		Logger:   s.logger,
	})

	ws, err := workspace.New(workspace.Config{
		Root:     s.projectRoot,
		Settings: s.settings,
		Linter:   s.discoveryLinter(),
		Logger:   s.logger,
	})
	if err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInternalError, Message: err.Error()})
		return err
	}
	s.ws = ws
	s.published.Store(ws)

	snap, err := ws.Load(s.ctx)
	if err != nil {
		s.logger.Warn("Failed to load workspace", "error", err)
	}
	s.bind(snap)

	result := InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: &TextDocumentSyncOptions{
				OpenClose: true,
				Change:    TextDocumentSyncKindFull,
				Save: &SaveOptions{
					IncludeText: true,
				},
			},
			CompletionProvider: &CompletionOptions{
				TriggerCharacters: []string{"=", ",", " ", ":", "."},
			},
			HoverProvider:        true,
			DocumentLinkProvider: &DocumentLinkOptions{},
			CodeActionProvider: &CodeActionOptions{
				CodeActionKinds: []CodeActionKind{CodeActionKindQuickFix},
			},
			ExecuteCommandProvider: &ExecuteCommandOptions{Commands: Commands},
		},
		ServerInfo: &ServerInfo{Name: "vale-ls", Version: s.opts.Version},
	}

	s.sendResponse(msg.ID, result, nil)
	return nil
}

// projectRoot picks the workspace directory from the initialize request.
func projectRoot(params InitializeParams) string {
	switch {
	case params.RootURI != "":
		return URIToPath(params.RootURI)
	case params.RootPath != "":
		return params.RootPath
	case len(params.WorkspaceFolders) > 0:
		return URIToPath(params.WorkspaceFolders[0].URI)
	}
	wd, _ := os.Getwd()
	return wd
}

// loadSettings reads the settings file in the project root, then applies
// the client's initializationOptions.
func (s *Server) loadSettings(raw any) config.Settings {
	var settings config.Settings
	switch {
	case s.opts.Settings != nil:
		settings = *s.opts.Settings
	default:
		loaded, err := config.LoadFromDir(s.projectRoot)
		if err != nil {
			s.logger.Warn("Failed to load settings, using defaults", "error", err)
			loaded = &config.Settings{}
		}
		settings = *loaded
	}
	settings.ApplyDefaults()

	withClient, err := settings.WithClientOptions(raw)
	if err != nil {
		s.logger.Warn("Ignoring initialization options", "error", err)
		return settings
	}
	withClient.ResolvePaths(s.projectRoot)
	return withClient
}

// discoveryLinter asks the linter for StylesPath when nothing names one.
func (s *Server) discoveryLinter() workspace.LinterConfig {
	if lc, ok := s.opts.Linter.(workspace.LinterConfig); ok {
		return lc
	}
	if s.opts.Linter != nil {
		return nil
	}
	return engine.New(engine.Config{
		Path:       s.settings.LinterPath,
		ConfigPath: s.settings.ConfigPath,
		Logger:     s.logger,
	})
}

func (s *Server) handleInitialized(_ *JSONRPCMessage) error {
	s.initialized = true
	s.logger.Info("Server initialized")

	snap := s.ws.Snapshot()
	if snap.ConfigPath == "" {
		s.showMessage(MessageTypeWarning, "No .vale.ini found. Create one to configure Vale for this project.")
	}

	s.background("refresh catalogue", func(ctx context.Context) error {
		src := s.currentSource()
		if src == nil {
			return nil
		}
		return s.ws.RefreshCatalog(ctx, src)
	})

	if s.settings.InstallVale && !s.linterInstalled() {
		s.runInstall("")
	}
	if s.settings.SyncOnStartup && snap.Config != nil && len(snap.Config.Packages()) > 0 {
		s.runSync()
	}
	return nil
}

func (s *Server) handleShutdown(msg *JSONRPCMessage) error {
	s.shutdownMu.Lock()
	s.shutdown = true
	s.shutdownMu.Unlock()

	s.close()

	s.sendResponse(msg.ID, nil, nil)
	s.logger.Info("Server shutdown")
	return nil
}

func (s *Server) handleExit(_ *JSONRPCMessage) error {
	s.shutdownMu.Lock()
	s.exited = true
	s.shutdownMu.Unlock()
	s.logger.Info("Server exit")
	return nil
}

// close stops background work and releases the registry. It is safe to
// call more than once.
func (s *Server) close() {
	s.cancel()
	s.backendMu.Lock()
	s.stopWatcher()
	s.backendMu.Unlock()

	if s.provider != nil {
		s.provider.Close()
	}
	s.bg.Wait()

	s.backendMu.Lock()
	defer s.backendMu.Unlock()
	if s.store != nil {
		_ = s.store.Close()
		s.store = nil
	}
}

// --- Document handlers ---

func (s *Server) handleDidOpen(msg *JSONRPCMessage) error {
	var params DidOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	doc := s.documents.Open(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
	s.logger.Debug("Opened", "uri", doc.URI)

	s.commit(s.provider.GetOrParse(doc.URI, doc.Path, doc.Content, doc.Seq))
	return nil
}

func (s *Server) handleDidClose(msg *JSONRPCMessage) error {
	var params DidCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	uri := params.TextDocument.URI
	s.documents.Close(uri)
	s.provider.Invalidate(uri)
	s.cancelLint(uri)
	s.logger.Debug("Closed", "uri", uri)

	if _, err := s.ws.CloseDocument(s.ctx, URIToPath(uri)); err != nil {
		s.logger.Warn("Failed to reload closed document", "uri", uri, "error", err)
	}

	// Clear diagnostics
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []Diagnostic{},
	})

	return nil
}

func (s *Server) handleDidChange(msg *JSONRPCMessage) error {
	var params DidChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	// We use full sync, so take the last change
	if len(params.ContentChanges) == 0 {
		return nil
	}
	lastChange := params.ContentChanges[len(params.ContentChanges)-1]
	doc := s.documents.Update(params.TextDocument.URI, lastChange.Text, params.TextDocument.Version)
	if doc == nil {
		return fmt.Errorf("change for unopened document %s", params.TextDocument.URI)
	}

	s.provider.Schedule(doc.URI, doc.Path, doc.Content, doc.Seq)
	return nil
}

func (s *Server) handleDidSave(msg *JSONRPCMessage) error {
	var params DidSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return nil
	}
	if params.Text != "" && params.Text != doc.Content {
		doc = s.documents.Update(doc.URI, params.Text, doc.Version)
	}
	s.logger.Debug("Saved", "path", doc.Path)

	s.commit(s.provider.GetOrParse(doc.URI, doc.Path, doc.Content, doc.Seq))
	return nil
}

// onParsed receives debounced reparses from the provider.
func (s *Server) onParsed(parsed *provider.ParsedDocument) {
	s.commit(parsed)
}

// commit feeds a parsed document into the workspace and publishes its
// diagnostics. Prose documents are linted instead.
func (s *Server) commit(parsed *provider.ParsedDocument) {
	doc := s.documents.Get(parsed.URI)
	if doc == nil || doc.Seq != parsed.Seq {
		return
	}

	switch parsed.Dialect {
	case provider.DialectProse:
		s.lint(doc)
		return
	case provider.DialectINI:
		before := s.ws.Snapshot().StylesPath
		snap, err := s.ws.UpdateConfig(s.ctx, parsed.INI)
		if err != nil {
			s.logger.Warn("Failed to apply configuration", "uri", doc.URI, "error", err)
		}
		if snap != nil && snap.StylesPath != before {
			s.bind(snap)
			s.refreshOpenDocuments()
			return
		}
	case provider.DialectRule:
		if _, err := s.ws.UpdateRule(s.ctx, doc.Path, parsed.Rule); err != nil {
			s.logger.Warn("Failed to apply rule", "uri", doc.URI, "error", err)
		}
	}
	s.publishDocument(doc, parsed)
}

// --- Workspace events ---

func (s *Server) handleDidChangeWatchedFiles(msg *JSONRPCMessage) error {
	var params DidChangeWatchedFilesParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	changes := make([]workspace.Change, 0, len(params.Changes))
	for _, ev := range params.Changes {
		kind := assets.Changed
		switch ev.Type {
		case FileChangeTypeCreated:
			kind = assets.Created
		case FileChangeTypeDeleted:
			kind = assets.Deleted
		}
		changes = append(changes, workspace.Change{Path: URIToPath(ev.URI), Kind: kind})
	}
	s.applyChanges(s.ctx, changes)
	return nil
}

// applyChanges folds file events into the workspace and refreshes open
// documents when anything changed.
func (s *Server) applyChanges(ctx context.Context, changes []workspace.Change) {
	if len(changes) == 0 {
		return
	}
	before := s.ws.Snapshot()
	snap, impacted, err := s.ws.ApplyChanges(ctx, changes)
	if err != nil {
		s.logger.Warn("Some changes could not be applied", "error", err)
	}
	if snap == before {
		return
	}
	s.logger.Debug("Workspace updated", "seq", snap.Seq, "impacted", impacted)
	if snap.StylesPath != before.StylesPath || snap.ConfigPath != before.ConfigPath {
		s.bind(snap)
	}
	s.refreshOpenDocuments()
}

// --- Backend ---

// bind attaches the registry, linter, synchronizer and file watcher to the
// snapshot's StylesPath. It does nothing when StylesPath is unchanged.
func (s *Server) bind(snap *workspace.Snapshot) {
	s.backendMu.Lock()
	if s.bound && snap.StylesPath == s.stylesPath {
		s.restartWatcher(snap)
		s.backendMu.Unlock()
		return
	}
	s.bound = true
	s.stylesPath = snap.StylesPath

	if s.store != nil {
		_ = s.store.Close()
		s.store = nil
	}
	var store state.Store
	if snap.StylesPath != "" {
		if opened, err := s.openStore(snap.StylesPath); err != nil {
			s.logger.Warn("Installed package registry unavailable", "error", err)
		} else {
			s.store = opened
			store = opened
		}
	}

	if s.source == nil {
		s.source = s.opts.Source
		if s.source == nil {
			s.source = assetsync.NewHTTPSource(assetsync.SourceConfig{
				ReleasesURL:   s.settings.Sources.ReleasesURL,
				LatestURL:     s.settings.Sources.LatestURL,
				PackagesURL:   s.settings.Sources.PackagesURL,
				LibraryURL:    s.settings.Sources.LibraryURL,
				RatePerSecond: s.settings.Sources.RatePerSecond,
				UserAgent:     "vale-ls/" + s.opts.Version,
			})
		}
	}

	var runner *engine.Runner
	s.linter = s.opts.Linter
	if s.linter == nil {
		managed := ""
		if snap.StylesPath != "" {
			managed = filepath.Join(snap.StylesPath, filepath.FromSlash(assets.BinDir), assetsync.HostExecutableName())
		}
		runner = engine.New(engine.Config{
			ManagedPath: managed,
			Path:        s.settings.LinterPath,
			ConfigPath:  s.settings.ConfigPath,
			Filter:      s.settings.Filter,
			Logger:      s.logger,
		})
		s.linter = runner
	}

	s.synchronizer = nil
	if snap.StylesPath != "" {
		cfg := assetsync.Config{
			StylesPath:      snap.StylesPath,
			Source:          s.source,
			Store:           store,
			AllowUnverified: s.settings.AllowUnverified,
			Logger:          s.logger,
		}
		if runner != nil {
			cfg.CurrentVersion = runner.Version
		}
		s.synchronizer = assetsync.New(cfg)
	}

	s.restartWatcher(snap)
	s.backendMu.Unlock()

	if _, err := s.ws.SetStore(s.ctx, store); err != nil {
		s.logger.Warn("Failed to read installed packages", "error", err)
	}
	s.logger.Info("Bound StylesPath", "path", snap.StylesPath)
}

func (s *Server) openStore(stylesPath string) (*state.SQLiteStore, error) {
	dir := filepath.Join(stylesPath, filepath.FromSlash(assets.StateDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	store := state.NewSQLiteStore(s.logger)
	if err := store.Open(filepath.Join(dir, config.DefaultStateFile)); err != nil {
		return nil, err
	}
	return store, nil
}

// restartWatcher watches StylesPath and the configuration file of snap.
// The caller holds backendMu.
func (s *Server) restartWatcher(snap *workspace.Snapshot) {
	s.stopWatcher()

	cfg := watcher.Config{Debounce: watcher.DefaultDebounce, Logger: s.logger}
	if snap.StylesPath != "" {
		cfg.Dirs = append(cfg.Dirs, snap.StylesPath)
	}
	if snap.ConfigPath != "" {
		cfg.Files = append(cfg.Files, snap.ConfigPath)
	} else {
		for _, name := range config.ValeConfigNames {
			cfg.Files = append(cfg.Files, filepath.Join(s.projectRoot, name))
		}
	}

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	w := watcher.New(cfg, s.applyChanges)
	go func() {
		defer close(done)
		if err := w.Run(ctx); err != nil {
			s.logger.Warn("File watcher stopped", "error", err)
		}
	}()
	s.watchCancel = cancel
	s.watchDone = done
}

// stopWatcher stops the running watcher. The caller holds backendMu.
func (s *Server) stopWatcher() {
	if s.watchCancel == nil {
		return
	}
	s.watchCancel()
	<-s.watchDone
	s.watchCancel = nil
	s.watchDone = nil
}

func (s *Server) currentLinter() Linter {
	s.backendMu.RLock()
	defer s.backendMu.RUnlock()
	return s.linter
}

func (s *Server) currentSynchronizer() *assetsync.Synchronizer {
	s.backendMu.RLock()
	defer s.backendMu.RUnlock()
	return s.synchronizer
}

func (s *Server) currentSource() assetsync.Source {
	s.backendMu.RLock()
	defer s.backendMu.RUnlock()
	return s.source
}

// Health reports the server state for the metrics endpoint.
func (s *Server) Health(_ context.Context) observability.Health {
	ws := s.published.Load()
	if ws == nil {
		return observability.Health{Status: "starting"}
	}
	s.shutdownMu.RLock()
	down := s.shutdown
	s.shutdownMu.RUnlock()
	if down {
		return observability.Health{Status: "shutdown"}
	}
	snap := ws.Snapshot()
	counts := map[string]int{}
	for _, k := range []assets.Kind{assets.KindStylePackage, assets.KindRuleFile, assets.KindVocabFile, assets.KindBinaryArtifact} {
		counts[k.String()] = snap.Index.Count(k)
	}
	return observability.Health{Status: "up", Snapshot: snap.Seq, Assets: counts}
}

func (s *Server) linterInstalled() bool {
	r, ok := s.currentLinter().(*engine.Runner)
	return !ok || r.Installed()
}

// background runs fn on its own goroutine, bounded by the server's
// lifetime.
func (s *Server) background(name string, fn func(ctx context.Context) error) {
	if s.ctx.Err() != nil {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		if err := fn(s.ctx); err != nil && s.ctx.Err() == nil {
			s.logger.Warn("Background task failed", "task", name, "error", err)
		}
	}()
}

// --- Feature handlers ---

// request gathers what a feature provider reads for one document.
type request struct {
	doc     *Document
	parsed  *provider.ParsedDocument
	snap    *workspace.Snapshot
	catalog []assetsync.CatalogEntry
}

func (s *Server) request(uri string) (request, bool) {
	doc := s.documents.Get(uri)
	if doc == nil {
		return request{}, false
	}
	return request{
		doc:     doc,
		parsed:  s.provider.GetOrParse(doc.URI, doc.Path, doc.Content, doc.Seq),
		snap:    s.ws.Snapshot(),
		catalog: s.ws.Catalog(),
	}, true
}

func (s *Server) handleCompletion(msg *JSONRPCMessage) error {
	var params CompletionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, invalidParams(err))
		return err
	}

	items := []CompletionItem{}
	if r, ok := s.request(params.TextDocument.URI); ok {
		items = append(items, complete(r, params.Position)...)
	}
	s.sendResponse(msg.ID, &CompletionList{Items: items}, nil)
	return nil
}

func (s *Server) handleHover(msg *JSONRPCMessage) error {
	var params HoverParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, invalidParams(err))
		return err
	}

	var result *Hover
	if r, ok := s.request(params.TextDocument.URI); ok {
		result = hover(r, params.Position)
	}
	s.sendResponse(msg.ID, result, nil)
	return nil
}

func (s *Server) handleDocumentLink(msg *JSONRPCMessage) error {
	var params DocumentLinkParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, invalidParams(err))
		return err
	}

	links := []DocumentLink{}
	if r, ok := s.request(params.TextDocument.URI); ok {
		links = append(links, documentLinks(r)...)
	}
	s.sendResponse(msg.ID, links, nil)
	return nil
}

func (s *Server) handleCodeAction(msg *JSONRPCMessage) error {
	var params CodeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, invalidParams(err))
		return err
	}

	actions := []CodeAction{}
	if r, ok := s.request(params.TextDocument.URI); ok {
		actions = append(actions, codeActions(r, params.Context.Diagnostics)...)
	}
	s.sendResponse(msg.ID, actions, nil)
	return nil
}
