package lsp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"irpipe/internal/config"
	"irpipe/internal/ir"
)

var log = commonlog.GetLogger("irpipe.lsp")

// Define the set of supported semantic token types (as required by the LSP spec)
var SemanticTokenTypes = []string{
	"function",
	"parameter",
	"variable",
	"keyword",
	"operator",
	"number",
	"string",
	"comment",
	"label",
}

// Define the set of supported semantic token modifiers (for extra tagging like declaration, readonly, etc.)
var SemanticTokenModifiers = []string{
	"declaration",
	"readonly",
}

// IRHandler implements the LSP server handlers for textual IR files
type IRHandler struct {
	mu      sync.RWMutex
	content map[string]string
	configs map[string]*config.Config // per directory
}

// NewIRHandler creates and returns a new IRHandler instance
func NewIRHandler() *IRHandler {
	return &IRHandler{
		content: make(map[string]string),
		configs: make(map[string]*config.Config),
	}
}

// Initialize responds to the LSP client's initialize request and advertises the server's capabilities
func (h *IRHandler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("LSP Initialize called")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true), // notify on open/close events
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			CompletionProvider: &protocol.CompletionOptions{
				ResolveProvider: ptrBool(false),
			},
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true), // support full-document semantic token requests
			},
		},
	}, nil
}

// Initialized is called after the client receives the server's capabilities and completes initialization
func (h *IRHandler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Info("irpipe LSP Initialized")
	return nil
}

// Shutdown handles the LSP shutdown request
func (h *IRHandler) Shutdown(ctx *glsp.Context) error {
	log.Info("irpipe LSP Shutdown")
	return nil
}

// SetTrace accepts trace level changes; logging is configured at startup
func (h *IRHandler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	log.Debugf("trace set to %s", params.Value)
	return nil
}

// TextDocumentDidOpen handles file open notifications from the editor
func (h *IRHandler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	log.Infof("Opened file: %s", params.TextDocument.URI)

	diagnostics, err := h.update(params.TextDocument.URI, &params.TextDocument.Text)
	if err != nil {
		return fmt.Errorf("failed to analyze document: %w", err)
	}

	sendDiagnosticNotification(ctx, params.TextDocument.URI, diagnostics)
	return nil
}

// TextDocumentDidClose handles file close notifications from the editor
func (h *IRHandler) TextDocumentDidClose(context *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	log.Infof("Closed file: %s", params.TextDocument.URI)

	rawURI := params.TextDocument.URI

	path, err := uriToPath(rawURI)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", rawURI, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.content, path)

	return nil
}

// TextDocumentDidChange handles file change notifications from the editor. The server asks
// for full-document sync, so the last change carries the whole text.
func (h *IRHandler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	log.Infof("Changed file: %s", params.TextDocument.URI)

	var text *string
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = &c.Text
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				text = &c.Text
			}
		}
	}

	diagnostics, err := h.update(params.TextDocument.URI, text)
	if err != nil {
		return fmt.Errorf("failed to analyze document: %w", err)
	}

	sendDiagnosticNotification(ctx, params.TextDocument.URI, diagnostics)
	return nil
}

// TextDocumentCompletion offers the operation names
func (h *IRHandler) TextDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (interface{}, error) {
	kind := protocol.CompletionItemKindOperator
	var items []protocol.CompletionItem
	for _, name := range opNames() {
		items = append(items, protocol.CompletionItem{Label: name, Kind: &kind})
	}
	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        items,
	}, nil
}

// TextDocumentSemanticTokensFull handles semantic token requests for the entire document
func (h *IRHandler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	log.Debugf("TextDocumentSemanticTokensFull called for: %s", params.TextDocument.URI)

	rawURI := params.TextDocument.URI

	path, err := uriToPath(rawURI)
	if err != nil {
		return nil, fmt.Errorf("failed to convert URI %s: %w", rawURI, err)
	}

	source, err := h.getOrLoad(ctx, path, rawURI)
	if err != nil {
		return nil, err
	}

	tokens := collectSemanticTokens(path, source)

	var data []uint32
	var prevLine, prevStart uint32

	// Encode tokens into LSP wire format (using delta-line, delta-start compression)
	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		var deltaStart uint32
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		} else {
			deltaStart = token.StartChar
		}

		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))

		prevLine = token.Line
		prevStart = token.StartChar
	}

	return &protocol.SemanticTokens{
		Data: data,
	}, nil
}

func (h *IRHandler) getOrLoad(ctx *glsp.Context, path string, rawURI protocol.DocumentUri) (string, error) {
	h.mu.RLock()
	source, ok := h.content[path]
	h.mu.RUnlock()

	if !ok {
		diagnostics, err := h.update(rawURI, nil)
		if err != nil {
			return "", err
		}

		h.mu.RLock()
		source = h.content[path]
		h.mu.RUnlock()

		sendDiagnosticNotification(ctx, rawURI, diagnostics)
	}

	return source, nil
}

// update stores the document text and analyzes it. A nil text reads the file from disk.
func (h *IRHandler) update(rawURI protocol.DocumentUri, text *string) ([]protocol.Diagnostic, error) {
	path, err := uriToPath(rawURI)
	if err != nil {
		return nil, fmt.Errorf("failed to convert URI %s: %w", rawURI, err)
	}

	var source string
	if text != nil {
		source = *text
	} else {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", path, err)
		}
		source = string(content)
	}

	h.mu.Lock()
	h.content[path] = source
	h.mu.Unlock()

	return Analyze(h.configFor(path), path, source), nil
}

// configFor finds the irpipe.toml governing path, falling back to defaults when it is broken
func (h *IRHandler) configFor(path string) *config.Config {
	dir := filepath.Dir(path)

	h.mu.RLock()
	cfg, ok := h.configs[dir]
	h.mu.RUnlock()
	if ok {
		return cfg
	}

	cfg, err := config.FindAndLoad(dir)
	if err != nil {
		log.Warningf("using default configuration for %s: %s", dir, err)
		cfg = config.Default()
	}

	h.mu.Lock()
	h.configs[dir] = cfg
	h.mu.Unlock()
	return cfg
}

// Convert URI to platform-local file path
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path

	// On Windows, remove leading slash (e.g., /C:/...) -> C:/...
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}

	// Normalize to platform-specific separators
	return filepath.FromSlash(path), nil
}

func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.URI, diagnostics []protocol.Diagnostic) {
	if ctx == nil || ctx.Notify == nil {
		return
	}

	diagnosticsJSON, err := json.MarshalIndent(diagnostics, "", "  ")
	if err != nil {
		log.Errorf("Failed to marshal diagnostics: %s", err)
		return
	}

	log.Debugf("Sending diagnostics: %s", diagnosticsJSON)

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func opNames() []string {
	ops := ir.Ops()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.String()
	}
	return names
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
