// Package server implements a language server for COW source files.
package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/moo/compiler"
	"github.com/chazu/moo/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "moo-lsp"

var log = commonlog.GetLogger("moo.server")

// LspServer answers editor requests for .cow documents. Analysis is pure, so
// handlers share nothing but the document store.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new language server.
func NewLSP(version string) *LspServer {
	s := &LspServer{
		docs:    make(map[string]string),
		version: version,
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Infof("%s %s initializing", lspName, s.version)

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	log.Infof("%s shutting down", lspName)
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return complete(extractPrefix(text, params.Position)), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return hover(text, params.Position), nil
}

// complete offers every instruction token starting with prefix.
func complete(prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	for _, op := range vm.AllOpcodes() {
		info := vm.GetOpcodeInfo(op)
		if !strings.HasPrefix(info.Token, prefix) {
			continue
		}
		kind := protocol.CompletionItemKindKeyword
		detail := info.Name
		token := info.Token
		items = append(items, protocol.CompletionItem{
			Label:         token,
			Kind:          &kind,
			Detail:        &detail,
			Documentation: info.Doc,
			InsertText:    &token,
		})
	}
	return items
}

// hover describes the instruction token under pos, if any. The whole
// document is lexed because whether a run of letters forms a token depends
// on everything before it.
func hover(text string, pos protocol.Position) *protocol.Hover {
	tok, ok := tokenAt(text, compiler.Lex(text), pos)
	if !ok {
		return nil
	}
	info := vm.GetOpcodeInfo(tok.Op)

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** `%s` (ordinal %d)\n\n", info.Token, info.Name, int(tok.Op))
	b.WriteString(info.Doc)

	r := tokenRange(text, tok)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
		Range: &r,
	}
}

// tokenAt finds the token covering pos. A cursor just after a token counts.
func tokenAt(text string, toks []compiler.Token, pos protocol.Position) (compiler.Token, bool) {
	line := int(pos.Line) + 1
	col := byteColumn(lineAt(text, int(pos.Line)), int(pos.Character)) + 1
	for _, t := range toks {
		if t.Pos.Line != line {
			continue
		}
		if col >= t.Start().Column && col <= t.Pos.Column+1 {
			return t, true
		}
	}
	return compiler.Token{}, false
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := diagnose(text)
	log.Debugf("%s: %d diagnostics", uri, len(diagnostics))

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// diagnose reports loop nesting errors at the offending token.
func diagnose(text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	err := compiler.Check(text)
	if err == nil {
		return diagnostics
	}

	var rng protocol.Range
	var perr *compiler.ParseError
	if errors.As(err, &perr) && perr.Pos != nil {
		rng = tokenRange(text, compiler.Token{Pos: *perr.Pos})
	}

	severity := protocol.DiagnosticSeverityError
	source := lspName
	return append(diagnostics, protocol.Diagnostic{
		Range:    rng,
		Severity: &severity,
		Source:   &source,
		Message:  err.Error(),
	})
}

// tokenRange converts a token's 1-based byte position to an LSP range.
// LSP characters count UTF-16 code units, so text is needed to convert.
func tokenRange(text string, t compiler.Token) protocol.Range {
	start := t.Start()
	line := lineAt(text, t.Pos.Line-1)
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(start.Line - 1), Character: protocol.UInteger(utf16Column(line, start.Column-1))},
		End:   protocol.Position{Line: protocol.UInteger(t.Pos.Line - 1), Character: protocol.UInteger(utf16Column(line, t.Pos.Column))},
	}
}

// lineAt returns the 0-based line n of text, or "" past the end.
func lineAt(text string, n int) string {
	for i := 0; i < n; i++ {
		nl := strings.IndexByte(text, '\n')
		if nl < 0 {
			return ""
		}
		text = text[nl+1:]
	}
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[:nl]
	}
	return text
}

// utf16Column converts a 0-based byte offset in line to UTF-16 code units.
func utf16Column(line string, byteCol int) int {
	units := 0
	for i, r := range line {
		if i >= byteCol {
			break
		}
		units += utf16.RuneLen(r)
	}
	return units
}

// byteColumn converts a 0-based UTF-16 offset in line to a byte offset.
func byteColumn(line string, units int) int {
	n := 0
	for i, r := range line {
		if n >= units {
			return i
		}
		n += utf16.RuneLen(r)
	}
	return len(line)
}

// --- Text extraction helpers ---

// extractPrefix returns the run of token letters before the cursor, capped at
// one token's length.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := byteColumn(line, int(pos.Character))

	start := col
	for start > 0 && col-start < compiler.TokenLen && isTokenLetter(line[start-1]) {
		start--
	}
	return line[start:col]
}

func isTokenLetter(c byte) bool {
	switch c {
	case 'm', 'o', 'M', 'O':
		return true
	}
	return false
}

func boolPtr(b bool) *bool {
	return &b
}
