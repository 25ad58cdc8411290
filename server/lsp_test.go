package server

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ---------------------------------------------------------------------------
// LSP text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix_Partial(t *testing.T) {
	text := "MoO Mo"
	pos := protocol.Position{Line: 0, Character: 6}
	if prefix := extractPrefix(text, pos); prefix != "Mo" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "Mo")
	}
}

func TestExtractPrefix_CappedAtTokenLength(t *testing.T) {
	text := "MoOMo"
	pos := protocol.Position{Line: 0, Character: 5}
	if prefix := extractPrefix(text, pos); prefix != "OMo" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "OMo")
	}
}

func TestExtractPrefix_StopsAtOtherLetters(t *testing.T) {
	text := "cow mo"
	pos := protocol.Position{Line: 0, Character: 6}
	if prefix := extractPrefix(text, pos); prefix != "mo" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "mo")
	}
	pos.Character = 4
	if prefix := extractPrefix(text, pos); prefix != "" {
		t.Errorf("extractPrefix after space = %q, want empty", prefix)
	}
}

func TestExtractPrefix_MultiLine(t *testing.T) {
	text := "MoO\nMOO\nOO"
	pos := protocol.Position{Line: 2, Character: 2}
	if prefix := extractPrefix(text, pos); prefix != "OO" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "OO")
	}
}

func TestExtractPrefix_OutOfRange(t *testing.T) {
	if prefix := extractPrefix("moo", protocol.Position{Line: 5}); prefix != "" {
		t.Errorf("line beyond document = %q, want empty", prefix)
	}
	if prefix := extractPrefix("mo", protocol.Position{Line: 0, Character: 40}); prefix != "mo" {
		t.Errorf("column beyond line = %q, want %q", prefix, "mo")
	}
}

func TestBoolPtr(t *testing.T) {
	p := boolPtr(true)
	if p == nil || *p != true {
		t.Fatalf("boolPtr(true) = %v", p)
	}
}

// ---------------------------------------------------------------------------
// Language features
// ---------------------------------------------------------------------------

func TestLSP_Complete(t *testing.T) {
	tests := []struct {
		prefix string
		want   []string
	}{
		{"", nil},
		{"mo", []string{"moo", "moO"}},
		{"M", []string{"Moo", "MOo", "MoO", "MOO", "MMM"}},
		{"OOM", []string{"OOM"}},
		{"x", []string{}},
	}
	for _, tt := range tests {
		items := complete(tt.prefix)
		if tt.want == nil {
			if len(items) != 12 {
				t.Errorf("complete(%q) returned %d items, want 12", tt.prefix, len(items))
			}
			continue
		}
		if len(items) != len(tt.want) {
			t.Errorf("complete(%q) returned %d items, want %d", tt.prefix, len(items), len(tt.want))
			continue
		}
		for i, item := range items {
			if item.Label != tt.want[i] {
				t.Errorf("complete(%q)[%d] = %q, want %q", tt.prefix, i, item.Label, tt.want[i])
			}
			if item.Kind == nil || *item.Kind != protocol.CompletionItemKindKeyword {
				t.Errorf("%s: Kind should be Keyword", item.Label)
			}
		}
	}
}

func TestLSP_Hover(t *testing.T) {
	text := "MoO moo"

	h := hover(text, protocol.Position{Line: 0, Character: 1})
	if h == nil {
		t.Fatal("hover inside MoO returned nil")
	}
	content, ok := h.Contents.(protocol.MarkupContent)
	if !ok {
		t.Fatalf("Contents = %T, want MarkupContent", h.Contents)
	}
	if !strings.Contains(content.Value, "INCREMENT") || !strings.Contains(content.Value, "ordinal 6") {
		t.Errorf("hover text = %q", content.Value)
	}
	if h.Range == nil || h.Range.Start.Character != 0 || h.Range.End.Character != 3 {
		t.Errorf("hover range = %+v, want 0..3", h.Range)
	}

	h = hover(text, protocol.Position{Line: 0, Character: 5})
	if h == nil || !strings.Contains(h.Contents.(protocol.MarkupContent).Value, "LOOP_END") {
		t.Errorf("hover on moo = %+v", h)
	}
}

func TestLSP_Hover_NotOnToken(t *testing.T) {
	if h := hover("cows go MoO", protocol.Position{Line: 0, Character: 1}); h != nil {
		t.Errorf("hover on comment text = %+v, want nil", h)
	}
	if h := hover("MoO", protocol.Position{Line: 3, Character: 0}); h != nil {
		t.Errorf("hover past the end = %+v, want nil", h)
	}
}

func TestLSP_DiagnoseClean(t *testing.T) {
	diags := diagnose("MoO MOO MOo moo")
	if diags == nil || len(diags) != 0 {
		t.Errorf("diagnose = %v, want empty non-nil slice", diags)
	}
}

func TestLSP_DiagnoseUnmatched(t *testing.T) {
	tests := []struct {
		text    string
		message string
		rng     protocol.Range
	}{
		{
			text:    "MOO",
			message: "unmatched 'MOO'",
			rng:     protocol.Range{Start: protocol.Position{Line: 0, Character: 0}, End: protocol.Position{Line: 0, Character: 3}},
		},
		{
			text:    "MoO\n moo",
			message: "unmatched 'moo'",
			rng:     protocol.Range{Start: protocol.Position{Line: 1, Character: 1}, End: protocol.Position{Line: 1, Character: 4}},
		},
	}
	for _, tt := range tests {
		diags := diagnose(tt.text)
		if len(diags) != 1 {
			t.Fatalf("diagnose(%q) returned %d diagnostics, want 1", tt.text, len(diags))
		}
		d := diags[0]
		if !strings.Contains(d.Message, tt.message) {
			t.Errorf("message = %q, want it to contain %q", d.Message, tt.message)
		}
		if d.Range != tt.rng {
			t.Errorf("range = %+v, want %+v", d.Range, tt.rng)
		}
		if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityError {
			t.Error("severity should be Error")
		}
	}
}

// ---------------------------------------------------------------------------
// Handlers over the document store
// ---------------------------------------------------------------------------

func TestLSP_DocumentStore(t *testing.T) {
	lsp := NewLSP("test")
	uri := protocol.DocumentUri("file:///test.cow")

	lsp.mu.Lock()
	lsp.docs[string(uri)] = "OOM"
	lsp.mu.Unlock()

	pos := protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Position:     protocol.Position{Line: 0, Character: 1},
	}
	h, err := lsp.textDocumentHover(nil, &protocol.HoverParams{TextDocumentPositionParams: pos})
	if err != nil || h == nil {
		t.Fatalf("hover = %v, %v", h, err)
	}

	pos.Position.Character = 3
	result, err := lsp.textDocumentCompletion(nil, &protocol.CompletionParams{TextDocumentPositionParams: pos})
	if err != nil {
		t.Fatal(err)
	}
	if items := result.([]protocol.CompletionItem); len(items) != 1 || items[0].Label != "OOM" {
		t.Errorf("completion = %v", items)
	}

	missing := protocol.TextDocumentPositionParams{TextDocument: protocol.TextDocumentIdentifier{URI: "file:///none.cow"}}
	if h, _ := lsp.textDocumentHover(nil, &protocol.HoverParams{TextDocumentPositionParams: missing}); h != nil {
		t.Errorf("hover on unknown document = %v, want nil", h)
	}
}

// ---------------------------------------------------------------------------
// UTF-16 columns
// ---------------------------------------------------------------------------

func TestLSP_HoverAfterNonASCII(t *testing.T) {
	// é is two bytes but one UTF-16 unit.
	h := hover("é MoO", protocol.Position{Line: 0, Character: 2})
	if h == nil {
		t.Fatal("hover on MoO after non-ASCII text returned nil")
	}
	if h.Range == nil || h.Range.Start.Character != 2 || h.Range.End.Character != 5 {
		t.Errorf("hover range = %+v, want 2..5", h.Range)
	}
}

func TestLSP_DiagnoseAfterSurrogatePair(t *testing.T) {
	// The cow emoji is four bytes and two UTF-16 units.
	diags := diagnose("MoO\n🐄 moo")
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	want := protocol.Range{
		Start: protocol.Position{Line: 1, Character: 3},
		End:   protocol.Position{Line: 1, Character: 6},
	}
	if diags[0].Range != want {
		t.Errorf("range = %+v, want %+v", diags[0].Range, want)
	}
}

func TestColumnConversion(t *testing.T) {
	line := "a🐄b"
	if got := utf16Column(line, 5); got != 3 {
		t.Errorf("utf16Column(b) = %d, want 3", got)
	}
	if got := byteColumn(line, 3); got != 5 {
		t.Errorf("byteColumn(3) = %d, want 5", got)
	}
	if got := byteColumn(line, 99); got != len(line) {
		t.Errorf("byteColumn past end = %d, want %d", got, len(line))
	}
	if got := lineAt("x\ny\nz", 1); got != "y" {
		t.Errorf("lineAt(1) = %q, want y", got)
	}
	if got := lineAt("x", 4); got != "" {
		t.Errorf("lineAt past end = %q, want empty", got)
	}
}

func TestExtractPrefix_NonASCII(t *testing.T) {
	text := "é Mo"
	pos := protocol.Position{Line: 0, Character: 4}
	if prefix := extractPrefix(text, pos); prefix != "Mo" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "Mo")
	}
}
