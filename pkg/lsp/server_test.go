package lsp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/walteh/toolxmlls/pkg/config"
	"github.com/walteh/toolxmlls/pkg/lsp"
	"github.com/walteh/toolxmlls/pkg/xsd"
)

const testSchema = `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="root">
    <xs:annotation>
      <xs:documentation xml:lang="en">The root.</xs:documentation>
    </xs:annotation>
    <xs:complexType>
      <xs:sequence>
        <xs:element name="child" type="xs:string"/>
        <xs:element name="item" type="xs:string" minOccurs="0" maxOccurs="unbounded"/>
        <xs:element name="macros" type="xs:string" minOccurs="0"/>
      </xs:sequence>
      <xs:attribute name="id" type="xs:string" use="required"/>
      <xs:attribute name="mode" type="xs:string"/>
    </xs:complexType>
  </xs:element>
</xs:schema>
`

const toolURI = "file:///work/tool.xml"

type harness struct {
	t      *testing.T
	server *lsp.Server
	fs     afero.Fs
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t))
	ctx := logger.WithContext(context.Background())

	tree, err := xsd.Compile(ctx, []byte(testSchema))
	require.NoError(t, err, "compiling test schema")

	fs := afero.NewMemMapFs()
	return &harness{
		t:      t,
		server: lsp.NewServer(ctx, tree, config.Default(), lsp.WithFs(fs), lsp.WithVersion("test")),
		fs:     fs,
	}
}

func (h *harness) call(method string, params string) (any, error) {
	h.t.Helper()
	r, validMethod, validParams, err := h.server.Handle(&glsp.Context{
		Method: method,
		Params: json.RawMessage(params),
		Notify: func(string, any) {},
	})
	require.True(h.t, validMethod, "method %s", method)
	require.True(h.t, validParams, "params of %s", method)
	return r, err
}

func (h *harness) initialize() {
	h.t.Helper()
	_, err := h.call(protocol.MethodInitialize, `{"processId":null,"rootUri":null,"capabilities":{}}`)
	require.NoError(h.t, err)
}

func (h *harness) open(text string) {
	h.t.Helper()
	params, err := json.Marshal(protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: toolURI, LanguageID: "xml", Version: 1, Text: text},
	})
	require.NoError(h.t, err)
	_, err = h.call(protocol.MethodTextDocumentDidOpen, string(params))
	require.NoError(h.t, err)
}

func (h *harness) complete(line, character int, trigger string) *protocol.CompletionList {
	h.t.Helper()
	cc := `{"triggerKind":1}`
	if trigger != "" {
		cc = fmt.Sprintf(`{"triggerKind":2,"triggerCharacter":%q}`, trigger)
	}
	r, err := h.call(protocol.MethodTextDocumentCompletion, fmt.Sprintf(
		`{"textDocument":{"uri":%q},"position":{"line":%d,"character":%d},"context":%s}`,
		toolURI, line, character, cc))
	require.NoError(h.t, err)
	if r == nil {
		return nil
	}
	list, ok := r.(*protocol.CompletionList)
	require.True(h.t, ok, "unexpected completion result %T", r)
	return list
}

func positionParams(line, character int) string {
	return fmt.Sprintf(`{"textDocument":{"uri":%q},"position":{"line":%d,"character":%d}}`, toolURI, line, character)
}

func completionLabels(list *protocol.CompletionList) []string {
	if list == nil {
		return nil
	}
	var out []string
	for _, item := range list.Items {
		out = append(out, item.Label)
	}
	return out
}

func TestNotInitialized(t *testing.T) {
	h := newHarness(t)

	_, err := h.call(protocol.MethodTextDocumentCompletion, positionParams(0, 0))
	require.Error(t, err)

	_, err = h.call(lsp.MethodAutoCloseTags, positionParams(0, 0))
	require.Error(t, err)
}

func TestInitialize(t *testing.T) {
	h := newHarness(t)

	r, err := h.call(protocol.MethodInitialize, `{"processId":null,"rootUri":null,"capabilities":{},"clientInfo":{"name":"test"}}`)
	require.NoError(t, err)

	result, ok := r.(protocol.InitializeResult)
	require.True(t, ok, "unexpected initialize result %T", r)

	require.NotNil(t, result.ServerInfo)
	assert.Equal(t, lsp.ServerName, result.ServerInfo.Name)
	require.NotNil(t, result.ServerInfo.Version)
	assert.Equal(t, "test", *result.ServerInfo.Version)

	require.NotNil(t, result.Capabilities.CompletionProvider)
	assert.Equal(t, []string{"<", " "}, result.Capabilities.CompletionProvider.TriggerCharacters)

	sync, ok := result.Capabilities.TextDocumentSync.(*protocol.TextDocumentSyncOptions)
	require.True(t, ok)
	require.NotNil(t, sync.Change)
	assert.Equal(t, protocol.TextDocumentSyncKindIncremental, *sync.Change)
	assert.NotNil(t, result.Capabilities.HoverProvider)
	assert.NotNil(t, result.Capabilities.DocumentSymbolProvider)
}

func TestInitializationOptions(t *testing.T) {
	h := newHarness(t)

	_, err := h.call(protocol.MethodInitialize, `{"processId":null,"rootUri":null,"capabilities":{},"initializationOptions":{"toolxml":{"completion":{"mode":"invoke"}}}}`)
	require.NoError(t, err)
	assert.Equal(t, config.ModeInvoke, h.server.Config().Completion.Mode)
}

func TestInitializedScansWorkspace(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/work/tools/a.xml", []byte(`<root id="a"/>`), 0o644))
	require.NoError(t, afero.WriteFile(h.fs, "/work/tools/macros.xml", []byte(`<macros/>`), 0o644))
	require.NoError(t, afero.WriteFile(h.fs, "/work/b.xml", []byte("<root id=\"b\">\n</root>"), 0o644))

	_, err := h.call(protocol.MethodInitialize, `{"processId":null,"rootUri":"file:///work","capabilities":{}}`)
	require.NoError(t, err)
	_, err = h.call(protocol.MethodInitialized, `{}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"/work/b.xml", "/work/tools/a.xml"}, h.server.WorkspaceTools())
}

func TestCompletion(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		line      int
		character int
		trigger   string
		want      []string
	}{
		{
			name:      "children in content",
			text:      "<root>\n  \n</root>",
			line:      1,
			character: 2,
			want:      []string{"child", "item", "macros", "expand"},
		},
		{
			name:      "open bracket trigger",
			text:      "<root><",
			character: 7,
			trigger:   "<",
			want:      []string{"child", "item", "macros", "expand"},
		},
		{
			name:      "space trigger",
			text:      "<root ",
			character: 6,
			trigger:   " ",
			want:      []string{"id", "mode"},
		},
		{
			name: "empty document",
			text: "",
			want: []string{"root"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.initialize()
			h.open(tt.text)

			got := h.complete(tt.line, tt.character, tt.trigger)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, completionLabels(got))
			assert.False(t, got.IsIncomplete)
		})
	}
}

func TestCompletionItems(t *testing.T) {
	h := newHarness(t)
	h.initialize()
	h.open("<root ")

	got := h.complete(0, 6, " ")
	require.NotNil(t, got)
	require.NotEmpty(t, got.Items)

	id := got.Items[0]
	assert.Equal(t, "id", id.Label)
	require.NotNil(t, id.Kind)
	assert.Equal(t, protocol.CompletionItemKindVariable, *id.Kind)
	require.NotNil(t, id.InsertText)
	assert.Equal(t, `id="$1"`, *id.InsertText)
	require.NotNil(t, id.InsertTextFormat)
	assert.Equal(t, protocol.InsertTextFormatSnippet, *id.InsertTextFormat)
	require.NotNil(t, id.SortText)
	assert.Equal(t, "00", *id.SortText)

	h.open("<root>\n  \n</root>")
	got = h.complete(1, 2, "")
	require.NotNil(t, got)
	require.NotEmpty(t, got.Items)
	require.NotNil(t, got.Items[0].Kind)
	assert.Equal(t, protocol.CompletionItemKindClass, *got.Items[0].Kind)
}

func TestCompletionMacroNames(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/work/macros.xml", []byte(`<macros><xml name="reqs"/><xml name="stdio"/></macros>`), 0o644))

	h.initialize()
	text := `<root><macros><import>macros.xml</import></macros><expand macro=""/></root>`
	h.open(text)

	got := h.complete(0, len(`<root><macros><import>macros.xml</import></macros><expand macro="`), "")
	require.NotNil(t, got)
	assert.Equal(t, []string{"reqs", "stdio"}, completionLabels(got))
	require.NotNil(t, got.Items[0].Kind)
	assert.Equal(t, protocol.CompletionItemKindValue, *got.Items[0].Kind)
}

func TestCompletionSkipsOtherDocuments(t *testing.T) {
	h := newHarness(t)
	h.initialize()

	_, err := h.call(protocol.MethodTextDocumentDidOpen, `{"textDocument":{"uri":"file:///work/notes.txt","languageId":"text","version":1,"text":"<"}}`)
	require.NoError(t, err)

	r, err := h.call(protocol.MethodTextDocumentCompletion, `{"textDocument":{"uri":"file:///work/notes.txt"},"position":{"line":0,"character":1}}`)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestCompletionModeFromConfiguration(t *testing.T) {
	h := newHarness(t)
	h.initialize()
	h.open("<root><")

	_, err := h.call(protocol.MethodWorkspaceDidChangeConfiguration, `{"settings":{"toolxml":{"completion":{"mode":"invoke"}}}}`)
	require.NoError(t, err)

	assert.Empty(t, completionLabels(h.complete(0, 7, "<")))
	assert.Equal(t, []string{"child", "item", "macros", "expand"}, completionLabels(h.complete(0, 7, "")))

	_, err = h.call(protocol.MethodWorkspaceDidChangeConfiguration, `{"settings":{"toolxml":{"completion":{"mode":"sometimes"}}}}`)
	require.Error(t, err)
	assert.Equal(t, config.ModeInvoke, h.server.Config().Completion.Mode)
}

func TestDidChange(t *testing.T) {
	h := newHarness(t)
	h.initialize()
	h.open("<root></root>")

	_, err := h.call(protocol.MethodTextDocumentDidChange, fmt.Sprintf(
		`{"textDocument":{"uri":%q,"version":2},"contentChanges":[{"range":{"start":{"line":0,"character":6},"end":{"line":0,"character":6}},"text":"\n  <child/>\n"}]}`,
		toolURI))
	require.NoError(t, err)

	doc, ok := h.server.Documents().Get(toolURI)
	require.True(t, ok)
	assert.Equal(t, "<root>\n  <child/>\n</root>", doc.Content)
	assert.Equal(t, int32(2), doc.Version)
	assert.Equal(t, "/work/tool.xml", doc.Path)

	_, err = h.call(protocol.MethodTextDocumentDidChange, fmt.Sprintf(
		`{"textDocument":{"uri":%q,"version":3},"contentChanges":[{"range":{"start":{"line":1,"character":3},"end":{"line":1,"character":8}},"text":"item"},{"text":"<root/>"}]}`,
		toolURI))
	require.NoError(t, err)

	doc, ok = h.server.Documents().Get(toolURI)
	require.True(t, ok)
	assert.Equal(t, "<root/>", doc.Content)

	_, err = h.call(protocol.MethodTextDocumentDidClose, fmt.Sprintf(`{"textDocument":{"uri":%q}}`, toolURI))
	require.NoError(t, err)
	_, ok = h.server.Documents().Get(toolURI)
	assert.False(t, ok)
}

func TestDidChangeUnopenedDocument(t *testing.T) {
	h := newHarness(t)
	h.initialize()

	_, err := h.call(protocol.MethodTextDocumentDidChange, fmt.Sprintf(
		`{"textDocument":{"uri":%q,"version":2},"contentChanges":[{"text":"<root/>"}]}`, toolURI))
	require.Error(t, err)
}

func TestUnopenedDocumentIsReadFromDisk(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/work/tool.xml", []byte("<root>\n  \n</root>"), 0o644))
	h.initialize()

	assert.Equal(t, []string{"child", "item", "macros", "expand"}, completionLabels(h.complete(1, 2, "")))
}

func TestHover(t *testing.T) {
	h := newHarness(t)
	h.initialize()
	h.open(`<root id="1"/>`)

	r, err := h.call(protocol.MethodTextDocumentHover, positionParams(0, 2))
	require.NoError(t, err)

	hov, ok := r.(*protocol.Hover)
	require.True(t, ok, "unexpected hover result %T", r)
	require.NotNil(t, hov)

	content, ok := hov.Contents.(protocol.MarkupContent)
	require.True(t, ok)
	assert.Equal(t, protocol.MarkupKindMarkdown, content.Kind)
	assert.Contains(t, content.Value, "### root\n\nThe root.")

	require.NotNil(t, hov.Range)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 1},
		End:   protocol.Position{Line: 0, Character: 5},
	}, *hov.Range)

	r, err = h.call(protocol.MethodTextDocumentHover, positionParams(0, 11))
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestDocumentSymbol(t *testing.T) {
	h := newHarness(t)
	h.initialize()
	h.open(`<root id="x"><child/></root>`)

	r, err := h.call(protocol.MethodTextDocumentDocumentSymbol, fmt.Sprintf(`{"textDocument":{"uri":%q}}`, toolURI))
	require.NoError(t, err)

	syms, ok := r.([]protocol.DocumentSymbol)
	require.True(t, ok, "unexpected symbol result %T", r)
	require.Len(t, syms, 1)

	root := syms[0]
	assert.Equal(t, "root", root.Name)
	assert.Equal(t, protocol.SymbolKindField, root.Kind)
	require.NotNil(t, root.Detail)
	assert.Equal(t, "x", *root.Detail)

	require.Len(t, root.Children, 2)
	assert.Equal(t, "id", root.Children[0].Name)
	assert.Equal(t, protocol.SymbolKindProperty, root.Children[0].Kind)
	assert.Equal(t, "child", root.Children[1].Name)
	assert.Equal(t, protocol.SymbolKindField, root.Children[1].Kind)
}

func TestAutoCloseTags(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		line      int
		character int
		want      *lsp.AutoCloseTagResult
	}{
		{
			name:      "start tag",
			text:      "<root>",
			character: 6,
			want:      &lsp.AutoCloseTagResult{Snippet: "$0</root>"},
		},
		{
			name:      "self close",
			text:      "<root>\n  <child/>\n</root>",
			line:      1,
			character: 9,
			want: &lsp.AutoCloseTagResult{
				Snippet: "/>$0",
				Range: &protocol.Range{
					Start: protocol.Position{Line: 1, Character: 8},
					End:   protocol.Position{Line: 1, Character: 10},
				},
			},
		},
		{
			name:      "closing tag",
			text:      "<root></root>",
			character: 13,
		},
		{
			name:      "start of line",
			text:      "<root>",
			character: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.initialize()
			h.open(tt.text)

			r, err := h.call(lsp.MethodAutoCloseTags, positionParams(tt.line, tt.character))
			require.NoError(t, err)

			got, ok := r.(*lsp.AutoCloseTagResult)
			require.True(t, ok, "unexpected auto close result %T", r)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAutoCloseTagsDisabled(t *testing.T) {
	h := newHarness(t)
	h.initialize()
	h.open("<root>")

	_, err := h.call(protocol.MethodWorkspaceDidChangeConfiguration, `{"settings":{"completion":{"autoCloseTags":false}}}`)
	require.NoError(t, err)

	r, err := h.call(lsp.MethodAutoCloseTags, positionParams(0, 6))
	require.NoError(t, err)
	assert.Nil(t, r)
}
