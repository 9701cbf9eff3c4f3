package lsp

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/walteh/toolxmlls/pkg/completion"
	"github.com/walteh/toolxmlls/pkg/completion/providers"
	"github.com/walteh/toolxmlls/pkg/hover"
	"github.com/walteh/toolxmlls/pkg/position"
	"github.com/walteh/toolxmlls/pkg/symbols"
	"github.com/walteh/toolxmlls/pkg/syntax"
)

func (me *Server) textDocumentDidOpen(gctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	zerolog.Ctx(me.context()).Debug().Str("uri", params.TextDocument.URI).Msg("document opened")

	me.documents.Store(&Document{
		URI:     params.TextDocument.URI,
		Version: params.TextDocument.Version,
		Content: params.TextDocument.Text,
	})
	return nil
}

func (me *Server) textDocumentDidChange(gctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	ctx := me.context()
	zerolog.Ctx(ctx).Debug().Str("uri", params.TextDocument.URI).Int("changes", len(params.ContentChanges)).Msg("document changed")

	return me.documents.Apply(ctx, params.TextDocument.URI, params.TextDocument.Version, params.ContentChanges)
}

func (me *Server) textDocumentDidClose(gctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	zerolog.Ctx(me.context()).Debug().Str("uri", params.TextDocument.URI).Msg("document closed")

	me.documents.Delete(params.TextDocument.URI)
	return nil
}

// toolDocument returns the document for uri when the configuration says it is
// a tool document.
func (me *Server) toolDocument(uri protocol.DocumentUri) (*Document, bool) {
	logger := zerolog.Ctx(me.context())

	doc, ok := me.documents.Get(uri)
	if !ok {
		logger.Debug().Str("uri", uri).Msg("document not found")
		return nil, false
	}
	if !me.Config().Handles(doc.Path) {
		logger.Debug().Str("path", doc.Path).Msg("not a tool document")
		return nil, false
	}
	return doc, true
}

func (me *Server) textDocumentCompletion(gctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	ctx := me.context()

	doc, ok := me.toolDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	xc := me.resolver.Resolve(ctx, doc.Content, int(params.Position.Line), int(params.Position.Character))
	list := me.engine.Complete(ctx, doc.Macros(), xc, completionTrigger(params.Context), me.Config().Completion.Mode)

	zerolog.Ctx(ctx).Debug().
		Str("kind", xc.Kind.String()).
		Strs("stack", xc.Stack).
		Int("items", len(list.Items)).
		Msg("completion")

	return toCompletionList(list), nil
}

func completionTrigger(c *protocol.CompletionContext) completion.Trigger {
	if c == nil {
		return completion.Trigger{Kind: completion.Invoked}
	}
	switch c.TriggerKind {
	case protocol.CompletionTriggerKindTriggerCharacter:
		t := completion.Trigger{Kind: completion.TriggerCharacter}
		if c.TriggerCharacter != nil {
			t.Character = *c.TriggerCharacter
		}
		return t
	case protocol.CompletionTriggerKindTriggerForIncompleteCompletions:
		return completion.Trigger{Kind: completion.Incomplete}
	}
	return completion.Trigger{Kind: completion.Invoked}
}

func toCompletionList(list completion.List) *protocol.CompletionList {
	items := make([]protocol.CompletionItem, 0, len(list.Items))
	for _, it := range list.Items {
		kind := completionItemKind(it.Kind)
		item := protocol.CompletionItem{
			Label: it.Label,
			Kind:  &kind,
		}
		if it.Detail != "" {
			item.Detail = ptr(it.Detail)
		}
		if it.Documentation != "" {
			item.Documentation = protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: it.Documentation}
		}
		if it.SortText != "" {
			item.SortText = ptr(it.SortText)
		}
		if it.InsertText != "" {
			format := protocol.InsertTextFormatPlainText
			if it.Snippet {
				format = protocol.InsertTextFormatSnippet
			}
			item.InsertText = ptr(it.InsertText)
			item.InsertTextFormat = &format
		}
		items = append(items, item)
	}
	return &protocol.CompletionList{IsIncomplete: list.Incomplete, Items: items}
}

func completionItemKind(k providers.ItemKind) protocol.CompletionItemKind {
	switch k {
	case providers.KindElement:
		return protocol.CompletionItemKindClass
	case providers.KindAttribute:
		return protocol.CompletionItemKindVariable
	case providers.KindToken:
		return protocol.CompletionItemKindProperty
	case providers.KindValue:
		return protocol.CompletionItemKindValue
	}
	return protocol.CompletionItemKindText
}

func (me *Server) textDocumentHover(gctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	ctx := me.context()

	doc, ok := me.toolDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	xc := me.resolver.Resolve(ctx, doc.Content, int(params.Position.Line), int(params.Position.Character))
	info, ok := hover.Documentation(ctx, xc)
	if !ok {
		return nil, nil
	}

	rng := toProtocolRange(info.Range)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: strings.Join(info.Content, "\n\n"),
		},
		Range: &rng,
	}, nil
}

func (me *Server) textDocumentDocumentSymbol(gctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	doc, ok := me.toolDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	syms := symbols.DocumentSymbols(doc.Content, syntax.Parse(doc.Content))
	return toDocumentSymbols(syms), nil
}

func toDocumentSymbols(syms []symbols.Symbol) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(syms))
	for _, s := range syms {
		kind := protocol.SymbolKindField
		if s.Kind == symbols.KindAttribute {
			kind = protocol.SymbolKindProperty
		}
		ds := protocol.DocumentSymbol{
			Name:           s.Name,
			Kind:           kind,
			Range:          toProtocolRange(s.Range),
			SelectionRange: toProtocolRange(s.Range),
		}
		if s.Detail != "" {
			ds.Detail = ptr(s.Detail)
		}
		if len(s.Children) > 0 {
			ds.Children = toDocumentSymbols(s.Children)
		}
		out = append(out, ds)
	}
	return out
}

func toProtocolRange(r position.Range) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(r.Start.Line), Character: protocol.UInteger(r.Start.Character)},
		End:   protocol.Position{Line: protocol.UInteger(r.End.Line), Character: protocol.UInteger(r.End.Character)},
	}
}

func ptr[T any](v T) *T {
	return &v
}
