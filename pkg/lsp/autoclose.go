package lsp

import (
	"github.com/rs/zerolog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/walteh/toolxmlls/pkg/completion"
	"github.com/walteh/toolxmlls/pkg/position"
)

// AutoCloseTagResult is the answer to MethodAutoCloseTags. The client inserts
// Snippet at the cursor, or over Range when it is set.
type AutoCloseTagResult struct {
	Snippet string          `json:"snippet"`
	Range   *protocol.Range `json:"range,omitempty"`
}

func (me *Server) autoCloseTags(gctx *glsp.Context, params *protocol.TextDocumentPositionParams) (*AutoCloseTagResult, error) {
	if !me.Config().Completion.AutoCloseTags {
		return nil, nil
	}

	doc, ok := me.toolDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	line, char := int(params.Position.Line), int(params.Position.Character)
	if char == 0 {
		return nil, nil
	}

	// the position is right after the typed character
	text := position.LineText(doc.Content, line)
	start := position.OffsetOf(text, position.Place{Character: char - 1})
	end := position.OffsetOf(text, position.Place{Character: char})
	if start >= end {
		return nil, nil
	}
	trigger := text[start:end]

	ctx := me.context()
	xc := me.resolver.Resolve(ctx, doc.Content, line, char-1)
	res, ok := completion.AutoClose(xc, trigger)
	if !ok {
		return nil, nil
	}

	zerolog.Ctx(ctx).Debug().Str("trigger", trigger).Str("snippet", res.Snippet).Msg("auto closing tag")

	out := &AutoCloseTagResult{Snippet: res.Snippet}
	if res.Range != nil {
		rng := toProtocolRange(*res.Range)
		out.Range = &rng
	}
	return out, nil
}
