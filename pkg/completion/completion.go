// Package completion turns a resolved cursor context into completion lists
// and auto close snippets.
package completion

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/walteh/toolxmlls/pkg/completion/providers"
	"github.com/walteh/toolxmlls/pkg/config"
	"github.com/walteh/toolxmlls/pkg/macros"
	"github.com/walteh/toolxmlls/pkg/xmlcontext"
	"github.com/walteh/toolxmlls/pkg/xsd"
)

type TriggerKind int

const (
	// Invoked is an explicit completion request.
	Invoked TriggerKind = iota + 1
	// TriggerCharacter is a request caused by typing one of the trigger characters.
	TriggerCharacter
	// Incomplete re-requests a list previously marked incomplete.
	Incomplete
)

type Trigger struct {
	Kind      TriggerKind
	Character string
}

type List struct {
	Items      []providers.CompletionItem
	Incomplete bool
}

// Engine computes completions against one schema. It is stateless and may be
// shared between goroutines as long as the macro definitions are.
type Engine struct {
	tree       *xsd.Tree
	elements   *providers.ElementProvider
	attributes *providers.AttributeProvider
	values     *providers.ValueProvider
}

// NewEngine creates an engine. defs may be nil, expand then offers no tokens
// and no macro names.
func NewEngine(tree *xsd.Tree, defs macros.Definitions) *Engine {
	return &Engine{
		tree:       tree,
		elements:   providers.NewElementProvider(tree),
		attributes: providers.NewAttributeProvider(defs),
		values:     providers.NewValueProvider(defs),
	}
}

// Complete returns the completion list for xc. It never fails; positions that
// offer nothing give an empty list.
func (me *Engine) Complete(ctx context.Context, doc macros.Document, xc xmlcontext.Context, trigger Trigger, mode config.CompletionMode) List {
	if mode == config.ModeDisabled || xc.IsCDATA() || xc.IsComment() || xc.IsProcessingInstruction() {
		return List{}
	}

	log := zerolog.Ctx(ctx).Debug().Str("kind", xc.Kind.String()).Strs("stack", xc.Stack).Int("trigger", int(trigger.Kind))

	switch trigger.Kind {
	case TriggerCharacter:
		if mode != config.ModeAuto || xc.IsAttribute() {
			return List{}
		}
		switch trigger.Character {
		case "<":
			log.Msg("element completion")
			return List{Items: me.elementCompletion(xc)}
		case " ":
			log.Msg("attribute completion")
			return List{Items: me.attributeCompletion(ctx, doc, xc)}
		}
		return List{}

	case Invoked, Incomplete:
		switch {
		case xc.IsAttributeValue():
			log.Msg("value completion")
			return List{Items: me.values.GetCompletions(ctx, doc, xc.Node, elementName(xc), xc.AttributeName)}
		case xc.IsAttributeKey():
			log.Msg("attribute completion")
			return List{Items: me.attributeCompletion(ctx, doc, xc)}
		case xc.IsOpeningTag() && xc.Name != "" && xc.NodeResolved:
			log.Msg("attribute completion")
			return List{Items: me.attributeCompletion(ctx, doc, xc)}
		default:
			log.Msg("element completion")
			return List{Items: me.elementCompletion(xc)}
		}
	}

	return List{}
}

func (me *Engine) elementCompletion(xc xmlcontext.Context) []providers.CompletionItem {
	switch {
	case xc.IsEmpty():
		return me.elements.RootCompletion()
	case xc.IsOpeningTag():
		if xc.IsTopLevel() {
			return me.elements.RootCompletion()
		}
		return me.elements.GetCompletions(xc.ParentNode, xc.Parent)
	case xc.Element == nil:
		return me.elements.RootCompletion()
	default:
		return me.elements.GetCompletions(xc.Node, xc.Element)
	}
}

func (me *Engine) attributeCompletion(ctx context.Context, doc macros.Document, xc xmlcontext.Context) []providers.CompletionItem {
	if xc.IsEmpty() || xc.IsContent() || xc.IsAttributeValue() || xc.IsClosingTag() {
		return nil
	}
	if xc.Element == nil || xc.Element.Name == "" {
		return nil
	}
	return me.attributes.GetCompletions(ctx, doc, xc.Node, xc.Element)
}

func elementName(xc xmlcontext.Context) string {
	if xc.Element == nil {
		return ""
	}
	return xc.Element.Name
}
