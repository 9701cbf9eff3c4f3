package providers

import (
	"context"

	"github.com/walteh/toolxmlls/pkg/macros"
	"github.com/walteh/toolxmlls/pkg/xsd"
)

// ValueProvider handles attribute value completions
type ValueProvider struct {
	macros macros.Definitions
}

func NewValueProvider(defs macros.Definitions) *ValueProvider {
	return &ValueProvider{macros: defs}
}

// GetCompletions lists the allowed values of attribute on node: the declared
// enumeration, or the known macro names for the macro attribute of expand.
func (p *ValueProvider) GetCompletions(ctx context.Context, doc macros.Document, node *xsd.Node, elementName, attribute string) []CompletionItem {
	if elementName == xsd.ExpandName && attribute == xsd.ExpandMacroAttribute {
		if p.macros == nil {
			return nil
		}
		var items []CompletionItem
		for _, name := range p.macros.MacroNames(ctx, doc) {
			items = append(items, CompletionItem{
				Label:    name,
				Kind:     KindValue,
				Detail:   "macro",
				SortText: sortText(len(items)),
			})
		}
		return items
	}

	if node == nil {
		return nil
	}
	attr := node.Attributes[attribute]
	if attr == nil {
		return nil
	}
	var items []CompletionItem
	for _, value := range attr.Enumeration {
		items = append(items, CompletionItem{
			Label:    value,
			Kind:     KindValue,
			SortText: sortText(len(items)),
		})
	}
	return items
}
