package providers

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/walteh/toolxmlls/pkg/macros"
	"github.com/walteh/toolxmlls/pkg/syntax"
	"github.com/walteh/toolxmlls/pkg/xsd"
)

// AttributeProvider handles attribute name completions
type AttributeProvider struct {
	macros macros.Definitions
}

func NewAttributeProvider(defs macros.Definitions) *AttributeProvider {
	return &AttributeProvider{macros: defs}
}

// GetCompletions lists the attributes of node not yet present on element. On
// an expand element the macro tokens follow as pseudo attributes.
func (p *AttributeProvider) GetCompletions(ctx context.Context, doc macros.Document, node *xsd.Node, element *syntax.Node) []CompletionItem {
	if node == nil || element == nil {
		return nil
	}
	present := element.AttributeNames()

	var items []CompletionItem
	for _, attr := range node.AttributeList() {
		if slices.Contains(present, attr.Name) {
			continue
		}
		items = append(items, CompletionItem{
			Label:         attr.Name,
			Kind:          KindAttribute,
			Detail:        attributeDetail(attr),
			Documentation: attr.Documentation(),
			InsertText:    fmt.Sprintf(`%s="$1"`, attr.Name),
			Snippet:       true,
			SortText:      sortText(len(items)),
		})
	}

	if element.Name != xsd.ExpandName || p.macros == nil {
		return items
	}

	tokens := p.macros.TokenNames(ctx, doc)
	names := make([]string, 0, len(tokens))
	for name := range tokens {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if slices.Contains(present, name) || node.Attributes[name] != nil {
			continue
		}
		items = append(items, CompletionItem{
			Label:         name,
			Kind:          KindToken,
			Detail:        "macro token",
			Documentation: fmt.Sprintf("Token parameter `%s` of the expanded macro.", name),
			InsertText:    fmt.Sprintf(`%s="${1:%s}"`, name, escapePlaceholder(tokens[name])),
			Snippet:       true,
			SortText:      sortText(len(items)),
		})
	}
	return items
}

func attributeDetail(attr *xsd.Attribute) string {
	var parts []string
	if attr.TypeName != "" {
		parts = append(parts, attr.TypeName)
	}
	if attr.Required {
		parts = append(parts, "required")
	}
	return strings.Join(parts, ", ")
}

// escapePlaceholder escapes the characters a snippet placeholder reserves.
func escapePlaceholder(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `$`, `\$`, `}`, `\}`)
	return r.Replace(s)
}
