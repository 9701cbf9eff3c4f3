package providers

import (
	"github.com/walteh/toolxmlls/pkg/syntax"
	"github.com/walteh/toolxmlls/pkg/xsd"
)

// ElementProvider handles child element completions
type ElementProvider struct {
	tree *xsd.Tree
}

func NewElementProvider(tree *xsd.Tree) *ElementProvider {
	return &ElementProvider{tree: tree}
}

// RootCompletion offers the schema root alone, used for empty documents and
// positions outside the root element.
func (p *ElementProvider) RootCompletion() []CompletionItem {
	if p.tree == nil || p.tree.Root == nil {
		return nil
	}
	return []CompletionItem{elementItem(p.tree.Root, 0)}
}

// GetCompletions lists the children of node that may still be added to
// container, in schema order, followed by the expand element. container may
// be nil when no syntax element encloses the position.
func (p *ElementProvider) GetCompletions(node *xsd.Node, container *syntax.Node) []CompletionItem {
	if node == nil {
		return nil
	}
	var items []CompletionItem
	for _, child := range node.Children {
		if reachedMaxOccurs(child, container) {
			continue
		}
		items = append(items, elementItem(child, len(items)))
	}
	if p.tree != nil && p.tree.Expand != nil {
		items = append(items, elementItem(p.tree.Expand, len(items)))
	}
	return items
}

func reachedMaxOccurs(child *xsd.Node, container *syntax.Node) bool {
	if container == nil || child.IsUnbounded() {
		return false
	}
	return container.CountElements(child.Name) >= child.MaxOccurs
}

func elementItem(node *xsd.Node, order int) CompletionItem {
	return CompletionItem{
		Label:         node.Name,
		Kind:          KindElement,
		Documentation: node.Documentation(),
		SortText:      sortText(order),
	}
}
