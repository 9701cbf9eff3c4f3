// Package symbols builds the document outline of a tool document.
package symbols

import (
	"strings"

	"github.com/walteh/toolxmlls/pkg/position"
	"github.com/walteh/toolxmlls/pkg/syntax"
)

type Kind int

const (
	KindElement Kind = iota
	KindAttribute
)

type Symbol struct {
	Name     string
	Kind     Kind
	Detail   string
	Range    position.Range
	Children []Symbol
}

// DocumentSymbols returns the outline of the first root element of doc, or
// nil when the document has no element.
func DocumentSymbols(text string, doc *syntax.Node) []Symbol {
	if doc == nil {
		return nil
	}
	roots := doc.Elements()
	if len(roots) == 0 {
		return nil
	}
	return []Symbol{elementSymbol(text, roots[0])}
}

func elementSymbol(text string, el *syntax.Node) Symbol {
	s := Symbol{
		Name:   el.Name,
		Kind:   KindElement,
		Detail: detail(el),
		Range:  position.RangeOf(text, el.Start, el.End),
	}
	for _, attr := range el.Attributes {
		a := Symbol{
			Name:  attr.Name,
			Kind:  KindAttribute,
			Range: position.RangeOf(text, attr.Start, attr.End),
		}
		if attr.Value != nil {
			a.Detail = attr.Value.Text
		}
		s.Children = append(s.Children, a)
	}
	for _, child := range el.Elements() {
		s.Children = append(s.Children, elementSymbol(text, child))
	}
	return s
}

func detail(el *syntax.Node) string {
	switch el.Name {
	case "option", "when", "add", "remove":
		return attributeValue(el, "value")
	case "citation", "validator":
		return attributeValue(el, "type")
	case "requirement", "import":
		return strings.TrimSpace(el.InnerText())
	case "expand":
		return attributeValue(el, "macro")
	}
	if id := attributeValue(el, "id"); id != "" {
		return id
	}
	return attributeValue(el, "name")
}

func attributeValue(el *syntax.Node, name string) string {
	v, _ := el.AttributeValue(name)
	return v
}
