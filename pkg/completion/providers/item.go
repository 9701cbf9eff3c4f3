// Package providers builds the completion items of one completion kind each.
package providers

import "fmt"

type ItemKind int

const (
	KindElement ItemKind = iota
	KindAttribute
	KindValue
	KindToken
)

func (k ItemKind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindAttribute:
		return "attribute"
	case KindValue:
		return "value"
	case KindToken:
		return "token"
	}
	return fmt.Sprintf("ItemKind(%d)", int(k))
}

// CompletionItem represents a single completion suggestion
type CompletionItem struct {
	Label         string   `json:"label"`
	Kind          ItemKind `json:"kind"`
	Detail        string   `json:"detail,omitempty"`
	Documentation string   `json:"documentation,omitempty"`
	// InsertText is a snippet when Snippet is set, plain text otherwise. Empty
	// means the label is inserted.
	InsertText string `json:"insertText,omitempty"`
	Snippet    bool   `json:"snippet,omitempty"`
	// SortText keeps the client from reordering the list.
	SortText string `json:"sortText,omitempty"`
}

func sortText(order int) string {
	return fmt.Sprintf("%02d", order)
}
