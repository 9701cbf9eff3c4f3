// Package syntax builds position indexed trees of tool XML documents from the
// scanner's tokens and locates the token under a cursor.
package syntax

import "fmt"

// Kind tags the variant of a Node.
type Kind int

const (
	KindDocument Kind = iota
	KindElement
	KindAttribute
	KindAttributeKey
	KindAttributeValue
	KindContent
	KindCDATA
	KindComment
	KindProcessingInstruction
)

var kindNames = [...]string{
	KindDocument:              "Document",
	KindElement:               "Element",
	KindAttribute:             "Attribute",
	KindAttributeKey:          "AttributeKey",
	KindAttributeValue:        "AttributeValue",
	KindContent:               "Content",
	KindCDATA:                 "CDATA",
	KindComment:               "Comment",
	KindProcessingInstruction: "ProcessingInstruction",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Node is one node of a syntax tree. Start and End are byte offsets, End is
// exclusive. Children are owned by their parent; the parent link is only a
// back reference.
type Node struct {
	Kind     Kind
	Start    int
	End      int
	Closed   bool
	Children []*Node

	// Name is the element name, or the attribute name for attribute nodes.
	Name string
	// Text is the unquoted attribute value or the inner text of content,
	// comments, CDATA sections and processing instructions.
	Text string

	// element fields, -1 when not seen
	NameStart   int
	NameEnd     int
	StartTagEnd int
	EndTagStart int
	SelfClosed  bool
	Attributes  []*Node

	// attribute fields
	Key          *Node
	Value        *Node
	HasDelimiter bool

	parent *Node
}

func newNode(kind Kind, start, end int, parent *Node) *Node {
	return &Node{
		Kind:        kind,
		Start:       start,
		End:         end,
		NameStart:   -1,
		NameEnd:     -1,
		StartTagEnd: -1,
		EndTagStart: -1,
		parent:      parent,
	}
}

func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) IsElement() bool {
	return n.Kind == KindElement
}

// HasStartTagClose reports whether the start tag was terminated by '>' or '/>'.
func (n *Node) HasStartTagClose() bool {
	return n.StartTagEnd >= 0
}

// HasEndTag reports whether an explicit end tag closed the element.
func (n *Node) HasEndTag() bool {
	return n.EndTagStart >= 0
}

// Attribute returns the attribute node with the given name.
func (n *Node) Attribute(name string) *Node {
	for _, a := range n.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// AttributeValue returns the unquoted value of an attribute and whether the
// attribute has a value.
func (n *Node) AttributeValue(name string) (string, bool) {
	a := n.Attribute(name)
	if a == nil || a.Value == nil {
		return "", false
	}
	return a.Value.Text, true
}

// AttributeNames lists the attribute names in document order.
func (n *Node) AttributeNames() []string {
	names := make([]string, 0, len(n.Attributes))
	for _, a := range n.Attributes {
		names = append(names, a.Name)
	}
	return names
}

// Elements returns the element children.
func (n *Node) Elements() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == KindElement {
			out = append(out, c)
		}
	}
	return out
}

// ChildElement returns the first element child with the given name.
func (n *Node) ChildElement(name string) *Node {
	for _, c := range n.Children {
		if c.Kind == KindElement && c.Name == name {
			return c
		}
	}
	return nil
}

// CountElements returns how many element children have the given name.
func (n *Node) CountElements(name string) int {
	count := 0
	for _, c := range n.Children {
		if c.Kind == KindElement && c.Name == name {
			count++
		}
	}
	return count
}

// Stack returns the names of the named elements from the document root down
// to n, n included when it is a named element.
func (n *Node) Stack() []string {
	var rev []string
	for cur := n; cur != nil; cur = cur.parent {
		if cur.Kind == KindElement && cur.Name != "" {
			rev = append(rev, cur.Name)
		}
	}
	out := make([]string, len(rev))
	for i, name := range rev {
		out[len(rev)-1-i] = name
	}
	return out
}

// InnerText concatenates the text and CDATA children of an element.
func (n *Node) InnerText() string {
	var text string
	for _, c := range n.Children {
		if c.Kind == KindContent || c.Kind == KindCDATA {
			text += c.Text
		}
	}
	return text
}

func (n *Node) appendChild(c *Node) {
	c.parent = n
	n.Children = append(n.Children, c)
}
