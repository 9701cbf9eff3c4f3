package xsd

import (
	"fmt"
	"slices"
	"strings"
)

const (
	// Unbounded is the MaxOccurs of an element that may repeat without limit.
	Unbounded = -1

	// ExpandName is the element name of the macro reference construct. It is
	// not part of the grammar and is injected into every compiled tree.
	ExpandName = "expand"
	// ExpandMacroAttribute is the required attribute naming the referenced macro.
	ExpandMacroAttribute = "macro"

	NoDocumentation = "No documentation available"
)

// Attribute is the schema definition of an element attribute.
type Attribute struct {
	Name        string
	TypeName    string
	Required    bool
	Enumeration []string
	Doc         string
}

// Documentation returns the attribute documentation or a placeholder.
func (a *Attribute) Documentation() string {
	if a.Doc == "" {
		return NoDocumentation
	}
	return a.Doc
}

// Node is the schema definition of an element: its attributes, its occurrence
// bounds inside the parent and its allowed children in declaration order.
type Node struct {
	Name       string
	TypeName   string
	Attributes map[string]*Attribute
	MinOccurs  int
	MaxOccurs  int
	Children   []*Node
	Doc        string

	attributeOrder []string
	parent         *Node
}

func newNode(name string, parent *Node) *Node {
	return &Node{
		Name:       name,
		Attributes: map[string]*Attribute{},
		MinOccurs:  1,
		MaxOccurs:  1,
		parent:     parent,
	}
}

// Parent returns the enclosing node, nil for the root and for the expand node.
func (n *Node) Parent() *Node {
	return n.parent
}

// Child returns the direct child with the given name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AttributeList returns the attributes in declaration order.
func (n *Node) AttributeList() []*Attribute {
	out := make([]*Attribute, 0, len(n.attributeOrder))
	for _, name := range n.attributeOrder {
		out = append(out, n.Attributes[name])
	}
	return out
}

// IsUnbounded reports whether the element may appear any number of times.
func (n *Node) IsUnbounded() bool {
	return n.MaxOccurs == Unbounded
}

// Path returns the names from the root down to this node.
func (n *Node) Path() []string {
	var path []string
	for cur := n; cur != nil; cur = cur.parent {
		path = append(path, cur.Name)
	}
	slices.Reverse(path)
	return path
}

func (n *Node) Documentation() string {
	if n.Doc == "" {
		return NoDocumentation
	}
	return n.Doc
}

func (n *Node) addAttribute(a *Attribute) {
	if _, ok := n.Attributes[a.Name]; !ok {
		n.attributeOrder = append(n.attributeOrder, a.Name)
	}
	n.Attributes[a.Name] = a
}

func (n *Node) addChild(c *Node) bool {
	if n.Child(c.Name) != nil {
		return false
	}
	n.Children = append(n.Children, c)
	return true
}

// Tree is a compiled schema. It is never modified after Compile returns and
// may be read from any number of goroutines.
type Tree struct {
	Root   *Node
	Expand *Node

	truncated []string
}

func newTree(root *Node) *Tree {
	expand := newNode(ExpandName, nil)
	expand.MinOccurs = 0
	expand.MaxOccurs = Unbounded
	expand.Doc = "Inserts the content of the macro named by `macro`. Token parameters of the macro are passed as attributes."
	expand.addAttribute(&Attribute{
		Name:     ExpandMacroAttribute,
		Required: true,
		Doc:      "Name of the macro to expand.",
	})
	return &Tree{Root: root, Expand: expand}
}

// FindNodeByPath returns the node matching a stack of element names such as
// [tool inputs param]. The first name may be the root name, in which case the
// walk starts at the root itself. A path ending in the expand element always
// resolves to the expand node. It returns nil when the path does not exist.
func (t *Tree) FindNodeByPath(names []string) *Node {
	if len(names) == 0 || t.Root == nil {
		return nil
	}
	if names[len(names)-1] == ExpandName {
		return t.Expand
	}

	path := slices.Clone(names)
	if path[0] == t.Root.Name {
		path = path[1:]
	}

	cur := t.Root
	for _, name := range path {
		cur = cur.Child(name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Truncated lists the element paths whose expansion was stopped by the
// recursion depth guard.
func (t *Tree) Truncated() []string {
	return slices.Clone(t.truncated)
}

// Render returns an ascii drawing of the tree, one element per line followed by
// its attribute names.
func (t *Tree) Render() string {
	var sb strings.Builder
	var walk func(n *Node, prefix string, last bool, top bool)
	walk = func(n *Node, prefix string, last bool, top bool) {
		line := prefix
		next := prefix
		if !top {
			if last {
				line += "└── "
				next += "    "
			} else {
				line += "├── "
				next += "│   "
			}
		}
		fmt.Fprintf(&sb, "%s[%s] %s\n", line, n.Name, strings.Join(n.attributeOrder, " "))
		for i, c := range n.Children {
			walk(c, next, i == len(n.Children)-1, false)
		}
	}
	if t.Root != nil {
		walk(t.Root, "", true, true)
	}
	return sb.String()
}
