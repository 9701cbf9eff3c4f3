// Package xmlcontext resolves a cursor position in a tool document to the
// syntactic token under it and the schema node that governs it.
package xmlcontext

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/walteh/toolxmlls/pkg/position"
	"github.com/walteh/toolxmlls/pkg/syntax"
	"github.com/walteh/toolxmlls/pkg/xsd"
)

// Context describes the position of a cursor inside a document.
type Context struct {
	Offset   int
	Position position.Place
	LineText string

	// Kind is the kind of token under the cursor.
	Kind syntax.Kind
	// Name is the tag name for tags, the attribute name for attribute keys
	// and the unquoted value for attribute values.
	Name string
	// Start and End are the byte offsets of the token, Range its position.
	Start int
	End   int
	Range position.Range

	AttributeName string
	// Stack lists element names from the document root to the token's element.
	Stack []string

	// Node is the schema node for Stack. It falls back to the schema root when
	// Stack does not name a schema path, NodeResolved is then false.
	Node         *xsd.Node
	NodeResolved bool
	// ParentNode is the schema node of the element enclosing the token's
	// element, the schema root when that path is unknown.
	ParentNode *xsd.Node

	// Element is the syntax element owning the token, nil at document level.
	Element *syntax.Node
	// Parent is the syntax element enclosing Element, or the document node.
	Parent *syntax.Node

	// Recovered is set when the line-local recovery path produced the context.
	Recovered bool

	closingTag bool
	closed     bool
	topLevel   bool
	empty      bool
}

func (c *Context) IsTag() bool {
	return c.Kind == syntax.KindElement
}

func (c *Context) IsClosingTag() bool {
	return c.closingTag
}

// IsOpeningTag reports a start tag position.
func (c *Context) IsOpeningTag() bool {
	return c.IsTag() && !c.closingTag
}

func (c *Context) IsAttributeKey() bool {
	return c.Kind == syntax.KindAttributeKey
}

func (c *Context) IsAttributeValue() bool {
	return c.Kind == syntax.KindAttributeValue
}

func (c *Context) IsAttribute() bool {
	return c.IsAttributeKey() || c.IsAttributeValue()
}

func (c *Context) IsContent() bool {
	return c.Kind == syntax.KindContent
}

func (c *Context) IsCDATA() bool {
	return c.Kind == syntax.KindCDATA
}

func (c *Context) IsComment() bool {
	return c.Kind == syntax.KindComment
}

func (c *Context) IsProcessingInstruction() bool {
	return c.Kind == syntax.KindProcessingInstruction
}

// IsEmpty reports a document without any element.
func (c *Context) IsEmpty() bool {
	return c.empty
}

// IsClosed reports whether the start tag of the cursor's element was already
// terminated before the cursor, or the element has an end tag. Text positions
// are always closed.
func (c *Context) IsClosed() bool {
	return c.closed
}

// IsTopLevel reports a position at document level or on a root element tag.
func (c *Context) IsTopLevel() bool {
	return c.topLevel
}

// Resolver resolves contexts against a compiled schema. It holds no per
// document state and is safe for concurrent use.
type Resolver struct {
	tree *xsd.Tree
}

func NewResolver(tree *xsd.Tree) *Resolver {
	return &Resolver{tree: tree}
}

func (me *Resolver) Tree() *xsd.Tree {
	return me.tree
}

// Resolve returns the context at a zero based line and UTF-16 character.
func (me *Resolver) Resolve(ctx context.Context, text string, line, character int) Context {
	offset := position.OffsetOf(text, position.Place{Line: line, Character: character})
	return me.ResolveOffset(ctx, text, offset)
}

// ResolveOffset returns the context at a byte offset. It never fails: when the
// document is broken before the cursor it falls back to the cursor's line.
func (me *Resolver) ResolveOffset(ctx context.Context, text string, offset int) Context {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}

	snap, err := syntax.Locate(text, offset)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Int("offset", offset).Strs("ancestors", snap.Stack).Msg("resolving from the cursor line")
		snap = syntax.Recover(text, offset, snap.Line)
	}

	place := position.PlaceOf(text, offset)
	c := Context{
		Offset:        offset,
		Position:      place,
		LineText:      position.LineText(text, place.Line),
		Kind:          snap.Kind,
		Name:          snap.Name,
		Start:         snap.Start,
		End:           snap.End,
		Range:         position.RangeOf(text, snap.Start, snap.End),
		AttributeName: snap.AttributeName,
		Stack:         snap.Stack,
		Element:       snap.Element,
		Recovered:     snap.Recovered,
		closingTag:    snap.ClosingTag,
		closed:        snap.Closed,
		topLevel:      snap.TopLevel,
		empty:         snap.Empty,
	}

	c.Node, c.NodeResolved = me.lookup(snap.Stack)
	if !c.NodeResolved && len(snap.Stack) > 0 {
		zerolog.Ctx(ctx).Debug().Strs("stack", snap.Stack).Msg("no schema node for element stack, using the root")
	}

	parentStack := snap.Stack
	if el := snap.Element; el != nil {
		switch {
		case c.IsContent() || c.IsComment() || c.IsCDATA() || c.IsProcessingInstruction():
			c.Parent = el
		default:
			c.Parent = el.Parent()
			if el.Name != "" && len(parentStack) > 0 {
				parentStack = parentStack[:len(parentStack)-1]
			}
		}
	}
	c.ParentNode, _ = me.lookup(parentStack)

	return c
}

func (me *Resolver) lookup(stack []string) (*xsd.Node, bool) {
	if me.tree == nil {
		return nil, false
	}
	if n := me.tree.FindNodeByPath(stack); n != nil {
		return n, true
	}
	return me.tree.Root, false
}
