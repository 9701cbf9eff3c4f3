package syntax

import (
	"fmt"

	"github.com/walteh/toolxmlls/pkg/scanner"
)

// Event describes one scanned token after it has been applied to the tree.
type Event struct {
	Token scanner.TokenType
	Start int
	End   int
	Text  string
	// State is the scanner state following the token.
	State scanner.State
	// Err describes a scanner or structural problem found at this token.
	Err string
	// Fatal is set when the document is not well formed at this token.
	Fatal bool

	// Element is the element the token belongs to. For tokens of a start or
	// end tag it is the tag's element, elsewhere the innermost open element.
	// It is nil at document level.
	Element *Node
	// Node is the node created or extended by the token, if any.
	Node *Node
	// Attribute is the attribute an attribute name, delimiter or value token
	// belongs to.
	Attribute *Node
	// Open is the innermost open element once the token is applied, nil at
	// document level.
	Open     *Node
	Document *Node
}

// Outcome is returned by a Visitor: Continue the walk or Stop it with a result.
type Outcome[T any] struct {
	stop  bool
	value T
}

func Continue[T any]() Outcome[T] {
	return Outcome[T]{}
}

func Stop[T any](v T) Outcome[T] {
	return Outcome[T]{stop: true, value: v}
}

type Visitor[T any] func(ev *Event) Outcome[T]

// Walk scans text from the start, growing the syntax tree one token at a time
// and calling visit after each token. The walk ends when visit stops it or
// after the EOS event. The second result reports whether visit stopped it.
func Walk[T any](text string, visit Visitor[T]) (T, bool) {
	b := newBuilder(text)
	for {
		ev := b.next()
		if out := visit(ev); out.stop {
			return out.value, true
		}
		if ev.Token == scanner.EOS {
			var zero T
			return zero, false
		}
	}
}

// Parse builds the whole tolerant syntax tree of text and returns its
// document node.
func Parse(text string) *Node {
	doc, _ := Walk(text, func(ev *Event) Outcome[*Node] {
		if ev.Token == scanner.EOS {
			return Stop(ev.Document)
		}
		return Continue[*Node]()
	})
	return doc
}

type pendingEndTag struct {
	start  int
	target *Node
}

type builder struct {
	text string
	sc   *scanner.Scanner
	doc  *Node
	open []*Node

	// comment, CDATA section or processing instruction being scanned
	cur *Node
	// attribute waiting for its value
	attr   *Node
	endTag *pendingEndTag
}

func newBuilder(text string) *builder {
	return &builder{
		text: text,
		sc:   scanner.New(text, 0, scanner.WithinContent),
		doc:  newNode(KindDocument, 0, len(text), nil),
	}
}

func (b *builder) top() *Node {
	if len(b.open) == 0 {
		return nil
	}
	return b.open[len(b.open)-1]
}

func (b *builder) container() *Node {
	if t := b.top(); t != nil {
		return t
	}
	return b.doc
}

func (b *builder) pop() *Node {
	t := b.top()
	if t != nil {
		b.open = b.open[:len(b.open)-1]
	}
	return t
}

// closeUnfinished pops an element whose start tag never got its closing
// bracket. It cannot own children.
func (b *builder) closeUnfinished(at int) {
	if t := b.top(); t != nil && !t.HasStartTagClose() {
		t.End = at
		b.pop()
	}
	b.attr = nil
	b.endTag = nil
}

func (b *builder) next() *Event {
	tt := b.sc.Scan()
	start, end := b.sc.TokenOffset(), b.sc.TokenEnd()
	ev := &Event{
		Token:    tt,
		Start:    start,
		End:      end,
		Text:     b.sc.TokenText(),
		State:    b.sc.State(),
		Err:      b.sc.TokenError(),
		Document: b.doc,
	}

	switch tt {
	case scanner.StartTagOpen:
		b.closeUnfinished(start)
		el := newNode(KindElement, start, end, b.container())
		b.container().appendChild(el)
		b.open = append(b.open, el)
		ev.Node = el

	case scanner.StartTag:
		if el := b.top(); el != nil && el.NameStart < 0 {
			el.Name = b.sc.TokenText()
			el.NameStart, el.NameEnd = start, end
			el.End = end
			ev.Node = el
		}

	case scanner.AttributeName:
		if el := b.top(); el != nil {
			attr := newNode(KindAttribute, start, end, el)
			attr.Name = b.sc.TokenText()
			attr.Key = newNode(KindAttributeKey, start, end, attr)
			attr.Key.Name = attr.Name
			el.Attributes = append(el.Attributes, attr)
			el.End = end
			b.attr = attr
			ev.Node = attr.Key
			ev.Attribute = attr
		}

	case scanner.DelimiterAssign:
		if b.attr != nil {
			b.attr.HasDelimiter = true
			b.attr.End = end
			ev.Attribute = b.attr
		}

	case scanner.AttributeValue:
		if b.attr != nil {
			raw := b.sc.TokenText()
			val := newNode(KindAttributeValue, start, end, b.attr)
			val.Text = unquote(raw)
			val.Name = b.attr.Name
			b.attr.Value = val
			b.attr.End = end
			ev.Node = val
			ev.Attribute = b.attr
			b.attr = nil
		}
		if el := b.top(); el != nil {
			el.End = end
		}

	case scanner.StartTagClose:
		if el := b.top(); el != nil {
			el.StartTagEnd = end
			el.End = end
			ev.Node = el
		}
		b.attr = nil

	case scanner.StartTagSelfClose:
		if el := b.pop(); el != nil {
			el.StartTagEnd = end
			el.End = end
			el.SelfClosed = true
			el.Closed = true
			ev.Node = el
			ev.Element = el
		}
		b.attr = nil

	case scanner.EndTagOpen:
		b.closeUnfinished(start)
		b.endTag = &pendingEndTag{start: start}

	case scanner.EndTag:
		name := b.sc.TokenText()
		if b.endTag == nil {
			b.endTag = &pendingEndTag{start: start - 2}
		}
		idx := -1
		for i := len(b.open) - 1; i >= 0; i-- {
			if b.open[i].Name == name {
				idx = i
				break
			}
		}
		switch {
		case idx < 0:
			ev.Err = fmt.Sprintf("unexpected end tag </%s>", name)
			ev.Fatal = true
		case idx != len(b.open)-1:
			ev.Err = fmt.Sprintf("end tag </%s> does not match </%s>", name, b.top().Name)
			ev.Fatal = true
		}
		if idx >= 0 {
			for len(b.open)-1 > idx {
				b.pop().End = b.endTag.start
			}
			el := b.pop()
			el.EndTagStart = b.endTag.start
			el.End = end
			el.Closed = true
			b.endTag.target = el
			ev.Node = el
			ev.Element = el
		}

	case scanner.EndTagClose:
		if b.endTag != nil && b.endTag.target != nil {
			b.endTag.target.End = end
			ev.Element = b.endTag.target
			ev.Node = b.endTag.target
		}
		b.endTag = nil

	case scanner.Content:
		c := newNode(KindContent, start, end, nil)
		c.Text = b.sc.TokenText()
		c.Closed = true
		b.container().appendChild(c)
		ev.Node = c

	case scanner.StartCommentTag, scanner.CDATATagOpen, scanner.StartPrologOrPI:
		b.closeUnfinished(start)
		kind := KindComment
		if tt == scanner.CDATATagOpen {
			kind = KindCDATA
		} else if tt == scanner.StartPrologOrPI {
			kind = KindProcessingInstruction
		}
		n := newNode(kind, start, end, nil)
		b.container().appendChild(n)
		b.cur = n
		ev.Node = n

	case scanner.Comment, scanner.CDATAContent, scanner.PIContent:
		if b.cur != nil {
			b.cur.Text = b.sc.TokenText()
			b.cur.End = end
			ev.Node = b.cur
		}

	case scanner.PIName:
		if b.cur != nil {
			b.cur.Name = b.sc.TokenText()
			b.cur.End = end
			ev.Node = b.cur
		}

	case scanner.EndCommentTag, scanner.CDATATagClose, scanner.PIEnd:
		if b.cur != nil {
			b.cur.End = end
			b.cur.Closed = true
			ev.Node = b.cur
		}
		b.cur = nil

	case scanner.Unknown:
		if ev.Err == "" {
			ev.Err = fmt.Sprintf("unexpected %q", b.sc.TokenText())
		}
		ev.Fatal = true

	case scanner.EOS:
		for _, el := range b.open {
			el.End = len(b.text)
		}
		ev.Node = b.cur
	}

	ev.Open = b.top()

	if ev.Element == nil {
		switch {
		case ev.State.InEndTag() || tt == scanner.EndTagClose:
			if b.endTag != nil && b.endTag.target != nil {
				ev.Element = b.endTag.target
			} else {
				ev.Element = b.top()
			}
		default:
			ev.Element = b.top()
		}
	}

	return ev
}

func unquote(raw string) string {
	if len(raw) == 0 {
		return raw
	}
	q := raw[0]
	if q != '"' && q != '\'' {
		return raw
	}
	raw = raw[1:]
	if n := len(raw); n > 0 && raw[n-1] == q {
		raw = raw[:n-1]
	}
	return raw
}
