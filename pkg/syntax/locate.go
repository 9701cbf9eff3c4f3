package syntax

import (
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/toolxmlls/pkg/position"
	"github.com/walteh/toolxmlls/pkg/scanner"
)

// ErrStructural is returned by Locate when the document is not well formed
// before the target offset.
var ErrStructural = errors.Base("document is not well formed before the target")

// Snapshot is the syntactic position of a target offset.
type Snapshot struct {
	Kind Kind
	// Name is the element name for tag positions, the attribute name for
	// attribute keys and the unquoted value for attribute values.
	Name string
	// Start and End delimit the token under the target: the tag name, the
	// attribute key, the inner span of an attribute value or the text run.
	Start int
	End   int
	// AttributeName is set for attribute keys and values.
	AttributeName string
	// Element is the element owning the position, nil at document level.
	Element *Node
	// Stack lists the element names from the document root down to the
	// position's element.
	Stack      []string
	ClosingTag bool
	Closed     bool
	TopLevel   bool
	Empty      bool
	Recovered  bool

	// Line is where the target's line starts in the tolerant walk. It is only
	// set with ErrStructural.
	Line LineStart
}

// LineStart is the state of a tolerant walk at the first offset of a line.
type LineStart struct {
	// Ancestors are the names of the elements open at the line start. Inside
	// a start or end tag the last one is the element of that tag.
	Ancestors []string
	State     scanner.State
	// Attribute is the attribute waiting for a delimiter or a value when the
	// line starts after an attribute name.
	Attribute string
}

// LineStartOf walks the whole of text tolerantly and returns the state where
// the line holding target starts.
func LineStartOf(text string, target int) LineStart {
	target = max(0, min(target, len(text)))
	lineStart, _ := position.LineBoundsAt(text, target)
	lt := &lineTracker{offset: lineStart}
	res, _ := Walk(text, func(ev *Event) Outcome[LineStart] {
		lt.mark(ev)
		if ev.End > lineStart || ev.Token == scanner.EOS {
			return Stop(lt.lineStart())
		}
		return Continue[LineStart]()
	})
	return res
}

type lineTracker struct {
	offset int
	node   *Node
	state  scanner.State
}

// mark records the walk state after ev when ev ends before the line.
func (lt *lineTracker) mark(ev *Event) {
	if ev.End > lt.offset {
		return
	}
	lt.state = ev.State
	if ev.State.InEndTag() {
		lt.node = ev.Element
	} else {
		lt.node = ev.Open
	}
}

func (lt *lineTracker) lineStart() LineStart {
	ls := LineStart{State: lt.state}
	if lt.node == nil {
		return ls
	}
	ls.Ancestors = lt.node.Stack()
	switch lt.state {
	case scanner.AfterAttributeName, scanner.BeforeAttributeValue:
		if n := len(lt.node.Attributes); n > 0 {
			ls.Attribute = lt.node.Attributes[n-1].Name
		}
	}
	return ls
}

func (s Snapshot) IsTag() bool {
	return s.Kind == KindElement
}

// Locate walks text from the start and classifies the token under target. It
// stops as soon as the target is classified. When the document is broken
// before target it keeps walking tolerantly to the start of the target's line
// and returns ErrStructural with a Snapshot whose Line and Stack describe the
// elements open there.
func Locate(text string, target int) (Snapshot, error) {
	if target < 0 {
		target = 0
	}
	if target > len(text) {
		target = len(text)
	}
	lineStart, _ := position.LineBoundsAt(text, target)
	l := &locator{target: target, line: lineTracker{offset: lineStart}}
	res, _ := Walk(text, l.visit)
	return res.snapshot, res.err
}

type located struct {
	snapshot Snapshot
	err      error
}

type locator struct {
	target int

	// a '<' or '</' starts at the target and the following name decides
	opening    *Node
	closing    bool
	closingTop *Node

	// set once classified while the rest of the start tag is collected
	found *Snapshot

	// set once the document is broken before the target
	broken error
	line   lineTracker
}

func (l *locator) visit(ev *Event) Outcome[located] {
	l.line.mark(ev)

	if l.broken != nil {
		return l.walkToLine(ev)
	}
	if l.found != nil {
		return l.drain(ev)
	}

	if s, ok := l.classify(ev); ok {
		if ev.Token == scanner.EOS {
			return Stop(located{snapshot: l.finish(s)})
		}
		return l.settle(s)
	}

	if ev.Fatal && ev.Start < l.target {
		l.broken = errors.Errorf("%w: %s at offset %d", ErrStructural, ev.Err, ev.Start)
		return l.walkToLine(ev)
	}

	return Continue[located]()
}

// walkToLine lets the tolerant builder run on after a structural error until
// the target's line starts.
func (l *locator) walkToLine(ev *Event) Outcome[located] {
	if ev.End <= l.line.offset && ev.Token != scanner.EOS {
		return Continue[located]()
	}
	line := l.line.lineStart()
	snap := Snapshot{Stack: line.Ancestors, Line: line}
	if n := l.line.node; n != nil {
		snap.Kind = KindElement
		snap.Name = n.Name
		snap.Element = n
	}
	return Stop(located{snapshot: snap, err: l.broken})
}

func (l *locator) settle(s Snapshot) Outcome[located] {
	el := s.Element
	if s.ClosingTag || el == nil || el.HasStartTagClose() || s.Kind == KindContent {
		return Stop(located{snapshot: l.finish(s)})
	}
	switch s.Kind {
	case KindElement, KindAttributeKey, KindAttributeValue:
		l.found = &s
		return Continue[located]()
	}
	return Stop(located{snapshot: l.finish(s)})
}

// drain keeps the walk going to the end of the start tag holding the target
// so attributes after the cursor are known.
func (l *locator) drain(ev *Event) Outcome[located] {
	switch ev.Token {
	case scanner.AttributeName, scanner.DelimiterAssign, scanner.AttributeValue, scanner.Whitespace, scanner.Unknown:
		if ev.State.InTag() {
			return Continue[located]()
		}
	}
	return Stop(located{snapshot: l.finish(*l.found)})
}

func (l *locator) finish(s Snapshot) Snapshot {
	if s.Element != nil && !s.ClosingTag && s.Kind != KindContent && s.Kind != KindComment &&
		s.Kind != KindCDATA && s.Kind != KindProcessingInstruction {
		s.Closed = elementClosedAt(s.Element, l.target)
	}
	return s
}

func elementClosedAt(el *Node, target int) bool {
	return (el.StartTagEnd >= 0 && el.StartTagEnd <= target) || el.HasEndTag()
}

func within(ev *Event, t int) bool {
	return ev.Start <= t && t <= ev.End
}

func before(ev *Event, t int) bool {
	return ev.Start <= t && t < ev.End
}

func (l *locator) classify(ev *Event) (Snapshot, bool) {
	t := l.target

	if l.opening != nil {
		el := l.opening
		l.opening = nil
		return tagSnapshot(el), true
	}
	if l.closing {
		l.closing = false
		if ev.Token == scanner.EndTag {
			return closingSnapshot(ev.Node, l.closingTop, ev.Text, ev.Start, ev.End), true
		}
		name := ""
		if l.closingTop != nil {
			name = l.closingTop.Name
		}
		return closingSnapshot(l.closingTop, l.closingTop, name, t, t), true
	}

	switch ev.Token {
	case scanner.StartTagOpen:
		if ev.Start == t {
			l.opening = ev.Element
		}

	case scanner.EndTagOpen:
		if before(ev, t) {
			l.closing = true
			l.closingTop = ev.Element
		}

	case scanner.StartTag:
		if within(ev, t) {
			return tagSnapshot(ev.Element), true
		}

	case scanner.EndTag:
		if within(ev, t) {
			return closingSnapshot(ev.Node, ev.Element, ev.Text, ev.Start, ev.End), true
		}

	case scanner.AttributeName:
		if within(ev, t) && ev.Attribute != nil {
			return attributeKeySnapshot(ev.Element, ev.Attribute), true
		}

	case scanner.AttributeValue:
		if within(ev, t) && ev.Attribute != nil {
			return attributeValueSnapshot(ev.Element, ev.Attribute, ev.Text, ev.Start, ev.End), true
		}

	case scanner.Content:
		if within(ev, t) {
			return textSnapshot(KindContent, ev.Element, ev.Document, ev.Start, ev.End), true
		}

	case scanner.Comment, scanner.CDATAContent, scanner.PIName, scanner.PIContent:
		if within(ev, t) && ev.Node != nil {
			return textSnapshot(ev.Node.Kind, ev.Element, ev.Document, ev.Start, ev.End), true
		}

	case scanner.StartCommentTag, scanner.EndCommentTag, scanner.CDATATagOpen, scanner.CDATATagClose,
		scanner.StartPrologOrPI, scanner.PIEnd:
		if before(ev, t) && ev.Node != nil {
			return textSnapshot(ev.Node.Kind, ev.Element, ev.Document, ev.Start, ev.End), true
		}

	case scanner.StartTagClose, scanner.DelimiterAssign:
		if before(ev, t) && ev.Element != nil {
			return tagSnapshot(ev.Element), true
		}

	case scanner.StartTagSelfClose:
		if before(ev, t) && ev.Node != nil {
			return tagSnapshot(ev.Node), true
		}

	case scanner.EndTagClose:
		if before(ev, t) {
			el := ev.Element
			name := ""
			if el != nil {
				name = el.Name
			}
			return closingSnapshot(el, el, name, t, t), true
		}

	case scanner.Whitespace, scanner.Unknown:
		if !before(ev, t) {
			break
		}
		switch {
		case ev.State.InEndTag():
			el := ev.Element
			name := ""
			if el != nil {
				name = el.Name
			}
			return closingSnapshot(el, el, name, t, t), true
		case ev.State.InTag() && ev.Element != nil:
			return tagSnapshot(ev.Element), true
		case ev.Token == scanner.Unknown:
			return textSnapshot(KindContent, ev.Element, ev.Document, ev.Start, ev.End), true
		}

	case scanner.EOS:
		return eosSnapshot(ev, t), true
	}

	return Snapshot{}, false
}

func eosSnapshot(ev *Event, t int) Snapshot {
	switch {
	case ev.State.InTag() && ev.Element != nil:
		return tagSnapshot(ev.Element)
	case ev.State.InEndTag():
		el := ev.Element
		name := ""
		if el != nil {
			name = el.Name
		}
		return closingSnapshot(el, el, name, t, t)
	case ev.Node != nil:
		return textSnapshot(ev.Node.Kind, ev.Element, ev.Document, t, t)
	case ev.Element != nil:
		return tagSnapshot(ev.Element)
	}
	return documentSnapshot(ev.Document, t)
}

func tagSnapshot(el *Node) Snapshot {
	s := Snapshot{
		Kind:     KindElement,
		Name:     el.Name,
		Element:  el,
		Stack:    el.Stack(),
		TopLevel: isTopLevel(el),
	}
	if el.NameStart >= 0 {
		s.Start, s.End = el.NameStart, el.NameEnd
	} else {
		s.Start, s.End = el.Start+1, el.Start+1
	}
	return s
}

// closingSnapshot describes an end tag. el is the element the end tag closes,
// nil for an orphan end tag found inside enclosing.
func closingSnapshot(el, enclosing *Node, name string, start, end int) Snapshot {
	s := Snapshot{
		Kind:       KindElement,
		Name:       name,
		Start:      start,
		End:        end,
		Element:    el,
		ClosingTag: true,
		Closed:     true,
	}
	switch {
	case el != nil:
		s.Stack = el.Stack()
		s.TopLevel = isTopLevel(el)
	case enclosing != nil:
		s.Stack = append(enclosing.Stack(), name)
	case name != "":
		s.Stack = []string{name}
	}
	return s
}

func attributeKeySnapshot(el, attr *Node) Snapshot {
	return Snapshot{
		Kind:          KindAttributeKey,
		Name:          attr.Name,
		AttributeName: attr.Name,
		Start:         attr.Key.Start,
		End:           attr.Key.End,
		Element:       el,
		Stack:         el.Stack(),
		TopLevel:      isTopLevel(el),
	}
}

func attributeValueSnapshot(el, attr *Node, raw string, start, end int) Snapshot {
	s := Snapshot{
		Kind:          KindAttributeValue,
		AttributeName: attr.Name,
		Element:       el,
		Stack:         el.Stack(),
		TopLevel:      isTopLevel(el),
	}
	if attr.Value != nil {
		s.Name = attr.Value.Text
	}
	s.Start, s.End = innerSpan(raw, start, end)
	return s
}

// innerSpan strips the quotes of a raw attribute value spanning start..end.
func innerSpan(raw string, start, end int) (int, int) {
	if raw == "" {
		return start, end
	}
	q := raw[0]
	if q != '"' && q != '\'' {
		return start, end
	}
	start++
	if len(raw) > 1 && raw[len(raw)-1] == q {
		end--
	}
	return start, end
}

func textSnapshot(kind Kind, enclosing, doc *Node, start, end int) Snapshot {
	s := Snapshot{
		Kind:    kind,
		Start:   start,
		End:     end,
		Element: enclosing,
		Closed:  true,
	}
	if enclosing != nil {
		s.Stack = enclosing.Stack()
	} else {
		s.TopLevel = true
		s.Empty = doc == nil || len(doc.Elements()) == 0
	}
	return s
}

func documentSnapshot(doc *Node, t int) Snapshot {
	return Snapshot{
		Kind:     KindDocument,
		Start:    t,
		End:      t,
		TopLevel: true,
		Empty:    doc == nil || len(doc.Elements()) == 0,
	}
}

func isTopLevel(el *Node) bool {
	return el.parent == nil || el.parent.Kind == KindDocument
}
