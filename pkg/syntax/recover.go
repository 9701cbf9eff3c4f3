package syntax

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/walteh/toolxmlls/pkg/position"
	"github.com/walteh/toolxmlls/pkg/scanner"
)

var (
	lineRules = lexer.Rules{
		"Root": {
			{Name: "Comment", Pattern: `<!--.*?(?:-->|$)`, Action: nil},
			{Name: "CDATA", Pattern: `<!\[CDATA\[.*?(?:\]\]>|$)`, Action: nil},
			{Name: "PI", Pattern: `<\?.*?(?:\?>|$)`, Action: nil},
			{Name: "EndTag", Pattern: `</[^\s<>/]*\s*>?`, Action: nil},
			{Name: "StartTag", Pattern: `<[^\s<>/!?="']*`, Action: lexer.Push("Tag")},
			{Name: "Text", Pattern: `[^<]+`, Action: nil},
			{Name: "Other", Pattern: `.`, Action: nil},
		},
		"Tag": {
			{Name: "Comment", Pattern: `<!--.*?(?:-->|$)`, Action: lexer.Pop()},
			{Name: "CDATA", Pattern: `<!\[CDATA\[.*?(?:\]\]>|$)`, Action: lexer.Pop()},
			{Name: "PI", Pattern: `<\?.*?(?:\?>|$)`, Action: lexer.Pop()},
			{Name: "EndTag", Pattern: `</[^\s<>/]*\s*>?`, Action: lexer.Pop()},
			{Name: "StartTag", Pattern: `<[^\s<>/!?="']*`, Action: nil},
			{Name: "SelfClose", Pattern: `/>`, Action: lexer.Pop()},
			{Name: "Close", Pattern: `>`, Action: lexer.Pop()},
			{Name: "Attribute", Pattern: `[^\s<>/="']+(?:\s*=\s*(?:"[^"]*"?|'[^']*'?|[^\s<>"'=` + "`" + `]+)?)?`, Action: nil},
			{Name: "Whitespace", Pattern: `\s+`, Action: nil},
			{Name: "Other", Pattern: `.`, Action: nil},
		},
	}

	// LineLexer splits a single line of tool XML into coarse tag level tokens.
	LineLexer = lexer.MustStateful(lineRules)

	lineSymbols = LineLexer.Symbols()
)

// Recover classifies target using only the text of its own line. It is used
// when the document is broken before target: line is the state where the line
// starts, as reported by Locate with ErrStructural. A line starting inside a
// tag, comment, CDATA section or processing instruction is lexed as if that
// construct had been opened right before it. Elements built here are detached
// from the real document, so sibling information is limited to the line.
func Recover(text string, target int, line LineStart) Snapshot {
	if target < 0 {
		target = 0
	}
	if target > len(text) {
		target = len(text)
	}
	lineStart, lineEnd := position.LineBoundsAt(text, target)
	prefix, ancestors := line.prefix()

	r := &recovery{
		target:    target,
		lineStart: lineStart,
		doc:       newNode(KindDocument, 0, len(text), nil),
	}
	for _, name := range ancestors {
		el := newNode(KindElement, lineStart, lineStart, r.container())
		el.Name = name
		el.StartTagEnd = lineStart
		r.container().appendChild(el)
		r.open = append(r.open, el)
	}

	snap := r.run(text, prefix, lineEnd)
	snap.Recovered = true
	snap.Empty = false
	return snap
}

// prefix returns the markup that reopens the construct the line starts in,
// and the ancestors left once that markup is lexed.
func (l LineStart) prefix() (string, []string) {
	anc := l.Ancestors
	switch l.State {
	case scanner.WithinCDATA:
		return "<![CDATA[", anc
	case scanner.WithinComment:
		return "<!--", anc
	case scanner.PrologOrPI, scanner.WithinPI:
		return "<?", anc
	case scanner.AfterOpeningStartTag:
		return "<", anc
	case scanner.AfterOpeningEndTag:
		return "</", anc
	}

	if len(anc) == 0 {
		return "", anc
	}
	last := anc[len(anc)-1]
	switch l.State {
	case scanner.WithinTag:
		return "<" + last + " ", anc[:len(anc)-1]
	case scanner.AfterAttributeName, scanner.BeforeAttributeValue:
		p := "<" + last + " "
		if l.Attribute != "" {
			p += l.Attribute + " "
			if l.State == scanner.BeforeAttributeValue {
				p += "="
			}
		}
		return p, anc[:len(anc)-1]
	case scanner.WithinEndTag:
		return "</" + last, anc
	}
	return "", anc
}

type recovery struct {
	target    int
	lineStart int
	doc       *Node
	open      []*Node
	inTag     *Node
	found     *Snapshot
}

func (r *recovery) top() *Node {
	if len(r.open) == 0 {
		return nil
	}
	return r.open[len(r.open)-1]
}

func (r *recovery) container() *Node {
	if t := r.top(); t != nil {
		return t
	}
	return r.doc
}

func (r *recovery) classify(s Snapshot) {
	if r.found == nil {
		r.found = &s
	}
}

// closeUnfinished drops a start tag left open by a new markup construct.
func (r *recovery) closeUnfinished() {
	if r.inTag != nil && r.top() == r.inTag {
		r.open = r.open[:len(r.open)-1]
	}
	r.inTag = nil
}

func (r *recovery) run(text, prefix string, lineEnd int) Snapshot {
	t := r.target
	lineStart := r.lineStart

	// a line break before the line start is content of the enclosing element
	if t == lineStart && lineStart > 0 && prefix == "" {
		return textSnapshot(KindContent, r.top(), r.doc, t, t)
	}

	lex, err := LineLexer.LexString("", prefix+text[lineStart:lineEnd])
	if err == nil {
		r.lex(lex, lineStart-len(prefix))
	}

	if r.found == nil {
		switch {
		case r.inTag != nil:
			r.classify(tagSnapshot(r.inTag))
		case lineEnd < len(text):
			r.classify(textSnapshot(KindContent, r.top(), r.doc, t, t))
		case r.top() != nil:
			r.classify(tagSnapshot(r.top()))
		default:
			r.classify(documentSnapshot(r.doc, t))
		}
	}

	s := *r.found
	switch s.Kind {
	case KindElement, KindAttributeKey, KindAttributeValue:
		if s.Element != nil && !s.ClosingTag {
			s.Closed = elementClosedAt(s.Element, t)
		}
	}
	return s
}

// lex walks the line tokens. base is the offset of the first lexed byte,
// before the line start when a prefix reopens a construct.
func (r *recovery) lex(lex lexer.Lexer, base int) {
	t := r.target
	runStart := -1

	for {
		tok, err := lex.Next()
		if err != nil || tok.EOF() {
			return
		}
		raw := base + tok.Pos.Offset
		e := max(raw+len(tok.Value), r.lineStart)
		s := max(raw, r.lineStart)

		switch tok.Type {
		case lineSymbols["StartTag"]:
			runStart = -1
			r.closeUnfinished()
			el := newNode(KindElement, s, e, r.container())
			if name := tok.Value[1:]; name != "" {
				el.Name = name
				el.NameStart, el.NameEnd = max(raw+1, r.lineStart), e
			}
			r.container().appendChild(el)
			r.open = append(r.open, el)
			r.inTag = el
			// a tag reopened by the prefix is not under the target
			if raw+len(tok.Value) > r.lineStart && s <= t && t <= e {
				r.classify(tagSnapshot(el))
			}

		case lineSymbols["EndTag"]:
			runStart = -1
			r.closeUnfinished()
			r.endTag(tok.Value, raw, e)

		case lineSymbols["Comment"], lineSymbols["CDATA"], lineSymbols["PI"]:
			runStart = -1
			r.closeUnfinished()
			kind, terminated := markupKind(tok.Value)
			n := newNode(kind, s, e, nil)
			n.Closed = terminated
			r.container().appendChild(n)
			if s <= t && (t < e || (t == e && !terminated)) {
				r.classify(textSnapshot(kind, r.top(), r.doc, s, e))
			}

		case lineSymbols["SelfClose"]:
			if el := r.inTag; el != nil {
				if s <= t && t < e {
					r.classify(tagSnapshot(el))
				}
				el.StartTagEnd, el.End = e, e
				el.SelfClosed, el.Closed = true, true
				r.closeUnfinished()
			}

		case lineSymbols["Close"]:
			if el := r.inTag; el != nil {
				if t == s {
					r.classify(tagSnapshot(el))
				}
				el.StartTagEnd, el.End = e, e
				r.inTag = nil
			}

		case lineSymbols["Attribute"]:
			if el := r.inTag; el != nil {
				r.attribute(el, tok.Value, raw, e)
			}

		default:
			if r.inTag != nil {
				if s <= t && t < e {
					r.classify(tagSnapshot(r.inTag))
				}
				continue
			}
			if runStart < 0 {
				runStart = s
			}
			if s <= t && t <= e {
				r.classify(textSnapshot(KindContent, r.top(), r.doc, runStart, e))
			}
		}
	}
}

func (r *recovery) endTag(raw string, s, e int) {
	t := r.target
	hasClose := strings.HasSuffix(raw, ">")
	name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "</"), ">"))
	nameStart := max(s+2, r.lineStart)
	nameEnd := max(s+2+len(name), nameStart)

	idx := -1
	for i := len(r.open) - 1; i >= 0; i-- {
		if r.open[i].Name == name {
			idx = i
			break
		}
	}

	if s <= t && (t < e || (t == e && !hasClose)) {
		var el *Node
		if idx >= 0 {
			el = r.open[idx]
		}
		r.classify(closingSnapshot(el, r.top(), name, nameStart, nameEnd))
	}

	if idx >= 0 {
		el := r.open[idx]
		el.EndTagStart = s
		el.End = e
		el.Closed = true
		r.open = r.open[:idx]
	}
}

func (r *recovery) attribute(el *Node, raw string, s, e int) {
	t := r.target

	keyLen := strings.IndexAny(raw, " \t\r\n\f=")
	if keyLen < 0 {
		keyLen = len(raw)
	}
	attr := newNode(KindAttribute, s, e, el)
	attr.Name = raw[:keyLen]
	attr.Key = newNode(KindAttributeKey, s, s+keyLen, attr)
	attr.Key.Name = attr.Name

	valueStart := -1
	if eq := strings.IndexByte(raw, '='); eq >= 0 {
		attr.HasDelimiter = true
		rest := raw[eq+1:]
		trimmed := strings.TrimLeft(rest, " \t\r\n\f")
		if trimmed != "" {
			valueStart = s + eq + 1 + len(rest) - len(trimmed)
			val := newNode(KindAttributeValue, valueStart, e, attr)
			val.Text = unquote(trimmed)
			val.Name = attr.Name
			attr.Value = val
		}
	}
	el.Attributes = append(el.Attributes, attr)
	el.End = e

	if s > t || t > e {
		return
	}
	switch {
	case t <= attr.Key.End:
		r.classify(attributeKeySnapshot(el, attr))
	case valueStart >= 0 && t >= valueStart:
		r.classify(attributeValueSnapshot(el, attr, raw[valueStart-s:], valueStart, e))
	default:
		r.classify(tagSnapshot(el))
	}
}

func markupKind(raw string) (Kind, bool) {
	switch {
	case strings.HasPrefix(raw, "<!--"):
		return KindComment, len(raw) >= 7 && strings.HasSuffix(raw, "-->")
	case strings.HasPrefix(raw, "<![CDATA["):
		return KindCDATA, len(raw) >= 12 && strings.HasSuffix(raw, "]]>")
	}
	return KindProcessingInstruction, len(raw) >= 4 && strings.HasSuffix(raw, "?>")
}
