// Package scanner tokenizes tool XML documents one token at a time. It never
// fails: input it cannot make sense of is returned as Unknown tokens and the
// scanner always makes progress, so repeated calls to Scan reach EOS.
package scanner

const (
	errWhitespaceBeforeName = "unexpected whitespace, tag name expected"
	errEndTagName           = "end tag name expected"
	errClosingBracket       = "closing bracket expected"
	errUnexpectedCharacter  = "unexpected character in tag"
)

// Scanner is a finite state machine over a source string.
type Scanner struct {
	stream stream
	state  State

	tokenOffset int
	tokenType   TokenType
	tokenError  string
}

// New creates a scanner positioned at offset in the given state.
func New(source string, offset int, state State) *Scanner {
	s := &Scanner{
		stream: stream{source: source},
		state:  state,
	}
	s.stream.advance(offset)
	return s
}

// Result is a single scanned token and the state that follows it.
type Result struct {
	Type   TokenType
	Offset int
	End    int
	State  State
	Err    string
}

// Scan reads one token of source starting at offset in state.
func Scan(source string, offset int, state State) Result {
	s := New(source, offset, state)
	t := s.Scan()
	return Result{Type: t, Offset: s.TokenOffset(), End: s.TokenEnd(), State: s.State(), Err: s.TokenError()}
}

// Scan advances exactly one token and returns its type.
func (s *Scanner) Scan() TokenType {
	offset := s.stream.pos
	oldState := s.state
	t := s.internalScan()
	if t != EOS && offset == s.stream.pos {
		// no rule consumed input, force progress so callers always terminate
		s.stream.advance(1)
		s.state = oldState
		return s.finishToken(offset, Unknown, "")
	}
	return t
}

func (s *Scanner) State() State {
	return s.state
}

func (s *Scanner) TokenType() TokenType {
	return s.tokenType
}

func (s *Scanner) TokenOffset() int {
	return s.tokenOffset
}

func (s *Scanner) TokenEnd() int {
	return s.stream.pos
}

func (s *Scanner) TokenLength() int {
	return s.stream.pos - s.tokenOffset
}

func (s *Scanner) TokenText() string {
	return s.stream.source[s.tokenOffset:s.stream.pos]
}

// TokenError is the diagnostic attached to the last token, if any.
func (s *Scanner) TokenError() string {
	return s.tokenError
}

func (s *Scanner) finishToken(offset int, t TokenType, errMsg string) TokenType {
	s.tokenType = t
	s.tokenOffset = offset
	s.tokenError = errMsg
	return t
}

func (s *Scanner) internalScan() TokenType {
	offset := s.stream.pos
	if s.stream.eos() {
		return s.finishToken(offset, EOS, "")
	}

	switch s.state {
	case WithinComment:
		if s.stream.advanceIfChars("-->") {
			s.state = WithinContent
			return s.finishToken(offset, EndCommentTag, "")
		}
		s.stream.advanceUntilChars("-->")
		return s.finishToken(offset, Comment, "")

	case WithinCDATA:
		if s.stream.advanceIfChars("]]>") {
			s.state = WithinContent
			return s.finishToken(offset, CDATATagClose, "")
		}
		s.stream.advanceUntilChars("]]>")
		return s.finishToken(offset, CDATAContent, "")

	case PrologOrPI:
		s.state = WithinPI
		if s.stream.advanceWhile(isNameChar) > 0 {
			return s.finishToken(offset, PIName, "")
		}
		return s.internalScan()

	case WithinPI:
		if s.stream.advanceIfChars("?>") {
			s.state = WithinContent
			return s.finishToken(offset, PIEnd, "")
		}
		s.stream.advanceUntilChars("?>")
		return s.finishToken(offset, PIContent, "")

	case WithinContent:
		if s.stream.advanceIfChar('<') {
			if s.stream.advanceIfChars("!--") {
				s.state = WithinComment
				return s.finishToken(offset, StartCommentTag, "")
			}
			if s.stream.advanceIfChars("![CDATA[") {
				s.state = WithinCDATA
				return s.finishToken(offset, CDATATagOpen, "")
			}
			if s.stream.advanceIfChar('/') {
				s.state = AfterOpeningEndTag
				return s.finishToken(offset, EndTagOpen, "")
			}
			if s.stream.advanceIfChar('?') {
				s.state = PrologOrPI
				return s.finishToken(offset, StartPrologOrPI, "")
			}
			s.state = AfterOpeningStartTag
			return s.finishToken(offset, StartTagOpen, "")
		}
		s.stream.advanceUntilChar('<')
		return s.finishToken(offset, Content, "")

	case AfterOpeningEndTag:
		if s.stream.advanceWhile(isNameChar) > 0 && isNameStart(s.stream.source[offset]) {
			s.state = WithinEndTag
			return s.finishToken(offset, EndTag, "")
		}
		s.stream.pos = offset
		if s.stream.skipWhitespace() {
			return s.finishToken(offset, Unknown, errWhitespaceBeforeName)
		}
		s.state = WithinEndTag
		if s.stream.advanceUntilCharOrNewTag('>'); offset < s.stream.pos {
			return s.finishToken(offset, Unknown, errEndTagName)
		}
		return s.internalScan()

	case WithinEndTag:
		if s.stream.skipWhitespace() {
			return s.finishToken(offset, Whitespace, "")
		}
		if s.stream.advanceIfChar('>') {
			s.state = WithinContent
			return s.finishToken(offset, EndTagClose, "")
		}
		if s.stream.peek(0) == '<' {
			s.state = WithinContent
			return s.internalScan()
		}
		s.stream.advanceUntilCharOrNewTag('>')
		return s.finishToken(offset, Unknown, errClosingBracket)

	case AfterOpeningStartTag:
		if s.stream.advanceWhile(isNameChar) > 0 && isNameStart(s.stream.source[offset]) {
			s.state = WithinTag
			return s.finishToken(offset, StartTag, "")
		}
		s.stream.pos = offset
		if s.stream.skipWhitespace() {
			return s.finishToken(offset, Unknown, errWhitespaceBeforeName)
		}
		s.state = WithinTag
		return s.internalScan()

	case WithinTag:
		if s.stream.skipWhitespace() {
			return s.finishToken(offset, Whitespace, "")
		}
		if s.stream.advanceIfChars("/>") {
			s.state = WithinContent
			return s.finishToken(offset, StartTagSelfClose, "")
		}
		if s.stream.advanceIfChar('>') {
			s.state = WithinContent
			return s.finishToken(offset, StartTagClose, "")
		}
		if s.stream.peek(0) == '<' {
			s.state = WithinContent
			return s.internalScan()
		}
		if s.stream.advanceWhile(isAttributeNameChar) > 0 {
			s.state = AfterAttributeName
			return s.finishToken(offset, AttributeName, "")
		}
		s.stream.advance(1)
		return s.finishToken(offset, Unknown, errUnexpectedCharacter)

	case AfterAttributeName:
		if s.stream.skipWhitespace() {
			return s.finishToken(offset, Whitespace, "")
		}
		if s.stream.advanceIfChar('=') {
			s.state = BeforeAttributeValue
			return s.finishToken(offset, DelimiterAssign, "")
		}
		s.state = WithinTag
		return s.internalScan()

	case BeforeAttributeValue:
		if s.stream.skipWhitespace() {
			return s.finishToken(offset, Whitespace, "")
		}
		if q := s.stream.peek(0); q == '"' || q == '\'' {
			s.stream.advance(1)
			if s.stream.advanceUntilChar(q) {
				s.stream.advance(1)
			}
			s.state = WithinTag
			return s.finishToken(offset, AttributeValue, "")
		}
		if s.stream.advanceWhile(isUnquotedValueChar) > 0 {
			s.state = WithinTag
			return s.finishToken(offset, AttributeValue, "")
		}
		s.state = WithinTag
		return s.internalScan()
	}

	s.stream.advance(1)
	s.state = WithinContent
	return s.finishToken(offset, Unknown, "")
}
