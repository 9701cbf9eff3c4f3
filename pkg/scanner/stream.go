package scanner

import "strings"

// stream is a cursor over the source text. All offsets are byte offsets.
type stream struct {
	source string
	pos    int
}

func (s *stream) eos() bool {
	return s.pos >= len(s.source)
}

func (s *stream) peek(n int) byte {
	if s.pos+n >= len(s.source) || s.pos+n < 0 {
		return 0
	}
	return s.source[s.pos+n]
}

func (s *stream) advance(n int) {
	s.pos = max(0, min(s.pos+n, len(s.source)))
}

func (s *stream) advanceIfChar(c byte) bool {
	if s.peek(0) == c && !s.eos() {
		s.pos++
		return true
	}
	return false
}

func (s *stream) advanceIfChars(chars string) bool {
	if strings.HasPrefix(s.source[s.pos:], chars) {
		s.pos += len(chars)
		return true
	}
	return false
}

// advanceUntilChars moves to the start of the next occurrence of chars, or to
// the end of the stream. It reports whether chars was found.
func (s *stream) advanceUntilChars(chars string) bool {
	i := strings.Index(s.source[s.pos:], chars)
	if i < 0 {
		s.pos = len(s.source)
		return false
	}
	s.pos += i
	return true
}

func (s *stream) advanceUntilChar(c byte) bool {
	return s.advanceUntilChars(string(c))
}

// advanceUntilCharOrNewTag stops before c or before a '<' that opens another tag.
func (s *stream) advanceUntilCharOrNewTag(c byte) bool {
	for !s.eos() {
		ch := s.source[s.pos]
		if ch == c || ch == '<' {
			return true
		}
		s.pos++
	}
	return false
}

func (s *stream) advanceWhile(pred func(byte) bool) int {
	start := s.pos
	for !s.eos() && pred(s.source[s.pos]) {
		s.pos++
	}
	return s.pos - start
}

func (s *stream) skipWhitespace() bool {
	return s.advanceWhile(isWhitespace) > 0
}

func isWhitespace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}

func isNameStart(c byte) bool {
	return c == '_' || c == ':' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

func isNameChar(c byte) bool {
	return isNameStart(c) || c == '-' || c == '.' || c >= '0' && c <= '9'
}

func isAttributeNameChar(c byte) bool {
	switch c {
	case '"', '\'', '>', '/', '=', '<':
		return false
	}
	return !isWhitespace(c) && c > 0x1f && c != 0x7f
}

func isUnquotedValueChar(c byte) bool {
	switch c {
	case '"', '\'', '>', '<', '`', '=':
		return false
	}
	return !isWhitespace(c)
}
