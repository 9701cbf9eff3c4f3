package position

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// Place is a zero-based line / character pair. Character counts UTF-16 code
// units, the unit editors speak.
type Place struct {
	Line      int
	Character int
}

type Range struct {
	Start Place
	End   Place
}

// Contains reports whether p falls inside r, both ends inclusive.
func (r Range) Contains(p Place) bool {
	if p.Line < r.Start.Line || p.Line > r.End.Line {
		return false
	}
	if p.Line == r.Start.Line && p.Character < r.Start.Character {
		return false
	}
	if p.Line == r.End.Line && p.Character > r.End.Character {
		return false
	}
	return true
}

func (r Range) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.Start.Line, r.Start.Character, r.End.Line, r.End.Character)
}

// RawPosition represents a position in the source text
type RawPosition struct {
	// Offset is the byte offset in the source text
	Offset int
	// Text is the actual text at this position
	Text string
}

// ID returns a unique identifier for this position based on offset and text
func (p *RawPosition) ID() string {
	return fmt.Sprintf("%s@%d", p.Text, p.Offset)
}

// Length returns the length of the text at this position
func (p *RawPosition) Length() int {
	return len(p.Text)
}

func NewBasicPosition(text string, offset int) RawPosition {
	return RawPosition{Text: text, Offset: offset}
}

// NewRawPositionFromLineAndColumn converts an editor line / character into a
// byte offset of fileText. Out of range coordinates are clamped to the nearest
// valid offset.
func NewRawPositionFromLineAndColumn(line, col int, text, fileText string) RawPosition {
	return RawPosition{Text: text, Offset: OffsetOf(fileText, Place{Line: line, Character: col})}
}

// OffsetOf returns the byte offset of p in text, clamped to the text.
func OffsetOf(text string, p Place) int {
	if p.Line < 0 {
		return 0
	}
	start, end, ok := lineBounds(text, p.Line)
	if !ok {
		return len(text)
	}
	units := 0
	for i, r := range text[start:end] {
		if units >= p.Character {
			return start + i
		}
		units += utf16Len(r)
	}
	return end
}

// PlaceOf returns the line / character of a byte offset in text.
func PlaceOf(text string, offset int) Place {
	if offset > len(text) {
		offset = len(text)
	}
	if offset < 0 {
		offset = 0
	}
	line := strings.Count(text[:offset], "\n")
	lineStart := strings.LastIndexByte(text[:offset], '\n') + 1
	return Place{Line: line, Character: utf16Count(text[lineStart:offset])}
}

// RangeOf converts the byte span [start, end) of text into a Range.
func RangeOf(text string, start, end int) Range {
	return Range{Start: PlaceOf(text, start), End: PlaceOf(text, end)}
}

// LineText returns the text of the given line without its line break.
func LineText(text string, line int) string {
	start, end, ok := lineBounds(text, line)
	if !ok {
		return ""
	}
	return text[start:end]
}

// LineBoundsAt returns the byte span of the line holding offset.
func LineBoundsAt(text string, offset int) (start, end int) {
	if offset > len(text) {
		offset = len(text)
	}
	start = strings.LastIndexByte(text[:offset], '\n') + 1
	end = strings.IndexByte(text[offset:], '\n')
	if end < 0 {
		return start, len(text)
	}
	end += offset
	if end > start && text[end-1] == '\r' {
		end--
	}
	return start, end
}

func (p RawPosition) HasRangeOverlapWith(start RawPosition) bool {
	startOffset := start.Offset
	endOffset := startOffset + start.Length()

	posOffset := p.Offset
	posEndOffset := posOffset + p.Length()

	if p.Length() == 0 {
		return posOffset >= startOffset && posOffset <= endOffset
	}
	if start.Length() == 0 {
		return startOffset >= posOffset && startOffset <= posEndOffset
	}

	return startOffset < posEndOffset && endOffset > posOffset
}

// GetLineAndColumn calculates the line and column number for a given position in the text
// Returns zero-based line and column numbers
func (p RawPosition) GetLineAndColumn(text string) (line, col int) {
	place := PlaceOf(text, p.Offset)
	return place.Line, place.Character
}

func (p RawPosition) GetEndPosition() RawPosition {
	return RawPosition{
		Text:   "",
		Offset: p.Offset + p.Length(),
	}
}

// GetRange calculates the line/column range for a RawPosition
func (p RawPosition) GetRange(fileText string) Range {
	return RangeOf(fileText, p.Offset, p.Offset+p.Length())
}

func (p RawPosition) String() string {
	return fmt.Sprintf("%s@%d", p.Text, p.Offset)
}

type RawPositionArray []RawPosition

func (me RawPositionArray) ToStrings() []string {
	var texts []string
	for _, pos := range me {
		texts = append(texts, pos.String())
	}
	return texts
}

func lineBounds(text string, line int) (start, end int, ok bool) {
	for i := 0; i < line; i++ {
		nl := strings.IndexByte(text[start:], '\n')
		if nl < 0 {
			return 0, 0, false
		}
		start += nl + 1
	}
	end = strings.IndexByte(text[start:], '\n')
	if end < 0 {
		end = len(text)
	} else {
		end += start
	}
	if end > start && text[end-1] == '\r' {
		end--
	}
	return start, end, true
}

func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

func utf16Count(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Len(r)
	}
	return n
}
