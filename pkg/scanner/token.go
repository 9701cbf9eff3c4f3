package scanner

import "fmt"

// TokenType is the kind of token produced by Scan.
type TokenType int

const (
	StartCommentTag TokenType = iota
	Comment
	EndCommentTag
	CDATATagOpen
	CDATAContent
	CDATATagClose
	StartTagOpen
	StartTagClose
	StartTagSelfClose
	StartTag
	EndTagOpen
	EndTagClose
	EndTag
	DelimiterAssign
	AttributeName
	AttributeValue
	StartPrologOrPI
	PIName
	PIContent
	PIEnd
	Content
	Whitespace
	Unknown
	EOS
)

var tokenNames = [...]string{
	StartCommentTag:   "StartCommentTag",
	Comment:           "Comment",
	EndCommentTag:     "EndCommentTag",
	CDATATagOpen:      "CDATATagOpen",
	CDATAContent:      "CDATAContent",
	CDATATagClose:     "CDATATagClose",
	StartTagOpen:      "StartTagOpen",
	StartTagClose:     "StartTagClose",
	StartTagSelfClose: "StartTagSelfClose",
	StartTag:          "StartTag",
	EndTagOpen:        "EndTagOpen",
	EndTagClose:       "EndTagClose",
	EndTag:            "EndTag",
	DelimiterAssign:   "DelimiterAssign",
	AttributeName:     "AttributeName",
	AttributeValue:    "AttributeValue",
	StartPrologOrPI:   "StartPrologOrPI",
	PIName:            "PIName",
	PIContent:         "PIContent",
	PIEnd:             "PIEnd",
	Content:           "Content",
	Whitespace:        "Whitespace",
	Unknown:           "Unknown",
	EOS:               "EOS",
}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// State is the scanner state between two tokens.
type State int

const (
	WithinContent State = iota
	AfterOpeningStartTag
	WithinTag
	AfterAttributeName
	BeforeAttributeValue
	WithinEndTag
	AfterOpeningEndTag
	WithinComment
	WithinCDATA
	PrologOrPI
	WithinPI
)

var stateNames = [...]string{
	WithinContent:        "WithinContent",
	AfterOpeningStartTag: "AfterOpeningStartTag",
	WithinTag:            "WithinTag",
	AfterAttributeName:   "AfterAttributeName",
	BeforeAttributeValue: "BeforeAttributeValue",
	WithinEndTag:         "WithinEndTag",
	AfterOpeningEndTag:   "AfterOpeningEndTag",
	WithinComment:        "WithinComment",
	WithinCDATA:          "WithinCDATA",
	PrologOrPI:           "PrologOrPI",
	WithinPI:             "WithinPI",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// InTag reports whether the state is inside a start tag.
func (s State) InTag() bool {
	switch s {
	case AfterOpeningStartTag, WithinTag, AfterAttributeName, BeforeAttributeValue:
		return true
	}
	return false
}

// InEndTag reports whether the state is inside an end tag.
func (s State) InEndTag() bool {
	return s == WithinEndTag || s == AfterOpeningEndTag
}
