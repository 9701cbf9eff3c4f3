package completion

import (
	"github.com/walteh/toolxmlls/pkg/position"
	"github.com/walteh/toolxmlls/pkg/xmlcontext"
)

// AutoCloseResult is a snippet to insert after a typed '>' or '/'. Range is
// nil when the snippet is inserted at the cursor.
type AutoCloseResult struct {
	Snippet string
	Range   *position.Range
}

// AutoClose returns the snippet closing the tag whose '>' or '/' was just
// typed. xc must be resolved at the typed character.
func AutoClose(xc xmlcontext.Context, trigger string) (*AutoCloseResult, bool) {
	if trigger != ">" && trigger != "/" {
		return nil, false
	}
	if !xc.IsTag() && !xc.IsAttribute() {
		return nil, false
	}
	if xc.IsClosingTag() || xc.IsClosed() || xc.Element == nil || xc.Element.Name == "" {
		return nil, false
	}
	if xc.IsAttribute() {
		attr := xc.Element.Attribute(xc.AttributeName)
		if attr == nil || attr.End != xc.Offset {
			return nil, false
		}
	}

	name := xc.Element.Name
	col := position.OffsetOf(xc.LineText, position.Place{Character: xc.Position.Character})
	next := func(i int) byte {
		if i < len(xc.LineText) {
			return xc.LineText[i]
		}
		return 0
	}

	if trigger == ">" {
		if next(col+1) == '>' {
			return nil, false
		}
		return &AutoCloseResult{Snippet: "$0</" + name + ">"}, true
	}

	end := xc.Position.Character + 1
	if next(col+1) == '>' {
		end++
	}
	return &AutoCloseResult{
		Snippet: "/>$0",
		Range: &position.Range{
			Start: xc.Position,
			End:   position.Place{Line: xc.Position.Line, Character: end},
		},
	}, true
}
