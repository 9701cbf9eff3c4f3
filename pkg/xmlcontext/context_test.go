package xmlcontext_test

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/toolxmlls/pkg/position"
	"github.com/walteh/toolxmlls/pkg/syntax"
	"github.com/walteh/toolxmlls/pkg/xmlcontext"
	"github.com/walteh/toolxmlls/pkg/xsd"
)

func setup(t *testing.T) (context.Context, *xmlcontext.Resolver) {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t))
	ctx := logger.WithContext(context.Background())
	tree, err := xsd.Default(ctx)
	require.NoError(t, err)
	return ctx, xmlcontext.NewResolver(tree)
}

func cursor(t *testing.T, marked string) (string, position.Place) {
	t.Helper()
	at := strings.Index(marked, "^")
	require.GreaterOrEqual(t, at, 0, "missing cursor marker in %q", marked)
	text := marked[:at] + marked[at+1:]
	return text, position.PlaceOf(text, at)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		marked   string
		kind     syntax.Kind
		tag      string
		node     string
		parent   string
		resolved bool
		check    func(t *testing.T, c xmlcontext.Context)
	}{
		{
			name:     "tag name",
			marked:   "<tool>\n  <inputs>\n    <par^am",
			kind:     syntax.KindElement,
			tag:      "param",
			node:     "param",
			parent:   "inputs",
			resolved: true,
			check: func(t *testing.T, c xmlcontext.Context) {
				assert.True(t, c.IsOpeningTag())
				assert.False(t, c.IsClosed())
				assert.Equal(t, "    <param", c.LineText)
				assert.Equal(t, position.Place{Line: 2, Character: 8}, c.Position)
			},
		},
		{
			name:     "attribute key",
			marked:   "<tool>\n  <inputs>\n    <param na^me=\"x\"/>",
			kind:     syntax.KindAttributeKey,
			tag:      "name",
			node:     "param",
			parent:   "inputs",
			resolved: true,
			check: func(t *testing.T, c xmlcontext.Context) {
				assert.Equal(t, "name", c.AttributeName)
				assert.True(t, c.IsAttribute())
			},
		},
		{
			name:     "attribute value",
			marked:   "<tool>\n  <inputs>\n    <param type=\"sel^ect\"/>",
			kind:     syntax.KindAttributeValue,
			tag:      "select",
			node:     "param",
			parent:   "inputs",
			resolved: true,
			check: func(t *testing.T, c xmlcontext.Context) {
				assert.Equal(t, "type", c.AttributeName)
				assert.Equal(t, position.Range{
					Start: position.Place{Line: 2, Character: 17},
					End:   position.Place{Line: 2, Character: 23},
				}, c.Range)
			},
		},
		{
			name:     "content",
			marked:   "<tool>\n  <inputs>\n    ^\n  </inputs>\n</tool>",
			kind:     syntax.KindContent,
			node:     "inputs",
			parent:   "inputs",
			resolved: true,
			check: func(t *testing.T, c xmlcontext.Context) {
				assert.True(t, c.IsClosed())
				require.NotNil(t, c.Parent)
				assert.Equal(t, "inputs", c.Parent.Name)
			},
		},
		{
			name:     "closing tag",
			marked:   "<tool>\n  <inputs>\n  </inp^uts>\n</tool>",
			kind:     syntax.KindElement,
			tag:      "inputs",
			node:     "inputs",
			parent:   "tool",
			resolved: true,
			check: func(t *testing.T, c xmlcontext.Context) {
				assert.True(t, c.IsClosingTag())
				assert.False(t, c.IsOpeningTag())
			},
		},
		{
			name:     "unknown element falls back to the root",
			marked:   "<tool>\n  <bogus>^",
			kind:     syntax.KindElement,
			tag:      "bogus",
			node:     "tool",
			parent:   "tool",
			resolved: false,
		},
		{
			name:     "top level tag",
			marked:   "<to^ol>",
			kind:     syntax.KindElement,
			tag:      "tool",
			node:     "tool",
			parent:   "tool",
			resolved: true,
			check: func(t *testing.T, c xmlcontext.Context) {
				assert.True(t, c.IsTopLevel())
			},
		},
		{
			name:     "broken document uses the cursor line",
			marked:   "<tool>\n  <inputs></outputs>\n    <param ^",
			kind:     syntax.KindElement,
			tag:      "param",
			node:     "param",
			parent:   "inputs",
			resolved: true,
			check: func(t *testing.T, c xmlcontext.Context) {
				assert.True(t, c.Recovered)
			},
		},
		{
			name:     "broken document keeps elements opened after the break",
			marked:   "<tool>\n  <inputs></outputs>\n    <param name=\"p\" type=\"select\">\n      <opt^ion",
			kind:     syntax.KindElement,
			tag:      "option",
			node:     "option",
			parent:   "param",
			resolved: true,
			check: func(t *testing.T, c xmlcontext.Context) {
				assert.True(t, c.Recovered)
				assert.Equal(t, []string{"tool", "inputs", "param", "option"}, c.Stack)
			},
		},
		{
			name:     "broken document inside a multi-line CDATA section",
			marked:   "<tool></outputs>\n  <command><![CDATA[\n    cat in <^\n  ]]></command>\n</tool>",
			kind:     syntax.KindCDATA,
			node:     "command",
			parent:   "command",
			resolved: true,
			check: func(t *testing.T, c xmlcontext.Context) {
				assert.True(t, c.Recovered)
				assert.True(t, c.IsCDATA())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, r := setup(t)
			text, place := cursor(t, tt.marked)

			c := r.Resolve(ctx, text, place.Line, place.Character)

			assert.Equal(t, tt.kind, c.Kind, "kind")
			assert.Equal(t, tt.tag, c.Name, "name")
			require.NotNil(t, c.Node)
			assert.Equal(t, tt.node, c.Node.Name, "node")
			require.NotNil(t, c.ParentNode)
			assert.Equal(t, tt.parent, c.ParentNode.Name, "parent node")
			assert.Equal(t, tt.resolved, c.NodeResolved, "resolved")
			if tt.check != nil {
				tt.check(t, c)
			}
		})
	}
}

func TestResolveEmptyDocument(t *testing.T) {
	for _, text := range []string{"", "   \n  ", "<!-- nothing yet -->\n"} {
		ctx, r := setup(t)
		c := r.ResolveOffset(ctx, text, len(text))
		assert.True(t, c.IsEmpty(), "%q", text)
		assert.True(t, c.IsTopLevel(), "%q", text)
		require.NotNil(t, c.Node)
		assert.Equal(t, "tool", c.Node.Name)
	}
}

func TestResolveClampsPosition(t *testing.T) {
	ctx, r := setup(t)
	c := r.Resolve(ctx, "<tool>", 10, 40)
	assert.Equal(t, 6, c.Offset)
	assert.Equal(t, "tool", c.Name)

	c = r.ResolveOffset(ctx, "<tool>", -3)
	assert.Equal(t, 0, c.Offset)
}

func TestTagNameRangeContainsCursor(t *testing.T) {
	ctx, r := setup(t)
	text := "<tool id=\"a\">\n  <inputs>\n    <param name=\"x\" type=\"text\"/>\n  </inputs>\n</tool>"
	start := strings.Index(text, "param")
	for at := start; at <= start+len("param"); at++ {
		c := r.ResolveOffset(ctx, text, at)
		require.True(t, c.IsTag(), "offset %d", at)
		assert.Equal(t, "param", c.Name)
		assert.LessOrEqual(t, c.Start, at)
		assert.GreaterOrEqual(t, c.End, at)
		assert.True(t, c.Range.Contains(c.Position))
	}
}

func TestAttributeValueAttribution(t *testing.T) {
	ctx, r := setup(t)
	text := `<tool><inputs><param name="first" type="integer"/></inputs></tool>`
	for _, attr := range []struct{ name, value string }{{"name", "first"}, {"type", "integer"}} {
		open := strings.Index(text, attr.name+`="`) + len(attr.name) + 1
		end := open + len(attr.value) + 2
		for at := open; at <= end; at++ {
			c := r.ResolveOffset(ctx, text, at)
			require.True(t, c.IsAttributeValue(), "offset %d", at)
			assert.Equal(t, attr.name, c.AttributeName)
			assert.Equal(t, attr.value, c.Name)
		}
	}
}

func TestResolveIdempotent(t *testing.T) {
	ctx, r := setup(t)
	text := "<tool>\n  <inputs>\n    <param type=\"text\" name=\"x\">\n  </outputs>\n  <help>h</help>\n</tool>"
	for at := 0; at <= len(text); at++ {
		a := r.ResolveOffset(ctx, text, at)
		b := r.ResolveOffset(ctx, text, at)
		assert.Equal(t, a.Kind, b.Kind)
		assert.Equal(t, a.Name, b.Name)
		assert.Equal(t, a.Range, b.Range)
		assert.Equal(t, a.Stack, b.Stack)
		assert.Equal(t, a.Recovered, b.Recovered)
		assert.Same(t, a.Node, b.Node)
	}
}
