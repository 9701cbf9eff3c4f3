// Package hover provides functionality for generating hover information.
package hover

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/walteh/toolxmlls/pkg/position"
	"github.com/walteh/toolxmlls/pkg/xmlcontext"
	"github.com/walteh/toolxmlls/pkg/xsd"
)

// HoverInfo represents the information to be displayed in a hover tooltip
type HoverInfo struct {
	// Content is the markdown content to display
	Content []string
	// Range is the range in the document that this hover applies to
	Range position.Range
}

// Documentation returns the schema documentation of the tag or attribute key
// under the cursor. Other positions, and tags the schema does not know, have
// no hover.
func Documentation(ctx context.Context, xc xmlcontext.Context) (*HoverInfo, bool) {
	if xc.Node == nil || !xc.NodeResolved {
		return nil, false
	}

	switch {
	case xc.IsTag():
		if xc.Name == "" {
			return nil, false
		}
		return &HoverInfo{Content: []string{FormatNode(xc.Node)}, Range: xc.Range}, true

	case xc.IsAttributeKey():
		attr := xc.Node.Attributes[xc.AttributeName]
		if attr == nil {
			zerolog.Ctx(ctx).Debug().Str("element", xc.Node.Name).Str("attribute", xc.AttributeName).Msg("attribute not in schema")
			return nil, false
		}
		return &HoverInfo{Content: []string{FormatAttribute(attr)}, Range: xc.Range}, true
	}

	return nil, false
}

// FormatNode renders the documentation of an element.
func FormatNode(node *xsd.Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s\n\n", node.Name)
	sb.WriteString(node.Documentation())

	if len(node.Children) > 0 {
		sb.WriteString("\n\n### Children\n\n")
		names := make([]string, 0, len(node.Children))
		for _, c := range node.Children {
			names = append(names, "`"+c.Name+"`")
		}
		sb.WriteString(strings.Join(names, ", "))
	}
	return sb.String()
}

// FormatAttribute renders the documentation of an attribute: its type, whether
// it is required and the allowed values.
func FormatAttribute(attr *xsd.Attribute) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s\n\n", attr.Name)

	var facts []string
	if attr.TypeName != "" {
		facts = append(facts, "`"+attr.TypeName+"`")
	}
	if attr.Required {
		facts = append(facts, "required")
	} else {
		facts = append(facts, "optional")
	}
	sb.WriteString(strings.Join(facts, ", "))
	sb.WriteString("\n\n")
	sb.WriteString(attr.Documentation())

	if len(attr.Enumeration) > 0 {
		sb.WriteString("\n\n### Allowed values\n\n")
		for _, v := range attr.Enumeration {
			fmt.Fprintf(&sb, "- `%s`\n", v)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
