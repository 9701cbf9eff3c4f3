package get_context

import (
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/toolxmlls/pkg/position"
	"github.com/walteh/toolxmlls/pkg/xmlcontext"
	"github.com/walteh/toolxmlls/pkg/xsd"
)

type Handler struct {
	filePath   string
	line       int
	character  int
	schemaPath string
	out        io.Writer
}

// View is the printed form of a resolved context.
type View struct {
	Offset        int            `json:"offset"`
	Kind          string         `json:"kind"`
	Name          string         `json:"name,omitempty"`
	AttributeName string         `json:"attributeName,omitempty"`
	Range         position.Range `json:"range"`
	Stack         []string       `json:"stack"`
	Node          string         `json:"node,omitempty"`
	NodeResolved  bool           `json:"nodeResolved"`
	ParentNode    string         `json:"parentNode,omitempty"`
	ClosingTag    bool           `json:"closingTag"`
	Closed        bool           `json:"closed"`
	TopLevel      bool           `json:"topLevel"`
	Empty         bool           `json:"empty"`
	Recovered     bool           `json:"recovered"`
}

func NewGetContextCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "get-context [file-path] [line] [character]",
		Short: "print the resolved context of a position in a tool document",
	}

	cmd.Args = cobra.ExactArgs(3)

	cmd.Flags().StringVar(&me.schemaPath, "schema", "", "XSD file to use instead of the bundled tool schema")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.filePath = args[0]
		var err error
		me.line, err = strconv.Atoi(args[1])
		if err != nil {
			return errors.Errorf("invalid line number: %w", err)
		}
		me.character, err = strconv.Atoi(args[2])
		if err != nil {
			return errors.Errorf("invalid character number: %w", err)
		}
		me.out = cmd.OutOrStdout()
		return me.Run(cmd.Context(), afero.NewOsFs())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, fs afero.Fs) error {
	tree, err := xsd.Load(ctx, fs, me.schemaPath)
	if err != nil {
		return errors.Errorf("loading schema: %w", err)
	}

	content, err := afero.ReadFile(fs, me.filePath)
	if err != nil {
		return errors.Errorf("failed to read tool document: %w", err)
	}

	xc := xmlcontext.NewResolver(tree).Resolve(ctx, string(content), me.line, me.character)

	encoder := json.NewEncoder(me.out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(NewView(xc)); err != nil {
		return errors.Errorf("failed to encode context: %w", err)
	}
	return nil
}

func NewView(xc xmlcontext.Context) View {
	v := View{
		Offset:        xc.Offset,
		Kind:          xc.Kind.String(),
		Name:          xc.Name,
		AttributeName: xc.AttributeName,
		Range:         xc.Range,
		Stack:         xc.Stack,
		NodeResolved:  xc.NodeResolved,
		ClosingTag:    xc.IsClosingTag(),
		Closed:        xc.IsClosed(),
		TopLevel:      xc.IsTopLevel(),
		Empty:         xc.IsEmpty(),
		Recovered:     xc.Recovered,
	}
	if v.Stack == nil {
		v.Stack = []string{}
	}
	if xc.Node != nil {
		v.Node = xc.Node.Name
	}
	if xc.ParentNode != nil {
		v.ParentNode = xc.ParentNode.Name
	}
	return v
}
