package dump_schema

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/toolxmlls/pkg/xsd"
)

type Handler struct {
	schemaPath string
	maxDepth   int
	out        io.Writer
}

func NewDumpSchemaCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "dump-schema",
		Short: "print the compiled schema tree",
	}

	cmd.Flags().StringVar(&me.schemaPath, "schema", "", "XSD file to use instead of the bundled tool schema")
	cmd.Flags().IntVar(&me.maxDepth, "max-depth", xsd.DefaultMaxDepth, "recursion depth guard")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.out = cmd.OutOrStdout()
		return me.Run(cmd.Context(), afero.NewOsFs())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, fs afero.Fs) error {
	tree, err := xsd.Load(ctx, fs, me.schemaPath, xsd.WithMaxDepth(me.maxDepth))
	if err != nil {
		return errors.Errorf("loading schema: %w", err)
	}

	if _, err := io.WriteString(me.out, tree.Render()); err != nil {
		return errors.Errorf("writing schema tree: %w", err)
	}
	for _, path := range tree.Truncated() {
		if _, err := fmt.Fprintf(me.out, "truncated: %s\n", path); err != nil {
			return errors.Errorf("writing schema tree: %w", err)
		}
	}
	return nil
}
