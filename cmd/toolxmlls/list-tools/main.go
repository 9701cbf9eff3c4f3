package list_tools

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/toolxmlls/pkg/config"
	"github.com/walteh/toolxmlls/pkg/finder"
	"github.com/walteh/toolxmlls/pkg/xsd"
)

type Handler struct {
	configPath string
	schemaPath string
	out        io.Writer
}

func NewListToolsCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "list-tools [dir]",
		Short: "list the tool documents below a directory",
		Args:  cobra.MaximumNArgs(1),
	}

	cmd.Flags().StringVar(&me.configPath, "config", "", "path to a toolxmlls config file")
	cmd.Flags().StringVar(&me.schemaPath, "schema", "", "XSD file to use instead of the bundled tool schema")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		me.out = cmd.OutOrStdout()
		return me.Run(cmd.Context(), afero.NewOsFs(), dir)
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, fs afero.Fs, dir string) error {
	cfg, err := config.Load(fs, me.configPath)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}

	tree, err := xsd.Load(ctx, fs, me.schemaPath)
	if err != nil {
		return errors.Errorf("loading schema: %w", err)
	}

	paths, err := finder.NewDefaultFinder(fs, cfg, tree.Root.Name).FindTools(ctx, dir)
	if err != nil {
		return errors.Errorf("finding tools: %w", err)
	}

	for _, path := range paths {
		if _, err := fmt.Fprintln(me.out, path); err != nil {
			return errors.Errorf("writing tool list: %w", err)
		}
	}
	return nil
}
