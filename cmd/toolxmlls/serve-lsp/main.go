package serve_lsp

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/toolxmlls/pkg/config"
	"github.com/walteh/toolxmlls/pkg/logging"
	"github.com/walteh/toolxmlls/pkg/lsp"
	"github.com/walteh/toolxmlls/pkg/xsd"
)

type Handler struct {
	version    string
	debug      bool
	configPath string
	schemaPath string
	clientLogs bool
}

func NewServeLSPCommand(version string) *cobra.Command {
	me := &Handler{version: version}

	cmd := &cobra.Command{
		Use:   "serve-lsp",
		Short: "start the language server on stdin and stdout",
	}

	cmd.Flags().BoolVar(&me.debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&me.configPath, "config", "", "configuration file (.yaml, .yml or .hcl)")
	cmd.Flags().StringVar(&me.schemaPath, "schema", "", "XSD file to use instead of the bundled tool schema")
	cmd.Flags().BoolVar(&me.clientLogs, "client-logs", true, "send logs to the client as window/logMessage notifications")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	fs := afero.NewOsFs()

	cfg, err := config.Load(fs, me.configPath)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}
	if me.debug {
		cfg.Debug = true
	}

	// stdout carries the protocol, logs go to stderr until the client connects
	logger := logging.New(os.Stderr, logging.Options{Debug: cfg.Debug, Fields: map[string]string{"component": "lsp"}})
	ctx = logger.WithContext(ctx)

	tree, err := xsd.Load(ctx, fs, me.schemaPath)
	if err != nil {
		return errors.Errorf("loading schema: %w", err)
	}
	if truncated := tree.Truncated(); len(truncated) > 0 {
		zerolog.Ctx(ctx).Debug().Strs("paths", truncated).Msg("schema recursion truncated")
	}

	server := lsp.NewServer(ctx, tree, cfg,
		lsp.WithFs(fs),
		lsp.WithVersion(me.version),
		lsp.WithClientLogging(me.clientLogs),
	)

	if err := server.RunStdio(); err != nil {
		return errors.Errorf("error running language server: %w", err)
	}

	return nil
}
