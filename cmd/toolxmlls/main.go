package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	dump_schema "github.com/walteh/toolxmlls/cmd/toolxmlls/dump-schema"
	get_completions "github.com/walteh/toolxmlls/cmd/toolxmlls/get-completions"
	get_context "github.com/walteh/toolxmlls/cmd/toolxmlls/get-context"
	list_tools "github.com/walteh/toolxmlls/cmd/toolxmlls/list-tools"
	serve_lsp "github.com/walteh/toolxmlls/cmd/toolxmlls/serve-lsp"
	"github.com/walteh/toolxmlls/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:          "toolxmlls",
		Short:        "A language server for tool XML documents",
		SilenceUsage: true,
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logger := logging.New(os.Stderr, logging.Options{Console: true, Debug: verbose})
		cmd.SetContext(logger.WithContext(cmd.Context()))
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)

	rootCmd.AddCommand(serve_lsp.NewServeLSPCommand(rootCmd.Version))
	rootCmd.AddCommand(get_completions.NewGetCompletionsCommand())
	rootCmd.AddCommand(get_context.NewGetContextCommand())
	rootCmd.AddCommand(dump_schema.NewDumpSchemaCommand())
	rootCmd.AddCommand(list_tools.NewListToolsCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
