package get_completions

import (
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/toolxmlls/pkg/completion"
	"github.com/walteh/toolxmlls/pkg/completion/providers"
	"github.com/walteh/toolxmlls/pkg/config"
	"github.com/walteh/toolxmlls/pkg/macros"
	"github.com/walteh/toolxmlls/pkg/position"
	"github.com/walteh/toolxmlls/pkg/xmlcontext"
	"github.com/walteh/toolxmlls/pkg/xsd"
)

type Handler struct {
	filePath   string
	line       int
	character  int
	trigger    string
	mode       string
	autoClose  bool
	schemaPath string
	out        io.Writer
}

type result struct {
	Items        []providers.CompletionItem `json:"items"`
	IsIncomplete bool                       `json:"isIncomplete"`
}

type autoCloseResult struct {
	Snippet string          `json:"snippet"`
	Range   *position.Range `json:"range,omitempty"`
}

func NewGetCompletionsCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "get-completions [file-path] [line] [character]",
		Short: "get completions for a position in a tool document",
	}

	cmd.Args = cobra.ExactArgs(3)

	cmd.Flags().StringVar(&me.trigger, "trigger", "", "trigger character that caused the request")
	cmd.Flags().StringVar(&me.mode, "mode", string(config.ModeAuto), "completion mode: auto, invoke or disabled")
	cmd.Flags().BoolVar(&me.autoClose, "auto-close", false, "print the auto close snippet for the character before the position")
	cmd.Flags().StringVar(&me.schemaPath, "schema", "", "XSD file to use instead of the bundled tool schema")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.filePath = args[0]
		// Parse line and character from args
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
	mode := config.CompletionMode(me.mode)
	if !mode.Valid() {
		return errors.Errorf("invalid completion mode %q", me.mode)
	}

	tree, err := xsd.Load(ctx, fs, me.schemaPath)
	if err != nil {
		return errors.Errorf("loading schema: %w", err)
	}

	content, err := afero.ReadFile(fs, me.filePath)
	if err != nil {
		return errors.Errorf("failed to read tool document: %w", err)
	}
	text := string(content)
	resolver := xmlcontext.NewResolver(tree)

	var out any
	if me.autoClose {
		out, err = me.closeTag(ctx, resolver, text)
		if err != nil {
			return err
		}
	} else {
		trigger := completion.Trigger{Kind: completion.Invoked}
		if me.trigger != "" {
			trigger = completion.Trigger{Kind: completion.TriggerCharacter, Character: me.trigger}
		}

		xc := resolver.Resolve(ctx, text, me.line, me.character)
		doc := macros.Document{URI: "file://" + me.filePath, Path: me.filePath, Text: text}
		list := completion.NewEngine(tree, macros.NewIndex(fs)).Complete(ctx, doc, xc, trigger, mode)
		out = result{Items: list.Items, IsIncomplete: list.Incomplete}
	}

	encoder := json.NewEncoder(me.out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return errors.Errorf("failed to encode completions: %w", err)
	}

	return nil
}

func (me *Handler) closeTag(ctx context.Context, resolver *xmlcontext.Resolver, text string) (*autoCloseResult, error) {
	if me.character == 0 {
		return nil, errors.New("auto close needs a position after the typed character")
	}
	line := position.LineText(text, me.line)
	start := position.OffsetOf(line, position.Place{Character: me.character - 1})
	end := position.OffsetOf(line, position.Place{Character: me.character})
	if start >= end {
		return nil, errors.Errorf("no character before %d:%d", me.line, me.character)
	}

	xc := resolver.Resolve(ctx, text, me.line, me.character-1)
	res, ok := completion.AutoClose(xc, line[start:end])
	if !ok {
		return nil, nil
	}
	return &autoCloseResult{Snippet: res.Snippet, Range: res.Range}, nil
}
