package lsp

import (
	"github.com/rs/zerolog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"gitlab.com/tozd/go/errors"
)

func (me *Server) workspaceDidChangeConfiguration(gctx *glsp.Context, params *protocol.DidChangeConfigurationParams) error {
	cfg, err := me.Config().WithSettings(params.Settings)
	if err != nil {
		return errors.Errorf("updating configuration: %w", err)
	}
	me.setConfig(cfg)

	zerolog.Ctx(me.context()).Info().
		Str("completion_mode", string(cfg.Completion.Mode)).
		Bool("auto_close_tags", cfg.Completion.AutoCloseTags).
		Msg("configuration updated")
	return nil
}
