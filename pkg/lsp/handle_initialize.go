package lsp

import (
	"github.com/rs/zerolog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/walteh/toolxmlls/pkg/finder"
)

// CompletionTriggerCharacters open element and attribute completion lists.
var CompletionTriggerCharacters = []string{"<", " "}

func (me *Server) initialize(gctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	if me.logToClient && gctx.Notify != nil {
		ctx := me.ApplyLSPWriter(me.context(), gctx.Notify)
		me.mu.Lock()
		me.ctx = ctx
		me.mu.Unlock()
	}
	logger := zerolog.Ctx(me.context())

	if params.InitializationOptions != nil {
		cfg, err := me.Config().WithSettings(params.InitializationOptions)
		if err != nil {
			logger.Warn().Err(err).Msg("ignoring initialization options")
		} else {
			me.setConfig(cfg)
		}
	}

	me.mu.Lock()
	if params.RootURI != nil {
		me.workspace = normalizeURI(*params.RootURI)
	} else if params.RootPath != nil {
		me.workspace = *params.RootPath
	}
	me.mu.Unlock()

	if params.ClientInfo != nil {
		logger.Debug().Str("client", params.ClientInfo.Name).Msg("initializing server")
	}

	capabilities := me.handler.CreateServerCapabilities()
	sync := protocol.TextDocumentSyncKindIncremental
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &sync,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: CompletionTriggerCharacters,
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    ServerName,
			Version: &me.version,
		},
	}, nil
}

func (me *Server) initialized(gctx *glsp.Context, params *protocol.InitializedParams) error {
	ctx := me.context()
	cfg := me.Config()

	me.mu.RLock()
	workspace := me.workspace
	me.mu.RUnlock()

	if workspace != "" {
		tools, err := finder.NewDefaultFinder(me.fs, cfg, me.rootName).FindTools(ctx, workspace)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("workspace", workspace).Msg("could not scan workspace")
		} else {
			me.mu.Lock()
			me.tools = tools
			me.mu.Unlock()
		}
	}

	zerolog.Ctx(ctx).Info().
		Str("id", me.id).
		Str("workspace", workspace).
		Int("tools", len(me.WorkspaceTools())).
		Str("completion_mode", string(cfg.Completion.Mode)).
		Bool("auto_close_tags", cfg.Completion.AutoCloseTags).
		Msg("server initialized")
	return nil
}

func (me *Server) shutdown(gctx *glsp.Context) error {
	zerolog.Ctx(me.context()).Debug().Msg("shutting down")
	return nil
}

func (me *Server) exit(gctx *glsp.Context) error {
	return nil
}

func (me *Server) setTrace(gctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}
