// Package lsp serves the tool document engine over the Language Server
// Protocol.
package lsp

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
	"gitlab.com/tozd/go/errors"

	_ "github.com/tliron/commonlog/simple"

	"github.com/walteh/toolxmlls/pkg/completion"
	"github.com/walteh/toolxmlls/pkg/config"
	"github.com/walteh/toolxmlls/pkg/macros"
	"github.com/walteh/toolxmlls/pkg/xmlcontext"
	"github.com/walteh/toolxmlls/pkg/xsd"
)

const ServerName = "toolxmlls"

// MethodAutoCloseTags is the request clients send after the user typed '>'
// or '/'. Its params are a TextDocumentPositionParams placed after the typed
// character.
const MethodAutoCloseTags = protocol.Method("galaxytools/autoCloseTags")

// Server represents an LSP server instance
type Server struct {
	id      string
	version string
	fs      afero.Fs

	documents *DocumentManager
	resolver  *xmlcontext.Resolver
	engine    *completion.Engine
	macros    *macros.Index
	rootName  string

	mu          sync.RWMutex
	ctx         context.Context
	config      *config.Config
	logToClient bool
	workspace   string
	tools       []string

	handler protocol.Handler
}

var _ glsp.Handler = (*Server)(nil)

type Option func(*Server)

// WithFs sets the file system used for unopened documents and macro imports.
func WithFs(fs afero.Fs) Option {
	return func(s *Server) {
		s.fs = fs
	}
}

func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithClientLogging sends the server logs to the client once initialized.
func WithClientLogging(enabled bool) Option {
	return func(s *Server) {
		s.logToClient = enabled
	}
}

// NewServer creates a server for documents described by tree. ctx carries the
// logger used until a client logger takes over. A nil cfg means the defaults.
func NewServer(ctx context.Context, tree *xsd.Tree, cfg *config.Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.Default()
	}

	me := &Server{
		id:      uuid.NewString(),
		version: "dev",
		fs:      afero.NewOsFs(),
		ctx:     ctx,
		config:  cfg,
	}
	for _, opt := range opts {
		opt(me)
	}

	me.documents = NewDocumentManager(me.fs)
	me.macros = macros.NewIndex(me.fs)
	me.resolver = xmlcontext.NewResolver(tree)
	me.engine = completion.NewEngine(tree, me.macros)
	me.rootName = tree.Root.Name

	me.handler = protocol.Handler{
		Initialize:                      me.initialize,
		Initialized:                     me.initialized,
		Shutdown:                        me.shutdown,
		Exit:                            me.exit,
		SetTrace:                        me.setTrace,
		WorkspaceDidChangeConfiguration: me.workspaceDidChangeConfiguration,
		TextDocumentDidOpen:             me.textDocumentDidOpen,
		TextDocumentDidChange:           me.textDocumentDidChange,
		TextDocumentDidClose:            me.textDocumentDidClose,
		TextDocumentCompletion:          me.textDocumentCompletion,
		TextDocumentHover:               me.textDocumentHover,
		TextDocumentDocumentSymbol:      me.textDocumentDocumentSymbol,
	}

	return me
}

func (me *Server) ID() string {
	return me.id
}

func (me *Server) Documents() *DocumentManager {
	return me.documents
}

// Config returns the current configuration. It must not be modified.
func (me *Server) Config() *config.Config {
	me.mu.RLock()
	defer me.mu.RUnlock()
	return me.config
}

// WorkspaceTools returns the tool documents found in the workspace root when
// the client was initialized.
func (me *Server) WorkspaceTools() []string {
	me.mu.RLock()
	defer me.mu.RUnlock()
	return append([]string(nil), me.tools...)
}

func (me *Server) setConfig(cfg *config.Config) {
	me.mu.Lock()
	defer me.mu.Unlock()
	me.config = cfg
}

func (me *Server) context() context.Context {
	me.mu.RLock()
	defer me.mu.RUnlock()
	return me.ctx
}

// Handle dispatches one message. The auto close request is served here, every
// other method goes to the protocol handler.
func (me *Server) Handle(gctx *glsp.Context) (r any, validMethod bool, validParams bool, err error) {
	if gctx.Method != MethodAutoCloseTags {
		return me.handler.Handle(gctx)
	}

	if !me.handler.IsInitialized() {
		return nil, true, true, errors.New("server not initialized")
	}
	var params protocol.TextDocumentPositionParams
	if err := json.Unmarshal(gctx.Params, &params); err != nil {
		return nil, true, false, nil
	}
	r, err = me.autoCloseTags(gctx, &params)
	return r, true, true, err
}

// RunStdio serves a single client over stdin and stdout until it disconnects.
func (me *Server) RunStdio() error {
	zerolog.Ctx(me.context()).Info().Str("id", me.id).Str("version", me.version).Msg("serving over stdio")
	return server.NewServer(me, ServerName, me.Config().Debug).RunStdio()
}
