package lsp_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/walteh/toolxmlls/pkg/lsp"
)

type notification struct {
	method string
	params *protocol.LogMessageParams
}

func TestLSPWriter(t *testing.T) {
	var got []notification
	w := lsp.NewLSPWriter(func(method string, params any) {
		p, ok := params.(*protocol.LogMessageParams)
		require.True(t, ok, "unexpected params %T", params)
		got = append(got, notification{method: method, params: p})
	}, "server-1")

	own := zerolog.New(w).With().Str("id", "server-1").Logger()
	own.Warn().Str("uri", "file:///a.xml").Int("items", 3).Msg("hello")
	own.Debug().Msg("details")

	other := zerolog.New(w)
	other.Error().Msg("from a library")

	_, err := w.Write([]byte("not json"))
	require.NoError(t, err)

	require.Len(t, got, 3)

	assert.Equal(t, protocol.ServerWindowLogMessage, got[0].method)
	assert.Equal(t, protocol.MessageTypeWarning, got[0].params.Type)
	assert.Equal(t, "hello items=3 uri=file:///a.xml", got[0].params.Message)

	assert.Equal(t, protocol.MessageTypeLog, got[1].params.Type)
	assert.Equal(t, "details", got[1].params.Message)

	assert.Equal(t, protocol.MessageTypeLog, got[2].params.Type, "entries of other loggers are plain logs")
	assert.Equal(t, "from a library", got[2].params.Message)
}

func TestParseMessageTypeFromZerolog(t *testing.T) {
	tests := []struct {
		level string
		want  protocol.MessageType
	}{
		{level: "error", want: protocol.MessageTypeError},
		{level: "fatal", want: protocol.MessageTypeError},
		{level: "warn", want: protocol.MessageTypeWarning},
		{level: "info", want: protocol.MessageTypeInfo},
		{level: "debug", want: protocol.MessageTypeLog},
		{level: "trace", want: protocol.MessageTypeLog},
		{level: "bogus", want: protocol.MessageTypeLog},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, lsp.ParseMessageTypeFromZerolog(tt.level))
		})
	}
}
