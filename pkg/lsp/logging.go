package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/walteh/toolxmlls/pkg/logging"
)

// LSPWriter implements io.Writer to redirect logs to LSP
type LSPWriter struct {
	mu     sync.Mutex
	notify glsp.NotifyFunc
	id     string
}

func NewLSPWriter(notify glsp.NotifyFunc, id string) *LSPWriter {
	return &LSPWriter{notify: notify, id: id}
}

// ApplyLSPWriter returns ctx carrying a logger that sends every entry to the
// client as a window/logMessage notification.
func (me *Server) ApplyLSPWriter(ctx context.Context, notify glsp.NotifyFunc) context.Context {
	logger := logging.New(NewLSPWriter(notify, me.id), logging.Options{
		Debug:  me.Config().Debug,
		Fields: map[string]string{"id": me.id},
	})
	return logger.WithContext(ctx)
}

func (w *LSPWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var entry map[string]any
	if err := json.Unmarshal(p, &entry); err != nil {
		return len(p), nil // Skip malformed entries
	}

	level := protocol.MessageTypeLog
	if l, ok := entry["level"].(string); ok {
		level = ParseMessageTypeFromZerolog(l)
	}

	msg, _ := entry["message"].(string)
	source, _ := entry["caller"].(string)
	id, _ := entry["id"].(string)
	for _, k := range []string{"level", "message", "caller", "id", "time"} {
		delete(entry, k)
	}

	// entries from loggers other than the server's own are forwarded as plain logs
	if id != w.id {
		level = protocol.MessageTypeLog
	}

	w.notify(protocol.ServerWindowLogMessage, &protocol.LogMessageParams{
		Type:    level,
		Message: formatLogMessage(msg, source, entry),
	})
	return len(p), nil
}

func formatLogMessage(msg, source string, fields map[string]any) string {
	var b strings.Builder
	b.WriteString(msg)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	if source != "" {
		fmt.Fprintf(&b, " (%s)", source)
	}
	return b.String()
}

func ParseMessageTypeFromZerolog(level string) protocol.MessageType {
	zlgLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return protocol.MessageTypeLog
	}
	switch zlgLevel {
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return protocol.MessageTypeError
	case zerolog.WarnLevel:
		return protocol.MessageTypeWarning
	case zerolog.InfoLevel:
		return protocol.MessageTypeInfo
	default:
		return protocol.MessageTypeLog
	}
}
