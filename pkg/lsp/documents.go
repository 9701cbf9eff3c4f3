package lsp

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/toolxmlls/pkg/macros"
	"github.com/walteh/toolxmlls/pkg/position"
)

// Document represents a text document with its metadata
type Document struct {
	URI     string
	Path    string
	Version int32
	Content string
}

// Macros returns the document as seen by the macro index.
func (d *Document) Macros() macros.Document {
	return macros.Document{URI: d.URI, Path: d.Path, Text: d.Content}
}

// DocumentManager holds the documents opened by the client. Documents it does
// not hold are read from the file system.
type DocumentManager struct {
	mu    sync.RWMutex
	fs    afero.Fs
	store map[string]*Document
}

func NewDocumentManager(fs afero.Fs) *DocumentManager {
	return &DocumentManager{
		fs:    fs,
		store: map[string]*Document{},
	}
}

// Get returns a copy of the document for uri.
func (m *DocumentManager) Get(uri protocol.DocumentUri) (*Document, bool) {
	key := normalizeURI(uri)

	m.mu.RLock()
	doc, ok := m.store[key]
	var cp Document
	if ok {
		cp = *doc
	}
	m.mu.RUnlock()
	if ok {
		return &cp, true
	}

	content, err := afero.ReadFile(m.fs, key)
	if err != nil {
		return nil, false
	}
	return &Document{URI: uri, Path: key, Content: string(content)}, true
}

func (m *DocumentManager) Store(doc *Document) {
	key := normalizeURI(doc.URI)
	cp := *doc
	cp.Path = key

	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = &cp
}

// Apply applies the content changes of a didChange notification in order.
// Changes with a range are incremental, the others replace the whole text.
func (m *DocumentManager) Apply(ctx context.Context, uri protocol.DocumentUri, version int32, changes []any) error {
	key := normalizeURI(uri)

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.store[key]
	if !ok {
		return errors.Errorf("document not open: %s", uri)
	}

	content := doc.Content
	for _, change := range changes {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				content = c.Text
				continue
			}
			content = replaceContentFromRange(ctx, content, c.Range, c.Text)
		case protocol.TextDocumentContentChangeEventWhole:
			content = c.Text
		default:
			return errors.Errorf("unexpected content change %T", change)
		}
	}

	// stored documents are never written in place
	next := *doc
	next.Content = content
	next.Version = version
	m.store[key] = &next
	return nil
}

func (m *DocumentManager) Delete(uri protocol.DocumentUri) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, normalizeURI(uri))
}

func replaceContentFromRange(ctx context.Context, content string, rangez *protocol.Range, text string) string {
	startPos := position.NewRawPositionFromLineAndColumn(int(rangez.Start.Line), int(rangez.Start.Character), "", content)
	endPos := position.NewRawPositionFromLineAndColumn(int(rangez.End.Line), int(rangez.End.Character), "", content)
	if endPos.Offset < startPos.Offset {
		startPos, endPos = endPos, startPos
	}
	zerolog.Ctx(ctx).Debug().Msgf("replacing content from %s to %s with %q", startPos.ID(), endPos.ID(), text)
	return content[:startPos.Offset] + text + content[endPos.Offset:]
}

// normalizeURI turns a file URI into a clean path. Other URIs are kept as is.
func normalizeURI(uri string) string {
	if strings.HasPrefix(uri, "file:") {
		if parsed, err := url.Parse(uri); err == nil && parsed.Path != "" {
			return filepath.Clean(parsed.Path)
		}
		uri = strings.TrimPrefix(uri, "file://")
		uri = strings.TrimPrefix(uri, "file:")
	}
	return uri
}
