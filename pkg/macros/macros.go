// Package macros indexes the macro definitions a tool document can use: the
// ones declared in its own macros section and the ones reached through
// imported macro files.
package macros

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"

	"github.com/walteh/toolxmlls/pkg/syntax"
)

const tokenDefaultPrefix = "token_"

// Document is a tool document as seen by the editor.
type Document struct {
	URI string
	// Path is the file system path used to resolve relative imports. It may
	// be empty for unsaved documents.
	Path string
	Text string
}

// Definitions answers questions about the macros available to a document.
type Definitions interface {
	// TokenNames maps every token parameter of the available macros to its
	// default value.
	TokenNames(ctx context.Context, doc Document) map[string]string
	// MacroNames lists the available macro names.
	MacroNames(ctx context.Context, doc Document) []string
}

type Token struct {
	Name    string
	Default string
}

type Macro struct {
	Name   string
	Tokens []Token
	// Source is the file that defines the macro, empty for the document itself.
	Source string
}

// Set is the result of indexing one document.
type Set struct {
	Macros []Macro
	// Imports lists the resolved paths of every imported file, in load order.
	Imports []string
}

func (s *Set) Names() []string {
	seen := map[string]bool{}
	var names []string
	for _, m := range s.Macros {
		if !seen[m.Name] {
			seen[m.Name] = true
			names = append(names, m.Name)
		}
	}
	return names
}

func (s *Set) Tokens() map[string]string {
	out := map[string]string{}
	for _, m := range s.Macros {
		for _, tok := range m.Tokens {
			if _, ok := out[tok.Name]; !ok {
				out[tok.Name] = tok.Default
			}
		}
	}
	return out
}

var (
	xmlMacrosExpr    = xpath.MustCompile("/macros/xml")
	importMacrosExpr = xpath.MustCompile("/macros/import")
)

// Index reads imported macro files from a file system.
type Index struct {
	fs afero.Fs
}

var _ Definitions = (*Index)(nil)

func NewIndex(fs afero.Fs) *Index {
	return &Index{fs: fs}
}

func (me *Index) TokenNames(ctx context.Context, doc Document) map[string]string {
	return me.loadLogged(ctx, doc).Tokens()
}

func (me *Index) MacroNames(ctx context.Context, doc Document) []string {
	return me.loadLogged(ctx, doc).Names()
}

func (me *Index) loadLogged(ctx context.Context, doc Document) *Set {
	set, err := me.Load(ctx, doc)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("uri", doc.URI).Msg("some macro imports could not be loaded")
	}
	return set
}

// Load collects the macros of doc and of every file it imports, following
// nested imports. Files that cannot be read or parsed are skipped; their
// errors are combined in the returned error next to the partial result.
func (me *Index) Load(ctx context.Context, doc Document) (*Set, error) {
	set := &Set{}
	root := syntax.Parse(doc.Text)

	var imports []string
	for _, section := range macroSections(root) {
		for _, el := range section.Elements() {
			switch el.Name {
			case "xml":
				if m, ok := macroFromElement(el); ok {
					set.Macros = append(set.Macros, m)
				}
			case "import":
				if name := strings.TrimSpace(el.InnerText()); name != "" {
					imports = append(imports, name)
				}
			}
		}
	}

	if len(imports) == 0 {
		return set, nil
	}
	if doc.Path == "" {
		return set, errors.Errorf("resolving %d macro imports: document has no path", len(imports))
	}

	visited := map[string]bool{filepath.Clean(doc.Path): true}
	var errs error
	for _, name := range imports {
		errs = multierr.Append(errs, me.loadFile(ctx, filepath.Join(filepath.Dir(doc.Path), name), set, visited))
	}
	return set, errs
}

func (me *Index) loadFile(ctx context.Context, path string, set *Set, visited map[string]bool) error {
	path = filepath.Clean(path)
	if visited[path] {
		return nil
	}
	visited[path] = true

	data, err := afero.ReadFile(me.fs, path)
	if err != nil {
		return errors.Errorf("reading macro file %s: %w", path, err)
	}
	top, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return errors.Errorf("parsing macro file %s: %w", path, err)
	}

	set.Imports = append(set.Imports, path)
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("loaded macro file")

	for _, node := range xmlquery.QuerySelectorAll(top, xmlMacrosExpr) {
		if m, ok := macroFromQueryNode(node); ok {
			m.Source = path
			set.Macros = append(set.Macros, m)
		}
	}

	var errs error
	for _, node := range xmlquery.QuerySelectorAll(top, importMacrosExpr) {
		name := strings.TrimSpace(node.InnerText())
		if name == "" {
			continue
		}
		errs = multierr.Append(errs, me.loadFile(ctx, filepath.Join(filepath.Dir(path), name), set, visited))
	}
	return errs
}

// macroSections returns the macros elements of a tool document, or the root
// itself when the document is a macro file.
func macroSections(doc *syntax.Node) []*syntax.Node {
	var out []*syntax.Node
	for _, root := range doc.Elements() {
		if root.Name == "macros" {
			out = append(out, root)
			continue
		}
		for _, el := range root.Elements() {
			if el.Name == "macros" {
				out = append(out, el)
			}
		}
	}
	return out
}

func macroFromElement(el *syntax.Node) (Macro, bool) {
	name, ok := el.AttributeValue("name")
	if !ok || name == "" {
		return Macro{}, false
	}
	tokens, _ := el.AttributeValue("tokens")
	defaults := map[string]string{}
	for _, attr := range el.Attributes {
		if strings.HasPrefix(attr.Name, tokenDefaultPrefix) && attr.Value != nil {
			defaults[strings.TrimPrefix(attr.Name, tokenDefaultPrefix)] = attr.Value.Text
		}
	}
	return Macro{Name: name, Tokens: parseTokens(tokens, defaults)}, true
}

func macroFromQueryNode(node *xmlquery.Node) (Macro, bool) {
	name := node.SelectAttr("name")
	if name == "" {
		return Macro{}, false
	}
	defaults := map[string]string{}
	for _, attr := range node.Attr {
		if strings.HasPrefix(attr.Name.Local, tokenDefaultPrefix) {
			defaults[strings.TrimPrefix(attr.Name.Local, tokenDefaultPrefix)] = attr.Value
		}
	}
	return Macro{Name: name, Tokens: parseTokens(node.SelectAttr("tokens"), defaults)}, true
}

func parseTokens(list string, defaults map[string]string) []Token {
	var out []Token
	for _, raw := range strings.Split(list, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		out = append(out, Token{Name: name, Default: defaults[strings.ToLower(name)]})
	}
	return out
}
