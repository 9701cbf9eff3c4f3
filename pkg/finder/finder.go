// Package finder discovers tool documents in a workspace.
package finder

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/toolxmlls/pkg/config"
	"github.com/walteh/toolxmlls/pkg/syntax"
)

// ToolFinder is responsible for finding tool documents in a directory
type ToolFinder interface {
	// FindTools returns the paths of the tool documents below dir, sorted.
	FindTools(ctx context.Context, dir string) ([]string, error)
}

// DefaultFinder selects files matched by the configured patterns whose root
// element is rootName.
type DefaultFinder struct {
	fs       afero.Fs
	cfg      *config.Config
	rootName string
}

var _ ToolFinder = (*DefaultFinder)(nil)

func NewDefaultFinder(fs afero.Fs, cfg *config.Config, rootName string) *DefaultFinder {
	return &DefaultFinder{fs: fs, cfg: cfg, rootName: rootName}
}

// FindTools implements ToolFinder. Patterns are matched against paths relative
// to dir.
func (f *DefaultFinder) FindTools(ctx context.Context, dir string) ([]string, error) {
	logger := zerolog.Ctx(ctx)

	var found []string
	err := afero.Walk(f.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && len(info.Name()) > 1 && info.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return errors.Errorf("relativizing %s: %w", path, err)
		}
		if !f.cfg.Handles(rel) {
			return nil
		}

		content, err := afero.ReadFile(f.fs, path)
		if err != nil {
			logger.Debug().Err(err).Str("path", path).Msg("skipping unreadable file")
			return nil
		}
		if f.isTool(string(content)) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("walking %s: %w", dir, err)
	}

	sort.Strings(found)
	return found, nil
}

func (f *DefaultFinder) isTool(text string) bool {
	roots := syntax.Parse(text).Elements()
	return len(roots) > 0 && roots[0].Name == f.rootName
}
