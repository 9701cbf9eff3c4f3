package xsd

import (
	"context"
	_ "embed"
	"sync"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

//go:embed schema/tool.xsd
var bundledSchema []byte

var (
	defaultOnce sync.Once
	defaultTree *Tree
	defaultErr  error
)

// Default returns the tree compiled from the bundled tool schema. The schema is
// compiled once per process.
func Default(ctx context.Context) (*Tree, error) {
	defaultOnce.Do(func() {
		defaultTree, defaultErr = Compile(ctx, bundledSchema)
	})
	return defaultTree, defaultErr
}

// BundledSchema returns the raw bundled schema document.
func BundledSchema() []byte {
	return bundledSchema
}

// Load compiles the schema file at path, or the bundled schema when path is
// empty.
func Load(ctx context.Context, fs afero.Fs, path string, opts ...Option) (*Tree, error) {
	if path == "" {
		if len(opts) == 0 {
			return Default(ctx)
		}
		return Compile(ctx, bundledSchema, opts...)
	}
	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading schema %s: %w", path, err)
	}
	tree, err := Compile(ctx, src, opts...)
	if err != nil {
		return nil, errors.Errorf("compiling schema %s: %w", path, err)
	}
	return tree, nil
}
