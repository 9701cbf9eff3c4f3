// Package config holds the language server settings: completion behaviour and
// which documents are tool documents.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// CompletionMode decides when completion lists are offered.
type CompletionMode string

const (
	// ModeAuto offers completions on trigger characters and on request.
	ModeAuto CompletionMode = "auto"
	// ModeInvoke offers completions only when explicitly requested.
	ModeInvoke CompletionMode = "invoke"
	// ModeDisabled never offers completions.
	ModeDisabled CompletionMode = "disabled"
)

func (m CompletionMode) Valid() bool {
	switch m {
	case ModeAuto, ModeInvoke, ModeDisabled:
		return true
	}
	return false
}

type Completion struct {
	Mode          CompletionMode
	AutoCloseTags bool
}

type Config struct {
	Completion Completion
	// Files are doublestar patterns matched against document paths.
	Files []string
	Debug bool
}

func Default() *Config {
	return &Config{
		Completion: Completion{
			Mode:          ModeAuto,
			AutoCloseTags: true,
		},
		Files: []string{"**/*.xml"},
	}
}

// file is the on-disk shape shared by the YAML and HCL formats. Pointers tell
// unset values apart from zero values.
type file struct {
	Completion *fileCompletion `yaml:"completion,omitempty" hcl:"completion,block"`
	Files      []string        `yaml:"files,omitempty" hcl:"files,optional"`
	Debug      *bool           `yaml:"debug,omitempty" hcl:"debug,optional"`
}

type fileCompletion struct {
	Mode          *string `yaml:"mode,omitempty" hcl:"mode,optional"`
	AutoCloseTags *bool   `yaml:"auto_close_tags,omitempty" hcl:"auto_close_tags,optional"`
}

// Load reads a YAML (.yaml, .yml) or HCL configuration file from fs and
// applies it over the defaults. An empty path or a missing file yields the
// defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, errors.Errorf("reading config file: %w", err)
	}

	var raw file
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
	default:
		parser := hclparse.NewParser()
		hclFile, diags := parser.ParseHCL(data, path)
		if diags.HasErrors() {
			return nil, errors.Errorf("parsing HCL: %s", diags.Error())
		}
		diags = gohcl.DecodeBody(hclFile.Body, evalContext(), &raw)
		if diags.HasErrors() {
			return nil, errors.Errorf("decoding HCL: %s", diags.Error())
		}
	}

	raw.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// evalContext lets HCL files refer to the completion modes as mode.auto,
// mode.invoke and mode.disabled.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"mode": cty.ObjectVal(map[string]cty.Value{
				string(ModeAuto):     cty.StringVal(string(ModeAuto)),
				string(ModeInvoke):   cty.StringVal(string(ModeInvoke)),
				string(ModeDisabled): cty.StringVal(string(ModeDisabled)),
			}),
		},
	}
}

func (f *file) apply(cfg *Config) {
	if f.Completion != nil {
		if f.Completion.Mode != nil {
			cfg.Completion.Mode = CompletionMode(*f.Completion.Mode)
		}
		if f.Completion.AutoCloseTags != nil {
			cfg.Completion.AutoCloseTags = *f.Completion.AutoCloseTags
		}
	}
	if f.Files != nil {
		cfg.Files = f.Files
	}
	if f.Debug != nil {
		cfg.Debug = *f.Debug
	}
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	if !c.Completion.Mode.Valid() {
		result = multierror.Append(result, errors.Errorf("completion mode %q must be one of auto, invoke or disabled", c.Completion.Mode))
	}
	if len(c.Files) == 0 {
		result = multierror.Append(result, errors.New("files must list at least one pattern"))
	}
	for _, pattern := range c.Files {
		if !doublestar.ValidatePattern(pattern) {
			result = multierror.Append(result, errors.Errorf("invalid files pattern %q", pattern))
		}
	}
	return result.ErrorOrNil()
}

// Handles reports whether a document path is matched by the files patterns.
func (c *Config) Handles(path string) bool {
	path = strings.TrimPrefix(filepath.ToSlash(path), "/")
	for _, pattern := range c.Files {
		if ok, err := doublestar.Match(strings.TrimPrefix(pattern, "/"), path); err == nil && ok {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Files = append([]string(nil), c.Files...)
	return &out
}
