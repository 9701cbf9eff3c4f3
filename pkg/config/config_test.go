package config_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/toolxmlls/pkg/config"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		content     string
		expectError bool
		validate    func(t *testing.T, cfg *config.Config)
	}{
		{
			name:    "yaml",
			path:    "/work/.toolxmlls.yaml",
			content: "completion:\n  mode: invoke\n  auto_close_tags: false\nfiles:\n  - \"tools/**/*.xml\"\ndebug: true\n",
			validate: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.ModeInvoke, cfg.Completion.Mode)
				assert.False(t, cfg.Completion.AutoCloseTags)
				assert.Equal(t, []string{"tools/**/*.xml"}, cfg.Files)
				assert.True(t, cfg.Debug)
			},
		},
		{
			name:    "yaml keeps defaults for unset keys",
			path:    "/work/.toolxmlls.yml",
			content: "debug: true\n",
			validate: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.ModeAuto, cfg.Completion.Mode)
				assert.True(t, cfg.Completion.AutoCloseTags)
				assert.Equal(t, []string{"**/*.xml"}, cfg.Files)
			},
		},
		{
			name:    "empty yaml",
			path:    "/work/.toolxmlls.yaml",
			content: "",
			validate: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.Default(), cfg)
			},
		},
		{
			name:        "yaml unknown key",
			path:        "/work/.toolxmlls.yaml",
			content:     "completion:\n  moed: invoke\n",
			expectError: true,
		},
		{
			name: "hcl",
			path: "/work/toolxmlls.hcl",
			content: `
files = ["**/*.xml", "macros/*.xml"]

completion {
  mode            = mode.disabled
  auto_close_tags = false
}
`,
			validate: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.ModeDisabled, cfg.Completion.Mode)
				assert.False(t, cfg.Completion.AutoCloseTags)
				assert.Equal(t, []string{"**/*.xml", "macros/*.xml"}, cfg.Files)
				assert.False(t, cfg.Debug)
			},
		},
		{
			name:        "hcl syntax error",
			path:        "/work/toolxmlls.hcl",
			content:     "completion {",
			expectError: true,
		},
		{
			name:        "invalid values are all reported",
			path:        "/work/.toolxmlls.yaml",
			content:     "completion:\n  mode: sometimes\nfiles:\n  - \"[a-\"\n",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, tt.path, []byte(tt.content), 0o644))

			cfg, err := config.Load(fs, tt.path)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	cfg, err := config.Load(fs, "/nowhere/.toolxmlls.yaml")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	cfg, err = config.Load(fs, "")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestValidateAggregates(t *testing.T) {
	cfg := &config.Config{Completion: config.Completion{Mode: "sometimes"}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "completion mode")
	assert.Contains(t, err.Error(), "at least one pattern")
}

func TestHandles(t *testing.T) {
	cfg := config.Default()
	assert.True(t, cfg.Handles("/home/me/tools/bwa/bwa.xml"))
	assert.True(t, cfg.Handles("bwa.xml"))
	assert.False(t, cfg.Handles("/home/me/tools/bwa/README.md"))

	cfg.Files = []string{"tools/**/*.xml"}
	assert.True(t, cfg.Handles("tools/bwa/macros.xml"))
	assert.False(t, cfg.Handles("other/bwa.xml"))
}

func TestWithSettings(t *testing.T) {
	base := config.Default()

	cfg, err := base.WithSettings(map[string]any{
		"toolxml": map[string]any{
			"completion": map[string]any{"mode": "invoke", "autoCloseTags": false},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, config.ModeInvoke, cfg.Completion.Mode)
	assert.False(t, cfg.Completion.AutoCloseTags)
	assert.Equal(t, config.ModeAuto, base.Completion.Mode, "receiver is not modified")

	cfg, err = base.WithSettings(map[string]any{"completion": map[string]any{"mode": "disabled"}})
	require.NoError(t, err)
	assert.Equal(t, config.ModeDisabled, cfg.Completion.Mode)

	cfg, err = base.WithSettings(nil)
	require.NoError(t, err)
	assert.Equal(t, base, cfg)

	_, err = base.WithSettings(map[string]any{"completion": map[string]any{"mode": "often"}})
	require.Error(t, err)

	_, err = base.WithSettings(map[string]any{"completion": map[string]any{"autoCloseTags": "yes"}})
	require.Error(t, err)

	_, err = base.WithSettings([]string{"nope"})
	require.Error(t, err)
}
