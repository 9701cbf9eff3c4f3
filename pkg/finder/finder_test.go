package finder

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/toolxmlls/pkg/config"
)

func TestDefaultFinder_FindTools(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	ctx := logger.WithContext(context.Background())

	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/ws/tools/bwa.xml":           `<tool id="bwa" name="BWA"><command/></tool>`,
		"/ws/tools/macros.xml":        `<macros><xml name="reqs"/></macros>`,
		"/ws/tools/nested/sort.xml":   "<?xml version=\"1.0\"?>\n<!-- sorting -->\n<tool id=\"sort\">",
		"/ws/tools/readme.md":         "<tool/>",
		"/ws/.git/objects/tool.xml":   `<tool id="hidden"/>`,
		"/ws/test-data/expected.xml":  `<tool id="data"/>`,
		"/ws/tools/data/sample.xml":   `<sample><tool/></sample>`,
	}
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}

	only := func(patterns ...string) *config.Config {
		cfg := config.Default()
		cfg.Files = patterns
		return cfg
	}

	tests := []struct {
		name    string
		cfg     *config.Config
		dir     string
		want    []string
		wantErr bool
	}{
		{
			name: "default patterns",
			cfg:  config.Default(),
			dir:  "/ws",
			want: []string{"/ws/test-data/expected.xml", "/ws/tools/bwa.xml", "/ws/tools/nested/sort.xml"},
		},
		{
			name: "restricted patterns",
			cfg:  only("tools/**/*.xml"),
			dir:  "/ws",
			want: []string{"/ws/tools/bwa.xml", "/ws/tools/nested/sort.xml"},
		},
		{
			name: "single level",
			cfg:  only("tools/*.xml"),
			dir:  "/ws",
			want: []string{"/ws/tools/bwa.xml"},
		},
		{
			name:    "non-existent directory",
			cfg:     config.Default(),
			dir:     "/missing",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDefaultFinder(fs, tt.cfg, "tool")
			got, err := f.FindTools(ctx, tt.dir)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
