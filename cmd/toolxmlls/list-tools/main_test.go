package list_tools

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	ctx := logger.WithContext(context.Background())

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/tools/cat.xml", []byte(`<tool id="cat1" name="Concatenate"/>`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/tools/macros.xml", []byte(`<macros/>`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/docs/example.xml", []byte(`<tool id="doc"/>`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/toolxmlls.yaml", []byte("files:\n  - tools/**/*.xml\n"), 0o644))

	tests := []struct {
		name       string
		configPath string
		want       string
	}{
		{name: "defaults", want: "/repo/docs/example.xml\n/repo/tools/cat.xml\n"},
		{name: "configured patterns", configPath: "/repo/toolxmlls.yaml", want: "/repo/tools/cat.xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			me := &Handler{configPath: tt.configPath, out: &out}
			require.NoError(t, me.Run(ctx, fs, "/repo"))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestRunMissingDirectory(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	ctx := logger.WithContext(context.Background())

	me := &Handler{out: &bytes.Buffer{}}
	err := me.Run(ctx, afero.NewMemMapFs(), "/nowhere")
	assert.ErrorContains(t, err, "finding tools")
}
