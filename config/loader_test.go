package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scogerr "github.com/b1zzu/scog/errors"
	fsb "github.com/b1zzu/scog/fs/billy"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		content  *string
		opts     LoadOptions
		want     []string
		wantErr  bool
		validate func(t *testing.T, err error)
	}{
		{
			name:    "valid configuration",
			content: ptr("sections:\n  - path: /home/u/.bashrc\n  - path: /home/u/.config/nvim\n"),
			want:    []string{"/home/u/.bashrc", "/home/u/.config/nvim"},
		},
		{
			name:    "empty document tracks nothing",
			content: ptr(""),
			want:    []string{},
		},
		{
			name:    "missing file",
			wantErr: true,
			validate: func(t *testing.T, err error) {
				var e *scogerr.Error
				require.True(t, scogerr.As(err, &e))
				assert.Equal(t, "configuration file does not exist", e.Message)
				assert.Equal(t, "config.yaml", e.Context["path"])
			},
		},
		{
			name:    "malformed yaml",
			content: ptr("sections: [\n"),
			wantErr: true,
		},
		{
			name:    "unknown field",
			content: ptr("sections:\n  - file: /home/u/.bashrc\n"),
			wantErr: true,
		},
		{
			name:    "relative path",
			content: ptr("sections:\n  - path: .bashrc\n"),
			wantErr: true,
			validate: func(t *testing.T, err error) {
				assert.True(t, scogerr.HasCode(err, scogerr.CodeInvalidInput))
			},
		},
		{
			name:    "skip validation",
			content: ptr("sections:\n  - path: .bashrc\n"),
			opts:    LoadOptions{SkipValidation: true},
			want:    []string{".bashrc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := fsb.NewInMemoryFS()
			if tt.content != nil {
				require.NoError(t, fs.WriteFile("config.yaml", []byte(*tt.content), 0o644))
			}

			cfg, err := LoadWithOptions(context.Background(), fs, "config.yaml", tt.opts)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, scogerr.CodeConfigLoadFailed, scogerr.GetCode(err))
				if tt.validate != nil {
					tt.validate(t, err)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Paths())
		})
	}
}

func TestLoad_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, fsb.NewInMemoryFS(), "config.yaml")
	assert.ErrorIs(t, err, context.Canceled)
}

func ptr(s string) *string { return &s }
