package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "local defaults", cfg: Config{ServiceName: "bookstore", Env: "local"}},
		{name: "docker json", cfg: Config{ServiceName: "bookstore", Env: "docker", Level: "debug"}},
		{name: "explicit console", cfg: Config{ServiceName: "bookstore", Env: "docker", Format: "console", Level: "WARN"}},
		{name: "invalid level", cfg: Config{Env: "local", Level: "verbose"}, wantErr: true},
		{name: "invalid format", cfg: Config{Env: "local", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, logger)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
		})
	}
}
