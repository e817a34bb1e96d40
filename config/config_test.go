package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		env     map[string]string
		wantErr bool
		verify  func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults filled",
			body: "postgres:\n  dsn: postgres://localhost/db\n",
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://localhost/db", cfg.Postgres.DSN)
				assert.Equal(t, 50, cfg.Scoring.MinScore)
				assert.Equal(t, 300, cfg.Scoring.MaxScore)
				assert.Equal(t, 0.2, cfg.Matching.AutoAcceptDistance)
				assert.Equal(t, 0.35, cfg.Matching.ReviewDistance)
				assert.Equal(t, 30*time.Second, cfg.Commit.Timeout)
				assert.Equal(t, ":8080", cfg.HTTP.Addr)
			},
		},
		{
			name: "yaml values kept",
			body: "scoring:\n  min_score: 60\n  max_score: 280\nmatching:\n  auto_accept_distance: 0.1\n  review_distance: 0.3\n",
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 60, cfg.Scoring.MinScore)
				assert.Equal(t, 280, cfg.Scoring.MaxScore)
				assert.Equal(t, 0.1, cfg.Matching.AutoAcceptDistance)
			},
		},
		{
			name: "env overrides yaml",
			body: "postgres:\n  dsn: postgres://file/db\n",
			env: map[string]string{
				"DATABASE_URL":               "postgres://env/db",
				"MATCH_AUTO_ACCEPT_DISTANCE": "0.15",
				"COMMIT_TIMEOUT":             "45s",
				"FETCH_PROXY_URL":            "http://proxy:3128",
			},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://env/db", cfg.Postgres.DSN)
				assert.Equal(t, 0.15, cfg.Matching.AutoAcceptDistance)
				assert.Equal(t, 45*time.Second, cfg.Commit.Timeout)
				assert.Equal(t, "http://proxy:3128", cfg.Fetch.ProxyURL)
			},
		},
		{
			name:    "review below auto accept is rejected",
			body:    "matching:\n  auto_accept_distance: 0.3\n  review_distance: 0.25\n",
			wantErr: true,
		},
		{
			name:    "inverted score range is rejected",
			body:    "scoring:\n  min_score: 300\n  max_score: 100\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			body:    "postgres: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadConfig(writeConfig(t, tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadConfig_MissingFileFallsBackToEnv(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	t.Run("requires DATABASE_URL", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		_, err := LoadConfig(missing)
		require.Error(t, err)
	})

	t.Run("env only", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://env/db")
		t.Setenv("NATS_URL", "nats://localhost:4222")
		cfg, err := LoadConfig(missing)
		require.NoError(t, err)
		assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
		assert.Equal(t, 15, cfg.Scoring.HeaderScanRows)
	})
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 90, cfg.Scoring.LeadingNoiseCeiling)
	assert.Equal(t, 100, cfg.Scoring.LeadingNoiseAnchor)
	assert.Equal(t, 200, cfg.Scoring.TeamTotalFloor)
	assert.Equal(t, 0.3, cfg.Scoring.TeamTotalMargin)
	assert.Equal(t, 50, cfg.Scoring.MaxDivisionLength)
}
