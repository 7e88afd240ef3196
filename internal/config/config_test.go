package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9200", cfg.Cluster.Endpoint)
	assert.Equal(t, 30, cfg.Cluster.Timeout)
	assert.Equal(t, "all", cfg.Selection.LogType)
	assert.Equal(t, "ppl", cfg.Selection.Language)
	assert.Equal(t, "queries", cfg.Selection.QueryDir)
	assert.Equal(t, 10, cfg.Load.Rate)
	assert.Equal(t, 60, cfg.Load.Duration)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadLegacyEnvNames(t *testing.T) {
	t.Setenv("OPENSEARCH_ENDPOINT", "https://search-perf.us-west-2.es.amazonaws.com/")
	t.Setenv("OPENSEARCH_USER", "admin")
	t.Setenv("OPENSEARCH_PASSWORD", "secret")
	t.Setenv("LOG_TYPE", "VPC")
	t.Setenv("QUERY_LANGUAGE", "DSL")
	t.Setenv("INDEX_NAME", "vpc_flow_logs")

	cfg, err := Load()
	require.NoError(t, err)

	// trailing slash is stripped, selectors are lowercased
	assert.Equal(t, "https://search-perf.us-west-2.es.amazonaws.com", cfg.Cluster.Endpoint)
	assert.Equal(t, "admin", cfg.Cluster.Username)
	assert.Equal(t, "secret", cfg.Cluster.Password)
	assert.Equal(t, "vpc", cfg.Selection.LogType)
	assert.Equal(t, "dsl", cfg.Selection.Language)
	assert.Equal(t, "vpc_flow_logs", cfg.Generate.Index)
}

func TestLoadPrefixedEnvWins(t *testing.T) {
	t.Setenv("OPENSEARCH_ENDPOINT", "http://legacy:9200")
	t.Setenv("QUERYBENCH_CLUSTER_ENDPOINT", "http://prefixed:9200")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://prefixed:9200", cfg.Cluster.Endpoint)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing endpoint", func(c *Config) { c.Cluster.Endpoint = "" }, "endpoint"},
		{"zero rate", func(c *Config) { c.Load.Rate = 0 }, "rate"},
		{"negative duration", func(c *Config) { c.Load.Duration = -5 }, "duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
