// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: content_tests
    user: ${TEST_DB_USER}
  elasticsearch:
    addresses: ["http://localhost:9200"]
  redis:
    address: localhost:6379
grader:
  base_url: http://grader:8080
workers:
  run-content-test:
    enabled: true
    timeout: 5000
  rematch-content-test:
    enabled: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_DefaultsAndExpansion(t *testing.T) {
	t.Setenv("TEST_DB_USER", "grader_ro")

	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "grader_ro", cfg.Database.Postgres.User)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "content-test-runs", cfg.Database.Elasticsearch.RunsIndex)
	assert.True(t, cfg.ContentTesting.PreserveOnSlotChange)
	assert.Equal(t, 4, cfg.ContentTesting.RunConcurrency)
	assert.Equal(t, 1.0, cfg.Observability.TraceSampleRatio)
	assert.Equal(t, "content-testing-workers", cfg.Observability.ServiceName)

	run := GetWorkerConfig(cfg, "run-content-test")
	assert.Equal(t, 5000, run.Timeout)
	assert.Equal(t, 5, run.MaxJobsActive)
	assert.Equal(t, 3, run.MaxRetries)

	assert.False(t, IsWorkerEnabled(cfg, "rematch-content-test"))
	assert.True(t, IsWorkerEnabled(cfg, "summarize-content-test"))
	assert.Equal(t, 30000, GetWorkerConfig(cfg, "summarize-content-test").Timeout)
}

func TestLoadFromFile_EnvOverride(t *testing.T) {
	t.Setenv("TEST_DB_USER", "grader_ro")
	t.Setenv("GRADER_BASE_URL", "http://override:9000")
	t.Setenv("CONTENT_TESTING_PRESERVE_ON_SLOT_CHANGE", "false")

	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "http://override:9000", cfg.Grader.BaseURL)
	assert.False(t, cfg.ContentTesting.PreserveOnSlotChange)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing broker",
			body:    "database:\n  postgres:\n    host: x\n",
			wantErr: "camunda.broker_address",
		},
		{
			name: "missing grader",
			body: `
camunda: {broker_address: "b:1"}
database:
  postgres: {host: h, database: d, user: u}
  elasticsearch: {addresses: ["http://e"]}
  redis: {address: "r:1"}
`,
			wantErr: "grader.base_url",
		},
		{
			name: "notifications without target",
			body: `
camunda: {broker_address: "b:1"}
database:
  postgres: {host: h, database: d, user: u}
  elasticsearch: {addresses: ["http://e"]}
  redis: {address: "r:1"}
grader: {base_url: "http://g"}
notifications: {enabled: true}
`,
			wantErr: "notifications",
		},
		{
			name: "sample ratio out of range",
			body: `
camunda: {broker_address: "b:1"}
database:
  postgres: {host: h, database: d, user: u}
  elasticsearch: {addresses: ["http://e"]}
  redis: {address: "r:1"}
grader: {base_url: "http://g"}
observability: {trace_sample_ratio: 2}
`,
			wantErr: "trace_sample_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=require", p.GetDSN())
}
