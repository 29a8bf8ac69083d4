package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
dag-engine:
  general:
    instance_name: nightly
    log_level: debug
  execution:
    max_concurrency: 4
    failure_policy: fail_fast
    default_task_timeout: 45s
  storage:
    database:
      type: sqlite
      dsn: ./history.db
    cache:
      enabled: true
      result_ttl: 10m
  events:
    enabled: true
  server:
    port: 9090
`

func TestLoadEngineConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := LoadEngineConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "nightly", cfg.DagEngine.General.InstanceName)
	assert.True(t, cfg.IsDebug())
	assert.Equal(t, 4, cfg.GetMaxConcurrency())
	assert.True(t, cfg.IsFailFast())
	assert.Equal(t, 45*time.Second, cfg.DagEngine.Execution.DefaultTaskTimeout)
	assert.True(t, cfg.HistoryEnabled())
	assert.Equal(t, "sqlite", cfg.GetDatabaseType())
	assert.Equal(t, "./history.db", cfg.GetDatabaseDSN())
	assert.Equal(t, 10*time.Minute, cfg.DagEngine.Storage.Cache.ResultTTL)
	assert.Equal(t, 9090, cfg.DagEngine.Server.Port)

	// 默认值补齐
	assert.Equal(t, 10, cfg.DagEngine.Storage.Database.MaxOpenConns)
	assert.Equal(t, 256, cfg.DagEngine.Events.BufferSize)
	assert.Equal(t, "0.0.0.0", cfg.DagEngine.Server.Host)
}

func TestLoadEngineConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadEngineConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "dag-engine", cfg.DagEngine.General.InstanceName)
	assert.Equal(t, 0, cfg.GetMaxConcurrency())
	assert.False(t, cfg.IsFailFast())
	assert.False(t, cfg.HistoryEnabled())
	assert.Equal(t, 8080, cfg.DagEngine.Server.Port)

	cfg, err = LoadEngineConfig("")
	require.NoError(t, err)
	assert.Equal(t, FailurePolicyContinue, cfg.DagEngine.Execution.FailurePolicy)
}

func TestParseEngineConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":        "dag-engine: [",
		"bad log level":   "dag-engine:\n  general:\n    log_level: loud\n",
		"bad policy":      "dag-engine:\n  execution:\n    failure_policy: retry\n",
		"negative limit":  "dag-engine:\n  execution:\n    max_concurrency: -1\n",
		"bad db type":     "dag-engine:\n  storage:\n    database:\n      type: oracle\n      dsn: x\n",
		"missing dsn":     "dag-engine:\n  storage:\n    database:\n      type: sqlite\n",
		"bad port":        "dag-engine:\n  server:\n    port: 70000\n",
		"email no host":   "dag-engine:\n  notifications:\n    email:\n      enabled: true\n      from: a@b\n      to: [c@d]\n",
		"email no to":     "dag-engine:\n  notifications:\n    email:\n      enabled: true\n      smtp_host: h\n      from: a@b\n",
		"email bad event": "dag-engine:\n  notifications:\n    email:\n      enabled: true\n      smtp_host: h\n      from: a@b\n      to: [c@d]\n      events: [run.exploded]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEngineConfig([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestValidateEngineConfig_Nil(t *testing.T) {
	assert.Error(t, ValidateEngineConfig(nil))
	assert.NoError(t, ValidateEngineConfig(DefaultConfig()))
}

func TestEmailNotification_Params(t *testing.T) {
	doc := `
dag-engine:
  notifications:
    email:
      enabled: true
      smtp_host: smtp.example.com
      smtp_port: 587
      from: dag@example.com
      to: [ops@example.com, dev@example.com]
      only_failures: true
`
	cfg, err := ParseEngineConfig([]byte(doc))
	require.NoError(t, err)

	email := cfg.DagEngine.Notifications.Email
	assert.True(t, email.OnlyFailures)
	assert.Equal(t, []string{"run.finished"}, email.Events)

	params := email.Params()
	assert.Equal(t, "smtp.example.com", params["smtp_host"])
	assert.Equal(t, "587", params["smtp_port"])
	assert.Equal(t, "ops@example.com,dev@example.com", params["to"])
}
