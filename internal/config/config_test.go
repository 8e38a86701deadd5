package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronKronberg/pipeline-mcp/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	tests := map[string]struct {
		content string
		expCfg  *config.Config
		expErr  bool
	}{
		"empty file should keep defaults": {
			content: "",
			expCfg:  config.Default(),
		},
		"overrides should be applied over defaults": {
			content: `
pipeline:
  defaultStepDelay: 250ms
  defaultProject: widgets
retention:
  maxTasks: 100
metrics:
  listenAddr: ":9090"
`,
			expCfg: &config.Config{
				Pipeline: config.PipelineConfig{
					DefaultStepDelay: 250 * time.Millisecond,
					RetryStepDelay:   300 * time.Millisecond,
					DefaultProject:   "widgets",
				},
				Retention: config.RetentionConfig{MaxTasks: 100},
				Metrics:   config.MetricsConfig{ListenAddr: ":9090", Path: "/metrics"},
			},
		},
		"delay out of range should fail": {
			content: "pipeline:\n  retryStepDelay: 10s\n",
			expErr:  true,
		},
		"negative retention should fail": {
			content: "retention:\n  maxTasks: -3\n",
			expErr:  true,
		},
		"invalid yaml should fail": {
			content: "pipeline: [",
			expErr:  true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := config.Load(writeConfig(t, test.content))

			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expCfg, cfg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, config.Default().Validate())
}
