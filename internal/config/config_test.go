package config

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "treelang.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 8, cfg.Eval.MaxConcurrent)
	assert.Equal(t, "memory", cfg.Memory.Backend)
	assert.Equal(t, "builtin", cfg.Tools.Source)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Planner.APIKeyEnv)
	assert.False(t, cfg.Debug)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
debug: true
server:
  port: "9000"
planner:
  model: gpt-4o-mini
  base_url: http://localhost:11434/v1
memory:
  backend: redis
  redis:
    addr: localhost:6379
    ttl: 24h
tools:
  source: mcp
  transport: stdio
  command: ./calculator
  args: ["--verbose"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.Planner.Model)
	assert.Equal(t, "redis", cfg.Memory.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Memory.Redis.TTL)
	assert.Equal(t, "./calculator", cfg.Tools.Command)
	assert.Equal(t, []string{"--verbose"}, cfg.Tools.Args)
	// File settings must not disturb untouched defaults.
	assert.Equal(t, 8, cfg.Eval.MaxConcurrent)
}

func TestLoadExplicitPathMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"7000\"\n")
	t.Setenv("TREELANG_PORT", "9999")
	t.Setenv("TREELANG_EVAL_MAX_CONCURRENT", "2")
	t.Setenv("TREELANG_MEMORY_BACKEND", "file")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, 2, cfg.Eval.MaxConcurrent, "env string should coerce into the int field")
	assert.Equal(t, "file", cfg.Memory.Backend)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown memory backend",
			mutate:  func(c *Config) { c.Memory.Backend = "cassette" },
			wantErr: "memory backend",
		},
		{
			name:    "redis without addr",
			mutate:  func(c *Config) { c.Memory.Backend = "redis" },
			wantErr: "requires an addr",
		},
		{
			name:    "mcp stdio without command",
			mutate:  func(c *Config) { c.Tools.Source = "mcp" },
			wantErr: "requires a command",
		},
		{
			name: "mcp sse without url",
			mutate: func(c *Config) {
				c.Tools.Source = "mcp"
				c.Tools.Transport = "sse"
			},
			wantErr: "requires a url",
		},
		{
			name:    "negative concurrency",
			mutate:  func(c *Config) { c.Eval.MaxConcurrent = -1 },
			wantErr: "max_concurrent",
		},
		{
			name:    "invalid redact pattern",
			mutate:  func(c *Config) { c.Memory.Redact = []string{`[`} },
			wantErr: "redact pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPlannerKey(t *testing.T) {
	t.Setenv("TREELANG_TEST_KEY", "from-env")

	p := Planner{APIKeyEnv: "TREELANG_TEST_KEY"}
	assert.Equal(t, "from-env", p.Key())
	assert.True(t, p.Configured())

	p.APIKey = "literal"
	assert.Equal(t, "literal", p.Key(), "literal key wins over the environment")

	unset := Planner{APIKeyEnv: "TREELANG_TEST_KEY_UNSET"}
	assert.False(t, unset.Configured())

	local := Planner{BaseURL: "http://localhost:11434/v1"}
	assert.True(t, local.Configured(), "a keyless local endpoint is still usable")
}

func TestMemoryEncryptionKey(t *testing.T) {
	off := Memory{}
	key, err := off.EncryptionKey()
	require.NoError(t, err)
	assert.Nil(t, key, "no key env means encryption is off")

	t.Setenv("TREELANG_TEST_MEMORY_KEY", base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("k"), 32)))
	m := Memory{EncryptionKeyEnv: "TREELANG_TEST_MEMORY_KEY"}
	key, err = m.EncryptionKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)

	t.Setenv("TREELANG_TEST_MEMORY_KEY", base64.StdEncoding.EncodeToString([]byte("short")))
	_, err = m.EncryptionKey()
	require.Error(t, err, "wrong key length is rejected")

	unset := Memory{EncryptionKeyEnv: "TREELANG_TEST_MEMORY_KEY_UNSET"}
	_, err = unset.EncryptionKey()
	require.Error(t, err, "naming an empty variable is an error, not plaintext storage")
}
