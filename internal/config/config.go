// Package config loads treelang configuration. Values come from three
// layers, each overriding the previous: built-in defaults, a YAML file
// and TREELANG_* environment variables.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/treelang/treelang/pkg/eval"
)

// DefaultPath is where Load looks when no file is named explicitly.
const DefaultPath = "treelang.yaml"

// Config is the full application configuration.
type Config struct {
	Debug   bool    `mapstructure:"debug"`
	Server  Server  `mapstructure:"server"`
	Eval    Eval    `mapstructure:"eval"`
	Planner Planner `mapstructure:"planner"`
	Memory  Memory  `mapstructure:"memory"`
	Tools   Tools   `mapstructure:"tools"`
}

// Server configures the HTTP surface.
type Server struct {
	Port string `mapstructure:"port"`
}

// Eval configures the evaluator.
type Eval struct {
	MaxConcurrent int  `mapstructure:"max_concurrent"`
	Sequential    bool `mapstructure:"sequential"`
}

// Planner configures the chat-completions endpoint behind ask. The key
// is normally named indirectly through api_key_env so config files do
// not carry secrets.
type Planner struct {
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	APIKeyEnv string `mapstructure:"api_key_env"`
	Repairs   int    `mapstructure:"repairs"`
}

// Key resolves the API key, preferring the literal value over the
// named environment variable.
func (p Planner) Key() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	if p.APIKeyEnv != "" {
		return os.Getenv(p.APIKeyEnv)
	}
	return ""
}

// Configured reports whether a planner endpoint is usable. A local
// OpenAI-compatible server needs no key, so an explicit base URL is
// enough.
func (p Planner) Configured() bool {
	return p.Key() != "" || p.BaseURL != ""
}

// Memory selects the conversation store backend.
type Memory struct {
	Backend string `mapstructure:"backend"` // memory, redis or file
	Path    string `mapstructure:"path"`    // file backend only
	// Redact lists regexp patterns masked from message content before
	// it reaches the backend.
	Redact []string `mapstructure:"redact"`
	// EncryptionKeyEnv names an environment variable holding a
	// base64-encoded 32-byte key. When set, histories are encrypted
	// at rest.
	EncryptionKeyEnv string `mapstructure:"encryption_key_env"`
	Redis            Redis  `mapstructure:"redis"`
}

// EncryptionKey resolves the at-rest encryption key, or nil when
// encryption is off. Naming a variable that is unset or holds a
// malformed key is an error: silently storing plaintext is worse than
// refusing to start.
func (m Memory) EncryptionKey() ([]byte, error) {
	if m.EncryptionKeyEnv == "" {
		return nil, nil
	}
	raw := os.Getenv(m.EncryptionKeyEnv)
	if raw == "" {
		return nil, fmt.Errorf("memory: environment variable %s is empty", m.EncryptionKeyEnv)
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("memory: decoding key from %s: %w", m.EncryptionKeyEnv, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("memory: key in %s must be 32 bytes (AES-256), got %d", m.EncryptionKeyEnv, len(key))
	}
	return key, nil
}

// Redis holds go-redis connection settings.
type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Tools selects where the tool catalog comes from: the built-in
// calculator registry or a remote MCP server.
type Tools struct {
	Source    string   `mapstructure:"source"`    // builtin or mcp
	Transport string   `mapstructure:"transport"` // stdio, sse or http
	Command   string   `mapstructure:"command"`   // stdio: server executable
	Args      []string `mapstructure:"args"`
	Env       []string `mapstructure:"env"` // KEY=VALUE pairs for the child process
	URL       string   `mapstructure:"url"` // sse/http: server base URL
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Server: Server{Port: "8080"},
		Eval:   Eval{MaxConcurrent: eval.DefaultMaxConcurrent},
		Planner: Planner{
			APIKeyEnv: "OPENAI_API_KEY",
			Repairs:   2,
		},
		Memory: Memory{
			Backend: "memory",
			Path:    ".treelang/sessions",
		},
		Tools: Tools{
			Source:    "builtin",
			Transport: "stdio",
		},
	}
}

// envOverrides maps environment variables onto dotted config paths.
// TREELANG_MAX_INPUT_SIZE is not here: the root package reads it
// directly so sanitization works without a config layer.
var envOverrides = map[string]string{
	"TREELANG_DEBUG":               "debug",
	"TREELANG_PORT":                "server.port",
	"TREELANG_EVAL_MAX_CONCURRENT": "eval.max_concurrent",
	"TREELANG_EVAL_SEQUENTIAL":     "eval.sequential",
	"TREELANG_PLANNER_BASE_URL":    "planner.base_url",
	"TREELANG_PLANNER_MODEL":       "planner.model",
	"TREELANG_PLANNER_API_KEY":     "planner.api_key",
	"TREELANG_MEMORY_BACKEND":      "memory.backend",
	"TREELANG_MEMORY_PATH":         "memory.path",
	"TREELANG_REDIS_ADDR":          "memory.redis.addr",
	"TREELANG_REDIS_PASSWORD":      "memory.redis.password",
	"TREELANG_REDIS_DB":            "memory.redis.db",
	"TREELANG_REDIS_TTL":           "memory.redis.ttl",
	"TREELANG_TOOLS_SOURCE":        "tools.source",
	"TREELANG_TOOLS_TRANSPORT":     "tools.transport",
	"TREELANG_TOOLS_COMMAND":       "tools.command",
	"TREELANG_TOOLS_URL":           "tools.url",
}

// Load reads the configuration at path, or DefaultPath when path is
// empty. A missing default file is not an error; a missing explicit
// one is.
func Load(path string) (Config, error) {
	raw := map[string]any{}
	explicit := path != ""
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// Defaults and environment only.
	default:
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	applyEnv(raw)

	cfg := Default()
	if err := decode(raw, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations no command could act on.
func (c *Config) Validate() error {
	switch c.Memory.Backend {
	case "memory", "redis", "file":
	default:
		return fmt.Errorf("unknown memory backend %q (want memory, redis or file)", c.Memory.Backend)
	}
	if c.Memory.Backend == "redis" && c.Memory.Redis.Addr == "" {
		return fmt.Errorf("memory: redis backend requires an addr")
	}
	for _, p := range c.Memory.Redact {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("memory: invalid redact pattern %q: %w", p, err)
		}
	}

	switch c.Tools.Source {
	case "builtin", "mcp":
	default:
		return fmt.Errorf("unknown tool source %q (want builtin or mcp)", c.Tools.Source)
	}
	if c.Tools.Source == "mcp" {
		switch c.Tools.Transport {
		case "stdio":
			if c.Tools.Command == "" {
				return fmt.Errorf("tools: stdio transport requires a command")
			}
		case "sse", "http":
			if c.Tools.URL == "" {
				return fmt.Errorf("tools: %s transport requires a url", c.Tools.Transport)
			}
		default:
			return fmt.Errorf("unknown tool transport %q (want stdio, sse or http)", c.Tools.Transport)
		}
	}

	if c.Eval.MaxConcurrent < 0 {
		return fmt.Errorf("eval: max_concurrent must not be negative")
	}
	return nil
}

// decode maps the raw document onto the struct. Weak typing lets
// environment strings land in int and bool fields.
func decode(raw map[string]any, into *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           into,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	return nil
}

// applyEnv overlays TREELANG_* variables onto the raw document, so the
// environment wins over the file.
func applyEnv(raw map[string]any) {
	for env, dotted := range envOverrides {
		val, ok := os.LookupEnv(env)
		if !ok {
			continue
		}
		set(raw, strings.Split(dotted, "."), val)
	}
}

func set(m map[string]any, path []string, val string) {
	if len(path) == 1 {
		m[path[0]] = val
		return
	}
	child, ok := m[path[0]].(map[string]any)
	if !ok {
		child = map[string]any{}
		m[path[0]] = child
	}
	set(child, path[1:], val)
}
