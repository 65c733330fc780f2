// Package config loads companion settings from a YAML file, COMPANION_*
// environment variables and built-in defaults, in that order of precedence
// (environment first).
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/companion/internal/workflow"
	"github.com/aretw0/companion/pkg/memory"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. COMPANION_LLM_MODEL.
const EnvPrefix = "COMPANION"

// Config is the complete application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Memory    MemoryConfig    `mapstructure:"memory" yaml:"memory"`
	Workflow  WorkflowConfig  `mapstructure:"workflow" yaml:"workflow"`
	Image     ImageConfig     `mapstructure:"image" yaml:"image"`
	Speech    SpeechConfig    `mapstructure:"speech" yaml:"speech"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// LLMConfig selects the chat completion provider.
type LLMConfig struct {
	Provider string        `mapstructure:"provider" yaml:"provider"`
	Model    string        `mapstructure:"model" yaml:"model"`
	BaseURL  string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey   string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// EmbeddingConfig selects the embedding provider backing long-term memory.
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
}

type MemoryConfig struct {
	// Path of the SQLite vector index; ":memory:" keeps it in process.
	Path                string  `mapstructure:"path" yaml:"path"`
	TopK                int     `mapstructure:"top_k" yaml:"top_k"`
	// ContextMessages is how many recent messages form the memory query.
	ContextMessages     int     `mapstructure:"context_messages" yaml:"context_messages"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
	MinScore            float64 `mapstructure:"min_score" yaml:"min_score"`
	TolerateWriteErrors bool    `mapstructure:"tolerate_write_errors" yaml:"tolerate_write_errors"`
}

type WorkflowConfig struct {
	RouterMessages      int     `mapstructure:"router_messages" yaml:"router_messages"`
	ScenarioMessages    int     `mapstructure:"scenario_messages" yaml:"scenario_messages"`
	SummaryTrigger      int     `mapstructure:"summary_trigger" yaml:"summary_trigger"`
	KeepAfterSummary    int     `mapstructure:"keep_after_summary" yaml:"keep_after_summary"`
	RouterTemperature   float64 `mapstructure:"router_temperature" yaml:"router_temperature"`
	ScenarioTemperature float64 `mapstructure:"scenario_temperature" yaml:"scenario_temperature"`
	ImageDir            string  `mapstructure:"image_dir" yaml:"image_dir"`
	AudioDir            string  `mapstructure:"audio_dir" yaml:"audio_dir"`

	Timeouts workflow.Timeouts `mapstructure:"timeouts" yaml:"timeouts"`
}

type ImageConfig struct {
	APIKey  string        `mapstructure:"api_key" yaml:"api_key"`
	URL     string        `mapstructure:"url" yaml:"url"`
	Host    string        `mapstructure:"host" yaml:"host"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type SpeechConfig struct {
	Voice    string `mapstructure:"voice" yaml:"voice"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// StoreConfig selects where conversations live between turns.
type StoreConfig struct {
	Backend string        `mapstructure:"backend" yaml:"backend"`
	Path    string        `mapstructure:"path" yaml:"path"`
	LockTTL time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`

	Redis RedisConfig `mapstructure:"redis" yaml:"redis"`

	// EncryptionKey is a base64 AES-256 key; empty disables encryption.
	EncryptionKey string `mapstructure:"encryption_key" yaml:"encryption_key"`
	// PreviousKeys still decrypt data written before a rotation.
	PreviousKeys []string `mapstructure:"previous_keys" yaml:"previous_keys"`
	// Redact enables masking of personal data before persistence.
	Redact         bool     `mapstructure:"redact" yaml:"redact"`
	RedactPatterns []string `mapstructure:"redact_patterns" yaml:"redact_patterns"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Known provider and backend names.
var (
	LLMProviders       = []string{"groq", "ollama", "gemini"}
	EmbeddingProviders = []string{"ollama", "gemini", "none"}
	StoreBackends      = []string{"memory", "file", "redis"}
)

func setDefaults(v *viper.Viper) {
	ws := workflow.DefaultSettings()
	mc := memory.DefaultConfig()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.model", "llama-3.1-8b-instant")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.timeout", 60*time.Second)

	v.SetDefault("embedding.provider", "ollama")
	v.SetDefault("embedding.model", "nomic-embed-text")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.api_key", "")

	v.SetDefault("memory.path", filepath.Join("data", "memory.db"))
	v.SetDefault("memory.top_k", ws.MemoryTopK)
	v.SetDefault("memory.context_messages", ws.MemoryContextMessages)
	v.SetDefault("memory.similarity_threshold", mc.DuplicateThreshold)
	v.SetDefault("memory.min_score", mc.MinScore)
	v.SetDefault("memory.tolerate_write_errors", false)

	v.SetDefault("workflow.router_messages", ws.RouterMessages)
	v.SetDefault("workflow.scenario_messages", ws.ScenarioMessages)
	v.SetDefault("workflow.summary_trigger", ws.SummaryTrigger)
	v.SetDefault("workflow.keep_after_summary", ws.KeepAfterSummary)
	v.SetDefault("workflow.router_temperature", ws.RouterTemperature)
	v.SetDefault("workflow.scenario_temperature", ws.ScenarioTemperature)
	v.SetDefault("workflow.image_dir", ws.ImageDir)
	v.SetDefault("workflow.audio_dir", ws.AudioDir)
	v.SetDefault("workflow.timeouts.completion", ws.Timeouts.Completion)
	v.SetDefault("workflow.timeouts.memory", ws.Timeouts.Memory)
	v.SetDefault("workflow.timeouts.image", ws.Timeouts.Image)
	v.SetDefault("workflow.timeouts.speech", ws.Timeouts.Speech)

	v.SetDefault("image.api_key", "")
	v.SetDefault("image.url", "")
	v.SetDefault("image.host", "")
	v.SetDefault("image.timeout", 60*time.Second)

	v.SetDefault("speech.voice", "en-US-AriaNeural")
	v.SetDefault("speech.endpoint", "")

	v.SetDefault("store.backend", "file")
	v.SetDefault("store.path", filepath.Join(".companion", "sessions"))
	v.SetDefault("store.lock_ttl", 2*time.Minute)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "companion:session:")
	v.SetDefault("store.redis.ttl", time.Duration(0))
	v.SetDefault("store.encryption_key", "")
	v.SetDefault("store.previous_keys", []string{})
	v.SetDefault("store.redact", false)
	v.SetDefault("store.redact_patterns", []string{})

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 3*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
}

// Load reads configuration. An explicit path must exist; without one the
// file companion.yaml is searched in the working directory and in
// $HOME/.config/companion, and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "companion"))
		}
		v.SetConfigName("companion")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Provider keys are also honored under their conventional names.
	_ = v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "GROQ_API_KEY")
	_ = v.BindEnv("image.api_key", EnvPrefix+"_IMAGE_API_KEY", "RAPIDAPI_KEY")
	_ = v.BindEnv("embedding.api_key", EnvPrefix+"_EMBEDDING_API_KEY", "GEMINI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration without consulting files or
// the environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: decoding defaults: %v", err))
	}
	return &cfg
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	var errs []error
	if !oneOf(c.LLM.Provider, LLMProviders) {
		errs = append(errs, fmt.Errorf("llm.provider %q is not one of %v", c.LLM.Provider, LLMProviders))
	}
	if !oneOf(c.Embedding.Provider, EmbeddingProviders) {
		errs = append(errs, fmt.Errorf("embedding.provider %q is not one of %v", c.Embedding.Provider, EmbeddingProviders))
	}
	if !oneOf(c.Store.Backend, StoreBackends) {
		errs = append(errs, fmt.Errorf("store.backend %q is not one of %v", c.Store.Backend, StoreBackends))
	}
	if c.Memory.TopK <= 0 {
		errs = append(errs, errors.New("memory.top_k must be positive"))
	}
	if c.Memory.ContextMessages <= 0 {
		errs = append(errs, errors.New("memory.context_messages must be positive"))
	}
	if c.Memory.SimilarityThreshold <= 0 || c.Memory.SimilarityThreshold > 1 {
		errs = append(errs, errors.New("memory.similarity_threshold must be in (0, 1]"))
	}
	if c.Store.EncryptionKey != "" {
		if _, err := DecodeKey(c.Store.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("store.encryption_key: %w", err))
		}
	}
	for i, k := range c.Store.PreviousKeys {
		if _, err := DecodeKey(k); err != nil {
			errs = append(errs, fmt.Errorf("store.previous_keys[%d]: %w", i, err))
		}
	}
	if err := c.Settings().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Settings maps the workflow and memory sections onto pipeline settings.
func (c *Config) Settings() workflow.Settings {
	return workflow.Settings{
		RouterMessages:            c.Workflow.RouterMessages,
		ScenarioMessages:          c.Workflow.ScenarioMessages,
		MemoryContextMessages:     c.Memory.ContextMessages,
		MemoryTopK:                c.Memory.TopK,
		SummaryTrigger:            c.Workflow.SummaryTrigger,
		KeepAfterSummary:          c.Workflow.KeepAfterSummary,
		RouterTemperature:         c.Workflow.RouterTemperature,
		ScenarioTemperature:       c.Workflow.ScenarioTemperature,
		TolerateMemoryWriteErrors: c.Memory.TolerateWriteErrors,
		ImageDir:                  c.Workflow.ImageDir,
		AudioDir:                  c.Workflow.AudioDir,
		Timeouts:                  c.Workflow.Timeouts,
	}
}

// MemoryManagerConfig maps the memory section onto the memory manager.
func (c *Config) MemoryManagerConfig() memory.Config {
	mc := memory.DefaultConfig()
	mc.DuplicateThreshold = c.Memory.SimilarityThreshold
	mc.MinScore = c.Memory.MinScore
	return mc
}

// DecodeKey decodes a base64 AES-256 key.
func DecodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

func oneOf(s string, allowed []string) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}
