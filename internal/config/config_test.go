package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Model)
	assert.Equal(t, 3, cfg.Memory.TopK)
	assert.Equal(t, 3, cfg.Memory.ContextMessages)
	assert.Equal(t, 0.9, cfg.Memory.SimilarityThreshold)
	assert.False(t, cfg.Memory.TolerateWriteErrors)
	assert.Equal(t, 3, cfg.Workflow.RouterMessages)
	assert.Equal(t, 20, cfg.Workflow.SummaryTrigger)
	assert.Equal(t, 5, cfg.Workflow.KeepAfterSummary)
	assert.Equal(t, filepath.Join("generated", "image"), filepath.Clean(cfg.Workflow.ImageDir))
	assert.Equal(t, filepath.Join("generated", "audio"), filepath.Clean(cfg.Workflow.AudioDir))
	assert.Equal(t, 60*time.Second, cfg.Workflow.Timeouts.Completion)
	assert.Equal(t, "file", cfg.Store.Backend)

	s := cfg.Settings()
	assert.NoError(t, s.Validate())
	assert.Equal(t, 3, s.MemoryTopK)
	assert.Equal(t, 3, s.MemoryContextMessages)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "companion.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: ollama
  model: llama3.2
memory:
  top_k: 5
  context_messages: 6
  tolerate_write_errors: true
workflow:
  summary_trigger: 30
  timeouts:
    image: 2m
`), 0o600))

	t.Setenv("COMPANION_LLM_MODEL", "qwen2.5")
	t.Setenv("COMPANION_WORKFLOW_KEEP_AFTER_SUMMARY", "8")
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "qwen2.5", cfg.LLM.Model, "environment wins over the file")
	assert.Equal(t, "gsk-test", cfg.LLM.APIKey)
	assert.Equal(t, 5, cfg.Memory.TopK)
	assert.Equal(t, 6, cfg.Settings().MemoryContextMessages)
	assert.True(t, cfg.Settings().TolerateMemoryWriteErrors)
	assert.Equal(t, 30, cfg.Workflow.SummaryTrigger)
	assert.Equal(t, 8, cfg.Workflow.KeepAfterSummary)
	assert.Equal(t, 2*time.Minute, cfg.Workflow.Timeouts.Image)
}

func TestLoad_SearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "companion.yaml"), []byte("store:\n  backend: memory\n"), 0o600))
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "openai" }, "llm.provider"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "s3" }, "store.backend"},
		{"top_k", func(c *Config) { c.Memory.TopK = 0 }, "memory.top_k"},
		{"context_messages", func(c *Config) { c.Memory.ContextMessages = 0 }, "memory.context_messages"},
		{"threshold", func(c *Config) { c.Memory.SimilarityThreshold = 1.5 }, "similarity_threshold"},
		{"keep not below trigger", func(c *Config) { c.Workflow.KeepAfterSummary = 20 }, "keep"},
		{"valid key", func(c *Config) { c.Store.EncryptionKey = key }, ""},
		{"short key", func(c *Config) { c.Store.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short")) }, "32 bytes"},
		{"bad previous key", func(c *Config) { c.Store.PreviousKeys = []string{"%%%"} }, "previous_keys[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MemoryContextMessagesFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("COMPANION_MEMORY_CONTEXT_MESSAGES", "4")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Memory.ContextMessages)
	assert.Equal(t, 4, cfg.Settings().MemoryContextMessages)
}

func TestYAML_RedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "gsk-secret"
	cfg.Image.APIKey = "rapid-secret"
	cfg.Store.EncryptionKey = base64.StdEncoding.EncodeToString(make([]byte, 32))
	cfg.Store.PreviousKeys = []string{"old"}

	out, err := cfg.YAML()
	require.NoError(t, err)
	text := string(out)

	assert.NotContains(t, text, "gsk-secret")
	assert.NotContains(t, text, "rapid-secret")
	assert.NotContains(t, text, cfg.Store.EncryptionKey)
	assert.Equal(t, 4, strings.Count(text, redacted))
	assert.Contains(t, text, "llama-3.1-8b-instant")
	assert.Equal(t, "gsk-secret", cfg.LLM.APIKey, "the original is not modified")
}
