package config

import (
	"gopkg.in/yaml.v3"
)

const redacted = "<redacted>"

// Redacted returns a copy with every secret replaced by a marker.
func (c *Config) Redacted() *Config {
	out := *c
	redact := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	redact(&out.LLM.APIKey)
	redact(&out.Embedding.APIKey)
	redact(&out.Image.APIKey)
	redact(&out.Store.Redis.Password)
	redact(&out.Store.EncryptionKey)
	if len(c.Store.PreviousKeys) > 0 {
		out.Store.PreviousKeys = make([]string, len(c.Store.PreviousKeys))
		for i := range out.Store.PreviousKeys {
			out.Store.PreviousKeys[i] = redacted
		}
	}
	return &out
}

// YAML renders the configuration with secrets redacted.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.Redacted())
}
