package groq_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/companion/pkg/adapters/groq"
	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"response_type\":\"image\"}"}}]}`))
	}))
	defer srv.Close()

	c := groq.New(groq.Config{BaseURL: srv.URL, APIKey: "key-123"})
	out, err := c.Complete(context.Background(), ports.CompletionRequest{
		System:      "route this",
		Messages:    []domain.Message{domain.UserMessage("draw a cat")},
		Temperature: domain.Ptr(0.3),
		Schema: &ports.Schema{
			Name:       "router_decision",
			Properties: map[string]map[string]any{"response_type": {"type": "string"}},
			Required:   []string{"response_type"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"response_type":"image"}`, out)

	assert.Equal(t, groq.DefaultModel, got["model"])
	assert.InDelta(t, 0.3, got["temperature"], 1e-9)
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	format := got["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
}

func TestClient_OmitsOptionalFields(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi"}}]}`))
	}))
	defer srv.Close()

	_, err := groq.New(groq.Config{BaseURL: srv.URL}).Complete(context.Background(), ports.CompletionRequest{
		Messages: []domain.Message{domain.UserMessage("summarize")},
	})
	require.NoError(t, err)
	assert.NotContains(t, got, "temperature")
	assert.NotContains(t, got, "response_format")
	assert.Len(t, got["messages"], 1)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"server error", http.StatusBadGateway, `oops`, func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), "502")
		}},
		{"bad request", http.StatusBadRequest, `{"error":"bad"}`, func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), `{"error":"bad"}`)
		}},
		{"no choices", http.StatusOK, `{"choices":[]}`, func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), "no choices")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := groq.New(groq.Config{BaseURL: srv.URL}).Complete(context.Background(), ports.CompletionRequest{})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
