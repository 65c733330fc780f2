package flux_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/companion/pkg/adapters/flux"
	"github.com/aretw0/companion/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	Origin string `json:"origin"`
	NSFW   bool   `json:"nsfw"`
}

func newServer(t *testing.T, results func(base string) []result, image []byte) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/generate":
			assert.Equal(t, "secret", r.Header.Get("x-rapidapi-key"))
			assert.Equal(t, flux.DefaultHost, r.Header.Get("x-rapidapi-host"))
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "a cat in a spacesuit", req["prompt"])
			assert.EqualValues(t, 4, req["style_id"])
			assert.Equal(t, "1-1", req["size"])
			json.NewEncoder(w).Encode(map[string]any{"final_result": results(srv.URL)})
		case "/safe.webp", "/nsfw.webp":
			w.Header().Set("Content-Type", "image/webp")
			w.Write(image)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func client(srv *httptest.Server) *flux.Client {
	return flux.New(flux.Config{APIKey: "secret", URL: srv.URL + "/generate"})
}

func TestGenerate_PicksFirstSafeImage(t *testing.T) {
	srv := newServer(t, func(base string) []result {
		return []result{{Origin: base + "/nsfw.webp", NSFW: true}, {Origin: base + "/safe.webp"}}
	}, []byte("webp-bytes"))

	img, err := client(srv).Generate(context.Background(), "a cat in a spacesuit")
	require.NoError(t, err)
	assert.Equal(t, []byte("webp-bytes"), img.Data)
	assert.Equal(t, ".webp", img.Ext)
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		results func(base string) []result
		image   []byte
		want    error
	}{
		{"no results", func(string) []result { return nil }, []byte("x"), domain.ErrEmptyImage},
		{"all nsfw", func(base string) []result {
			return []result{{Origin: base + "/nsfw.webp", NSFW: true}}
		}, []byte("x"), domain.ErrNoAcceptableImage},
		{"empty download", func(base string) []result {
			return []result{{Origin: base + "/safe.webp"}}
		}, nil, domain.ErrEmptyImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.results, tt.image)

			_, err := client(srv).Generate(context.Background(), "a cat in a spacesuit")
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, domain.ErrImageGeneration)
		})
	}
}

func TestGenerate_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := flux.New(flux.Config{URL: srv.URL}).Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprint(http.StatusTooManyRequests))
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	_, err := flux.New(flux.Config{URL: "http://127.0.0.1:1"}).Generate(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
