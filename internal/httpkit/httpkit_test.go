package httpkit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClient_Timeouts(t *testing.T) {
	if c := NewClient(); c.Timeout != 30*time.Second {
		t.Errorf("expected 30s default timeout, got %v", c.Timeout)
	}
	if c := NewClient(WithTimeout(5 * time.Second)); c.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", c.Timeout)
	}
}

func TestNewClient_UserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Header.Get("User-Agent")))
	}))
	defer srv.Close()

	resp, err := NewClient(WithUserAgent("TestBot/1.0")).Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "TestBot/1.0" {
		t.Errorf("expected TestBot/1.0, got %q", body)
	}
}

func TestDoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("X-Key"); got != "secret" {
			t.Errorf("expected header X-Key=secret, got %q", got)
		}
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		json.NewEncoder(w).Encode(map[string]string{"echo": in["prompt"]})
	}))
	defer srv.Close()

	var out struct {
		Echo string `json:"echo"`
	}
	header := http.Header{"X-Key": []string{"secret"}}
	err := DoJSON(context.Background(), NewClient(), srv.URL, header, map[string]string{"prompt": "cat"}, &out)
	if err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if out.Echo != "cat" {
		t.Errorf("expected echo cat, got %q", out.Echo)
	}
}

func TestDoJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := DoJSON(context.Background(), NewClient(), srv.URL, nil, nil, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusTooManyRequests || !strings.Contains(se.Body, "rate limited") {
		t.Errorf("unexpected status error: %+v", se)
	}
}

func TestDownload_Limit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	data, err := Download(context.Background(), NewClient(), srv.URL, 4)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "0123" {
		t.Errorf("expected truncated body, got %q", data)
	}
}

func TestReadErrorBody_Nil(t *testing.T) {
	if got := ReadErrorBody(nil, 10); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}
