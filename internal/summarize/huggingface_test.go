package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuggingFaceModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/facebook/bart-large-cnn", r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))

		var req hfRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "long transcript text", req.Inputs)
		assert.Equal(t, hfParameters{MinLength: 50, MaxLength: 150}, req.Parameters)
		assert.True(t, req.Options.WaitForModel)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"summary_text":"a short summary"}]`))
	}))
	defer srv.Close()

	m := NewHuggingFaceModel(srv.URL, "", "hf_test")
	out, err := m.Summarize(context.Background(), "long transcript text", 50, 150)
	require.NoError(t, err)
	assert.Equal(t, "a short summary", out)
}

func TestHuggingFaceModelErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"loading", http.StatusServiceUnavailable, `{"error":"Model is currently loading"}`},
		{"rate limited", http.StatusTooManyRequests, `{"error":"rate limit"}`},
		{"bad token", http.StatusUnauthorized, `{"error":"Invalid credentials"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHuggingFaceModel(srv.URL, "m", "").Summarize(context.Background(), "x", 1, 2)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Contains(t, apiErr.Body, "error")
		})
	}
}

func TestHuggingFaceModelEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewHuggingFaceModel(srv.URL, "m", "").Summarize(context.Background(), "x", 1, 2)
	assert.Error(t, err)
}

func TestGeminiPrompt(t *testing.T) {
	p := geminiPrompt("the transcript", 50, 150)
	assert.Contains(t, p, "between 50 and 150 words")
	assert.Contains(t, p, "the transcript")
}

func TestNewGeminiModelRequiresKey(t *testing.T) {
	_, err := NewGeminiModel(context.Background(), "", "")
	assert.Error(t, err)
}
