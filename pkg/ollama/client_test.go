package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.1:8b", req.Model)
		assert.Equal(t, "json", req.Format)
		assert.False(t, req.Stream)

		json.NewEncoder(w).Encode(GenerateResponse{
			Model:    req.Model,
			Response: `{"tags": ["fruity"], "confidence": 0.8}`,
			Done:     true,
		})
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	resp, err := client.Generate(context.Background(), GenerateRequest{
		Prompt: "tag this product",
		Format: "json",
	})

	require.NoError(t, err)
	assert.True(t, resp.Done)
	assert.Equal(t, `{"tags": ["fruity"], "confidence": 0.8}`, resp.Response)
}

func TestGenerate_ModelOverride(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qwen2.5:14b", req.Model)
		json.NewEncoder(w).Encode(GenerateResponse{Done: true})
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithModel("qwen2.5:14b"))
	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	require.NoError(t, err)
}

func TestGenerate_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
	assert.Contains(t, err.Error(), "model not found")
}

func TestGenerate_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(GenerateResponse{Done: true})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.Generate(ctx, GenerateRequest{Prompt: "x"})
	assert.Error(t, err)
}
