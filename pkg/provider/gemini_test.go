package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGemini_Complete(t *testing.T) {
	var gotPath, gotKey string
	var gotReq geminiRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": "part one "}, {"text": "part two"}},
				}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g := NewGemini("test-key",
		WithGeminiBaseURL(srv.URL),
		WithGeminiModel("gemini-2.0-flash"),
	)

	text, err := g.Complete(context.Background(), Request{
		System: "be brief",
		Prompt: "hello",
	})

	require.NoError(t, err)
	assert.Equal(t, "part one part two", text, "candidate parts are concatenated")
	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotReq.Contents, 1)
	assert.Equal(t, "hello", gotReq.Contents[0].Parts[0].Text)
	require.NotNil(t, gotReq.SystemInstruction)
	assert.Equal(t, "be brief", gotReq.SystemInstruction.Parts[0].Text)
}

func TestGemini_Complete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    429,
				"message": "Resource has been exhausted",
				"status":  "RESOURCE_EXHAUSTED",
			},
		})
	}))
	defer srv.Close()

	g := NewGemini("test-key", WithGeminiBaseURL(srv.URL))

	_, err := g.Complete(context.Background(), Request{Prompt: "hello"})

	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "gemini", provErr.Provider)
	assert.True(t, provErr.Retryable, "429 is retryable")
	assert.Contains(t, provErr.Error(), "Resource has been exhausted")
}

func TestGemini_Complete_NonRetryableStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"invalid argument"}}`))
	}))
	defer srv.Close()

	g := NewGemini("test-key", WithGeminiBaseURL(srv.URL))

	_, err := g.Complete(context.Background(), Request{Prompt: "hello"})

	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.False(t, provErr.Retryable)
}

func TestGemini_Complete_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	g := NewGemini("test-key", WithGeminiBaseURL(srv.URL))

	_, err := g.Complete(context.Background(), Request{Prompt: "hello"})

	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.True(t, provErr.Retryable)
}

func TestGemini_Complete_GenerationConfig(t *testing.T) {
	var gotReq geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	g := NewGemini("test-key", WithGeminiBaseURL(srv.URL))

	_, err := g.Complete(context.Background(), Request{
		Prompt:      "hello",
		MaxTokens:   256,
		Temperature: 0.2,
	})

	require.NoError(t, err)
	require.NotNil(t, gotReq.GenerationConfig)
	assert.Equal(t, 256, gotReq.GenerationConfig.MaxOutputTokens)
	assert.InDelta(t, 0.2, gotReq.GenerationConfig.Temperature, 1e-9)
}

func TestGemini_Complete_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	g := NewGemini("test-key", WithGeminiBaseURL(srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Complete(ctx, Request{Prompt: "hello"})

	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.False(t, provErr.Retryable, "caller cancellation is not retryable")
	assert.ErrorIs(t, err, context.Canceled)
}
