package extraction

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiAnswer(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]string{{"text": text}},
			},
			"finishReason": "STOP",
		}},
	})
	return string(body)
}

func TestGeminiClient_GenerateReceipt(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, geminiAnswer(receiptJSON))
	}))
	defer srv.Close()

	client := NewGeminiClient(GeminiConfig{APIKey: "secret", Model: "gemini-test", BaseURL: srv.URL + "/"})
	text, err := client.GenerateReceipt(context.Background(), pngImage, "image/png")
	require.NoError(t, err)
	assert.JSONEq(t, receiptJSON, text)

	require.Len(t, got.Contents, 1)
	require.Len(t, got.Contents[0].Parts, 2)
	assert.Equal(t, Prompt, got.Contents[0].Parts[0].Text)
	inline := got.Contents[0].Parts[1].InlineData
	require.NotNil(t, inline)
	assert.Equal(t, "image/png", inline.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngImage), inline.Data)
	assert.Equal(t, "application/json", got.GenerationConfig.ResponseMimeType)
	assert.Len(t, got.GenerationConfig.ResponseSchema["required"], 8)
}

func TestGeminiClient_StatusErrors(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusBadRequest, false},
		{http.StatusForbidden, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":{"message":"nope"}}`, tt.status)
			}))
			defer srv.Close()

			client := NewGeminiClient(GeminiConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})
			_, err := client.GenerateReceipt(context.Background(), pngImage, "image/png")

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestGeminiClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewGeminiClient(GeminiConfig{APIKey: "k", Model: "m", BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := client.GenerateReceipt(context.Background(), pngImage, "image/png")
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestGeminiClient_EmptyAndBlocked(t *testing.T) {
	answers := map[string]error{
		`{"candidates": []}`: ErrEmptyResponse,
		geminiAnswer("  "):   ErrEmptyResponse,
		`{"promptFeedback": {"blockReason": "SAFETY"}}`: ErrResponseBlocked,
	}
	for body, want := range answers {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, body)
		}))
		client := NewGeminiClient(GeminiConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})
		_, err := client.GenerateReceipt(context.Background(), pngImage, "image/png")
		assert.ErrorIs(t, err, want)
		assert.False(t, IsRetryable(err))
		srv.Close()
	}
}

func TestGeminiClient_MissingKey(t *testing.T) {
	client := NewGeminiClient(GeminiConfig{Model: "m"})
	_, err := client.GenerateReceipt(context.Background(), pngImage, "image/png")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestService_WithGeminiServer(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, geminiAnswer("```json\n"+receiptJSON+"\n```"))
	}))
	defer srv.Close()

	client := NewGeminiClient(GeminiConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})
	svc := newTestService(client)

	receipt, err := svc.Extract(context.Background(), pngImage, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "Sate Khas Senayan", receipt.MerchantName)
	assert.Equal(t, 2, calls)
}
