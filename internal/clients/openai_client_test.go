package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/spacesedan/instalens/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatCompletionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1710000000,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			}},
		})
	}))
}

func TestOpenAIClassifier_Classify(t *testing.T) {
	srv := chatCompletionServer(t, "```json\n{\"label\": \"Negative\", \"score\": 0.81}\n```")
	defer srv.Close()

	c, err := NewOpenAIClassifier("test-key", "gpt-4o-mini", option.WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	got, err := c.Classify(context.Background(), "this is awful")
	require.NoError(t, err)
	assert.Equal(t, models.Classification{Label: "Negative", Score: 0.81}, got)
}

func TestOpenAIClassifier_BadJSON(t *testing.T) {
	srv := chatCompletionServer(t, "I think it is positive")
	defer srv.Close()

	c, err := NewOpenAIClassifier("test-key", "gpt-4o-mini", option.WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), "nice")
	assert.ErrorContains(t, err, "failed to parse response")
}

func TestNewOpenAIClassifier_MissingKey(t *testing.T) {
	_, err := NewOpenAIClassifier("", "gpt-4o-mini")
	assert.Error(t, err)
}

func TestCleanOpenAIResponse(t *testing.T) {
	assert.Equal(t, `{"label": "positive"}`, cleanOpenAIResponse("```json\n{“label”: “positive”}\n```"))
	assert.Equal(t, `{"a":1}`, cleanOpenAIResponse("  {\"a\":1}  "))
}
