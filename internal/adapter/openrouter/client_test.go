package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Generate(t *testing.T) {
	var captured map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		json.NewDecoder(r.Body).Decode(&captured)

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "the answer"}},
			},
		})
	}))
	defer ts.Close()

	client := NewClient("test-key", "anthropic/claude-3-haiku", 0.3, 1024)
	client.SetBaseURL(ts.URL)

	got, err := client.Generate(context.Background(), "the question")
	require.NoError(t, err)
	assert.Equal(t, "the answer", got)

	assert.Equal(t, "anthropic/claude-3-haiku", captured["model"])
	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 1)
	assert.Equal(t, "the question", messages[0].(map[string]interface{})["content"])
}

func TestClient_Generate_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewClient("test-key", "anthropic/claude-3-haiku", 0.3, 1024)
	client.SetBaseURL(ts.URL)

	_, err := client.Generate(context.Background(), "q")
	assert.ErrorContains(t, err, "429")
}

func TestClient_Generate_NoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices": []}`))
	}))
	defer ts.Close()

	client := NewClient("test-key", "anthropic/claude-3-haiku", 0.3, 1024)
	client.SetBaseURL(ts.URL)

	_, err := client.Generate(context.Background(), "q")
	assert.ErrorContains(t, err, "no choices")
}
