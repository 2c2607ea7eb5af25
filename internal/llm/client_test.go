package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(url string) *Client {
	return &Client{
		apiKey:     "test-key",
		apiURL:     url,
		model:      "deepseek-chat",
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
	}
}

func TestChatSendsOpenAICompatibleRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req apiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "deepseek-chat", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "persona", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, 0.6, req.Temperature)
		assert.Equal(t, 700, req.MaxTokens)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "hello there"}},
			},
		})
	}))
	defer server.Close()

	text, err := testClient(server.URL).Chat(context.Background(), ChatRequest{
		System:      "persona",
		Prompt:      "hi",
		Temperature: 0.6,
		MaxTokens:   700,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
}

func TestChatNonOKStatusIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Chat(context.Background(), ChatRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestChatEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	_, err := testClient(server.URL).Chat(context.Background(), ChatRequest{Prompt: "hi"})
	require.Error(t, err)
}

func TestEstimateCostUnknownModelFallsBack(t *testing.T) {
	known := EstimateCost(4000, 700, "deepseek-chat")
	unknown := EstimateCost(4000, 700, "no-such-model")
	assert.Equal(t, known, unknown)
	assert.Greater(t, known, 0.0)
}
