package openrouter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-tracker/internal/core/ai/provider"
	"grocery-tracker/internal/infrastructure/config"
	"grocery-tracker/internal/pkg/common"
)

const testEndpoint = "https://llm.test/v1/chat/completions"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient(config.AIConfig{
		Provider:    config.ProviderOpenRouter,
		APIKey:      "sk-test",
		Model:       "text-model",
		VisionModel: "vision-model",
		BaseURL:     "https://llm.test/v1/",
		MaxTokens:   900,
		Timeout:     5 * time.Second,
	})
	httpmock.ActivateNonDefault(c.client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestGenerate_TextRequest(t *testing.T) {
	c := newTestClient(t)

	var captured map[string]interface{}
	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
			raw, _ := io.ReadAll(req.Body)
			require.NoError(t, json.Unmarshal(raw, &captured))
			return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
				"model": "text-model",
				"choices": []map[string]interface{}{
					{"message": map[string]string{"content": `{"items":[]}`}},
				},
				"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
			})
		})

	resp, err := c.Generate(context.Background(), &provider.Request{
		System: "be precise",
		Prompt: "suggest staples",
		JSON:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"items":[]}`, resp.Content)
	assert.Equal(t, "text-model", resp.Model)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	assert.Equal(t, "text-model", captured["model"])
	assert.Equal(t, float64(900), captured["max_tokens"])
	assert.Equal(t, map[string]interface{}{"type": "json_object"}, captured["response_format"])
	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
	assert.Equal(t, "suggest staples", messages[1].(map[string]interface{})["content"])
}

func TestGenerate_VisionRequestUsesVisionModel(t *testing.T) {
	c := newTestClient(t)

	var captured map[string]interface{}
	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		func(req *http.Request) (*http.Response, error) {
			raw, _ := io.ReadAll(req.Body)
			require.NoError(t, json.Unmarshal(raw, &captured))
			return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"content": "{}"}},
				},
			})
		})

	resp, err := c.Generate(context.Background(), &provider.Request{
		Prompt:       "read this recipe",
		ImageDataURI: "data:image/jpeg;base64,aGVsbG8=",
	})
	require.NoError(t, err)
	assert.Equal(t, "vision-model", resp.Model)

	assert.Equal(t, "vision-model", captured["model"])
	user := captured["messages"].([]interface{})[0].(map[string]interface{})
	parts := user["content"].([]interface{})
	require.Len(t, parts, 2)
	assert.Equal(t, "image_url", parts[1].(map[string]interface{})["type"])
}

func TestGenerate_ErrorStatus(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewStringResponder(http.StatusTooManyRequests, `{"error":{"message":"rate limited"}}`))

	_, err := c.Generate(context.Background(), &provider.Request{Prompt: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrAIServiceError)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestGenerate_EmptyChoices(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewStringResponder(http.StatusOK, `{"choices":[]}`))

	_, err := c.Generate(context.Background(), &provider.Request{Prompt: "hi"})
	assert.ErrorIs(t, err, common.ErrAIServiceError)
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	c := NewClient(config.AIConfig{Provider: config.ProviderOpenAI, Model: "gpt"})
	assert.Equal(t, openAIBaseURL, c.client.BaseURL)
	assert.Equal(t, "openai", c.Name())

	c = NewClient(config.AIConfig{Model: "m"})
	assert.Equal(t, openRouterBaseURL, c.client.BaseURL)
	assert.Equal(t, "openrouter", c.Name())
}

func TestSanitizeResponse(t *testing.T) {
	out := sanitizeResponse([]byte(`{"echo":"data:image/jpeg;base64,AAAABBBB=="}`))
	assert.Equal(t, `{"echo":"[IMAGE_DATA_REMOVED]"}`, out)
}
