// Package openrouter 實作 OpenAI 相容的 chat/completions 供應商（OpenRouter 與 OpenAI）
package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"grocery-tracker/internal/core/ai/provider"
	"grocery-tracker/internal/infrastructure/config"
	"grocery-tracker/internal/pkg/common"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	openAIBaseURL     = "https://api.openai.com/v1"
)

// Client OpenAI 相容 API 客戶端
type Client struct {
	name   string
	cfg    config.AIConfig
	client *resty.Client
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage provider.Usage `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient 創建新的客戶端，BaseURL 未設定時依供應商選擇預設
func NewClient(cfg config.AIConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Provider == config.ProviderOpenAI {
			baseURL = openAIBaseURL
		} else {
			baseURL = openRouterBaseURL
		}
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.APIKey)

	if cfg.Provider != config.ProviderOpenAI {
		client.SetHeader("HTTP-Referer", "https://grocery-tracker.app").
			SetHeader("X-Title", "Grocery Tracker")
	}

	name := cfg.Provider
	if name == "" {
		name = config.ProviderOpenRouter
	}

	return &Client{
		name:   name,
		cfg:    cfg,
		client: client,
	}
}

// Name 供應商名稱
func (c *Client) Name() string {
	return c.name
}

// Model 回傳模型名稱
func (c *Client) Model(vision bool) string {
	if vision && c.cfg.VisionModel != "" {
		return c.cfg.VisionModel
	}
	return c.cfg.Model
}

// Timeout 單次請求逾時
func (c *Client) Timeout() time.Duration {
	return c.cfg.Timeout
}

// Close resty 不需要釋放資源
func (c *Client) Close() error {
	return nil
}

// Generate 生成回應
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := c.buildRequest(req)

	common.LogDebug("Sending request to LLM",
		zap.String("provider", c.name),
		zap.String("model", body.Model),
		zap.Bool("has_image", req.HasImage()),
	)

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", c.name, err)
	}

	if resp.StatusCode() != http.StatusOK {
		msg := sanitizeResponse(resp.Body())
		var apiErr apiError
		if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		common.LogError("AI service returned error status",
			zap.String("provider", c.name),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("response", msg),
		)
		return nil, fmt.Errorf("%w: %s status %d: %s", common.ErrAIServiceError, c.name, resp.StatusCode(), msg)
	}

	var result chatResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", c.name, err)
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("%w: empty response from %s", common.ErrAIServiceError, c.name)
	}

	model := result.Model
	if model == "" {
		model = body.Model
	}
	return &provider.Response{
		Content: result.Choices[0].Message.Content,
		Model:   model,
		Usage:   result.Usage,
	}, nil
}

func (c *Client) buildRequest(req *provider.Request) chatRequest {
	messages := make([]message, 0, 2)
	if req.System != "" {
		messages = append(messages, message{Role: "system", Content: req.System})
	}

	if req.HasImage() {
		messages = append(messages, message{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: req.Prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: req.ImageDataURI}},
			},
		})
	} else {
		messages = append(messages, message{Role: "user", Content: req.Prompt})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}

	body := chatRequest{
		Model:       c.Model(req.HasImage()),
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return body
}

var dataURIPattern = regexp.MustCompile(`data:image/[a-zA-Z0-9.+-]+;base64,[A-Za-z0-9+/=]+`)

// sanitizeResponse 移除回應中的圖片資料，避免寫進日誌
func sanitizeResponse(body []byte) string {
	s := dataURIPattern.ReplaceAllString(string(body), "[IMAGE_DATA_REMOVED]")
	if len(s) > 500 {
		s = s[:500] + "..."
	}
	return s
}
