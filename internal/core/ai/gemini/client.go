// Package gemini 以 Google Generative AI SDK 實作 LLM 供應商
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"grocery-tracker/internal/core/ai/provider"
	"grocery-tracker/internal/core/image"
	"grocery-tracker/internal/infrastructure/config"
	"grocery-tracker/internal/pkg/common"
)

// Client Gemini 客戶端
type Client struct {
	cfg    config.AIConfig
	client *genai.Client
}

// NewClient 創建 Gemini 客戶端
func NewClient(ctx context.Context, cfg config.AIConfig) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Client{cfg: cfg, client: client}, nil
}

// Name 供應商名稱
func (c *Client) Name() string {
	return config.ProviderGemini
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

// Close 關閉連線
func (c *Client) Close() error {
	return c.client.Close()
}

// Generate 生成回應
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	modelName := c.Model(req.HasImage())
	model := c.client.GenerativeModel(modelName)

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}
	model.SetMaxOutputTokens(int32(maxTokens))
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	parts, err := buildParts(req)
	if err != nil {
		return nil, err
	}

	common.LogDebug("Sending request to LLM",
		zap.String("provider", config.ProviderGemini),
		zap.String("model", modelName),
		zap.Bool("has_image", req.HasImage()),
	)

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %v", common.ErrAIServiceError, err)
	}

	content := responseText(resp)
	if content == "" {
		return nil, fmt.Errorf("%w: empty response from gemini", common.ErrAIServiceError)
	}

	out := &provider.Response{Content: content, Model: modelName}
	if resp.UsageMetadata != nil {
		out.Usage = provider.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

// buildParts 圖片放在文字前面
func buildParts(req *provider.Request) ([]genai.Part, error) {
	parts := make([]genai.Part, 0, 2)
	if req.HasImage() {
		format, data, err := image.DecodeDataURI(req.ImageDataURI)
		if err != nil {
			return nil, err
		}
		parts = append(parts, genai.ImageData(format, data))
	}
	parts = append(parts, genai.Text(req.Prompt))
	return parts, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String())
}
