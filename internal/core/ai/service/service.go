// Package service 包裝 LLM 供應商，加上快取、逾時與日誌
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"grocery-tracker/internal/core/ai/cache"
	"grocery-tracker/internal/core/ai/gemini"
	"grocery-tracker/internal/core/ai/openrouter"
	"grocery-tracker/internal/core/ai/provider"
	"grocery-tracker/internal/infrastructure/config"
	"grocery-tracker/internal/pkg/common"
)

// Service AI 服務
type Service struct {
	provider provider.Provider
	cache    cache.Cache
}

// NewService 依設定建立供應商；沒有 API key 時服務仍可建立，但呼叫會回傳 ErrAINotConfigured
func NewService(ctx context.Context, cfg config.AIConfig, c cache.Cache) (*Service, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		common.LogWarn("未設定 LLM API key，食譜匯入與常備品建議將停用")
		return &Service{cache: c}, nil
	}

	var p provider.Provider
	switch cfg.Provider {
	case config.ProviderGemini:
		g, err := gemini.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		p = g
	default:
		p = openrouter.NewClient(cfg)
	}

	common.LogInfo("AI 服務已初始化",
		zap.String("provider", p.Name()),
		zap.String("model", p.Model(false)),
		zap.String("vision_model", p.Model(true)),
	)
	return NewWithProvider(p, c), nil
}

// NewWithProvider 使用指定的供應商建立服務
func NewWithProvider(p provider.Provider, c cache.Cache) *Service {
	return &Service{provider: p, cache: c}
}

// Enabled 是否已設定供應商
func (s *Service) Enabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName 供應商名稱
func (s *Service) ProviderName() string {
	if !s.Enabled() {
		return ""
	}
	return s.provider.Name()
}

// ModelName 依請求類型回傳模型名稱
func (s *Service) ModelName(vision bool) string {
	if !s.Enabled() {
		return ""
	}
	return s.provider.Model(vision)
}

// Generate 送出請求，相同內容的成功回應會被快取。
// 設定 req.Validate 時，未通過檢查的回應照常回傳給呼叫端但不寫入快取，
// 快取中未通過檢查的舊值也會被略過。
func (s *Service) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if !s.Enabled() {
		return nil, common.ErrAINotConfigured
	}

	key := s.cacheKey(req)
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, key); err == nil && val != "" && req.Accepts(val) {
			return &provider.Response{
				Content:  val,
				Model:    s.provider.Model(req.HasImage()),
				CacheHit: true,
			}, nil
		} else if err != nil && !errors.Is(err, common.ErrCacheMiss) {
			common.LogWarn("讀取快取失敗", zap.Error(err))
		}
	}

	if timeout := s.provider.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.provider.Generate(ctx, req)
	common.LogAICall(s.provider.Name(), s.provider.Model(req.HasImage()), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}

	if s.cache != nil && req.Accepts(resp.Content) {
		if err := s.cache.Set(ctx, key, resp.Content); err != nil {
			common.LogWarn("寫入快取失敗", zap.Error(err))
		}
	}
	return resp, nil
}

// Close 關閉供應商與快取
func (s *Service) Close() error {
	var errs []error
	if s.provider != nil {
		errs = append(errs, s.provider.Close())
	}
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	return errors.Join(errs...)
}

func (s *Service) cacheKey(req *provider.Request) string {
	imageHash := ""
	if req.HasImage() {
		sum := sha256.Sum256([]byte(req.ImageDataURI))
		imageHash = hex.EncodeToString(sum[:])
	}
	return cache.Key("llm",
		s.provider.Name(),
		s.provider.Model(req.HasImage()),
		req.System,
		req.Prompt,
		imageHash,
		fmt.Sprintf("json=%t", req.JSON),
	)
}
