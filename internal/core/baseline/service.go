// Package baseline 家庭常備品：新增、啟用切換與 AI 建議
package baseline

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"grocery-tracker/internal/core/ai/provider"
	"grocery-tracker/internal/core/ingredient"
	"grocery-tracker/internal/infrastructure/store"
	"grocery-tracker/internal/pkg/common"
)

// DefaultCategory 常備品預設分類
const DefaultCategory = "baseline"

const suggestSystemPrompt = `You recommend absolute basic grocery baseline staples for a household.
Return strict JSON with this schema:
{
  "items": [
    { "name": string, "quantity": number, "unit": string }
  ]
}
Rules:
- Keep only absolute basics; avoid niche/specialty ingredients.
- Prefer practical staples and short, purchase-friendly names.
- Use metric cooking units where applicable (g, kg, ml, l) or "unit".
- Keep list concise (12-18 items).
- Do not include duplicates.
- No markdown, no code block, only JSON.`

// Generator LLM 呼叫介面
type Generator interface {
	Generate(ctx context.Context, req *provider.Request) (*provider.Response, error)
}

// UpsertInput 新增或覆寫常備品
type UpsertInput struct {
	Name     string
	Quantity float64
	Unit     string
	Category string
}

// Service 常備品服務
type Service struct {
	store          store.BaselineStore
	ai             Generator
	maxSuggestions int
}

// NewService 創建新的常備品服務
func NewService(st store.BaselineStore, ai Generator, maxSuggestions int) *Service {
	return &Service{
		store:          st,
		ai:             ai,
		maxSuggestions: maxSuggestions,
	}
}

// Upsert 以正規化名稱為鍵新增或覆寫，並重新啟用
func (s *Service) Upsert(ctx context.Context, actor common.Actor, in UpsertInput) (*common.BaselineItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, common.NewFieldError("name", "Item name is required.")
	}
	displayName := ingredient.TitleCase(name)

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = DefaultCategory
	}
	quantity := in.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	item, err := s.store.UpsertBaseline(ctx, &common.BaselineItem{
		HouseholdID:     actor.HouseholdID,
		CreatedBy:       actor.UserID,
		NameDisplay:     displayName,
		NameNormalized:  ingredient.Normalize(displayName),
		DefaultQuantity: quantity,
		DefaultUnit:     ingredient.NormalizeUnit(in.Unit),
		Category:        category,
		IsActive:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save baseline item: %w", err)
	}
	return item, nil
}

// List 列出家庭所有常備品
func (s *Service) List(ctx context.Context, actor common.Actor) ([]common.BaselineItem, error) {
	return s.store.ListBaseline(ctx, actor.HouseholdID, false)
}

// SetActive 啟用或停用常備品，停用的不會在重設清單時帶入
func (s *Service) SetActive(ctx context.Context, actor common.Actor, id string, active bool) error {
	if strings.TrimSpace(id) == "" {
		return common.NewFieldError("baselineItemId", "Baseline item is required.")
	}
	return s.store.SetBaselineActive(ctx, actor.HouseholdID, id, active)
}

// Suggest 請模型建議常備品，已存在的不重複建議
func (s *Service) Suggest(ctx context.Context, actor common.Actor) ([]common.SuggestedBaselineItem, error) {
	if s.ai == nil {
		return nil, common.ErrAINotConfigured
	}

	existing, err := s.store.ListBaseline(ctx, actor.HouseholdID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load baseline items: %w", err)
	}
	names := make([]string, 0, len(existing))
	for _, b := range existing {
		names = append(names, b.NameDisplay)
	}

	resp, err := s.ai.Generate(ctx, &provider.Request{
		System:      suggestSystemPrompt,
		Prompt:      buildSuggestPrompt(names),
		Temperature: 0.1,
		JSON:        true,
		Validate: func(content string) error {
			_, _, err := s.parseSuggestions(content)
			return err
		},
	})
	if err != nil {
		return nil, err
	}

	raw, items, err := s.parseSuggestions(resp.Content)
	if err != nil {
		return nil, err
	}

	common.LogInfo("常備品建議完成",
		zap.Int("raw", raw),
		zap.Int("suggested", len(items)),
		zap.Bool("cache_hit", resp.CacheHit),
	)
	return items, nil
}

// parseSuggestions 解析模型回應，回傳原始筆數與正規化後的建議
func (s *Service) parseSuggestions(content string) (int, []common.SuggestedBaselineItem, error) {
	var parsed struct {
		Items []RawSuggestedItem `json:"items"`
	}
	if err := common.ParseModelJSON(content, &parsed); err != nil {
		common.LogWarn("常備品建議解析失敗", zap.Error(err))
		return 0, nil, common.NewError(common.ErrAIServiceError.Code, "Model response did not contain valid JSON.", http.StatusBadGateway, err)
	}

	items := NormalizeSuggestedItems(parsed.Items, s.maxSuggestions)
	if len(items) == 0 {
		return len(parsed.Items), nil, common.NewError(common.ErrAIServiceError.Code, "Model returned no staple suggestions.", http.StatusBadGateway, nil)
	}
	return len(parsed.Items), items, nil
}

func buildSuggestPrompt(existing []string) string {
	parts := []string{"Recommend baseline staples now."}
	if len(existing) > 0 {
		parts = append(parts, "Existing staples to avoid repeating: "+strings.Join(existing, ", "))
	} else {
		parts = append(parts, "No existing staples yet.")
	}
	return strings.Join(parts, "\n\n")
}
