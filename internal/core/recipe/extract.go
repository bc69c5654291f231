package recipe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"grocery-tracker/internal/core/ai/provider"
	"grocery-tracker/internal/core/image"
	"grocery-tracker/internal/infrastructure/store"
	"grocery-tracker/internal/pkg/common"
)

const (
	fetchUserAgent = "Mozilla/5.0 (compatible; GroceriesTrackerBot/1.0)"
	fetchAccept    = "text/html,application/xhtml+xml"
)

const extractSystemPrompt = `You extract structured recipe data for grocery planning.
Return strict JSON with this schema:
{
  "title": string,
  "description": string,
  "servings": number,
  "dietaryTags": string[],
  "ingredients": [
    {"name": string, "quantity": number, "unit": string, "optional": boolean, "notes": string}
  ],
  "confidence": number
}
Rules:
- Estimate missing quantities conservatively and include low confidence when uncertain.
- Use common grocery units only.
- Keep ingredient names short and purchase-friendly.
- No markdown, no code block, only JSON.`

const (
	mealPhotoPrompt  = "Infer the most likely recipe and ingredients from this meal photo. Keep confidence low unless obvious."
	recipePagePrompt = "Extract the recipe from this photographed cookbook or recipe page."
)

var errInvalidModelOutput = common.NewError(common.ErrAIServiceError.Code, "Model response did not contain valid JSON.", http.StatusBadGateway, nil)

// Generator LLM 呼叫介面
type Generator interface {
	Generate(ctx context.Context, req *provider.Request) (*provider.Response, error)
	ProviderName() string
	ModelName(vision bool) string
}

// ExtractService 從網址或照片擷取食譜草稿
type ExtractService struct {
	ai     Generator
	images store.ImageStore
	imgSvc *image.Service
	client *resty.Client
	now    func() time.Time
}

// NewExtractService 創建新的食譜擷取服務
func NewExtractService(ai Generator, images store.ImageStore, imgSvc *image.Service, fetchTimeout time.Duration) *ExtractService {
	client := resty.New().
		SetTimeout(fetchTimeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)).
		SetHeader("User-Agent", fetchUserAgent).
		SetHeader("Accept", fetchAccept)

	return &ExtractService{
		ai:     ai,
		images: images,
		imgSvc: imgSvc,
		client: client,
		now:    time.Now,
	}
}

// FromURL 下載網頁、擷取文字後交給模型整理成食譜
func (s *ExtractService) FromURL(ctx context.Context, rawURL string) (*common.RecipeDraft, error) {
	pageURL, err := validateRecipeURL(rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, common.NewError(common.ErrCodeServiceUnavailable, "Unable to fetch recipe URL.", http.StatusBadGateway, err)
	}
	if resp.IsError() {
		msg := fmt.Sprintf("Unable to fetch recipe URL (%d).", resp.StatusCode())
		return nil, common.NewError(common.ErrCodeServiceUnavailable, msg, http.StatusBadGateway, nil)
	}

	page, err := ExtractTextFromHTML(resp.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse recipe page: %w", err)
	}

	common.LogDebug("食譜網頁已下載",
		zap.String("url", pageURL),
		zap.Int("body_bytes", len(resp.Body())),
		zap.Int("metadata_snippets", len(page.MetadataSnippets)),
	)

	draft, err := s.generate(ctx, &provider.Request{
		System:      extractSystemPrompt,
		Prompt:      buildURLPrompt(pageURL, page),
		Temperature: 0.1,
		JSON:        true,
	}, common.RecipeSourceURL)
	if err != nil {
		return nil, err
	}
	draft.SourceURL = &pageURL
	return draft, nil
}

// UploadImage 儲存上傳的照片，回傳之後擷取時使用的路徑
func (s *ExtractService) UploadImage(ctx context.Context, actor common.Actor, filename string, data []byte) (string, error) {
	if err := s.imgSvc.CheckSize(int64(len(data))); err != nil {
		return "", err
	}
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("%w: %s", common.ErrInvalidImageFormat, ct)
	}

	ext := image.Extension(filename)
	path := fmt.Sprintf("%s/%s/%d-%s.%s", actor.HouseholdID, actor.UserID, s.now().UnixMilli(), common.GenerateUUID(), ext)
	if err := s.images.PutImage(ctx, path, image.ContentType(ext), data); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	common.LogInfo("食譜照片已上傳",
		zap.String("path", path),
		zap.Int("size", len(data)),
	)
	return path, nil
}

// FromImage 讀取已上傳的照片，縮圖後交給視覺模型
func (s *ExtractService) FromImage(ctx context.Context, actor common.Actor, path string, sourceType common.RecipeSourceType) (*common.RecipeDraft, error) {
	var prompt string
	switch sourceType {
	case common.RecipeSourceImageMeal:
		prompt = mealPhotoPrompt
	case common.RecipeSourceImageRecipePage:
		prompt = recipePagePrompt
	default:
		return nil, common.NewFieldError("sourceType", "Source type must be image_meal or image_recipe_page.")
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return nil, common.NewFieldError("imagePath", "Image path is required.")
	}
	// 只能讀自己家庭的照片
	if !strings.HasPrefix(path, actor.HouseholdID+"/") {
		return nil, common.ErrImageNotFound
	}

	data, _, err := s.images.GetImage(ctx, path)
	if err != nil {
		return nil, err
	}
	processed, err := s.imgSvc.Process(data)
	if err != nil {
		return nil, err
	}

	draft, err := s.generate(ctx, &provider.Request{
		System:       extractSystemPrompt,
		Prompt:       prompt,
		ImageDataURI: processed.DataURI,
		Temperature:  0.1,
		JSON:         true,
	}, sourceType)
	if err != nil {
		return nil, err
	}
	draft.SourceImagePath = &path
	return draft, nil
}

func (s *ExtractService) generate(ctx context.Context, req *provider.Request, sourceType common.RecipeSourceType) (*common.RecipeDraft, error) {
	if s.ai == nil {
		return nil, common.ErrAINotConfigured
	}
	req.Validate = func(content string) error {
		_, err := ParseRecipeResponse(content, sourceType)
		return err
	}
	resp, err := s.ai.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	draft, err := ParseRecipeResponse(resp.Content, sourceType)
	if err != nil {
		common.LogWarn("食譜擷取結果無法使用",
			zap.String("source_type", string(sourceType)),
			zap.Bool("cache_hit", resp.CacheHit),
			zap.Error(err),
		)
		return nil, err
	}

	common.LogInfo("食譜擷取完成",
		zap.String("source_type", string(sourceType)),
		zap.String("title", draft.Title),
		zap.Int("ingredients", len(draft.Ingredients)),
		zap.Bool("cache_hit", resp.CacheHit),
	)
	return draft, nil
}

func validateRecipeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", common.NewFieldError("url", "Recipe URL is required.")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", common.NewFieldError("url", "Only http/https URLs are supported.")
	}
	return u.String(), nil
}

func buildURLPrompt(pageURL string, page *PageText) string {
	parts := []string{"Source URL: " + pageURL}
	if page.Title != "" {
		parts = append(parts, "Page title: "+page.Title)
	}
	if page.Description != "" {
		parts = append(parts, "Page description: "+page.Description)
	}
	if len(page.MetadataSnippets) > 0 {
		parts = append(parts, "Page metadata snippets: "+strings.Join(page.MetadataSnippets, " | "))
	}
	parts = append(parts, "Page text snippet: "+page.Text)
	return strings.Join(parts, "\n\n")
}
