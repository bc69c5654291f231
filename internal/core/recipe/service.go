// Package recipe 食譜匯入（網址、照片）、草稿清理與食譜管理
package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"grocery-tracker/internal/core/ingredient"
	"grocery-tracker/internal/infrastructure/store"
	"grocery-tracker/internal/pkg/common"
)

// 沒有經過模型的草稿（手動輸入）在匯入紀錄中的供應商名稱
const manualProvider = "none"

// IngredientInput 手動新增或修改食譜食材
type IngredientInput struct {
	Name     string
	Quantity float64
	Unit     string
}

// Service 食譜服務
type Service struct {
	store store.RecipeStore
	ai    Generator
}

// NewService 創建新的食譜服務
func NewService(st store.RecipeStore, ai Generator) *Service {
	return &Service{
		store: st,
		ai:    ai,
	}
}

// SaveDraft 驗證草稿後，食譜、食材與匯入紀錄一次寫入
func (s *Service) SaveDraft(ctx context.Context, actor common.Actor, draft *common.RecipeDraft) (*common.Recipe, error) {
	if err := ValidateDraft(draft); err != nil {
		return nil, err
	}

	recipe := &common.Recipe{
		HouseholdID:     actor.HouseholdID,
		CreatedBy:       actor.UserID,
		Title:           strings.TrimSpace(draft.Title),
		Description:     draft.Description,
		SourceType:      draft.SourceType,
		SourceURL:       draft.SourceURL,
		SourceImagePath: draft.SourceImagePath,
		Servings:        draft.Servings,
		DietaryTags:     append([]string{}, draft.DietaryTags...),
	}

	ingredients := make([]common.RecipeIngredient, 0, len(draft.Ingredients))
	for _, ing := range draft.Ingredients {
		displayName := ingredient.TitleCase(ing.NameDisplay)
		ingredients = append(ingredients, common.RecipeIngredient{
			NameDisplay:    displayName,
			NameNormalized: ingredient.Normalize(displayName),
			Quantity:       ing.Quantity,
			Unit:           ingredient.NormalizeUnit(ing.Unit),
			IsOptional:     ing.IsOptional,
			Notes:          ing.Notes,
		})
	}

	parsed, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("failed to encode draft: %w", err)
	}
	log := &common.RecipeImportLog{
		HouseholdID:     actor.HouseholdID,
		CreatedBy:       actor.UserID,
		SourceType:      draft.SourceType,
		SourceReference: sourceReference(draft),
		ModelProvider:   s.providerName(),
		ModelName:       s.modelName(draft.SourceType),
		ParsedOutput:    parsed,
		Confidence:      draft.Confidence,
	}

	if err := s.store.SaveRecipe(ctx, recipe, ingredients, log); err != nil {
		return nil, fmt.Errorf("failed to save recipe: %w", err)
	}

	common.LogInfo("食譜已儲存",
		zap.String("recipe_id", recipe.ID),
		zap.String("title", recipe.Title),
		zap.String("source_type", string(recipe.SourceType)),
		zap.Int("ingredients", len(ingredients)),
	)
	return recipe, nil
}

// ValidateDraft 檢查草稿是否可以儲存
func ValidateDraft(draft *common.RecipeDraft) error {
	if draft == nil {
		return common.NewValidationError("Recipe draft is required.")
	}
	if strings.TrimSpace(draft.Title) == "" {
		return common.NewFieldError("title", "Recipe title is required.")
	}
	if !draft.SourceType.IsValid() {
		return common.NewFieldError("sourceType", "Unknown recipe source type.")
	}
	if draft.SourceURL != nil {
		u, err := url.Parse(*draft.SourceURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return common.NewFieldError("sourceUrl", "Source URL is invalid.")
		}
	}
	if draft.Servings <= 0 {
		return common.NewFieldError("servings", "Servings must be positive.")
	}
	if len(draft.Ingredients) == 0 {
		return common.NewFieldError("ingredients", "Recipe must include at least one ingredient.")
	}
	for i, ing := range draft.Ingredients {
		field := fmt.Sprintf("ingredients[%d]", i)
		if strings.TrimSpace(ing.NameDisplay) == "" || ingredient.Normalize(ing.NameDisplay) == "" {
			return common.NewFieldError(field+".nameDisplay", "Ingredient name is required.")
		}
		if ing.Quantity <= 0 {
			return common.NewFieldError(field+".quantity", "Ingredient quantity must be positive.")
		}
		if strings.TrimSpace(ing.Unit) == "" {
			return common.NewFieldError(field+".unit", "Ingredient unit is required.")
		}
	}
	return nil
}

func sourceReference(draft *common.RecipeDraft) *string {
	if draft.SourceURL != nil {
		return draft.SourceURL
	}
	return draft.SourceImagePath
}

func (s *Service) providerName() string {
	if s.ai == nil {
		return manualProvider
	}
	if name := s.ai.ProviderName(); name != "" {
		return name
	}
	return manualProvider
}

func (s *Service) modelName(sourceType common.RecipeSourceType) string {
	if s.ai == nil {
		return ""
	}
	vision := sourceType == common.RecipeSourceImageMeal || sourceType == common.RecipeSourceImageRecipePage
	return s.ai.ModelName(vision)
}

// List 列出家庭的食譜，新的在前
func (s *Service) List(ctx context.Context, actor common.Actor) ([]common.Recipe, error) {
	return s.store.ListRecipes(ctx, actor.HouseholdID)
}

// Get 取得食譜與食材
func (s *Service) Get(ctx context.Context, actor common.Actor, recipeID string) (*common.RecipeWithIngredients, error) {
	recipe, err := s.ensureAccess(ctx, actor, recipeID)
	if err != nil {
		return nil, err
	}
	ingredients, err := s.store.ListIngredients(ctx, recipe.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ingredients: %w", err)
	}
	return &common.RecipeWithIngredients{Recipe: *recipe, Ingredients: ingredients}, nil
}

// AddIngredient 手動新增食材
func (s *Service) AddIngredient(ctx context.Context, actor common.Actor, recipeID string, in IngredientInput) (*common.RecipeIngredient, error) {
	name := strings.TrimSpace(in.Name)
	if strings.TrimSpace(recipeID) == "" || name == "" {
		return nil, common.NewValidationError("Recipe and ingredient name are required.")
	}
	if _, err := s.ensureAccess(ctx, actor, recipeID); err != nil {
		return nil, err
	}

	displayName := ingredient.TitleCase(name)
	ing := &common.RecipeIngredient{
		RecipeID:       recipeID,
		NameDisplay:    displayName,
		NameNormalized: ingredient.Normalize(displayName),
		Quantity:       quantityOrDefault(in.Quantity),
		Unit:           ingredient.NormalizeUnit(in.Unit),
	}
	if err := s.store.InsertIngredient(ctx, ing); err != nil {
		return nil, fmt.Errorf("failed to add ingredient: %w", err)
	}
	return ing, nil
}

// UpdateIngredient 修改食材名稱、數量與單位
func (s *Service) UpdateIngredient(ctx context.Context, actor common.Actor, recipeID, ingredientID string, in IngredientInput) error {
	name := strings.TrimSpace(in.Name)
	if strings.TrimSpace(recipeID) == "" || strings.TrimSpace(ingredientID) == "" || name == "" {
		return common.NewValidationError("Recipe, ingredient, and name are required.")
	}
	if _, err := s.ensureAccess(ctx, actor, recipeID); err != nil {
		return err
	}

	ing, err := s.store.GetIngredient(ctx, recipeID, ingredientID)
	if err != nil {
		return err
	}
	displayName := ingredient.TitleCase(name)
	ing.NameDisplay = displayName
	ing.NameNormalized = ingredient.Normalize(displayName)
	ing.Quantity = quantityOrDefault(in.Quantity)
	ing.Unit = ingredient.NormalizeUnit(in.Unit)

	return s.store.UpdateIngredient(ctx, ing)
}

// DeleteIngredient 刪除食材
func (s *Service) DeleteIngredient(ctx context.Context, actor common.Actor, recipeID, ingredientID string) error {
	if strings.TrimSpace(recipeID) == "" || strings.TrimSpace(ingredientID) == "" {
		return common.NewValidationError("Recipe and ingredient are required.")
	}
	if _, err := s.ensureAccess(ctx, actor, recipeID); err != nil {
		return err
	}
	return s.store.DeleteIngredient(ctx, recipeID, ingredientID)
}

// ensureAccess 食譜必須屬於目前家庭
func (s *Service) ensureAccess(ctx context.Context, actor common.Actor, recipeID string) (*common.Recipe, error) {
	recipe, err := s.store.GetRecipe(ctx, actor.HouseholdID, recipeID)
	if err != nil {
		return nil, err
	}
	return recipe, nil
}

func quantityOrDefault(q float64) float64 {
	if q > 0 {
		return q
	}
	return fallbackQuantity
}
