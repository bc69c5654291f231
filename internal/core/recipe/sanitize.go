package recipe

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"grocery-tracker/internal/core/ingredient"
	"grocery-tracker/internal/pkg/common"
)

const (
	fallbackQuantity   = 1
	fallbackServings   = 4
	defaultConfidence  = 0.65
	maxConfidenceValue = 1
)

var (
	mixedFractionPattern = regexp.MustCompile(`^(\d+)\s+(\d+)/(\d+)$`)
	fractionPattern      = regexp.MustCompile(`^(\d+)/(\d+)$`)
)

// RawIngredient 模型回傳的食材，欄位型別未經檢查
type RawIngredient struct {
	Name     any `json:"name"`
	Quantity any `json:"quantity"`
	Unit     any `json:"unit"`
	Optional any `json:"optional"`
	Notes    any `json:"notes"`
}

// RawRecipe 模型回傳的食譜，欄位型別未經檢查
type RawRecipe struct {
	Title       any             `json:"title"`
	Description any             `json:"description"`
	Servings    any             `json:"servings"`
	DietaryTags any             `json:"dietaryTags"`
	Ingredients []RawIngredient `json:"ingredients"`
	Confidence  any             `json:"confidence"`
}

// ParseNumericLike 將數字或 "1 1/2"、"1/2"、"2.5" 這類字串轉為數字
func ParseNumericLike(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return finite(f)
	case string:
		return parseNumericString(n)
	}
	return 0, false
}

func parseNumericString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if m := mixedFractionPattern.FindStringSubmatch(s); m != nil {
		whole, _ := strconv.ParseFloat(m[1], 64)
		num, _ := strconv.ParseFloat(m[2], 64)
		den, _ := strconv.ParseFloat(m[3], 64)
		if den == 0 {
			return 0, false
		}
		return whole + num/den, true
	}
	if m := fractionPattern.FindStringSubmatch(s); m != nil {
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)
		if den == 0 {
			return 0, false
		}
		return num / den, true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func positiveOr(v any, fallback float64) float64 {
	if f, ok := ParseNumericLike(v); ok && f > 0 {
		return f
	}
	return fallback
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// passthroughNotes 備註原樣保留（不去空白），缺少或不是字串時為 nil
func passthroughNotes(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// ParseExtractedRecipe 將模型輸出轉為可儲存的食譜草稿
//
// 數量與份量一律轉成正數（食材預設 1、份量預設 4），信心值夾在 [0, 1]。
// 缺標題、沒有食材或食材沒有名稱時回傳 ValidationError。
func ParseExtractedRecipe(raw RawRecipe, sourceType common.RecipeSourceType) (*common.RecipeDraft, error) {
	title := stringValue(raw.Title)
	if title == "" {
		return nil, common.NewFieldError("title", "Recipe title is required.")
	}
	if len(raw.Ingredients) == 0 {
		return nil, common.NewFieldError("ingredients", "Recipe must include at least one ingredient.")
	}

	ingredients := make([]common.IngredientDraft, 0, len(raw.Ingredients))
	for i, ri := range raw.Ingredients {
		name := stringValue(ri.Name)
		if name == "" {
			return nil, common.NewFieldError(fmt.Sprintf("ingredients[%d].name", i), "Ingredient name is required.")
		}
		displayName := ingredient.TitleCase(name)

		unit := stringValue(ri.Unit)
		if unit == "" {
			unit = ingredient.DefaultUnit
		}
		optional, _ := ri.Optional.(bool)

		ingredients = append(ingredients, common.IngredientDraft{
			NameDisplay:    displayName,
			NameNormalized: ingredient.Normalize(displayName),
			Quantity:       positiveOr(ri.Quantity, fallbackQuantity),
			Unit:           ingredient.NormalizeUnit(unit),
			IsOptional:     optional,
			Notes:          passthroughNotes(ri.Notes),
		})
	}

	confidence := defaultConfidence
	if c, ok := ParseNumericLike(raw.Confidence); ok {
		confidence = math.Min(math.Max(c, 0), maxConfidenceValue)
	}

	return &common.RecipeDraft{
		Title:       title,
		Description: common.StringPtr(stringValue(raw.Description)),
		SourceType:  sourceType,
		Servings:    positiveOr(raw.Servings, fallbackServings),
		DietaryTags: parseDietaryTags(raw.DietaryTags),
		Ingredients: ingredients,
		Confidence:  &confidence,
	}, nil
}

func parseDietaryTags(v any) []string {
	tags := make([]string, 0)
	list, ok := v.([]any)
	if !ok {
		return tags
	}
	for _, t := range list {
		tag := strings.ToLower(stringValue(t))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// ParseRecipeResponse 從模型回覆擷取 JSON 並轉為食譜草稿
func ParseRecipeResponse(content string, sourceType common.RecipeSourceType) (*common.RecipeDraft, error) {
	var raw RawRecipe
	if err := common.ParseModelJSON(content, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidModelOutput, err)
	}
	return ParseExtractedRecipe(raw, sourceType)
}
