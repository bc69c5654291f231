package recipe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-tracker/internal/pkg/common"
)

func TestParseNumericLike(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{2.5, 2.5, true},
		{3, 3, true},
		{json.Number("0.25"), 0.25, true},
		{"1 1/2", 1.5, true},
		{"  3/4 ", 0.75, true},
		{"2.5", 2.5, true},
		{"1/0", 0, false},
		{"2 1/0", 0, false},
		{"", 0, false},
		{"a pinch", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumericLike(tt.in)
		assert.Equal(t, tt.ok, ok, "input %#v", tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, "input %#v", tt.in)
		}
	}
}

func TestParseExtractedRecipe_NonPositiveQuantities(t *testing.T) {
	draft, err := ParseExtractedRecipe(RawRecipe{
		Title:       "Beef Mechado",
		Servings:    6.0,
		DietaryTags: []any{},
		Ingredients: []RawIngredient{
			{Name: "Beef", Quantity: 1.0, Unit: "kg"},
			{Name: "Soy Sauce", Quantity: 0.0, Unit: "tbsp"},
		},
		Confidence: 0.8,
	}, common.RecipeSourceURL)
	require.NoError(t, err)

	assert.Equal(t, 1.0, draft.Ingredients[0].Quantity)
	assert.Equal(t, 1.0, draft.Ingredients[1].Quantity)
	assert.Equal(t, 6.0, draft.Servings)
	assert.Equal(t, 0.8, *draft.Confidence)
}

func TestParseExtractedRecipe_NumericStrings(t *testing.T) {
	draft, err := ParseExtractedRecipe(RawRecipe{
		Title:    "Chicken Adobo",
		Servings: "0",
		Ingredients: []RawIngredient{
			{Name: "Chicken", Quantity: "1 1/2", Unit: "kg"},
			{Name: "Vinegar", Quantity: "1/2", Unit: "cup"},
		},
		Confidence: 0.7,
	}, common.RecipeSourceManual)
	require.NoError(t, err)

	assert.Equal(t, 4.0, draft.Servings)
	assert.Equal(t, 1.5, draft.Ingredients[0].Quantity)
	assert.Equal(t, 0.5, draft.Ingredients[1].Quantity)
}

func TestParseExtractedRecipe_Defaults(t *testing.T) {
	draft, err := ParseExtractedRecipe(RawRecipe{
		Title:       "  Garlic Bread ",
		Description: "Crispy",
		DietaryTags: []any{" Vegetarian ", "", 3.0, "NUT-FREE"},
		Ingredients: []RawIngredient{
			{Name: "fresh garlic cloves", Quantity: nil, Unit: nil, Notes: " minced "},
			{Name: "baguette", Quantity: 1.0, Unit: "Pieces", Optional: true},
		},
		Confidence: 1.7,
	}, common.RecipeSourceImageMeal)
	require.NoError(t, err)

	assert.Equal(t, "Garlic Bread", draft.Title)
	require.NotNil(t, draft.Description)
	assert.Equal(t, "Crispy", *draft.Description)
	assert.Equal(t, common.RecipeSourceImageMeal, draft.SourceType)
	assert.Equal(t, []string{"vegetarian", "nut-free"}, draft.DietaryTags)
	assert.Equal(t, 1.0, *draft.Confidence)

	garlic := draft.Ingredients[0]
	assert.Equal(t, "Fresh Garlic Cloves", garlic.NameDisplay)
	assert.Equal(t, "garlic clove", garlic.NameNormalized)
	assert.Equal(t, 1.0, garlic.Quantity)
	assert.Equal(t, "unit", garlic.Unit)
	assert.False(t, garlic.IsOptional)
	require.NotNil(t, garlic.Notes)
	assert.Equal(t, " minced ", *garlic.Notes)

	baguette := draft.Ingredients[1]
	assert.Equal(t, "unit", baguette.Unit)
	assert.True(t, baguette.IsOptional)
	assert.Nil(t, baguette.Notes)
}

func TestParseExtractedRecipe_NotesPassThrough(t *testing.T) {
	draft, err := ParseExtractedRecipe(RawRecipe{
		Title: "Salad",
		Ingredients: []RawIngredient{
			{Name: "salt", Notes: "  to taste  "},
			{Name: "pepper", Notes: ""},
			{Name: "oil", Notes: 2.0},
			{Name: "lemon"},
		},
	}, common.RecipeSourceURL)
	require.NoError(t, err)
	require.Len(t, draft.Ingredients, 4)

	require.NotNil(t, draft.Ingredients[0].Notes)
	assert.Equal(t, "  to taste  ", *draft.Ingredients[0].Notes)
	require.NotNil(t, draft.Ingredients[1].Notes)
	assert.Equal(t, "", *draft.Ingredients[1].Notes)
	assert.Nil(t, draft.Ingredients[2].Notes)
	assert.Nil(t, draft.Ingredients[3].Notes)
}

func TestParseExtractedRecipe_ConfidenceDefaults(t *testing.T) {
	draft, err := ParseExtractedRecipe(RawRecipe{
		Title:       "Toast",
		Ingredients: []RawIngredient{{Name: "Bread"}},
	}, common.RecipeSourceURL)
	require.NoError(t, err)
	assert.Equal(t, 0.65, *draft.Confidence)
	assert.Nil(t, draft.Description)
	assert.Empty(t, draft.DietaryTags)

	draft, err = ParseExtractedRecipe(RawRecipe{
		Title:       "Toast",
		Ingredients: []RawIngredient{{Name: "Bread"}},
		Confidence:  -0.2,
	}, common.RecipeSourceURL)
	require.NoError(t, err)
	assert.Equal(t, 0.0, *draft.Confidence)
}

func TestParseExtractedRecipe_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  RawRecipe
	}{
		{"missing title", RawRecipe{Ingredients: []RawIngredient{{Name: "Salt"}}}},
		{"non-string title", RawRecipe{Title: 12.0, Ingredients: []RawIngredient{{Name: "Salt"}}}},
		{"no ingredients", RawRecipe{Title: "Water"}},
		{"blank ingredient name", RawRecipe{Title: "Soup", Ingredients: []RawIngredient{{Name: "  "}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseExtractedRecipe(tt.raw, common.RecipeSourceURL)
			require.Error(t, err)
			assert.True(t, common.IsValidationError(err))
		})
	}
}

func TestParseRecipeResponse(t *testing.T) {
	content := "Sure! Here is the recipe:\n" +
		`{"title":"Pancakes","servings":"2","ingredients":[{"name":"Eggs","quantity":2,"unit":"eggs"},{"name":"Milk","quantity":"1 1/2","unit":"Cups"}],"confidence":0.9}` +
		"\nEnjoy!"

	draft, err := ParseRecipeResponse(content, common.RecipeSourceURL)
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", draft.Title)
	assert.Equal(t, 2.0, draft.Servings)
	require.Len(t, draft.Ingredients, 2)
	assert.Equal(t, "egg", draft.Ingredients[0].Unit)
	assert.Equal(t, 1.5, draft.Ingredients[1].Quantity)
	assert.Equal(t, "cup", draft.Ingredients[1].Unit)

	_, err = ParseRecipeResponse("I could not find a recipe.", common.RecipeSourceURL)
	assert.ErrorIs(t, err, common.ErrAIServiceError)
}
