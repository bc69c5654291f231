package recipe

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"grocery-tracker/internal/api/handlers"
	"grocery-tracker/internal/core/recipe"
	"grocery-tracker/internal/pkg/common"
)

// ingredientPath 取出食譜與食材 ID，兩者皆需為 UUID
func ingredientPath(c *gin.Context) (recipeID, ingredientID string, ok bool) {
	if recipeID, ok = handlers.PathID(c, "id", common.ErrRecipeNotFound); !ok {
		return "", "", false
	}
	if ingredientID, ok = handlers.PathID(c, "ingredientId", common.ErrNotFound); !ok {
		return "", "", false
	}
	return recipeID, ingredientID, true
}

// AddIngredient POST /recipes/:id/ingredients
func (h *Handler) AddIngredient(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}
	recipeID, ok := handlers.PathID(c, "id", common.ErrRecipeNotFound)
	if !ok {
		return
	}
	var req IngredientRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	added, err := h.recipes.AddIngredient(c.Request.Context(), actor, recipeID, recipe.IngredientInput{
		Name:     req.Name,
		Quantity: req.Quantity,
		Unit:     req.Unit,
	})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, added)
}

// UpdateIngredient PATCH /recipes/:id/ingredients/:ingredientId
func (h *Handler) UpdateIngredient(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}
	recipeID, ingredientID, ok := ingredientPath(c)
	if !ok {
		return
	}
	var req IngredientRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	err := h.recipes.UpdateIngredient(c.Request.Context(), actor, recipeID, ingredientID, recipe.IngredientInput{
		Name:     req.Name,
		Quantity: req.Quantity,
		Unit:     req.Unit,
	})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": ingredientID})
}

// DeleteIngredient DELETE /recipes/:id/ingredients/:ingredientId
func (h *Handler) DeleteIngredient(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}
	recipeID, ingredientID, ok := ingredientPath(c)
	if !ok {
		return
	}

	if err := h.recipes.DeleteIngredient(c.Request.Context(), actor, recipeID, ingredientID); err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
