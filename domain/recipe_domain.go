package domain

import (
	"errors"
	"time"
)

var (
	MessageSuccessGetRecipes      = "success get recipes"
	MessageSuccessGetRecipeDetail = "success get recipe detail"
	MessageSuccessCreateRecipe    = "recipe created successfully"
	MessageSuccessUpdateRecipe    = "recipe updated successfully"
	MessageSuccessDeleteRecipe    = "recipe deleted successfully"
	MessageSuccessUploadImage     = "recipe image uploaded successfully"
	MessageSuccessAddFavorite     = "recipe added to favorites"
	MessageSuccessRemoveFavorite  = "recipe removed from favorites"
	MessageSuccessAddToCart       = "recipe added to shopping cart"
	MessageSuccessRemoveFromCart  = "recipe removed from shopping cart"

	MessageFailedGetRecipes      = "failed to get recipes"
	MessageFailedGetRecipeDetail = "failed to get recipe detail"
	MessageFailedCreateRecipe    = "failed to create recipe"
	MessageFailedUpdateRecipe    = "failed to update recipe"
	MessageFailedDeleteRecipe    = "failed to delete recipe"
	MessageFailedUploadImage     = "failed to upload recipe image"
	MessageFailedAddFavorite     = "failed to add recipe to favorites"
	MessageFailedRemoveFavorite  = "failed to remove recipe from favorites"
	MessageFailedAddToCart       = "failed to add recipe to shopping cart"
	MessageFailedRemoveFromCart  = "failed to remove recipe from shopping cart"
	MessageFailedDownloadCart    = "failed to download shopping list"

	ErrRecipeNotFound     = errors.New("recipe not found")
	ErrAlreadyFavorited   = errors.New("recipe already in favorites")
	ErrNotFavorited       = errors.New("recipe is not in favorites")
	ErrAlreadyInCart      = errors.New("recipe already in shopping cart")
	ErrNotInCart          = errors.New("recipe is not in shopping cart")
	ErrInvalidImageFormat = errors.New("invalid image format")
)

type (
	// RecipeIngredientInput references a catalog ingredient by id. The id
	// must resolve before anything is persisted.
	RecipeIngredientInput struct {
		ID     string `json:"id" validate:"required,uuid"`
		Amount int    `json:"amount" validate:"required,min=1"`
	}

	CreateRecipeRequest struct {
		Name        string                  `json:"name" validate:"required,max=200"`
		Text        string                  `json:"text" validate:"required"`
		Image       string                  `json:"image" validate:"required"` // data:image/<ext>;base64,<payload>
		CookingTime int                     `json:"cooking_time" validate:"required,min=1"`
		Ingredients []RecipeIngredientInput `json:"ingredients" validate:"required,min=1,dive"`
		Tags        []string                `json:"tags" validate:"required,min=1,dive,uuid"`
	}

	// UpdateRecipeRequest uses pointers for the two list fields so a PATCH
	// that omits them leaves the stored lists untouched, while a supplied
	// list fully replaces the previous rows.
	UpdateRecipeRequest struct {
		Name        string                   `json:"name" validate:"omitempty,max=200"`
		Text        string                   `json:"text" validate:"omitempty"`
		Image       string                   `json:"image" validate:"omitempty"`
		CookingTime int                      `json:"cooking_time" validate:"omitempty,min=1"`
		Ingredients *[]RecipeIngredientInput `json:"ingredients" validate:"omitempty,min=1,dive"`
		Tags        *[]string                `json:"tags" validate:"omitempty,min=1,dive,uuid"`
	}

	RecipeIngredientView struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}

	RecipeView struct {
		ID               string                 `json:"id"`
		Tags             []TagView              `json:"tags"`
		Author           UserView               `json:"author"`
		Ingredients      []RecipeIngredientView `json:"ingredients"`
		IsFavorited      bool                   `json:"is_favorited"`
		IsInShoppingCart bool                   `json:"is_in_shopping_cart"`
		Name             string                 `json:"name"`
		ImageURL         string                 `json:"image"`
		Text             string                 `json:"text"`
		CookingTime      int                    `json:"cooking_time"`
		CreatedAt        time.Time              `json:"created_at"`
	}

	// RecipeSummary is the short shape returned from favorite/cart adds and
	// nested under subscriptions.
	RecipeSummary struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		ImageURL    string `json:"image"`
		CookingTime int    `json:"cooking_time"`
	}

	// RecipeFilter narrows the recipe listing. Favorited/InCart only apply
	// when a viewer is authenticated.
	RecipeFilter struct {
		Author    string
		TagSlugs  []string
		Favorited bool
		InCart    bool
	}
)
