package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	MessageSuccessGetRecipes     = "success get recipes"
	MessageSuccessGetRecipe      = "success get recipe detail"
	MessageSuccessCreateRecipe   = "recipe created successfully"
	MessageSuccessUpdateRecipe   = "recipe updated successfully"
	MessageSuccessDeleteRecipe   = "recipe deleted successfully"
	MessageSuccessUploadImage    = "recipe image uploaded successfully"
	MessageSuccessAddFavorite    = "recipe added to favorites"
	MessageSuccessRemoveFavorite = "recipe removed from favorites"
	MessageSuccessAddToCart      = "recipe added to shopping cart"
	MessageSuccessRemoveFromCart = "recipe removed from shopping cart"

	MessageFailedGetRecipes     = "failed to get recipes"
	MessageFailedGetRecipe      = "failed to get recipe detail"
	MessageFailedCreateRecipe   = "failed to create recipe"
	MessageFailedUpdateRecipe   = "failed to update recipe"
	MessageFailedDeleteRecipe   = "failed to delete recipe"
	MessageFailedUploadImage    = "failed to upload recipe image"
	MessageFailedAddFavorite    = "failed to add recipe to favorites"
	MessageFailedRemoveFavorite = "failed to remove recipe from favorites"
	MessageFailedAddToCart      = "failed to add recipe to shopping cart"
	MessageFailedRemoveFromCart = "failed to remove recipe from shopping cart"

	ErrRecipeNotFound          = errors.New("recipe not found")
	ErrNotRecipeAuthor         = errors.New("only the author can modify this recipe")
	ErrIngredientsRequired     = errors.New("recipe must have at least one ingredient")
	ErrDuplicateIngredient     = errors.New("recipe lists the same ingredient twice")
	ErrInvalidIngredientAmount = errors.New("ingredient amount must be at least 1")
	ErrTagsRequired            = errors.New("recipe must have at least one tag")
	ErrInvalidCookingTime      = errors.New("cooking time must be at least 1 minute")
	ErrAlreadyFavorited        = errors.New("recipe already in favorites")
	ErrNotFavorited            = errors.New("recipe is not in favorites")
	ErrAlreadyInCart           = errors.New("recipe already in shopping cart")
	ErrNotInCart               = errors.New("recipe is not in shopping cart")
)

type (
	IngredientEntry struct {
		ID     string `json:"id" validate:"required,uuid"`
		Amount int    `json:"amount" validate:"required,min=1"`
	}

	CreateRecipeRequest struct {
		Name        string            `json:"name" validate:"required,max=200"`
		Text        string            `json:"text" validate:"required"`
		CookingTime int               `json:"cooking_time" validate:"required"`
		TagIDs      []string          `json:"tags" validate:"dive,uuid"`
		Ingredients []IngredientEntry `json:"ingredients" validate:"dive"`
	}

	UpdateRecipeRequest struct {
		Name        string            `json:"name" validate:"required,max=200"`
		Text        string            `json:"text" validate:"required"`
		CookingTime int               `json:"cooking_time" validate:"required"`
		TagIDs      []string          `json:"tags" validate:"dive,uuid"`
		Ingredients []IngredientEntry `json:"ingredients" validate:"dive"`
	}

	// RecipeFilter is the typed criteria for recipe listing. Filters are
	// combined with AND; tag slugs match with OR among themselves. The
	// viewer-scoped flags apply only when ViewerID is set — anonymous
	// callers get them silently ignored.
	RecipeFilter struct {
		ViewerID    string
		IsFavorited bool
		IsInCart    bool
		AuthorID    string
		TagSlugs    []string
		Page        int
		Limit       int
	}

	RecipeIngredientView struct {
		ID              uuid.UUID `json:"id"`
		Name            string    `json:"name"`
		MeasurementUnit string    `json:"measurement_unit"`
		Amount          int       `json:"amount"`
	}

	// RecipePublic is the fixed response schema for anonymous viewers.
	RecipePublic struct {
		ID          uuid.UUID              `json:"id"`
		Name        string                 `json:"name"`
		Text        string                 `json:"text"`
		ImageURL    string                 `json:"image_url,omitempty"`
		CookingTime int                    `json:"cooking_time"`
		Author      UserPublic             `json:"author"`
		Tags        []TagResponse          `json:"tags"`
		Ingredients []RecipeIngredientView `json:"ingredients"`
		CreatedAt   time.Time              `json:"created_at"`
	}

	// RecipeDetail is the fixed response schema for authenticated viewers:
	// the public fields plus the viewer-relative flags.
	RecipeDetail struct {
		ID               uuid.UUID              `json:"id"`
		Name             string                 `json:"name"`
		Text             string                 `json:"text"`
		ImageURL         string                 `json:"image_url,omitempty"`
		CookingTime      int                    `json:"cooking_time"`
		Author           UserProfile            `json:"author"`
		Tags             []TagResponse          `json:"tags"`
		Ingredients      []RecipeIngredientView `json:"ingredients"`
		CreatedAt        time.Time              `json:"created_at"`
		IsFavorited      bool                   `json:"is_favorited"`
		IsInShoppingCart bool                   `json:"is_in_shopping_cart"`
	}

	// RecipeSummary is the lightweight shape returned by favorite and cart
	// toggles and embedded in subscription payloads.
	RecipeSummary struct {
		ID          uuid.UUID `json:"id"`
		Name        string    `json:"name"`
		ImageURL    string    `json:"image_url,omitempty"`
		CookingTime int       `json:"cooking_time"`
	}
)

// Public strips the viewer-relative flags down to the anonymous schema.
func (d RecipeDetail) Public() RecipePublic {
	return RecipePublic{
		ID:          d.ID,
		Name:        d.Name,
		Text:        d.Text,
		ImageURL:    d.ImageURL,
		CookingTime: d.CookingTime,
		Author:      d.Author.UserPublic,
		Tags:        d.Tags,
		Ingredients: d.Ingredients,
		CreatedAt:   d.CreatedAt,
	}
}
