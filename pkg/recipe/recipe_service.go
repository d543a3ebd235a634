package recipe

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"foodgram-backend/domain"
	"foodgram-backend/entities"
	"foodgram-backend/internal/utils/storage"
	"foodgram-backend/pkg/user"
)

type (
	RecipeService interface {
		CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, authorID string) (domain.RecipeDetail, error)
		UpdateRecipe(ctx context.Context, id string, req domain.UpdateRecipeRequest, userID string) (domain.RecipeDetail, error)
		DeleteRecipe(ctx context.Context, id string, userID string) error
		GetRecipe(ctx context.Context, id string, viewerID string) (domain.RecipeDetail, error)
		GetRecipes(ctx context.Context, filter domain.RecipeFilter) ([]domain.RecipeDetail, int64, error)
		UploadRecipeImage(ctx context.Context, id string, image *multipart.FileHeader, userID string) (string, error)

		AddFavorite(ctx context.Context, userID, recipeID string) (domain.RecipeSummary, error)
		RemoveFavorite(ctx context.Context, userID, recipeID string) error
		AddToCart(ctx context.Context, userID, recipeID string) (domain.RecipeSummary, error)
		RemoveFromCart(ctx context.Context, userID, recipeID string) error
	}

	recipeService struct {
		recipeRepository RecipeRepository
		userRepository   user.UserRepository
		s3               storage.AwsS3
	}
)

func NewRecipeService(recipeRepository RecipeRepository, userRepository user.UserRepository, s3 storage.AwsS3) RecipeService {
	return &recipeService{
		recipeRepository: recipeRepository,
		userRepository:   userRepository,
		s3:               s3,
	}
}

// validateComposition enforces the recipe composition rules with a distinct
// error per violation.
func validateComposition(cookingTime int, tagIDs []string, ingredients []domain.IngredientEntry) error {
	if cookingTime < 1 {
		return domain.ErrInvalidCookingTime
	}
	if len(tagIDs) == 0 {
		return domain.ErrTagsRequired
	}
	if len(ingredients) == 0 {
		return domain.ErrIngredientsRequired
	}
	seen := make(map[string]struct{}, len(ingredients))
	for _, entry := range ingredients {
		if _, ok := seen[entry.ID]; ok {
			return domain.ErrDuplicateIngredient
		}
		seen[entry.ID] = struct{}{}
		if entry.Amount < 1 {
			return domain.ErrInvalidIngredientAmount
		}
	}
	return nil
}

func (s *recipeService) resolveComposition(ctx context.Context, recipeID uuid.UUID, tagIDs []string, ingredients []domain.IngredientEntry) ([]entities.Tag, []entities.AmountOfIngredient, error) {
	tagIDs = uniqueIDs(tagIDs)
	tags, err := s.recipeRepository.GetTagsByIDs(ctx, tagIDs)
	if err != nil {
		return nil, nil, err
	}
	if len(tags) != len(tagIDs) {
		return nil, nil, domain.ErrTagNotFound
	}

	ids := make([]string, 0, len(ingredients))
	for _, entry := range ingredients {
		ids = append(ids, entry.ID)
	}
	found, err := s.recipeRepository.GetIngredientsByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	if len(found) != len(ingredients) {
		return nil, nil, domain.ErrIngredientNotFound
	}

	amounts := make([]entities.AmountOfIngredient, 0, len(ingredients))
	for _, entry := range ingredients {
		ingredientUUID, err := uuid.Parse(entry.ID)
		if err != nil {
			return nil, nil, domain.ErrParseUUID
		}
		amounts = append(amounts, entities.AmountOfIngredient{
			ID:           uuid.New(),
			RecipeID:     recipeID,
			IngredientID: ingredientUUID,
			Amount:       entry.Amount,
		})
	}
	return tags, amounts, nil
}

// uniqueIDs drops repeated ids while keeping the first occurrence order, so
// a request listing the same tag twice resolves like a single mention.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *recipeService) CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, authorID string) (domain.RecipeDetail, error) {
	if err := validateComposition(req.CookingTime, req.TagIDs, req.Ingredients); err != nil {
		return domain.RecipeDetail{}, err
	}

	authorUUID, err := uuid.Parse(authorID)
	if err != nil {
		return domain.RecipeDetail{}, domain.ErrParseUUID
	}

	recipe := &entities.Recipe{
		ID:          uuid.New(),
		AuthorID:    authorUUID,
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
	}

	tags, amounts, err := s.resolveComposition(ctx, recipe.ID, req.TagIDs, req.Ingredients)
	if err != nil {
		return domain.RecipeDetail{}, err
	}

	if err := s.recipeRepository.CreateWithComposition(ctx, recipe, tags, amounts); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeDetail{}, domain.ErrDuplicateIngredient
		}
		return domain.RecipeDetail{}, err
	}

	return s.GetRecipe(ctx, recipe.ID.String(), authorID)
}

func (s *recipeService) UpdateRecipe(ctx context.Context, id string, req domain.UpdateRecipeRequest, userID string) (domain.RecipeDetail, error) {
	if err := validateComposition(req.CookingTime, req.TagIDs, req.Ingredients); err != nil {
		return domain.RecipeDetail{}, err
	}

	recipe, err := s.getOwnedRecipe(ctx, id, userID)
	if err != nil {
		return domain.RecipeDetail{}, err
	}

	recipe.Name = req.Name
	recipe.Text = req.Text
	recipe.CookingTime = req.CookingTime

	tags, amounts, err := s.resolveComposition(ctx, recipe.ID, req.TagIDs, req.Ingredients)
	if err != nil {
		return domain.RecipeDetail{}, err
	}

	if err := s.recipeRepository.UpdateWithComposition(ctx, recipe, tags, amounts); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeDetail{}, domain.ErrDuplicateIngredient
		}
		return domain.RecipeDetail{}, err
	}

	return s.GetRecipe(ctx, recipe.ID.String(), userID)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, id string, userID string) error {
	if _, err := s.getOwnedRecipe(ctx, id, userID); err != nil {
		return err
	}
	return s.recipeRepository.DeleteRecipe(ctx, id)
}

func (s *recipeService) GetRecipe(ctx context.Context, id string, viewerID string) (domain.RecipeDetail, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeDetail{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeDetail{}, err
	}
	return s.toDetail(ctx, recipe, viewerID)
}

func (s *recipeService) GetRecipes(ctx context.Context, filter domain.RecipeFilter) ([]domain.RecipeDetail, int64, error) {
	recipes, count, err := s.recipeRepository.GetRecipes(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	details := make([]domain.RecipeDetail, 0, len(recipes))
	for _, recipe := range recipes {
		detail, err := s.toDetail(ctx, recipe, filter.ViewerID)
		if err != nil {
			return nil, 0, err
		}
		details = append(details, detail)
	}
	return details, count, nil
}

func (s *recipeService) UploadRecipeImage(ctx context.Context, id string, image *multipart.FileHeader, userID string) (string, error) {
	recipe, err := s.getOwnedRecipe(ctx, id, userID)
	if err != nil {
		return "", err
	}

	objectKey, err := s.s3.UploadFile(
		fmt.Sprintf("recipe-%s", recipe.ID.String()),
		image,
		"recipes",
		storage.AllowImage...,
	)
	if err != nil {
		return "", err
	}

	recipe.ImageURL = s.s3.GetPublicLinkKey(objectKey)
	if err := s.recipeRepository.SaveRecipe(ctx, recipe); err != nil {
		return "", err
	}
	return recipe.ImageURL, nil
}

func (s *recipeService) AddFavorite(ctx context.Context, userID, recipeID string) (domain.RecipeSummary, error) {
	recipe, err := s.getRecipeForToggle(ctx, recipeID)
	if err != nil {
		return domain.RecipeSummary{}, err
	}

	exists, err := s.recipeRepository.IsFavorited(ctx, userID, recipeID)
	if err != nil {
		return domain.RecipeSummary{}, err
	}
	if exists {
		return domain.RecipeSummary{}, domain.ErrAlreadyFavorited
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.RecipeSummary{}, domain.ErrParseUUID
	}

	favorite := &entities.Favorite{
		ID:       uuid.New(),
		UserID:   userUUID,
		RecipeID: recipe.ID,
	}
	if err := s.recipeRepository.CreateFavorite(ctx, favorite); err != nil {
		// the unique index closes the race between the check and the insert
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeSummary{}, domain.ErrAlreadyFavorited
		}
		return domain.RecipeSummary{}, err
	}

	return toSummary(recipe), nil
}

func (s *recipeService) RemoveFavorite(ctx context.Context, userID, recipeID string) error {
	if _, err := s.getRecipeForToggle(ctx, recipeID); err != nil {
		return err
	}

	rows, err := s.recipeRepository.DeleteFavorite(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFavorited
	}
	return nil
}

func (s *recipeService) AddToCart(ctx context.Context, userID, recipeID string) (domain.RecipeSummary, error) {
	recipe, err := s.getRecipeForToggle(ctx, recipeID)
	if err != nil {
		return domain.RecipeSummary{}, err
	}

	exists, err := s.recipeRepository.IsInCart(ctx, userID, recipeID)
	if err != nil {
		return domain.RecipeSummary{}, err
	}
	if exists {
		return domain.RecipeSummary{}, domain.ErrAlreadyInCart
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.RecipeSummary{}, domain.ErrParseUUID
	}

	cart := &entities.Cart{
		ID:       uuid.New(),
		UserID:   userUUID,
		RecipeID: recipe.ID,
	}
	if err := s.recipeRepository.CreateCart(ctx, cart); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeSummary{}, domain.ErrAlreadyInCart
		}
		return domain.RecipeSummary{}, err
	}

	return toSummary(recipe), nil
}

func (s *recipeService) RemoveFromCart(ctx context.Context, userID, recipeID string) error {
	if _, err := s.getRecipeForToggle(ctx, recipeID); err != nil {
		return err
	}

	rows, err := s.recipeRepository.DeleteCart(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotInCart
	}
	return nil
}

func (s *recipeService) getOwnedRecipe(ctx context.Context, id string, userID string) (*entities.Recipe, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecipeNotFound
		}
		return nil, err
	}
	if recipe.AuthorID.String() != userID {
		return nil, domain.ErrNotRecipeAuthor
	}
	return recipe, nil
}

func (s *recipeService) getRecipeForToggle(ctx context.Context, recipeID string) (*entities.Recipe, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecipeNotFound
		}
		return nil, err
	}
	return recipe, nil
}

func (s *recipeService) toDetail(ctx context.Context, recipe *entities.Recipe, viewerID string) (domain.RecipeDetail, error) {
	detail := domain.RecipeDetail{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Text:        recipe.Text,
		ImageURL:    recipe.ImageURL,
		CookingTime: recipe.CookingTime,
		CreatedAt:   recipe.CreatedAt,
	}

	if recipe.Author != nil {
		detail.Author = domain.UserProfile{
			UserPublic: domain.UserPublic{
				ID:        recipe.Author.ID,
				Username:  recipe.Author.Username,
				Email:     recipe.Author.Email,
				FirstName: recipe.Author.FirstName,
				LastName:  recipe.Author.LastName,
				AvatarURL: recipe.Author.AvatarURL,
			},
		}
	}

	detail.Tags = make([]domain.TagResponse, 0, len(recipe.Tags))
	for _, tag := range recipe.Tags {
		detail.Tags = append(detail.Tags, domain.TagResponse{
			ID:    tag.ID,
			Name:  tag.Name,
			Color: tag.Color,
			Slug:  tag.Slug,
		})
	}

	detail.Ingredients = make([]domain.RecipeIngredientView, 0, len(recipe.Ingredients))
	for _, amount := range recipe.Ingredients {
		view := domain.RecipeIngredientView{
			ID:     amount.IngredientID,
			Amount: amount.Amount,
		}
		if amount.Ingredient != nil {
			view.Name = amount.Ingredient.Name
			view.MeasurementUnit = amount.Ingredient.MeasurementUnit
		}
		detail.Ingredients = append(detail.Ingredients, view)
	}

	if viewerID == "" {
		return detail, nil
	}

	isFavorited, err := s.recipeRepository.IsFavorited(ctx, viewerID, recipe.ID.String())
	if err != nil {
		return domain.RecipeDetail{}, err
	}
	detail.IsFavorited = isFavorited

	isInCart, err := s.recipeRepository.IsInCart(ctx, viewerID, recipe.ID.String())
	if err != nil {
		return domain.RecipeDetail{}, err
	}
	detail.IsInShoppingCart = isInCart

	if recipe.Author != nil && viewerID != recipe.AuthorID.String() {
		isSubscribed, err := s.userRepository.IsFollowing(ctx, viewerID, recipe.AuthorID.String())
		if err != nil {
			return domain.RecipeDetail{}, err
		}
		detail.Author.IsSubscribed = isSubscribed
	}

	return detail, nil
}

func toSummary(recipe *entities.Recipe) domain.RecipeSummary {
	return domain.RecipeSummary{
		ID:          recipe.ID,
		Name:        recipe.Name,
		ImageURL:    recipe.ImageURL,
		CookingTime: recipe.CookingTime,
	}
}
