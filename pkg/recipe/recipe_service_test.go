package recipe

import (
	"context"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"foodgram-backend/domain"
	"foodgram-backend/entities"
	"foodgram-backend/pkg/user"
)

type stubStorage struct{}

func (stubStorage) UploadFile(name string, file *multipart.FileHeader, dir string, allowedTypes ...string) (string, error) {
	return dir + "/" + name, nil
}

func (stubStorage) GetPublicLinkKey(objectKey string) string {
	return "https://cdn.test/" + objectKey
}

func setupRecipeService(t *testing.T) (RecipeService, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Follow{},
		&entities.Tag{},
		&entities.Ingredient{},
		&entities.Recipe{},
		&entities.AmountOfIngredient{},
		&entities.Favorite{},
		&entities.Cart{},
	)
	require.NoError(t, err)

	service := NewRecipeService(
		NewRecipeRepository(db),
		user.NewUserRepository(db),
		stubStorage{},
	)
	return service, db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *entities.User {
	u := &entities.User{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
		Role:     domain.RoleUser,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedTag(t *testing.T, db *gorm.DB, name, slug string) *entities.Tag {
	tag := &entities.Tag{ID: uuid.New(), Name: name, Color: "#49B64E", Slug: slug}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

func seedIngredient(t *testing.T, db *gorm.DB, name, unit string) *entities.Ingredient {
	ingredient := &entities.Ingredient{ID: uuid.New(), Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(ingredient).Error)
	return ingredient
}

func recipeRequest(tagIDs []string, ingredients []domain.IngredientEntry) domain.CreateRecipeRequest {
	return domain.CreateRecipeRequest{
		Name:        "Блины",
		Text:        "Смешать и жарить на сковороде.",
		CookingTime: 20,
		TagIDs:      tagIDs,
		Ingredients: ingredients,
	}
}

func TestCreateRecipeValidation(t *testing.T) {
	service, db := setupRecipeService(t)
	ctx := context.Background()

	author := seedUser(t, db, "alice")
	tag := seedTag(t, db, "Завтрак", "breakfast")
	flour := seedIngredient(t, db, "Мука", "г")

	valid := func() domain.CreateRecipeRequest {
		return recipeRequest(
			[]string{tag.ID.String()},
			[]domain.IngredientEntry{{ID: flour.ID.String(), Amount: 200}},
		)
	}

	tests := []struct {
		name    string
		mutate  func(*domain.CreateRecipeRequest)
		wantErr error
	}{
		{
			name:    "cooking time below one minute",
			mutate:  func(r *domain.CreateRecipeRequest) { r.CookingTime = 0 },
			wantErr: domain.ErrInvalidCookingTime,
		},
		{
			name:    "no tags",
			mutate:  func(r *domain.CreateRecipeRequest) { r.TagIDs = nil },
			wantErr: domain.ErrTagsRequired,
		},
		{
			name:    "no ingredients",
			mutate:  func(r *domain.CreateRecipeRequest) { r.Ingredients = nil },
			wantErr: domain.ErrIngredientsRequired,
		},
		{
			name: "duplicate ingredient",
			mutate: func(r *domain.CreateRecipeRequest) {
				r.Ingredients = append(r.Ingredients, domain.IngredientEntry{ID: flour.ID.String(), Amount: 50})
			},
			wantErr: domain.ErrDuplicateIngredient,
		},
		{
			name: "zero amount",
			mutate: func(r *domain.CreateRecipeRequest) {
				r.Ingredients = []domain.IngredientEntry{{ID: flour.ID.String(), Amount: 0}}
			},
			wantErr: domain.ErrInvalidIngredientAmount,
		},
		{
			name: "unknown tag",
			mutate: func(r *domain.CreateRecipeRequest) {
				r.TagIDs = []string{uuid.NewString()}
			},
			wantErr: domain.ErrTagNotFound,
		},
		{
			name: "unknown ingredient",
			mutate: func(r *domain.CreateRecipeRequest) {
				r.Ingredients = []domain.IngredientEntry{{ID: uuid.NewString(), Amount: 10}}
			},
			wantErr: domain.ErrIngredientNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			_, err := service.CreateRecipe(ctx, req, author.ID.String())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateRecipe(t *testing.T) {
	service, db := setupRecipeService(t)
	ctx := context.Background()

	author := seedUser(t, db, "alice")
	tag := seedTag(t, db, "Завтрак", "breakfast")
	flour := seedIngredient(t, db, "Мука", "г")

	detail, err := service.CreateRecipe(ctx, recipeRequest(
		[]string{tag.ID.String()},
		[]domain.IngredientEntry{{ID: flour.ID.String(), Amount: 200}},
	), author.ID.String())
	require.NoError(t, err)

	assert.Equal(t, "Блины", detail.Name)
	assert.Equal(t, 20, detail.CookingTime)
	assert.Equal(t, "alice", detail.Author.Username)
	assert.False(t, detail.IsFavorited)
	assert.False(t, detail.IsInShoppingCart)

	require.Len(t, detail.Tags, 1)
	assert.Equal(t, "breakfast", detail.Tags[0].Slug)

	require.Len(t, detail.Ingredients, 1)
	assert.Equal(t, "Мука", detail.Ingredients[0].Name)
	assert.Equal(t, "г", detail.Ingredients[0].MeasurementUnit)
	assert.Equal(t, 200, detail.Ingredients[0].Amount)
}

func TestCreateRecipeCollapsesRepeatedTagIDs(t *testing.T) {
	service, db := setupRecipeService(t)
	ctx := context.Background()

	author := seedUser(t, db, "alice")
	tag := seedTag(t, db, "Завтрак", "breakfast")
	flour := seedIngredient(t, db, "Мука", "г")

	detail, err := service.CreateRecipe(ctx, recipeRequest(
		[]string{tag.ID.String(), tag.ID.String()},
		[]domain.IngredientEntry{{ID: flour.ID.String(), Amount: 200}},
	), author.ID.String())
	require.NoError(t, err)

	require.Len(t, detail.Tags, 1)
	assert.Equal(t, "breakfast", detail.Tags[0].Slug)
}

func TestCompositionReplaceRollsBackOnFailure(t *testing.T) {
	service, db := setupRecipeService(t)
	ctx := context.Background()

	author := seedUser(t, db, "alice")
	breakfast := seedTag(t, db, "Завтрак", "breakfast")
	dinner := seedTag(t, db, "Ужин", "dinner")
	flour := seedIngredient(t, db, "Мука", "г")

	created, err := service.CreateRecipe(ctx, recipeRequest(
		[]string{breakfast.ID.String()},
		[]domain.IngredientEntry{{ID: flour.ID.String(), Amount: 200}},
	), author.ID.String())
	require.NoError(t, err)

	repo := NewRecipeRepository(db)
	recipe, err := repo.GetRecipeByID(ctx, created.ID.String())
	require.NoError(t, err)

	// two rows for the same (recipe, ingredient) pair violate the unique
	// index on the amounts table after the tags were already replaced
	conflicting := []entities.AmountOfIngredient{
		{ID: uuid.New(), RecipeID: recipe.ID, IngredientID: flour.ID, Amount: 300},
		{ID: uuid.New(), RecipeID: recipe.ID, IngredientID: flour.ID, Amount: 400},
	}
	err = repo.UpdateWithComposition(ctx, recipe, []entities.Tag{*dinner}, conflicting)
	require.Error(t, err)

	after, err := service.GetRecipe(ctx, created.ID.String(), "")
	require.NoError(t, err)
	require.Len(t, after.Tags, 1)
	assert.Equal(t, "breakfast", after.Tags[0].Slug)
	require.Len(t, after.Ingredients, 1)
	assert.Equal(t, "Мука", after.Ingredients[0].Name)
	assert.Equal(t, 200, after.Ingredients[0].Amount)

	var amountRows int64
	require.NoError(t, db.Model(&entities.AmountOfIngredient{}).
		Where("recipe_id = ?", created.ID).
		Count(&amountRows).Error)
	assert.EqualValues(t, 1, amountRows)
}

func TestUpdateRecipeReplacesComposition(t *testing.T) {
	service, db := setupRecipeService(t)
	ctx := context.Background()

	author := seedUser(t, db, "alice")
	other := seedUser(t, db, "bob")
	tag := seedTag(t, db, "Завтрак", "breakfast")
	dinner := seedTag(t, db, "Ужин", "dinner")
	flour := seedIngredient(t, db, "Мука", "г")
	sugar := seedIngredient(t, db, "Сахар", "г")

	created, err := service.CreateRecipe(ctx, recipeRequest(
		[]string{tag.ID.String()},
		[]domain.IngredientEntry{
			{ID: flour.ID.String(), Amount: 200},
			{ID: sugar.ID.String(), Amount: 100},
		},
	), author.ID.String())
	require.NoError(t, err)

	t.Run("only the author can update", func(t *testing.T) {
		_, err := service.UpdateRecipe(ctx, created.ID.String(), domain.UpdateRecipeRequest{
			Name:        "Чужие блины",
			Text:        created.Text,
			CookingTime: 20,
			TagIDs:      []string{tag.ID.String()},
			Ingredients: []domain.IngredientEntry{{ID: flour.ID.String(), Amount: 1}},
		}, other.ID.String())
		assert.ErrorIs(t, err, domain.ErrNotRecipeAuthor)
	})

	t.Run("composition is fully replaced", func(t *testing.T) {
		updated, err := service.UpdateRecipe(ctx, created.ID.String(), domain.UpdateRecipeRequest{
			Name:        "Блины на молоке",
			Text:        "Обновлённый рецепт.",
			CookingTime: 30,
			TagIDs:      []string{dinner.ID.String()},
			Ingredients: []domain.IngredientEntry{{ID: flour.ID.String(), Amount: 300}},
		}, author.ID.String())
		require.NoError(t, err)

		assert.Equal(t, "Блины на молоке", updated.Name)
		assert.Equal(t, 30, updated.CookingTime)

		require.Len(t, updated.Tags, 1)
		assert.Equal(t, "dinner", updated.Tags[0].Slug)

		require.Len(t, updated.Ingredients, 1)
		assert.Equal(t, "Мука", updated.Ingredients[0].Name)
		assert.Equal(t, 300, updated.Ingredients[0].Amount)

		var amountRows int64
		require.NoError(t, db.Model(&entities.AmountOfIngredient{}).
			Where("recipe_id = ?", created.ID).
			Count(&amountRows).Error)
		assert.EqualValues(t, 1, amountRows)
	})

	t.Run("unknown recipe", func(t *testing.T) {
		_, err := service.UpdateRecipe(ctx, uuid.NewString(), domain.UpdateRecipeRequest{
			Name:        "Нет такого",
			Text:        "x",
			CookingTime: 5,
			TagIDs:      []string{tag.ID.String()},
			Ingredients: []domain.IngredientEntry{{ID: flour.ID.String(), Amount: 1}},
		}, author.ID.String())
		assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
	})
}

func TestDeleteRecipe(t *testing.T) {
	service, db := setupRecipeService(t)
	ctx := context.Background()

	author := seedUser(t, db, "alice")
	other := seedUser(t, db, "bob")
	tag := seedTag(t, db, "Завтрак", "breakfast")
	flour := seedIngredient(t, db, "Мука", "г")

	created, err := service.CreateRecipe(ctx, recipeRequest(
		[]string{tag.ID.String()},
		[]domain.IngredientEntry{{ID: flour.ID.String(), Amount: 200}},
	), author.ID.String())
	require.NoError(t, err)

	t.Run("only the author can delete", func(t *testing.T) {
		err := service.DeleteRecipe(ctx, created.ID.String(), other.ID.String())
		assert.ErrorIs(t, err, domain.ErrNotRecipeAuthor)
	})

	t.Run("delete removes the composition", func(t *testing.T) {
		require.NoError(t, service.DeleteRecipe(ctx, created.ID.String(), author.ID.String()))

		_, err := service.GetRecipe(ctx, created.ID.String(), "")
		assert.ErrorIs(t, err, domain.ErrRecipeNotFound)

		var amountRows int64
		require.NoError(t, db.Model(&entities.AmountOfIngredient{}).
			Where("recipe_id = ?", created.ID).
			Count(&amountRows).Error)
		assert.Zero(t, amountRows)
	})
}

func TestFavoriteLifecycle(t *testing.T) {
	service, db := setupRecipeService(t)
	ctx := context.Background()

	author := seedUser(t, db, "alice")
	viewer := seedUser(t, db, "bob")
	tag := seedTag(t, db, "Завтрак", "breakfast")
	flour := seedIngredient(t, db, "Мука", "г")

	created, err := service.CreateRecipe(ctx, recipeRequest(
		[]string{tag.ID.String()},
		[]domain.IngredientEntry{{ID: flour.ID.String(), Amount: 200}},
	), author.ID.String())
	require.NoError(t, err)

	t.Run("add", func(t *testing.T) {
		summary, err := service.AddFavorite(ctx, viewer.ID.String(), created.ID.String())
		require.NoError(t, err)
		assert.Equal(t, created.Name, summary.Name)
	})

	t.Run("double add rejected", func(t *testing.T) {
		_, err := service.AddFavorite(ctx, viewer.ID.String(), created.ID.String())
		assert.ErrorIs(t, err, domain.ErrAlreadyFavorited)
	})

	t.Run("flag visible to the viewer", func(t *testing.T) {
		detail, err := service.GetRecipe(ctx, created.ID.String(), viewer.ID.String())
		require.NoError(t, err)
		assert.True(t, detail.IsFavorited)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, service.RemoveFavorite(ctx, viewer.ID.String(), created.ID.String()))
	})

	t.Run("remove without favorite", func(t *testing.T) {
		err := service.RemoveFavorite(ctx, viewer.ID.String(), created.ID.String())
		assert.ErrorIs(t, err, domain.ErrNotFavorited)
	})

	t.Run("unknown recipe", func(t *testing.T) {
		_, err := service.AddFavorite(ctx, viewer.ID.String(), uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
	})
}

func TestCartLifecycle(t *testing.T) {
	service, db := setupRecipeService(t)
	ctx := context.Background()

	author := seedUser(t, db, "alice")
	viewer := seedUser(t, db, "bob")
	tag := seedTag(t, db, "Завтрак", "breakfast")
	flour := seedIngredient(t, db, "Мука", "г")

	created, err := service.CreateRecipe(ctx, recipeRequest(
		[]string{tag.ID.String()},
		[]domain.IngredientEntry{{ID: flour.ID.String(), Amount: 200}},
	), author.ID.String())
	require.NoError(t, err)

	t.Run("add", func(t *testing.T) {
		summary, err := service.AddToCart(ctx, viewer.ID.String(), created.ID.String())
		require.NoError(t, err)
		assert.Equal(t, created.Name, summary.Name)
	})

	t.Run("double add rejected", func(t *testing.T) {
		_, err := service.AddToCart(ctx, viewer.ID.String(), created.ID.String())
		assert.ErrorIs(t, err, domain.ErrAlreadyInCart)
	})

	t.Run("flag visible to the viewer", func(t *testing.T) {
		detail, err := service.GetRecipe(ctx, created.ID.String(), viewer.ID.String())
		require.NoError(t, err)
		assert.True(t, detail.IsInShoppingCart)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, service.RemoveFromCart(ctx, viewer.ID.String(), created.ID.String()))
	})

	t.Run("remove without cart entry", func(t *testing.T) {
		err := service.RemoveFromCart(ctx, viewer.ID.String(), created.ID.String())
		assert.ErrorIs(t, err, domain.ErrNotInCart)
	})
}

func TestGetRecipesFilters(t *testing.T) {
	service, db := setupRecipeService(t)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	breakfast := seedTag(t, db, "Завтрак", "breakfast")
	dinner := seedTag(t, db, "Ужин", "dinner")
	flour := seedIngredient(t, db, "Мука", "г")

	pancakes, err := service.CreateRecipe(ctx, domain.CreateRecipeRequest{
		Name:        "Блины",
		Text:        "Жарить.",
		CookingTime: 20,
		TagIDs:      []string{breakfast.ID.String()},
		Ingredients: []domain.IngredientEntry{{ID: flour.ID.String(), Amount: 200}},
	}, alice.ID.String())
	require.NoError(t, err)

	_, err = service.CreateRecipe(ctx, domain.CreateRecipeRequest{
		Name:        "Паста",
		Text:        "Варить.",
		CookingTime: 15,
		TagIDs:      []string{dinner.ID.String()},
		Ingredients: []domain.IngredientEntry{{ID: flour.ID.String(), Amount: 100}},
	}, bob.ID.String())
	require.NoError(t, err)

	_, err = service.AddFavorite(ctx, bob.ID.String(), pancakes.ID.String())
	require.NoError(t, err)
	_, err = service.AddToCart(ctx, bob.ID.String(), pancakes.ID.String())
	require.NoError(t, err)

	t.Run("no filters", func(t *testing.T) {
		recipes, count, err := service.GetRecipes(ctx, domain.RecipeFilter{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)
		assert.Len(t, recipes, 2)
	})

	t.Run("by author", func(t *testing.T) {
		recipes, count, err := service.GetRecipes(ctx, domain.RecipeFilter{
			AuthorID: alice.ID.String(), Page: 1, Limit: 10,
		})
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
		require.Len(t, recipes, 1)
		assert.Equal(t, "Блины", recipes[0].Name)
	})

	t.Run("by tag slug", func(t *testing.T) {
		recipes, count, err := service.GetRecipes(ctx, domain.RecipeFilter{
			TagSlugs: []string{"dinner"}, Page: 1, Limit: 10,
		})
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
		require.Len(t, recipes, 1)
		assert.Equal(t, "Паста", recipes[0].Name)
	})

	t.Run("tag slugs combine with OR", func(t *testing.T) {
		_, count, err := service.GetRecipes(ctx, domain.RecipeFilter{
			TagSlugs: []string{"breakfast", "dinner"}, Page: 1, Limit: 10,
		})
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)
	})

	t.Run("favorited for the viewer", func(t *testing.T) {
		recipes, count, err := service.GetRecipes(ctx, domain.RecipeFilter{
			ViewerID: bob.ID.String(), IsFavorited: true, Page: 1, Limit: 10,
		})
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
		require.Len(t, recipes, 1)
		assert.Equal(t, "Блины", recipes[0].Name)
		assert.True(t, recipes[0].IsFavorited)
	})

	t.Run("in cart for the viewer", func(t *testing.T) {
		recipes, count, err := service.GetRecipes(ctx, domain.RecipeFilter{
			ViewerID: bob.ID.String(), IsInCart: true, Page: 1, Limit: 10,
		})
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
		require.Len(t, recipes, 1)
		assert.Equal(t, "Блины", recipes[0].Name)
	})

	t.Run("viewer flags ignored for anonymous callers", func(t *testing.T) {
		_, count, err := service.GetRecipes(ctx, domain.RecipeFilter{
			IsFavorited: true, IsInCart: true, Page: 1, Limit: 10,
		})
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)
	})
}

func TestUploadRecipeImage(t *testing.T) {
	service, db := setupRecipeService(t)
	ctx := context.Background()

	author := seedUser(t, db, "alice")
	other := seedUser(t, db, "bob")
	tag := seedTag(t, db, "Завтрак", "breakfast")
	flour := seedIngredient(t, db, "Мука", "г")

	created, err := service.CreateRecipe(ctx, recipeRequest(
		[]string{tag.ID.String()},
		[]domain.IngredientEntry{{ID: flour.ID.String(), Amount: 200}},
	), author.ID.String())
	require.NoError(t, err)

	image := &multipart.FileHeader{
		Filename: "pancakes.png",
		Header:   textproto.MIMEHeader{"Content-Type": []string{"image/png"}},
	}

	t.Run("only the author can upload", func(t *testing.T) {
		_, err := service.UploadRecipeImage(ctx, created.ID.String(), image, other.ID.String())
		assert.ErrorIs(t, err, domain.ErrNotRecipeAuthor)
	})

	t.Run("image url is persisted", func(t *testing.T) {
		url, err := service.UploadRecipeImage(ctx, created.ID.String(), image, author.ID.String())
		require.NoError(t, err)
		assert.NotEmpty(t, url)

		detail, err := service.GetRecipe(ctx, created.ID.String(), "")
		require.NoError(t, err)
		assert.Equal(t, url, detail.ImageURL)
	})
}
