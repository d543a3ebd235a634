package shoppinglist

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"foodgram-backend/domain"
	"foodgram-backend/entities"
)

// testFontCandidates are common locations of a Cyrillic-capable TTF on
// developer machines and CI images.
var testFontCandidates = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
}

func findTestFont() string {
	for _, path := range testFontCandidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func setupShoppingListDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Tag{},
		&entities.Ingredient{},
		&entities.Recipe{},
		&entities.AmountOfIngredient{},
		&entities.Cart{},
	)
	require.NoError(t, err)
	return db
}

func seedCartRecipe(t *testing.T, db *gorm.DB, userID uuid.UUID, name string, amounts map[*entities.Ingredient]int) {
	recipe := &entities.Recipe{
		ID:          uuid.New(),
		AuthorID:    userID,
		Name:        name,
		Text:        "x",
		CookingTime: 10,
	}
	require.NoError(t, db.Create(recipe).Error)

	for ingredient, amount := range amounts {
		require.NoError(t, db.Create(&entities.AmountOfIngredient{
			ID:           uuid.New(),
			RecipeID:     recipe.ID,
			IngredientID: ingredient.ID,
			Amount:       amount,
		}).Error)
	}

	require.NoError(t, db.Create(&entities.Cart{
		ID:       uuid.New(),
		UserID:   userID,
		RecipeID: recipe.ID,
	}).Error)
}

func TestBuildShoppingListEmpty(t *testing.T) {
	db := setupShoppingListDB(t)
	service := NewShoppingListService(NewShoppingListRepository(db), NewPDFRenderer(""))

	lines, err := service.BuildShoppingList(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.NotNil(t, lines)
}

func TestBuildShoppingListAggregates(t *testing.T) {
	db := setupShoppingListDB(t)
	service := NewShoppingListService(NewShoppingListRepository(db), NewPDFRenderer(""))

	user := &entities.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}
	require.NoError(t, db.Create(user).Error)

	salt := &entities.Ingredient{ID: uuid.New(), Name: "Соль", MeasurementUnit: "г"}
	flour := &entities.Ingredient{ID: uuid.New(), Name: "Мука", MeasurementUnit: "г"}
	require.NoError(t, db.Create(salt).Error)
	require.NoError(t, db.Create(flour).Error)

	seedCartRecipe(t, db, user.ID, "Блины", map[*entities.Ingredient]int{salt: 5, flour: 200})
	seedCartRecipe(t, db, user.ID, "Суп", map[*entities.Ingredient]int{salt: 7})

	lines, err := service.BuildShoppingList(context.Background(), user.ID.String())
	require.NoError(t, err)
	require.Len(t, lines, 2)

	// ordered by ingredient name, then unit
	assert.Equal(t, "Мука", lines[0].Name)
	assert.Equal(t, 200, lines[0].Total)
	assert.Equal(t, "Соль", lines[1].Name)
	assert.Equal(t, "г", lines[1].MeasurementUnit)
	assert.Equal(t, 12, lines[1].Total)
}

func TestBuildShoppingListScopedToUser(t *testing.T) {
	db := setupShoppingListDB(t)
	service := NewShoppingListService(NewShoppingListRepository(db), NewPDFRenderer(""))

	alice := &entities.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}
	bob := &entities.User{ID: uuid.New(), Username: "bob", Email: "bob@example.com"}
	require.NoError(t, db.Create(alice).Error)
	require.NoError(t, db.Create(bob).Error)

	sugar := &entities.Ingredient{ID: uuid.New(), Name: "Сахар", MeasurementUnit: "г"}
	require.NoError(t, db.Create(sugar).Error)

	seedCartRecipe(t, db, alice.ID, "Пирог", map[*entities.Ingredient]int{sugar: 100})

	lines, err := service.BuildShoppingList(context.Background(), bob.ID.String())
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestFormatLine(t *testing.T) {
	line := domain.ShoppingListLine{Name: "Мука", MeasurementUnit: "г", Total: 200}
	assert.Equal(t, "Мука г 200", FormatLine(line))
}

func TestRenderMissingFont(t *testing.T) {
	renderer := NewPDFRenderer("testdata/no-such-font.ttf")
	_, err := renderer.Render([]domain.ShoppingListLine{})
	assert.ErrorIs(t, err, domain.ErrShoppingListFontMissing)
}

func TestDownloadShoppingList(t *testing.T) {
	fontPath := findTestFont()
	if fontPath == "" {
		t.Skip("no UTF-8 TTF font available on this machine")
	}

	db := setupShoppingListDB(t)
	service := NewShoppingListService(NewShoppingListRepository(db), NewPDFRenderer(fontPath))

	user := &entities.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}
	require.NoError(t, db.Create(user).Error)

	flour := &entities.Ingredient{ID: uuid.New(), Name: "Мука", MeasurementUnit: "г"}
	require.NoError(t, db.Create(flour).Error)

	seedCartRecipe(t, db, user.ID, "Блины", map[*entities.Ingredient]int{flour: 200})

	document, err := service.DownloadShoppingList(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(document, []byte("%PDF")))
}
