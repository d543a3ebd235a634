package shoppinglist

import (
	"context"

	"gorm.io/gorm"

	"foodgram-backend/domain"
)

type (
	ShoppingListRepository interface {
		GetShoppingList(ctx context.Context, userID string) ([]domain.ShoppingListLine, error)
	}

	shoppingListRepository struct {
		db *gorm.DB
	}
)

func NewShoppingListRepository(db *gorm.DB) ShoppingListRepository {
	return &shoppingListRepository{db: db}
}

// GetShoppingList aggregates the ingredient amounts of every recipe in the
// user's cart. Amounts of the same (name, unit) pair are summed with integer
// SQL arithmetic; ordering is fixed so repeated calls return identical lists.
func (r *shoppingListRepository) GetShoppingList(ctx context.Context, userID string) ([]domain.ShoppingListLine, error) {
	var lines []domain.ShoppingListLine

	err := r.db.WithContext(ctx).
		Table("amount_of_ingredients").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(amount_of_ingredients.amount) AS total").
		Joins("JOIN ingredients ON ingredients.id = amount_of_ingredients.ingredient_id").
		Joins("JOIN carts ON carts.recipe_id = amount_of_ingredients.recipe_id").
		Where("carts.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name asc, ingredients.measurement_unit asc").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}

	if lines == nil {
		lines = []domain.ShoppingListLine{}
	}
	return lines, nil
}
