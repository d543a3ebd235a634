package shoppinglist

import (
	"context"

	"foodgram-backend/domain"
)

type (
	ShoppingListService interface {
		BuildShoppingList(ctx context.Context, userID string) ([]domain.ShoppingListLine, error)
		DownloadShoppingList(ctx context.Context, userID string) ([]byte, error)
	}

	shoppingListService struct {
		shoppingListRepository ShoppingListRepository
		renderer               DocumentRenderer
	}
)

func NewShoppingListService(shoppingListRepository ShoppingListRepository, renderer DocumentRenderer) ShoppingListService {
	return &shoppingListService{
		shoppingListRepository: shoppingListRepository,
		renderer:               renderer,
	}
}

// BuildShoppingList returns the aggregated lines for the user's cart. An
// empty cart yields an empty list, not an error.
func (s *shoppingListService) BuildShoppingList(ctx context.Context, userID string) ([]domain.ShoppingListLine, error) {
	return s.shoppingListRepository.GetShoppingList(ctx, userID)
}

func (s *shoppingListService) DownloadShoppingList(ctx context.Context, userID string) ([]byte, error) {
	lines, err := s.BuildShoppingList(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.renderer.Render(lines)
}
