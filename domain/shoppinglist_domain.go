package domain

import (
	"errors"
)

const ShoppingListFileName = "shopping_list.pdf"

var (
	MessageSuccessDownloadShoppingList = "shopping list generated successfully"
	MessageFailedDownloadShoppingList  = "failed to generate shopping list"

	ErrShoppingListFontMissing = errors.New("shopping list font file not found")
)

// ShoppingListLine is one aggregated entry: quantities of the same
// ingredient and unit summed across every recipe in the user's cart.
type ShoppingListLine struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Total           int    `json:"total"`
}
