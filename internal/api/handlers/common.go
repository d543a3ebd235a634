package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"foodgram-backend/domain"
)

// statusFromError maps domain errors onto HTTP statuses. Removal of a
// relation that does not exist stays a 400, matching the add/remove toggle
// contract; only missing entities become 404.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, domain.ErrRecipeNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrTagNotFound),
		errors.Is(err, domain.ErrIngredientNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyFavorited),
		errors.Is(err, domain.ErrAlreadyInCart),
		errors.Is(err, domain.ErrAlreadyFollowing),
		errors.Is(err, domain.ErrTagSlugTaken),
		errors.Is(err, domain.ErrIngredientExists),
		errors.Is(err, domain.ErrEmailAlreadyRegistered),
		errors.Is(err, domain.ErrUsernameTaken):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrNotRecipeAuthor),
		errors.Is(err, domain.ErrUserNotAllowed):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusBadRequest
	}
}

// viewerID returns the resolved caller id, or "" for anonymous requests.
func viewerID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
