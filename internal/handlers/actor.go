package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/models"
)

// parseActor rebuilds the authenticated caller from the token claims the
// auth middleware stored in locals.
func parseActor(c *fiber.Ctx) (models.Actor, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return models.Actor{}, strconv.ErrSyntax
	}
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return models.Actor{}, err
	}
	role, ok := c.Locals("role").(string)
	if !ok {
		return models.Actor{}, strconv.ErrSyntax
	}
	return models.Actor{ID: userID, Role: role}, nil
}

func parseIDParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, strconv.ErrSyntax
	}
	return id, nil
}
