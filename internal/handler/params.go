package handler

import (
	"fmt"
	"strconv"

	"go-inventory-ledger/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// positiveQuery reads an integer query parameter that must be >= 1.
func positiveQuery(c *fiber.Ctx, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return v, nil
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// optionalUUIDQuery returns nil when the parameter is absent.
func optionalUUIDQuery(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", name)
	}
	return &id, nil
}

// callerID is always present behind RequireAuth.
func callerID(c *fiber.Ctx) uuid.UUID {
	id, _ := middleware.CallerID(c)
	return id
}
