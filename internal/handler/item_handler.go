package handler

import (
	"go-inventory-ledger/internal/model"
	"go-inventory-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultItemLimit = 10

type ItemHandler struct {
	items  service.ItemService
	ledger service.LedgerService
}

func NewItemHandler(items service.ItemService, ledger service.LedgerService) *ItemHandler {
	return &ItemHandler{items: items, ledger: ledger}
}

func itemResponses(items []model.Item) []model.ItemResponse {
	out := make([]model.ItemResponse, 0, len(items))
	for i := range items {
		out = append(out, items[i].ToResponse())
	}
	return out
}

// GetItems lists the catalog.
// GET /api/v1/items?page&limit&search&category&status
func (h *ItemHandler) GetItems(c *fiber.Ctx) error {
	page, err := positiveQuery(c, "page", 1)
	if err != nil {
		return badRequest(c, err.Error())
	}
	limit, err := positiveQuery(c, "limit", defaultItemLimit)
	if err != nil {
		return badRequest(c, err.Error())
	}
	categoryID, err := optionalUUIDQuery(c, "category")
	if err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.items.List(c.UserContext(), service.ItemQuery{
		Search:     c.Query("search"),
		CategoryID: categoryID,
		Status:     model.ItemStatus(c.Query("status")),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"items":      itemResponses(result.Items),
		"pagination": result.Pagination,
	})
}

// GetLowStock lists active items at or below their threshold.
// GET /api/v1/items/low-stock
func (h *ItemHandler) GetLowStock(c *fiber.Ctx) error {
	items, err := h.items.LowStock(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(itemResponses(items))
}

// GET /api/v1/items/:id
func (h *ItemHandler) GetItem(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}

	item, err := h.items.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item.ToResponse())
}

// POST /api/v1/items
func (h *ItemHandler) CreateItem(c *fiber.Ctx) error {
	var req service.CreateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	item, err := h.items.Create(c.UserContext(), &req, callerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Item created", "data": item.ToResponse()})
}

// PUT /api/v1/items/:id
func (h *ItemHandler) UpdateItem(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}

	var req service.UpdateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	item, err := h.items.Update(c.UserContext(), id, &req, callerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Item updated", "data": item.ToResponse()})
}

// AdjustQuantity records one stock movement.
// PATCH /api/v1/items/:id/quantity
func (h *ItemHandler) AdjustQuantity(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}

	var req service.AdjustQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	item, entry, err := h.ledger.AdjustQuantity(c.UserContext(), id, &req, callerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":     "Quantity adjusted",
		"data":        item.ToResponse(),
		"transaction": entry.ToResponse(),
	})
}

// DELETE /api/v1/items/:id
func (h *ItemHandler) DeleteItem(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}

	if err := h.items.Delete(c.UserContext(), id, callerID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Item deleted"})
}
