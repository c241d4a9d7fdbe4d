package handler

import (
	"go-inventory-ledger/internal/model"
	"go-inventory-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultTransactionLimit = 20

type TransactionHandler struct {
	ledger service.LedgerService
}

func NewTransactionHandler(ledger service.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

func transactionResponses(entries []model.Transaction) []model.TransactionResponse {
	out := make([]model.TransactionResponse, 0, len(entries))
	for i := range entries {
		out = append(out, entries[i].ToResponse())
	}
	return out
}

// GET /api/v1/transactions?page&limit&item
func (h *TransactionHandler) GetTransactions(c *fiber.Ctx) error {
	page, err := positiveQuery(c, "page", 1)
	if err != nil {
		return badRequest(c, err.Error())
	}
	limit, err := positiveQuery(c, "limit", defaultTransactionLimit)
	if err != nil {
		return badRequest(c, err.Error())
	}
	itemID, err := optionalUUIDQuery(c, "item")
	if err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.ledger.List(c.UserContext(), service.TransactionQuery{ItemID: itemID, Page: page, Limit: limit})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"transactions": transactionResponses(result.Transactions),
		"pagination":   result.Pagination,
	})
}

// GetItemTransactions returns the full history of one item.
// GET /api/v1/transactions/item/:itemId
func (h *TransactionHandler) GetItemTransactions(c *fiber.Ctx) error {
	itemID, err := uuidParam(c, "itemId")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}

	entries, err := h.ledger.ListForItem(c.UserContext(), itemID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(transactionResponses(entries))
}
