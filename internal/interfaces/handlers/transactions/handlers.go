package transactions

import (
	txsvc "dorm-exchange-backend/internal/application/transactions"
	"dorm-exchange-backend/internal/middleware"
	"dorm-exchange-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *txsvc.Service
}

func parseTxID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("tx_id"))
}

// MyTransactions GET /api/v1/transactions/my?status=
func (h *Handlers) MyTransactions(c *fiber.Ctx) error {
	ts, err := h.Service.ListUserTransactions(c.Context(), middleware.ActorUID(c), c.Query("status"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Transactions fetched successfully", fiber.Map{"transactions": ts}, nil)
}

// Get GET /api/v1/transactions/:tx_id — parties only.
func (h *Handlers) Get(c *fiber.Ctx) error {
	txID, err := parseTxID(c)
	if err != nil {
		return response.Error(c, "Invalid transaction ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	t, err := h.Service.GetTransaction(c.Context(), txID, middleware.ActorUID(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Transaction found", fiber.Map{"transaction": t}, nil)
}

// Confirm POST /api/v1/transactions/:tx_id/confirm
func (h *Handlers) Confirm(c *fiber.Ctx) error {
	txID, err := parseTxID(c)
	if err != nil {
		return response.Error(c, "Invalid transaction ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	t, err := h.Service.Confirm(c.Context(), txID, middleware.ActorUID(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Transaction confirmed successfully", fiber.Map{"transaction": t}, nil)
}

// Cancel POST /api/v1/transactions/:tx_id/cancel
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	txID, err := parseTxID(c)
	if err != nil {
		return response.Error(c, "Invalid transaction ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	t, err := h.Service.Cancel(c.Context(), txID, middleware.ActorUID(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Transaction cancelled successfully", fiber.Map{"transaction": t}, nil)
}
