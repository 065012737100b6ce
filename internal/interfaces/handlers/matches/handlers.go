package matches

import (
	matchsvc "dorm-exchange-backend/internal/application/matches"
	"dorm-exchange-backend/internal/middleware"
	"dorm-exchange-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *matchsvc.Service
}

func parseMatchID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("match_id"))
}

// MyMatches GET /api/v1/matches/my?status=
func (h *Handlers) MyMatches(c *fiber.Ctx) error {
	ms, err := h.Service.ListUserMatches(c.Context(), middleware.ActorUID(c), c.Query("status"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Matches fetched successfully", fiber.Map{"matches": ms}, nil)
}

// Get GET /api/v1/matches/:match_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	matchID, err := parseMatchID(c)
	if err != nil {
		return response.Error(c, "Invalid match ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	m, err := h.Service.GetMatch(c.Context(), matchID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Match found", fiber.Map{"match": m}, nil)
}

// Accept POST /api/v1/matches/:match_id/accept
func (h *Handlers) Accept(c *fiber.Ctx) error {
	matchID, err := parseMatchID(c)
	if err != nil {
		return response.Error(c, "Invalid match ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	m, err := h.Service.Accept(c.Context(), matchID, middleware.ActorUID(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Match accepted successfully", fiber.Map{"match": m}, nil)
}

// Reject POST /api/v1/matches/:match_id/reject
func (h *Handlers) Reject(c *fiber.Ctx) error {
	matchID, err := parseMatchID(c)
	if err != nil {
		return response.Error(c, "Invalid match ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	m, err := h.Service.Reject(c.Context(), matchID, middleware.ActorUID(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Match rejected successfully", fiber.Map{"match": m}, nil)
}

// Cancel POST /api/v1/matches/:match_id/cancel — claimant withdraws a bid.
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	matchID, err := parseMatchID(c)
	if err != nil {
		return response.Error(c, "Invalid match ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	m, err := h.Service.CancelBid(c.Context(), matchID, middleware.ActorUID(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Match cancelled successfully", fiber.Map{"match": m}, nil)
}

// Contact GET /api/v1/matches/:match_id/contact — accepted matches only.
func (h *Handlers) Contact(c *fiber.Ctx) error {
	matchID, err := parseMatchID(c)
	if err != nil {
		return response.Error(c, "Invalid match ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	contact, err := h.Service.GetContact(c.Context(), matchID, middleware.ActorUID(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Contact info fetched successfully", fiber.Map{"contact": contact}, nil)
}
