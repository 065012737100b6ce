package rooms

import (
	roomsvc "dorm-exchange-backend/internal/application/rooms"
	"dorm-exchange-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *roomsvc.Service
}

// List GET /api/v1/rooms?category=&building=
func (h *Handlers) List(c *fiber.Ctx) error {
	rooms, err := h.Service.ListRooms(c.Context(), c.Query("category"), c.Query("building"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Rooms fetched successfully", fiber.Map{"rooms": rooms}, nil)
}

// Get GET /api/v1/rooms/:room_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	roomID, err := uuid.Parse(c.Params("room_id"))
	if err != nil {
		return response.Error(c, "Invalid room ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	room, err := h.Service.GetRoom(c.Context(), roomID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Room found", fiber.Map{"room": room}, nil)
}

// Create POST /api/v1/rooms — admin only (middleware on the route).
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in roomsvc.CreateRoomInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	room, err := h.Service.CreateRoom(c.Context(), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Room created successfully", fiber.Map{"room": room}, nil)
}

// Update PUT /api/v1/rooms/:room_id — admin only.
func (h *Handlers) Update(c *fiber.Ctx) error {
	roomID, err := uuid.Parse(c.Params("room_id"))
	if err != nil {
		return response.Error(c, "Invalid room ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	var in roomsvc.UpdateRoomInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	room, err := h.Service.UpdateRoom(c.Context(), roomID, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Room updated successfully", fiber.Map{"room": room}, nil)
}

type assignOccupantRequest struct {
	OccupantUID *uuid.UUID `json:"occupant_uid"`
}

// AssignOccupant POST /api/v1/rooms/:room_id/assign-occupant — admin
// bootstrap; the only occupant write outside settlement.
func (h *Handlers) AssignOccupant(c *fiber.Ctx) error {
	roomID, err := uuid.Parse(c.Params("room_id"))
	if err != nil {
		return response.Error(c, "Invalid room ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	var req assignOccupantRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	room, err := h.Service.AssignOccupant(c.Context(), roomID, req.OccupantUID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Occupant assigned successfully", fiber.Map{"room": room}, nil)
}
