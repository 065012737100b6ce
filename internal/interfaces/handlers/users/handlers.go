package users

import (
	usersvc "dorm-exchange-backend/internal/application/users"
	"dorm-exchange-backend/internal/middleware"
	"dorm-exchange-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *usersvc.Service
}

// Register POST /api/v1/users/register — admin-only resident seeding.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var in usersvc.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	u, err := h.Service.Register(c.Context(), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "User registered successfully", fiber.Map{"user": u}, nil)
}

// MyProfile GET /api/v1/users/me/profile
func (h *Handlers) MyProfile(c *fiber.Ctx) error {
	u, err := h.Service.GetProfile(c.Context(), middleware.ActorUID(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Profile found", fiber.Map{"user": u}, nil)
}

// UpdateMyProfile PUT /api/v1/users/me/profile
func (h *Handlers) UpdateMyProfile(c *fiber.Ctx) error {
	var in usersvc.UpdateProfileInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	u, err := h.Service.UpdateProfile(c.Context(), middleware.ActorUID(c), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Profile updated successfully", fiber.Map{"user": u}, nil)
}

// PublicProfile GET /api/v1/users/:uid/public
func (h *Handlers) PublicProfile(c *fiber.Ctx) error {
	uid, err := uuid.Parse(c.Params("uid"))
	if err != nil {
		return response.Error(c, "Invalid user ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	p, err := h.Service.GetPublicProfile(c.Context(), uid)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Profile found", fiber.Map{"user": p}, nil)
}
