package rooms

import (
	"context"

	"dorm-exchange-backend/internal/domain"
	"dorm-exchange-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the room directory. Listings and matching only read from it;
// settlement is the single writer of occupancy, and the admin assign
// operation exists only to bootstrap inventory.
type Service struct {
	DB *gorm.DB
}

type CreateRoomInput struct {
	Building    string   `json:"building"`
	Floor       int      `json:"floor"`
	RoomNumber  string   `json:"room_number"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Amenities   []string `json:"amenities"`
}

type UpdateRoomInput struct {
	Description *string  `json:"description"`
	Amenities   []string `json:"amenities"`
	IsActive    *bool    `json:"is_active"`
}

func (s *Service) CreateRoom(ctx context.Context, in CreateRoomInput) (*domain.Room, error) {
	if in.Building == "" || in.RoomNumber == "" {
		return nil, apperror.Validation("building and room_number are required")
	}
	if !domain.IsValidRoomCategory(in.Category) {
		return nil, apperror.Validation("Invalid room category %q", in.Category)
	}
	room := &domain.Room{
		Building:    in.Building,
		Floor:       in.Floor,
		RoomNumber:  in.RoomNumber,
		Category:    in.Category,
		Description: in.Description,
		Amenities:   in.Amenities,
		IsActive:    true,
	}
	if err := s.DB.WithContext(ctx).Create(room).Error; err != nil {
		return nil, apperror.Internal("Failed to create room", err)
	}
	return room, nil
}

func (s *Service) GetRoom(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	var room domain.Room
	if err := s.DB.WithContext(ctx).Where("room_id = ?", roomID).First(&room).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("Room %s not found", roomID)
		}
		return nil, apperror.Internal("Failed to fetch room", err)
	}
	return &room, nil
}

func (s *Service) ListRooms(ctx context.Context, category, building string) ([]domain.Room, error) {
	q := s.DB.WithContext(ctx).Where("is_active = ?", true)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if building != "" {
		q = q.Where("building = ?", building)
	}
	var rooms []domain.Room
	if err := q.Order("building, room_number").Find(&rooms).Error; err != nil {
		return nil, apperror.Internal("Failed to fetch rooms", err)
	}
	return rooms, nil
}

func (s *Service) UpdateRoom(ctx context.Context, roomID uuid.UUID, in UpdateRoomInput) (*domain.Room, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Amenities != nil {
		updates["amenities"] = domain.StringList(in.Amenities)
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if len(updates) == 0 {
		return room, nil
	}
	if err := s.DB.WithContext(ctx).Model(room).Updates(updates).Error; err != nil {
		return nil, apperror.Internal("Failed to update room", err)
	}
	return room, nil
}

// AssignOccupant sets the room's occupant directly. Admin bootstrap only;
// every other occupancy change goes through settlement confirm.
func (s *Service) AssignOccupant(ctx context.Context, roomID uuid.UUID, occupantUID *uuid.UUID) (*domain.Room, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Room{}).Where("room_id = ?", roomID).
			Update("occupant_uid", occupantUID).Error; err != nil {
			return apperror.Internal("Failed to assign occupant", err)
		}
		if occupantUID != nil {
			if err := tx.Model(&domain.User{}).Where("uid = ?", *occupantUID).
				Update("current_room_id", roomID).Error; err != nil {
				return apperror.Internal("Failed to update occupant profile", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	room.OccupantUID = occupantUID
	return room, nil
}
