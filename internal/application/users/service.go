package users

import (
	"context"

	"dorm-exchange-backend/internal/application/auth"
	"dorm-exchange-backend/internal/domain"
	"dorm-exchange-backend/internal/pkg/apperror"
	"dorm-exchange-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the profile store. It is also the contact source for the
// post-acceptance reveal in the match module.
type Service struct {
	DB *gorm.DB
}

type RegisterInput struct {
	Email         string     `json:"email"`
	Password      string     `json:"password"`
	FullName      string     `json:"full_name"`
	StudentID     string     `json:"student_id"`
	Phone         string     `json:"phone"`
	Role          string     `json:"role"`
	CurrentRoomID *uuid.UUID `json:"current_room_id"`
}

type UpdateProfileInput struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if !validation.IsValidEmail(in.Email) {
		return nil, apperror.Validation("Invalid email address")
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, apperror.Validation("Password must be at least 8 characters with a letter, a number and a special character")
	}
	if !validation.IsValidFullname(in.FullName) {
		return nil, apperror.Validation("Invalid full name")
	}
	if in.StudentID == "" {
		return nil, apperror.Validation("student_id is required")
	}
	role := in.Role
	if role == "" {
		role = domain.RoleResident
	}
	if role != domain.RoleResident && role != domain.RoleAdmin {
		return nil, apperror.Validation("Invalid role %q", role)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperror.Internal("Failed to hash password", err)
	}
	u := &domain.User{
		Email:         in.Email,
		PasswordHash:  hash,
		FullName:      in.FullName,
		StudentID:     in.StudentID,
		Phone:         in.Phone,
		Role:          role,
		CurrentRoomID: in.CurrentRoomID,
	}
	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		return nil, apperror.Internal("Failed to create user", err)
	}
	return u, nil
}

func (s *Service) GetProfile(ctx context.Context, uid uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("uid = ?", uid).First(&u).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("User %s not found", uid)
		}
		return nil, apperror.Internal("Failed to fetch user", err)
	}
	return &u, nil
}

func (s *Service) GetPublicProfile(ctx context.Context, uid uuid.UUID) (*domain.PublicProfile, error) {
	u, err := s.GetProfile(ctx, uid)
	if err != nil {
		return nil, err
	}
	p := u.Public()
	return &p, nil
}

func (s *Service) UpdateProfile(ctx context.Context, uid uuid.UUID, in UpdateProfileInput) (*domain.User, error) {
	u, err := s.GetProfile(ctx, uid)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.FullName != nil {
		if !validation.IsValidFullname(*in.FullName) {
			return nil, apperror.Validation("Invalid full name")
		}
		updates["full_name"] = *in.FullName
	}
	if in.Phone != nil {
		updates["phone"] = *in.Phone
	}
	if len(updates) == 0 {
		return u, nil
	}
	if err := s.DB.WithContext(ctx).Model(u).Updates(updates).Error; err != nil {
		return nil, apperror.Internal("Failed to update user", err)
	}
	return u, nil
}
