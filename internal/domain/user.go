package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleResident = "resident"
	RoleAdmin    = "admin"
)

// User is a resident profile. The identity provider issues the uid; this row
// holds the profile and the contact details revealed after a match is
// accepted.
type User struct {
	UID           uuid.UUID  `gorm:"column:uid;type:uuid;primaryKey" json:"uid"`
	Email         string     `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash  string     `gorm:"column:password_hash;not null" json:"-"`
	FullName      string     `gorm:"column:full_name;not null" json:"full_name"`
	StudentID     string     `gorm:"column:student_id;not null" json:"student_id"`
	Phone         string     `gorm:"column:phone;not null" json:"phone"`
	Role          string     `gorm:"column:role;not null;default:resident" json:"role"`
	CurrentRoomID *uuid.UUID `gorm:"column:current_room_id;type:uuid" json:"current_room_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate sets the UID if not set (DBs without default uuid).
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UID == uuid.Nil {
		u.UID = uuid.New()
	}
	return nil
}

// PublicProfile is the reduced view exposed to other residents.
type PublicProfile struct {
	UID           uuid.UUID  `json:"uid"`
	FullName      string     `json:"full_name"`
	CurrentRoomID *uuid.UUID `json:"current_room_id"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{UID: u.UID, FullName: u.FullName, CurrentRoomID: u.CurrentRoomID}
}
