package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Room is owned by the room directory. The exchange core only reads it,
// except for the settlement confirm path which reassigns OccupantUID.
type Room struct {
	RoomID      uuid.UUID  `gorm:"column:room_id;type:uuid;primaryKey" json:"room_id"`
	Building    string     `gorm:"column:building;not null;index" json:"building"`
	Floor       int        `gorm:"column:floor;not null" json:"floor"`
	RoomNumber  string     `gorm:"column:room_number;not null" json:"room_number"`
	Category    string     `gorm:"column:category;type:varchar(4);not null;index" json:"category"`
	Description string     `gorm:"column:description" json:"description"`
	Amenities   StringList `gorm:"column:amenities;type:json" json:"amenities"`
	OccupantUID *uuid.UUID `gorm:"column:occupant_uid;type:uuid" json:"occupant_uid"`
	IsActive    bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Room) TableName() string {
	return "rooms"
}

func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.RoomID == uuid.Nil {
		r.RoomID = uuid.New()
	}
	return nil
}
