package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ListingEvent is the append-only audit trail of a listing's lifecycle.
type ListingEvent struct {
	EventID   uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	ListingID uuid.UUID      `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	EventType string         `gorm:"column:event_type;type:varchar(12);not null" json:"event_type"`
	ActorUID  *uuid.UUID     `gorm:"column:actor_uid;type:uuid" json:"actor_uid"`
	EventData datatypes.JSON `gorm:"column:event_data;type:json" json:"event_data"`
	CreatedAt time.Time      `json:"created_at"`
}

const (
	EventCreated   = "CREATED"
	EventUpdated   = "UPDATED"
	EventCancelled = "CANCELLED"
	EventClaimed   = "CLAIMED"
	EventAccepted  = "ACCEPTED"
	EventRejected  = "REJECTED"
	EventExpired   = "EXPIRED"
	EventCompleted = "COMPLETED"
)

func (ListingEvent) TableName() string {
	return "listing_events"
}

func (e *ListingEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
