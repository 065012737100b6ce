package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Match is a proposal (bid or claim) against a listing. For swaps two
// matches are created at once, one per listing, linked through
// PairedMatchID; the pair is accepted, rejected, cancelled and expired as a
// unit. Offered room fields are a snapshot taken at proposal time.
type Match struct {
	MatchID           uuid.UUID   `gorm:"column:match_id;type:uuid;primaryKey" json:"match_id"`
	MatchType         MatchType   `gorm:"column:match_type;type:varchar(16);not null" json:"match_type"`
	Status            MatchStatus `gorm:"column:status;type:varchar(12);not null;index" json:"status"`
	Version           int         `gorm:"column:version;not null;default:1" json:"version"`
	ListingID         uuid.UUID   `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	ClaimantUID       uuid.UUID   `gorm:"column:claimant_uid;type:uuid;not null;index" json:"claimant_uid"`
	ClaimantListingID *uuid.UUID  `gorm:"column:claimant_listing_id;type:uuid" json:"claimant_listing_id"`

	OfferedRoomID       uuid.UUID `gorm:"column:offered_room_id;type:uuid;not null" json:"offered_room_id"`
	OfferedRoomCategory string    `gorm:"column:offered_room_category;type:varchar(4);not null" json:"offered_room_category"`
	OfferedRoomBuilding string    `gorm:"column:offered_room_building;not null" json:"offered_room_building"`

	PairedMatchID   *uuid.UUID `gorm:"column:paired_match_id;type:uuid;index" json:"paired_match_id"`
	Message         string     `gorm:"column:message" json:"message"`
	SupersedeReason *string    `gorm:"column:supersede_reason" json:"supersede_reason"`

	ProposedAt  time.Time  `gorm:"column:proposed_at;not null" json:"proposed_at"`
	RespondedAt *time.Time `gorm:"column:responded_at" json:"responded_at"`
	ExpiresAt   time.Time  `gorm:"column:expires_at;not null;index" json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Match) TableName() string {
	return "matches"
}

func (m *Match) BeforeCreate(tx *gorm.DB) error {
	if m.MatchID == uuid.Nil {
		m.MatchID = uuid.New()
	}
	return nil
}
