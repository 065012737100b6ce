package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Listing is an offer to hand over a lease (LEASE_TRANSFER) or exchange rooms
// (SWAP_REQUEST). Room category and building are snapshotted at creation so
// matching never re-reads the directory. Listings are never deleted; they end
// in COMPLETED, CANCELLED or EXPIRED.
type Listing struct {
	ListingID    uuid.UUID     `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	ListingType  ListingType   `gorm:"column:listing_type;type:varchar(16);not null;index" json:"listing_type"`
	Status       ListingStatus `gorm:"column:status;type:varchar(20);not null;index" json:"status"`
	Version      int           `gorm:"column:version;not null;default:1" json:"version"`
	OwnerUID     uuid.UUID     `gorm:"column:owner_uid;type:uuid;not null;index" json:"owner_uid"`
	RoomID       uuid.UUID     `gorm:"column:room_id;type:uuid;not null;index" json:"room_id"`
	RoomCategory string        `gorm:"column:room_category;type:varchar(4);not null;index" json:"room_category"`
	RoomBuilding string        `gorm:"column:room_building;not null;index" json:"room_building"`

	LeaseStartDate time.Time  `gorm:"column:lease_start_date;not null" json:"lease_start_date"`
	LeaseEndDate   time.Time  `gorm:"column:lease_end_date;not null" json:"lease_end_date"`
	MoveInDate     *time.Time `gorm:"column:move_in_date" json:"move_in_date"`
	Description    string     `gorm:"column:description" json:"description"`
	AskingPrice    *int       `gorm:"column:asking_price" json:"asking_price"`

	// Swap request criteria; empty for lease transfers.
	DesiredCategories StringList `gorm:"column:desired_categories;type:json" json:"desired_categories"`
	DesiredBuildings  StringList `gorm:"column:desired_buildings;type:json" json:"desired_buildings"`
	DesiredMinStart   *time.Time `gorm:"column:desired_min_start" json:"desired_min_start"`
	DesiredMaxEnd     *time.Time `gorm:"column:desired_max_end" json:"desired_max_end"`

	// Set when a match on this listing is accepted. ReplacementMatchID is the
	// accepted match on this listing; TargetMatchID is the paired swap leg on
	// the counterpart listing, when any.
	ReplacementMatchID *uuid.UUID `gorm:"column:replacement_match_id;type:uuid" json:"replacement_match_id"`
	TargetMatchID      *uuid.UUID `gorm:"column:target_match_id;type:uuid" json:"target_match_id"`

	ExpiresAt time.Time `gorm:"column:expires_at;not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Listing) TableName() string {
	return "listings"
}

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ListingID == uuid.Nil {
		l.ListingID = uuid.New()
	}
	return nil
}

// IsSwap reports whether the listing is a swap request.
func (l *Listing) IsSwap() bool {
	return l.ListingType == ListingSwapRequest
}
