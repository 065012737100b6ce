package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction is the settlement record for an accepted match (or matched
// swap pair). Transfer transactions use the From/To/Room fields; swap
// transactions use the PartyA/PartyB fields and both match ids. A room's
// occupant changes only through the confirm path of this record.
type Transaction struct {
	TxID            uuid.UUID         `gorm:"column:tx_id;type:uuid;primaryKey" json:"tx_id"`
	TransactionType TransactionType   `gorm:"column:transaction_type;type:varchar(16);not null" json:"transaction_type"`
	Status          TransactionStatus `gorm:"column:status;type:varchar(12);not null;index" json:"status"`

	// Lease transfer fields.
	MatchID *uuid.UUID `gorm:"column:match_id;type:uuid;index" json:"match_id"`
	FromUID *uuid.UUID `gorm:"column:from_uid;type:uuid;index" json:"from_uid"`
	ToUID   *uuid.UUID `gorm:"column:to_uid;type:uuid;index" json:"to_uid"`
	RoomID  *uuid.UUID `gorm:"column:room_id;type:uuid" json:"room_id"`

	// Swap fields. MatchAID is the accepted leg on party A's listing; party A
	// is the owner of that listing.
	MatchAID     *uuid.UUID `gorm:"column:match_a_id;type:uuid" json:"match_a_id"`
	MatchBID     *uuid.UUID `gorm:"column:match_b_id;type:uuid" json:"match_b_id"`
	PartyAUID    *uuid.UUID `gorm:"column:party_a_uid;type:uuid;index" json:"party_a_uid"`
	PartyARoomID *uuid.UUID `gorm:"column:party_a_room_id;type:uuid" json:"party_a_room_id"`
	PartyBUID    *uuid.UUID `gorm:"column:party_b_uid;type:uuid;index" json:"party_b_uid"`
	PartyBRoomID *uuid.UUID `gorm:"column:party_b_room_id;type:uuid" json:"party_b_room_id"`

	LeaseStartDate time.Time  `gorm:"column:lease_start_date;not null" json:"lease_start_date"`
	LeaseEndDate   time.Time  `gorm:"column:lease_end_date;not null" json:"lease_end_date"`
	ConfirmedBy    *uuid.UUID `gorm:"column:confirmed_by;type:uuid" json:"confirmed_by"`
	InitiatedAt    time.Time  `gorm:"column:initiated_at;not null" json:"initiated_at"`
	CompletedAt    *time.Time `gorm:"column:completed_at" json:"completed_at"`
	FailedAt       *time.Time `gorm:"column:failed_at" json:"failed_at"`
	FailureReason  *string    `gorm:"column:failure_reason" json:"failure_reason"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.TxID == uuid.Nil {
		t.TxID = uuid.New()
	}
	return nil
}

// InvolvesUser reports whether uid is a party to the settlement.
func (t *Transaction) InvolvesUser(uid uuid.UUID) bool {
	for _, p := range []*uuid.UUID{t.FromUID, t.ToUID, t.PartyAUID, t.PartyBUID} {
		if p != nil && *p == uid {
			return true
		}
	}
	return false
}
