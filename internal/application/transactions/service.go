package transactions

import (
	"context"
	"time"

	"dorm-exchange-backend/internal/domain"
	"dorm-exchange-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service settles accepted matches. Confirm is the only code path that
// reassigns room occupants; it re-verifies occupancy against the parties
// recorded at acceptance before writing anything.
type Service struct {
	DB *gorm.DB
	// ConfirmBothParties requires one confirm call from each party before
	// settlement; off, a single confirm from either party completes it.
	ConfirmBothParties bool
}

// Confirm settles the transaction. With two-party confirmation enabled the
// first call moves PENDING to IN_PROGRESS and records who confirmed; the
// second call, from the other party, performs the settlement.
func (s *Service) Confirm(ctx context.Context, txID, actor uuid.UUID) (*domain.Transaction, error) {
	var settled *domain.Transaction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.lockTransaction(tx, txID)
		if err != nil {
			return err
		}
		if !t.InvolvesUser(actor) {
			return apperror.Forbidden("You are not a party in this transaction")
		}

		switch t.Status {
		case domain.TxPending:
			if s.ConfirmBothParties {
				if err := guardedTxTransition(tx, t, domain.TxInProgress, map[string]interface{}{
					"confirmed_by": actor,
				}); err != nil {
					return err
				}
				t.ConfirmedBy = &actor
				settled = t
				return nil
			}
		case domain.TxInProgress:
			if !s.ConfirmBothParties {
				return apperror.InvalidState("Transaction is %s, not PENDING", t.Status)
			}
			if t.ConfirmedBy != nil && *t.ConfirmedBy == actor {
				return apperror.InvalidState("You already confirmed this transaction")
			}
		default:
			return apperror.InvalidState("Transaction is %s and cannot be confirmed", t.Status)
		}

		if err := s.settle(tx, t); err != nil {
			return err
		}
		settled = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("tx_id", txID.String()).
		Str("status", string(settled.Status)).
		Msg("Transaction confirmed")
	return settled, nil
}

// settle performs the occupant handover. All occupancy checks run against
// the current room records; any drift since acceptance aborts with a stale
// occupant error and no writes.
func (s *Service) settle(tx *gorm.DB, t *domain.Transaction) error {
	now := time.Now().UTC()

	switch t.TransactionType {
	case domain.TxLeaseTransfer:
		room, err := lockRoom(tx, *t.RoomID)
		if err != nil {
			return err
		}
		if room.OccupantUID == nil || *room.OccupantUID != *t.FromUID {
			return apperror.StaleOccupant("Room occupant changed since acceptance")
		}
		if err := moveOccupant(tx, room.RoomID, *t.ToUID); err != nil {
			return err
		}
		if err := clearCurrentRoom(tx, *t.FromUID, room.RoomID); err != nil {
			return err
		}
	case domain.TxSwap:
		roomA, err := lockRoom(tx, *t.PartyARoomID)
		if err != nil {
			return err
		}
		roomB, err := lockRoom(tx, *t.PartyBRoomID)
		if err != nil {
			return err
		}
		if roomA.OccupantUID == nil || *roomA.OccupantUID != *t.PartyAUID {
			return apperror.StaleOccupant("Room occupant changed since acceptance")
		}
		if roomB.OccupantUID == nil || *roomB.OccupantUID != *t.PartyBUID {
			return apperror.StaleOccupant("Room occupant changed since acceptance")
		}
		if err := moveOccupant(tx, roomA.RoomID, *t.PartyBUID); err != nil {
			return err
		}
		if err := moveOccupant(tx, roomB.RoomID, *t.PartyAUID); err != nil {
			return err
		}
	default:
		return apperror.Internal("Unknown transaction type", nil)
	}

	if err := completeListings(tx, t, now); err != nil {
		return err
	}
	if err := guardedTxTransition(tx, t, domain.TxCompleted, map[string]interface{}{
		"completed_at": now,
	}); err != nil {
		return err
	}
	t.CompletedAt = &now
	return nil
}

// Cancel voids the settlement. The underlying listings end CANCELLED rather
// than reopening; the parties relist if they still want out.
func (s *Service) Cancel(ctx context.Context, txID, actor uuid.UUID) (*domain.Transaction, error) {
	var cancelled *domain.Transaction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.lockTransaction(tx, txID)
		if err != nil {
			return err
		}
		if !t.InvolvesUser(actor) {
			return apperror.Forbidden("You are not a party in this transaction")
		}
		if t.Status != domain.TxPending && t.Status != domain.TxInProgress {
			return apperror.InvalidState("Transaction is %s and cannot be cancelled", t.Status)
		}
		if err := guardedTxTransition(tx, t, domain.TxCancelled, nil); err != nil {
			return err
		}
		if err := cancelListingsAndMatches(tx, t, actor); err != nil {
			return err
		}
		cancelled = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("tx_id", txID.String()).Msg("Transaction cancelled")
	return cancelled, nil
}

func (s *Service) GetTransaction(ctx context.Context, txID, requesterUID uuid.UUID) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := s.DB.WithContext(ctx).Where("tx_id = ?", txID).First(&t).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("Transaction %s not found", txID)
		}
		return nil, apperror.Internal("Failed to fetch transaction", err)
	}
	if !t.InvolvesUser(requesterUID) {
		return nil, apperror.Forbidden("You are not a party in this transaction")
	}
	return &t, nil
}

func (s *Service) ListUserTransactions(ctx context.Context, uid uuid.UUID, status string) ([]domain.Transaction, error) {
	q := s.DB.WithContext(ctx).
		Where("from_uid = ? OR to_uid = ? OR party_a_uid = ? OR party_b_uid = ?", uid, uid, uid, uid)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var ts []domain.Transaction
	if err := q.Order("initiated_at DESC").Find(&ts).Error; err != nil {
		return nil, apperror.Internal("Failed to fetch transactions", err)
	}
	return ts, nil
}

func (s *Service) lockTransaction(tx *gorm.DB, txID uuid.UUID) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := tx.Where("tx_id = ?", txID).First(&t).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("Transaction %s not found", txID)
		}
		return nil, apperror.Internal("Failed to fetch transaction", err)
	}
	return &t, nil
}

func guardedTxTransition(tx *gorm.DB, t *domain.Transaction, to domain.TransactionStatus, extra map[string]interface{}) error {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(&domain.Transaction{}).
		Where("tx_id = ? AND status = ?", t.TxID, t.Status).
		Updates(updates)
	if res.Error != nil {
		return apperror.Internal("Failed to update transaction status", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.InvalidState("Transaction %s was modified concurrently", t.TxID)
	}
	t.Status = to
	return nil
}

func lockRoom(tx *gorm.DB, roomID uuid.UUID) (*domain.Room, error) {
	var room domain.Room
	if err := tx.Where("room_id = ?", roomID).First(&room).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("Room %s not found", roomID)
		}
		return nil, apperror.Internal("Failed to fetch room", err)
	}
	return &room, nil
}

// moveOccupant sets the room's occupant and points the user's profile at the
// room.
func moveOccupant(tx *gorm.DB, roomID, uid uuid.UUID) error {
	if err := tx.Model(&domain.Room{}).
		Where("room_id = ?", roomID).
		Update("occupant_uid", uid).Error; err != nil {
		return apperror.Internal("Failed to reassign room occupant", err)
	}
	if err := tx.Model(&domain.User{}).
		Where("uid = ?", uid).
		Update("current_room_id", roomID).Error; err != nil {
		return apperror.Internal("Failed to update occupant profile", err)
	}
	return nil
}

// clearCurrentRoom unlinks a user from a room they handed over, unless they
// were already moved somewhere else in the same settlement.
func clearCurrentRoom(tx *gorm.DB, uid, roomID uuid.UUID) error {
	if err := tx.Model(&domain.User{}).
		Where("uid = ? AND current_room_id = ?", uid, roomID).
		Update("current_room_id", nil).Error; err != nil {
		return apperror.Internal("Failed to update occupant profile", err)
	}
	return nil
}

// completeListings closes out every listing behind the settlement.
func completeListings(tx *gorm.DB, t *domain.Transaction, now time.Time) error {
	for _, listing := range settlementListings(tx, t) {
		if listing == nil {
			continue
		}
		if !domain.CanTransition(listing.ListingType, listing.Status, domain.ListingCompleted) {
			return apperror.InvalidState("Listing %s cannot complete from %s", listing.ListingID, listing.Status)
		}
		res := tx.Model(&domain.Listing{}).
			Where("listing_id = ? AND status = ?", listing.ListingID, listing.Status).
			Updates(map[string]interface{}{
				"status":  domain.ListingCompleted,
				"version": listing.Version + 1,
			})
		if res.Error != nil {
			return apperror.Internal("Failed to complete listing", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.InvalidState("Listing %s was modified concurrently", listing.ListingID)
		}
		event := &domain.ListingEvent{
			ListingID: listing.ListingID,
			EventType: domain.EventCompleted,
			CreatedAt: now,
		}
		if err := tx.Create(event).Error; err != nil {
			return apperror.Internal("Failed to record listing event", err)
		}
	}
	return nil
}

// cancelListingsAndMatches marks the settlement's listings CANCELLED and its
// accepted matches CANCELLED.
func cancelListingsAndMatches(tx *gorm.DB, t *domain.Transaction, actor uuid.UUID) error {
	now := time.Now().UTC()
	for _, listing := range settlementListings(tx, t) {
		if listing == nil || domain.IsTerminalListingStatus(listing.Status) {
			continue
		}
		if !domain.CanTransition(listing.ListingType, listing.Status, domain.ListingCancelled) {
			return apperror.InvalidState("Listing %s cannot cancel from %s", listing.ListingID, listing.Status)
		}
		res := tx.Model(&domain.Listing{}).
			Where("listing_id = ? AND status = ?", listing.ListingID, listing.Status).
			Updates(map[string]interface{}{
				"status":  domain.ListingCancelled,
				"version": listing.Version + 1,
			})
		if res.Error != nil {
			return apperror.Internal("Failed to cancel listing", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.InvalidState("Listing %s was modified concurrently", listing.ListingID)
		}
		event := &domain.ListingEvent{
			ListingID: listing.ListingID,
			EventType: domain.EventCancelled,
			ActorUID:  &actor,
			CreatedAt: now,
		}
		if err := tx.Create(event).Error; err != nil {
			return apperror.Internal("Failed to record listing event", err)
		}
	}

	matchIDs := make([]uuid.UUID, 0, 2)
	for _, id := range []*uuid.UUID{t.MatchID, t.MatchAID, t.MatchBID} {
		if id != nil {
			matchIDs = append(matchIDs, *id)
		}
	}
	if len(matchIDs) > 0 {
		if err := tx.Model(&domain.Match{}).
			Where("match_id IN ? AND status = ?", matchIDs, domain.MatchAccepted).
			Updates(map[string]interface{}{
				"status":       domain.MatchCancelled,
				"responded_at": now,
			}).Error; err != nil {
			return apperror.Internal("Failed to cancel matches", err)
		}
	}
	return nil
}

// settlementListings resolves the listing behind each of the settlement's
// accepted matches. Missing listings come back nil and are skipped.
func settlementListings(tx *gorm.DB, t *domain.Transaction) []*domain.Listing {
	var ids []*uuid.UUID
	if t.TransactionType == domain.TxSwap {
		ids = []*uuid.UUID{t.MatchAID, t.MatchBID}
	} else {
		ids = []*uuid.UUID{t.MatchID}
	}
	out := make([]*domain.Listing, 0, len(ids))
	for _, id := range ids {
		if id == nil {
			out = append(out, nil)
			continue
		}
		var match domain.Match
		if err := tx.Where("match_id = ?", *id).First(&match).Error; err != nil {
			out = append(out, nil)
			continue
		}
		var listing domain.Listing
		if err := tx.Where("listing_id = ?", match.ListingID).First(&listing).Error; err != nil {
			out = append(out, nil)
			continue
		}
		out = append(out, &listing)
	}
	return out
}
