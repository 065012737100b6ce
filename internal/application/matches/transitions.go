package matches

import (
	"time"

	"dorm-exchange-backend/internal/domain"
	"dorm-exchange-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func statusIn(s domain.ListingStatus, set []domain.ListingStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func lockListing(tx *gorm.DB, listingID uuid.UUID) (*domain.Listing, error) {
	var listing domain.Listing
	if err := tx.Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("Listing %s not found", listingID)
		}
		return nil, apperror.Internal("Failed to fetch listing", err)
	}
	return &listing, nil
}

// guardedListingTransition moves a listing to the target status with a
// status+version predicate. RowsAffected == 0 means a concurrent transition
// won; the caller's whole transaction rolls back. The optional match ids set
// replacement_match_id / target_match_id alongside the status change.
func guardedListingTransition(tx *gorm.DB, listing *domain.Listing, to domain.ListingStatus, replacementMatchID, targetMatchID *uuid.UUID) error {
	if !domain.CanTransition(listing.ListingType, listing.Status, to) {
		return apperror.InvalidState("Listing cannot move from %s to %s", listing.Status, to)
	}
	updates := map[string]interface{}{
		"status":  to,
		"version": listing.Version + 1,
	}
	if replacementMatchID != nil {
		updates["replacement_match_id"] = *replacementMatchID
	}
	if targetMatchID != nil {
		updates["target_match_id"] = *targetMatchID
	}
	res := tx.Model(&domain.Listing{}).
		Where("listing_id = ? AND status = ? AND version = ?", listing.ListingID, listing.Status, listing.Version).
		Updates(updates)
	if res.Error != nil {
		return apperror.Internal("Failed to update listing status", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.InvalidState("Listing %s was modified concurrently", listing.ListingID)
	}
	listing.Status = to
	listing.Version++
	return nil
}

// guardedMatchTransition moves a PROPOSED match to a terminal status with the
// same concurrency guard as listings.
func guardedMatchTransition(tx *gorm.DB, match *domain.Match, to domain.MatchStatus, respondedAt *time.Time, reason *string) error {
	if match.Status != domain.MatchProposed {
		return apperror.InvalidState("Match is %s, not PROPOSED", match.Status)
	}
	updates := map[string]interface{}{
		"status":  to,
		"version": match.Version + 1,
	}
	if respondedAt != nil {
		updates["responded_at"] = *respondedAt
	}
	if reason != nil {
		updates["supersede_reason"] = *reason
	}
	res := tx.Model(&domain.Match{}).
		Where("match_id = ? AND status = ? AND version = ?", match.MatchID, domain.MatchProposed, match.Version).
		Updates(updates)
	if res.Error != nil {
		return apperror.Internal("Failed to update match status", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.InvalidState("Match %s was modified concurrently", match.MatchID)
	}
	match.Status = to
	match.Version++
	if respondedAt != nil {
		match.RespondedAt = respondedAt
	}
	if reason != nil {
		match.SupersedeReason = reason
	}
	return nil
}

// expireMatchAndPair expires one match, its paired leg if still live, and
// rolls the affected listings back. reason is recorded as the supersede
// reason when non-empty.
func expireMatchAndPair(tx *gorm.DB, match *domain.Match, reason string, now time.Time) error {
	var rp *string
	if reason != "" {
		rp = &reason
	}
	if err := guardedMatchTransition(tx, match, domain.MatchExpired, &now, rp); err != nil {
		return err
	}
	if match.PairedMatchID != nil {
		var paired domain.Match
		if err := tx.Where("match_id = ?", *match.PairedMatchID).First(&paired).Error; err == nil &&
			paired.Status == domain.MatchProposed {
			if err := guardedMatchTransition(tx, &paired, domain.MatchExpired, &now, rp); err != nil {
				return err
			}
			if err := rollbackListingStatus(tx, paired.ListingID); err != nil {
				return err
			}
		}
	}
	return rollbackListingStatus(tx, match.ListingID)
}

// ExpireProposedBids expires every live bid on a listing, paired legs
// included. Callers run it inside a transaction that is already retiring the
// listing itself, so the listing's own status is left alone; only the paired
// listings of swap legs are rolled back.
func ExpireProposedBids(tx *gorm.DB, listingID uuid.UUID, reason string, now time.Time) error {
	return expireProposedBidsExcept(tx, listingID, uuid.Nil, reason, now)
}

func expireProposedBidsExcept(tx *gorm.DB, listingID, keep uuid.UUID, reason string, now time.Time) error {
	var bids []domain.Match
	q := tx.Where("listing_id = ? AND status = ?", listingID, domain.MatchProposed)
	if keep != uuid.Nil {
		q = q.Where("match_id <> ?", keep)
	}
	if err := q.Find(&bids).Error; err != nil {
		return apperror.Internal("Failed to fetch proposed bids", err)
	}
	var rp *string
	if reason != "" {
		rp = &reason
	}
	for i := range bids {
		bid := &bids[i]
		if err := guardedMatchTransition(tx, bid, domain.MatchExpired, &now, rp); err != nil {
			return err
		}
		if bid.PairedMatchID == nil {
			continue
		}
		var paired domain.Match
		if err := tx.Where("match_id = ?", *bid.PairedMatchID).First(&paired).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				continue
			}
			return apperror.Internal("Failed to fetch paired match", err)
		}
		if paired.Status != domain.MatchProposed {
			continue
		}
		if err := guardedMatchTransition(tx, &paired, domain.MatchExpired, &now, rp); err != nil {
			return err
		}
		if err := rollbackListingStatus(tx, paired.ListingID); err != nil {
			return err
		}
	}
	return nil
}

// rollbackListingStatus recomputes a listing's status after a bid went away:
// PARTIAL_MATCH while live bids remain, OPEN once none do. Listings past the
// bidding phase (PENDING_APPROVAL onward) and terminal listings are left
// untouched.
func rollbackListingStatus(tx *gorm.DB, listingID uuid.UUID) error {
	listing, err := lockListing(tx, listingID)
	if err != nil {
		return err
	}
	if listing.Status != domain.ListingPartialMatch && listing.Status != domain.ListingFullyMatched {
		return nil
	}
	var live int64
	if err := tx.Model(&domain.Match{}).
		Where("listing_id = ? AND status = ?", listingID, domain.MatchProposed).
		Count(&live).Error; err != nil {
		return apperror.Internal("Failed to count live bids", err)
	}
	target := domain.ListingOpen
	if live > 0 {
		target = domain.ListingPartialMatch
	}
	if target == listing.Status {
		return nil
	}
	return guardedListingTransition(tx, listing, target, nil, nil)
}

// writeListingEvent appends an audit event; actor may be nil for
// system-triggered transitions such as the expiry sweep.
func writeListingEvent(tx *gorm.DB, listingID uuid.UUID, eventType string, actor *uuid.UUID) error {
	event := &domain.ListingEvent{
		EventID:   uuid.New(),
		ListingID: listingID,
		EventType: eventType,
		ActorUID:  actor,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.Create(event).Error; err != nil {
		return apperror.Internal("Failed to record listing event", err)
	}
	return nil
}
