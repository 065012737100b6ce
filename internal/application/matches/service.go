package matches

import (
	"context"
	"time"

	"dorm-exchange-backend/internal/application/matching"
	"dorm-exchange-backend/internal/domain"
	"dorm-exchange-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service is the match/bid engine. Every mutation runs in a DB transaction
// with status-guarded updates, so concurrent accept/reject/cancel calls on
// the same match or its pair serialize to exactly one winner; the loser sees
// an invalid-state error.
type Service struct {
	DB          *gorm.DB
	MatchExpiry time.Duration
}

type ClaimInput struct {
	Message           string     `json:"message"`
	ClaimantListingID *uuid.UUID `json:"claimant_listing_id"`
}

// ClaimResult carries the created match, plus the reciprocal leg for swaps.
type ClaimResult struct {
	Match       *domain.Match `json:"match"`
	PairedMatch *domain.Match `json:"paired_match,omitempty"`
}

// Contact is the counterparty info revealed once a match is accepted.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (s *Service) expiry() time.Duration {
	if s.MatchExpiry > 0 {
		return s.MatchExpiry
	}
	return 48 * time.Hour
}

// Claim creates a PROPOSED match against a listing. Lease transfers get a
// single bid and the listing stays OPEN (several bids may coexist). Swap
// claims create both legs of the pair atomically and advance both listings
// to PARTIAL_MATCH.
func (s *Service) Claim(ctx context.Context, listingID, claimantUID uuid.UUID, in ClaimInput) (*ClaimResult, error) {
	var result *ClaimResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := lockListing(tx, listingID)
		if err != nil {
			return err
		}
		if listing.OwnerUID == claimantUID {
			return apperror.Forbidden("Cannot claim your own listing")
		}

		var dup int64
		if err := tx.Model(&domain.Match{}).
			Where("listing_id = ? AND claimant_uid = ? AND status = ?", listingID, claimantUID, domain.MatchProposed).
			Count(&dup).Error; err != nil {
			return apperror.Internal("Failed to check existing bids", err)
		}
		if dup > 0 {
			return apperror.Validation("You already have a pending bid on this listing")
		}

		if listing.IsSwap() {
			r, err := s.claimSwap(tx, listing, claimantUID, in)
			if err != nil {
				return err
			}
			result = r
			return nil
		}
		r, err := s.claimLeaseTransfer(tx, listing, claimantUID, in)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("match_id", result.Match.MatchID.String()).
		Str("listing_id", listingID.String()).
		Str("claimant_uid", claimantUID.String()).
		Bool("swap", result.PairedMatch != nil).
		Msg("Claim created")
	return result, nil
}

func (s *Service) claimLeaseTransfer(tx *gorm.DB, listing *domain.Listing, claimantUID uuid.UUID, in ClaimInput) (*ClaimResult, error) {
	if in.ClaimantListingID != nil {
		return nil, apperror.Validation("claimant_listing_id only applies to swap claims")
	}
	if listing.Status != domain.ListingOpen {
		return nil, apperror.InvalidState("Listing is %s, not OPEN", listing.Status)
	}

	now := time.Now().UTC()
	match := &domain.Match{
		MatchID:             uuid.New(),
		MatchType:           domain.MatchLeaseTransfer,
		Status:              domain.MatchProposed,
		Version:             1,
		ListingID:           listing.ListingID,
		ClaimantUID:         claimantUID,
		OfferedRoomID:       listing.RoomID,
		OfferedRoomCategory: listing.RoomCategory,
		OfferedRoomBuilding: listing.RoomBuilding,
		Message:             in.Message,
		ProposedAt:          now,
		ExpiresAt:           now.Add(s.expiry()),
	}
	if err := tx.Create(match).Error; err != nil {
		return nil, apperror.Internal("Failed to create match", err)
	}
	if err := writeListingEvent(tx, listing.ListingID, domain.EventClaimed, &claimantUID); err != nil {
		return nil, err
	}
	return &ClaimResult{Match: match}, nil
}

func (s *Service) claimSwap(tx *gorm.DB, listing *domain.Listing, claimantUID uuid.UUID, in ClaimInput) (*ClaimResult, error) {
	if in.ClaimantListingID == nil {
		return nil, apperror.Validation("Swap claims require your own open swap listing (claimant_listing_id)")
	}
	if !statusIn(listing.Status, domain.ClaimableSwapStatuses) {
		return nil, apperror.InvalidState("Listing is %s, not claimable", listing.Status)
	}

	claimantListing, err := lockListing(tx, *in.ClaimantListingID)
	if err != nil {
		return nil, err
	}
	if !claimantListing.IsSwap() {
		return nil, apperror.Validation("Your listing is not a swap request")
	}
	if claimantListing.OwnerUID != claimantUID {
		return nil, apperror.Forbidden("Claimant listing does not belong to you")
	}
	if !statusIn(claimantListing.Status, domain.ClaimableSwapStatuses) {
		return nil, apperror.InvalidState("Your listing is %s, not claimable", claimantListing.Status)
	}
	if !matching.Compatible(listing, claimantListing) {
		return nil, apperror.Validation("Listings are not compatible for a swap")
	}

	now := time.Now().UTC()
	legID := uuid.New()
	pairedID := uuid.New()

	// Leg on the target listing: the claimant bids for the target's room.
	leg := &domain.Match{
		MatchID:             legID,
		MatchType:           domain.MatchSwapLeg,
		Status:              domain.MatchProposed,
		Version:             1,
		ListingID:           listing.ListingID,
		ClaimantUID:         claimantUID,
		ClaimantListingID:   &claimantListing.ListingID,
		OfferedRoomID:       listing.RoomID,
		OfferedRoomCategory: listing.RoomCategory,
		OfferedRoomBuilding: listing.RoomBuilding,
		PairedMatchID:       &pairedID,
		Message:             in.Message,
		ProposedAt:          now,
		ExpiresAt:           now.Add(s.expiry()),
	}
	// Reciprocal leg: the target owner takes the claimant's room.
	paired := &domain.Match{
		MatchID:             pairedID,
		MatchType:           domain.MatchSwapLeg,
		Status:              domain.MatchProposed,
		Version:             1,
		ListingID:           claimantListing.ListingID,
		ClaimantUID:         listing.OwnerUID,
		ClaimantListingID:   &listing.ListingID,
		OfferedRoomID:       claimantListing.RoomID,
		OfferedRoomCategory: claimantListing.RoomCategory,
		OfferedRoomBuilding: claimantListing.RoomBuilding,
		PairedMatchID:       &legID,
		ProposedAt:          now,
		ExpiresAt:           now.Add(s.expiry()),
	}
	if err := tx.Create(leg).Error; err != nil {
		return nil, apperror.Internal("Failed to create match", err)
	}
	if err := tx.Create(paired).Error; err != nil {
		return nil, apperror.Internal("Failed to create paired match", err)
	}

	for _, l := range []*domain.Listing{listing, claimantListing} {
		if l.Status == domain.ListingOpen {
			if err := guardedListingTransition(tx, l, domain.ListingPartialMatch, nil, nil); err != nil {
				return nil, err
			}
		}
		if err := writeListingEvent(tx, l.ListingID, domain.EventClaimed, &claimantUID); err != nil {
			return nil, err
		}
	}
	return &ClaimResult{Match: leg, PairedMatch: paired}, nil
}

// Accept transitions a PROPOSED match (and its paired leg) to ACCEPTED as
// one atomic unit: the listing(s) move to PENDING_APPROVAL, every competing
// PROPOSED bid is expired as superseded, and a PENDING settlement
// transaction is created. If any leg cannot transition, nothing changes.
func (s *Service) Accept(ctx context.Context, matchID, actor uuid.UUID) (*domain.Match, error) {
	var accepted *domain.Match
	var txID uuid.UUID
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		match, err := s.liveMatch(tx, matchID)
		if err != nil {
			return err
		}
		listing, err := lockListing(tx, match.ListingID)
		if err != nil {
			return err
		}

		if match.MatchType == domain.MatchSwapLeg {
			if actor != listing.OwnerUID && actor != match.ClaimantUID {
				return apperror.Forbidden("You are not a party in this swap")
			}
		} else if actor != listing.OwnerUID {
			return apperror.Forbidden("Only the listing owner can accept matches")
		}

		now := time.Now().UTC()
		if err := guardedMatchTransition(tx, match, domain.MatchAccepted, &now, nil); err != nil {
			return err
		}
		if err := guardedListingTransition(tx, listing, domain.ListingPendingApproval, &match.MatchID, match.PairedMatchID); err != nil {
			return err
		}
		if err := expireProposedBidsExcept(tx, listing.ListingID, match.MatchID, domain.SupersededReason, now); err != nil {
			return err
		}
		if err := writeListingEvent(tx, listing.ListingID, domain.EventAccepted, &actor); err != nil {
			return err
		}

		settlement := &domain.Transaction{
			TxID:           uuid.New(),
			Status:         domain.TxPending,
			LeaseStartDate: listing.LeaseStartDate,
			LeaseEndDate:   listing.LeaseEndDate,
			InitiatedAt:    now,
		}

		if match.PairedMatchID != nil {
			paired, err := s.liveMatch(tx, *match.PairedMatchID)
			if err != nil {
				return err
			}
			pairedListing, err := lockListing(tx, paired.ListingID)
			if err != nil {
				return err
			}
			if err := guardedMatchTransition(tx, paired, domain.MatchAccepted, &now, nil); err != nil {
				return err
			}
			if err := guardedListingTransition(tx, pairedListing, domain.ListingPendingApproval, &paired.MatchID, &match.MatchID); err != nil {
				return err
			}
			if err := expireProposedBidsExcept(tx, pairedListing.ListingID, paired.MatchID, domain.SupersededReason, now); err != nil {
				return err
			}
			if err := writeListingEvent(tx, pairedListing.ListingID, domain.EventAccepted, &actor); err != nil {
				return err
			}

			settlement.TransactionType = domain.TxSwap
			settlement.MatchAID = &match.MatchID
			settlement.MatchBID = &paired.MatchID
			settlement.PartyAUID = &listing.OwnerUID
			settlement.PartyARoomID = &listing.RoomID
			settlement.PartyBUID = &match.ClaimantUID
			settlement.PartyBRoomID = &paired.OfferedRoomID
		} else {
			settlement.TransactionType = domain.TxLeaseTransfer
			settlement.MatchID = &match.MatchID
			settlement.FromUID = &listing.OwnerUID
			settlement.ToUID = &match.ClaimantUID
			settlement.RoomID = &listing.RoomID
		}
		if err := tx.Create(settlement).Error; err != nil {
			return apperror.Internal("Failed to create settlement transaction", err)
		}
		txID = settlement.TxID
		accepted = match
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("match_id", matchID.String()).
		Str("tx_id", txID.String()).
		Msg("Match accepted")
	return accepted, nil
}

// Reject moves a PROPOSED match (and its paired leg) to REJECTED and rolls
// the affected listings back to PARTIAL_MATCH or OPEN depending on whether
// other live bids remain.
func (s *Service) Reject(ctx context.Context, matchID, actor uuid.UUID) (*domain.Match, error) {
	return s.resolve(ctx, matchID, actor, domain.MatchRejected)
}

// CancelBid lets the claimant withdraw their own PROPOSED bid, with the same
// listing rollback as a rejection.
func (s *Service) CancelBid(ctx context.Context, matchID, actor uuid.UUID) (*domain.Match, error) {
	return s.resolve(ctx, matchID, actor, domain.MatchCancelled)
}

func (s *Service) resolve(ctx context.Context, matchID, actor uuid.UUID, target domain.MatchStatus) (*domain.Match, error) {
	var resolved *domain.Match
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		match, err := s.liveMatch(tx, matchID)
		if err != nil {
			return err
		}
		listing, err := lockListing(tx, match.ListingID)
		if err != nil {
			return err
		}

		switch target {
		case domain.MatchCancelled:
			if actor != match.ClaimantUID {
				return apperror.Forbidden("Only the claimant can cancel their own bid")
			}
		case domain.MatchRejected:
			if match.MatchType == domain.MatchSwapLeg {
				if actor != listing.OwnerUID && actor != match.ClaimantUID {
					return apperror.Forbidden("You are not a party in this swap")
				}
			} else if actor != listing.OwnerUID {
				return apperror.Forbidden("Only the listing owner can reject matches")
			}
		}

		now := time.Now().UTC()
		if err := guardedMatchTransition(tx, match, target, &now, nil); err != nil {
			return err
		}
		if match.PairedMatchID != nil {
			var paired domain.Match
			if err := tx.Where("match_id = ?", *match.PairedMatchID).First(&paired).Error; err == nil &&
				paired.Status == domain.MatchProposed {
				if err := guardedMatchTransition(tx, &paired, target, &now, nil); err != nil {
					return err
				}
				if err := rollbackListingStatus(tx, paired.ListingID); err != nil {
					return err
				}
			}
		}
		if err := rollbackListingStatus(tx, listing.ListingID); err != nil {
			return err
		}

		event := domain.EventRejected
		if target == domain.MatchCancelled {
			event = domain.EventCancelled
		}
		if err := writeListingEvent(tx, listing.ListingID, event, &actor); err != nil {
			return err
		}
		resolved = match
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("match_id", matchID.String()).Str("status", string(target)).Msg("Match resolved")
	return resolved, nil
}

// liveMatch loads a match and lazily expires it when past its expiry.
func (s *Service) liveMatch(tx *gorm.DB, matchID uuid.UUID) (*domain.Match, error) {
	var match domain.Match
	if err := tx.Where("match_id = ?", matchID).First(&match).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("Match %s not found", matchID)
		}
		return nil, apperror.Internal("Failed to fetch match", err)
	}
	if match.Status != domain.MatchProposed {
		return nil, apperror.InvalidState("Match is %s, not PROPOSED", match.Status)
	}
	now := time.Now().UTC()
	if match.ExpiresAt.Before(now) {
		if err := expireMatchAndPair(tx, &match, "", now); err != nil {
			return nil, err
		}
		return nil, apperror.InvalidState("Match has expired")
	}
	return &match, nil
}

func (s *Service) GetMatch(ctx context.Context, matchID uuid.UUID) (*domain.Match, error) {
	var match domain.Match
	if err := s.DB.WithContext(ctx).Where("match_id = ?", matchID).First(&match).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("Match %s not found", matchID)
		}
		return nil, apperror.Internal("Failed to fetch match", err)
	}
	// Lazy expiry on read; the sweep catches anything missed here.
	if match.Status == domain.MatchProposed && match.ExpiresAt.Before(time.Now().UTC()) {
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return expireMatchAndPair(tx, &match, "", time.Now().UTC())
		})
		if err != nil {
			return nil, err
		}
		match.Status = domain.MatchExpired
	}
	return &match, nil
}

// ListUserMatches returns matches where uid is the claimant or owns the
// target listing.
func (s *Service) ListUserMatches(ctx context.Context, uid uuid.UUID, status string) ([]domain.Match, error) {
	owned := s.DB.Model(&domain.Listing{}).Select("listing_id").Where("owner_uid = ?", uid)
	q := s.DB.WithContext(ctx).
		Where("claimant_uid = ? OR listing_id IN (?)", uid, owned)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var ms []domain.Match
	if err := q.Order("proposed_at DESC").Find(&ms).Error; err != nil {
		return nil, apperror.Internal("Failed to fetch matches", err)
	}
	return ms, nil
}

// ListListingBids returns the PROPOSED bids on a listing. Owner only.
func (s *Service) ListListingBids(ctx context.Context, listingID, ownerUID uuid.UUID) ([]domain.Match, error) {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("Listing %s not found", listingID)
		}
		return nil, apperror.Internal("Failed to fetch listing", err)
	}
	if listing.OwnerUID != ownerUID {
		return nil, apperror.Forbidden("Only the listing owner can view bids")
	}
	var bids []domain.Match
	if err := s.DB.WithContext(ctx).
		Where("listing_id = ? AND status = ?", listingID, domain.MatchProposed).
		Order("proposed_at ASC").Find(&bids).Error; err != nil {
		return nil, apperror.Internal("Failed to fetch bids", err)
	}
	return bids, nil
}

// GetContact reveals the counterparty's name and phone for an ACCEPTED
// match, to its parties only.
func (s *Service) GetContact(ctx context.Context, matchID, requesterUID uuid.UUID) (*Contact, error) {
	var match domain.Match
	if err := s.DB.WithContext(ctx).Where("match_id = ?", matchID).First(&match).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("Match %s not found", matchID)
		}
		return nil, apperror.Internal("Failed to fetch match", err)
	}
	if match.Status != domain.MatchAccepted {
		return nil, apperror.InvalidState("Contact info is only available for accepted matches")
	}
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", match.ListingID).First(&listing).Error; err != nil {
		return nil, apperror.Internal("Failed to fetch listing", err)
	}

	var counterparty uuid.UUID
	switch requesterUID {
	case listing.OwnerUID:
		counterparty = match.ClaimantUID
	case match.ClaimantUID:
		counterparty = listing.OwnerUID
	default:
		return nil, apperror.Forbidden("You are not a party in this match")
	}

	var profile domain.User
	if err := s.DB.WithContext(ctx).Where("uid = ?", counterparty).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("Counterparty profile not found")
		}
		return nil, apperror.Internal("Failed to fetch profile", err)
	}
	return &Contact{Name: profile.FullName, Phone: profile.Phone}, nil
}

// SweepExpired expires every PROPOSED match and OPEN/PARTIAL_MATCH listing
// past its expiry. State-guarded transitions make it idempotent and safe to
// run concurrently with user-triggered transitions.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (matchesExpired, listingsExpired int, err error) {
	var dueMatches []domain.Match
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND expires_at < ?", domain.MatchProposed, now).
		Find(&dueMatches).Error; err != nil {
		return 0, 0, apperror.Internal("Failed to fetch expired matches", err)
	}
	for i := range dueMatches {
		m := dueMatches[i]
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return expireMatchAndPair(tx, &m, "", now)
		})
		if err != nil {
			if apperror.IsKind(err, apperror.KindInvalidState) {
				continue // lost to a concurrent transition; already settled
			}
			return matchesExpired, listingsExpired, err
		}
		matchesExpired++
	}

	var dueListings []domain.Listing
	if err := s.DB.WithContext(ctx).
		Where("status IN ? AND expires_at < ?", []domain.ListingStatus{domain.ListingOpen, domain.ListingPartialMatch}, now).
		Find(&dueListings).Error; err != nil {
		return matchesExpired, listingsExpired, apperror.Internal("Failed to fetch expired listings", err)
	}
	for i := range dueListings {
		l := dueListings[i]
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := guardedListingTransition(tx, &l, domain.ListingExpired, nil, nil); err != nil {
				return err
			}
			if err := ExpireProposedBids(tx, l.ListingID, "", now); err != nil {
				return err
			}
			return writeListingEvent(tx, l.ListingID, domain.EventExpired, nil)
		})
		if err != nil {
			if apperror.IsKind(err, apperror.KindInvalidState) {
				continue
			}
			return matchesExpired, listingsExpired, err
		}
		listingsExpired++
	}

	if matchesExpired > 0 || listingsExpired > 0 {
		log.Info().Int("matches", matchesExpired).Int("listings", listingsExpired).Msg("Expiry sweep completed")
	}
	return matchesExpired, listingsExpired, nil
}
