package matches

import (
	"context"
	"testing"
	"time"

	"dorm-exchange-backend/internal/domain"
	"dorm-exchange-backend/internal/pkg/apperror"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func setupMatchesTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.User{}, &domain.Room{}, &domain.Listing{},
		&domain.Match{}, &domain.Transaction{}, &domain.ListingEvent{},
	))
	return &Service{DB: db}, db
}

type fixtureListing struct {
	listing *domain.Listing
	owner   uuid.UUID
}

func seedTransferListing(t *testing.T, db *gorm.DB) fixtureListing {
	owner := uuid.New()
	l := &domain.Listing{
		ListingID:      uuid.New(),
		ListingType:    domain.ListingLeaseTransfer,
		Status:         domain.ListingOpen,
		Version:        1,
		OwnerUID:       owner,
		RoomID:         uuid.New(),
		RoomCategory:   "A",
		RoomBuilding:   "North",
		LeaseStartDate: day(2026, 9, 1),
		LeaseEndDate:   day(2027, 6, 30),
		ExpiresAt:      time.Now().UTC().Add(30 * 24 * time.Hour),
	}
	require.NoError(t, db.Create(l).Error)
	return fixtureListing{listing: l, owner: owner}
}

func seedSwapListing(t *testing.T, db *gorm.DB, category, building string, desired []string) fixtureListing {
	owner := uuid.New()
	l := &domain.Listing{
		ListingID:         uuid.New(),
		ListingType:       domain.ListingSwapRequest,
		Status:            domain.ListingOpen,
		Version:           1,
		OwnerUID:          owner,
		RoomID:            uuid.New(),
		RoomCategory:      category,
		RoomBuilding:      building,
		LeaseStartDate:    day(2026, 9, 1),
		LeaseEndDate:      day(2027, 6, 30),
		DesiredCategories: desired,
		ExpiresAt:         time.Now().UTC().Add(30 * 24 * time.Hour),
	}
	require.NoError(t, db.Create(l).Error)
	return fixtureListing{listing: l, owner: owner}
}

func reloadListing(t *testing.T, db *gorm.DB, id uuid.UUID) *domain.Listing {
	var l domain.Listing
	require.NoError(t, db.Where("listing_id = ?", id).First(&l).Error)
	return &l
}

func reloadMatch(t *testing.T, db *gorm.DB, id uuid.UUID) *domain.Match {
	var m domain.Match
	require.NoError(t, db.Where("match_id = ?", id).First(&m).Error)
	return &m
}

func TestClaimLeaseTransfer(t *testing.T) {
	s, db := setupMatchesTest(t)
	fx := seedTransferListing(t, db)
	claimant := uuid.New()

	result, err := s.Claim(context.Background(), fx.listing.ListingID, claimant, ClaimInput{Message: "interested"})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchProposed, result.Match.Status)
	assert.Equal(t, domain.MatchLeaseTransfer, result.Match.MatchType)
	assert.Nil(t, result.PairedMatch)

	// Several bids may coexist; the listing stays OPEN.
	assert.Equal(t, domain.ListingOpen, reloadListing(t, db, fx.listing.ListingID).Status)

	_, err = s.Claim(context.Background(), fx.listing.ListingID, uuid.New(), ClaimInput{})
	require.NoError(t, err)

	// The same claimant cannot bid twice while a bid is live.
	_, err = s.Claim(context.Background(), fx.listing.ListingID, claimant, ClaimInput{})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestClaimOwnListingForbidden(t *testing.T) {
	s, db := setupMatchesTest(t)
	fx := seedTransferListing(t, db)

	_, err := s.Claim(context.Background(), fx.listing.ListingID, fx.owner, ClaimInput{})
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
}

func TestClaimSwapCreatesPair(t *testing.T) {
	s, db := setupMatchesTest(t)
	target := seedSwapListing(t, db, "A", "North", []string{"B"})
	mine := seedSwapListing(t, db, "B", "South", []string{"A"})

	result, err := s.Claim(context.Background(), target.listing.ListingID, mine.owner, ClaimInput{
		ClaimantListingID: &mine.listing.ListingID,
	})
	require.NoError(t, err)
	require.NotNil(t, result.PairedMatch)

	assert.Equal(t, domain.MatchSwapLeg, result.Match.MatchType)
	require.NotNil(t, result.Match.PairedMatchID)
	assert.Equal(t, result.PairedMatch.MatchID, *result.Match.PairedMatchID)
	assert.Equal(t, result.Match.MatchID, *result.PairedMatch.PairedMatchID)

	// Reciprocal leg sits on the claimant's listing with the target owner as
	// its claimant.
	assert.Equal(t, mine.listing.ListingID, result.PairedMatch.ListingID)
	assert.Equal(t, target.owner, result.PairedMatch.ClaimantUID)

	assert.Equal(t, domain.ListingPartialMatch, reloadListing(t, db, target.listing.ListingID).Status)
	assert.Equal(t, domain.ListingPartialMatch, reloadListing(t, db, mine.listing.ListingID).Status)
}

func TestClaimSwapRequiresOwnListing(t *testing.T) {
	s, db := setupMatchesTest(t)
	target := seedSwapListing(t, db, "A", "North", []string{"B"})
	other := seedSwapListing(t, db, "B", "South", []string{"A"})

	// No claimant listing supplied.
	_, err := s.Claim(context.Background(), target.listing.ListingID, uuid.New(), ClaimInput{})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	// Claimant listing belongs to someone else.
	_, err = s.Claim(context.Background(), target.listing.ListingID, uuid.New(), ClaimInput{
		ClaimantListingID: &other.listing.ListingID,
	})
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
}

func TestClaimSwapRejectsIncompatible(t *testing.T) {
	s, db := setupMatchesTest(t)
	target := seedSwapListing(t, db, "A", "North", []string{"B"})
	mine := seedSwapListing(t, db, "C", "South", []string{"A"}) // target does not want C

	_, err := s.Claim(context.Background(), target.listing.ListingID, mine.owner, ClaimInput{
		ClaimantListingID: &mine.listing.ListingID,
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestAcceptTransferSupersedesOtherBids(t *testing.T) {
	s, db := setupMatchesTest(t)
	fx := seedTransferListing(t, db)
	winner := uuid.New()
	loser := uuid.New()

	win, err := s.Claim(context.Background(), fx.listing.ListingID, winner, ClaimInput{})
	require.NoError(t, err)
	lose, err := s.Claim(context.Background(), fx.listing.ListingID, loser, ClaimInput{})
	require.NoError(t, err)

	accepted, err := s.Accept(context.Background(), win.Match.MatchID, fx.owner)
	require.NoError(t, err)
	assert.Equal(t, domain.MatchAccepted, accepted.Status)

	listing := reloadListing(t, db, fx.listing.ListingID)
	assert.Equal(t, domain.ListingPendingApproval, listing.Status)
	require.NotNil(t, listing.ReplacementMatchID)
	assert.Equal(t, win.Match.MatchID, *listing.ReplacementMatchID)

	superseded := reloadMatch(t, db, lose.Match.MatchID)
	assert.Equal(t, domain.MatchExpired, superseded.Status)
	require.NotNil(t, superseded.SupersedeReason)
	assert.Equal(t, domain.SupersededReason, *superseded.SupersedeReason)

	// A settlement transaction was created.
	var tx domain.Transaction
	require.NoError(t, db.Where("match_id = ?", win.Match.MatchID).First(&tx).Error)
	assert.Equal(t, domain.TxPending, tx.Status)
	assert.Equal(t, domain.TxLeaseTransfer, tx.TransactionType)
	assert.Equal(t, fx.owner, *tx.FromUID)
	assert.Equal(t, winner, *tx.ToUID)
}

func TestAcceptTransferOwnerOnly(t *testing.T) {
	s, db := setupMatchesTest(t)
	fx := seedTransferListing(t, db)
	claimant := uuid.New()

	result, err := s.Claim(context.Background(), fx.listing.ListingID, claimant, ClaimInput{})
	require.NoError(t, err)

	_, err = s.Accept(context.Background(), result.Match.MatchID, claimant)
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
}

func TestAcceptSwapMovesBothLegs(t *testing.T) {
	s, db := setupMatchesTest(t)
	target := seedSwapListing(t, db, "A", "North", []string{"B"})
	mine := seedSwapListing(t, db, "B", "South", []string{"A"})

	result, err := s.Claim(context.Background(), target.listing.ListingID, mine.owner, ClaimInput{
		ClaimantListingID: &mine.listing.ListingID,
	})
	require.NoError(t, err)

	// The claimant may accept too (either side of the pair).
	accepted, err := s.Accept(context.Background(), result.Match.MatchID, mine.owner)
	require.NoError(t, err)
	assert.Equal(t, domain.MatchAccepted, accepted.Status)
	assert.Equal(t, domain.MatchAccepted, reloadMatch(t, db, result.PairedMatch.MatchID).Status)

	assert.Equal(t, domain.ListingPendingApproval, reloadListing(t, db, target.listing.ListingID).Status)
	assert.Equal(t, domain.ListingPendingApproval, reloadListing(t, db, mine.listing.ListingID).Status)

	var tx domain.Transaction
	require.NoError(t, db.Where("transaction_type = ?", domain.TxSwap).First(&tx).Error)
	assert.Equal(t, target.owner, *tx.PartyAUID)
	assert.Equal(t, mine.owner, *tx.PartyBUID)
	assert.Equal(t, target.listing.RoomID, *tx.PartyARoomID)
	assert.Equal(t, mine.listing.RoomID, *tx.PartyBRoomID)
}

func TestAcceptTwiceFails(t *testing.T) {
	s, db := setupMatchesTest(t)
	fx := seedTransferListing(t, db)

	result, err := s.Claim(context.Background(), fx.listing.ListingID, uuid.New(), ClaimInput{})
	require.NoError(t, err)

	_, err = s.Accept(context.Background(), result.Match.MatchID, fx.owner)
	require.NoError(t, err)
	_, err = s.Accept(context.Background(), result.Match.MatchID, fx.owner)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidState))
}

func TestRejectSwapRollsBackListings(t *testing.T) {
	s, db := setupMatchesTest(t)
	target := seedSwapListing(t, db, "A", "North", []string{"B"})
	first := seedSwapListing(t, db, "B", "South", []string{"A"})
	second := seedSwapListing(t, db, "B", "East", []string{"A"})

	r1, err := s.Claim(context.Background(), target.listing.ListingID, first.owner, ClaimInput{
		ClaimantListingID: &first.listing.ListingID,
	})
	require.NoError(t, err)
	_, err = s.Claim(context.Background(), target.listing.ListingID, second.owner, ClaimInput{
		ClaimantListingID: &second.listing.ListingID,
	})
	require.NoError(t, err)

	_, err = s.Reject(context.Background(), r1.Match.MatchID, target.owner)
	require.NoError(t, err)

	assert.Equal(t, domain.MatchRejected, reloadMatch(t, db, r1.Match.MatchID).Status)
	assert.Equal(t, domain.MatchRejected, reloadMatch(t, db, r1.PairedMatch.MatchID).Status)

	// Target still has one live bid, so it stays PARTIAL_MATCH; the rejected
	// claimant's own listing has none left and reopens.
	assert.Equal(t, domain.ListingPartialMatch, reloadListing(t, db, target.listing.ListingID).Status)
	assert.Equal(t, domain.ListingOpen, reloadListing(t, db, first.listing.ListingID).Status)
}

func TestCancelBidClaimantOnly(t *testing.T) {
	s, db := setupMatchesTest(t)
	target := seedSwapListing(t, db, "A", "North", []string{"B"})
	mine := seedSwapListing(t, db, "B", "South", []string{"A"})

	result, err := s.Claim(context.Background(), target.listing.ListingID, mine.owner, ClaimInput{
		ClaimantListingID: &mine.listing.ListingID,
	})
	require.NoError(t, err)

	_, err = s.CancelBid(context.Background(), result.Match.MatchID, target.owner)
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))

	_, err = s.CancelBid(context.Background(), result.Match.MatchID, mine.owner)
	require.NoError(t, err)

	assert.Equal(t, domain.MatchCancelled, reloadMatch(t, db, result.Match.MatchID).Status)
	assert.Equal(t, domain.MatchCancelled, reloadMatch(t, db, result.PairedMatch.MatchID).Status)
	assert.Equal(t, domain.ListingOpen, reloadListing(t, db, target.listing.ListingID).Status)
	assert.Equal(t, domain.ListingOpen, reloadListing(t, db, mine.listing.ListingID).Status)
}

func TestSweepExpiresMatchesAndListings(t *testing.T) {
	s, db := setupMatchesTest(t)
	target := seedSwapListing(t, db, "A", "North", []string{"B"})
	mine := seedSwapListing(t, db, "B", "South", []string{"A"})

	result, err := s.Claim(context.Background(), target.listing.ListingID, mine.owner, ClaimInput{
		ClaimantListingID: &mine.listing.ListingID,
	})
	require.NoError(t, err)

	// Push the pair past its expiry, sweep at a future instant.
	future := time.Now().UTC().Add(72 * time.Hour)
	matchesExpired, listingsExpired, err := s.SweepExpired(context.Background(), future)
	require.NoError(t, err)
	assert.Equal(t, 1, matchesExpired) // pair expires as one unit
	assert.Equal(t, 0, listingsExpired)

	assert.Equal(t, domain.MatchExpired, reloadMatch(t, db, result.Match.MatchID).Status)
	assert.Equal(t, domain.MatchExpired, reloadMatch(t, db, result.PairedMatch.MatchID).Status)
	assert.Equal(t, domain.ListingOpen, reloadListing(t, db, target.listing.ListingID).Status)

	// Far enough out the listings themselves expire too. Running the sweep
	// twice changes nothing.
	farFuture := time.Now().UTC().Add(31 * 24 * time.Hour)
	_, listingsExpired, err = s.SweepExpired(context.Background(), farFuture)
	require.NoError(t, err)
	assert.Equal(t, 2, listingsExpired)
	assert.Equal(t, domain.ListingExpired, reloadListing(t, db, target.listing.ListingID).Status)

	m, l, err := s.SweepExpired(context.Background(), farFuture)
	require.NoError(t, err)
	assert.Equal(t, 0, m)
	assert.Equal(t, 0, l)
}

func TestGetContact(t *testing.T) {
	s, db := setupMatchesTest(t)
	fx := seedTransferListing(t, db)
	claimant := uuid.New()

	ownerUser := &domain.User{UID: fx.owner, Email: "owner@campus.edu", PasswordHash: "x", FullName: "Avery Owner", StudentID: "S1", Phone: "555-0101"}
	claimantUser := &domain.User{UID: claimant, Email: "claimant@campus.edu", PasswordHash: "x", FullName: "Casey Claimant", StudentID: "S2", Phone: "555-0202"}
	require.NoError(t, db.Create(ownerUser).Error)
	require.NoError(t, db.Create(claimantUser).Error)

	result, err := s.Claim(context.Background(), fx.listing.ListingID, claimant, ClaimInput{})
	require.NoError(t, err)

	// Contact is gated until the match is accepted.
	_, err = s.GetContact(context.Background(), result.Match.MatchID, fx.owner)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidState))

	_, err = s.Accept(context.Background(), result.Match.MatchID, fx.owner)
	require.NoError(t, err)

	contact, err := s.GetContact(context.Background(), result.Match.MatchID, fx.owner)
	require.NoError(t, err)
	assert.Equal(t, "Casey Claimant", contact.Name)
	assert.Equal(t, "555-0202", contact.Phone)

	contact, err = s.GetContact(context.Background(), result.Match.MatchID, claimant)
	require.NoError(t, err)
	assert.Equal(t, "Avery Owner", contact.Name)

	// Strangers get nothing.
	_, err = s.GetContact(context.Background(), result.Match.MatchID, uuid.New())
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
}

func TestListUserMatches(t *testing.T) {
	s, db := setupMatchesTest(t)
	fx := seedTransferListing(t, db)
	claimant := uuid.New()

	result, err := s.Claim(context.Background(), fx.listing.ListingID, claimant, ClaimInput{})
	require.NoError(t, err)

	asClaimant, err := s.ListUserMatches(context.Background(), claimant, "")
	require.NoError(t, err)
	require.Len(t, asClaimant, 1)
	assert.Equal(t, result.Match.MatchID, asClaimant[0].MatchID)

	asOwner, err := s.ListUserMatches(context.Background(), fx.owner, "")
	require.NoError(t, err)
	require.Len(t, asOwner, 1)

	none, err := s.ListUserMatches(context.Background(), uuid.New(), "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListListingBidsOwnerOnly(t *testing.T) {
	s, db := setupMatchesTest(t)
	fx := seedTransferListing(t, db)

	_, err := s.Claim(context.Background(), fx.listing.ListingID, uuid.New(), ClaimInput{})
	require.NoError(t, err)

	bids, err := s.ListListingBids(context.Background(), fx.listing.ListingID, fx.owner)
	require.NoError(t, err)
	assert.Len(t, bids, 1)

	_, err = s.ListListingBids(context.Background(), fx.listing.ListingID, uuid.New())
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
}
