package listings

import (
	"context"
	"testing"
	"time"

	matchsvc "dorm-exchange-backend/internal/application/matches"
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

func setupListingsTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.User{}, &domain.Room{}, &domain.Listing{},
		&domain.Match{}, &domain.ListingEvent{},
	))
	return &Service{DB: db}, db
}

func makeRoom(t *testing.T, db *gorm.DB, category, building string) *domain.Room {
	room := &domain.Room{
		RoomID:     uuid.New(),
		Building:   building,
		Floor:      2,
		RoomNumber: "204",
		Category:   category,
		IsActive:   true,
	}
	require.NoError(t, db.Create(room).Error)
	return room
}

func TestCreateLeaseTransfer(t *testing.T) {
	s, db := setupListingsTest(t)
	room := makeRoom(t, db, "A", "North")
	owner := uuid.New()

	listing, err := s.CreateLeaseTransfer(context.Background(), owner, CreateLeaseTransferInput{
		RoomID:         room.RoomID,
		LeaseStartDate: day(2026, 9, 1),
		LeaseEndDate:   day(2027, 6, 30),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ListingOpen, listing.Status)
	assert.Equal(t, "A", listing.RoomCategory)
	assert.Equal(t, "North", listing.RoomBuilding)
	assert.True(t, listing.ExpiresAt.After(time.Now()))

	var events []domain.ListingEvent
	require.NoError(t, db.Where("listing_id = ?", listing.ListingID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventCreated, events[0].EventType)
}

func TestCreateListingRejectsBadDates(t *testing.T) {
	s, db := setupListingsTest(t)
	room := makeRoom(t, db, "A", "North")

	_, err := s.CreateLeaseTransfer(context.Background(), uuid.New(), CreateLeaseTransferInput{
		RoomID:         room.RoomID,
		LeaseStartDate: day(2027, 6, 30),
		LeaseEndDate:   day(2026, 9, 1),
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	moveIn := day(2027, 8, 1) // outside the lease window
	_, err = s.CreateLeaseTransfer(context.Background(), uuid.New(), CreateLeaseTransferInput{
		RoomID:         room.RoomID,
		LeaseStartDate: day(2026, 9, 1),
		LeaseEndDate:   day(2027, 6, 30),
		MoveInDate:     &moveIn,
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestCreateListingRejectsBusyRoom(t *testing.T) {
	s, db := setupListingsTest(t)
	room := makeRoom(t, db, "A", "North")

	_, err := s.CreateLeaseTransfer(context.Background(), uuid.New(), CreateLeaseTransferInput{
		RoomID:         room.RoomID,
		LeaseStartDate: day(2026, 9, 1),
		LeaseEndDate:   day(2027, 6, 30),
	})
	require.NoError(t, err)

	_, err = s.CreateLeaseTransfer(context.Background(), uuid.New(), CreateLeaseTransferInput{
		RoomID:         room.RoomID,
		LeaseStartDate: day(2026, 9, 1),
		LeaseEndDate:   day(2027, 6, 30),
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestCreateSwapRequestRequiresCategories(t *testing.T) {
	s, db := setupListingsTest(t)
	room := makeRoom(t, db, "A", "North")

	_, err := s.CreateSwapRequest(context.Background(), uuid.New(), CreateSwapRequestInput{
		RoomID:         room.RoomID,
		LeaseStartDate: day(2026, 9, 1),
		LeaseEndDate:   day(2027, 6, 30),
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, err = s.CreateSwapRequest(context.Background(), uuid.New(), CreateSwapRequestInput{
		RoomID:            room.RoomID,
		LeaseStartDate:    day(2026, 9, 1),
		LeaseEndDate:      day(2027, 6, 30),
		DesiredCategories: []string{"Z"},
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestUpdateListing(t *testing.T) {
	s, db := setupListingsTest(t)
	room := makeRoom(t, db, "A", "North")
	owner := uuid.New()

	listing, err := s.CreateLeaseTransfer(context.Background(), owner, CreateLeaseTransferInput{
		RoomID:         room.RoomID,
		LeaseStartDate: day(2026, 9, 1),
		LeaseEndDate:   day(2027, 6, 30),
	})
	require.NoError(t, err)

	desc := "Sunny corner room"
	price := 450
	updated, err := s.Update(context.Background(), listing.ListingID, owner, UpdateListingInput{
		Description: &desc,
		AskingPrice: &price,
	})
	require.NoError(t, err)
	assert.Equal(t, desc, updated.Description)
	require.NotNil(t, updated.AskingPrice)
	assert.Equal(t, price, *updated.AskingPrice)
	assert.Equal(t, listing.Version+1, updated.Version)

	// Non-owner cannot update.
	_, err = s.Update(context.Background(), listing.ListingID, uuid.New(), UpdateListingInput{Description: &desc})
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
}

func TestCancelListingCascadesBids(t *testing.T) {
	s, db := setupListingsTest(t)
	room := makeRoom(t, db, "A", "North")
	owner := uuid.New()
	claimant := uuid.New()

	listing, err := s.CreateLeaseTransfer(context.Background(), owner, CreateLeaseTransferInput{
		RoomID:         room.RoomID,
		LeaseStartDate: day(2026, 9, 1),
		LeaseEndDate:   day(2027, 6, 30),
	})
	require.NoError(t, err)

	ms := &matchsvc.Service{DB: db}
	claim, err := ms.Claim(context.Background(), listing.ListingID, claimant, matchsvc.ClaimInput{})
	require.NoError(t, err)

	cancelled, err := s.Cancel(context.Background(), listing.ListingID, owner)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingCancelled, cancelled.Status)

	var m domain.Match
	require.NoError(t, db.Where("match_id = ?", claim.Match.MatchID).First(&m).Error)
	assert.Equal(t, domain.MatchExpired, m.Status)
}

func TestCancelListingBlockedDuringSettlement(t *testing.T) {
	s, db := setupListingsTest(t)
	require.NoError(t, db.AutoMigrate(&domain.Transaction{}))
	room := makeRoom(t, db, "A", "North")
	owner := uuid.New()
	claimant := uuid.New()

	listing, err := s.CreateLeaseTransfer(context.Background(), owner, CreateLeaseTransferInput{
		RoomID:         room.RoomID,
		LeaseStartDate: day(2026, 9, 1),
		LeaseEndDate:   day(2027, 6, 30),
	})
	require.NoError(t, err)

	ms := &matchsvc.Service{DB: db}
	claim, err := ms.Claim(context.Background(), listing.ListingID, claimant, matchsvc.ClaimInput{})
	require.NoError(t, err)
	_, err = ms.Accept(context.Background(), claim.Match.MatchID, owner)
	require.NoError(t, err)

	_, err = s.Cancel(context.Background(), listing.ListingID, owner)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidState))

	// The accepted match and its settlement transaction are untouched.
	var m domain.Match
	require.NoError(t, db.Where("match_id = ?", claim.Match.MatchID).First(&m).Error)
	assert.Equal(t, domain.MatchAccepted, m.Status)

	var tr domain.Transaction
	require.NoError(t, db.Where("match_id = ?", claim.Match.MatchID).First(&tr).Error)
	assert.Equal(t, domain.TxPending, tr.Status)

	var fresh domain.Listing
	require.NoError(t, db.Where("listing_id = ?", listing.ListingID).First(&fresh).Error)
	assert.Equal(t, domain.ListingPendingApproval, fresh.Status)
}

func TestCancelListingOwnerOnly(t *testing.T) {
	s, db := setupListingsTest(t)
	room := makeRoom(t, db, "A", "North")
	owner := uuid.New()

	listing, err := s.CreateLeaseTransfer(context.Background(), owner, CreateLeaseTransferInput{
		RoomID:         room.RoomID,
		LeaseStartDate: day(2026, 9, 1),
		LeaseEndDate:   day(2027, 6, 30),
	})
	require.NoError(t, err)

	_, err = s.Cancel(context.Background(), listing.ListingID, uuid.New())
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))

	// Cancelling twice is an invalid transition.
	_, err = s.Cancel(context.Background(), listing.ListingID, owner)
	require.NoError(t, err)
	_, err = s.Cancel(context.Background(), listing.ListingID, owner)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidState))
}

func TestBrowseDefaultsToOpen(t *testing.T) {
	s, db := setupListingsTest(t)
	owner := uuid.New()

	roomA := makeRoom(t, db, "A", "North")
	roomB := makeRoom(t, db, "B", "South")
	open, err := s.CreateLeaseTransfer(context.Background(), owner, CreateLeaseTransferInput{
		RoomID:         roomA.RoomID,
		LeaseStartDate: day(2026, 9, 1),
		LeaseEndDate:   day(2027, 6, 30),
	})
	require.NoError(t, err)
	closed, err := s.CreateLeaseTransfer(context.Background(), owner, CreateLeaseTransferInput{
		RoomID:         roomB.RoomID,
		LeaseStartDate: day(2026, 9, 1),
		LeaseEndDate:   day(2027, 6, 30),
	})
	require.NoError(t, err)
	_, err = s.Cancel(context.Background(), closed.ListingID, owner)
	require.NoError(t, err)

	page, err := s.Browse(context.Background(), BrowseFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, open.ListingID, page.Items[0].ListingID)
	assert.Equal(t, int64(1), page.Total)
	assert.False(t, page.HasNext)
}
