package matching

import (
	"context"
	"testing"
	"time"

	"dorm-exchange-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func swapListing(owner uuid.UUID, category, building string, desired []string) *domain.Listing {
	return &domain.Listing{
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
		ExpiresAt:         day(2027, 6, 30),
	}
}

func TestCompatibleSymmetric(t *testing.T) {
	a := swapListing(uuid.New(), "A", "North", []string{"B"})
	b := swapListing(uuid.New(), "B", "South", []string{"A"})

	assert.True(t, Compatible(a, b))
	assert.True(t, Compatible(b, a))
}

func TestCompatibleRejectsSameOwner(t *testing.T) {
	owner := uuid.New()
	a := swapListing(owner, "A", "North", []string{"B"})
	b := swapListing(owner, "B", "South", []string{"A"})

	assert.False(t, Compatible(a, b))
}

func TestCompatibleCategoryMustBeMutual(t *testing.T) {
	a := swapListing(uuid.New(), "A", "North", []string{"B"})
	b := swapListing(uuid.New(), "B", "South", []string{"C"}) // b does not want A

	assert.False(t, Compatible(a, b))
	assert.False(t, Compatible(b, a))
}

func TestCompatibleBuildingFilter(t *testing.T) {
	a := swapListing(uuid.New(), "A", "North", []string{"B"})
	a.DesiredBuildings = []string{"East"}
	b := swapListing(uuid.New(), "B", "South", []string{"A"})

	assert.False(t, Compatible(a, b))

	a.DesiredBuildings = []string{"South"}
	assert.True(t, Compatible(a, b))
}

func TestCompatibleDateWindows(t *testing.T) {
	a := swapListing(uuid.New(), "A", "North", []string{"B"})
	b := swapListing(uuid.New(), "B", "South", []string{"A"})

	// a only wants leases that end by December; b's runs to June.
	maxEnd := day(2026, 12, 1)
	a.DesiredMinStart = nil
	a.DesiredMaxEnd = &maxEnd
	assert.True(t, Compatible(a, b)) // b starts in September, before the cap

	minStart := day(2027, 7, 1) // after b's lease ends
	a.DesiredMinStart = &minStart
	a.DesiredMaxEnd = nil
	assert.False(t, Compatible(a, b))
}

func TestCompatibleLeasesMustOverlap(t *testing.T) {
	a := swapListing(uuid.New(), "A", "North", []string{"B"})
	b := swapListing(uuid.New(), "B", "South", []string{"A"})
	b.LeaseStartDate = day(2027, 7, 1)
	b.LeaseEndDate = day(2028, 6, 30)

	assert.False(t, Compatible(a, b))
}

func setupEngineTest(t *testing.T) (*Engine, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Listing{}))
	return &Engine{DB: db}, db
}

func TestFindCompatibleSwaps(t *testing.T) {
	e, db := setupEngineTest(t)

	mine := swapListing(uuid.New(), "A", "North", []string{"B"})
	match := swapListing(uuid.New(), "B", "South", []string{"A"})
	wrongCategory := swapListing(uuid.New(), "C", "South", []string{"A"})
	oneWay := swapListing(uuid.New(), "B", "South", []string{"C"})
	claimed := swapListing(uuid.New(), "B", "East", []string{"A"})
	claimed.Status = domain.ListingPendingApproval

	for _, l := range []*domain.Listing{mine, match, wrongCategory, oneWay, claimed} {
		require.NoError(t, db.Create(l).Error)
	}

	got, err := e.FindCompatibleSwaps(context.Background(), mine.ListingID, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, match.ListingID, got[0].ListingID)
}

func TestFindCompatibleSwapsRejectsLeaseTransfer(t *testing.T) {
	e, db := setupEngineTest(t)

	l := swapListing(uuid.New(), "A", "North", []string{"B"})
	l.ListingType = domain.ListingLeaseTransfer
	l.DesiredCategories = nil
	require.NoError(t, db.Create(l).Error)

	_, err := e.FindCompatibleSwaps(context.Background(), l.ListingID, 10)
	assert.Error(t, err)
}

func TestFindCompatibleLeaseTransfers(t *testing.T) {
	e, db := setupEngineTest(t)

	seeker := uuid.New()
	open := swapListing(uuid.New(), "A", "North", nil)
	open.ListingType = domain.ListingLeaseTransfer
	mineToo := swapListing(seeker, "A", "North", nil)
	mineToo.ListingType = domain.ListingLeaseTransfer
	for _, l := range []*domain.Listing{open, mineToo} {
		require.NoError(t, db.Create(l).Error)
	}

	got, err := e.FindCompatibleLeaseTransfers(context.Background(), TransferFilter{
		Category:   "A",
		ExcludeUID: seeker,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, open.ListingID, got[0].ListingID)
}
