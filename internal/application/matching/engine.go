package matching

import (
	"context"
	"time"

	"dorm-exchange-backend/internal/domain"
	"dorm-exchange-backend/internal/pkg/apperror"
	"dorm-exchange-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Engine answers compatibility queries. It never writes; every query is a
// plain snapshot read and safe to repeat.
type Engine struct {
	DB *gorm.DB
}

// TransferFilter narrows the lease-transfer browse for seekers without a
// listing of their own.
type TransferFilter struct {
	Category   string
	Building   string
	MinStart   *time.Time
	MaxEnd     *time.Time
	ExcludeUID uuid.UUID
	Limit      int
}

// Compatible reports whether two swap listings mutually satisfy each other:
// each offered room fits the other side's desired categories and buildings,
// and each lease window overlaps the other side's desired window.
func Compatible(a, b *domain.Listing) bool {
	if a.OwnerUID == b.OwnerUID || a.ListingID == b.ListingID {
		return false
	}
	if !a.DesiredCategories.Contains(b.RoomCategory) {
		return false
	}
	if !b.DesiredCategories.Contains(a.RoomCategory) {
		return false
	}
	if len(a.DesiredBuildings) > 0 && !a.DesiredBuildings.Contains(b.RoomBuilding) {
		return false
	}
	if len(b.DesiredBuildings) > 0 && !b.DesiredBuildings.Contains(a.RoomBuilding) {
		return false
	}
	return windowFits(a, b) && windowFits(b, a)
}

// windowFits checks seeker's desired date window against the candidate's
// lease. Nil bounds are open-ended.
func windowFits(seeker, candidate *domain.Listing) bool {
	minStart := candidate.LeaseStartDate
	if seeker.DesiredMinStart != nil && seeker.DesiredMinStart.After(minStart) {
		minStart = *seeker.DesiredMinStart
	}
	maxEnd := candidate.LeaseEndDate
	if seeker.DesiredMaxEnd != nil && seeker.DesiredMaxEnd.Before(maxEnd) {
		maxEnd = *seeker.DesiredMaxEnd
	}
	if maxEnd.Before(minStart) {
		return false
	}
	// The two leases themselves must share at least one day.
	return validation.WindowsOverlap(
		seeker.LeaseStartDate, seeker.LeaseEndDate,
		candidate.LeaseStartDate, candidate.LeaseEndDate,
	)
}

// FindCompatibleSwaps returns the open swap listings that mutually satisfy
// the given listing, ordered by candidate creation time.
func (e *Engine) FindCompatibleSwaps(ctx context.Context, listingID uuid.UUID, limit int) ([]domain.Listing, error) {
	if limit <= 0 {
		limit = 20
	}

	var listing domain.Listing
	if err := e.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("Listing %s not found", listingID)
		}
		return nil, apperror.Internal("Failed to fetch listing", err)
	}
	if !listing.IsSwap() {
		return nil, apperror.Validation("Compatibility queries only apply to swap requests")
	}
	if len(listing.DesiredCategories) == 0 {
		return []domain.Listing{}, nil
	}

	var candidates []domain.Listing
	if err := e.DB.WithContext(ctx).
		Where("listing_type = ?", domain.ListingSwapRequest).
		Where("status IN ?", domain.ClaimableSwapStatuses).
		Where("room_category IN ?", []string(listing.DesiredCategories)).
		Where("owner_uid != ?", listing.OwnerUID).
		Order("created_at ASC").
		Find(&candidates).Error; err != nil {
		return nil, apperror.Internal("Failed to fetch swap candidates", err)
	}

	compatible := make([]domain.Listing, 0, len(candidates))
	for i := range candidates {
		if Compatible(&listing, &candidates[i]) {
			compatible = append(compatible, candidates[i])
			if len(compatible) >= limit {
				break
			}
		}
	}
	return compatible, nil
}

// FindCompatibleLeaseTransfers lists open lease transfers matching the
// filter, for seekers browsing without a counterpart listing.
func (e *Engine) FindCompatibleLeaseTransfers(ctx context.Context, f TransferFilter) ([]domain.Listing, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	q := e.DB.WithContext(ctx).
		Where("listing_type = ?", domain.ListingLeaseTransfer).
		Where("status = ?", domain.ListingOpen)
	if f.Category != "" {
		q = q.Where("room_category = ?", f.Category)
	}
	if f.Building != "" {
		q = q.Where("room_building = ?", f.Building)
	}
	if f.ExcludeUID != uuid.Nil {
		q = q.Where("owner_uid != ?", f.ExcludeUID)
	}
	if f.MinStart != nil {
		q = q.Where("lease_start_date >= ?", *f.MinStart)
	}
	if f.MaxEnd != nil {
		q = q.Where("lease_end_date <= ?", *f.MaxEnd)
	}

	var listings []domain.Listing
	if err := q.Order("created_at ASC").Limit(f.Limit).Find(&listings).Error; err != nil {
		return nil, apperror.Internal("Failed to fetch lease transfers", err)
	}
	return listings, nil
}
