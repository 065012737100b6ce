package listings

import (
	"context"
	"encoding/json"
	"time"

	"dorm-exchange-backend/internal/application/matches"
	"dorm-exchange-backend/internal/domain"
	"dorm-exchange-backend/internal/pkg/apperror"
	"dorm-exchange-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service is the listing store. It owns creation and owner-driven mutation;
// status flips past OPEN belong to the match engine and settlement.
type Service struct {
	DB            *gorm.DB
	ListingExpiry time.Duration
}

type CreateLeaseTransferInput struct {
	RoomID         uuid.UUID  `json:"room_id"`
	LeaseStartDate time.Time  `json:"lease_start_date"`
	LeaseEndDate   time.Time  `json:"lease_end_date"`
	MoveInDate     *time.Time `json:"move_in_date"`
	Description    string     `json:"description"`
	AskingPrice    *int       `json:"asking_price"`
}

type CreateSwapRequestInput struct {
	RoomID            uuid.UUID  `json:"room_id"`
	LeaseStartDate    time.Time  `json:"lease_start_date"`
	LeaseEndDate      time.Time  `json:"lease_end_date"`
	MoveInDate        *time.Time `json:"move_in_date"`
	Description       string     `json:"description"`
	DesiredCategories []string   `json:"desired_categories"`
	DesiredBuildings  []string   `json:"desired_buildings"`
	DesiredMinStart   *time.Time `json:"desired_min_start"`
	DesiredMaxEnd     *time.Time `json:"desired_max_end"`
}

type UpdateListingInput struct {
	Description       *string    `json:"description"`
	AskingPrice       *int       `json:"asking_price"`
	LeaseStartDate    *time.Time `json:"lease_start_date"`
	LeaseEndDate      *time.Time `json:"lease_end_date"`
	MoveInDate        *time.Time `json:"move_in_date"`
	DesiredCategories []string   `json:"desired_categories"`
	DesiredBuildings  []string   `json:"desired_buildings"`
}

type BrowseFilter struct {
	ListingType string
	Category    string
	Building    string
	Status      string
	Page        int
	Limit       int
}

// BrowsePage is the paginated browse result.
type BrowsePage struct {
	Items   []domain.Listing `json:"items"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
	HasNext bool             `json:"has_next"`
}

func (s *Service) expiry() time.Duration {
	if s.ListingExpiry > 0 {
		return s.ListingExpiry
	}
	return 30 * 24 * time.Hour
}

func (s *Service) validateDates(start, end time.Time, moveIn *time.Time) error {
	if !validation.IsValidLeaseWindow(start, end) {
		return apperror.Validation("lease_end_date must be after lease_start_date")
	}
	if moveIn != nil && !validation.IsWithinWindow(*moveIn, start, end) {
		return apperror.Validation("move_in_date must fall within the lease window")
	}
	return nil
}

// roomAvailableForListing verifies the room exists, is active, and carries no
// other non-terminal listing. At most one live listing may offer a room.
func (s *Service) roomAvailableForListing(tx *gorm.DB, roomID uuid.UUID) (*domain.Room, error) {
	var room domain.Room
	if err := tx.Where("room_id = ?", roomID).First(&room).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("Room %s not found", roomID)
		}
		return nil, apperror.Internal("Failed to fetch room", err)
	}
	if !room.IsActive {
		return nil, apperror.Validation("Room %s is not active", roomID)
	}
	var count int64
	if err := tx.Model(&domain.Listing{}).
		Where("room_id = ? AND status IN ?", roomID, domain.NonTerminalListingStatuses).
		Count(&count).Error; err != nil {
		return nil, apperror.Internal("Failed to check existing listings", err)
	}
	if count > 0 {
		return nil, apperror.Validation("Room already has an active listing")
	}
	return &room, nil
}

func (s *Service) CreateLeaseTransfer(ctx context.Context, ownerUID uuid.UUID, in CreateLeaseTransferInput) (*domain.Listing, error) {
	if err := s.validateDates(in.LeaseStartDate, in.LeaseEndDate, in.MoveInDate); err != nil {
		return nil, err
	}

	var listing *domain.Listing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := s.roomAvailableForListing(tx, in.RoomID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		listing = &domain.Listing{
			ListingType:    domain.ListingLeaseTransfer,
			Status:         domain.ListingOpen,
			Version:        1,
			OwnerUID:       ownerUID,
			RoomID:         room.RoomID,
			RoomCategory:   room.Category,
			RoomBuilding:   room.Building,
			LeaseStartDate: in.LeaseStartDate,
			LeaseEndDate:   in.LeaseEndDate,
			MoveInDate:     in.MoveInDate,
			Description:    in.Description,
			AskingPrice:    in.AskingPrice,
			ExpiresAt:      now.Add(s.expiry()),
		}
		if err := tx.Create(listing).Error; err != nil {
			return apperror.Internal("Failed to create listing", err)
		}
		return writeEvent(tx, listing.ListingID, domain.EventCreated, &ownerUID, map[string]interface{}{
			"listing_type": listing.ListingType,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("listing_id", listing.ListingID.String()).Str("owner_uid", ownerUID.String()).Msg("Lease transfer listing created")
	return listing, nil
}

func (s *Service) CreateSwapRequest(ctx context.Context, ownerUID uuid.UUID, in CreateSwapRequestInput) (*domain.Listing, error) {
	if err := s.validateDates(in.LeaseStartDate, in.LeaseEndDate, in.MoveInDate); err != nil {
		return nil, err
	}
	if len(in.DesiredCategories) == 0 {
		return nil, apperror.Validation("Must specify at least one desired category")
	}
	for _, c := range in.DesiredCategories {
		if !domain.IsValidRoomCategory(c) {
			return nil, apperror.Validation("Invalid desired category %q", c)
		}
	}
	if in.DesiredMinStart != nil && in.DesiredMaxEnd != nil && in.DesiredMaxEnd.Before(*in.DesiredMinStart) {
		return nil, apperror.Validation("desired_max_end must not precede desired_min_start")
	}

	var listing *domain.Listing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := s.roomAvailableForListing(tx, in.RoomID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		listing = &domain.Listing{
			ListingType:       domain.ListingSwapRequest,
			Status:            domain.ListingOpen,
			Version:           1,
			OwnerUID:          ownerUID,
			RoomID:            room.RoomID,
			RoomCategory:      room.Category,
			RoomBuilding:      room.Building,
			LeaseStartDate:    in.LeaseStartDate,
			LeaseEndDate:      in.LeaseEndDate,
			MoveInDate:        in.MoveInDate,
			Description:       in.Description,
			DesiredCategories: in.DesiredCategories,
			DesiredBuildings:  in.DesiredBuildings,
			DesiredMinStart:   in.DesiredMinStart,
			DesiredMaxEnd:     in.DesiredMaxEnd,
			ExpiresAt:         now.Add(s.expiry()),
		}
		if err := tx.Create(listing).Error; err != nil {
			return apperror.Internal("Failed to create listing", err)
		}
		return writeEvent(tx, listing.ListingID, domain.EventCreated, &ownerUID, map[string]interface{}{
			"listing_type":       listing.ListingType,
			"desired_categories": in.DesiredCategories,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("listing_id", listing.ListingID.String()).Str("owner_uid", ownerUID.String()).Msg("Swap request listing created")
	return listing, nil
}

func (s *Service) GetListing(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("Listing %s not found", listingID)
		}
		return nil, apperror.Internal("Failed to fetch listing", err)
	}
	return &listing, nil
}

func (s *Service) GetUserListings(ctx context.Context, ownerUID uuid.UUID, status string) ([]domain.Listing, error) {
	q := s.DB.WithContext(ctx).Where("owner_uid = ?", ownerUID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var listings []domain.Listing
	if err := q.Order("created_at DESC").Find(&listings).Error; err != nil {
		return nil, apperror.Internal("Failed to fetch listings", err)
	}
	return listings, nil
}

// Browse returns a page of listings ordered by creation time, so pagination
// is stable for a given snapshot.
func (s *Service) Browse(ctx context.Context, f BrowseFilter) (*BrowsePage, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	q := s.DB.WithContext(ctx).Model(&domain.Listing{})
	if f.ListingType != "" {
		q = q.Where("listing_type = ?", f.ListingType)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	} else {
		q = q.Where("status = ?", domain.ListingOpen)
	}
	if f.Category != "" {
		q = q.Where("room_category = ?", f.Category)
	}
	if f.Building != "" {
		q = q.Where("room_building = ?", f.Building)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperror.Internal("Failed to count listings", err)
	}

	var items []domain.Listing
	if err := q.Order("created_at ASC").Offset((f.Page - 1) * f.Limit).Limit(f.Limit).Find(&items).Error; err != nil {
		return nil, apperror.Internal("Failed to fetch listings", err)
	}
	return &BrowsePage{
		Items:   items,
		Total:   total,
		Page:    f.Page,
		Limit:   f.Limit,
		HasNext: int64(f.Page*f.Limit) < total,
	}, nil
}

// Update is permitted only while the listing is OPEN, and only by its owner.
func (s *Service) Update(ctx context.Context, listingID, actor uuid.UUID, in UpdateListingInput) (*domain.Listing, error) {
	var listing *domain.Listing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var l domain.Listing
		if err := tx.Where("listing_id = ?", listingID).First(&l).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperror.NotFound("Listing %s not found", listingID)
			}
			return apperror.Internal("Failed to fetch listing", err)
		}
		if l.OwnerUID != actor {
			return apperror.Forbidden("You can only update your own listings")
		}
		if l.Status != domain.ListingOpen {
			return apperror.InvalidState("Can only update listings in OPEN status")
		}

		start := l.LeaseStartDate
		end := l.LeaseEndDate
		if in.LeaseStartDate != nil {
			start = *in.LeaseStartDate
		}
		if in.LeaseEndDate != nil {
			end = *in.LeaseEndDate
		}
		moveIn := l.MoveInDate
		if in.MoveInDate != nil {
			moveIn = in.MoveInDate
		}
		if err := s.validateDates(start, end, moveIn); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"lease_start_date": start,
			"lease_end_date":   end,
			"version":          l.Version + 1,
		}
		if in.MoveInDate != nil {
			updates["move_in_date"] = in.MoveInDate
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if in.AskingPrice != nil {
			if l.ListingType != domain.ListingLeaseTransfer {
				return apperror.Validation("asking_price only applies to lease transfers")
			}
			updates["asking_price"] = in.AskingPrice
		}
		if in.DesiredCategories != nil {
			if !l.IsSwap() {
				return apperror.Validation("desired_categories only applies to swap requests")
			}
			if len(in.DesiredCategories) == 0 {
				return apperror.Validation("Must specify at least one desired category")
			}
			for _, c := range in.DesiredCategories {
				if !domain.IsValidRoomCategory(c) {
					return apperror.Validation("Invalid desired category %q", c)
				}
			}
			updates["desired_categories"] = domain.StringList(in.DesiredCategories)
		}
		if in.DesiredBuildings != nil {
			if !l.IsSwap() {
				return apperror.Validation("desired_buildings only applies to swap requests")
			}
			updates["desired_buildings"] = domain.StringList(in.DesiredBuildings)
		}

		if err := tx.Model(&domain.Listing{}).
			Where("listing_id = ? AND version = ?", listingID, l.Version).
			Updates(updates).Error; err != nil {
			return apperror.Internal("Failed to update listing", err)
		}
		if err := writeEvent(tx, listingID, domain.EventUpdated, &actor, nil); err != nil {
			return err
		}
		if err := tx.Where("listing_id = ?", listingID).First(&l).Error; err != nil {
			return apperror.Internal("Failed to reload listing", err)
		}
		listing = &l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// Cancel moves a non-terminal listing to CANCELLED and cascade-expires every
// PROPOSED bid on it, including paired swap legs on other listings.
func (s *Service) Cancel(ctx context.Context, listingID, actor uuid.UUID) (*domain.Listing, error) {
	var listing *domain.Listing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var l domain.Listing
		if err := tx.Where("listing_id = ?", listingID).First(&l).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperror.NotFound("Listing %s not found", listingID)
			}
			return apperror.Internal("Failed to fetch listing", err)
		}
		if l.OwnerUID != actor {
			return apperror.Forbidden("You can only cancel your own listings")
		}
		// Once a bid is accepted the commitment is voided through the
		// settlement transaction, not by the owner pulling the listing;
		// PENDING_APPROVAL -> CANCELLED stays reserved for that path.
		if l.Status == domain.ListingPendingApproval {
			return apperror.InvalidState("Listing is pending settlement; cancel the transaction instead")
		}
		if !domain.CanTransition(l.ListingType, l.Status, domain.ListingCancelled) {
			return apperror.InvalidState("Cannot cancel a %s listing", l.Status)
		}

		res := tx.Model(&domain.Listing{}).
			Where("listing_id = ? AND status = ?", listingID, l.Status).
			Updates(map[string]interface{}{"status": domain.ListingCancelled, "version": l.Version + 1})
		if res.Error != nil {
			return apperror.Internal("Failed to cancel listing", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.InvalidState("Listing state changed, refresh and retry")
		}

		now := time.Now().UTC()
		if err := matches.ExpireProposedBids(tx, listingID, "", now); err != nil {
			return err
		}
		if err := writeEvent(tx, listingID, domain.EventCancelled, &actor, nil); err != nil {
			return err
		}
		l.Status = domain.ListingCancelled
		l.Version++
		listing = &l
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("listing_id", listingID.String()).Msg("Listing cancelled")
	return listing, nil
}

func writeEvent(tx *gorm.DB, listingID uuid.UUID, eventType string, actor *uuid.UUID, data map[string]interface{}) error {
	var payload datatypes.JSON
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return apperror.Internal("Failed to encode event payload", err)
		}
		payload = datatypes.JSON(b)
	}
	if err := tx.Create(&domain.ListingEvent{
		ListingID: listingID,
		EventType: eventType,
		ActorUID:  actor,
		EventData: payload,
	}).Error; err != nil {
		return apperror.Internal("Failed to record listing event", err)
	}
	return nil
}
