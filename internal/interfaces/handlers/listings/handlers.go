package listings

import (
	"strconv"
	"time"

	listsvc "dorm-exchange-backend/internal/application/listings"
	matchsvc "dorm-exchange-backend/internal/application/matches"
	"dorm-exchange-backend/internal/application/matching"
	"dorm-exchange-backend/internal/middleware"
	"dorm-exchange-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *listsvc.Service
	Matches *matchsvc.Service
	Matcher *matching.Engine
}

func parseListingID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("listing_id"))
}

// CreateLeaseTransfer POST /api/v1/listings/lease-transfer
func (h *Handlers) CreateLeaseTransfer(c *fiber.Ctx) error {
	var in listsvc.CreateLeaseTransferInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	listing, err := h.Service.CreateLeaseTransfer(c.Context(), middleware.ActorUID(c), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Listing created successfully", fiber.Map{"listing": listing}, nil)
}

// CreateSwapRequest POST /api/v1/listings/swap-request
func (h *Handlers) CreateSwapRequest(c *fiber.Ctx) error {
	var in listsvc.CreateSwapRequestInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	listing, err := h.Service.CreateSwapRequest(c.Context(), middleware.ActorUID(c), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Listing created successfully", fiber.Map{"listing": listing}, nil)
}

// Browse GET /api/v1/listings?type=&category=&building=&status=&page=&limit=
func (h *Handlers) Browse(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	result, err := h.Service.Browse(c.Context(), listsvc.BrowseFilter{
		ListingType: c.Query("type"),
		Category:    c.Query("category"),
		Building:    c.Query("building"),
		Status:      c.Query("status"),
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listings fetched successfully", fiber.Map{"listings": result.Items}, fiber.Map{
		"total":    result.Total,
		"page":     result.Page,
		"limit":    result.Limit,
		"has_next": result.HasNext,
	})
}

// MyListings GET /api/v1/listings/my?status=
func (h *Handlers) MyListings(c *fiber.Ctx) error {
	listings, err := h.Service.GetUserListings(c.Context(), middleware.ActorUID(c), c.Query("status"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listings fetched successfully", fiber.Map{"listings": listings}, nil)
}

// Get GET /api/v1/listings/:listing_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	listingID, err := parseListingID(c)
	if err != nil {
		return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	listing, err := h.Service.GetListing(c.Context(), listingID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing found", fiber.Map{"listing": listing}, nil)
}

// Update PUT /api/v1/listings/:listing_id — owner only, OPEN only.
func (h *Handlers) Update(c *fiber.Ctx) error {
	listingID, err := parseListingID(c)
	if err != nil {
		return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	var in listsvc.UpdateListingInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	listing, err := h.Service.Update(c.Context(), listingID, middleware.ActorUID(c), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing updated successfully", fiber.Map{"listing": listing}, nil)
}

// Cancel POST /api/v1/listings/:listing_id/cancel — owner only, expires all
// live bids on the listing.
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	listingID, err := parseListingID(c)
	if err != nil {
		return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	listing, err := h.Service.Cancel(c.Context(), listingID, middleware.ActorUID(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing cancelled successfully", fiber.Map{"listing": listing}, nil)
}

// CompatibleSwaps GET /api/v1/listings/:listing_id/compatible-swaps?limit=
func (h *Handlers) CompatibleSwaps(c *fiber.Ctx) error {
	listingID, err := parseListingID(c)
	if err != nil {
		return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	candidates, err := h.Matcher.FindCompatibleSwaps(c.Context(), listingID, limit)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Compatible listings fetched successfully", fiber.Map{"listings": candidates}, nil)
}

// CompatibleTransfers GET /api/v1/listings/compatible-transfers — open lease
// transfers filtered by category/building/date window, own listings excluded.
func (h *Handlers) CompatibleTransfers(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	f := matching.TransferFilter{
		Category:   c.Query("category"),
		Building:   c.Query("building"),
		ExcludeUID: middleware.ActorUID(c),
		Limit:      limit,
	}
	if v := c.Query("min_start"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return response.Error(c, "Invalid min_start date (expected YYYY-MM-DD)", fiber.StatusBadRequest, nil)
		}
		f.MinStart = &d
	}
	if v := c.Query("max_end"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return response.Error(c, "Invalid max_end date (expected YYYY-MM-DD)", fiber.StatusBadRequest, nil)
		}
		f.MaxEnd = &d
	}
	listings, err := h.Matcher.FindCompatibleLeaseTransfers(c.Context(), f)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Compatible listings fetched successfully", fiber.Map{"listings": listings}, nil)
}

// Bids GET /api/v1/listings/:listing_id/bids — owner only.
func (h *Handlers) Bids(c *fiber.Ctx) error {
	listingID, err := parseListingID(c)
	if err != nil {
		return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	bids, err := h.Matches.ListListingBids(c.Context(), listingID, middleware.ActorUID(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Bids fetched successfully", fiber.Map{"matches": bids}, nil)
}

// Claim POST /api/v1/listings/:listing_id/claim
func (h *Handlers) Claim(c *fiber.Ctx) error {
	listingID, err := parseListingID(c)
	if err != nil {
		return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	var in matchsvc.ClaimInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	result, err := h.Matches.Claim(c.Context(), listingID, middleware.ActorUID(c), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Claim created successfully", result, nil)
}
