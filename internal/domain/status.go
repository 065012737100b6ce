package domain

// RoomCategory is the fixed building/size classification used by matching.
type RoomCategory string

const (
	CategoryA RoomCategory = "A"
	CategoryB RoomCategory = "B"
	CategoryC RoomCategory = "C"
)

func IsValidRoomCategory(c string) bool {
	switch RoomCategory(c) {
	case CategoryA, CategoryB, CategoryC:
		return true
	}
	return false
}

// ListingType distinguishes the two listing kinds, each with its own legal
// status vocabulary.
type ListingType string

const (
	ListingLeaseTransfer ListingType = "LEASE_TRANSFER"
	ListingSwapRequest   ListingType = "SWAP_REQUEST"
)

// ListingStatus is the lifecycle state of a listing. Which values are legal
// depends on the listing type; use ValidStatusFor and CanTransition rather
// than comparing raw strings.
type ListingStatus string

const (
	ListingOpen            ListingStatus = "OPEN"
	ListingMatched         ListingStatus = "MATCHED"
	ListingPartialMatch    ListingStatus = "PARTIAL_MATCH"
	ListingFullyMatched    ListingStatus = "FULLY_MATCHED"
	ListingPendingApproval ListingStatus = "PENDING_APPROVAL"
	ListingCompleted       ListingStatus = "COMPLETED"
	ListingCancelled       ListingStatus = "CANCELLED"
	ListingExpired         ListingStatus = "EXPIRED"
)

var leaseTransferTransitions = map[ListingStatus][]ListingStatus{
	ListingOpen:            {ListingMatched, ListingPendingApproval, ListingCancelled, ListingExpired},
	ListingMatched:         {ListingPendingApproval, ListingOpen, ListingCancelled},
	ListingPendingApproval: {ListingCompleted, ListingCancelled},
	ListingCompleted:       {},
	ListingCancelled:       {},
	ListingExpired:         {},
}

var swapRequestTransitions = map[ListingStatus][]ListingStatus{
	ListingOpen:            {ListingPartialMatch, ListingFullyMatched, ListingCancelled, ListingExpired},
	ListingPartialMatch:    {ListingFullyMatched, ListingPendingApproval, ListingOpen, ListingCancelled, ListingExpired},
	ListingFullyMatched:    {ListingPendingApproval, ListingPartialMatch, ListingCancelled},
	ListingPendingApproval: {ListingCompleted, ListingCancelled},
	ListingCompleted:       {},
	ListingCancelled:       {},
	ListingExpired:         {},
}

func transitionsFor(lt ListingType) map[ListingStatus][]ListingStatus {
	if lt == ListingSwapRequest {
		return swapRequestTransitions
	}
	return leaseTransferTransitions
}

// ValidStatusFor reports whether s is part of the listing type's vocabulary.
func ValidStatusFor(lt ListingType, s ListingStatus) bool {
	_, ok := transitionsFor(lt)[s]
	return ok
}

// CanTransition reports whether a listing of type lt may move from one status
// to another. Terminal statuses have no outgoing transitions.
func CanTransition(lt ListingType, from, to ListingStatus) bool {
	for _, t := range transitionsFor(lt)[from] {
		if t == to {
			return true
		}
	}
	return false
}

// IsTerminalListingStatus reports whether the listing can never change again.
func IsTerminalListingStatus(s ListingStatus) bool {
	switch s {
	case ListingCompleted, ListingCancelled, ListingExpired:
		return true
	}
	return false
}

// NonTerminalListingStatuses are the statuses that still hold a claim on the
// listed room (at most one such listing may reference a room at a time).
var NonTerminalListingStatuses = []ListingStatus{
	ListingOpen, ListingMatched, ListingPartialMatch, ListingFullyMatched, ListingPendingApproval,
}

// ClaimableSwapStatuses are the swap listing statuses that may still receive
// new paired bids.
var ClaimableSwapStatuses = []ListingStatus{ListingOpen, ListingPartialMatch}

// MatchType distinguishes a one-sided transfer bid from one leg of a
// two-sided swap pair.
type MatchType string

const (
	MatchLeaseTransfer MatchType = "LEASE_TRANSFER"
	MatchSwapLeg       MatchType = "SWAP_LEG"
)

// MatchStatus is the proposal lifecycle. PROPOSED is the only live state; all
// four others are terminal and no transition is reversible.
type MatchStatus string

const (
	MatchProposed  MatchStatus = "PROPOSED"
	MatchAccepted  MatchStatus = "ACCEPTED"
	MatchRejected  MatchStatus = "REJECTED"
	MatchExpired   MatchStatus = "EXPIRED"
	MatchCancelled MatchStatus = "CANCELLED"
)

// SupersededReason marks bids expired because a competing bid was accepted.
const SupersededReason = "superseded"

// TransactionType mirrors the settlement shape: one room handed over, or two
// rooms exchanged.
type TransactionType string

const (
	TxLeaseTransfer TransactionType = "LEASE_TRANSFER"
	TxSwap          TransactionType = "SWAP"
)

type TransactionStatus string

const (
	TxPending    TransactionStatus = "PENDING"
	TxInProgress TransactionStatus = "IN_PROGRESS"
	TxCompleted  TransactionStatus = "COMPLETED"
	TxFailed     TransactionStatus = "FAILED"
	TxCancelled  TransactionStatus = "CANCELLED"
)
