package enums

import "fmt"

// BidRequestStatus maps to the bid_request_status enum in Postgres.
type BidRequestStatus string

const (
	BidRequestStatusActive   BidRequestStatus = "active"
	BidRequestStatusInactive BidRequestStatus = "inactive"
)

var validBidRequestStatuses = []BidRequestStatus{
	BidRequestStatusActive,
	BidRequestStatusInactive,
}

// String implements fmt.Stringer.
func (s BidRequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known BidRequestStatus.
func (s BidRequestStatus) IsValid() bool {
	for _, candidate := range validBidRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseBidRequestStatus converts raw input into a BidRequestStatus.
func ParseBidRequestStatus(value string) (BidRequestStatus, error) {
	for _, candidate := range validBidRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bid request status %q", value)
}
