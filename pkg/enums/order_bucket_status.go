package enums

import "fmt"

// OrderBucketStatus maps to the order_bucket_status enum in Postgres.
type OrderBucketStatus string

const (
	OrderBucketStatusPendingFulfillment OrderBucketStatus = "pending_fulfillment"
	OrderBucketStatusClosed             OrderBucketStatus = "closed"
)

var validOrderBucketStatuses = []OrderBucketStatus{
	OrderBucketStatusPendingFulfillment,
	OrderBucketStatusClosed,
}

// String implements fmt.Stringer.
func (s OrderBucketStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderBucketStatus.
func (s OrderBucketStatus) IsValid() bool {
	for _, candidate := range validOrderBucketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderBucketStatus converts raw input into an OrderBucketStatus.
func ParseOrderBucketStatus(value string) (OrderBucketStatus, error) {
	for _, candidate := range validOrderBucketStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order bucket status %q", value)
}
