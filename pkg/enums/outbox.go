package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateCatalogProduct OutboxAggregateType = "catalog_product"
	AggregateUpload         OutboxAggregateType = "upload"
	AggregateBidRequest     OutboxAggregateType = "bid_request"
	AggregateBid            OutboxAggregateType = "bid"
	AggregateOrder          OutboxAggregateType = "order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateCatalogProduct,
	AggregateUpload,
	AggregateBidRequest,
	AggregateBid,
	AggregateOrder,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventUploadProgress      OutboxEventType = "upload_progress"
	EventUploadComplete      OutboxEventType = "upload_complete"
	EventUploadError         OutboxEventType = "upload_error"
	EventBidCreated          OutboxEventType = "bid_created"
	EventBidUpdated          OutboxEventType = "bid_updated"
	EventBidCancelled        OutboxEventType = "bid_cancelled"
	EventBidRequestCreated   OutboxEventType = "bid_request_created"
	EventBidRequestCancelled OutboxEventType = "bid_request_cancelled"
	EventOrderCreated        OutboxEventType = "order_created"
	EventOrderUpdated        OutboxEventType = "order_updated"
)

var validOutboxEventTypes = []OutboxEventType{
	EventUploadProgress,
	EventUploadComplete,
	EventUploadError,
	EventBidCreated,
	EventBidUpdated,
	EventBidCancelled,
	EventBidRequestCreated,
	EventBidRequestCancelled,
	EventOrderCreated,
	EventOrderUpdated,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
