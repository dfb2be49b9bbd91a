package messaging

// Топики сервиса. Создаются воркером при старте, если их еще нет.
const (
	SupplierEventsTopic = "pricing.supplier-events"
	FeedUploadedTopic   = "pricing.feed-uploaded"
	RunCompletedTopic   = "pricing.run-completed"
)

type KafkaEvent = string

const (
	SupplierCreatedEvent = "supplier_created"
	SupplierUpdatedEvent = "supplier_updated"
	SupplierDeletedEvent = "supplier_deleted"
	FeedUploadedEvent    = "feed_uploaded"
	RunCompletedEvent    = "run_completed"
	RunFailedEvent       = "run_failed"
)

// SupplierEvent - событие изменения поставщика
type SupplierEvent struct {
	Event      KafkaEvent `json:"event"`
	SupplierID string     `json:"supplier_id"`
	TenantID   string     `json:"tenant_id"`
	Code       string     `json:"code"`
	OccurredAt int64      `json:"occurred_at"`
}

// FeedUploaded - событие загрузки нового фида. Воркер по нему запускает
// полный пересчет цен поставщика.
type FeedUploaded struct {
	Event      KafkaEvent `json:"event"`
	FeedID     string     `json:"feed_id"`
	SupplierID string     `json:"supplier_id"`
	TenantID   string     `json:"tenant_id"`
	Filename   string     `json:"filename"`
	RowCount   int        `json:"row_count"`
	OccurredAt int64      `json:"occurred_at"`
}

// RunCompleted - событие завершения расчета (успешного или нет)
type RunCompleted struct {
	Event              KafkaEvent `json:"event"`
	RunID              string     `json:"run_id,omitempty"`
	FeedID             string     `json:"feed_id"`
	SupplierID         string     `json:"supplier_id"`
	TenantID           string     `json:"tenant_id"`
	Accepted           int        `json:"accepted,omitempty"`
	SkippedMissingSKU  int        `json:"skipped_missing_sku,omitempty"`
	SkippedInvalidCost int        `json:"skipped_invalid_cost,omitempty"`
	FailReason         string     `json:"fail_reason,omitempty"`
	OccurredAt         int64      `json:"occurred_at"`
}
