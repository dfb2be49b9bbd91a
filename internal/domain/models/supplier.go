package models

import (
	"time"

	"github.com/athebyme/gomarket-platform/pricing-service/internal/domain/pricing"
)

// Supplier представляет модель поставщика с его ценовой конфигурацией
type Supplier struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	// Code - короткий уникальный код поставщика ("acme"), попадает в выгрузку
	Code     string `json:"code"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Notes    string `json:"notes,omitempty"`

	// Ценовая конфигурация поставщика, хранится как JSONB
	Fees     pricing.FeeConfig       `db:"fees" json:"fees"`
	Margins  pricing.MarginConfig    `db:"margins" json:"margins"`
	Mapping  pricing.ColumnMapping   `db:"mapping" json:"mapping,omitempty"`
	Shipping *pricing.ShippingConfig `db:"shipping" json:"shipping,omitempty"`

	// LastFeedID - последний загруженный фид, пустая строка если фида нет
	LastFeedID string    `json:"last_feed_id,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// SupplierFeed представляет загруженный прайс-лист поставщика.
// Содержимое хранится как есть; разбор выполняется на каждом расчете
type SupplierFeed struct {
	ID         string    `json:"id"`
	SupplierID string    `json:"supplier_id"`
	TenantID   string    `json:"tenant_id"`
	Filename   string    `json:"filename"`
	Content    string    `db:"content" json:"-"`
	RowCount   int       `json:"row_count"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// PricingRun представляет завершенный расчет цен по фиду поставщика
type PricingRun struct {
	ID         string `json:"id"`
	SupplierID string `json:"supplier_id"`
	FeedID     string `json:"feed_id"`
	TenantID   string `json:"tenant_id"`

	Accepted           int `json:"accepted"`
	SkippedMissingSKU  int `json:"skipped_missing_sku"`
	SkippedInvalidCost int `json:"skipped_invalid_cost"`

	// ExportCSV - готовая выгрузка, отдается как файл без пересчета
	ExportCSV string    `db:"export_csv" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
