package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-platform/pricing-service/internal/adapters/messaging"
	postgres "github.com/athebyme/gomarket-platform/pricing-service/internal/adapters/storage"
	"github.com/athebyme/gomarket-platform/pricing-service/internal/domain/models"
	"github.com/athebyme/gomarket-platform/pricing-service/internal/domain/pricing"
	"github.com/athebyme/gomarket-platform/pricing-service/internal/utils"
	"github.com/athebyme/gomarket-platform/pricing-service/pkg/interfaces"
)

// Время жизни предпросмотра в кэше. Предпросмотр детерминирован по фиду
// и конфигурации, TTL страхует только от устаревшей инвалидации.
const previewCacheTTL = 5 * time.Minute

// Число строк фида в ответе на загрузку
const uploadPreviewRows = 10

// PricingDefaults - параметры расчета уровня сервиса, не зависящие от
// поставщика. Заполняются из конфигурации.
type PricingDefaults struct {
	Marketplaces []string
	FeeTable     pricing.MarketplaceFeeTable
	Category     string
	SellMode     pricing.SellPriceMode
	Rounding     pricing.RoundingMode
	DimDivisor   float64
}

// FeedUploadResult - ответ на загрузку фида: сохраненный фид, заголовки,
// угаданный маппинг и первые строки для проверки глазами.
type FeedUploadResult struct {
	Feed           *models.SupplierFeed  `json:"feed"`
	Headers        []string              `json:"headers"`
	GuessedMapping pricing.ColumnMapping `json:"guessed_mapping"`
	Preview        []map[string]string   `json:"preview"`
}

// PricingServiceInterface определяет операции расчета цен
type PricingServiceInterface interface {
	UploadFeed(ctx context.Context, supplierID, tenantID, filename string, content []byte) (*FeedUploadResult, error)
	PreviewPricing(ctx context.Context, supplierID, tenantID string, limit int) (*pricing.PricingResult, error)
	RunPricing(ctx context.Context, supplierID, feedID, tenantID string) (*models.PricingRun, error)
	GetRun(ctx context.Context, runID, tenantID string) (*models.PricingRun, error)
	ListRuns(ctx context.Context, supplierID, tenantID string, limit, offset int) ([]*models.PricingRun, error)
}

// PricingService предоставляет бизнес-логику расчета цен по фидам
type PricingService struct {
	storage   postgres.SupplierStoragePort
	cache     interfaces.CachePort
	messaging *messaging.KafkaMessaging
	log       interfaces.LoggerPort
	defaults  PricingDefaults
}

// NewPricingService создает новый экземпляр PricingService
func NewPricingService(
	storage postgres.SupplierStoragePort,
	cache interfaces.CachePort,
	msg *messaging.KafkaMessaging,
	log interfaces.LoggerPort,
	defaults PricingDefaults,
) *PricingService {
	return &PricingService{
		storage:   storage,
		cache:     cache,
		messaging: msg,
		log:       log,
		defaults:  defaults,
	}
}

// UploadFeed сохраняет фид поставщика и угадывает маппинг колонок.
// Догадка рекомендательная: расчет использует маппинг поставщика,
// который пользователь подтверждает или правит отдельным запросом.
func (s *PricingService) UploadFeed(ctx context.Context, supplierID, tenantID, filename string, content []byte) (*FeedUploadResult, error) {
	supplier, err := s.storage.GetSupplier(ctx, supplierID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	if supplier == nil {
		return nil, utils.ErrSupplierNotFound
	}

	if len(content) == 0 {
		return nil, utils.ErrEmptyFeed
	}

	parsed, err := pricing.ParseFeed(string(content))
	if err != nil {
		return nil, err
	}

	feed := &models.SupplierFeed{
		SupplierID: supplierID,
		TenantID:   tenantID,
		Filename:   filename,
		Content:    string(content),
		RowCount:   len(parsed.Rows),
	}

	// Фид и ссылка на него у поставщика сохраняются в одной транзакции
	txCtx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := s.storage.SaveFeed(txCtx, feed); err != nil {
		s.storage.RollbackTx(txCtx)
		return nil, fmt.Errorf("failed to save feed: %w", err)
	}

	guessed := pricing.GuessMapping(parsed.Headers)
	supplier.LastFeedID = feed.ID
	if len(supplier.Mapping) == 0 {
		supplier.Mapping = guessed
	}

	if err := s.storage.SaveSupplier(txCtx, supplier); err != nil {
		s.storage.RollbackTx(txCtx)
		return nil, fmt.Errorf("failed to update supplier feed reference: %w", err)
	}

	if err := s.storage.CommitTx(txCtx); err != nil {
		s.storage.RollbackTx(txCtx)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.invalidatePreviews(ctx, supplierID, tenantID)
	s.publishFeedUploaded(ctx, feed)

	return &FeedUploadResult{
		Feed:           feed,
		Headers:        parsed.Headers,
		GuessedMapping: guessed,
		Preview:        parsed.Preview(uploadPreviewRows),
	}, nil
}

// PreviewPricing считает цены по первым строкам последнего фида поставщика.
// Результат кэшируется до следующей загрузки фида или правки поставщика.
func (s *PricingService) PreviewPricing(ctx context.Context, supplierID, tenantID string, limit int) (*pricing.PricingResult, error) {
	cacheKey := fmt.Sprintf("preview:%s:%d", supplierID, limit)
	if cached, err := s.cache.GetWithTenant(ctx, cacheKey, tenantID); err == nil {
		var result pricing.PricingResult
		if err := json.Unmarshal(cached, &result); err == nil {
			return &result, nil
		}
	}

	supplier, feed, err := s.supplierWithLatestFeed(ctx, supplierID, tenantID)
	if err != nil {
		return nil, err
	}

	parsed, err := pricing.ParseFeed(feed.Content)
	if err != nil {
		return nil, err
	}

	cfg := s.runConfig(supplier)
	cfg.Limit = limit

	result, err := pricing.PriceRows(parsed, cfg)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := s.cache.SetWithTenant(ctx, cacheKey, data, tenantID, previewCacheTTL); err != nil {
			s.log.WarnWithContext(ctx, "failed to cache pricing preview", "supplier_id", supplierID, "error", err)
		}
	}

	return result, nil
}

// RunPricing выполняет полный расчет по фиду и сохраняет готовую выгрузку.
// Пустой feedID означает последний фид поставщика.
func (s *PricingService) RunPricing(ctx context.Context, supplierID, feedID, tenantID string) (*models.PricingRun, error) {
	supplier, err := s.storage.GetSupplier(ctx, supplierID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	if supplier == nil {
		return nil, utils.ErrSupplierNotFound
	}

	var feed *models.SupplierFeed
	if feedID != "" {
		feed, err = s.storage.GetFeed(ctx, feedID, tenantID)
	} else {
		feed, err = s.storage.GetLatestFeed(ctx, supplierID, tenantID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	if feed == nil {
		return nil, utils.ErrFeedNotFound
	}

	parsed, err := pricing.ParseFeed(feed.Content)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	result, err := pricing.PriceAll(parsed, s.runConfig(supplier))
	if err != nil {
		s.publishRunFinished(ctx, nil, feed, err)
		return nil, err
	}

	exportCSV, err := pricing.ExportCSV(result.Rows)
	if err != nil {
		return nil, fmt.Errorf("failed to build export: %w", err)
	}

	run := &models.PricingRun{
		SupplierID:         supplierID,
		FeedID:             feed.ID,
		TenantID:           tenantID,
		Accepted:           result.Accepted,
		SkippedMissingSKU:  result.SkippedMissingSKU,
		SkippedInvalidCost: result.SkippedInvalidCost,
		ExportCSV:          exportCSV,
	}

	if err := s.storage.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save pricing run: %w", err)
	}

	s.log.InfoWithContext(ctx, "pricing run completed",
		"supplier_id", supplierID,
		"run_id", run.ID,
		"accepted", run.Accepted,
		"skipped_missing_sku", run.SkippedMissingSKU,
		"skipped_invalid_cost", run.SkippedInvalidCost,
		"duration", time.Since(started).String(),
	)

	s.publishRunFinished(ctx, run, feed, nil)

	return run, nil
}

// GetRun получает завершенный расчет вместе с выгрузкой
func (s *PricingService) GetRun(ctx context.Context, runID, tenantID string) (*models.PricingRun, error) {
	run, err := s.storage.GetRun(ctx, runID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pricing run: %w", err)
	}
	if run == nil {
		return nil, nil // Запуск не найден
	}
	return run, nil
}

// ListRuns возвращает историю запусков поставщика
func (s *PricingService) ListRuns(ctx context.Context, supplierID, tenantID string, limit, offset int) ([]*models.PricingRun, error) {
	runs, err := s.storage.ListRuns(ctx, supplierID, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pricing runs: %w", err)
	}
	return runs, nil
}

// runConfig собирает конфигурацию расчета из настроек поставщика и сервиса
func (s *PricingService) runConfig(supplier *models.Supplier) pricing.PricingRunConfig {
	shipping := supplier.Shipping
	if shipping != nil && shipping.DimDivisor <= 0 {
		copied := *shipping
		copied.DimDivisor = s.defaults.DimDivisor
		shipping = &copied
	}

	return pricing.PricingRunConfig{
		SupplierCode: supplier.Code,
		Mapping:      supplier.Mapping,
		Fees:         supplier.Fees,
		Margins:      supplier.Margins,
		Shipping:     shipping,
		FeeTable:     s.defaults.FeeTable,
		Marketplaces: s.defaults.Marketplaces,
		Category:     s.defaults.Category,
		SellMode:     s.defaults.SellMode,
		Rounding:     s.defaults.Rounding,
	}
}

func (s *PricingService) supplierWithLatestFeed(ctx context.Context, supplierID, tenantID string) (*models.Supplier, *models.SupplierFeed, error) {
	supplier, err := s.storage.GetSupplier(ctx, supplierID, tenantID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	if supplier == nil {
		return nil, nil, utils.ErrSupplierNotFound
	}

	feed, err := s.storage.GetLatestFeed(ctx, supplierID, tenantID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get latest feed: %w", err)
	}
	if feed == nil {
		return nil, nil, utils.ErrFeedNotFound
	}

	return supplier, feed, nil
}

// invalidatePreviews сбрасывает кэшированные предпросмотры поставщика
func (s *PricingService) invalidatePreviews(ctx context.Context, supplierID, tenantID string) {
	if err := s.cache.DeleteByPatternWithTenant(ctx, "preview:"+supplierID+":*", tenantID); err != nil {
		s.log.WarnWithContext(ctx, "failed to invalidate preview cache", "supplier_id", supplierID, "error", err)
	}
	if err := s.cache.DeleteWithTenant(ctx, "supplier:"+supplierID, tenantID); err != nil {
		s.log.WarnWithContext(ctx, "failed to invalidate supplier cache", "supplier_id", supplierID, "error", err)
	}
}

// publishFeedUploaded отправляет событие загрузки фида; по нему воркер
// запускает полный пересчет
func (s *PricingService) publishFeedUploaded(ctx context.Context, feed *models.SupplierFeed) {
	payload, err := json.Marshal(messaging.FeedUploaded{
		Event:      messaging.FeedUploadedEvent,
		FeedID:     feed.ID,
		SupplierID: feed.SupplierID,
		TenantID:   feed.TenantID,
		Filename:   feed.Filename,
		RowCount:   feed.RowCount,
		OccurredAt: time.Now().Unix(),
	})
	if err != nil {
		s.log.ErrorWithContext(ctx, "failed to marshal feed uploaded event", "feed_id", feed.ID, "error", err)
		return
	}

	if err := s.messaging.PublishForTenant(ctx, messaging.FeedUploadedTopic, feed.SupplierID, payload, feed.TenantID); err != nil {
		s.log.ErrorWithContext(ctx, "failed to publish feed uploaded event", "feed_id", feed.ID, "error", err)
	}
}

// publishRunFinished отправляет событие завершения расчета, успешного или нет
func (s *PricingService) publishRunFinished(ctx context.Context, run *models.PricingRun, feed *models.SupplierFeed, runErr error) {
	event := messaging.RunCompleted{
		Event:      messaging.RunCompletedEvent,
		FeedID:     feed.ID,
		SupplierID: feed.SupplierID,
		TenantID:   feed.TenantID,
		OccurredAt: time.Now().Unix(),
	}
	if runErr != nil {
		event.Event = messaging.RunFailedEvent
		event.FailReason = runErr.Error()
	} else {
		event.RunID = run.ID
		event.Accepted = run.Accepted
		event.SkippedMissingSKU = run.SkippedMissingSKU
		event.SkippedInvalidCost = run.SkippedInvalidCost
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.log.ErrorWithContext(ctx, "failed to marshal run event", "feed_id", feed.ID, "error", err)
		return
	}

	if err := s.messaging.PublishForTenant(ctx, messaging.RunCompletedTopic, feed.SupplierID, payload, feed.TenantID); err != nil {
		s.log.ErrorWithContext(ctx, "failed to publish run event", "feed_id", feed.ID, "error", err)
	}
}
