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
	"github.com/google/uuid"
)

// Время жизни карточки поставщика в кэше
const supplierCacheTTL = 10 * time.Minute

// SupplierServiceInterface определяет операции над поставщиками
type SupplierServiceInterface interface {
	CreateSupplier(ctx context.Context, supplier *models.Supplier, tenantID string) (*models.Supplier, error)
	UpdateSupplier(ctx context.Context, supplier *models.Supplier, tenantID string) (*models.Supplier, error)
	GetSupplier(ctx context.Context, supplierID string, tenantID string) (*models.Supplier, error)
	ListSuppliers(ctx context.Context, tenantID string, filter *models.SupplierFilter, page, pageSize int) ([]*models.Supplier, int, error)
	DeleteSupplier(ctx context.Context, supplierID string, tenantID string) error
	UpdateMapping(ctx context.Context, supplierID string, tenantID string, mapping pricing.ColumnMapping) (*models.Supplier, error)
}

// SupplierService предоставляет бизнес-логику для работы с поставщиками
type SupplierService struct {
	storage   postgres.SupplierStoragePort
	cache     interfaces.CachePort
	messaging *messaging.KafkaMessaging
	log       interfaces.LoggerPort
}

// NewSupplierService создает новый экземпляр SupplierService
func NewSupplierService(
	storage postgres.SupplierStoragePort,
	cache interfaces.CachePort,
	msg *messaging.KafkaMessaging,
	log interfaces.LoggerPort,
) *SupplierService {
	return &SupplierService{
		storage:   storage,
		cache:     cache,
		messaging: msg,
		log:       log,
	}
}

// CreateSupplier создает нового поставщика.
// Код поставщика уникален в пределах арендатора.
func (s *SupplierService) CreateSupplier(ctx context.Context, supplier *models.Supplier, tenantID string) (*models.Supplier, error) {
	if supplier.Code == "" {
		return nil, utils.ErrInvalidSupplierID
	}

	existing, err := s.storage.GetSupplierByCode(ctx, supplier.Code, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to check supplier code: %w", err)
	}
	if existing != nil {
		return nil, utils.ErrSupplierCodeTaken
	}

	if supplier.ID == "" {
		supplier.ID = uuid.New().String()
	}
	supplier.TenantID = tenantID
	supplier.Margins = supplier.Margins.Normalize()

	if err := s.storage.SaveSupplier(ctx, supplier); err != nil {
		return nil, fmt.Errorf("failed to save supplier: %w", err)
	}

	s.publishSupplierEvent(ctx, messaging.SupplierCreatedEvent, supplier)

	return supplier, nil
}

// UpdateSupplier обновляет существующего поставщика
func (s *SupplierService) UpdateSupplier(ctx context.Context, supplier *models.Supplier, tenantID string) (*models.Supplier, error) {
	existing, err := s.storage.GetSupplier(ctx, supplier.ID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing supplier: %w", err)
	}
	if existing == nil {
		return nil, utils.ErrSupplierNotFound
	}

	// Код и последний фид меняются своими операциями
	supplier.TenantID = tenantID
	supplier.Code = existing.Code
	supplier.LastFeedID = existing.LastFeedID
	supplier.CreatedAt = existing.CreatedAt
	supplier.Margins = supplier.Margins.Normalize()

	if err := s.storage.SaveSupplier(ctx, supplier); err != nil {
		return nil, fmt.Errorf("failed to update supplier: %w", err)
	}

	s.invalidateSupplier(ctx, supplier.ID, tenantID)
	s.publishSupplierEvent(ctx, messaging.SupplierUpdatedEvent, supplier)

	return supplier, nil
}

// GetSupplier получает поставщика по ID, сначала из кэша
func (s *SupplierService) GetSupplier(ctx context.Context, supplierID string, tenantID string) (*models.Supplier, error) {
	cacheKey := "supplier:" + supplierID
	if cached, err := s.cache.GetWithTenant(ctx, cacheKey, tenantID); err == nil {
		var supplier models.Supplier
		if err := json.Unmarshal(cached, &supplier); err == nil {
			return &supplier, nil
		}
	}

	supplier, err := s.storage.GetSupplier(ctx, supplierID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	if supplier == nil {
		return nil, nil // Поставщик не найден
	}

	if data, err := json.Marshal(supplier); err == nil {
		if err := s.cache.SetWithTenant(ctx, cacheKey, data, tenantID, supplierCacheTTL); err != nil {
			s.log.WarnWithContext(ctx, "failed to cache supplier", "supplier_id", supplierID, "error", err)
		}
	}

	return supplier, nil
}

// ListSuppliers получает список поставщиков с фильтрацией и пагинацией
func (s *SupplierService) ListSuppliers(ctx context.Context, tenantID string, filter *models.SupplierFilter, page, pageSize int) ([]*models.Supplier, int, error) {
	filterMap := map[string]interface{}{}
	if filter != nil {
		filterMap = filter.ToMap()
	}

	suppliers, total, err := s.storage.ListSuppliers(ctx, tenantID, filterMap, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list suppliers: %w", err)
	}

	return suppliers, total, nil
}

// DeleteSupplier удаляет поставщика вместе с его фидами и расчетами
func (s *SupplierService) DeleteSupplier(ctx context.Context, supplierID string, tenantID string) error {
	existing, err := s.storage.GetSupplier(ctx, supplierID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to get existing supplier: %w", err)
	}
	if existing == nil {
		return utils.ErrSupplierNotFound
	}

	if err := s.storage.DeleteSupplier(ctx, supplierID, tenantID); err != nil {
		return fmt.Errorf("failed to delete supplier: %w", err)
	}

	s.invalidateSupplier(ctx, supplierID, tenantID)
	s.publishSupplierEvent(ctx, messaging.SupplierDeletedEvent, existing)

	return nil
}

// UpdateMapping заменяет маппинг колонок поставщика.
// Маппинг проверяется против заголовков последнего фида, если он есть.
func (s *SupplierService) UpdateMapping(ctx context.Context, supplierID string, tenantID string, mapping pricing.ColumnMapping) (*models.Supplier, error) {
	supplier, err := s.storage.GetSupplier(ctx, supplierID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	if supplier == nil {
		return nil, utils.ErrSupplierNotFound
	}

	if supplier.LastFeedID != "" {
		feed, err := s.storage.GetFeed(ctx, supplier.LastFeedID, tenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to get latest feed: %w", err)
		}
		if feed != nil {
			parsed, err := pricing.ParseFeed(feed.Content)
			if err != nil {
				return nil, fmt.Errorf("failed to parse stored feed: %w", err)
			}
			if err := mapping.Validate(parsed.Headers); err != nil {
				return nil, err
			}
		}
	}

	supplier.Mapping = mapping
	if err := s.storage.SaveSupplier(ctx, supplier); err != nil {
		return nil, fmt.Errorf("failed to save mapping: %w", err)
	}

	s.invalidateSupplier(ctx, supplierID, tenantID)
	s.publishSupplierEvent(ctx, messaging.SupplierUpdatedEvent, supplier)

	return supplier, nil
}

// invalidateSupplier сбрасывает кэш карточки поставщика и его предпросмотров
func (s *SupplierService) invalidateSupplier(ctx context.Context, supplierID string, tenantID string) {
	if err := s.cache.DeleteWithTenant(ctx, "supplier:"+supplierID, tenantID); err != nil {
		s.log.WarnWithContext(ctx, "failed to invalidate supplier cache", "supplier_id", supplierID, "error", err)
	}
	if err := s.cache.DeleteByPatternWithTenant(ctx, "preview:"+supplierID+":*", tenantID); err != nil {
		s.log.WarnWithContext(ctx, "failed to invalidate preview cache", "supplier_id", supplierID, "error", err)
	}
}

// publishSupplierEvent отправляет событие изменения поставщика.
// Ошибка публикации не прерывает операцию: хранилище уже изменено.
func (s *SupplierService) publishSupplierEvent(ctx context.Context, event messaging.KafkaEvent, supplier *models.Supplier) {
	payload, err := json.Marshal(messaging.SupplierEvent{
		Event:      event,
		SupplierID: supplier.ID,
		TenantID:   supplier.TenantID,
		Code:       supplier.Code,
		OccurredAt: time.Now().Unix(),
	})
	if err != nil {
		s.log.ErrorWithContext(ctx, "failed to marshal supplier event", "event", event, "error", err)
		return
	}

	if err := s.messaging.PublishForTenant(ctx, messaging.SupplierEventsTopic, supplier.ID, payload, supplier.TenantID); err != nil {
		s.log.ErrorWithContext(ctx, "failed to publish supplier event", "event", event, "error", err)
	}
}
