package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-platform/pricing-service/internal/domain/models"
	"github.com/athebyme/gomarket-platform/pricing-service/pkg/interfaces"
	"github.com/athebyme/gomarket-platform/pricing-service/pkg/tx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SupplierStorageInterface определяет интерфейс взаимодействия с хранилищем PostgreSQL
type SupplierStorageInterface interface {
	// Supplier методы
	SaveSupplier(ctx context.Context, supplier *models.Supplier) error
	GetSupplier(ctx context.Context, supplierID string, tenantID string) (*models.Supplier, error)
	GetSupplierByCode(ctx context.Context, code string, tenantID string) (*models.Supplier, error)
	ListSuppliers(ctx context.Context, tenantID string, filters map[string]interface{}, page, pageSize int) ([]*models.Supplier, int, error)
	DeleteSupplier(ctx context.Context, supplierID string, tenantID string) error

	// SupplierFeed методы
	SaveFeed(ctx context.Context, feed *models.SupplierFeed) error
	GetFeed(ctx context.Context, feedID string, tenantID string) (*models.SupplierFeed, error)
	GetLatestFeed(ctx context.Context, supplierID string, tenantID string) (*models.SupplierFeed, error)

	// PricingRun методы
	SaveRun(ctx context.Context, run *models.PricingRun) error
	GetRun(ctx context.Context, runID string, tenantID string) (*models.PricingRun, error)
	ListRuns(ctx context.Context, supplierID string, tenantID string, limit, offset int) ([]*models.PricingRun, error)
}

// SupplierStoragePort расширяет хранилище поставщиков транзакциями
type SupplierStoragePort interface {
	SupplierStorageInterface
	interfaces.StoragePort
}

// SupplierStorage реализация интерфейса хранилища для PostgreSQL
type SupplierStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage создает новый экземпляр SupplierStorage
func NewPostgresStorage(ctx context.Context, connectionString string) (*SupplierStorage, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &SupplierStorage{
		pool: pool,
	}, nil
}

func NewPostgresStorageWithPool(ctx context.Context, pool *pgxpool.Pool) (*SupplierStorage, error) {
	if pool == nil {
		return nil, errors.New("pool is nil")
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &SupplierStorage{
		pool: pool,
	}, nil
}

// Close закрывает соединение с БД
func (r *SupplierStorage) Close() error {
	r.pool.Close()
	return nil
}

type executor interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// getExecutor возвращает исполнителя запросов (транзакцию или пул)
func (r *SupplierStorage) getExecutor(ctx context.Context) executor {
	if tx := r.getTx(ctx); tx != nil {
		return tx // pgx.Tx реализует нужные методы
	}
	return r.pool // *pgxpool.Pool тоже реализует нужные методы
}

// getTx получает транзакцию из контекста
func (r *SupplierStorage) getTx(ctx context.Context) pgx.Tx {
	txFromCtx, ok := ctx.Value(tx.GetKey()).(pgx.Tx)
	if !ok {
		return nil
	}
	return txFromCtx
}

// BeginTx начинает новую транзакцию
func (r *SupplierStorage) BeginTx(ctx context.Context) (context.Context, error) {
	pgxTx, err := r.pool.Begin(ctx)
	if err != nil {
		return ctx, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return context.WithValue(ctx, tx.GetKey(), pgxTx), nil
}

// CommitTx фиксирует транзакцию
func (r *SupplierStorage) CommitTx(ctx context.Context) error {
	tx := r.getTx(ctx)
	if tx == nil {
		return errors.New("no transaction in context")
	}
	return tx.Commit(ctx)
}

// RollbackTx откатывает транзакцию
func (r *SupplierStorage) RollbackTx(ctx context.Context) error {
	tx := r.getTx(ctx)
	if tx == nil {
		return errors.New("no transaction in context")
	}
	return tx.Rollback(ctx)
}

// SaveSupplier сохраняет поставщика в базу данных
func (r *SupplierStorage) SaveSupplier(ctx context.Context, supplier *models.Supplier) error {
	executor := r.getExecutor(ctx)

	query := `
		INSERT INTO pricing.suppliers (id, tenant_id, code, name, location, notes,
			fees, margins, mapping, shipping, last_feed_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id, tenant_id)
		DO UPDATE SET
			code = $3,
			name = $4,
			location = $5,
			notes = $6,
			fees = $7,
			margins = $8,
			mapping = $9,
			shipping = $10,
			last_feed_id = $11,
			updated_at = $13
	`

	now := time.Now().UTC()
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = now
	}
	supplier.UpdatedAt = now

	feesJSON, err := json.Marshal(supplier.Fees)
	if err != nil {
		return fmt.Errorf("failed to marshal fees: %w", err)
	}
	marginsJSON, err := json.Marshal(supplier.Margins)
	if err != nil {
		return fmt.Errorf("failed to marshal margins: %w", err)
	}
	mappingJSON, err := json.Marshal(supplier.Mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}
	var shippingJSON []byte
	if supplier.Shipping != nil {
		shippingJSON, err = json.Marshal(supplier.Shipping)
		if err != nil {
			return fmt.Errorf("failed to marshal shipping: %w", err)
		}
	}

	// NULL вместо пустой строки: на last_feed_id IS NULL опирается фильтр has_feed
	var lastFeedID *string
	if supplier.LastFeedID != "" {
		lastFeedID = &supplier.LastFeedID
	}

	switch e := executor.(type) {
	case pgx.Tx:
		_, err = e.Exec(ctx, query, supplier.ID, supplier.TenantID, supplier.Code, supplier.Name,
			supplier.Location, supplier.Notes, feesJSON, marginsJSON, mappingJSON, shippingJSON,
			lastFeedID, supplier.CreatedAt, supplier.UpdatedAt)
	case *pgxpool.Pool:
		_, err = e.Exec(ctx, query, supplier.ID, supplier.TenantID, supplier.Code, supplier.Name,
			supplier.Location, supplier.Notes, feesJSON, marginsJSON, mappingJSON, shippingJSON,
			lastFeedID, supplier.CreatedAt, supplier.UpdatedAt)
	}

	if err != nil {
		return fmt.Errorf("failed to save supplier: %w", err)
	}
	return nil
}

// GetSupplier получает поставщика по ID
func (r *SupplierStorage) GetSupplier(ctx context.Context, supplierID string, tenantID string) (*models.Supplier, error) {
	query := `
		SELECT id, tenant_id, code, name, location, notes,
			fees, margins, mapping, shipping, last_feed_id, created_at, updated_at
		FROM pricing.suppliers
		WHERE id = $1 AND tenant_id = $2
	`
	return r.querySupplier(ctx, query, supplierID, tenantID)
}

// GetSupplierByCode получает поставщика по короткому коду
func (r *SupplierStorage) GetSupplierByCode(ctx context.Context, code string, tenantID string) (*models.Supplier, error) {
	query := `
		SELECT id, tenant_id, code, name, location, notes,
			fees, margins, mapping, shipping, last_feed_id, created_at, updated_at
		FROM pricing.suppliers
		WHERE code = $1 AND tenant_id = $2
	`
	return r.querySupplier(ctx, query, code, tenantID)
}

func (r *SupplierStorage) querySupplier(ctx context.Context, query string, args ...interface{}) (*models.Supplier, error) {
	executor := r.getExecutor(ctx)

	var row pgx.Row
	switch e := executor.(type) {
	case pgx.Tx:
		row = e.QueryRow(ctx, query, args...)
	case *pgxpool.Pool:
		row = e.QueryRow(ctx, query, args...)
	}

	supplier, err := scanSupplier(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Поставщик не найден
		}
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}

	return supplier, nil
}

// scanSupplier читает строку поставщика вместе с JSONB-конфигурацией
func scanSupplier(row pgx.Row) (*models.Supplier, error) {
	var supplier models.Supplier
	var feesJSON, marginsJSON, mappingJSON, shippingJSON []byte
	var lastFeedID *string

	err := row.Scan(&supplier.ID, &supplier.TenantID, &supplier.Code, &supplier.Name,
		&supplier.Location, &supplier.Notes, &feesJSON, &marginsJSON, &mappingJSON,
		&shippingJSON, &lastFeedID, &supplier.CreatedAt, &supplier.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(feesJSON) > 0 {
		if err := json.Unmarshal(feesJSON, &supplier.Fees); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fees: %w", err)
		}
	}
	if len(marginsJSON) > 0 {
		if err := json.Unmarshal(marginsJSON, &supplier.Margins); err != nil {
			return nil, fmt.Errorf("failed to unmarshal margins: %w", err)
		}
	}
	if len(mappingJSON) > 0 {
		if err := json.Unmarshal(mappingJSON, &supplier.Mapping); err != nil {
			return nil, fmt.Errorf("failed to unmarshal mapping: %w", err)
		}
	}
	if len(shippingJSON) > 0 {
		if err := json.Unmarshal(shippingJSON, &supplier.Shipping); err != nil {
			return nil, fmt.Errorf("failed to unmarshal shipping: %w", err)
		}
	}
	if lastFeedID != nil {
		supplier.LastFeedID = *lastFeedID
	}

	return &supplier, nil
}

// ListSuppliers возвращает список поставщиков с поддержкой пагинации и фильтрации
func (r *SupplierStorage) ListSuppliers(ctx context.Context, tenantID string, filters map[string]interface{}, page, pageSize int) ([]*models.Supplier, int, error) {
	baseQuery := `
		FROM pricing.suppliers
		WHERE tenant_id = $1
	`

	args := []interface{}{tenantID}
	argPos := 2
	var filterConditions []string

	if code, ok := filters["code"].(string); ok && code != "" {
		filterConditions = append(filterConditions, fmt.Sprintf("code = $%d", argPos))
		args = append(args, code)
		argPos++
	}
	if location, ok := filters["location"].(string); ok && location != "" {
		filterConditions = append(filterConditions, fmt.Sprintf("location = $%d", argPos))
		args = append(args, location)
		argPos++
	}
	if hasFeed, ok := filters["has_feed"].(bool); ok {
		if hasFeed {
			filterConditions = append(filterConditions, "last_feed_id IS NOT NULL")
		} else {
			filterConditions = append(filterConditions, "last_feed_id IS NULL")
		}
	}
	if search, ok := filters["search_query"].(string); ok && search != "" {
		filterConditions = append(filterConditions,
			fmt.Sprintf("(code ILIKE $%d OR name ILIKE $%d OR notes ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, "%"+search+"%")
		argPos++
	}

	condition := genFilterConditions(filterConditions)
	countQuery := "SELECT COUNT(*) " + baseQuery + condition

	var total int
	executor := r.getExecutor(ctx)

	switch e := executor.(type) {
	case pgx.Tx:
		err := e.QueryRow(ctx, countQuery, args...).Scan(&total)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to count suppliers: %w", err)
		}
	case *pgxpool.Pool:
		err := e.QueryRow(ctx, countQuery, args...).Scan(&total)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to count suppliers: %w", err)
		}
	}

	// Если нет записей, возвращаем пустой результат
	if total == 0 {
		return []*models.Supplier{}, 0, nil
	}

	args = append(args, pageSize, (page-1)*pageSize)

	dataQuery := `
		SELECT id, tenant_id, code, name, location, notes,
			fees, margins, mapping, shipping, last_feed_id, created_at, updated_at
	` + baseQuery + condition + `
		ORDER BY code
		LIMIT $` + fmt.Sprint(argPos) + ` OFFSET $` + fmt.Sprint(argPos+1)

	var rows pgx.Rows
	var err error

	switch e := executor.(type) {
	case pgx.Tx:
		rows, err = e.Query(ctx, dataQuery, args...)
	case *pgxpool.Pool:
		rows, err = e.Query(ctx, dataQuery, args...)
	}

	if err != nil {
		return nil, 0, fmt.Errorf("failed to list suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []*models.Supplier
	for rows.Next() {
		supplier, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan supplier row: %w", err)
		}
		suppliers = append(suppliers, supplier)
	}

	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("error while iterating supplier rows: %w", rows.Err())
	}

	return suppliers, total, nil
}

// DeleteSupplier удаляет поставщика из хранилища вместе с фидами и запусками
func (r *SupplierStorage) DeleteSupplier(ctx context.Context, supplierID string, tenantID string) error {
	executor := r.getExecutor(ctx)

	query := `
		DELETE FROM pricing.suppliers
		WHERE id = $1 AND tenant_id = $2
	`

	var err error
	switch e := executor.(type) {
	case pgx.Tx:
		_, err = e.Exec(ctx, query, supplierID, tenantID)
	case *pgxpool.Pool:
		_, err = e.Exec(ctx, query, supplierID, tenantID)
	}

	if err != nil {
		return fmt.Errorf("failed to delete supplier: %w", err)
	}

	return nil
}

// SaveFeed сохраняет загруженный фид поставщика
func (r *SupplierStorage) SaveFeed(ctx context.Context, feed *models.SupplierFeed) error {
	executor := r.getExecutor(ctx)

	// Если ID пустой, генерируем новый
	if feed.ID == "" {
		feed.ID = uuid.New().String()
	}
	if feed.UploadedAt.IsZero() {
		feed.UploadedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO pricing.feeds (id, tenant_id, supplier_id, filename, content, row_count, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id, tenant_id)
		DO UPDATE SET
			filename = $4,
			content = $5,
			row_count = $6,
			uploaded_at = $7
	`

	var err error
	switch e := executor.(type) {
	case pgx.Tx:
		_, err = e.Exec(ctx, query, feed.ID, feed.TenantID, feed.SupplierID, feed.Filename,
			feed.Content, feed.RowCount, feed.UploadedAt)
	case *pgxpool.Pool:
		_, err = e.Exec(ctx, query, feed.ID, feed.TenantID, feed.SupplierID, feed.Filename,
			feed.Content, feed.RowCount, feed.UploadedAt)
	}

	if err != nil {
		return fmt.Errorf("failed to save feed: %w", err)
	}

	return nil
}

// GetFeed получает фид по ID
func (r *SupplierStorage) GetFeed(ctx context.Context, feedID string, tenantID string) (*models.SupplierFeed, error) {
	query := `
		SELECT id, tenant_id, supplier_id, filename, content, row_count, uploaded_at
		FROM pricing.feeds
		WHERE id = $1 AND tenant_id = $2
	`
	return r.queryFeed(ctx, query, feedID, tenantID)
}

// GetLatestFeed получает последний загруженный фид поставщика
func (r *SupplierStorage) GetLatestFeed(ctx context.Context, supplierID string, tenantID string) (*models.SupplierFeed, error) {
	query := `
		SELECT id, tenant_id, supplier_id, filename, content, row_count, uploaded_at
		FROM pricing.feeds
		WHERE supplier_id = $1 AND tenant_id = $2
		ORDER BY uploaded_at DESC
		LIMIT 1
	`
	return r.queryFeed(ctx, query, supplierID, tenantID)
}

func (r *SupplierStorage) queryFeed(ctx context.Context, query string, args ...interface{}) (*models.SupplierFeed, error) {
	executor := r.getExecutor(ctx)

	var feed models.SupplierFeed
	var err error

	switch e := executor.(type) {
	case pgx.Tx:
		row := e.QueryRow(ctx, query, args...)
		err = row.Scan(&feed.ID, &feed.TenantID, &feed.SupplierID, &feed.Filename,
			&feed.Content, &feed.RowCount, &feed.UploadedAt)
	case *pgxpool.Pool:
		row := e.QueryRow(ctx, query, args...)
		err = row.Scan(&feed.ID, &feed.TenantID, &feed.SupplierID, &feed.Filename,
			&feed.Content, &feed.RowCount, &feed.UploadedAt)
	}

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Фид не найден
		}
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return &feed, nil
}

// SaveRun сохраняет завершенный расчет цен
func (r *SupplierStorage) SaveRun(ctx context.Context, run *models.PricingRun) error {
	executor := r.getExecutor(ctx)

	// Если ID пустой, генерируем новый
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO pricing.runs (id, tenant_id, supplier_id, feed_id, accepted,
			skipped_missing_sku, skipped_invalid_cost, export_csv, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var err error
	switch e := executor.(type) {
	case pgx.Tx:
		_, err = e.Exec(ctx, query, run.ID, run.TenantID, run.SupplierID, run.FeedID,
			run.Accepted, run.SkippedMissingSKU, run.SkippedInvalidCost, run.ExportCSV, run.CreatedAt)
	case *pgxpool.Pool:
		_, err = e.Exec(ctx, query, run.ID, run.TenantID, run.SupplierID, run.FeedID,
			run.Accepted, run.SkippedMissingSKU, run.SkippedInvalidCost, run.ExportCSV, run.CreatedAt)
	}

	if err != nil {
		return fmt.Errorf("failed to save pricing run: %w", err)
	}

	return nil
}

// GetRun получает расчет цен по ID
func (r *SupplierStorage) GetRun(ctx context.Context, runID string, tenantID string) (*models.PricingRun, error) {
	executor := r.getExecutor(ctx)

	query := `
		SELECT id, tenant_id, supplier_id, feed_id, accepted,
			skipped_missing_sku, skipped_invalid_cost, export_csv, created_at
		FROM pricing.runs
		WHERE id = $1 AND tenant_id = $2
	`

	var run models.PricingRun
	var err error

	switch e := executor.(type) {
	case pgx.Tx:
		row := e.QueryRow(ctx, query, runID, tenantID)
		err = row.Scan(&run.ID, &run.TenantID, &run.SupplierID, &run.FeedID, &run.Accepted,
			&run.SkippedMissingSKU, &run.SkippedInvalidCost, &run.ExportCSV, &run.CreatedAt)
	case *pgxpool.Pool:
		row := e.QueryRow(ctx, query, runID, tenantID)
		err = row.Scan(&run.ID, &run.TenantID, &run.SupplierID, &run.FeedID, &run.Accepted,
			&run.SkippedMissingSKU, &run.SkippedInvalidCost, &run.ExportCSV, &run.CreatedAt)
	}

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Запуск не найден
		}
		return nil, fmt.Errorf("failed to get pricing run: %w", err)
	}

	return &run, nil
}

// ListRuns возвращает историю запусков расчета для поставщика.
// Выгрузка не включается: для нее есть GetRun.
func (r *SupplierStorage) ListRuns(ctx context.Context, supplierID string, tenantID string, limit, offset int) ([]*models.PricingRun, error) {
	executor := r.getExecutor(ctx)

	query := `
		SELECT id, tenant_id, supplier_id, feed_id, accepted,
			skipped_missing_sku, skipped_invalid_cost, created_at
		FROM pricing.runs
		WHERE supplier_id = $1 AND tenant_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	var rows pgx.Rows
	var err error

	switch e := executor.(type) {
	case pgx.Tx:
		rows, err = e.Query(ctx, query, supplierID, tenantID, limit, offset)
	case *pgxpool.Pool:
		rows, err = e.Query(ctx, query, supplierID, tenantID, limit, offset)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query pricing runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.PricingRun
	for rows.Next() {
		var run models.PricingRun
		err := rows.Scan(&run.ID, &run.TenantID, &run.SupplierID, &run.FeedID, &run.Accepted,
			&run.SkippedMissingSKU, &run.SkippedInvalidCost, &run.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pricing run row: %w", err)
		}
		runs = append(runs, &run)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error while iterating pricing run rows: %w", rows.Err())
	}

	return runs, nil
}

// Вспомогательная функция для генерации условий фильтрации
func genFilterConditions(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}

	result := ""
	for _, condition := range conditions {
		result += " AND " + condition
	}

	return result
}
