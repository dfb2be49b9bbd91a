package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/athebyme/gomarket-platform/pricing-service/internal/domain/models"
	"github.com/athebyme/gomarket-platform/pricing-service/internal/domain/pricing"
	"github.com/athebyme/gomarket-platform/pricing-service/internal/domain/services"
	"github.com/athebyme/gomarket-platform/pricing-service/internal/utils"
	"github.com/athebyme/gomarket-platform/pricing-service/pkg/interfaces"
	utilspkg "github.com/athebyme/gomarket-platform/pricing-service/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// SupplierHandler обработчик запросов для поставщиков
type SupplierHandler struct {
	supplierService services.SupplierServiceInterface
	logger          interfaces.LoggerPort
}

// NewSupplierHandler создает новый обработчик поставщиков
func NewSupplierHandler(supplierService services.SupplierServiceInterface, logger interfaces.LoggerPort) *SupplierHandler {
	return &SupplierHandler{
		supplierService: supplierService,
		logger:          logger,
	}
}

// errorResponse представляет структуру ответа с ошибкой
type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// response представляет структуру успешного ответа
type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{
		Error:   code,
		Code:    status,
		Message: message,
	})
}

// tenantFromContext достает ID арендатора, добавленный middleware.Tenant
func tenantFromContext(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID, ok := r.Context().Value("tenant_id").(string)
	if !ok || tenantID == "" {
		renderError(w, r, http.StatusBadRequest, "bad_request", "ID арендатора не указан")
		return "", false
	}
	return tenantID, true
}

// CreateSupplier обрабатывает запрос на создание поставщика
func (h *SupplierHandler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromContext(w, r)
	if !ok {
		return
	}

	var supplier models.Supplier
	if err := json.NewDecoder(r.Body).Decode(&supplier); err != nil {
		renderError(w, r, http.StatusBadRequest, "bad_request", "Некорректный формат данных")
		return
	}

	if supplier.Code == "" {
		renderError(w, r, http.StatusBadRequest, "validation_error", "Код поставщика не может быть пустым")
		return
	}
	if supplier.Name == "" {
		renderError(w, r, http.StatusBadRequest, "validation_error", "Название поставщика не может быть пустым")
		return
	}

	created, err := h.supplierService.CreateSupplier(r.Context(), &supplier, tenantID)
	if err != nil {
		if errors.Is(err, utils.ErrSupplierCodeTaken) {
			renderError(w, r, http.StatusConflict, "conflict", "Код поставщика уже занят")
			return
		}
		h.logger.ErrorWithContext(r.Context(), "Ошибка создания поставщика",
			interfaces.LogField{Key: "error", Value: err.Error()})
		renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка создания поставщика")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response{
		Success: true,
		Data:    created,
	})
}

// GetSupplier обрабатывает запрос на получение поставщика по ID
func (h *SupplierHandler) GetSupplier(w http.ResponseWriter, r *http.Request) {
	supplierID := chi.URLParam(r, "id")
	if supplierID == "" {
		renderError(w, r, http.StatusBadRequest, "bad_request", "ID поставщика не указан")
		return
	}

	tenantID, ok := tenantFromContext(w, r)
	if !ok {
		return
	}

	supplier, err := h.supplierService.GetSupplier(r.Context(), supplierID, tenantID)
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения поставщика",
			interfaces.LogField{Key: "error", Value: err.Error()})
		renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка получения поставщика")
		return
	}

	if supplier == nil {
		renderError(w, r, http.StatusNotFound, "not_found", "Поставщик не найден")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    supplier,
	})
}

// ListSuppliers обрабатывает запрос на получение списка поставщиков
func (h *SupplierHandler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromContext(w, r)
	if !ok {
		return
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.Atoi(r.URL.Query().Get("page_size"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := &models.SupplierFilter{
		Code:        r.URL.Query().Get("code"),
		Location:    r.URL.Query().Get("location"),
		SearchQuery: r.URL.Query().Get("q"),
	}
	if hasFeed := r.URL.Query().Get("has_feed"); hasFeed != "" {
		if v, err := strconv.ParseBool(hasFeed); err == nil {
			filter.HasFeed = &v
		}
	}

	suppliers, total, err := h.supplierService.ListSuppliers(r.Context(), tenantID, filter, page, pageSize)
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения списка поставщиков",
			interfaces.LogField{Key: "error", Value: err.Error()})
		renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка получения списка поставщиков")
		return
	}

	pagination := utilsPagination(page, pageSize, total)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    suppliers,
		Meta: map[string]interface{}{
			"pagination": pagination,
		},
	})
}

// UpdateSupplier обрабатывает запрос на обновление поставщика
func (h *SupplierHandler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	supplierID := chi.URLParam(r, "id")
	if supplierID == "" {
		renderError(w, r, http.StatusBadRequest, "bad_request", "ID поставщика не указан")
		return
	}

	tenantID, ok := tenantFromContext(w, r)
	if !ok {
		return
	}

	var supplier models.Supplier
	if err := json.NewDecoder(r.Body).Decode(&supplier); err != nil {
		renderError(w, r, http.StatusBadRequest, "bad_request", "Некорректный формат данных")
		return
	}
	supplier.ID = supplierID

	if supplier.Name == "" {
		renderError(w, r, http.StatusBadRequest, "validation_error", "Название поставщика не может быть пустым")
		return
	}

	updated, err := h.supplierService.UpdateSupplier(r.Context(), &supplier, tenantID)
	if err != nil {
		if errors.Is(err, utils.ErrSupplierNotFound) {
			renderError(w, r, http.StatusNotFound, "not_found", "Поставщик не найден")
			return
		}
		h.logger.ErrorWithContext(r.Context(), "Ошибка обновления поставщика",
			interfaces.LogField{Key: "error", Value: err.Error()})
		renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка обновления поставщика")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    updated,
	})
}

// DeleteSupplier обрабатывает запрос на удаление поставщика
func (h *SupplierHandler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	supplierID := chi.URLParam(r, "id")
	if supplierID == "" {
		renderError(w, r, http.StatusBadRequest, "bad_request", "ID поставщика не указан")
		return
	}

	tenantID, ok := tenantFromContext(w, r)
	if !ok {
		return
	}

	if err := h.supplierService.DeleteSupplier(r.Context(), supplierID, tenantID); err != nil {
		if errors.Is(err, utils.ErrSupplierNotFound) {
			renderError(w, r, http.StatusNotFound, "not_found", "Поставщик не найден")
			return
		}
		h.logger.ErrorWithContext(r.Context(), "Ошибка удаления поставщика",
			interfaces.LogField{Key: "error", Value: err.Error()})
		renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка удаления поставщика")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data: map[string]interface{}{
			"id":      supplierID,
			"deleted": true,
		},
	})
}

// UpdateMapping обрабатывает запрос на замену маппинга колонок поставщика
func (h *SupplierHandler) UpdateMapping(w http.ResponseWriter, r *http.Request) {
	supplierID := chi.URLParam(r, "id")
	if supplierID == "" {
		renderError(w, r, http.StatusBadRequest, "bad_request", "ID поставщика не указан")
		return
	}

	tenantID, ok := tenantFromContext(w, r)
	if !ok {
		return
	}

	var mapping pricing.ColumnMapping
	if err := json.NewDecoder(r.Body).Decode(&mapping); err != nil {
		renderError(w, r, http.StatusBadRequest, "bad_request", "Некорректный формат данных")
		return
	}

	supplier, err := h.supplierService.UpdateMapping(r.Context(), supplierID, tenantID, mapping)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrSupplierNotFound):
			renderError(w, r, http.StatusNotFound, "not_found", "Поставщик не найден")
		case errors.Is(err, pricing.ErrMappingIncomplete):
			renderError(w, r, http.StatusBadRequest, "validation_error", err.Error())
		default:
			h.logger.ErrorWithContext(r.Context(), "Ошибка обновления маппинга",
				interfaces.LogField{Key: "error", Value: err.Error()})
			renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка обновления маппинга")
		}
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    supplier,
	})
}

// utilsPagination собирает метаданные пагинации для ответа
func utilsPagination(page, pageSize, total int) *utilspkg.Pagination {
	pagination := utilspkg.NewPagination(page, pageSize, "created_at", true)
	pagination.SetTotal(int64(total))
	return pagination
}
