package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/athebyme/gomarket-platform/pricing-service/internal/domain/pricing"
	"github.com/athebyme/gomarket-platform/pricing-service/internal/domain/services"
	"github.com/athebyme/gomarket-platform/pricing-service/internal/utils"
	"github.com/athebyme/gomarket-platform/pricing-service/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// Максимальный размер загружаемого фида: 32 МБ
const maxFeedSize = 32 << 20

// PricingHandler обработчик запросов расчета цен
type PricingHandler struct {
	pricingService services.PricingServiceInterface
	logger         interfaces.LoggerPort
}

// NewPricingHandler создает новый обработчик расчета цен
func NewPricingHandler(pricingService services.PricingServiceInterface, logger interfaces.LoggerPort) *PricingHandler {
	return &PricingHandler{
		pricingService: pricingService,
		logger:         logger,
	}
}

// UploadFeed обрабатывает загрузку фида поставщика.
// Принимает multipart-форму с полем file либо сырое тело text/csv.
func (h *PricingHandler) UploadFeed(w http.ResponseWriter, r *http.Request) {
	supplierID := chi.URLParam(r, "id")
	if supplierID == "" {
		renderError(w, r, http.StatusBadRequest, "bad_request", "ID поставщика не указан")
		return
	}

	tenantID, ok := tenantFromContext(w, r)
	if !ok {
		return
	}

	filename, content, err := readFeedUpload(r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "bad_request", "Не удалось прочитать файл фида")
		return
	}

	result, err := h.pricingService.UploadFeed(r.Context(), supplierID, tenantID, filename, content)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrSupplierNotFound):
			renderError(w, r, http.StatusNotFound, "not_found", "Поставщик не найден")
		case errors.Is(err, utils.ErrEmptyFeed), errors.Is(err, pricing.ErrParse):
			renderError(w, r, http.StatusBadRequest, "validation_error", "Файл пуст или не является корректным CSV")
		default:
			h.logger.ErrorWithContext(r.Context(), "Ошибка загрузки фида",
				interfaces.LogField{Key: "error", Value: err.Error()})
			renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка загрузки фида")
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response{
		Success: true,
		Data:    result,
	})
}

// readFeedUpload извлекает имя и содержимое файла из запроса
func readFeedUpload(r *http.Request) (string, []byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxFeedSize); err != nil {
			return "", nil, err
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, err
		}
		defer file.Close()

		content, err := io.ReadAll(io.LimitReader(file, maxFeedSize))
		if err != nil {
			return "", nil, err
		}
		return header.Filename, content, nil
	}

	content, err := io.ReadAll(io.LimitReader(r.Body, maxFeedSize))
	if err != nil {
		return "", nil, err
	}
	return "feed.csv", content, nil
}

// PricingPreview обрабатывает запрос предпросмотра расчета цен
func (h *PricingHandler) PricingPreview(w http.ResponseWriter, r *http.Request) {
	supplierID := chi.URLParam(r, "id")
	if supplierID == "" {
		renderError(w, r, http.StatusBadRequest, "bad_request", "ID поставщика не указан")
		return
	}

	tenantID, ok := tenantFromContext(w, r)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		limit = 0 // Сервис подставит лимит по умолчанию
	}

	result, err := h.pricingService.PreviewPricing(r.Context(), supplierID, tenantID, limit)
	if err != nil {
		h.renderPricingError(w, r, err, "Ошибка расчета предпросмотра")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    result,
		Meta: map[string]interface{}{
			"accepted":             result.Accepted,
			"skipped_missing_sku":  result.SkippedMissingSKU,
			"skipped_invalid_cost": result.SkippedInvalidCost,
		},
	})
}

// RunPricing обрабатывает запрос на полный расчет с выгрузкой
func (h *PricingHandler) RunPricing(w http.ResponseWriter, r *http.Request) {
	supplierID := chi.URLParam(r, "id")
	if supplierID == "" {
		renderError(w, r, http.StatusBadRequest, "bad_request", "ID поставщика не указан")
		return
	}

	tenantID, ok := tenantFromContext(w, r)
	if !ok {
		return
	}

	feedID := r.URL.Query().Get("feed_id")

	run, err := h.pricingService.RunPricing(r.Context(), supplierID, feedID, tenantID)
	if err != nil {
		h.renderPricingError(w, r, err, "Ошибка запуска расчета")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response{
		Success: true,
		Data:    run,
	})
}

// GetRun обрабатывает запрос на получение сводки расчета
func (h *PricingHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	if runID == "" {
		renderError(w, r, http.StatusBadRequest, "bad_request", "ID расчета не указан")
		return
	}

	tenantID, ok := tenantFromContext(w, r)
	if !ok {
		return
	}

	run, err := h.pricingService.GetRun(r.Context(), runID, tenantID)
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения расчета",
			interfaces.LogField{Key: "error", Value: err.Error()})
		renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка получения расчета")
		return
	}

	if run == nil {
		renderError(w, r, http.StatusNotFound, "not_found", "Расчет не найден")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    run,
	})
}

// ExportRun отдает выгрузку расчета как CSV-файл
func (h *PricingHandler) ExportRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	if runID == "" {
		renderError(w, r, http.StatusBadRequest, "bad_request", "ID расчета не указан")
		return
	}

	tenantID, ok := tenantFromContext(w, r)
	if !ok {
		return
	}

	run, err := h.pricingService.GetRun(r.Context(), runID, tenantID)
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения выгрузки",
			interfaces.LogField{Key: "error", Value: err.Error()})
		renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка получения выгрузки")
		return
	}

	if run == nil {
		renderError(w, r, http.StatusNotFound, "not_found", "Расчет не найден")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "pricing-run-"+run.ID+".csv"))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(run.ExportCSV))
}

// ListRuns обрабатывает запрос истории расчетов поставщика
func (h *PricingHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	supplierID := chi.URLParam(r, "id")
	if supplierID == "" {
		renderError(w, r, http.StatusBadRequest, "bad_request", "ID поставщика не указан")
		return
	}

	tenantID, ok := tenantFromContext(w, r)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	runs, err := h.pricingService.ListRuns(r.Context(), supplierID, tenantID, limit, offset)
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения истории расчетов",
			interfaces.LogField{Key: "error", Value: err.Error()})
		renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка получения истории расчетов")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    runs,
	})
}

// renderPricingError переводит доменные ошибки расчета в HTTP-статусы
func (h *PricingHandler) renderPricingError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, utils.ErrSupplierNotFound):
		renderError(w, r, http.StatusNotFound, "not_found", "Поставщик не найден")
	case errors.Is(err, utils.ErrFeedNotFound):
		renderError(w, r, http.StatusNotFound, "not_found", "Фид не найден")
	case errors.Is(err, pricing.ErrMappingIncomplete):
		renderError(w, r, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, pricing.ErrMarginOutOfRange):
		renderError(w, r, http.StatusUnprocessableEntity, "margin_out_of_range", err.Error())
	case errors.Is(err, pricing.ErrParse):
		renderError(w, r, http.StatusBadRequest, "validation_error", "Сохраненный фид не является корректным CSV")
	default:
		h.logger.ErrorWithContext(r.Context(), fallback,
			interfaces.LogField{Key: "error", Value: err.Error()})
		renderError(w, r, http.StatusInternalServerError, "internal_error", fallback)
	}
}
