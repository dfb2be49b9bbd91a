package api

import (
	"net/http"
	"time"

	"github.com/athebyme/gomarket-platform/pricing-service/internal/api/handlers"
	custommiddleware "github.com/athebyme/gomarket-platform/pricing-service/internal/api/middleware"
	"github.com/athebyme/gomarket-platform/pricing-service/internal/domain/services"
	"github.com/athebyme/gomarket-platform/pricing-service/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter настраивает и возвращает маршрутизатор HTTP-запросов
func SetupRouter(
	supplierService services.SupplierServiceInterface,
	pricingService services.PricingServiceInterface,
	logger interfaces.LoggerPort,
	corsAllowedOrigins []string,
) *chi.Mux {
	r := chi.NewRouter()

	// Базовые middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommiddleware.Logger(logger))
	r.Use(custommiddleware.Recoverer(logger))
	r.Use(custommiddleware.Timeout(30 * time.Second))
	r.Use(custommiddleware.CORS(corsAllowedOrigins))
	r.Use(custommiddleware.Tracing)
	r.Use(custommiddleware.SecurityHeaders)
	r.Use(custommiddleware.RateLimiter(1000, time.Minute))

	// Проверка работоспособности
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Head("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Метрики Prometheus
	r.Handle("/metrics", promhttp.Handler())

	supplierHandler := handlers.NewSupplierHandler(supplierService, logger)
	pricingHandler := handlers.NewPricingHandler(pricingService, logger)

	// API маршруты
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(custommiddleware.Tenant)

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", supplierHandler.ListSuppliers)
			r.Post("/", supplierHandler.CreateSupplier)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", supplierHandler.GetSupplier)
				r.Put("/", supplierHandler.UpdateSupplier)
				r.Delete("/", supplierHandler.DeleteSupplier)
				r.Put("/mapping", supplierHandler.UpdateMapping)

				r.Post("/feed", pricingHandler.UploadFeed)
				r.Get("/pricing-preview", pricingHandler.PricingPreview)
				r.Post("/pricing-run", pricingHandler.RunPricing)
				r.Get("/runs", pricingHandler.ListRuns)
			})
		})

		r.Route("/pricing/runs/{id}", func(r chi.Router) {
			r.Get("/", pricingHandler.GetRun)
			r.Get("/export", pricingHandler.ExportRun)
		})
	})

	return r
}
