package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/athebyme/gomarket-platform/pricing-service/config"
	"github.com/athebyme/gomarket-platform/pricing-service/internal/adapters/cache"
	"github.com/athebyme/gomarket-platform/pricing-service/internal/adapters/logger"
	"github.com/athebyme/gomarket-platform/pricing-service/internal/adapters/messaging"
	postgres "github.com/athebyme/gomarket-platform/pricing-service/internal/adapters/storage"
	"github.com/athebyme/gomarket-platform/pricing-service/internal/domain/pricing"
	"github.com/athebyme/gomarket-platform/pricing-service/internal/domain/services"
	"github.com/athebyme/gomarket-platform/pricing-service/internal/utils"
	"github.com/athebyme/gomarket-platform/pricing-service/pkg/interfaces"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Метрики для Prometheus
var (
	messagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_messages_processed_total",
		Help: "Общее количество обработанных сообщений",
	}, []string{"topic", "status"})

	messageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "worker_message_processing_duration_seconds",
		Help:    "Длительность обработки сообщений",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})

	activeWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "worker_active_goroutines",
		Help: "Количество активных горутин-обработчиков",
	})
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.ENV == "production")
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	log.Info("Инициализация воркера",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName + "-worker"},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "env", Value: cfg.ENV},
	)

	// Запускаем HTTP сервер для метрик если они включены
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("OK"))
			})

			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			log.Info("Запуск HTTP сервера для метрик",
				interfaces.LogField{Key: "addr", Value: addr})

			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Error("Ошибка запуска HTTP сервера для метрик",
					interfaces.LogField{Key: "error", Value: err.Error()})
			}
		}()
	}

	// Генерируем строку подключения к PostgreSQL
	connectionStr, err := utils.GenerateConnectionString(
		cfg.Postgres.Host,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
		cfg.Postgres.Port,
		cfg.Postgres.PoolSize,
		cfg.Postgres.Timeout,
	)
	if err != nil {
		log.Fatal("Ошибка генерации строки подключения к PostgreSQL",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}

	// Инициализируем хранилище
	repo, err := postgres.NewPostgresStorage(ctx, connectionStr)
	if err != nil {
		log.Fatal("Ошибка инициализации хранилища",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer repo.Close()
	log.Info("Хранилище инициализировано")

	// Инициализируем кэш
	cacheClient, err := cache.NewRedisCache(
		ctx,
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		log.Fatal("Ошибка инициализации кэша",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer cacheClient.Close()
	log.Info("Кэш инициализирован")

	// Инициализируем систему обмена сообщениями
	messagingClient, err := messaging.NewKafkaMessaging(cfg.Kafka.Brokers, cfg.Kafka.GroupID, log)
	if err != nil {
		log.Fatal("Ошибка инициализации системы обмена сообщениями",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer messagingClient.Close()
	log.Info("Система обмена сообщениями инициализирована")

	// Создаем топики, если их еще нет
	topics := []string{
		messaging.SupplierEventsTopic,
		messaging.FeedUploadedTopic,
		messaging.RunCompletedTopic,
	}
	for _, topic := range topics {
		if err := messagingClient.CreateTopic(ctx, topic, 3, 1); err != nil {
			log.Warn("Не удалось создать топик",
				interfaces.LogField{Key: "topic", Value: topic},
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}

	// Инициализируем сервис расчета цен
	pricingService := services.NewPricingService(repo, cacheClient, messagingClient, log, pricingDefaults(cfg))
	log.Info("Сервис расчета цен инициализирован")

	// Каналы для сигналов и завершения
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	// Подписываемся на загрузки фидов: каждый новый фид пересчитывается в фоне
	subscribeToFeedUploads(ctx, messagingClient, pricingService, log, &wg)

	// Обработка сигналов завершения
	go func() {
		<-quit
		log.Info("Получен сигнал завершения, выполняется graceful shutdown...")
		cancel()
		wg.Wait()
		close(done)
	}()

	log.Info("Воркер запущен и готов к обработке сообщений")
	<-done
	log.Info("Воркер корректно завершил работу")
}

// pricingDefaults собирает настройки расчета по умолчанию из конфигурации
func pricingDefaults(cfg *config.Config) services.PricingDefaults {
	feeTable := pricing.MarketplaceFeeTable{}
	for marketplace, categories := range cfg.Pricing.Fees {
		feeTable[marketplace] = categories
	}

	return services.PricingDefaults{
		Marketplaces: cfg.Pricing.Marketplaces,
		FeeTable:     feeTable,
		Category:     cfg.Pricing.Category,
		SellMode:     pricing.SellPriceMode(cfg.Pricing.SellPriceMode),
		Rounding:     pricing.RoundingMode(cfg.Pricing.RoundingMode),
		DimDivisor:   cfg.Pricing.DimDivisor,
	}
}

// Подписка на события загрузки фидов
func subscribeToFeedUploads(ctx context.Context, messagingClient *messaging.KafkaMessaging,
	pricingService services.PricingServiceInterface,
	logger interfaces.LoggerPort, wg *sync.WaitGroup) {

	feedHandler := func(ctx context.Context, msg *interfaces.Message) error {
		startTime := time.Now()
		activeWorkers.Inc()
		defer activeWorkers.Dec()

		logger.InfoWithContext(ctx, "Получено событие загрузки фида",
			interfaces.LogField{Key: "message_id", Value: msg.ID},
			interfaces.LogField{Key: "topic", Value: msg.Topic},
		)

		var event messaging.FeedUploaded
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.ErrorWithContext(ctx, "Ошибка декодирования события",
				interfaces.LogField{Key: "error", Value: err.Error()},
				interfaces.LogField{Key: "message_id", Value: msg.ID},
			)
			messagesProcessed.WithLabelValues(msg.Topic, "error").Inc()
			return err
		}

		// Добавляем tenant_id в контекст
		evtCtx := context.WithValue(ctx, "tenant_id", event.TenantID)

		run, err := pricingService.RunPricing(evtCtx, event.SupplierID, event.FeedID, event.TenantID)
		if err != nil {
			logger.ErrorWithContext(evtCtx, "Ошибка фонового расчета цен",
				interfaces.LogField{Key: "supplier_id", Value: event.SupplierID},
				interfaces.LogField{Key: "feed_id", Value: event.FeedID},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
			messagesProcessed.WithLabelValues(msg.Topic, "error").Inc()
			return err
		}

		duration := time.Since(startTime).Seconds()
		messageProcessingDuration.WithLabelValues(msg.Topic).Observe(duration)
		messagesProcessed.WithLabelValues(msg.Topic, "success").Inc()

		logger.InfoWithContext(evtCtx, "Фоновый расчет цен завершен",
			interfaces.LogField{Key: "run_id", Value: run.ID},
			interfaces.LogField{Key: "accepted", Value: run.Accepted},
			interfaces.LogField{Key: "duration", Value: duration},
		)

		return nil
	}

	wg.Add(1)

	go func() {
		defer wg.Done()

		unsubscribe, err := messagingClient.Subscribe(ctx, messaging.FeedUploadedTopic, feedHandler)
		if err != nil {
			logger.Error("Ошибка подписки на события загрузки фидов",
				interfaces.LogField{Key: "error", Value: err.Error()})
			return
		}
		defer unsubscribe()

		logger.Info("Подписка на события загрузки фидов установлена")

		<-ctx.Done()
		logger.Info("Отмена подписки на события загрузки фидов")
	}()
}
