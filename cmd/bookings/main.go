package main

import (
	"context"
	"errors"

	availabilityhandler "staybook/internal/availability/handler"
	availabilityrepo "staybook/internal/availability/repository"
	availabilityservice "staybook/internal/availability/service"
	availabilityvalidator "staybook/internal/availability/validator"
	"staybook/internal/notifier"
	reservationhandler "staybook/internal/reservations/handler"
	reservationrepo "staybook/internal/reservations/repository"
	"staybook/internal/reservations/scheduler"
	reservationservice "staybook/internal/reservations/service"
	reservationvalidator "staybook/internal/reservations/validator"
	"staybook/pkg/app"
	"staybook/pkg/config"
	"staybook/pkg/contracts"
	"staybook/pkg/kafka"
	kafka_config "staybook/pkg/kafka/config"
	kafka_middleware "staybook/pkg/kafka/middleware"
	"staybook/pkg/lock"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetAccommodations()

	cfg.Log.Info("Starting Bookings service")

	producer, metrics := initProducer(cfg)
	notify := notifier.NewKafkaNotifier(producer, ServiceName, cfg.NotifyTimeout, cfg.Log)

	handlers, jobs := initServices(cfg, notify)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, handlers...)

	stopScheduler := startScheduler(cfg, jobs)
	serverApp.OnShutdown(func(ctx context.Context) {
		stopScheduler()
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
		cfg.Log.Info("Kafka producer closed", metrics.Snapshot().LogArgs()...)
		cfg.GracefulShutdown()
	})
	serverApp.Run()
}

func initProducer(cfg *config.Config) (*kafka.Producer, *kafka_middleware.Metrics) {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	metrics := kafka_middleware.NewMetrics()
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(metrics.ProducerMiddleware())
	}
	return producer, metrics
}

func initServices(cfg *config.Config, notify notifier.Notifier) ([]contracts.Handler, []scheduler.Job) {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	locker := lock.Chain(
		lock.NewMemoryLocker(),
		lock.NewMongoLocker(lock.NewMongoStore(db), cfg.LockTTL, cfg.Log),
	)

	availabilityRepo := availabilityrepo.NewMongoAvailabilityRepository(cfg)
	reservationRepo := reservationrepo.NewMongoReservationRepository(cfg)

	availabilityService := availabilityservice.NewAvailabilityService(
		availabilityRepo,
		reservationRepo,
		locker,
		notify,
		availabilityvalidator.NewAvailabilityValidator(cfg.Log),
		cfg,
	)
	reservationService := reservationservice.NewReservationService(
		reservationRepo,
		availabilityservice.NewAllocator(availabilityRepo),
		cfg.Client.Accommodations,
		locker,
		notify,
		reservationvalidator.NewReservationValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)

	handlers := []contracts.Handler{
		availabilityhandler.NewAvailabilityHandler(availabilityService, cfg.Log),
		reservationhandler.NewReservationHandler(reservationService, cfg.Log),
	}
	jobs := []scheduler.Job{
		{Name: "complete-reservations", Run: reservationService.CompleteFinished},
		{Name: "expire-availabilities", Run: availabilityService.ExpireStale},
	}
	return handlers, jobs
}

func startScheduler(cfg *config.Config, jobs []scheduler.Job) func() {
	if !cfg.CompletionSweepEnabled {
		cfg.Log.Info("Completion sweep disabled")
		return func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := scheduler.New(cfg.Log, jobs...).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			cfg.Log.Error("Scheduler stopped", "error", err)
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
