package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"location-tracking-core/internal/analytics"
	api "location-tracking-core/internal/api/http"
	"location-tracking-core/internal/api/http/handler"
	"location-tracking-core/internal/api/http/middleware"
	geofenceApp "location-tracking-core/internal/application/geofence"
	groupApp "location-tracking-core/internal/application/group"
	locationApp "location-tracking-core/internal/application/location"
	vehicleApp "location-tracking-core/internal/application/vehicle"
	"location-tracking-core/internal/classify"
	"location-tracking-core/internal/config"
	"location-tracking-core/internal/infrastructure/geocode"
	"location-tracking-core/internal/infrastructure/memstore"
	"location-tracking-core/internal/infrastructure/mqtt"
	"location-tracking-core/internal/infrastructure/postgres"
	"location-tracking-core/internal/infrastructure/rabbitmq"
	"location-tracking-core/internal/infrastructure/redis"
	"location-tracking-core/internal/infrastructure/storage"
	"location-tracking-core/internal/plan"
	"location-tracking-core/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Storage: postgres is primary, the in-memory store is the degraded
	// fallback so ingestion keeps working without a database.
	var store *storage.Store
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Printf("Postgres unavailable, falling back to in-memory storage: %v", err)
		store = memstore.NewStore()
	} else {
		defer pgClient.Close()
		store = postgres.NewStore(pgClient)
		log.Println("Connected to Postgres successfully")
	}

	// Redis is optional: without it there is no cache, no pubsub and every
	// tenant resolves to the free plan.
	var (
		cache     *redis.Cache
		pubsub    *redis.PubSub
		planStore *redis.PlanStore
		redisPing handler.HealthChecker
	)
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Printf("Redis unavailable, running without cache and pubsub: %v", err)
	} else {
		defer redisClient.Close()
		cache = redis.NewCache(redisClient)
		pubsub = redis.NewPubSub(redisClient)
		planStore = redis.NewPlanStore(redisClient)
		redisPing = redisClient
		log.Println("Connected to Redis successfully")
	}

	var lookup plan.Lookup
	if planStore != nil {
		lookup = planStore
	}
	plans := plan.NewResolver(lookup)

	// RabbitMQ carries outbound notifications and inbound control-plane
	// updates. Without it, notifications are dropped with a log line.
	var (
		publisher *rabbitmq.Publisher
		consumer  *rabbitmq.Consumer
	)
	rabbitClient, err := rabbitmq.NewClient(&cfg.RabbitMQ)
	if err != nil {
		log.Printf("RabbitMQ unavailable, running without notifications: %v", err)
	} else {
		defer rabbitClient.Close()
		publisher = rabbitmq.NewPublisher(rabbitClient, &cfg.RabbitMQ)
		consumer = rabbitmq.NewConsumer(rootCtx, rabbitClient, &cfg.RabbitMQ, planStore, store.Groups)
		if err := consumer.Start(); err != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", err)
			consumer = nil
		}
	}

	classifier := classify.New(classify.DefaultPolicy())
	analyticsService := analytics.NewService(store.Locations, cache)
	geocoder := geocode.NewGeocoder(&cfg.Geocoder, cache)

	// The writer invalidates the analytics cache whenever a flush lands, so
	// analytics reads never serve results computed before a durable append.
	writer := worker.NewHistoryWriter(store.Locations, analyticsService, cfg.Worker.FlushInterval)
	writer.Start()

	var geofenceNotifier geofenceApp.Notifier
	var groupNotifier groupApp.Notifier
	var vehicleNotifier vehicleApp.Notifier
	if publisher != nil {
		geofenceNotifier = publisher
		groupNotifier = publisher
		vehicleNotifier = publisher
	}

	evaluator := geofenceApp.NewEvaluator(store.Geofences, geofenceNotifier, pubsub)
	watchdog := groupApp.NewWatchdog(store.Groups, store.Locations, groupNotifier)

	dispatcher := worker.NewDispatcher(cfg.Worker.FanoutWorkers, cfg.Worker.FanoutQueueSize, evaluator, watchdog)
	dispatcher.Start()

	locationService := locationApp.NewService(
		store.Locations,
		writer,
		dispatcher,
		classifier,
		geocoder,
		plans,
		cache,
		pubsub,
	)
	geofenceService := geofenceApp.NewService(store.Geofences)
	groupService := groupApp.NewService(store.Groups, locationService, plans)
	vehicleService := vehicleApp.NewService(store.Vehicles, vehicleNotifier)

	// MQTT is the device-facing ingestion transport. The broker
	// authenticates devices, so the payload carries the tenant id.
	mqttClient := mqtt.NewClient(&cfg.MQTT)
	mqttClient.SetLocationHandler(func(payload []byte, topic string) error {
		req, err := mqtt.ParseLocationPayload(payload, topic)
		if err != nil {
			log.Printf("Failed to parse location payload: %v", err)
			return err
		}

		owner := req.UserID
		if owner == "" {
			owner = req.DeviceID
		}

		if _, err := locationService.Ingest(context.Background(), owner, req); err != nil {
			log.Printf("Failed to ingest location from MQTT: %v", err)
			return err
		}
		return nil
	})

	if err := mqttClient.Connect(rootCtx); err != nil {
		log.Printf("MQTT unavailable, running without device transport: %v", err)
	} else {
		defer mqttClient.Disconnect()
	}

	jwtValidator, err := middleware.NewJwtValidator(
		cfg.JWT.PublicKeyPath,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
	)
	if err != nil {
		log.Fatalf("Failed to initialize JWT validator: %v", err)
	}

	wsHandler := handler.NewWebSocketHandler()
	if err := wsHandler.Start(rootCtx, pubsub); err != nil {
		log.Printf("Failed to subscribe websocket hub: %v", err)
	}

	router := api.NewRouter(
		cfg,
		jwtValidator,
		handler.NewLocationHandler(locationService),
		handler.NewAnalyticsHandler(analyticsService, classifier, store.Locations, plans),
		handler.NewGeofenceHandler(geofenceService),
		handler.NewVehicleHandler(vehicleService),
		handler.NewGroupHandler(groupService),
		handler.NewHealthHandler(store, redisPing, mqttClient),
		wsHandler,
	)
	engine := router.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	dispatcher.Stop()
	writer.Stop()
	if consumer != nil {
		consumer.Stop()
	}
	rootCancel()

	log.Println("Server stopped gracefully")
}
