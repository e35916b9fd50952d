package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	amqp "github.com/rabbitmq/amqp091-go"

	"fleettrack/internal/bus"
	"fleettrack/internal/cache"
	"fleettrack/internal/config"
	"fleettrack/internal/handler"
	"fleettrack/internal/hub"
	"fleettrack/internal/ingestor"
	"fleettrack/internal/middleware"
	"fleettrack/internal/service"
	"fleettrack/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("starting fleettrack server",
		"log_level", cfg.LogLevel.String(),
		"http_addr", cfg.HTTPAddr,
		"mqtt_enabled", cfg.MQTTEnabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := store.NewPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer pg.Close()

	var locationCache service.LocationCache
	if cfg.RedisEnabled {
		redisCache, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			logger.Warn("redis unavailable, serving location reads from the store", "error", err)
		} else {
			defer redisCache.Close()
			locationCache = redisCache
		}
	}

	amqpConn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		logger.Error("rabbitmq connection failed", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	publisher, err := bus.NewPublisher(amqpConn)
	if err != nil {
		logger.Error("rabbitmq publisher setup failed", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	wsHub := hub.NewHub(logger)
	go wsHub.Run(ctx)

	engine := service.NewGeofenceEngine(pg.Geofences, pg.Geofences, publisher, wsHub, logger)

	notifier := service.NewNotifier(publisher, logger)
	notifier.SetStats(handler.ServerStats)

	recorder := service.NewRecorder(pg.Points, locationCache, engine, publisher, wsHub, notifier, service.RecorderConfig{
		SpeedLimitKmh: cfg.SpeedLimitKmh,
		IdleSpeedKmh:  cfg.IdleSpeedKmh,
		CacheTTL:      cfg.LocationCacheTTL,
	}, logger)
	recorder.SetStats(handler.ServerStats)

	trips := service.NewTripService(pg.Points, service.TripConfig{
		MovingSpeedKmh: cfg.MovingSpeedKmh,
		IdleGap:        cfg.TripIdleGap,
		MinPoints:      cfg.MinTripPoints,
	})

	behaviorCfg := service.DefaultBehaviorConfig()
	behaviorCfg.SpeedLimitKmh = cfg.SpeedLimitKmh
	behaviorCfg.IdleSpeedKmh = cfg.IdleSpeedKmh
	behavior := service.NewBehaviorService(pg.Points, behaviorCfg)

	var mqttIng *ingestor.MQTTIngestor
	if cfg.MQTTEnabled {
		opts := mqtt.NewClientOptions().
			AddBroker(cfg.MQTTBroker).
			SetClientID(cfg.MQTTClientID).
			SetAutoReconnect(true)

		mqttClient := mqtt.NewClient(opts)
		if token := mqttClient.Connect(); token.Wait() && token.Error() != nil {
			logger.Error("mqtt connection failed", "broker", cfg.MQTTBroker, "error", token.Error())
			os.Exit(1)
		}
		defer mqttClient.Disconnect(250)

		mqttIng = ingestor.NewMQTTIngestor(mqttClient, recorder, logger)
		if err := mqttIng.Start(); err != nil {
			logger.Error("mqtt ingestor start failed", "error", err)
			os.Exit(1)
		}
		defer mqttIng.Stop()
	}

	trackingHandler := handler.NewTrackingHandler(recorder, trips, behavior)
	geofenceHandler := handler.NewGeofenceHandler(pg.Geofences)
	wsHandler := handler.NewWSHandler(wsHub, recorder, logger)
	statsHandler := handler.NewStatsHandler(wsHub)

	var healthHandler *handler.HealthHandler
	if mqttIng != nil {
		healthHandler = handler.NewHealthHandler(pg, mqttIng)
	} else {
		healthHandler = handler.NewHealthHandler(pg, nil)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/tenants/{tenant}/vehicles/{vehicle}/points", trackingHandler.RecordPoint)
	mux.HandleFunc("GET /v1/tenants/{tenant}/vehicles/{vehicle}/location", trackingHandler.GetVehicleLocation)
	mux.HandleFunc("GET /v1/tenants/{tenant}/vehicles/{vehicle}/route", trackingHandler.GetVehicleRoute)
	mux.HandleFunc("GET /v1/tenants/{tenant}/vehicles/{vehicle}/trips", trackingHandler.GetVehicleTripHistory)
	mux.HandleFunc("GET /v1/tenants/{tenant}/vehicles/{vehicle}/behavior", trackingHandler.GetDriverBehavior)
	mux.HandleFunc("GET /v1/tenants/{tenant}/fleet/locations", trackingHandler.GetFleetLocations)

	mux.HandleFunc("POST /v1/tenants/{tenant}/geofences", geofenceHandler.Create)
	mux.HandleFunc("GET /v1/tenants/{tenant}/geofences", geofenceHandler.List)
	mux.HandleFunc("GET /v1/tenants/{tenant}/geofences/{id}", geofenceHandler.Get)
	mux.HandleFunc("PATCH /v1/tenants/{tenant}/geofences/{id}", geofenceHandler.Update)
	mux.HandleFunc("DELETE /v1/tenants/{tenant}/geofences/{id}", geofenceHandler.Deactivate)

	mux.HandleFunc("/v1/ws", wsHandler.ServeWS)
	mux.HandleFunc("GET /v1/stats", statsHandler.GetStats)

	mux.HandleFunc("GET /healthz", healthHandler.Healthz)
	mux.HandleFunc("GET /readyz", healthHandler.Readyz)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerWindow, cfg.RateLimitWindow, cfg.RateLimitWhitelist, logger)

	var root http.Handler = mux
	root = handler.GzipMiddleware(root)
	root = handler.CORSMiddleware(root)
	root = rateLimiter.Middleware(root)
	root = handler.StatsMiddleware(root)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      root,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
