// Command server runs the address verification engine. main wires config,
// storage, the workflow services and the HTTP router; business logic lives in
// the internal packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"fieldproof/internal/assignment"
	"fieldproof/internal/audit"
	auditStore "fieldproof/internal/audit/store"
	"fieldproof/internal/authz"
	"fieldproof/internal/bulk"
	docservice "fieldproof/internal/document/service"
	docStore "fieldproof/internal/document/store"
	"fieldproof/internal/geocode"
	"fieldproof/internal/geofence"
	"fieldproof/internal/notify"
	"fieldproof/internal/photoproof"
	"fieldproof/internal/platform/config"
	"fieldproof/internal/platform/httpserver"
	"fieldproof/internal/platform/logger"
	"fieldproof/internal/platform/metrics"
	"fieldproof/internal/platform/postgres"
	"fieldproof/internal/platform/redis"
	regcodeService "fieldproof/internal/regcode/service"
	regcodeStore "fieldproof/internal/regcode/store"
	httptransport "fieldproof/internal/transport/http"
	userStore "fieldproof/internal/user/store"
)

func main() {
	log := logger.New()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Error("load config failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: PostgreSQL when a DSN is configured, in-memory otherwise.
	var (
		documents     docStore.Store
		events        audit.Store
		users         userStore.Store
		registrations regcodeStore.Store
	)
	if cfg.Database.DSN != "" {
		if err := postgres.Migrate(cfg.Database.DSN); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			log.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		documents = docStore.NewPostgres(pool)
		events = auditStore.NewPostgres(pool)
		users = userStore.NewPostgres(pool)
		registrations = regcodeStore.NewPostgres(pool)
		log.Info("using postgres storage")
	} else {
		documents = docStore.NewInMemory()
		events = auditStore.NewInMemory()
		users = userStore.NewInMemory()
		registrations = regcodeStore.NewInMemory()
		log.Warn("no database configured, using in-memory storage")
	}

	// Geocoding, optionally cached in Redis.
	var resolver geocode.Resolver = geocode.NewClient(cfg.Geocoder)
	if cfg.Geocoder.BaseURL == "" {
		log.Warn("no geocoder configured, imported addresses stay unresolved")
		resolver = geocode.NewStatic()
	}
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		resolver = geocode.NewCached(resolver, redisClient.Client, cfg.Redis.CacheTTL, log)
		log.Info("geocode cache enabled")
	}

	// Transition notifications.
	var sink notify.Sink = notify.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := notify.NewKafka(cfg.Kafka, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		sink = kafka
		log.Info("transition notifications enabled", "topic", cfg.Kafka.Topic)
	}

	m := metrics.New()
	guard := authz.NewGuard()
	auditor := audit.NewRecorder(events, log)
	evaluator := geofence.New(cfg.Geofence.RadiusMeters)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Documents: docservice.New(documents, guard, evaluator, auditor,
			docservice.WithLogger(log),
			docservice.WithMetrics(m),
			docservice.WithNotifier(sink),
		),
		Assignment: assignment.New(documents, users, guard, auditor,
			assignment.WithLogger(log),
			assignment.WithMetrics(m),
			assignment.WithMaxOpenAssignments(cfg.Assignment.MaxOpenAssignments),
		),
		Importer: bulk.NewImporter(documents, resolver, guard, auditor, cfg.Import,
			bulk.WithImporterLogger(log),
			bulk.WithImporterMetrics(m),
		),
		Exporter:     bulk.NewExporter(documents, guard),
		Registration: regcodeService.New(registrations, users, regcodeService.WithLogger(log)),
		Proofs:       photoproof.NewInMemory(),

		JWTSigningKey: []byte(cfg.Auth.JWTSigningKey),
		Logger:        log,
	})

	srv := httpserver.New(cfg.Server, router)
	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr, "geofence_radius_m", evaluator.RadiusMeters())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
