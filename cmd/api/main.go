package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wjayesh/mahilo/core"
	"github.com/wjayesh/mahilo/util"
	"github.com/wjayesh/mahilo/x/auth"
	"github.com/wjayesh/mahilo/x/connection"
	"github.com/wjayesh/mahilo/x/message"
	"github.com/wjayesh/mahilo/x/policy"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.7.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/plugin/opentelemetry/tracing"
)

type CustomHandler struct {
	slog.Handler
}

func (h *CustomHandler) Handle(ctx context.Context, r slog.Record) error {

	r.AddAttrs(slog.String("type", "app"))

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(slog.String("traceID", span.SpanContext().TraceID().String()))
		r.AddAttrs(slog.String("spanID", span.SpanContext().SpanID().String()))
	}

	return h.Handler.Handle(ctx, r)
}

var (
	version      = "unknown"
	buildMachine = "unknown"
	buildTime    = "unknown"
	goVersion    = "unknown"
)

type profileResponse struct {
	FQDN         string `json:"fqdn"`
	TrustedMode  bool   `json:"trustedMode"`
	Version      string `json:"version"`
	BuildTime    string `json:"buildTime"`
	BuildMachine string `json:"buildMachine"`
	GoVersion    string `json:"goVersion"`
}

func main() {

	handler := &CustomHandler{Handler: slog.NewJSONHandler(os.Stdout, nil)}
	slogger := slog.New(handler)
	slog.SetDefault(slogger)

	slog.Info(fmt.Sprintf("Mahilo %s starting...", version))

	e := echo.New()
	e.HidePort = true
	e.HideBanner = true
	config := util.Config{}
	configPath := os.Getenv("MAHILO_CONFIG")
	if configPath == "" {
		configPath = "/etc/mahilo/config.yaml"
	}

	err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
	}

	slog.Info(fmt.Sprintf("Config loaded! I am: %s", config.Mahilo.FQDN))

	if config.Server.EnableTrace {
		cleanup, err := setupTraceProvider(config.Server.TraceEndpoint, config.Mahilo.FQDN+"/api", version)
		if err != nil {
			panic(err)
		}
		defer cleanup()

		skipper := otelecho.WithSkipper(
			func(c echo.Context) bool {
				return c.Path() == "/metrics" || c.Path() == "/health"
			},
		)
		e.Use(otelecho.Middleware("api", skipper))
	}

	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace: "mahilo",
		LabelFuncs: map[string]echoprometheus.LabelValueFunc{
			"url": func(c echo.Context, err error) string {
				return "REDACTED"
			},
		},
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		},
	}))

	e.Use(middleware.Recover())

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             300 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(config.Server.Dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		panic("failed to connect database")
	}
	sqlDB, err := db.DB() // for pinging
	if err != nil {
		panic("failed to connect database")
	}
	defer sqlDB.Close()

	err = db.Use(tracing.NewPlugin(
		tracing.WithDBName("postgres"),
	))
	if err != nil {
		panic("failed to setup tracing plugin")
	}

	slog.Info("start migrate")
	db.AutoMigrate(
		&core.Message{},
		&core.MessageDelivery{},
		&core.AgentConnection{},
		&core.Policy{},
		&core.Friendship{},
		&core.Group{},
		&core.GroupMember{},
		&core.RelationshipRole{},
	)

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Server.RedisAddr,
		Password: "",
		DB:       0,
	})
	err = redisotel.InstrumentTracing(
		rdb,
		redisotel.WithAttributes(
			attribute.KeyValue{
				Key:   "db.name",
				Value: attribute.StringValue("redis"),
			},
		),
	)
	if err != nil {
		panic("failed to setup tracing plugin")
	}

	mc := memcache.New(config.Server.MemcachedAddr)
	defer mc.Close()

	scheduler := SetupSchedulerService(db, rdb, mc, config.Mahilo)

	messageService := SetupMessageService(db, rdb, mc, scheduler, config.Mahilo)
	messageHandler := message.NewHandler(messageService)

	connectionService := SetupConnectionService(db, mc, config.Mahilo)
	connectionHandler := connection.NewHandler(connectionService)

	policyService := SetupPolicyService(db, config.Mahilo)
	policyHandler := policy.NewHandler(policyService)

	apiV1 := e.Group("", auth.ReceiveGatewayAuthPropagation)

	// message
	apiV1.POST("/message", messageHandler.Send)
	apiV1.GET("/message/:id", messageHandler.Get)
	apiV1.GET("/messages", messageHandler.History)

	// connection
	apiV1.POST("/connection", connectionHandler.Register)
	apiV1.GET("/connections", connectionHandler.List)
	apiV1.DELETE("/connection/:id", connectionHandler.Delete)

	// policy
	apiV1.PUT("/policy", policyHandler.Upsert)
	apiV1.GET("/policies", policyHandler.List)
	apiV1.DELETE("/policy/:id", policyHandler.Delete)

	// misc
	apiV1.GET("/profile", func(c echo.Context) error {
		return c.JSON(http.StatusOK, profileResponse{
			FQDN:         config.Mahilo.FQDN,
			TrustedMode:  config.Mahilo.TrustedMode,
			Version:      version,
			BuildTime:    buildTime,
			BuildMachine: buildMachine,
			GoVersion:    goVersion,
		})
	})
	e.GET("/health", func(c echo.Context) (err error) {
		ctx := c.Request().Context()

		err = sqlDB.Ping()
		if err != nil {
			return c.String(http.StatusInternalServerError, "db error")
		}

		err = rdb.Ping(ctx).Err()
		if err != nil {
			return c.String(http.StatusInternalServerError, "redis error")
		}

		return c.String(http.StatusOK, "ok")
	})

	var resourceCountMetrics = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mahilo_resources_count",
			Help: "resources count",
		},
		[]string{"type"},
	)
	prometheus.MustRegister(resourceCountMetrics)

	var pendingRetryMetrics = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mahilo_pending_retries",
			Help: "outstanding delivery retry tasks",
		},
	)
	prometheus.MustRegister(pendingRetryMetrics)

	go func() {
		for {
			time.Sleep(15 * time.Second)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

			count, err := messageService.Count(ctx)
			if err != nil {
				slog.Error(fmt.Sprintf("failed to count messages: %v", err))
				cancel()
				continue
			}
			resourceCountMetrics.WithLabelValues("message").Set(float64(count))

			count, err = connectionService.Count(ctx)
			if err != nil {
				slog.Error(fmt.Sprintf("failed to count connections: %v", err))
				cancel()
				continue
			}
			resourceCountMetrics.WithLabelValues("connection").Set(float64(count))

			pendingRetryMetrics.Set(float64(scheduler.PendingCount()))
			cancel()
		}
	}()

	e.GET("/metrics", echoprometheus.NewHandler())

	scheduler.Boot()
	e.Logger.Fatal(e.Start(":8000"))
}

func setupTraceProvider(endpoint string, serviceName string, serviceVersion string) (func(), error) {

	exporter, err := otlptracehttp.New(
		context.Background(),
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)

	if err != nil {
		return nil, err
	}

	resource := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String(serviceVersion),
	)

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(resource),
	)
	otel.SetTracerProvider(tracerProvider)

	propagator := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	otel.SetTextMapPropagator(propagator)

	cleanup := func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			slog.Error(fmt.Sprintf("Failed to shutdown tracer provider: %v", err))
		}
	}
	return cleanup, nil
}
