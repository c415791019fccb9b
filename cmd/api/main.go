package main

import (
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/lifelink/donor-gateway/internal/config"
	"github.com/lifelink/donor-gateway/internal/dispatch"
	gateway "github.com/lifelink/donor-gateway/internal/gateways"
	"github.com/lifelink/donor-gateway/internal/handlers"
	"github.com/lifelink/donor-gateway/internal/queue"
	"github.com/lifelink/donor-gateway/internal/repository"
	"github.com/lifelink/donor-gateway/internal/requisition"
	"github.com/lifelink/donor-gateway/internal/response"
	"github.com/lifelink/donor-gateway/internal/services"
	"github.com/lifelink/donor-gateway/internal/vault"
	xhttp "github.com/lifelink/donor-gateway/pkg/http"
	"github.com/lifelink/donor-gateway/pkg/logger"
	"github.com/lifelink/donor-gateway/pkg/pg"
	"github.com/lifelink/donor-gateway/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// Startup fails without a usable encryption key; tenant credentials are
	// unreadable otherwise.
	v, err := vault.New(config.Get().EncryptionKey)
	if err != nil {
		logger.Error("failed to initialize credential vault", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	q, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              config.Get().QueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

	donorRepo := repository.NewDonorRepository(db)
	requisitionRepo := repository.NewRequisitionRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	pushConfigRepo := repository.NewTenantPushConfigRepository(db)

	// Tenants without their own provider URL relay through the system one.
	factory := func(settings gateway.ProviderSettings) (gateway.PushProvider, error) {
		if settings.URL == "" {
			settings.URL = config.Get().PushDefaultURL
		}
		return gateway.NewHTTPProvider(settings)
	}
	var defaultProvider gateway.PushProvider = gateway.NewNoopProvider()
	if config.Get().PushDefaultURL != "" {
		defaultProvider, err = gateway.NewHTTPProvider(gateway.ProviderSettings{
			URL:     config.Get().PushDefaultURL,
			Timeout: config.Get().PushSendTimeout,
		})
		if err != nil {
			logger.Error("failed building default push provider", "error", err)
			return
		}
	}
	gw := gateway.New(pushConfigRepo, v, factory, defaultProvider, gateway.Config{
		ClientTTL:   config.Get().PushClientTTL,
		BatchLimit:  config.Get().DispatchBatchSize,
		SendTimeout: config.Get().PushSendTimeout,
	})

	// services
	dispatcher := dispatch.New(notificationRepo, donorRepo, gw, redisAdap)
	requisitionService := requisition.NewService(requisitionRepo)
	coordinator := response.New(requisitionRepo, responseRepo, donorRepo, notificationRepo, q)
	donorService := services.NewDonorService(donorRepo, requisitionService)

	// v1 handlers
	requisitionHandler := handlers.NewRequisitionHandler(requisitionService)
	responseHandler := handlers.NewResponseHandler(coordinator, notificationRepo)
	dispatchHandler := handlers.NewDispatchHandler(dispatcher, pushConfigRepo, v, gw)
	donorHandler := handlers.NewDonorHandler(donorService)
	healthHandler := handlers.NewHealthHandler(nil)

	g := s.Router.Group("/api/v1")
	handlers.RegisterRequisitionRoutes(g, requisitionHandler)
	handlers.RegisterResponseRoutes(g, responseHandler)
	handlers.RegisterDispatchRoutes(g, dispatchHandler)
	handlers.RegisterDonorRoutes(g, donorHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	// Create new server
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
		logger.GetLogger().Sync() //nolint
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
