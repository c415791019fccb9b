package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lifelink/donor-gateway/internal/config"
	"github.com/lifelink/donor-gateway/internal/dispatch"
	gateway "github.com/lifelink/donor-gateway/internal/gateways"
	"github.com/lifelink/donor-gateway/internal/processor"
	"github.com/lifelink/donor-gateway/internal/queue"
	"github.com/lifelink/donor-gateway/internal/repository"
	"github.com/lifelink/donor-gateway/internal/vault"
	"github.com/lifelink/donor-gateway/pkg/logger"
	"github.com/lifelink/donor-gateway/pkg/pg"
	"github.com/lifelink/donor-gateway/pkg/prom"
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

	v, err := vault.New(config.Get().EncryptionKey)
	if err != nil {
		logger.Error("failed to initialize credential vault", "error", err)
		return
	}

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

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill, os.Interrupt, syscall.SIGTERM)

	donorRepo := repository.NewDonorRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	pushConfigRepo := repository.NewTenantPushConfigRepository(db)

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

	dispatcher := dispatch.New(notificationRepo, donorRepo, gw, redisAdap)

	// Initialize idempotency service
	idempotencyConfig := processor.DefaultIdempotencyConfig()
	idempotencyService := processor.NewIdempotencyService(redisAdap, idempotencyConfig)

	service, err := processor.NewProcessorService(redisAdap, processor.ServiceConfig{
		Queue: queue.QueueConfig{
			Name:              config.Get().QueueName,
			ConsumerGroup:     config.Get().QueueConsumerGroup,
			ConsumerName:      config.Get().QueueConsumerName,
			MaxRetries:        config.Get().QueueMaxRetries,
			VisibilityTimeout: config.Get().QueueVisibilityTimeout,
			PollInterval:      config.Get().QueuePollInterval,
			BatchSize:         config.Get().QueueBatchSize,
			MaxLen:            config.Get().QueueMaxLen,
			EnableDLQ:         config.Get().QueueEnableDLQ,
		},
	})
	if err != nil {
		logger.Error("failed to create the processor", "error", err)
		return
	}
	service.RegisterProcessor(processor.NewResponseJobProcessor(dispatcher, idempotencyService))

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(":9100", "/metrics")
	}()

	go func() {
		err := service.Start()
		if err != nil {
			logger.Error("failed to start processor", "error", err)
		}
	}()

	select {
	case <-c:
		service.Stop()
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
