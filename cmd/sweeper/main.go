package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lifelink/donor-gateway/internal/config"
	"github.com/lifelink/donor-gateway/internal/repository"
	"github.com/lifelink/donor-gateway/internal/requisition"
	"github.com/lifelink/donor-gateway/pkg/logger"
	"github.com/lifelink/donor-gateway/pkg/pg"
	"github.com/robfig/cron/v3"
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

	requisitionService := requisition.NewService(repository.NewRequisitionRepository(db))

	sweepSpec := config.Get().RequisitionSweepSpec
	sweepSize := config.Get().RequisitionSweepSize

	c := cron.New()
	_, err = c.AddFunc(sweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		expired, err := requisitionService.ExpireOverdue(ctx, sweepSize)
		if err != nil {
			logger.Error("requisition sweep failed", "error", err)
			return
		}
		if expired > 0 {
			logger.Info("requisition sweep completed", "expired", expired)
		}
	})
	if err != nil {
		logger.Error("invalid sweep schedule", "spec", sweepSpec, "error", err)
		return
	}

	logger.Info("requisition sweeper started", "spec", sweepSpec, "batch", sweepSize)
	c.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	// Let an in-flight sweep finish before exiting.
	<-c.Stop().Done()
	logger.Info("requisition sweeper stopped")
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
