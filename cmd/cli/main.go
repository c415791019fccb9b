package main

import (
	"os"
	"strings"

	"github.com/lifelink/donor-gateway/internal/config"
	"github.com/lifelink/donor-gateway/pkg/logger"
	"github.com/lifelink/donor-gateway/pkg/pg"
)

// Applies pending schema migrations. Flags: --env=<file> --dir=<migrations>
func main() {
	err := config.Load(getEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	pgConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	dir := getMigrationPath()
	if err = pg.Migrate(pgConf, dir); err != nil {
		logger.Error("migration: error running migrations", "error", err)
		return
	}
	logger.Info("migration: all migrations applied", "dir", dir)
}

func getEnvPath() string {
	return argPath("--env=", ".env")
}

func getMigrationPath() string {
	return argPath("--dir=", "./migrations")
}

func argPath(flag, fallback string) string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, flag) {
			p := strings.TrimPrefix(v, flag)
			if _, err := os.Stat(p); err != nil {
				logger.Error("failed to open "+flag+" path", "error", err)
				return ""
			}
			return p
		}
	}
	if _, err := os.Stat(fallback); err != nil {
		logger.Error("default path missing", "path", fallback, "error", err)
		return ""
	}
	return fallback
}
