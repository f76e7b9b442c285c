// Command migrate applies the goose migrations embedded in the binary.
// Usage: migrate [up|down|status] (default up).
package main

import (
	"os"

	"github.com/pressly/goose/v3"

	"aidantsconnect/internal/platform/config"
	"aidantsconnect/internal/platform/logger"
	"aidantsconnect/internal/platform/postgres"
	"aidantsconnect/migrations"
)

func main() {
	cfg := config.Load()
	log := logger.New()

	if cfg.PostgresDSN == "" {
		log.Error("AC_POSTGRES_DSN is required")
		os.Exit(1)
	}

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Error("set goose dialect", "error", err)
		os.Exit(1)
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		err = goose.Up(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	default:
		log.Error("unknown command", "command", cmd)
		os.Exit(2)
	}
	if err != nil {
		log.Error("migration failed", "command", cmd, "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied", "command", cmd)
}
