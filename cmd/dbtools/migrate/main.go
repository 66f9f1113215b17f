// cmd/dbtools/migrate/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/config"
	"github.com/codr1/courtside/internal/db"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to the configuration file")
		dbPath     = flag.String("db", "", "Path to SQLite database (overrides the configured filename)")
		command    = flag.String("command", "", "Command to run (up, down, version)")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *command == "" {
		flag.Usage()
		os.Exit(1)
	}

	filename, busyTimeout, err := resolveDatabase(*configPath, *dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve database")
	}

	sqlDB, err := db.OpenSQLite(filename, busyTimeout)
	if err != nil {
		log.Fatal().Err(err).Str("db", filename).Msg("Failed to open database")
	}
	defer sqlDB.Close()

	m, err := db.NewMigrator(sqlDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration init failed")
	}

	// Execute command
	switch *command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("Migration up failed")
		}
		log.Info().Str("db", filename).Msg("Migrations applied")
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("Migration down failed")
		}
		log.Info().Str("db", filename).Msg("Migrations rolled back")
	case "version":
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			log.Fatal().Err(err).Msg("Get version failed")
		}
		fmt.Printf("Version: %d, Dirty: %v\n", version, dirty)
	default:
		log.Fatal().Str("command", *command).Msg("Unknown command")
	}
}

// resolveDatabase picks the database file from the flag, falling back to the
// configuration file.
func resolveDatabase(configPath, dbPath string) (string, int, error) {
	if dbPath != "" {
		return dbPath, 0, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", 0, err
	}
	return cfg.Database.Filename, cfg.Database.BusyTimeoutMillis, nil
}
