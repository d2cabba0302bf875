// Package main runs database migrations: migrate [-path dir] up|down|steps N|force N|version.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"supplyhub/internal/infrastructure/config"
	"supplyhub/internal/infrastructure/migration"
	"supplyhub/pkg/logger"
)

func main() {
	path := flag.String("path", "migrations", "path to migrations directory")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.IsDevelopment(),
		Service:     cfg.App.Name + "-migrate",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	m, err := migration.New(cfg.Database.DSN, *path, log)
	if err != nil {
		log.Fatalw("failed to open migrations", "error", err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warnw("close migrator", "error", err)
		}
	}()

	if err := execute(m, args); err != nil {
		log.Errorw("migration failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

func execute(m *migration.Migrator, args []string) error {
	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "steps", "force":
		if len(args) < 2 {
			return fmt.Errorf("%s requires a number", args[0])
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", args[1], err)
		}
		if args[0] == "steps" {
			return m.Steps(n)
		}
		return m.Force(n)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	}
	usage()
	return fmt.Errorf("unknown command %q", args[0])
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate [-path dir] up|down|steps N|force N|version")
}
