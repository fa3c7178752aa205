package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/dropDatabas3/authmanager/internal/config"
	"github.com/dropDatabas3/authmanager/internal/store/pg"
	migrations "github.com/dropDatabas3/authmanager/migrations/postgres"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config (optional)")
		dsn        = flag.String("dsn", "", "Postgres DSN (overrides storage.dsn)")
		list       = flag.Bool("list", false, "Only list embedded migrations")
	)
	flag.Parse()

	_ = godotenv.Load()

	m := pg.NewMigrator(migrations.ControlPlaneFS, migrations.ControlPlaneDir)
	if *list {
		all, err := m.Parse()
		if err != nil {
			log.Fatalf("parse migrations: %v", err)
		}
		for _, mig := range all {
			fmt.Printf("%04d  %s\n", mig.Version, mig.Name)
		}
		return
	}

	target := *dsn
	if target == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("config load: %v", err)
		}
		target = cfg.Storage.DSN
	}
	if target == "" {
		log.Fatal("no DSN: use --dsn or STORAGE_DSN")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, target)
	if err != nil {
		log.Fatalf("pgxpool: %v", err)
	}
	defer pool.Close()

	applied, err := m.Run(ctx, pool)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if len(applied) == 0 {
		log.Println("Nothing to do, schema is up to date.")
		return
	}
	log.Printf("Applied %d migration(s): %v", len(applied), applied)
}
