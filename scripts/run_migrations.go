package main

import (
	"os"

	"github.com/safar/cod-checkout/internal/config"
	"github.com/safar/cod-checkout/internal/database"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()

	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/run_migrations.go [up|down]")
	}

	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		log.Fatal("Direction must be 'up' or 'down'")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	if direction == "up" {
		err = database.MigrateUp(cfg.Database.URL)
	} else {
		err = database.MigrateDown(cfg.Database.URL)
	}
	if err != nil {
		log.Fatalf("Migrate %s: %v", direction, err)
	}

	log.Infof("Migrations %s complete", direction)
}
