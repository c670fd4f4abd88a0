package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/PortNumber53/sports-camp/backend/internal/config"
	"github.com/PortNumber53/sports-camp/backend/internal/migrations"
	"github.com/PortNumber53/sports-camp/backend/internal/store"
)

func main() {
	// Load environment variables
	_ = godotenv.Load(
		"../.env",
		".env",
	)

	dsn, err := config.LoadDatabaseURL()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		log.Printf("Applying migrations...")
		if err := migrations.Up(db); err != nil {
			log.Fatalf("failed to apply migrations: %v", err)
		}
		log.Printf("Migrations applied successfully")

	case "fix":
		log.Printf("Attempting to fix dirty database...")
		if err := migrations.FixDirtyDatabase(db); err != nil {
			log.Fatalf("failed to fix dirty database: %v", err)
		}
		log.Printf("Database fixed successfully")

	case "force":
		if len(os.Args) < 3 {
			log.Fatalf("usage: %s force <version>", os.Args[0])
		}
		var v uint
		if _, err := fmt.Sscanf(os.Args[2], "%d", &v); err != nil {
			log.Fatalf("invalid version number: %s", os.Args[2])
		}

		log.Printf("Forcing database version to %d...", v)
		if err := migrations.ForceVersion(db, v); err != nil {
			log.Fatalf("failed to force version: %v", err)
		}
		log.Printf("Database version forced to %d", v)

	case "version":
		v, dirty, err := migrations.Version(db)
		if err != nil {
			log.Fatalf("failed to read version: %v", err)
		}
		log.Printf("Schema version %d (dirty: %t)", v, dirty)

	case "payments":
		limit := 20
		if len(os.Args) > 2 {
			if _, err := fmt.Sscanf(os.Args[2], "%d", &limit); err != nil {
				log.Fatalf("invalid limit: %s", os.Args[2])
			}
		}
		listPayments(ctx, db, limit)

	default:
		log.Printf("Usage: %s [up|fix|force <version>|version|payments [limit]]", os.Args[0])
		os.Exit(1)
	}
}

func listPayments(ctx context.Context, db *sql.DB, limit int) {
	ledger, err := store.New(db)
	if err != nil {
		log.Fatalf("failed to create store: %v", err)
	}

	recs, err := ledger.ListPaymentIntents(ctx, limit)
	if err != nil {
		log.Fatalf("failed to list payment intents: %v", err)
	}

	for _, rec := range recs {
		plan := "-"
		if rec.PlanName != nil {
			plan = *rec.PlanName
		}
		fmt.Printf("%s\t%s\t%d %s\t%s\t%s\n",
			rec.CreatedAt.Format(time.RFC3339), rec.ID, rec.Amount, rec.Currency, rec.Status, plan)
	}
}
