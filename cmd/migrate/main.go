package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/ignite/outreach-engine/internal/repository/postgres"
)

const usage = `usage: migrate [up | down <steps> | version]

Applies the embedded schema migrations to DATABASE_URL.`

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	db, err := postgres.Open(context.Background(), dsn, postgres.PoolConfig{MaxOpenConns: 2})
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	switch cmd {
	case "up":
		if err := postgres.Migrate(db); err != nil {
			log.Fatalf("migrate up: %v", err)
		}
	case "down":
		if len(os.Args) < 3 {
			log.Fatal(usage)
		}
		steps, err := strconv.Atoi(os.Args[2])
		if err != nil || steps < 1 {
			log.Fatalf("down needs a positive step count, got %q", os.Args[2])
		}
		if err := postgres.MigrateDown(db, steps); err != nil {
			log.Fatalf("migrate down: %v", err)
		}
	case "version":
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	v, dirty, err := postgres.MigrationVersion(db)
	if err != nil {
		log.Fatalf("read version: %v", err)
	}
	fmt.Printf("Schema version: %d (dirty=%v)\n", v, dirty)
}
