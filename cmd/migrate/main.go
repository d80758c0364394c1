// Package main applies or rolls back the Postgres schema.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/R3E-Network/vybe_engagement/internal/platform/migrations"
)

func main() {
	dsn := flag.String("dsn", "", "Postgres DSN (defaults to $DATABASE_URL)")
	steps := flag.Int("steps", 1, "Number of migrations to roll back with 'down'")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] up|down|version\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if *dsn == "" {
		_ = godotenv.Load()
		*dsn = os.Getenv("DATABASE_URL")
	}
	if *dsn == "" {
		log.Fatal("no database configured: pass -dsn or set DATABASE_URL")
	}

	db, err := sqlx.Open("postgres", *dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	switch cmd := flag.Arg(0); cmd {
	case "up":
		if err := migrations.Up(db.DB); err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		log.Println("migrations applied")
	case "down":
		if err := migrations.Down(db.DB, *steps); err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		log.Printf("rolled back %d migration(s)", *steps)
	case "version":
		version, dirty, err := migrations.Version(db.DB)
		if err != nil {
			log.Fatalf("read version: %v", err)
		}
		fmt.Printf("version=%d dirty=%v\n", version, dirty)
	default:
		flag.Usage()
		os.Exit(2)
	}
}
