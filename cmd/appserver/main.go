// Package main runs the engagement API server.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/R3E-Network/vybe_engagement/internal/app/runtime"
	"github.com/R3E-Network/vybe_engagement/internal/config"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (overrides $"+config.FileEnv+")")
	flag.Parse()

	if *configPath != "" {
		if err := os.Setenv(config.FileEnv, *configPath); err != nil {
			log.Fatalf("set config path: %v", err)
		}
	}

	app, err := runtime.NewApplication(nil)
	if err != nil {
		log.Fatalf("Failed to initialise application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := app.Run(ctx)
	if runErr != nil {
		log.Printf("Server error: %v", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	if runErr != nil {
		os.Exit(1)
	}
}
