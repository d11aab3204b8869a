package main

import (
	"context"
	"log"

	"cv-tailor-backend/internal/bootstrap"
	"cv-tailor-backend/internal/config"
	"cv-tailor-backend/internal/server"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	app.StartRetentionSweep(context.Background())

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
