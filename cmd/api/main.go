package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"mashup-go/internal/config"
	"mashup-go/internal/logger"
	"mashup-go/internal/pipeline"
	"mashup-go/internal/server"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.Info("starting service")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.WithField("work_dir", cfg.WorkDir).
		WithField("workers", cfg.Workers).
		WithField("smtp_host", cfg.SMTPHost).
		Info("configuration loaded")

	svc := pipeline.New(cfg, pipeline.DefaultDeps(cfg, log))
	mux := server.New(svc, log).Routes()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// a mashup is answered only after delivery
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}
