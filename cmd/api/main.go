package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"accountd/internal/account"
	"accountd/internal/config"
	"accountd/internal/geo"
	"accountd/internal/httpapi"
	"accountd/internal/obs"
	"accountd/internal/store"
	"accountd/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init(cfg.Version)

	gw, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}

	codec, err := token.NewCodec(cfg.TokenSecret, cfg.TokenLifetime)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	svc := account.NewService(gw, account.BcryptHasher{}, codec)
	lookup := geo.NewClient(cfg.GeoLookupURL)
	reporter := obs.LogReporter{}

	api := httpapi.New(cfg, svc, codec, lookup, gw, reporter)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting accountd %s on %s", cfg.Version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	api.Close()
	_ = gw.Close()
	log.Println("Stopped")
}
