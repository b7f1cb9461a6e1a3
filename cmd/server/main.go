package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pharmacyMarketplace/internal/checkout"
	"pharmacyMarketplace/internal/config"
	"pharmacyMarketplace/internal/db"
	"pharmacyMarketplace/internal/httpapi"
	"pharmacyMarketplace/repository"
)

func main() {
	// Load configuration
	cfg, err := config.LoadWithDefaults()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Printf("Configuration loaded: %v", cfg)

	// Open DB
	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Printf("close db: %v", err)
		}
	}()

	users := repository.NewUserRepository(d)
	products := repository.NewProductRepository(d)
	pharmacies := repository.NewPharmacyRepository(d)
	orders := repository.NewOrderRepository(d)
	wallets := repository.NewWalletRepository(d)
	carts := repository.NewCartRepository(d)

	flow := checkout.NewFlow(d, pharmacies, orders, wallets, carts)
	server := httpapi.NewServer(cfg, users, products, pharmacies, orders, wallets, carts, flow)

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: server.Engine(),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()
	log.Printf("HTTP server listening on %s", cfg.HTTP.Address)

	// Wait for signal
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
