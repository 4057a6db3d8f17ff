package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"doku-template-store/internal/audit"
	"doku-template-store/internal/client"
	"doku-template-store/internal/config"
	"doku-template-store/internal/logging"
	"doku-template-store/internal/repository"
	"doku-template-store/internal/server"
	"doku-template-store/internal/service"
	"doku-template-store/internal/signature"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log)

	db, err := client.InitMigratedDB(cfg.Database)
	if err != nil {
		log.Error("init database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}

	productRepo := repository.NewProductRepository(db)
	if err := productRepo.Seed(context.Background()); err != nil {
		log.Error("seed products", "error", err)
		os.Exit(1)
	}

	sinks := audit.MultiSink{audit.NewLogSink(log)}
	if rdb := client.InitRedisClient(cfg.Redis, log); rdb != nil {
		defer rdb.Close()
		sinks = append(sinks, audit.NewRedisSink(rdb, cfg.Redis.AuditStream))
	}
	dispatcher := audit.NewDispatcher(sinks, log)

	signer := signature.NewSigner(cfg.Doku.ClientID, cfg.Doku.SecretKey)
	dokuClient := client.NewDokuClient(&cfg.Doku, signer)

	orderRepo := repository.NewOrderRepository(db)
	accessRepo := repository.NewAccessGrantRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)
	settingsService := service.NewSettingsService(repository.NewSettingsRepository(db), cfg.Store.SettingsCacheTTL)

	services := server.Services{
		Checkout: service.NewCheckoutService(
			dokuClient,
			productRepo,
			orderRepo,
			accessRepo,
			settingsService,
			dispatcher,
			log,
			service.CheckoutOptions{
				BaseURL:       cfg.BaseURL,
				NotifyPath:    cfg.Doku.NotifyPath,
				InvoicePrefix: cfg.Store.InvoicePrefix,
				Currency:      cfg.Store.Currency,
			},
		),
		Catalog: service.NewCatalogService(productRepo),
		Account: service.NewAccountService(orderRepo, accessRepo),
		Webhook: service.NewWebhookService(
			db, signer,
			webhookEventRepo,
			service.NewReconcileService(orderRepo, accessRepo),
			dispatcher,
			log,
		),
	}

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(services, cfg.Auth.JWTSecret, cfg.Doku.NotifyPath, log)

	log.Info("starting HTTP server", "addr", serverAddr, "environment", cfg.Environment.Name)
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}
	dispatcher.Close()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
