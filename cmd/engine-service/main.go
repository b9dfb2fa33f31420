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

	"signals-pool/internal/engine/config"
	delivery "signals-pool/internal/engine/delivery/http"
	"signals-pool/internal/engine/repository"
	"signals-pool/internal/engine/service"
	"signals-pool/pkg/logger"
	"signals-pool/pkg/postgres"
	"signals-pool/pkg/redis"
	"signals-pool/pkg/telegram"
	"signals-pool/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the signal settlement engine",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Signal Settlement Engine", logger.Field("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
	}
	defer redisClient.Close()

	// Optional operator notifications
	var notifier telegram.Notifier
	if cfg.Telegram.Enabled {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Fatal("Failed to initialize Telegram notifier", logger.ErrorField(err))
		}
	}

	settings, err := service.SettingsFromConfig(cfg.Engine)
	if err != nil {
		appLogger.Fatal("Invalid engine configuration", logger.ErrorField(err))
	}

	// Initialize repositories and services
	registry := repository.NewRegistry(db.DB)
	clock := utils.RealClock{}
	rnd := utils.NewRand()

	ledgerSvc := service.NewLedgerService(registry, appLogger, settings)
	signalSvc := service.NewSignalService(registry, appLogger, settings, clock, rnd)
	investmentSvc := service.NewInvestmentService(registry, ledgerSvc, appLogger, clock)
	settlementSvc := service.NewSettlementService(registry, ledgerSvc, signalSvc, redisClient.Client, notifier, appLogger, settings, clock, rnd)
	autoModeSvc := service.NewAutoModeService(registry, ledgerSvc, redisClient.Client, appLogger, settings, clock, rnd)

	// Seed the static slate before the first settlement pass
	if err := signalSvc.RefreshStaticSlate(ctx); err != nil {
		appLogger.Error("Failed to seed static slate", logger.ErrorField(err))
	}

	// Start background workers
	utils.GoSafe(func() { settlementSvc.Start(ctx) })
	utils.GoSafe(func() { autoModeSvc.Start(ctx) })

	// Daily slate regeneration on a cron schedule
	var cronRunner *cron.Cron
	if cfg.Engine.StaticSlateCron != "" {
		cronRunner = cron.New()
		_, err := cronRunner.AddFunc(cfg.Engine.StaticSlateCron, func() {
			if err := signalSvc.RefreshStaticSlate(context.Background()); err != nil {
				appLogger.Error("Scheduled slate refresh failed", logger.ErrorField(err))
			}
		})
		if err != nil {
			appLogger.Fatal("Invalid static slate cron expression", logger.ErrorField(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	// Initialize handlers and routes
	apiV1 := e.Group("/api/v1")

	signalHandler := delivery.NewSignalHandler(signalSvc, investmentSvc, autoModeSvc, appLogger)
	signalHandler.RegisterRoutes(apiV1.Group("/signals"))

	balanceHandler := delivery.NewBalanceHandler(ledgerSvc, appLogger)
	balanceHandler.RegisterRoutes(apiV1.Group("/balances"))

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	// Gracefully shutdown the server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

func main() {
	rootCmd := &cobra.Command{Use: "engine-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing engine-service CLI: %s\n", err)
		os.Exit(1)
	}
}
