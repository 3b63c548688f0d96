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

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/momohouse/pos/internal/alert"
	"github.com/momohouse/pos/internal/auth"
	"github.com/momohouse/pos/internal/cache"
	"github.com/momohouse/pos/internal/config"
	"github.com/momohouse/pos/internal/enum"
	"github.com/momohouse/pos/internal/escpos"
	mw "github.com/momohouse/pos/internal/middleware"
	"github.com/momohouse/pos/internal/printer"
	"github.com/momohouse/pos/internal/receipt"
	"github.com/momohouse/pos/internal/router"
	"github.com/momohouse/pos/internal/service"
	"github.com/momohouse/pos/internal/store"
	"github.com/momohouse/pos/internal/ws"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// cartIdleTimeout is how long an untouched till cart is kept.
const cartIdleTimeout = 12 * time.Hour

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.Logger

	// --- Storage ---
	var st store.Store
	if cfg.Database.URL != "" {
		if err := store.Migrate(cfg.Database.URL); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		st = store.NewPostgres(pool)
		logger.Info().Msg("using postgres store")
	} else {
		st = store.NewMemory()
		logger.Warn().Msg("DATABASE_URL not set, orders are kept in memory")
	}

	var menuCache cache.MenuCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		menuCache = cache.NewRedis(rdb, "pos:", cfg.Redis.MenuTTL)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis menu cache")
	} else {
		menuCache = cache.NewMemory(cfg.Redis.MenuTTL)
	}

	// --- Realtime and alerts ---
	hub := ws.NewHub()
	go hub.Run(ctx)

	alerter := alert.New(alert.NewHubRinger(hub), alert.Config{
		Interval: cfg.Alert.Interval,
		ToneGap:  cfg.Alert.ToneGap,
	}, logger)
	defer alerter.Close()

	// --- Printing ---
	loc, err := time.LoadLocation(cfg.Shop.Timezone)
	if err != nil {
		logger.Warn().Err(err).Str("timezone", cfg.Shop.Timezone).Msg("unknown timezone, using local time")
		loc = time.Local
	}
	formatter := receipt.NewFormatter(receipt.Config{
		Width:    cfg.Printer.CharsPerLine,
		CodePage: escpos.ParseCodePage(cfg.Printer.CodePage),
		Currency: cfg.Shop.Currency,
		Location: loc,
	})
	transport, err := printer.NewTransportFromConfig(cfg.Printer.Type, cfg.Printer.USBPath, cfg.Printer.Address)
	if err != nil {
		return fmt.Errorf("printer: %w", err)
	}
	dispatcher := printer.NewDispatcher(transport, formatter, printer.DispatcherConfig{
		PrinterType: cfg.Printer.Type,
		SettleDelay: cfg.Printer.SettleDelay,
	}, logger)
	defer dispatcher.Close()

	// --- Services ---
	menuService := service.NewMenuService(st, menuCache, logger)
	carts := service.NewCartSessions(menuService, cfg.Shop.TaxRate)
	orderService := service.NewOrderService(st, menuService, carts, alerter, hub, service.OrderConfig{
		Prefix:  cfg.Shop.OrderPrefix,
		TaxRate: cfg.Shop.TaxRate,
	}, logger)

	if err := orderService.SyncAlerts(ctx); err != nil {
		logger.Error().Err(err).Msg("sync pending order alerts")
	}

	passcodes, err := loadPasscodes(cfg)
	if err != nil {
		return err
	}

	limiter := mw.NewIPRateLimiter(ctx, mw.RateLimiterConfig{
		RequestsPerSecond: cfg.Public.OrderRate,
		BurstSize:         cfg.Public.OrderBurst,
	})

	go pruneCarts(ctx, carts, logger)

	r := router.New(cfg, router.Deps{
		Menu:      menuService,
		Carts:     carts,
		Orders:    orderService,
		Receipts:  formatter,
		Printer:   dispatcher,
		Alerts:    alerter,
		Hub:       hub,
		Passcodes: passcodes,
		Limiter:   limiter,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.App.Port).Str("printer", cfg.Printer.Type).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadPasscodes(cfg *config.Config) (*auth.Passcodes, error) {
	p := auth.NewPasscodes()
	if cfg.Auth.AdminPasscodeHash != "" {
		if err := p.SetHash(enum.RoleAdmin, cfg.Auth.AdminPasscodeHash); err != nil {
			return nil, err
		}
	} else if err := p.Set(enum.RoleAdmin, cfg.Auth.AdminPasscode); err != nil {
		return nil, err
	}
	if err := p.Set(enum.RoleStaff, cfg.Auth.StaffPasscode); err != nil {
		return nil, err
	}
	if cfg.Auth.AdminPasscode == "" && cfg.Auth.AdminPasscodeHash == "" {
		log.Warn().Msg("no admin passcode configured, admin login disabled")
	}
	return p, nil
}

func pruneCarts(ctx context.Context, carts *service.CartSessions, logger zerolog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := carts.Prune(cartIdleTimeout); n > 0 {
				logger.Info().Int("carts", n).Msg("pruned idle carts")
			}
		}
	}
}
