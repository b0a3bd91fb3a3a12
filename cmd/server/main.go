// Command server runs the D-Link Colombo listing API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/reshamsu/dlink-colombo/internal/config"
	"github.com/reshamsu/dlink-colombo/internal/database"
	"github.com/reshamsu/dlink-colombo/internal/handler"
	"github.com/reshamsu/dlink-colombo/internal/listing"
	"github.com/reshamsu/dlink-colombo/internal/logging"
	"github.com/reshamsu/dlink-colombo/internal/middleware"
	"github.com/reshamsu/dlink-colombo/internal/queue"
	"github.com/reshamsu/dlink-colombo/internal/repository"
	"github.com/reshamsu/dlink-colombo/internal/router"
	"github.com/reshamsu/dlink-colombo/internal/service"
	"github.com/reshamsu/dlink-colombo/internal/storage"
)

func main() {
	cfg := config.Load() // Load environment config

	log, closeLog := logging.New(cfg.Log, os.Stdout)
	defer func() { _ = closeLog() }()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		return err
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	listings := repository.NewListingRepo(db)
	contacts := repository.NewContactRepo(db)
	heroes := repository.NewHeroRepo(db)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		created, err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost)
		if err != nil {
			return err
		}
		if created {
			log.Info("seed admin created", "email", cfg.AdminEmail)
		}
	}

	rdb := config.NewRedisClient() // nil when Redis is down
	if rdb != nil {
		defer rdb.Close()
	}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	var ledger listing.Ledger
	if rdb != nil {
		ledger = listing.NewRedisLedger(rdb, listing.DefaultLedgerKey)
	}
	publisher := service.NewPublisher(cfg.RabbitURL, log)
	workflow := &listing.Workflow{
		Uploader: &listing.Uploader{
			Store:       store,
			Ledger:      ledger,
			Concurrency: cfg.Upload.Concurrency,
			Now:         time.Now,
			Log:         log,
		},
		Gateway:       listings,
		Events:        publisher,
		MaxImageBytes: cfg.Upload.MaxImageBytes,
		Log:           log,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(middleware.RequestLogger(log))

	purger := middleware.NewCachePurger(cfg.Cache, rdb)
	contactHandler := handler.NewContactHandler(contacts, heroes)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret,
		middleware.NewTokenBucket(cfg.RateLimit.WithCapacity(cfg.RateLimit.Capacity, "auth"), rdb))
	router.RegisterPublic(e, router.Public{
		Listings: handler.NewPublicListingHandler(listings, cfg.PlaceholderImage),
		Contact:  contactHandler,
		Config: handler.ClientConfig{
			GoogleClientID:   cfg.GoogleClientID,
			PlaceholderImage: cfg.PlaceholderImage,
			MaxImageBytes:    cfg.Upload.MaxImageBytes,
		},
		Cache:        middleware.NewRedisCache(cfg.Cache, rdb),
		ContactLimit: middleware.NewTokenBucket(cfg.RateLimit.WithCapacity(cfg.RateLimit.ContactCapacity, "contact"), rdb),
	})
	router.RegisterDashboard(e, router.Dashboard{
		Listings:   handler.NewDashboardListingHandler(listings, workflow, purger),
		Contact:    contactHandler,
		SubmitLock: middleware.SubmitLock(rdb, "submit", cfg.Upload.SubmitLockTTL),
	}, cfg.JWTSecret)

	g, gctx := errgroup.WithContext(ctx)
	startWorkers(gctx, g, cfg, log, store, ledger, listings)

	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(sctx)
	})
	return g.Wait()
}

// openStore picks the image store named by STORAGE_DRIVER.
func openStore(ctx context.Context, cfg config.StorageConfig) (listing.ObjectStore, error) {
	if cfg.Driver == "memory" {
		return storage.NewMemoryStore(cfg.PublicBaseURL), nil
	}
	return storage.NewS3Store(ctx, cfg)
}

// startWorkers launches the broker consumers and the upload sweeper.  They
// stop with ctx.
func startWorkers(ctx context.Context, g *errgroup.Group, cfg config.Config, log *slog.Logger, store listing.ObjectStore, ledger listing.Ledger, listings listing.References) {
	audit := &queue.AuditLog{Dir: "logs"}
	cleaner := &queue.OrphanCleaner{Store: store}
	if ledger != nil {
		cleaner.Ledger = ledger
	}
	consumers := []*queue.Consumer{
		{URL: cfg.RabbitURL, Queue: queue.ListingCreatedQueue, Handle: audit.Handle, Log: log},
		{URL: cfg.RabbitURL, Queue: queue.ListingUpdatedQueue, Handle: audit.Handle, Log: log},
		{URL: cfg.RabbitURL, Queue: queue.UploadsOrphanedQueue, Handle: cleaner.Handle, Log: log},
	}
	for _, c := range consumers {
		c := c
		g.Go(func() error {
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("consumer stopped", "queue", c.Queue, "error", err)
			}
			return nil
		})
	}

	if ledger == nil {
		log.Warn("upload sweeper disabled: no pending-upload ledger")
		return
	}
	sweeper := &listing.Sweeper{
		Store:    store,
		Ledger:   ledger,
		Refs:     listings,
		TTL:      cfg.Upload.PendingTTL,
		Interval: cfg.Upload.SweepInterval,
		Batch:    500,
		Now:      time.Now,
		Log:      log,
	}
	g.Go(func() error {
		sweeper.Run(ctx)
		return nil
	})
}
