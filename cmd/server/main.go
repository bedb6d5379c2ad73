package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/gateway"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/logger"
	"github.com/iliyamo/cinema-ticketing/internal/mailer"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/pending"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/router"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional outside development
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.Dev())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	db, err := database.Open(ctx, database.Options{
		User:     cfg.DBUser,
		Password: cfg.DBPass,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	// Redis backs the checkout contexts, the response cache and the rate
	// limiter.  Without it the service still runs on a process-local store.
	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	var checkouts service.PendingStore
	if err == nil {
		defer rdb.Close()
		checkouts = pending.NewRedisStore(rdb, cfg.PendingTTL)
	} else {
		rdb = nil
		log.Warn().Err(err).Msg("redis unavailable: checkout contexts kept in memory, cache and rate limit disabled")
		checkouts = pending.NewMemoryStore(cfg.PendingTTL)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	seats := repository.NewSeatRepo(db)
	catalog := repository.NewCatalogRepo(db)
	bookings := repository.NewBookingRepo(db)
	approvals := repository.NewApprovalRepo(db)
	reports := repository.NewReportRepo(db)

	gw := gateway.New(gateway.Config{
		PayURL:     cfg.Payment.PayURL,
		ReturnURL:  cfg.Payment.ReturnURL,
		MerchantID: cfg.Payment.MerchantID,
		Secret:     cfg.Payment.Secret,
		Location:   cfg.Location,
	})
	publisher := queue.NewPublisher(cfg.AMQPURL, log.With().Str("component", "publisher").Logger())
	defer publisher.Close()

	var mail queue.TicketMailer = mailer.NewLog(log)
	if cfg.SMTP.Host != "" {
		mail = mailer.NewSMTP(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, log)
	}

	ledger := service.NewSeatLedger(seats, catalog,
		service.WithHoldDuration(cfg.HoldDuration),
		service.WithLedgerLogger(log.With().Str("component", "ledger").Logger()),
	)
	store := service.NewBookingStore(bookings, ledger, catalog, catalog, cfg.Location, log)
	reconciler := service.NewReconciler(store, ledger, catalog, checkouts, publisher, gw, log)
	presenter := service.NewPresenter(store, catalog, users, publisher, log)
	workflow := service.NewApprovals(approvals, catalog, log)
	sweeper := &service.Sweeper{Ledger: ledger, Interval: cfg.SweepInterval, Log: log}
	consumer := &queue.Consumer{
		URL:      cfg.AMQPURL,
		LogDir:   cfg.BookingLogDir,
		Location: cfg.Location,
		Mailer:   mail,
		Log:      log.With().Str("component", "consumer").Logger(),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(handler.WithLogger(log))
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	optional := map[string]handler.Check{"rabbitmq": publisher.Ping}
	if rdb != nil {
		optional["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	router.RegisterRoutes(e, map[string]handler.Check{"mysql": db.PingContext}, optional)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewPublicHandler(catalog, cfg.RequestTimeout), middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterSeats(e, handler.NewSeatHandler(ledger, cfg.RequestTimeout), cfg.JWTSecret)
	router.RegisterBookings(e, handler.NewBookingHandler(store, reconciler, presenter, cfg.RequestTimeout), cfg.JWTSecret)
	router.RegisterPayments(e, handler.NewPaymentHandler(gw, reconciler, cfg.StartURL, cfg.RequestTimeout))
	admin := handler.NewAdminHandler(workflow, ledger, reports, cfg.RequestTimeout)
	router.RegisterManager(e, admin, cfg.JWTSecret)
	router.RegisterAdmin(e, admin, cfg.JWTSecret)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return sweeper.Run(ctx) })
	g.Go(func() error { return consumer.Run(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
