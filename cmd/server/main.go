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

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/iliyamo/site-reservation/internal/config"
	"github.com/iliyamo/site-reservation/internal/database"
	"github.com/iliyamo/site-reservation/internal/handler"
	"github.com/iliyamo/site-reservation/internal/logger"
	"github.com/iliyamo/site-reservation/internal/metrics"
	"github.com/iliyamo/site-reservation/internal/middleware"
	"github.com/iliyamo/site-reservation/internal/model"
	"github.com/iliyamo/site-reservation/internal/queue"
	"github.com/iliyamo/site-reservation/internal/repository"
	"github.com/iliyamo/site-reservation/internal/router"
	"github.com/iliyamo/site-reservation/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()

	zl, err := logger.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	schedule, err := config.LoadSchedule(cfg.ScheduleFile)
	if err != nil {
		zl.Fatal("schedule config", zap.Error(err))
	}
	zl.Info("schedule loaded",
		zap.String("window", schedule.OperatingWindow.String()),
		zap.Int("granularity_minutes", schedule.GranularityMinutes),
		zap.Int("concurrent_limit", schedule.ConcurrentLimit),
		zap.Int("sequential_limit", schedule.SequentialLimit))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg, zl)
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		zl.Fatal("migrate", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewDBStatsCollector(db, cfg.DBName))
	m := metrics.New(reg)

	rdb := config.NewRedisClient(zl)
	var locker service.Locker = service.NewLocalLocker()
	if rdb != nil {
		defer rdb.Close()
		locker = service.NewRedisLocker(rdb, "sites-lock", schedule.LockTTL.Duration)
	}
	cacheCfg := config.LoadCacheConfig()
	purger := middleware.NewCachePurger(rdb, cacheCfg.Prefix, zl)

	// Repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	sites := repository.NewSiteRepo(db)
	locations := repository.NewLocationRepo(db)
	reservations := repository.NewReservationRepo(db)
	courses := repository.NewCourseRepo(db)

	if err := seedAdmin(ctx, users, cfg.BcryptCost, zl); err != nil {
		zl.Fatal("seed admin", zap.Error(err))
	}

	// Services
	publisher := service.NewAMQPPublisher(cfg.AMQPURL, zl, m)
	writer := service.NewReservationService(reservations, locker, schedule, publisher, zl, m)
	avail := service.NewAvailabilityService(reservations, schedule, zl, m)
	registrar := service.NewCourseService(courses, zl, m)

	// Handlers
	siteH := handler.NewSiteHandler(sites, purger, zl)
	locationH := handler.NewLocationHandler(locations, sites, purger, zl)
	courseH := handler.NewCourseHandler(courses, registrar, purger, zl)
	availH := handler.NewAvailabilityHandler(avail, reservations, zl)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(zl))
	e.Use(m.Middleware())
	e.Use(echomw.Recover())

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, zl)
	router.RegisterRoutes(e, handler.Ready(db), m.Handler())
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, zl), cfg.JWTSecret)
	router.RegisterPublic(e, router.Public{
		Sites:        siteH,
		Locations:    locationH,
		Availability: availH,
		Courses:      courseH,
	}, middleware.NewRedisCache(cacheCfg, rdb, zl), limit)
	router.RegisterMember(e, handler.NewReservationHandler(writer, reservations, zl), courseH, cfg.JWTSecret, limit)
	router.RegisterAdmin(e, router.Admin{
		Sites:     siteH,
		Locations: locationH,
		Courses:   courseH,
		Users:     handler.NewUserHandler(users, courses, zl),
	}, cfg.JWTSecret)

	consumer := queue.NewConsumer(cfg.AMQPURL, zl, m)
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zl.Error("reservation consumer stopped", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("forced shutdown", zap.Error(err))
	}
}

// seedAdmin creates the first ADMIN account from ADMIN_USERNAME,
// ADMIN_EMAIL and ADMIN_PASSWORD.  Self-service sign-up cannot grant
// ADMIN.  Nothing happens when the variables are unset or the account
// already exists.
func seedAdmin(ctx context.Context, users *repository.UserRepo, cost int, zl *zap.Logger) error {
	username, email, password := os.Getenv("ADMIN_USERNAME"), os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD")
	if username == "" || email == "" || password == "" {
		return nil
	}
	id, err := users.Create(ctx, username, email, password, model.RoleAdmin, cost)
	switch {
	case errors.Is(err, repository.ErrEmailExists), errors.Is(err, repository.ErrUsernameExists):
		return nil
	case err != nil:
		return err
	}
	zl.Info("admin account created", zap.Uint64("user_id", id))
	return nil
}
