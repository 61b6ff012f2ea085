package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseCheckout/app/controllers"
	"github.com/ManuelReschke/CourseCheckout/app/repository"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/apperror"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/archive"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/cache"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/config"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/database"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/env"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/payments"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/router"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/scheduler"
)

const shutdownTimeout = 10 * time.Second

type application struct {
	app      *fiber.App
	db       *gorm.DB
	cache    *cache.Cache
	sched    *scheduler.Scheduler
	listenOn string
}

func main() {
	a, err := newApplication()
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	go func() {
		if err := a.app.Listen(a.listenOn); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.shutdown()
}

func newApplication() (*application, error) {
	env.SetupEnvFile()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := database.Migrate(ctx, db); err != nil {
		return nil, err
	}

	var (
		tokenCache     payments.TokenCache
		c              *cache.Cache
		limiterStorage fiber.Storage
		webhookCounter *counter.Counter
	)
	if cfg.Cache.Enabled() {
		c = cache.New(ctx, cfg.Cache)
		tokenCache = c
		// The limiter storage panics on an unreachable server.
		if err := c.Ping(ctx); err == nil {
			limiterStorage = cache.NewLimiterStorage(cfg.Cache)
			webhookCounter = counter.New(c.Client())
		}
	}

	var archiver payments.Archiver
	if cfg.Archive.Enabled {
		s3a, err := archive.NewS3Archiver(ctx, cfg.Archive)
		if err != nil {
			log.Printf("S3 archive disabled: %v", err)
		} else {
			archiver = s3a
		}
	}

	factory := repository.NewFactory(db)
	gateway := payments.NewWompiClient(cfg.Gateway, tokenCache)
	svc := payments.NewService(factory, gateway, archiver, payments.OptionsFromConfig(cfg))

	sched, err := scheduler.Start(svc, cfg.ReconcileInterval)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:      "CourseCheckout",
		ErrorHandler: apperror.FiberErrorHandler,
		BodyLimit:    1 << 20,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	if specPath, ok := findOpenAPISpec(); ok {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: specPath,
			Path:     "v1",
			Title:    "CourseCheckout API",
		}))
	}

	// ROUTER
	router.InstallRouter(app, router.Deps{
		Handlers:       controllers.NewHandlers(db, factory.Repositories(), svc).WithCounter(webhookCounter),
		Metrics:        cfg.Metrics,
		AdminAPIKey:    cfg.AdminAPIKey,
		LimiterStorage: limiterStorage,
	})

	return &application{
		app:      app,
		db:       db,
		cache:    c,
		sched:    sched,
		listenOn: cfg.ListenAddr(),
	}, nil
}

func (a *application) shutdown() {
	if err := a.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if err := a.sched.Stop(); err != nil {
		log.Printf("scheduler shutdown: %v", err)
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Printf("cache close: %v", err)
		}
	}
	if err := database.Close(a.db); err != nil {
		log.Printf("database close: %v", err)
	}
}

func findOpenAPISpec() (string, bool) {
	for _, base := range []string{"./", "../../", "../../../"} {
		p := base + "docs/openapi.yml"
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}
