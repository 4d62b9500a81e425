package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/classifier"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/config"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/database"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/geocode"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/handlers"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/middleware"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/offline"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/realtime"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/repository"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/services"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/storage"
	"github.com/urmilavishwakarma612-art/rahi-guardian/pkg/logger"
	"github.com/urmilavishwakarma612-art/rahi-guardian/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.Connect(&cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	if err := database.Seed(db); err != nil {
		log.Warn("failed to seed database", zap.Error(err))
	}

	redisClient, err := database.ConnectRedis(&cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer database.CloseRedis(redisClient)

	minioStorage, err := storage.NewMinIOStorage(&cfg.MinIO)
	if err != nil {
		log.Fatal("failed to connect to object storage", zap.Error(err))
	}

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpireHour)
	sessionStore := database.NewSessionStore(redisClient)

	// Repositories
	publisher := realtime.NewPublisher(redisClient, log)
	userRepo := repository.NewUserRepository(db)
	volunteerRepo := repository.NewVolunteerRepository(db)
	incidentRepo := repository.NewIncidentRepository(db, publisher)
	mediaRepo := repository.NewMediaRepository(db)
	notificationLogRepo := repository.NewNotificationLogRepository(db)

	// Domain services
	geocoder := geocode.NewNominatim(&cfg.Geocoder)
	verdicts := classifier.NewHTTPProvider(&cfg.Classifier, log)
	notifier := services.NewNotificationService(volunteerRepo, notificationLogRepo, nil, log)
	queue := offline.NewQueue(offline.NewRedisStorage(redisClient), log)

	incidentService := services.NewIncidentService(incidentRepo, volunteerRepo, queue, verdicts, geocoder, notifier, log)
	mediaService := services.NewMediaService(incidentRepo, mediaRepo, minioStorage, log)
	volunteerService := services.NewVolunteerService(volunteerRepo)
	authService := services.NewAuthService(userRepo, jwtManager, sessionStore, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Replay anything captured while persistence was unreachable, then
	// keep draining whenever connectivity is reported back.
	drainer := offline.NewDrainer(queue, offline.SubmitterFunc(incidentService.SubmitQueued), log)
	online := make(chan struct{}, 1)
	online <- struct{}{}
	go drainer.Run(ctx, online)

	feed := realtime.NewFeed(redisClient, log)
	go feed.Run(ctx)

	// Handlers
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, sessionStore, userRepo)
	authHandler := handlers.NewAuthHandler(authService)
	incidentHandler := handlers.NewIncidentHandler(incidentService, mediaService)
	volunteerHandler := handlers.NewVolunteerHandler(volunteerService)
	streamHandler := handlers.NewStreamHandler(feed, log)
	healthHandler := handlers.NewHealthHandler(db, redisClient)

	app := fiber.New(fiber.Config{
		AppName:   "RAHI Guardian",
		BodyLimit: int(services.MaxFileSize) + 1024*1024,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	api := app.Group("/api")
	v1 := api.Group("/v1")

	v1.Get("/health", healthHandler.Check)

	auth := v1.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/logout", authMiddleware.Authenticate(), authHandler.Logout)

	users := v1.Group("/users", authMiddleware.Authenticate())
	users.Get("/me", authHandler.Me)
	users.Put("/me", authHandler.UpdateProfile)

	incidents := v1.Group("/incidents")
	incidents.Post("/", authMiddleware.OptionalAuthenticate(), incidentHandler.Report)
	incidents.Post("/:id/media", authMiddleware.OptionalAuthenticate(), incidentHandler.AttachMedia)
	incidents.Get("/:id/media", incidentHandler.ListMedia)
	incidents.Get("/:id", incidentHandler.Get)

	responder := v1.Group("/dashboard", authMiddleware.Authenticate(), authMiddleware.RequireResponder())
	responder.Get("/incidents", incidentHandler.List)
	responder.Get("/incidents/pending", incidentHandler.ListPending)
	responder.Get("/stats", incidentHandler.Stats)
	responder.Get("/stream", streamHandler.Stream)
	responder.Post("/incidents/:id/accept", incidentHandler.Accept)
	responder.Post("/incidents/:id/on-the-way", incidentHandler.OnTheWay)
	responder.Post("/incidents/:id/arrived", incidentHandler.Arrived)
	responder.Post("/incidents/:id/complete", incidentHandler.Complete)
	responder.Post("/incidents/:id/start-progress", incidentHandler.StartProgress)
	responder.Post("/incidents/:id/resolve", incidentHandler.Resolve)

	// Cancellation is for the reporter or an admin, not responders.
	v1.Post("/incidents/:id/cancel", authMiddleware.Authenticate(), incidentHandler.Cancel)

	volunteers := v1.Group("/volunteers", authMiddleware.Authenticate())
	volunteers.Get("/me", authMiddleware.RequireResponder(), volunteerHandler.Me)
	volunteers.Put("/me/availability", authMiddleware.RequireResponder(), volunteerHandler.SetAvailability)
	volunteers.Put("/me/location", authMiddleware.RequireResponder(), volunteerHandler.UpdateLocation)
	volunteers.Get("/available", authMiddleware.RequireResponder(), volunteerHandler.ListAvailable)

	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Info("server listening", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
