package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/zenithtrust/docuvault/internal/config"
	"github.com/zenithtrust/docuvault/internal/database"
	"github.com/zenithtrust/docuvault/internal/handlers"
	"github.com/zenithtrust/docuvault/internal/middleware"
	"github.com/zenithtrust/docuvault/internal/services"
	"github.com/zenithtrust/docuvault/internal/session"
	"github.com/zenithtrust/docuvault/internal/storage"
	"github.com/zenithtrust/docuvault/pkg/logger"
)

func main() {
	logger.Init()

	cfg := config.Load()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	storageClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := storageClient.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}

	sessionTTL := time.Duration(cfg.Session.TTLHours) * time.Hour
	sessions := session.NewRedisStore(redisClient, cfg.Session.Secret, sessionTTL)

	codes := services.NewCodeService(db)
	ledger := services.NewLedger(db, storageClient)
	ledger.StartExporter(cfg.Activity.ExportInterval)
	assist := services.NewAssistService(cfg.Assist)
	renderer := services.TextRenderer{}

	// First boot seeds the super admin; its login code is printed exactly
	// once and never again.
	adminCode, seeded, err := database.SeedSuperAdmin(db, codes)
	if err != nil {
		log.Fatalf("failed seeding super admin: %v", err)
	}
	if seeded {
		log.Printf("created initial super admin, login code: %s", adminCode)
	}

	authHandler := handlers.NewAuthHandler(db, sessions, codes, ledger, sessionTTL)
	foldersHandler := handlers.NewFoldersHandler(db, sessions, ledger)
	documentsHandler := handlers.NewDocumentsHandler(db, storageClient, codes, ledger, renderer, cfg.Upload.MaxBytes)
	sharesHandler := handlers.NewSharesHandler(db, ledger)
	aiHandler := handlers.NewAIHandler(assist, ledger)
	adminHandler := handlers.NewAdminHandler(db, ledger)

	authMiddleware := middleware.NewAuthMiddleware(db, sessions)

	// Multipart framing adds overhead on top of the file itself.
	app := fiber.New(fiber.Config{BodyLimit: int(cfg.Upload.MaxBytes) + 1024*1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.FrontendURL))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	api.Post("/login", authHandler.Login)
	api.Post("/logout", authMiddleware.RequireAuth, authHandler.Logout)
	api.Get("/user", authMiddleware.RequireAuth, authHandler.Me)
	api.Post("/register", authMiddleware.RequireAuth, middleware.SuperAdminOnly, authHandler.Register)

	folderRoutes := api.Group("/folders", authMiddleware.RequireAuth)
	folderRoutes.Post("/", foldersHandler.Create)
	folderRoutes.Get("/", foldersHandler.List)
	folderRoutes.Get("/:id", foldersHandler.Get)
	folderRoutes.Post("/:id/verify-access", foldersHandler.VerifyAccess)
	folderRoutes.Get("/:id/documents", foldersHandler.ListDocuments)

	documentRoutes := api.Group("/documents", authMiddleware.RequireAuth)
	documentRoutes.Post("/upload", documentsHandler.Upload)
	documentRoutes.Post("/create", documentsHandler.CreateFromTemplate)
	documentRoutes.Get("/", documentsHandler.List)
	documentRoutes.Get("/stats", documentsHandler.Stats)
	documentRoutes.Get("/shared/with-me", sharesHandler.SharedWithMe)
	documentRoutes.Get("/:id/download/pdf", documentsHandler.DownloadPDF)
	documentRoutes.Get("/:id/download", documentsHandler.Download)
	documentRoutes.Post("/:id/export-pdf", documentsHandler.ExportPDF)
	documentRoutes.Post("/:id/share", sharesHandler.Share)
	documentRoutes.Put("/:id/update", documentsHandler.UpdateFile)
	documentRoutes.Put("/:id/content", documentsHandler.UpdateContent)
	documentRoutes.Get("/:id", documentsHandler.Get)
	documentRoutes.Delete("/:id", documentsHandler.Delete)

	api.Delete("/shares/:id", authMiddleware.RequireAuth, sharesHandler.Revoke)

	aiRoutes := api.Group("/ai", authMiddleware.RequireAuth)
	aiRoutes.Post("/generate-template", aiHandler.GenerateTemplate)
	aiRoutes.Post("/research", aiHandler.Research)
	aiRoutes.Post("/improve-content", aiHandler.ImproveContent)

	adminRoutes := api.Group("/admin", authMiddleware.RequireAuth, middleware.SuperAdminOnly)
	adminRoutes.Get("/users", adminHandler.ListUsers)
	adminRoutes.Patch("/users/:id", adminHandler.UpdateUser)
	adminRoutes.Get("/activity-logs", adminHandler.ActivityLogs)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
