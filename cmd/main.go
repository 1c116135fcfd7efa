package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"docvault/internal/auth"
	"docvault/internal/config"
	"docvault/internal/handler"
	"docvault/internal/repository"
	"docvault/internal/service"
	"docvault/internal/service/kms"
	"docvault/internal/service/s3"
)

func connectWithRetry(cfg *config.Config, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	dsn := cfg.Database.GetDSN()

	// Сначала подключаемся к системной базе postgres
	pgDSN := strings.Replace(dsn, "dbname="+cfg.Database.Name, "dbname=postgres", 1)
	pgDB, err := sqlx.Connect("postgres", pgDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres database: %v", err)
	}
	defer pgDB.Close()

	// Проверяем, существует ли база данных
	var exists bool
	err = pgDB.Get(&exists, "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)", cfg.Database.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %v", err)
	}

	if !exists {
		log.Printf("Database %s does not exist, creating...", cfg.Database.Name)
		_, err = pgDB.Exec(fmt.Sprintf("CREATE DATABASE %s", cfg.Database.Name))
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	var db *sqlx.DB
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxAttempts, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %v", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	databaseURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", databaseURL)
		if err == nil {
			break
		}
		log.Printf("Failed to create migrate instance (attempt %d/5): %v", i+1, err)
		time.Sleep(time.Second * 5)
	}

	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Printf("Found dirty database state at version %d, attempting to force version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func main() {
	// Загружаем конфигурации
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := connectWithRetry(appConfig, 5, time.Second*5)
	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}
	defer db.Close()

	if err := runMigrations(appConfig); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Инициализация S3 клиента для шифртекстов
	s3Config, err := s3.NewConfig(".s3.env")
	if err != nil {
		log.Fatalf("Failed to load S3 config: %v", err)
	}

	s3Client, err := s3.NewClient(s3Config)
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	// Инициализация KMS клиента
	kmsConfig, err := kms.NewConfig(".kms.env")
	if err != nil {
		log.Fatalf("Failed to load KMS config: %v", err)
	}

	kmsClient, err := kms.NewClient(kmsConfig)
	if err != nil {
		log.Fatalf("Failed to create KMS client: %v", err)
	}

	// Инициализация репозиториев
	subjectRepo := repository.NewSubjectRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	folderRepo := repository.NewFolderRepository(db)
	grantRepo := repository.NewGrantRepository(db)
	requestRepo := repository.NewAccessRequestRepository(db)
	shareLinkRepo := repository.NewShareLinkRepository(db)
	encryptionRepo := repository.NewEncryptionRepository(db)

	// Инициализация сервисов
	permissionService := service.NewPermissionService(subjectRepo, documentRepo, folderRepo, grantRepo)
	grantService := service.NewGrantService(grantRepo, permissionService)
	requestService := service.NewAccessRequestService(requestRepo, permissionService)
	shareLinkService := service.NewShareLinkService(shareLinkRepo, documentRepo, permissionService)
	encryptionService := service.NewEncryptionService(kmsClient, encryptionRepo)
	folderService := service.NewFolderService(folderRepo, permissionService)
	documentService := service.NewDocumentService(documentRepo, folderRepo, permissionService, encryptionService, s3Client)

	// Инициализация хендлеров
	documentHandler := handler.NewDocumentHandler(documentService, permissionService)
	folderHandler := handler.NewFolderHandler(folderService, permissionService)
	grantHandler := handler.NewGrantHandler(grantService)
	requestHandler := handler.NewAccessRequestHandler(requestService)
	shareLinkHandler := handler.NewShareLinkHandler(shareLinkService, documentService)

	// Настройка HTTP роутера
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// HTTP маршруты
	r.Route("/v1", func(r chi.Router) {
		// Анонимные маршруты share-ссылок: auth middleware не стоит
		r.Route("/share-links/token/{token}", func(r chi.Router) {
			r.Post("/redeem", shareLinkHandler.Redeem)
			r.Post("/content", shareLinkHandler.RedeemContent)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(subjectRepo))

			r.Route("/documents", func(r chi.Router) {
				r.Get("/", documentHandler.List)
				r.Post("/", documentHandler.Upload)

				r.Route("/{uuid}", func(r chi.Router) {
					r.Get("/", documentHandler.Download)
					r.Put("/content", documentHandler.UploadVersion)
					r.Delete("/", documentHandler.Delete)
				})
			})

			r.Route("/folders", func(r chi.Router) {
				r.Get("/", folderHandler.List)
				r.Post("/", folderHandler.Create)
				r.Put("/{id}/move", folderHandler.Move)
				r.Delete("/{id}", folderHandler.Delete)
			})

			r.Route("/grants", func(r chi.Router) {
				r.Post("/documents", grantHandler.CreateDocumentGrant)
				r.Delete("/documents/{id}", grantHandler.RevokeDocumentGrant)
				r.Post("/folders", grantHandler.CreateFolderGrant)
				r.Delete("/folders/{id}", grantHandler.DeleteFolderGrant)
			})

			r.Route("/access-requests", func(r chi.Router) {
				r.Post("/", requestHandler.Submit)
				r.Get("/pending", requestHandler.ListPending)
				r.Get("/mine", requestHandler.ListMine)
				r.Post("/{id}/approve", requestHandler.Approve)
				r.Post("/{id}/deny", requestHandler.Deny)
			})

			r.Route("/share-links", func(r chi.Router) {
				r.Post("/", shareLinkHandler.Issue)
				r.Delete("/token/{token}", shareLinkHandler.Deactivate)
			})
		})
	})

	// Создаем HTTP сервер
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	// Канал для сигналов завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting HTTP server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server forced to shutdown: %v", err)
	}

	if err := db.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	}

	log.Println("Server exited properly")
}
