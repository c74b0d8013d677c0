package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/vsearch/internal/backend"
	"github.com/cloo-solutions/vsearch/internal/config"
	"github.com/cloo-solutions/vsearch/internal/controller"
	"github.com/cloo-solutions/vsearch/internal/database"
	"github.com/cloo-solutions/vsearch/internal/jobs"
	"github.com/cloo-solutions/vsearch/internal/preview"
	"github.com/cloo-solutions/vsearch/internal/repository"
	"github.com/cloo-solutions/vsearch/internal/server"
	"github.com/cloo-solutions/vsearch/internal/service"
	"github.com/cloo-solutions/vsearch/internal/session"
	"github.com/cloo-solutions/vsearch/internal/storage"
	"github.com/cloo-solutions/vsearch/internal/telemetry"
	"github.com/cloo-solutions/vsearch/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web front end",
		Long:  "Start the visual search web front end on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().String("backend", "", "Visual search backend base URL (overrides VSEARCH_BACKEND_URL)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.HasSentry() {
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: cfg.TracesSampleRate(),
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}
	if backendFlag, _ := cmd.Flags().GetString("backend"); backendFlag != "" {
		cfg.BackendURL = backendFlag
	}

	client, err := backend.NewClient(cfg.BackendURL)
	if err != nil {
		return fmt.Errorf("invalid backend URL: %w", err)
	}
	log.Printf("using search backend %s", client.BaseURL())

	var history *service.HistoryService
	if cfg.HasDatabase() {
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		log.Println("connected to database")

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			version, err := database.Migrate(cfg.DatabaseURL, database.DefaultMigrationsDir)
			if err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Printf("migrations: database at version %d", version)
		}

		archive, err := newArchiveStorage(ctx, cfg)
		if err != nil {
			return err
		}

		history = newHistoryService(pool, archive)
		log.Println("search history enabled")
	}

	previewer := preview.New(cfg.PreviewMaxDim,
		preview.WithMaxPixels(cfg.PreviewMaxPixels),
		preview.WithMaxRawBytes(cfg.PreviewMaxRawBytes))
	sessions := session.NewManager(func(sessionID string) *controller.Controller {
		opts := []controller.Option{controller.WithSessionID(sessionID)}
		if history != nil {
			opts = append(opts, controller.WithRecorder(history))
		}
		return controller.New(client, previewer, opts...)
	}, cfg.SessionTTL)

	sweeper := jobs.NewWorker("session-sweeper", sessions, cfg.SweepInterval)
	go sweeper.Start(ctx)

	var historyReader web.HistoryReader
	if history != nil {
		historyReader = history
	}

	router := server.NewRouter(server.RouterConfig{
		Sessions:     sessions,
		WebHandler:   web.NewHandler(client, historyReader),
		MaxBodyBytes: cfg.MaxUploadBytes,

		HistoryEnabled: history != nil,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func newHistoryService(pool *pgxpool.Pool, archive service.ArchiveStorage) *service.HistoryService {
	repo := repository.NewSearchLogRepository(pool)
	return service.NewHistoryService(repo, archive, &service.DefaultUUIDGenerator{})
}

// newArchiveStorage returns nil when S3 is not configured; history then keeps
// metadata only.
func newArchiveStorage(ctx context.Context, cfg *config.Config) (service.ArchiveStorage, error) {
	if !cfg.HasS3() {
		return nil, nil
	}

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,

		DownloadURLExpiry: cfg.S3URLExpiry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	log.Printf("S3 bucket '%s' ready", s3Client.Bucket())
	return &S3StorageAdapter{client: s3Client}, nil
}

// S3StorageAdapter exposes storage.S3Client as service.ArchiveStorage.
type S3StorageAdapter struct {
	client *storage.S3Client
}

func (a *S3StorageAdapter) PutObject(ctx context.Context, key string, contentType string, data []byte) error {
	return a.client.PutObject(ctx, key, contentType, data)
}

func (a *S3StorageAdapter) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	return a.client.GenerateDownloadURL(ctx, key)
}

func (a *S3StorageAdapter) HeadObject(ctx context.Context, key string) (*service.ObjectMetadata, error) {
	meta, err := a.client.HeadObject(ctx, key)
	if err != nil {
		return nil, err
	}
	return &service.ObjectMetadata{
		ContentLength: meta.ContentLength,
		ContentType:   meta.ContentType,
		ETag:          meta.ETag,
	}, nil
}
