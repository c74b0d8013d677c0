// Package testutil starts the Postgres and S3-compatible containers that
// integration tests need for search history and query archiving.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cloo-solutions/vsearch/internal/database"
	"github.com/cloo-solutions/vsearch/internal/storage"
	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage = "postgres:18-alpine"
	rustfsImage   = "rustfs/rustfs:latest"

	dbCredential = "vsearch"
	s3Credential = "rustfsadmin"
)

// historyTables are emptied between tests, children before parents.
var historyTables = []string{"search_logs"}

// PostgresContainer represents a PostgreSQL container for testing
type PostgresContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

// NewPostgresContainer starts Postgres with a vsearch user and database.
func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	t.Helper()

	container, host, port := start(ctx, t, testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     dbCredential,
			"POSTGRES_PASSWORD": dbCredential,
			"POSTGRES_DB":       dbCredential,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(60 * time.Second),
	}, "5432")

	return &PostgresContainer{Container: container, Host: host, Port: port}
}

func (pc *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbCredential, dbCredential, pc.Host, pc.Port, dbCredential)
}

func (pc *PostgresContainer) Terminate(ctx context.Context) error {
	return pc.Container.Terminate(ctx)
}

// RustFSContainer is an S3-compatible store for archived query images.
type RustFSContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

func NewRustFSContainer(ctx context.Context, t *testing.T) *RustFSContainer {
	t.Helper()

	container, host, port := start(ctx, t, testcontainers.ContainerRequest{
		Image:        rustfsImage,
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": s3Credential,
			"RUSTFS_SECRET_KEY": s3Credential,
		},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(30 * time.Second),
	}, "9000")

	return &RustFSContainer{Container: container, Host: host, Port: port}
}

func (rc *RustFSContainer) Endpoint() string {
	return fmt.Sprintf("http://%s:%s", rc.Host, rc.Port)
}

// ClientConfig returns settings for a storage client pointed at bucket.
func (rc *RustFSContainer) ClientConfig(bucket string) storage.S3ClientConfig {
	return storage.S3ClientConfig{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     s3Credential,
		SecretAccessKey: s3Credential,
		Bucket:          bucket,
		UsePathStyle:    true,
	}
}

// NewArchive returns a storage client for a fresh bucket.
func (rc *RustFSContainer) NewArchive(ctx context.Context, t *testing.T, bucket string) *storage.S3Client {
	t.Helper()

	client, err := storage.NewS3Client(ctx, rc.ClientConfig(bucket))
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket %s: %v", bucket, err)
	}
	return client
}

func (rc *RustFSContainer) Terminate(ctx context.Context) error {
	return rc.Container.Terminate(ctx)
}

func start(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest, port string) (testcontainers.Container, string, string) {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start %s: %v", req.Image, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get %s host: %v", req.Image, err)
	}
	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		t.Fatalf("failed to get %s port: %v", req.Image, err)
	}
	return container, host, mapped.Port()
}

// NewTestPool connects to pc and applies the migrations in migrationsDir
// the same way vsearchd does on startup.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	pool, err := database.NewPool(ctx, database.Config{
		URL:             pc.ConnectionString(),
		ApplicationName: "vsearch-tests",
		PingAttempts:    5,
	})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if _, err := database.Migrate(pc.ConnectionString(), migrationsDir); err != nil {
		pool.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	return pool
}

// TruncateAll empties the history tables between tests.
func TruncateAll(ctx context.Context, pool *pgxpool.Pool) error {
	for _, table := range historyTables {
		if _, err := pool.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	return nil
}
