// Package e2e_harness starts throwaway Postgres and S3 containers for end-to-end tests of
// the generation pipeline and the record store.
package e2e_harness

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	pgPassword  = "password"
	pgDatabase  = "kindgen"
	s3AccessKey = "kindgen"
	s3SecretKey = "kindgen-secret"

	startupTimeout = 30 * time.Second
)

// TestHarness holds the running containers and their connection details.
type TestHarness struct {
	PGContainer testcontainers.Container
	PGHost      string
	PGPort      int
	PGDB        *sql.DB

	S3Container testcontainers.Container
	S3Endpoint  string
}

// StartPostgres starts a postgres container and returns its DSN once it answers pings.
// Callers must call StopPostgres.
func (h *TestHarness) StartPostgres(ctx context.Context) (string, error) {
	container, host, port, err := startContainer(ctx, testcontainers.ContainerRequest{
		Image:        "postgres:16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": pgPassword,
			"POSTGRES_DB":       pgDatabase,
		},
		// The entrypoint restarts the server once after initdb.
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithStartupTimeout(startupTimeout),
	}, "5432")
	if err != nil {
		return "", err
	}
	h.PGContainer, h.PGHost, h.PGPort = container, host, port

	dsn := fmt.Sprintf("postgres://postgres:%s@%s:%d/%s?sslmode=disable", pgPassword, host, port, pgDatabase)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return "", err
	}
	if err := waitForPing(ctx, db, 20*time.Second); err != nil {
		db.Close()
		return "", err
	}
	h.PGDB = db
	return dsn, nil
}

// StopPostgres closes the DB handle and terminates the container.
func (h *TestHarness) StopPostgres(ctx context.Context) error {
	if h.PGDB != nil {
		h.PGDB.Close()
		h.PGDB = nil
	}
	err := terminate(ctx, h.PGContainer)
	h.PGContainer = nil
	return err
}

// StartS3 starts an S3-compatible object store and returns its endpoint.
func (h *TestHarness) StartS3(ctx context.Context) (string, error) {
	container, host, port, err := startContainer(ctx, testcontainers.ContainerRequest{
		Image:        "rustfs/rustfs:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": s3AccessKey,
			"RUSTFS_SECRET_KEY": s3SecretKey,
		},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(startupTimeout),
	}, "9000")
	if err != nil {
		return "", err
	}
	h.S3Container = container
	h.S3Endpoint = fmt.Sprintf("http://%s:%d", host, port)
	return h.S3Endpoint, nil
}

func (h *TestHarness) StopS3(ctx context.Context) error {
	err := terminate(ctx, h.S3Container)
	h.S3Container = nil
	return err
}

// startContainer runs req and resolves the host address of its exposed port. A container
// that started but could not be inspected is terminated before returning.
func startContainer(ctx context.Context, req testcontainers.ContainerRequest, port string) (testcontainers.Container, string, int, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", 0, fmt.Errorf("start %s: %w", req.Image, err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", 0, fmt.Errorf("resolve %s host: %w", req.Image, err)
	}
	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", 0, fmt.Errorf("resolve %s port %s: %w", req.Image, port, err)
	}
	return container, host, mapped.Int(), nil
}

func waitForPing(ctx context.Context, db *sql.DB, limit time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres did not become ready: %w", err)
		case <-ticker.C:
		}
	}
}

func terminate(ctx context.Context, container testcontainers.Container) error {
	if container == nil {
		return nil
	}
	return container.Terminate(ctx)
}
