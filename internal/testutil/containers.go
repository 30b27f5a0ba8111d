package testutil

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RedisEndpoint is the address of a started Redis container.
type RedisEndpoint struct {
	Host string
	Port int
}

// StartRedis starts a Redis container for integration testing. The container
// is terminated when the test finishes.
func StartRedis(t *testing.T) RedisEndpoint {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container := start(t, ctx, req)

	host, port := endpoint(t, ctx, container, "6379")
	return RedisEndpoint{Host: host, Port: port}
}

// StartPostgres starts a Postgres container and returns its connection URL.
func StartPostgres(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "coly",
			"POSTGRES_PASSWORD": "coly",
			"POSTGRES_DB":       "coly",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container := start(t, ctx, req)

	host, port := endpoint(t, ctx, container, "5432")
	return fmt.Sprintf("postgres://coly:coly@%s:%d/coly?sslmode=disable", host, port)
}

func start(t *testing.T, ctx context.Context, req testcontainers.ContainerRequest) testcontainers.Container {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start %s container: %v", req.Image, err)
	}

	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate %s container: %v", req.Image, err)
		}
	})

	return container
}

func endpoint(t *testing.T, ctx context.Context, container testcontainers.Container, port nat.Port) (string, int) {
	t.Helper()

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	p, err := strconv.Atoi(mapped.Port())
	if err != nil {
		t.Fatalf("Invalid mapped port %q: %v", mapped.Port(), err)
	}

	return host, p
}
