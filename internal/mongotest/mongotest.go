//go:build integration

// Package mongotest starts a disposable MongoDB container for integration tests.
package mongotest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/hanpama/mongograph/internal/store/mongostore"
)

const image = "mongo:7"

// Start runs a MongoDB container and returns a client connected to a fresh
// database. The container is terminated when the test ends.
func Start(t *testing.T) *mongostore.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start mongodb container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate mongodb container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "27017")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	client, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      fmt.Sprintf("mongodb://%s:%s", host, port.Port()),
		Database: "mongograph_test",
		Timeout:  10 * time.Second,
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return client
}
