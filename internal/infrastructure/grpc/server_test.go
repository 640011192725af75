package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/wekeepgrowing/resume-billing/internal/config"
)

func startServer(t *testing.T, ready ReadinessCheck) healthpb.HealthClient {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := NewServer(&config.Config{}, zap.NewNop(), ready)
	go server.Serve(listener)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	})

	conn, err := grpc.NewClient(listener.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func waitForStatus(t *testing.T, client healthpb.HealthClient, service string, want healthpb.HealthCheckResponse_ServingStatus) {
	t.Helper()
	assert.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		return err == nil && resp.Status == want
	}, 3*time.Second, 20*time.Millisecond)
}

func TestServer_HealthServingWhenReady(t *testing.T) {
	client := startServer(t, func(context.Context) error { return nil })

	waitForStatus(t, client, "", healthpb.HealthCheckResponse_SERVING)
	waitForStatus(t, client, ServiceName, healthpb.HealthCheckResponse_SERVING)
}

func TestServer_HealthNotServingWhenDatabaseDown(t *testing.T) {
	client := startServer(t, func(context.Context) error { return errors.New("database unreachable") })

	waitForStatus(t, client, ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
}
