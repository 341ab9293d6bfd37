package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-event-registration/internal/config"
	"github.com/sanosuguru/go-event-registration/internal/worker"
)

func TestNewApp_Memory(t *testing.T) {
	a, err := newApp(memoryConfig())
	require.NoError(t, err)
	defer a.Close()

	svc := a.services()
	assert.NotNil(t, svc.Events)
	assert.NotNil(t, svc.Registrations)
	assert.NotNil(t, svc.Teams)
	assert.NotNil(t, svc.Feedback)
	assert.IsType(t, worker.LogPublisher{}, a.publisher)
	// メモリストアでRedisも無効なら確認対象の依存先はない
	assert.Empty(t, a.checks)
}

func TestNewApp_UnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.App.StoreDriver = config.StoreDriver("sqlite")

	_, err := newApp(cfg)
	assert.Error(t, err)
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := memoryConfig()
	cfg.Server = config.ServerConfig{Port: "0", ReadTimeout: time.Second, WriteTimeout: time.Second}
	cfg.Worker = config.WorkerConfig{RelayInterval: 10 * time.Millisecond, BatchSize: 10}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
