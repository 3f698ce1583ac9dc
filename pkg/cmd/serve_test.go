package cmd

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/eztransfer/signaling/pkg/history"
	"github.com/eztransfer/signaling/pkg/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerSettings(t *testing.T) {
	// when
	open, openErr := serverSettings("https://a.example, https://b.example", "", "")
	protected, protectedErr := serverSettings("", "admin", "hunter2")
	_, halfErr := serverSettings("", "admin", "")

	// then
	require.NoError(t, openErr)
	assert.False(t, open.BasicAuthEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, open.AllowedOrigins)
	require.NoError(t, protectedErr)
	assert.True(t, protected.BasicAuthEnabled)
	assert.Equal(t, "admin", protected.BasicAuthUsername)
	assert.Equal(t, "hunter2", protected.BasicAuthPassword)
	assert.Error(t, halfErr)
}

func TestOpenHistoryPersistsToBolt(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "history.db")
	storage, openErr := openHistory(path, 10)
	require.NoError(t, openErr)
	require.NoError(t, storage.Store(history.Record{Code: "123456"}))
	require.NoError(t, storage.Close())

	// when
	reopened, reopenErr := openHistory(path, 10)
	require.NoError(t, reopenErr)
	defer reopened.Close()
	records, listErr := reopened.List(0)

	// then
	require.NoError(t, listErr)
	require.Len(t, records, 1)
	assert.Equal(t, "123456", records[0].Code)
}

func TestServeUntilDoneStopsOnCancel(t *testing.T) {
	// given
	ctx, cancel := context.WithCancel(context.Background())
	server := &http.Server{Addr: "127.0.0.1:0", ReadHeaderTimeout: time.Second}
	manager := relay.NewManager(relay.NewHub())
	done := make(chan error, 1)

	// when
	go func() { done <- serveUntilDone(ctx, server, manager, history.NewInMemoryStorage(1)) }()
	cancel()

	// then
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * shutdownTimeout):
		t.Fatal("server did not stop")
	}
}

func TestServeUntilDoneReportsListenErrors(t *testing.T) {
	// given
	server := &http.Server{Addr: "127.0.0.1:-1", ReadHeaderTimeout: time.Second}

	// when
	err := serveUntilDone(context.Background(), server, relay.NewManager(relay.NewHub()), history.NewInMemoryStorage(1))

	// then
	assert.ErrorContains(t, err, "signaling server failed")
}
