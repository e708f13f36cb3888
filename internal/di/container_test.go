package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/marginalia/internal/config"
	"github.com/listenupapp/marginalia/internal/di/providers"
	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/exchange"
	"github.com/listenupapp/marginalia/internal/relay"
)

func testFlags(t *testing.T, backend string) config.Flags {
	t.Helper()
	return config.Flags{
		Env:      "development",
		LogLevel: "error",
		DataPath: t.TempDir(),
		Backend:  backend,
		EnvFile:  filepath.Join(t.TempDir(), "missing.env"),
	}
}

func TestBootstrap_PersistsAcrossContainers(t *testing.T) {
	for _, backend := range []string{config.BackendBadger, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			flags := testFlags(t, backend)
			ctx := context.Background()

			injector := NewContainer(flags)
			lib, err := Bootstrap(injector)
			require.NoError(t, err)

			book, err := lib.CreateBook(ctx, domain.BookInput{Title: "Dune", Author: "Frank Herbert"})
			require.NoError(t, err)
			deviceID := lib.SyncState().DeviceID
			require.NotEmpty(t, deviceID)

			handle := do.MustInvoke[*providers.StoreHandle](injector)
			assert.Equal(t, backend, handle.Kind)
			injector.Shutdown()

			reopened := NewContainer(flags)
			t.Cleanup(func() { reopened.Shutdown() })
			lib, err = Bootstrap(reopened)
			require.NoError(t, err)

			got, ok := lib.GetBook(book.ID)
			require.True(t, ok)
			assert.Equal(t, "Dune", got.Title)
			assert.Equal(t, deviceID, lib.SyncState().DeviceID)
		})
	}
}

func TestBootstrap_InvalidConfig(t *testing.T) {
	flags := testFlags(t, "postgres")

	injector := NewContainer(flags)
	t.Cleanup(func() { injector.Shutdown() })

	_, err := Bootstrap(injector)
	assert.Error(t, err)
}

func TestProvideTransport_LocalSlotsWithoutRelay(t *testing.T) {
	injector := NewContainer(testFlags(t, config.BackendBadger))
	t.Cleanup(func() { injector.Shutdown() })

	transport, err := do.Invoke[exchange.Transport](injector)
	require.NoError(t, err)
	assert.IsType(t, &exchange.SlotTransport{}, transport)
}

func TestProvideTransport_RelayClient(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(ts.Close)

	flags := testFlags(t, config.BackendBadger)
	flags.RelayURL = ts.URL

	injector := NewContainer(flags)
	t.Cleanup(func() { injector.Shutdown() })

	transport, err := do.Invoke[exchange.Transport](injector)
	require.NoError(t, err)
	assert.IsType(t, &relay.Client{}, transport)
}

func TestEngine_LocalExchangeBetweenInstalls(t *testing.T) {
	ctx := context.Background()
	flags := testFlags(t, config.BackendSQLite)

	injector := NewContainer(flags)
	t.Cleanup(func() { injector.Shutdown() })
	lib, err := Bootstrap(injector)
	require.NoError(t, err)

	_, err = lib.CreateNote(ctx, domain.NoteInput{Title: "call the library", Type: domain.NoteTypeTodo})
	require.NoError(t, err)

	engine := do.MustInvoke[*exchange.Engine](injector)
	code, err := engine.Export(ctx)
	require.NoError(t, err)

	res, err := engine.Pull(ctx, code)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, 1, res.After.Notes)
}
