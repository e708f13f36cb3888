package relay

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/errors"
	"github.com/listenupapp/marginalia/internal/exchange"
	"github.com/listenupapp/marginalia/internal/library"
)

func startRelay(t *testing.T, cfg Config) *Client {
	t.Helper()
	ts := setupTestServer(t, cfg)
	httpServer := httptest.NewServer(ts.Server)
	t.Cleanup(httpServer.Close)
	return NewClient(httpServer.URL+"/", httpServer.Client(), nil)
}

func TestClient_PublishFetch(t *testing.T) {
	ctx := context.Background()
	client := startRelay(t, Config{})

	snap := domain.NewSnapshot("device-1", "ABCDEF")
	snap.Books = append(snap.Books, *domain.NewBook("book-1", domain.BookInput{Title: "Dune"}, testNow))
	require.NoError(t, client.Publish(ctx, "ABCDEF", &domain.Payload{Data: *snap, Timestamp: testNow, DeviceID: "device-1"}))

	p, ok, err := client.Fetch(ctx, "ABCDEF")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "device-1", p.DeviceID)
	assert.True(t, testNow.Equal(p.Timestamp))
	require.Len(t, p.Data.Books, 1)
	assert.Equal(t, "Dune", p.Data.Books[0].Title)
}

func TestClient_FetchMissing(t *testing.T) {
	client := startRelay(t, Config{})

	p, ok, err := client.Fetch(context.Background(), "ZZZZZZ")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, p)
}

func TestClient_ErrorsCarryRelayCode(t *testing.T) {
	client := startRelay(t, Config{})

	_, _, err := client.Fetch(context.Background(), "bad")

	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestClient_PublishTooLarge(t *testing.T) {
	client := startRelay(t, Config{MaxPayload: 128})

	snap := domain.NewSnapshot("device-1", "ABCDEF")
	err := client.Publish(context.Background(), "ABCDEF", &domain.Payload{Data: *snap, Timestamp: testNow})

	assert.ErrorIs(t, err, errors.ErrTooLarge)
}

func TestClient_EngineRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := startRelay(t, Config{})

	libA, err := library.Open(ctx, library.Config{})
	require.NoError(t, err)
	libB, err := library.Open(ctx, library.Config{})
	require.NoError(t, err)

	_, err = libA.CreateBook(ctx, domain.BookInput{Title: "From A"})
	require.NoError(t, err)
	_, err = libB.CreateBook(ctx, domain.BookInput{Title: "From B"})
	require.NoError(t, err)

	code, err := exchange.NewEngine(libA, client, nil, nil).Export(ctx)
	require.NoError(t, err)

	res, err := exchange.NewEngine(libB, client, nil, nil).Pull(ctx, code)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, 2, res.After.Books)

	var titles []string
	for _, b := range libB.ListBooks() {
		titles = append(titles, b.Title)
	}
	assert.ElementsMatch(t, []string{"From A", "From B"}, titles)
	assert.WithinDuration(t, time.Now(), *libB.SyncState().LastSyncAt, time.Minute)
}
