package whois

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davmora/siteforge/internal/sitegen"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func TestCheckAvailabilityAvailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("apikey"))
		require.Equal(t, "eldiario.news", r.URL.Query().Get("domain"))
		w.Write([]byte(`{"result":"available"}`))
	})

	got, err := client.CheckAvailability(context.Background(), "eldiario.news")
	require.NoError(t, err)
	require.Equal(t, sitegen.DomainAvailable, got)
}

func TestCheckAvailabilityRegistered(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"result":"registered"}`))
	})

	got, err := client.CheckAvailability(context.Background(), "google.com")
	require.NoError(t, err)
	require.Equal(t, sitegen.DomainUnavailable, got)
}

func TestCheckAvailabilityRateLimitIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	got, err := client.CheckAvailability(context.Background(), "eldiario.news")
	require.Equal(t, sitegen.DomainUnknown, got)
	require.Error(t, err)
	require.True(t, sitegen.IsTransientProvider(err))
}

func TestCheckAvailabilityClientErrorIsPermanent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	got, err := client.CheckAvailability(context.Background(), "eldiario.news")
	require.Equal(t, sitegen.DomainUnknown, got)
	require.Error(t, err)
	require.False(t, sitegen.IsTransientProvider(err))
}
