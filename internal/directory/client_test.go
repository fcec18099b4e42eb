package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLookup_ReturnsDisplayName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/admin/users/by-email", r.URL.Path)
		require.Equal(t, "alice@x.com", r.URL.Query().Get("email"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"firstName":"Alice","lastName":"Smith"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, zap.NewNop())
	name, err := client.Lookup(context.Background(), "alice@x.com")
	require.NoError(t, err)
	require.Equal(t, DisplayName{FirstName: "Alice", LastName: "Smith"}, name)
}

func TestLookup_NotFoundReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, zap.NewNop())
	name, err := client.Lookup(context.Background(), "ghost@x.com")
	require.Error(t, err)
	require.Zero(t, name)
}

func TestLookup_TimeoutIsBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 20*time.Millisecond, zap.NewNop())
	start := time.Now()
	_, err := client.Lookup(context.Background(), "slow@x.com")
	require.Error(t, err)
	require.Less(t, time.Since(start), 150*time.Millisecond)
}
