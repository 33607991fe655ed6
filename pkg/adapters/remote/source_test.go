package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepwise/pkg/adapters/remote"
)

func TestSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/survey.json":
			assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"title":"Remote"}`))
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		case "/slow":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := remote.NewSource(remote.WithHeader("Authorization", "Bearer token"))
	ctx := context.Background()

	data, err := src.Fetch(ctx, srv.URL+"/survey.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Remote"}`, string(data))

	_, err = src.Fetch(ctx, srv.URL+"/missing")
	assert.ErrorContains(t, err, "unexpected status")

	_, err = remote.NewSource(remote.WithMaxBytes(16)).Fetch(ctx, srv.URL+"/big")
	assert.ErrorContains(t, err, "exceeds")

	_, err = remote.NewSource(remote.WithTimeout(50*time.Millisecond)).Fetch(ctx, srv.URL+"/slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
