package reporting

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/require"
)

func TestNewSentryWithoutDSN(t *testing.T) {
	r, flush, err := NewSentry(Config{})
	require.NoError(t, err)
	require.IsType(t, Nop{}, r)
	require.NotPanics(t, flush)

	// nop reporters accept anything
	r.Report(context.Background(), errors.New("boom"), map[string]string{"k": "v"})
}

func TestMiddlewarePassThroughForNop(t *testing.T) {
	called := false
	h := Middleware(Nop{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, called)
	require.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMiddlewareRecoversPanics(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	client, err := sentry.NewClient(sentry.ClientOptions{})
	require.NoError(t, err)
	withSentry := &Sentry{hub: sentry.NewHub(client, sentry.NewScope())}

	tests := []struct {
		name     string
		reporter Reporter
	}{
		{name: "nop", reporter: Nop{}},
		{name: "sentry", reporter: withSentry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Middleware(tt.reporter)(panicking)

			rec := httptest.NewRecorder()
			require.NotPanics(t, func() {
				h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/organizations", nil))
			})

			require.Equal(t, http.StatusInternalServerError, rec.Code)
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			require.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
		})
	}
}

func TestRecoverPropagatesAbort(t *testing.T) {
	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
