package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railclaim/pkg/requestcontext"
)

type observed struct {
	route  string
	method string
	status int
}

type recordingObserver struct {
	calls []observed
}

func (o *recordingObserver) ObserveRequest(route, method string, status int, _ time.Duration) {
	o.calls = append(o.calls, observed{route, method, status})
}

func TestClientKind(t *testing.T) {
	tests := []struct {
		ua   string
		want string
	}{
		{"", ClientAPI},
		{"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", ClientBot},
		{"Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0", ClientBrowser},
		{"railclaim-cli/1.0", ClientAPI},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClientKind(tt.ua), tt.ua)
	}
}

func TestClientIPFromRequest(t *testing.T) {
	t.Run("forwarded for takes the first hop", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		assert.Equal(t, "203.0.113.7", ClientIPFromRequest(r))
	})

	t.Run("real ip header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Real-IP", " 198.51.100.2 ")
		assert.Equal(t, "198.51.100.2", ClientIPFromRequest(r))
	})

	t.Run("remote addr without port", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "[::1]:5555"
		assert.Equal(t, "::1", ClientIPFromRequest(r))
	})
}

func TestChainPopulatesRequestContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	obs := &recordingObserver{}

	r := chi.NewRouter()
	r.Use(chimw.RequestID, RequestID, ClientMetadata, RequestTime, AccessLog(logger, obs))

	var gotID, gotIP, gotKind string
	var gotTime time.Time
	r.Get("/v1/evaluations/{id}", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		gotID = requestcontext.RequestID(ctx)
		gotIP = requestcontext.ClientIP(ctx)
		gotKind = requestcontext.ClientKind(ctx)
		gotTime = requestcontext.Now(ctx)
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/evaluations/abc", nil)
	req.Header.Set("X-Request-Id", "req-42")
	req.Header.Set("X-Real-IP", "192.0.2.10")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "req-42", gotID)
	assert.Equal(t, "req-42", rr.Header().Get(chimw.RequestIDHeader))
	assert.Equal(t, "192.0.2.10", gotIP)
	assert.Equal(t, ClientAPI, gotKind)
	assert.WithinDuration(t, time.Now(), gotTime, time.Minute)

	require.Len(t, obs.calls, 1)
	assert.Equal(t, observed{"/v1/evaluations/{id}", http.MethodGet, http.StatusNotFound}, obs.calls[0])

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "http request", line["msg"])
	assert.Equal(t, "req-42", line["request_id"])
	assert.Equal(t, "/v1/evaluations/{id}", line["route"])
}

func TestAccessLogDefaultsStatus(t *testing.T) {
	obs := &recordingObserver{}
	r := chi.NewRouter()
	r.Use(AccessLog(slog.New(slog.DiscardHandler), obs))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Len(t, obs.calls, 1)
	assert.Equal(t, http.StatusOK, obs.calls[0].status)
}
