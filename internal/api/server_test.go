package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/container-status-poller/internal/poller"
	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

type fakeRuns struct {
	mu       sync.Mutex
	triggers int
	err      error
	last     poller.LastRun
}

func (f *fakeRuns) Trigger(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers++
	return f.err
}

func (f *fakeRuns) Last() poller.LastRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type fakeTester struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeTester) SendTest(_ context.Context, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, address)
	return f.err
}

func (f *fakeTester) addresses() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func serve(t *testing.T, s *Server, method, path string, body []byte, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func secretHeader(v string) http.Header {
	h := http.Header{}
	h.Set(WebhookSecretHeader, v)
	return h
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	s := NewServer(Config{Runs: &fakeRuns{}})
	rec := serve(t, s, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(t, s, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	ok := NewServer(Config{Runs: &fakeRuns{}, Ready: []ReadyCheck{
		{Name: "postgres", Check: func(context.Context) error { return nil }},
	}})
	require.Equal(t, http.StatusOK, serve(t, ok, http.MethodGet, "/readyz", nil, nil).Code)

	down := NewServer(Config{Runs: &fakeRuns{}, Ready: []ReadyCheck{
		{Name: "postgres", Check: func(context.Context) error { return nil }},
		{Name: "redis", Check: func(context.Context) error { return errors.New("dial tcp: refused") }},
	}})
	rec := serve(t, down, http.MethodGet, "/readyz", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "redis")
	require.NotContains(t, rec.Body.String(), "postgres")
}

func TestTriggerRun(t *testing.T) {
	t.Parallel()

	runs := &fakeRuns{}
	s := NewServer(Config{Runs: runs, WebhookSecret: "s3cret"})

	rec := serve(t, s, http.MethodPost, "/v1/runs", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = serve(t, s, http.MethodPost, "/v1/runs", nil, secretHeader("wrong"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, runs.triggers)

	rec = serve(t, s, http.MethodPost, "/v1/runs", nil, secretHeader("s3cret"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, 1, runs.triggers)

	runs.err = tracker.ErrRunInProgress
	rec = serve(t, s, http.MethodPost, "/v1/runs", nil, secretHeader("s3cret"))
	require.Equal(t, http.StatusConflict, rec.Code)

	runs.err = errors.New("boom")
	rec = serve(t, s, http.MethodPost, "/v1/runs", nil, secretHeader("s3cret"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTriggerRunWithoutConfiguredSecret(t *testing.T) {
	t.Parallel()

	runs := &fakeRuns{}
	s := NewServer(Config{Runs: runs})
	rec := serve(t, s, http.MethodPost, "/v1/runs", nil, secretHeader(""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, runs.triggers)
}

func TestLastRun(t *testing.T) {
	t.Parallel()

	sum := tracker.RunSummary{ID: "run-7", Loaded: 4, Changed: 1, StartedAt: time.Unix(100, 0).UTC()}
	runs := &fakeRuns{last: poller.LastRun{State: poller.StateCompleted, Summary: &sum}}
	s := NewServer(Config{Runs: runs})

	rec := serve(t, s, http.MethodGet, "/v1/runs/last", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got poller.LastRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, poller.StateCompleted, got.State)
	require.NotNil(t, got.Summary)
	require.Equal(t, "run-7", got.Summary.ID)
	require.Equal(t, 4, got.Summary.Loaded)
}

func TestSendTestNotification(t *testing.T) {
	t.Parallel()

	tester := &fakeTester{}
	s := NewServer(Config{Runs: &fakeRuns{}, Tester: tester, WebhookSecret: "s3cret"})

	rec := serve(t, s, http.MethodPost, "/v1/notifications/test", []byte(`{`), secretHeader("s3cret"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = serve(t, s, http.MethodPost, "/v1/notifications/test", []byte(`{"to_email":"  "}`), secretHeader("s3cret"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = serve(t, s, http.MethodPost, "/v1/notifications/test", []byte(`{"to_email":"not-an-address"}`), secretHeader("s3cret"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, s, http.MethodPost, "/v1/notifications/test", []byte(`{"to_email":"ops@example.com"}`), secretHeader("s3cret"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	s.Wait()
	require.Equal(t, []string{"ops@example.com"}, tester.addresses())
}

func TestSendTestNotificationRequiresSecret(t *testing.T) {
	t.Parallel()

	tester := &fakeTester{}
	s := NewServer(Config{Runs: &fakeRuns{}, Tester: tester, WebhookSecret: "s3cret"})
	body := []byte(`{"to_email":"victim@example.com"}`)

	rec := serve(t, s, http.MethodPost, "/v1/notifications/test", body, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = serve(t, s, http.MethodPost, "/v1/notifications/test", body, secretHeader("wrong"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	unset := NewServer(Config{Runs: &fakeRuns{}, Tester: tester})
	rec = serve(t, unset, http.MethodPost, "/v1/notifications/test", body, secretHeader(""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	s.Wait()
	unset.Wait()
	require.Empty(t, tester.addresses())
}

func TestSendTestNotificationFailureIsLoggedOnly(t *testing.T) {
	t.Parallel()

	tester := &fakeTester{err: errors.New("smtp 535")}
	s := NewServer(Config{Runs: &fakeRuns{}, Tester: tester, WebhookSecret: "s3cret"})
	rec := serve(t, s, http.MethodPost, "/v1/notifications/test", []byte(`{"to_email":"ops@example.com"}`), secretHeader("s3cret"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	s.Wait()
	require.Len(t, tester.addresses(), 1)
}

func TestSendTestNotificationUnconfigured(t *testing.T) {
	t.Parallel()

	s := NewServer(Config{Runs: &fakeRuns{}, WebhookSecret: "s3cret"})
	rec := serve(t, s, http.MethodPost, "/v1/notifications/test", []byte(`{"to_email":"ops@example.com"}`), secretHeader("s3cret"))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	s := NewServer(Config{Runs: &fakeRuns{}})
	h := s.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
