package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammed-shakir/digipin-courier/internal/core/router"
	"github.com/mohammed-shakir/digipin-courier/internal/metrics"
)

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("redis ping: connection refused") }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestHandler_Routes(t *testing.T) {
	p := metrics.Init(metrics.Config{})
	h := Handler(Options{Metrics: p.Handler()}, discard(), router.New(router.Deps{}))

	cases := []struct {
		path   string
		status int
		body   string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/readyz", http.StatusOK, `"status":"ready"`},
		{"/metrics", http.StatusOK, "app_build_info"},
		{"/api/location/digipin?latitude=28.622788&longitude=77.213033", http.StatusOK, `"digipin":"39J-49L-L8T4"`},
		{"/nope", http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rr.Code != tc.status {
			t.Fatalf("%s: status=%d want %d", tc.path, rr.Code, tc.status)
		}
		if !strings.Contains(rr.Body.String(), tc.body) {
			t.Fatalf("%s: body missing %q: %s", tc.path, tc.body, rr.Body.String())
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s: missing X-Request-ID", tc.path)
		}
	}
}

func TestHandler_NotReady(t *testing.T) {
	h := Handler(Options{Ready: downPinger{}}, discard(), router.New(router.Deps{}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", rr.Code)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ln, Options{}, discard(), router.New(router.Deps{})) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	var resp *http.Response
	for range 50 {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	_ = resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
