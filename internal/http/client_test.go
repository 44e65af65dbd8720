package http

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"perfkit/internal/core"
	"perfkit/internal/ratelimit"
)

func TestClient_GET(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/product-service/api/products" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("category"); got != "books" {
			t.Errorf("expected category=books, got %q", got)
		}
		w.Write([]byte(`[{"id":1}]`))
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", 5*time.Second)
	resp, err := c.Do(context.Background(), Request{
		Name:  "Browse Products - books",
		Path:  "/product-service/api/products",
		Query: url.Values{"category": {"books"}},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.OK() {
		t.Errorf("expected 2xx, got %d", resp.StatusCode)
	}
	if string(resp.Body) != `[{"id":1}]` {
		t.Errorf("unexpected body %q", resp.Body)
	}
	if resp.BytesRecv != int64(len(resp.Body)) {
		t.Errorf("expected BytesRecv %d, got %d", len(resp.Body), resp.BytesRecv)
	}
}

func TestClient_JSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body["productId"].(float64) != 42 {
			t.Errorf("unexpected body %v", body)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	resp, err := c.Do(context.Background(), Request{
		Name:   "Add to Cart",
		Method: http.MethodPost,
		Path:   "/cart-service/api/cart/add",
		JSON:   map[string]int{"productId": 42, "quantity": 1},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201, got %d", resp.StatusCode)
	}
	if resp.BytesSent == 0 {
		t.Error("expected BytesSent to count the JSON body")
	}
}

func TestClient_FormBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("grant_type") != "client_credentials" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/token",
		Form:   url.Values{"grant_type": {"client_credentials"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_HTTPErrorIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	resp, err := c.Do(context.Background(), Request{Path: "/"})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.OK() {
		t.Error("401 must not be OK")
	}
	if resp.Status != "401 Unauthorized" {
		t.Errorf("unexpected status %q", resp.Status)
	}
}

func TestClient_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	c := NewClient(addr, time.Second)
	_, err := c.Do(context.Background(), Request{Path: "/"})

	if err == nil {
		t.Fatal("expected error")
	}
	if !IsTransportError(err) {
		t.Errorf("expected a transport error, got %v", err)
	}
}

func TestClient_Headers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "perfkit-test" {
			t.Errorf("unexpected User-Agent %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer abc" {
			t.Errorf("unexpected Authorization %q", got)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, WithBearer(func(context.Context) (string, error) {
		return "abc", nil
	}))
	if _, err := c.Do(context.Background(), Request{
		Path:    "/",
		Headers: map[string]string{"User-Agent": "perfkit-test"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_TransportNegotiatesGzip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept-Encoding"); !strings.Contains(got, "gzip") {
			t.Errorf("expected gzip in Accept-Encoding, got %q", got)
		}
		w.Header().Set("Content-Encoding", "gzip")
		zw := gzip.NewWriter(w)
		zw.Write([]byte(`{"token":"zipped"}`))
		zw.Close()
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	resp, err := c.Do(context.Background(), Request{Path: "/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Body) != `{"token":"zipped"}` {
		t.Errorf("expected decompressed body, got %q", resp.Body)
	}
}

func TestClient_BearerError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	errDenied := errors.New("denied")
	c := NewClient(server.URL, 5*time.Second,
		WithRetry(RetryPolicy{MaxRetries: 3}),
		WithBearer(func(context.Context) (string, error) { return "", errDenied }),
	)
	_, err := c.Do(context.Background(), Request{Path: "/"})

	if !errors.Is(err, errDenied) {
		t.Errorf("expected token error, got %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("expected no requests without a token, got %d", hits.Load())
	}
}

func TestClient_RetriesRetryableStatus(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"a":1}` {
			t.Errorf("attempt %d got body %q", hits.Load()+1, body)
		}
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	clock := core.NewFakeClock(time.Unix(0, 0))
	c := NewClient(server.URL, 5*time.Second,
		WithRetry(RetryPolicy{MaxRetries: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}),
		WithClock(clock),
	)
	resp, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/", JSON: map[string]int{"a": 1}})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected final 200, got %d", resp.StatusCode)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", hits.Load())
	}
	// 100ms then 200ms
	if clock.Slept() != 300*time.Millisecond {
		t.Errorf("expected 300ms of backoff, got %v", clock.Slept())
	}
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second,
		WithRetry(RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}),
		WithClock(core.NewFakeClock(time.Unix(0, 0))),
	)
	resp, err := c.Do(context.Background(), Request{Path: "/"})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", resp.StatusCode)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 1 attempt + 2 retries, got %d", hits.Load())
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, WithRetry(RetryPolicy{MaxRetries: 3}))
	c.Do(context.Background(), Request{Path: "/"})

	if hits.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", hits.Load())
	}
}

func TestClient_InjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	var traceparent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
	}))
	defer server.Close()

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "visit_homepage")
	defer span.End()

	c := NewClient(server.URL, 5*time.Second)
	if _, err := c.Do(ctx, Request{Path: "/"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(traceparent, span.SpanContext().TraceID().String()) {
		t.Errorf("expected traceparent with trace id %s, got %q", span.SpanContext().TraceID(), traceparent)
	}
}

func TestClient_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, WithRateLimiter(ratelimit.NewRateLimiter(20)))

	start := time.Now()
	for i := 0; i < 40; i++ {
		if _, err := c.Do(context.Background(), Request{Path: "/"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// burst of 20, then 20 more at 20/s
	if elapsed := time.Since(start); elapsed < 800*time.Millisecond {
		t.Errorf("expected rate limiting to take ~1s, took %v", elapsed)
	}
}

func TestClient_DebugOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.URL, 5*time.Second, WithDebug(NewDebugLogger(&buf)))
	ctx := core.ContextWithActorID(context.Background(), 7)
	c.Do(ctx, Request{Name: "Homepage", Path: "/"})

	if !strings.Contains(buf.String(), "[User 7] >>> Homepage") {
		t.Errorf("expected request dump, got: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "[User 7] <<< Homepage") {
		t.Errorf("expected response dump, got: %s", buf.String())
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(server.URL, 5*time.Second, WithRetry(RetryPolicy{MaxRetries: 5}))
	_, err := c.Do(ctx, Request{Path: "/"})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{MaxRetries: 5, BaseDelay: 500 * time.Millisecond, MaxDelay: 2 * time.Second}
	b := p.newBackOff(context.Background())

	want := []time.Duration{
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		2 * time.Second,
		2 * time.Second,
		backoff.Stop,
	}
	for i, w := range want {
		if got := b.NextBackOff(); got != w {
			t.Errorf("delay %d = %v, want %v", i, got, w)
		}
	}
}

func TestRetryPolicy_ZeroValueNeverRetries(t *testing.T) {
	b := RetryPolicy{}.newBackOff(context.Background())
	if got := b.NextBackOff(); got != backoff.Stop {
		t.Errorf("expected Stop, got %v", got)
	}
}

func TestRetryPolicy_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := DefaultRetryPolicy(3).newBackOff(ctx)
	if got := b.NextBackOff(); got != 500*time.Millisecond {
		t.Fatalf("first delay = %v, want 500ms", got)
	}
	cancel()
	if got := b.NextBackOff(); got != backoff.Stop {
		t.Errorf("expected Stop after cancel, got %v", got)
	}
}

func TestClient_RetriesTransportErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	clock := core.NewFakeClock(time.Unix(0, 0))
	c := NewClient(addr, time.Second,
		WithRetry(RetryPolicy{MaxRetries: 2, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second}),
		WithClock(clock),
	)
	_, err := c.Do(context.Background(), Request{Path: "/"})

	if err == nil {
		t.Fatal("expected an error from a closed server")
	}
	// 10ms then 20ms
	if clock.Slept() != 30*time.Millisecond {
		t.Errorf("expected 30ms of backoff, got %v", clock.Slept())
	}
}

func TestIsRetryableStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !IsRetryableStatus(code) {
			t.Errorf("%d should be retryable", code)
		}
	}
	for _, code := range []int{200, 400, 401, 404, 501} {
		if IsRetryableStatus(code) {
			t.Errorf("%d should not be retryable", code)
		}
	}
}
