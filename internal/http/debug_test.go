package http

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestDebugLogger_LogRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDebugLogger(&buf)

	req, _ := http.NewRequest("POST", "http://shop.local/user-service/api/users/login", strings.NewReader(`{"email":"a@b.c"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer token123")

	logger.LogRequest(1, "User Login", req)

	output := buf.String()

	if !strings.Contains(output, "[User 1]") {
		t.Errorf("expected user ID in output, got: %s", output)
	}
	if !strings.Contains(output, "User Login") {
		t.Errorf("expected request name in output, got: %s", output)
	}
	if !strings.Contains(output, "POST http://shop.local/user-service/api/users/login") {
		t.Errorf("expected method and URL in output, got: %s", output)
	}
	if !strings.Contains(output, "Content-Type") {
		t.Errorf("expected Content-Type header in output, got: %s", output)
	}
	if !strings.Contains(output, `{"email":"a@b.c"}`) {
		t.Errorf("expected body in output, got: %s", output)
	}
}

func TestDebugLogger_RedactsAuthorization(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDebugLogger(&buf)

	req, _ := http.NewRequest("GET", "http://shop.local/cart-service/api/cart", nil)
	req.Header.Set("Authorization", "Bearer secret-token")

	logger.LogRequest(1, "View Cart", req)

	output := buf.String()
	if strings.Contains(output, "secret-token") {
		t.Errorf("token leaked into debug output: %s", output)
	}
	if !strings.Contains(output, "Bearer [redacted]") {
		t.Errorf("expected redacted bearer header, got: %s", output)
	}
}

func TestDebugLogger_RequestBodyStillReadable(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDebugLogger(&buf)

	req, _ := http.NewRequest("POST", "http://shop.local/x", strings.NewReader("payload"))
	logger.LogRequest(1, "x", req)

	body := new(bytes.Buffer)
	body.ReadFrom(req.Body)
	if body.String() != "payload" {
		t.Errorf("logging consumed the request body, got %q", body.String())
	}
}

func TestDebugLogger_LogResponse(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDebugLogger(&buf)

	resp := &http.Response{
		StatusCode: 201,
		Status:     "201 Created",
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
	body := []byte(`{"id": 123, "name": "test"}`)

	logger.LogResponse(1, "Add to Cart", resp, body, 150*time.Millisecond)

	output := buf.String()

	if !strings.Contains(output, "[User 1]") {
		t.Errorf("expected user ID in output, got: %s", output)
	}
	if !strings.Contains(output, "201 Created") {
		t.Errorf("expected status in output, got: %s", output)
	}
	if !strings.Contains(output, "150ms") {
		t.Errorf("expected duration in output, got: %s", output)
	}
	if !strings.Contains(output, `"id": 123`) {
		t.Errorf("expected response body in output, got: %s", output)
	}
}

func TestDebugLogger_LogError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDebugLogger(&buf)

	logger.LogError(1, "Homepage", "connection refused", 50*time.Millisecond)

	output := buf.String()

	for _, want := range []string{"[User 1]", "Homepage", "ERROR", "connection refused"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestDebugLogger_TruncatesLongBodies(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDebugLogger(&buf)

	longBody := strings.Repeat("x", 2000)
	req, _ := http.NewRequest("POST", "http://shop.local/api", strings.NewReader(longBody))

	logger.LogRequest(1, "test", req)

	if !strings.Contains(buf.String(), "truncated") {
		t.Errorf("expected long body to be truncated, got: %s", buf.String())
	}
}

func TestDebugLogger_NilLogger(t *testing.T) {
	var logger *DebugLogger

	// These should not panic
	req, _ := http.NewRequest("GET", "http://shop.local", nil)
	logger.LogRequest(1, "test", req)
	logger.LogResponse(1, "test", &http.Response{StatusCode: 200}, nil, time.Millisecond)
	logger.LogError(1, "test", "error", time.Millisecond)
}
