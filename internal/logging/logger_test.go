package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("Expected a log line, got nothing")
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("Log line is not JSON: %v (%s)", err, line)
	}
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warning", WARN},
		{"Error", ERROR},
		{"fatal", FATAL},
		{"nonsense", INFO},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestLoggerKeyValueFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "INFO", Component: "orders", JSONFormat: true}, &buf)

	l.WithTraceID("trace-1").Info("query done", "orders", 3, "err", errors.New("boom"))

	entry := decodeLine(t, &buf)
	if entry["message"] != "query done" {
		t.Errorf("Expected message 'query done', got %v", entry["message"])
	}
	if entry["component"] != "orders" {
		t.Errorf("Expected component 'orders', got %v", entry["component"])
	}
	if entry["trace_id"] != "trace-1" {
		t.Errorf("Expected trace_id 'trace-1', got %v", entry["trace_id"])
	}
	if entry["orders"] != float64(3) {
		t.Errorf("Expected orders=3, got %v", entry["orders"])
	}
	if entry["err"] != "boom" {
		t.Errorf("Expected err='boom', got %v", entry["err"])
	}
}

func TestLoggerPrintfStyle(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "DEBUG", JSONFormat: true}, &buf)

	l.Debug("fetched %d orders from %s", 5, "papi_um")

	entry := decodeLine(t, &buf)
	if entry["message"] != "fetched 5 orders from papi_um" {
		t.Errorf("Unexpected message %v", entry["message"])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "WARN", JSONFormat: true}, &buf)

	l.Info("hidden")
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected no output below WARN, got %s", buf.String())
	}

	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("Expected warn line, got %s", buf.String())
	}
}

func TestComponentIsNotDuplicated(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "INFO", Component: "main", JSONFormat: true}, &buf)

	l.WithComponent("okx").Info("hello")

	if strings.Count(buf.String(), `"component"`) != 1 {
		t.Errorf("Expected a single component key, got %s", buf.String())
	}
	entry := decodeLine(t, &buf)
	if entry["component"] != "okx" {
		t.Errorf("Expected component 'okx', got %v", entry["component"])
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "INFO", JSONFormat: true}, &buf).WithTraceID("abc")

	ctx := NewContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("Expected FromContext to return the stored logger")
	}
	if TraceIDFromContext(ctx) != "abc" {
		t.Errorf("Expected trace id 'abc', got %q", TraceIDFromContext(ctx))
	}
	if FromContext(context.Background()) == nil {
		t.Error("Expected default logger for empty context")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc..." {
		t.Errorf("Expected 'abc...', got %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Errorf("Expected 'abc', got %q", got)
	}
}

func TestGinMiddlewareSetsTraceHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	SetDefault(NewWithWriter(&Config{Level: "INFO", JSONFormat: true}, &buf))
	defer SetDefault(nil)

	router := gin.New()
	router.Use(GinMiddleware())
	var seen string
	router.GET("/ping", func(c *gin.Context) {
		seen = TraceIDFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(TraceHeader, "trace-from-client")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if seen != "trace-from-client" {
		t.Errorf("Expected handler to see client trace id, got %q", seen)
	}
	if w.Header().Get(TraceHeader) != "trace-from-client" {
		t.Errorf("Expected trace header echoed, got %q", w.Header().Get(TraceHeader))
	}
	if !strings.Contains(buf.String(), "Request completed") {
		t.Errorf("Expected completion log, got %s", buf.String())
	}
}
