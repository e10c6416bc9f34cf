package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/kurvcrm/kurv/internal/logger"
)

type routes func(e *echo.Echo)

func (r routes) Register(e *echo.Echo) { r(e) }

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestErrorHandlerRendersEnvelope(t *testing.T) {
	srv := NewServer(logger.Nop(), Options{}, routes(func(e *echo.Echo) {
		e.GET("/bad", func(c echo.Context) error {
			return echo.NewHTTPError(http.StatusBadRequest, "'to' is required")
		})
		e.GET("/boom", func(c echo.Context) error {
			return errors.New("pq: connection refused")
		})
	}))

	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bad", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["ok"] != false || body["error"] != "'to' is required" {
		t.Fatalf("unexpected body %#v", body)
	}

	rec = httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body = decodeEnvelope(t, rec)
	if strings.Contains(body["error"].(string), "pq:") {
		t.Fatalf("internal error leaked: %#v", body)
	}

	rec = httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound || decodeEnvelope(t, rec)["ok"] != false {
		t.Fatalf("expected 404 envelope, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestBodyLimit(t *testing.T) {
	srv := NewServer(logger.Nop(), Options{}, routes(func(e *echo.Echo) {
		e.POST("/echo", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	}))
	big := strings.Repeat("a", 2<<20)
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(big))
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	srv := NewServer(logger.Nop(), Options{RateLimit: 0.5}, routes(func(e *echo.Echo) {
		e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	}))
	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK {
		t.Fatalf("first request should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected burst to be exhausted, got %v", codes)
	}
}

func TestValidatorNamesJSONField(t *testing.T) {
	type req struct {
		To   string `json:"to" validate:"required"`
		Body string `json:"body" validate:"required"`
	}
	err := NewValidator().Validate(&req{Body: "hi"})
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 http error, got %v", err)
	}
	if he.Message != "'to' is required" {
		t.Fatalf("unexpected message %v", he.Message)
	}
	if err := NewValidator().Validate(&req{To: "+1", Body: "hi"}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}
