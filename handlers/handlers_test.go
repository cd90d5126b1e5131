package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ericfialkowski/shortlink/service"
	"github.com/ericfialkowski/shortlink/status"
	"github.com/ericfialkowski/shortlink/store"
	"github.com/labstack/echo/v5"
)

func setupTestHandlers() (*Handlers, *echo.Echo, store.LinkStore) {
	db := store.CreateMemoryStore()
	svc := service.NewLinkService(db, service.UnknownResolver{}, service.Config{})
	s := status.NewStatus()
	s.Ok("store reachable")
	h := CreateHandlers(svc, s, "test-id", nil)
	e := echo.New()
	h.SetUp(e)
	return &h, e, db
}

func seedLink(t *testing.T, db store.LinkStore, code string, expiresAt time.Time) {
	t.Helper()
	now := time.Now().UTC()
	err := db.Insert(t.Context(), store.LinkRecord{
		ShortCode:   code,
		OriginalURL: "https://example.com/" + code,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
		ClickEvents: []store.ClickEvent{},
	})
	if err != nil {
		t.Fatalf("seed Insert() error = %v", err)
	}
}

func TestCreateHandlers(t *testing.T) {
	h, _, _ := setupTestHandlers()

	if h.id != "test-id" {
		t.Errorf("CreateHandlers().id = %v, want %v", h.id, "test-id")
	}
}

func TestHandlers_CreateHandler_ValidURL(t *testing.T) {
	h, e, _ := setupTestHandlers()

	req := httptest.NewRequest(http.MethodPost, CreatePath, strings.NewReader(`{"url": "https://example.com/page"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.createHandler(c)
	if err != nil {
		t.Fatalf("createHandler() error = %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("createHandler() status = %v, want %v", rec.Code, http.StatusCreated)
	}

	var result createReturn
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if result.OriginalUrl != "https://example.com/page" {
		t.Errorf("createHandler() OriginalUrl = %v", result.OriginalUrl)
	}
	if result.ShortCode == "" {
		t.Error("createHandler() returned empty shortcode")
	}
	if !strings.HasSuffix(result.ShortUrl, "/"+result.ShortCode) {
		t.Errorf("createHandler() ShortUrl = %v does not end with the shortcode", result.ShortUrl)
	}
	if result.IsCustom {
		t.Error("createHandler() IsCustom = true without a custom shortcode")
	}
	if !result.ExpiresAt.After(time.Now()) {
		t.Errorf("createHandler() ExpiresAt = %v is not in the future", result.ExpiresAt)
	}
}

func TestHandlers_CreateHandler_CustomShortcode(t *testing.T) {
	h, e, _ := setupTestHandlers()

	req := httptest.NewRequest(http.MethodPost, CreatePath, strings.NewReader(`{"url": "https://example.com/page", "shortcode": "mylink1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.createHandler(c); err != nil {
		t.Fatalf("createHandler() error = %v", err)
	}

	var result createReturn
	_ = json.Unmarshal(rec.Body.Bytes(), &result)

	if result.ShortCode != "mylink1" {
		t.Errorf("createHandler() ShortCode = %v, want mylink1", result.ShortCode)
	}
	if !result.IsCustom {
		t.Error("createHandler() IsCustom = false for a custom shortcode")
	}
}

func TestHandlers_CreateHandler_BadRequests(t *testing.T) {
	h, e, _ := setupTestHandlers()

	testCases := []struct {
		name    string
		body    string
		message string
	}{
		{"empty url", `{"url": ""}`, "URL is required"},
		{"no scheme", `{"url": "example.com"}`, "Invalid URL format"},
		{"no host", `{"url": "https://"}`, "Invalid URL format"},
		{"invalid format", `{"url": "not-a-url"}`, "Invalid URL format"},
		{"zero validity", `{"url": "https://example.com", "validity": 0}`, "Validity must be a positive number"},
		{"negative validity", `{"url": "https://example.com", "validity": -5}`, "Validity must be a positive number"},
		{"shortcode too short", `{"url": "https://example.com", "shortcode": "ab"}`, "Custom shortcode must be 4-12 characters and contain only alphanumeric characters"},
		{"shortcode bad chars", `{"url": "https://example.com", "shortcode": "bad-code"}`, "Custom shortcode must be 4-12 characters and contain only alphanumeric characters"},
		{"malformed json", `{"url": `, "Invalid request body"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, CreatePath, strings.NewReader(tc.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := h.createHandler(c); err != nil {
				t.Fatalf("createHandler() error = %v", err)
			}

			if rec.Code != http.StatusBadRequest {
				t.Errorf("createHandler() status = %v, want %v", rec.Code, http.StatusBadRequest)
			}

			var result errReturn
			_ = json.Unmarshal(rec.Body.Bytes(), &result)
			if result.Error != tc.message {
				t.Errorf("createHandler() error message = %q, want %q", result.Error, tc.message)
			}
		})
	}
}

func TestHandlers_CreateHandler_Conflict(t *testing.T) {
	h, e, db := setupTestHandlers()

	seedLink(t, db, "taken1", time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodPost, CreatePath, strings.NewReader(`{"url": "https://example.com", "shortcode": "taken1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.createHandler(c); err != nil {
		t.Fatalf("createHandler() error = %v", err)
	}

	if rec.Code != http.StatusConflict {
		t.Errorf("createHandler() status = %v, want %v", rec.Code, http.StatusConflict)
	}

	var result errReturn
	_ = json.Unmarshal(rec.Body.Bytes(), &result)
	if result.Error != "Custom shortcode already exists" {
		t.Errorf("createHandler() error message = %q", result.Error)
	}
}

func TestHandlers_RedirectHandler_Found(t *testing.T) {
	h, e, db := setupTestHandlers()

	seedLink(t, db, "live01", time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/live01", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(RedirectPath)
	c.SetPathValues(echo.PathValues{{Name: "code", Value: "live01"}})

	err := h.redirectHandler(c)
	if err != nil {
		t.Fatalf("redirectHandler() error = %v", err)
	}

	if rec.Code != http.StatusFound {
		t.Errorf("redirectHandler() status = %v, want %v", rec.Code, http.StatusFound)
	}

	location := rec.Header().Get("Location")
	if location != "https://example.com/live01" {
		t.Errorf("redirectHandler() Location = %v, want %v", location, "https://example.com/live01")
	}

	// The click landed.
	stored, _ := db.FindByCode(t.Context(), "live01")
	if stored.Clicks != 1 || len(stored.ClickEvents) != 1 {
		t.Errorf("after redirect: clicks=%d events=%d, want 1/1", stored.Clicks, len(stored.ClickEvents))
	}
	if h.counters.redirects.Load() != 1 {
		t.Errorf("After redirect, counters.redirects = %v, want 1", h.counters.redirects.Load())
	}
}

func TestHandlers_RedirectHandler_NotFound(t *testing.T) {
	h, e, _ := setupTestHandlers()

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(RedirectPath)
	c.SetPathValues(echo.PathValues{{Name: "code", Value: "nonexistent"}})

	err := h.redirectHandler(c)
	if err != nil {
		t.Fatalf("redirectHandler() error = %v", err)
	}

	if rec.Code != http.StatusNotFound {
		t.Errorf("redirectHandler() for missing code status = %v, want %v", rec.Code, http.StatusNotFound)
	}
}

func TestHandlers_RedirectHandler_Expired(t *testing.T) {
	h, e, db := setupTestHandlers()

	seedLink(t, db, "stale1", time.Now().Add(-time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/stale1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(RedirectPath)
	c.SetPathValues(echo.PathValues{{Name: "code", Value: "stale1"}})

	err := h.redirectHandler(c)
	if err != nil {
		t.Fatalf("redirectHandler() error = %v", err)
	}

	if rec.Code != http.StatusGone {
		t.Errorf("redirectHandler() for expired code status = %v, want %v", rec.Code, http.StatusGone)
	}

	var result errReturn
	_ = json.Unmarshal(rec.Body.Bytes(), &result)
	if result.Error != "Short URL has expired" {
		t.Errorf("redirectHandler() error message = %q", result.Error)
	}

	// No click recorded on the dead link.
	stored, _ := db.FindByCode(t.Context(), "stale1")
	if stored.Clicks != 0 {
		t.Errorf("expired redirect recorded a click: %d", stored.Clicks)
	}
	if h.counters.expiredHits.Load() != 1 {
		t.Errorf("counters.expiredHits = %v, want 1", h.counters.expiredHits.Load())
	}
}

func TestHandlers_StatsHandler_Found(t *testing.T) {
	h, e, db := setupTestHandlers()

	seedLink(t, db, "stat01", time.Now().Add(time.Hour))
	_ = db.RecordClick(t.Context(), "stat01", store.ClickEvent{
		Timestamp: time.Now().UTC(),
		Referrer:  "direct",
		Geo:       store.GeoInfo{IP: "203.0.113.7", Country: "Unknown", City: "Unknown"},
	})

	req := httptest.NewRequest(http.MethodGet, "/shorturls/stat01", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(StatsPath)
	c.SetPathValues(echo.PathValues{{Name: "code", Value: "stat01"}})

	err := h.statsHandler(c)
	if err != nil {
		t.Fatalf("statsHandler() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("statsHandler() status = %v, want %v", rec.Code, http.StatusOK)
	}

	var result service.LinkStats
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if result.ShortCode != "stat01" {
		t.Errorf("statsHandler() shortCode = %v, want stat01", result.ShortCode)
	}
	if result.Clicks != 1 || len(result.ClickEvents) != 1 {
		t.Errorf("statsHandler() clicks=%d events=%d, want 1/1", result.Clicks, len(result.ClickEvents))
	}
	if result.IsExpired {
		t.Error("statsHandler() isExpired = true for a live link")
	}
}

func TestHandlers_StatsHandler_Expired(t *testing.T) {
	h, e, db := setupTestHandlers()

	seedLink(t, db, "stale2", time.Now().Add(-time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/shorturls/stale2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(StatsPath)
	c.SetPathValues(echo.PathValues{{Name: "code", Value: "stale2"}})

	if err := h.statsHandler(c); err != nil {
		t.Fatalf("statsHandler() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("statsHandler() for expired code status = %v, want %v", rec.Code, http.StatusOK)
	}

	var result service.LinkStats
	_ = json.Unmarshal(rec.Body.Bytes(), &result)
	if !result.IsExpired {
		t.Error("statsHandler() isExpired = false for an expired link")
	}
}

func TestHandlers_StatsHandler_NotFound(t *testing.T) {
	h, e, _ := setupTestHandlers()

	req := httptest.NewRequest(http.MethodGet, "/shorturls/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(StatsPath)
	c.SetPathValues(echo.PathValues{{Name: "code", Value: "missing"}})

	if err := h.statsHandler(c); err != nil {
		t.Fatalf("statsHandler() error = %v", err)
	}

	if rec.Code != http.StatusNotFound {
		t.Errorf("statsHandler() for missing code status = %v, want %v", rec.Code, http.StatusNotFound)
	}
}

func TestHandlers_HealthHandler(t *testing.T) {
	h, e, _ := setupTestHandlers()

	req := httptest.NewRequest(http.MethodGet, HealthPath, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.healthHandler(c); err != nil {
		t.Fatalf("healthHandler() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("healthHandler() status = %v, want %v", rec.Code, http.StatusOK)
	}

	var result map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &result)
	if result["status"] != "ok" {
		t.Errorf("healthHandler() status field = %v, want ok", result["status"])
	}
}

func TestHandlers_MetricsHandler(t *testing.T) {
	h, e, _ := setupTestHandlers()

	req := httptest.NewRequest(http.MethodGet, MetricsPath, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.metricsHandler(c)
	if err != nil {
		t.Fatalf("metricsHandler() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("metricsHandler() status = %v, want %v", rec.Code, http.StatusOK)
	}

	var result metrics
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if result.Uptime == "" {
		t.Error("metricsHandler() Uptime is empty")
	}
}

func TestHandlers_MetricsIncrement(t *testing.T) {
	h, e, _ := setupTestHandlers()

	req := httptest.NewRequest(http.MethodPost, CreatePath, strings.NewReader(`{"url": "https://example.com"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = h.createHandler(c)

	if h.counters.linksCreated.Load() != 1 {
		t.Errorf("After create, counters.linksCreated = %v, want 1", h.counters.linksCreated.Load())
	}
}

func TestHandlers_IdHeader(t *testing.T) {
	h, e, _ := setupTestHandlers()

	middleware := h.idHeader()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := middleware(func(c *echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	err := handler(c)
	if err != nil {
		t.Fatalf("idHeader middleware error = %v", err)
	}

	header := rec.Header().Get("x-instance-uuid")
	if header != "test-id" {
		t.Errorf("idHeader() set header = %v, want %v", header, "test-id")
	}
}
