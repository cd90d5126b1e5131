package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ericfialkowski/shortlink/env"
	"github.com/ericfialkowski/shortlink/service"
	"github.com/ericfialkowski/shortlink/shortcode"
	"github.com/ericfialkowski/shortlink/status"
	"github.com/ericfialkowski/shortlink/telemetry"
	"github.com/labstack/echo/v5"
)

const (
	CreatePath   = "/shorturl"
	RedirectPath = "/:code"
	StatsPath    = "/shorturls/:code"
	HealthPath   = "/health"
	StatusPath   = "/status"
	MetricsPath  = "/diag/metrics"

	instanceHeader = "x-instance-uuid"
)

type Handlers struct {
	svc      *service.LinkService
	status   *status.SimpleStatus
	id       string
	tel      *telemetry.Metrics
	start    time.Time
	counters counters
}

// counters are cheap in-process tallies served at /diag/metrics; the OTel
// instruments in telemetry cover the exported view.
type counters struct {
	linksCreated  atomic.Int64
	redirects     atomic.Int64
	expiredHits   atomic.Int64
	statsRequests atomic.Int64
}

type metrics struct {
	Uptime        string `json:"uptime"`
	LinksCreated  int64  `json:"links_created"`
	Redirects     int64  `json:"redirects"`
	ExpiredHits   int64  `json:"expired_hits"`
	StatsRequests int64  `json:"stats_requests"`
}

func CreateHandlers(svc *service.LinkService, st *status.SimpleStatus, id string, tel *telemetry.Metrics) Handlers {
	return Handlers{svc: svc, status: st, id: id, tel: tel, start: time.Now()}
}

type createRequest struct {
	Url       string `json:"url"`
	Validity  *int   `json:"validity"`
	Shortcode string `json:"shortcode"`
}

type createReturn struct {
	OriginalUrl string    `json:"originalUrl"`
	ShortCode   string    `json:"shortCode"`
	ShortUrl    string    `json:"shortUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
	IsCustom    bool      `json:"isCustom"`
}

type errReturn struct {
	Error string `json:"error"`
}

func (h *Handlers) createHandler(c *echo.Context) error {
	var req createRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errReturn{"Invalid request body"})
	}
	if req.Url == "" {
		return c.JSON(http.StatusBadRequest, errReturn{"URL is required"})
	}

	rec, err := h.svc.CreateShortLink(c.Request().Context(), service.CreateRequest{
		URL:             req.Url,
		ValidityMinutes: req.Validity,
		CustomCode:      req.Shortcode,
	})
	if err != nil {
		return c.JSON(createErrStatus(err), errReturn{createErrMessage(err)})
	}

	h.counters.linksCreated.Add(1)
	if h.tel != nil {
		h.tel.LinksCreated.Add(c.Request().Context(), 1)
	}

	return c.JSON(http.StatusCreated, createReturn{
		OriginalUrl: rec.OriginalURL,
		ShortCode:   rec.ShortCode,
		ShortUrl:    c.Scheme() + "://" + c.Request().Host + "/" + rec.ShortCode,
		ExpiresAt:   rec.ExpiresAt,
		IsCustom:    rec.IsCustom,
	})
}

func (h *Handlers) redirectHandler(c *echo.Context) error {
	code := c.Param("code")

	target, err := h.svc.ResolveAndRecordClick(c.Request().Context(), code, c.Request().Referer(), c.RealIP())
	switch {
	case err == nil:
	case service.IsNotFound(err):
		return c.JSON(http.StatusNotFound, errReturn{"Short URL not found"})
	case service.IsExpired(err):
		h.counters.expiredHits.Add(1)
		if h.tel != nil {
			h.tel.ExpiredHits.Add(c.Request().Context(), 1)
		}
		return c.JSON(http.StatusGone, errReturn{"Short URL has expired"})
	default:
		log.Printf("Error resolving %s: %v", code, err)
		return c.JSON(http.StatusInternalServerError, errReturn{"Server error"})
	}

	h.counters.redirects.Add(1)
	if h.tel != nil {
		h.tel.Redirects.Add(c.Request().Context(), 1)
	}

	return c.Redirect(http.StatusFound, target)
}

func (h *Handlers) statsHandler(c *echo.Context) error {
	code := c.Param("code")

	stats, err := h.svc.GetStats(c.Request().Context(), code)
	switch {
	case err == nil:
	case service.IsNotFound(err):
		return c.JSON(http.StatusNotFound, errReturn{"Short URL not found"})
	default:
		log.Printf("Error getting stats for %s: %v", code, err)
		return c.JSON(http.StatusInternalServerError, errReturn{"Server error"})
	}

	h.counters.statsRequests.Add(1)
	if h.tel != nil {
		h.tel.StatsRequests.Add(c.Request().Context(), 1)
	}

	return c.JSON(http.StatusOK, stats)
}

func (h *Handlers) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) metricsHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, metrics{
		Uptime:        time.Since(h.start).Round(time.Second).String(),
		LinksCreated:  h.counters.linksCreated.Load(),
		Redirects:     h.counters.redirects.Load(),
		ExpiredHits:   h.counters.expiredHits.Load(),
		StatsRequests: h.counters.statsRequests.Load(),
	})
}

func (h *Handlers) SetUp(e *echo.Echo) {
	e.POST(CreatePath, h.createHandler)
	e.GET(StatsPath, h.statsHandler)
	e.GET(HealthPath, h.healthHandler)
	e.GET(StatusPath, h.status.BackgroundHandler)
	e.GET(MetricsPath, h.metricsHandler)
	// Param route last; echo prefers static matches so the routes above
	// stay reachable.
	e.GET(RedirectPath, h.redirectHandler)

	e.Use(h.idHeader())
	e.Use(h.logWrapper)
	e.Use(h.durations)
}

// idHeader stamps every response with this instance's id so a misbehaving
// node can be picked out from behind a load balancer.
func (h *Handlers) idHeader() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			c.Response().Header().Set(instanceHeader, h.id)
			return next(c)
		}
	}
}

func (h *Handlers) logWrapper(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		if env.BoolOrDefault("logrequests", false) {
			log.Printf("access:  %s - %s", c.Request().Method, c.Request().RequestURI)
		}
		return next(c)
	}
}

func (h *Handlers) durations(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		if h.tel == nil {
			return next(c)
		}
		begin := time.Now()
		err := next(c)
		h.tel.RequestDuration.Record(c.Request().Context(), float64(time.Since(begin).Microseconds())/1000.0)
		return err
	}
}

func createErrStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidURL),
		errors.Is(err, service.ErrInvalidValidity),
		errors.Is(err, service.ErrInvalidCodeFormat):
		return http.StatusBadRequest
	case service.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func createErrMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidURL):
		return "Invalid URL format"
	case errors.Is(err, service.ErrInvalidValidity):
		return "Validity must be a positive number"
	case errors.Is(err, service.ErrInvalidCodeFormat):
		return "Custom shortcode must be 4-12 characters and contain only alphanumeric characters"
	case service.IsConflict(err):
		return "Custom shortcode already exists"
	case errors.Is(err, shortcode.ErrExhausted):
		return "Could not generate a unique shortcode"
	default:
		log.Printf("Error creating short link: %v", err)
		return "Server error"
	}
}
