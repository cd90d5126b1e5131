// Package status exposes a tiny JSON health endpoint fed by whoever owns
// the health signal (here, a background store-health ticker).
package status

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v5"
)

type (
	Code int

	// StatusView is the JSON shape served to callers.
	StatusView struct {
		Code      Code   `json:"status_code"`
		Message   string `json:"status_msg"`
		Timestamp string `json:"timestamp"`
	}

	// SimpleStatus holds the current health view. Safe for concurrent use:
	// a background updater writes while request handlers read.
	SimpleStatus struct {
		mu   sync.RWMutex
		view StatusView
	}
)

const (
	OK Code = iota
	Warning
	Critical
	Unknown
)

func NewStatus() *SimpleStatus {
	s := &SimpleStatus{}
	s.Unknown("initializing")
	return s
}

func (s *SimpleStatus) set(code Code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = StatusView{Code: code, Message: message, Timestamp: currentTimestamp()}
}

// Last returns the view as of the most recent update.
func (s *SimpleStatus) Last() StatusView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Current returns the view stamped with the request time.
func (s *SimpleStatus) Current() StatusView {
	v := s.Last()
	v.Timestamp = currentTimestamp()
	return v
}

func currentTimestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (s *SimpleStatus) Ok(message string) {
	s.set(OK, message)
}

func (s *SimpleStatus) Warn(message string) {
	s.set(Warning, message)
}

func (s *SimpleStatus) Critical(message string) {
	s.set(Critical, message)
}

func (s *SimpleStatus) Unknown(message string) {
	s.set(Unknown, message)
}

// Handler serves the status stamped with the request time.
func (s *SimpleStatus) Handler(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.Current())
}

// BackgroundHandler serves the status as-is, keeping the timestamp of the
// last background update.
func (s *SimpleStatus) BackgroundHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.Last())
}
