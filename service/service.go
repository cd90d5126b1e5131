// Package service orchestrates shortcode generation, storage, and click
// analytics for the short-link lifecycle.
package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/ericfialkowski/shortlink/shortcode"
	"github.com/ericfialkowski/shortlink/store"
)

// Config is the service's knobs, passed in at construction. Zero values
// fall back to the documented defaults.
type Config struct {
	DefaultValidityMinutes int // validity when the caller doesn't supply one (default 30)
	CodeLength             int // length of generated shortcodes (default 6)
}

const defaultValidityMinutes = 30

// LinkService implements the create / resolve / stats operations. Safe for
// concurrent use; the store is the only shared mutable state.
type LinkService struct {
	store store.LinkStore
	geo   GeoResolver
	cfg   Config
	now   func() time.Time
}

func NewLinkService(st store.LinkStore, geo GeoResolver, cfg Config) *LinkService {
	if cfg.DefaultValidityMinutes <= 0 {
		cfg.DefaultValidityMinutes = defaultValidityMinutes
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = shortcode.DefaultLength
	}
	if geo == nil {
		geo = UnknownResolver{}
	}
	return &LinkService{store: st, geo: geo, cfg: cfg, now: time.Now}
}

// CreateRequest carries the inputs for CreateShortLink. ValidityMinutes nil
// means "use the default"; CustomCode empty means "generate one".
type CreateRequest struct {
	URL             string
	ValidityMinutes *int
	CustomCode      string
}

// LinkStats is the read-only stats view: the record plus whether it is past
// its validity window at read time.
type LinkStats struct {
	store.LinkRecord
	IsExpired bool `json:"isExpired"`
}

// CreateShortLink validates the request, settles on a shortcode, and
// persists a fresh record. All validation happens before any write; the
// store's insert is the authority on uniqueness, the Exists pre-check just
// gives custom codes a fast answer.
func (s *LinkService) CreateShortLink(ctx context.Context, req CreateRequest) (store.LinkRecord, error) {
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return store.LinkRecord{}, ErrInvalidURL
	}

	validity := s.cfg.DefaultValidityMinutes
	if req.ValidityMinutes != nil {
		if *req.ValidityMinutes <= 0 {
			return store.LinkRecord{}, ErrInvalidValidity
		}
		validity = *req.ValidityMinutes
	}

	code := req.CustomCode
	isCustom := code != ""
	if isCustom {
		if !shortcode.ValidFormat(code) {
			return store.LinkRecord{}, ErrInvalidCodeFormat
		}
		if shortcode.Reserved(code) {
			return store.LinkRecord{}, ErrCodeConflict
		}
		exists, err := s.store.Exists(ctx, code)
		if err != nil {
			return store.LinkRecord{}, storeFault(err)
		}
		if exists {
			return store.LinkRecord{}, ErrCodeConflict
		}
	} else {
		code, err = shortcode.Unique(ctx, s.store, s.cfg.CodeLength)
		if err != nil {
			if errors.Is(err, shortcode.ErrExhausted) {
				return store.LinkRecord{}, err
			}
			return store.LinkRecord{}, storeFault(err)
		}
	}

	now := s.now()
	rec := store.LinkRecord{
		ShortCode:   code,
		OriginalURL: req.URL,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Duration(validity) * time.Minute),
		IsCustom:    isCustom,
		Clicks:      0,
		ClickEvents: []store.ClickEvent{},
	}

	if err := s.store.Insert(ctx, rec); err != nil {
		if errors.Is(err, store.ErrDuplicateCode) {
			// Lost the insert race; indistinguishable from the pre-check.
			return store.LinkRecord{}, ErrCodeConflict
		}
		return store.LinkRecord{}, storeFault(err)
	}

	return rec, nil
}

// ResolveAndRecordClick returns the redirect target for a live code and
// records the click. Missing and expired codes mutate nothing.
func (s *LinkService) ResolveAndRecordClick(ctx context.Context, code, referrer, clientIP string) (string, error) {
	rec, err := s.store.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", storeFault(err)
	}

	if rec.ExpiredAt(s.now()) {
		return "", ErrExpired
	}

	ev := NewClickEvent(ClickContext{Referrer: referrer, ClientIP: clientIP, At: s.now()}, s.geo)
	if err := s.store.RecordClick(ctx, code, ev); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", storeFault(err)
	}

	return rec.OriginalURL, nil
}

// GetStats returns the full record plus computed expiry state. Expired
// links stay readable here; only redirects treat them as gone.
func (s *LinkService) GetStats(ctx context.Context, code string) (LinkStats, error) {
	rec, err := s.store.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LinkStats{}, ErrNotFound
		}
		return LinkStats{}, storeFault(err)
	}
	return LinkStats{LinkRecord: rec, IsExpired: rec.ExpiredAt(s.now())}, nil
}
