package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means no record exists for the shortcode.
	ErrNotFound = errors.New("shortcode not found")
	// ErrDuplicateCode means an insert lost the uniqueness race (or the
	// code was simply taken already).
	ErrDuplicateCode = errors.New("shortcode already exists")
)

// LinkStore is the capability set any backend must provide. Insert and
// RecordClick carry the concurrency contract: Insert must reject a second
// record for the same code even when two callers race, and RecordClick must
// land the counter increment and the event append together or not at all.
type LinkStore interface {
	IsLikelyOk() bool
	FindByCode(ctx context.Context, code string) (LinkRecord, error)
	Exists(ctx context.Context, code string) (bool, error)
	Insert(ctx context.Context, rec LinkRecord) error
	RecordClick(ctx context.Context, code string, ev ClickEvent) error
	Cleanup()
}
