package service

import (
	"strings"
	"time"

	"github.com/ericfialkowski/shortlink/store"
)

// directReferrer is recorded when the visitor arrived without a referrer.
const directReferrer = "direct"

// ClickContext is the raw material for one click event: what the
// request-handling layer knows about the visitor.
type ClickContext struct {
	Referrer string
	ClientIP string
	At       time.Time
}

// NewClickEvent builds the event for a click. No I/O; the store applies it
// (see store.ApplyClick for the matching record mutation).
func NewClickEvent(cc ClickContext, geo GeoResolver) store.ClickEvent {
	referrer := strings.TrimSpace(cc.Referrer)
	if referrer == "" {
		referrer = directReferrer
	}
	return store.ClickEvent{
		Timestamp: cc.At,
		Referrer:  referrer,
		Geo:       geo.Resolve(cc.ClientIP),
	}
}
