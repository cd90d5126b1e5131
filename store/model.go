package store

import "time"

// GeoInfo is the coarse location attached to a click. Country and city are
// "Unknown" unless a real resolver is plugged in.
type GeoInfo struct {
	IP      string `json:"ip,omitempty" bson:"ip,omitempty"`
	Country string `json:"country,omitempty" bson:"country,omitempty"`
	City    string `json:"city,omitempty" bson:"city,omitempty"`
}

// ClickEvent is one redirect traversal. Events belong to exactly one
// LinkRecord and are kept in insertion (= chronological) order.
type ClickEvent struct {
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Referrer  string    `json:"referrer" bson:"referrer"`
	Geo       GeoInfo   `json:"geoInfo" bson:"geoInfo"`
}

// LinkRecord is the aggregate stored per shortcode. Everything except
// Clicks and ClickEvents is immutable after creation.
type LinkRecord struct {
	ShortCode   string       `json:"shortCode" bson:"shortCode"`
	OriginalURL string       `json:"originalUrl" bson:"originalUrl"`
	CreatedAt   time.Time    `json:"createdAt" bson:"createdAt"`
	ExpiresAt   time.Time    `json:"expiresAt" bson:"expiresAt"`
	IsCustom    bool         `json:"isCustom" bson:"isCustom"`
	Clicks      int64        `json:"clicks" bson:"clicks"`
	ClickEvents []ClickEvent `json:"clickEvents" bson:"clickEvents"`
}

// ExpiredAt reports whether the record is past its validity window at the
// given instant. A record whose expiry equals "now" is already expired.
func (r LinkRecord) ExpiredAt(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// ApplyClick returns a copy of the record with the event appended and the
// counter bumped. Pure; backends perform the equivalent mutation atomically.
func ApplyClick(r LinkRecord, ev ClickEvent) LinkRecord {
	events := make([]ClickEvent, len(r.ClickEvents), len(r.ClickEvents)+1)
	copy(events, r.ClickEvents)
	r.ClickEvents = append(events, ev)
	r.Clicks++
	return r
}
