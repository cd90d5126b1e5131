package store

import (
	"testing"
	"time"
)

func TestApplyClick(t *testing.T) {
	rec := testRecord("pure01")
	ev := testEvent("https://ref.example")

	updated := ApplyClick(rec, ev)

	if updated.Clicks != 1 {
		t.Errorf("ApplyClick().Clicks = %v, want 1", updated.Clicks)
	}
	if len(updated.ClickEvents) != 1 {
		t.Fatalf("ApplyClick() appended %d events, want 1", len(updated.ClickEvents))
	}
	if updated.ClickEvents[0].Referrer != "https://ref.example" {
		t.Errorf("ApplyClick() event referrer = %v", updated.ClickEvents[0].Referrer)
	}

	// The input must be untouched.
	if rec.Clicks != 0 || len(rec.ClickEvents) != 0 {
		t.Errorf("ApplyClick() mutated its input: clicks=%d events=%d", rec.Clicks, len(rec.ClickEvents))
	}
}

func TestApplyClick_CounterTracksEvents(t *testing.T) {
	rec := testRecord("pure02")
	for i := 0; i < 5; i++ {
		rec = ApplyClick(rec, testEvent("direct"))
		if rec.Clicks != int64(len(rec.ClickEvents)) {
			t.Fatalf("after %d clicks: Clicks = %d, len(ClickEvents) = %d", i+1, rec.Clicks, len(rec.ClickEvents))
		}
	}
}

func TestApplyClick_NoSharedBacking(t *testing.T) {
	rec := testRecord("pure03")
	rec = ApplyClick(rec, testEvent("first"))

	a := ApplyClick(rec, testEvent("second-a"))
	b := ApplyClick(rec, testEvent("second-b"))

	if a.ClickEvents[1].Referrer != "second-a" || b.ClickEvents[1].Referrer != "second-b" {
		t.Error("ApplyClick() results share a backing array")
	}
}

func TestExpiredAt(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := LinkRecord{CreatedAt: created, ExpiresAt: created.Add(30 * time.Minute)}

	tests := []struct {
		name     string
		now      time.Time
		expected bool
	}{
		{"well before expiry", created.Add(10 * time.Minute), false},
		{"one millisecond before", rec.ExpiresAt.Add(-time.Millisecond), false},
		{"exactly at expiry", rec.ExpiresAt, true},
		{"after expiry", rec.ExpiresAt.Add(time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rec.ExpiredAt(tt.now); got != tt.expected {
				t.Errorf("ExpiredAt(%v) = %v, want %v", tt.now, got, tt.expected)
			}
		})
	}
}
