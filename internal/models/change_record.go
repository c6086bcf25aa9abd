package models

import (
	"time"
)

// Importance levels reported by the enrichment provider.
const (
	ImportanceHigh   = "HIGH"
	ImportanceMedium = "MEDIUM"
	ImportanceLow    = "LOW"
)

// ChangeRecord is the durable record of one detected meaningful change for a
// watch target. It is the system's source of truth: inserted once, never
// mutated, never deleted by the scanner. For a given watch target no two
// records may share the same ContentHash; the detector enforces this before
// insert so re-scans after a lock expiry cannot duplicate alerts.
type ChangeRecord struct {
	ID            string    `badgerhold:"key" json:"id"`
	WatchTargetID string    `badgerhold:"index" json:"watch_target_id"`
	OwnerID       string    `json:"owner_id"`
	ContentHash   string    `badgerhold:"index" json:"content_hash"`
	Title         string    `json:"title,omitempty"`
	SummaryText   string    `json:"summary_text"`
	SourceURLs    []string  `json:"source_urls,omitempty"`
	Importance    string    `json:"importance,omitempty"`
	DetectedAt    time.Time `json:"detected_at"`
}
