package models

// ErrorKind classifies why an enrichment attempt failed. Failures are
// per-target and downgrade to a no-change outcome for the cycle; the kind is
// only used for logging and diagnostics.
type ErrorKind string

const (
	ErrorKindNone        ErrorKind = ""
	ErrorKindTimeout     ErrorKind = "timeout"
	ErrorKindRateLimited ErrorKind = "rate_limited"
	ErrorKindProvider    ErrorKind = "provider_error"
	ErrorKindParse       ErrorKind = "parse_error"
	ErrorKindDisabled    ErrorKind = "disabled"
)

// EnrichmentResult is the ephemeral outcome of one enrichment call for one
// watch target. It is owned by the in-flight scan worker that produced it,
// consumed immediately by the change detector, and never persisted directly.
type EnrichmentResult struct {
	Title       string
	SummaryText string
	SourceURLs  []string
	Importance  string
	Succeeded   bool
	ErrorKind   ErrorKind
}
