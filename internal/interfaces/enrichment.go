package interfaces

import (
	"context"

	"github.com/GodsB1025/trade-monitor/internal/models"
)

// EnrichmentProvider wraps the external enrichment/search service. FetchLatest
// never returns nil: retry exhaustion and provider failures are reported in
// the result itself (Succeeded=false plus an ErrorKind), which the scan
// orchestrator treats as a no-change outcome for that target this cycle.
type EnrichmentProvider interface {
	FetchLatest(ctx context.Context, keyword string) *models.EnrichmentResult
}
