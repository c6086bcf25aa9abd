package enrichment

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/GodsB1025/trade-monitor/internal/interfaces"
	"github.com/GodsB1025/trade-monitor/internal/models"
)

// DisabledProvider is the fallback when no API key is configured. Every call
// reports a disabled failure, which the scanner treats as no change, so the
// service stays up for target management and queue inspection.
type DisabledProvider struct {
	logger arbor.ILogger
}

// NewDisabledProvider creates the no-op enrichment provider.
func NewDisabledProvider(logger arbor.ILogger) interfaces.EnrichmentProvider {
	logger.Warn().Msg("Enrichment is disabled: no API key configured, scan cycles will find no changes")
	return &DisabledProvider{logger: logger}
}

// FetchLatest always reports a disabled failure.
func (p *DisabledProvider) FetchLatest(ctx context.Context, keyword string) *models.EnrichmentResult {
	return &models.EnrichmentResult{ErrorKind: models.ErrorKindDisabled}
}
