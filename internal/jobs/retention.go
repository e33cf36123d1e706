package jobs

import (
	"context"
	"log"
	"time"

	"github.com/docsage/docsage/internal/service"
)

// RetentionInterval is how often expired events are purged. Retention is
// seven days, so hourly passes keep the table close to its bound without
// mattering to query load.
const RetentionInterval = time.Hour

// RetentionProcessor deletes observability events past their retention
// window.
type RetentionProcessor struct {
	obs *service.Observability
}

func NewRetentionProcessor(obs *service.Observability) *RetentionProcessor {
	return &RetentionProcessor{obs: obs}
}

func (p *RetentionProcessor) Name() string { return "event-retention" }

func (p *RetentionProcessor) Run(ctx context.Context) error {
	deleted, err := p.obs.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if deleted > 0 {
		log.Printf("event retention: purged %d expired events", deleted)
	}
	return nil
}
