package history

import (
	"context"
	"time"

	"github.com/loykin/tracklink/internal/link"
)

// Event is one ingested position report exported to external systems
// (analytics, dashboards). It carries the link identity alongside the sample
// so sinks need no lookups.
type Event struct {
	LinkID     string      `json:"link_id"`
	Name       string      `json:"name"`
	Sample     link.Sample `json:"sample"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Sink is a destination for position events. Implementations must be safe for
// concurrent use. Send failures are logged by the caller and never fail the
// ingestion that produced the event.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
