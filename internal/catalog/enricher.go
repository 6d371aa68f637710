package catalog

import (
	"context"

	"github.com/sourcegraph/conc/iter"

	"github.com/flicklist/backend/internal/logging"
	"github.com/flicklist/backend/internal/models"
)

// Item identifies one media item to resolve.
type Item struct {
	MediaID   int64            `json:"mediaId"`
	MediaType models.MediaType `json:"mediaType"`
	MarkedBy  string           `json:"markedBy,omitempty"`
}

// Detailed is an item paired with its resolved metadata.
type Detailed struct {
	Item
	Metadata
}

// Enricher resolves batches of items against a Provider.
type Enricher struct {
	provider    Provider
	concurrency int
}

// NewEnricher returns an Enricher that runs at most concurrency lookups at once.
func NewEnricher(provider Provider, concurrency int) *Enricher {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Enricher{provider: provider, concurrency: concurrency}
}

// Enrich resolves every item and returns the successful ones in input order.
// Items whose lookup fails, or whose media type is unknown, are skipped.
func (e *Enricher) Enrich(ctx context.Context, items []Item) ([]Detailed, error) {
	if e == nil || e.provider == nil {
		return nil, ErrProviderUnavailable
	}

	ctx, span := logging.StartSpan(ctx, "catalog.Enrich")
	defer span.End()

	type result struct {
		detailed Detailed
		ok       bool
	}

	mapper := iter.Mapper[Item, result]{MaxGoroutines: e.concurrency}
	results := mapper.Map(items, func(item *Item) result {
		if !item.MediaType.Valid() {
			return result{}
		}
		meta, err := e.provider.Lookup(ctx, item.MediaType, item.MediaID)
		if err != nil {
			logging.FromContext(ctx).Warn("skipping media without catalog details",
				"mediaType", item.MediaType, "mediaId", item.MediaID, "error", err)
			return result{}
		}
		return result{detailed: Detailed{Item: *item, Metadata: meta}, ok: true}
	})

	detailed := make([]Detailed, 0, len(results))
	for _, r := range results {
		if r.ok {
			detailed = append(detailed, r.detailed)
		}
	}
	return detailed, nil
}
