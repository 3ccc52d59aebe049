package homeassistant

import (
	"context"

	"github.com/autoscribe/autoscribe-core/internal/catalog"
)

// CatalogFetcher adapts the client to the catalog refresher's StatesFetcher
// interface.
type CatalogFetcher struct {
	client *Client
}

// NewCatalogFetcher wraps a client for use by catalog.NewRefresher.
func NewCatalogFetcher(client *Client) *CatalogFetcher {
	return &CatalogFetcher{client: client}
}

// FetchStates fetches all states and maps them onto catalog entities.
// Domain derivation and malformed entity IDs are the snapshot builder's
// concern, so states pass through unfiltered.
func (f *CatalogFetcher) FetchStates(ctx context.Context) ([]catalog.Entity, error) {
	states, err := f.client.States(ctx)
	if err != nil {
		return nil, err
	}

	entities := make([]catalog.Entity, 0, len(states))
	for _, s := range states {
		entities = append(entities, catalog.Entity{
			EntityID:     s.EntityID,
			FriendlyName: s.FriendlyName(),
			State:        s.State,
		})
	}
	return entities, nil
}
