package gateway

import (
	"fmt"

	"github.com/linkwatch/linkwatch/internal/types"
)

// MultiGateway fans a write out to N backends, grounded on the
// teacher's storage.MultiStorage pattern. Reads (SelectBrokenParents,
// ParentOf) are served from the first backend only — the backends are
// expected to be kept in sync by the fan-out writes, so there is no
// need to reconcile read results across them.
type MultiGateway struct {
	backends []Gateway
}

// NewMultiGateway wraps backends for fan-out. The first backend is
// treated as primary for reads.
func NewMultiGateway(backends ...Gateway) *MultiGateway {
	return &MultiGateway{backends: backends}
}

func (g *MultiGateway) Upsert(result *types.FetchResult, startURL string) error {
	var firstErr error
	for _, b := range g.backends {
		if err := b.Upsert(result, startURL); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("backend write failed: %w", err)
		}
	}
	return firstErr
}

func (g *MultiGateway) InvalidateChildren(parentURL, startURL string) error {
	var firstErr error
	for _, b := range g.backends {
		if err := b.InvalidateChildren(parentURL, startURL); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("backend invalidate failed: %w", err)
		}
	}
	return firstErr
}

func (g *MultiGateway) SelectBrokenParents(startURL string) ([]string, error) {
	return g.backends[0].SelectBrokenParents(startURL)
}

func (g *MultiGateway) ParentOf(url string) (string, error) {
	return g.backends[0].ParentOf(url)
}

func (g *MultiGateway) Close() error {
	var firstErr error
	for _, b := range g.backends {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
