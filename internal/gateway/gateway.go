// Package gateway implements the Persistence Gateway (component C3):
// upsert a FetchResult keyed by URL, invalidate stale outbound-edge
// rows for a parent, and query for previously-broken links to seed
// the next crawl.
package gateway

import (
	"fmt"

	"github.com/linkwatch/linkwatch/internal/config"
	"github.com/linkwatch/linkwatch/internal/types"
)

// Gateway is the contract the scheduler and lifecycle controller
// depend on. Failures are the caller's to log; a Gateway method
// returning an error must not be treated as fatal to the crawl.
type Gateway interface {
	Upsert(result *types.FetchResult, startURL string) error
	InvalidateChildren(parentURL, startURL string) error
	SelectBrokenParents(startURL string) ([]string, error)
	// ParentOf returns the parent recorded for url, used by the
	// Lifecycle Controller's seeding step ("look up the row for p,
	// take its parent") — empty string if no row exists.
	ParentOf(url string) (string, error)
	Close() error
}

// Open constructs the Gateway selected by cfg.Persistence.Backend.
func Open(cfg *config.Config) (Gateway, error) {
	switch cfg.Persistence.Backend {
	case "sqlite", "":
		return OpenSQLite(cfg.Persistence.SQLitePath)
	case "mongo":
		return OpenMongo(cfg.Persistence.MongoURI, cfg.Persistence.MongoDatabase, cfg.Persistence.MongoCollection)
	case "multi":
		sqlite, err := OpenSQLite(cfg.Persistence.SQLitePath)
		if err != nil {
			return nil, err
		}
		mongo, err := OpenMongo(cfg.Persistence.MongoURI, cfg.Persistence.MongoDatabase, cfg.Persistence.MongoCollection)
		if err != nil {
			sqlite.Close()
			return nil, err
		}
		return NewMultiGateway(sqlite, mongo), nil
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", cfg.Persistence.Backend)
	}
}
