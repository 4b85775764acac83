package gateway

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/linkwatch/linkwatch/internal/types"
)

func openTestGateway(t *testing.T) *SQLiteGateway {
	t.Helper()
	path := filepath.Join(t.TempDir(), "linkwatch.db")
	g, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func sampleResult(url, parent string, code int) *types.FetchResult {
	return &types.FetchResult{
		URL:                 url,
		ParentURL:           parent,
		Duration:            2 * time.Second,
		ResponseCode:        code,
		ResponseReason:      "",
		ResponseSize:        1024,
		ResponseContentType: "text/html",
	}
}

func TestSQLiteGatewayUpsertAndParentOf(t *testing.T) {
	g := openTestGateway(t)
	start := "https://example.com/"

	if err := g.Upsert(sampleResult("https://example.com/a", start, types.CodeSuccess), start); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	parent, err := g.ParentOf("https://example.com/a")
	if err != nil {
		t.Fatalf("ParentOf: %v", err)
	}
	if parent != start {
		t.Fatalf("ParentOf() = %q, want %q", parent, start)
	}

	// Re-upserting the same URL updates the row rather than duplicating it.
	if err := g.Upsert(sampleResult("https://example.com/a", start, 404), start); err != nil {
		t.Fatalf("Upsert (update): %v", err)
	}
	broken, err := g.SelectBrokenParents(start)
	if err != nil {
		t.Fatalf("SelectBrokenParents: %v", err)
	}
	if len(broken) != 1 || broken[0] != start {
		t.Fatalf("SelectBrokenParents() = %v, want [%q]", broken, start)
	}
}

func TestSQLiteGatewayParentOfMissing(t *testing.T) {
	g := openTestGateway(t)
	parent, err := g.ParentOf("https://example.com/never-seen")
	if err != nil {
		t.Fatalf("ParentOf: %v", err)
	}
	if parent != "" {
		t.Fatalf("ParentOf() = %q, want empty string", parent)
	}
}

func TestSQLiteGatewayInvalidateChildren(t *testing.T) {
	g := openTestGateway(t)
	start := "https://example.com/"

	if err := g.Upsert(sampleResult("https://example.com/a", start, types.CodeSuccess), start); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := g.Upsert(sampleResult("https://example.com/b", "https://example.com/a", types.CodeSuccess), start); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := g.InvalidateChildren("https://example.com/a", start); err != nil {
		t.Fatalf("InvalidateChildren: %v", err)
	}

	parent, err := g.ParentOf("https://example.com/b")
	if err != nil {
		t.Fatalf("ParentOf: %v", err)
	}
	if parent != "" {
		t.Fatalf("expected child row removed, ParentOf() = %q", parent)
	}

	// The parent row itself (keyed by a different parent) survives.
	parent, err = g.ParentOf("https://example.com/a")
	if err != nil {
		t.Fatalf("ParentOf: %v", err)
	}
	if parent != start {
		t.Fatalf("ParentOf(a) = %q, want %q", parent, start)
	}
}
