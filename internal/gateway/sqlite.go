package gateway

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/linkwatch/linkwatch/internal/types"
)

// schema mirrors the logical schema verbatim: a single link table
// keyed by url, with the four indices the reports run against.
// Grounded on erndmrc-spider2/internal/storage/schema.go's hand-rolled
// CREATE TABLE + CREATE INDEX style, trimmed down to exactly the
// fields the core contract needs (no SEO-feature tables — those
// belong to the out-of-scope inspection service, not this schema).
const schema = `
CREATE TABLE IF NOT EXISTS link (
	start_url       TEXT NOT NULL,
	url             TEXT NOT NULL UNIQUE,
	parent          TEXT NOT NULL,
	duration        INTEGER NOT NULL,
	size            INTEGER NOT NULL,
	content_type    TEXT NOT NULL,
	response_code   INTEGER NOT NULL,
	response_reason TEXT NOT NULL,
	date            DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_link_url ON link(url);
CREATE INDEX IF NOT EXISTS idx_link_parent ON link(parent);
CREATE INDEX IF NOT EXISTS idx_link_code_start ON link(response_code, start_url);
CREATE INDEX IF NOT EXISTS idx_link_parent_start ON link(parent, start_url);
`

// SQLiteGateway is the default Persistence Gateway backend, grounded
// on erndmrc-spider2's relational storage layer.
type SQLiteGateway struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens (creating if needed) a SQLite database at path and
// ensures the schema exists.
func OpenSQLite(path string) (*SQLiteGateway, error) {
	dsn := fmt.Sprintf("%s?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteGateway{db: db}, nil
}

func (g *SQLiteGateway) Upsert(result *types.FetchResult, startURL string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	link := types.NewLink(result, startURL)
	_, err := g.db.Exec(`
		INSERT INTO link (start_url, url, parent, duration, size, content_type, response_code, response_reason, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			start_url=excluded.start_url,
			parent=excluded.parent,
			duration=excluded.duration,
			size=excluded.size,
			content_type=excluded.content_type,
			response_code=excluded.response_code,
			response_reason=excluded.response_reason,
			date=excluded.date
	`,
		link.StartURL, link.URL, link.Parent, int64(link.Duration), link.Size,
		link.ContentType, link.ResponseCode, link.ResponseReason, link.Date,
	)
	if err != nil {
		return fmt.Errorf("upsert link: %w", err)
	}
	return nil
}

func (g *SQLiteGateway) InvalidateChildren(parentURL, startURL string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, err := g.db.Exec(`DELETE FROM link WHERE parent = ? AND start_url = ?`, parentURL, startURL)
	if err != nil {
		return fmt.Errorf("invalidate children: %w", err)
	}
	return nil
}

func (g *SQLiteGateway) SelectBrokenParents(startURL string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rows, err := g.db.Query(`
		SELECT DISTINCT parent FROM link
		WHERE response_code != ? AND start_url = ? AND parent != ''
	`, types.CodeSuccess, startURL)
	if err != nil {
		return nil, fmt.Errorf("select broken parents: %w", err)
	}
	defer rows.Close()

	var parents []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan broken parent: %w", err)
		}
		parents = append(parents, p)
	}
	return parents, rows.Err()
}

// ParentOf looks up the parent recorded for url, used by the seeding
// step to recover "p's own parent" for re-enqueuing.
func (g *SQLiteGateway) ParentOf(url string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var parent string
	err := g.db.QueryRow(`SELECT parent FROM link WHERE url = ?`, url).Scan(&parent)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup parent: %w", err)
	}
	return parent, nil
}

func (g *SQLiteGateway) Close() error {
	return g.db.Close()
}
