package dbclient

import (
	"strings"

	_ "modernc.org/sqlite"
)

// SQLitePath extracts the file path from a sqlite:// URL.
// "sqlite:///abs/x.db" is absolute, "sqlite://x.db" is relative.
func SQLitePath(rawURL string) string {
	p := strings.TrimPrefix(rawURL, "sqlite://")
	if i := strings.Index(p, "?"); i >= 0 {
		p = p[:i]
	}
	return p
}

// newSQLiteConnector opens a sqlite file in WAL mode with a busy timeout
// for concurrent access.
func newSQLiteConnector(rawURL string) (*sqlConnector, error) {
	dsn := SQLitePath(rawURL) + "?_journal_mode=WAL&_busy_timeout=5000"
	return newSQLConnector(dialectSQLite, dsn)
}
