package dbclient

import (
	"net/url"

	_ "github.com/lib/pq"
)

// buildPostgresDSN normalizes a postgres URL for lib/pq, defaulting the
// port and sslmode.
func buildPostgresDSN(u *url.URL) string {
	c := *u
	c.Scheme = "postgres"
	if c.Port() == "" {
		c.Host = c.Hostname() + ":5432"
	}
	q := c.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "disable")
	}
	c.RawQuery = q.Encode()
	return c.String()
}
