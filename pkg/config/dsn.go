package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// dsnFromURL converts a 12-Factor style PostgreSQL connection URL into a
// libpq key/value DSN. Accepts postgres:// and postgresql:// schemes; when
// the URL carries no port or sslmode the usual development defaults (5432,
// disable) apply. Extra query parameters pass through in key order.
func dsnFromURL(rawURL string) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("database URL is empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse database URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("invalid database URL scheme: %s (expected postgres or postgresql)", u.Scheme)
	}

	port := u.Port()
	if port == "" {
		port = "5432"
	}

	var user, password string
	if u.User != nil {
		user = u.User.Username()
		password, _ = u.User.Password()
	}

	query := u.Query()
	sslMode := query.Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}
	query.Del("sslmode")

	var b strings.Builder
	fmt.Fprintf(&b, "host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		u.Hostname(), port, user, password, strings.TrimPrefix(u.Path, "/"), sslMode)

	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%s", key, query.Get(key))
	}

	return b.String(), nil
}
