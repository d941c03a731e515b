package storage

import (
	"errors"
	"strings"

	"github.com/julianstephens/habitbot/internal/storage/postgres"
	"github.com/julianstephens/habitbot/internal/storage/sqlite"
)

var (
	_ Provider = (*sqlite.Store)(nil)
	_ Provider = (*postgres.Store)(nil)
)

// IsPostgres reports whether the configured location is a PostgreSQL connection string
func IsPostgres(location string) bool {
	return strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://")
}

// HasEmbeddedCredentials reports whether a PostgreSQL connection string carries a password
func HasEmbeddedCredentials(connStr string) bool {
	_, err := postgres.ValidateConnString(connStr)
	return errors.Is(err, postgres.ErrEmbeddedCredentials)
}

// New returns the provider for location without opening it.
// PostgreSQL URLs select the Postgres engine; anything else is treated as a SQLite file path.
func New(location string) Provider {
	if IsPostgres(location) {
		return postgres.New(location)
	}
	return sqlite.NewStore(location)
}
