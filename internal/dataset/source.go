package dataset

import (
	"context"
	"fmt"
	"time"
)

// Source loads the raw marketplace tables from one backing store.
// Implementations mirror each other: connect with a DSN (or directory for
// the CSV source), load the full snapshot once, close.
type Source interface {
	Connect(dsn string) error
	Load(ctx context.Context) (*Tables, error)
	Close() error
}

// DataIntegrityError is fatal: a row violates the relational contract
// (missing join key, unparseable timestamp) and the run cannot continue.
type DataIntegrityError struct {
	Table  string
	Key    string
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity: table %s key %q: %s", e.Table, e.Key, e.Reason)
}

var timestampLayouts = []string{"2006-01-02 15:04:05", "2006-01-02", time.RFC3339}

// parseTimestamp parses a required timestamp column.
func parseTimestamp(table, key, value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &DataIntegrityError{Table: table, Key: key, Reason: fmt.Sprintf("unparseable timestamp %q", value)}
}

// parseOptionalTimestamp tolerates empty values; a present but garbled
// value is still an integrity failure.
func parseOptionalTimestamp(table, key, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return parseTimestamp(table, key, value)
}
