package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CapabilityLen is the size of a capability in bytes.
const CapabilityLen = 32

// ErrNotFound is returned by Get when no record exists for a pattern.
var ErrNotFound = errors.New("store: record not found")

// Record is one stored iota.
type Record struct {
	Pattern    string
	Data       []byte
	Capability []byte
	ExpiresAt  time.Time
}

// NewCapability returns CapabilityLen bytes from the system CSPRNG.
func NewCapability() ([]byte, error) {
	c := make([]byte, CapabilityLen)
	if _, err := rand.Read(c); err != nil {
		return nil, fmt.Errorf("generate capability: %w", err)
	}
	return c, nil
}

// Put inserts rec, replacing any record stored under the same pattern.
func (s *Store) Put(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO hex_data_storage (pattern, data, capability, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(pattern) DO UPDATE SET
			data = excluded.data,
			capability = excluded.capability,
			expires_at = excluded.expires_at
	`,
		rec.Pattern,
		rec.Data,
		rec.Capability,
		rec.ExpiresAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// Get returns the payload stored under pattern, or ErrNotFound.
func (s *Store) Get(ctx context.Context, pattern string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM hex_data_storage WHERE pattern = ?
	`, pattern).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return data, nil
}

// DeleteIf removes the record under pattern only if its capability equals
// capability. It reports whether a row was removed.
func (s *Store) DeleteIf(ctx context.Context, pattern string, capability []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM hex_data_storage WHERE pattern = ? AND capability = ?
	`, pattern, capability)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete record: rows affected: %w", err)
	}
	return n > 0, nil
}

// Prune removes every record that expired before now and returns how
// many were removed.
func (s *Store) Prune(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM hex_data_storage WHERE expires_at < ?
	`, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune: rows affected: %w", err)
	}
	return n, nil
}

// List returns every record ordered by expiry, soonest first.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT pattern, data, capability, expires_at
		FROM hex_data_storage
		ORDER BY expires_at ASC, pattern COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			rec     Record
			expires int64
		)
		if err := rows.Scan(&rec.Pattern, &rec.Data, &rec.Capability, &expires); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.ExpiresAt = time.Unix(0, expires)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Count returns the number of stored records, expired or not.
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hex_data_storage`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
