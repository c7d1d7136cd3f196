package store

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testEpoch is a fixed instant for expiry arithmetic.
var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestRecord creates a record expiring at expires with a
// capability derived from fill.
func createTestRecord(pattern string, data []byte, fill byte, expires time.Time) Record {
	return Record{
		Pattern:    pattern,
		Data:       data,
		Capability: bytes.Repeat([]byte{fill}, CapabilityLen),
		ExpiresAt:  expires,
	}
}
