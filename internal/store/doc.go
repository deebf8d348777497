// Package store provides persistence for profile-gateway.
//
// # Overview
//
// The store holds the two kinds of long-lived state the gateway needs:
//
//   - Pinned profiles: operator-curated profile overrides that are served
//     before any remote lookup, keyed by address.
//   - Admin tokens: bearer credentials for the admin API. Only the bcrypt
//     hash of each token secret is persisted.
//
// Cache entries are deliberately NOT persisted; the resolution cache is a
// purely in-memory structure (see internal/cache).
//
// # Implementation
//
// SQLiteStore implements the Store interface using modernc.org/sqlite (pure
// Go, no CGO) with WAL mode enabled. The schema is created automatically on
// open. Pass ":memory:" as the path for an ephemeral store, which tests use.
//
// # Usage
//
//	s, err := store.NewSQLiteStore("/var/lib/profile-gateway/gateway.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
// Missing records are reported as store.ErrNotFound, which callers check
// with errors.Is.
package store
