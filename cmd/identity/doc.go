// Package identity owns the durable user records that tube's auth core and
// media handlers are scoped to.
//
// It exposes the Store persistence boundary with a PostgreSQL implementation
// for production and an in-memory implementation for tests and DB-less dev
// runs. The single refresh-token slot that lives on each user row is NOT
// managed here; the session package owns that column through its own store
// adapter so that rotation invariants stay in one place.
package identity
