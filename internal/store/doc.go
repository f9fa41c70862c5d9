// Package store defines the persistence interfaces used by the service
// and scheduler layers, together with the sentinel errors all store
// implementations share. Concrete implementations live under
// internal/platform (e.g. the PostgreSQL store).
package store
