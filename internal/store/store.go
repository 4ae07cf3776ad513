// Package store provides the customer table: CRUD access plus a row-level
// change feed. Two backends exist, an embedded SQLite database and a
// hosted Postgres, selected at composition time. Both deliver change
// events at-least-once with no ordering guarantee relative to local
// writes; an insert issued through a Store may be echoed back on its own
// feed.
package store

import "context"

// EventType classifies a row-level change.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Event is one row-level change. New is set for insert/update, Old for
// delete. Backends construct Events fully populated; consumers never
// need to guess at field presence.
type Event struct {
	Type EventType `json:"type"`
	New  *Customer `json:"new,omitempty"`
	Old  *Customer `json:"old,omitempty"`
}

// Subscription is an opaque handle returned by Subscribe.
type Subscription interface {
	// Close releases the subscription. Idempotent.
	Close()
}

// Store is the customer table contract.
type Store interface {
	// List fetches the full collection. No pagination.
	List(ctx context.Context) ([]Customer, error)

	// Get returns the customer with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (Customer, error)

	// Create inserts a new customer. The store assigns ID and CreatedAt;
	// a caller-supplied ID or a missing name/accountNumber is rejected
	// with ErrConstraint.
	Create(ctx context.Context, c Customer) (Customer, error)

	// Update overwrites the mutable fields of an existing row and
	// returns the stored result. ErrNotFound if id is absent.
	Update(ctx context.Context, id string, c Customer) (Customer, error)

	// Delete removes a row. Returns false (and no error) when the id
	// was already absent.
	Delete(ctx context.Context, id string) (bool, error)

	// Subscribe registers fn to be invoked once per row-level change.
	// Delivery is at-least-once and unordered.
	Subscribe(fn func(Event)) Subscription

	Close() error
}

// ReportStore is the persisted performance-report surface.
type ReportStore interface {
	SaveReport(ctx context.Context, r PerformanceReport) (PerformanceReport, error)
	ListReports(ctx context.Context, from, to string) ([]PerformanceReport, error)
}
