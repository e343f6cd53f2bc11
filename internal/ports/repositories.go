package ports

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/mallmap/core/internal/domain/entities"
)

// ErrDocumentNotFound is returned by a DocumentStore that has no document yet.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore reads and overwrites the raw JSON document holding all malls.
type DocumentStore interface {
	Read(ctx context.Context) ([]byte, error)
	// Write replaces the whole document.
	Write(ctx context.Context, data []byte) error
	Ping(ctx context.Context) error
	Name() string
}

// MallRepository owns the in-memory mall collection.
type MallRepository interface {
	Load(ctx context.Context) error
	List(ctx context.Context) []entities.Mall
	FindMall(ctx context.Context, id int) (entities.Mall, error)
	// FindStore searches only mallID when it is non-nil, otherwise every mall in order.
	FindStore(ctx context.Context, storeID int, mallID *int) (entities.Store, entities.Mall, error)
	// Mutate runs fn over the live collection under the write lock and
	// persists when fn returns nil.
	Mutate(ctx context.Context, fn func(malls []entities.Mall) error) error
	Persist(ctx context.Context) error
	FlattenStores() iter.Seq[entities.StoreView]
	Ping(ctx context.Context) error
}

// UserRepository resolves login accounts.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	List(ctx context.Context) []entities.User
}

// EventType names a status event.
type EventType string

const (
	EventMallToggled  EventType = "mall.toggled"
	EventStoreToggled EventType = "store.toggled"
	EventStoreUpdated EventType = "store.updated"
)

// StatusEvent is emitted after a mutation has been persisted.
type StatusEvent struct {
	Type       EventType     `json:"type"`
	MallID     int           `json:"mallId"`
	StoreID    int           `json:"storeId,omitempty"`
	IsOpen     *bool         `json:"isOpen,omitempty"`
	Actor      string        `json:"actor"`
	Role       entities.Role `json:"role"`
	Cascade    bool          `json:"cascade,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// EventPublisher delivers status events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...StatusEvent) error
	Close() error
}
