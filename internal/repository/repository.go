package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_shop/internal/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrCartExists   = errors.New("cart already exists")
	ErrStaleCart    = errors.New("cart was modified concurrently")
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already registered")

	// ErrSettleConflict means a settlement precondition (wallet balance,
	// cart version) changed between the service's read and the transaction.
	ErrSettleConflict = errors.New("settlement preconditions changed")
)

// CartRepository defines the interface for cart data operations.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	FindByOwner(ctx context.Context, userID string) (*domain.Cart, error)
	Create(ctx context.Context, cart *domain.Cart) error
	// Save is a conditional write on the cart's version; a stale
	// version returns ErrStaleCart and persists nothing.
	Save(ctx context.Context, cart *domain.Cart) error
}

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Save(ctx context.Context, user *domain.User) error
	Deposit(ctx context.Context, id string, amount float64) (*domain.User, error)
}

// OutboxEvent is written in the settlement transaction and drained to
// Kafka by the publisher poller.
type OutboxEvent struct {
	ID          string     `bson:"_id"`
	AggregateID string     `bson:"aggregate_id"`
	EventType   string     `bson:"event_type"`
	Payload     []byte     `bson:"payload"`
	Published   bool       `bson:"published"`
	CreatedAt   time.Time  `bson:"created_at"`
	PublishedAt *time.Time `bson:"published_at,omitempty"`
}

type OutboxRepository interface {
	GetUnpublishedEvents(ctx context.Context, limit int64) ([]*OutboxEvent, error)
	MarkEventAsPublished(ctx context.Context, id string) error
}

// SettlementStore applies checkout's wallet debit, cart clear and outbox
// insert as one transaction. No partial state survives a failure.
type SettlementStore interface {
	Settle(ctx context.Context, userID string, total float64, cartVersion int64, event *OutboxEvent) error
}

type indexed interface {
	CreateIndexes(ctx context.Context) error
}

// EnsureIndexes runs index creation on every store that maintains one.
func EnsureIndexes(ctx context.Context, stores ...interface{}) error {
	for _, s := range stores {
		if ix, ok := s.(indexed); ok {
			if err := ix.CreateIndexes(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}
