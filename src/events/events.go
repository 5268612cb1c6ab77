// Package events carries transaction lifecycle notifications from the write
// path to whoever is listening, usually an open dashboard refreshing itself.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionCreated = "transaction.created"
	TransactionDeleted = "transaction.deleted"
)

type Event struct {
	Type            string          `json:"eventType"`
	UserID          string          `json:"userId"`
	TransactionID   string          `json:"transactionId"`
	TransactionType string          `json:"transactionType"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Timestamp       time.Time       `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscribe returns a channel of the user's events and a cancel func that
// must be called to release the subscription.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string) (<-chan Event, func(), error)
}

type Bus interface {
	Publisher
	Subscriber
}
