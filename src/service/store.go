package service

import (
	"context"
	"time"

	"finanzas-server/src/models"
	"finanzas-server/src/reconciler"

	"github.com/shopspring/decimal"
)

// UnitOfWork is everything a transaction write needs while its database
// transaction is open.
type UnitOfWork interface {
	reconciler.UnitOfWork
	GetAccount(ctx context.Context, userID string, ref models.AccountRef) (*models.Account, error)
	ListAccounts(ctx context.Context, userID string, kind models.AccountKind) ([]models.Account, error)
	FindTransactionByScope(ctx context.Context, userID, scope string) (*models.Transaction, error)
}

// Store is the persistence the transaction service runs on. WithinTx commits
// when fn returns nil and rolls back otherwise.
type Store interface {
	WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error

	GetTransaction(ctx context.Context, userID, id string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.Transaction, error)
	FindTransactionByScope(ctx context.Context, userID, scope string) (*models.Transaction, error)
	ListAccounts(ctx context.Context, userID string, kind models.AccountKind) ([]models.Account, error)
	TransactionStats(ctx context.Context, userID string, since time.Time) (TransactionStats, error)
	Dashboard(ctx context.Context, userID string, from, to time.Time) (*models.Dashboard, error)
}

type TransactionStats struct {
	AverageAmount decimal.Decimal
	RecentCount   int
}
