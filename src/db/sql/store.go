package db

import (
	"context"
	"errors"
	"time"

	"finanzas-server/src/apperr"
	"finanzas-server/src/models"
	"finanzas-server/src/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store runs the transaction service on postgres.
type Store struct {
	pool *pgxpool.Pool
}

var _ service.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) WithinTx(ctx context.Context, fn func(uow service.UnitOfWork) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return apperr.Storage("failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, rbErr)
			}
		}
	}()

	if err = fn(&unitOfWork{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return apperr.FromPG("transaction", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*models.Transaction, error) {
	return GetTransaction(ctx, s.pool, userID, id)
}

func (s *Store) ListTransactions(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.Transaction, error) {
	return ListTransactions(ctx, s.pool, userID, filter)
}

func (s *Store) FindTransactionByScope(ctx context.Context, userID, scope string) (*models.Transaction, error) {
	return FindTransactionByScope(ctx, s.pool, userID, scope)
}

func (s *Store) ListAccounts(ctx context.Context, userID string, kind models.AccountKind) ([]models.Account, error) {
	return ListAccounts(ctx, s.pool, userID, kind)
}

func (s *Store) TransactionStats(ctx context.Context, userID string, since time.Time) (service.TransactionStats, error) {
	avg, recent, err := TransactionStats(ctx, s.pool, userID, since)
	if err != nil {
		return service.TransactionStats{}, err
	}
	return service.TransactionStats{AverageAmount: avg, RecentCount: recent}, nil
}

func (s *Store) Dashboard(ctx context.Context, userID string, from, to time.Time) (*models.Dashboard, error) {
	return Dashboard(ctx, s.pool, userID, from, to)
}

// unitOfWork binds the package's queries to one open pgx.Tx.
type unitOfWork struct {
	q Querier
}

func (u *unitOfWork) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	return InsertTransaction(ctx, u.q, t)
}

func (u *unitOfWork) GetTransaction(ctx context.Context, userID, id string) (*models.Transaction, error) {
	return GetTransaction(ctx, u.q, userID, id)
}

func (u *unitOfWork) DeleteTransaction(ctx context.Context, userID, id string) error {
	return DeleteTransaction(ctx, u.q, userID, id)
}

func (u *unitOfWork) FindTransactionByScope(ctx context.Context, userID, scope string) (*models.Transaction, error) {
	return FindTransactionByScope(ctx, u.q, userID, scope)
}

func (u *unitOfWork) AdjustAccountBalance(ctx context.Context, userID string, ref models.AccountRef, delta decimal.Decimal) (bool, error) {
	return AdjustAccountBalance(ctx, u.q, userID, ref, delta)
}

func (u *unitOfWork) AdjustGoalProgress(ctx context.Context, userID, goalID string, delta decimal.Decimal) (bool, error) {
	return AdjustGoalProgress(ctx, u.q, userID, goalID, delta)
}

func (u *unitOfWork) GetAccount(ctx context.Context, userID string, ref models.AccountRef) (*models.Account, error) {
	return GetAccount(ctx, u.q, userID, ref)
}

func (u *unitOfWork) ListAccounts(ctx context.Context, userID string, kind models.AccountKind) ([]models.Account, error) {
	return ListAccounts(ctx, u.q, userID, kind)
}
