package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finanzas-server/src/apperr"
	"finanzas-server/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const transactionColumns = `
	id, user_id, type, category, amount, currency, description, date,
	COALESCE(from_account_id, ''), COALESCE(to_account_id, ''),
	COALESCE(from_bank_account_id, ''), COALESCE(to_bank_account_id, ''),
	COALESCE(from_wallet_id, ''), COALESCE(to_wallet_id, ''),
	COALESCE(contact_id, ''), COALESCE(goal_id, ''),
	payment_method, transfer_recipient, transfer_sender,
	is_transfer_between_own_accounts, is_transfer_to_third_party,
	is_cash_withdrawal, is_cash_deposit,
	COALESCE(idempotency_scope, ''), request_fingerprint, created_at`

// refColumns splits a ref into the (generic, bank, wallet) column triple.
func refColumns(ref models.AccountRef) (generic, bank, wallet any) {
	switch ref.Kind {
	case models.AccountKindGeneric:
		generic = nullIfEmpty(ref.ID)
	case models.AccountKindBank:
		bank = nullIfEmpty(ref.ID)
	case models.AccountKindWallet:
		wallet = nullIfEmpty(ref.ID)
	}
	return
}

func refFromColumns(generic, bank, wallet string) models.AccountRef {
	switch {
	case generic != "":
		return models.GenericRef(generic)
	case bank != "":
		return models.BankRef(bank)
	case wallet != "":
		return models.WalletRef(wallet)
	}
	return models.AccountRef{}
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var (
		t                                 models.Transaction
		fromGeneric, fromBank, fromWallet string
		toGeneric, toBank, toWallet       string
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.Type, &t.Category, &t.Amount, &t.Currency, &t.Description, &t.Date,
		&fromGeneric, &toGeneric,
		&fromBank, &toBank,
		&fromWallet, &toWallet,
		&t.ContactID, &t.GoalID,
		&t.PaymentMethod, &t.TransferRecipient, &t.TransferSender,
		&t.IsTransferBetweenOwnAccounts, &t.IsTransferToThirdParty,
		&t.IsCashWithdrawal, &t.IsCashDeposit,
		&t.IdempotencyScope, &t.RequestFingerprint, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.From = refFromColumns(fromGeneric, fromBank, fromWallet)
	t.To = refFromColumns(toGeneric, toBank, toWallet)
	return &t, nil
}

func InsertTransaction(ctx context.Context, q Querier, t *models.Transaction) error {
	fromGeneric, fromBank, fromWallet := refColumns(t.From)
	toGeneric, toBank, toWallet := refColumns(t.To)
	query := `
		INSERT INTO transactions (
			id, user_id, type, category, amount, currency, description, date,
			from_account_id, to_account_id, from_bank_account_id, to_bank_account_id,
			from_wallet_id, to_wallet_id, contact_id, goal_id,
			payment_method, transfer_recipient, transfer_sender,
			is_transfer_between_own_accounts, is_transfer_to_third_party,
			is_cash_withdrawal, is_cash_deposit,
			idempotency_scope, request_fingerprint, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $16,
			$17, $18, $19,
			$20, $21,
			$22, $23,
			$24, $25, $26
		)
	`
	_, err := q.Exec(ctx, query,
		t.ID, t.UserID, string(t.Type), t.Category, t.Amount, t.Currency, t.Description, t.Date,
		fromGeneric, toGeneric, fromBank, toBank,
		fromWallet, toWallet, nullIfEmpty(t.ContactID), nullIfEmpty(t.GoalID),
		t.PaymentMethod, t.TransferRecipient, t.TransferSender,
		t.IsTransferBetweenOwnAccounts, t.IsTransferToThirdParty,
		t.IsCashWithdrawal, t.IsCashDeposit,
		nullIfEmpty(t.IdempotencyScope), t.RequestFingerprint, t.CreatedAt,
	)
	if err != nil {
		return apperr.FromPG("transaction", err)
	}
	return nil
}

func GetTransaction(ctx context.Context, q Querier, userID, id string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND user_id = $2`
	t, err := scanTransaction(q.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, apperr.FromPG("transaction", err)
	}
	return t, nil
}

func FindTransactionByScope(ctx context.Context, q Querier, userID, scope string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 AND idempotency_scope = $2`
	t, err := scanTransaction(q.QueryRow(ctx, query, userID, scope))
	if err != nil {
		return nil, apperr.FromPG("transaction", err)
	}
	return t, nil
}

func DeleteTransaction(ctx context.Context, q Querier, userID, id string) error {
	tag, err := q.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return apperr.FromPG("transaction", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("transaction")
	}
	return nil
}

func ListTransactions(ctx context.Context, q Querier, userID string, filter models.TransactionFilter) ([]models.Transaction, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("date <= $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY date DESC, created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.FromPG("transaction", err)
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, apperr.FromPG("transaction", err)
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromPG("transaction", err)
	}
	return txs, nil
}

// TransactionStats returns the mean absolute amount over all of the user's
// transactions and how many were recorded since the given instant.
func TransactionStats(ctx context.Context, q Querier, userID string, since time.Time) (decimal.Decimal, int, error) {
	query := `
		SELECT COALESCE(AVG(ABS(amount)), 0), COUNT(*) FILTER (WHERE created_at >= $2)
		FROM transactions
		WHERE user_id = $1
	`
	var (
		avg    decimal.Decimal
		recent int
	)
	if err := q.QueryRow(ctx, query, userID, since).Scan(&avg, &recent); err != nil {
		return decimal.Zero, 0, apperr.FromPG("transaction", err)
	}
	return avg, recent, nil
}
