package db

import (
	"context"
	"fmt"
	"time"

	"finanzas-server/src/apperr"
	"finanzas-server/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var accountTables = map[models.AccountKind]string{
	models.AccountKindGeneric: "accounts",
	models.AccountKindBank:    "bank_accounts",
	models.AccountKindWallet:  "wallets",
}

func accountTable(kind models.AccountKind) (string, error) {
	table, ok := accountTables[kind]
	if !ok {
		return "", apperr.Validation("unknown account kind %q", kind)
	}
	return table, nil
}

const accountColumns = `id, user_id, name, institution, number, currency, balance, created_at, updated_at`

func scanAccount(row pgx.Row, kind models.AccountKind) (*models.Account, error) {
	a := models.Account{Kind: kind}
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Institution, &a.Number, &a.Currency, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func CreateAccount(ctx context.Context, q Querier, a *models.Account) (*models.Account, error) {
	table, err := accountTable(a.Kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, name, institution, number, currency, balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s
	`, table, accountColumns)
	created, err := scanAccount(q.QueryRow(ctx, query, a.ID, a.UserID, a.Name, a.Institution, a.Number, a.Currency, a.Balance), a.Kind)
	if err != nil {
		return nil, apperr.FromPG(string(a.Kind), err)
	}
	return created, nil
}

func GetAccount(ctx context.Context, q Querier, userID string, ref models.AccountRef) (*models.Account, error) {
	table, err := accountTable(ref.Kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND user_id = $2`, accountColumns, table)
	a, err := scanAccount(q.QueryRow(ctx, query, ref.ID, userID), ref.Kind)
	if err != nil {
		return nil, apperr.FromPG(string(ref.Kind), err)
	}
	return a, nil
}

// ListAccounts lists one namespace, or all three when kind is empty.
func ListAccounts(ctx context.Context, q Querier, userID string, kind models.AccountKind) ([]models.Account, error) {
	kinds := models.AccountKinds
	if kind != "" {
		if _, err := accountTable(kind); err != nil {
			return nil, err
		}
		kinds = []models.AccountKind{kind}
	}

	accounts := []models.Account{}
	for _, k := range kinds {
		query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1 ORDER BY name`, accountColumns, accountTables[k])
		rows, err := q.Query(ctx, query, userID)
		if err != nil {
			return nil, apperr.FromPG(string(k), err)
		}
		for rows.Next() {
			a, err := scanAccount(rows, k)
			if err != nil {
				rows.Close()
				return nil, apperr.FromPG(string(k), err)
			}
			accounts = append(accounts, *a)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, apperr.FromPG(string(k), err)
		}
	}
	return accounts, nil
}

// UpdateAccountMetadata never touches balance or currency. Empty fields are
// left unchanged.
func UpdateAccountMetadata(ctx context.Context, q Querier, userID string, ref models.AccountRef, req models.UpdateAccountRequest) (*models.Account, error) {
	table, err := accountTable(ref.Kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = COALESCE(NULLIF($1, ''), name),
			institution = COALESCE(NULLIF($2, ''), institution),
			number = COALESCE(NULLIF($3, ''), number),
			updated_at = $4
		WHERE id = $5 AND user_id = $6
		RETURNING %s
	`, table, accountColumns)
	a, err := scanAccount(q.QueryRow(ctx, query, req.Name, req.Institution, req.Number, time.Now().UTC(), ref.ID, userID), ref.Kind)
	if err != nil {
		return nil, apperr.FromPG(string(ref.Kind), err)
	}
	return a, nil
}

// SetAccountBalance overwrites a balance outside any transaction. It is the
// administrative correction path.
func SetAccountBalance(ctx context.Context, q Querier, userID string, ref models.AccountRef, balance decimal.Decimal) (*models.Account, error) {
	table, err := accountTable(ref.Kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		UPDATE %s SET balance = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3
		RETURNING %s
	`, table, accountColumns)
	a, err := scanAccount(q.QueryRow(ctx, query, balance, ref.ID, userID), ref.Kind)
	if err != nil {
		return nil, apperr.FromPG(string(ref.Kind), err)
	}
	return a, nil
}

// AdjustAccountBalance adds delta in place. It reports false when no account
// of the user matches ref.
func AdjustAccountBalance(ctx context.Context, q Querier, userID string, ref models.AccountRef, delta decimal.Decimal) (bool, error) {
	table, err := accountTable(ref.Kind)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`
		UPDATE %s SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3
	`, table)
	tag, err := q.Exec(ctx, query, delta, ref.ID, userID)
	if err != nil {
		return false, apperr.FromPG(string(ref.Kind), err)
	}
	return tag.RowsAffected() > 0, nil
}

func DeleteAccount(ctx context.Context, q Querier, userID string, ref models.AccountRef) error {
	table, err := accountTable(ref.Kind)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, table), ref.ID, userID)
	if err != nil {
		return apperr.FromPG(string(ref.Kind), err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(string(ref.Kind))
	}
	return nil
}
