package db

import (
	"context"
	"time"

	"finanzas-server/src/apperr"
	"finanzas-server/src/models"
)

func Dashboard(ctx context.Context, q Querier, userID string, from, to time.Time) (*models.Dashboard, error) {
	d := &models.Dashboard{
		From:         from,
		To:           to,
		Totals:       []models.CurrencyTotals{},
		CountsByType: map[models.TransactionType]int{},
	}

	totalsQuery := `
		SELECT currency,
			COALESCE(SUM(amount) FILTER (WHERE type = 'income'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0)
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		GROUP BY currency
		ORDER BY currency
	`
	rows, err := q.Query(ctx, totalsQuery, userID, from, to)
	if err != nil {
		return nil, apperr.FromPG("dashboard", err)
	}
	for rows.Next() {
		var ct models.CurrencyTotals
		if err := rows.Scan(&ct.Currency, &ct.Income, &ct.Expense); err != nil {
			rows.Close()
			return nil, apperr.FromPG("dashboard", err)
		}
		ct.Net = ct.Income.Sub(ct.Expense)
		d.Totals = append(d.Totals, ct)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.FromPG("dashboard", err)
	}

	countsQuery := `
		SELECT type, COUNT(*)
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		GROUP BY type
	`
	rows, err = q.Query(ctx, countsQuery, userID, from, to)
	if err != nil {
		return nil, apperr.FromPG("dashboard", err)
	}
	for rows.Next() {
		var (
			t models.TransactionType
			n int
		)
		if err := rows.Scan(&t, &n); err != nil {
			rows.Close()
			return nil, apperr.FromPG("dashboard", err)
		}
		d.CountsByType[t] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.FromPG("dashboard", err)
	}

	if d.Accounts, err = ListAccounts(ctx, q, userID, ""); err != nil {
		return nil, err
	}
	if d.Goals, err = ListGoals(ctx, q, userID, models.GoalActive); err != nil {
		return nil, err
	}
	return d, nil
}
