package db

import (
	"context"

	"finanzas-server/src/apperr"
	"finanzas-server/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const goalColumns = `id, user_id, name, target_amount, current_amount, currency, status, deadline, created_at, updated_at`

func scanGoal(row pgx.Row) (*models.SavingsGoal, error) {
	var g models.SavingsGoal
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &g.Currency, &g.Status, &g.Deadline, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func CreateGoal(ctx context.Context, q Querier, g *models.SavingsGoal) (*models.SavingsGoal, error) {
	query := `
		INSERT INTO savings_goals (id, user_id, name, target_amount, currency, status, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + goalColumns
	created, err := scanGoal(q.QueryRow(ctx, query, g.ID, g.UserID, g.Name, g.TargetAmount, g.Currency, string(g.Status), g.Deadline))
	if err != nil {
		return nil, apperr.FromPG("savings goal", err)
	}
	return created, nil
}

func GetGoal(ctx context.Context, q Querier, userID, id string) (*models.SavingsGoal, error) {
	g, err := scanGoal(q.QueryRow(ctx, `SELECT `+goalColumns+` FROM savings_goals WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, apperr.FromPG("savings goal", err)
	}
	return g, nil
}

// ListGoals returns the user's goals, optionally only those with status.
func ListGoals(ctx context.Context, q Querier, userID string, status models.GoalStatus) ([]models.SavingsGoal, error) {
	query := `
		SELECT ` + goalColumns + `
		FROM savings_goals
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY name
	`
	rows, err := q.Query(ctx, query, userID, string(status))
	if err != nil {
		return nil, apperr.FromPG("savings goal", err)
	}
	defer rows.Close()

	goals := []models.SavingsGoal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, apperr.FromPG("savings goal", err)
		}
		goals = append(goals, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromPG("savings goal", err)
	}
	return goals, nil
}

// UpdateGoal edits descriptive fields only; current_amount is owned by the
// transactions that reference the goal.
func UpdateGoal(ctx context.Context, q Querier, userID, id string, req models.UpdateGoalRequest) (*models.SavingsGoal, error) {
	query := `
		UPDATE savings_goals
		SET name = COALESCE(NULLIF($1, ''), name),
			target_amount = COALESCE($2, target_amount),
			status = COALESCE(NULLIF($3, ''), status),
			deadline = COALESCE($4, deadline),
			updated_at = NOW()
		WHERE id = $5 AND user_id = $6
		RETURNING ` + goalColumns
	g, err := scanGoal(q.QueryRow(ctx, query, req.Name, req.TargetAmount, string(req.Status), req.Deadline, id, userID))
	if err != nil {
		return nil, apperr.FromPG("savings goal", err)
	}
	return g, nil
}

func AdjustGoalProgress(ctx context.Context, q Querier, userID, id string, delta decimal.Decimal) (bool, error) {
	query := `
		UPDATE savings_goals SET current_amount = current_amount + $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3
	`
	tag, err := q.Exec(ctx, query, delta, id, userID)
	if err != nil {
		return false, apperr.FromPG("savings goal", err)
	}
	return tag.RowsAffected() > 0, nil
}

func DeleteGoal(ctx context.Context, q Querier, userID, id string) error {
	tag, err := q.Exec(ctx, `DELETE FROM savings_goals WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return apperr.FromPG("savings goal", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("savings goal")
	}
	return nil
}
