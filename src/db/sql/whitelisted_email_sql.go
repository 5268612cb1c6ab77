package db

import (
	"context"
	"strings"

	"finanzas-server/src/apperr"
	"finanzas-server/src/models"
)

func CreateWhitelistedEmail(ctx context.Context, q Querier, id, email string) (*models.WhitelistedEmail, error) {
	query := `
		INSERT INTO whitelisted_emails (id, email)
		VALUES ($1, $2)
		RETURNING id, email, created_at, updated_at
	`
	var w models.WhitelistedEmail
	err := q.QueryRow(ctx, query, id, strings.ToLower(email)).Scan(&w.ID, &w.Email, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, apperr.FromPG("whitelisted email", err)
	}
	return &w, nil
}

func GetAllWhitelistedEmails(ctx context.Context, q Querier) ([]models.WhitelistedEmail, error) {
	rows, err := q.Query(ctx, `SELECT id, email, created_at, updated_at FROM whitelisted_emails ORDER BY email`)
	if err != nil {
		return nil, apperr.FromPG("whitelisted email", err)
	}
	defer rows.Close()

	emails := []models.WhitelistedEmail{}
	for rows.Next() {
		var w models.WhitelistedEmail
		if err := rows.Scan(&w.ID, &w.Email, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, apperr.FromPG("whitelisted email", err)
		}
		emails = append(emails, w)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromPG("whitelisted email", err)
	}
	return emails, nil
}

func IsEmailWhitelisted(ctx context.Context, q Querier, email string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM whitelisted_emails WHERE email = $1)`, strings.ToLower(email)).Scan(&exists)
	if err != nil {
		return false, apperr.FromPG("whitelisted email", err)
	}
	return exists, nil
}

func DeleteWhitelistedEmail(ctx context.Context, q Querier, id string) error {
	cmd, err := q.Exec(ctx, `DELETE FROM whitelisted_emails WHERE id = $1`, id)
	if err != nil {
		return apperr.FromPG("whitelisted email", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("whitelisted email")
	}
	return nil
}
