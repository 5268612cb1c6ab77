package db

import (
	"context"
	"fmt"

	"finanzas-server/src/apperr"
	"finanzas-server/src/models"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, email, first_name, last_name, password_hash, super_admin, locked, last_login, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.SuperAdmin,
		&user.Locked,
		&user.LastLogin,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByID(ctx context.Context, q Querier, id string) (*models.User, error) {
	user, err := scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, apperr.FromPG("user", err)
	}
	return user, nil
}

func GetUserByUsername(ctx context.Context, q Querier, username string) (*models.User, error) {
	user, err := scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, apperr.FromPG("user", err)
	}
	return user, nil
}

func GetUserByEmail(ctx context.Context, q Querier, email string) (*models.User, error) {
	user, err := scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, apperr.FromPG("user", err)
	}
	return user, nil
}

func CreateUser(ctx context.Context, q Querier, id string, req models.RegisterRequest, hashedPassword []byte) (*models.RegisterResponse, error) {
	query := `
		INSERT INTO users (id, first_name, last_name, username, email, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, super_admin
	`

	resp := models.RegisterResponse{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	err := q.QueryRow(
		ctx,
		query,
		id,
		req.FirstName,
		req.LastName,
		req.Username,
		req.Email,
		hashedPassword,
	).Scan(&resp.ID, &resp.SuperAdmin)
	if err != nil {
		return nil, apperr.FromPG("user", err)
	}

	return &resp, nil
}

func UpdateUserLastLogin(ctx context.Context, q Querier, id string) error {
	if _, err := q.Exec(ctx, `UPDATE users SET last_login = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// UpdateUserProfile changes the non-empty fields among first name, last name
// and email.
func UpdateUserProfile(ctx context.Context, q Querier, id, firstName, lastName, email string) (*models.User, error) {
	query := `
		UPDATE users
		SET first_name = COALESCE(NULLIF($1, ''), first_name),
			last_name = COALESCE(NULLIF($2, ''), last_name),
			email = COALESCE(NULLIF($3, ''), email)
		WHERE id = $4
		RETURNING ` + userColumns
	user, err := scanUser(q.QueryRow(ctx, query, firstName, lastName, email, id))
	if err != nil {
		return nil, apperr.FromPG("user", err)
	}
	return user, nil
}

func UpdateUserPassword(ctx context.Context, q Querier, id string, hashedPassword []byte) error {
	tag, err := q.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hashedPassword, id)
	if err != nil {
		return apperr.FromPG("user", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user")
	}
	return nil
}

func DeleteUser(ctx context.Context, q Querier, id string) error {
	query := `
		DELETE FROM users
		WHERE id = $1;
	`
	if _, err := q.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func ListUsers(ctx context.Context, q Querier) ([]models.User, error) {
	rows, err := q.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, apperr.FromPG("user", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, apperr.FromPG("user", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromPG("user", err)
	}
	return users, nil
}

func SetUserLocked(ctx context.Context, q Querier, id string, locked bool) error {
	tag, err := q.Exec(ctx, `UPDATE users SET locked = $1 WHERE id = $2`, locked, id)
	if err != nil {
		return apperr.FromPG("user", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user")
	}
	return nil
}
