package db

import (
	"context"

	"finanzas-server/src/apperr"
	"finanzas-server/src/models"

	"github.com/jackc/pgx/v5"
)

const contactColumns = `id, user_id, name, email, phone, alias, notes, created_at`

func scanContact(row pgx.Row) (*models.Contact, error) {
	var c models.Contact
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Alias, &c.Notes, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func CreateContact(ctx context.Context, q Querier, c *models.Contact) (*models.Contact, error) {
	query := `
		INSERT INTO contacts (id, user_id, name, email, phone, alias, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + contactColumns
	created, err := scanContact(q.QueryRow(ctx, query, c.ID, c.UserID, c.Name, c.Email, c.Phone, c.Alias, c.Notes))
	if err != nil {
		return nil, apperr.FromPG("contact", err)
	}
	return created, nil
}

func GetContact(ctx context.Context, q Querier, userID, id string) (*models.Contact, error) {
	c, err := scanContact(q.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, apperr.FromPG("contact", err)
	}
	return c, nil
}

func ListContacts(ctx context.Context, q Querier, userID string) ([]models.Contact, error) {
	rows, err := q.Query(ctx, `SELECT `+contactColumns+` FROM contacts WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, apperr.FromPG("contact", err)
	}
	defer rows.Close()

	contacts := []models.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, apperr.FromPG("contact", err)
		}
		contacts = append(contacts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromPG("contact", err)
	}
	return contacts, nil
}

func UpdateContact(ctx context.Context, q Querier, userID, id string, req models.UpdateContactRequest) (*models.Contact, error) {
	query := `
		UPDATE contacts
		SET name = COALESCE(NULLIF($1, ''), name),
			email = COALESCE(NULLIF($2, ''), email),
			phone = COALESCE(NULLIF($3, ''), phone),
			alias = COALESCE(NULLIF($4, ''), alias),
			notes = COALESCE(NULLIF($5, ''), notes)
		WHERE id = $6 AND user_id = $7
		RETURNING ` + contactColumns
	c, err := scanContact(q.QueryRow(ctx, query, req.Name, req.Email, req.Phone, req.Alias, req.Notes, id, userID))
	if err != nil {
		return nil, apperr.FromPG("contact", err)
	}
	return c, nil
}

func DeleteContact(ctx context.Context, q Querier, userID, id string) error {
	tag, err := q.Exec(ctx, `DELETE FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return apperr.FromPG("contact", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("contact")
	}
	return nil
}
