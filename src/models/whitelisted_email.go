package models

import "time"

// WhitelistedEmail is an address allowed to register while the allowlist is enforced.
type WhitelistedEmail struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
