// internal/models/user.go
package models

import "github.com/google/uuid"

// User is an account row. Ephemeral users are minted on the fly for guests
// who sit down or spectate without registering.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	IsEphemeral bool `json:"is_ephemeral"`
	IsAdmin     bool `json:"is_admin"`
}
