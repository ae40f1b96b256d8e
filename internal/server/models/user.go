package models

import "time"

// User is a registered identity. Username is unique and immutable after
// creation in the normal flow; PasswordHash is a bcrypt hash and is never
// exposed outside the server.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Roles        Roles
	CreatedAt    time.Time
}
