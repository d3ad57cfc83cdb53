package models

import "time"

// User is the signed-in identity record. Username doubles as the opaque
// identity key that scopes persisted sessions.
type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserRecord is the stored registration entry. The credential is a bcrypt
// hash, never the plaintext password.
type UserRecord struct {
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}
