package models

import "time"

// User represents a registered account holder
type User struct {
	ID        int64     `json:"id" example:"1"`                   // User ID
	Username  string    `json:"username" example:"testuser"`      // Unique username
	Email     string    `json:"email" example:"test@example.com"` // Unique email
	CreatedAt time.Time `json:"created_at"`
}
