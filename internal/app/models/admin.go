package models

import "time"

// Admin defines the single administrator account based on the 'admins' table
type Admin struct {
	ID           int64      `json:"-" db:"id"`
	Username     string     `json:"username" db:"username" example:"admin"`
	PasswordHash string     `json:"-" db:"password_hash"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	LastLogin    *time.Time `json:"lastLogin,omitempty" db:"last_login"`
}

// AdminSession is the verified identity attached to an admin request
type AdminSession struct {
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}
