package dto

import "time"

// AdminCredentialsRequest is used by both setup and login
type AdminCredentialsRequest struct {
	Username string `json:"username" form:"username" binding:"required,min=3,max=50" example:"admin"`
	Password string `json:"password" form:"password" binding:"required,min=6,max=72" example:"s3cret-pass"`
}

// AdminSessionResponse is returned after setup or login
type AdminSessionResponse struct {
	Username  string    `json:"username" example:"admin"`
	Token     string    `json:"token" example:"eyJhbGciOiJIUzI1NiIs..."`
	ExpiresAt time.Time `json:"expiresAt" example:"2025-04-23T14:01:05Z"`
}

// AdminStatusResponse tells the console which screen to show
type AdminStatusResponse struct {
	SetupRequired bool   `json:"setupRequired" example:"false"`
	Authenticated bool   `json:"authenticated" example:"true"`
	Username      string `json:"username,omitempty" example:"admin"`
}

// StudentSearchResponse wraps search hits
type StudentSearchResponse struct {
	Query   string            `json:"query" example:"张"`
	Limit   int               `json:"limit" example:"100"`
	Results []StudentResponse `json:"results"`
}
