// Package api holds the JSON bodies shared by the HTTP handlers and the API client.
package api

import "time"

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AuthResponse is returned by /register, /login and /refresh.
type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"` // seconds until the access token expires
}

// ClienteResponse is the wire form of a Cliente record.
type ClienteResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Nome      string    `json:"nome"`
	Email     string    `json:"email"`
	Telefone  string    `json:"telefone"`
	Endereco  string    `json:"endereco"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DashboardResponse is the payload of GET /dashboard.
type DashboardResponse struct {
	User     UserResponse      `json:"user"`
	Clientes []ClienteResponse `json:"clientes"`
}

// CredentialsRequest is the body of /register and /login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of /refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ClienteRequest is the body of POST /clientes and PATCH /clientes/:id.
// Nil fields are omitted, which leaves them untouched on PATCH.
type ClienteRequest struct {
	Nome     *string `json:"nome,omitempty"`
	Email    *string `json:"email,omitempty"`
	Telefone *string `json:"telefone,omitempty"`
	Endereco *string `json:"endereco,omitempty"`
}
