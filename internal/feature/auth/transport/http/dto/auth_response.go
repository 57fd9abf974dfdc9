package dto

import (
	"cliente_backend/internal/api"
	"cliente_backend/internal/feature/auth/domain/entity"
	"cliente_backend/internal/feature/auth/usecase"
)

// UserFromEntity builds the public view of u. The password hash never leaves the server.
func UserFromEntity(u *entity.User) api.UserResponse {
	return api.UserResponse{ID: u.ID, Email: u.Email}
}

// AuthFromResult converts a usecase result to the response body.
func AuthFromResult(r *usecase.AuthResult) api.AuthResponse {
	return api.AuthResponse{
		User:         UserFromEntity(r.User),
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(r.ExpiresIn.Seconds()),
	}
}
