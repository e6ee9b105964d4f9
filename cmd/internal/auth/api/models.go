package authapi

import (
	"time"

	"classy/cmd/account"
)

type loginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type createAccountRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Avatar   string `json:"avatar"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type accountResponse struct {
	account.RestrictedView
	CreatedAt time.Time `json:"createdAt"`
}

func (r createAccountRequest) input(typ account.Type) account.CreateInput {
	return account.CreateInput{
		ID:       r.ID,
		Type:     typ,
		Name:     r.Name,
		Email:    r.Email,
		Phone:    r.Phone,
		Avatar:   r.Avatar,
		Password: r.Password,
	}
}
