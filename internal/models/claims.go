package models

import "github.com/golang-jwt/jwt/v5"

// UserClaims is the payload of a dashboard session token.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	IsAdmin      bool   `json:"is_admin"`
	TokenVersion int    `json:"token_version"`
}
