package auth

import (
	"errors"
	"time"
)

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Username  string    `json:"username"`
}

var (
	errAuthWrongCredentials = errors.New("wrong username or password")
	errAuthLoginDisabled    = errors.New("admin password is not configured")
)
