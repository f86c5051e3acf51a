package auth

import (
	"crypto/subtle"
	"time"

	"github.com/drawing-gallery/core/internal/config"
	"github.com/drawing-gallery/core/internal/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

const loginFailureDelay = 3 * time.Second

// Service authenticates the single configured administrator.
type Service struct {
	admin        config.AdminConfig
	signer       *jwt.Signer
	failureDelay time.Duration
}

func NewService(admin config.AdminConfig, signer *jwt.Signer) *Service {
	return &Service{admin: admin, signer: signer, failureDelay: loginFailureDelay}
}

// Login checks the credentials and issues a token.
func (s *Service) Login(username, password string) (string, time.Time, error) {
	if s.admin.PasswordHash == "" {
		return "", time.Time{}, errAuthLoginDisabled
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.admin.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(s.admin.PasswordHash), []byte(password))
	if !userOK || passErr != nil {
		time.Sleep(s.failureDelay)
		return "", time.Time{}, errAuthWrongCredentials
	}
	return s.signer.Sign(s.admin.Username)
}

// HashPassword produces the bcrypt hash expected in admin.password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}
