package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/carehub/hms/internal/platform/apperr"
)

const minPasswordLen = 8

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// AccountService owns credentials, token issuance and logout.
type AccountService struct {
	users       UserRepository
	issuer      *TokenIssuer
	revocations RevocationStore
	cost        int
}

func NewAccountService(users UserRepository, issuer *TokenIssuer, revocations RevocationStore) *AccountService {
	return &AccountService{users: users, issuer: issuer, revocations: revocations, cost: bcrypt.DefaultCost}
}

// CreateUser stores a user with a bcrypt hash of password.
func (s *AccountService) CreateUser(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{Email: email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks credentials and returns a signed token. Unknown emails and
// wrong passwords produce the same error.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", apperr.InvalidArgument("Email and password are required")
	}

	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return "", apperr.Unauthorized("Invalid credentials")
		}
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", apperr.Unauthorized("Invalid credentials")
	}

	token, _, err := s.issuer.Issue(u.ID.String())
	if err != nil {
		return "", apperr.Store("issue token", err)
	}
	return token, nil
}

// Logout revokes the token that authenticated ctx.
func (s *AccountService) Logout(ctx context.Context) error {
	jti := TokenIDFromContext(ctx)
	if jti == "" {
		return apperr.Unauthorized("Unauthorized")
	}
	if err := s.revocations.Revoke(ctx, jti, TokenExpiryFromContext(ctx)); err != nil {
		return apperr.Store("revoke token", err)
	}
	return nil
}
