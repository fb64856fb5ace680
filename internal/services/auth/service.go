// Package auth manages merchant accounts and dashboard sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "lumepay/internal/errors"
	"lumepay/internal/models"
	"lumepay/internal/repositories"
	"lumepay/internal/utils"
	"lumepay/internal/validation"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL is how long a dashboard session lasts.
const DefaultTokenTTL = 24 * time.Hour

// UserStore is the subset of the user repository auth needs.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	IncrementTokenVersion(ctx context.Context, id string) error
}

// RegistrationGate decides whether self-service sign-up is open.
type RegistrationGate interface {
	RegistrationOpen(ctx context.Context) (bool, error)
}

type Config struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
	Now        func() time.Time
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is a signed dashboard token and the merchant it belongs to.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	// Authenticate resolves a session token to its merchant. Tokens issued
	// before the last logout are rejected.
	Authenticate(ctx context.Context, token string) (*models.User, error)
	Logout(ctx context.Context, userID string) error
}

type service struct {
	users  UserStore
	gate   RegistrationGate
	config Config
	log    zerolog.Logger
}

func NewService(users UserStore, gate RegistrationGate, config Config, log zerolog.Logger) Service {
	if config.TokenTTL == 0 {
		config.TokenTTL = DefaultTokenTTL
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &service{users: users, gate: gate, config: config, log: log}
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if s.gate != nil {
		open, err := s.gate.RegistrationOpen(ctx)
		if err != nil {
			return nil, fmt.Errorf("check registration: %w", err)
		}
		if !open {
			return nil, apperrors.ErrRegistrationClosed
		}
	}

	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	v := validation.New()
	v.Required("name", name)
	v.MaxLength("name", name, 100)
	v.Email("email", email)
	v.Password("password", in.Password)
	if !v.Valid() {
		return nil, apperrors.ErrInvalidInput.WithDetail(v.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		Password:     string(hash),
		TokenVersion: 1,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			return nil, apperrors.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("merchant registered")
	return s.issue(user)
}

func (s *service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			s.log.Info().Str("email", email).Msg("login failed: unknown email")
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.log.Info().Str("user_id", user.ID).Msg("login failed: wrong password")
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := utils.ParseToken(token, s.config.JWTSecret)
	if err != nil {
		return nil, apperrors.ErrInvalidSession
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidSession
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, apperrors.ErrInvalidSession
	}
	return user, nil
}

func (s *service) Logout(ctx context.Context, userID string) error {
	if err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *service) issue(user *models.User) (*Session, error) {
	now := s.config.Now()
	token, err := utils.GenerateToken(models.UserClaims{
		UserID:       user.ID,
		Email:        user.Email,
		IsAdmin:      user.IsAdmin,
		TokenVersion: user.TokenVersion,
	}, s.config.JWTSecret, now, s.config.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: now.Add(s.config.TokenTTL), User: user}, nil
}
