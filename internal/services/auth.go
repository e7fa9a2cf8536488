package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/repositories"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Claims is the access token payload.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type AuthOptions struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type AuthService interface {
	LoginUser(ctx context.Context, username, password string) (*models.User, error)
	GenerateToken(ctx context.Context, user *models.User) (*TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ParseAccessToken(token string) (*Claims, error)
}

type AuthServiceImpl struct {
	users  *repositories.UserRepository
	tokens *repositories.TokenRepository
	opts   AuthOptions
	now    func() time.Time
}

func NewAuthService(users *repositories.UserRepository, tokens *repositories.TokenRepository, opts AuthOptions) *AuthServiceImpl {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	return &AuthServiceImpl{users: users, tokens: tokens, opts: opts, now: time.Now}
}

func VerifyPassword(hashedPassword, plainPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
	return err == nil
}

// LoginUser checks the password. Unknown users and wrong passwords give the
// same error.
func (s *AuthServiceImpl) LoginUser(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !VerifyPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthServiceImpl) signAccess(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: user.ID.String(),
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.opts.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.AccessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.opts.Secret))
}

func (s *AuthServiceImpl) newRefresh(userID uuid.UUID) (*models.Token, error) {
	refresh, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	return &models.Token{
		UserID:       userID,
		RefreshToken: refresh,
		ExpiresAt:    s.now().UTC().Add(s.opts.RefreshTTL),
	}, nil
}

func (s *AuthServiceImpl) pair(user *models.User, refresh *models.Token) (*TokenPair, error) {
	access, err := s.signAccess(user)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh.RefreshToken.String(),
		ExpiresIn:    int64(s.opts.AccessTTL.Seconds()),
	}, nil
}

func (s *AuthServiceImpl) GenerateToken(ctx context.Context, user *models.User) (*TokenPair, error) {
	refresh, err := s.newRefresh(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Create(ctx, refresh); err != nil {
		return nil, err
	}
	return s.pair(user, refresh)
}

// RefreshToken exchanges a refresh token for a new pair. The old token is
// consumed, so replaying it fails.
func (s *AuthServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	old, err := uuid.FromString(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	token, err := s.tokens.FindByRefresh(ctx, old)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !token.ExpiresAt.After(s.now()) {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	next, err := s.newRefresh(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Rotate(ctx, old, next); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return s.pair(user, next)
}

func (s *AuthServiceImpl) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.tokens.DeleteForUser(ctx, userID)
}

func (s *AuthServiceImpl) ParseAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.opts.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.opts.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.opts.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.FromString(claims.UserID); err != nil {
		return nil, fmt.Errorf("%w: bad user_id claim", ErrInvalidToken)
	}
	return claims, nil
}
