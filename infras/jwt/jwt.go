package jwt

//go:generate go run go.uber.org/mock/mockgen -source=./jwt.go -destination=./mocks/jwt_mock.go -package=mocks

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"medsys/config"
	"medsys/shared/timezone"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrInvalidClaim = errors.New("invalid token claim")

	errMissingHeader = errors.New("authorization header is required")
	errBadScheme     = errors.New("authorization header must use the Bearer scheme")
)

const bearerScheme = "Bearer"

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims carry the caller identity the auth middleware puts on the request context.
type Claims struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	TokenID  string    `json:"token_id"`
	Type     TokenType `json:"type"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type JWT interface {
	GenerateTokenPair(userID, username, role string) (*TokenPair, error)
	ValidateToken(tokenString string, tokenType TokenType) (*Claims, error)
	RefreshTokens(refreshToken string) (*TokenPair, error)
}

// Service signs HS256 tokens. Access and refresh tokens use separate secrets
// and carry their type, so neither can stand in for the other.
type Service struct {
	config *config.Config
	clock  timezone.Clock
}

func New(cfg *config.Config) JWT {
	return NewWithClock(cfg, timezone.NewClock())
}

func NewWithClock(cfg *config.Config, clock timezone.Clock) JWT {
	return &Service{config: cfg, clock: clock}
}

func (s *Service) secret(tokenType TokenType) ([]byte, time.Duration, error) {
	switch tokenType {
	case AccessToken:
		return []byte(s.config.JWT.AccessSecret), time.Duration(s.config.JWT.AccessExpireMin) * time.Minute, nil
	case RefreshToken:
		return []byte(s.config.JWT.RefreshSecret), time.Duration(s.config.JWT.RefreshExpireMin) * time.Minute, nil
	default:
		return nil, 0, fmt.Errorf("unknown token type: %s", tokenType)
	}
}

func (s *Service) GenerateTokenPair(userID, username, role string) (*TokenPair, error) {
	now := s.clock.Now()

	access, err := s.sign(userID, username, role, AccessToken, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, err := s.sign(userID, username, role, RefreshToken, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    bearerScheme,
		ExpiresIn:    int64(s.config.JWT.AccessExpireMin) * 60,
	}, nil
}

func (s *Service) sign(userID, username, role string, tokenType TokenType, now time.Time) (string, error) {
	key, ttl, err := s.secret(tokenType)
	if err != nil {
		return "", err
	}

	tokenID := uuid.NewString()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		TokenID:  tokenID,
		Type:     tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.App.Name,
			Subject:   userID,
			ID:        tokenID,
		},
	}).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// ValidateToken parses tokenString and checks it was issued by this app as tokenType.
func (s *Service) ValidateToken(tokenString string, tokenType TokenType) (*Claims, error) {
	key, _, err := s.secret(tokenType)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}

	_, err = jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.App.Name),
		jwt.WithTimeFunc(s.clock.Now),
	)

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	case claims.Type != tokenType:
		return nil, ErrInvalidClaim
	}

	return claims, nil
}

// RefreshTokens rotates both tokens from a valid refresh token.
func (s *Service) RefreshTokens(refreshToken string) (*TokenPair, error) {
	claims, err := s.ValidateToken(refreshToken, RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	return s.GenerateTokenPair(claims.UserID, claims.Username, claims.Role)
}

// ExtractTokenFromHeader reads "Bearer <token>"; the scheme is case-insensitive.
func ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errMissingHeader
	}

	scheme, token, ok := strings.Cut(strings.TrimSpace(authHeader), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", errBadScheme
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", errBadScheme
	}

	return token, nil
}
