package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
	"github.com/fintrackhq/fintrack-bff-go/internal/port"
)

var authTracer = otel.Tracer("service/auth")

// AuthService delegates identity to the hosted auth provider and mints the
// BFF's own access tokens. The provider session secret travels only inside
// the signed token; the browser never sees it directly.
type AuthService struct {
	provider  port.AuthProvider
	jwtSecret []byte
	accessTTL time.Duration
	logger    *zap.Logger
}

// NewAuthService creates the auth service.
func NewAuthService(provider port.AuthProvider, jwtSecret []byte, accessTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		provider:  provider,
		jwtSecret: jwtSecret,
		accessTTL: accessTTL,
		logger:    logger,
	}
}

// JWTClaims are the custom claims in BFF access tokens. Sess carries the
// provider session secret so user-scoped provider calls can be replayed.
type JWTClaims struct {
	Sub  string `json:"sub"`
	Sess string `json:"sess"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// SignUp registers the user with the provider, then signs them in so the
// client gets a usable token in one round trip.
func (s *AuthService) SignUp(ctx context.Context, req *domain.SignUpRequest) (*domain.AuthResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.SignUp")
	defer span.End()

	user, err := s.provider.SignUp(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("provider sign-up: %w", err)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))

	return s.SignIn(ctx, &domain.SignInRequest{Email: req.Email, Password: req.Password})
}

// SignIn exchanges credentials for a provider session and wraps it in a
// BFF access token.
func (s *AuthService) SignIn(ctx context.Context, req *domain.SignInRequest) (*domain.AuthResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.SignIn")
	defer span.End()

	session, user, err := s.provider.SignIn(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("provider sign-in: %w", err)
	}

	token, err := s.signAccessToken(user.ID, session.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	s.logger.Info("user signed in", zap.String("user_id", user.ID))
	return &domain.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.accessTTL.Seconds()),
		User:        user,
	}, nil
}

// SignOut revokes the provider session referenced by the token claims.
func (s *AuthService) SignOut(ctx context.Context, sessionSecret string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.SignOut")
	defer span.End()

	if err := s.provider.SignOut(ctx, sessionSecret); err != nil {
		return fmt.Errorf("provider sign-out: %w", err)
	}
	return nil
}

// Me resolves the current user behind a session secret. A dead session is
// unauthorized: the token outlived the provider session.
func (s *AuthService) Me(ctx context.Context, sessionSecret string) (*domain.User, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Me")
	defer span.End()

	user, err := s.provider.CurrentUser(ctx, sessionSecret)
	if err != nil {
		return nil, fmt.Errorf("provider current user: %w", err)
	}
	if user == nil {
		return nil, &domain.ErrUnauthorized{Message: "session is no longer valid"}
	}
	return user, nil
}

// OAuthRedirectURL builds the provider's OAuth entry point for a provider
// name like "google" or "github".
func (s *AuthService) OAuthRedirectURL(provider, successURL, failureURL string) (string, error) {
	return s.provider.OAuthRedirectURL(provider, successURL, failureURL)
}

// ValidateAccessToken parses and verifies a BFF access token.
func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}
	return claims, nil
}

func (s *AuthService) signAccessToken(userID, sessionSecret string) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:  userID,
		Sess: sessionSecret,
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "fintrack-bff",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
