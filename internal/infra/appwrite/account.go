package appwrite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
)

// accountUser is the wire shape of an Appwrite account.
type accountUser struct {
	ID        string `json:"$id"`
	CreatedAt string `json:"$createdAt"`
	Email     string `json:"email"`
	Name      string `json:"name"`
}

// accountSession is the wire shape of a session. The secret is only
// present in the create-session response.
type accountSession struct {
	ID     string `json:"$id"`
	UserID string `json:"userId"`
	Secret string `json:"secret"`
	Expire string `json:"expire"`
}

// SignUp creates a new account. The caller is expected to sign in
// afterwards; Appwrite does not hand out a session on registration.
func (c *Client) SignUp(ctx context.Context, req *domain.SignUpRequest) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "appwrite.SignUp")
	defer span.End()

	if err := validateSignUp(req); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"userId":   uuid.NewString(),
		"email":    req.Email,
		"password": req.Password,
		"name":     strings.TrimSpace(req.Name),
	}

	var wire accountUser
	err := c.execute(ctx, "appwrite", func() error {
		body, err := c.doRequest(ctx, http.MethodPost, "/account", payload, "")
		if err != nil {
			return err
		}
		return decodeJSON(body, &wire, "account")
	})
	if err != nil {
		return nil, err
	}

	user, err := wire.toDomain()
	if err != nil {
		return nil, err
	}
	c.logger.Info("account created", zap.String("user_id", user.ID))
	return user, nil
}

// SignIn exchanges credentials for a session. The session secret is held
// server-side only; it never reaches the browser.
func (c *Client) SignIn(ctx context.Context, req *domain.SignInRequest) (*domain.Session, *domain.User, error) {
	ctx, span := tracer.Start(ctx, "appwrite.SignIn")
	defer span.End()

	if err := validateSignIn(req); err != nil {
		return nil, nil, err
	}

	payload := map[string]any{
		"email":    req.Email,
		"password": req.Password,
	}

	var wire accountSession
	err := c.execute(ctx, "appwrite", func() error {
		body, err := c.doRequest(ctx, http.MethodPost, "/account/sessions/email", payload, "")
		if err != nil {
			return err
		}
		return decodeJSON(body, &wire, "session")
	})
	if err != nil {
		return nil, nil, err
	}

	session, err := wire.toDomain()
	if err != nil {
		return nil, nil, err
	}

	user, err := c.CurrentUser(ctx, session.Secret)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, &domain.ErrMalformedPayload{Service: "appwrite", Reason: "fresh session rejected by account lookup"}
	}

	c.logger.Info("session created", zap.String("user_id", session.UserID))
	return session, user, nil
}

// CurrentUser resolves the account behind a session secret. An invalid or
// expired session yields (nil, nil) rather than an error: "not signed in"
// is an answer, not a failure.
func (c *Client) CurrentUser(ctx context.Context, sessionSecret string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "appwrite.CurrentUser")
	defer span.End()

	if sessionSecret == "" {
		return nil, nil
	}

	var wire accountUser
	err := c.execute(ctx, "appwrite", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, "/account", nil, sessionSecret)
		if err != nil {
			return err
		}
		return decodeJSON(body, &wire, "account")
	})
	if err != nil {
		var unauthorized *domain.ErrUnauthorized
		if errors.As(err, &unauthorized) {
			return nil, nil
		}
		return nil, err
	}
	return wire.toDomain()
}

// SignOut deletes the current session on the provider. An already-dead
// session is treated as signed out.
func (c *Client) SignOut(ctx context.Context, sessionSecret string) error {
	ctx, span := tracer.Start(ctx, "appwrite.SignOut")
	defer span.End()

	if sessionSecret == "" {
		return nil
	}

	err := c.execute(ctx, "appwrite", func() error {
		_, err := c.doRequest(ctx, http.MethodDelete, "/account/sessions/current", nil, sessionSecret)
		return err
	})
	if err != nil {
		var unauthorized *domain.ErrUnauthorized
		var notFound *domain.ErrNotFound
		if errors.As(err, &unauthorized) || errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// OAuthRedirectURL builds the provider-hosted OAuth entry point. The
// browser is sent there directly; no request leaves this process.
func (c *Client) OAuthRedirectURL(provider, successURL, failureURL string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return "", &domain.ErrValidation{Field: "provider", Message: "must not be empty"}
	}

	query := url.Values{}
	query.Set("project", c.projectID)
	if successURL != "" {
		query.Set("success", successURL)
	}
	if failureURL != "" {
		query.Set("failure", failureURL)
	}
	return fmt.Sprintf("%s/account/sessions/oauth2/%s?%s", c.endpoint, url.PathEscape(provider), query.Encode()), nil
}

func validateSignUp(req *domain.SignUpRequest) error {
	if req == nil {
		return &domain.ErrValidation{Field: "body", Message: "must not be empty"}
	}
	if !strings.Contains(req.Email, "@") {
		return &domain.ErrValidation{Field: "email", Message: "must be a valid email address"}
	}
	if len(req.Password) < 8 {
		return &domain.ErrValidation{Field: "password", Message: "must be at least 8 characters"}
	}
	if strings.TrimSpace(req.Name) == "" {
		return &domain.ErrValidation{Field: "name", Message: "must not be empty"}
	}
	return nil
}

func validateSignIn(req *domain.SignInRequest) error {
	if req == nil {
		return &domain.ErrValidation{Field: "body", Message: "must not be empty"}
	}
	if !strings.Contains(req.Email, "@") {
		return &domain.ErrValidation{Field: "email", Message: "must be a valid email address"}
	}
	if req.Password == "" {
		return &domain.ErrValidation{Field: "password", Message: "must not be empty"}
	}
	return nil
}

func (u accountUser) toDomain() (*domain.User, error) {
	if u.ID == "" {
		return nil, &domain.ErrMalformedPayload{Service: "appwrite", Reason: "account missing $id"}
	}
	createdAt, err := time.Parse(time.RFC3339, u.CreatedAt)
	if err != nil {
		return nil, &domain.ErrMalformedPayload{Service: "appwrite", Reason: "account $createdAt not RFC3339"}
	}
	return &domain.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: createdAt,
	}, nil
}

func (s accountSession) toDomain() (*domain.Session, error) {
	if s.ID == "" || s.UserID == "" || s.Secret == "" {
		return nil, &domain.ErrMalformedPayload{Service: "appwrite", Reason: "session missing id, user or secret"}
	}
	expiresAt, err := time.Parse(time.RFC3339, s.Expire)
	if err != nil {
		return nil, &domain.ErrMalformedPayload{Service: "appwrite", Reason: "session expire not RFC3339"}
	}
	return &domain.Session{
		ID:        s.ID,
		UserID:    s.UserID,
		Secret:    s.Secret,
		ExpiresAt: expiresAt,
	}, nil
}
