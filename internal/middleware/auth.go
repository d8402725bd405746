package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	logpkg "github.com/benvon/smart-habits/internal/logger"
	"github.com/benvon/smart-habits/internal/models"
	"github.com/benvon/smart-habits/internal/request"
	"github.com/benvon/smart-habits/internal/services/oidc"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenVerifier verifies a bearer token and returns its identity claims
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*oidc.Claims, error)
}

// UserStore is the part of the user repository authentication needs
type UserStore interface {
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

// Auth validates the bearer token and places the matching user in the
// request context, creating the user on first sight
func Auth(verifier TokenVerifier, users UserStore, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				respondError(w, http.StatusUnauthorized, "Unauthorized", "Missing or malformed Authorization header")
				return
			}

			ctx := r.Context()
			claims, err := verifier.Verify(ctx, token)
			if err != nil {
				logger.Info("token_verification_failed",
					zap.String("error", logpkg.SanitizeError(err)),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)))
				respondError(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
				return
			}

			user, err := resolveUser(ctx, users, claims)
			if err != nil {
				logger.Error("user_resolution_failed",
					zap.String("error", logpkg.SanitizeError(err)))
				respondError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load user")
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

// LocalSubject is the provider id of the single user served when
// authentication is disabled
const LocalSubject = "local"

// LocalUser serves every request as one local user, for single-user
// deployments without an identity provider
func LocalUser(users UserStore, logger *zap.Logger) func(http.Handler) http.Handler {
	claims := &oidc.Claims{Subject: LocalSubject, Email: "local@localhost"}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolveUser(r.Context(), users, claims)
			if err != nil {
				logger.Error("user_resolution_failed",
					zap.String("error", logpkg.SanitizeError(err)))
				respondError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load user")
				return
			}
			next.ServeHTTP(w, r.WithContext(request.WithUser(r.Context(), user)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// resolveUser loads the user for the token subject, creating it when unknown
// and syncing email and name when they changed at the provider
func resolveUser(ctx context.Context, users UserStore, claims *oidc.Claims) (*models.User, error) {
	user, err := users.GetByProviderID(ctx, claims.Subject)
	switch {
	case err == nil:
		if syncProfile(user, claims) {
			if err := users.Update(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	subject := claims.Subject
	user = &models.User{
		ID:            uuid.New(),
		Email:         claims.Email,
		ProviderID:    &subject,
		EmailVerified: claims.Verified,
		Settings:      models.DefaultUserSettings(),
	}
	if user.Email == "" {
		user.Email = subject
	}
	if claims.Name != "" {
		name := claims.Name
		user.Name = &name
	}
	if err := users.Create(ctx, user); err != nil {
		// a concurrent request for the same subject won the insert
		if models.IsConflictError(err) {
			return users.GetByProviderID(ctx, claims.Subject)
		}
		return nil, err
	}
	return user, nil
}

func syncProfile(user *models.User, claims *oidc.Claims) bool {
	changed := false
	if claims.Email != "" && user.Email != claims.Email {
		user.Email = claims.Email
		changed = true
	}
	if claims.Name != "" && (user.Name == nil || *user.Name != claims.Name) {
		name := claims.Name
		user.Name = &name
		changed = true
	}
	if claims.Verified && !user.EmailVerified {
		user.EmailVerified = true
		changed = true
	}
	return changed
}

// respondError writes the API error envelope
func respondError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
