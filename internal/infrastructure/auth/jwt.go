// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
	"github.com/tasknest/tasknest-meeting-service/internal/logging"
)

const (
	// PS256 is the default for Heimdall's JWT finalizer.
	signatureAlgorithm = validator.PS256
	defaultIssuer      = "heimdall"
	defaultAudience    = "tasknest-meeting-service"
	defaultJWKSURL     = "http://heimdall:4457/.well-known/jwks"
	jwksCacheTTL       = 5 * time.Minute
	allowedClockSkew   = 5 * time.Second
)

// IJWTAuth turns a bearer token into the caller's authorization context.
type IJWTAuth interface {
	ParseAuthorization(ctx context.Context, token string, logger *slog.Logger) (*models.AuthorizationContext, error)
}

// JWTAuthConfig is the configuration of the JWT validator.
type JWTAuthConfig struct {
	// JWKSURL is the URL of the JSON Web Key Set used to verify token signatures.
	JWKSURL string
	// Audience is the expected aud claim.
	Audience string
	// Issuer is the expected iss claim.
	Issuer string
	// MockLocalPrincipal disables token validation and authenticates every
	// request as this principal. Only meant for local development.
	MockLocalPrincipal string
	// MockLocalOrganizationID is the organization of the mock principal.
	MockLocalOrganizationID string
	// MockLocalRoles are the roles of the mock principal. Defaults to system_admin.
	MockLocalRoles []models.RoleTag
}

// HeimdallClaims are the custom claims Heimdall adds to the tokens it mints.
type HeimdallClaims struct {
	Principal      string   `json:"principal"`
	Name           string   `json:"name,omitempty"`
	Email          string   `json:"email,omitempty"`
	OrganizationID string   `json:"organization_id,omitempty"`
	DepartmentID   string   `json:"department_id,omitempty"`
	Roles          []string `json:"roles,omitempty"`
}

// Validate checks the custom claims.
func (c *HeimdallClaims) Validate(ctx context.Context) error {
	if c.Principal == "" {
		return errors.New("principal must be provided")
	}
	return nil
}

// AuthorizationContext converts the claims into the caller's authorization context.
// Unknown role tags are dropped.
func (c *HeimdallClaims) AuthorizationContext() *models.AuthorizationContext {
	roles := make([]models.RoleTag, 0, len(c.Roles))
	for _, r := range c.Roles {
		tag := models.RoleTag(strings.ToLower(strings.TrimSpace(r)))
		if tag.Rank() >= 0 {
			roles = append(roles, tag)
		}
	}
	ac := models.NewAuthorizationContext(c.Principal, c.OrganizationID, c.DepartmentID, roles...)
	ac.Name = c.Name
	ac.Email = c.Email
	return ac
}

// JWTAuth validates Heimdall-issued JWTs.
type JWTAuth struct {
	validator *validator.Validator
	config    JWTAuthConfig
}

// NewJWTAuth creates a JWT validator backed by a caching JWKS provider.
func NewJWTAuth(config JWTAuthConfig) (*JWTAuth, error) {
	if config.JWKSURL == "" {
		config.JWKSURL = defaultJWKSURL
	}
	if config.Audience == "" {
		config.Audience = defaultAudience
	}
	if config.Issuer == "" {
		config.Issuer = defaultIssuer
	}

	jwksURL, err := url.Parse(config.JWKSURL)
	if err != nil {
		return nil, err
	}
	issuerURL, err := url.Parse(config.Issuer)
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, jwksCacheTTL, jwks.WithCustomJWKSURI(jwksURL))

	customClaims := func() validator.CustomClaims {
		return &HeimdallClaims{}
	}

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		signatureAlgorithm,
		config.Issuer,
		[]string{config.Audience},
		validator.WithCustomClaims(customClaims),
		validator.WithAllowedClockSkew(allowedClockSkew),
	)
	if err != nil {
		return nil, err
	}

	return &JWTAuth{
		validator: jwtValidator,
		config:    config,
	}, nil
}

func (j *JWTAuth) mockAuthorization() *models.AuthorizationContext {
	roles := j.config.MockLocalRoles
	if len(roles) == 0 {
		roles = []models.RoleTag{models.RoleSystemAdmin}
	}
	return models.NewAuthorizationContext(j.config.MockLocalPrincipal, j.config.MockLocalOrganizationID, "", roles...)
}

// ParseAuthorization validates the bearer token and returns the caller's authorization context.
func (j *JWTAuth) ParseAuthorization(ctx context.Context, token string, logger *slog.Logger) (*models.AuthorizationContext, error) {
	if j.config.MockLocalPrincipal != "" {
		logger.InfoContext(ctx, "JWT validation is disabled, using mock principal", "principal", j.config.MockLocalPrincipal)
		return j.mockAuthorization(), nil
	}

	if j.validator == nil {
		return nil, domain.NewUnavailableError("JWT validator is not set up")
	}

	parsed, err := j.validator.ValidateToken(ctx, strings.TrimPrefix(token, "Bearer "))
	if err != nil {
		logger.WarnContext(ctx, "token validation failed", logging.ErrKey, err)
		return nil, domain.NewPermissionDeniedError("invalid bearer token", err)
	}

	claims, ok := parsed.(*validator.ValidatedClaims)
	if !ok {
		return nil, domain.NewInternalError("unexpected claims type")
	}
	custom, ok := claims.CustomClaims.(*HeimdallClaims)
	if !ok || custom == nil {
		return nil, domain.NewInternalError("missing custom claims")
	}

	return custom.AuthorizationContext(), nil
}

// ParsePrincipal returns only the principal of the bearer token.
func (j *JWTAuth) ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error) {
	ac, err := j.ParseAuthorization(ctx, token, logger)
	if err != nil {
		return "", err
	}
	return ac.UserID, nil
}
