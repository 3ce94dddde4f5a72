// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
	"github.com/tasknest/tasknest-meeting-service/internal/infrastructure/auth"
)

type AuthService struct {
	auth auth.IJWTAuth
}

func NewAuthService(auth auth.IJWTAuth) *AuthService {
	return &AuthService{
		auth: auth,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *AuthService) ServiceReady() bool {
	return s.auth != nil
}

// ParseAuthorization builds the caller's authorization context from the bearer token.
func (s *AuthService) ParseAuthorization(ctx context.Context, bearerToken string, logger *slog.Logger) (*models.AuthorizationContext, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("auth service not ready")
	}

	return s.auth.ParseAuthorization(ctx, bearerToken, logger)
}
