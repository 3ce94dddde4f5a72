// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package auth

import (
	"context"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

// MockJWTAuth is a mock implementation of IJWTAuth for testing
type MockJWTAuth struct {
	mock.Mock
}

func (m *MockJWTAuth) ParseAuthorization(ctx context.Context, token string, logger *slog.Logger) (*models.AuthorizationContext, error) {
	args := m.Called(ctx, token, logger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthorizationContext), args.Error(1)
}
