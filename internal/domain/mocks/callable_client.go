// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

// MockCallableClient implements CallableClient for testing
type MockCallableClient struct {
	mock.Mock
}

func (m *MockCallableClient) Invoke(ctx context.Context, name models.CallableName, input any) (json.RawMessage, error) {
	args := m.Called(ctx, name, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockCallableClient) InvokeInto(ctx context.Context, name models.CallableName, input any, out any) error {
	args := m.Called(ctx, name, input, out)
	return args.Error(0)
}

// MockMemberDirectory implements MemberDirectory for testing
type MockMemberDirectory struct {
	mock.Mock
}

func (m *MockMemberDirectory) ListMembers(ctx context.Context, organizationID string) ([]models.Member, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Member), args.Error(1)
}
