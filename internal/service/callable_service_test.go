// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/mocks"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

func TestCallableService_Invoke(t *testing.T) {
	t.Run("forwards known callables", func(t *testing.T) {
		client := &mocks.MockCallableClient{}
		service := NewCallableService(client)
		input := json.RawMessage(`{"orgId":"org-1"}`)
		client.On("Invoke", mock.Anything, models.CallableGenerateDailyPlan, input).
			Return(json.RawMessage(`{"plan":[]}`), nil)

		result, err := service.Invoke(context.Background(), memberAuth(), "generateDailyPlan", input)

		require.NoError(t, err)
		assert.JSONEq(t, `{"plan":[]}`, string(result))
	})

	t.Run("empty input is sent as an empty object", func(t *testing.T) {
		client := &mocks.MockCallableClient{}
		service := NewCallableService(client)
		client.On("Invoke", mock.Anything, models.CallableGetKeyResultsForTask, map[string]any{}).
			Return(json.RawMessage(`[]`), nil)

		_, err := service.Invoke(context.Background(), memberAuth(), "getKeyResultsForTask", nil)

		require.NoError(t, err)
	})

	t.Run("unknown callable never reaches the client", func(t *testing.T) {
		client := &mocks.MockCallableClient{}
		service := NewCallableService(client)

		_, err := service.Invoke(context.Background(), memberAuth(), "dropDatabase", nil)

		assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
		assert.ErrorIs(t, err, domain.ErrUnknownCallable)
		client.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("migration callables need a system role", func(t *testing.T) {
		client := &mocks.MockCallableClient{}
		service := NewCallableService(client)

		_, err := service.Invoke(context.Background(), memberAuth(), "migrateAllOrganizationsToNewRoleSystem", nil)

		assert.Equal(t, domain.ErrorTypePermissionDenied, domain.GetErrorType(err))
		client.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("remote errors are returned", func(t *testing.T) {
		client := &mocks.MockCallableClient{}
		service := NewCallableService(client)
		client.On("Invoke", mock.Anything, models.CallableApproveTask, mock.Anything).
			Return(nil, domain.NewValidationError("taskId is required"))

		_, err := service.Invoke(context.Background(), memberAuth(), "approveTask", json.RawMessage(`{}`))

		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
	})
}

func TestCallableService_ListMembers(t *testing.T) {
	client := &mocks.MockCallableClient{}
	service := NewCallableService(client)
	client.On("InvokeInto", mock.Anything, models.CallableGetOrganizationMembers,
		models.GetOrganizationMembersInput{OrganizationID: "org-1"}, mock.Anything).
		Run(func(args mock.Arguments) {
			out := args.Get(3).(*models.GetOrganizationMembersOutput)
			out.Members = []models.Member{{UserID: "u1", Role: models.RoleOrgAdmin}}
		}).
		Return(nil)

	members, err := service.ListMembers(context.Background(), "org-1")

	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "org-1", members[0].OrganizationID)
	assert.Equal(t, models.RoleOrgAdmin, members[0].Role)
}
