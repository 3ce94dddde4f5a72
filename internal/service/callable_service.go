// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
	"github.com/tasknest/tasknest-meeting-service/internal/logging"
	"github.com/tasknest/tasknest-meeting-service/pkg/metrics"
)

// Callables that change users or roles across organizations.
var systemOnlyCallables = map[models.CallableName]bool{
	models.CallableListFirebaseUsers:                      true,
	models.CallableFixUserPermissions:                     true,
	models.CallableCheckMigrationStatus:                   true,
	models.CallableMigrateOrganizationToNewRoleSystem:     true,
	models.CallableMigrateAllOrganizationsToNewRoleSystem: true,
}

// CallableService forwards calls to the remote callables and serves the
// organization directory on top of them.
type CallableService struct {
	Client domain.CallableClient
}

// NewCallableService creates a new CallableService.
func NewCallableService(client domain.CallableClient) *CallableService {
	return &CallableService{Client: client}
}

// ServiceReady checks if the service is ready for use.
func (s *CallableService) ServiceReady() bool {
	return s.Client != nil
}

// Invoke forwards the input to the named callable and returns its raw result.
func (s *CallableService) Invoke(
	ctx context.Context,
	auth *models.AuthorizationContext,
	name string,
	input json.RawMessage,
) (json.RawMessage, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}

	callable := models.CallableName(name)
	if !callable.IsKnown() {
		slog.WarnContext(ctx, "unknown callable", "callable", name)
		return nil, domain.NewNotFoundError("unknown callable "+name, domain.ErrUnknownCallable)
	}
	if auth == nil {
		return nil, domain.NewPermissionDeniedError("caller is not authenticated")
	}
	if systemOnlyCallables[callable] && !auth.IsSystem() {
		return nil, domain.NewPermissionDeniedError("callable "+name+" requires a system role", domain.ErrPermissionDenied)
	}

	ctx = logging.AppendCtx(ctx, slog.String("callable", name))

	var payload any = input
	if len(input) == 0 {
		payload = map[string]any{}
	}

	result, err := s.Client.Invoke(ctx, callable, payload)
	metrics.CallableInvocations.WithLabelValues(name, metrics.Outcome(err)).Inc()
	if err != nil {
		slog.WarnContext(ctx, "callable failed", logging.ErrKey, err)
		return nil, err
	}
	return result, nil
}

// ListMembers returns the members of an organization through getOrganizationMembers.
func (s *CallableService) ListMembers(ctx context.Context, organizationID string) ([]models.Member, error) {
	if !s.ServiceReady() {
		return nil, domain.ErrServiceUnavailable
	}

	var out models.GetOrganizationMembersOutput
	err := s.Client.InvokeInto(ctx, models.CallableGetOrganizationMembers,
		models.GetOrganizationMembersInput{OrganizationID: organizationID}, &out)
	metrics.CallableInvocations.WithLabelValues(string(models.CallableGetOrganizationMembers), metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	for i := range out.Members {
		if out.Members[i].OrganizationID == "" {
			out.Members[i].OrganizationID = organizationID
		}
	}
	return out.Members, nil
}
