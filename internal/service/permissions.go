// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

// Role sets used by the task and approval rules.
var (
	departmentCreators = []models.RoleTag{
		models.RoleOrganizationOwner, models.RoleOrgAdmin, models.RoleOrgSupervisor,
		models.RoleOrgEngineer, models.RoleOrgTechnician,
	}
	organizationCreators = []models.RoleTag{
		models.RoleOrganizationOwner, models.RoleOrgAdmin, models.RoleOrgSupervisor, models.RoleOrgEngineer,
	}
	departmentWriters   = []models.RoleTag{models.RoleOrganizationOwner, models.RoleOrgAdmin, models.RoleOrgSupervisor}
	organizationWriters = []models.RoleTag{models.RoleOrganizationOwner, models.RoleOrgAdmin}
)

// canAccessOrganization reports whether the caller may read or write records of the organization.
func canAccessOrganization(auth *models.AuthorizationContext, organizationID string) bool {
	return auth.IsSystem() || auth.InOrganization(organizationID)
}

// canCreateTask reports whether the caller may create a task in the given scope at all.
func canCreateTask(auth *models.AuthorizationContext, task *models.Task) bool {
	if auth == nil {
		return false
	}
	if auth.IsSystem() {
		return true
	}
	switch task.TaskContext {
	case models.TaskContextIndividual:
		return true
	case models.TaskContextDepartment:
		return auth.InOrganization(task.OrganizationID) && auth.HasAnyRole(departmentCreators...)
	case models.TaskContextOrganization:
		return auth.InOrganization(task.OrganizationID) && auth.HasAnyRole(organizationCreators...)
	}
	return false
}

// canWriteTaskDirectly reports whether a task created by the caller skips the approval queue.
func canWriteTaskDirectly(auth *models.AuthorizationContext, task *models.Task) bool {
	if auth.IsSystem() {
		return true
	}
	switch task.TaskContext {
	case models.TaskContextIndividual:
		return true
	case models.TaskContextDepartment:
		return auth.HasAnyRole(departmentWriters...)
	case models.TaskContextOrganization:
		return auth.HasAnyRole(organizationWriters...)
	}
	return false
}

// canResolveApproval reports whether the caller may approve or reject the task.
func canResolveApproval(auth *models.AuthorizationContext, task *models.Task) bool {
	if auth == nil {
		return false
	}
	if auth.IsSystem() {
		return true
	}
	if !auth.InOrganization(task.OrganizationID) {
		return false
	}
	if auth.HasAnyRole(organizationWriters...) {
		return true
	}
	return task.ApprovalLevel == models.ApprovalLevelDepartment &&
		auth.HasRole(models.RoleOrgSupervisor) &&
		auth.InDepartment(task.OrganizationID, task.DepartmentID)
}

// pendingApprovalScope narrows the filter to what the caller is allowed to see.
// The second return value is false when the caller may not list approvals at all.
func pendingApprovalScope(auth *models.AuthorizationContext, filter models.PendingApprovalFilter) (models.PendingApprovalFilter, bool) {
	if auth == nil {
		return filter, false
	}
	if auth.IsSystem() {
		return filter, true
	}
	if filter.OrganizationID == "" {
		filter.OrganizationID = auth.OrganizationID
	}
	if !auth.InOrganization(filter.OrganizationID) {
		return filter, false
	}
	if auth.HasAnyRole(organizationWriters...) {
		return filter, true
	}
	if auth.HasRole(models.RoleOrgSupervisor) {
		if filter.Level == models.ApprovalLevelOrganization {
			return filter, false
		}
		if filter.DepartmentID != "" && filter.DepartmentID != auth.DepartmentID {
			return filter, false
		}
		filter.DepartmentID = auth.DepartmentID
		filter.Level = models.ApprovalLevelDepartment
		return filter, auth.DepartmentID != ""
	}
	return filter, false
}
