// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// RoleTag names a role carried in the caller's claims.
type RoleTag string

const (
	RoleSystemOwner       RoleTag = "system_owner"
	RoleSystemAdmin       RoleTag = "system_admin"
	RoleOrganizationOwner RoleTag = "organization_owner"
	RoleOrgAdmin          RoleTag = "org_admin"
	RoleOrgSupervisor     RoleTag = "org_supervisor"
	RoleOrgEngineer       RoleTag = "org_engineer"
	RoleOrgTechnician     RoleTag = "org_technician"
	RoleOrgAssistant      RoleTag = "org_assistant"
	RoleIndependent       RoleTag = "independent"
)

// roleHierarchy orders roles from most to least privileged.
var roleHierarchy = []RoleTag{
	RoleSystemOwner,
	RoleSystemAdmin,
	RoleOrganizationOwner,
	RoleOrgAdmin,
	RoleOrgSupervisor,
	RoleOrgEngineer,
	RoleOrgTechnician,
	RoleOrgAssistant,
	RoleIndependent,
}

// Rank returns the position of the role in the hierarchy, or -1 if unknown.
// Lower ranks are more privileged.
func (r RoleTag) Rank() int {
	for i, role := range roleHierarchy {
		if role == r {
			return i
		}
	}
	return -1
}

// AtLeast reports whether r is as privileged as required or more.
func (r RoleTag) AtLeast(required RoleTag) bool {
	have, want := r.Rank(), required.Rank()
	if have < 0 || want < 0 {
		return false
	}
	return have <= want
}

// AuthorizationContext is the caller identity threaded explicitly through
// every operation that makes a permission decision.
type AuthorizationContext struct {
	UserID         string           `json:"user_id"`
	Name           string           `json:"name,omitempty"`
	Email          string           `json:"email,omitempty"`
	OrganizationID string           `json:"organization_id,omitempty"`
	DepartmentID   string           `json:"department_id,omitempty"`
	Roles          map[RoleTag]bool `json:"roles,omitempty"`
}

// NewAuthorizationContext builds a context holding the given roles.
func NewAuthorizationContext(userID, organizationID, departmentID string, roles ...RoleTag) *AuthorizationContext {
	ac := &AuthorizationContext{
		UserID:         userID,
		OrganizationID: organizationID,
		DepartmentID:   departmentID,
		Roles:          make(map[RoleTag]bool, len(roles)),
	}
	for _, r := range roles {
		ac.Roles[r] = true
	}
	return ac
}

// HasRole reports whether the caller holds the role.
func (a *AuthorizationContext) HasRole(role RoleTag) bool {
	return a != nil && a.Roles[role]
}

// HasAnyRole reports whether the caller holds at least one of the roles.
func (a *AuthorizationContext) HasAnyRole(roles ...RoleTag) bool {
	for _, r := range roles {
		if a.HasRole(r) {
			return true
		}
	}
	return false
}

// IsSystem reports whether the caller holds a system-wide role.
func (a *AuthorizationContext) IsSystem() bool {
	return a.HasAnyRole(RoleSystemOwner, RoleSystemAdmin)
}

// InOrganization reports whether the caller belongs to the organization.
func (a *AuthorizationContext) InOrganization(organizationID string) bool {
	return a != nil && organizationID != "" && a.OrganizationID == organizationID
}

// InDepartment reports whether the caller belongs to the department of the organization.
func (a *AuthorizationContext) InDepartment(organizationID, departmentID string) bool {
	return a.InOrganization(organizationID) && departmentID != "" && a.DepartmentID == departmentID
}

// DisplayName returns the caller's name, falling back to the email and then the user id.
func (a *AuthorizationContext) DisplayName() string {
	if a == nil {
		return ""
	}
	switch {
	case a.Name != "":
		return a.Name
	case a.Email != "":
		return a.Email
	}
	return a.UserID
}
