// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// CallableName identifies a remote function the service can invoke.
type CallableName string

// Remote callables. Their implementations live outside this service; inputs
// and outputs are opaque JSON except where a typed shape is declared below.
const (
	CallableGetOrganizationMembers                 CallableName = "getOrganizationMembers"
	CallableListFirebaseUsers                      CallableName = "listFirebaseUsers"
	CallableFixUserPermissions                     CallableName = "fixUserPermissions"
	CallableApproveTask                            CallableName = "approveTask"
	CallableCheckMigrationStatus                   CallableName = "checkMigrationStatus"
	CallableMigrateOrganizationToNewRoleSystem     CallableName = "migrateOrganizationToNewRoleSystem"
	CallableMigrateAllOrganizationsToNewRoleSystem CallableName = "migrateAllOrganizationsToNewRoleSystem"
	CallableGenerateDailyPlan                      CallableName = "generateDailyPlan"
	CallableGenerateWeeklyReport                   CallableName = "generateWeeklyReport"
	CallableGenerateSmartSuggestions               CallableName = "generateSmartSuggestions"
	CallableGenerateDailyMeetingAgenda             CallableName = "generateDailyMeetingAgenda"
	CallableLinkTaskToKeyResult                    CallableName = "linkTaskToKeyResult"
	CallableUnlinkTaskFromKeyResult                CallableName = "unlinkTaskFromKeyResult"
	CallableGetKeyResultsForTask                   CallableName = "getKeyResultsForTask"
	CallableCreateTaskForKeyResult                 CallableName = "createTaskForKeyResult"
)

var knownCallables = map[CallableName]bool{
	CallableGetOrganizationMembers:                 true,
	CallableListFirebaseUsers:                      true,
	CallableFixUserPermissions:                     true,
	CallableApproveTask:                            true,
	CallableCheckMigrationStatus:                   true,
	CallableMigrateOrganizationToNewRoleSystem:     true,
	CallableMigrateAllOrganizationsToNewRoleSystem: true,
	CallableGenerateDailyPlan:                      true,
	CallableGenerateWeeklyReport:                   true,
	CallableGenerateSmartSuggestions:               true,
	CallableGenerateDailyMeetingAgenda:             true,
	CallableLinkTaskToKeyResult:                    true,
	CallableUnlinkTaskFromKeyResult:                true,
	CallableGetKeyResultsForTask:                   true,
	CallableCreateTaskForKeyResult:                 true,
}

// IsKnown reports whether the name is one of the remote callables.
func (n CallableName) IsKnown() bool {
	return knownCallables[n]
}

// CallableError is the error body returned by a remote callable.
type CallableError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Member is a read-only view of an organization member.
type Member struct {
	UserID         string  `json:"user_id"`
	OrganizationID string  `json:"organization_id,omitempty"`
	Email          string  `json:"email,omitempty"`
	DisplayName    string  `json:"display_name,omitempty"`
	Role           RoleTag `json:"role"`
	DepartmentID   string  `json:"department_id,omitempty"`
}

// GetOrganizationMembersInput is the input of getOrganizationMembers.
type GetOrganizationMembersInput struct {
	OrganizationID string `json:"orgId"`
}

// GetOrganizationMembersOutput is the output of getOrganizationMembers.
type GetOrganizationMembersOutput struct {
	Members []Member `json:"members"`
}
