// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"testing"

	"github.com/akamensky/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleTag_AtLeast(t *testing.T) {
	assert.True(t, RoleSystemOwner.AtLeast(RoleOrgAdmin))
	assert.True(t, RoleOrgSupervisor.AtLeast(RoleOrgSupervisor))
	assert.False(t, RoleOrgEngineer.AtLeast(RoleOrgSupervisor))
	assert.False(t, RoleTag("guest").AtLeast(RoleIndependent))
	assert.Equal(t, -1, RoleTag("guest").Rank())
}

func TestAuthorizationContext(t *testing.T) {
	ac := NewAuthorizationContext("u1", "org-1", "dept-1", RoleOrgSupervisor)

	assert.True(t, ac.HasRole(RoleOrgSupervisor))
	assert.False(t, ac.HasRole(RoleOrgAdmin))
	assert.True(t, ac.HasAnyRole(RoleOrgAdmin, RoleOrgSupervisor))
	assert.False(t, ac.IsSystem())
	assert.True(t, ac.InOrganization("org-1"))
	assert.False(t, ac.InOrganization(""))
	assert.True(t, ac.InDepartment("org-1", "dept-1"))
	assert.False(t, ac.InDepartment("org-2", "dept-1"))
	assert.Equal(t, "u1", ac.DisplayName())

	ac.Email = "sup@example.com"
	assert.Equal(t, "sup@example.com", ac.DisplayName())
	ac.Name = "Supervisor"
	assert.Equal(t, "Supervisor", ac.DisplayName())

	var nilCtx *AuthorizationContext
	assert.False(t, nilCtx.HasRole(RoleSystemOwner))
	assert.Empty(t, nilCtx.DisplayName())
}

func TestNewSubRecordID(t *testing.T) {
	a := NewSubRecordID()
	b := NewSubRecordID()

	assert.NotEqual(t, a, b)
	raw, err := base58.Decode(a)
	require.NoError(t, err)
	assert.Len(t, raw, 16)
}

func TestSeriesJournalRoundTrip(t *testing.T) {
	j := &SeriesJournal{ParentUID: "p", OccurrenceUIDs: []string{"o1", "o2"}, OrganizationID: "org-1"}

	data, err := MarshalJournal(j)
	require.NoError(t, err)

	decoded, err := UnmarshalJournal(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "o1", "o2"}, decoded.UIDs())
	assert.Equal(t, "org-1", decoded.OrganizationID)
}
