// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"encoding/json"

	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

// CallableClient invokes named remote functions.
type CallableClient interface {
	// Invoke sends input to the named callable and returns its raw result.
	Invoke(ctx context.Context, name models.CallableName, input any) (json.RawMessage, error)
	// InvokeInto invokes the callable and decodes its result into out.
	InvokeInto(ctx context.Context, name models.CallableName, input any, out any) error
}

// MemberDirectory lists the members of an organization.
type MemberDirectory interface {
	ListMembers(ctx context.Context, organizationID string) ([]models.Member, error)
}
