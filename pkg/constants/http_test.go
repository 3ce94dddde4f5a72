// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPHeaderConstants(t *testing.T) {
	assert.Equal(t, "authorization", AuthorizationHeader)
	assert.Equal(t, "X-REQUEST-ID", RequestIDHeader)
	assert.Equal(t, "ETag", EtagHeader)
	assert.Equal(t, "x-on-behalf-of", XOnBehalfOfHeader)
	assert.Equal(t, "If-Match", IfMatchHeader)
}

func TestContextIDConstantsAreUnique(t *testing.T) {
	contextIDs := map[string]string{
		"RequestIDContextID":     string(RequestIDContextID),
		"AuthorizationContextID": string(AuthorizationContextID),
		"PrincipalContextID":     string(PrincipalContextID),
		"ETagContextID":          string(ETagContextID),
		"AuthContextID":          string(AuthContextID),
	}

	seen := make(map[string]string)
	for name, value := range contextIDs {
		existing, dup := seen[value]
		assert.False(t, dup, "context ID %q shared by %s and %s", value, existing, name)
		seen[value] = name
	}
}

func TestContextMappingConsistency(t *testing.T) {
	assert.Equal(t, RequestIDHeader, string(RequestIDContextID))
	assert.Equal(t, AuthorizationHeader, string(AuthorizationContextID))
	assert.Equal(t, XOnBehalfOfHeader, string(PrincipalContextID))
}

func TestSeriesWriteDefaults(t *testing.T) {
	assert.Positive(t, SeriesRepairMinAge)
	assert.Positive(t, DefaultOccurrenceWriteWorkers)
}
