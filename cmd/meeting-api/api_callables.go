// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
)

const maxCallableBodyBytes = 1 << 20

// InvokeCallableResponse wraps the result of a remote callable.
type InvokeCallableResponse struct {
	Result json.RawMessage `json:"result"`
}

// InvokeCallable forwards the request body to the named remote callable.
func (s *MeetingsAPI) InvokeCallable(w http.ResponseWriter, r *http.Request) {
	auth, ctx := s.authorize(w, r)
	if auth == nil {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallableBodyBytes))
	if err != nil {
		s.handleError(ctx, w, domain.NewValidationError("failed to read request body", err))
		return
	}
	if len(body) > 0 && !json.Valid(body) {
		s.handleError(ctx, w, domain.NewValidationError("request body must be JSON", domain.ErrUnmarshal))
		return
	}

	result, err := s.callableService.Invoke(ctx, auth, s.pathParam(r, "name"), body)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.writeJSON(ctx, w, http.StatusOK, InvokeCallableResponse{Result: result})
}
