// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	goahttp "goa.design/goa/v3/http"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
	"github.com/tasknest/tasknest-meeting-service/internal/handlers"
	"github.com/tasknest/tasknest-meeting-service/internal/infrastructure/calendar"
	"github.com/tasknest/tasknest-meeting-service/internal/logging"
	"github.com/tasknest/tasknest-meeting-service/internal/service"
	"github.com/tasknest/tasknest-meeting-service/pkg/constants"
)

// MeetingsAPI serves the HTTP surface of the meeting and task services.
type MeetingsAPI struct {
	authService     *service.AuthService
	meetingService  *service.MeetingService
	approvalService *service.ApprovalService
	callableService *service.CallableService
	meetingHandler  *handlers.MeetingHandler
	icsGenerator    *calendar.ICSGenerator
	mux             goahttp.Muxer
}

// NewMeetingsAPI creates a new MeetingsAPI.
func NewMeetingsAPI(
	authService *service.AuthService,
	meetingService *service.MeetingService,
	approvalService *service.ApprovalService,
	callableService *service.CallableService,
	meetingHandler *handlers.MeetingHandler,
) *MeetingsAPI {
	return &MeetingsAPI{
		authService:     authService,
		meetingService:  meetingService,
		approvalService: approvalService,
		callableService: callableService,
		meetingHandler:  meetingHandler,
		icsGenerator:    calendar.NewICSGenerator(),
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps a domain error onto an HTTP status code.
func statusFor(err error) int {
	switch domain.GetErrorType(err) {
	case domain.ErrorTypeValidation:
		return http.StatusBadRequest
	case domain.ErrorTypeNotFound:
		return http.StatusNotFound
	case domain.ErrorTypeConflict:
		return http.StatusConflict
	case domain.ErrorTypePermissionDenied:
		return http.StatusForbidden
	case domain.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleError writes err as an ErrorResponse.
func (s *MeetingsAPI) handleError(ctx context.Context, w http.ResponseWriter, err error) {
	s.writeError(ctx, w, statusFor(err), err)
}

func (s *MeetingsAPI) writeError(ctx context.Context, w http.ResponseWriter, code int, err error) {
	message := err.Error()
	if code == http.StatusInternalServerError {
		slog.ErrorContext(ctx, "request failed", logging.ErrKey, err)
		message = domain.ErrInternal.Error()
	}
	s.writeJSON(ctx, w, code, ErrorResponse{Code: strconv.Itoa(code), Message: message})
}

// writeJSON encodes body with the goa response encoder negotiated for the request.
func (s *MeetingsAPI) writeJSON(ctx context.Context, w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	if etag, ok := ctx.Value(constants.ETagContextID).(string); ok && etag != "" {
		w.Header().Set(constants.EtagHeader, etag)
	}
	w.WriteHeader(code)
	if body == nil {
		return
	}
	if err := goahttp.ResponseEncoder(ctx, w).Encode(body); err != nil {
		slog.ErrorContext(ctx, "error encoding response", logging.ErrKey, err)
	}
}

// decodeBody decodes the request body into v with the goa request decoder.
func decodeBody(r *http.Request, v any) error {
	if err := goahttp.RequestDecoder(r).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("request body is required", domain.ErrValidationFailed)
		}
		return domain.NewValidationError("invalid request body", domain.ErrUnmarshal, err)
	}
	return nil
}

// authorize resolves the caller of the request. On failure it writes the
// response and returns nil.
func (s *MeetingsAPI) authorize(w http.ResponseWriter, r *http.Request) (*models.AuthorizationContext, context.Context) {
	ctx := r.Context()
	if s.authService == nil || !s.authService.ServiceReady() {
		s.writeError(ctx, w, http.StatusServiceUnavailable, domain.ErrServiceUnavailable)
		return nil, ctx
	}

	token, _ := ctx.Value(constants.AuthorizationContextID).(string)
	auth, err := s.authService.ParseAuthorization(ctx, token, slog.Default())
	if err != nil {
		code := statusFor(err)
		if code == http.StatusForbidden {
			code = http.StatusUnauthorized
		}
		s.writeError(ctx, w, code, err)
		return nil, ctx
	}

	ctx = logging.AppendCtx(ctx, slog.String("user_id", auth.UserID))
	ctx = context.WithValue(ctx, constants.AuthContextID, auth)
	if auth.UserID != "" {
		ctx = context.WithValue(ctx, constants.PrincipalContextID, auth.UserID)
	}
	return auth, ctx
}

// parseIfMatch reads the revision a mutation expects. Weak and quoted forms
// are accepted. An absent header yields zero, meaning the current revision.
func parseIfMatch(r *http.Request) (uint64, error) {
	raw := strings.TrimSpace(r.Header.Get(constants.IfMatchHeader))
	if raw == "" || raw == "*" {
		return 0, nil
	}
	if strings.HasPrefix(raw, "W/") || strings.HasPrefix(raw, "w/") {
		raw = strings.TrimSpace(raw[2:])
	}
	raw = strings.Trim(raw, `"`)

	revision, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || revision == 0 {
		return 0, domain.NewValidationError("If-Match must be a positive revision number", domain.ErrValidationFailed)
	}
	return revision, nil
}

// withETag stores the revision so the response carries it as ETag.
func withETag(ctx context.Context, revision string) context.Context {
	return context.WithValue(ctx, constants.ETagContextID, revision)
}

// Readyz checks if the service is able to take inbound requests.
func (s *MeetingsAPI) Readyz(w http.ResponseWriter, r *http.Request) {
	for _, svc := range []service.Service{s.authService, s.meetingService, s.approvalService} {
		if !svc.ServiceReady() {
			http.Error(w, domain.ErrServiceUnavailable.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	if !s.meetingHandler.HandlerReady() {
		http.Error(w, domain.ErrServiceUnavailable.Error(), http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte("OK\n"))
}

// Livez checks if the service is alive.
func (s *MeetingsAPI) Livez(w http.ResponseWriter, _ *http.Request) {
	// This always returns as long as the service is still running. As this
	// endpoint is expected to be used as a Kubernetes liveness check, this
	// service must likewise self-detect non-recoverable errors and
	// self-terminate.
	_, _ = w.Write([]byte("OK\n"))
}

// pathParam returns the named wildcard of the matched route.
func (s *MeetingsAPI) pathParam(r *http.Request, name string) string {
	return s.mux.Vars(r)[name]
}
