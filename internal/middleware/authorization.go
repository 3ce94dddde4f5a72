// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tasknest/tasknest-meeting-service/pkg/constants"
)

const bearerPrefix = "bearer "

// AuthorizationMiddleware copies the bearer token and the on-behalf-of
// principal from the request headers into the context. Validation happens in
// the API layer so that health checks stay unauthenticated.
func AuthorizationMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if token := BearerToken(r.Header.Get(constants.AuthorizationHeader)); token != "" {
				ctx = context.WithValue(ctx, constants.AuthorizationContextID, token)
			}
			if principal := r.Header.Get(constants.XOnBehalfOfHeader); principal != "" {
				ctx = context.WithValue(ctx, constants.PrincipalContextID, principal)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken strips the case-insensitive "Bearer " scheme from an
// Authorization header value. Values without the scheme are returned trimmed.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	return header
}
