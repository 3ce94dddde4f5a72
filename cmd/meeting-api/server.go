// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	goahttp "goa.design/goa/v3/http"

	"github.com/tasknest/tasknest-meeting-service/internal/logging"
	"github.com/tasknest/tasknest-meeting-service/internal/middleware"
)

// route binds one HTTP method and pattern to a handler.
type route struct {
	method  string
	pattern string
	handler http.HandlerFunc
}

// routes lists every endpoint served by the API.
func (s *MeetingsAPI) routes() []route {
	return []route{
		{"POST", "/meetings", s.CreateMeeting},
		{"GET", "/meetings", s.ListMeetings},
		{"GET", "/meetings/{uid}", s.GetMeeting},
		{"PUT", "/meetings/{uid}", s.UpdateMeeting},
		{"PUT", "/meetings/{uid}/status", s.UpdateMeetingStatus},
		{"DELETE", "/meetings/{uid}", s.DeleteMeeting},
		{"GET", "/meetings/{uid}/ics", s.ExportMeetingICS},
		{"PUT", "/meetings/{uid}/participants/{user_id}/attendance", s.UpdateParticipantAttendance},
		{"POST", "/meetings/{uid}/agenda", s.AddAgendaItem},
		{"PUT", "/meetings/{uid}/agenda/{item_id}", s.UpdateAgendaItem},
		{"POST", "/meetings/{uid}/decisions", s.AddMeetingDecision},
		{"POST", "/meetings/{uid}/tasks", s.AddMeetingTask},
		{"POST", "/tasks", s.CreateTask},
		{"GET", "/tasks/{uid}", s.GetTask},
		{"POST", "/tasks/{uid}/submit", s.SubmitForApproval},
		{"POST", "/tasks/{uid}/resolve", s.ResolveApproval},
		{"GET", "/approvals/pending", s.ListPendingApprovals},
		{"POST", "/callables/{name}", s.InvokeCallable},
		{"GET", "/livez", s.Livez},
		{"GET", "/readyz", s.Readyz},
		{"GET", "/metrics", promhttp.Handler().ServeHTTP},
	}
}

// newHandler mounts the routes on a goa muxer and wraps it in the middleware chain.
func newHandler(svc *MeetingsAPI) http.Handler {
	mux := goahttp.NewMuxer()
	svc.mux = mux
	for _, rt := range svc.routes() {
		mux.Handle(rt.method, rt.pattern, rt.handler)
	}

	var handler http.Handler = mux

	// Add HTTP middleware
	// Note: Order matters - RequestIDMiddleware should come first in the chain,
	// so it should be the last middleware added to the handler since it is executed in reverse order.
	handler = middleware.RequestLoggerMiddleware()(handler)
	handler = middleware.RequestIDMiddleware()(handler)
	handler = middleware.AuthorizationMiddleware()(handler)
	handler = otelhttp.NewHandler(handler, "meeting-api")

	return handler
}

// setupHTTPServer configures and starts the HTTP server
func setupHTTPServer(flags flags, svc *MeetingsAPI, gracefulCloseWG *sync.WaitGroup) *http.Server {
	// Set up http listener in a goroutine using provided command line parameters.
	var addr string
	if flags.Bind == "*" {
		addr = ":" + flags.Port
	} else {
		addr = flags.Bind + ":" + flags.Port
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           newHandler(svc),
		ReadHeaderTimeout: 3 * time.Second,
	}
	gracefulCloseWG.Add(1)
	go func() {
		slog.With("addr", addr).Debug("starting http server, listening on port " + flags.Port)
		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.With(logging.ErrKey, err).Error("http listener error")
			os.Exit(1)
		}
		// Because ErrServerClosed is *immediately* returned when Shutdown is
		// called, not when when Shutdown completes, this must not yet decrement
		// the wait group.
	}()

	return httpServer
}
