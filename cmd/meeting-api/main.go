// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the meeting service API that provides a RESTful API for
// meetings and task approvals and answers NATS requests for both.
package main

import (
	"context"
	_ "expvar"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/handlers"
	"github.com/tasknest/tasknest-meeting-service/internal/infrastructure/messaging"
	"github.com/tasknest/tasknest-meeting-service/internal/logging"
	"github.com/tasknest/tasknest-meeting-service/internal/service"
	"github.com/tasknest/tasknest-meeting-service/pkg/utils"
)

func main() {
	loadDotEnv()

	env, err := parseEnv()
	if err != nil {
		slog.With(logging.ErrKey, err).Error("invalid configuration")
		os.Exit(1)
	}
	flags := parseFlags(env.Port)

	logging.InitStructureLogConfig()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownOTel, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up OpenTelemetry")
		os.Exit(1)
	}

	// Set up JWT validator used to authorize every request.
	jwtAuth, err := setupJWTAuth(env)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up JWT authentication")
		os.Exit(1)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	// Setup NATS connection
	natsConn, err := setupNATS(env, &gracefulCloseWG, done)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS")
		return
	}

	repos, err := setupRepositories(ctx, env, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up repositories")
		return
	}
	repairSeries(ctx, repos)

	callableClient, err := setupCallables(ctx, env)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up remote callables")
		return
	}

	// Initialize services
	serviceConfig := service.ServiceConfig{
		SkipEtagValidation: env.SkipEtagValidation,
		EventWorkers:       env.OccurrenceWriteWorkers,
	}
	messageBuilder := messaging.NewMessageBuilder(natsConn)
	authService := service.NewAuthService(jwtAuth)
	occurrenceService := service.NewOccurrenceService()
	callableService := service.NewCallableService(callableClient)

	var directory domain.MemberDirectory
	if callableService.ServiceReady() {
		directory = callableService
	}

	meetingService := service.NewMeetingService(
		repos.Meeting,
		messageBuilder,
		occurrenceService,
		serviceConfig,
	)
	approvalService := service.NewApprovalService(
		repos.Task,
		messageBuilder,
		directory,
		serviceConfig,
	)

	// Initialize handlers
	meetingHandler := handlers.NewMeetingHandler(meetingService, approvalService, authService)

	svc := NewMeetingsAPI(
		authService,
		meetingService,
		approvalService,
		callableService,
		meetingHandler,
	)

	httpServer := setupHTTPServer(flags, svc, &gracefulCloseWG)

	// Create NATS subscriptions for the service.
	err = createNatsSubscriptions(ctx, meetingHandler, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error creating NATS subscriptions")
		return
	}

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(httpServer, natsConn, repos, &gracefulCloseWG, cancel, shutdownOTel)
}
