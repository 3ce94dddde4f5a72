// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
	"github.com/tasknest/tasknest-meeting-service/internal/handlers"
	"github.com/tasknest/tasknest-meeting-service/internal/infrastructure/auth"
	"github.com/tasknest/tasknest-meeting-service/internal/infrastructure/callables"
	"github.com/tasknest/tasknest-meeting-service/internal/infrastructure/messaging"
	"github.com/tasknest/tasknest-meeting-service/internal/infrastructure/sqlstore"
	"github.com/tasknest/tasknest-meeting-service/internal/infrastructure/store"
	"github.com/tasknest/tasknest-meeting-service/internal/logging"
	"github.com/tasknest/tasknest-meeting-service/pkg/constants"
)

const gracefulShutdownSeconds = 25

// shuttingDown is set once a graceful shutdown starts so that the NATS closed
// handler can tell a drain from a lost connection.
var shuttingDown atomic.Bool

// repositories are the storage dependencies of the services.
type repositories struct {
	Meeting domain.MeetingRepository
	Task    domain.TaskRepository
	// seriesRepair rolls back series abandoned mid-write. Nil when the
	// backend writes series atomically.
	seriesRepair func(ctx context.Context, minAge time.Duration) (int, error)
	close        func() error
}

// setupJWTAuth configures JWT authentication for the service
func setupJWTAuth(env environment) (*auth.JWTAuth, error) {
	return auth.NewJWTAuth(auth.JWTAuthConfig{
		JWKSURL:                 env.JWT.JWKSURL,
		Audience:                env.JWT.Audience,
		MockLocalPrincipal:      env.JWT.MockLocalPrincipal,
		MockLocalOrganizationID: env.JWT.MockLocalOrganizationID,
		MockLocalRoles:          env.JWT.MockLocalRoles,
	})
}

// setupCallables builds the remote callables client. It returns a nil client
// when the callables are not configured; invocations then report the service
// as unavailable.
func setupCallables(ctx context.Context, env environment) (domain.CallableClient, error) {
	if !env.Callables.Enabled() {
		slog.Warn("CALLABLES_BASE_URL or CALLABLES_CLIENT_PRIVATE_KEY not set, remote callables are disabled")
		return nil, nil
	}
	client, err := callables.NewClient(ctx, callables.Config{
		BaseURL:     env.Callables.BaseURL,
		ClientID:    env.Callables.ClientID,
		PrivateKey:  env.Callables.PrivateKey,
		Auth0Domain: env.Callables.Auth0Domain,
		Audience:    env.Callables.Audience,
		Timeout:     env.Callables.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// setupNATS connects to NATS. The closed handler releases the graceful close
// wait group, and an unexpected close stops the service.
func setupNATS(env environment, gracefulCloseWG *sync.WaitGroup, done chan os.Signal) (*nats.Conn, error) {
	gracefulCloseWG.Add(1)
	natsConn, err := nats.Connect(
		env.NatsURL,
		nats.Timeout(env.NatsTimeout),
		nats.MaxReconnects(env.NatsMaxReconnect),
		nats.ReconnectWait(env.NatsReconnectWait),
		nats.DrainTimeout(gracefulShutdownSeconds*time.Second),
		nats.ConnectHandler(func(nc *nats.Conn) {
			slog.With("nats_url", nc.ConnectedUrl()).Info("NATS connection established")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.With(logging.ErrKey, err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.With("nats_url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			if sub != nil {
				slog.With(logging.ErrKey, err, "subject", sub.Subject, "queue", sub.Queue).Error("async NATS error")
				return
			}
			slog.With(logging.ErrKey, err).Error("async NATS error outside subscription")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if !shuttingDown.Load() {
				slog.Error("NATS connection closed unexpectedly, shutting down")
				select {
				case done <- os.Interrupt:
				default:
				}
			}
			gracefulCloseWG.Done()
		}),
	)
	if err != nil {
		gracefulCloseWG.Done()
		return nil, fmt.Errorf("connecting to NATS at %s: %w", env.NatsURL, err)
	}
	return natsConn, nil
}

// getKeyValueStore binds to a KV bucket, creating it when it does not exist.
func getKeyValueStore(ctx context.Context, js jetstream.JetStream, bucket string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		slog.InfoContext(ctx, "creating missing KV bucket", "bucket", bucket)
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket})
	}
	if err != nil {
		return nil, fmt.Errorf("binding KV bucket %s: %w", bucket, err)
	}
	return kv, nil
}

// setupNatsRepositories binds the meetings, tasks and series journal buckets.
func setupNatsRepositories(ctx context.Context, env environment, natsConn *nats.Conn) (*repositories, error) {
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	buckets := map[string]jetstream.KeyValue{}
	for _, name := range []string{store.KVStoreNameMeetings, store.KVStoreNameTasks, store.KVStoreNameSeriesJournal} {
		kv, err := getKeyValueStore(ctx, js, name)
		if err != nil {
			return nil, err
		}
		buckets[name] = kv
	}

	meetingRepo := store.NewNatsMeetingRepository(
		buckets[store.KVStoreNameMeetings],
		buckets[store.KVStoreNameSeriesJournal],
		env.OccurrenceWriteWorkers,
	)
	return &repositories{
		Meeting:      meetingRepo,
		Task:         store.NewNatsTaskRepository(buckets[store.KVStoreNameTasks]),
		seriesRepair: meetingRepo.RepairSeries,
		close:        func() error { return nil },
	}, nil
}

// setupSQLRepositories opens the database and applies pending migrations.
func setupSQLRepositories(ctx context.Context, env environment) (*repositories, error) {
	db, err := sqlstore.Open(ctx, env.StoreBackend, env.DatabaseURL)
	if err != nil {
		return nil, err
	}
	applied, err := db.Migrate(migrate.Up)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}
	slog.InfoContext(ctx, "database migrations applied", "backend", env.StoreBackend, "count", applied)

	return &repositories{
		Meeting: sqlstore.NewMeetingRepository(db),
		Task:    sqlstore.NewTaskRepository(db),
		close:   db.Close,
	}, nil
}

// setupRepositories selects the storage backend named by STORE_BACKEND.
func setupRepositories(ctx context.Context, env environment, natsConn *nats.Conn) (*repositories, error) {
	switch env.StoreBackend {
	case storeBackendPostgres, storeBackendSQLite:
		return setupSQLRepositories(ctx, env)
	default:
		return setupNatsRepositories(ctx, env, natsConn)
	}
}

// repairSeries rolls back series left incomplete by a crashed writer.
func repairSeries(ctx context.Context, repos *repositories) {
	if repos.seriesRepair == nil {
		return
	}
	repaired, err := repos.seriesRepair(ctx, constants.SeriesRepairMinAge)
	if err != nil {
		slog.With(logging.ErrKey, err).ErrorContext(ctx, "error repairing meeting series")
		return
	}
	slog.InfoContext(ctx, "meeting series repair finished", "repaired", repaired)
}

// createNatsSubscriptions subscribes the handler to its subjects in the
// shared queue group so each request is answered by one instance.
func createNatsSubscriptions(ctx context.Context, handler *handlers.MeetingHandler, natsConn *nats.Conn) error {
	for _, subject := range handler.Subjects() {
		_, err := natsConn.QueueSubscribe(subject, models.MeetingsAPIQueue, func(msg *nats.Msg) {
			handler.HandleMessage(ctx, messaging.NewNatsMessage(msg))
		})
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", subject, err)
		}
		slog.With("subject", subject, "queue", models.MeetingsAPIQueue).Debug("subscribed to NATS subject")
	}
	return nil
}

// gracefulShutdown stops the HTTP server, drains NATS and flushes telemetry.
func gracefulShutdown(
	httpServer *http.Server,
	natsConn *nats.Conn,
	repos *repositories,
	gracefulCloseWG *sync.WaitGroup,
	cancel context.CancelFunc,
	shutdownOTel func(context.Context) error,
) {
	slog.Info("graceful shutdown started")
	shuttingDown.Store(true)

	ctx, ctxCancel := context.WithTimeout(context.Background(), gracefulShutdownSeconds*time.Second)
	defer ctxCancel()

	go func() {
		if err := httpServer.Shutdown(ctx); err != nil {
			slog.With(logging.ErrKey, err).Error("http shutdown error")
		}
		gracefulCloseWG.Done()
	}()

	if natsConn != nil && !natsConn.IsClosed() && !natsConn.IsDraining() {
		slog.Info("draining NATS connections")
		if err := natsConn.Drain(); err != nil {
			slog.With(logging.ErrKey, err).Error("error draining NATS connection")
		}
	}

	gracefulCloseWG.Wait()
	cancel()

	if repos != nil && repos.close != nil {
		if err := repos.close(); err != nil {
			slog.With(logging.ErrKey, err).Error("error closing repositories")
		}
	}
	if shutdownOTel != nil {
		if err := shutdownOTel(ctx); err != nil {
			slog.With(logging.ErrKey, err).Error("error shutting down OpenTelemetry")
		}
	}

	slog.Info("graceful shutdown complete")
}
