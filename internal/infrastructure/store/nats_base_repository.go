// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/vmihailenco/msgpack/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/logging"
	"github.com/tasknest/tasknest-meeting-service/pkg/metrics"
)

// NATS Key-Value store bucket names
const (
	KVStoreNameMeetings      = "meetings"
	KVStoreNameTasks         = "tasks"
	KVStoreNameSeriesJournal = "meeting-series-journal"
)

// tracerName is the instrumentation name for the store package.
const tracerName = "github.com/tasknest/tasknest-meeting-service/internal/infrastructure/store"

// INatsKeyValue is the subset of jetstream.KeyValue used by the repositories.
// It allows for mocking in tests.
type INatsKeyValue interface {
	ListKeys(context.Context, ...jetstream.WatchOpt) (jetstream.KeyLister, error)
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Create(ctx context.Context, key string, value []byte, opts ...jetstream.KVCreateOpt) (uint64, error)
	Put(context.Context, string, []byte) (uint64, error)
	Update(context.Context, string, []byte, uint64) (uint64, error)
	Delete(context.Context, string, ...jetstream.KVDeleteOpt) error
}

// Codec encodes entities for storage.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec stores entities as JSON.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// MsgpackCodec stores entities as msgpack.
type MsgpackCodec struct{}

func (MsgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (MsgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

// NatsBaseRepository provides the KV operations shared by every entity repository.
type NatsBaseRepository[T any] struct {
	kvStore    INatsKeyValue
	entityName string // used in error messages and span attributes
	notFound   error  // sentinel joined into not-found errors
	codec      Codec
}

// NewNatsBaseRepository creates a JSON-encoded base repository.
func NewNatsBaseRepository[T any](kvStore INatsKeyValue, entityName string, notFound error) *NatsBaseRepository[T] {
	return &NatsBaseRepository[T]{
		kvStore:    kvStore,
		entityName: entityName,
		notFound:   notFound,
		codec:      JSONCodec{},
	}
}

// WithCodec replaces the codec used to encode entries.
func (r *NatsBaseRepository[T]) WithCodec(codec Codec) *NatsBaseRepository[T] {
	r.codec = codec
	return r
}

// IsReady checks if the repository is ready for use
func (r *NatsBaseRepository[T]) IsReady() bool {
	return r.kvStore != nil
}

// startSpan opens a client span for a KV operation and records its latency.
// The returned finish function must be called with the operation's error.
func (r *NatsBaseRepository[T]) startSpan(ctx context.Context, op, key string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	started := time.Now()
	attrs = append(attrs,
		attribute.String("db.system", "nats"),
		attribute.String("db.operation", op),
		attribute.String("db.nats.entity", r.entityName),
	)
	if key != "" {
		attrs = append(attrs, attribute.String("db.nats.key", key))
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "nats.kv."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)

	return ctx, func(errp *error) {
		defer span.End()
		metrics.ObserveStore("nats", r.entityName+"_"+op, started, errp)
		if errp == nil || *errp == nil {
			span.SetStatus(codes.Ok, "")
			return
		}
		span.RecordError(*errp)
		switch domain.GetErrorType(*errp) {
		case domain.ErrorTypeNotFound:
			span.SetStatus(codes.Error, "not found")
		case domain.ErrorTypeConflict:
			span.SetStatus(codes.Error, "conflict")
		default:
			span.SetStatus(codes.Error, (*errp).Error())
		}
	}
}

func (r *NatsBaseRepository[T]) unavailable() error {
	return domain.NewUnavailableError(fmt.Sprintf("%s repository is not available", r.entityName))
}

// isWrongSequence reports whether err is the KV optimistic concurrency failure.
func isWrongSequence(err error) bool {
	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence {
		return true
	}
	return strings.Contains(err.Error(), "wrong last sequence")
}

// translate maps a jetstream error to the domain taxonomy.
func (r *NatsBaseRepository[T]) translate(ctx context.Context, op, key string, err error) error {
	switch {
	case errors.Is(err, jetstream.ErrKeyNotFound), errors.Is(err, jetstream.ErrKeyDeleted):
		return domain.NewNotFoundError(fmt.Sprintf("%s with key '%s' not found", r.entityName, key), r.notFound, err)
	case errors.Is(err, jetstream.ErrKeyExists):
		return domain.NewConflictError(fmt.Sprintf("%s with key '%s' already exists", r.entityName, key), err)
	case isWrongSequence(err):
		return domain.NewConflictError(fmt.Sprintf("%s has been modified", r.entityName), domain.ErrRevisionMismatch, err)
	}
	slog.ErrorContext(ctx, fmt.Sprintf("error on %s %s in NATS KV", op, r.entityName),
		logging.ErrKey, err, "key", key)
	return domain.NewInternalError(fmt.Sprintf("failed to %s %s in store", op, r.entityName), err)
}

// GetRaw retrieves a raw entry from NATS KV store
func (r *NatsBaseRepository[T]) GetRaw(ctx context.Context, key string) (entry jetstream.KeyValueEntry, err error) {
	ctx, finish := r.startSpan(ctx, "get", key)
	defer finish(&err)

	if !r.IsReady() {
		return nil, r.unavailable()
	}

	entry, err = r.kvStore.Get(ctx, key)
	if err != nil {
		return nil, r.translate(ctx, "get", key, err)
	}
	return entry, nil
}

// Get retrieves and decodes an entity from NATS KV store
func (r *NatsBaseRepository[T]) Get(ctx context.Context, key string) (*T, error) {
	entity, _, err := r.GetWithRevision(ctx, key)
	return entity, err
}

// GetWithRevision retrieves an entity with its revision from NATS KV store
func (r *NatsBaseRepository[T]) GetWithRevision(ctx context.Context, key string) (*T, uint64, error) {
	entry, err := r.GetRaw(ctx, key)
	if err != nil {
		return nil, 0, err
	}

	entity, err := r.Unmarshal(ctx, entry.Value())
	if err != nil {
		return nil, 0, domain.NewInternalError(
			fmt.Sprintf("failed to unmarshal %s data", r.entityName), domain.ErrUnmarshal, err)
	}

	return entity, entry.Revision(), nil
}

// Unmarshal decodes a stored value into the entity type
func (r *NatsBaseRepository[T]) Unmarshal(ctx context.Context, data []byte) (*T, error) {
	var entity T
	if err := r.codec.Unmarshal(data, &entity); err != nil {
		slog.ErrorContext(ctx, fmt.Sprintf("error unmarshaling %s", r.entityName), logging.ErrKey, err)
		return nil, err
	}
	return &entity, nil
}

// Marshal encodes an entity for storage
func (r *NatsBaseRepository[T]) Marshal(ctx context.Context, entity *T) ([]byte, error) {
	data, err := r.codec.Marshal(entity)
	if err != nil {
		slog.ErrorContext(ctx, fmt.Sprintf("error marshaling %s", r.entityName), logging.ErrKey, err)
		return nil, err
	}
	return data, nil
}

// Exists checks if an entity exists in the store
func (r *NatsBaseRepository[T]) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.GetRaw(ctx, key)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Create stores a new entity. It fails with a conflict if the key is already taken.
func (r *NatsBaseRepository[T]) Create(ctx context.Context, key string, entity *T) (revision uint64, err error) {
	ctx, finish := r.startSpan(ctx, "create", key)
	defer finish(&err)

	if !r.IsReady() {
		return 0, r.unavailable()
	}

	data, err := r.Marshal(ctx, entity)
	if err != nil {
		return 0, domain.NewInternalError(fmt.Sprintf("failed to marshal %s", r.entityName), err)
	}

	revision, err = r.kvStore.Create(ctx, key, data)
	if err != nil {
		return 0, r.translate(ctx, "create", key, err)
	}
	return revision, nil
}

// Update writes an entity with optimistic concurrency control
func (r *NatsBaseRepository[T]) Update(ctx context.Context, key string, entity *T, revision uint64) (err error) {
	ctx, finish := r.startSpan(ctx, "update", key, attribute.Int64("db.nats.revision", int64(revision)))
	defer finish(&err)

	if !r.IsReady() {
		return r.unavailable()
	}

	data, err := r.Marshal(ctx, entity)
	if err != nil {
		return domain.NewInternalError(fmt.Sprintf("failed to marshal %s", r.entityName), err)
	}

	if _, err = r.kvStore.Update(ctx, key, data, revision); err != nil {
		return r.translate(ctx, "update", key, err)
	}
	return nil
}

// Delete removes an entity with optimistic concurrency control
func (r *NatsBaseRepository[T]) Delete(ctx context.Context, key string, revision uint64) (err error) {
	ctx, finish := r.startSpan(ctx, "delete", key, attribute.Int64("db.nats.revision", int64(revision)))
	defer finish(&err)

	if !r.IsReady() {
		return r.unavailable()
	}

	if err = r.kvStore.Delete(ctx, key, jetstream.LastRevision(revision)); err != nil {
		return r.translate(ctx, "delete", key, err)
	}
	return nil
}

// DeleteWithoutRevision removes an entity regardless of its current revision.
// Used by compensation and repair, where the caller owns the key.
func (r *NatsBaseRepository[T]) DeleteWithoutRevision(ctx context.Context, key string) (err error) {
	ctx, finish := r.startSpan(ctx, "purge", key)
	defer finish(&err)

	if !r.IsReady() {
		return r.unavailable()
	}

	if err = r.kvStore.Delete(ctx, key); err != nil {
		return r.translate(ctx, "delete", key, err)
	}
	return nil
}

// ListKeys lists the keys in the bucket that start with prefix.
func (r *NatsBaseRepository[T]) ListKeys(ctx context.Context, prefix string) (keys []string, err error) {
	ctx, finish := r.startSpan(ctx, "list_keys", "", attribute.String("db.nats.prefix", prefix))
	defer finish(&err)

	if !r.IsReady() {
		return nil, r.unavailable()
	}

	lister, err := r.kvStore.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, r.translate(ctx, "list", "", err)
	}
	defer func() {
		_ = lister.Stop()
	}()

	for key := range lister.Keys() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// ListEntities loads every entity whose key starts with prefix. Entries that
// disappear or fail to decode between listing and loading are skipped.
func (r *NatsBaseRepository[T]) ListEntities(ctx context.Context, prefix string) ([]*T, error) {
	keys, err := r.ListKeys(ctx, prefix)
	if err != nil {
		return nil, err
	}

	entities := make([]*T, 0, len(keys))
	for _, key := range keys {
		entity, err := r.Get(ctx, key)
		if err != nil {
			slog.WarnContext(ctx, fmt.Sprintf("failed to get %s, skipping", r.entityName),
				"key", key, logging.ErrKey, err)
			continue
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
