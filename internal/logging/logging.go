// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package logging configures the structured logger shared by the meeting
// and task services.
package logging

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	slogotel "github.com/remychantenay/slog-otel"
)

type ctxKey string

// ErrKey is the attribute key used for errors.
const ErrKey = "error"

const (
	slogFields      ctxKey = "slog_fields"
	logLevelDefault        = slog.LevelDebug

	formatText = "text"

	// Logs with this priority are escalated to the on-call rotation.
	priorityCritical = "critical"
)

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

type contextHandler struct {
	slog.Handler
}

// Handle adds contextual attributes to the Record before calling the underlying handler
func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(slogFields).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs keeps the context handler in front of derived handlers.
func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

// WithGroup keeps the context handler in front of derived handlers.
func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

// AppendCtx adds an slog attribute to the provided context so that it will be
// included in any Record created with such context
func AppendCtx(parent context.Context, attr slog.Attr) context.Context {
	if parent == nil {
		parent = context.Background()
	}

	existing, _ := parent.Value(slogFields).([]slog.Attr)
	attrs := make([]slog.Attr, 0, len(existing)+1)
	attrs = append(attrs, existing...)
	attrs = append(attrs, attr)
	return context.WithValue(parent, slogFields, attrs)
}

// NewHandler builds the service handler writing to w. Records carry the
// context attributes plus trace_id and span_id of the active span.
func NewHandler(w io.Writer, level slog.Level, addSource bool, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, AddSource: addSource}

	var h slog.Handler
	if strings.EqualFold(format, formatText) {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slogotel.OtelHandler{Next: contextHandler{h}}
}

// parseLevel maps LOG_LEVEL onto a slog level, defaulting to debug.
func parseLevel(value string) slog.Level {
	if level, ok := levels[strings.ToLower(value)]; ok {
		return level
	}
	return logLevelDefault
}

// InitStructureLogConfig sets the structured log behavior from LOG_LEVEL,
// LOG_ADD_SOURCE and LOG_FORMAT.
func InitStructureLogConfig() slog.Handler {
	level := parseLevel(os.Getenv("LOG_LEVEL"))
	addSource := os.Getenv("LOG_ADD_SOURCE")
	source := addSource == "true" || addSource == "t" || addSource == "1"

	h := NewHandler(os.Stdout, level, source, os.Getenv("LOG_FORMAT"))
	log.SetFlags(log.Llongfile)
	slog.SetDefault(slog.New(h))

	slog.Info("log config",
		"logLevel", level,
		"addSource", source,
	)

	return h
}

// Priority creates a slog.Attr for error priority classification
func Priority(level string) slog.Attr {
	return slog.String("priority", level)
}

// PriorityCritical marks errors that must be escalated.
func PriorityCritical() slog.Attr {
	return Priority(priorityCritical)
}
