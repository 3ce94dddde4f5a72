// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
	"github.com/tasknest/tasknest-meeting-service/internal/logging"
	"github.com/tasknest/tasknest-meeting-service/pkg/constants"
)

// INatsConn is a NATS connection interface needed for the [MessageBuilder].
type INatsConn interface {
	IsConnected() bool
	PublishMsg(msg *nats.Msg) error
}

// MessageBuilder is the builder for the message and sends it to the NATS server.
type MessageBuilder struct {
	NatsConn INatsConn
	now      func() time.Time
}

// NewMessageBuilder creates a new MessageBuilder.
func NewMessageBuilder(natsConn INatsConn) *MessageBuilder {
	return &MessageBuilder{
		NatsConn: natsConn,
		now:      time.Now,
	}
}

// IsReady reports whether the connection can publish.
func (m *MessageBuilder) IsReady() bool {
	return m.NatsConn != nil && m.NatsConn.IsConnected()
}

// headers copies the caller identity and the trace context onto the message.
func (m *MessageBuilder) headers(ctx context.Context) nats.Header {
	header := nats.Header{}
	if requestID, ok := ctx.Value(constants.RequestIDContextID).(string); ok && requestID != "" {
		header.Set(constants.RequestIDHeader, requestID)
	}
	if principal, ok := ctx.Value(constants.PrincipalContextID).(string); ok && principal != "" {
		header.Set(constants.XOnBehalfOfHeader, principal)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(http.Header(header)))
	return header
}

// sendMessage sends the message to the NATS server.
func (m *MessageBuilder) sendMessage(ctx context.Context, subject string, data []byte) error {
	msg := &nats.Msg{
		Subject: subject,
		Header:  m.headers(ctx),
		Data:    data,
	}
	if err := m.NatsConn.PublishMsg(msg); err != nil {
		slog.ErrorContext(ctx, "error sending message to NATS", logging.ErrKey, err, "subject", subject)
		return err
	}
	slog.DebugContext(ctx, "sent message to NATS", "subject", subject)
	return nil
}

// sendEvent wraps the payload in an envelope and publishes it.
func (m *MessageBuilder) sendEvent(ctx context.Context, subject, action string, data any, tags []string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling data into JSON", logging.ErrKey, err, "subject", subject)
		return err
	}
	var jsonData any
	if err := json.Unmarshal(raw, &jsonData); err != nil {
		slog.ErrorContext(ctx, "error unmarshalling data into JSON", logging.ErrKey, err, "subject", subject)
		return err
	}

	// Consumers expect a plain JSON object keyed by the json tag names.
	var payload map[string]any
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &payload,
	})
	if err != nil {
		slog.ErrorContext(ctx, "error creating decoder", logging.ErrKey, err, "subject", subject)
		return err
	}
	if err := decoder.Decode(jsonData); err != nil {
		slog.ErrorContext(ctx, "error decoding data", logging.ErrKey, err, "subject", subject)
		return err
	}

	envelope := models.EventEnvelope{
		Action:      action,
		Data:        payload,
		Tags:        tags,
		PublishedAt: m.now().UTC(),
	}
	if requestID, ok := ctx.Value(constants.RequestIDContextID).(string); ok && requestID != "" {
		envelope.Headers = map[string]string{constants.RequestIDHeader: requestID}
	}

	messageBytes, err := json.Marshal(envelope)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling message into JSON", logging.ErrKey, err, "subject", subject)
		return err
	}

	slog.DebugContext(ctx, "constructed event message",
		"subject", subject,
		"action", action,
		"tags_count", len(tags),
	)

	return m.sendMessage(ctx, subject, messageBytes)
}

// SendMeetingEvent publishes a meeting lifecycle event.
func (m *MessageBuilder) SendMeetingEvent(ctx context.Context, subject string, data models.MeetingEventMessage) error {
	return m.sendEvent(ctx, subject, string(data.Action), data, data.Tags())
}

// SendApprovalEvent publishes a task approval event.
func (m *MessageBuilder) SendApprovalEvent(ctx context.Context, subject string, data models.TaskApprovalMessage) error {
	return m.sendEvent(ctx, subject, string(data.Action()), data, data.Tags())
}
