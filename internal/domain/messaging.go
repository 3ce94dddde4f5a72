// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

// Message represents a domain message interface
type Message interface {
	Subject() string
	Data() []byte
	Respond(data []byte) error
	HasReply() bool
}

// MessageHandler defines how the service handles incoming messages
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message)
	HandlerReady() bool
}

// MeetingEventSender publishes meeting lifecycle events for downstream fan-out.
type MeetingEventSender interface {
	SendMeetingEvent(ctx context.Context, subject string, data models.MeetingEventMessage) error
}

// ApprovalEventSender publishes task approval events for downstream fan-out.
type ApprovalEventSender interface {
	SendApprovalEvent(ctx context.Context, subject string, data models.TaskApprovalMessage) error
}

// MessageBuilder is the full set of outbound messaging operations.
type MessageBuilder interface {
	MeetingEventSender
	ApprovalEventSender
	IsReady() bool
}
