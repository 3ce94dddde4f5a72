// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"github.com/nats-io/nats.go"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
)

// INatsMsg is the part of *nats.Msg a handler needs.
type INatsMsg interface {
	Respond(data []byte) error
}

// NatsMessage adapts a received *nats.Msg to domain.Message.
type NatsMessage struct {
	subject string
	reply   string
	data    []byte
	msg     INatsMsg
}

var _ domain.Message = (*NatsMessage)(nil)

// NewNatsMessage wraps a received NATS message.
func NewNatsMessage(msg *nats.Msg) *NatsMessage {
	return &NatsMessage{
		subject: msg.Subject,
		reply:   msg.Reply,
		data:    msg.Data,
		msg:     msg,
	}
}

// Subject returns the subject the message was received on.
func (m *NatsMessage) Subject() string {
	return m.subject
}

// Data returns the message payload.
func (m *NatsMessage) Data() []byte {
	return m.data
}

// HasReply reports whether the sender waits for a response.
func (m *NatsMessage) HasReply() bool {
	return m.reply != ""
}

// Respond sends data to the reply subject.
func (m *NatsMessage) Respond(data []byte) error {
	if !m.HasReply() {
		return nats.ErrMsgNoReply
	}
	return m.msg.Respond(data)
}
