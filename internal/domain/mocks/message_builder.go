// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

// MockMessageBuilder implements MessageBuilder for testing
type MockMessageBuilder struct {
	mock.Mock
}

func (m *MockMessageBuilder) SendMeetingEvent(ctx context.Context, subject string, data models.MeetingEventMessage) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func (m *MockMessageBuilder) SendApprovalEvent(ctx context.Context, subject string, data models.TaskApprovalMessage) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func (m *MockMessageBuilder) IsReady() bool {
	args := m.Called()
	return args.Bool(0)
}
