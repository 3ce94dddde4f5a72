// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

// MockOccurrenceService is a mock implementation of domain.OccurrenceService
type MockOccurrenceService struct {
	mock.Mock
}

func (m *MockOccurrenceService) ExpandOccurrences(meeting *models.Meeting) ([]models.OccurrenceSlot, error) {
	args := m.Called(meeting)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OccurrenceSlot), args.Error(1)
}

// Ensure MockOccurrenceService implements domain.OccurrenceService
var _ domain.OccurrenceService = (*MockOccurrenceService)(nil)
