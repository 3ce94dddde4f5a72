// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import "time"

// Service is implemented by every service that depends on optional backends.
type Service interface {
	ServiceReady() bool
}

// ServiceConfig is the configuration for the Services.
type ServiceConfig struct {
	// SkipEtagValidation is a flag to skip the Etag validation - only meant for local development.
	// When set, mutations read the current revision from the store instead of requiring If-Match.
	SkipEtagValidation bool
	// EventWorkers bounds how many outbound events are published concurrently.
	EventWorkers int
	// Now returns the current time. Defaults to time.Now in UTC.
	Now func() time.Time
}

func (c ServiceConfig) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

func (c ServiceConfig) eventWorkers() int {
	if c.EventWorkers <= 0 {
		return 4
	}
	return c.EventWorkers
}
