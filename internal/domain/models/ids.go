// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"github.com/akamensky/base58"
	"github.com/google/uuid"
)

// NewSubRecordID returns a short id for records embedded in a meeting
// (agenda items, decisions and linked tasks): a random UUID encoded in base58.
func NewSubRecordID() string {
	id := uuid.New()
	return base58.Encode(id[:])
}
