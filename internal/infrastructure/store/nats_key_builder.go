// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"fmt"
	"strings"
)

// Key prefixes
const (
	KeyPrefixMeeting = "meeting"
	KeyPrefixTask    = "task"
	KeyPrefixSeries  = "series"
)

// KeyBuilder provides utilities for building consistent NATS KV keys.
// Keys use "." as the separator so they map onto NATS subject tokens.
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with an optional prefix
func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{
		prefix: prefix,
	}
}

// EntityKey builds a key for an entity (e.g., "meeting.uid-123")
func (kb *KeyBuilder) EntityKey(entityType, uid string) string {
	return kb.applyPrefix(fmt.Sprintf("%s.%s", entityType, uid))
}

// EntityPrefix returns the prefix shared by every key of an entity type.
func (kb *KeyBuilder) EntityPrefix(entityType string) string {
	return kb.applyPrefix(entityType + ".")
}

// UIDFromKey extracts the uid from an entity key. ok is false when the key
// does not belong to the entity type.
func (kb *KeyBuilder) UIDFromKey(entityType, key string) (uid string, ok bool) {
	uid, ok = strings.CutPrefix(key, kb.EntityPrefix(entityType))
	if !ok || uid == "" {
		return "", false
	}
	return uid, true
}

// applyPrefix adds the builder's prefix if one is set
func (kb *KeyBuilder) applyPrefix(key string) string {
	if kb.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s.%s", kb.prefix, key)
}
