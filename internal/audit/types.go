// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

// Package audit records administrative actions against the store.
//
// Events are written asynchronously to a durable Store. When the durable
// store rejects a write the event is kept in a bounded in-memory ring
// instead, so auditing never blocks or fails the action being audited.
package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes audit events.
type EventType string

const (
	// Backup events
	EventTypeBackupCreated    EventType = "backup.created"
	EventTypeBackupRestored   EventType = "backup.restored"
	EventTypeBackupDeleted    EventType = "backup.deleted"
	EventTypeBackupPruned     EventType = "backup.pruned"
	EventTypeBackupReconciled EventType = "backup.reconciled"

	// Feature flag events
	EventTypeFlagChanged EventType = "flag.changed"
	EventTypeFlagDeleted EventType = "flag.deleted"

	// Account events
	EventTypeCreditsAdjusted EventType = "account.credits_adjusted"

	// Storage events
	EventTypeStorageDegraded EventType = "storage.degraded"
	EventTypeStorageFlushed  EventType = "storage.flushed"
)

// Severity indicates the severity level of an audit event.
type Severity string

const (
	SeverityDebug    Severity = "debug"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Outcome indicates whether an action succeeded or failed.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one audited action.
type Event struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	Type          EventType       `json:"type"`
	Severity      Severity        `json:"severity"`
	Outcome       Outcome         `json:"outcome"`
	Actor         Actor           `json:"actor"`
	Target        *Target         `json:"target,omitempty"`
	Action        string          `json:"action"`
	Description   string          `json:"description"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// Actor is who performed an action.
type Actor struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Target is the object of an action.
type Target struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Store persists audit events.
type Store interface {
	// Save persists an audit event.
	Save(ctx context.Context, event *Event) error

	// Query returns matching events, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
}

// QueryFilter selects audit events. Zero fields match everything.
type QueryFilter struct {
	Types     []EventType `json:"types,omitempty"`
	Outcomes  []Outcome   `json:"outcomes,omitempty"`
	ActorID   string      `json:"actor_id,omitempty"`
	TargetID  string      `json:"target_id,omitempty"`
	StartTime *time.Time  `json:"start_time,omitempty"`
	EndTime   *time.Time  `json:"end_time,omitempty"`
	Limit     int         `json:"limit,omitempty"`
}

// DefaultQueryFilter returns a sensible default filter.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: 100}
}

// Matches reports whether event satisfies every criterion of f.
func (f *QueryFilter) Matches(event *Event) bool {
	if len(f.Types) > 0 && !containsValue(f.Types, event.Type) {
		return false
	}
	if len(f.Outcomes) > 0 && !containsValue(f.Outcomes, event.Outcome) {
		return false
	}
	if f.ActorID != "" && event.Actor.ID != f.ActorID {
		return false
	}
	if f.TargetID != "" && (event.Target == nil || event.Target.ID != f.TargetID) {
		return false
	}
	if f.StartTime != nil && event.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && event.Timestamp.After(*f.EndTime) {
		return false
	}
	return true
}

func containsValue[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
