// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package audit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tomtom215/tenantstore/internal/logging"
	"github.com/tomtom215/tenantstore/internal/metrics"
)

// Sink labels used in metrics.
const (
	SinkDurable = "durable"
	SinkMemory  = "memory"
)

// Config holds configuration for the audit logger.
type Config struct {
	// Enabled controls whether audit logging is active.
	Enabled bool `json:"enabled"`

	// LogLevel filters events by minimum severity.
	LogLevel Severity `json:"log_level"`

	// BufferSize is the size of the async write buffer.
	BufferSize int `json:"buffer_size"`

	// MemoryCapacity bounds the fallback ring.
	MemoryCapacity int `json:"memory_capacity"`

	// WriteTimeout bounds each durable write.
	WriteTimeout time.Duration `json:"write_timeout"`

	// LogToStdout also writes events to the application log.
	LogToStdout bool `json:"log_to_stdout"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		LogLevel:       SeverityInfo,
		BufferSize:     1000,
		MemoryCapacity: DefaultMemoryCapacity,
		WriteTimeout:   5 * time.Second,
	}
}

// Logger is the audit logging service. Events go to the durable store
// when it accepts them and to the memory ring otherwise.
type Logger struct {
	config    *Config
	durable   Store
	fallback  *MemoryStore
	eventChan chan *Event
	mu        sync.RWMutex
	sendMu    sync.RWMutex // held shared by senders, exclusively by Close
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewLogger creates an audit logger writing to durable. A nil durable
// store keeps every event in memory.
func NewLogger(durable Store, config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	l := &Logger{
		config:    config,
		durable:   durable,
		fallback:  NewMemoryStore(config.MemoryCapacity),
		eventChan: make(chan *Event, config.BufferSize),
		stopChan:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.asyncWriter()

	return l
}

// asyncWriter processes events from the buffer.
func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

// writeEvent tries the durable store and degrades to the memory ring.
func (l *Logger) writeEvent(event *Event) {
	l.mu.RLock()
	config := l.config
	l.mu.RUnlock()

	if config.LogToStdout {
		l.logToStdout(event)
	}

	if l.durable != nil {
		ctx, cancel := context.WithTimeout(context.Background(), config.WriteTimeout)
		err := l.durable.Save(ctx, event)
		cancel()
		if err == nil {
			metrics.RecordAuditEvent(string(event.Type), SinkDurable)
			return
		}
		logging.Warn().Err(err).
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Msg("Durable audit write failed, keeping event in memory")
	}

	l.fallback.Save(context.Background(), event) //nolint:errcheck // MemoryStore.Save cannot fail
	metrics.RecordAuditEvent(string(event.Type), SinkMemory)
}

func (l *Logger) logToStdout(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal audit event")
		return
	}
	logging.Info().RawJSON("event", data).Msg("Audit event")
}

// Log records an audit event. It never blocks: when the buffer is full
// the event goes straight to the memory ring.
func (l *Logger) Log(ctx context.Context, event *Event) {
	l.mu.RLock()
	config := l.config
	l.mu.RUnlock()

	if !config.Enabled || !shouldLog(event.Severity, config.LogLevel) {
		return
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.CorrelationID == "" && ctx != nil {
		event.CorrelationID = logging.CorrelationIDFromContext(ctx)
	}

	l.sendMu.RLock()
	if l.closed.Load() {
		l.sendMu.RUnlock()
		l.writeEvent(event)
		return
	}

	select {
	case l.eventChan <- event:
		l.sendMu.RUnlock()
	default:
		l.sendMu.RUnlock()
		logging.Warn().Str("event_id", event.ID).Msg("Audit event buffer full, keeping event in memory")
		l.fallback.Save(ctx, event) //nolint:errcheck // MemoryStore.Save cannot fail
		metrics.RecordAuditEvent(string(event.Type), SinkMemory)
	}
}

var severityOrder = map[Severity]int{
	SeverityDebug:    0,
	SeverityInfo:     1,
	SeverityWarning:  2,
	SeverityError:    3,
	SeverityCritical: 4,
}

func shouldLog(severity, minimum Severity) bool {
	return severityOrder[severity] >= severityOrder[minimum]
}

// Close drains buffered events and stops the writer. It is idempotent.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		// No sender is between its closed check and its send once this
		// returns, so the writer drains every queued event.
		l.sendMu.Lock()
		l.closed.Store(true)
		l.sendMu.Unlock()
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

// Query returns matching events from both sinks, newest first. When the
// durable store cannot be read only in-memory events are returned.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	events, _ := l.fallback.Query(ctx, filter)
	if l.durable == nil {
		return events, nil
	}

	durable, err := l.durable.Query(ctx, filter)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Durable audit query failed, returning in-memory events only")
		return events, nil
	}

	events = append(events, durable...)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[:filter.Limit]
	}
	return events, nil
}

// Pending returns the number of events held only in memory.
func (l *Logger) Pending() int {
	return l.fallback.Len()
}

// Flush replays in-memory events to the durable store, oldest first.
// Events that still fail stay in memory.
func (l *Logger) Flush(ctx context.Context) (int, error) {
	if l.durable == nil {
		return 0, nil
	}

	events := l.fallback.Drain()
	flushed := 0
	var firstErr error
	for i := range events {
		if firstErr == nil {
			if err := l.durable.Save(ctx, &events[i]); err != nil {
				firstErr = fmt.Errorf("audit flush stopped at %s: %w", events[i].ID, err)
			} else {
				flushed++
				continue
			}
		}
		l.fallback.Save(ctx, &events[i]) //nolint:errcheck // MemoryStore.Save cannot fail
	}
	return flushed, firstErr
}

// SetEnabled enables or disables audit logging.
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Enabled = enabled
}

// Enabled returns whether audit logging is enabled.
func (l *Logger) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config.Enabled
}

// LogAdminAction records an administrative action on a target.
func (l *Logger) LogAdminAction(ctx context.Context, eventType EventType, actor Actor, target *Target, outcome Outcome, description string, metadata map[string]interface{}) {
	severity := SeverityInfo
	if outcome == OutcomeFailure {
		severity = SeverityError
	}
	l.Log(ctx, &Event{
		Type:        eventType,
		Severity:    severity,
		Outcome:     outcome,
		Actor:       actor,
		Target:      target,
		Action:      actionOf(eventType),
		Description: description,
		Metadata:    mustJSON(metadata),
	})
}

// actionOf returns the verb part of an event type.
func actionOf(t EventType) string {
	s := string(t)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return s[i+1:]
		}
	}
	return s
}

// mustJSON converts a value to JSON, returning empty object on error.
func mustJSON(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

// SystemActor returns the actor for actions the process takes itself.
func SystemActor() Actor {
	return Actor{ID: "system", Type: "system", Name: "tenantstore"}
}

// OperatorActor returns the actor for an operator-issued command.
func OperatorActor(name string) Actor {
	if name == "" {
		name = "operator"
	}
	return Actor{ID: name, Type: "operator", Name: name}
}
