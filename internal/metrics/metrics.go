// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

// Package metrics holds the Prometheus instrumentation for the collection
// store, its cache, the blob backends and the backup subsystem.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantstore_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantstore_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantstore_cache_evictions_total",
			Help: "Total number of cache entries removed by expiry or invalidation",
		},
		[]string{"cache", "reason"}, // "expired", "invalidated", "swept"
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tenantstore_cache_size",
			Help: "Current number of entries in the cache",
		},
		[]string{"cache"},
	)

	// Collection Metrics
	CollectionPersists = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantstore_collection_persist_total",
			Help: "Total number of whole-collection writes",
		},
		[]string{"collection", "status"},
	)

	CollectionPersistDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenantstore_collection_persist_duration_seconds",
			Help:    "Duration of whole-collection writes in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection"},
	)

	CollectionDecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantstore_collection_decode_failures_total",
			Help: "Total number of collection blobs that failed to decode and were replaced by an empty sequence",
		},
		[]string{"collection"},
	)

	// Backup Metrics
	BackupOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantstore_backup_operations_total",
			Help: "Total number of backup operations",
		},
		[]string{"operation", "status"}, // operation: create, restore, delete, reconcile, retention
	)

	BackupSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenantstore_backup_size_bytes",
			Help: "Serialized size of the most recent backup payload",
		},
	)

	// Fallback Metrics
	FallbackWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantstore_fallback_writes_total",
			Help: "Total number of writes kept in memory because the primary store failed",
		},
		[]string{"reason"},
	)

	FallbackPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenantstore_fallback_pending",
			Help: "Number of degraded writes waiting to be flushed to the primary store",
		},
	)

	FallbackDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tenantstore_fallback_dropped_total",
			Help: "Total number of degraded writes dropped because the ring buffer was full",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tenantstore_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantstore_circuit_breaker_requests_total",
			Help: "Total number of requests through a circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantstore_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Audit Metrics
	AuditEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantstore_audit_events_total",
			Help: "Total number of audit events written, by sink",
		},
		[]string{"type", "sink"}, // sink: "durable", "memory"
	)
)

// RecordCacheHit records a cache hit.
func RecordCacheHit(cache string) {
	CacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a cache miss.
func RecordCacheMiss(cache string) {
	CacheMisses.WithLabelValues(cache).Inc()
}

// RecordCacheEviction records n removed entries.
func RecordCacheEviction(cache, reason string, n int) {
	if n <= 0 {
		return
	}
	CacheEvictions.WithLabelValues(cache, reason).Add(float64(n))
}

// RecordPersist records a collection write and its latency.
func RecordPersist(collection string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	CollectionPersists.WithLabelValues(collection, status).Inc()
	CollectionPersistDuration.WithLabelValues(collection).Observe(duration.Seconds())
}

// RecordDecodeFailure records a corrupt collection blob.
func RecordDecodeFailure(collection string) {
	CollectionDecodeFailures.WithLabelValues(collection).Inc()
}

// RecordBackupOperation records the outcome of a backup operation.
func RecordBackupOperation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	BackupOperations.WithLabelValues(operation, status).Inc()
}

// RecordFallbackWrite records a write diverted to the in-memory ring.
func RecordFallbackWrite(reason string, pending int) {
	FallbackWrites.WithLabelValues(reason).Inc()
	FallbackPending.Set(float64(pending))
}

// RecordAuditEvent records an audit event landing in sink.
func RecordAuditEvent(eventType, sink string) {
	AuditEvents.WithLabelValues(eventType, sink).Inc()
}
