// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ResponseCacheLookups counts page cache lookups by view and result (hit or miss).
	ResponseCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_response_cache_lookups_total",
		Help: "Total number of response cache lookups",
	}, []string{"view", "result"})

	// ContentWrites counts successful user writes by kind (post, comment, follow, ...).
	ContentWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_content_writes_total",
		Help: "Total number of content writes by kind and operation",
	}, []string{"kind", "operation"})
)

// RecordCacheLookup increments the lookup counter for view.
func RecordCacheLookup(view string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	ResponseCacheLookups.WithLabelValues(view, result).Inc()
}

// RecordWrite increments the write counter.
func RecordWrite(kind, operation string) {
	ContentWrites.WithLabelValues(kind, operation).Inc()
}

const queryStartKey = "inkwell:query_start"

// DatabaseMetrics records query latency through GORM callbacks.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// Register hooks latency observation into every create, query, update and
// delete issued through the wrapped DB.
func (m *DatabaseMetrics) Register() error {
	cb := m.db.Callback()
	ops := []struct {
		name   string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
	}

	for _, op := range ops {
		operation := op.name
		if err := op.before("metrics:before_"+operation, func(tx *gorm.DB) {
			tx.InstanceSet(queryStartKey, time.Now())
		}); err != nil {
			return err
		}
		if err := op.after("metrics:after_"+operation, func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			m.ObserveQuery(operation, tx.Statement.Table, start)
		}); err != nil {
			return err
		}
	}
	return nil
}
