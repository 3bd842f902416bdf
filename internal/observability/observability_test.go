package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestRecordCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(ResponseCacheLookups.WithLabelValues("index", "hit"))
	misses := testutil.ToFloat64(ResponseCacheLookups.WithLabelValues("index", "miss"))

	RecordCacheLookup("index", true)
	RecordCacheLookup("index", false)
	RecordCacheLookup("index", false)

	assert.Equal(t, hits+1, testutil.ToFloat64(ResponseCacheLookups.WithLabelValues("index", "hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(ResponseCacheLookups.WithLabelValues("index", "miss")))
}

type note struct {
	ID   uint
	Body string
}

func TestDatabaseMetrics_Register(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&note{}))

	require.NoError(t, NewDatabaseMetrics(db).Register())

	before := testutil.CollectAndCount(DatabaseQueryLatency)
	require.NoError(t, db.Create(&note{Body: "hi"}).Error)
	var got []note
	require.NoError(t, db.Find(&got).Error)

	assert.Greater(t, testutil.CollectAndCount(DatabaseQueryLatency), before)
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "inkwell-test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := StartSpan(context.Background(), "test.op", attribute.String("k", "v"))
	span.AddAttributes(attribute.Int("n", 1))
	span.End(errors.New("boom"))
}
