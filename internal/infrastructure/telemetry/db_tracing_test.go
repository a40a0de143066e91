package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type rateRow struct {
	ID       uint   `gorm:"primaryKey"`
	Currency string `gorm:"size:3"`
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&rateRow{}))
	return db
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop()).Register(db))
	assert.NoError(t, db.Create(&rateRow{Currency: "USD"}).Error)
}

func TestDBTracingPlugin_RegisterEnabled(t *testing.T) {
	db := openTestDB(t)
	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).Register(db))

	require.NoError(t, db.Create(&rateRow{Currency: "USD"}).Error)
	var rows []rateRow
	require.NoError(t, db.Find(&rows).Error)
	assert.Len(t, rows, 1)
}

func TestDBTracingPlugin_AfterQueryMarksSlowQuery(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	core, logs := observer.New(zap.WarnLevel)
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Millisecond}, zap.New(core))

	ctx, span := tp.Tracer("test").Start(context.Background(), "query")
	ctx = context.WithValue(ctx, queryStartTimeKey, time.Now().Add(-50*time.Millisecond))

	tx := openTestDB(t).WithContext(ctx)
	tx.Statement.Context = ctx
	tx.Statement.Table = "exchange_rates"
	tx.Statement.RowsAffected = 3
	plugin.afterQuery(tx)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := spans[0].Attributes()
	assert.Contains(t, attrs, attribute.Bool("db.slow_query", true))
	assert.Contains(t, attrs, attribute.String("db.sql.table", "exchange_rates"))
	assert.Contains(t, attrs, attribute.Int64("db.rows_affected", 3))
	assert.Equal(t, 1, logs.FilterMessage("Slow query").Len())
}

func TestDBTracingPlugin_AfterQueryFastQuery(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Hour}, zap.New(core))

	ctx := context.WithValue(context.Background(), queryStartTimeKey, time.Now())
	tx := openTestDB(t).WithContext(ctx)
	tx.Statement.Context = ctx
	plugin.afterQuery(tx)

	assert.Zero(t, logs.Len())
}
