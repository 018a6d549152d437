package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestSQLLoggerTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewSQLLogger(zap.New(core), 50*time.Millisecond, false)
	ctx := context.Background()
	stmt := func() (string, int64) {
		return `UPDATE payments SET status = 'SUCCESS' WHERE id = 1 AND status <> 'SUCCESS'`, 1
	}

	l.Trace(ctx, time.Now(), stmt, nil)
	assert.Zero(t, logs.Len(), "fast statements stay quiet outside verbose mode")

	l.Trace(ctx, time.Now(), stmt, gormlogger.ErrRecordNotFound)
	assert.Zero(t, logs.Len())

	l.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	l.Trace(ctx, time.Now(), stmt, errors.New("database is locked"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "slow query", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "payments", entries[0].ContextMap()["table"])
	assert.Equal(t, "query failed", entries[1].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "db", entries[1].LoggerName)
}

func TestSQLLoggerVerboseAndSilent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewSQLLogger(zap.New(core), 0, true)
	stmt := func() (string, int64) { return `SELECT * FROM enrollments WHERE id = 7`, 1 }

	l.Trace(context.Background(), time.Now(), stmt, nil)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
	assert.Equal(t, "enrollments", logs.All()[0].ContextMap()["table"])

	silent := l.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now(), stmt, errors.New("boom"))
	silent.Error(context.Background(), "migration %s failed", "0003")
	assert.Equal(t, 1, logs.Len())

	l.Warn(context.Background(), "record %d skipped", 9)
	assert.Equal(t, "record 9 skipped", logs.All()[1].Message)
}

func TestSQLLoggerDropsParams(t *testing.T) {
	l := NewSQLLogger(zap.NewNop(), 0, false)
	sql, params := l.ParamsFilter(context.Background(), "SELECT 1 WHERE email = ?", "a@example.com")
	assert.Equal(t, "SELECT 1 WHERE email = ?", sql)
	assert.Nil(t, params)
}
