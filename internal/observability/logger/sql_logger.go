package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

// SQLLogger sends gorm output to zap. Missing rows are not errors for the
// payment lookups, and bound parameters are never written.
type SQLLogger struct {
	log   *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

// NewSQLLogger logs failed and slow statements; verbose also logs every
// statement at debug level.
func NewSQLLogger(base *zap.Logger, slow time.Duration, verbose bool) *SQLLogger {
	if slow <= 0 {
		slow = defaultSlowQuery
	}
	level := gormlogger.Warn
	if verbose {
		level = gormlogger.Info
	}
	return &SQLLogger{log: base.Named("db"), level: level, slow: slow}
}

func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *SQLLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *SQLLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *SQLLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *SQLLogger) message(ctx context.Context, min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []interface{}) {
	if l.level < min {
		return
	}
	WithContext(ctx, l.log).Log(lvl, fmt.Sprintf(msg, data...))
}

func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var (
		lvl zapcore.Level
		msg string
	)
	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) && l.level >= gormlogger.Error:
		lvl, msg = zapcore.ErrorLevel, "query failed"
	case elapsed > l.slow && l.level >= gormlogger.Warn:
		lvl, msg = zapcore.WarnLevel, "slow query"
	case l.level >= gormlogger.Info:
		lvl, msg = zapcore.DebugLevel, "query"
	default:
		return
	}

	sql, rows := fc()
	sql = strings.TrimSpace(sql)
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.String("table", tableOf(sql)),
		zap.Duration("elapsed", elapsed),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	WithContext(ctx, l.log).Log(lvl, msg, fields...)
}

// ParamsFilter drops bound values.
func (l *SQLLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

// tableOf picks the first table named after FROM, INTO or UPDATE.
func tableOf(sql string) string {
	tokens := strings.Fields(sql)
	for i := 0; i+1 < len(tokens); i++ {
		switch strings.ToUpper(tokens[i]) {
		case "FROM", "INTO", "UPDATE":
			return strings.ToLower(strings.Trim(tokens[i+1], "\"`();,"))
		}
	}
	return ""
}

var (
	_ gormlogger.Interface = (*SQLLogger)(nil)
	_ gorm.ParamsFilter    = (*SQLLogger)(nil)
)
