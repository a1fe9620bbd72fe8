package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	applog "vaultbooks/pkg/logger"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

const defaultSlowThreshold = 200 * time.Millisecond

// QueryLogger routes gorm logs to the global zap logger, tagging each line
// with the caller's trace id and any fields stored by logger.WithFields.
type QueryLogger struct {
	SlowThreshold time.Duration
	Level         logger.LogLevel
	ShowSQL       bool
}

func NewQueryLogger(production bool) *QueryLogger {
	if production {
		return &QueryLogger{SlowThreshold: defaultSlowThreshold, Level: logger.Warn}
	}
	return &QueryLogger{SlowThreshold: defaultSlowThreshold, Level: logger.Info, ShowSQL: true}
}

func (l *QueryLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.Level = level
	return &cp
}

func (l *QueryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.Level >= logger.Info {
		zap.L().Info(fmt.Sprintf(msg, data...), contextFields(ctx)...)
	}
}

func (l *QueryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.Level >= logger.Warn {
		zap.L().Warn(fmt.Sprintf(msg, data...), contextFields(ctx)...)
	}
}

func (l *QueryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.Level >= logger.Error {
		zap.L().Error(fmt.Sprintf(msg, data...), contextFields(ctx)...)
	}
}

func (l *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, logger.ErrRecordNotFound)
	slow := l.SlowThreshold > 0 && elapsed > l.SlowThreshold
	verbose := l.Level >= logger.Info && l.ShowSQL
	if !failed && !slow && !verbose {
		return
	}

	sql, rows := fc()
	fields := append(contextFields(ctx),
		zap.String("file", utils.FileWithLineNum()),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Float64("duration_ms", float64(elapsed.Microseconds())/1000),
	)

	switch {
	case failed && l.Level >= logger.Error:
		zap.L().Error("gorm.query", append(fields, zap.Error(err))...)
	case slow && l.Level >= logger.Warn:
		zap.L().Warn("gorm.slow_query", append(fields, zap.Duration("threshold", l.SlowThreshold))...)
	case verbose:
		zap.L().Info("gorm.query", fields...)
	}
}

func contextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields := applog.FieldsFrom(ctx)
	out := make([]zap.Field, 0, len(fields)+1)
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		out = append(out, zap.String("trace_id", sc.TraceID().String()))
	}
	return append(out, fields...)
}
