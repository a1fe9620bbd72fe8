package logger

import (
	"context"

	"go.uber.org/zap"
)

type fieldsKey struct{}

// WithFields returns a child of ctx carrying fields for loggers that only see
// the context, such as the gorm query logger.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	prev := FieldsFrom(ctx)
	merged := make([]zap.Field, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

func FieldsFrom(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).([]zap.Field)
	return fields
}

// CustomerID tags ctx with the customer a unit of work belongs to.
func CustomerID(ctx context.Context, id string) context.Context {
	return WithFields(ctx, zap.String("customer_id", id))
}
