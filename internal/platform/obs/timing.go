package obs

import (
	"context"
	"log/slog"
	"time"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// WithRequestID stores id in ctx for Time and request logging.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// Time logs the duration of an operation when the returned func is deferred:
//
//	defer obs.Time(ctx, logger, "optimizer.run")(&err)
func Time(ctx context.Context, logger *slog.Logger, name string) func(errp *error) {
	start := time.Now()
	if logger == nil {
		logger = slog.Default()
	}

	return func(errp *error) {
		dur := time.Since(start)
		attrs := []any{"req_id", RequestID(ctx), "op", name, "dur_ms", dur.Milliseconds()}

		if errp != nil && *errp != nil {
			logger.WarnContext(ctx, "operation failed", append(attrs, "err", *errp)...)
			return
		}
		logger.InfoContext(ctx, "operation done", attrs...)
	}
}
