// Package logging builds the zap-backed ectologger used by every command
package logging

import (
	"fmt"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	clovercontext "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// New returns a logger at the given level. Pretty selects zap's development
// console encoder instead of JSON.
func New(level string, pretty bool) (ectologger.Logger, *zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if pretty {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return zapadapter.NewZapEctoLogger(zapLogger, WithContextFields), zapLogger, nil
}

// WithContextFields copies request metadata and trace ids from the message
// context into its fields
func WithContextFields(msg ectologger.EctoLogMessage) ectologger.EctoLogMessage {
	if msg.Ctx == nil {
		return msg
	}
	fields := clovercontext.Fields(msg.Ctx)
	if traceID := tracing.GetTraceID(msg.Ctx); traceID != "" {
		fields["trace_id"] = traceID
		fields["span_id"] = tracing.GetSpanID(msg.Ctx)
	}
	if len(fields) == 0 {
		return msg
	}
	// sub-loggers share their field map, so merge into a copy
	msg.Fields = ectolinq.Merge(fields, msg.Fields)
	return msg
}
