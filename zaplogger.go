package metadata

import "go.uber.org/zap"

// NewZapLogger adapts a zap logger to ResolutionLogger. Misses log at debug,
// errors at warn; resolution misses are expected traffic, not incidents.
func NewZapLogger(logger *zap.Logger) ResolutionLogger {
	if logger == nil {
		return noopResolutionLogger{}
	}
	return ResolutionLoggerFunc(func(event ResolutionLogEvent) {
		fields := []zap.Field{
			zap.String("subject", event.Subject),
			zap.String("strand", event.Strand),
			zap.String("key", event.Key),
			zap.String("kind", event.Kind.String()),
			zap.String("hook", event.Hook),
			zap.String("outcome", event.Outcome),
			zap.Duration("duration", event.Duration),
		}
		if event.Err != nil {
			fields = append(fields, zap.Error(event.Err))
		}
		switch event.Outcome {
		case outcomeError:
			logger.Warn("metadata resolution", fields...)
		case outcomeSatisfied:
			logger.Debug("metadata resolved", fields...)
		default:
			logger.Debug("metadata resolution", fields...)
		}
	})
}
