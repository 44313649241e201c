package metadata

import "time"

const (
	outcomeMiss      = "miss"
	outcomePartial   = "partial"
	outcomeSatisfied = "satisfied"
	outcomeError     = "error"
)

// ResolutionLogEvent describes one hook invocation within a query run.
type ResolutionLogEvent struct {
	Subject  string
	Strand   string
	Key      string
	Kind     QueryKind
	Hook     string
	Outcome  string
	Duration time.Duration
	Err      error
}

// ResolutionLogger records resolution events.
type ResolutionLogger interface {
	LogResolution(ResolutionLogEvent)
}

// ResolutionLoggerFunc adapts a function to ResolutionLogger.
type ResolutionLoggerFunc func(ResolutionLogEvent)

// LogResolution implements ResolutionLogger.
func (f ResolutionLoggerFunc) LogResolution(event ResolutionLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopResolutionLogger struct{}

func (noopResolutionLogger) LogResolution(ResolutionLogEvent) {}
