package metadata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-metadata/pkg/audit"
)

// Hook is one pluggable resolution strategy. A hook either answers the query
// or signals HookFailure so the runner moves on; any other error is terminal
// and propagates unchanged (cancellation, storage faults, misconfiguration).
type Hook interface {
	Resolve(ctx context.Context, q Query) (Result, error)
}

// HookFunc adapts a plain function to Hook.
type HookFunc func(ctx context.Context, q Query) (Result, error)

// Resolve implements Hook.
func (fn HookFunc) Resolve(ctx context.Context, q Query) (Result, error) {
	if fn == nil {
		return Result{}, FailHook("nil hook")
	}
	return fn(ctx, q)
}

// Hooks is an ordered resolution chain.
type Hooks []Hook

// NamedHook lets a hook identify itself in logs and traces.
type NamedHook interface {
	HookName() string
}

func hookName(h Hook) string {
	if named, ok := h.(NamedHook); ok {
		return named.HookName()
	}
	return fmt.Sprintf("%T", h)
}

// RunnerOption configures a Runner.
type RunnerOption func(*runnerConfig)

type runnerConfig struct {
	defaults  Hooks
	byKey     map[string]Hooks
	logger    ResolutionLogger
	cache     ResultCache
	traceSink func(Trace)
	audit     audit.Hooks
}

// WithHooks replaces the default hook chain used for subjects without a
// dedicated configuration.
func WithHooks(hooks ...Hook) RunnerOption {
	return func(cfg *runnerConfig) {
		cfg.defaults = normalizeHooks(hooks)
	}
}

// UseHooks assigns a hook chain to one subject-type bucket (see HookKeyer).
func UseHooks(subjectKey string, hooks ...Hook) RunnerOption {
	return func(cfg *runnerConfig) {
		if subjectKey == "" {
			return
		}
		if cfg.byKey == nil {
			cfg.byKey = make(map[string]Hooks)
		}
		cfg.byKey[subjectKey] = normalizeHooks(hooks)
	}
}

// WithResolutionLogger attaches a logger receiving one event per hook
// invocation plus a terminal event per run.
func WithResolutionLogger(logger ResolutionLogger) RunnerOption {
	return func(cfg *runnerConfig) {
		if logger == nil {
			cfg.logger = noopResolutionLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithResultCache enables write-back of satisfying results. Keys opt in
// through a non-zero CacheTTL. Pair with CacheHook to read from the same
// cache ahead of the other strategies.
func WithResultCache(cache ResultCache) RunnerOption {
	return func(cfg *runnerConfig) {
		cfg.cache = cache
	}
}

// WithTraceSink receives a provenance trace for every run.
func WithTraceSink(sink func(Trace)) RunnerOption {
	return func(cfg *runnerConfig) {
		cfg.traceSink = sink
	}
}

// WithAuditHooks fans out a resolution audit event after every satisfied
// run. Audit failures are logged, never fatal to the query.
func WithAuditHooks(hooks audit.Hooks) RunnerOption {
	return func(cfg *runnerConfig) {
		cfg.audit = hooks
	}
}

func normalizeHooks(hooks []Hook) Hooks {
	out := make(Hooks, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// Runner executes hook chains against queries. A Runner is immutable after
// construction and safe for concurrent use; each run is an independent read
// computation over the snapshot the sources hand it.
type Runner struct {
	cfg runnerConfig
}

// NewRunner constructs a runner. Without WithHooks the canonical chain
// (direct, inheritance, package, defaults) is used.
func NewRunner(opts ...RunnerOption) *Runner {
	cfg := runnerConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.defaults == nil {
		cfg.defaults = DefaultHooks()
	}
	return &Runner{cfg: cfg}
}

var (
	defaultRunnerOnce sync.Once
	defaultRunner     *Runner
)

// Run executes the query through the package default runner.
func Run(ctx context.Context, q Query) (Result, error) {
	defaultRunnerOnce.Do(func() {
		defaultRunner = NewRunner()
	})
	return defaultRunner.Run(ctx, q)
}

// Run resolves the hook chain for the query's subject and executes it.
func (r *Runner) Run(ctx context.Context, q Query) (Result, error) {
	return r.RunWith(ctx, r.hooksFor(q.Subject), q)
}

// RunWith executes an explicit hook chain against the query. Hooks run in
// order; a HookFailure moves to the next hook, a value is joined into the
// running result, and the chain short-circuits once the query is satisfied.
// If no hook produced anything the run fails with a QueryError.
func (r *Runner) RunWith(ctx context.Context, hooks Hooks, q Query) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	q.runner = r

	trace := Trace{
		Subject: q.Subject.MetadataRef(),
		Strand:  q.Strand,
		Key:     q.Key.String(),
		At:      q.Date(),
	}

	result := q.initialState()
	awaiting := true
	names := make([]string, 0, len(hooks))

	for _, hook := range hooks {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		name := hookName(hook)
		names = append(names, name)

		start := time.Now()
		partial, err := hook.Resolve(ctx, q)
		duration := time.Since(start)

		if err != nil {
			err = wrapHookError(name, err)
			if !IsHookFailure(err) {
				r.log(q, name, duration, outcomeError, err)
				trace.Steps = append(trace.Steps, Provenance{Hook: name, Outcome: outcomeError, Reason: err.Error()})
				r.emitTrace(trace)
				return Result{}, err
			}
			r.log(q, name, duration, outcomeMiss, err)
			trace.Steps = append(trace.Steps, Provenance{Hook: name, Outcome: outcomeMiss, Reason: err.Error()})
			continue
		}

		if awaiting {
			result = partial
		} else {
			result = q.Join(result, partial)
		}
		awaiting = false

		if q.SatisfiedBy(result) {
			r.log(q, name, duration, outcomeSatisfied, nil)
			trace.Steps = append(trace.Steps, Provenance{Hook: name, Outcome: outcomeSatisfied, Value: traceValue(partial)})
			break
		}
		r.log(q, name, duration, outcomePartial, nil)
		trace.Steps = append(trace.Steps, Provenance{Hook: name, Outcome: outcomePartial, Value: traceValue(partial)})
	}

	r.emitTrace(trace)

	if awaiting {
		return Result{}, &QueryError{
			Subject: q.Subject.MetadataRef(),
			Strand:  q.Strand,
			Key:     q.Key.String(),
			Hooks:   names,
		}
	}

	r.storeResult(ctx, q, result)
	r.emitAudit(ctx, q, result)
	return result, nil
}

func (r *Runner) hooksFor(subject Subject) Hooks {
	if subject != nil && len(r.cfg.byKey) > 0 {
		if hooks, ok := r.cfg.byKey[hookKeyFor(subject)]; ok {
			return hooks
		}
	}
	return r.cfg.defaults
}

func hookKeyFor(subject Subject) string {
	if keyed, ok := subject.(HookKeyer); ok {
		return keyed.MetadataHookKey()
	}
	return fmt.Sprintf("%T", subject)
}

func (r *Runner) log(q Query, hook string, duration time.Duration, outcome string, err error) {
	r.logger().LogResolution(ResolutionLogEvent{
		Subject:  q.Subject.MetadataRef(),
		Strand:   q.Strand,
		Key:      q.Key.String(),
		Kind:     q.Kind,
		Hook:     hook,
		Outcome:  outcome,
		Duration: duration,
		Err:      err,
	})
}

func (r *Runner) logger() ResolutionLogger {
	if r.cfg.logger != nil {
		return r.cfg.logger
	}
	return noopResolutionLogger{}
}

func (r *Runner) emitTrace(trace Trace) {
	if r.cfg.traceSink != nil {
		r.cfg.traceSink(trace)
	}
}

func (r *Runner) storeResult(ctx context.Context, q Query, result Result) {
	if r.cfg.cache == nil {
		return
	}
	ttl := q.keyOf(result.Key).CacheTTL
	if ttl <= 0 {
		return
	}
	if err := r.cfg.cache.Store(ctx, q.CacheKey(), result, ttl); err != nil {
		r.log(q, "cache", 0, outcomeError, err)
	}
}

func (r *Runner) emitAudit(ctx context.Context, q Query, result Result) {
	if !r.cfg.audit.Enabled() {
		return
	}
	event := audit.Event{
		Verb:       audit.VerbResolved,
		SubjectRef: q.Subject.MetadataRef(),
		Strand:     q.Strand,
		Key:        q.Key.String(),
		Metadata: map[string]any{
			"kind": q.Kind.String(),
			"at":   q.Date(),
		},
	}
	if result.Key.Name != "" {
		event.Key = result.Key.Name
	}
	if err := r.cfg.audit.Notify(ctx, event); err != nil {
		r.log(q, "audit", 0, outcomeError, err)
	}
}
