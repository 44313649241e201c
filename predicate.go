package metadata

import (
	"time"
)

// PredicateContext carries the inputs an acceptance expression evaluates
// against: the running result, the query coordinates, and caller-supplied
// bindings.
type PredicateContext struct {
	Result   Result
	Subject  string
	Strand   string
	Key      Key
	At       time.Time
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx PredicateContext) withDefaultNow() PredicateContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx PredicateContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx PredicateContext) withDefaultMaps() PredicateContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

// environment flattens the context into the variable bindings every
// predicate engine exposes to expressions.
func (ctx PredicateContext) environment() map[string]any {
	ctx = ctx.withDefaultNow().withDefaultMaps()
	approved := false
	if ctx.Result.Entry != nil {
		approved = ctx.Result.Entry.Approved()
	}
	env := map[string]any{
		"value":    ctx.Result.Value,
		"values":   ctx.Result.Values,
		"exists":   ctx.Result.Exists,
		"count":    ctx.Result.Count,
		"approved": approved,
		"subject":  ctx.Subject,
		"strand":   ctx.Strand,
		"now":      *ctx.Now,
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	if !ctx.Key.isZero() {
		env["key"] = map[string]any{
			"name":     ctx.Key.Name,
			"id":       ctx.Key.ID,
			"kind":     string(ctx.Key.Kind),
			"multiple": ctx.Key.AllowMultiple,
		}
	}
	return env
}

func (ctx PredicateContext) scopeLabel() string {
	if ctx.Subject == "" {
		return "unknown"
	}
	if ctx.Strand == "" {
		return ctx.Subject
	}
	return ctx.Subject + "/" + ctx.Strand
}

// Predicate executes acceptance expressions against a predicate context.
type Predicate interface {
	Evaluate(ctx PredicateContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledPredicate, error)
}

// CompiledPredicate represents a reusable acceptance program.
type CompiledPredicate interface {
	Evaluate(ctx PredicateContext) (any, error)
}

// CompileOption configures predicate compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// SatisfiedExpr compiles an acceptance expression and installs it as the
// query's satisfaction policy. The chain stops once the expression evaluates
// truthy against the running result; evaluation faults leave the result
// unsatisfying so later hooks still get their turn.
func SatisfiedExpr(predicate Predicate, expr string) (QueryOption, error) {
	fn, err := CompileSatisfied(predicate, expr)
	if err != nil {
		return nil, err
	}
	return SatisfiedWhen(fn), nil
}

// CompileSatisfied compiles an acceptance expression into a satisfaction
// function. Compile errors surface eagerly; runtime errors make the
// predicate reject.
func CompileSatisfied(predicate Predicate, expr string) (func(Query, Result) bool, error) {
	if predicate == nil {
		predicate = NewExprPredicate()
	}
	compiled, err := predicate.Compile(expr)
	if err != nil {
		return nil, err
	}
	return func(q Query, result Result) bool {
		key := q.keyOf(result.Key)
		out, err := compiled.Evaluate(PredicateContext{
			Result:  result,
			Subject: q.Subject.MetadataRef(),
			Strand:  q.Strand,
			Key:     key,
			At:      q.Date(),
		})
		if err != nil {
			return false
		}
		return truthy(out)
	}, nil
}

func truthy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return typed != ""
	case int:
		return typed != 0
	case int64:
		return typed != 0
	case float64:
		return typed != 0
	default:
		return true
	}
}
