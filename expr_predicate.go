package metadata

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprPredicateOption configures an expr predicate instance.
type ExprPredicateOption func(*exprPredicate)

// ExprWithProgramCache wires a ProgramCache into the expr predicate.
func ExprWithProgramCache(cache ProgramCache) ExprPredicateOption {
	return func(e *exprPredicate) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry wires a FunctionRegistry into the expr predicate.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprPredicateOption {
	return func(e *exprPredicate) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// exprPredicate executes acceptance expressions using expr-lang/expr.
type exprPredicate struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprPredicate constructs a Predicate backed by expr-lang/expr.
func NewExprPredicate(opts ...ExprPredicateOption) Predicate {
	e := &exprPredicate{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Evaluate compiles and runs expression against the predicate context.
func (e *exprPredicate) Evaluate(ctx PredicateContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapPredicateError("expr", fmt.Errorf("expression must not be empty"))
	}
	env := e.environment(ctx)
	if e.cache == nil {
		result, err := exprlang.Eval(expression, env)
		if err != nil {
			return nil, wrapEvaluationError("expr", expression, ctx.scopeLabel(), err)
		}
		return result, nil
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	result, err := exprlang.Run(program, env)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, ctx.scopeLabel(), err)
	}
	return result, nil
}

// Compile returns a compiled predicate that evaluates expression per
// invocation.
func (e *exprPredicate) Compile(expression string, _ ...CompileOption) (CompiledPredicate, error) {
	if expression == "" {
		return nil, wrapPredicateError("expr", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprCompiledPredicate{
		predicate:  e,
		program:    program,
		expression: expression,
	}, nil
}

func (e *exprPredicate) loadOrCompile(expression string) (*exprvm.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range e.registryNames() {
		fn := e.registryFunction(name)
		options = append(options, exprlang.Function(name, fn))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

type exprCompiledPredicate struct {
	predicate  *exprPredicate
	program    *exprvm.Program
	expression string
}

func (r *exprCompiledPredicate) Evaluate(ctx PredicateContext) (any, error) {
	if r.predicate == nil {
		return nil, wrapPredicateError("expr", fmt.Errorf("compiled predicate missing engine"))
	}
	if r.program == nil {
		return r.predicate.Evaluate(ctx, r.expression)
	}
	env := r.predicate.environment(ctx)
	result, err := exprlang.Run(r.program, env)
	if err != nil {
		return nil, wrapEvaluationError("expr", r.expression, ctx.scopeLabel(), err)
	}
	return result, nil
}

func (e *exprPredicate) environment(ctx PredicateContext) map[string]any {
	env := ctx.environment()
	if e.registry != nil {
		env["call"] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
		for _, name := range e.registry.Names() {
			fn := name
			env[fn] = func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			}
		}
	}
	return env
}

func (e *exprPredicate) registryNames() []string {
	if e == nil || e.registry == nil {
		return nil
	}
	return e.registry.Names()
}

func (e *exprPredicate) registryFunction(name string) func(...any) (any, error) {
	if e == nil || e.registry == nil {
		return nil
	}
	return func(arguments ...any) (any, error) {
		return e.registry.Call(name, arguments...)
	}
}
