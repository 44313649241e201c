//go:build js_eval

package metadata

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsPredicate struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSPredicate constructs a Predicate backed by goja.
func NewJSPredicate(opts ...JSPredicateOption) Predicate {
	cfg := applyJSPredicateOptions(opts)
	return &jsPredicate{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

func (e *jsPredicate) Evaluate(ctx PredicateContext, expression string) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	if e.cache == nil {
		return e.run(ctx, expression, nil)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, program)
}

func (e *jsPredicate) Compile(expression string, _ ...CompileOption) (CompiledPredicate, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsCompiledPredicate{
		predicate:  e,
		expression: expression,
		program:    program,
	}, nil
}

func (e *jsPredicate) loadOrCompile(expression string) (*goja.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", e.wrapExpression(expression), false)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *jsPredicate) run(ctx PredicateContext, expression string, program *goja.Program) (any, error) {
	vm := goja.New()
	e.injectContext(vm, ctx)
	if program != nil {
		value, err := vm.RunProgram(program)
		if err != nil {
			return nil, err
		}
		return value.Export(), nil
	}
	value, err := vm.RunString(e.wrapExpression(expression))
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}

func (e *jsPredicate) injectContext(vm *goja.Runtime, ctx PredicateContext) {
	for key, value := range ctx.environment() {
		vm.Set(key, value)
	}
	if e.registry != nil {
		vm.Set("call", func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		})
		for _, name := range e.registry.Names() {
			fn := name
			vm.Set(fn, func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			})
		}
	}
}

func (e *jsPredicate) wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsCompiledPredicate struct {
	predicate  *jsPredicate
	expression string
	program    *goja.Program
}

func (r *jsCompiledPredicate) Evaluate(ctx PredicateContext) (any, error) {
	if r.predicate == nil {
		return nil, fmt.Errorf("js compiled predicate missing engine")
	}
	return r.predicate.run(ctx, r.expression, r.program)
}

func jsPredicateAvailable() bool {
	return true
}
