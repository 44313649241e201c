package metadata

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELPredicateOption configures the CEL predicate.
type CELPredicateOption func(*celPredicate)

// CELWithProgramCache wires a ProgramCache into the CEL predicate.
func CELWithProgramCache(cache ProgramCache) CELPredicateOption {
	return func(e *celPredicate) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL predicate.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELPredicateOption {
	return func(e *celPredicate) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celPredicate struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELPredicate constructs a Predicate backed by cel-go.
func NewCELPredicate(opts ...CELPredicateOption) Predicate {
	e := &celPredicate{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celPredicate) Evaluate(ctx PredicateContext, expression string) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	env := ctx.environment()
	program, err := e.loadOrCompile(expression, env)
	if err != nil {
		return nil, err
	}
	out, _, err := program.program.Eval(e.activation(env))
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func (e *celPredicate) Compile(expression string, _ ...CompileOption) (CompiledPredicate, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	return &celCompiledPredicate{
		predicate:  e,
		expression: expression,
	}, nil
}

func (e *celPredicate) loadOrCompile(expression string, bindings map[string]any) (*celProgram, error) {
	if bindings == nil {
		bindings = map[string]any{}
	}
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(bindings)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if e.cache != nil {
		e.cache.Set(expression, bundle)
	}
	return bundle, nil
}

func (e *celPredicate) buildEnv(bindings map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
	}
	if e.registry != nil {
		// cel-go has no variadic declarations; emit one overload per arity
		// sharing the single variadic binding.
		const maxCallArgs = 8
		overloads := make([]celgo.FunctionOpt, 0, maxCallArgs+1)
		for extra := 0; extra <= maxCallArgs; extra++ {
			id := "call_dyn"
			if extra > 0 {
				id = fmt.Sprintf("call_dyn_%d", extra)
			}
			argTypes := make([]*celgo.Type, 0, extra+1)
			argTypes = append(argTypes, celgo.StringType)
			for i := 0; i < extra; i++ {
				argTypes = append(argTypes, celgo.DynType)
			}
			overloads = append(overloads, celgo.Overload(
				id,
				argTypes,
				celgo.DynType,
				celgo.FunctionBinding(e.callBinding()),
			))
		}
		opts = append(opts, celgo.Function("call", overloads...))
	}
	for key := range bindings {
		if key == "now" {
			continue
		}
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celPredicate) activation(bindings map[string]any) map[string]any {
	activation := make(map[string]any, len(bindings)+1)
	for key, value := range bindings {
		activation[key] = value
	}
	if e.registry != nil {
		activation["call"] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
	}
	return activation
}

type celCompiledPredicate struct {
	predicate  *celPredicate
	expression string
}

func (r *celCompiledPredicate) Evaluate(ctx PredicateContext) (any, error) {
	if r.predicate == nil {
		return nil, fmt.Errorf("cel compiled predicate missing engine")
	}
	env := ctx.environment()
	program, err := r.predicate.loadOrCompile(r.expression, env)
	if err != nil {
		return nil, err
	}
	out, _, err := program.program.Eval(r.predicate.activation(env))
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func (e *celPredicate) callBinding() functions.FunctionOp {
	return func(values ...ref.Val) ref.Val {
		if e.registry == nil {
			return types.NewErr("metadata: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("metadata: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("metadata: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
