package metadata

import (
	"errors"
	"fmt"
	"strings"
)

// PredicateError captures engine metadata alongside the originating error.
type PredicateError struct {
	Engine string
	Expr   string
	Scope  string
	Err    error
}

func (e *PredicateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("metadata: %s predicate %s scope=%s: %v", e.Engine, describeExpression(e.Expr), e.Scope, e.Err)
}

func (e *PredicateError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapPredicateError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var predErr *PredicateError
	if errors.As(err, &predErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "metadata:") {
		return err
	}
	return fmt.Errorf("metadata: %s predicate: %w", engine, err)
}

func wrapEvaluationError(engine, expr, scope string, err error) error {
	if err == nil {
		return nil
	}

	var predErr *PredicateError
	if errors.As(err, &predErr) {
		if predErr.Engine == "" {
			predErr.Engine = engine
		}
		if predErr.Expr == "" {
			predErr.Expr = expr
		}
		if predErr.Scope == "" {
			predErr.Scope = scope
		}
		return predErr
	}

	return &PredicateError{
		Engine: engine,
		Expr:   expr,
		Scope:  scope,
		Err:    err,
	}
}
