//go:build !js_eval

package metadata

// NewJSPredicate is unavailable without the js_eval build tag.
func NewJSPredicate(opts ...JSPredicateOption) Predicate {
	_ = applyJSPredicateOptions(opts)
	return nil
}

func jsPredicateAvailable() bool {
	return false
}
