package metadata

// ProgramCache stores compiled predicate programs keyed by expression
// strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}
