package metadata

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// QueryKind selects what a query asks of the metadata: the value itself,
// mere existence, or a count of active values.
type QueryKind int

const (
	QueryValue QueryKind = iota
	QueryExists
	QueryCount
)

func (k QueryKind) String() string {
	switch k {
	case QueryValue:
		return "value"
	case QueryExists:
		return "exists"
	case QueryCount:
		return "count"
	default:
		return "unknown"
	}
}

// Query holds everything one resolution run needs: the subject, the strand,
// an optional key reference, the reference instant, and the acceptance
// policy. Queries are values; derivations such as WithSubject return copies
// so a query handed to a hook can never be mutated under it.
type Query struct {
	Subject Subject
	Strand  string
	Key     KeyRef
	At      time.Time
	Kind    QueryKind

	registry    *Registry
	resolveOpts []ResolveOption
	satisfied   func(Query, Result) bool
	resolvedKey Key
	hasKey      bool
	constructed time.Time
	visited     []string
	runner      *Runner
}

// QueryOption configures query construction.
type QueryOption func(*Query)

// ForStrand targets a named strand. Without it the subject's first declared
// strand is used.
func ForStrand(name string) QueryOption {
	return func(q *Query) {
		q.Strand = name
	}
}

// ForKey narrows the query to a single key. A query without a key asks for
// the whole resolved strand.
func ForKey(ref KeyRef) QueryOption {
	return func(q *Query) {
		q.Key = ref
	}
}

// AtTime sets the reference instant. Without it the query resolves at its
// construction time.
func AtTime(at time.Time) QueryOption {
	return func(q *Query) {
		q.At = at
	}
}

// OfKind sets the query kind. Default is QueryValue.
func OfKind(kind QueryKind) QueryOption {
	return func(q *Query) {
		q.Kind = kind
	}
}

// WithRegistry hands the query a key catalogue so key references are
// resolved eagerly and unknown keys fail fast at construction.
func WithRegistry(registry *Registry) QueryOption {
	return func(q *Query) {
		q.registry = registry
	}
}

// ResolvingWith forwards resolution filters (e.g. ApprovedOnly) to every
// strand resolution performed for this query.
func ResolvingWith(opts ...ResolveOption) QueryOption {
	return func(q *Query) {
		q.resolveOpts = append(q.resolveOpts, opts...)
	}
}

// SatisfiedWhen replaces the default acceptance policy. A result the
// predicate rejects does not stop the hook chain; later hooks still run and
// their results are joined.
func SatisfiedWhen(fn func(Query, Result) bool) QueryOption {
	return func(q *Query) {
		q.satisfied = fn
	}
}

// NewQuery builds a query for the subject. Returns an error for
// configuration defects: nil subject, a key reference the registry does not
// know, or a subject with no strands when none was named.
func NewQuery(subject Subject, opts ...QueryOption) (Query, error) {
	if subject == nil {
		return Query{}, fmt.Errorf("metadata: query needs a subject")
	}
	q := Query{Subject: subject, constructed: time.Now()}
	for _, opt := range opts {
		if opt != nil {
			opt(&q)
		}
	}
	if q.Strand == "" {
		first, ok := subject.MetadataStrands().First()
		if !ok {
			return Query{}, ErrNoStrands
		}
		q.Strand = first
	}
	if !q.Key.IsZero() && q.registry != nil {
		key, err := q.registry.Lookup(q.Key)
		if err != nil {
			return Query{}, err
		}
		q.resolvedKey = key
		q.hasKey = true
	}
	return q, nil
}

// WholeStrand reports whether the query asks for a full resolved strand.
func (q Query) WholeStrand() bool {
	return q.Key.IsZero()
}

// Date returns the reference instant, falling back to construction time.
func (q Query) Date() time.Time {
	if !q.At.IsZero() {
		return q.At
	}
	return q.constructed
}

// ResolvedKey returns the registry descriptor for the query's key when one
// was resolved at construction.
func (q Query) ResolvedKey() (Key, bool) {
	return q.resolvedKey, q.hasKey
}

// WithSubject derives a copy of the query aimed at another subject, keeping
// strand, key, instant, kind, and acceptance policy. The visited chain grows
// by the current subject so inheritance cycles are caught.
func (q Query) WithSubject(subject Subject) Query {
	derived := q
	derived.Subject = subject
	derived.visited = append(append([]string(nil), q.visited...), q.Subject.MetadataRef())
	return derived
}

// Visited reports whether the subject identified by ref already took part in
// this query run.
func (q Query) Visited(ref string) bool {
	for _, seen := range q.visited {
		if seen == ref {
			return true
		}
	}
	return false
}

// Chain returns the inheritance chain walked so far, ending at the current
// subject.
func (q Query) Chain() []string {
	return append(append([]string(nil), q.visited...), q.Subject.MetadataRef())
}

// CacheKey returns a deterministic representation of the query for cache
// storage.
func (q Query) CacheKey() string {
	at := q.Date().UTC().Format(time.RFC3339Nano)
	parts := []string{q.Subject.MetadataRef(), q.Strand, q.Key.String(), at, q.Kind.String()}
	return strings.Join(parts, "|")
}

// keyOf returns the key descriptor governing result semantics, preferring
// the registry-resolved one and falling back to the entry-carried key.
func (q Query) keyOf(fallback Key) Key {
	if q.hasKey {
		return q.resolvedKey
	}
	return fallback
}

// Result is the outcome of a query run. Exactly the fields implied by the
// query kind are meaningful; StrandView is set for whole-strand queries.
type Result struct {
	Kind QueryKind

	Value  any
	Values []any
	Exists bool
	Count  int

	StrandView *Strand

	// Key carries the descriptor the winning hook resolved, when known.
	Key Key

	// Entry is the winning entry for single-value lookups, kept for
	// provenance and approval-aware acceptance policies.
	Entry *Entry
}

// initialState returns the zero running result for the query.
func (q Query) initialState() Result {
	return Result{Kind: q.Kind}
}

// Join combines an earlier result with a later hook's result. The earlier
// result takes precedence: a single-value query keeps the old answer,
// multi-value queries union values, existence ORs, and counts sum.
func (q Query) Join(old, next Result) Result {
	key := q.keyOf(old.Key)
	if key.isZero() {
		key = next.Key
	}

	joined := old
	if joined.Key.isZero() {
		joined.Key = next.Key
	}

	if q.WholeStrand() {
		if old.StrandView == nil {
			return next
		}
		if next.StrandView == nil {
			return joined
		}
		merged := old.StrandView.merge(*next.StrandView)
		joined.StrandView = &merged
		return joined
	}

	switch q.Kind {
	case QueryValue:
		if !key.AllowMultiple {
			return joined
		}
		joined.Values = unionValues(old.Values, next.Values)
	case QueryExists:
		joined.Exists = old.Exists || next.Exists
	case QueryCount:
		sum := old.Count + next.Count
		if !key.AllowMultiple && sum > 1 {
			sum = 1
		}
		joined.Count = sum
	}
	return joined
}

// SatisfiedBy decides whether the running result ends the hook chain. The
// defaults mirror the query kinds: any answer satisfies a single-value
// query, existence satisfies once true, counts and multi-value collections
// always drain the whole chain. A custom policy set via SatisfiedWhen
// replaces all of that.
func (q Query) SatisfiedBy(result Result) bool {
	if q.satisfied != nil {
		return q.satisfied(q, result)
	}
	if q.WholeStrand() {
		return result.StrandView != nil && result.StrandView.Len() > 0
	}
	switch q.Kind {
	case QueryValue:
		return !q.keyOf(result.Key).AllowMultiple
	case QueryExists:
		return result.Exists
	default:
		return false
	}
}

func unionValues(old, next []any) []any {
	out := append([]any(nil), old...)
	for _, candidate := range next {
		duplicate := false
		for _, existing := range out {
			if reflect.DeepEqual(existing, candidate) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, candidate)
		}
	}
	return out
}
