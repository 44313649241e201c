package metadata

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates no entry for a key is active at the reference
	// time. It is an expected outcome, not a defect.
	ErrNotFound = errors.New("metadata: no active entry")
	// ErrKeyUnknown indicates a key reference could not be resolved against
	// the registry. Raised at query construction or write time, never during
	// hook execution.
	ErrKeyUnknown = errors.New("metadata: key not registered")
	// ErrNoStrands indicates a subject declares no metadata strands.
	ErrNoStrands = errors.New("metadata: subject declares no strands")
)

// HookFailure signals that a single hook cannot answer a query and the runner
// should move on to the next hook. It never surfaces to callers.
type HookFailure struct {
	Hook   string
	Reason string
}

func (e *HookFailure) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Hook == "" {
		return fmt.Sprintf("metadata: hook failure: %s", e.Reason)
	}
	return fmt.Sprintf("metadata: hook %s: %s", e.Hook, e.Reason)
}

// FailHook constructs a HookFailure with the given reason.
func FailHook(reason string) error {
	return &HookFailure{Reason: reason}
}

// FailHookf constructs a HookFailure with a formatted reason.
func FailHookf(format string, args ...any) error {
	return &HookFailure{Reason: fmt.Sprintf(format, args...)}
}

// IsHookFailure reports whether err is (or wraps) a HookFailure.
func IsHookFailure(err error) bool {
	var failure *HookFailure
	return errors.As(err, &failure)
}

// QueryError is the terminal failure for a query run: every configured hook
// was exhausted without producing a satisfying result.
type QueryError struct {
	Subject string
	Strand  string
	Key     string
	Hooks   []string
}

func (e *QueryError) Error() string {
	if e == nil {
		return "<nil>"
	}
	target := e.Strand
	if e.Key != "" {
		target = e.Strand + "." + e.Key
	}
	hooks := "<none>"
	if len(e.Hooks) > 0 {
		hooks = strings.Join(e.Hooks, ", ")
	}
	return fmt.Sprintf("metadata: query %s on subject %s: hooks exhausted (%s)", target, e.Subject, hooks)
}

// IsQueryFailure reports whether err is (or wraps) a QueryError.
func IsQueryFailure(err error) bool {
	var failure *QueryError
	return errors.As(err, &failure)
}

// CycleError indicates an inheritance chain revisited a subject. Unlike a
// HookFailure it is terminal: an inheritance cycle is a configuration defect,
// not an answerable-elsewhere miss.
type CycleError struct {
	Subject string
	Chain   []string
}

func (e *CycleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("metadata: inheritance cycle at subject %s (chain: %s)", e.Subject, strings.Join(e.Chain, " -> "))
}

func wrapHookError(hook string, err error) error {
	if err == nil {
		return nil
	}
	var failure *HookFailure
	if errors.As(err, &failure) {
		if failure.Hook == "" {
			failure.Hook = hook
		}
		return failure
	}
	return err
}
