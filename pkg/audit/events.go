package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-metadata/layering"
)

// Verbs emitted by the metadata system.
const (
	VerbCreated  = "metadata.created"
	VerbApproved = "metadata.approved"
	VerbClosed   = "metadata.closed"
	VerbResolved = "metadata.resolved"
)

// Event describes a metadata occurrence that can be fanned out to hooks.
// IDs are stringly-typed to avoid coupling call sites to specific UUID types.
type Event struct {
	Verb       string
	ActorID    string
	UserID     string
	TenantID   string
	SubjectRef string
	Strand     string
	Key        string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// AuditHook receives normalized audit events.
type AuditHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy AuditHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []AuditHook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any
// fail. It normalizes the event and short-circuits when required fields are
// missing.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if normalized.Verb == "" || normalized.SubjectRef == "" {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims whitespace, detaches metadata, and ensures a
// timestamp is present.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.ActorID = strings.TrimSpace(event.ActorID)
	normalized.UserID = strings.TrimSpace(event.UserID)
	normalized.TenantID = strings.TrimSpace(event.TenantID)
	normalized.SubjectRef = strings.TrimSpace(event.SubjectRef)
	normalized.Strand = strings.TrimSpace(event.Strand)
	normalized.Key = strings.TrimSpace(event.Key)
	normalized.Channel = strings.TrimSpace(event.Channel)
	if len(event.Metadata) > 0 {
		normalized.Metadata = layering.Clone(event.Metadata)
	} else {
		normalized.Metadata = nil
	}
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}
