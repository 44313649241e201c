package audit

import (
	"time"
)

// EntryEventInput describes the common fields for entry lifecycle events.
type EntryEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	SubjectRef string
	Strand     string
	Key        string
	Channel    string
	EntryID    int64
	Metadata   map[string]any
	OldValue   any
	NewValue   any
	OccurredAt time.Time
}

// BuildEntryCreatedEvent constructs an audit event for a new entry.
func BuildEntryCreatedEvent(input EntryEventInput) Event {
	return buildEntryEvent(VerbCreated, input)
}

// BuildEntryApprovedEvent constructs an audit event for an entry approval.
func BuildEntryApprovedEvent(input EntryEventInput) Event {
	return buildEntryEvent(VerbApproved, input)
}

// BuildEntryClosedEvent constructs an audit event for an entry whose
// effective range was closed.
func BuildEntryClosedEvent(input EntryEventInput) Event {
	return buildEntryEvent(VerbClosed, input)
}

func buildEntryEvent(verb string, input EntryEventInput) Event {
	metadata := map[string]any{}
	for k, v := range input.Metadata {
		metadata[k] = v
	}
	if input.EntryID != 0 {
		metadata["entry_id"] = input.EntryID
	}
	if input.OldValue != nil {
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata["new_value"] = input.NewValue
	}
	if len(metadata) == 0 {
		metadata = nil
	}

	return NormalizeEvent(Event{
		Verb:       verb,
		ActorID:    input.ActorID,
		UserID:     input.UserID,
		TenantID:   input.TenantID,
		SubjectRef: input.SubjectRef,
		Strand:     input.Strand,
		Key:        input.Key,
		Channel:    input.Channel,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	})
}
