package audit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"k": "v"}
	evt := Event{
		Verb:       " metadata.created ",
		ActorID:    " actor ",
		UserID:     " user ",
		TenantID:   " tenant ",
		SubjectRef: " press/42 ",
		Strand:     " images ",
		Key:        " hero ",
		Channel:    " metadata ",
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != "metadata.created" || got.SubjectRef != "press/42" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.UserID != "user" || got.TenantID != "tenant" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.Strand != "images" || got.Key != "hero" || got.Channel != "metadata" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	if got.Metadata["k"] != "v" {
		t.Fatalf("expected metadata value preserved: %+v", got.Metadata)
	}
	got.Metadata["k"] = "changed"
	if evt.Metadata["k"] != "v" {
		t.Fatalf("expected original metadata untouched: %+v", evt.Metadata)
	}
}

func TestHooksNotifyShortCircuitsMissingRequired(t *testing.T) {
	hooks := Hooks{&CaptureHook{}}
	err := hooks.Notify(context.Background(), Event{})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	capture := hooks[0].(*CaptureHook)
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	errFirst := errors.New("boom1")
	errSecond := errors.New("boom2")

	capture := &CaptureHook{}
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, event Event) error {
			if ctx != nil {
				ctxSeen = true
			}
			return nil
		}),
		capture,
		HookFunc(func(_ context.Context, _ Event) error { return errFirst }),
		nil,
		HookFunc(func(_ context.Context, _ Event) error { return errSecond }),
	}

	err := hooks.Notify(nil, Event{Verb: VerbResolved, SubjectRef: "press/1"})
	if !errors.Is(err, errFirst) || !errors.Is(err, errSecond) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected context fallback to be non-nil")
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected event to be captured once, got %d", len(capture.Events))
	}
}

func TestBuildEntryEventsFoldValuesIntoMetadata(t *testing.T) {
	evt := BuildEntryCreatedEvent(EntryEventInput{
		ActorID:    "actor",
		SubjectRef: "press/42",
		Strand:     "text",
		Key:        "caption",
		EntryID:    9,
		NewValue:   "September caption",
	})

	if evt.Verb != VerbCreated {
		t.Fatalf("expected verb %q got %q", VerbCreated, evt.Verb)
	}
	if evt.Metadata["entry_id"] != int64(9) {
		t.Fatalf("expected entry_id metadata got %v", evt.Metadata)
	}
	if evt.Metadata["new_value"] != "September caption" {
		t.Fatalf("expected new_value metadata got %v", evt.Metadata)
	}

	closed := BuildEntryClosedEvent(EntryEventInput{SubjectRef: "press/42", OldValue: "stale"})
	if closed.Verb != VerbClosed || closed.Metadata["old_value"] != "stale" {
		t.Fatalf("unexpected closed event: %+v", closed)
	}

	approved := BuildEntryApprovedEvent(EntryEventInput{SubjectRef: "press/42"})
	if approved.Verb != VerbApproved || approved.Metadata != nil {
		t.Fatalf("unexpected approved event: %+v", approved)
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), Event{Verb: VerbCreated, SubjectRef: "press/1"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured when disabled")
	}

	enabled := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: ""})
	if !enabled.Enabled() {
		t.Fatalf("expected emitter to be enabled")
	}
	if err := enabled.Emit(context.Background(), Event{Verb: VerbCreated, SubjectRef: "press/1"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected one event captured, got %d", len(capture.Events))
	}
	if capture.Events[0].Channel != "metadata" {
		t.Fatalf("expected default channel applied, got %q", capture.Events[0].Channel)
	}
}

func TestEmitterPreservesExplicitChannel(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "default"})

	err := emitter.Emit(context.Background(), Event{
		Verb:       VerbResolved,
		SubjectRef: "press/1",
		Channel:    "custom",
		OccurredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if capture.Events[0].Channel != "custom" {
		t.Fatalf("expected explicit channel preserved, got %q", capture.Events[0].Channel)
	}
	if capture.Events[0].OccurredAt != (time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected occurred_at preserved, got %v", capture.Events[0].OccurredAt)
	}
}
