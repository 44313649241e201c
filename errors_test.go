package metadata

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestHookFailure(t *testing.T) {
	err := FailHook("no data")
	if !IsHookFailure(err) {
		t.Fatalf("expected a hook failure")
	}
	if got := err.Error(); got != "metadata: hook failure: no data" {
		t.Fatalf("unexpected message %q", got)
	}

	err = FailHookf("strand %q missing", "content")
	if !strings.Contains(err.Error(), `strand "content" missing`) {
		t.Fatalf("unexpected message %q", err.Error())
	}

	wrapped := fmt.Errorf("resolving: %w", FailHook("inner"))
	if !IsHookFailure(wrapped) {
		t.Fatalf("expected detection through wrapping")
	}
	if IsHookFailure(errors.New("plain")) {
		t.Fatalf("plain errors are not hook failures")
	}
}

func TestWrapHookErrorNamesTheHook(t *testing.T) {
	err := wrapHookError("direct", FailHook("no data"))
	if got := err.Error(); got != "metadata: hook direct: no data" {
		t.Fatalf("unexpected message %q", got)
	}

	already := &HookFailure{Hook: "cache", Reason: "miss"}
	if got := wrapHookError("direct", already).Error(); !strings.Contains(got, "hook cache") {
		t.Fatalf("expected the original hook name to stick, got %q", got)
	}

	terminal := errors.New("boom")
	if got := wrapHookError("direct", terminal); got != terminal {
		t.Fatalf("expected terminal errors to pass through, got %v", got)
	}
	if wrapHookError("direct", nil) != nil {
		t.Fatalf("expected nil to pass through")
	}
}

func TestQueryErrorMessage(t *testing.T) {
	err := &QueryError{Subject: "show/1", Strand: "content", Key: "caption", Hooks: []string{"direct", "inherit"}}
	msg := err.Error()
	if !strings.Contains(msg, "content.caption") || !strings.Contains(msg, "show/1") {
		t.Fatalf("unexpected message %q", msg)
	}
	if !strings.Contains(msg, "direct, inherit") {
		t.Fatalf("expected the consulted hooks listed, got %q", msg)
	}

	bare := &QueryError{Subject: "show/1", Strand: "content"}
	if !strings.Contains(bare.Error(), "query content on subject show/1") {
		t.Fatalf("unexpected strand-only message %q", bare.Error())
	}
	if !strings.Contains(bare.Error(), "<none>") {
		t.Fatalf("expected an empty chain marker, got %q", bare.Error())
	}

	if !IsQueryFailure(fmt.Errorf("outer: %w", err)) {
		t.Fatalf("expected detection through wrapping")
	}
	if IsQueryFailure(FailHook("x")) {
		t.Fatalf("hook failures are not query failures")
	}
}

func TestCycleErrorMessage(t *testing.T) {
	err := &CycleError{Subject: "show/1", Chain: []string{"episode/2", "show/1"}}
	msg := err.Error()
	if !strings.Contains(msg, "cycle at subject show/1") {
		t.Fatalf("unexpected message %q", msg)
	}
	if !strings.Contains(msg, "episode/2 -> show/1") {
		t.Fatalf("expected the walked chain, got %q", msg)
	}
	if IsHookFailure(err) || IsQueryFailure(err) {
		t.Fatalf("cycle errors are terminal, not retriable failures")
	}
}
