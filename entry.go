package metadata

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is one temporally scoped key/value fact with provenance. The history
// of a key is append-only: an entry's value is never rewritten. The only
// mutations the model admits are recording an approver and closing the
// effective range; both return a copy so in-hand snapshots stay stable.
type Entry struct {
	ID    int64
	Key   Key
	Value any

	// EffectiveFrom is inclusive; EffectiveTo is exclusive. A zero
	// EffectiveTo means the entry is open ended.
	EffectiveFrom time.Time
	EffectiveTo   time.Time

	Creator  uuid.UUID
	Approver uuid.UUID
}

// NewEntry validates and constructs an entry. An open range is expressed by
// a zero effectiveTo.
func NewEntry(id int64, key Key, value any, effectiveFrom, effectiveTo time.Time, creator uuid.UUID) (Entry, error) {
	if key.isZero() {
		return Entry{}, fmt.Errorf("metadata: entry %d needs a key", id)
	}
	if effectiveFrom.IsZero() {
		return Entry{}, fmt.Errorf("metadata: entry %d for key %s needs an effective start", id, key)
	}
	if !effectiveTo.IsZero() && !effectiveFrom.Before(effectiveTo) {
		return Entry{}, fmt.Errorf("metadata: entry %d for key %s: effective range [%s, %s) is empty", id, key, effectiveFrom, effectiveTo)
	}
	return Entry{
		ID:            id,
		Key:           key,
		Value:         value,
		EffectiveFrom: effectiveFrom,
		EffectiveTo:   effectiveTo,
		Creator:       creator,
	}, nil
}

// Unbounded reports whether the entry has no effective end.
func (e Entry) Unbounded() bool {
	return e.EffectiveTo.IsZero()
}

// ActiveAt reports whether at falls inside [EffectiveFrom, EffectiveTo).
func (e Entry) ActiveAt(at time.Time) bool {
	if at.Before(e.EffectiveFrom) {
		return false
	}
	return e.Unbounded() || at.Before(e.EffectiveTo)
}

// Approved reports whether an approver has been recorded.
func (e Entry) Approved() bool {
	return e.Approver != uuid.Nil
}

// Approve returns a copy of the entry with the approver recorded. Approval
// workflow itself lives outside this library; only the reference is kept.
func (e Entry) Approve(by uuid.UUID) Entry {
	e.Approver = by
	return e
}

// Close returns a copy of the entry with its effective range ended at the
// given instant. Closing is how metadata is "deleted": the history stays.
func (e Entry) Close(at time.Time) (Entry, error) {
	if !e.EffectiveFrom.Before(at) {
		return Entry{}, fmt.Errorf("metadata: entry %d for key %s: close at %s precedes effective start %s", e.ID, e.Key, at, e.EffectiveFrom)
	}
	if !e.Unbounded() && e.EffectiveTo.Before(at) {
		return Entry{}, fmt.Errorf("metadata: entry %d for key %s: already closed at %s", e.ID, e.Key, e.EffectiveTo)
	}
	e.EffectiveTo = at
	return e, nil
}

func (e Entry) String() string {
	to := "open"
	if !e.Unbounded() {
		to = e.EffectiveTo.Format(time.RFC3339)
	}
	return fmt.Sprintf("%s -> %v (ef %s -> %s)", e.Key, e.Value, e.EffectiveFrom.Format(time.RFC3339), to)
}
