package metadata

import (
	"sort"
	"time"
)

// ResolveOption narrows which entries are eligible during resolution.
type ResolveOption func(*resolveConfig)

type resolveConfig struct {
	approvedOnly bool
}

// ApprovedOnly restricts resolution to entries with a recorded approver.
// Unapproved entries are eligible by default.
func ApprovedOnly() ResolveOption {
	return func(cfg *resolveConfig) {
		cfg.approvedOnly = true
	}
}

func applyResolveOptions(opts []ResolveOption) resolveConfig {
	cfg := resolveConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// ResolveKey selects the single currently valid entry for one key from the
// given candidates. Among entries active at the reference instant the latest
// effective start wins; entries sharing a start are decided by the highest
// ID, so the most recently created revision takes precedence. Returns
// ErrNotFound when nothing is active, which callers treat as "no value"
// rather than a fault.
func ResolveKey(entries []Entry, at time.Time, opts ...ResolveOption) (Entry, error) {
	active := ResolveAll(entries, at, opts...)
	if len(active) == 0 {
		return Entry{}, ErrNotFound
	}
	return active[0], nil
}

// ResolveAll returns every entry active at the reference instant in
// resolution order: winner first. Callers dealing with multi-value keys use
// the whole slice; everyone else takes the head.
func ResolveAll(entries []Entry, at time.Time, opts ...ResolveOption) []Entry {
	cfg := applyResolveOptions(opts)

	var active []Entry
	for _, entry := range entries {
		if !entry.ActiveAt(at) {
			continue
		}
		if cfg.approvedOnly && !entry.Approved() {
			continue
		}
		active = append(active, entry)
	}
	sortEntries(active)
	return active
}

// ResolveStrand applies per-key resolution to a mixed set of entries and
// builds the strand view. Keys with no active entry are simply absent; an
// empty strand is a valid result, not a failure.
func ResolveStrand(entries []Entry, at time.Time, opts ...ResolveOption) Strand {
	cfg := applyResolveOptions(opts)

	byKey := make(map[int64][]Entry)
	for _, entry := range entries {
		if !entry.ActiveAt(at) {
			continue
		}
		if cfg.approvedOnly && !entry.Approved() {
			continue
		}
		byKey[entry.Key.ID] = append(byKey[entry.Key.ID], entry)
	}
	for id := range byKey {
		sortEntries(byKey[id])
	}
	return newStrand(byKey)
}

// sortEntries orders candidates into resolution order. The ID comparison is
// an explicit secondary sort key: identical effective starts must never be
// left to storage-layer ordering.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].EffectiveFrom.Equal(entries[j].EffectiveFrom) {
			return entries[i].EffectiveFrom.After(entries[j].EffectiveFrom)
		}
		return entries[i].ID > entries[j].ID
	})
}
