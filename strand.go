package metadata

import "sort"

// Strand is the computed view of one homogeneous metadata collection at a
// reference instant: a mapping from key to the currently valid entry (or
// entries, for multi-value keys). Strands are never stored; they are rebuilt
// from candidate entries per query.
type Strand struct {
	active map[int64][]Entry
	names  map[string]int64
}

func newStrand(byKey map[int64][]Entry) Strand {
	names := make(map[string]int64, len(byKey))
	for id, entries := range byKey {
		if len(entries) == 0 {
			delete(byKey, id)
			continue
		}
		names[entries[0].Key.Name] = id
	}
	return Strand{active: byKey, names: names}
}

// Entry returns the winning entry for the referenced key. All three key
// forms (name, ID, Key value) funnel through this single lookup.
func (s Strand) Entry(ref KeyRef) (Entry, error) {
	entries, err := s.Entries(ref)
	if err != nil {
		return Entry{}, err
	}
	return entries[0], nil
}

// Entries returns every active entry for the referenced key in resolution
// order, winner first. Only multi-value keys carry more than one.
func (s Strand) Entries(ref KeyRef) ([]Entry, error) {
	id, ok := s.lookup(ref)
	if !ok {
		return nil, ErrNotFound
	}
	entries := s.active[id]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out, nil
}

// Value returns the winning value for the referenced key.
func (s Strand) Value(ref KeyRef) (any, error) {
	entry, err := s.Entry(ref)
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

// ValueByName is a thin adapter over Value for name lookups.
func (s Strand) ValueByName(name string) (any, error) {
	return s.Value(KeyByName(name))
}

// ValueByID is a thin adapter over Value for numeric lookups.
func (s Strand) ValueByID(id int64) (any, error) {
	return s.Value(KeyByID(id))
}

// Values returns every active value for the referenced key, winner first.
func (s Strand) Values(ref KeyRef) ([]any, error) {
	entries, err := s.Entries(ref)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(entries))
	for i, entry := range entries {
		out[i] = entry.Value
	}
	return out, nil
}

// Has reports whether the referenced key resolves in this strand.
func (s Strand) Has(ref KeyRef) bool {
	_, ok := s.lookup(ref)
	return ok
}

// Keys returns the resolved keys ordered by ID.
func (s Strand) Keys() []Key {
	out := make([]Key, 0, len(s.active))
	for _, entries := range s.active {
		out = append(out, entries[0].Key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of resolved keys.
func (s Strand) Len() int {
	return len(s.active)
}

// ValueMap flattens the strand into a name-keyed value map. Multi-value keys
// contribute a slice.
func (s Strand) ValueMap() map[string]any {
	if len(s.active) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(s.active))
	for _, entries := range s.active {
		key := entries[0].Key
		if key.AllowMultiple {
			values := make([]any, len(entries))
			for i, entry := range entries {
				values[i] = entry.Value
			}
			out[key.Name] = values
			continue
		}
		out[key.Name] = entries[0].Value
	}
	return out
}

// merge fills keys missing from this strand with weaker's resolutions,
// returning the composed view. Keys present in both stay with the stronger
// strand untouched.
func (s Strand) merge(weaker Strand) Strand {
	if weaker.Len() == 0 {
		return s
	}
	merged := make(map[int64][]Entry, len(s.active)+len(weaker.active))
	for id, entries := range weaker.active {
		merged[id] = entries
	}
	for id, entries := range s.active {
		merged[id] = entries
	}
	return newStrand(merged)
}

// lookup normalises a key reference onto the canonical ID-keyed index.
func (s Strand) lookup(ref KeyRef) (int64, bool) {
	switch {
	case !ref.key.isZero():
		_, ok := s.active[ref.key.ID]
		return ref.key.ID, ok
	case ref.name != "":
		id, ok := s.names[ref.name]
		return id, ok
	case ref.id != 0:
		_, ok := s.active[ref.id]
		return ref.id, ok
	default:
		return 0, false
	}
}
