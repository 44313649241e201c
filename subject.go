package metadata

import "context"

// EntrySource supplies the full entry history behind one strand of one
// subject. Sources return every entry regardless of temporal validity;
// filtering to the reference instant is the resolver's job. A source may be
// an in-memory slice or a storage-backed accessor performing I/O.
type EntrySource interface {
	Entries(ctx context.Context) ([]Entry, error)
}

// EntrySourceFunc adapts a plain function to EntrySource.
type EntrySourceFunc func(ctx context.Context) ([]Entry, error)

// Entries implements EntrySource.
func (fn EntrySourceFunc) Entries(ctx context.Context) ([]Entry, error) {
	if fn == nil {
		return nil, nil
	}
	return fn(ctx)
}

// StaticEntries is an in-memory EntrySource.
type StaticEntries []Entry

// Entries implements EntrySource.
func (s StaticEntries) Entries(context.Context) ([]Entry, error) {
	out := make([]Entry, len(s))
	copy(out, s)
	return out, nil
}

// StrandMap is a subject type's strand declaration: an ordered mapping from
// strand name to the accessor for that strand's entries. Declaration order
// matters; the first declared strand backs the attribute-style shortcuts.
type StrandMap struct {
	names   []string
	sources map[string]EntrySource
}

// NewStrandMap builds a strand declaration. Use Declare to add strands in
// the order they should be exposed.
func NewStrandMap() StrandMap {
	return StrandMap{sources: make(map[string]EntrySource)}
}

// Declare registers a strand accessor under name, keeping declaration order.
// Redeclaring a name replaces the accessor without changing its position.
func (m StrandMap) Declare(name string, source EntrySource) StrandMap {
	if name == "" || source == nil {
		return m
	}
	if m.sources == nil {
		m.sources = make(map[string]EntrySource)
	}
	if _, exists := m.sources[name]; !exists {
		m.names = append(m.names, name)
	}
	m.sources[name] = source
	return m
}

// Source returns the accessor declared under name.
func (m StrandMap) Source(name string) (EntrySource, bool) {
	source, ok := m.sources[name]
	return source, ok
}

// Names returns the strand names in declaration order.
func (m StrandMap) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// First returns the first declared strand name.
func (m StrandMap) First() (string, bool) {
	if len(m.names) == 0 {
		return "", false
	}
	return m.names[0], true
}

// Len returns the number of declared strands.
func (m StrandMap) Len() int {
	return len(m.names)
}

// Subject is any entity that owns metadata strands. The interface is the
// minimal capability; inheritance and package fallback are opt-in through
// ParentProvider and PackageProvider, composed by type assertion rather than
// embedding so each concrete type keeps explicit control.
type Subject interface {
	// MetadataRef returns a stable identity for the subject, used for cycle
	// detection, cache keys, and provenance. Typical form: "show/42".
	MetadataRef() string

	// MetadataStrands returns the subject's strand declaration.
	MetadataStrands() StrandMap
}

// ParentProvider is the optional inheritance capability. A nil parent means
// inheritance is explicitly disabled for the subject.
type ParentProvider interface {
	MetadataParent() Subject
}

// PackageProvider is the optional shared-package capability. Attachments are
// returned in attachment order; only those active at the query instant take
// part in resolution.
type PackageProvider interface {
	MetadataPackages(ctx context.Context) ([]Attachment, error)
}

// DefaultsProvider is the optional subject-independent defaults capability:
// strands of fallback entries attached to no particular subject, consulted
// after every other strategy.
type DefaultsProvider interface {
	MetadataDefaults() StrandMap
}

// HookKeyer lets a subject name the hook configuration bucket it belongs to.
// Without it the subject's Go type identifies the bucket.
type HookKeyer interface {
	MetadataHookKey() string
}
