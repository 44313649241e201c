package metadata

import (
	"fmt"
	"time"
)

// ValueKind tags the representation shared by every entry in a strand.
type ValueKind string

const (
	KindText   ValueKind = "text"
	KindImage  ValueKind = "image"
	KindNumber ValueKind = "number"
	KindBool   ValueKind = "bool"
	KindJSON   ValueKind = "json"
)

// ParseValueKind converts a string into the corresponding ValueKind. Returns
// an error for unrecognised values so malformed declarations fail at load
// time rather than during resolution.
func ParseValueKind(value string) (ValueKind, error) {
	switch ValueKind(value) {
	case KindText, KindImage, KindNumber, KindBool, KindJSON:
		return ValueKind(value), nil
	default:
		return "", fmt.Errorf("metadata: unknown value kind %q", value)
	}
}

// Key defines the semantics of one class of metadata. Keys are globally
// unique by ID and by name and are immutable once entries reference them.
type Key struct {
	ID   int64
	Name string
	Kind ValueKind

	// AllowMultiple permits several simultaneously active entries (e.g.
	// arbitrary tags). Value queries on such keys collect every active value.
	AllowMultiple bool

	// CacheTTL bounds how long resolved results for this key may be served
	// from a cache. Zero disables caching for the key.
	CacheTTL time.Duration
}

func (k Key) isZero() bool {
	return k.ID == 0 && k.Name == ""
}

func (k Key) String() string {
	return fmt.Sprintf("%s(%d)", k.Name, k.ID)
}

// KeyRef names a key by exactly one of its three addressable forms: name,
// numeric ID, or the Key value itself. The zero KeyRef addresses a whole
// strand rather than a single key.
type KeyRef struct {
	id   int64
	name string
	key  Key
}

// KeyByName references a key by its registry name.
func KeyByName(name string) KeyRef {
	return KeyRef{name: name}
}

// KeyByID references a key by its numeric identifier.
func KeyByID(id int64) KeyRef {
	return KeyRef{id: id}
}

// KeyExact references a key by value, skipping registry lookup.
func KeyExact(key Key) KeyRef {
	return KeyRef{key: key}
}

// IsZero reports whether the reference addresses a whole strand.
func (r KeyRef) IsZero() bool {
	return r.id == 0 && r.name == "" && r.key.isZero()
}

func (r KeyRef) String() string {
	switch {
	case !r.key.isZero():
		return r.key.String()
	case r.name != "":
		return r.name
	case r.id != 0:
		return fmt.Sprintf("#%d", r.id)
	default:
		return "<strand>"
	}
}

// matches reports whether key is the one this reference names. All three
// addressable forms normalise onto this single comparison.
func (r KeyRef) matches(key Key) bool {
	switch {
	case !r.key.isZero():
		return r.key.ID == key.ID
	case r.name != "":
		return r.name == key.Name
	case r.id != 0:
		return r.id == key.ID
	default:
		return false
	}
}
