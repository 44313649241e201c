package metadata

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Package is a subject whose only purpose is to hold shareable metadata.
// Many subjects may attach the same package as a named fallback source; the
// package's metadata is never owned by any attaching subject.
type Package struct {
	ID      int64
	Name    string
	strands StrandMap
}

// NewPackage constructs a package with its strand declaration.
func NewPackage(id int64, name string, strands StrandMap) *Package {
	return &Package{ID: id, Name: name, strands: strands}
}

// MetadataRef implements Subject.
func (p *Package) MetadataRef() string {
	return fmt.Sprintf("package/%d", p.ID)
}

// MetadataStrands implements Subject.
func (p *Package) MetadataStrands() StrandMap {
	return p.strands
}

// Attachment binds a package to a subject. Attachments are themselves
// temporally scoped: the package hook only consults attachments whose range
// covers the query instant.
type Attachment struct {
	Package *Package

	EffectiveFrom time.Time
	EffectiveTo   time.Time

	Creator  uuid.UUID
	Approver uuid.UUID
}

// ActiveAt reports whether the attachment covers the given instant. An
// attachment with a zero EffectiveFrom is treated as always active.
func (a Attachment) ActiveAt(at time.Time) bool {
	if a.Package == nil {
		return false
	}
	if a.EffectiveFrom.IsZero() {
		return a.EffectiveTo.IsZero() || at.Before(a.EffectiveTo)
	}
	if at.Before(a.EffectiveFrom) {
		return false
	}
	return a.EffectiveTo.IsZero() || at.Before(a.EffectiveTo)
}
