package entrystore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-metadata"
	"github.com/google/uuid"
)

var ErrETagMismatch = errors.New("entrystore: etag mismatch")

// Ref identifies one persisted entry history: one strand of one subject.
type Ref struct {
	Subject string
	Strand  string
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	ETag      string            `json:"etag,omitempty"`
	UpdatedAt time.Time         `json:"updated_at,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Store loads/saves the entry history for a single strand reference.
type Store interface {
	Load(ctx context.Context, ref Ref) (entries []metadata.Entry, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, entries []metadata.Entry, meta Meta) (Meta, error)
}

// Mutator rewrites an entry history in place. Histories are append-only;
// mutators add entries or replace existing ones with approved/closed copies.
type Mutator func(*[]metadata.Entry) error

// Identifier returns the canonical storage key for the reference.
func (r Ref) Identifier() (string, error) {
	if r.Subject == "" {
		return "", fmt.Errorf("entrystore: subject ref is required")
	}
	if r.Strand == "" {
		return "", fmt.Errorf("entrystore: strand is required")
	}
	return fmt.Sprintf("%s/%s", r.Subject, r.Strand), nil
}

// Strands orchestrates store access for the core metadata accessors.
type Strands struct {
	Store Store
}

// Source returns an accessor that loads the history behind ref on demand.
func (s Strands) Source(ref Ref) metadata.EntrySource {
	return metadata.EntrySourceFunc(func(ctx context.Context) ([]metadata.Entry, error) {
		if s.Store == nil {
			return nil, fmt.Errorf("entrystore: store is required")
		}
		entries, _, ok, err := s.Store.Load(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("entrystore: load %q: %w", ref.Subject+"/"+ref.Strand, err)
		}
		if !ok {
			return nil, nil
		}
		return entries, nil
	})
}

// Map builds a strand declaration for subject covering the named strands, in
// order, each backed by the store.
func (s Strands) Map(subject string, strands ...string) metadata.StrandMap {
	m := metadata.NewStrandMap()
	for _, strand := range strands {
		m = m.Declare(strand, s.Source(Ref{Subject: subject, Strand: strand}))
	}
	return m
}

// Mutate loads one history, applies fn, validates, then saves. When meta
// carries an ETag it must match the stored one or the mutation is rejected.
func (s Strands) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator) ([]metadata.Entry, Meta, error) {
	if s.Store == nil {
		return nil, Meta{}, fmt.Errorf("entrystore: store is required")
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("entrystore: mutator is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return nil, Meta{}, err
	}

	entries, loadedMeta, ok, err := s.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("entrystore: load %q/%q: %w", ref.Subject, ref.Strand, err)
	}
	if !ok {
		entries = nil
		loadedMeta = Meta{}
	}

	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return nil, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	before := len(entries)
	if err := fn(&entries); err != nil {
		return nil, loadedMeta, err
	}
	if len(entries) < before {
		return nil, loadedMeta, fmt.Errorf("entrystore: history for %q/%q is append-only", ref.Subject, ref.Strand)
	}
	if err := validateEntries(entries); err != nil {
		return nil, loadedMeta, err
	}

	saveMeta := mergeMeta(loadedMeta, meta)
	savedMeta, err := s.Store.Save(ctx, ref, entries, saveMeta)
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("entrystore: save %q/%q: %w", ref.Subject, ref.Strand, err)
	}
	return entries, savedMeta, nil
}

// Append returns a mutator that appends the entry to the history.
func Append(entry metadata.Entry) Mutator {
	return func(entries *[]metadata.Entry) error {
		for _, existing := range *entries {
			if existing.ID == entry.ID {
				return fmt.Errorf("entrystore: entry %d already exists", entry.ID)
			}
		}
		*entries = append(*entries, entry)
		return nil
	}
}

// Approve returns a mutator that records an approver on the entry with id.
func Approve(id int64, by uuid.UUID) Mutator {
	return func(entries *[]metadata.Entry) error {
		for i, existing := range *entries {
			if existing.ID == id {
				(*entries)[i] = existing.Approve(by)
				return nil
			}
		}
		return fmt.Errorf("entrystore: entry %d not found", id)
	}
}

// Close returns a mutator that ends the effective range of the entry with id.
func Close(id int64, at time.Time) Mutator {
	return func(entries *[]metadata.Entry) error {
		for i, existing := range *entries {
			if existing.ID == id {
				closed, err := existing.Close(at)
				if err != nil {
					return err
				}
				(*entries)[i] = closed
				return nil
			}
		}
		return fmt.Errorf("entrystore: entry %d not found", id)
	}
}

func validateEntries(entries []metadata.Entry) error {
	seen := make(map[int64]struct{}, len(entries))
	for _, entry := range entries {
		if _, dup := seen[entry.ID]; dup {
			return fmt.Errorf("entrystore: duplicate entry id %d", entry.ID)
		}
		seen[entry.ID] = struct{}{}
		if entry.EffectiveFrom.IsZero() {
			return fmt.Errorf("entrystore: entry %d needs an effective start", entry.ID)
		}
		if !entry.EffectiveTo.IsZero() && !entry.EffectiveFrom.Before(entry.EffectiveTo) {
			return fmt.Errorf("entrystore: entry %d has an empty effective range", entry.ID)
		}
	}
	return nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
