package metadata

import (
	"context"
	"time"

	"github.com/goliatone/go-metadata/layering"
)

// View is the resolved metadata of a subject at one instant, organised first
// by strand and then by key.
type View struct {
	order   []string
	strands map[string]Strand
}

// Strand returns the resolved strand under name.
func (v View) Strand(name string) (Strand, bool) {
	strand, ok := v.strands[name]
	return strand, ok
}

// Strands returns the strand names in declaration order.
func (v View) Strands() []string {
	out := make([]string, len(v.order))
	copy(out, v.order)
	return out
}

// Value looks a key up inside one strand of the view.
func (v View) Value(strand string, ref KeyRef) (any, error) {
	s, ok := v.strands[strand]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Value(ref)
}

// Flatten projects the view into nested name-keyed value maps, suitable for
// templating.
func (v View) Flatten() map[string]any {
	out := make(map[string]any, len(v.strands))
	for name, strand := range v.strands {
		out[name] = strand.ValueMap()
	}
	return out
}

// FlattenWith layers the flattened view over a map of fallback values:
// resolved metadata wins, fallbacks fill the gaps.
func (v View) FlattenWith(fallback map[string]any) map[string]any {
	return layering.MergeLayers(v.Flatten(), fallback)
}

// MetadataAt resolves every declared strand of the subject at the given
// instant through the subject's hook chain. Strands for which no hook can
// produce anything appear as empty strands; terminal faults other than
// query exhaustion abort the whole view.
func (r *Runner) MetadataAt(ctx context.Context, subject Subject, at time.Time, opts ...QueryOption) (View, error) {
	strands := subject.MetadataStrands()
	view := View{strands: make(map[string]Strand, strands.Len())}

	for _, name := range strands.Names() {
		options := append([]QueryOption{ForStrand(name), AtTime(at)}, opts...)
		q, err := NewQuery(subject, options...)
		if err != nil {
			return View{}, err
		}
		result, err := r.Run(ctx, q)
		if err != nil {
			if !IsQueryFailure(err) {
				return View{}, err
			}
			result = Result{StrandView: &Strand{}}
		}
		if result.StrandView == nil {
			result.StrandView = &Strand{}
		}
		view.order = append(view.order, name)
		view.strands[name] = *result.StrandView
	}
	return view, nil
}

// Metadata is MetadataAt for the current instant.
func (r *Runner) Metadata(ctx context.Context, subject Subject, opts ...QueryOption) (View, error) {
	return r.MetadataAt(ctx, subject, time.Now(), opts...)
}

// Value resolves a single key within a named strand of the subject.
func (r *Runner) Value(ctx context.Context, subject Subject, strand string, ref KeyRef, at time.Time, opts ...QueryOption) (any, error) {
	options := append([]QueryOption{ForStrand(strand), ForKey(ref), AtTime(at)}, opts...)
	q, err := NewQuery(subject, options...)
	if err != nil {
		return nil, err
	}
	result, err := r.Run(ctx, q)
	if err != nil {
		return nil, err
	}
	if result.Key.AllowMultiple {
		return result.Values, nil
	}
	return result.Value, nil
}

// DefaultValue resolves a key against the subject's first declared strand at
// the current instant. This is the attribute-style shortcut for the common
// single-strand case; a subject with no strands or a key no hook can answer
// yields the same failure as an explicit lookup.
func (r *Runner) DefaultValue(ctx context.Context, subject Subject, ref KeyRef, opts ...QueryOption) (any, error) {
	first, ok := subject.MetadataStrands().First()
	if !ok {
		return nil, ErrNoStrands
	}
	return r.Value(ctx, subject, first, ref, time.Now(), opts...)
}
