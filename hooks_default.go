package metadata

import "context"

// DefaultHooks returns the canonical resolution chain: the subject's own
// entries, then the inheritance parent, then attached packages, then
// subject-independent defaults. Subject types may override the chain through
// UseHooks with any ordering, subset, or additional hooks.
func DefaultHooks() Hooks {
	return Hooks{
		DirectHook(),
		ParentHook(),
		PackageHook(),
		DefaultsHook(),
	}
}

type directHook struct{}

// DirectHook resolves the query from the subject's own strand entries.
func DirectHook() Hook {
	return directHook{}
}

func (directHook) HookName() string { return "direct" }

func (directHook) Resolve(ctx context.Context, q Query) (Result, error) {
	source, ok := q.Subject.MetadataStrands().Source(q.Strand)
	if !ok {
		return Result{}, FailHookf("subject %s has no strand %q", q.Subject.MetadataRef(), q.Strand)
	}
	return resolveSource(ctx, q, source)
}

type parentHook struct{}

// ParentHook re-runs the query against the subject's inheritance parent,
// through the parent's own hook chain.
func ParentHook() Hook {
	return parentHook{}
}

func (parentHook) HookName() string { return "inherit" }

func (parentHook) Resolve(ctx context.Context, q Query) (Result, error) {
	provider, ok := q.Subject.(ParentProvider)
	if !ok {
		return Result{}, FailHook("subject does not support inheritance")
	}
	parent := provider.MetadataParent()
	if parent == nil {
		return Result{}, FailHook("inheritance explicitly disabled")
	}
	if q.Visited(parent.MetadataRef()) {
		return Result{}, &CycleError{Subject: parent.MetadataRef(), Chain: q.Chain()}
	}

	derived := q.WithSubject(parent)
	result, err := q.run(ctx, derived)
	if err != nil {
		if IsQueryFailure(err) {
			return Result{}, FailHook("parent resolution failed")
		}
		return Result{}, err
	}
	return result, nil
}

type packageHook struct{}

// PackageHook runs the query against each attached package in attachment
// order, returning the first answer. Only attachments active at the query
// instant take part.
func PackageHook() Hook {
	return packageHook{}
}

func (packageHook) HookName() string { return "package" }

func (packageHook) Resolve(ctx context.Context, q Query) (Result, error) {
	provider, ok := q.Subject.(PackageProvider)
	if !ok {
		return Result{}, FailHook("subject does not support packages")
	}
	attachments, err := provider.MetadataPackages(ctx)
	if err != nil {
		return Result{}, err
	}

	consulted := false
	for _, attachment := range attachments {
		if !attachment.ActiveAt(q.Date()) {
			continue
		}
		if q.Visited(attachment.Package.MetadataRef()) {
			continue
		}
		consulted = true

		derived := q.WithSubject(attachment.Package)
		result, err := q.run(ctx, derived)
		if err != nil {
			if IsQueryFailure(err) || IsHookFailure(err) {
				continue
			}
			return Result{}, err
		}
		return result, nil
	}
	if !consulted {
		return Result{}, FailHook("no packages attached")
	}
	return Result{}, FailHook("no package provided metadata")
}

type defaultsHook struct{}

// DefaultsHook resolves from subject-independent default entries, when the
// subject exposes any.
func DefaultsHook() Hook {
	return defaultsHook{}
}

func (defaultsHook) HookName() string { return "defaults" }

func (defaultsHook) Resolve(ctx context.Context, q Query) (Result, error) {
	provider, ok := q.Subject.(DefaultsProvider)
	if !ok {
		return Result{}, FailHook("subject does not support defaults")
	}
	source, ok := provider.MetadataDefaults().Source(q.Strand)
	if !ok {
		return Result{}, FailHookf("no defaults for strand %q", q.Strand)
	}
	return resolveSource(ctx, q, source)
}

// CacheHook answers queries from a previously stored result. Pair with
// WithResultCache on the runner so satisfying runs are written back.
func CacheHook(cache ResultCache) Hook {
	return cacheHook{cache: cache}
}

type cacheHook struct {
	cache ResultCache
}

func (cacheHook) HookName() string { return "cache" }

func (h cacheHook) Resolve(ctx context.Context, q Query) (Result, error) {
	if h.cache == nil {
		return Result{}, FailHook("cache not configured")
	}
	result, err := h.cache.Fetch(ctx, q.CacheKey())
	if err != nil {
		return Result{}, FailHookf("cache: %v", err)
	}
	result.Kind = q.Kind
	return result, nil
}

// resolveSource applies the temporal resolution algorithm to one entry
// source and shapes the outcome for the query kind.
func resolveSource(ctx context.Context, q Query, source EntrySource) (Result, error) {
	entries, err := source.Entries(ctx)
	if err != nil {
		return Result{}, err
	}

	if q.WholeStrand() {
		strand := ResolveStrand(entries, q.Date(), q.resolveOpts...)
		return Result{Kind: q.Kind, StrandView: &strand}, nil
	}

	var forKey []Entry
	for _, entry := range entries {
		if q.Key.matches(entry.Key) {
			forKey = append(forKey, entry)
		}
	}
	active := ResolveAll(forKey, q.Date(), q.resolveOpts...)

	key := q.resolvedKey
	if !q.hasKey && len(active) > 0 {
		key = active[0].Key
	}

	result := Result{Kind: q.Kind, Key: key}
	switch q.Kind {
	case QueryValue:
		if len(active) == 0 {
			return Result{}, FailHook("no active entry")
		}
		if key.AllowMultiple {
			values := make([]any, len(active))
			for i, entry := range active {
				values[i] = entry.Value
			}
			result.Values = values
		} else {
			winner := active[0]
			result.Value = winner.Value
			result.Entry = &winner
		}
	case QueryExists:
		result.Exists = len(active) > 0
	case QueryCount:
		count := len(active)
		if !key.AllowMultiple && count > 1 {
			count = 1
		}
		result.Count = count
	}
	return result, nil
}

// run re-enters the runner this query is executing under, so inheritance and
// package fallback honour per-subject hook configuration.
func (q Query) run(ctx context.Context, derived Query) (Result, error) {
	if q.runner != nil {
		return q.runner.Run(ctx, derived)
	}
	return Run(ctx, derived)
}
