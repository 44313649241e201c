package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goliatone/go-metadata"
	"github.com/goliatone/go-metadata/internal/hydrate"
	"github.com/goliatone/go-metadata/pkg/audit"
	"github.com/google/uuid"
)

// StoreOption configures a Store instance.
type StoreOption func(*Store)

// WithCodec replaces the value codec used to hydrate stored values.
func WithCodec(codec *hydrate.Codec) StoreOption {
	return func(s *Store) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// WithAuditEmitter publishes entry lifecycle events through the emitter.
func WithAuditEmitter(emitter *audit.Emitter) StoreOption {
	return func(s *Store) {
		s.audit = emitter
	}
}

// Store reads and writes metadata through a Postgres connection. Entry
// histories are append-only: writes insert new rows or stamp approver and
// effective_to on existing rows, never rewrite values.
type Store struct {
	db    *sql.DB
	codec *hydrate.Codec
	audit *audit.Emitter
}

// NewStore wraps an open connection. Tests hand in a mocked *sql.DB.
func NewStore(db *sql.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:    db,
		codec: hydrate.NewCodec(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// DB exposes the underlying connection for migrations and health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const keyColumns = `id, name, kind, allow_multiple, cache_ttl_seconds`

// LoadRegistry reads every key declaration into a fresh registry.
func (s *Store) LoadRegistry(ctx context.Context) (*metadata.Registry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+keyColumns+` FROM metadata_keys ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("pgstore: load keys: %w", err)
	}
	defer rows.Close()

	registry := metadata.NewRegistry()
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(key); err != nil {
			return nil, fmt.Errorf("pgstore: register key: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: load keys: %w", err)
	}
	return registry, nil
}

// CreateKey inserts a key declaration and returns it with its assigned ID.
func (s *Store) CreateKey(ctx context.Context, key metadata.Key) (metadata.Key, error) {
	if key.Name == "" || key.Kind == "" {
		return metadata.Key{}, fmt.Errorf("pgstore: key needs a name and kind")
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO metadata_keys (name, kind, allow_multiple, cache_ttl_seconds) VALUES ($1, $2, $3, $4) RETURNING id`,
		key.Name, string(key.Kind), key.AllowMultiple, int64(key.CacheTTL/time.Second),
	).Scan(&key.ID)
	if err != nil {
		return metadata.Key{}, fmt.Errorf("pgstore: create key %q: %w", key.Name, err)
	}
	return key, nil
}

const entryColumns = `e.id, e.value, e.effective_from, e.effective_to, e.creator, e.approver,
	k.id, k.name, k.kind, k.allow_multiple, k.cache_ttl_seconds`

// EntriesFor loads the full entry history behind one strand of one subject,
// hydrating stored values into their declared kinds.
func (s *Store) EntriesFor(ctx context.Context, subjectRef, strand string) ([]metadata.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+`
		 FROM metadata_entries e
		 JOIN metadata_keys k ON k.id = e.key_id
		 WHERE e.subject_ref = $1 AND e.strand = $2
		 ORDER BY e.effective_from DESC, e.id DESC`,
		subjectRef, strand,
	)
	if err != nil {
		return nil, fmt.Errorf("pgstore: load entries for %s/%s: %w", subjectRef, strand, err)
	}
	defer rows.Close()

	var entries []metadata.Entry
	for rows.Next() {
		entry, err := s.scanEntry(rows, subjectRef, strand)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: load entries for %s/%s: %w", subjectRef, strand, err)
	}
	return entries, nil
}

// Source returns an accessor that loads one strand's history on demand.
func (s *Store) Source(subjectRef, strand string) metadata.EntrySource {
	return metadata.EntrySourceFunc(func(ctx context.Context) ([]metadata.Entry, error) {
		return s.EntriesFor(ctx, subjectRef, strand)
	})
}

// StrandMap builds a strand declaration for subjectRef covering the named
// strands, in order, each backed by the store.
func (s *Store) StrandMap(subjectRef string, strands ...string) metadata.StrandMap {
	m := metadata.NewStrandMap()
	for _, strand := range strands {
		m = m.Declare(strand, s.Source(subjectRef, strand))
	}
	return m
}

// CreateEntry inserts a new entry row and returns the stored entry with its
// assigned ID.
func (s *Store) CreateEntry(ctx context.Context, subjectRef, strand string, entry metadata.Entry) (metadata.Entry, error) {
	raw, err := s.codec.Encode(hydrate.Context{Subject: subjectRef, Strand: strand, Key: entry.Key.Name}, entry.Key.Kind, entry.Value)
	if err != nil {
		return metadata.Entry{}, err
	}

	var effectiveTo sql.NullTime
	if !entry.Unbounded() {
		effectiveTo = sql.NullTime{Time: entry.EffectiveTo, Valid: true}
	}
	var approver any
	if entry.Approved() {
		approver = entry.Approver.String()
	}

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO metadata_entries (subject_ref, strand, key_id, value, effective_from, effective_to, creator, approver)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		subjectRef, strand, entry.Key.ID, raw, entry.EffectiveFrom, effectiveTo, entry.Creator.String(), approver,
	).Scan(&entry.ID)
	if err != nil {
		return metadata.Entry{}, fmt.Errorf("pgstore: create entry for %s/%s: %w", subjectRef, strand, err)
	}

	s.emit(ctx, audit.BuildEntryCreatedEvent(audit.EntryEventInput{
		ActorID:    entry.Creator.String(),
		SubjectRef: subjectRef,
		Strand:     strand,
		Key:        entry.Key.Name,
		EntryID:    entry.ID,
		NewValue:   entry.Value,
	}))
	return entry, nil
}

// ApproveEntry stamps the approver on an entry.
func (s *Store) ApproveEntry(ctx context.Context, id int64, by uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE metadata_entries SET approver = $1 WHERE id = $2 AND approver IS NULL`,
		by.String(), id,
	)
	if err != nil {
		return fmt.Errorf("pgstore: approve entry %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgstore: approve entry %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("pgstore: entry %d not found or already approved", id)
	}

	s.emit(ctx, audit.BuildEntryApprovedEvent(audit.EntryEventInput{
		ActorID: by.String(),
		EntryID: id,
	}))
	return nil
}

// CloseEntry ends an entry's effective range. Closing is the only deletion
// the model admits; the row stays.
func (s *Store) CloseEntry(ctx context.Context, id int64, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE metadata_entries SET effective_to = $1 WHERE id = $2 AND effective_to IS NULL AND effective_from < $1`,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("pgstore: close entry %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgstore: close entry %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("pgstore: entry %d not found, already closed, or closes before it starts", id)
	}

	s.emit(ctx, audit.BuildEntryClosedEvent(audit.EntryEventInput{
		EntryID:  id,
		Metadata: map[string]any{"closed_at": at},
	}))
	return nil
}

// CreatePackage inserts a package and returns it with its assigned ID with
// no strands declared; callers attach strands via PackageWithStrands.
func (s *Store) CreatePackage(ctx context.Context, name string) (*metadata.Package, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO metadata_packages (name) VALUES ($1) RETURNING id`, name,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("pgstore: create package %q: %w", name, err)
	}
	return metadata.NewPackage(id, name, metadata.NewStrandMap()), nil
}

// PackageWithStrands rebuilds a package whose strands load from the store
// under the package's own subject ref.
func (s *Store) PackageWithStrands(id int64, name string, strands ...string) *metadata.Package {
	ref := fmt.Sprintf("package/%d", id)
	return metadata.NewPackage(id, name, s.StrandMap(ref, strands...))
}

// AttachPackage binds a package to a subject for an effective range. A zero
// from leaves the attachment always active.
func (s *Store) AttachPackage(ctx context.Context, subjectRef string, packageID int64, from, to time.Time, creator uuid.UUID) error {
	var effectiveFrom, effectiveTo sql.NullTime
	if !from.IsZero() {
		effectiveFrom = sql.NullTime{Time: from, Valid: true}
	}
	if !to.IsZero() {
		effectiveTo = sql.NullTime{Time: to, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metadata_attachments (subject_ref, package_id, effective_from, effective_to, creator)
		 VALUES ($1, $2, $3, $4, $5)`,
		subjectRef, packageID, effectiveFrom, effectiveTo, creator.String(),
	)
	if err != nil {
		return fmt.Errorf("pgstore: attach package %d to %s: %w", packageID, subjectRef, err)
	}
	return nil
}

// AttachmentsFor loads the package attachments of a subject, with each
// package's strands backed by the store.
func (s *Store) AttachmentsFor(ctx context.Context, subjectRef string, strands ...string) ([]metadata.Attachment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.name, a.effective_from, a.effective_to, a.creator, a.approver
		 FROM metadata_attachments a
		 JOIN metadata_packages p ON p.id = a.package_id
		 WHERE a.subject_ref = $1
		 ORDER BY a.id`,
		subjectRef,
	)
	if err != nil {
		return nil, fmt.Errorf("pgstore: load attachments for %s: %w", subjectRef, err)
	}
	defer rows.Close()

	var attachments []metadata.Attachment
	for rows.Next() {
		var (
			id          int64
			name        string
			from, to    sql.NullTime
			creatorRaw  string
			approverRaw sql.NullString
		)
		if err := rows.Scan(&id, &name, &from, &to, &creatorRaw, &approverRaw); err != nil {
			return nil, fmt.Errorf("pgstore: scan attachment for %s: %w", subjectRef, err)
		}
		creator, err := uuid.Parse(creatorRaw)
		if err != nil {
			return nil, fmt.Errorf("pgstore: attachment creator for %s: %w", subjectRef, err)
		}
		attachment := metadata.Attachment{
			Package: s.PackageWithStrands(id, name, strands...),
			Creator: creator,
		}
		if from.Valid {
			attachment.EffectiveFrom = from.Time
		}
		if to.Valid {
			attachment.EffectiveTo = to.Time
		}
		if approverRaw.Valid {
			approver, err := uuid.Parse(approverRaw.String)
			if err != nil {
				return nil, fmt.Errorf("pgstore: attachment approver for %s: %w", subjectRef, err)
			}
			attachment.Approver = approver
		}
		attachments = append(attachments, attachment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: load attachments for %s: %w", subjectRef, err)
	}
	return attachments, nil
}

func (s *Store) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Emit(ctx, event)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(scanner rowScanner) (metadata.Key, error) {
	var (
		key        metadata.Key
		kindRaw    string
		ttlSeconds int64
	)
	if err := scanner.Scan(&key.ID, &key.Name, &kindRaw, &key.AllowMultiple, &ttlSeconds); err != nil {
		return metadata.Key{}, fmt.Errorf("pgstore: scan key: %w", err)
	}
	kind, err := metadata.ParseValueKind(kindRaw)
	if err != nil {
		return metadata.Key{}, fmt.Errorf("pgstore: key %q: %w", key.Name, err)
	}
	key.Kind = kind
	key.CacheTTL = time.Duration(ttlSeconds) * time.Second
	return key, nil
}

func (s *Store) scanEntry(scanner rowScanner, subjectRef, strand string) (metadata.Entry, error) {
	var (
		entry       metadata.Entry
		raw         string
		to          sql.NullTime
		creatorRaw  string
		approverRaw sql.NullString
		kindRaw     string
		ttlSeconds  int64
	)
	err := scanner.Scan(
		&entry.ID, &raw, &entry.EffectiveFrom, &to, &creatorRaw, &approverRaw,
		&entry.Key.ID, &entry.Key.Name, &kindRaw, &entry.Key.AllowMultiple, &ttlSeconds,
	)
	if err != nil {
		return metadata.Entry{}, fmt.Errorf("pgstore: scan entry for %s/%s: %w", subjectRef, strand, err)
	}

	kind, err := metadata.ParseValueKind(kindRaw)
	if err != nil {
		return metadata.Entry{}, fmt.Errorf("pgstore: entry %d: %w", entry.ID, err)
	}
	entry.Key.Kind = kind
	entry.Key.CacheTTL = time.Duration(ttlSeconds) * time.Second

	if to.Valid {
		entry.EffectiveTo = to.Time
	}
	creator, err := uuid.Parse(creatorRaw)
	if err != nil {
		return metadata.Entry{}, fmt.Errorf("pgstore: entry %d creator: %w", entry.ID, err)
	}
	entry.Creator = creator
	if approverRaw.Valid {
		approver, err := uuid.Parse(approverRaw.String)
		if err != nil {
			return metadata.Entry{}, fmt.Errorf("pgstore: entry %d approver: %w", entry.ID, err)
		}
		entry.Approver = approver
	}

	value, err := s.codec.Decode(hydrate.Context{Subject: subjectRef, Strand: strand, Key: entry.Key.Name}, kind, raw)
	if err != nil {
		return metadata.Entry{}, err
	}
	entry.Value = value
	return entry, nil
}
