package pgstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/goliatone/go-metadata"
	"github.com/goliatone/go-metadata/pkg/audit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{URL: "postgres://localhost/meta", MaxOpenConns: -1}.Validate())
	assert.NoError(t, Config{URL: "postgres://localhost/meta"}.Validate())
}

func TestLoadRegistry(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "kind", "allow_multiple", "cache_ttl_seconds"}).
		AddRow(1, "caption", "text", false, 0).
		AddRow(2, "tag", "text", true, 300)
	mock.ExpectQuery(`SELECT .+ FROM metadata_keys ORDER BY id`).WillReturnRows(rows)

	store := NewStore(db)
	registry, err := store.LoadRegistry(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, registry.Len())

	key, err := registry.Lookup(metadata.KeyByName("tag"))
	require.NoError(t, err)
	assert.True(t, key.AllowMultiple)
	assert.Equal(t, 5*time.Minute, key.CacheTTL)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRegistryRejectsUnknownKind(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "kind", "allow_multiple", "cache_ttl_seconds"}).
		AddRow(1, "caption", "blob", false, 0)
	mock.ExpectQuery(`SELECT .+ FROM metadata_keys ORDER BY id`).WillReturnRows(rows)

	store := NewStore(db)
	_, err := store.LoadRegistry(context.Background())
	assert.ErrorContains(t, err, "unknown value kind")
}

func TestEntriesForHydratesValues(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	creator := uuid.New()
	approver := uuid.New()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "value", "effective_from", "effective_to", "creator", "approver",
		"key_id", "key_name", "kind", "allow_multiple", "cache_ttl_seconds",
	}).
		AddRow(1, "Old caption", from, to, creator.String(), approver.String(), 1, "caption", "text", false, 0).
		AddRow(2, `{"w":640}`, to, nil, creator.String(), nil, 2, "dimensions", "json", false, 0)
	mock.ExpectQuery(`SELECT .+ FROM metadata_entries e\s+JOIN metadata_keys k`).
		WithArgs("press/42", "images").
		WillReturnRows(rows)

	store := NewStore(db)
	entries, err := store.EntriesFor(context.Background(), "press/42", "images")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Old caption", entries[0].Value)
	assert.True(t, entries[0].Approved())
	assert.False(t, entries[0].Unbounded())

	assert.Equal(t, map[string]any{"w": float64(640)}, entries[1].Value)
	assert.False(t, entries[1].Approved())
	assert.True(t, entries[1].Unbounded())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEntryEncodesAndEmits(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	capture := &audit.CaptureHook{}
	emitter := audit.NewEmitter(audit.Hooks{capture}, audit.Config{Enabled: true})
	store := NewStore(db, WithAuditEmitter(emitter))

	creator := uuid.New()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	key := metadata.Key{ID: 2, Name: "dimensions", Kind: metadata.KindJSON}
	entry, err := metadata.NewEntry(0, key, map[string]any{"w": 640}, from, time.Time{}, creator)
	require.NoError(t, err)

	mock.ExpectQuery(`INSERT INTO metadata_entries`).
		WithArgs("press/42", "images", int64(2), `{"w":640}`, from, sql.NullTime{}, creator.String(), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	stored, err := store.CreateEntry(context.Background(), "press/42", "images", entry)
	require.NoError(t, err)
	assert.Equal(t, int64(7), stored.ID)

	require.Len(t, capture.Events, 1)
	event := capture.Events[0]
	assert.Equal(t, audit.VerbCreated, event.Verb)
	assert.Equal(t, "press/42", event.SubjectRef)
	assert.Equal(t, "dimensions", event.Key)
	assert.Equal(t, int64(7), event.Metadata["entry_id"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEntryRejectsWrongValueType(t *testing.T) {
	db, _ := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)
	key := metadata.Key{ID: 1, Name: "caption", Kind: metadata.KindText}
	entry := metadata.Entry{Key: key, Value: 5, EffectiveFrom: time.Now(), Creator: uuid.New()}

	_, err := store.CreateEntry(context.Background(), "press/42", "text", entry)
	assert.ErrorContains(t, err, "expects a string value")
}

func TestApproveEntry(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)
	approver := uuid.New()

	mock.ExpectExec(`UPDATE metadata_entries SET approver`).
		WithArgs(approver.String(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.ApproveEntry(context.Background(), 7, approver))

	mock.ExpectExec(`UPDATE metadata_entries SET approver`).
		WithArgs(approver.String(), int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := store.ApproveEntry(context.Background(), 8, approver)
	assert.ErrorContains(t, err, "not found or already approved")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseEntry(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE metadata_entries SET effective_to`).
		WithArgs(at, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.CloseEntry(context.Background(), 7, at))

	mock.ExpectExec(`UPDATE metadata_entries SET effective_to`).
		WithArgs(at, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.Error(t, store.CloseEntry(context.Background(), 7, at))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentsFor(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	creator := uuid.New()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "name", "effective_from", "effective_to", "creator", "approver"}).
		AddRow(3, "september-defaults", from, nil, creator.String(), nil).
		AddRow(4, "evergreen", nil, nil, creator.String(), nil)
	mock.ExpectQuery(`SELECT .+ FROM metadata_attachments a\s+JOIN metadata_packages p`).
		WithArgs("press/42").
		WillReturnRows(rows)

	store := NewStore(db)
	attachments, err := store.AttachmentsFor(context.Background(), "press/42", "images", "text")
	require.NoError(t, err)
	require.Len(t, attachments, 2)

	assert.Equal(t, "package/3", attachments[0].Package.MetadataRef())
	assert.Equal(t, []string{"images", "text"}, attachments[0].Package.MetadataStrands().Names())
	assert.False(t, attachments[0].ActiveAt(from.Add(-time.Hour)))
	assert.True(t, attachments[0].ActiveAt(from))

	assert.True(t, attachments[1].ActiveAt(from.Add(-time.Hour)))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachPackage(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)
	creator := uuid.New()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO metadata_attachments`).
		WithArgs("press/42", int64(3), sql.NullTime{Time: from, Valid: true}, sql.NullTime{}, creator.String()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.AttachPackage(context.Background(), "press/42", 3, from, time.Time{}, creator))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateKeyAndPackage(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)

	mock.ExpectQuery(`INSERT INTO metadata_keys`).
		WithArgs("caption", "text", false, int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	key, err := store.CreateKey(context.Background(), metadata.Key{Name: "caption", Kind: metadata.KindText})
	require.NoError(t, err)
	assert.Equal(t, int64(1), key.ID)

	mock.ExpectQuery(`INSERT INTO metadata_packages`).
		WithArgs("september-defaults").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	pkg, err := store.CreatePackage(context.Background(), "september-defaults")
	require.NoError(t, err)
	assert.Equal(t, "package/3", pkg.MetadataRef())

	require.NoError(t, mock.ExpectationsWereMet())
}
