package metadata

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var (
	testCreator  = uuid.New()
	testApprover = uuid.New()

	captionKey = Key{ID: 1, Name: "caption", Kind: KindText}
	heroKey    = Key{ID: 2, Name: "hero_image", Kind: KindImage, CacheTTL: 5 * time.Minute}
	tagKey     = Key{ID: 3, Name: "tag", Kind: KindText, AllowMultiple: true}
)

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func entry(t *testing.T, id int64, key Key, value any, from, to time.Time) Entry {
	t.Helper()
	e, err := NewEntry(id, key, value, from, to, testCreator)
	if err != nil {
		t.Fatalf("new entry %d: %v", id, err)
	}
	return e
}

func TestResolveKeyLatestStartWins(t *testing.T) {
	entries := []Entry{
		entry(t, 1, captionKey, "from 2020", date(2020, 1, 1), time.Time{}),
		entry(t, 2, captionKey, "from 2021", date(2021, 1, 1), time.Time{}),
	}

	cases := []struct {
		name string
		at   time.Time
		want any
	}{
		{name: "between starts", at: date(2020, 6, 1), want: "from 2020"},
		{name: "after both", at: date(2021, 6, 1), want: "from 2021"},
		{name: "exactly at second start", at: date(2021, 1, 1), want: "from 2021"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveKey(entries, tc.at)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got.Value != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got.Value)
			}
		})
	}
}

func TestResolveKeyBeforeAnyStart(t *testing.T) {
	entries := []Entry{
		entry(t, 1, captionKey, "from 2020", date(2020, 1, 1), time.Time{}),
	}
	_, err := ResolveKey(entries, date(2019, 6, 1))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveKeyEffectiveToIsExclusive(t *testing.T) {
	entries := []Entry{
		entry(t, 1, captionKey, "bounded", date(2020, 1, 1), date(2021, 1, 1)),
	}

	if _, err := ResolveKey(entries, date(2020, 12, 31)); err != nil {
		t.Fatalf("expected entry active just before end: %v", err)
	}
	if _, err := ResolveKey(entries, date(2021, 1, 1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected end instant to be excluded, got %v", err)
	}
}

func TestResolveKeyTieBreaksByID(t *testing.T) {
	entries := []Entry{
		entry(t, 5, captionKey, "older revision", date(2020, 1, 1), time.Time{}),
		entry(t, 9, captionKey, "newer revision", date(2020, 1, 1), time.Time{}),
	}
	got, err := ResolveKey(entries, date(2020, 6, 1))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != 9 {
		t.Fatalf("expected highest id to win the tie, got %d", got.ID)
	}
}

func TestResolveAllWinnerFirst(t *testing.T) {
	entries := []Entry{
		entry(t, 1, tagKey, "drama", date(2020, 1, 1), time.Time{}),
		entry(t, 2, tagKey, "prime-time", date(2021, 1, 1), time.Time{}),
		entry(t, 3, tagKey, "expired", date(2019, 1, 1), date(2020, 1, 1)),
	}
	active := ResolveAll(entries, date(2021, 6, 1))
	if len(active) != 2 {
		t.Fatalf("expected 2 active entries, got %d", len(active))
	}
	if active[0].Value != "prime-time" || active[1].Value != "drama" {
		t.Fatalf("expected winner-first order, got %v then %v", active[0].Value, active[1].Value)
	}
}

func TestResolveApprovedOnly(t *testing.T) {
	approved := entry(t, 1, captionKey, "approved", date(2020, 1, 1), time.Time{}).Approve(testApprover)
	draft := entry(t, 2, captionKey, "draft", date(2021, 1, 1), time.Time{})
	entries := []Entry{approved, draft}

	got, err := ResolveKey(entries, date(2021, 6, 1), ApprovedOnly())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Value != "approved" {
		t.Fatalf("expected the approved entry, got %v", got.Value)
	}

	got, err = ResolveKey(entries, date(2021, 6, 1))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Value != "draft" {
		t.Fatalf("expected the newest entry without the filter, got %v", got.Value)
	}
}

func TestResolveStrandGroupsByKey(t *testing.T) {
	entries := []Entry{
		entry(t, 1, captionKey, "old caption", date(2020, 1, 1), time.Time{}),
		entry(t, 2, captionKey, "new caption", date(2021, 1, 1), time.Time{}),
		entry(t, 3, heroKey, "hero.jpg", date(2020, 1, 1), time.Time{}),
		entry(t, 4, tagKey, "drama", date(2020, 1, 1), time.Time{}),
		entry(t, 5, tagKey, "prime-time", date(2020, 1, 1), time.Time{}),
		entry(t, 6, heroKey, "expired.jpg", date(2019, 1, 1), date(2020, 1, 1)),
	}
	strand := ResolveStrand(entries, date(2021, 6, 1))

	if strand.Len() != 3 {
		t.Fatalf("expected 3 resolved keys, got %d", strand.Len())
	}
	value, err := strand.ValueByName("caption")
	if err != nil || value != "new caption" {
		t.Fatalf("expected new caption, got %v err=%v", value, err)
	}
	values, err := strand.Values(KeyByName("tag"))
	if err != nil || len(values) != 2 {
		t.Fatalf("expected both tags, got %v err=%v", values, err)
	}
}

func TestResolveStrandEmptyIsValid(t *testing.T) {
	strand := ResolveStrand(nil, date(2021, 6, 1))
	if strand.Len() != 0 {
		t.Fatalf("expected empty strand, got %d keys", strand.Len())
	}
	if _, err := strand.Value(KeyByName("caption")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty strand, got %v", err)
	}
}

func TestNewEntryValidation(t *testing.T) {
	if _, err := NewEntry(1, Key{}, "v", date(2020, 1, 1), time.Time{}, testCreator); err == nil {
		t.Fatalf("expected missing key to be rejected")
	}
	if _, err := NewEntry(1, captionKey, "v", time.Time{}, time.Time{}, testCreator); err == nil {
		t.Fatalf("expected missing effective start to be rejected")
	}
	if _, err := NewEntry(1, captionKey, "v", date(2021, 1, 1), date(2020, 1, 1), testCreator); err == nil {
		t.Fatalf("expected empty range to be rejected")
	}
	if _, err := NewEntry(1, captionKey, "v", date(2020, 1, 1), date(2020, 1, 1), testCreator); err == nil {
		t.Fatalf("expected zero-width range to be rejected")
	}
}

func TestEntryApproveAndCloseReturnCopies(t *testing.T) {
	original := entry(t, 1, captionKey, "v", date(2020, 1, 1), time.Time{})

	approved := original.Approve(testApprover)
	if original.Approved() {
		t.Fatalf("expected the original to stay unapproved")
	}
	if !approved.Approved() {
		t.Fatalf("expected the copy to carry the approver")
	}

	closed, err := original.Close(date(2021, 1, 1))
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !original.Unbounded() {
		t.Fatalf("expected the original to stay open")
	}
	if closed.Unbounded() || !closed.EffectiveTo.Equal(date(2021, 1, 1)) {
		t.Fatalf("expected the copy to be closed at 2021, got %v", closed.EffectiveTo)
	}

	if _, err := original.Close(date(2019, 1, 1)); err == nil {
		t.Fatalf("expected close before start to be rejected")
	}
	if _, err := closed.Close(date(2022, 1, 1)); err == nil {
		t.Fatalf("expected re-close after end to be rejected")
	}
}
