package metadata

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func BenchmarkResolveKey(b *testing.B) {
	entries := make([]Entry, 50)
	for i := range entries {
		e, err := NewEntry(int64(i+1), captionKey, fmt.Sprintf("revision %d", i),
			date(2020, 1, 1).AddDate(0, i, 0), time.Time{}, testCreator)
		if err != nil {
			b.Fatalf("entry: %v", err)
		}
		entries[i] = e
	}
	at := date(2026, 1, 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ResolveKey(entries, at); err != nil {
			b.Fatalf("resolve: %v", err)
		}
	}
}

func BenchmarkRunnerValue(b *testing.B) {
	entries := make([]Entry, 20)
	for i := range entries {
		e, err := NewEntry(int64(i+1), captionKey, fmt.Sprintf("revision %d", i),
			date(2020, 1, 1).AddDate(0, i, 0), time.Time{}, testCreator)
		if err != nil {
			b.Fatalf("entry: %v", err)
		}
		entries[i] = e
	}
	subject := &plainSubject{
		ref:     "show/1",
		strands: NewStrandMap().Declare("content", StaticEntries(entries)),
	}
	runner := NewRunner()
	ctx := context.Background()
	at := date(2026, 1, 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := runner.Value(ctx, subject, "content", KeyByName("caption"), at); err != nil {
			b.Fatalf("value: %v", err)
		}
	}
}
