package session

import (
	"context"
	"errors"
	"testing"

	"github.com/redmoonthebest/morozhenka/backend/internal/model/conversation"
)

func TestGetOrCreateProvisionsEmptyRecord(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := store.GetOrCreate(ctx, "s1", conversation.Identity{DisplayName: "Анна"})

	if rec.ID != "s1" {
		t.Fatalf("expected id s1, got %s", rec.ID)
	}
	if rec.Identity.DisplayName != "Анна" {
		t.Fatalf("expected identity to be stored, got %+v", rec.Identity)
	}
	if len(rec.History) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(rec.History))
	}
	if rec.IsComplete() {
		t.Fatal("fresh record reported complete")
	}
}

func TestGetOrCreateReturnsSameRecord(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := store.GetOrCreate(ctx, "s1", conversation.Identity{DisplayName: "Анна"})
	second := store.GetOrCreate(ctx, "s1", conversation.Identity{DisplayName: "Аня", Locale: "ru"})

	if first != second {
		t.Fatal("expected the same record on repeated getOrCreate")
	}
	if second.Identity.DisplayName != "Аня" {
		t.Fatalf("expected identity refresh, got %q", second.Identity.DisplayName)
	}
	if second.Identity.Locale != "ru" {
		t.Fatalf("expected locale refresh, got %q", second.Identity.Locale)
	}
}

func TestGetOrCreateKeepsIdentityWhenRefreshIsEmpty(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.GetOrCreate(ctx, "s1", conversation.Identity{DisplayName: "Анна", Locale: "ru"})
	rec := store.GetOrCreate(ctx, "s1", conversation.Identity{})

	if rec.Identity.DisplayName != "Анна" || rec.Identity.Locale != "ru" {
		t.Fatalf("empty refresh cleared identity: %+v", rec.Identity)
	}
}

func TestGetUnknownSession(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.GetOrCreate(ctx, "s1", conversation.Identity{DisplayName: "Анна"})

	rec, removed := store.Remove(ctx, "s1")
	if !removed {
		t.Fatal("expected first remove to report a deletion")
	}
	if rec == nil || rec.Identity.DisplayName != "Анна" {
		t.Fatal("expected the evicted record to be returned")
	}

	if _, removed := store.Remove(ctx, "s1"); removed {
		t.Fatal("expected second remove to be a no-op")
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected record to be gone, got %v", err)
	}
}

func TestRemoveThenGetOrCreateStartsFresh(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	old := store.GetOrCreate(ctx, "s1", conversation.Identity{})
	old.Fields.Merge(map[conversation.FieldKey]string{
		conversation.FieldName: "Анна",
		conversation.FieldCity: "Осло",
	})
	old.Append(conversation.OriginUser, "привет")

	store.Remove(ctx, "s1")
	fresh := store.GetOrCreate(ctx, "s1", conversation.Identity{})

	if fresh == old {
		t.Fatal("expected a new record after removal")
	}
	if fresh.IsComplete() || len(fresh.KnownFields()) != 0 {
		t.Fatalf("expected empty fields, got %+v", fresh.Fields)
	}
	if len(fresh.History) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(fresh.History))
	}
}
