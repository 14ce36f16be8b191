package conversation

import (
	"testing"
	"time"
)

func TestMergeAppliesTrimmedValues(t *testing.T) {
	fields := FieldSet{}

	applied := fields.Merge(map[FieldKey]string{
		FieldName: "  Анна  ",
		FieldCity: "Осло",
	})

	if len(applied) != 2 {
		t.Fatalf("expected 2 applied keys, got %d", len(applied))
	}
	if applied[0] != FieldName || applied[1] != FieldCity {
		t.Fatalf("expected canonical order name, city, got %v", applied)
	}
	if fields.Name != "Анна" {
		t.Fatalf("expected trimmed name, got %q", fields.Name)
	}
	if fields.City != "Осло" {
		t.Fatalf("expected city Осло, got %q", fields.City)
	}
}

func TestMergeNeverClearsExistingValues(t *testing.T) {
	fields := FieldSet{Name: "Анна", City: "Осло", Address: "Сторгата 1"}

	applied := fields.Merge(map[FieldKey]string{
		FieldName:    "",
		FieldCity:    "   ",
		FieldAddress: "\n\t",
	})

	if len(applied) != 0 {
		t.Fatalf("expected no applied keys, got %v", applied)
	}
	if fields.Name != "Анна" || fields.City != "Осло" || fields.Address != "Сторгата 1" {
		t.Fatalf("existing values were modified: %+v", fields)
	}
}

func TestMergeOverwritesWithNewValue(t *testing.T) {
	fields := FieldSet{City: "Осло"}

	fields.Merge(map[FieldKey]string{FieldCity: "Берген"})

	if fields.City != "Берген" {
		t.Fatalf("expected last write to win, got %q", fields.City)
	}
}

func TestMergeEmptyUpdateIsNoop(t *testing.T) {
	fields := FieldSet{Name: "Анна"}

	if applied := fields.Merge(nil); applied != nil {
		t.Fatalf("expected nil applied keys, got %v", applied)
	}
	if fields.Name != "Анна" {
		t.Fatalf("expected name untouched, got %q", fields.Name)
	}
}

func TestMissingFieldsKeepCanonicalOrder(t *testing.T) {
	rec := NewRecord("s1", Identity{})
	rec.Fields.City = "Осло"

	missing := rec.MissingFields()
	if len(missing) != 2 {
		t.Fatalf("expected 2 missing fields, got %d", len(missing))
	}
	if missing[0] != FieldName || missing[1] != FieldAddress {
		t.Fatalf("expected [name address], got %v", missing)
	}
}

func TestCompletionRequiresAllThreeFields(t *testing.T) {
	rec := NewRecord("s1", Identity{})
	if rec.IsComplete() {
		t.Fatal("empty record reported complete")
	}
	if rec.State() != StateCollecting {
		t.Fatalf("expected collecting state, got %s", rec.State())
	}

	rec.Fields.Merge(map[FieldKey]string{FieldName: "Анна", FieldCity: "Осло"})
	if rec.IsComplete() {
		t.Fatal("record with two fields reported complete")
	}

	rec.Fields.Merge(map[FieldKey]string{FieldAddress: "Сторгата 1"})
	if !rec.IsComplete() {
		t.Fatal("record with all fields reported incomplete")
	}
	if rec.State() != StateComplete {
		t.Fatalf("expected complete state, got %s", rec.State())
	}
}

func TestKnownFieldsSkipsUnset(t *testing.T) {
	rec := NewRecord("s1", Identity{})
	rec.Fields.Name = "Анна"

	known := rec.KnownFields()
	if len(known) != 1 {
		t.Fatalf("expected 1 known field, got %d", len(known))
	}
	if known[FieldName] != "Анна" {
		t.Fatalf("expected name Анна, got %q", known[FieldName])
	}
}

func TestAppendKeepsInsertionOrderAndBumpsActivity(t *testing.T) {
	rec := NewRecord("s1", Identity{})
	created := rec.LastActivityAt

	first := rec.Append(OriginUser, "привет")
	time.Sleep(time.Millisecond)
	second := rec.Append(OriginSystem, "здравствуйте")

	if len(rec.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(rec.History))
	}
	if rec.History[0].ID != first.ID || rec.History[1].ID != second.ID {
		t.Fatal("history order does not match insertion order")
	}
	if first.ID == second.ID {
		t.Fatal("messages share an id")
	}
	if !rec.LastActivityAt.After(created) {
		t.Fatal("append did not bump last activity timestamp")
	}
	if rec.LastActivityAt != second.CreatedAt {
		t.Fatal("last activity should match the newest message")
	}
}
