package ai

import (
	"testing"

	"github.com/redmoonthebest/morozhenka/backend/internal/model/conversation"
)

func TestParseFieldsReadsAllTags(t *testing.T) {
	reply := "<user_name>Анна</user_name>\n<user_city>Осло</user_city>\n<user_address>Сторгата 1</user_address>"

	fields := ParseFields(reply)

	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}
	if fields[conversation.FieldName] != "Анна" {
		t.Fatalf("unexpected name: %q", fields[conversation.FieldName])
	}
	if fields[conversation.FieldCity] != "Осло" {
		t.Fatalf("unexpected city: %q", fields[conversation.FieldCity])
	}
	if fields[conversation.FieldAddress] != "Сторгата 1" {
		t.Fatalf("unexpected address: %q", fields[conversation.FieldAddress])
	}
}

func TestParseFieldsIgnoresMissingTags(t *testing.T) {
	fields := ParseFields("<user_city>Казань</user_city>")

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
	if fields[conversation.FieldCity] != "Казань" {
		t.Fatalf("unexpected city: %q", fields[conversation.FieldCity])
	}
	if _, ok := fields[conversation.FieldName]; ok {
		t.Fatalf("name should be absent")
	}
}

func TestParseFieldsSkipsWhitespaceOnlyValues(t *testing.T) {
	fields := ParseFields("<user_name>   </user_name><user_city>\n\t</user_city>")

	if len(fields) != 0 {
		t.Fatalf("expected no fields, got %v", fields)
	}
}

func TestParseFieldsTrimsValues(t *testing.T) {
	fields := ParseFields("<user_name>  Пётр\n</user_name>")

	if fields[conversation.FieldName] != "Пётр" {
		t.Fatalf("unexpected name: %q", fields[conversation.FieldName])
	}
}

func TestParseFieldsAllowsSurroundingProse(t *testing.T) {
	reply := "Конечно, вот что я понял:\n<user_name>Мария</user_name>\nОстального пока нет."

	fields := ParseFields(reply)

	if len(fields) != 1 || fields[conversation.FieldName] != "Мария" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestParseFieldsHandlesMultilineValue(t *testing.T) {
	fields := ParseFields("<user_address>ул. Ленина, 5\nкв. 12</user_address>")

	if fields[conversation.FieldAddress] != "ул. Ленина, 5\nкв. 12" {
		t.Fatalf("unexpected address: %q", fields[conversation.FieldAddress])
	}
}

func TestParseFieldsStopsAtFirstClosingTag(t *testing.T) {
	fields := ParseFields("<user_name>Анна</user_name> мусор </user_name>")

	if fields[conversation.FieldName] != "Анна" {
		t.Fatalf("unexpected name: %q", fields[conversation.FieldName])
	}
}
