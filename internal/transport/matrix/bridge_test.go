package matrix

import (
	"context"
	"strings"
	"testing"

	"maunium.net/go/mautrix/id"

	"github.com/redmoonthebest/morozhenka/backend/internal/model/conversation"
	"github.com/redmoonthebest/morozhenka/backend/internal/service/collect"
	sessionsvc "github.com/redmoonthebest/morozhenka/backend/internal/service/session"
)

type scriptedExtractor struct {
	fields map[conversation.FieldKey]string
}

func (s scriptedExtractor) ExtractFields(_ context.Context, _ []conversation.Message, _ map[conversation.FieldKey]string) (map[conversation.FieldKey]string, error) {
	return s.fields, nil
}

func (s scriptedExtractor) ComposeReply(_ context.Context, _ []conversation.Message, _ []conversation.FieldKey, _ map[conversation.FieldKey]string) (string, error) {
	return "Подскажите, пожалуйста, адрес доставки 🏠", nil
}

func newTestBridge(ext collect.Extractor) *Bridge {
	return &Bridge{
		engine: collect.NewEngine(sessionsvc.NewMemoryStore(), ext, nil),
	}
}

func TestDispatchStartCommand(t *testing.T) {
	b := newTestBridge(scriptedExtractor{})

	replies := b.dispatch(context.Background(), "!room:example.org", "@anna:example.org", "/start")

	if len(replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(replies))
	}
	if !strings.Contains(replies[0], "Мороженка") {
		t.Fatalf("expected greeting, got %q", replies[0])
	}
}

func TestDispatchRestartCommand(t *testing.T) {
	b := newTestBridge(scriptedExtractor{})
	ctx := context.Background()

	b.dispatch(ctx, "!room:example.org", "@anna:example.org", "/start")
	replies := b.dispatch(ctx, "!room:example.org", "@anna:example.org", "/restart")

	if len(replies) != 2 {
		t.Fatalf("expected notice and greeting, got %d replies", len(replies))
	}
}

func TestDispatchCancelUsesSenderName(t *testing.T) {
	b := newTestBridge(scriptedExtractor{})
	ctx := context.Background()

	b.dispatch(ctx, "!room:example.org", "@anna:example.org", "/start")
	replies := b.dispatch(ctx, "!room:example.org", "@anna:example.org", "/cancel")

	if len(replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(replies))
	}
	if !strings.Contains(replies[0], "Жаль, anna") {
		t.Fatalf("expected personalized farewell, got %q", replies[0])
	}
}

func TestDispatchAutoStartsUnknownRoom(t *testing.T) {
	b := newTestBridge(scriptedExtractor{})

	replies := b.dispatch(context.Background(), "!room:example.org", "@anna:example.org", "Привет")

	if len(replies) != 2 {
		t.Fatalf("expected greeting and reply, got %d", len(replies))
	}
	if !strings.Contains(replies[0], "Мороженка") {
		t.Fatalf("first reply should be the greeting, got %q", replies[0])
	}
	if replies[1] == "" {
		t.Fatalf("expected turn reply after greeting")
	}
}

func TestDispatchRunsTurnForKnownRoom(t *testing.T) {
	b := newTestBridge(scriptedExtractor{fields: map[conversation.FieldKey]string{
		conversation.FieldName: "Анна",
	}})
	ctx := context.Background()

	b.dispatch(ctx, "!room:example.org", "@anna:example.org", "/start")
	replies := b.dispatch(ctx, "!room:example.org", "@anna:example.org", "Я Анна")

	if len(replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(replies))
	}
}

func TestDisplayNameUsesLocalpart(t *testing.T) {
	if got := displayName(id.UserID("@anna:example.org")); got != "anna" {
		t.Fatalf("expected localpart, got %q", got)
	}
	if got := displayName(id.UserID("not-a-user-id")); got != "not-a-user-id" {
		t.Fatalf("expected fallback to raw id, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("короткое", 50); got != "короткое" {
		t.Fatalf("short string should be unchanged, got %q", got)
	}
	if got := truncate("привет мир", 6); got != "привет..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
}
