package matrix

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/redmoonthebest/morozhenka/backend/internal/config"
	"github.com/redmoonthebest/morozhenka/backend/internal/model/conversation"
	"github.com/redmoonthebest/morozhenka/backend/internal/service/collect"
	sessionsvc "github.com/redmoonthebest/morozhenka/backend/internal/service/session"
)

const (
	typingTimeout  = 30 * time.Second
	networkTimeout = 10 * time.Second
	sendTimeout    = 30 * time.Second
)

// Bridge relays Matrix rooms into collection sessions. Each room maps to one
// session: the room id is the session id and the sender's localpart becomes
// the display name.
type Bridge struct {
	engine *collect.Engine
	client *mautrix.Client
	userID id.UserID

	// processing guards against overlapping turns in the same room.
	processing sync.Map

	ctx    context.Context
	cancel context.CancelFunc
}

// NewBridge creates the Matrix client and wires it to the engine.
func NewBridge(cfg config.MatrixConfig, engine *collect.Engine) (*Bridge, error) {
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create matrix client: %w", err)
	}

	return &Bridge{
		engine: engine,
		client: client,
		userID: id.UserID(cfg.UserID),
	}, nil
}

// Run syncs with the homeserver until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)
	defer b.cancel()

	syncer, ok := b.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", b.client.Syncer)
	}
	syncer.OnEventType(event.EventMessage, b.handleMessageEvent)

	log.Printf("[matrix] bridge connecting as %s", b.userID)

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- b.client.SyncWithContext(b.ctx)
	}()

	select {
	case <-ctx.Done():
		log.Printf("[matrix] bridge shutting down")
		b.cancel()
		return nil
	case err := <-syncErr:
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

func (b *Bridge) handleMessageEvent(_ context.Context, evt *event.Event) {
	if evt.Sender == b.userID {
		return
	}

	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok {
		return
	}
	if content.MsgType != event.MsgText {
		return
	}

	text := strings.TrimSpace(content.Body)
	if text == "" {
		return
	}

	log.Printf("[matrix] room=%s sender=%s message=%q", evt.RoomID, evt.Sender, truncate(text, 50))

	// Process in a goroutine so a slow turn does not block the sync loop.
	go b.processTurn(b.ctx, evt.RoomID, evt.Sender, text)
}

func (b *Bridge) processTurn(ctx context.Context, roomID id.RoomID, sender id.UserID, text string) {
	sessionID := roomID.String()

	if _, loaded := b.processing.LoadOrStore(sessionID, true); loaded {
		log.Printf("[matrix] room=%s turn already in flight, dropping message", sessionID)
		return
	}
	defer b.processing.Delete(sessionID)

	b.setTyping(roomID, true)
	defer b.setTyping(roomID, false)

	for _, reply := range b.dispatch(ctx, sessionID, sender, text) {
		b.sendText(roomID, reply)
	}
}

// dispatch routes a room message to the engine and returns the texts to send
// back, in order.
func (b *Bridge) dispatch(ctx context.Context, sessionID string, sender id.UserID, text string) []string {
	identity := conversation.Identity{DisplayName: displayName(sender)}

	switch text {
	case "/start":
		reply, err := b.engine.Start(ctx, sessionID, identity)
		if err != nil {
			return []string{collect.GenericFailureMessage}
		}
		return []string{reply}
	case "/restart":
		replies, err := b.engine.Restart(ctx, sessionID, identity)
		if err != nil {
			return []string{collect.GenericFailureMessage}
		}
		return replies
	case "/cancel":
		return []string{b.engine.Cancel(ctx, sessionID)}
	}

	reply, err := b.engine.HandleMessage(ctx, sessionID, text)
	if errors.Is(err, sessionsvc.ErrSessionNotFound) {
		// First contact in this room: provision the session, greet, then run
		// the turn that arrived.
		welcome, startErr := b.engine.Start(ctx, sessionID, identity)
		if startErr != nil {
			return []string{collect.GenericFailureMessage}
		}
		reply, err = b.engine.HandleMessage(ctx, sessionID, text)
		if err != nil {
			return []string{welcome}
		}
		return []string{welcome, reply}
	}
	if err != nil {
		log.Printf("[matrix] session=%s turn failed: %v", sessionID, err)
		return []string{collect.GenericFailureMessage}
	}
	return []string{reply}
}

func (b *Bridge) setTyping(roomID id.RoomID, typing bool) {
	var timeout time.Duration
	if typing {
		timeout = typingTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()
	if _, err := b.client.UserTyping(ctx, roomID, typing, timeout); err != nil {
		log.Printf("[matrix] room=%s failed to set typing indicator: %v", roomID, err)
	}
}

func (b *Bridge) sendText(roomID id.RoomID, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if _, err := b.client.SendText(ctx, roomID, text); err != nil {
		log.Printf("[matrix] room=%s failed to send message: %v", roomID, err)
	}
}

// displayName extracts the localpart of a Matrix user id, falling back to
// the full id when it does not parse.
func displayName(sender id.UserID) string {
	localpart, _, err := sender.Parse()
	if err != nil || localpart == "" {
		return sender.String()
	}
	return localpart
}

// truncate shortens a string to maxLen runes for logging.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
