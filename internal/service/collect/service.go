package collect

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redmoonthebest/morozhenka/backend/internal/model/conversation"
	"github.com/redmoonthebest/morozhenka/backend/internal/service/order"
	"github.com/redmoonthebest/morozhenka/backend/internal/service/session"
)

// ErrSessionIDRequired reports an operation invoked without a session id.
var ErrSessionIDRequired = errors.New("session id is required")

// Extractor is the language-model surface the engine depends on. The history
// passed to both methods ends with the newest user turn.
type Extractor interface {
	ExtractFields(ctx context.Context, history []conversation.Message, known map[conversation.FieldKey]string) (map[conversation.FieldKey]string, error)
	ComposeReply(ctx context.Context, history []conversation.Message, missing []conversation.FieldKey, known map[conversation.FieldKey]string) (string, error)
}

// Engine drives order-detail collection: it merges extracted fields into the
// session record, decides what to ask for next and hands completed orders
// off exactly once.
type Engine struct {
	store     session.Store
	extractor Extractor
	orders    order.Sink

	// mu guards locks. Per-session mutexes serialize message handling for a
	// session without blocking the others. Entries are never freed; the
	// table grows with the number of distinct sessions seen.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine wires the engine. A nil extractor degrades every turn to the
// static apology; a nil sink falls back to logging completed orders.
func NewEngine(store session.Store, extractor Extractor, orders order.Sink) *Engine {
	if orders == nil {
		orders = order.LogSink{}
	}
	return &Engine{
		store:     store,
		extractor: extractor,
		orders:    orders,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Snapshot reports a session's collection progress.
type Snapshot struct {
	SessionID      string                  `json:"sessionId"`
	State          conversation.State      `json:"state"`
	Identity       conversation.Identity   `json:"identity"`
	Fields         conversation.FieldSet   `json:"fields"`
	Missing        []conversation.FieldKey `json:"missing"`
	CreatedAt      time.Time               `json:"createdAt"`
	LastActivityAt time.Time               `json:"lastActivityAt"`
}

// Start provisions the session and returns the greeting. The greeting is not
// recorded in the history.
func (e *Engine) Start(ctx context.Context, sessionID string, identity conversation.Identity) (string, error) {
	if sessionID == "" {
		return "", ErrSessionIDRequired
	}

	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	e.store.GetOrCreate(ctx, sessionID, identity)
	log.Printf("[collect] session=%s started", sessionID)
	return welcomeMessage, nil
}

// HandleMessage records the user turn, runs extraction, merges any captured
// fields and returns the system reply. The reply is recorded in the history,
// so every handled turn adds exactly one user and one system message.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, text string) (string, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}

	rec.Append(conversation.OriginUser, text)

	if rec.IsComplete() {
		return e.respond(rec, completionMessage(rec.Fields)), nil
	}

	update := e.extract(ctx, sessionID, rec)

	// A restart or cancel may have swapped or removed the record while the
	// extractor was running. The stale result belongs to the old record.
	if cur, err := e.store.Get(ctx, sessionID); err != nil || cur != rec {
		log.Printf("[collect] session=%s reset during extraction, discarding result", sessionID)
		return "", session.ErrSessionNotFound
	}

	if applied := rec.Fields.Merge(update); len(applied) > 0 {
		log.Printf("[collect] session=%s captured %s", sessionID, joinKeys(applied))
	}

	if rec.IsComplete() {
		e.finalize(ctx, sessionID, rec)
		return e.respond(rec, completionMessage(rec.Fields)), nil
	}

	return e.respond(rec, e.compose(ctx, sessionID, rec)), nil
}

// Restart drops the session state and provisions a fresh record. It returns
// the restart notice followed by the greeting; neither is recorded in the
// history. It intentionally skips the session lock so a restart lands even
// while a turn is in flight.
func (e *Engine) Restart(ctx context.Context, sessionID string, identity conversation.Identity) ([]string, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}

	e.store.Remove(ctx, sessionID)
	e.store.GetOrCreate(ctx, sessionID, identity)
	log.Printf("[collect] session=%s restarted", sessionID)
	return []string{restartNotice, welcomeMessage}, nil
}

// Cancel removes the session and returns a farewell, personalized when the
// display name was known. Cancelling an unknown session still succeeds. Like
// Restart it skips the session lock so it can interrupt an in-flight turn.
func (e *Engine) Cancel(ctx context.Context, sessionID string) string {
	rec, existed := e.store.Remove(ctx, sessionID)
	if !existed {
		return cancelMessage("")
	}

	log.Printf("[collect] session=%s cancelled", sessionID)
	return cancelMessage(rec.Identity.DisplayName)
}

// Snapshot reports what is known, what is missing and the session state.
func (e *Engine) Snapshot(ctx context.Context, sessionID string) (Snapshot, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		SessionID:      rec.ID,
		State:          rec.State(),
		Identity:       rec.Identity,
		Fields:         rec.Fields,
		Missing:        rec.MissingFields(),
		CreatedAt:      rec.CreatedAt,
		LastActivityAt: rec.LastActivityAt,
	}, nil
}

// Transcript returns a copy of the session history.
func (e *Engine) Transcript(ctx context.Context, sessionID string) ([]conversation.Message, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return historyCopy(rec.History), nil
}

// extract runs the extraction pass. Failures degrade to an empty update so
// the conversation keeps moving.
func (e *Engine) extract(ctx context.Context, sessionID string, rec *conversation.Record) map[conversation.FieldKey]string {
	if e.extractor == nil {
		return nil
	}

	update, err := e.extractor.ExtractFields(ctx, historyCopy(rec.History), rec.KnownFields())
	if err != nil {
		log.Printf("[collect] session=%s extraction failed, continuing without new fields: %v", sessionID, err)
		return nil
	}
	return update
}

// compose generates the steering reply. Failures degrade to the static
// apology.
func (e *Engine) compose(ctx context.Context, sessionID string, rec *conversation.Record) string {
	if e.extractor == nil {
		return apologyMessage
	}

	reply, err := e.extractor.ComposeReply(ctx, historyCopy(rec.History), rec.MissingFields(), rec.KnownFields())
	if err != nil {
		log.Printf("[collect] session=%s reply generation failed, sending apology: %v", sessionID, err)
		return apologyMessage
	}
	return reply
}

// finalize hands the completed order off. It runs only in the turn that made
// the record complete, so each session submits at most once. Hand-off
// failures are logged and do not disturb the conversation.
func (e *Engine) finalize(ctx context.Context, sessionID string, rec *conversation.Record) {
	payload := order.Order{
		Name:    rec.Fields.Name,
		City:    rec.Fields.City,
		Address: rec.Fields.Address,
	}
	if err := e.orders.Submit(ctx, payload); err != nil {
		log.Printf("[order] session=%s hand-off failed: %v", sessionID, err)
		return
	}
	log.Printf("[order] session=%s order submitted", sessionID)
}

func (e *Engine) respond(rec *conversation.Record, text string) string {
	rec.Append(conversation.OriginSystem, text)
	return text
}

func (e *Engine) sessionLock(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[sessionID] = lock
	}
	return lock
}

func historyCopy(history []conversation.Message) []conversation.Message {
	out := make([]conversation.Message, len(history))
	copy(out, history)
	return out
}

func joinKeys(keys []conversation.FieldKey) string {
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, string(key))
	}
	return strings.Join(parts, ", ")
}
