package conversation

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FieldKey names one of the delivery details collected from the user.
type FieldKey string

const (
	FieldName    FieldKey = "name"
	FieldCity    FieldKey = "city"
	FieldAddress FieldKey = "address"
)

// FieldOrder is the canonical ordering for prompts and missing-field lists.
var FieldOrder = []FieldKey{FieldName, FieldCity, FieldAddress}

// State is the lifecycle phase of a record, derived from its fields.
type State string

const (
	StateCollecting State = "collecting"
	StateComplete   State = "complete"
)

// Identity carries the display attributes supplied by the transport.
// Advisory only: completion never depends on it.
type Identity struct {
	DisplayName string `json:"displayName,omitempty"`
	Locale      string `json:"locale,omitempty"`
}

// FieldSet holds the delivery details captured so far. An empty string means
// the field is not yet known; a set field is only ever replaced, never cleared.
type FieldSet struct {
	Name    string `json:"name,omitempty"`
	City    string `json:"city,omitempty"`
	Address string `json:"address,omitempty"`
}

// Get returns the stored value for key, empty when unset.
func (f FieldSet) Get(key FieldKey) string {
	switch key {
	case FieldName:
		return f.Name
	case FieldCity:
		return f.City
	case FieldAddress:
		return f.Address
	}
	return ""
}

// Merge applies extracted values onto the set, last write wins. A missing,
// empty, or whitespace-only entry never touches a stored field. Returns the
// keys that were written, in canonical order.
func (f *FieldSet) Merge(update map[FieldKey]string) []FieldKey {
	if len(update) == 0 {
		return nil
	}

	var applied []FieldKey
	for _, key := range FieldOrder {
		value := strings.TrimSpace(update[key])
		if value == "" {
			continue
		}
		switch key {
		case FieldName:
			f.Name = value
		case FieldCity:
			f.City = value
		case FieldAddress:
			f.Address = value
		}
		applied = append(applied, key)
	}
	return applied
}

// Record is the per-session conversation state. The session store owns every
// record; other components re-fetch by id instead of holding references.
type Record struct {
	ID             string    `json:"id"`
	Identity       Identity  `json:"identity"`
	Fields         FieldSet  `json:"fields"`
	History        []Message `json:"history"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// NewRecord provisions an empty record for a session.
func NewRecord(id string, identity Identity) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:             id,
		Identity:       identity,
		History:        make([]Message, 0, 16),
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// Append stores one turn and bumps the activity timestamp.
func (r *Record) Append(origin Origin, text string) Message {
	msg := Message{
		ID:        uuid.NewString(),
		Text:      text,
		Origin:    origin,
		CreatedAt: time.Now().UTC(),
	}
	r.History = append(r.History, msg)
	r.LastActivityAt = msg.CreatedAt
	return msg
}

// IsComplete reports whether all three delivery details are known.
func (r *Record) IsComplete() bool {
	return r.Fields.Name != "" && r.Fields.City != "" && r.Fields.Address != ""
}

// State derives the lifecycle phase from the known fields.
func (r *Record) State() State {
	if r.IsComplete() {
		return StateComplete
	}
	return StateCollecting
}

// MissingFields lists the not-yet-known keys in canonical order.
func (r *Record) MissingFields() []FieldKey {
	missing := make([]FieldKey, 0, len(FieldOrder))
	for _, key := range FieldOrder {
		if r.Fields.Get(key) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// KnownFields maps the already-captured keys to their values.
func (r *Record) KnownFields() map[FieldKey]string {
	known := make(map[FieldKey]string, len(FieldOrder))
	for _, key := range FieldOrder {
		if value := r.Fields.Get(key); value != "" {
			known[key] = value
		}
	}
	return known
}
