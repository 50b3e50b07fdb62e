package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/Vovarama1992/collection-bot/internal/intent"
	"github.com/Vovarama1992/collection-bot/internal/persona"
	"github.com/Vovarama1992/collection-bot/internal/profile"
)

var (
	ErrSessionEnded       = errors.New("chat: session has ended")
	ErrSessionNotFound    = errors.New("chat: session not found")
	ErrHistoryUnavailable = errors.New("chat: event history not available")
)

type EventType string

const (
	EventMeta EventType = "meta"
	EventTurn EventType = "turn"
	EventEnd  EventType = "end"
)

// Event is one line of a session's append-only log.
type Event struct {
	Type    EventType
	Persona persona.Persona
	Profile profile.Profile
	User    string
	Intent  intent.Intent
	Reply   string
	NBA     string
}

type metaJSON struct {
	Type    EventType       `json:"type"`
	Persona persona.Persona `json:"persona"`
	Profile profile.Profile `json:"profile"`
}

type turnJSON struct {
	Type   EventType     `json:"type"`
	User   string        `json:"user"`
	Intent intent.Intent `json:"intent"`
	Reply  string        `json:"reply"`
	NBA    string        `json:"nba"`
}

type endJSON struct {
	Type EventType `json:"type"`
}

// MarshalJSON writes only the fields that belong to the event type.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventMeta:
		return marshalPlain(metaJSON{e.Type, e.Persona, e.Profile})
	case EventTurn:
		return marshalPlain(turnJSON{e.Type, e.User, e.Intent, e.Reply, e.NBA})
	default:
		return marshalPlain(endJSON{e.Type})
	}
}

// marshalPlain is json.Marshal without HTML escaping, so replies stay readable.
func marshalPlain(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type    EventType       `json:"type"`
		Persona persona.Persona `json:"persona"`
		Profile profile.Profile `json:"profile"`
		User    string          `json:"user"`
		Intent  intent.Intent   `json:"intent"`
		Reply   string          `json:"reply"`
		NBA     string          `json:"nba"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*e = Event(raw)
	return nil
}

// EventLog is the append-only log owned by one session.
type EventLog interface {
	Append(ctx context.Context, ev Event) error
	Close() error
}

// Journal opens a fresh log per session.
type Journal interface {
	Open(ctx context.Context, customerID, sessionID string) (EventLog, error)
}

// Replayer is implemented by logs that can be read back.
type Replayer interface {
	Replay(ctx context.Context) ([]Event, error)
}

// Reply is the result of one customer turn.
type Reply struct {
	Reply          string        `json:"reply"`
	Intent         intent.Intent `json:"intent"`
	NextBestAction string        `json:"next_best_action"`
}

// Note is what an operator receives when a turn needs a human.
type Note struct {
	SessionID      string          `json:"session_id"`
	CustomerID     string          `json:"customer_id"`
	Persona        persona.Persona `json:"persona"`
	Intent         intent.Intent   `json:"intent"`
	User           string          `json:"user"`
	Reply          string          `json:"reply"`
	NextBestAction string          `json:"next_best_action"`
}

// Notifier pushes operator notes out of the bot.
type Notifier interface {
	Notify(ctx context.Context, note Note) error
}

// Started describes a freshly opened session.
type Started struct {
	ID       string          `json:"session_id"`
	Persona  persona.Persona `json:"persona"`
	Tone     string          `json:"tone"`
	Style    string          `json:"style"`
	Greeting string          `json:"greeting"`
}

// Sessions is the turn API consumed by front-ends.
type Sessions interface {
	Start(ctx context.Context, customerID string) (Started, error)
	Respond(ctx context.Context, id, text string) (Reply, error)
	End(ctx context.Context, id string) (string, error)
	Events(ctx context.Context, id string) ([]Event, error)
}
