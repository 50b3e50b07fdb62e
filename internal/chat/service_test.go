package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/Vovarama1992/collection-bot/internal/intent"
	"github.com/Vovarama1992/collection-bot/internal/persona"
	"github.com/Vovarama1992/collection-bot/internal/profile"
	"github.com/Vovarama1992/collection-bot/internal/reply"
	"github.com/Vovarama1992/collection-bot/internal/strategy"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

var fixedNow = time.Date(2024, time.March, 30, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

var eventOpts = cmp.Options{
	cmp.AllowUnexported(profile.Field{}),
	cmpopts.EquateEmpty(),
}

// memJournal keeps every opened log in memory.
type memJournal struct {
	mu   sync.Mutex
	logs []*memLog
	err  error
}

func (j *memJournal) Open(_ context.Context, customerID, sessionID string) (EventLog, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return nil, j.err
	}
	l := &memLog{customerID: customerID, sessionID: sessionID}
	j.logs = append(j.logs, l)
	return l, nil
}

type memLog struct {
	mu         sync.Mutex
	customerID string
	sessionID  string
	events     []Event
	closed     bool
}

func (l *memLog) Append(_ context.Context, ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errors.New("log closed")
	}
	l.events = append(l.events, ev)
	return nil
}

func (l *memLog) Replay(context.Context) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...), nil
}

func (l *memLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Note
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, note Note) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note)
	return n.err
}

type mapSource map[string]profile.Profile

func (m mapSource) Lookup(_ context.Context, id string) (profile.Profile, error) {
	p, ok := m[id]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	return p, nil
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.Now == nil {
		cfg.Now = clock
	}
	if cfg.Logger == nil {
		cfg.Logger = zaptest.NewLogger(t)
	}
	return NewEngine(cfg)
}

func TestSessionLifecycle(t *testing.T) {
	journal := &memJournal{}
	e := newTestEngine(t, Config{Journal: journal})
	ctx := context.Background()

	s := e.Start(ctx, "CUST0001")
	assert.Equal(t, "20240330_100000", s.ID())
	assert.Equal(t, "CUST0001", s.CustomerID())
	assert.Equal(t, persona.Confused, s.Persona())
	assert.Equal(t, StateActive, s.State())

	greeting, err := s.Greet()
	require.NoError(t, err)
	assert.Equal(t, "Hi Customer! I can help clarify your loan details. What would you like to understand first?", greeting)

	out, err := s.Respond(ctx, "How much do I owe?")
	require.NoError(t, err)
	assert.Equal(t, Reply{
		Reply:          "You currently owe ₹18,500. I can explain how this was calculated if you'd like.",
		Intent:         intent.AskAmount,
		NextBestAction: strategy.SimplifiedGuide.String(),
	}, out)

	goodbye, err := s.End(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Glad I could help. If anything is unclear later, just message me again.", goodbye)
	assert.Equal(t, StateEnded, s.State())

	require.Len(t, journal.logs, 1)
	log := journal.logs[0]
	assert.Equal(t, "CUST0001", log.customerID)
	assert.Equal(t, "20240330_100000", log.sessionID)
	assert.True(t, log.closed)

	want := []Event{
		{Type: EventMeta, Persona: persona.Confused, Profile: profile.Demo("CUST0001")},
		{Type: EventTurn, User: "How much do I owe?", Intent: intent.AskAmount, Reply: out.Reply, NBA: out.NextBestAction},
		{Type: EventEnd},
	}
	if diff := cmp.Diff(want, log.events, eventOpts); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionUsesSourceProfile(t *testing.T) {
	src := mapSource{
		"C42": {
			CustomerID:     "C42",
			Name:           "Ravi",
			SentimentScore: profile.Num(-0.3),
			Complaints:     profile.Num(2),
			Outstanding:    profile.Num(7250),
		},
	}
	e := newTestEngine(t, Config{Profiles: profile.NewLoader(src, zaptest.NewLogger(t))})
	ctx := context.Background()

	s := e.Start(ctx, "C42")
	assert.Equal(t, persona.Aggressive, s.Persona())

	out, err := s.Respond(ctx, "what is my balance")
	require.NoError(t, err)
	assert.Equal(t, "Your outstanding balance is ₹7,250. I can share clear options to help you complete this.", out.Reply)
	assert.Equal(t, strategy.Escalate.String(), out.NextBestAction)
}

func TestPersonaIsFixedForTheSession(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()
	s := e.Start(ctx, "")
	assert.Equal(t, "9999", s.CustomerID())

	first := s.Persona()
	for _, text := range []string{"hello", "this is wrong", "I lost job", "bye"} {
		_, err := s.Respond(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, first, s.Persona())
	}
}

func TestEndedSessionRejectsTurns(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()
	s := e.Start(ctx, "CUST0001")

	_, err := s.End(ctx)
	require.NoError(t, err)

	_, err = s.Respond(ctx, "hello")
	assert.ErrorIs(t, err, ErrSessionEnded)
	_, err = s.End(ctx)
	assert.ErrorIs(t, err, ErrSessionEnded)
	_, err = s.Greet()
	assert.ErrorIs(t, err, ErrSessionEnded)
}

func TestOperatorNotifiedWhenHumanNeeded(t *testing.T) {
	n := &recordingNotifier{err: errors.New("webhook down")}
	e := newTestEngine(t, Config{Notifier: n})
	ctx := context.Background()
	s := e.Start(ctx, "CUST0001")

	_, err := s.Respond(ctx, "how much is it")
	require.NoError(t, err)
	assert.Empty(t, n.notes)

	out, err := s.Respond(ctx, "let me talk to a human")
	require.NoError(t, err, "notifier failures never abort a turn")
	assert.Equal(t, intent.ConnectAgent, out.Intent)

	_, err = s.Respond(ctx, "that charge is wrong")
	require.NoError(t, err)

	require.Len(t, n.notes, 2)
	assert.Equal(t, Note{
		SessionID:      s.ID(),
		CustomerID:     "CUST0001",
		Persona:        persona.Confused,
		Intent:         intent.ConnectAgent,
		User:           "let me talk to a human",
		Reply:          out.Reply,
		NextBestAction: out.NextBestAction,
	}, n.notes[0])
	assert.Equal(t, intent.Dispute, n.notes[1].Intent)
	assert.Equal(t, strategy.DisputeTicket.String(), n.notes[1].NextBestAction)
}

func TestJournalFailuresDoNotAbortTurns(t *testing.T) {
	e := newTestEngine(t, Config{Journal: &memJournal{err: errors.New("disk full")}})
	ctx := context.Background()

	s := e.Start(ctx, "CUST0001")
	assert.Equal(t, StateActive, s.State())

	_, err := s.Respond(ctx, "hello")
	require.NoError(t, err)

	_, err = s.Events(ctx)
	assert.ErrorIs(t, err, ErrHistoryUnavailable)

	_, err = s.End(ctx)
	require.NoError(t, err)
}

func brokenTemplates(t *testing.T) *reply.Store {
	t.Helper()
	doc := ""
	for _, in := range intent.All() {
		doc += string(in) + ":\n"
		for _, p := range persona.All() {
			doc += "  " + string(p) + ": \"Balance {missing_value}\"\n"
		}
	}
	s, err := reply.Parse([]byte(doc))
	require.NoError(t, err)
	return s
}

func TestRenderFailOpen(t *testing.T) {
	e := newTestEngine(t, Config{Templates: brokenTemplates(t)})
	ctx := context.Background()
	s := e.Start(ctx, "CUST0001")

	out, err := s.Respond(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Balance {missing_value}", out.Reply)
}

func TestRenderFailClosed(t *testing.T) {
	journal := &memJournal{}
	e := newTestEngine(t, Config{Templates: brokenTemplates(t), StrictRender: true, Journal: journal})
	ctx := context.Background()
	s := e.Start(ctx, "CUST0001")

	_, err := s.Greet()
	assert.ErrorIs(t, err, reply.ErrRender)

	_, err = s.Respond(ctx, "hello")
	assert.ErrorIs(t, err, reply.ErrRender)

	_, err = s.End(ctx)
	assert.ErrorIs(t, err, reply.ErrRender)
	assert.Equal(t, StateEnded, s.State())

	types := make([]EventType, 0, len(journal.logs[0].events))
	for _, ev := range journal.logs[0].events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []EventType{EventMeta, EventEnd}, types)
}

func TestSessionsAreIndependent(t *testing.T) {
	journal := &memJournal{}
	e := newTestEngine(t, Config{Journal: journal})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := e.Start(ctx, "CUST0001")
			for j := 0; j < 5; j++ {
				_, err := s.Respond(ctx, "when is it due")
				assert.NoError(t, err)
			}
			_, err := s.End(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, journal.logs, 8)
	for _, l := range journal.logs {
		assert.Len(t, l.events, 7)
	}
}

func TestEventJSONShapes(t *testing.T) {
	meta, err := Event{Type: EventMeta, Persona: persona.Evasive, Profile: profile.Profile{CustomerID: "C1"}}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"meta","persona":"evasive","profile":{"CustomerID":"C1"}}`, string(meta))

	turn, err := Event{Type: EventTurn, User: "hi", Intent: intent.Greeting, Reply: "Hello", NBA: "x"}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"turn","user":"hi","intent":"greeting","reply":"Hello","nba":"x"}`, string(turn))

	end, err := Event{Type: EventEnd, User: "ignored"}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"end"}`, string(end))
}
