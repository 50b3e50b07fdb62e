package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Vovarama1992/collection-bot/internal/intent"
	"github.com/Vovarama1992/collection-bot/internal/persona"
	"github.com/Vovarama1992/collection-bot/internal/profile"
	"github.com/Vovarama1992/collection-bot/internal/reply"
	"github.com/Vovarama1992/collection-bot/internal/strategy"
)

// Config wires the engine. Without Profiles every session gets the demo
// profile; without a Journal events are discarded.
type Config struct {
	Profiles  *profile.Loader
	Templates *reply.Store
	Journal   Journal
	Notifier  Notifier

	// StrictRender surfaces template failures as errors instead of
	// replying with the raw template.
	StrictRender bool

	Now    func() time.Time
	Logger *zap.Logger
}

// Engine holds the immutable pieces shared by every session.
type Engine struct {
	profiles *profile.Loader
	renderer *reply.Renderer
	detector *intent.Detector
	journal  Journal
	notifier Notifier
	strict   bool
	now      func() time.Time
	log      *zap.Logger
}

func NewEngine(cfg Config) *Engine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Journal == nil {
		cfg.Journal = nopJournal{}
	}
	if cfg.Profiles == nil {
		cfg.Profiles = profile.NewLoader(nil, cfg.Logger)
	}
	return &Engine{
		profiles: cfg.Profiles,
		renderer: reply.NewRenderer(cfg.Templates, cfg.Now),
		detector: intent.NewDetector(),
		journal:  cfg.Journal,
		notifier: cfg.Notifier,
		strict:   cfg.StrictRender,
		now:      cfg.Now,
		log:      cfg.Logger.Named("chat"),
	}
}

type State int

const (
	StateStarting State = iota
	StateActive
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	default:
		return "ended"
	}
}

// Session is one conversation with one customer. It is not safe for
// concurrent use; Manager serialises access for the HTTP front-end.
type Session struct {
	engine     *Engine
	id         string
	customerID string
	profile    profile.Profile
	persona    persona.Persona
	state      State
	events     EventLog
	log        *zap.Logger
}

// Start loads the customer's profile, classifies the persona once for the
// whole session, opens the event log and records the meta event.
func (e *Engine) Start(ctx context.Context, customerID string) *Session {
	prof := e.profiles.Load(ctx, customerID)
	s := &Session{
		engine:     e,
		id:         e.now().Format("20060102_150405"),
		customerID: prof.CustomerID,
		profile:    prof,
		persona:    persona.Classify(prof),
		state:      StateStarting,
	}
	s.log = e.log.With(
		zap.String("session_id", s.id),
		zap.String("customer_id", s.customerID),
		zap.String("persona", string(s.persona)),
	)

	events, err := e.journal.Open(ctx, s.customerID, s.id)
	if err != nil {
		s.log.Warn("failed to open event log", zap.Error(err))
	}
	if events == nil {
		events = nopLog{}
	}
	s.events = events

	s.append(ctx, Event{Type: EventMeta, Persona: s.persona, Profile: s.profile})
	s.state = StateActive
	s.log.Info("session started")
	return s
}

func (s *Session) ID() string               { return s.id }
func (s *Session) CustomerID() string       { return s.customerID }
func (s *Session) Persona() persona.Persona { return s.persona }
func (s *Session) Profile() profile.Profile { return s.profile.Clone() }
func (s *Session) State() State             { return s.state }

// Greet renders the opening line for the session's persona.
func (s *Session) Greet() (string, error) {
	if s.state != StateActive {
		return "", ErrSessionEnded
	}
	return s.render(string(intent.Greeting))
}

// Respond handles one customer message.
func (s *Session) Respond(ctx context.Context, text string) (Reply, error) {
	if s.state != StateActive {
		return Reply{}, ErrSessionEnded
	}

	in := s.engine.detector.Detect(text)
	answer, err := s.render(string(in))
	if err != nil {
		return Reply{}, err
	}
	action := strategy.Recommend(s.persona, s.profile, in)

	out := Reply{
		Reply:          answer,
		Intent:         in,
		NextBestAction: action.String(),
	}
	s.append(ctx, Event{
		Type:   EventTurn,
		User:   text,
		Intent: in,
		Reply:  out.Reply,
		NBA:    out.NextBestAction,
	})
	s.log.Debug("turn handled", zap.String("intent", string(in)), zap.String("action", string(action)))

	if strategy.NeedsOperator(action, in) {
		s.notify(ctx, text, out)
	}
	return out, nil
}

// End renders the goodbye, records the end event and closes the log. The
// session is ended even when strict rendering fails.
func (s *Session) End(ctx context.Context) (string, error) {
	if s.state != StateActive {
		return "", ErrSessionEnded
	}
	goodbye, err := s.render(string(intent.Goodbye))

	s.append(ctx, Event{Type: EventEnd})
	if cerr := s.events.Close(); cerr != nil {
		s.log.Warn("failed to close event log", zap.Error(cerr))
	}
	s.state = StateEnded
	s.log.Info("session ended")
	return goodbye, err
}

// Events returns what the session's log has recorded so far.
func (s *Session) Events(ctx context.Context) ([]Event, error) {
	r, ok := s.events.(Replayer)
	if !ok {
		return nil, ErrHistoryUnavailable
	}
	return r.Replay(ctx)
}

func (s *Session) render(category string) (string, error) {
	res := s.engine.renderer.Render(category, s.persona, s.profile)
	if res.Err != nil {
		if s.engine.strict {
			return "", res.Err
		}
		s.log.Warn("template render failed, replying with raw template",
			zap.String("category", category),
			zap.Error(res.Err),
		)
	}
	return res.FailOpen(), nil
}

// append never fails the turn; a broken log is only reported.
func (s *Session) append(ctx context.Context, ev Event) {
	if err := s.events.Append(ctx, ev); err != nil {
		s.log.Warn("failed to append event", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}

func (s *Session) notify(ctx context.Context, user string, out Reply) {
	if s.engine.notifier == nil {
		return
	}
	note := Note{
		SessionID:      s.id,
		CustomerID:     s.customerID,
		Persona:        s.persona,
		Intent:         out.Intent,
		User:           user,
		Reply:          out.Reply,
		NextBestAction: out.NextBestAction,
	}
	if err := s.engine.notifier.Notify(ctx, note); err != nil {
		s.log.Warn("failed to notify operator", zap.Error(err))
	}
}

type nopJournal struct{}

func (nopJournal) Open(context.Context, string, string) (EventLog, error) { return nopLog{}, nil }

type nopLog struct{}

func (nopLog) Append(context.Context, Event) error { return nil }
func (nopLog) Close() error                        { return nil }
