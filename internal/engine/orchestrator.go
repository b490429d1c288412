// Package engine implements the live session orchestration core: the
// authoritative session state machine, the question cycle scheduler, answer
// ingestion with scoring, and the participant registry, composed behind the
// host and participant control surfaces.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"quizlive/internal/domain"
	"quizlive/internal/pubsub"
)

// SessionStore persists session-scoped records. All calls are assumed atomic
// at the single-row level; the engine never needs cross-row transactions.
// Failed writes are retried by the store layer, not here.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (domain.Session, error)
	UpdateSession(ctx context.Context, sess domain.Session) error
	InsertParticipant(ctx context.Context, sessionID string, p domain.Participant) error
	IncrementParticipantScore(ctx context.Context, sessionID, participantID string, delta int) error
	InsertAnswerEntry(ctx context.Context, sessionID string, e domain.LedgerEntry) error
}

// ContentRepository loads immutable game content (from cache/backing store).
type ContentRepository interface {
	GetContent(ctx context.Context, gameID string) (domain.GameContent, error)
}

// DefaultLeaderboardWindow is the pause between questions during which
// rankings are shown and the finished question no longer scores.
const DefaultLeaderboardWindow = 5 * time.Second

// Config tunes an Orchestrator. Zero values pick sensible defaults.
type Config struct {
	LeaderboardWindow time.Duration
	Logger            zerolog.Logger
	Clock             func() time.Time // test override
}

// Orchestrator owns one sessionRuntime per live session and exposes the host
// and participant control surfaces. Runtimes attach lazily: the session
// record is fetched first, then the game content it points at.
type Orchestrator struct {
	store   SessionStore
	content ContentRepository
	broker  pubsub.Broker
	window  time.Duration
	clock   func() time.Time
	log     zerolog.Logger

	mu       sync.Mutex
	runtimes map[string]*sessionRuntime
}

func New(store SessionStore, content ContentRepository, broker pubsub.Broker, cfg Config) *Orchestrator {
	if cfg.LeaderboardWindow <= 0 {
		cfg.LeaderboardWindow = DefaultLeaderboardWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Orchestrator{
		store:    store,
		content:  content,
		broker:   broker,
		window:   cfg.LeaderboardWindow,
		clock:    cfg.Clock,
		log:      cfg.Logger.With().Str("component", "engine").Logger(),
		runtimes: make(map[string]*sessionRuntime),
	}
}

// StartSession begins the question cycle. Host surface.
func (o *Orchestrator) StartSession(ctx context.Context, sessionID string) error {
	r, err := o.attach(ctx, sessionID)
	if err != nil {
		return err
	}
	return r.start(ctx)
}

// AdvanceQuestion is the host's manual "next question" control: it cancels
// the running countdown and proceeds to the leaderboard window.
func (o *Orchestrator) AdvanceQuestion(ctx context.Context, sessionID string) error {
	r, err := o.attach(ctx, sessionID)
	if err != nil {
		return err
	}
	return r.advance(ctx)
}

// EndSession finishes the session. Idempotent. Host surface.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) error {
	r, err := o.attach(ctx, sessionID)
	if err != nil {
		return err
	}
	return r.end(ctx)
}

// JoinSession registers a participant while the session is pending or
// started. Mid-game joiners get the current snapshot and can answer from the
// live question onward; questions they missed stay unscored.
func (o *Orchestrator) JoinSession(ctx context.Context, sessionID, nickname string) (domain.Participant, domain.Snapshot, error) {
	r, err := o.attach(ctx, sessionID)
	if err != nil {
		return domain.Participant{}, domain.Snapshot{}, err
	}
	return r.join(ctx, nickname)
}

// SubmitAnswer publishes the participant's answer onto the session's fan-out
// topic. The host runtime is its sole consumer; the submitter never learns
// whether a duplicate or late answer was dropped.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, sessionID string, sub domain.Submission) error {
	evt, err := pubsub.NewEvent(pubsub.EventSubmitAnswer, sub)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	return o.broker.Publish(ctx, pubsub.SessionTopic(sessionID), evt)
}

// Snapshot returns the current authoritative state. Clients call this
// synchronously around subscribing, since the topic replays nothing.
func (o *Orchestrator) Snapshot(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	r, err := o.attach(ctx, sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return r.snapshot(), nil
}

// Subscribe attaches a handler to the session's fan-out topic.
func (o *Orchestrator) Subscribe(ctx context.Context, sessionID string, handler pubsub.Handler) (func(), error) {
	return o.broker.Subscribe(ctx, pubsub.SessionTopic(sessionID), handler)
}

// Close releases every live runtime: timers stopped, subscriptions dropped.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	runtimes := make([]*sessionRuntime, 0, len(o.runtimes))
	for id, r := range o.runtimes {
		runtimes = append(runtimes, r)
		delete(o.runtimes, id)
	}
	o.mu.Unlock()
	for _, r := range runtimes {
		r.close()
	}
}

// attach returns the runtime for a session, creating it on first touch. The
// content fetch cannot start before the session record supplies game_id.
// Ended sessions get a throwaway runtime with no subscription or timers, so
// stale joins fail gracefully.
func (o *Orchestrator) attach(ctx context.Context, sessionID string) (*sessionRuntime, error) {
	o.mu.Lock()
	if r, ok := o.runtimes[sessionID]; ok {
		o.mu.Unlock()
		return r, nil
	}
	o.mu.Unlock()

	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	content, err := o.content.GetContent(ctx, sess.GameID)
	if err != nil {
		return nil, err
	}

	r := newSessionRuntime(sess, content, o.store, o.broker, o.window, o.clock, o.log, o.detach)
	if sess.Status == domain.StatusEnded {
		return r, nil
	}

	cancel, err := o.broker.Subscribe(ctx, r.topic, r.handleEvent)
	if err != nil {
		return nil, fmt.Errorf("subscribe session topic: %w", err)
	}
	r.unsubscribe = cancel

	o.mu.Lock()
	if existing, ok := o.runtimes[sessionID]; ok {
		o.mu.Unlock()
		cancel()
		return existing, nil
	}
	o.runtimes[sessionID] = r
	o.mu.Unlock()

	if sess.Status == domain.StatusStarted {
		r.resume()
	}
	return r, nil
}

func (o *Orchestrator) detach(sessionID string) {
	o.mu.Lock()
	r, ok := o.runtimes[sessionID]
	if ok {
		delete(o.runtimes, sessionID)
	}
	o.mu.Unlock()
	if ok {
		r.close()
	}
}
