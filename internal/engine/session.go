package engine

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quizlive/internal/domain"
	"quizlive/internal/pubsub"
)

// sessionRuntime is the single writer for one live session. Every mutation of
// session-scoped state (record, ledger, registry, timers) happens under its
// mutex; transitions are persisted and published before the lock is released.
// Clients only ever read published events or the snapshot.
type sessionRuntime struct {
	id      string
	topic   string
	store   SessionStore
	broker  pubsub.Broker
	window  time.Duration
	clock   func() time.Time
	log     zerolog.Logger
	onEnded func(sessionID string)

	sched       *Scheduler
	unsubscribe func()

	mu           sync.Mutex
	sess         domain.Session
	game         domain.Game
	questions    []domain.Question
	refs         map[string]domain.ReferenceAnswer
	byQuestionID map[string]int
	registry     *Registry
	ledger       *Ledger
	accepting    bool // answers for the live question are still scoreable
}

func newSessionRuntime(sess domain.Session, content domain.GameContent, store SessionStore, broker pubsub.Broker, window time.Duration, clock func() time.Time, log zerolog.Logger, onEnded func(string)) *sessionRuntime {
	questions := make([]domain.Question, len(content.Questions))
	copy(questions, content.Questions)
	sort.Slice(questions, func(i, j int) bool { return questions[i].Index < questions[j].Index })

	refs := make(map[string]domain.ReferenceAnswer, len(content.Answers))
	for _, a := range content.Answers {
		refs[a.QuestionID] = a
	}
	byID := make(map[string]int, len(questions))
	for i, q := range questions {
		byID[q.ID] = i
	}

	r := &sessionRuntime{
		id:           sess.ID,
		topic:        pubsub.SessionTopic(sess.ID),
		store:        store,
		broker:       broker,
		window:       window,
		clock:        clock,
		log:          log.With().Str("session", sess.ID).Logger(),
		onEnded:      onEnded,
		sess:         sess,
		game:         content.Game,
		questions:    questions,
		refs:         refs,
		byQuestionID: byID,
		registry:     NewRegistry(),
		ledger:       NewLedger(),
	}
	r.sched = NewScheduler(window, r.questionExpired, r.windowFinished)
	return r
}

func (r *sessionRuntime) timeLimit() time.Duration {
	return time.Duration(r.game.Settings.TimeLimit) * time.Second
}

// start performs the pending -> started transition, broadcasts the session
// record and question 0, and arms the countdown.
func (r *sessionRuntime) start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := Start(&r.sess, len(r.questions), r.clock()); err != nil {
		return err
	}
	r.persistLocked(ctx)
	r.publishSessionLocked(ctx)
	r.publishQuestionLocked(ctx)
	r.accepting = true
	r.sched.ArmCountdown(0, r.timeLimit())
	r.log.Info().Int("questions", len(r.questions)).Msg("session started")
	return nil
}

// advance is the host's manual "next question" control. It pre-empts the
// running countdown and proceeds straight to the leaderboard window; the
// actual index increment happens when the window elapses, same as a natural
// expiry, so a manual advance can never double-increment.
func (r *sessionRuntime) advance(ctx context.Context) error {
	r.mu.Lock()
	status := r.sess.Status
	index := r.sess.CurrentQuestionIndex
	r.mu.Unlock()

	switch status {
	case domain.StatusEnded:
		return domain.ErrSessionEnded
	case domain.StatusPending:
		return domain.ErrSessionNotStarted
	}
	if r.sched.Preempt(index) {
		r.log.Info().Int("index", index).Msg("countdown pre-empted by host")
	}
	return nil
}

// end finishes the session. Idempotent when already ended.
func (r *sessionRuntime) end(ctx context.Context) error {
	r.mu.Lock()
	already := r.sess.Status == domain.StatusEnded
	if err := End(&r.sess); err != nil {
		r.mu.Unlock()
		return err
	}
	if !already {
		r.persistLocked(ctx)
		r.publishSessionLocked(ctx)
	}
	r.mu.Unlock()

	if !already {
		r.sched.Stop()
		r.log.Info().Msg("session ended")
		if r.onEnded != nil {
			r.onEnded(r.id)
		}
	}
	return nil
}

// join registers a participant. Allowed while pending or started (late join);
// a finished session rejects joins without arming anything.
func (r *sessionRuntime) join(ctx context.Context, nickname string) (domain.Participant, domain.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sess.Status == domain.StatusEnded {
		return domain.Participant{}, domain.Snapshot{}, domain.ErrSessionEnded
	}
	p := domain.Participant{
		ID:       uuid.NewString(),
		Nickname: nickname,
		JoinedAt: r.clock(),
	}
	r.registry.Add(p)
	if err := r.store.InsertParticipant(ctx, r.id, p); err != nil {
		return domain.Participant{}, domain.Snapshot{}, err
	}
	r.publishLocked(ctx, pubsub.EventParticipantJoined, pubsub.ParticipantJoined{Participant: p})
	r.log.Info().Str("participant", p.ID).Str("nickname", nickname).Msg("participant joined")
	return p, r.snapshotLocked(), nil
}

// snapshot returns the authoritative state for a client that just subscribed.
func (r *sessionRuntime) snapshot() domain.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *sessionRuntime) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		Session:  r.sess,
		Rankings: r.registry.Rankings(),
	}
	if r.sess.Status == domain.StatusStarted && r.sess.CurrentQuestionIndex < len(r.questions) {
		q := r.questions[r.sess.CurrentQuestionIndex]
		snap.Question = &q
	}
	return snap
}

// handleEvent consumes the session topic. The runtime only acts on
// participant-authored submit_answer events; its own state events come back
// around and are ignored.
func (r *sessionRuntime) handleEvent(evt pubsub.Event) {
	if evt.Type != pubsub.EventSubmitAnswer {
		return
	}
	var sub domain.Submission
	if err := json.Unmarshal(evt.Payload, &sub); err != nil {
		r.log.Warn().Err(err).Msg("malformed submit_answer payload")
		return
	}
	r.ingest(context.Background(), sub)
}

// ingest runs the answer pipeline: validate liveness, de-duplicate through
// the ledger, score, accumulate. Every rejection is a silent drop — the
// engine cannot tell a transport redelivery from a deliberate resubmission
// and treats both identically.
func (r *sessionRuntime) ingest(ctx context.Context, sub domain.Submission) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sess.Status != domain.StatusStarted || !r.accepting {
		r.log.Debug().Str("participant", sub.ParticipantID).Str("question", sub.QuestionID).Msg("submission dropped: not accepting")
		return
	}
	idx, ok := r.byQuestionID[sub.QuestionID]
	if !ok || idx != r.sess.CurrentQuestionIndex {
		r.log.Debug().Str("participant", sub.ParticipantID).Str("question", sub.QuestionID).Msg("submission dropped: not the live question")
		return
	}
	if _, ok := r.registry.Get(sub.ParticipantID); !ok {
		r.log.Debug().Str("participant", sub.ParticipantID).Msg("submission dropped: unknown participant")
		return
	}
	if _, dup := r.ledger.Get(sub.ParticipantID, sub.QuestionID); dup {
		r.log.Debug().Str("participant", sub.ParticipantID).Str("question", sub.QuestionID).Msg("submission dropped: duplicate")
		return
	}

	question := r.questions[idx]
	delta := Score(question, r.refs[sub.QuestionID], sub.Payload, sub.TimeRemaining, r.game.Settings.TimeLimit)
	entry := domain.LedgerEntry{
		ParticipantID: sub.ParticipantID,
		QuestionID:    sub.QuestionID,
		Payload:       sub.Payload,
		ScoreDelta:    delta,
		AcceptedAt:    r.clock(),
	}
	r.ledger.Record(entry)
	if _, err := r.registry.AddScore(sub.ParticipantID, delta, entry.AcceptedAt); err != nil {
		r.log.Error().Err(err).Str("participant", sub.ParticipantID).Msg("score accumulation failed")
		return
	}

	if err := r.store.InsertAnswerEntry(ctx, r.id, entry); err != nil {
		r.log.Warn().Err(err).Msg("answer entry not persisted")
	}
	if delta > 0 {
		if err := r.store.IncrementParticipantScore(ctx, r.id, sub.ParticipantID, delta); err != nil {
			r.log.Warn().Err(err).Msg("score increment not persisted")
		}
	}
	r.log.Debug().Str("participant", sub.ParticipantID).Str("question", sub.QuestionID).Int("delta", delta).Msg("answer accepted")
}

// questionExpired fires when the countdown for index runs out (or the host
// pre-empts it). The scheduler has already entered the leaderboard window;
// this publishes the rankings and closes scoring for the question.
func (r *sessionRuntime) questionExpired(index int) {
	ctx := context.Background()
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sess.Status != domain.StatusStarted || r.sess.CurrentQuestionIndex != index {
		return
	}
	r.accepting = false
	r.publishLocked(ctx, pubsub.EventLeaderboard, pubsub.Leaderboard{Show: true, Rankings: r.registry.Rankings()})
	r.log.Debug().Int("index", index).Msg("countdown expired, leaderboard window open")
}

// windowFinished fires when the leaderboard window after index elapses:
// advance to the next question, or end the session when none remain.
func (r *sessionRuntime) windowFinished(index int) {
	ctx := context.Background()
	r.mu.Lock()

	if r.sess.Status != domain.StatusStarted || r.sess.CurrentQuestionIndex != index {
		r.mu.Unlock()
		return
	}

	if index < len(r.questions)-1 {
		if err := Advance(&r.sess, len(r.questions)); err != nil {
			r.mu.Unlock()
			r.log.Error().Err(err).Int("index", index).Msg("scheduled advance failed")
			return
		}
		r.persistLocked(ctx)
		r.publishSessionLocked(ctx)
		r.publishLocked(ctx, pubsub.EventLeaderboard, pubsub.Leaderboard{Show: false})
		r.publishQuestionLocked(ctx)
		r.accepting = true
		r.sched.ArmCountdown(r.sess.CurrentQuestionIndex, r.timeLimit())
		r.mu.Unlock()
		return
	}

	_ = End(&r.sess)
	r.persistLocked(ctx)
	r.publishSessionLocked(ctx)
	r.mu.Unlock()

	r.sched.Stop()
	r.log.Info().Msg("session ended")
	if r.onEnded != nil {
		r.onEnded(r.id)
	}
}

// resume re-arms the scheduler for a session that was already started when
// this process attached, deriving the remaining countdown from durable
// timestamps alone.
func (r *sessionRuntime) resume() {
	r.mu.Lock()
	index := r.sess.CurrentQuestionIndex
	remaining := RemainingCountdown(r.sess, r.timeLimit(), r.window, r.clock())
	r.accepting = remaining > 0
	r.mu.Unlock()

	r.sched.ArmCountdown(index, remaining)
	r.log.Info().Int("index", index).Dur("remaining", remaining).Msg("schedule recomputed from durable state")
}

func (r *sessionRuntime) close() {
	r.sched.Stop()
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
}

func (r *sessionRuntime) publishSessionLocked(ctx context.Context) {
	r.publishLocked(ctx, pubsub.EventSessionUpdated, r.sess)
}

func (r *sessionRuntime) publishQuestionLocked(ctx context.Context) {
	idx := r.sess.CurrentQuestionIndex
	if idx >= len(r.questions) {
		return
	}
	r.publishLocked(ctx, pubsub.EventQuestionChange, pubsub.QuestionChange{
		CurrentQuestionIndex: idx,
		Question:             r.questions[idx],
	})
}

func (r *sessionRuntime) publishLocked(ctx context.Context, eventType string, payload any) {
	evt, err := pubsub.NewEvent(eventType, payload)
	if err != nil {
		r.log.Error().Err(err).Str("event", eventType).Msg("event encode failed")
		return
	}
	if err := r.broker.Publish(ctx, r.topic, evt); err != nil {
		// State changed but not yet observed; subscribers self-heal through
		// the synchronous snapshot fetch, so no retry here.
		r.log.Warn().Err(err).Str("event", eventType).Msg("publish failed")
	}
}

func (r *sessionRuntime) persistLocked(ctx context.Context) {
	if err := r.store.UpdateSession(ctx, r.sess); err != nil {
		r.log.Warn().Err(err).Msg("session record not persisted")
	}
}
