package engine

import "quizlive/internal/domain"

type ledgerKey struct {
	participantID string
	questionID    string
}

// Ledger records at most one accepted answer per (participant, question)
// pair. It is the de-duplication boundary for answer ingestion: the first
// accepted submission wins, every later one is ignored. Not safe for
// concurrent use on its own; the session runtime serializes all access.
type Ledger struct {
	entries map[ledgerKey]domain.LedgerEntry
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[ledgerKey]domain.LedgerEntry)}
}

// Record stores the entry unless one already exists for the pair. Reports
// whether the entry was accepted.
func (l *Ledger) Record(e domain.LedgerEntry) bool {
	key := ledgerKey{participantID: e.ParticipantID, questionID: e.QuestionID}
	if _, exists := l.entries[key]; exists {
		return false
	}
	l.entries[key] = e
	return true
}

// Get returns the accepted entry for the pair, if any.
func (l *Ledger) Get(participantID, questionID string) (domain.LedgerEntry, bool) {
	e, ok := l.entries[ledgerKey{participantID: participantID, questionID: questionID}]
	return e, ok
}

// Len reports the number of accepted entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}
