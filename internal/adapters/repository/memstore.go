package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/koderAP/trust-gambit-sub000/internal/domain/model"
)

// MemStore is a mutex-guarded in-memory Store. It is the default backend
// and the one used throughout the tests; all invariants the interface
// promises (ACTIVE write guard, idempotent inserts, CAS completion) are
// enforced under a single lock.
type MemStore struct {
	mu sync.RWMutex

	rounds    map[string]model.Round
	roster    map[string][]string            // roundID -> ids in registration order
	rosterSet map[string]map[string]struct{} // roundID -> id set
	subs      map[string]map[string]model.Submission
	scores    map[string]map[string]model.RoundScore
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		rounds:    make(map[string]model.Round),
		roster:    make(map[string][]string),
		rosterSet: make(map[string]map[string]struct{}),
		subs:      make(map[string]map[string]model.Submission),
		scores:    make(map[string]map[string]model.RoundScore),
	}
}

// CreateRound inserts a new PENDING round.
func (m *MemStore) CreateRound(ctx context.Context, r model.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rounds[r.ID]; ok {
		return ErrRoundExists
	}
	r.Status = model.StatusPending
	m.rounds[r.ID] = r
	m.rosterSet[r.ID] = make(map[string]struct{})
	m.subs[r.ID] = make(map[string]model.Submission)
	return nil
}

// GetRound returns a round by id.
func (m *MemStore) GetRound(ctx context.Context, id string) (model.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rounds[id]
	if !ok {
		return model.Round{}, ErrRoundNotFound
	}
	return r, nil
}

// StartRound flips PENDING -> ACTIVE and records the start time.
func (m *MemStore) StartRound(ctx context.Context, id string, now time.Time) (model.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rounds[id]
	if !ok {
		return model.Round{}, ErrRoundNotFound
	}
	if r.Status != model.StatusPending {
		return model.Round{}, ErrRoundNotPending
	}
	r.Status = model.StatusActive
	r.StartTime = now
	m.rounds[id] = r
	return r, nil
}

// TryComplete atomically flips ACTIVE -> COMPLETED.
func (m *MemStore) TryComplete(ctx context.Context, id string, now time.Time, reason string) (model.Round, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rounds[id]
	if !ok {
		return model.Round{}, false, ErrRoundNotFound
	}
	if r.Status != model.StatusActive {
		return r, false, nil
	}
	r.Status = model.StatusCompleted
	r.EndTime = now
	r.EndReason = reason
	m.rounds[id] = r
	return r, true, nil
}

// ListExpired returns ACTIVE rounds past their expiry, oldest expiry first.
func (m *MemStore) ListExpired(ctx context.Context, now time.Time) ([]model.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Round
	for _, r := range m.rounds {
		if r.Expired(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt().Before(out[j].ExpiresAt()) })
	return out, nil
}

// ListUnscored returns COMPLETED rounds not yet stamped as scored. The stamp
// is the predicate, not the score row count; an empty roster legitimately
// scores to zero rows.
func (m *MemStore) ListUnscored(ctx context.Context) ([]model.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Round
	for _, r := range m.rounds {
		if r.Status == model.StatusCompleted && !r.Scored() {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	return out, nil
}

// AddParticipants extends the round's roster, skipping known ids.
func (m *MemStore) AddParticipants(ctx context.Context, roundID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.rosterSet[roundID]
	if !ok {
		return ErrRoundNotFound
	}
	for _, id := range ids {
		if _, seen := set[id]; seen {
			continue
		}
		set[id] = struct{}{}
		m.roster[roundID] = append(m.roster[roundID], id)
	}
	return nil
}

// ListParticipants returns the roster in registration order.
func (m *MemStore) ListParticipants(ctx context.Context, roundID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.rosterSet[roundID]; !ok {
		return nil, ErrRoundNotFound
	}
	out := make([]string, len(m.roster[roundID]))
	copy(out, m.roster[roundID])
	return out, nil
}

// PutSubmission records one participant's action under the ACTIVE guard.
func (m *MemStore) PutSubmission(ctx context.Context, s model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rounds[s.RoundID]
	if !ok {
		return ErrRoundNotFound
	}
	if r.Status != model.StatusActive {
		return ErrRoundNotActive
	}
	set := m.rosterSet[s.RoundID]
	if _, ok := set[s.ParticipantID]; !ok {
		return ErrUnknownParticipant
	}
	if s.Action == model.ActionDelegate {
		if _, ok := set[s.TargetID]; !ok {
			return ErrInvalidTarget
		}
	}
	if _, exists := m.subs[s.RoundID][s.ParticipantID]; exists {
		return ErrDuplicateSubmission
	}
	m.subs[s.RoundID][s.ParticipantID] = s
	return nil
}

// SynthesizePasses inserts PASS rows for participants with no submission.
func (m *MemStore) SynthesizePasses(ctx context.Context, roundID string, ids []string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs, ok := m.subs[roundID]
	if !ok {
		return ErrRoundNotFound
	}
	for _, id := range ids {
		if _, exists := subs[id]; exists {
			continue
		}
		subs[id] = model.Submission{
			RoundID:       roundID,
			ParticipantID: id,
			Action:        model.ActionPass,
			Synthesized:   true,
			SubmittedAt:   now,
		}
	}
	return nil
}

// ListSubmissions returns all submissions for a round, participant-ordered
// for determinism.
func (m *MemStore) ListSubmissions(ctx context.Context, roundID string) ([]model.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subs, ok := m.subs[roundID]
	if !ok {
		return nil, ErrRoundNotFound
	}
	out := make([]model.Submission, 0, len(subs))
	for _, s := range subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out, nil
}

// UpsertScores replaces the round's score set in one step and stamps the
// round as scored.
func (m *MemStore) UpsertScores(ctx context.Context, roundID string, scores []model.RoundScore, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rounds[roundID]
	if !ok {
		return ErrRoundNotFound
	}
	byParticipant := make(map[string]model.RoundScore, len(scores))
	for _, sc := range scores {
		byParticipant[sc.ParticipantID] = sc
	}
	m.scores[roundID] = byParticipant
	r.ScoredAt = now
	m.rounds[roundID] = r
	return nil
}

// CountByStatus returns the number of rounds per status.
func (m *MemStore) CountByStatus(ctx context.Context) (map[model.RoundStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[model.RoundStatus]int)
	for _, r := range m.rounds {
		out[r.Status]++
	}
	return out, nil
}

// ListScores returns the persisted scores, participant-ordered.
func (m *MemStore) ListScores(ctx context.Context, roundID string) ([]model.RoundScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.rounds[roundID]; !ok {
		return nil, ErrRoundNotFound
	}
	out := make([]model.RoundScore, 0, len(m.scores[roundID]))
	for _, sc := range m.scores[roundID] {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out, nil
}
