package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/koderAP/trust-gambit-sub000/internal/domain/model"
)

// PGStore is a postgres-backed Store. Round completion uses a conditional
// UPDATE as the compare-and-swap and submission inserts rely on
// ON CONFLICT DO NOTHING, so the interface's atomicity guarantees hold
// across multiple service instances sharing one database.
type PGStore struct {
	db *sql.DB
}

// NewPGStore opens a connection pool for dsn, verifies connectivity, and
// bootstraps the schema.
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PGStore{db: db}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

// Close releases the connection pool.
func (s *PGStore) Close() error {
	return s.db.Close()
}

func (s *PGStore) createTables(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS rounds (
			id               TEXT PRIMARY KEY,
			game_id          TEXT NOT NULL,
			lobby_id         TEXT NOT NULL,
			round_number     INT NOT NULL,
			question         TEXT NOT NULL,
			correct_answer   TEXT NOT NULL,
			duration_seconds BIGINT NOT NULL,
			lambda           DOUBLE PRECISION NOT NULL,
			beta             DOUBLE PRECISION NOT NULL,
			gamma            DOUBLE PRECISION NOT NULL,
			pass_score       DOUBLE PRECISION NOT NULL,
			status           TEXT NOT NULL,
			start_time       TIMESTAMPTZ,
			end_time         TIMESTAMPTZ,
			end_reason       TEXT NOT NULL DEFAULT '',
			scored_at        TIMESTAMPTZ,
			created_at       TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS participants (
			round_id       TEXT NOT NULL REFERENCES rounds(id),
			participant_id TEXT NOT NULL,
			position       BIGSERIAL,
			PRIMARY KEY (round_id, participant_id)
		);
		CREATE TABLE IF NOT EXISTS submissions (
			round_id       TEXT NOT NULL REFERENCES rounds(id),
			participant_id TEXT NOT NULL,
			action         TEXT NOT NULL,
			answer         TEXT NOT NULL DEFAULT '',
			target_id      TEXT NOT NULL DEFAULT '',
			synthesized    BOOLEAN NOT NULL DEFAULT FALSE,
			submitted_at   TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (round_id, participant_id)
		);
		CREATE TABLE IF NOT EXISTS scores (
			round_id       TEXT NOT NULL REFERENCES rounds(id),
			participant_id TEXT NOT NULL,
			total_score    DOUBLE PRECISION NOT NULL,
			in_cycle       BOOLEAN NOT NULL,
			distance       INT,
			PRIMARY KEY (round_id, participant_id)
		);
		CREATE INDEX IF NOT EXISTS idx_rounds_status ON rounds(status);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// CreateRound inserts a new PENDING round.
func (s *PGStore) CreateRound(ctx context.Context, r model.Round) error {
	const q = `
		INSERT INTO rounds (id, game_id, lobby_id, round_number, question, correct_answer,
			duration_seconds, lambda, beta, gamma, pass_score, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, q,
		r.ID, r.GameID, r.LobbyID, r.RoundNumber, r.Question, r.CorrectAnswer,
		int64(r.Duration/time.Second), r.Params.Lambda, r.Params.Beta, r.Params.Gamma,
		r.Params.PassScore, string(model.StatusPending), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	if n == 0 {
		return ErrRoundExists
	}
	return nil
}

const roundColumns = `id, game_id, lobby_id, round_number, question, correct_answer,
	duration_seconds, lambda, beta, gamma, pass_score, status, start_time, end_time,
	end_reason, scored_at, created_at`

func scanRound(row interface{ Scan(...any) error }) (model.Round, error) {
	var (
		r                  model.Round
		durSeconds         int64
		status             string
		start, end, scored sql.NullTime
	)
	err := row.Scan(&r.ID, &r.GameID, &r.LobbyID, &r.RoundNumber, &r.Question,
		&r.CorrectAnswer, &durSeconds, &r.Params.Lambda, &r.Params.Beta,
		&r.Params.Gamma, &r.Params.PassScore, &status, &start, &end,
		&r.EndReason, &scored, &r.CreatedAt)
	if err != nil {
		return model.Round{}, err
	}
	r.Duration = time.Duration(durSeconds) * time.Second
	r.Status = model.RoundStatus(status)
	if start.Valid {
		r.StartTime = start.Time
	}
	if end.Valid {
		r.EndTime = end.Time
	}
	if scored.Valid {
		r.ScoredAt = scored.Time
	}
	return r, nil
}

// GetRound returns a round by id.
func (s *PGStore) GetRound(ctx context.Context, id string) (model.Round, error) {
	r, err := scanRound(s.db.QueryRowContext(ctx,
		`SELECT `+roundColumns+` FROM rounds WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Round{}, ErrRoundNotFound
	}
	if err != nil {
		return model.Round{}, fmt.Errorf("select round: %w", err)
	}
	return r, nil
}

// StartRound flips PENDING -> ACTIVE with a conditional update.
func (s *PGStore) StartRound(ctx context.Context, id string, now time.Time) (model.Round, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rounds SET status = $1, start_time = $2 WHERE id = $3 AND status = $4`,
		string(model.StatusActive), now, id, string(model.StatusPending))
	if err != nil {
		return model.Round{}, fmt.Errorf("start round: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Round{}, fmt.Errorf("start round: %w", err)
	}
	if n == 0 {
		if _, getErr := s.GetRound(ctx, id); getErr != nil {
			return model.Round{}, getErr
		}
		return model.Round{}, ErrRoundNotPending
	}
	return s.GetRound(ctx, id)
}

// TryComplete flips ACTIVE -> COMPLETED; the conditional UPDATE is the CAS.
func (s *PGStore) TryComplete(ctx context.Context, id string, now time.Time, reason string) (model.Round, bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rounds SET status = $1, end_time = $2, end_reason = $3 WHERE id = $4 AND status = $5`,
		string(model.StatusCompleted), now, reason, id, string(model.StatusActive))
	if err != nil {
		return model.Round{}, false, fmt.Errorf("complete round: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Round{}, false, fmt.Errorf("complete round: %w", err)
	}
	r, err := s.GetRound(ctx, id)
	if err != nil {
		return model.Round{}, false, err
	}
	return r, n == 1, nil
}

func (s *PGStore) listRounds(ctx context.Context, query string, args ...any) ([]model.Round, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var out []model.Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	return out, nil
}

// ListExpired returns ACTIVE rounds past expiry, oldest expiry first.
func (s *PGStore) ListExpired(ctx context.Context, now time.Time) ([]model.Round, error) {
	return s.listRounds(ctx, `
		SELECT `+roundColumns+` FROM rounds
		WHERE status = $1 AND start_time + make_interval(secs => duration_seconds) <= $2
		ORDER BY start_time + make_interval(secs => duration_seconds)`,
		string(model.StatusActive), now)
}

// ListUnscored returns COMPLETED rounds not yet stamped as scored.
func (s *PGStore) ListUnscored(ctx context.Context) ([]model.Round, error) {
	return s.listRounds(ctx, `
		SELECT `+roundColumns+` FROM rounds
		WHERE status = $1 AND scored_at IS NULL
		ORDER BY end_time`,
		string(model.StatusCompleted))
}

// AddParticipants extends the round's roster.
func (s *PGStore) AddParticipants(ctx context.Context, roundID string, ids []string) error {
	if _, err := s.GetRound(ctx, roundID); err != nil {
		return err
	}
	for _, id := range ids {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO participants (round_id, participant_id)
			VALUES ($1, $2) ON CONFLICT DO NOTHING`, roundID, id)
		if err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}
	return nil
}

// ListParticipants returns the roster in registration order.
func (s *PGStore) ListParticipants(ctx context.Context, roundID string) ([]string, error) {
	if _, err := s.GetRound(ctx, roundID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT participant_id FROM participants
		WHERE round_id = $1 ORDER BY position`, roundID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return out, nil
}

// PutSubmission records one participant's action inside a transaction that
// re-checks the ACTIVE guard and roster membership.
func (s *PGStore) PutSubmission(ctx context.Context, sub model.Submission) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM rounds WHERE id = $1 FOR UPDATE`, sub.RoundID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRoundNotFound
	}
	if err != nil {
		return fmt.Errorf("select round: %w", err)
	}
	if model.RoundStatus(status) != model.StatusActive {
		return ErrRoundNotActive
	}

	var onRoster bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM participants WHERE round_id = $1 AND participant_id = $2)`,
		sub.RoundID, sub.ParticipantID).Scan(&onRoster)
	if err != nil {
		return fmt.Errorf("check roster: %w", err)
	}
	if !onRoster {
		return ErrUnknownParticipant
	}

	if sub.Action == model.ActionDelegate {
		var targetOnRoster bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM participants WHERE round_id = $1 AND participant_id = $2)`,
			sub.RoundID, sub.TargetID).Scan(&targetOnRoster)
		if err != nil {
			return fmt.Errorf("check target: %w", err)
		}
		if !targetOnRoster {
			return ErrInvalidTarget
		}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO submissions (round_id, participant_id, action, answer, target_id, synthesized, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (round_id, participant_id) DO NOTHING`,
		sub.RoundID, sub.ParticipantID, string(sub.Action), sub.Answer, sub.TargetID,
		sub.Synthesized, sub.SubmittedAt)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	if n == 0 {
		return ErrDuplicateSubmission
	}
	return tx.Commit()
}

// SynthesizePasses inserts missing PASS rows; conflicts are skipped.
func (s *PGStore) SynthesizePasses(ctx context.Context, roundID string, ids []string, now time.Time) error {
	for _, id := range ids {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO submissions (round_id, participant_id, action, synthesized, submitted_at)
			VALUES ($1, $2, $3, TRUE, $4)
			ON CONFLICT (round_id, participant_id) DO NOTHING`,
			roundID, id, string(model.ActionPass), now)
		if err != nil {
			return fmt.Errorf("synthesize pass: %w", err)
		}
	}
	return nil
}

// ListSubmissions returns all submissions for a round.
func (s *PGStore) ListSubmissions(ctx context.Context, roundID string) ([]model.Submission, error) {
	if _, err := s.GetRound(ctx, roundID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT round_id, participant_id, action, answer, target_id, synthesized, submitted_at
		FROM submissions WHERE round_id = $1 ORDER BY participant_id`, roundID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []model.Submission
	for rows.Next() {
		var (
			sub    model.Submission
			action string
		)
		err := rows.Scan(&sub.RoundID, &sub.ParticipantID, &action, &sub.Answer,
			&sub.TargetID, &sub.Synthesized, &sub.SubmittedAt)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.Action = model.Action(action)
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return out, nil
}

// UpsertScores writes the round's scores, overwriting prior values, and
// stamps the round as scored in the same transaction.
func (s *PGStore) UpsertScores(ctx context.Context, roundID string, scores []model.RoundScore, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, sc := range scores {
		var dist sql.NullInt64
		if sc.Distance != nil {
			dist = sql.NullInt64{Int64: int64(*sc.Distance), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scores (round_id, participant_id, total_score, in_cycle, distance)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (round_id, participant_id) DO UPDATE
			SET total_score = EXCLUDED.total_score,
			    in_cycle = EXCLUDED.in_cycle,
			    distance = EXCLUDED.distance`,
			roundID, sc.ParticipantID, sc.TotalScore, sc.InCycle, dist)
		if err != nil {
			return fmt.Errorf("upsert score: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE rounds SET scored_at = $1 WHERE id = $2`, now, roundID); err != nil {
		return fmt.Errorf("stamp scored: %w", err)
	}
	return tx.Commit()
}

// CountByStatus returns the number of rounds per status.
func (s *PGStore) CountByStatus(ctx context.Context) (map[model.RoundStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM rounds GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count rounds: %w", err)
	}
	defer rows.Close()

	out := make(map[model.RoundStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[model.RoundStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count rounds: %w", err)
	}
	return out, nil
}

// ListScores returns the persisted scores for a round.
func (s *PGStore) ListScores(ctx context.Context, roundID string) ([]model.RoundScore, error) {
	if _, err := s.GetRound(ctx, roundID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT round_id, participant_id, total_score, in_cycle, distance
		FROM scores WHERE round_id = $1 ORDER BY participant_id`, roundID)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()

	var out []model.RoundScore
	for rows.Next() {
		var (
			sc   model.RoundScore
			dist sql.NullInt64
		)
		if err := rows.Scan(&sc.RoundID, &sc.ParticipantID, &sc.TotalScore, &sc.InCycle, &dist); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		if dist.Valid {
			d := int(dist.Int64)
			sc.Distance = &d
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return out, nil
}
