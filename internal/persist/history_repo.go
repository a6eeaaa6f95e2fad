package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/l1jgo/convoy/internal/core/event"
)

// RunRow is one row of event_runs.
type RunRow struct {
	RunID        string
	StartedAt    time.Time
	EndedAt      *time.Time
	EndReason    *string
	Participants int
	FinalPhase   *int
}

// HistoryRepo records the lifecycle of every event run.
type HistoryRepo struct {
	db *DB
}

func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) RecordStart(ctx context.Context, e event.EventStarted) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO event_runs (run_id, started_at, participants) VALUES ($1, $2, $3)
		 ON CONFLICT (run_id) DO NOTHING`,
		e.RunID, e.StartedAt, e.Participants,
	)
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

func (r *HistoryRepo) RecordPhase(ctx context.Context, e event.PhaseAdvanced) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO event_phases (run_id, phase, max_economy, started_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id, phase) DO NOTHING`,
		e.RunID, e.Phase, e.MaxEconomy, e.At,
	)
	if err != nil {
		return fmt.Errorf("record phase: %w", err)
	}
	return nil
}

func (r *HistoryRepo) RecordReward(ctx context.Context, e event.RewardGranted) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO event_rewards (run_id, player_id, amount, persisted, granted_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_id, player_id) DO UPDATE SET amount = EXCLUDED.amount, persisted = EXCLUDED.persisted`,
		e.RunID, int64(e.PlayerID), e.Amount, e.Persisted, e.At,
	)
	if err != nil {
		return fmt.Errorf("record reward: %w", err)
	}
	return nil
}

func (r *HistoryRepo) RecordEviction(ctx context.Context, e event.PlayerEvicted) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO event_evictions (run_id, player_id, evicted_at) VALUES ($1, $2, $3)`,
		e.RunID, int64(e.PlayerID), e.At,
	)
	if err != nil {
		return fmt.Errorf("record eviction: %w", err)
	}
	return nil
}

func (r *HistoryRepo) RecordEnd(ctx context.Context, e event.EventEnded) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE event_runs SET ended_at = $2, end_reason = $3, final_phase = $4 WHERE run_id = $1`,
		e.RunID, e.EndedAt, e.Reason, e.FinalPhase,
	)
	if err != nil {
		return fmt.Errorf("record run end: %w", err)
	}
	return nil
}

// RecentRuns returns the latest runs, newest first.
func (r *HistoryRepo) RecentRuns(ctx context.Context, limit int) ([]RunRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT run_id::text, started_at, ended_at, end_reason, participants, final_phase
		 FROM event_runs ORDER BY started_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var row RunRow
		if err := rows.Scan(&row.RunID, &row.StartedAt, &row.EndedAt, &row.EndReason, &row.Participants, &row.FinalPhase); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
