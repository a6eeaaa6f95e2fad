package persist

import (
	"context"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/l1jgo/convoy/internal/config"
	"github.com/l1jgo/convoy/internal/convoy"
	"github.com/l1jgo/convoy/internal/core/event"
	"go.uber.org/zap"
)

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) < 2 {
		t.Fatalf("expected embedded migrations, got %v", files)
	}
	for _, f := range files {
		body, err := fs.ReadFile(migrations, f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if !strings.Contains(string(body), "-- +goose Up") || !strings.Contains(string(body), "-- +goose Down") {
			t.Fatalf("%s lacks goose annotations", f)
		}
	}
}

// openTestDB connects to CONVOY_TEST_DSN and migrates it, skipping when unset.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("CONVOY_TEST_DSN")
	if dsn == "" {
		t.Skip("CONVOY_TEST_DSN not set")
	}
	ctx := context.Background()
	db, err := NewDB(ctx, config.DatabaseConfig{DSN: dsn, MaxOpenConns: 2, MaxIdleConns: 1}, zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)
	if _, err := RunMigrations(ctx, db.Pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestWalletDepositAccumulates(t *testing.T) {
	db := openTestDB(t)
	repo := NewWalletRepo(db)
	ctx := context.Background()
	id := uint64(time.Now().UnixNano() & 0x7fffffff)

	for _, amount := range []int{50, 25} {
		if err := repo.Deposit(ctx, convoy.PlayerID(id), amount); err != nil {
			t.Fatalf("deposit %d: %v", amount, err)
		}
	}
	if err := repo.Deposit(ctx, convoy.PlayerID(id), 0); err == nil {
		t.Fatalf("zero deposit should be rejected")
	}
	bal, err := repo.Balance(ctx, convoy.PlayerID(id))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 75 {
		t.Fatalf("expected balance 75, got %d", bal)
	}
}

func TestHistoryRecordsRun(t *testing.T) {
	db := openTestDB(t)
	repo := NewHistoryRepo(db)
	ctx := context.Background()
	run := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)

	steps := []error{
		repo.RecordStart(ctx, event.EventStarted{RunID: run, StartedAt: now, Participants: 4}),
		repo.RecordPhase(ctx, event.PhaseAdvanced{RunID: run, Phase: 1, MaxEconomy: 300, At: now}),
		repo.RecordReward(ctx, event.RewardGranted{RunID: run, PlayerID: 9, Amount: 120, Persisted: true, At: now}),
		repo.RecordEviction(ctx, event.PlayerEvicted{RunID: run, PlayerID: 3, At: now}),
		repo.RecordEnd(ctx, event.EventEnded{RunID: run, EndedAt: now, Reason: "completed", FinalPhase: 2}),
	}
	for i, err := range steps {
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	runs, err := repo.RecentRuns(ctx, 50)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	for _, r := range runs {
		if r.RunID != run {
			continue
		}
		if r.EndReason == nil || *r.EndReason != "completed" || r.FinalPhase == nil || *r.FinalPhase != 2 {
			t.Fatalf("run end not recorded: %+v", r)
		}
		return
	}
	t.Fatalf("run %s not found", run)
}
