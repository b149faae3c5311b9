package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"StableEngine/internal/persistence"
	"StableEngine/internal/testutil"
)

func row(opType string) persistence.OperationRow {
	asset := "WETH"
	hf := "2000000000000000000"
	return persistence.OperationRow{
		ID:           uuid.New().String(),
		OpType:       opType,
		UserID:       uuid.New().String(),
		Asset:        &asset,
		Amount:       "10000000000000000000",
		HealthFactor: &hf,
		At:           time.Now().UTC(),
	}
}

func TestWriteBatch(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := persistence.NewMigrator(db, "../../migrations", zerolog.Nop()).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	writer := persistence.NewOperationWriter(db)
	rows := []persistence.OperationRow{row("deposit"), row("mint"), row("liquidation")}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := writer.WriteBatch(ctx, tx, rows); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stable.operations").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("row count: got %d, want 3", count)
	}
}

func TestWriteBatchIdempotentOnID(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := persistence.NewMigrator(db, "../../migrations", zerolog.Nop()).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	writer := persistence.NewOperationWriter(db)
	rows := []persistence.OperationRow{row("deposit")}

	for i := 0; i < 2; i++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("begin: %v", err)
		}
		if err := writer.WriteBatch(ctx, tx, rows); err != nil {
			t.Fatalf("WriteBatch attempt %d: %v", i, err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stable.operations").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("replayed batch duplicated rows: got %d, want 1", count)
	}
}

func TestWorkerFlushesOnTimeout(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := persistence.NewMigrator(db, "../../migrations", zerolog.Nop()).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	input := make(chan persistence.OperationRow, 8)
	worker := persistence.NewWorker(db, input, 100, 50*time.Millisecond, nil, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	input <- row("deposit")
	input <- row("redeem")

	// Well under the batch size; only the timeout can flush these.
	deadline := time.After(5 * time.Second)
	for {
		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stable.operations").Scan(&count); err != nil {
			t.Fatalf("count: %v", err)
		}
		if count == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("rows not flushed, have %d", count)
		case <-time.After(20 * time.Millisecond):
		}
	}

	close(input)
	if err := <-done; err != nil {
		t.Fatalf("worker: %v", err)
	}
}
