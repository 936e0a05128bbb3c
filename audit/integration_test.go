//go:build integration

package audit_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/liamcoop/credit/audit"
	"github.com/liamcoop/credit/scoring"
)

// setupTestDB starts PostgreSQL in a container and applies the decisions migration
func setupTestDB(t *testing.T) *sql.DB {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "credit_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	connStr := fmt.Sprintf("host=%s port=%s user=test password=test dbname=credit_test sslmode=disable", host, port.Port())

	var db *sql.DB
	for range 30 {
		db, err = audit.Open(ctx, connStr)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationSQL, err := os.ReadFile(filepath.Join("..", "migrations", "000001_decisions.up.sql"))
	if err != nil {
		t.Fatalf("Failed to read migration file: %v", err)
	}
	if _, err := db.Exec(string(migrationSQL)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	store := audit.NewPostgresStore(setupTestDB(t))
	ctx := context.Background()

	score := audit.FromDecision(&scoring.ScoreDecision{
		UserID:        "user-1",
		CreditScore:   760,
		RiskLevel:     scoring.RiskLow,
		Approved:      true,
		MaxLoanAmount: decimal.NewFromInt(20000),
		Mode:          scoring.ModeTrained,
	})
	if err := store.Add(ctx, score); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	explain := audit.FromExplanation(&scoring.Explanation{
		UserID:          "user-1",
		BaseScore:       760,
		PositiveFactors: []string{"Wallet Balance (+40.0)"},
		Narrative:       "Based on the model analysis, the Credit Score of 760 is primarily driven by wallet balance.",
		Mode:            scoring.ModeTrained,
	})
	explain.CreatedAt = score.CreatedAt.Add(time.Second)
	if err := store.Add(ctx, explain); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	got, err := store.Get(ctx, score.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.RiskLevel != scoring.RiskLow || !got.Approved || !got.MaxLoanAmount.Equal(decimal.NewFromInt(20000)) {
		t.Errorf("Get() = %+v", got)
	}
	if len(got.PositiveFactors) != 0 || len(got.NegativeFactors) != 0 {
		t.Errorf("score record should have no factors, got %+v", got)
	}

	list, err := store.ListByUser(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("ListByUser() failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListByUser() returned %d records, want 2", len(list))
	}
	if list[0].ID != explain.ID || list[0].Kind != audit.KindExplain {
		t.Errorf("newest record should be the explanation, got %+v", list[0])
	}
	if len(list[0].PositiveFactors) != 1 || list[0].PositiveFactors[0] != "Wallet Balance (+40.0)" {
		t.Errorf("factors not round-tripped: %v", list[0].PositiveFactors)
	}
}

func TestPostgresStore_Errors(t *testing.T) {
	store := audit.NewPostgresStore(setupTestDB(t))
	ctx := context.Background()

	if _, err := store.Get(ctx, uuid.New()); !errors.Is(err, audit.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}

	r := &audit.Record{Kind: audit.KindScore, UserID: "u", Mode: scoring.ModeFallback, CreditScore: 300, RiskLevel: scoring.RiskHigh}
	if err := store.Add(ctx, r); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	dup := *r
	if err := store.Add(ctx, &dup); !errors.Is(err, audit.ErrDuplicate) {
		t.Errorf("duplicate Add() error = %v, want ErrDuplicate", err)
	}
}
