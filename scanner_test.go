package themis_test

import (
	"context"
	"testing"

	"github.com/paulcoming/themis"
)

func TestScanner_PagesThroughSeededRows(t *testing.T) {
	coord, rpc := newCoordinator()
	ctx := context.Background()

	// Seed two committed rows by running single-column transactions against them.
	for _, row := range []string{"r1", "r2"} {
		tx, _ := coord.Begin(ctx)
		if err := tx.Put("T1", themis.Put{Row: row, Columns: []themis.ColumnMutation{{Family: "f", Qualifier: "q", Value: []byte(row)}}}); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := tx.Commit(ctx); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}

	tx, _ := coord.Begin(ctx)
	sc, err := tx.GetScanner(ctx, "T1", themis.Scan{
		StartRow: "",
		Columns:  []themis.ColumnCoordinate{{Table: "T1", Family: "f", Qualifier: "q"}},
	})
	if err != nil {
		t.Fatalf("getScanner: %v", err)
	}
	defer sc.Close()

	var values []string
	for {
		cell, ok, err := sc.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		values = append(values, string(cell.Value))
	}
	if len(values) != 2 {
		t.Fatalf("expected 2 cells, got %v", values)
	}
	_ = rpc
}

func TestScanner_RequiresAtLeastOneColumn(t *testing.T) {
	coord, _ := newCoordinator()
	ctx := context.Background()
	tx, _ := coord.Begin(ctx)
	_, err := tx.GetScanner(ctx, "T1", themis.Scan{})
	var e themis.Error
	if err == nil {
		t.Fatalf("expected error for scan with no columns")
	}
	if as, ok := err.(themis.Error); ok {
		e = as
	}
	if e.Code != themis.InvalidRequest {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
}
