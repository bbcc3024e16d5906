package repository

import (
	"testing"
)

func TestDayExprByDialect(t *testing.T) {
	if got, want := dayExprByDialect("sqlite", "created_at"), "CAST(date(created_at) AS TEXT)"; got != want {
		t.Fatalf("sqlite day expr mismatch, want %s got %s", want, got)
	}
	if got, want := dayExprByDialect("postgres", "created_at"), "to_char(created_at, 'YYYY-MM-DD')"; got != want {
		t.Fatalf("postgres day expr mismatch, want %s got %s", want, got)
	}
	// 未知方言按 sqlite 处理
	if got, want := dayExprByDialect("", "created_at"), "CAST(date(created_at) AS TEXT)"; got != want {
		t.Fatalf("fallback day expr mismatch, want %s got %s", want, got)
	}
}

func TestMonthExprByDialect(t *testing.T) {
	if got, want := monthExprByDialect("sqlite", "created_at"), "strftime('%Y-%m', created_at)"; got != want {
		t.Fatalf("sqlite month expr mismatch, want %s got %s", want, got)
	}
	if got, want := monthExprByDialect("postgresql", "created_at"), "to_char(created_at, 'YYYY-MM')"; got != want {
		t.Fatalf("postgres month expr mismatch, want %s got %s", want, got)
	}
}

func TestAbsExpr(t *testing.T) {
	if got, want := absExpr("value_change"), "ABS(value_change)"; got != want {
		t.Fatalf("abs expr mismatch, want %s got %s", want, got)
	}
}

func TestLikeOperatorByDialect(t *testing.T) {
	if got := likeOperatorByDialect("postgres"); got != "ILIKE" {
		t.Fatalf("postgres like operator want ILIKE got %s", got)
	}
	if got := likeOperatorByDialect("sqlite"); got != "LIKE" {
		t.Fatalf("sqlite like operator want LIKE got %s", got)
	}
}
