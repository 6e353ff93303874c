package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestWrapExposesConnection(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db)
	if client.DB() != db {
		t.Fatal("expected wrapped connection to be returned")
	}
}

func TestWithStatementTimeout(t *testing.T) {
	got := withStatementTimeout("postgres://u:p@localhost:5432/canteen?sslmode=disable", 5*time.Second)
	if !strings.Contains(got, "statement_timeout=5000") {
		t.Fatalf("expected statement_timeout param, got %q", got)
	}
	if !strings.Contains(got, "sslmode=disable") {
		t.Fatalf("expected existing params to survive, got %q", got)
	}

	keyValue := "host=localhost user=u dbname=canteen"
	if got := withStatementTimeout(keyValue, 5*time.Second); got != keyValue {
		t.Fatalf("expected key/value dsn untouched, got %q", got)
	}

	explicit := "postgres://localhost/canteen?statement_timeout=100"
	if got := withStatementTimeout(explicit, 5*time.Second); got != explicit {
		t.Fatalf("expected explicit timeout preserved, got %q", got)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: true},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, want: true},
		{name: "unique", err: &pgconn.PgError{Code: "23505"}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryable(tc.err); got != tc.want {
				t.Fatalf("IsRetryable() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "ux_cart_lines_key"`), "ux_cart_lines_key") {
		t.Fatal("expected named constraint match")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: cart_lines.account_id"), "") {
		t.Fatal("expected sqlite unique violation match")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error is not a violation")
	}
}
