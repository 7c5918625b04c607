package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func setupActivityMock(t *testing.T) (*PostgresActivityRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresActivityRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestInsert(t *testing.T) {
	repo, mock, cleanup := setupActivityMock(t)
	defer cleanup()

	text := "alice sent 120 KC to bob"
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO activity (text) VALUES ($1)`)).
		WithArgs(text).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Insert(context.Background(), text); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestInsert_Error(t *testing.T) {
	repo, mock, cleanup := setupActivityMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO activity (text) VALUES ($1)`)).
		WithArgs("x").
		WillReturnError(errors.New("insert failed"))

	if err := repo.Insert(context.Background(), "x"); err == nil {
		t.Errorf("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRecent(t *testing.T) {
	repo, mock, cleanup := setupActivityMock(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "text", "created_at"}).
		AddRow(int64(2), "second", now).
		AddRow(int64(1), "first", now.Add(-time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, text, created_at FROM activity ORDER BY id DESC LIMIT $1`)).
		WithArgs(50).
		WillReturnRows(rows)

	records, err := repo.Recent(context.Background(), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Text != "second" || records[1].Text != "first" {
		t.Errorf("expected newest first, got %+v", records)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRecent_Error(t *testing.T) {
	repo, mock, cleanup := setupActivityMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, text, created_at FROM activity ORDER BY id DESC LIMIT $1`)).
		WithArgs(10).
		WillReturnError(errors.New("query failed"))

	if _, err := repo.Recent(context.Background(), 10); err == nil {
		t.Errorf("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	repo, mock, cleanup := setupActivityMock(t)
	defer cleanup()

	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM activity WHERE created_at < $1`)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Errorf("expected 7 rows deleted, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
