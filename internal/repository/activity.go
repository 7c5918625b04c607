// Package repository provides persistence implementations for the relay's
// activity retention.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/atinyakov/kidcoin/internal/models"
)

// PostgresActivityRepository stores activity-log lines in PostgreSQL.
type PostgresActivityRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresActivityRepository creates a repository over the given
// database connection. db must be a valid *sql.DB connected to a
// PostgreSQL instance.
func NewPostgresActivityRepository(db *sql.DB) *PostgresActivityRepository {
	return &PostgresActivityRepository{DB: db}
}

// Insert appends one activity line.
func (r *PostgresActivityRepository) Insert(ctx context.Context, text string) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO activity (text) VALUES ($1)`,
		text,
	)
	return err
}

// Recent returns up to limit lines, newest first.
func (r *PostgresActivityRepository) Recent(ctx context.Context, limit int) ([]models.ActivityRecord, error) {
	rows, err := r.DB.QueryContext(
		ctx,
		`SELECT id, text, created_at FROM activity ORDER BY id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ActivityRecord
	for rows.Next() {
		var rec models.ActivityRecord
		if err := rows.Scan(&rec.ID, &rec.Text, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteOlderThan removes lines created before cutoff and returns how
// many were removed.
func (r *PostgresActivityRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(
		ctx,
		`DELETE FROM activity WHERE created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
