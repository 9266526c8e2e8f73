package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/pitch/internal/models"
)

// SendLogRepository archives send runs and their log lines.
type SendLogRepository struct {
	db *sql.DB
}

// NewSendLogRepository creates a new SendLogRepository with the given database connection
func NewSendLogRepository(db *sql.DB) *SendLogRepository {
	return &SendLogRepository{db: db}
}

// CreateRun inserts a run in the sending state. A missing ID or start time is filled in.
func (r *SendLogRepository) CreateRun(ctx context.Context, run *models.SendRun) error {
	if run.ID == "" {
		return fmt.Errorf("send run requires an id")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = models.RunSending
	}

	query := `
		INSERT INTO send_runs (id, campaign_id, track_id, subject, recipient_count, status, summary, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.CampaignID,
		run.TrackID,
		run.Subject,
		run.RecipientCount,
		run.Status,
		run.Summary,
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert send run: %w", err)
	}

	return nil
}

// AppendLine stores line at the next position of the run, ignoring line.Position.
func (r *SendLogRepository) AppendLine(ctx context.Context, runID string, line models.SendLine) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT 1 FROM send_runs WHERE id = ?", runID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(runID)
		}
		return fmt.Errorf("failed to look up send run: %w", err)
	}

	pos, err := NextPosition(tx, runID)
	if err != nil {
		return err
	}

	createdAt := line.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO send_log_lines (run_id, position, event, text, created_at) VALUES (?, ?, ?, ?, ?)",
		runID, pos, line.Event, line.Text, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert log line: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit log line: %w", err)
	}
	return nil
}

// FinishRun records the final status and summary of a run.
func (r *SendLogRepository) FinishRun(ctx context.Context, runID, status, summary string) error {
	query := `
		UPDATE send_runs
		SET status = ?, summary = ?, finished_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, status, summary, time.Now(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish send run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return notFound(runID)
	}

	return nil
}

// GetRun retrieves a run by ID.
func (r *SendLogRepository) GetRun(ctx context.Context, id string) (*models.SendRun, error) {
	query := `
		SELECT id, campaign_id, track_id, subject, recipient_count, status, summary, started_at, finished_at
		FROM send_runs
		WHERE id = ?
	`

	run, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	return run, err
}

// ListRuns returns the most recent runs first. A limit of 0 or less returns every run.
func (r *SendLogRepository) ListRuns(ctx context.Context, limit int) ([]*models.SendRun, error) {
	query := `
		SELECT id, campaign_id, track_id, subject, recipient_count, status, summary, started_at, finished_at
		FROM send_runs
		ORDER BY started_at DESC, id ASC
	`

	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query send runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SendRun
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// Lines returns the log of a run in delivery order.
func (r *SendLogRepository) Lines(ctx context.Context, runID string) ([]models.SendLine, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT position, event, text, created_at FROM send_log_lines WHERE run_id = ? ORDER BY position ASC",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query log lines: %w", err)
	}
	defer rows.Close()

	var lines []models.SendLine
	for rows.Next() {
		var line models.SendLine
		if err := rows.Scan(&line.Position, &line.Event, &line.Text, &line.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return lines, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SendLogRepository) scan(s scanner) (*models.SendRun, error) {
	var (
		run        models.SendRun
		finishedAt sql.NullTime
	)

	err := s.Scan(
		&run.ID,
		&run.CampaignID,
		&run.TrackID,
		&run.Subject,
		&run.RecipientCount,
		&run.Status,
		&run.Summary,
		&run.StartedAt,
		&finishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan send run: %w", err)
	}

	run.FinishedAt = nullTime(finishedAt)
	return &run, nil
}
