package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const jobColumns = "id, source_id, source_url, target_language, status, stage, result_json, error_message, created_at, updated_at"

// timeLayout is fixed width so text ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ListFilter narrows List results.
type ListFilter struct {
	Statuses []Status
	Limit    int
}

// Create inserts a pending job and returns its id. An empty ID is assigned here.
func (s *Store) Create(ctx context.Context, job *Job) (string, error) {
	if job == nil {
		return "", errors.New("create job: nil job")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = StatusPending
	}
	if job.Status != StatusPending {
		return "", fmt.Errorf("create job: %w: new jobs must be pending, got %s", ErrInvalidTransition, job.Status)
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now()
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = job.CreatedAt
	}
	if err := job.Validate(); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	args, err := rowArgs(job)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	if _, err := s.exec(ctx, `INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...); err != nil {
		return "", fmt.Errorf("insert job: %w", err)
	}
	return job.ID, nil
}

// GetByID fetches a job by identifier. It returns (nil, nil) when not found.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`), id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindLatestCompleted returns the most recently finished done job for the
// pair, or (nil, nil) when none exists.
func (s *Store) FindLatestCompleted(ctx context.Context, sourceID, language string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+jobColumns+` FROM jobs
         WHERE source_id = ? AND target_language = ? AND status = ?
         ORDER BY updated_at DESC, created_at DESC LIMIT 1`),
		sourceID, language, string(StatusDone),
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest completed: %w", err)
	}
	return job, nil
}

// Save upserts the full record in one statement. A row that is already
// terminal only accepts writes that keep its status; anything else returns
// ErrTerminal and leaves the row untouched.
func (s *Store) Save(ctx context.Context, job *Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now()
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = job.CreatedAt
	}
	args, err := rowArgs(job)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	res, err := s.exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (id) DO UPDATE SET
             source_id = excluded.source_id,
             source_url = excluded.source_url,
             target_language = excluded.target_language,
             status = excluded.status,
             stage = excluded.stage,
             result_json = excluded.result_json,
             error_message = excluded.error_message,
             updated_at = excluded.updated_at
         WHERE jobs.status NOT IN ('done', 'error') OR jobs.status = excluded.status`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save job: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("save job %s: %w", job.ID, ErrTerminal)
	}
	return nil
}

// List returns jobs newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(filter.Statuses)+1)
	if len(filter.Statuses) > 0 {
		query += ` WHERE status IN (` + placeholders(len(filter.Statuses)) + `)`
		for _, st := range filter.Statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// Stats counts jobs per status. Every status is present in the result.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int, 4)
	for _, st := range AllStatuses() {
		stats[st] = 0
	}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("job stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// FailInterrupted moves every processing job to error with message.
func (s *Store) FailInterrupted(ctx context.Context, message string) (int64, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		message = InterruptedMessage
	}
	res, err := s.exec(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, result_json = NULL, updated_at = ? WHERE status = ?`,
		string(StatusError), message, formatTime(now()), string(StatusProcessing),
	)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(scanner rowScanner) (*Job, error) {
	var (
		job        Job
		status     string
		sourceURL  sql.NullString
		stage      sql.NullString
		resultJSON sql.NullString
		errMsg     sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&job.ID,
		&job.SourceID,
		&sourceURL,
		&job.TargetLanguage,
		&status,
		&stage,
		&resultJSON,
		&errMsg,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	job.Status = Status(status)
	job.SourceURL = sourceURL.String
	job.Stage = stage.String
	job.Error = errMsg.String
	if resultJSON.Valid && resultJSON.String != "" {
		var result Result
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, fmt.Errorf("decode result for %s: %w", job.ID, err)
		}
		job.Result = &result
	}
	job.CreatedAt = parseTime(createdRaw)
	job.UpdatedAt = parseTime(updatedRaw)
	return &job, nil
}

func rowArgs(job *Job) ([]any, error) {
	var result any
	if job.Result != nil {
		encoded, err := json.Marshal(job.Result)
		if err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		result = string(encoded)
	}
	return []any{
		job.ID,
		job.SourceID,
		nullableString(job.SourceURL),
		job.TargetLanguage,
		string(job.Status),
		nullableString(job.Stage),
		result,
		nullableString(job.Error),
		formatTime(job.CreatedAt),
		formatTime(job.UpdatedAt),
	}, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func placeholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", count), ", ")
}
