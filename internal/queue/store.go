package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"callscribe/internal/config"
)

// Store manages call persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the call database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "calls.db")
	return OpenPath(dbPath)
}

// OpenPath opens the call database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

const callColumns = `id, call_uuid, source_path, title, status, normalized_path,
    transcript_json, quality_json, detected_language, overall_confidence,
    fallback_used, error_message, needs_review, review_reason,
    created_at, updated_at, progress_stage, progress_percent, progress_message`

// NewCall enqueues a call recording for transcription and assigns it a
// durable identifier.
func (s *Store) NewCall(ctx context.Context, sourcePath string) (*Call, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	callUUID := uuid.NewString()
	title := inferTitleFromPath(sourcePath)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO calls (
            call_uuid, source_path, title, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		callUUID,
		sourcePath,
		title,
		StatusPending,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert call: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a call by its row identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Call, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+callColumns+` FROM calls WHERE id = ?`, id)
	call, err := scanCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return call, err
}

// GetByUUID fetches a call by its durable identifier.
func (s *Store) GetByUUID(ctx context.Context, callUUID string) (*Call, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+callColumns+` FROM calls WHERE call_uuid = ?`, callUUID)
	call, err := scanCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return call, err
}

// Update persists all mutable fields of a call.
func (s *Store) Update(ctx context.Context, call *Call) error {
	if call == nil {
		return errors.New("update: call is nil")
	}
	call.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE calls SET
            source_path = ?, title = ?, status = ?, normalized_path = ?,
            transcript_json = ?, quality_json = ?, detected_language = ?,
            overall_confidence = ?, fallback_used = ?, error_message = ?,
            needs_review = ?, review_reason = ?, updated_at = ?,
            progress_stage = ?, progress_percent = ?, progress_message = ?
        WHERE id = ?`,
		call.SourcePath,
		call.Title,
		call.Status,
		call.NormalizedPath,
		call.TranscriptJSON,
		call.QualityJSON,
		call.DetectedLang,
		call.Confidence,
		boolToInt(call.FallbackUsed),
		call.ErrorMessage,
		boolToInt(call.NeedsReview),
		call.ReviewReason,
		call.UpdatedAt.Format(time.RFC3339Nano),
		call.ProgressStage,
		call.ProgressPercent,
		call.ProgressMessage,
		call.ID,
	)
	if err != nil {
		return fmt.Errorf("update call %d: %w", call.ID, err)
	}
	return nil
}

// NextForStatuses returns the oldest call whose status matches one of the
// provided statuses, or nil when none is available.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Call, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "?"
		args[i] = status
	}
	query := `SELECT ` + callColumns + ` FROM calls WHERE status IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY created_at ASC, id ASC LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	call, err := scanCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return call, err
}

// List returns calls filtered by the provided statuses; with no filter it
// returns every call ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	defer rows.Close()

	var calls []*Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, rows.Err()
}

// Stats returns per-status call counts.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM calls GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue counts for presentation.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	summary := HealthSummary{
		Pending:   stats[StatusPending],
		Failed:    stats[StatusFailed],
		Review:    stats[StatusReview],
		Completed: stats[StatusCompleted],
	}
	for status, count := range stats {
		summary.Total += count
		if IsProcessingStatus(status) {
			summary.Processing += count
		}
	}
	return summary, nil
}

// Clear removes calls with the provided statuses; with no statuses it removes
// every call.
func (s *Store) Clear(ctx context.Context, statuses ...Status) (int64, error) {
	query := `DELETE FROM calls`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ",") + `)`
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear calls: %w", err)
	}
	return res.RowsAffected()
}

// Retry returns a failed or review call to the pending status so the workflow
// picks it up again from the start.
func (s *Store) Retry(ctx context.Context, id int64) (*Call, error) {
	call, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if call == nil {
		return nil, fmt.Errorf("retry: call %d not found", id)
	}
	if call.Status != StatusFailed && call.Status != StatusReview {
		return nil, fmt.Errorf("retry: call %d has status %s, expected failed or review", id, call.Status)
	}
	call.Status = StatusPending
	call.ErrorMessage = ""
	call.NeedsReview = false
	call.ReviewReason = ""
	call.SetProgress("", "", 0)
	if err := s.Update(ctx, call); err != nil {
		return nil, err
	}
	return call, nil
}

// RecoverProcessing rolls calls stranded in a processing status (by an unclean
// shutdown) back to the status that restarts their interrupted stage.
func (s *Store) RecoverProcessing(ctx context.Context) (int64, error) {
	var recovered int64
	for _, transition := range stageRollbackTransitions {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE calls SET status = ?, progress_percent = 0, updated_at = ? WHERE status = ?`,
			transition.to,
			time.Now().UTC().Format(time.RFC3339Nano),
			transition.from,
		)
		if err != nil {
			return recovered, fmt.Errorf("recover %s calls: %w", transition.from, err)
		}
		count, err := res.RowsAffected()
		if err != nil {
			return recovered, fmt.Errorf("recover rows affected: %w", err)
		}
		recovered += count
	}
	return recovered, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (*Call, error) {
	var call Call
	var createdAt, updatedAt string
	var fallbackUsed, needsReview int
	err := row.Scan(
		&call.ID,
		&call.CallUUID,
		&call.SourcePath,
		&call.Title,
		&call.Status,
		&call.NormalizedPath,
		&call.TranscriptJSON,
		&call.QualityJSON,
		&call.DetectedLang,
		&call.Confidence,
		&fallbackUsed,
		&call.ErrorMessage,
		&needsReview,
		&call.ReviewReason,
		&createdAt,
		&updatedAt,
		&call.ProgressStage,
		&call.ProgressPercent,
		&call.ProgressMessage,
	)
	if err != nil {
		return nil, err
	}
	call.FallbackUsed = fallbackUsed != 0
	call.NeedsReview = needsReview != 0
	if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		call.CreatedAt = ts
	}
	if ts, parseErr := time.Parse(time.RFC3339Nano, updatedAt); parseErr == nil {
		call.UpdatedAt = ts
	}
	return &call, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func inferTitleFromPath(sourcePath string) string {
	base := filepath.Base(sourcePath)
	ext := filepath.Ext(base)
	title := strings.TrimSuffix(base, ext)
	title = strings.ReplaceAll(title, "_", " ")
	title = strings.TrimSpace(title)
	if title == "" {
		return "Untitled call"
	}
	return title
}
