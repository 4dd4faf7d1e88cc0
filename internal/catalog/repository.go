package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Repository interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	ListPendingRuns(ctx context.Context) ([]*Run, error)
	UpdateRunStatus(ctx context.Context, id, status, errorMsg string) error
	CompleteRun(ctx context.Context, id, videoPath, subtitlePath string, duration float64) error
	DeleteRun(ctx context.Context, id string) error

	ReplaceLines(ctx context.Context, runID string, lines []*RunLine) error
	ListLines(ctx context.Context, runID string) ([]*RunLine, error)
	ReplaceScenes(ctx context.Context, runID string, scenes []*RunScene) error
	ListScenes(ctx context.Context, runID string) ([]*RunScene, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const runColumns = `id, script_name, script_path, output_dir, status, options, video_path, subtitle_path, duration_s, error, created_at, updated_at`

func (r *SQLiteRepository) CreateRun(ctx context.Context, run *Run) error {
	opts, err := json.Marshal(run.Options)
	if err != nil {
		return fmt.Errorf("encode run options: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.ScriptName, run.ScriptPath, run.OutputDir, run.Status, string(opts),
		nullString(run.VideoPath), nullString(run.SubtitlePath), run.Duration, nullString(run.Error),
		run.CreatedAt.UTC().Format(time.RFC3339), run.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

func (r *SQLiteRepository) ListPendingRuns(ctx context.Context) ([]*Run, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM runs WHERE status = 'pending' ORDER BY created_at ASC, rowid ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var opts string
	var videoPath, subtitlePath, errMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&run.ID, &run.ScriptName, &run.ScriptPath, &run.OutputDir, &run.Status, &opts,
		&videoPath, &subtitlePath, &run.Duration, &errMsg, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(opts), &run.Options); err != nil {
		return nil, fmt.Errorf("decode options of run %s: %w", run.ID, err)
	}
	run.VideoPath = videoPath.String
	run.SubtitlePath = subtitlePath.String
	run.Error = errMsg.String
	run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	run.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &run, nil
}

func scanRuns(rows *sql.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *SQLiteRepository) UpdateRunStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, status, nullString(errorMsg), now(), id)
	return err
}

func (r *SQLiteRepository) CompleteRun(ctx context.Context, id, videoPath, subtitlePath string, duration float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET status = 'completed', error = NULL, video_path = ?, subtitle_path = ?, duration_s = ?, updated_at = ?
		WHERE id = ?
	`, videoPath, subtitlePath, duration, now(), id)
	return err
}

func (r *SQLiteRepository) DeleteRun(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) ReplaceLines(ctx context.Context, runID string, lines []*RunLine) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM run_lines WHERE run_id = ?", runID); err != nil {
			return err
		}
		for _, l := range lines {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO run_lines (run_id, line_index, text, duration_s, skip_reason, caption_start_s, caption_end_s)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, runID, l.Index, l.Text, l.Duration, nullString(l.SkipReason), nullFloat(l.CaptionStart), nullFloat(l.CaptionEnd))
			if err != nil {
				return fmt.Errorf("insert line %d: %w", l.Index, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) ListLines(ctx context.Context, runID string) ([]*RunLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, line_index, text, duration_s, skip_reason, caption_start_s, caption_end_s
		FROM run_lines WHERE run_id = ? ORDER BY line_index
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*RunLine
	for rows.Next() {
		var l RunLine
		var skip sql.NullString
		var start, end sql.NullFloat64
		if err := rows.Scan(&l.RunID, &l.Index, &l.Text, &l.Duration, &skip, &start, &end); err != nil {
			return nil, err
		}
		l.SkipReason = skip.String
		if start.Valid {
			l.CaptionStart = &start.Float64
		}
		if end.Valid {
			l.CaptionEnd = &end.Float64
		}
		lines = append(lines, &l)
	}
	return lines, rows.Err()
}

func (r *SQLiteRepository) ReplaceScenes(ctx context.Context, runID string, scenes []*RunScene) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM run_scenes WHERE run_id = ?", runID); err != nil {
			return err
		}
		for _, s := range scenes {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO run_scenes (run_id, ordinal, fingerprint, image_path, lines, start_s, end_s)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, runID, s.Ordinal, s.Fingerprint, s.ImagePath, joinInts(s.Lines), s.Start, s.End)
			if err != nil {
				return fmt.Errorf("insert scene %d: %w", s.Ordinal, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) ListScenes(ctx context.Context, runID string) ([]*RunScene, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, ordinal, fingerprint, image_path, lines, start_s, end_s
		FROM run_scenes WHERE run_id = ? ORDER BY ordinal
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenes []*RunScene
	for rows.Next() {
		var s RunScene
		var lines string
		if err := rows.Scan(&s.RunID, &s.Ordinal, &s.Fingerprint, &s.ImagePath, &lines, &s.Start, &s.End); err != nil {
			return nil, err
		}
		if s.Lines, err = splitInts(lines); err != nil {
			return nil, fmt.Errorf("scene %d lines: %w", s.Ordinal, err)
		}
		scenes = append(scenes, &s)
	}
	return scenes, rows.Err()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func splitInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
