package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aura-labs/aura-studio/internal/models"
	"github.com/aura-labs/aura-studio/internal/storage"
)

// SaveProject upserts the persisted subset of a project and
// refreshes its index entry in one transaction.
func (s *Storage) SaveProject(ctx context.Context, p models.Project) error {
	const op = "storage.sqlite.SaveProject"

	captions, err := json.Marshal(p.Captions)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	voice, err := json.Marshal(p.VoiceSettings)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	style, err := json.Marshal(p.DefaultStyle)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO projects(id, name, video_url, audio_url, script, captions, voice, style, duration, trim_start, trim_end, last_saved)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			video_url = excluded.video_url,
			audio_url = excluded.audio_url,
			script = excluded.script,
			captions = excluded.captions,
			voice = excluded.voice,
			style = excluded.style,
			duration = excluded.duration,
			trim_start = excluded.trim_start,
			trim_end = excluded.trim_end,
			last_saved = excluded.last_saved
	`)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx,
		p.ID, p.Name, p.OriginalVideoURL, p.AudioURL, p.GeneratedScript,
		string(captions), string(voice), string(style),
		p.Duration, p.VideoTrim.Start, p.VideoTrim.End,
		p.LastSaved.UnixMilli(),
	); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	idxStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO project_index(project_id, name, last_edited, duration)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			name = excluded.name,
			last_edited = excluded.last_edited,
			duration = excluded.duration
	`)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer idxStmt.Close()

	if _, err := idxStmt.ExecContext(ctx, p.ID, p.Name, p.LastSaved.UnixMilli(), p.Duration); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Project returns the persisted project by id.
func (s *Storage) Project(ctx context.Context, id string) (models.Project, error) {
	const op = "storage.sqlite.Project"

	stmt, err := s.db.PrepareContext(ctx, `
		SELECT id, name, video_url, audio_url, script, captions, voice, style, duration, trim_start, trim_end, last_saved
		FROM projects WHERE id = ?
	`)
	if err != nil {
		return models.Project{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, id)

	var (
		p                      models.Project
		captions, voice, style string
		lastSavedMs            int64
	)
	err = row.Scan(
		&p.ID, &p.Name, &p.OriginalVideoURL, &p.AudioURL, &p.GeneratedScript,
		&captions, &voice, &style,
		&p.Duration, &p.VideoTrim.Start, &p.VideoTrim.End, &lastSavedMs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Project{}, fmt.Errorf("%s: %w", op, storage.ErrProjectNotFound)
		}

		return models.Project{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := json.Unmarshal([]byte(captions), &p.Captions); err != nil {
		return models.Project{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal([]byte(voice), &p.VoiceSettings); err != nil {
		return models.Project{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal([]byte(style), &p.DefaultStyle); err != nil {
		return models.Project{}, fmt.Errorf("%s: %w", op, err)
	}
	p.LastSaved = time.UnixMilli(lastSavedMs)

	return p, nil
}

// ProjectIndex returns summaries for the project picker,
// most recently edited first.
func (s *Storage) ProjectIndex(ctx context.Context) ([]models.ProjectSummary, error) {
	const op = "storage.sqlite.ProjectIndex"

	stmt, err := s.db.PrepareContext(ctx, `
		SELECT project_id, name, last_edited, duration
		FROM project_index ORDER BY last_edited DESC
	`)
	if err != nil {
		return []models.ProjectSummary{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return []models.ProjectSummary{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	summaries := make([]models.ProjectSummary, 0)
	for rows.Next() {
		var (
			sum          models.ProjectSummary
			lastEditedMs int64
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &lastEditedMs, &sum.Duration); err != nil {
			return []models.ProjectSummary{}, fmt.Errorf("%s: %w", op, err)
		}
		sum.LastEdited = time.UnixMilli(lastEditedMs)
		summaries = append(summaries, sum)
	}

	return summaries, nil
}

// DeleteProject removes project and its index entry.
func (s *Storage) DeleteProject(ctx context.Context, id string) error {
	const op = "storage.sqlite.DeleteProject"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM project_index WHERE project_id = ?", id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrProjectNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
