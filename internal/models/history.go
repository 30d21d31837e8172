package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryEntry is one completed enhancement.
type HistoryEntry struct {
	ID               int64     `json:"id"`
	SessionID        string    `json:"session_id"`
	SourceFilename   string    `json:"source_filename"`
	OutputFilename   string    `json:"output_filename"`
	Flow             string    `json:"flow"`
	ScoreBefore      *float64  `json:"score_before,omitempty"`
	ScoreAfter       *float64  `json:"score_after,omitempty"`
	BrightnessBefore float64   `json:"brightness_before"`
	BrightnessAfter  float64   `json:"brightness_after"`
	ContrastBefore   float64   `json:"contrast_before"`
	ContrastAfter    float64   `json:"contrast_after"`
	InputSizeKB      float64   `json:"input_size_kb"`
	OutputSizeKB     float64   `json:"output_size_kb"`
	ProcessingTime   float64   `json:"processing_time"`
	Enhancements     []string  `json:"enhancements"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewHistoryEntry flattens an enhancement result into a history row.
func NewHistoryEntry(sessionID, sourceFilename, flow string, res *EnhancementResult) *HistoryEntry {
	entry := &HistoryEntry{
		SessionID:      sessionID,
		SourceFilename: sourceFilename,
		OutputFilename: res.OutputFilename,
		Flow:           flow,
		InputSizeKB:    res.InputSizeKB,
		OutputSizeKB:   res.OutputSizeKB,
		ProcessingTime: res.ProcessingTime,
		Enhancements:   res.Enhancements,
	}
	if b := res.AnalysisBefore; b != nil {
		entry.ScoreBefore = b.OverallScore
		entry.BrightnessBefore = b.OverallBrightness
		entry.ContrastBefore = b.OverallContrast
	}
	if a := res.AnalysisAfter; a != nil {
		entry.ScoreAfter = a.OverallScore
		entry.BrightnessAfter = a.OverallBrightness
		entry.ContrastAfter = a.OverallContrast
	}
	if entry.Enhancements == nil {
		entry.Enhancements = []string{}
	}
	return entry
}

type HistoryService struct {
	pool *pgxpool.Pool
}

func NewHistoryService(pool *pgxpool.Pool) *HistoryService {
	return &HistoryService{pool: pool}
}

// Record stores an entry. Recording the same output twice for one session
// returns ErrHistoryDuplicate.
func (s *HistoryService) Record(ctx context.Context, entry *HistoryEntry) error {
	if s == nil || s.pool == nil {
		return ErrHistoryDisabled
	}

	query := `
		INSERT INTO enhancement_history (
			session_id, source_filename, output_filename, flow,
			score_before, score_after, brightness_before, brightness_after,
			contrast_before, contrast_after, input_size_kb, output_size_kb,
			processing_time, enhancements)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at
	`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := s.pool.QueryRow(ctx, query,
		entry.SessionID,
		entry.SourceFilename,
		entry.OutputFilename,
		entry.Flow,
		entry.ScoreBefore,
		entry.ScoreAfter,
		entry.BrightnessBefore,
		entry.BrightnessAfter,
		entry.ContrastBefore,
		entry.ContrastAfter,
		entry.InputSizeKB,
		entry.OutputSizeKB,
		entry.ProcessingTime,
		entry.Enhancements,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrHistoryDuplicate
		}
		return fmt.Errorf("failed to record enhancement: %w", err)
	}

	return nil
}

// Recent returns the newest entries first.
func (s *HistoryService) Recent(ctx context.Context, limit int) ([]*HistoryEntry, error) {
	if s == nil || s.pool == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, session_id, source_filename, output_filename, flow,
		       score_before, score_after, brightness_before, brightness_after,
		       contrast_before, contrast_after, input_size_kb, output_size_kb,
		       processing_time, enhancements, created_at
		FROM enhancement_history
		ORDER BY created_at DESC
		LIMIT $1
	`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		e := &HistoryEntry{}
		if err := rows.Scan(
			&e.ID,
			&e.SessionID,
			&e.SourceFilename,
			&e.OutputFilename,
			&e.Flow,
			&e.ScoreBefore,
			&e.ScoreAfter,
			&e.BrightnessBefore,
			&e.BrightnessAfter,
			&e.ContrastBefore,
			&e.ContrastAfter,
			&e.InputSizeKB,
			&e.OutputSizeKB,
			&e.ProcessingTime,
			&e.Enhancements,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	return entries, nil
}
