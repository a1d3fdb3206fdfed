// Package store persists feedback reports in Postgres.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"speech-feedback-service/internal/service/feedback"
)

var (
	// ErrDisabled is returned when no database is configured.
	ErrDisabled = errors.New("report store disabled")
	// ErrNotFound is returned when no report exists for an ID.
	ErrNotFound = errors.New("report not found")
)

// querier is the subset of pgxpool.Pool used by the store.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StoredReport is a report together with its submission metadata.
type StoredReport struct {
	ID        string          `json:"id"`
	Report    feedback.Report `json:"report"`
	CreatedAt time.Time       `json:"created_at"`
}

type Store struct {
	db   querier
	pool *pgxpool.Pool
}

// New wraps a pool. A nil pool yields a disabled store.
func New(pool *pgxpool.Pool) *Store {
	s := &Store{pool: pool}
	if pool != nil {
		s.db = pool
	}
	return s
}

// Connect opens and pings a pool for databaseURL. An empty URL returns a
// disabled store.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return New(nil), nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return New(pool), nil
}

// Enabled reports whether a database is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.db != nil
}

// Save inserts a report. Saving the same ID twice keeps the first report.
func (s *Store) Save(ctx context.Context, id string, r feedback.Report) error {
	if !s.Enabled() {
		return ErrDisabled
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO feedback_reports (
			id, transcript, duration_sec, wpm, filler_words, grammar_score,
			fluency_score, confidence_score, speed_feedback, overall_rating, tips
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`, id, r.Transcript, r.DurationSec, r.WPM, r.FillerWords, r.GrammarScore,
		r.FluencyScore, r.ConfidenceScore, string(r.SpeedFeedback), r.OverallRating, r.Tips)
	return err
}

// Get returns the report saved under id.
func (s *Store) Get(ctx context.Context, id string) (*StoredReport, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	var (
		sr    StoredReport
		speed string
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, transcript, duration_sec, wpm, filler_words, grammar_score,
			fluency_score, confidence_score, speed_feedback, overall_rating, tips, created_at
		FROM feedback_reports
		WHERE id = $1
	`, id).Scan(
		&sr.ID, &sr.Report.Transcript, &sr.Report.DurationSec, &sr.Report.WPM,
		&sr.Report.FillerWords, &sr.Report.GrammarScore, &sr.Report.FluencyScore,
		&sr.Report.ConfidenceScore, &speed, &sr.Report.OverallRating, &sr.Report.Tips,
		&sr.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	sr.Report.SpeedFeedback = feedback.SpeedFeedback(speed)
	if sr.Report.FillerWords == nil {
		sr.Report.FillerWords = []string{}
	}
	if sr.Report.Tips == nil {
		sr.Report.Tips = []string{}
	}
	return &sr, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}
