// Package repository provides assessment persistence on SQLite or PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/opensource-wellbeing/pulse/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// DefaultListLimit applies when ListAssessments is called without a limit.
const DefaultListLimit = 50

// MaxListLimit bounds a single ListAssessments page.
const MaxListLimit = 500

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{db: db, driver: cfg.Driver}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveAssessment stores a scored submission.
func (r *SQLRepository) SaveAssessment(ctx context.Context, institutionID string, a *domain.Assessment) error {
	if institutionID == "" {
		return fmt.Errorf("%w: institutionID is required", ErrInvalidInput)
	}
	if a == nil || a.ID == "" || a.Response == nil {
		return fmt.Errorf("%w: assessment id and response are required", ErrInvalidInput)
	}

	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}
	response, err := json.Marshal(a.Response)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	query := `
		INSERT INTO assessments (
			id, institution_id, answers, risk_level, risk_probability,
			confidence, response, trace_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		a.ID, institutionID, string(answers),
		a.RiskLevel, a.RiskProbability, a.Confidence,
		string(response), a.TraceID, a.CreatedAt,
	)
	return err
}

const selectAssessment = `
	SELECT id, institution_id, answers, risk_level, risk_probability,
		   confidence, response, trace_id, created_at
	FROM assessments
`

// GetAssessment retrieves an assessment by ID within one institution.
func (r *SQLRepository) GetAssessment(ctx context.Context, institutionID string, id string) (*domain.Assessment, error) {
	if institutionID == "" {
		return nil, fmt.Errorf("%w: institutionID is required", ErrInvalidInput)
	}

	row := r.db.QueryRowContext(ctx, r.rebind(selectAssessment+`WHERE institution_id = ? AND id = ?`), institutionID, id)
	a, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// ListAssessments returns the newest assessments of an institution first.
func (r *SQLRepository) ListAssessments(ctx context.Context, institutionID string, limit int) ([]*domain.Assessment, error) {
	if institutionID == "" {
		return nil, fmt.Errorf("%w: institutionID is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := selectAssessment + `WHERE institution_id = ? ORDER BY created_at DESC, id LIMIT ?`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), institutionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assessments := []*domain.Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}

	return assessments, rows.Err()
}

// RiskDistribution counts assessments per risk level. Levels with no
// assessments are reported as 0.
func (r *SQLRepository) RiskDistribution(ctx context.Context, institutionID string) (map[string]int, error) {
	if institutionID == "" {
		return nil, fmt.Errorf("%w: institutionID is required", ErrInvalidInput)
	}

	query := `
		SELECT risk_level, COUNT(*)
		FROM assessments
		WHERE institution_id = ?
		GROUP BY risk_level
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), institutionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := map[string]int{
		domain.LevelLow:    0,
		domain.LevelMedium: 0,
		domain.LevelHigh:   0,
	}
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, err
		}
		dist[level] = count
	}

	return dist, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAssessment(s scanner) (*domain.Assessment, error) {
	var a domain.Assessment
	var answers, response string
	var traceID sql.NullString

	if err := s.Scan(
		&a.ID, &a.InstitutionID, &answers,
		&a.RiskLevel, &a.RiskProbability, &a.Confidence,
		&response, &traceID, &a.CreatedAt,
	); err != nil {
		return nil, err
	}

	a.TraceID = traceID.String
	if err := json.Unmarshal([]byte(answers), &a.Answers); err != nil {
		return nil, fmt.Errorf("failed to parse answers of %s: %w", a.ID, err)
	}
	a.Response = &domain.Response{}
	if err := json.Unmarshal([]byte(response), a.Response); err != nil {
		return nil, fmt.Errorf("failed to parse response of %s: %w", a.ID, err)
	}

	return &a, nil
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
