package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/database"
	"github.com/emanueledman/fixa-admin/internal/models"
)

var problemColumns = []string{
	"id", "title", "description", "municipality", "neighborhood", "category",
	"urgency", "status", "suggestion", "image_url", "created_at", "responsible_id", "version",
}

// ProblemService reads a responsible's problems and applies partial updates to them.
// Every query is scoped by responsible_id.
type ProblemService struct {
	db     database.Querier
	logger *zap.SugaredLogger
}

// NewProblemService creates a new problem service
func NewProblemService(db database.Querier, logger *zap.SugaredLogger) *ProblemService {
	return &ProblemService{db: db, logger: logger}
}

func scanProblem(row pgx.Row) (models.Problem, error) {
	var (
		p       models.Problem
		urgency string
		status  string
	)
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Municipality, &p.Neighborhood,
		&p.Category, &urgency, &status, &p.Suggestion, &p.ImageURL, &p.CreatedAt,
		&p.ResponsibleID, &p.Version)
	if err != nil {
		return models.Problem{}, err
	}
	p.Urgency = models.Urgency(urgency).Normalize()
	p.Status = models.Status(status).Normalize()
	return p, nil
}

// ListByResponsible returns every problem assigned to viewerID in arrival order.
func (s *ProblemService) ListByResponsible(ctx context.Context, viewerID string) ([]models.Problem, error) {
	query, args, err := database.SQL.
		Select(problemColumns...).
		From("problems").
		Where(sq.Eq{"responsible_id": viewerID}).
		OrderBy("seq").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	defer rows.Close()

	problems := make([]models.Problem, 0)
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan problem: %w", err)
		}
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	return problems, nil
}

// Get returns a single problem owned by viewerID.
func (s *ProblemService) Get(ctx context.Context, viewerID, id string) (models.Problem, error) {
	query, args, err := database.SQL.
		Select(problemColumns...).
		From("problems").
		Where(sq.Eq{"id": id, "responsible_id": viewerID}).
		ToSql()
	if err != nil {
		return models.Problem{}, fmt.Errorf("build get query: %w", err)
	}

	p, err := scanProblem(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return models.Problem{}, mapError(err, "problem", id)
	}
	return p, nil
}

// UpdateStatus sets the status of one problem. Legacy labels are accepted and
// stored in canonical form.
func (s *ProblemService) UpdateStatus(ctx context.Context, viewerID, id, status string, expectedVersion *int64) (models.Problem, error) {
	st, ok := models.ParseStatus(status)
	if !ok {
		return models.Problem{}, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}

	p, err := s.update(ctx, viewerID, id, map[string]any{"status": string(st)}, expectedVersion)
	if err != nil {
		return models.Problem{}, err
	}

	s.logger.Infow("Problem status updated", "problem_id", id, "responsible_id", viewerID, "status", st)
	return p, nil
}

// UpdateFields writes only the fields present in patch. A supplied title or
// description that is blank after trimming is rejected before the database
// is touched.
func (s *ProblemService) UpdateFields(ctx context.Context, viewerID, id string, patch models.ProblemPatch, expectedVersion *int64) (models.Problem, error) {
	set, err := patchColumns(patch)
	if err != nil {
		return models.Problem{}, err
	}

	p, err := s.update(ctx, viewerID, id, set, expectedVersion)
	if err != nil {
		return models.Problem{}, err
	}

	s.logger.Infow("Problem updated", "problem_id", id, "responsible_id", viewerID, "fields", len(set))
	return p, nil
}

// patchColumns validates a patch and turns it into a column map.
func patchColumns(patch models.ProblemPatch) (map[string]any, error) {
	if patch.Empty() {
		return nil, &ValidationError{Message: "no fields to update"}
	}

	set := make(map[string]any)
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		if t == "" {
			return nil, &ValidationError{Field: "title", Message: "must not be empty"}
		}
		set["title"] = t
	}
	if patch.Description != nil {
		d := strings.TrimSpace(*patch.Description)
		if d == "" {
			return nil, &ValidationError{Field: "description", Message: "must not be empty"}
		}
		set["description"] = d
	}
	if patch.Urgency != nil {
		u, ok := models.ParseUrgency(string(*patch.Urgency))
		if !ok {
			return nil, &ValidationError{Field: "urgency", Message: fmt.Sprintf("unknown urgency %q", *patch.Urgency)}
		}
		set["urgency"] = string(u)
	}
	if patch.Status != nil {
		st, ok := models.ParseStatus(string(*patch.Status))
		if !ok {
			return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", *patch.Status)}
		}
		set["status"] = string(st)
	}

	optional := map[string]*string{
		"municipality": patch.Municipality,
		"neighborhood": patch.Neighborhood,
		"category":     patch.Category,
		"suggestion":   patch.Suggestion,
		"image_url":    patch.ImageURL,
	}
	for col, v := range optional {
		if v != nil {
			set[col] = *v
		}
	}
	return set, nil
}

// update runs a single partial UPDATE scoped to the viewer. When expectedVersion
// is set the row must still carry that version.
func (s *ProblemService) update(ctx context.Context, viewerID, id string, set map[string]any, expectedVersion *int64) (models.Problem, error) {
	b := database.SQL.
		Update("problems").
		SetMap(set).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": id, "responsible_id": viewerID})
	if expectedVersion != nil {
		b = b.Where(sq.Eq{"version": *expectedVersion})
	}

	query, args, err := b.Suffix("RETURNING " + strings.Join(problemColumns, ", ")).ToSql()
	if err != nil {
		return models.Problem{}, fmt.Errorf("build update query: %w", err)
	}

	p, err := scanProblem(s.db.QueryRow(ctx, query, args...))
	if err == nil {
		return p, nil
	}
	if errors.Is(err, pgx.ErrNoRows) && expectedVersion != nil {
		exists, existsErr := s.exists(ctx, viewerID, id)
		if existsErr != nil {
			return models.Problem{}, existsErr
		}
		if exists {
			s.logger.Warnw("Stale problem update rejected", "problem_id", id, "expected_version", *expectedVersion)
			return models.Problem{}, fmt.Errorf("problem %s: %w", id, ErrConflict)
		}
	}
	return models.Problem{}, mapError(err, "problem", id)
}

func (s *ProblemService) exists(ctx context.Context, viewerID, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM problems WHERE id = $1 AND responsible_id = $2)",
		id, viewerID,
	).Scan(&exists)
	if err != nil {
		return false, mapError(err, "problem", id)
	}
	return exists, nil
}

// Insert stores a new problem. An empty ID gets a fresh UUID and a zero
// CreatedAt is set to now.
func (s *ProblemService) Insert(ctx context.Context, p models.Problem) (models.Problem, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().UnixMilli()
	}
	if p.Status == "" {
		p.Status = models.StatusPending
	}

	query, args, err := database.SQL.
		Insert("problems").
		Columns(problemColumns[:len(problemColumns)-1]...).
		Values(p.ID, p.Title, p.Description, p.Municipality, p.Neighborhood, p.Category,
			string(p.Urgency), string(p.Status), p.Suggestion, p.ImageURL, p.CreatedAt, p.ResponsibleID).
		Suffix("RETURNING version").
		ToSql()
	if err != nil {
		return models.Problem{}, fmt.Errorf("build insert query: %w", err)
	}

	if err := s.db.QueryRow(ctx, query, args...).Scan(&p.Version); err != nil {
		return models.Problem{}, fmt.Errorf("insert problem: %w", err)
	}
	return p, nil
}
