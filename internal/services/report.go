package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/database"
	"github.com/emanueledman/fixa-admin/internal/models"
)

// ReportWindows are the selectable report windows, in days.
var ReportWindows = []int{7, 30, 90, 365}

const dayMillis = int64(24 * time.Hour / time.Millisecond)

// ValidWindow reports whether days is one of ReportWindows.
func ValidWindow(days int) bool {
	for _, w := range ReportWindows {
		if w == days {
			return true
		}
	}
	return false
}

// WindowStart returns the inclusive lower bound, in epoch ms, of a window ending at now.
func WindowStart(now time.Time, windowDays int) int64 {
	return now.UnixMilli() - int64(windowDays)*dayMillis
}

// Aggregate counts entries owned by viewerID whose CreatedAt falls inside the
// window. Status and urgency buckets always carry every known key. A value that
// is missing or unknown is left out of its own bucket only.
func Aggregate(entries []models.ReportEntry, windowDays int, viewerID string, now time.Time) models.ReportAggregate {
	start := WindowStart(now, windowDays)
	agg := models.ReportAggregate{
		ByStatus:      make(map[models.Status]int, len(models.Statuses)),
		ByUrgency:     make(map[models.Urgency]int, len(models.Urgencies)),
		StatusUrgency: make(map[models.Status]map[models.Urgency]int, len(models.Statuses)),
		ByCategory:    []models.CategoryDistribution{},
		WindowDays:    windowDays,
		WindowStart:   start,
		GeneratedAt:   now,
	}
	for _, st := range models.Statuses {
		agg.ByStatus[st] = 0
		agg.StatusUrgency[st] = make(map[models.Urgency]int, len(models.Urgencies))
		for _, u := range models.Urgencies {
			agg.StatusUrgency[st][u] = 0
		}
	}
	for _, u := range models.Urgencies {
		agg.ByUrgency[u] = 0
	}

	categories := make(map[string]int)
	for _, e := range entries {
		if e.ResponsibleID != viewerID || e.CreatedAt < start {
			continue
		}
		agg.Total++

		st, stOK := models.ParseStatus(string(e.Status))
		u, uOK := models.ParseUrgency(string(e.Urgency))
		if stOK {
			agg.ByStatus[st]++
		}
		if uOK {
			agg.ByUrgency[u]++
		}
		if stOK && uOK {
			agg.StatusUrgency[st][u]++
		}
		if e.Category != "" {
			categories[e.Category]++
		}
	}

	for c, n := range categories {
		agg.ByCategory = append(agg.ByCategory, models.CategoryDistribution{Category: c, Count: n})
	}
	sort.Slice(agg.ByCategory, func(i, j int) bool {
		if agg.ByCategory[i].Count != agg.ByCategory[j].Count {
			return agg.ByCategory[i].Count > agg.ByCategory[j].Count
		}
		return agg.ByCategory[i].Category < agg.ByCategory[j].Category
	})
	return agg
}

// ReportService builds report aggregates from the relatorios_problemas table.
type ReportService struct {
	db     database.Querier
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewReportService creates a new report service
func NewReportService(db database.Querier, logger *zap.SugaredLogger) *ReportService {
	return &ReportService{db: db, logger: logger, now: time.Now}
}

// Build loads the viewer's report entries for the window and aggregates them.
// Any read failure is returned wrapped in ErrReportUnavailable, never as zero counts.
func (s *ReportService) Build(ctx context.Context, viewerID string, windowDays int) (models.ReportAggregate, error) {
	if !ValidWindow(windowDays) {
		return models.ReportAggregate{}, &ValidationError{
			Field:   "days",
			Message: fmt.Sprintf("window must be one of %v", ReportWindows),
		}
	}

	now := s.now()
	entries, err := s.entries(ctx, viewerID, WindowStart(now, windowDays))
	if err != nil {
		s.logger.Errorw("Report query failed", "responsible_id", viewerID, "days", windowDays, "error", err)
		return models.ReportAggregate{}, fmt.Errorf("%w: %v", ErrReportUnavailable, err)
	}
	return Aggregate(entries, windowDays, viewerID, now), nil
}

func (s *ReportService) entries(ctx context.Context, viewerID string, start int64) ([]models.ReportEntry, error) {
	query, args, err := database.SQL.
		Select("problem_id", "category", "status", "urgency", "responsible_id", "created_at").
		From("relatorios_problemas").
		Where(sq.Eq{"responsible_id": viewerID}).
		Where(sq.GtOrEq{"created_at": start}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build report query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ReportEntry
	for rows.Next() {
		var (
			e       models.ReportEntry
			status  string
			urgency string
		)
		if err := rows.Scan(&e.ProblemID, &e.Category, &status, &urgency, &e.ResponsibleID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Status = models.Status(status)
		e.Urgency = models.Urgency(urgency)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Record appends one row to the report history.
func (s *ReportService) Record(ctx context.Context, e models.ReportEntry) error {
	query, args, err := database.SQL.
		Insert("relatorios_problemas").
		Columns("problem_id", "category", "status", "urgency", "responsible_id", "created_at").
		Values(e.ProblemID, e.Category, string(e.Status), string(e.Urgency), e.ResponsibleID, e.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build report insert: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("record report entry %s: %w", e.ProblemID, err)
	}
	return nil
}
