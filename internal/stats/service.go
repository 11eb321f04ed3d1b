package stats

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/safesite/safesite-api/internal/models"
	"github.com/safesite/safesite-api/internal/repository"
)

type Service interface {
	Grouped(ctx context.Context, filter repository.AlertFilter, dim repository.GroupBy) ([]models.StatBucket, error)
	Dashboard(ctx context.Context, filter repository.AlertFilter) (models.Dashboard, error)
}

type service struct {
	alerts repository.AlertRepository
	logger zerolog.Logger
}

func NewService(alerts repository.AlertRepository, logger zerolog.Logger) Service {
	return &service{
		alerts: alerts,
		logger: logger.With().Str("component", "stats_service").Logger(),
	}
}

var weekdayNames = map[string]string{
	"0": "Sunday",
	"1": "Monday",
	"2": "Tuesday",
	"3": "Wednesday",
	"4": "Thursday",
	"5": "Friday",
	"6": "Saturday",
}

func (s *service) Grouped(ctx context.Context, filter repository.AlertFilter, dim repository.GroupBy) ([]models.StatBucket, error) {
	buckets, err := s.alerts.CountGrouped(ctx, filter, dim)
	if err != nil {
		return nil, err
	}
	if dim == repository.GroupByWeekday {
		for i := range buckets {
			if name, ok := weekdayNames[buckets[i].Label]; ok {
				buckets[i].Label = name
			}
		}
	}
	return buckets, nil
}

// Dashboard aggregates the landing-page view: headline counters, weekday and
// monthly distributions and the five most recent alerts. The caller's filter
// narrows every query; the counters layer their own status and severity
// criteria on top of it.
func (s *service) Dashboard(ctx context.Context, filter repository.AlertFilter) (models.Dashboard, error) {
	var dashboard models.Dashboard

	total, err := s.alerts.Count(ctx, filter)
	if err != nil {
		return models.Dashboard{}, err
	}
	unresolvedFilter := filter
	unresolvedFilter.Status = string(models.StatusNew)
	unresolved, err := s.alerts.Count(ctx, unresolvedFilter)
	if err != nil {
		return models.Dashboard{}, err
	}
	highFilter := filter
	highFilter.Severity = string(models.SeverityHigh)
	high, err := s.alerts.Count(ctx, highFilter)
	if err != nil {
		return models.Dashboard{}, err
	}
	criticalFilter := filter
	criticalFilter.Severity = string(models.SeverityCritical)
	critical, err := s.alerts.Count(ctx, criticalFilter)
	if err != nil {
		return models.Dashboard{}, err
	}

	dashboard.Summary = models.DashboardSummary{
		TotalAlerts:        total,
		UnresolvedAlerts:   unresolved,
		HighSeverityAlerts: high + critical,
	}

	if dashboard.WeekdayStats, err = s.Grouped(ctx, filter, repository.GroupByWeekday); err != nil {
		return models.Dashboard{}, err
	}
	if dashboard.MonthlyStats, err = s.Grouped(ctx, filter, repository.GroupByMonth); err != nil {
		return models.Dashboard{}, err
	}

	recent, _, err := s.alerts.Search(ctx, filter, repository.PageRequest{Page: 0, Size: 5})
	if err != nil {
		return models.Dashboard{}, err
	}
	dashboard.RecentAlerts = recent

	return dashboard, nil
}
