package repository

import (
	"fmt"
	"strings"
	"time"
)

// AlertFilter composes the optional alert search criteria into a single SQL
// predicate. The same filter feeds the paginated search, the count queries
// (dashboard KPIs and the notification dedup open-count check) and the
// statistics aggregations, so "what counts as a duplicate" always matches
// what a search for the same criteria returns.
//
// An absent criterion contributes nothing; all active criteria are ANDed.
type AlertFilter struct {
	ProjectID      *int64
	CameraID       *int64
	Type           string
	Severity       string
	Status         string
	MinConfidence  *float64
	MaxConfidence  *float64
	HappenedAfter  *time.Time
	HappenedBefore *time.Time
}

// OpenAlerts is the filter the dedup gate uses to count still-unreviewed
// alerts sharing a dedup key.
func OpenAlerts(projectID int64, cameraID *int64, alertType string) AlertFilter {
	return AlertFilter{
		ProjectID: &projectID,
		CameraID:  cameraID,
		Type:      alertType,
		Status:    "NEW",
	}
}

// conditions renders the active criteria as SQL fragments with positional
// placeholders numbered from start.
func (f AlertFilter) conditions(start int) ([]string, []interface{}) {
	var conds []string
	var args []interface{}

	next := func() int { return start + len(args) }

	if f.ProjectID != nil {
		conds = append(conds, fmt.Sprintf("project_id = $%d", next()))
		args = append(args, *f.ProjectID)
	}
	if f.CameraID != nil {
		conds = append(conds, fmt.Sprintf("camera_id = $%d", next()))
		args = append(args, *f.CameraID)
	}
	if t := strings.TrimSpace(f.Type); t != "" {
		conds = append(conds, fmt.Sprintf("type ILIKE '%%' || $%d || '%%'", next()))
		args = append(args, t)
	}
	if s := strings.TrimSpace(f.Severity); s != "" {
		conds = append(conds, fmt.Sprintf("severity = $%d", next()))
		args = append(args, strings.ToUpper(s))
	}
	if s := strings.TrimSpace(f.Status); s != "" {
		conds = append(conds, fmt.Sprintf("alert_status = $%d", next()))
		args = append(args, strings.ToUpper(s))
	}
	if f.MinConfidence != nil {
		conds = append(conds, fmt.Sprintf("confidence >= $%d", next()))
		args = append(args, *f.MinConfidence)
	}
	if f.MaxConfidence != nil {
		conds = append(conds, fmt.Sprintf("confidence <= $%d", next()))
		args = append(args, *f.MaxConfidence)
	}
	if f.HappenedAfter != nil {
		conds = append(conds, fmt.Sprintf("happened_at >= $%d", next()))
		args = append(args, *f.HappenedAfter)
	}
	if f.HappenedBefore != nil {
		conds = append(conds, fmt.Sprintf("happened_at <= $%d", next()))
		args = append(args, *f.HappenedBefore)
	}

	return conds, args
}

// WhereClause returns a " WHERE ..." fragment and its args, or an empty
// string when no criterion is set. Placeholders are numbered from $1.
func (f AlertFilter) WhereClause() (string, []interface{}) {
	conds, args := f.conditions(1)
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
