package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safesite/safesite-api/internal/models"
)

type PageRequest struct {
	Page int
	Size int
}

func (p PageRequest) normalized() PageRequest {
	if p.Size <= 0 || p.Size > 100 {
		p.Size = 20
	}
	if p.Page < 0 {
		p.Page = 0
	}
	return p
}

func (p PageRequest) offset() int {
	return p.Page * p.Size
}

// GroupBy selects the dimension for grouped alert counts.
type GroupBy string

const (
	GroupByType    GroupBy = "type"
	GroupByWeekday GroupBy = "weekday"
	GroupByProject GroupBy = "project"
	GroupByMonth   GroupBy = "month"
)

var groupExpressions = map[GroupBy]string{
	GroupByType:    "type",
	GroupByWeekday: "EXTRACT(DOW FROM happened_at)::int::text",
	GroupByProject: "project_id::text",
	GroupByMonth:   "to_char(happened_at, 'YYYY-MM')",
}

type AlertRepository interface {
	Create(ctx context.Context, alert models.Alert) (models.Alert, error)
	GetByID(ctx context.Context, id int64) (models.Alert, error)
	GetByIDAndProject(ctx context.Context, id, projectID int64) (models.Alert, error)
	Count(ctx context.Context, filter AlertFilter) (int64, error)
	Search(ctx context.Context, filter AlertFilter, page PageRequest) ([]models.Alert, int64, error)
	Update(ctx context.Context, alert models.Alert) (models.Alert, error)
	Delete(ctx context.Context, id int64) error
	CountGrouped(ctx context.Context, filter AlertFilter, dim GroupBy) ([]models.StatBucket, error)
}

type alertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) AlertRepository {
	return &alertRepository{db: db}
}

const alertColumns = `id, project_id, camera_id, type, severity, confidence, alert_status,
	happened_at, image_key, clip_key, metadata, reviewer_id, review_note, created_at`

func (r *alertRepository) Create(ctx context.Context, alert models.Alert) (models.Alert, error) {
	const query = `
		INSERT INTO alerts (project_id, camera_id, type, severity, confidence, alert_status,
			happened_at, image_key, clip_key, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		alert.ProjectID,
		alert.CameraID,
		alert.Type,
		alert.Severity,
		alert.Confidence,
		alert.Status,
		alert.HappenedAt,
		alert.ImageKey,
		alert.ClipKey,
		alert.Metadata,
	).Scan(&alert.ID, &alert.CreatedAt)
	if err != nil {
		return models.Alert{}, err
	}
	return alert, nil
}

func (r *alertRepository) GetByID(ctx context.Context, id int64) (models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	return scanAlert(r.db.QueryRowContext(ctx, query, id))
}

func (r *alertRepository) GetByIDAndProject(ctx context.Context, id, projectID int64) (models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1 AND project_id = $2`
	return scanAlert(r.db.QueryRowContext(ctx, query, id, projectID))
}

func (r *alertRepository) Count(ctx context.Context, filter AlertFilter) (int64, error) {
	where, args := filter.WhereClause()
	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alerts"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}

func (r *alertRepository) Search(ctx context.Context, filter AlertFilter, page PageRequest) ([]models.Alert, int64, error) {
	total, err := r.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	page = page.normalized()
	where, args := filter.WhereClause()
	query := fmt.Sprintf(
		"SELECT "+alertColumns+" FROM alerts%s ORDER BY happened_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2)
	args = append(args, page.Size, page.offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]models.Alert, 0, page.Size)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, 0, err
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

func (r *alertRepository) Update(ctx context.Context, alert models.Alert) (models.Alert, error) {
	const query = `
		UPDATE alerts
		SET alert_status = $2, reviewer_id = $3, review_note = $4
		WHERE id = $1
		RETURNING ` + alertColumns
	return scanAlert(r.db.QueryRowContext(ctx, query, alert.ID, alert.Status, alert.ReviewerID, alert.ReviewNote))
}

func (r *alertRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM alerts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete alert %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *alertRepository) CountGrouped(ctx context.Context, filter AlertFilter, dim GroupBy) ([]models.StatBucket, error) {
	expr, ok := groupExpressions[dim]
	if !ok {
		return nil, fmt.Errorf("unknown group dimension %q", dim)
	}
	where, args := filter.WhereClause()
	query := fmt.Sprintf("SELECT %s AS label, COUNT(*) FROM alerts%s GROUP BY label ORDER BY label", expr, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts by %s: %w", dim, err)
	}
	defer rows.Close()

	var buckets []models.StatBucket
	for rows.Next() {
		var b models.StatBucket
		if err := rows.Scan(&b.Label, &b.Count); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return buckets, nil
}

func scanAlert(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Alert, error) {
	var (
		alert      models.Alert
		cameraID   sql.NullInt64
		imageKey   sql.NullString
		clipKey    sql.NullString
		metadata   sql.NullString
		reviewerID sql.NullString
		reviewNote sql.NullString
	)

	err := scanner.Scan(
		&alert.ID,
		&alert.ProjectID,
		&cameraID,
		&alert.Type,
		&alert.Severity,
		&alert.Confidence,
		&alert.Status,
		&alert.HappenedAt,
		&imageKey,
		&clipKey,
		&metadata,
		&reviewerID,
		&reviewNote,
		&alert.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Alert{}, sql.ErrNoRows
		}
		return models.Alert{}, err
	}

	if cameraID.Valid {
		v := cameraID.Int64
		alert.CameraID = &v
	}
	if imageKey.Valid {
		v := imageKey.String
		alert.ImageKey = &v
	}
	if clipKey.Valid {
		v := clipKey.String
		alert.ClipKey = &v
	}
	if metadata.Valid {
		v := metadata.String
		alert.Metadata = &v
	}
	if reviewerID.Valid {
		v := reviewerID.String
		alert.ReviewerID = &v
	}
	if reviewNote.Valid {
		v := reviewNote.String
		alert.ReviewNote = &v
	}

	return alert, nil
}
