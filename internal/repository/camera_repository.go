package repository

import (
	"context"
	"database/sql"

	"github.com/safesite/safesite-api/internal/models"
)

type CameraRepository interface {
	Create(ctx context.Context, camera models.Camera) (models.Camera, error)
	GetByID(ctx context.Context, id int64) (models.Camera, error)
	ListByProject(ctx context.Context, projectID int64) ([]models.Camera, error)
}

type cameraRepository struct {
	db *sql.DB
}

func NewCameraRepository(db *sql.DB) CameraRepository {
	return &cameraRepository{db: db}
}

func (r *cameraRepository) Create(ctx context.Context, camera models.Camera) (models.Camera, error) {
	const query = `
		INSERT INTO cameras (project_id, name, location, stream_url, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		camera.ProjectID, camera.Name, camera.Location, camera.StreamURL, camera.IsActive).
		Scan(&camera.ID, &camera.CreatedAt)
	if err != nil {
		return models.Camera{}, err
	}
	return camera, nil
}

func (r *cameraRepository) GetByID(ctx context.Context, id int64) (models.Camera, error) {
	const query = `
		SELECT id, project_id, name, location, stream_url, is_active, created_at
		FROM cameras
		WHERE id = $1`
	var camera models.Camera
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&camera.ID,
		&camera.ProjectID,
		&camera.Name,
		&camera.Location,
		&camera.StreamURL,
		&camera.IsActive,
		&camera.CreatedAt,
	)
	if err != nil {
		return models.Camera{}, err
	}
	return camera, nil
}

func (r *cameraRepository) ListByProject(ctx context.Context, projectID int64) ([]models.Camera, error) {
	const query = `
		SELECT id, project_id, name, location, stream_url, is_active, created_at
		FROM cameras
		WHERE project_id = $1
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cameras []models.Camera
	for rows.Next() {
		var camera models.Camera
		if err := rows.Scan(&camera.ID, &camera.ProjectID, &camera.Name, &camera.Location,
			&camera.StreamURL, &camera.IsActive, &camera.CreatedAt); err != nil {
			return nil, err
		}
		cameras = append(cameras, camera)
	}
	return cameras, rows.Err()
}
