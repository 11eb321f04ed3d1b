package repository

import (
	"context"
	"database/sql"

	"github.com/safesite/safesite-api/internal/models"
)

type ProjectRepository interface {
	Create(ctx context.Context, project models.Project) (models.Project, error)
	GetByID(ctx context.Context, id int64) (models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
}

type projectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project models.Project) (models.Project, error) {
	const query = `
		INSERT INTO projects (name, location, manager_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, project.Name, project.Location, project.ManagerID).
		Scan(&project.ID, &project.CreatedAt)
	if err != nil {
		return models.Project{}, err
	}
	return project, nil
}

func (r *projectRepository) GetByID(ctx context.Context, id int64) (models.Project, error) {
	const query = `
		SELECT id, name, location, manager_id, created_at
		FROM projects
		WHERE id = $1`
	var project models.Project
	var managerID sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&project.ID,
		&project.Name,
		&project.Location,
		&managerID,
		&project.CreatedAt,
	)
	if err != nil {
		return models.Project{}, err
	}
	if managerID.Valid {
		v := managerID.String
		project.ManagerID = &v
	}
	return project, nil
}

func (r *projectRepository) List(ctx context.Context) ([]models.Project, error) {
	const query = `
		SELECT id, name, location, manager_id, created_at
		FROM projects
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var project models.Project
		var managerID sql.NullString
		if err := rows.Scan(&project.ID, &project.Name, &project.Location, &managerID, &project.CreatedAt); err != nil {
			return nil, err
		}
		if managerID.Valid {
			v := managerID.String
			project.ManagerID = &v
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}
