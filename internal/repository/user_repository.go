package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/safesite/safesite-api/internal/apperr"
	"github.com/safesite/safesite-api/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	CreateUser(username, email, password string, roles []models.UserRole) (models.User, error)
	AuthenticateUser(username, password string) (models.User, error)
	GetUserByID(userID string) (models.User, error)
	GetUserByUsername(username string) (models.User, error)
	ListUsersByRole(role models.UserRole) ([]models.User, error)
	DeleteUser(userID string) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (u *userRepository) CreateUser(username, email, password string, roles []models.UserRole) (models.User, error) {
	if len(roles) == 0 {
		roles = []models.UserRole{models.RoleViewer}
	}
	if !models.IsValidRoleList(roles) {
		return models.User{}, errors.New("invalid roles")
	}
	normalized := models.EnsureDefaultRole(models.NormalizeRoles(roles))

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
		Roles:        normalized,
	}

	query := `
		INSERT INTO users (username, email, password_hash, is_active, roles)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err = u.db.QueryRow(query, user.Username, user.Email, user.PasswordHash, user.IsActive, pq.Array(toStringSlice(user.Roles))).Scan(&user.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.User{}, apperr.ErrUserExisted
		}
		return models.User{}, err
	}

	return user, nil
}

func (u *userRepository) AuthenticateUser(username, password string) (models.User, error) {
	user, err := u.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, errors.New("invalid credentials")
		}
		return models.User{}, err
	}

	if !user.IsActive {
		return models.User{}, errors.New("user is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, errors.New("invalid credentials")
	}

	return user, nil
}

func (u *userRepository) GetUserByID(userID string) (models.User, error) {
	const query = `
		SELECT id, username, email, password_hash, is_active, roles
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`
	return u.scanUser(u.db.QueryRow(query, userID))
}

func (u *userRepository) GetUserByUsername(username string) (models.User, error) {
	const query = `
		SELECT id, username, email, password_hash, is_active, roles
		FROM users
		WHERE username = $1 AND deleted_at IS NULL`
	return u.scanUser(u.db.QueryRow(query, username))
}

// ListUsersByRole returns every active user holding the given role. The
// notification fan-out uses this to resolve its recipient set.
func (u *userRepository) ListUsersByRole(role models.UserRole) ([]models.User, error) {
	const query = `
		SELECT id, username, email, password_hash, is_active, roles
		FROM users
		WHERE $1 = ANY(roles) AND is_active = TRUE AND deleted_at IS NULL
		ORDER BY username`

	rows, err := u.db.Query(query, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var roles pq.StringArray
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsActive, &roles); err != nil {
			return nil, err
		}
		user.Roles = models.EnsureDefaultRole(toUserRoleSlice(roles))
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (u *userRepository) DeleteUser(userID string) error {
	const query = `
		UPDATE users
		SET is_active = FALSE, deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := u.db.Exec(query, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.ErrUserNotFound
	}

	return nil
}

func (u *userRepository) scanUser(row *sql.Row) (models.User, error) {
	var user models.User
	var roles pq.StringArray

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&roles,
	)
	if err != nil {
		return models.User{}, err
	}

	user.Roles = models.EnsureDefaultRole(models.NormalizeRoles(toUserRoleSlice(roles)))
	if !models.IsValidRoleList(user.Roles) {
		return models.User{}, errors.New("user has invalid roles")
	}

	return user, nil
}

func toStringSlice(roles []models.UserRole) []string {
	result := make([]string, 0, len(roles))
	for _, role := range roles {
		result = append(result, string(role))
	}
	return result
}

func toUserRoleSlice(roles []string) []models.UserRole {
	result := make([]models.UserRole, 0, len(roles))
	for _, role := range roles {
		result = append(result, models.UserRole(role))
	}
	return models.NormalizeRoles(result)
}
