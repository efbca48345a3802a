package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/kamal24h/key-building-app/internal/db"
	"github.com/kamal24h/key-building-app/internal/domain"
)

type ProfileRepository struct {
	DB *db.Postgres
}

type CreateProfileParams struct {
	Name  string
	Email string
	Phone string
	Role  domain.UserRole
}

func (r ProfileRepository) Create(ctx context.Context, p CreateProfileParams) (*domain.UserProfile, error) {
	query := `
		INSERT INTO user_profiles (name, email, phone, role, created_at, updated_at)
		VALUES ($1,$2,$3,$4, now(), now())
		RETURNING id, name, email, phone, role, created_at, updated_at
	`
	row := r.DB.Pool.QueryRow(ctx, query, p.Name, p.Email, p.Phone, p.Role)
	return scanProfile(row)
}

func (r ProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	query := `
		SELECT id, name, email, phone, role, created_at, updated_at
		FROM user_profiles
		WHERE email=$1 AND deleted_at IS NULL
	`
	profile, err := scanProfile(r.DB.Pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return profile, nil
}

func (r ProfileRepository) GetByID(ctx context.Context, id int64) (*domain.UserProfile, error) {
	query := `
		SELECT id, name, email, phone, role, created_at, updated_at
		FROM user_profiles
		WHERE id=$1 AND deleted_at IS NULL
	`
	profile, err := scanProfile(r.DB.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return profile, nil
}

// List returns profiles, optionally narrowed to one role. A non-positive
// limit returns everything; the full profile set is the audience universe
// for announcement targeting.
func (r ProfileRepository) List(ctx context.Context, role *domain.UserRole, limit int) ([]domain.UserProfile, error) {
	var roleArg *string
	if role != nil {
		s := string(*role)
		roleArg = &s
	}
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, name, email, phone, role, created_at, updated_at
		FROM user_profiles
		WHERE deleted_at IS NULL AND ($1::text IS NULL OR role = $1)
		ORDER BY name, id
		LIMIT NULLIF($2, 0)
	`, roleArg, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.UserProfile
	for rows.Next() {
		var p domain.UserProfile
		var roleStr string
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &roleStr, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Role = domain.UserRole(roleStr)
		items = append(items, p)
	}
	return items, rows.Err()
}

func scanProfile(row interface {
	Scan(dest ...any) error
}) (*domain.UserProfile, error) {
	var (
		p    domain.UserProfile
		role string
	)
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&role,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Role = domain.UserRole(role)
	return &p, nil
}

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// IsDuplicate detects unique constraint violation.
func IsDuplicate(err error) bool {
	return db.IsUniqueViolation(err)
}
