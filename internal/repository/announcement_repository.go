package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kamal24h/key-building-app/internal/db"
	"github.com/kamal24h/key-building-app/internal/domain"
)

type AnnouncementRepository struct {
	DB *db.Postgres
}

type CreateAnnouncementInput struct {
	Title            string
	Content          string
	Category         string
	Priority         domain.Priority
	TargetRole       domain.TargetRole
	TargetBuildingID *int64
	Status           domain.AnnouncementStatus
	CreatedBy        int64
	PublishedAt      *time.Time
}

type UpdateAnnouncementInput struct {
	ID               int64
	Title            string
	Content          string
	Category         string
	Priority         domain.Priority
	TargetRole       domain.TargetRole
	TargetBuildingID *int64
}

const announcementColumns = `id, title, content, category, priority, target_role, target_building_id,
	status, created_by, published_at, created_at, updated_at`

func (r AnnouncementRepository) Create(ctx context.Context, in CreateAnnouncementInput) (*domain.Announcement, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO announcements
		(title, content, category, priority, target_role, target_building_id, status, created_by, published_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, now(), now())
		RETURNING `+announcementColumns+`
	`, in.Title, in.Content, in.Category, in.Priority, in.TargetRole, in.TargetBuildingID, in.Status, in.CreatedBy, in.PublishedAt)
	return scanAnnouncement(row)
}

func (r AnnouncementRepository) Update(ctx context.Context, in UpdateAnnouncementInput) (*domain.Announcement, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE announcements
		SET title=$2, content=$3, category=$4, priority=$5, target_role=$6, target_building_id=$7, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING `+announcementColumns+`
	`, in.ID, in.Title, in.Content, in.Category, in.Priority, in.TargetRole, in.TargetBuildingID)
	a, err := scanAnnouncement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// SetStatus moves an announcement through its lifecycle. publishedAt is only
// written on the draft → published transition.
func (r AnnouncementRepository) SetStatus(ctx context.Context, id int64, status domain.AnnouncementStatus, publishedAt *time.Time) (*domain.Announcement, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE announcements
		SET status=$2, published_at=COALESCE($3, published_at), updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING `+announcementColumns+`
	`, id, status, publishedAt)
	a, err := scanAnnouncement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r AnnouncementRepository) GetByID(ctx context.Context, id int64) (*domain.Announcement, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT `+announcementColumns+`
		FROM announcements
		WHERE id=$1 AND deleted_at IS NULL
	`, id)
	a, err := scanAnnouncement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

type AnnouncementFilter struct {
	Status   *domain.AnnouncementStatus
	Priority *domain.Priority
	Limit    int
}

func (r AnnouncementRepository) List(ctx context.Context, f AnnouncementFilter) ([]domain.Announcement, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+announcementColumns+`
		FROM announcements
		WHERE deleted_at IS NULL
		  AND ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR priority = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, f.Status, f.Priority, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}
	return items, rows.Err()
}

func scanAnnouncement(row interface {
	Scan(dest ...any) error
}) (*domain.Announcement, error) {
	var (
		a           domain.Announcement
		priority    string
		targetRole  string
		status      string
		buildingID  pgtype.Int8
		publishedAt pgtype.Timestamptz
	)
	if err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Content,
		&a.Category,
		&priority,
		&targetRole,
		&buildingID,
		&status,
		&a.CreatedBy,
		&publishedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Priority = domain.Priority(priority)
	a.TargetRole = domain.TargetRole(targetRole)
	a.Status = domain.AnnouncementStatus(status)
	if buildingID.Valid {
		a.TargetBuildingID = &buildingID.Int64
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		a.PublishedAt = &t
	}
	return &a, nil
}
