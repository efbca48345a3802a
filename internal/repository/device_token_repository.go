package repository

import (
	"context"

	"github.com/kamal24h/key-building-app/internal/db"
)

type DeviceTokenRepository struct {
	DB *db.Postgres
}

type RegisterTokenInput struct {
	UserID   *int64
	Token    string
	Platform string
}

func (r DeviceTokenRepository) Register(ctx context.Context, in RegisterTokenInput) error {
	_, err := r.DB.Pool.Exec(ctx, `
		INSERT INTO fcm_tokens (user_id, token, platform, created_at)
		VALUES ($1,$2,$3, now())
		ON CONFLICT (token) DO UPDATE SET user_id=EXCLUDED.user_id, platform=EXCLUDED.platform
	`, in.UserID, in.Token, in.Platform)
	return err
}

// ListByUsers returns the device tokens registered by any of the given users.
func (r DeviceTokenRepository) ListByUsers(ctx context.Context, userIDs []int64) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT token FROM fcm_tokens WHERE user_id = ANY($1)
	`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
