package repository

import (
	"context"

	"github.com/kamal24h/key-building-app/internal/domain"
)

// EnsureAdmin seeds an initial admin profile so a fresh deployment has at
// least one account that can manage buildings and charges.
func (r ProfileRepository) EnsureAdmin(ctx context.Context, email string) error {
	if email == "" {
		return nil
	}
	_, err := r.DB.Pool.Exec(ctx, `
		INSERT INTO user_profiles (name, email, phone, role, created_at, updated_at)
		VALUES ('Administrator', $1, '', $2, now(), now())
		ON CONFLICT (email) DO NOTHING
	`, email, domain.RoleAdmin)
	return err
}
