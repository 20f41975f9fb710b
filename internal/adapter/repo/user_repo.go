package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vessel/internal/domain"
)

// UserRepositoryPG implements domain.UserStore using PostgreSQL. Registration,
// authentication and KYC are external; this adapter resolves settlement
// addresses and catalyst eligibility.
type UserRepositoryPG struct {
	db DB
}

// NewUserRepository creates a new user store.
func NewUserRepository(db DB) *UserRepositoryPG {
	return &UserRepositoryPG{db: db}
}

// GetByID fetches a user by identifier.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, `
SELECT id, email, role, wallet_address, catalyst_unlocked
FROM users
WHERE id = $1;
`, id).Scan(&u.ID, &u.Email, &u.Role, &u.WalletAddress, &u.CatalystUnlocked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// IsCatalystUnlocked reports whether the investor passed the risk
// questionnaire gate for the catalyst tranche.
func (r *UserRepositoryPG) IsCatalystUnlocked(ctx context.Context, userID string) (bool, error) {
	var unlocked bool
	err := r.db.QueryRow(ctx, `
SELECT catalyst_unlocked FROM users WHERE id = $1;
`, userID).Scan(&unlocked)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return unlocked, err
}
