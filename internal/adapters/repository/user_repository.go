package repository

import (
	"context"
	"sort"

	"github.com/mallmap/core/internal/domain/entities"
	"github.com/mallmap/core/internal/ports"
)

// UserRepositoryImpl implements the UserRepository interface over a fixed
// account list loaded from configuration.
type UserRepositoryImpl struct {
	users map[string]entities.User
}

// NewUserRepository creates a new user repository
func NewUserRepository(users []entities.User) ports.UserRepository {
	byName := make(map[string]entities.User, len(users))
	for _, u := range users {
		byName[u.Username] = u
	}
	return &UserRepositoryImpl{users: byName}
}

func (r *UserRepositoryImpl) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, entities.ErrInvalidCredentials
	}
	return &u, nil
}

func (r *UserRepositoryImpl) List(ctx context.Context) []entities.User {
	out := make([]entities.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}
