package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medimeet/consult-api/internal/model"
	"github.com/medimeet/consult-api/internal/repository"
)

type userRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func NewUserRepository() repository.UserRepository {
	return &userRepository{users: make(map[uuid.UUID]*model.User)}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *user
	return &cp, nil
}
