// Package memory holds in-process implementations of the repository
// interfaces. They back unit tests and the dev-mode server; correctness
// under concurrency comes from a per-store mutex guarding each
// check-and-set, mirroring the conditional updates of the postgres backend.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medimeet/consult-api/internal/model"
	"github.com/medimeet/consult-api/internal/repository"
)

type slotRepository struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*model.Slot
}

func NewSlotRepository() repository.SlotRepository {
	return &slotRepository{slots: make(map[uuid.UUID]*model.Slot)}
}

func (r *slotRepository) Create(ctx context.Context, slot *model.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	slot.CreatedAt = time.Now()
	slot.UpdatedAt = slot.CreatedAt

	cp := *slot
	r.slots[slot.ID] = &cp
	return nil
}

func (r *slotRepository) Get(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *slot
	return &cp, nil
}

func (r *slotRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var slots []*model.Slot
	for _, slot := range r.slots {
		if slot.DoctorID == doctorID {
			cp := *slot
			slots = append(slots, &cp)
		}
	}
	return slots, nil
}

func (r *slotRepository) Reserve(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[id]
	if !ok {
		return repository.ErrNotFound
	}
	if slot.Capacity <= 0 {
		return repository.ErrSlotFull
	}
	slot.Capacity--
	slot.UpdatedAt = time.Now()
	return nil
}

func (r *slotRepository) Release(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[id]
	if !ok {
		return repository.ErrNotFound
	}
	slot.Capacity++
	slot.UpdatedAt = time.Now()
	return nil
}
