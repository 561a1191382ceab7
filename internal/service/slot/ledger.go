package slot

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/medimeet/consult-api/internal/model"
	"github.com/medimeet/consult-api/internal/repository"
	apperrors "github.com/medimeet/consult-api/pkg/errors"
)

// Ledger tracks per-slot remaining capacity. All capacity mutations go
// through TryReserve and Release, which the storage backend executes as
// atomic per-record operations, so concurrent reservations against one slot
// can never oversell it.
type Ledger struct {
	repo repository.SlotRepository
}

func NewLedger(repo repository.SlotRepository) *Ledger {
	return &Ledger{repo: repo}
}

// TryReserve atomically tests capacity > 0 and decrements by exactly one.
// The outcome is definitive: a full slot is reported as such, never retried
// here, so the caller can choose a different slot.
func (l *Ledger) TryReserve(ctx context.Context, slotID uuid.UUID) error {
	err := l.repo.Reserve(ctx, slotID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("slot", err)
	case errors.Is(err, repository.ErrSlotFull):
		return apperrors.CapacityExceeded("slot is full")
	default:
		return apperrors.Internal(fmt.Errorf("reserve slot: %w", err))
	}
}

// Release undoes a reservation. Only used as compensation when booking
// persistence fails after a successful reserve.
func (l *Ledger) Release(ctx context.Context, slotID uuid.UUID) error {
	if err := l.repo.Release(ctx, slotID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("slot", err)
		}
		return apperrors.Internal(fmt.Errorf("release slot: %w", err))
	}
	return nil
}

func (l *Ledger) CreateSlot(ctx context.Context, doctorID uuid.UUID, req *model.CreateSlotRequest) (*model.Slot, error) {
	if req.Capacity < 1 {
		return nil, apperrors.BadRequest("capacity must be positive", nil)
	}

	slot := &model.Slot{
		DoctorID:     doctorID,
		TimeInterval: req.TimeInterval,
		Capacity:     req.Capacity,
	}
	if err := l.repo.Create(ctx, slot); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("create slot: %w", err))
	}
	return slot, nil
}

func (l *Ledger) GetSlot(ctx context.Context, slotID uuid.UUID) (*model.Slot, error) {
	slot, err := l.repo.Get(ctx, slotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("slot", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("get slot: %w", err))
	}
	return slot, nil
}

func (l *Ledger) ListSlots(ctx context.Context, doctorID uuid.UUID) ([]*model.Slot, error) {
	slots, err := l.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("list slots: %w", err))
	}
	return slots, nil
}
