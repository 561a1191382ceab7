package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medimeet/consult-api/internal/model"
	"github.com/medimeet/consult-api/internal/repository"
)

type slotRepository struct {
	db *sqlx.DB
}

func NewSlotRepository(db *sqlx.DB) repository.SlotRepository {
	return &slotRepository{db: db}
}

func (r *slotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO slots (id, doctor_id, time_interval, capacity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	slot.CreatedAt = time.Now()
	slot.UpdatedAt = slot.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		slot.ID,
		slot.DoctorID,
		slot.TimeInterval,
		slot.Capacity,
		slot.CreatedAt,
		slot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}
	return nil
}

func (r *slotRepository) Get(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	query := `
		SELECT id, doctor_id, time_interval, capacity, created_at, updated_at
		FROM slots
		WHERE id = $1
	`
	var slot model.Slot
	err := r.db.GetContext(ctx, &slot, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return &slot, nil
}

func (r *slotRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Slot, error) {
	query := `
		SELECT id, doctor_id, time_interval, capacity, created_at, updated_at
		FROM slots
		WHERE doctor_id = $1
		ORDER BY created_at ASC
	`
	var slots []*model.Slot
	err := r.db.SelectContext(ctx, &slots, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

// Reserve relies on a conditional update so the test-and-decrement is a
// single indivisible step; capacity can never go below zero.
func (r *slotRepository) Reserve(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE slots
		SET capacity = capacity - 1, updated_at = $2
		WHERE id = $1 AND capacity > 0
	`
	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to reserve slot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	// No row matched: either the slot is gone or it was already full.
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return repository.ErrSlotFull
}

func (r *slotRepository) Release(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE slots
		SET capacity = capacity + 1, updated_at = $2
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
