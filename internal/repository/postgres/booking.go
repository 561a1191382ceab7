package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medimeet/consult-api/internal/model"
	"github.com/medimeet/consult-api/internal/repository"
)

type bookingRepository struct {
	db *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (id, patient_id, doctor_id, slot_id, prescription_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		booking.ID,
		booking.PatientID,
		booking.DoctorID,
		booking.SlotID,
		booking.PrescriptionID,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `
		SELECT id, patient_id, doctor_id, slot_id, prescription_id, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`
	var booking model.Booking
	err := r.db.GetContext(ctx, &booking, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (r *bookingRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Booking, error) {
	return r.list(ctx, "patient_id", patientID)
}

func (r *bookingRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Booking, error) {
	return r.list(ctx, "doctor_id", doctorID)
}

func (r *bookingRepository) list(ctx context.Context, column string, id uuid.UUID) ([]*model.Booking, error) {
	query := fmt.Sprintf(`
		SELECT id, patient_id, doctor_id, slot_id, prescription_id, created_at, updated_at
		FROM bookings
		WHERE %s = $1
		ORDER BY created_at ASC
	`, column)

	var bookings []*model.Booking
	err := r.db.SelectContext(ctx, &bookings, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) CreatePrescription(ctx context.Context, prescription *model.Prescription) error {
	medicines, err := json.Marshal(prescription.Medicines)
	if err != nil {
		return fmt.Errorf("failed to marshal medicines: %w", err)
	}

	query := `
		INSERT INTO prescriptions (id, medicines, comments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if prescription.ID == uuid.Nil {
		prescription.ID = uuid.New()
	}
	prescription.CreatedAt = time.Now()
	prescription.UpdatedAt = prescription.CreatedAt

	_, err = r.db.ExecContext(ctx, query,
		prescription.ID,
		medicines,
		prescription.Comments,
		prescription.CreatedAt,
		prescription.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create prescription: %w", err)
	}
	return nil
}

func (r *bookingRepository) SetPrescription(ctx context.Context, bookingID, prescriptionID uuid.UUID) error {
	query := `
		UPDATE bookings
		SET prescription_id = $2, updated_at = $3
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, bookingID, prescriptionID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set prescription: %w", err)
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
