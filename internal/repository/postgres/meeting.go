package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/medimeet/consult-api/internal/model"
	"github.com/medimeet/consult-api/internal/repository"
)

type meetingRepository struct {
	db *sqlx.DB
}

func NewMeetingRepository(db *sqlx.DB) repository.MeetingRepository {
	return &meetingRepository{db: db}
}

// meetingRow maps the rejected_by uuid array through pq before conversion.
type meetingRow struct {
	ID             uuid.UUID           `db:"id"`
	PatientID      uuid.UUID           `db:"patient_id"`
	DoctorID       *uuid.UUID          `db:"doctor_id"`
	Specialization string              `db:"specialization"`
	Status         model.MeetingStatus `db:"status"`
	RejectedBy     pq.StringArray      `db:"rejected_by"`
	CreatedAt      time.Time           `db:"created_at"`
}

func (row *meetingRow) toModel() (*model.Meeting, error) {
	rejected := make([]uuid.UUID, 0, len(row.RejectedBy))
	for _, raw := range row.RejectedBy {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid doctor id in rejected_by: %w", err)
		}
		rejected = append(rejected, id)
	}
	return &model.Meeting{
		ID:             row.ID,
		PatientID:      row.PatientID,
		DoctorID:       row.DoctorID,
		Specialization: row.Specialization,
		Status:         row.Status,
		RejectedBy:     rejected,
		CreatedAt:      row.CreatedAt,
	}, nil
}

func (r *meetingRepository) Create(ctx context.Context, meeting *model.Meeting) error {
	query := `
		INSERT INTO meetings (id, patient_id, doctor_id, specialization, status, rejected_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if meeting.ID == uuid.Nil {
		meeting.ID = uuid.New()
	}
	meeting.Status = model.MeetingStatusPending
	meeting.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		meeting.ID,
		meeting.PatientID,
		meeting.DoctorID,
		meeting.Specialization,
		meeting.Status,
		pq.StringArray{},
		meeting.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}
	return nil
}

func (r *meetingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Meeting, error) {
	query := `
		SELECT id, patient_id, doctor_id, specialization, status, rejected_by, created_at
		FROM meetings
		WHERE id = $1
	`
	var row meetingRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return row.toModel()
}

// FindCandidate is a single indexed query over pending meetings: the
// doctor's specialization order ranks first, creation time second. This
// avoids one storage round trip per specialization.
func (r *meetingRepository) FindCandidate(ctx context.Context, doctorID uuid.UUID, specs []string) (*model.Meeting, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, patient_id, doctor_id, specialization, status, rejected_by, created_at
		FROM meetings
		WHERE status = 'pending'
		AND specialization = ANY($1)
		AND NOT ($2::uuid = ANY(rejected_by))
		AND (doctor_id IS NULL OR doctor_id = $2)
		ORDER BY array_position($1, specialization), created_at ASC
		LIMIT 1
	`
	var row meetingRow
	err := r.db.GetContext(ctx, &row, query, pq.StringArray(specs), doctorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find candidate meeting: %w", err)
	}
	return row.toModel()
}

func (r *meetingRepository) GetMatchedForDoctor(ctx context.Context, doctorID uuid.UUID) (*model.Meeting, error) {
	query := `
		SELECT id, patient_id, doctor_id, specialization, status, rejected_by, created_at
		FROM meetings
		WHERE status = 'matched' AND doctor_id = $1
		ORDER BY created_at ASC
		LIMIT 1
	`
	var row meetingRow
	err := r.db.GetContext(ctx, &row, query, doctorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get matched meeting: %w", err)
	}
	return row.toModel()
}

// Match is the atomic claim: the status=pending guard makes sure exactly one
// of two racing doctors wins. A doctor who rejected the meeting cannot claim
// it.
func (r *meetingRepository) Match(ctx context.Context, meetingID, doctorID uuid.UUID) error {
	query := `
		UPDATE meetings
		SET status = 'matched', doctor_id = $2
		WHERE id = $1
		AND status = 'pending'
		AND (doctor_id IS NULL OR doctor_id = $2)
		AND NOT ($2::uuid = ANY(rejected_by))
	`
	result, err := r.db.ExecContext(ctx, query, meetingID, doctorID)
	if err != nil {
		return fmt.Errorf("failed to match meeting: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	if _, err := r.Get(ctx, meetingID); err != nil {
		return err
	}
	return repository.ErrMeetingNotPending
}

func (r *meetingRepository) AddRejection(ctx context.Context, meetingID, doctorID uuid.UUID) error {
	// array_append is guarded so repeated rejections by the same doctor
	// leave exactly one entry.
	query := `
		UPDATE meetings
		SET rejected_by = array_append(rejected_by, $2)
		WHERE id = $1
		AND status = 'pending'
		AND NOT ($2::uuid = ANY(rejected_by))
	`
	result, err := r.db.ExecContext(ctx, query, meetingID, doctorID)
	if err != nil {
		return fmt.Errorf("failed to add rejection: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	// Already rejected is fine; a missing meeting is not.
	if _, err := r.Get(ctx, meetingID); err != nil {
		return err
	}
	return nil
}

func (r *meetingRepository) Delete(ctx context.Context, meetingID uuid.UUID) error {
	query := `
		UPDATE meetings
		SET status = 'terminated'
		WHERE id = $1 AND status != 'terminated'
	`
	result, err := r.db.ExecContext(ctx, query, meetingID)
	if err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
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
