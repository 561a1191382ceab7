package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medimeet/consult-api/internal/model"
	"github.com/medimeet/consult-api/internal/repository"
	"github.com/medimeet/consult-api/internal/service/slot"
	apperrors "github.com/medimeet/consult-api/pkg/errors"
	"github.com/medimeet/consult-api/pkg/logger"
	"github.com/medimeet/consult-api/pkg/messaging"
	"github.com/medimeet/consult-api/pkg/metrics"
)

// Service coordinates slot reservation with booking persistence. The two
// writes are not a storage-level transaction; instead the reserve is
// compensated with a release whenever the booking write fails, so capacity
// is never lost.
type Service struct {
	ledger  *slot.Ledger
	repo    repository.BookingRepository
	broker  messaging.Broker
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(ledger *slot.Ledger, repo repository.BookingRepository, broker messaging.Broker, m *metrics.Metrics, l *logger.Logger) *Service {
	return &Service{
		ledger:  ledger,
		repo:    repo,
		broker:  broker,
		metrics: m,
		logger:  l,
	}
}

// CreateBooking reserves the slot, then persists the booking. Only patients
// book slots. A full slot and a missing slot are distinct outcomes so the
// client can steer the user accordingly.
func (s *Service) CreateBooking(ctx context.Context, patientID uuid.UUID, role model.Role, req *model.CreateBookingRequest) (*model.Booking, error) {
	start := time.Now()

	if role != model.RolePatient {
		return nil, apperrors.Forbidden("only patients can book slots", nil)
	}
	if req.SlotID == uuid.Nil || req.DoctorID == uuid.Nil {
		return nil, apperrors.BadRequest("doctor_id and slot_id are required", nil)
	}

	if err := s.ledger.TryReserve(ctx, req.SlotID); err != nil {
		switch apperrors.CodeOf(err) {
		case apperrors.ErrCapacityExceeded:
			s.metrics.ReservationsTotal.WithLabelValues(metrics.OutcomeSlotFull).Inc()
		case apperrors.ErrNotFound:
			s.metrics.ReservationsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
		default:
			s.metrics.ReservationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		}
		return nil, err
	}

	booking := &model.Booking{
		PatientID: patientID,
		DoctorID:  req.DoctorID,
		SlotID:    req.SlotID,
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		// Persistence failed after the decrement: give the seat back
		// before surfacing the fault.
		if relErr := s.ledger.Release(ctx, req.SlotID); relErr != nil {
			s.logger.Error(relErr, "failed to release slot after booking write failure",
				"slot_id", req.SlotID.String())
		} else {
			s.metrics.SlotReleases.Inc()
		}
		s.logger.Error(err, "failed to persist booking", "slot_id", req.SlotID.String())
		s.metrics.ReservationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, apperrors.Internal(fmt.Errorf("create booking: %w", err))
	}

	s.metrics.ReservationsTotal.WithLabelValues(metrics.OutcomeReserved).Inc()
	s.metrics.ReservationLatency.Observe(time.Since(start).Seconds())

	if err := s.broker.Publish(ctx, messaging.ChannelBookingCreated, booking); err != nil {
		s.logger.Error(err, "failed to publish booking event", "booking_id", booking.ID.String())
	}

	return booking, nil
}

// ListBookings returns the caller's bookings in insertion order: patients
// see the bookings they made, doctors the bookings made against them.
func (s *Service) ListBookings(ctx context.Context, userID uuid.UUID, role model.Role) ([]*model.Booking, error) {
	var (
		bookings []*model.Booking
		err      error
	)
	switch role {
	case model.RolePatient:
		bookings, err = s.repo.ListByPatient(ctx, userID)
	case model.RoleDoctor:
		bookings, err = s.repo.ListByDoctor(ctx, userID)
	default:
		return nil, apperrors.Forbidden("unknown role", nil)
	}
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("list bookings: %w", err))
	}
	return bookings, nil
}

// AddPrescription attaches or replaces the prescription on a booking. Only
// the doctor the booking belongs to may do this; a patient caller is always
// refused, regardless of ownership.
func (s *Service) AddPrescription(ctx context.Context, callerID uuid.UUID, role model.Role, req *model.AddPrescriptionRequest) (*model.Booking, error) {
	if role == model.RolePatient {
		return nil, apperrors.Forbidden("patients cannot add prescriptions", nil)
	}
	if role != model.RoleDoctor {
		return nil, apperrors.Forbidden("unknown role", nil)
	}

	booking, err := s.repo.Get(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("booking", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("get booking: %w", err))
	}

	if booking.DoctorID != callerID {
		return nil, apperrors.Forbidden("doctor not attached to this booking", nil)
	}

	prescription := &model.Prescription{
		Medicines: req.Medicines,
		Comments:  req.Comments,
	}
	if err := s.repo.CreatePrescription(ctx, prescription); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("create prescription: %w", err))
	}

	if err := s.repo.SetPrescription(ctx, booking.ID, prescription.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("booking", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("attach prescription: %w", err))
	}

	booking.PrescriptionID = &prescription.ID
	return booking, nil
}
