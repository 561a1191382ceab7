package booking

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medimeet/consult-api/internal/model"
	"github.com/medimeet/consult-api/internal/repository"
	"github.com/medimeet/consult-api/internal/repository/memory"
	"github.com/medimeet/consult-api/internal/service/slot"
	apperrors "github.com/medimeet/consult-api/pkg/errors"
	"github.com/medimeet/consult-api/pkg/logger"
	"github.com/medimeet/consult-api/pkg/messaging"
	"github.com/medimeet/consult-api/pkg/metrics"
)

type bookingFixture struct {
	svc      *Service
	ledger   *slot.Ledger
	doctorID uuid.UUID
	slotID   uuid.UUID
}

func newBookingFixture(t *testing.T, repo repository.BookingRepository, capacity int) *bookingFixture {
	t.Helper()

	ledger := slot.NewLedger(memory.NewSlotRepository())
	doctorID := uuid.New()

	created, err := ledger.CreateSlot(context.Background(), doctorID, &model.CreateSlotRequest{
		TimeInterval: "2026-09-01T10:00/10:30",
		Capacity:     capacity,
	})
	require.NoError(t, err)

	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "consult", "api")
	svc := NewService(ledger, repo, &messaging.NopBroker{}, m, log)

	return &bookingFixture{svc: svc, ledger: ledger, doctorID: doctorID, slotID: created.ID}
}

func TestCreateBookingReservesAndPersists(t *testing.T) {
	fx := newBookingFixture(t, memory.NewBookingRepository(), 2)
	ctx := context.Background()
	patientID := uuid.New()

	booking, err := fx.svc.CreateBooking(ctx, patientID, model.RolePatient, &model.CreateBookingRequest{
		DoctorID: fx.doctorID,
		SlotID:   fx.slotID,
	})
	require.NoError(t, err)
	assert.Equal(t, patientID, booking.PatientID)
	assert.Equal(t, fx.doctorID, booking.DoctorID)
	assert.NotEqual(t, uuid.Nil, booking.ID)

	s, err := fx.ledger.GetSlot(ctx, fx.slotID)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Capacity)
}

func TestCreateBookingSlotFull(t *testing.T) {
	fx := newBookingFixture(t, memory.NewBookingRepository(), 1)
	ctx := context.Background()

	_, err := fx.svc.CreateBooking(ctx, uuid.New(), model.RolePatient, &model.CreateBookingRequest{
		DoctorID: fx.doctorID,
		SlotID:   fx.slotID,
	})
	require.NoError(t, err)

	_, err = fx.svc.CreateBooking(ctx, uuid.New(), model.RolePatient, &model.CreateBookingRequest{
		DoctorID: fx.doctorID,
		SlotID:   fx.slotID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCapacityExceeded))
}

func TestCreateBookingDoctorForbidden(t *testing.T) {
	fx := newBookingFixture(t, memory.NewBookingRepository(), 1)

	_, err := fx.svc.CreateBooking(context.Background(), uuid.New(), model.RoleDoctor, &model.CreateBookingRequest{
		DoctorID: fx.doctorID,
		SlotID:   fx.slotID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestCreateBookingUnknownSlot(t *testing.T) {
	fx := newBookingFixture(t, memory.NewBookingRepository(), 1)

	_, err := fx.svc.CreateBooking(context.Background(), uuid.New(), model.RolePatient, &model.CreateBookingRequest{
		DoctorID: fx.doctorID,
		SlotID:   uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

// When the booking write fails after a successful reserve, the reservation
// is released so the seat is not lost.
func TestCreateBookingCompensatesOnWriteFailure(t *testing.T) {
	fx := newBookingFixture(t, memory.NewFailingBookingRepository(), 1)
	ctx := context.Background()

	_, err := fx.svc.CreateBooking(ctx, uuid.New(), model.RolePatient, &model.CreateBookingRequest{
		DoctorID: fx.doctorID,
		SlotID:   fx.slotID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInternal))

	s, err := fx.ledger.GetSlot(ctx, fx.slotID)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Capacity)
}

func TestListBookingsByRole(t *testing.T) {
	fx := newBookingFixture(t, memory.NewBookingRepository(), 3)
	ctx := context.Background()

	patientA := uuid.New()
	patientB := uuid.New()

	for _, p := range []uuid.UUID{patientA, patientA, patientB} {
		_, err := fx.svc.CreateBooking(ctx, p, model.RolePatient, &model.CreateBookingRequest{
			DoctorID: fx.doctorID,
			SlotID:   fx.slotID,
		})
		require.NoError(t, err)
	}

	mine, err := fx.svc.ListBookings(ctx, patientA, model.RolePatient)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, b := range mine {
		assert.Equal(t, patientA, b.PatientID)
	}

	doctors, err := fx.svc.ListBookings(ctx, fx.doctorID, model.RoleDoctor)
	require.NoError(t, err)
	assert.Len(t, doctors, 3)

	other, err := fx.svc.ListBookings(ctx, uuid.New(), model.RoleDoctor)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestAddPrescription(t *testing.T) {
	fx := newBookingFixture(t, memory.NewBookingRepository(), 1)
	ctx := context.Background()

	booking, err := fx.svc.CreateBooking(ctx, uuid.New(), model.RolePatient, &model.CreateBookingRequest{
		DoctorID: fx.doctorID,
		SlotID:   fx.slotID,
	})
	require.NoError(t, err)

	req := &model.AddPrescriptionRequest{
		BookingID: booking.ID,
		Medicines: []model.Medicine{{Name: "paracetamol", Details: "500mg twice daily"}},
		Comments:  "rest and fluids",
	}

	updated, err := fx.svc.AddPrescription(ctx, fx.doctorID, model.RoleDoctor, req)
	require.NoError(t, err)
	require.NotNil(t, updated.PrescriptionID)
	assert.NotEqual(t, uuid.Nil, *updated.PrescriptionID)
}

// Patients never prescribe, not even on their own booking.
func TestAddPrescriptionPatientForbidden(t *testing.T) {
	fx := newBookingFixture(t, memory.NewBookingRepository(), 1)
	ctx := context.Background()
	patientID := uuid.New()

	booking, err := fx.svc.CreateBooking(ctx, patientID, model.RolePatient, &model.CreateBookingRequest{
		DoctorID: fx.doctorID,
		SlotID:   fx.slotID,
	})
	require.NoError(t, err)

	_, err = fx.svc.AddPrescription(ctx, patientID, model.RolePatient, &model.AddPrescriptionRequest{
		BookingID: booking.ID,
		Medicines: []model.Medicine{{Name: "ibuprofen"}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestAddPrescriptionWrongDoctor(t *testing.T) {
	fx := newBookingFixture(t, memory.NewBookingRepository(), 1)
	ctx := context.Background()

	booking, err := fx.svc.CreateBooking(ctx, uuid.New(), model.RolePatient, &model.CreateBookingRequest{
		DoctorID: fx.doctorID,
		SlotID:   fx.slotID,
	})
	require.NoError(t, err)

	_, err = fx.svc.AddPrescription(ctx, uuid.New(), model.RoleDoctor, &model.AddPrescriptionRequest{
		BookingID: booking.ID,
		Medicines: []model.Medicine{{Name: "ibuprofen"}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestAddPrescriptionBookingNotFound(t *testing.T) {
	fx := newBookingFixture(t, memory.NewBookingRepository(), 1)

	_, err := fx.svc.AddPrescription(context.Background(), fx.doctorID, model.RoleDoctor, &model.AddPrescriptionRequest{
		BookingID: uuid.New(),
		Medicines: []model.Medicine{{Name: "ibuprofen"}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
