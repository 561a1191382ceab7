package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medimeet/consult-api/internal/model"
	"github.com/medimeet/consult-api/internal/repository"
)

type bookingRepository struct {
	mu            sync.Mutex
	bookings      map[uuid.UUID]*model.Booking
	order         []uuid.UUID
	prescriptions map[uuid.UUID]*model.Prescription

	// failCreate forces Create to fail; used to exercise the booking
	// compensation path in tests.
	failCreate bool
}

func NewBookingRepository() repository.BookingRepository {
	return &bookingRepository{
		bookings:      make(map[uuid.UUID]*model.Booking),
		prescriptions: make(map[uuid.UUID]*model.Prescription),
	}
}

// NewFailingBookingRepository returns a repository whose Create always
// fails, simulating a storage fault after a successful slot reserve.
func NewFailingBookingRepository() repository.BookingRepository {
	return &bookingRepository{
		bookings:      make(map[uuid.UUID]*model.Booking),
		prescriptions: make(map[uuid.UUID]*model.Prescription),
		failCreate:    true,
	}
}

var errStorageFault = &storageFault{}

type storageFault struct{}

func (e *storageFault) Error() string { return "storage fault" }

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failCreate {
		return errStorageFault
	}

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	cp := *booking
	r.bookings[booking.ID] = &cp
	r.order = append(r.order, booking.ID)
	return nil
}

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *booking
	return &cp, nil
}

func (r *bookingRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Booking, error) {
	return r.list(func(b *model.Booking) bool { return b.PatientID == patientID })
}

func (r *bookingRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Booking, error) {
	return r.list(func(b *model.Booking) bool { return b.DoctorID == doctorID })
}

func (r *bookingRepository) list(match func(*model.Booking) bool) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var bookings []*model.Booking
	for _, id := range r.order {
		if b := r.bookings[id]; match(b) {
			cp := *b
			bookings = append(bookings, &cp)
		}
	}
	return bookings, nil
}

func (r *bookingRepository) CreatePrescription(ctx context.Context, prescription *model.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prescription.ID == uuid.Nil {
		prescription.ID = uuid.New()
	}
	prescription.CreatedAt = time.Now()
	prescription.UpdatedAt = prescription.CreatedAt

	cp := *prescription
	r.prescriptions[prescription.ID] = &cp
	return nil
}

func (r *bookingRepository) SetPrescription(ctx context.Context, bookingID, prescriptionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[bookingID]
	if !ok {
		return repository.ErrNotFound
	}
	id := prescriptionID
	booking.PrescriptionID = &id
	booking.UpdatedAt = time.Now()
	return nil
}
