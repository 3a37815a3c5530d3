package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"shuttle/internal/catalog"
	"shuttle/internal/domain"
	"shuttle/internal/domain/models"
	"shuttle/internal/lock"
	"shuttle/internal/mirror"
	"shuttle/internal/notify"
	"shuttle/internal/repositories"

	"github.com/stretchr/testify/require"
)

const (
	testSecret = "marq-admin-2026"
	travelDate = "2026-03-02"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.BookingNotification
}

func (r *recordingNotifier) NotifyBooking(_ context.Context, n notify.BookingNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type harness struct {
	state     *repositories.MemoryStateStore
	store     *repositories.BookingStore
	catalog   *catalog.Catalog
	tasks     *Tasks
	sync      *SyncService
	admission *AdmissionService
	admin     *AdminService
	notifier  *recordingNotifier
}

func newHarness(t *testing.T, m mirror.Mirror) *harness {
	t.Helper()
	state := repositories.NewMemoryStateStore()
	return newHarnessOn(t, m, state, state)
}

// newHarnessOn builds the services over backend, which may wrap state.
func newHarnessOn(t *testing.T, m mirror.Mirror, state *repositories.MemoryStateStore, backend repositories.StateStore) *harness {
	t.Helper()
	store := repositories.NewBookingStore(backend, 0)
	require.NoError(t, store.Load(context.Background()))

	cat := catalog.Default()
	locker := lock.NewLocal()
	tasks := NewTasks(2 * time.Second)
	syncSvc := NewSyncService(m, store, cat, locker, tasks)
	rec := &recordingNotifier{}

	adm := &AdmissionService{
		Catalog:  cat,
		Store:    store,
		Capacity: CapacityService{Catalog: cat, Seats: store},
		Locker:   locker,
		Sync:     syncSvc,
		Notifier: rec,
		Tasks:    tasks,
		FareRate: 35,
		now:      func() time.Time { return fixedNow },
	}
	auth, err := NewAdminAuth(testSecret, "", "test-jwt-secret")
	require.NoError(t, err)

	admin := &AdminService{
		Store:     store,
		Catalog:   cat,
		Admission: adm,
		Sync:      syncSvc,
		Locker:    locker,
		Auth:      auth,
		now:       func() time.Time { return fixedNow },
	}
	return &harness{state: state, store: store, catalog: cat, tasks: tasks, sync: syncSvc, admission: adm, admin: admin, notifier: rec}
}

func (h *harness) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.tasks.Drain(ctx))
}

// seed writes bookings straight into the store, bypassing admission.
func (h *harness) seed(t *testing.T, slotID, date string, passengers ...int) {
	t.Helper()
	for i, p := range passengers {
		b := models.Booking{
			ID:          slotID + "-" + date + "-" + string(rune('a'+i)),
			SlotID:      slotID,
			TravelDate:  date,
			BookingType: domain.BookingSingle,
			Passengers:  p,
			Status:      domain.StatusConfirmed,
			CreatedAt:   fixedNow,
		}
		require.NoError(t, h.store.Append(context.Background(), b))
	}
}

func single(slotID string, dir domain.Direction, passengers int) models.Submission {
	return models.Submission{
		BookingType:     domain.BookingSingle,
		Direction:       dir,
		SlotIDs:         []string{slotID},
		TravelDate:      travelDate,
		Passengers:      passengers,
		Contact:         models.Contact{FullName: "Asha Rao", Phone: "+91 98450 12345", Unit: "B-1204", Email: "asha@example.com"},
		PaymentProofRef: "proof.png",
		TermsAccepted:   true,
	}
}

func roundTrip(outbound, ret string, passengers int) models.Submission {
	sub := single(outbound, "", passengers)
	sub.BookingType = domain.BookingRoundTrip
	sub.SlotIDs = []string{outbound, ret}
	return sub
}
