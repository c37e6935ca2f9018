package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/vet-clinic/internal/clock"
	"github.com/hackgods/vet-clinic/internal/lock"
	"github.com/hackgods/vet-clinic/internal/validation"
)

type memRepo struct {
	mu           sync.Mutex
	appts        []*Appointment
	vets         map[uuid.UUID]string
	pets         map[uuid.UUID]string
	candidateHit int
	onCreate     func(*Appointment)
}

func newMemRepo() *memRepo {
	return &memRepo{vets: map[uuid.UUID]string{}, pets: map[uuid.UUID]string{}}
}

func (m *memRepo) ListVetDayCandidates(_ context.Context, clinicID, vetID uuid.UUID, date time.Time, _ *uuid.UUID) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidateHit++

	// Deliberately unfiltered by status so the service-side filter is exercised.
	var out []Appointment
	for _, a := range m.appts {
		if a.ClinicID == clinicID && a.VetID == vetID && a.Date.Equal(date) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memRepo) GetAppointmentByID(_ context.Context, clinicID, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.ID == id && a.ClinicID == clinicID && a.Live() {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (m *memRepo) ListAppointments(_ context.Context, clinicID uuid.UUID, f Filter) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.appts {
		if a.ClinicID != clinicID || !a.Live() {
			continue
		}
		if f.PetID != nil && a.PetID != *f.PetID {
			continue
		}
		if f.VetID != nil && a.VetID != *f.VetID {
			continue
		}
		if f.Date != nil && !a.Date.Equal(*f.Date) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *memRepo) CreateAppointment(_ context.Context, a *Appointment) error {
	if m.onCreate != nil {
		m.onCreate(a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.appts = append(m.appts, &cp)
	return nil
}

func (m *memRepo) UpdateAppointment(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.appts {
		if existing.ID == a.ID {
			cp := *a
			m.appts[i] = &cp
			return nil
		}
	}
	return ErrAppointmentNotFound
}

func (m *memRepo) SoftDeleteAppointment(_ context.Context, clinicID, id uuid.UUID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.ID == id && a.ClinicID == clinicID {
			if !a.Live() {
				return false, nil
			}
			a.DeletedAt, a.UpdatedAt = &now, now
			return true, nil
		}
	}
	return false, ErrAppointmentNotFound
}

func (m *memRepo) GetVetName(_ context.Context, id uuid.UUID) (string, error) {
	if name, ok := m.vets[id]; ok {
		return name, nil
	}
	return "", ErrVetNotFound
}

func (m *memRepo) GetPetName(_ context.Context, id uuid.UUID) (string, error) {
	if name, ok := m.pets[id]; ok {
		return name, nil
	}
	return "", ErrPetNotFound
}

func (m *memRepo) LastCompletedForPet(_ context.Context, clinicID, petID uuid.UUID) (*Appointment, error) {
	var last *Appointment
	for _, a := range m.appts {
		if a.ClinicID == clinicID && a.PetID == petID && a.Status == StatusCompleted && a.Live() {
			if last == nil || a.Date.After(last.Date) {
				last = a
			}
		}
	}
	if last == nil {
		return nil, ErrAppointmentNotFound
	}
	return last, nil
}

func (m *memRepo) NextScheduledForPet(_ context.Context, clinicID, petID uuid.UUID, from time.Time) (*Appointment, error) {
	var next *Appointment
	for _, a := range m.appts {
		if a.ClinicID == clinicID && a.PetID == petID && a.Status == StatusScheduled && a.Live() && !a.Date.Before(from) {
			if next == nil || a.Date.Before(next.Date) {
				next = a
			}
		}
	}
	if next == nil {
		return nil, ErrAppointmentNotFound
	}
	return next, nil
}

type recordedEvent struct {
	eventType string
	id        uuid.UUID
}

type memRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *memRecorder) Record(_ context.Context, eventType string, id uuid.UUID, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{eventType, id})
}

func (r *memRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.eventType)
	}
	return out
}

type busyLocker struct{}

func (busyLocker) WithVetDayLock(context.Context, uuid.UUID, uuid.UUID, time.Time, func(context.Context) error) error {
	return lock.ErrLockNotAcquired
}

var (
	testClinic = uuid.MustParse("0b7c7a2e-4f0e-4a43-9d59-1f3a4c9e0a01")
	testVet    = uuid.MustParse("0b7c7a2e-4f0e-4a43-9d59-1f3a4c9e0a02")
	testPet    = uuid.MustParse("0b7c7a2e-4f0e-4a43-9d59-1f3a4c9e0a03")
	otherPet   = uuid.MustParse("0b7c7a2e-4f0e-4a43-9d59-1f3a4c9e0a04")
	testDate   = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
)

func newTestService(t *testing.T) (*Service, *memRepo, *memRecorder) {
	t.Helper()
	repo := newMemRepo()
	repo.vets[testVet] = "Dr. Rao"
	repo.pets[testPet] = "Bruno"
	repo.pets[otherPet] = "Milo"

	rec := &memRecorder{}
	svc := NewService(repo, lock.NewLocalLocker(), rec, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC) }
	return svc, repo, rec
}

func booking(pet uuid.UUID, start, end string) Booking {
	s, _ := clock.ParseTimeOfDay(start)
	e, _ := clock.ParseTimeOfDay(end)
	return Booking{PetID: pet, VetID: testVet, Date: testDate, StartTime: s, EndTime: e}
}

func TestBookWithoutConflict(t *testing.T) {
	svc, repo, rec := newTestService(t)

	a, err := svc.Book(context.Background(), testClinic, booking(testPet, "10:00", "10:30"))
	require.NoError(t, err)

	assert.Equal(t, StatusScheduled, a.Status)
	assert.Equal(t, testClinic, a.ClinicID)
	assert.Len(t, repo.appts, 1)
	assert.Equal(t, []string{EventAppointmentBooked}, rec.types())
}

func TestBookOverlapProtocol(t *testing.T) {
	svc, repo, rec := newTestService(t)
	ctx := context.Background()

	_, err := svc.Book(ctx, testClinic, booking(testPet, "10:00", "10:30"))
	require.NoError(t, err)

	// plain request is rejected with conflict details
	_, err = svc.Book(ctx, testClinic, booking(otherPet, "10:15", "10:45"))
	var overlapErr *OverlapError
	require.ErrorAs(t, err, &overlapErr)
	assert.Equal(t, []Conflict{{
		AppointmentID: repo.appts[0].ID,
		VetName:       "Dr. Rao",
		PetName:       "Bruno",
		StartTime:     clock.At(10, 0, 0),
		EndTime:       clock.At(10, 30, 0),
	}}, overlapErr.Conflicts)

	// override without confirmation
	b := booking(otherPet, "10:15", "10:45")
	b.AllowOverlap = true
	_, err = svc.Book(ctx, testClinic, b)
	assert.ErrorIs(t, err, ErrOverrideConfirmationRequired)

	// confirmed override books and annotates notes
	b.ConfirmOverride = "yes"
	b.Notes = "walk-in"
	a, err := svc.Book(ctx, testClinic, b)
	require.NoError(t, err)
	assert.Equal(t, "walk-in\nOVERLAP OVERRIDE: existing appt 10:00-10:30", a.Notes)

	assert.Len(t, repo.appts, 2)
	assert.Equal(t, []string{EventAppointmentBooked, EventAppointmentOverrideBooked}, rec.types())
}

func TestBookTouchingIntervalsDoNotConflict(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Book(ctx, testClinic, booking(testPet, "10:00", "10:30"))
	require.NoError(t, err)
	_, err = svc.Book(ctx, testClinic, booking(otherPet, "10:30", "11:00"))
	assert.NoError(t, err)
}

func TestBookFallsBackToPlaceholderNames(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	delete(repo.vets, testVet)

	stray := uuid.New()
	_, err := svc.Book(ctx, testClinic, booking(stray, "09:00", "09:30"))
	require.NoError(t, err)

	_, err = svc.Book(ctx, testClinic, booking(testPet, "09:15", "09:20"))
	var overlapErr *OverlapError
	require.ErrorAs(t, err, &overlapErr)
	require.Len(t, overlapErr.Conflicts, 1)
	assert.Equal(t, "Vet", overlapErr.Conflicts[0].VetName)
	assert.Equal(t, "Pet", overlapErr.Conflicts[0].PetName)
}

func TestBookRejectsInvertedIntervalBeforeAnyLookup(t *testing.T) {
	svc, repo, _ := newTestService(t)

	for _, b := range []Booking{
		booking(testPet, "11:00", "10:00"),
		booking(testPet, "10:00", "10:00"),
	} {
		_, err := svc.Book(context.Background(), testClinic, b)
		ve, ok := validation.As(err)
		require.True(t, ok, "expected validation error, got %v", err)
		assert.Equal(t, "must_be_after_start_time", ve.Fields["end_time"])
	}
	assert.Zero(t, repo.candidateHit)
}

func TestBookCancelledAndNoShowFreeTheSlot(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, st := range []Status{StatusCancelled, StatusNoShow} {
		b := booking(testPet, "14:00", "14:30")
		b.Status = st
		_, err := svc.Book(ctx, testClinic, b)
		require.NoError(t, err)
	}

	_, err := svc.Book(ctx, testClinic, booking(otherPet, "14:00", "14:30"))
	assert.NoError(t, err)
}

func TestBookOtherVetOrDayIsIndependent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Book(ctx, testClinic, booking(testPet, "10:00", "10:30"))
	require.NoError(t, err)

	b := booking(otherPet, "10:00", "10:30")
	b.VetID = uuid.New()
	_, err = svc.Book(ctx, testClinic, b)
	assert.NoError(t, err)

	b = booking(otherPet, "10:00", "10:30")
	b.Date = testDate.AddDate(0, 0, 1)
	_, err = svc.Book(ctx, testClinic, b)
	assert.NoError(t, err)
}

func TestBookScheduleBusy(t *testing.T) {
	svc, repo, _ := newTestService(t)
	svc.locker = busyLocker{}

	_, err := svc.Book(context.Background(), testClinic, booking(testPet, "10:00", "10:30"))
	assert.ErrorIs(t, err, ErrScheduleBusy)
	assert.Empty(t, repo.appts)
}

func TestBookWaitsForRedisLockHolder(t *testing.T) {
	svc, repo, _ := newTestService(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc.locker = lock.NewRedisLocker(client, 5*time.Second, 2*time.Second)

	morning, _ := clock.ParseTimeOfDay("10:00")
	inside := make(chan struct{})
	repo.onCreate = func(a *Appointment) {
		if a.StartTime == morning {
			close(inside)
			time.Sleep(100 * time.Millisecond)
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Book(context.Background(), testClinic, booking(testPet, "10:00", "10:30"))
		done <- err
	}()
	<-inside
	require.True(t, mr.Exists(lock.VetDayKey(testClinic, testVet, testDate)))

	// a disjoint booking for the same vet and day is not a conflict
	_, err := svc.Book(context.Background(), testClinic, booking(otherPet, "14:00", "14:30"))
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Len(t, repo.appts, 2)
}

func TestConcurrentBookingsAdmitOne(t *testing.T) {
	svc, repo, _ := newTestService(t)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Book(context.Background(), testClinic, booking(testPet, "12:00", "12:30"))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		var overlapErr *OverlapError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &overlapErr):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, repo.appts, 1)
}

func TestUpdateExcludesItself(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()

	a, err := svc.Book(ctx, testClinic, booking(testPet, "10:00", "10:30"))
	require.NoError(t, err)

	b := booking(testPet, "10:10", "10:40")
	b.Notes = "moved"
	updated, err := svc.Update(ctx, testClinic, a.ID, b)
	require.NoError(t, err)
	assert.Equal(t, clock.At(10, 10, 0), updated.StartTime)
	assert.Equal(t, "moved", updated.Notes)
	assert.Equal(t, []string{EventAppointmentBooked, EventAppointmentUpdated}, rec.types())
}

func TestUpdateOverrideAppendsNote(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Book(ctx, testClinic, booking(testPet, "10:00", "10:30"))
	require.NoError(t, err)
	a, err := svc.Book(ctx, testClinic, booking(otherPet, "11:00", "11:30"))
	require.NoError(t, err)

	b := booking(otherPet, "10:15", "10:45")
	_, err = svc.Update(ctx, testClinic, a.ID, b)
	var overlapErr *OverlapError
	require.ErrorAs(t, err, &overlapErr)

	b.AllowOverlap, b.ConfirmOverride = true, "yes"
	updated, err := svc.Update(ctx, testClinic, a.ID, b)
	require.NoError(t, err)
	assert.Equal(t, "OVERLAP OVERRIDE: existing appt 10:00-10:30", updated.Notes)
}

func TestUpdateOtherClinicIsNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Book(ctx, testClinic, booking(testPet, "10:00", "10:30"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, uuid.New(), a.ID, booking(testPet, "10:00", "10:30"))
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestDeleteIsIdempotentAndFreesSlot(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()

	a, err := svc.Book(ctx, testClinic, booking(testPet, "10:00", "10:30"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, testClinic, a.ID))
	require.NoError(t, svc.Delete(ctx, testClinic, a.ID))
	assert.Equal(t, []string{EventAppointmentBooked, EventAppointmentDeleted}, rec.types())

	_, err = svc.Get(ctx, testClinic, a.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = svc.Book(ctx, testClinic, booking(otherPet, "10:00", "10:30"))
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, testClinic, uuid.New()), ErrAppointmentNotFound)
}

func TestPetTimeline(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	last, err := svc.LastVisitForPet(ctx, testClinic, testPet)
	require.NoError(t, err)
	assert.Nil(t, last)

	done := booking(testPet, "09:00", "09:30")
	done.Date = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	done.Status = StatusCompleted
	visited, err := svc.Book(ctx, testClinic, done)
	require.NoError(t, err)

	stale := booking(testPet, "09:00", "09:30")
	stale.Date = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	_, err = svc.Book(ctx, testClinic, stale)
	require.NoError(t, err)

	upcoming, err := svc.Book(ctx, testClinic, booking(testPet, "09:00", "09:30"))
	require.NoError(t, err)

	last, err = svc.LastVisitForPet(ctx, testClinic, testPet)
	require.NoError(t, err)
	assert.Equal(t, visited.ID, last.ID)

	next, err := svc.UpcomingForPet(ctx, testClinic, testPet)
	require.NoError(t, err)
	assert.Equal(t, upcoming.ID, next.ID)
}

func TestListFilters(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Book(ctx, testClinic, booking(testPet, "09:00", "09:30"))
	require.NoError(t, err)
	_, err = svc.Book(ctx, testClinic, booking(otherPet, "10:00", "10:30"))
	require.NoError(t, err)

	pet := otherPet
	got, err := svc.List(ctx, testClinic, Filter{PetID: &pet})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, otherPet, got[0].PetID)

	got, err = svc.List(ctx, uuid.New(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
