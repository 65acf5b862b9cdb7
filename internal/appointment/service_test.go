package appointment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/hackgods/hospital-channeling/internal/redis"
)

// -- In-memory repository --

type memRepo struct {
	mu      sync.Mutex
	doctors map[string]bool
	appts   map[uuid.UUID]*Appointment
	events  []EventLog

	// failCreate, when set, is returned by the next CreateAppointment call.
	failCreate error
}

func newMemRepo(doctors ...string) *memRepo {
	r := &memRepo{doctors: map[string]bool{}, appts: map[uuid.UUID]*Appointment{}}
	for _, d := range doctors {
		r.doctors[d] = true
	}
	return r
}

func (m *memRepo) DoctorExists(_ context.Context, doctorID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doctors[doctorID], nil
}

func (m *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) ListByDoctor(_ context.Context, q ListQuery) ([]Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.appts {
		if a.DoctorID != q.DoctorID || (!q.IncludeInactive && !a.ActiveStatus) {
			continue
		}
		if q.Date != nil && !a.AppointmentDate.Equal(*q.Date) {
			continue
		}
		if q.Status != nil && a.Status != *q.Status {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelNo < out[j].ChannelNo })
	total := len(out)
	if q.Offset > len(out) {
		return nil, total, nil
	}
	out = out[q.Offset:]
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, total, nil
}

func (m *memRepo) MaxChannelNo(_ context.Context, doctorID string, date time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	maxNo := 0
	for _, a := range m.appts {
		if a.ActiveStatus && a.DoctorID == doctorID && a.AppointmentDate.Equal(date) && a.ChannelNo > maxNo {
			maxNo = a.ChannelNo
		}
	}
	return maxNo, nil
}

func (m *memRepo) ChannelTaken(_ context.Context, doctorID string, date time.Time, channelNo int, exclude *uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.takenLocked(doctorID, date, channelNo, exclude), nil
}

func (m *memRepo) takenLocked(doctorID string, date time.Time, channelNo int, exclude *uuid.UUID) bool {
	for _, a := range m.appts {
		if exclude != nil && a.ID == *exclude {
			continue
		}
		if a.ActiveStatus && a.DoctorID == doctorID && a.AppointmentDate.Equal(date) && a.ChannelNo == channelNo {
			return true
		}
	}
	return false
}

func (m *memRepo) CreateAppointment(_ context.Context, a *Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		err := m.failCreate
		m.failCreate = nil
		return nil, err
	}
	if m.takenLocked(a.DoctorID, a.AppointmentDate, a.ChannelNo, nil) {
		return nil, ErrChannelConflict
	}
	cp := *a
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.appts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memRepo) UpdateAppointment(_ context.Context, a *Appointment, expected Status) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.appts[a.ID]
	if !ok || cur.Status != expected {
		return nil, ErrAppointmentNotFound
	}
	if a.ActiveStatus && m.takenLocked(a.DoctorID, a.AppointmentDate, a.ChannelNo, &a.ID) {
		return nil, ErrChannelConflict
	}
	cp := *a
	cp.UpdatedAt = time.Now()
	m.appts[a.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to Status, updatedBy string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.appts[id]
	if !ok || cur.Status != from {
		return nil, ErrAppointmentNotFound
	}
	cur.Status = to
	cur.UpdatedBy = updatedBy
	out := *cur
	return &out, nil
}

func (m *memRepo) CancelAppointment(_ context.Context, id uuid.UUID, from Status, updatedBy string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.appts[id]
	if !ok || cur.Status != from || !cur.ActiveStatus {
		return nil, ErrAppointmentNotFound
	}
	cur.Status = StatusCancelled
	cur.ActiveStatus = false
	cur.UpdatedBy = updatedBy
	out := *cur
	return &out, nil
}

func (m *memRepo) FindOverdueConfirmed(_ context.Context, before time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.appts {
		if a.Status == StatusConfirmed && a.ActiveStatus && a.AppointmentDate.Before(before) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memRepo) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memRepo) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.events {
		out = append(out, e.EventType)
	}
	return out
}

func (m *memRepo) put(a Appointment) *Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.appts[a.ID] = &a
	return &a
}

// -- Fakes --

type mutexLocker struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (l *mutexLocker) WithChannelLock(ctx context.Context, doctorID, date string, fn func(ctx context.Context) error) error {
	if l.err != nil {
		return l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return fn(ctx)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Appointment
	err  error
}

func (n *recordingNotifier) AppointmentCancelled(_ context.Context, a Appointment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, a)
	return n.err
}

var fixedNow = time.Date(2025, 1, 9, 10, 0, 0, 0, time.UTC)

func newTestService(doctors ...string) (*Service, *memRepo, *mutexLocker, *recordingNotifier) {
	repo := newMemRepo(doctors...)
	locker := &mutexLocker{}
	notifier := &recordingNotifier{}
	svc := NewService(repo, locker, notifier, zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }
	return svc, repo, locker, notifier
}

var (
	admin  = Actor{UserID: "admin-1", Roles: []string{RoleAdmin}}
	doctor = Actor{UserID: "DOC-1", Roles: []string{RoleDoctor}}
)

func scheduled(doctorID string, date string, channel int) Appointment {
	d, _ := ParseDate(date)
	return Appointment{
		DoctorID:        doctorID,
		AppointmentDate: d,
		ChannelNo:       channel,
		PatientName:     "Kamal Silva",
		PatientNIC:      "200012345678",
		PatientPhone:    "0711234567",
		Status:          StatusScheduled,
		ActiveStatus:    true,
	}
}

// -- CreateAppointment --

func TestCreateAppointment_AllocatesSequentialChannels(t *testing.T) {
	svc, repo, _, _ := newTestService("DOC-1")
	ctx := context.Background()

	first, err := svc.CreateAppointment(ctx, validCreate(), admin)
	require.NoError(t, err)
	second, err := svc.CreateAppointment(ctx, validCreate(), admin)
	require.NoError(t, err)

	assert.Equal(t, 1, first.ChannelNo)
	assert.Equal(t, 2, second.ChannelNo)
	assert.Equal(t, StatusScheduled, first.Status)
	assert.True(t, first.ActiveStatus)
	assert.Equal(t, defaultDuration, first.Duration)
	assert.Equal(t, "admin-1", first.CreatedBy)
	assert.Equal(t, []string{EventAppointmentCreated, EventAppointmentCreated}, repo.eventTypes())
}

func TestCreateAppointment_ChannelsArePerDoctorAndDay(t *testing.T) {
	svc, _, _, _ := newTestService("DOC-1", "DOC-2")
	ctx := context.Background()

	_, err := svc.CreateAppointment(ctx, validCreate(), admin)
	require.NoError(t, err)

	other := validCreate()
	other.DoctorID = "DOC-2"
	a, err := svc.CreateAppointment(ctx, other, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, a.ChannelNo)

	nextDay := validCreate()
	nextDay.AppointmentDate = "2025-01-11"
	b, err := svc.CreateAppointment(ctx, nextDay, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, b.ChannelNo)
}

func TestCreateAppointment_RequestedChannelTaken(t *testing.T) {
	svc, repo, _, _ := newTestService("DOC-1")
	repo.put(scheduled("DOC-1", "2025-01-10", 3))

	in := validCreate()
	in.ChannelNo = 3
	_, err := svc.CreateAppointment(context.Background(), in, admin)
	assert.ErrorIs(t, err, ErrChannelConflict)

	in.ChannelNo = 4
	a, err := svc.CreateAppointment(context.Background(), in, admin)
	require.NoError(t, err)
	assert.Equal(t, 4, a.ChannelNo)
}

func TestCreateAppointment_CancelledChannelIsReusable(t *testing.T) {
	svc, repo, _, _ := newTestService("DOC-1")
	old := scheduled("DOC-1", "2025-01-10", 1)
	old.Status = StatusCancelled
	old.ActiveStatus = false
	repo.put(old)

	a, err := svc.CreateAppointment(context.Background(), validCreate(), admin)
	require.NoError(t, err)
	assert.Equal(t, 1, a.ChannelNo)
}

func TestCreateAppointment_ConcurrentBookingsGetDistinctChannels(t *testing.T) {
	svc, repo, _, _ := newTestService("DOC-1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateAppointment(context.Background(), validCreate(), admin)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	seen := map[int]bool{}
	for _, a := range repo.appts {
		assert.False(t, seen[a.ChannelNo], "duplicate channel %d", a.ChannelNo)
		seen[a.ChannelNo] = true
	}
	assert.Len(t, seen, 20)
}

func TestCreateAppointment_ValidationFailsBeforeStore(t *testing.T) {
	svc, repo, locker, _ := newTestService("DOC-1")

	in := validCreate()
	in.PatientPhone = "abc"
	_, err := svc.CreateAppointment(context.Background(), in, admin)

	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, locker.calls)
	assert.Empty(t, repo.appts)
}

func TestCreateAppointment_UnknownDoctor(t *testing.T) {
	svc, _, _, _ := newTestService("DOC-1")

	in := validCreate()
	in.DoctorID = "DOC-404"
	_, err := svc.CreateAppointment(context.Background(), in, admin)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestCreateAppointment_LockBusy(t *testing.T) {
	svc, _, locker, _ := newTestService("DOC-1")
	locker.err = redisclient.ErrLockNotAcquired

	_, err := svc.CreateAppointment(context.Background(), validCreate(), admin)
	assert.ErrorIs(t, err, ErrChannelBusy)
}

func TestCreateAppointment_StoreError(t *testing.T) {
	svc, repo, _, _ := newTestService("DOC-1")
	repo.failCreate = errors.New("connection reset")

	_, err := svc.CreateAppointment(context.Background(), validCreate(), admin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create appointment: connection reset")
}

func TestNextChannelNo(t *testing.T) {
	svc, repo, _, _ := newTestService("DOC-1")
	date, _ := ParseDate("2025-01-10")

	n, err := svc.NextChannelNo(context.Background(), "DOC-1", date)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	repo.put(scheduled("DOC-1", "2025-01-10", 7))
	n, err = svc.NextChannelNo(context.Background(), "DOC-1", date)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	_, err = svc.NextChannelNo(context.Background(), " ", date)
	assert.ErrorIs(t, err, ErrValidation)
}

// -- UpdateAppointment --

func TestUpdateAppointment_KeepsChannelWhenScopeUnchanged(t *testing.T) {
	svc, repo, locker, _ := newTestService("DOC-1")
	a := repo.put(scheduled("DOC-1", "2025-01-10", 7))

	phone := "0779999999"
	sameDay := "2025-01-10T14:00:00+05:30"
	updated, err := svc.UpdateAppointment(context.Background(), a.ID, UpdateInput{PatientPhone: &phone, AppointmentDate: &sameDay}, admin)
	require.NoError(t, err)

	assert.Equal(t, 7, updated.ChannelNo)
	assert.Equal(t, "0779999999", updated.PatientPhone)
	assert.Zero(t, locker.calls)
	assert.Equal(t, []string{EventAppointmentUpdated}, repo.eventTypes())
}

func TestUpdateAppointment_ReallocatesOnDateChange(t *testing.T) {
	svc, repo, locker, _ := newTestService("DOC-1")
	repo.put(scheduled("DOC-1", "2025-01-11", 1))
	repo.put(scheduled("DOC-1", "2025-01-11", 2))
	a := repo.put(scheduled("DOC-1", "2025-01-10", 7))

	date := "2025-01-11"
	updated, err := svc.UpdateAppointment(context.Background(), a.ID, UpdateInput{AppointmentDate: &date}, admin)
	require.NoError(t, err)

	assert.Equal(t, 3, updated.ChannelNo)
	assert.Equal(t, "2025-01-11", updated.DateKey())
	assert.Equal(t, 1, locker.calls)
}

func TestUpdateAppointment_ReallocatesOnDoctorChange(t *testing.T) {
	svc, repo, _, _ := newTestService("DOC-1", "DOC-2")
	a := repo.put(scheduled("DOC-1", "2025-01-10", 7))

	doc := "DOC-2"
	updated, err := svc.UpdateAppointment(context.Background(), a.ID, UpdateInput{DoctorID: &doc}, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.ChannelNo)

	missing := "DOC-404"
	_, err = svc.UpdateAppointment(context.Background(), a.ID, UpdateInput{DoctorID: &missing}, admin)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestUpdateAppointment_RequestedChannelConflict(t *testing.T) {
	svc, repo, _, _ := newTestService("DOC-1")
	repo.put(scheduled("DOC-1", "2025-01-10", 2))
	a := repo.put(scheduled("DOC-1", "2025-01-10", 7))

	two := 2
	_, err := svc.UpdateAppointment(context.Background(), a.ID, UpdateInput{ChannelNo: &two}, admin)
	assert.ErrorIs(t, err, ErrChannelConflict)

	same := 7
	updated, err := svc.UpdateAppointment(context.Background(), a.ID, UpdateInput{ChannelNo: &same}, admin)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.ChannelNo)
}

func TestUpdateAppointment_StatusTransition(t *testing.T) {
	svc, repo, _, _ := newTestService("DOC-1")
	a := repo.put(scheduled("DOC-1", "2025-01-10", 1))

	confirmed := "CONFIRMED"
	updated, err := svc.UpdateAppointment(context.Background(), a.ID, UpdateInput{Status: &confirmed}, admin)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)
	assert.Equal(t, []string{EventAppointmentStatusChanged}, repo.eventTypes())

	scheduledStatus := "SCHEDULED"
	_, err = svc.UpdateAppointment(context.Background(), a.ID, UpdateInput{Status: &scheduledStatus}, admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, _ := repo.GetAppointmentByID(context.Background(), a.ID)
	assert.Equal(t, StatusConfirmed, got.Status)
}

func TestUpdateAppointment_CancelledNeedsReschedule(t *testing.T) {
	svc, repo, _, _ := newTestService("DOC-1")
	c := scheduled("DOC-1", "2025-01-10", 1)
	c.Status = StatusCancelled
	c.ActiveStatus = false
	a := repo.put(c)

	phone := "0779999999"
	_, err := svc.UpdateAppointment(context.Background(), a.ID, UpdateInput{PatientPhone: &phone}, admin)
	assert.ErrorIs(t, err, ErrAppointmentInactive)
}

func TestUpdateAppointment_RescheduleKeepsFreeChannel(t *testing.T) {
	svc, repo, locker, _ := newTestService("DOC-1")
	c := scheduled("DOC-1", "2025-01-10", 4)
	c.Status = StatusCancelled
	c.ActiveStatus = false
	a := repo.put(c)

	st := "SCHEDULED"
	updated, err := svc.UpdateAppointment(context.Background(), a.ID, UpdateInput{Status: &st}, admin)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, updated.Status)
	assert.True(t, updated.ActiveStatus)
	assert.Equal(t, 4, updated.ChannelNo)
	assert.Equal(t, 1, locker.calls)
}

func TestUpdateAppointment_RescheduleTakenChannelConflicts(t *testing.T) {
	svc, repo, _, _ := newTestService("DOC-1")
	repo.put(scheduled("DOC-1", "2025-01-10", 4))
	c := scheduled("DOC-1", "2025-01-10", 4)
	c.Status = StatusNoShow
	c.ActiveStatus = false
	a := repo.put(c)

	st := "SCHEDULED"
	_, err := svc.UpdateAppointment(context.Background(), a.ID, UpdateInput{Status: &st}, admin)
	assert.ErrorIs(t, err, ErrChannelConflict)
}

func TestUpdateAppointment_CancelViaStatusNotifies(t *testing.T) {
	svc, repo, _, notifier := newTestService("DOC-1")
	a := repo.put(scheduled("DOC-1", "2025-01-10", 1))

	st := "CANCELLED"
	updated, err := svc.UpdateAppointment(context.Background(), a.ID, UpdateInput{Status: &st}, doctor)
	require.NoError(t, err)
	assert.False(t, updated.ActiveStatus)
	assert.Len(t, notifier.sent, 1)
}

func TestUpdateAppointment_NotFound(t *testing.T) {
	svc, _, _, _ := newTestService("DOC-1")
	phone := "0779999999"
	_, err := svc.UpdateAppointment(context.Background(), uuid.New(), UpdateInput{PatientPhone: &phone}, admin)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

// -- TransitionStatus --

func TestTransitionStatus(t *testing.T) {
	svc, repo, _, _ := newTestService("DOC-1")
	a := repo.put(scheduled("DOC-1", "2025-01-10", 1))
	ctx := context.Background()

	for _, to := range []Status{StatusConfirmed, StatusInProgress, StatusCompleted} {
		updated, err := svc.TransitionStatus(ctx, a.ID, to, admin)
		require.NoError(t, err)
		assert.Equal(t, to, updated.Status)
	}

	_, err := svc.TransitionStatus(ctx, a.ID, StatusScheduled, admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.TransitionStatus(ctx, a.ID, Status("DONE"), admin)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransitionStatus_SameStatusIsInvalid(t *testing.T) {
	svc, repo, _, _ := newTestService("DOC-1")
	a := repo.put(scheduled("DOC-1", "2025-01-10", 1))

	_, err := svc.TransitionStatus(context.Background(), a.ID, StatusScheduled, admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

// -- CancelAppointment --

func TestCancelAppointment(t *testing.T) {
	svc, repo, _, notifier := newTestService("DOC-1")
	a := repo.put(scheduled("DOC-1", "2025-01-10", 1))

	cancelled, err := svc.CancelAppointment(context.Background(), a.ID, doctor)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.False(t, cancelled.ActiveStatus)
	assert.Equal(t, "DOC-1", cancelled.UpdatedBy)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, a.ID, notifier.sent[0].ID)
	assert.Equal(t, []string{EventAppointmentCancelled}, repo.eventTypes())

	// row is kept
	_, ok := repo.appts[a.ID]
	assert.True(t, ok)

	_, err = svc.CancelAppointment(context.Background(), a.ID, doctor)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestCancelAppointment_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Appointment)
		actor  Actor
		want   error
	}{
		{"other doctor", func(a *Appointment) {}, Actor{UserID: "DOC-2", Roles: []string{RoleDoctor}}, ErrPermissionDenied},
		{"receptionist", func(a *Appointment) {}, Actor{UserID: "r-1", Roles: []string{"RECEPTIONIST"}}, ErrPermissionDenied},
		{"completed", func(a *Appointment) { a.Status = StatusCompleted }, admin, ErrNotCancellable},
		{"no show", func(a *Appointment) { a.Status = StatusNoShow }, admin, ErrInvalidTransition},
		{"past date", func(a *Appointment) { a.AppointmentDate = fixedNow.AddDate(0, 0, -1) }, admin, ErrPastAppointment},
		{"already cancelled", func(a *Appointment) { a.Status = StatusCancelled; a.ActiveStatus = false }, admin, ErrAppointmentNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _, notifier := newTestService("DOC-1")
			base := scheduled("DOC-1", "2025-01-10", 1)
			tt.mutate(&base)
			a := repo.put(base)

			_, err := svc.CancelAppointment(context.Background(), a.ID, tt.actor)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, notifier.sent)
		})
	}
}

func TestCancelAppointment_PermissionReasonSurfaced(t *testing.T) {
	svc, repo, _, _ := newTestService("DOC-1")
	a := repo.put(scheduled("DOC-1", "2025-01-10", 1))

	_, err := svc.CancelAppointment(context.Background(), a.ID, Actor{UserID: "DOC-2", Roles: []string{RoleDoctor}})
	var perr *PermissionError
	require.ErrorAs(t, err, &perr)
	assert.NotEmpty(t, perr.Reason)
}

func TestCancelAppointment_TodayIsAllowed(t *testing.T) {
	svc, repo, _, _ := newTestService("DOC-1")
	a := repo.put(scheduled("DOC-1", "2025-01-09", 1))

	_, err := svc.CancelAppointment(context.Background(), a.ID, admin)
	assert.NoError(t, err)
}

func TestCancelAppointment_NotifierFailureDoesNotFail(t *testing.T) {
	svc, repo, _, notifier := newTestService("DOC-1")
	notifier.err = errors.New("redis down")
	a := repo.put(scheduled("DOC-1", "2025-01-10", 1))

	_, err := svc.CancelAppointment(context.Background(), a.ID, admin)
	assert.NoError(t, err)
}

// -- Listing and worker --

func TestListDoctorAppointments(t *testing.T) {
	svc, repo, _, _ := newTestService("DOC-1")
	for i := 1; i <= 5; i++ {
		repo.put(scheduled("DOC-1", "2025-01-10", i))
	}
	c := scheduled("DOC-1", "2025-01-10", 9)
	c.ActiveStatus = false
	c.Status = StatusCancelled
	repo.put(c)

	page, err := svc.ListDoctorAppointments(context.Background(), ListQuery{DoctorID: "DOC-1", Limit: 2, Offset: 1, Sort: "bogus", Order: "DESC"})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Items[0].ChannelNo)

	page, err = svc.ListDoctorAppointments(context.Background(), ListQuery{DoctorID: "DOC-1", IncludeInactive: true, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 6, page.Total)
	assert.Equal(t, maxLimit, page.Limit)

	_, err = svc.ListDoctorAppointments(context.Background(), ListQuery{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMarkNoShows(t *testing.T) {
	svc, repo, _, _ := newTestService("DOC-1")
	past := scheduled("DOC-1", "2025-01-08", 1)
	past.Status = StatusConfirmed
	p := repo.put(past)

	today := scheduled("DOC-1", "2025-01-09", 2)
	today.Status = StatusConfirmed
	td := repo.put(today)

	pastScheduled := repo.put(scheduled("DOC-1", "2025-01-08", 3))

	n, err := svc.MarkNoShows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := repo.GetAppointmentByID(context.Background(), p.ID)
	assert.Equal(t, StatusNoShow, got.Status)
	got, _ = repo.GetAppointmentByID(context.Background(), td.ID)
	assert.Equal(t, StatusConfirmed, got.Status)
	got, _ = repo.GetAppointmentByID(context.Background(), pastScheduled.ID)
	assert.Equal(t, StatusScheduled, got.Status)
	assert.Equal(t, []string{EventAppointmentNoShow}, repo.eventTypes())
}
