package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinicops/internal/platform/auth"
	"github.com/clinicops/clinicops/internal/platform/lock"
	"github.com/clinicops/clinicops/pkg/apperror"
)

// -- Mock Repository --

type mockRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*Appointment
	workWindows  map[uuid.UUID]*WorkWindow
	timeOff      map[uuid.UUID]*TimeOff
	roles        map[uuid.UUID]string
	durations    map[uuid.UUID]int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		appointments: make(map[uuid.UUID]*Appointment),
		workWindows:  make(map[uuid.UUID]*WorkWindow),
		timeOff:      make(map[uuid.UUID]*TimeOff),
		roles:        make(map[uuid.UUID]string),
		durations:    make(map[uuid.UUID]int),
	}
}

func (m *mockRepo) CreateAppointment(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) UpdateAppointment(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

func (m *mockRepo) ListAppointments(_ context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Appointment
	for _, a := range m.appointments {
		if f.DoctorID != nil && a.DoctorID != *f.DoctorID {
			continue
		}
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.DateFrom != nil && a.StartAt.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && a.StartAt.After(*f.DateTo) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockRepo) FindConflict(_ context.Context, doctorID uuid.UUID, w Window, excludeID uuid.UUID) (uuid.UUID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appointments {
		if a.DoctorID != doctorID || a.ID == excludeID || !IsActiveStatus(a.Status) {
			continue
		}
		if a.Window().Overlaps(w) {
			return a.ID, true, nil
		}
	}
	return uuid.Nil, false, nil
}

func (m *mockRepo) UserRole(_ context.Context, userID uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[userID]
	if !ok {
		return "", apperror.ErrNotFound
	}
	return role, nil
}

func (m *mockRepo) ServiceDuration(_ context.Context, serviceID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.durations[serviceID]
	if !ok {
		return 0, apperror.ErrNotFound
	}
	return d, nil
}

func (m *mockRepo) CreateWorkWindow(_ context.Context, w *WorkWindow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	m.workWindows[w.ID] = w
	return nil
}

func (m *mockRepo) GetWorkWindow(_ context.Context, id uuid.UUID) (*WorkWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workWindows[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return w, nil
}

func (m *mockRepo) DeleteWorkWindow(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workWindows, id)
	return nil
}

func (m *mockRepo) ListWorkWindows(_ context.Context, doctorID uuid.UUID) ([]*WorkWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*WorkWindow
	for _, w := range m.workWindows {
		if w.DoctorID == doctorID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *mockRepo) WorkWindowsForWeekday(_ context.Context, doctorID uuid.UUID, weekday int) ([]*WorkWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*WorkWindow
	for _, w := range m.workWindows {
		if w.DoctorID == doctorID && w.Weekday == weekday {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *mockRepo) WorkWindowExists(_ context.Context, doctorID uuid.UUID, weekday, startMin, endMin int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.workWindows {
		if w.DoctorID == doctorID && w.Weekday == weekday && w.StartMin == startMin && w.EndMin == endMin {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) CreateTimeOff(_ context.Context, t *TimeOff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	m.timeOff[t.ID] = t
	return nil
}

func (m *mockRepo) GetTimeOff(_ context.Context, id uuid.UUID) (*TimeOff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.timeOff[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return t, nil
}

func (m *mockRepo) DeleteTimeOff(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.timeOff, id)
	return nil
}

func (m *mockRepo) ListTimeOff(_ context.Context, doctorID uuid.UUID) ([]*TimeOff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*TimeOff
	for _, t := range m.timeOff {
		if t.DoctorID == doctorID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockRepo) TimeOffOverlaps(_ context.Context, doctorID uuid.UUID, w Window) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.timeOff {
		if t.DoctorID == doctorID && w.Overlaps(Window{StartAt: t.StartAt, EndAt: t.EndAt}) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) Stats(_ context.Context, f Filter) (*Report, error) {
	items, _, _ := m.ListAppointments(context.Background(), f, 0, 0)
	report := &Report{ByStatus: make(map[string]int), ByDoctor: make(map[uuid.UUID]int)}
	for _, a := range items {
		report.Total++
		report.ByStatus[a.Status]++
		report.ByDoctor[a.DoctorID]++
	}
	return report, nil
}

// -- Helpers --

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(repo *mockRepo, opts Options) *Service {
	return NewService(repo, lock.NewLocalLocker(), passthroughTx, zerolog.Nop(), opts)
}

func seedDoctor(repo *mockRepo) auth.Actor {
	id := uuid.New()
	repo.roles[id] = auth.RoleDoctor
	return auth.Actor{ID: id, Email: "doc@clinic.local", Role: auth.RoleDoctor}
}

func seedAdmin() auth.Actor {
	return auth.Actor{ID: uuid.New(), Email: "admin@clinic.local", Role: auth.RoleAdmin}
}

func bookingInput(doctorID uuid.UUID, start, end time.Time) CreateInput {
	return CreateInput{
		PatientID: uuid.New(),
		DoctorID:  doctorID,
		ServiceID: uuid.New(),
		StartAt:   start,
		EndAt:     end,
	}
}

// -- Tests --

func TestCreateSchedulesAppointment(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, Options{})
	admin := seedAdmin()
	doc := seedDoctor(repo)

	appt, err := svc.Create(context.Background(), admin, bookingInput(doc.ID, monday(t, 9, 0), monday(t, 9, 30)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if appt.Status != StatusScheduled {
		t.Errorf("status = %s, want SCHEDULED", appt.Status)
	}
	if appt.CreatedBy == nil || *appt.CreatedBy != admin.ID {
		t.Errorf("created_by = %v, want %s", appt.CreatedBy, admin.ID)
	}
}

func TestCreateRejectsInvalidInterval(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, Options{})
	doc := seedDoctor(repo)

	_, err := svc.Create(context.Background(), seedAdmin(),
		bookingInput(doc.ID, monday(t, 10, 0), monday(t, 9, 0)))
	if !apperror.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	v := err.(*apperror.ValidationError)
	if len(v.Fields["end_at"]) == 0 {
		t.Errorf("expected field error on end_at, got %v", v.Fields)
	}
}

func TestCreateRejectsNonDoctorAssignee(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, Options{})
	notADoctor := uuid.New()
	repo.roles[notADoctor] = auth.RoleAdmin

	_, err := svc.Create(context.Background(), seedAdmin(),
		bookingInput(notADoctor, monday(t, 9, 0), monday(t, 9, 30)))
	if !apperror.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	v := err.(*apperror.ValidationError)
	if len(v.Fields["doctor"]) == 0 {
		t.Errorf("expected field error on doctor, got %v", v.Fields)
	}
}

func TestCreateConflictScenario(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, Options{})
	admin := seedAdmin()
	doc := seedDoctor(repo)

	// [09:00, 09:30) books fine.
	if _, err := svc.Create(context.Background(), admin,
		bookingInput(doc.ID, monday(t, 9, 0), monday(t, 9, 30))); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	// [09:15, 09:45) overlaps and is rejected with a conflict.
	_, err := svc.Create(context.Background(), admin,
		bookingInput(doc.ID, monday(t, 9, 15), monday(t, 9, 45)))
	if !apperror.IsConflict(err) {
		t.Fatalf("overlap err = %v, want ConflictError", err)
	}

	// [09:30, 10:00) touches the first booking's end and succeeds.
	if _, err := svc.Create(context.Background(), admin,
		bookingInput(doc.ID, monday(t, 9, 30), monday(t, 10, 0))); err != nil {
		t.Fatalf("touching-boundary booking: %v", err)
	}
}

func TestCancelledAppointmentFreesSlot(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, Options{})
	admin := seedAdmin()
	doc := seedDoctor(repo)

	first, err := svc.Create(context.Background(), admin,
		bookingInput(doc.ID, monday(t, 9, 0), monday(t, 9, 30)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.SetStatus(context.Background(), admin, first.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := svc.Create(context.Background(), admin,
		bookingInput(doc.ID, monday(t, 9, 0), monday(t, 9, 30))); err != nil {
		t.Errorf("rebooking over cancelled slot: %v", err)
	}
}

func TestCreateDerivesEndFromService(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, Options{})
	doc := seedDoctor(repo)
	serviceID := uuid.New()
	repo.durations[serviceID] = 45

	in := CreateInput{
		PatientID: uuid.New(),
		DoctorID:  doc.ID,
		ServiceID: serviceID,
		StartAt:   monday(t, 9, 0),
	}
	appt, err := svc.Create(context.Background(), seedAdmin(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := monday(t, 9, 45)
	if !appt.EndAt.Equal(want) {
		t.Errorf("end_at = %s, want %s", appt.EndAt, want)
	}
}

func TestCreateEnforcesAvailabilityWhenConfigured(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, Options{EnforceAvailability: true})
	admin := seedAdmin()
	doc := seedDoctor(repo)
	seedWorkWindow(repo, doc.ID, int(time.Monday), 9*60, 13*60)

	// Inside working hours.
	if _, err := svc.Create(context.Background(), admin,
		bookingInput(doc.ID, monday(t, 9, 0), monday(t, 9, 30))); err != nil {
		t.Fatalf("in-window booking: %v", err)
	}

	// Outside working hours.
	_, err := svc.Create(context.Background(), admin,
		bookingInput(doc.ID, monday(t, 14, 0), monday(t, 14, 30)))
	if !apperror.IsValidation(err) {
		t.Errorf("out-of-window err = %v, want ValidationError", err)
	}
}

func TestDoctorSelfBooking(t *testing.T) {
	repo := newMockRepo()
	doc := seedDoctor(repo)
	other := seedDoctor(repo)
	in := bookingInput(doc.ID, monday(t, 9, 0), monday(t, 9, 30))

	// Disabled: doctor creation is forbidden outright.
	svc := newTestService(repo, Options{})
	if _, err := svc.Create(context.Background(), doc, in); err != apperror.ErrForbidden {
		t.Errorf("disabled self-booking err = %v, want ErrForbidden", err)
	}

	// Enabled: doctors book themselves only.
	svc = newTestService(repo, Options{DoctorSelfBooking: true})
	if _, err := svc.Create(context.Background(), doc, in); err != nil {
		t.Errorf("self booking: %v", err)
	}
	foreign := bookingInput(other.ID, monday(t, 10, 0), monday(t, 10, 30))
	if _, err := svc.Create(context.Background(), doc, foreign); err != apperror.ErrForbidden {
		t.Errorf("booking another doctor err = %v, want ErrForbidden", err)
	}
}

func TestStatusTransitionTable(t *testing.T) {
	legal := []struct{ from, to string }{
		{StatusScheduled, StatusConfirmed},
		{StatusScheduled, StatusCancelled},
		{StatusScheduled, StatusNoShow},
		{StatusConfirmed, StatusCompleted},
		{StatusConfirmed, StatusCancelled},
		{StatusConfirmed, StatusNoShow},
	}
	for _, tr := range legal {
		if !CanTransition(tr.from, tr.to) {
			t.Errorf("legal transition %s -> %s rejected", tr.from, tr.to)
		}
	}

	all := []string{StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}
	isLegal := func(from, to string) bool {
		for _, tr := range legal {
			if tr.from == from && tr.to == to {
				return true
			}
		}
		return false
	}
	for _, from := range all {
		for _, to := range all {
			if CanTransition(from, to) != isLegal(from, to) {
				t.Errorf("transition %s -> %s: table disagrees", from, to)
			}
		}
	}

	// COMPLETED is only reachable from CONFIRMED.
	if CanTransition(StatusScheduled, StatusCompleted) {
		t.Error("SCHEDULED -> COMPLETED must go through CONFIRMED")
	}
}

func TestTerminalStatusRejectsTransitions(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, Options{})
	admin := seedAdmin()
	doc := seedDoctor(repo)

	appt, err := svc.Create(context.Background(), admin,
		bookingInput(doc.ID, monday(t, 9, 0), monday(t, 9, 30)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.SetStatus(context.Background(), admin, appt.ID, StatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := svc.SetStatus(context.Background(), admin, appt.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// COMPLETED back to SCHEDULED is rejected.
	_, err = svc.SetStatus(context.Background(), admin, appt.ID, StatusScheduled)
	if !apperror.IsValidation(err) {
		t.Errorf("terminal transition err = %v, want ValidationError", err)
	}
}

func TestDoctorScopeIsolation(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, Options{})
	admin := seedAdmin()
	doc := seedDoctor(repo)
	other := seedDoctor(repo)

	mine, _ := svc.Create(context.Background(), admin, bookingInput(doc.ID, monday(t, 9, 0), monday(t, 9, 30)))
	theirs, _ := svc.Create(context.Background(), admin, bookingInput(other.ID, monday(t, 9, 0), monday(t, 9, 30)))

	items, _, err := svc.List(context.Background(), doc, Filter{}, 50, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, a := range items {
		if a.DoctorID != doc.ID {
			t.Errorf("doctor list leaked appointment of %s", a.DoctorID)
		}
	}

	// Even an explicit filter for the other doctor is overridden.
	items, _, _ = svc.List(context.Background(), doc, Filter{DoctorID: &other.ID}, 50, 0)
	for _, a := range items {
		if a.DoctorID != doc.ID {
			t.Error("filter override leaked another doctor's appointment")
		}
	}

	// Direct id lookup reads as not-found.
	if _, err := svc.Get(context.Background(), doc, theirs.ID); err != apperror.ErrNotFound {
		t.Errorf("cross-scope Get = %v, want ErrNotFound", err)
	}
	if _, err := svc.Get(context.Background(), doc, mine.ID); err != nil {
		t.Errorf("own Get: %v", err)
	}
}

func TestDoctorUpdateRestrictedToOwnClinicalFields(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, Options{})
	admin := seedAdmin()
	doc := seedDoctor(repo)

	appt, _ := svc.Create(context.Background(), admin, bookingInput(doc.ID, monday(t, 9, 0), monday(t, 9, 30)))

	// Status/reason/comment are fine.
	status := StatusConfirmed
	reason := "follow-up"
	got, err := svc.Update(context.Background(), doc, appt.ID, UpdateInput{Status: &status, Reason: &reason})
	if err != nil {
		t.Fatalf("doctor update: %v", err)
	}
	if got.Status != StatusConfirmed || got.Reason != "follow-up" {
		t.Errorf("update not applied: %+v", got)
	}

	// Rescheduling is admin-only.
	newStart := monday(t, 11, 0)
	if _, err := svc.Update(context.Background(), doc, appt.ID, UpdateInput{StartAt: &newStart}); err != apperror.ErrForbidden {
		t.Errorf("doctor reschedule err = %v, want ErrForbidden", err)
	}
}

func TestAdminRescheduleChecksConflicts(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, Options{})
	admin := seedAdmin()
	doc := seedDoctor(repo)

	first, _ := svc.Create(context.Background(), admin, bookingInput(doc.ID, monday(t, 9, 0), monday(t, 9, 30)))
	second, _ := svc.Create(context.Background(), admin, bookingInput(doc.ID, monday(t, 10, 0), monday(t, 10, 30)))

	// Moving the second onto the first conflicts.
	newStart := monday(t, 9, 15)
	newEnd := monday(t, 9, 45)
	_, err := svc.Update(context.Background(), admin, second.ID, UpdateInput{StartAt: &newStart, EndAt: &newEnd})
	if !apperror.IsConflict(err) {
		t.Fatalf("err = %v, want ConflictError", err)
	}

	// Rescheduling in place does not conflict with the row itself.
	sameStart := first.StartAt
	sameEnd := first.EndAt.Add(10 * time.Minute)
	if _, err := svc.Update(context.Background(), admin, first.ID, UpdateInput{StartAt: &sameStart, EndAt: &sameEnd}); err != nil {
		t.Errorf("self-overlapping reschedule: %v", err)
	}
}

func TestConcurrentCreateExactlyOneWinner(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, Options{})
	admin := seedAdmin()
	doc := seedDoctor(repo)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), admin,
				bookingInput(doc.ID, monday(t, 9, 0), monday(t, 9, 30)))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case apperror.IsConflict(err):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}

	// The invariant holds over the stored set.
	items, _, _ := repo.ListAppointments(context.Background(), Filter{}, 0, 0)
	for i, a := range items {
		for j, b := range items {
			if i != j && IsActiveStatus(a.Status) && IsActiveStatus(b.Status) &&
				a.DoctorID == b.DoctorID && a.Window().Overlaps(b.Window()) {
				t.Fatalf("stored overlap between %s and %s", a.ID, b.ID)
			}
		}
	}
}

func TestWorkWindowManagement(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, Options{})
	doc := seedDoctor(repo)
	other := seedDoctor(repo)

	w, err := svc.CreateWorkWindow(context.Background(), doc, &WorkWindow{
		Weekday: 1, StartMin: 9 * 60, EndMin: 13 * 60, SlotMinutes: 30,
	})
	if err != nil {
		t.Fatalf("CreateWorkWindow: %v", err)
	}
	if w.DoctorID != doc.ID {
		t.Errorf("doctor_id = %s, want actor", w.DoctorID)
	}

	// Duplicate definition is rejected.
	_, err = svc.CreateWorkWindow(context.Background(), doc, &WorkWindow{
		Weekday: 1, StartMin: 9 * 60, EndMin: 13 * 60, SlotMinutes: 15,
	})
	if !apperror.IsValidation(err) {
		t.Errorf("duplicate err = %v, want ValidationError", err)
	}

	// A doctor cannot create windows for a colleague.
	_, err = svc.CreateWorkWindow(context.Background(), doc, &WorkWindow{
		DoctorID: other.ID, Weekday: 2, StartMin: 9 * 60, EndMin: 13 * 60, SlotMinutes: 30,
	})
	if err != apperror.ErrForbidden {
		t.Errorf("cross-doctor err = %v, want ErrForbidden", err)
	}

	// And cannot delete a colleague's window either; reads as not-found.
	foreign, _ := svc.CreateWorkWindow(context.Background(), other, &WorkWindow{
		Weekday: 2, StartMin: 9 * 60, EndMin: 13 * 60, SlotMinutes: 30,
	})
	if err := svc.DeleteWorkWindow(context.Background(), doc, foreign.ID); err != apperror.ErrNotFound {
		t.Errorf("foreign delete err = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteWorkWindow(context.Background(), other, foreign.ID); err != nil {
		t.Errorf("own delete: %v", err)
	}
}

func TestTimeOffManagement(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, Options{})
	doc := seedDoctor(repo)

	off, err := svc.CreateTimeOff(context.Background(), doc, &TimeOff{
		StartAt: monday(t, 9, 0),
		EndAt:   monday(t, 13, 0),
		Reason:  "training",
	})
	if err != nil {
		t.Fatalf("CreateTimeOff: %v", err)
	}
	if off.DoctorID != doc.ID {
		t.Errorf("doctor_id = %s, want actor", off.DoctorID)
	}

	// Inverted interval rejected.
	_, err = svc.CreateTimeOff(context.Background(), doc, &TimeOff{
		StartAt: monday(t, 13, 0),
		EndAt:   monday(t, 9, 0),
	})
	if !apperror.IsValidation(err) {
		t.Errorf("inverted interval err = %v, want ValidationError", err)
	}

	items, err := svc.ListTimeOff(context.Background(), doc, uuid.Nil)
	if err != nil {
		t.Fatalf("ListTimeOff: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("len = %d, want 1", len(items))
	}
}

func TestReportAggregates(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, Options{})
	admin := seedAdmin()
	docA := seedDoctor(repo)
	docB := seedDoctor(repo)

	a1, _ := svc.Create(context.Background(), admin, bookingInput(docA.ID, monday(t, 9, 0), monday(t, 9, 30)))
	svc.Create(context.Background(), admin, bookingInput(docA.ID, monday(t, 10, 0), monday(t, 10, 30)))
	svc.Create(context.Background(), admin, bookingInput(docB.ID, monday(t, 9, 0), monday(t, 9, 30)))
	svc.SetStatus(context.Background(), admin, a1.ID, StatusCancelled)

	report, err := svc.Report(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.Total != 3 {
		t.Errorf("total = %d, want 3", report.Total)
	}
	if report.ByStatus[StatusScheduled] != 2 || report.ByStatus[StatusCancelled] != 1 {
		t.Errorf("by_status = %v", report.ByStatus)
	}
	if report.ByDoctor[docA.ID] != 2 || report.ByDoctor[docB.ID] != 1 {
		t.Errorf("by_doctor = %v", report.ByDoctor)
	}
}
