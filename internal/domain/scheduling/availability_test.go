package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

// monday returns a fixed Monday at the given clock time.
func monday(t *testing.T, hour, min int) time.Time {
	t.Helper()
	d := time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
	if d.Weekday() != time.Monday {
		t.Fatalf("expected Monday, got %s", d.Weekday())
	}
	return d
}

func seedWorkWindow(repo *mockRepo, doctorID uuid.UUID, weekday, startMin, endMin int) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	w := &WorkWindow{
		ID:          uuid.New(),
		DoctorID:    doctorID,
		Weekday:     weekday,
		StartMin:    startMin,
		EndMin:      endMin,
		SlotMinutes: 30,
	}
	repo.workWindows[w.ID] = w
}

func TestIsAvailableContainment(t *testing.T) {
	repo := newMockRepo()
	av := NewAvailability(repo)
	doc := uuid.New()
	// Mon 09:00-13:00
	seedWorkWindow(repo, doc, int(time.Monday), 9*60, 13*60)

	cases := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"inside window", monday(t, 9, 0), monday(t, 9, 30), true},
		{"fills window exactly", monday(t, 9, 0), monday(t, 13, 0), true},
		{"starts before window", monday(t, 8, 30), monday(t, 9, 30), false},
		{"ends after window", monday(t, 12, 45), monday(t, 13, 15), false},
		{"wrong weekday", monday(t, 9, 0).AddDate(0, 0, 1), monday(t, 9, 30).AddDate(0, 0, 1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := av.IsAvailable(context.Background(), doc, Window{StartAt: tc.start, EndAt: tc.end})
			if err != nil {
				t.Fatalf("IsAvailable: %v", err)
			}
			if got != tc.want {
				t.Errorf("IsAvailable = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsAvailableCrossMidnight(t *testing.T) {
	repo := newMockRepo()
	av := NewAvailability(repo)
	doc := uuid.New()
	seedWorkWindow(repo, doc, int(time.Monday), 0, 24*60)
	seedWorkWindow(repo, doc, int(time.Tuesday), 0, 24*60)

	// Crossing into Tuesday is unavailable even with full windows both days.
	got, err := av.IsAvailable(context.Background(), doc, Window{
		StartAt: monday(t, 23, 0),
		EndAt:   monday(t, 23, 0).Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("IsAvailable: %v", err)
	}
	if got {
		t.Error("cross-midnight window reported available")
	}

	// Ending exactly at next midnight stays within Monday.
	got, err = av.IsAvailable(context.Background(), doc, Window{
		StartAt: monday(t, 23, 0),
		EndAt:   monday(t, 23, 0).Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("IsAvailable: %v", err)
	}
	if !got {
		t.Error("window ending at midnight reported unavailable")
	}
}

func TestIsAvailableTimeOffOverrides(t *testing.T) {
	repo := newMockRepo()
	av := NewAvailability(repo)
	doc := uuid.New()
	seedWorkWindow(repo, doc, int(time.Monday), 9*60, 13*60)

	repo.mu.Lock()
	off := &TimeOff{
		ID:       uuid.New(),
		DoctorID: doc,
		StartAt:  monday(t, 10, 0),
		EndAt:    monday(t, 12, 0),
		Reason:   "conference",
	}
	repo.timeOff[off.ID] = off
	repo.mu.Unlock()

	cases := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"overlapping time-off", monday(t, 10, 30), monday(t, 11, 0), false},
		{"partial overlap", monday(t, 9, 30), monday(t, 10, 30), false},
		{"before time-off", monday(t, 9, 0), monday(t, 10, 0), true},
		{"after time-off", monday(t, 12, 0), monday(t, 12, 30), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := av.IsAvailable(context.Background(), doc, Window{StartAt: tc.start, EndAt: tc.end})
			if err != nil {
				t.Fatalf("IsAvailable: %v", err)
			}
			if got != tc.want {
				t.Errorf("IsAvailable = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsAvailableNoWindows(t *testing.T) {
	av := NewAvailability(newMockRepo())
	got, err := av.IsAvailable(context.Background(), uuid.New(), Window{
		StartAt: monday(t, 9, 0),
		EndAt:   monday(t, 9, 30),
	})
	if err != nil {
		t.Fatalf("IsAvailable: %v", err)
	}
	if got {
		t.Error("doctor with no work windows reported available")
	}
}

func TestWindowOverlaps(t *testing.T) {
	a := Window{StartAt: monday(t, 9, 0), EndAt: monday(t, 9, 30)}

	if !a.Overlaps(Window{StartAt: monday(t, 9, 15), EndAt: monday(t, 9, 45)}) {
		t.Error("overlapping windows not detected")
	}
	if a.Overlaps(Window{StartAt: monday(t, 9, 30), EndAt: monday(t, 10, 0)}) {
		t.Error("touching boundary reported as overlap")
	}
	if a.Overlaps(Window{StartAt: monday(t, 10, 0), EndAt: monday(t, 10, 30)}) {
		t.Error("disjoint windows reported as overlap")
	}
}

func TestWorkWindowValidate(t *testing.T) {
	valid := WorkWindow{DoctorID: uuid.New(), Weekday: 1, StartMin: 540, EndMin: 780, SlotMinutes: 30}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid window rejected: %v", err)
	}

	bad := []WorkWindow{
		{Weekday: 1, StartMin: 540, EndMin: 780, SlotMinutes: 30},                         // no doctor
		{DoctorID: uuid.New(), Weekday: 7, StartMin: 540, EndMin: 780, SlotMinutes: 30},   // weekday out of range
		{DoctorID: uuid.New(), Weekday: 1, StartMin: 780, EndMin: 540, SlotMinutes: 30},   // inverted
		{DoctorID: uuid.New(), Weekday: 1, StartMin: 540, EndMin: 1441, SlotMinutes: 30},  // past midnight
		{DoctorID: uuid.New(), Weekday: 1, StartMin: 540, EndMin: 780, SlotMinutes: 0},    // no slot size
	}
	for i, w := range bad {
		if err := w.Validate(); err == nil {
			t.Errorf("case %d: invalid window accepted", i)
		}
	}
}
