package scheduling

import (
	"context"

	"github.com/google/uuid"
)

// Availability answers "does this window fall inside the doctor's working
// hours". It is advisory: the conflict detector stays authoritative whether
// or not availability is enforced at booking time.
type Availability struct {
	repo Repository
}

func NewAvailability(repo Repository) *Availability {
	return &Availability{repo: repo}
}

const minutesPerDay = 24 * 60

// IsAvailable reports whether some work window of the weekday fully
// contains the window and no time-off overlaps it. A window crossing a
// weekday boundary is unavailable; the one exception is an end falling
// exactly on the next midnight, which reads as minute 1440 of the start
// day.
func (av *Availability) IsAvailable(ctx context.Context, doctorID uuid.UUID, w Window) (bool, error) {
	if err := w.Validate(); err != nil {
		return false, err
	}

	start := w.StartAt
	end := w.EndAt

	startMin := start.Hour()*60 + start.Minute()
	endMin := startMin + int(end.Sub(start).Minutes())
	if endMin > minutesPerDay {
		return false, nil
	}
	if end.Second() != 0 || start.Second() != 0 {
		// Sub-minute bookings are not representable in work windows.
		return false, nil
	}

	windows, err := av.repo.WorkWindowsForWeekday(ctx, doctorID, int(start.Weekday()))
	if err != nil {
		return false, err
	}
	contained := false
	for _, ww := range windows {
		if ww.StartMin <= startMin && endMin <= ww.EndMin {
			contained = true
			break
		}
	}
	if !contained {
		return false, nil
	}

	off, err := av.repo.TimeOffOverlaps(ctx, doctorID, w)
	if err != nil {
		return false, err
	}
	return !off, nil
}
