package booking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	defaultWindowStart = "09:00"
	defaultWindowEnd   = "17:00"
)

// SlotGenerator derives the bookable time windows for a (business, date)
// pair. Output is recomputed fresh on every call; the only side effect is
// the one-time default-window synthesis for businesses with no declared
// availability.
type SlotGenerator struct {
	repo   Repository
	loc    *time.Location
	step   time.Duration
	buffer time.Duration
	now    func() time.Time
}

func NewSlotGenerator(repo Repository, loc *time.Location, step, buffer time.Duration) *SlotGenerator {
	return &SlotGenerator{
		repo:   repo,
		loc:    loc,
		step:   step,
		buffer: buffer,
		now:    time.Now,
	}
}

// WindowsFor resolves the availability windows that apply to date. Rows
// pinned to the specific date override the recurring weekday rows entirely,
// so a carve-out (is_available=false) for a holiday suppresses the regular
// hours rather than coexisting with them. When the business has declared
// nothing at all for the day, a default 09:00-17:00 recurring window is
// created and returned; a carve-out with no bookable remainder yields an
// empty result instead.
func (g *SlotGenerator) WindowsFor(ctx context.Context, businessID uuid.UUID, date time.Time) ([]AvailabilityWindow, error) {
	dayOfWeek := int(date.Weekday())

	recurring, err := g.repo.ListRecurringWindows(ctx, businessID, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("list recurring windows: %w", err)
	}

	dated, err := g.repo.ListDateWindows(ctx, businessID, date)
	if err != nil {
		return nil, fmt.Errorf("list date windows: %w", err)
	}

	if len(dated) > 0 {
		var open []AvailabilityWindow
		for _, w := range dated {
			if w.IsAvailable {
				open = append(open, w)
			}
		}
		return open, nil
	}

	if len(recurring) > 0 {
		return recurring, nil
	}

	// First-run convenience for newly onboarded businesses: rather than
	// returning nothing bookable, persist standard hours for this weekday.
	created, err := g.repo.UpsertWindow(ctx, AvailabilityWindow{
		BusinessID:  businessID,
		DayOfWeek:   dayOfWeek,
		StartTime:   defaultWindowStart,
		EndTime:     defaultWindowEnd,
		IsAvailable: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create default window: %w", err)
	}

	return []AvailabilityWindow{*created}, nil
}

// Generate returns the open slots for a (business, date) pair in
// chronological order. A slot is dropped when a non-cancelled appointment
// already starts at the same time, or, for today, when its start falls
// inside the booking buffer.
func (g *SlotGenerator) Generate(ctx context.Context, businessID uuid.UUID, date time.Time) ([]Slot, error) {
	windows, err := g.WindowsFor(ctx, businessID, date)
	if err != nil {
		return nil, err
	}

	appts, err := g.repo.ListAppointmentsForDate(ctx, businessID, date)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	booked := make(map[string]bool, len(appts))
	for _, a := range appts {
		booked[a.StartTime] = true
	}

	now := g.now().In(g.loc)
	isToday := CompareDate(date, DateOf(now, g.loc)) == 0
	cutoff := now.Add(g.buffer)
	stepMin := int(g.step / time.Minute)

	var slots []Slot
	for _, w := range windows {
		startMin, err := ParseClock(w.StartTime)
		if err != nil {
			return nil, fmt.Errorf("window %s: %w", w.ID, err)
		}
		endMin, err := ParseClock(w.EndTime)
		if err != nil {
			return nil, fmt.Errorf("window %s: %w", w.ID, err)
		}

		for m := startMin; m+stepMin <= endMin; m += stepMin {
			start := FormatClock(m)
			if booked[start] {
				continue
			}
			if isToday {
				startAt, err := ClockAt(date, start, g.loc)
				if err != nil {
					return nil, err
				}
				if startAt.Before(cutoff) {
					continue
				}
			}
			slots = append(slots, Slot{StartTime: start, EndTime: FormatClock(m + stepMin)})
		}
	}

	// Zero-padded "HH:MM" sorts correctly as text.
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime < slots[j].StartTime })

	return slots, nil
}
