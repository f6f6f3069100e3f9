package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const windowCols = `id, business_id, day_of_week, specific_date, start_time, end_time, is_available, created_at, updated_at`

const apptCols = `id, customer_id, business_id, service_id, date, start_time, end_time, status, notes,
	notification_sent, reminder_sent, auto_cancelled, created_at, updated_at`

// Helpers

func scanWindow(row pgx.Row) (*AvailabilityWindow, error) {
	var w AvailabilityWindow
	var specificDate *time.Time

	err := row.Scan(
		&w.ID,
		&w.BusinessID,
		&w.DayOfWeek,
		&specificDate,
		&w.StartTime,
		&w.EndTime,
		&w.IsAvailable,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, err
	}

	w.SpecificDate = specificDate
	return &w, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var notes *string

	err := row.Scan(
		&a.ID,
		&a.CustomerID,
		&a.BusinessID,
		&a.ServiceID,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&notes,
		&a.NotificationSent,
		&a.ReminderSent,
		&a.AutoCancelled,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if notes != nil {
		a.Notes = *notes
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func collectWindows(rows pgx.Rows) ([]AvailabilityWindow, error) {
	defer rows.Close()

	var result []AvailabilityWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Availability windows

func (r *PgRepository) ListWindows(ctx context.Context, businessID uuid.UUID) ([]AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+windowCols+`
		FROM availability_windows
		WHERE business_id = $1
		ORDER BY day_of_week, start_time
	`, businessID)
	if err != nil {
		return nil, err
	}
	return collectWindows(rows)
}

func (r *PgRepository) ListRecurringWindows(ctx context.Context, businessID uuid.UUID, dayOfWeek int) ([]AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+windowCols+`
		FROM availability_windows
		WHERE business_id = $1
		  AND day_of_week = $2
		  AND specific_date IS NULL
		  AND is_available = true
		ORDER BY start_time
	`, businessID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	return collectWindows(rows)
}

func (r *PgRepository) ListDateWindows(ctx context.Context, businessID uuid.UUID, date time.Time) ([]AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+windowCols+`
		FROM availability_windows
		WHERE business_id = $1
		  AND specific_date = $2::date
		ORDER BY start_time
	`, businessID, date.Format(DateLayout))
	if err != nil {
		return nil, err
	}
	return collectWindows(rows)
}

func (r *PgRepository) GetWindow(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+windowCols+`
		FROM availability_windows
		WHERE id = $1
	`, id)
	return scanWindow(row)
}

func (r *PgRepository) UpsertWindow(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, error) {
	id := w.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	var specificDate *string
	if w.SpecificDate != nil {
		s := w.SpecificDate.Format(DateLayout)
		specificDate = &s
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_windows
			(id, business_id, day_of_week, specific_date, start_time, end_time, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, now(), now())
		ON CONFLICT (business_id, day_of_week, specific_date)
		DO UPDATE SET
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			is_available = EXCLUDED.is_available,
			updated_at = now()
		RETURNING `+windowCols+`
	`, id, w.BusinessID, w.DayOfWeek, specificDate, w.StartTime, w.EndTime, w.IsAvailable)

	return scanWindow(row)
}

func (r *PgRepository) DeleteWindow(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_windows
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWindowNotFound
	}
	return nil
}

// Appointments

func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(id, customer_id, business_id, service_id, date, start_time, end_time, status, notes,
			 notification_sent, reminder_sent, auto_cancelled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, false, false, false, now(), now())
		RETURNING `+apptCols+`
	`, id, a.CustomerID, a.BusinessID, a.ServiceID, a.Date.Format(DateLayout), a.StartTime, a.EndTime, a.Status, a.Notes)

	return scanAppointment(row)
}

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET service_id = $2,
		    date = $3::date,
		    start_time = $4,
		    end_time = $5,
		    status = $6,
		    notes = $7,
		    notification_sent = $8,
		    reminder_sent = $9,
		    auto_cancelled = $10,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+apptCols+`
	`, a.ID, a.ServiceID, a.Date.Format(DateLayout), a.StartTime, a.EndTime, a.Status, a.Notes,
		a.NotificationSent, a.ReminderSent, a.AutoCancelled)

	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsForDate(ctx context.Context, businessID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE business_id = $1
		  AND date = $2::date
		  AND status <> 'cancelled'
		ORDER BY start_time
	`, businessID, date.Format(DateLayout))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsByCustomer(ctx context.Context, customerID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE customer_id = $1
		ORDER BY date, start_time
	`, customerID)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsByBusiness(ctx context.Context, businessID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE business_id = $1
		ORDER BY date, start_time
	`, businessID)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) FindBookingCollision(ctx context.Context, businessID uuid.UUID, date time.Time, startTime string, excludeID uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE business_id = $1
		  AND date = $2::date
		  AND start_time = $3
		  AND status <> 'cancelled'
		  AND id <> $4
		LIMIT 1
	`, businessID, date.Format(DateLayout), startTime, excludeID)
	return scanAppointment(row)
}

// Sweep scans

func (r *PgRepository) FindOverdue(ctx context.Context, before time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE status NOT IN ('cancelled', 'completed', 'missed')
		  AND date < $1::date
	`, before.Format(DateLayout))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListScheduled(ctx context.Context) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE status = 'scheduled'
	`)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListScheduledUnreminded(ctx context.Context) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE status = 'scheduled'
		  AND reminder_sent = false
	`)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) FindAutoMissed(ctx context.Context) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE status = 'missed'
		  AND auto_cancelled = true
	`)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, autoCancelled bool) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    auto_cancelled = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = $4
		RETURNING `+apptCols+`
	`, id, to, autoCancelled, from)

	return scanAppointment(row)
}

func (r *PgRepository) MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET reminder_sent = true,
		    updated_at = now()
		WHERE id = $1
		  AND reminder_sent = false
		  AND status = 'scheduled'
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Read-only collaborators

func (r *PgRepository) GetService(ctx context.Context, id uuid.UUID) (*ServiceOffering, error) {
	var s ServiceOffering
	var description *string

	err := r.pool.QueryRow(ctx, `
		SELECT id, business_id, name, description, duration_minutes, price_cents, active, created_at, updated_at
		FROM services
		WHERE id = $1
	`, id).Scan(
		&s.ID,
		&s.BusinessID,
		&s.Name,
		&description,
		&s.DurationMinutes,
		&s.PriceCents,
		&s.Active,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}

	if description != nil {
		s.Description = *description
	}
	return &s, nil
}

func (r *PgRepository) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	var a Account

	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, role, is_demo, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, id).Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.Role,
		&a.IsDemo,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return &a, nil
}
