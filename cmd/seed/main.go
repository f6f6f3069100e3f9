package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookable/booking-engine/internal/booking"
	"github.com/bookable/booking-engine/internal/db"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id         uuid PRIMARY KEY,
		name       text NOT NULL,
		email      text NOT NULL,
		role       text NOT NULL DEFAULT 'user',
		is_demo    boolean NOT NULL DEFAULT false,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS services (
		id               uuid PRIMARY KEY,
		business_id      uuid NOT NULL REFERENCES accounts(id),
		name             text NOT NULL,
		description      text,
		duration_minutes int NOT NULL,
		price_cents      int NOT NULL DEFAULT 0,
		active           boolean NOT NULL DEFAULT true,
		created_at       timestamptz NOT NULL DEFAULT now(),
		updated_at       timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS availability_windows (
		id            uuid PRIMARY KEY,
		business_id   uuid NOT NULL REFERENCES accounts(id),
		day_of_week   int NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
		specific_date date,
		start_time    text NOT NULL,
		end_time      text NOT NULL,
		is_available  boolean NOT NULL DEFAULT true,
		created_at    timestamptz NOT NULL DEFAULT now(),
		updated_at    timestamptz NOT NULL DEFAULT now(),
		CONSTRAINT availability_windows_day_uniq
			UNIQUE NULLS NOT DISTINCT (business_id, day_of_week, specific_date)
	)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id                uuid PRIMARY KEY,
		customer_id       uuid NOT NULL REFERENCES accounts(id),
		business_id       uuid NOT NULL REFERENCES accounts(id),
		service_id        uuid NOT NULL REFERENCES services(id),
		date              date NOT NULL,
		start_time        text NOT NULL,
		end_time          text NOT NULL,
		status            text NOT NULL DEFAULT 'scheduled',
		notes             text,
		notification_sent boolean NOT NULL DEFAULT false,
		reminder_sent     boolean NOT NULL DEFAULT false,
		auto_cancelled    boolean NOT NULL DEFAULT false,
		created_at        timestamptz NOT NULL DEFAULT now(),
		updated_at        timestamptz NOT NULL DEFAULT now()
	)`,
	// Backstop for the check-then-act booking race: a second writer for the
	// same live slot hits a write conflict instead of double-booking.
	`CREATE UNIQUE INDEX IF NOT EXISTS appointments_active_slot_uniq
		ON appointments (business_id, date, start_time)
		WHERE status <> 'cancelled'`,
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := createSchema(context.Background(), pool); err != nil {
		log.Fatalf("create schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	businessIDs, err := seedBusinesses(context.Background(), pool, 20)
	if err != nil {
		log.Fatalf("seed businesses: %v", err)
	}
	customerIDs, err := seedCustomers(context.Background(), pool, 200)
	if err != nil {
		log.Fatalf("seed customers: %v", err)
	}
	serviceIDs, err := seedServices(context.Background(), pool, businessIDs)
	if err != nil {
		log.Fatalf("seed services: %v", err)
	}
	if err := seedWindows(context.Background(), pool, businessIDs); err != nil {
		log.Fatalf("seed windows: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, serviceIDs, customerIDs); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func createSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func seedBusinesses(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d businesses", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Company()
		email := gofakeit.Email()
		isDemo := i < 2 // keep a couple of demo businesses that never get emailed

		_, err := tx.Exec(ctx, `
			INSERT INTO accounts (id, name, email, role, is_demo, created_at, updated_at)
			VALUES ($1, $2, $3, 'business', $4, now(), now())
		`, id, name, email, isDemo)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("businesses seeded")
	return ids, nil
}

func seedCustomers(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d customers", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		email := gofakeit.Email()

		_, err := tx.Exec(ctx, `
			INSERT INTO accounts (id, name, email, role, is_demo, created_at, updated_at)
			VALUES ($1, $2, $3, 'user', false, now(), now())
		`, id, name, email)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("customers seeded")
	return ids, nil
}

type seededService struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	Duration   int
}

func seedServices(ctx context.Context, pool *pgxpool.Pool, businessIDs []uuid.UUID) ([]seededService, error) {
	names := []string{
		"Consultation",
		"Haircut",
		"Massage",
		"Dental Cleaning",
		"Eye Exam",
		"Physio Session",
		"Coaching Call",
		"Tattoo Session",
	}
	durations := []int{30, 60, 90}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var out []seededService
	for _, businessID := range businessIDs {
		n := gofakeit.Number(2, 4)
		for i := 0; i < n; i++ {
			id := uuid.New()
			name := names[gofakeit.Number(0, len(names)-1)]
			duration := durations[gofakeit.Number(0, len(durations)-1)]
			price := gofakeit.Number(2000, 20000)

			_, err := tx.Exec(ctx, `
				INSERT INTO services (id, business_id, name, description, duration_minutes, price_cents, active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, true, now(), now())
			`, id, businessID, name, gofakeit.Sentence(8), duration, price)
			if err != nil {
				return nil, err
			}
			out = append(out, seededService{ID: id, BusinessID: businessID, Duration: duration})
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Printf("services seeded: %d", len(out))
	return out, nil
}

func seedWindows(ctx context.Context, pool *pgxpool.Pool, businessIDs []uuid.UUID) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	count := 0
	for _, businessID := range businessIDs {
		// Monday through Friday, standard hours.
		for dow := 1; dow <= 5; dow++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO availability_windows (id, business_id, day_of_week, specific_date, start_time, end_time, is_available, created_at, updated_at)
				VALUES ($1, $2, $3, NULL, '09:00', '17:00', true, now(), now())
				ON CONFLICT ON CONSTRAINT availability_windows_day_uniq DO NOTHING
			`, uuid.New(), businessID, dow)
			if err != nil {
				return err
			}
			count++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("availability windows seeded: %d", count)
	return nil
}

func seedAppointments(ctx context.Context, pool *pgxpool.Pool, services []seededService, customerIDs []uuid.UUID) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	count := 0
	for _, svc := range services {
		// A handful of bookings over the coming two weeks, on the half-hour
		// grid inside standard hours.
		n := gofakeit.Number(1, 5)
		for i := 0; i < n; i++ {
			date := time.Now().AddDate(0, 0, gofakeit.Number(1, 14))
			if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
				continue
			}

			startMin := (9*60 + 30*gofakeit.Number(0, 13))
			endMin := startMin + svc.Duration
			if endMin > 17*60 {
				continue
			}

			customerID := customerIDs[gofakeit.Number(0, len(customerIDs)-1)]

			_, err := tx.Exec(ctx, `
				INSERT INTO appointments
					(id, customer_id, business_id, service_id, date, start_time, end_time, status, notes,
					 notification_sent, reminder_sent, auto_cancelled, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5::date, $6, $7, 'scheduled', $8, false, false, false, now(), now())
				ON CONFLICT DO NOTHING
			`, uuid.New(), customerID, svc.BusinessID, svc.ID,
				date.Format(booking.DateLayout),
				booking.FormatClock(startMin), booking.FormatClock(endMin),
				gofakeit.Sentence(6))
			if err != nil {
				return err
			}
			count++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("appointments seeded: %d", count)
	return nil
}
