package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teleclinic/telemed-scheduling/internal/clinic"
	"github.com/teleclinic/telemed-scheduling/internal/db"
)

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

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	doctors, err := seedDoctors(context.Background(), pool, 30)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedSlots(context.Background(), pool, doctors, 14); err != nil {
		log.Fatalf("seed slots: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		speciality := clinic.Specialities[gofakeit.Number(0, len(clinic.Specialities)-1)]
		license := fmt.Sprintf("LIC-%06d", gofakeit.Number(100000, 999999))

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, user_id, full_name, email, license_number, speciality, is_verified, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, true, now())
		`, id, uuid.New(), name, gofakeit.Email(), license, speciality)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, user_id, full_name, email, created_at)
				VALUES ($1, $2, $3, $4, now())
			`, uuid.New(), uuid.New(), gofakeit.Name(), gofakeit.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

// seedSlots publishes a morning of half-hour slots per doctor for each of
// the next days, starting tomorrow.
func seedSlots(ctx context.Context, pool *pgxpool.Pool, doctors []uuid.UUID, days int) error {
	log.Printf("seeding slots for %d doctors over %d days", len(doctors), days)

	starts := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, doctorID := range doctors {
		for d := 1; d <= days; d++ {
			date := time.Now().AddDate(0, 0, d).Format(clinic.DateLayout)
			for _, start := range starts {
				st, err := time.Parse(clinic.ClockLayout, start)
				if err != nil {
					return err
				}
				end := st.Add(clinic.SlotDuration).Format(clinic.ClockLayout)

				_, err = tx.Exec(ctx, `
					INSERT INTO slots (id, doctor_id, date, start_time, end_time, created_at)
					VALUES ($1, $2, $3, $4, $5, now())
					ON CONFLICT (doctor_id, date, start_time, end_time) DO NOTHING
				`, uuid.New(), doctorID, date, start, end)
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("slots seeded")
	return nil
}
