package store

import (
	"context"
	"fmt"
	"time"
)

// Dates are stored as ISO-8601 text so both dialects compare and order them
// the same way.
func (s *Store) schema() []string {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.dialect == DialectPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS patients (
			id TEXT PRIMARY KEY,
			first_name TEXT,
			last_name TEXT,
			sex TEXT,
			dob TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS vitals (
			id ` + serial + `,
			patient_id TEXT NOT NULL,
			taken TEXT NOT NULL,
			bp TEXT,
			hr INTEGER,
			temp REAL,
			weight_kg REAL,
			blood_glucose_mmol_per_l REAL
		)`,
		`CREATE TABLE IF NOT EXISTS medications (
			id ` + serial + `,
			patient_id TEXT NOT NULL,
			drug TEXT NOT NULL,
			dose TEXT,
			start TEXT,
			stop TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			id ` + serial + `,
			patient_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			details TEXT,
			recorded TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vitals_patient ON vitals (patient_id, taken)`,
		`CREATE INDEX IF NOT EXISTS idx_medications_patient ON medications (patient_id)`,
		`CREATE INDEX IF NOT EXISTS idx_history_patient ON history (patient_id, recorded)`,
	}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("Migrate: %w", err)
		}
	}
	return nil
}

// Seed inserts five demo patients and a few clinical rows dated today. It is a
// no-op when any patient already exists.
func (s *Store) Seed(ctx context.Context, now time.Time) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patients`).Scan(&count); err != nil {
		return fmt.Errorf("Seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	today := now.Format("2006-01-02")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Seed: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	patients := [][]any{
		{"P001", "Ada", "Obi", "F", "1986-03-14"},
		{"P002", "Chima", "Okeke", "M", "1978-07-22"},
		{"P003", "Funmi", "Ade", "F", "1993-11-05"},
		{"P004", "Yusuf", "Bello", "M", "1965-01-30"},
		{"P005", "Tayo", "Ogunle", "M", "2002-06-09"},
	}
	vitals := [][]any{
		{"P001", today, "120/80", 72, 36.8, 65.0, 11.0},
		{"P002", today, "181/132", 80, 37.1, 130.0, 5.6},
		{"P003", today, "110/70", 68, 36.5, 60.0, 5.0},
	}
	meds := [][]any{
		{"P001", "Metformin", "500 mg bd", "2025-01-01", nil},
		{"P002", "Lisinopril", "10 mg od", "2024-10-12", nil},
		{"P003", "Amoxicillin", "500 mg tds", "2025-05-04", "2025-05-11"},
	}
	history := [][]any{
		{"P001", "smoking", "10 pack-years; quit 2020", today},
		{"P002", "surgery", "Appendectomy 2005", today},
		{"P002", "history", "Family history of hypertension", today},
		{"P003", "allergy", "Penicillin rash", today},
	}

	inserts := []struct {
		query string
		rows  [][]any
	}{
		{`INSERT INTO patients (id, first_name, last_name, sex, dob) VALUES ($1, $2, $3, $4, $5)`, patients},
		{`INSERT INTO vitals (patient_id, taken, bp, hr, temp, weight_kg, blood_glucose_mmol_per_l) VALUES ($1, $2, $3, $4, $5, $6, $7)`, vitals},
		{`INSERT INTO medications (patient_id, drug, dose, start, stop) VALUES ($1, $2, $3, $4, $5)`, meds},
		{`INSERT INTO history (patient_id, kind, details, recorded) VALUES ($1, $2, $3, $4)`, history},
	}

	for _, ins := range inserts {
		q := s.rebind(ins.query)
		for _, args := range ins.rows {
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return fmt.Errorf("Seed: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Seed: %w", err)
	}
	return nil
}
