package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// OngoingStop is rendered for medications with no stop date.
const OngoingStop = "ongoing"

// Identity is the direct-identifier record of a patient.
type Identity struct {
	ID        string  `json:"id"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Sex       *string `json:"sex"`
	DOB       *string `json:"dob"`
}

// Reading is one row of vital signs.
type Reading struct {
	Taken        string   `json:"taken"`
	BP           *string  `json:"bp"`
	HR           *int64   `json:"hr"`
	Temp         *float64 `json:"temp"`
	WeightKg     *float64 `json:"weight_kg"`
	GlucoseMmolL *float64 `json:"blood_glucose_mmol_per_l"`
}

type Medication struct {
	Drug  string  `json:"drug"`
	Dose  *string `json:"dose"`
	Start *string `json:"start"`
	Stop  string  `json:"stop"`
}

type HistoryEntry struct {
	Kind     string  `json:"kind"`
	Details  *string `json:"details"`
	Recorded string  `json:"recorded"`
}

// ListSubjects returns every patient id in ascending order.
func (s *Store) ListSubjects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM patients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ListSubjects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ListSubjects: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListSubjects: %w", err)
	}
	return ids, nil
}

// GetIdentity returns nil, nil when the patient does not exist.
func (s *Store) GetIdentity(ctx context.Context, subjectID string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, first_name, last_name, sex, dob
		FROM patients
		WHERE id = $1
	`), subjectID)

	var (
		id                    string
		first, last, sex, dob sql.NullString
	)
	if err := row.Scan(&id, &first, &last, &sex, &dob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetIdentity: %w", err)
	}

	return &Identity{
		ID:        id,
		FirstName: nullString(first),
		LastName:  nullString(last),
		Sex:       nullString(sex),
		DOB:       nullString(dob),
	}, nil
}

// GetReadings returns the most recent limit readings, newest first.
func (s *Store) GetReadings(ctx context.Context, subjectID string, limit int) ([]Reading, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT taken, bp, hr, temp, weight_kg, blood_glucose_mmol_per_l
		FROM vitals
		WHERE patient_id = $1
		ORDER BY taken DESC
		LIMIT $2
	`), subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("GetReadings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	readings := []Reading{}
	for rows.Next() {
		var (
			taken                 string
			bp                    sql.NullString
			hr                    sql.NullInt64
			temp, weight, glucose sql.NullFloat64
		)
		if err := rows.Scan(&taken, &bp, &hr, &temp, &weight, &glucose); err != nil {
			return nil, fmt.Errorf("GetReadings: %w", err)
		}
		readings = append(readings, Reading{
			Taken:        taken,
			BP:           nullString(bp),
			HR:           nullInt(hr),
			Temp:         nullFloat(temp),
			WeightKg:     nullFloat(weight),
			GlucoseMmolL: nullFloat(glucose),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetReadings: %w", err)
	}
	return readings, nil
}

// GetMedications returns every medication entry in insertion order.
func (s *Store) GetMedications(ctx context.Context, subjectID string) ([]Medication, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT drug, dose, start, stop
		FROM medications
		WHERE patient_id = $1
		ORDER BY id
	`), subjectID)
	if err != nil {
		return nil, fmt.Errorf("GetMedications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	meds := []Medication{}
	for rows.Next() {
		var (
			drug              string
			dose, start, stop sql.NullString
		)
		if err := rows.Scan(&drug, &dose, &start, &stop); err != nil {
			return nil, fmt.Errorf("GetMedications: %w", err)
		}
		m := Medication{
			Drug:  drug,
			Dose:  nullString(dose),
			Start: nullString(start),
			Stop:  OngoingStop,
		}
		if stop.Valid && stop.String != "" {
			m.Stop = stop.String
		}
		meds = append(meds, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetMedications: %w", err)
	}
	return meds, nil
}

// GetHistory returns the most recent limit history entries, newest first.
func (s *Store) GetHistory(ctx context.Context, subjectID string, limit int) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT kind, details, recorded
		FROM history
		WHERE patient_id = $1
		ORDER BY recorded DESC
		LIMIT $2
	`), subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("GetHistory: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []HistoryEntry{}
	for rows.Next() {
		var (
			kind, recorded string
			details        sql.NullString
		)
		if err := rows.Scan(&kind, &details, &recorded); err != nil {
			return nil, fmt.Errorf("GetHistory: %w", err)
		}
		entries = append(entries, HistoryEntry{
			Kind:     kind,
			Details:  nullString(details),
			Recorded: recorded,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetHistory: %w", err)
	}
	return entries, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
