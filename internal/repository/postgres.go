// internal/repository/postgres.go
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"organmatch/internal/matching/labeler"
	"organmatch/internal/models"
)

const donorColumns = `id, age, location, blood_group, organ, organ_tissue_type,
	organ_health_score, hospital_transportation, hospital_name, email, phone`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DonorsByOrgan(ctx context.Context, organ string) ([]models.Donor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+donorColumns+` FROM donors WHERE organ = $1 ORDER BY id`, organ)
	if err != nil {
		return nil, fmt.Errorf("%w: query donors: %v", ErrPoolUnavailable, err)
	}
	defer rows.Close()
	return scanDonors(rows)
}

func (s *PostgresStore) AllDonors(ctx context.Context) ([]models.Donor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+donorColumns+` FROM donors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query donors: %v", ErrPoolUnavailable, err)
	}
	defer rows.Close()
	return scanDonors(rows)
}

func scanDonors(rows *sql.Rows) ([]models.Donor, error) {
	var donors []models.Donor
	for rows.Next() {
		var d models.Donor
		var bg string
		if err := rows.Scan(&d.ID, &d.Age, &d.Location, &bg, &d.Organ, &d.TissueType,
			&d.HealthScore, &d.TransportAvailable, &d.HospitalName, &d.ContactEmail, &d.ContactPhone); err != nil {
			return nil, fmt.Errorf("%w: scan donor: %v", ErrPoolUnavailable, err)
		}
		d.BloodGroup = normalizeBloodGroup(bg)
		donors = append(donors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate donors: %v", ErrPoolUnavailable, err)
	}
	return donors, nil
}

func (s *PostgresStore) AllReceivers(ctx context.Context) ([]models.Receiver, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, age, location, blood_group, organ_needed, organ_tissue_type, urgency
		FROM receivers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query receivers: %w", err)
	}
	defer rows.Close()

	var receivers []models.Receiver
	for rows.Next() {
		var r models.Receiver
		var bg string
		if err := rows.Scan(&r.ID, &r.Age, &r.Location, &bg, &r.OrganNeeded, &r.TissueType, &r.Urgency); err != nil {
			return nil, fmt.Errorf("scan receiver: %w", err)
		}
		r.BloodGroup = normalizeBloodGroup(bg)
		receivers = append(receivers, r)
	}
	return receivers, rows.Err()
}

// UpsertDonors writes donors in one transaction, replacing existing ids.
func (s *PostgresStore) UpsertDonors(ctx context.Context, donors []models.Donor) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO donors (`+donorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			age = EXCLUDED.age,
			location = EXCLUDED.location,
			blood_group = EXCLUDED.blood_group,
			organ = EXCLUDED.organ,
			organ_tissue_type = EXCLUDED.organ_tissue_type,
			organ_health_score = EXCLUDED.organ_health_score,
			hospital_transportation = EXCLUDED.hospital_transportation,
			hospital_name = EXCLUDED.hospital_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone`)
	if err != nil {
		return fmt.Errorf("prepare donor upsert: %w", err)
	}
	defer stmt.Close()

	for _, d := range donors {
		if _, err := stmt.ExecContext(ctx, d.ID, d.Age, d.Location, string(d.BloodGroup), d.Organ, d.TissueType,
			d.HealthScore, d.TransportAvailable, d.HospitalName, d.ContactEmail, d.ContactPhone); err != nil {
			return fmt.Errorf("upsert donor %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// UpsertReceivers writes receivers in one transaction, replacing existing ids.
func (s *PostgresStore) UpsertReceivers(ctx context.Context, receivers []models.Receiver) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO receivers (id, age, location, blood_group, organ_needed, organ_tissue_type, urgency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			age = EXCLUDED.age,
			location = EXCLUDED.location,
			blood_group = EXCLUDED.blood_group,
			organ_needed = EXCLUDED.organ_needed,
			organ_tissue_type = EXCLUDED.organ_tissue_type,
			urgency = EXCLUDED.urgency`)
	if err != nil {
		return fmt.Errorf("prepare receiver upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range receivers {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Age, r.Location, string(r.BloodGroup),
			r.OrganNeeded, r.TissueType, r.Urgency); err != nil {
			return fmt.Errorf("upsert receiver %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// InsertTrainingPairs stores a labeled batch atomically and returns the row count.
func (s *PostgresStore) InsertTrainingPairs(ctx context.Context, batchID string, rows []labeler.LabeledPair) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO training_pairs (
			batch_id, donor_id, receiver_id, age_diff, bloodgroup_donor, bloodgroup_recipient,
			organ, organ_tissue_type_donor, distance_km, urgency, hospital_transportation, success)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`)
	if err != nil {
		return 0, fmt.Errorf("prepare training insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, batchID, r.DonorID, r.ReceiverID, r.AgeDiff,
			r.BloodGroupDonor, r.BloodGroupRecipient, r.Organ, r.TissueTypeDonor,
			r.DistanceKm, r.Urgency, r.HospitalTransportation, r.Success); err != nil {
			return 0, fmt.Errorf("insert pair %s/%s: %w", r.DonorID, r.ReceiverID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(rows), nil
}
