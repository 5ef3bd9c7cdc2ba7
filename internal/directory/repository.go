package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"clinicvoice-platform/pkg/utils"

	"github.com/google/uuid"
)

var (
	ErrProfileNotFound = errors.New("directory: profile not found")
	ErrClinicNotFound  = errors.New("directory: clinic not found")
	ErrClinicExists    = errors.New("directory: clinic already exists")
	ErrAlreadyAssigned = errors.New("directory: user already has a clinic assigned")
)

// Repository abstracts tenant-registry access.
type Repository interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
	GetClinic(ctx context.Context, clinicID string) (Clinic, error)
	CreateClinic(ctx context.Context, c Clinic) (Clinic, error)
	CreateClinicForUser(ctx context.Context, userID, name string) (Clinic, error)
	AssignClinic(ctx context.Context, userID, clinicID string) error
	UpdateAirtableConfig(ctx context.Context, clinicID, baseID, tableName string, displayFields []string) error
}

// PostgresRepo assumes the following tables exist:
// - clinics
// - profiles (one row per authenticated user, clinic_id nullable)
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

func (r *PostgresRepo) GetProfile(ctx context.Context, userID string) (Profile, error) {
	const q = `
SELECT user_id, email, COALESCE(clinic_id::text, ''), created_at
FROM profiles
WHERE user_id = $1
`
	var p Profile
	if err := r.DB.QueryRowContext(ctx, q, userID).Scan(
		&p.UserID,
		&p.Email,
		&p.ClinicID,
		&p.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

func (r *PostgresRepo) GetClinic(ctx context.Context, clinicID string) (Clinic, error) {
	const q = `
SELECT id, name, COALESCE(airtable_base_id, ''), COALESCE(airtable_table_name, ''), COALESCE(display_fields, '[]'::jsonb), COALESCE(retell_agent_id, ''), created_at, updated_at
FROM clinics
WHERE id = $1
`
	var c Clinic
	var fieldsJSON []byte
	if err := r.DB.QueryRowContext(ctx, q, clinicID).Scan(
		&c.ID,
		&c.Name,
		&c.AirtableBaseID,
		&c.AirtableTableName,
		&fieldsJSON,
		&c.RetellAgentID,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Clinic{}, ErrClinicNotFound
		}
		return Clinic{}, err
	}
	if err := json.Unmarshal(fieldsJSON, &c.DisplayFields); err != nil {
		return Clinic{}, err
	}
	if len(c.DisplayFields) == 0 {
		c.DisplayFields = nil
	}
	return c, nil
}

func (r *PostgresRepo) CreateClinic(ctx context.Context, c Clinic) (Clinic, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	const q = `
INSERT INTO clinics (id, name, airtable_base_id, airtable_table_name, retell_agent_id, created_at, updated_at)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7)
`
	if _, err := r.DB.ExecContext(ctx, q,
		c.ID, c.Name, c.AirtableBaseID, c.AirtableTableName, c.RetellAgentID, c.CreatedAt, c.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return Clinic{}, ErrClinicExists
		}
		return Clinic{}, err
	}
	return c, nil
}

// CreateClinicForUser creates a clinic and assigns it to the user in one
// transaction, so a failed assignment never leaves an orphaned clinic.
// Rejected when the user already has one: re-pointing a profile at a new
// tenant is an explicit AssignClinic, never a side effect of creation.
func (r *PostgresRepo) CreateClinicForUser(ctx context.Context, userID, name string) (Clinic, error) {
	var out Clinic
	err := utils.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx *sql.Tx) error {
		const profileQ = `
SELECT email, COALESCE(clinic_id::text, '')
FROM profiles
WHERE user_id = $1
FOR UPDATE
`
		var email, assigned string
		if err := tx.QueryRowContext(ctx, profileQ, userID).Scan(&email, &assigned); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProfileNotFound
			}
			return err
		}
		if assigned != "" {
			return ErrAlreadyAssigned
		}

		if name == "" {
			name = "Clinic for " + email
		}
		now := time.Now().UTC()
		out = Clinic{
			ID:                uuid.NewString(),
			Name:              name,
			AirtableTableName: "Calls",
			CreatedAt:         now,
			UpdatedAt:         now,
		}

		const insertQ = `
INSERT INTO clinics (id, name, airtable_table_name, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
`
		if _, err := tx.ExecContext(ctx, insertQ, out.ID, out.Name, out.AirtableTableName, out.CreatedAt, out.UpdatedAt); err != nil {
			return err
		}

		const assignQ = `
UPDATE profiles
SET clinic_id = $2
WHERE user_id = $1
`
		_, err := tx.ExecContext(ctx, assignQ, userID, out.ID)
		return err
	})
	if err != nil {
		return Clinic{}, err
	}
	return out, nil
}

func (r *PostgresRepo) AssignClinic(ctx context.Context, userID, clinicID string) error {
	// Verify the clinic exists so a typo surfaces as 404 rather than a
	// silently broken assignment.
	if _, err := r.GetClinic(ctx, clinicID); err != nil {
		return err
	}

	const q = `
UPDATE profiles
SET clinic_id = $2
WHERE user_id = $1
`
	res, err := r.DB.ExecContext(ctx, q, userID, clinicID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *PostgresRepo) UpdateAirtableConfig(ctx context.Context, clinicID, baseID, tableName string, displayFields []string) error {
	fieldsJSON, err := json.Marshal(displayFields)
	if err != nil {
		return err
	}

	const q = `
UPDATE clinics
SET airtable_base_id = NULLIF($2, ''), airtable_table_name = NULLIF($3, ''), display_fields = $4::jsonb, updated_at = $5
WHERE id = $1
`
	res, err := r.DB.ExecContext(ctx, q, clinicID, baseID, tableName, fieldsJSON, time.Now().UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrClinicNotFound
	}
	return nil
}

// isUniqueViolation matches postgres unique_violation (23505) without
// depending on driver-specific error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
