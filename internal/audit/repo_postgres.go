package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends into the audit_events table. INSERT-only by contract.
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, clinic_id, type, actor_user_id, actor_role, ip_address, target_user_id, message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10)
`
	_, err := r.DB.ExecContext(ctx, q,
		e.ID, e.ClinicID, e.Type, e.ActorUserID, e.ActorRole, e.IPAddress, e.TargetUserID, e.Message, e.Metadata, e.CreatedAt,
	)
	return err
}
