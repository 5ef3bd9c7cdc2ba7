// Package directory is the tenant registry: clinics, their store
// configuration, and the user-to-clinic assignment used to scope every
// reporting query.
package directory

import "time"

// Clinic is one tenant.
//
// Multi-tenant invariant: AirtableBaseID/AirtableTableName decide which
// store a tenant's reporting reads hit; they are admin-managed and never
// accepted from end-user input.
type Clinic struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	AirtableBaseID    string `json:"airtable_base_id,omitempty" db:"airtable_base_id"`
	AirtableTableName string `json:"airtable_table_name,omitempty" db:"airtable_table_name"`

	// DisplayFields is the dashboard column set for this clinic's call table.
	// Empty means the default columns.
	DisplayFields []string `json:"display_fields,omitempty" db:"display_fields"`

	// RetellAgentID links the tenant to its voice agent, used when
	// provisioning and when mapping inbound events.
	RetellAgentID string `json:"retell_agent_id,omitempty" db:"retell_agent_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Profile links an authenticated user to at most one clinic.
// ClinicID is empty until an admin assigns the user; reporting treats that
// state as "no data yet", not as an error.
type Profile struct {
	UserID   string `json:"user_id" db:"user_id"`
	Email    string `json:"email" db:"email"`
	ClinicID string `json:"clinic_id,omitempty" db:"clinic_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
