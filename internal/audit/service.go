package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to tenant users by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.ClinicID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogClinicCreated records a tenant provisioning action.
func (s *Service) LogClinicCreated(ctx context.Context, clinicID, actorUserID, actorRole, ip, targetUserID string) error {
	return s.Append(ctx, Event{
		ClinicID:     clinicID,
		Type:         EventTypeClinicCreated,
		ActorUserID:  actorUserID,
		ActorRole:    actorRole,
		IPAddress:    ip,
		TargetUserID: targetUserID,
		Message:      "clinic created and assigned",
	})
}

// LogConfigUpdated records a store-configuration change for a tenant.
func (s *Service) LogConfigUpdated(ctx context.Context, clinicID, actorUserID, actorRole, ip, metadata string) error {
	return s.Append(ctx, Event{
		ClinicID:    clinicID,
		Type:        EventTypeConfigUpdated,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		Message:     "airtable config updated",
		Metadata:    metadata,
	})
}
