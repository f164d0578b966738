package repository

import (
	"context"

	"github.com/user/linkcheck-service/internal/entity"
)

// LinkRepository defines the interface for reading and mutating link records.
// The Save* methods persist exactly one record; a failure there must leave
// that record untouched in the store.
type LinkRepository interface {
	// FindPendingValidation returns links eligible for the validation pass,
	// joined with the owning subject's name. Eligible means checked_at IS
	// NULL unless force is set, in which case every link qualifies.
	// limit <= 0 means no limit.
	FindPendingValidation(ctx context.Context, limit int, force bool) ([]*entity.PendingLink, error)
	// FindPendingArchiveCheck returns links whose archive state is unknown.
	FindPendingArchiveCheck(ctx context.Context, limit int) ([]*entity.LinkRecord, error)
	// FindPendingSubmission returns links known to have no snapshot yet.
	FindPendingSubmission(ctx context.Context, limit int) ([]*entity.LinkRecord, error)
	// SaveValidation persists the liveness and content fields plus checked_at.
	SaveValidation(ctx context.Context, link *entity.LinkRecord) error
	// SaveArchiveState persists the archive fields.
	SaveArchiveState(ctx context.Context, link *entity.LinkRecord) error
	// InsertForSubject inserts newly discovered links for a subject. Links
	// already present for that subject (same URL) are left untouched.
	InsertForSubject(ctx context.Context, subjectID int64, links []*entity.LinkRecord) error
	// ListAll returns every link record, for export.
	ListAll(ctx context.Context) ([]*entity.LinkRecord, error)
}
