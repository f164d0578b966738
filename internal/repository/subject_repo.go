package repository

import (
	"context"

	"github.com/user/linkcheck-service/internal/entity"
)

// SubjectRepository defines the interface for storing scraped subjects.
type SubjectRepository interface {
	// UpsertBySlug creates or updates a subject keyed by its listing slug
	// and returns the subject id.
	UpsertBySlug(ctx context.Context, subject *entity.Subject) (int64, error)
	// ListAll returns every subject, for export.
	ListAll(ctx context.Context) ([]*entity.Subject, error)
}
