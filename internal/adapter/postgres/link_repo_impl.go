package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/linkcheck-service/internal/entity"
)

const linkColumns = `l.id, l.subject_id, COALESCE(l.label, ''), l.url,
	l.is_active, l.last_status_code, l.contains_name, l.page_text,
	l.is_archived, l.archived_url, l.archived_timestamp, l.checked_at`

// LinkRepoImpl provides a concrete implementation for the LinkRepository
// interface using PostgreSQL.
type LinkRepoImpl struct {
	db *pgxpool.Pool
}

// NewLinkRepo creates a new instance of LinkRepoImpl.
func NewLinkRepo(db *pgxpool.Pool) *LinkRepoImpl {
	return &LinkRepoImpl{db: db}
}

// FindPendingValidation returns links eligible for the validation pass,
// joined with the owning subject's name. A NULL subject name degrades to
// the empty string; the cascade treats that as never-matching.
func (r *LinkRepoImpl) FindPendingValidation(ctx context.Context, limit int, force bool) ([]*entity.PendingLink, error) {
	query := `
		SELECT ` + linkColumns + `, COALESCE(s.name, '')
		FROM links l
		JOIN subjects s ON s.id = l.subject_id
		WHERE $1 OR l.checked_at IS NULL
		ORDER BY l.id
		LIMIT NULLIF($2, 0);
	`
	rows, err := r.db.Query(ctx, query, force, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []*entity.PendingLink
	for rows.Next() {
		var link entity.LinkRecord
		var name string
		if err := scanLink(rows, &link, &name); err != nil {
			return nil, err
		}
		pending = append(pending, &entity.PendingLink{Link: &link, SubjectName: name})
	}
	return pending, rows.Err()
}

// FindPendingArchiveCheck returns links whose archive state is unknown.
func (r *LinkRepoImpl) FindPendingArchiveCheck(ctx context.Context, limit int) ([]*entity.LinkRecord, error) {
	return r.findLinks(ctx, `l.is_archived IS NULL`, limit)
}

// FindPendingSubmission returns links known to have no snapshot yet.
func (r *LinkRepoImpl) FindPendingSubmission(ctx context.Context, limit int) ([]*entity.LinkRecord, error) {
	return r.findLinks(ctx, `l.is_archived = FALSE`, limit)
}

func (r *LinkRepoImpl) findLinks(ctx context.Context, where string, limit int) ([]*entity.LinkRecord, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM links l
		WHERE ` + where + `
		ORDER BY l.id
		LIMIT NULLIF($1, 0);
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*entity.LinkRecord
	for rows.Next() {
		var link entity.LinkRecord
		if err := scanLink(rows, &link); err != nil {
			return nil, err
		}
		links = append(links, &link)
	}
	return links, rows.Err()
}

// SaveValidation persists the liveness and content fields plus checked_at
// for one record. A single UPDATE either commits entirely or not at all,
// which is the per-record transactional scope the batch runner relies on.
func (r *LinkRepoImpl) SaveValidation(ctx context.Context, link *entity.LinkRecord) error {
	query := `
		UPDATE links SET
			is_active = $2,
			last_status_code = $3,
			contains_name = $4,
			page_text = $5,
			checked_at = $6
		WHERE id = $1;
	`
	_, err := r.db.Exec(ctx, query,
		link.ID,
		link.IsActive,
		link.LastStatusCode,
		link.ContainsName,
		link.PageText,
		link.CheckedAt,
	)
	return err
}

// SaveArchiveState persists the archive fields for one record.
func (r *LinkRepoImpl) SaveArchiveState(ctx context.Context, link *entity.LinkRecord) error {
	query := `
		UPDATE links SET
			is_archived = $2,
			archived_url = $3,
			archived_timestamp = $4
		WHERE id = $1;
	`
	_, err := r.db.Exec(ctx, query,
		link.ID,
		link.IsArchived,
		link.ArchivedURL,
		link.ArchivedTimestamp,
	)
	return err
}

// InsertForSubject inserts newly discovered links for a subject inside one
// transaction. Existing rows keep their URL and validation state untouched;
// re-scraping a profile must never reset settled links.
func (r *LinkRepoImpl) InsertForSubject(ctx context.Context, subjectID int64, links []*entity.LinkRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO links (subject_id, label, url)
		VALUES ($1, $2, $3)
		ON CONFLICT (subject_id, url) DO NOTHING;
	`
	for _, link := range links {
		if _, err := tx.Exec(ctx, query, subjectID, link.Label, link.URL); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListAll returns every link record, for export.
func (r *LinkRepoImpl) ListAll(ctx context.Context) ([]*entity.LinkRecord, error) {
	return r.findLinks(ctx, `TRUE`, 0)
}

func scanLink(rows pgx.Rows, link *entity.LinkRecord, extra ...any) error {
	dest := []any{
		&link.ID,
		&link.SubjectID,
		&link.Label,
		&link.URL,
		&link.IsActive,
		&link.LastStatusCode,
		&link.ContainsName,
		&link.PageText,
		&link.IsArchived,
		&link.ArchivedURL,
		&link.ArchivedTimestamp,
		&link.CheckedAt,
	}
	return rows.Scan(append(dest, extra...)...)
}
